// Package stock owns available quantities per stocked item and the atomic
// reserve/release operations orders rely on.
package stock

import (
	"context"
	"time"
)

type Item struct {
	ID        string    `json:"id"`
	Name      string    `json:"name"`
	Quantity  int       `json:"quantity"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// Repository persists stock items. Decrement, Increment and Set are atomic per item;
// none of them may leave a quantity below zero.
type Repository interface {
	Create(ctx context.Context, it Item) error
	Get(ctx context.Context, id string) (Item, error)
	List(ctx context.Context) ([]Item, error)
	Delete(ctx context.Context, id string) error

	// Decrement subtracts qty only if at least qty is available, otherwise it
	// fails with apperr.ErrInsufficientStock and changes nothing.
	Decrement(ctx context.Context, id string, qty int) (remaining int, err error)
	Increment(ctx context.Context, id string, qty int) (remaining int, err error)
	Set(ctx context.Context, id string, qty int) error
}
