// Package payments records one payment per order and reconciles the order's
// status with it.
package payments

import (
	"context"
	"errors"
	"time"

	"github.com/ariefcatur/catering-orders/internal/apperr"
)

type Status string

const (
	StatusPending   Status = "pending"
	StatusCompleted Status = "completed"
	StatusFailed    Status = "failed"
)

func (s Status) Valid() bool {
	return s == StatusPending || s == StatusCompleted || s == StatusFailed
}

type Payment struct {
	ID          string    `json:"id"`
	OrderID     string    `json:"order_id"`
	PaymentDate time.Time `json:"payment_date"`
	Status      Status    `json:"payment_status"`
	CreatedAt   time.Time `json:"created_at"`
	UpdatedAt   time.Time `json:"updated_at"`
}

// Repository keeps at most one payment per order.
type Repository interface {
	// Upsert inserts p or overwrites the status and date of the order's payment.
	Upsert(ctx context.Context, p Payment) (Payment, error)
	ByOrder(ctx context.Context, orderID string) (Payment, error)
	Get(ctx context.Context, id string) (Payment, error)
	List(ctx context.Context) ([]Payment, error)
}

// Settlements adapts a Repository to orders.Settlements.
type Settlements struct{ Repo Repository }

func (s Settlements) Completed(ctx context.Context, orderID string) (bool, error) {
	p, err := s.Repo.ByOrder(ctx, orderID)
	if errors.Is(err, apperr.ErrNotFound) {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	return p.Status == StatusCompleted, nil
}
