// Package cart keeps each user's pending selections until checkout. Entries are
// not reservations; stock is only touched when an order is created.
package cart

import (
	"context"
	"time"

	"github.com/shopspring/decimal"
)

type Entry struct {
	ID        string    `json:"id"`
	UserID    string    `json:"user_id"`
	FoodID    string    `json:"food_id"`
	Quantity  int       `json:"quantity"`
	CreatedAt time.Time `json:"created_at"`
}

// Line is an entry priced with the current catalog price.
type Line struct {
	Entry
	FoodName  string          `json:"food_name"`
	Image     string          `json:"image,omitempty"`
	UnitPrice decimal.Decimal `json:"unit_price"`
	Subtotal  decimal.Decimal `json:"subtotal"`
}

type View struct {
	Lines []Line          `json:"items"`
	Total decimal.Decimal `json:"total"`
}

// Repository stores entries unique per (user, food). Lookups by entry id are scoped
// to the user: an entry owned by someone else is reported as not found.
type Repository interface {
	// Merge adds e.Quantity to the user's entry for e.FoodID or inserts e.
	Merge(ctx context.Context, e Entry) (Entry, error)
	SetQuantity(ctx context.Context, userID, id string, qty int) (Entry, error)
	Delete(ctx context.Context, userID, id string) error
	// List returns entries in insertion order.
	List(ctx context.Context, userID string) ([]Entry, error)
	// Checkout locks the user's cart, hands its entries to fn and deletes them
	// when fn succeeds. Concurrent checkouts of one cart run one after another,
	// so the later one sees the cart the earlier one left. Stores with
	// transactions expect to run inside the caller's.
	Checkout(ctx context.Context, userID string, fn func(ctx context.Context, entries []Entry) error) error
}
