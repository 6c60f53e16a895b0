package orders

import (
	"context"
)

// Repository persists orders. Orders are never deleted and only their status
// changes after creation.
type Repository interface {
	Create(ctx context.Context, o Order) error
	Get(ctx context.Context, id string) (Order, error)
	// List returns the user's orders newest first; an empty userID lists all.
	List(ctx context.Context, userID string) ([]Order, error)
	// Update locks the order, hands it to fn and stores the status fn leaves
	// behind. Nothing is stored when fn fails. fn receives the context to use
	// for any other writes that must share the lock.
	Update(ctx context.Context, id string, fn func(ctx context.Context, o *Order) error) (Order, error)
}

// Transactor runs fn atomically across repositories.
type Transactor interface {
	WithinTx(ctx context.Context, fn func(ctx context.Context) error) error
}

// InlineTx runs fn directly, for stores without transactions. Atomicity of
// stock then rests on the factory's compensating releases.
type InlineTx struct{}

func (InlineTx) WithinTx(ctx context.Context, fn func(ctx context.Context) error) error {
	return fn(ctx)
}
