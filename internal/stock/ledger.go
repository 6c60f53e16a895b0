package stock

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/ariefcatur/catering-orders/internal/apperr"
	"github.com/ariefcatur/catering-orders/internal/auth"
)

type Ledger struct {
	Repo Repository
	Log  zerolog.Logger
}

// Reserve takes qty units of item id or fails with ErrInsufficientStock.
func (l *Ledger) Reserve(ctx context.Context, id string, qty int) error {
	if qty <= 0 {
		return fmt.Errorf("reserve %s: quantity %d: %w", id, qty, apperr.ErrInvalidInput)
	}
	left, err := l.Repo.Decrement(ctx, id, qty)
	if err != nil {
		return fmt.Errorf("reserve %s x%d: %w", id, qty, err)
	}
	l.Log.Debug().Str("stock_id", id).Int("qty", qty).Int("remaining", left).Msg("stock reserved")
	return nil
}

// Release returns qty units to item id. Callers release a reservation once.
func (l *Ledger) Release(ctx context.Context, id string, qty int) error {
	if qty <= 0 {
		return fmt.Errorf("release %s: quantity %d: %w", id, qty, apperr.ErrInvalidInput)
	}
	left, err := l.Repo.Increment(ctx, id, qty)
	if err != nil {
		return fmt.Errorf("release %s x%d: %w", id, qty, err)
	}
	l.Log.Debug().Str("stock_id", id).Int("qty", qty).Int("remaining", left).Msg("stock released")
	return nil
}

func (l *Ledger) Restock(ctx context.Context, caller auth.Identity, id string, qty int) (Item, error) {
	if err := auth.RequireAdmin(caller); err != nil {
		return Item{}, err
	}
	if qty <= 0 {
		return Item{}, fmt.Errorf("restock quantity must be positive: %w", apperr.ErrInvalidInput)
	}
	if _, err := l.Repo.Increment(ctx, id, qty); err != nil {
		return Item{}, fmt.Errorf("restock %s: %w", id, err)
	}
	l.Log.Info().Str("stock_id", id).Int("qty", qty).Str("admin", caller.UserID).Msg("stock restocked")
	return l.Repo.Get(ctx, id)
}

func (l *Ledger) SetQuantity(ctx context.Context, caller auth.Identity, id string, qty int) (Item, error) {
	if err := auth.RequireAdmin(caller); err != nil {
		return Item{}, err
	}
	if qty < 0 {
		return Item{}, fmt.Errorf("quantity cannot be negative: %w", apperr.ErrInvalidInput)
	}
	if err := l.Repo.Set(ctx, id, qty); err != nil {
		return Item{}, fmt.Errorf("set quantity %s: %w", id, err)
	}
	l.Log.Info().Str("stock_id", id).Int("qty", qty).Str("admin", caller.UserID).Msg("stock quantity set")
	return l.Repo.Get(ctx, id)
}

func (l *Ledger) Create(ctx context.Context, caller auth.Identity, name string, qty int) (Item, error) {
	if err := auth.RequireAdmin(caller); err != nil {
		return Item{}, err
	}
	name = strings.TrimSpace(name)
	if name == "" {
		return Item{}, fmt.Errorf("stock name is required: %w", apperr.ErrInvalidInput)
	}
	if qty < 0 {
		return Item{}, fmt.Errorf("quantity cannot be negative: %w", apperr.ErrInvalidInput)
	}
	now := time.Now().UTC()
	it := Item{ID: uuid.NewString(), Name: name, Quantity: qty, CreatedAt: now, UpdatedAt: now}
	if err := l.Repo.Create(ctx, it); err != nil {
		return Item{}, fmt.Errorf("create stock: %w", err)
	}
	return it, nil
}

func (l *Ledger) Get(ctx context.Context, caller auth.Identity, id string) (Item, error) {
	if err := auth.RequireAdmin(caller); err != nil {
		return Item{}, err
	}
	return l.Repo.Get(ctx, id)
}

func (l *Ledger) List(ctx context.Context, caller auth.Identity) ([]Item, error) {
	if err := auth.RequireAdmin(caller); err != nil {
		return nil, err
	}
	return l.Repo.List(ctx)
}

func (l *Ledger) Delete(ctx context.Context, caller auth.Identity, id string) error {
	if err := auth.RequireAdmin(caller); err != nil {
		return err
	}
	return l.Repo.Delete(ctx, id)
}
