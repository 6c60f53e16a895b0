package cart

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"

	"github.com/ariefcatur/catering-orders/internal/apperr"
	"github.com/ariefcatur/catering-orders/internal/auth"
	"github.com/ariefcatur/catering-orders/internal/catalog"
)

type Aggregator struct {
	Repo    Repository
	Catalog catalog.Reader
	Log     zerolog.Logger
}

func shopper(caller auth.Identity) error {
	if caller.Role != auth.RoleCustomer || caller.UserID == "" {
		return fmt.Errorf("cart requires a customer identity: %w", apperr.ErrUnauthorized)
	}
	return nil
}

func (a *Aggregator) Add(ctx context.Context, caller auth.Identity, foodID string, qty int) (Entry, error) {
	if err := shopper(caller); err != nil {
		return Entry{}, err
	}
	if qty <= 0 {
		return Entry{}, fmt.Errorf("quantity must be positive: %w", apperr.ErrInvalidInput)
	}
	if _, err := a.Catalog.Food(ctx, foodID); err != nil {
		return Entry{}, err
	}
	e, err := a.Repo.Merge(ctx, Entry{
		ID:        uuid.NewString(),
		UserID:    caller.UserID,
		FoodID:    foodID,
		Quantity:  qty,
		CreatedAt: time.Now().UTC(),
	})
	if err != nil {
		return Entry{}, fmt.Errorf("add to cart: %w", err)
	}
	a.Log.Debug().Str("user_id", caller.UserID).Str("food_id", foodID).Int("quantity", e.Quantity).Msg("cart entry merged")
	return e, nil
}

func (a *Aggregator) Update(ctx context.Context, caller auth.Identity, entryID string, qty int) (Entry, error) {
	if err := shopper(caller); err != nil {
		return Entry{}, err
	}
	if qty <= 0 {
		return Entry{}, fmt.Errorf("quantity must be positive: %w", apperr.ErrInvalidInput)
	}
	return a.Repo.SetQuantity(ctx, caller.UserID, entryID, qty)
}

func (a *Aggregator) Remove(ctx context.Context, caller auth.Identity, entryID string) error {
	if err := shopper(caller); err != nil {
		return err
	}
	return a.Repo.Delete(ctx, caller.UserID, entryID)
}

// List prices the cart with current catalog prices. Entries whose food has left
// the catalog are listed with a zero price so the user can remove them.
func (a *Aggregator) List(ctx context.Context, caller auth.Identity) (View, error) {
	if err := shopper(caller); err != nil {
		return View{}, err
	}
	entries, err := a.Repo.List(ctx, caller.UserID)
	if err != nil {
		return View{}, err
	}
	ids := make([]string, 0, len(entries))
	for _, e := range entries {
		ids = append(ids, e.FoodID)
	}
	foods, err := a.Catalog.Foods(ctx, ids)
	if err != nil {
		return View{}, err
	}

	v := View{Lines: make([]Line, 0, len(entries)), Total: decimal.Zero}
	for _, e := range entries {
		f := foods[e.FoodID]
		sub := f.Price.Mul(decimal.NewFromInt(int64(e.Quantity)))
		v.Lines = append(v.Lines, Line{Entry: e, FoodName: f.Name, Image: f.Image, UnitPrice: f.Price, Subtotal: sub})
		v.Total = v.Total.Add(sub)
	}
	return v, nil
}
