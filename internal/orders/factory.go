package orders

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/ariefcatur/catering-orders/internal/apperr"
	"github.com/ariefcatur/catering-orders/internal/auth"
	"github.com/ariefcatur/catering-orders/internal/cart"
	"github.com/ariefcatur/catering-orders/internal/catalog"
)

// Factory turns a direct purchase or a cart into a pending order with its stock
// reserved. Either the order exists with every line reserved or nothing changed.
type Factory struct {
	Orders  Repository
	Carts   cart.Repository
	Catalog catalog.Reader
	Ledger  Ledger
	Tx      Transactor
	Events  Emitter
	Log     zerolog.Logger
}

type DirectInput struct {
	FoodID   string `json:"food_id"`
	Quantity int    `json:"quantity"`
	Fulfillment
}

func (f *Factory) tx() Transactor {
	if f.Tx == nil {
		return InlineTx{}
	}
	return f.Tx
}

func customer(caller auth.Identity) error {
	if caller.Role != auth.RoleCustomer || caller.UserID == "" {
		return fmt.Errorf("ordering requires a customer identity: %w", apperr.ErrUnauthorized)
	}
	return nil
}

func checkFulfillment(ful Fulfillment) (Fulfillment, error) {
	ful = ful.normalized()
	if !ful.complete() {
		return Fulfillment{}, fmt.Errorf("name, address and phone are required: %w", apperr.ErrInvalidInput)
	}
	return ful, nil
}

func newOrder(userID string, ful Fulfillment, items []Item) Order {
	now := time.Now().UTC()
	return Order{
		ID:          uuid.NewString(),
		UserID:      userID,
		Fulfillment: ful,
		Items:       items,
		Total:       total(items),
		Status:      StatusPending,
		CreatedAt:   now,
		UpdatedAt:   now,
	}
}

// Direct places a single-line order for one food.
func (f *Factory) Direct(ctx context.Context, caller auth.Identity, in DirectInput) (Order, error) {
	if err := customer(caller); err != nil {
		return Order{}, err
	}
	if in.Quantity <= 0 {
		return Order{}, fmt.Errorf("quantity must be positive: %w", apperr.ErrInvalidInput)
	}
	ful, err := checkFulfillment(in.Fulfillment)
	if err != nil {
		return Order{}, err
	}

	var o Order
	err = f.tx().WithinTx(ctx, func(ctx context.Context) error {
		food, err := f.Catalog.Food(ctx, in.FoodID)
		if err != nil {
			return err
		}
		o = newOrder(caller.UserID, ful, []Item{{
			FoodID:    food.ID,
			StockID:   food.StockID,
			FoodName:  food.Name,
			Quantity:  in.Quantity,
			UnitPrice: food.Price,
		}})
		return f.place(ctx, o)
	})
	if err != nil {
		return Order{}, err
	}
	f.created(ctx, o)
	return o, nil
}

// FromCart converts the caller's whole cart into one order and empties the cart.
// Prices are taken from the catalog at conversion time.
func (f *Factory) FromCart(ctx context.Context, caller auth.Identity, ful Fulfillment) (Order, error) {
	if err := customer(caller); err != nil {
		return Order{}, err
	}
	ful, err := checkFulfillment(ful)
	if err != nil {
		return Order{}, err
	}

	var o Order
	err = f.tx().WithinTx(ctx, func(ctx context.Context) error {
		return f.Carts.Checkout(ctx, caller.UserID, func(ctx context.Context, entries []cart.Entry) error {
			if len(entries) == 0 {
				return fmt.Errorf("user %s: %w", caller.UserID, apperr.ErrEmptyCart)
			}
			ids := make([]string, 0, len(entries))
			for _, e := range entries {
				ids = append(ids, e.FoodID)
			}
			foods, err := f.Catalog.Foods(ctx, ids)
			if err != nil {
				return err
			}
			items := make([]Item, 0, len(entries))
			for _, e := range entries {
				food, ok := foods[e.FoodID]
				if !ok {
					return fmt.Errorf("food %s is no longer available: %w", e.FoodID, apperr.ErrNotFound)
				}
				items = append(items, Item{
					FoodID:    food.ID,
					StockID:   food.StockID,
					FoodName:  food.Name,
					Quantity:  e.Quantity,
					UnitPrice: food.Price,
				})
			}
			o = newOrder(caller.UserID, ful, items)
			return f.place(ctx, o)
		})
	})
	if err != nil {
		return Order{}, err
	}
	f.created(ctx, o)
	return o, nil
}

// place reserves stock and stores the order. A failed store hands the stock back.
func (f *Factory) place(ctx context.Context, o Order) error {
	taken, err := reserveAll(ctx, f.Ledger, f.Log, o.Items)
	if err != nil {
		return err
	}
	if err := f.Orders.Create(ctx, o); err != nil {
		releaseAll(ctx, f.Ledger, f.Log, taken)
		return fmt.Errorf("store order: %w", err)
	}
	return nil
}

func (f *Factory) created(ctx context.Context, o Order) {
	f.Log.Info().Str("order_id", o.ID).Str("user_id", o.UserID).
		Int("lines", len(o.Items)).Str("total", o.Total.StringFixed(2)).Msg("order created")
	if f.Events == nil {
		return
	}
	if err := f.Events.Emit(ctx, TopicOrderCreated, EventOrderCreated, o.ID, createdPayload(o)); err != nil {
		f.Log.Warn().Err(err).Str("order_id", o.ID).Msg("emit order created failed")
	}
}
