// Package admin groups the operations reserved to administrators. Every method
// checks the caller's role itself instead of trusting the route it came from.
package admin

import (
	"context"

	"github.com/rs/zerolog"

	"github.com/ariefcatur/catering-orders/internal/auth"
	"github.com/ariefcatur/catering-orders/internal/orders"
	"github.com/ariefcatur/catering-orders/internal/payments"
	"github.com/ariefcatur/catering-orders/internal/stock"
)

type Override struct {
	Machine  *orders.Machine
	Payments *payments.Recorder
	Stock    *stock.Ledger
	Log      zerolog.Logger
}

func (o *Override) audit(caller auth.Identity, action, target string) {
	o.Log.Info().Str("admin", caller.UserID).Str("action", action).Str("target", target).Msg("admin override")
}

func (o *Override) ListOrders(ctx context.Context, caller auth.Identity) ([]orders.Order, error) {
	if err := auth.RequireAdmin(caller); err != nil {
		return nil, err
	}
	return o.Machine.List(ctx, caller)
}

func (o *Override) GetOrder(ctx context.Context, caller auth.Identity, id string) (orders.Order, error) {
	if err := auth.RequireAdmin(caller); err != nil {
		return orders.Order{}, err
	}
	return o.Machine.Get(ctx, caller, id)
}

// SetOrderStatus still obeys the transition table; admins skip nothing.
func (o *Override) SetOrderStatus(ctx context.Context, caller auth.Identity, id string, to orders.Status) (orders.Order, error) {
	if err := auth.RequireAdmin(caller); err != nil {
		return orders.Order{}, err
	}
	ord, err := o.Machine.Advance(ctx, caller, id, to)
	if err != nil {
		return orders.Order{}, err
	}
	o.audit(caller, "set_order_status:"+string(to), id)
	return ord, nil
}

func (o *Override) ListPayments(ctx context.Context, caller auth.Identity) ([]payments.Payment, error) {
	if err := auth.RequireAdmin(caller); err != nil {
		return nil, err
	}
	return o.Payments.List(ctx, caller)
}

func (o *Override) GetPayment(ctx context.Context, caller auth.Identity, id string) (payments.Payment, error) {
	if err := auth.RequireAdmin(caller); err != nil {
		return payments.Payment{}, err
	}
	return o.Payments.Get(ctx, caller, id)
}

func (o *Override) SetPaymentStatus(ctx context.Context, caller auth.Identity, id string, st payments.Status) (payments.Payment, error) {
	if err := auth.RequireAdmin(caller); err != nil {
		return payments.Payment{}, err
	}
	p, err := o.Payments.UpdateByID(ctx, caller, id, st)
	if err != nil {
		return payments.Payment{}, err
	}
	o.audit(caller, "set_payment_status:"+string(st), id)
	return p, nil
}

func (o *Override) ListStock(ctx context.Context, caller auth.Identity) ([]stock.Item, error) {
	if err := auth.RequireAdmin(caller); err != nil {
		return nil, err
	}
	return o.Stock.List(ctx, caller)
}

func (o *Override) GetStock(ctx context.Context, caller auth.Identity, id string) (stock.Item, error) {
	if err := auth.RequireAdmin(caller); err != nil {
		return stock.Item{}, err
	}
	return o.Stock.Get(ctx, caller, id)
}

func (o *Override) CreateStock(ctx context.Context, caller auth.Identity, name string, qty int) (stock.Item, error) {
	if err := auth.RequireAdmin(caller); err != nil {
		return stock.Item{}, err
	}
	it, err := o.Stock.Create(ctx, caller, name, qty)
	if err != nil {
		return stock.Item{}, err
	}
	o.audit(caller, "create_stock", it.ID)
	return it, nil
}

func (o *Override) SetQuantity(ctx context.Context, caller auth.Identity, id string, qty int) (stock.Item, error) {
	if err := auth.RequireAdmin(caller); err != nil {
		return stock.Item{}, err
	}
	it, err := o.Stock.SetQuantity(ctx, caller, id, qty)
	if err != nil {
		return stock.Item{}, err
	}
	o.audit(caller, "set_quantity", id)
	return it, nil
}

func (o *Override) Restock(ctx context.Context, caller auth.Identity, id string, qty int) (stock.Item, error) {
	if err := auth.RequireAdmin(caller); err != nil {
		return stock.Item{}, err
	}
	it, err := o.Stock.Restock(ctx, caller, id, qty)
	if err != nil {
		return stock.Item{}, err
	}
	o.audit(caller, "restock", id)
	return it, nil
}

func (o *Override) DeleteStock(ctx context.Context, caller auth.Identity, id string) error {
	if err := auth.RequireAdmin(caller); err != nil {
		return err
	}
	if err := o.Stock.Delete(ctx, caller, id); err != nil {
		return err
	}
	o.audit(caller, "delete_stock", id)
	return nil
}
