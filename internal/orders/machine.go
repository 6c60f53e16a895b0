package orders

import (
	"context"
	"fmt"

	"github.com/rs/zerolog"

	"github.com/ariefcatur/catering-orders/internal/apperr"
	"github.com/ariefcatur/catering-orders/internal/auth"
)

// Settlements reports whether an order's payment has completed. It is read
// inside the order's critical section through the ctx Update passes along.
type Settlements interface {
	Completed(ctx context.Context, orderID string) (bool, error)
}

// Machine applies status transitions. Cancelling releases the order's stock in
// the same critical section as the status change.
type Machine struct {
	Orders   Repository
	Ledger   Ledger
	Payments Settlements
	Events   Emitter
	Log      zerolog.Logger
}

// Advance moves order id to status to on behalf of caller.
func (m *Machine) Advance(ctx context.Context, caller auth.Identity, id string, to Status) (Order, error) {
	if !to.Valid() {
		return Order{}, fmt.Errorf("unknown status %q: %w", to, apperr.ErrInvalidTransition)
	}
	var from Status
	o, err := m.Orders.Update(ctx, id, func(ctx context.Context, o *Order) error {
		if caller.Role == auth.RoleCustomer && !caller.Owns(o.UserID) {
			return fmt.Errorf("order %s: %w", id, apperr.ErrUnauthorized)
		}
		from = o.Status
		return m.apply(ctx, caller, o, to)
	})
	if err != nil {
		return Order{}, err
	}
	m.changed(ctx, caller, o, from)
	return o, nil
}

// Apply runs a transition on an order the caller already holds inside
// Repository.Update. The payment recorder uses it to advance an order together
// with its payment.
func (m *Machine) Apply(ctx context.Context, caller auth.Identity, o *Order, to Status) error {
	return m.apply(ctx, caller, o, to)
}

func (m *Machine) apply(ctx context.Context, caller auth.Identity, o *Order, to Status) error {
	paid := false
	if NeedsPayment(o.Status, to) && m.Payments != nil {
		var err error
		if paid, err = m.Payments.Completed(ctx, o.ID); err != nil {
			return err
		}
	}
	if err := Transition(o.Status, to, caller.Role, paid); err != nil {
		return fmt.Errorf("order %s: %w", o.ID, err)
	}
	if to == StatusCancelled {
		if err := releaseItems(ctx, m.Ledger, m.Log, o.ID, o.Items); err != nil {
			return fmt.Errorf("release stock for order %s: %w", o.ID, err)
		}
	}
	o.Status = to
	return nil
}

// Changed logs and emits a stored transition.
func (m *Machine) Changed(ctx context.Context, caller auth.Identity, o Order, from Status) {
	m.changed(ctx, caller, o, from)
}

func (m *Machine) changed(ctx context.Context, caller auth.Identity, o Order, from Status) {
	if from == o.Status {
		return
	}
	m.Log.Info().Str("order_id", o.ID).Str("from", string(from)).Str("to", string(o.Status)).
		Str("by", string(caller.Role)).Msg("order status changed")
	if m.Events == nil {
		return
	}
	p := OrderStatusChangedPayload{OrderID: o.ID, From: from, To: o.Status, By: string(caller.Role)}
	if err := m.Events.Emit(ctx, TopicOrderStatusChanged, EventOrderStatusChanged, o.ID, p); err != nil {
		m.Log.Warn().Err(err).Str("order_id", o.ID).Msg("emit status change failed")
	}
}

// Get returns an order its owner or an admin may see.
func (m *Machine) Get(ctx context.Context, caller auth.Identity, id string) (Order, error) {
	o, err := m.Orders.Get(ctx, id)
	if err != nil {
		return Order{}, err
	}
	if !caller.IsAdmin() && !caller.Owns(o.UserID) {
		return Order{}, fmt.Errorf("order %s: %w", id, apperr.ErrUnauthorized)
	}
	return o, nil
}

// List returns the caller's orders, or every order for an admin.
func (m *Machine) List(ctx context.Context, caller auth.Identity) ([]Order, error) {
	switch {
	case caller.IsAdmin():
		return m.Orders.List(ctx, "")
	case caller.Role == auth.RoleCustomer && caller.UserID != "":
		return m.Orders.List(ctx, caller.UserID)
	}
	return nil, fmt.Errorf("listing orders: %w", apperr.ErrUnauthorized)
}
