package payments

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/ariefcatur/catering-orders/internal/apperr"
	"github.com/ariefcatur/catering-orders/internal/auth"
	"github.com/ariefcatur/catering-orders/internal/orders"
	"github.com/ariefcatur/catering-orders/internal/redisx"
)

// Claims deduplicates redelivered callbacks. redisx.Store implements it.
type Claims interface {
	Claim(ctx context.Context, key string, ttl time.Duration) (bool, error)
	Forget(ctx context.Context, key string) error
}

// Recorder writes payments under the order's lock, so a completed payment and the
// order's move to processing are observed together or not at all.
type Recorder struct {
	Orders   orders.Repository
	Payments Repository
	Machine  *orders.Machine
	Claims   Claims // optional
	Events   orders.Emitter
	Log      zerolog.Logger
}

// Receipt is what a customer sees after paying.
type Receipt struct {
	Order   orders.Order `json:"order"`
	Payment *Payment     `json:"payment"`
}

// CreateOrUpdate records the payment state of orderID reported by caller.
func (r *Recorder) CreateOrUpdate(ctx context.Context, caller auth.Identity, orderID string, st Status) (Payment, error) {
	switch caller.Role {
	case auth.RoleCustomer, auth.RoleAdmin, auth.RoleSystem:
	default:
		return Payment{}, fmt.Errorf("recording payment: %w", apperr.ErrUnauthorized)
	}
	return r.record(ctx, caller, orderID, st)
}

// Callback applies a gateway notification reported by caller: the system
// identity for the broker stream, the order's owner or an admin over HTTP.
// Repeating the same (order, status) pair has no further effect.
func (r *Recorder) Callback(ctx context.Context, caller auth.Identity, orderID string, st Status) (Payment, error) {
	if !st.Valid() {
		return Payment{}, fmt.Errorf("payment status %q: %w", st, apperr.ErrInvalidInput)
	}
	if err := r.mayReport(ctx, caller, orderID); err != nil {
		return Payment{}, err
	}
	if r.Claims == nil {
		return r.record(ctx, caller, orderID, st)
	}

	key := fmt.Sprintf(redisx.KeyDedup, "payments", orderID+":"+string(st))
	claimed, err := r.Claims.Claim(ctx, key, redisx.TTLDedup)
	if err != nil {
		// record is idempotent without the claim
		r.Log.Warn().Err(err).Str("order_id", orderID).Msg("callback claim failed")
		return r.record(ctx, caller, orderID, st)
	}
	if !claimed {
		// the claim may still be in flight or the status may have moved on
		// since; record settles both under the order lock
		if cur, err := r.Payments.ByOrder(ctx, orderID); err == nil && cur.Status == st {
			r.Log.Debug().Str("order_id", orderID).Str("status", string(st)).Msg("duplicate callback skipped")
			return cur, nil
		}
		return r.record(ctx, caller, orderID, st)
	}
	p, err := r.record(ctx, caller, orderID, st)
	if err != nil {
		if ferr := r.Claims.Forget(context.WithoutCancel(ctx), key); ferr != nil {
			r.Log.Warn().Err(ferr).Str("key", key).Msg("release callback claim failed")
		}
		return Payment{}, err
	}
	return p, nil
}

// mayReport must run before any dedup state is read or written.
func (r *Recorder) mayReport(ctx context.Context, caller auth.Identity, orderID string) error {
	switch caller.Role {
	case auth.RoleSystem, auth.RoleAdmin:
		return nil
	case auth.RoleCustomer:
		o, err := r.Orders.Get(ctx, orderID)
		if err != nil {
			return err
		}
		if caller.Owns(o.UserID) {
			return nil
		}
	}
	return fmt.Errorf("payment callback for order %s: %w", orderID, apperr.ErrUnauthorized)
}

// UpdateByID is the admin override for an existing payment.
func (r *Recorder) UpdateByID(ctx context.Context, caller auth.Identity, paymentID string, st Status) (Payment, error) {
	if err := auth.RequireAdmin(caller); err != nil {
		return Payment{}, err
	}
	cur, err := r.Payments.Get(ctx, paymentID)
	if err != nil {
		return Payment{}, err
	}
	return r.record(ctx, caller, cur.OrderID, st)
}

func (r *Recorder) Get(ctx context.Context, caller auth.Identity, id string) (Payment, error) {
	if err := auth.RequireAdmin(caller); err != nil {
		return Payment{}, err
	}
	return r.Payments.Get(ctx, id)
}

func (r *Recorder) List(ctx context.Context, caller auth.Identity) ([]Payment, error) {
	if err := auth.RequireAdmin(caller); err != nil {
		return nil, err
	}
	return r.Payments.List(ctx)
}

// Receipt returns the order and its payment, if any, to the owner or an admin.
func (r *Recorder) Receipt(ctx context.Context, caller auth.Identity, orderID string) (Receipt, error) {
	o, err := r.Orders.Get(ctx, orderID)
	if err != nil {
		return Receipt{}, err
	}
	if !caller.IsAdmin() && !caller.Owns(o.UserID) {
		return Receipt{}, fmt.Errorf("order %s: %w", orderID, apperr.ErrUnauthorized)
	}
	rc := Receipt{Order: o}
	p, err := r.Payments.ByOrder(ctx, orderID)
	switch {
	case err == nil:
		rc.Payment = &p
	case !errors.Is(err, apperr.ErrNotFound):
		return Receipt{}, err
	}
	return rc, nil
}

func (r *Recorder) record(ctx context.Context, caller auth.Identity, orderID string, st Status) (Payment, error) {
	if !st.Valid() {
		return Payment{}, fmt.Errorf("payment status %q: %w", st, apperr.ErrInvalidInput)
	}
	var (
		p       Payment
		from    orders.Status
		changed bool
	)
	o, err := r.Orders.Update(ctx, orderID, func(ctx context.Context, o *orders.Order) error {
		if caller.Role == auth.RoleCustomer && !caller.Owns(o.UserID) {
			return fmt.Errorf("order %s: %w", orderID, apperr.ErrUnauthorized)
		}
		from = o.Status
		cur, err := r.Payments.ByOrder(ctx, orderID)
		exists := err == nil
		if err != nil && !errors.Is(err, apperr.ErrNotFound) {
			return err
		}
		// a repeat of what is stored is a no-op, even once the order is settled
		if exists && cur.Status == st {
			p = cur
			return nil
		}
		if o.Status.Terminal() {
			return fmt.Errorf("order %s is %s: %w", orderID, o.Status, apperr.ErrOrderAlreadySettled)
		}
		// a processing order was confirmed by its completed payment
		if o.Status == orders.StatusProcessing && st != StatusCompleted {
			return fmt.Errorf("payment of processing order %s cannot become %s: %w", orderID, st, apperr.ErrInvalidTransition)
		}

		now := time.Now().UTC()
		next := Payment{ID: uuid.NewString(), OrderID: orderID, PaymentDate: now, Status: st, CreatedAt: now, UpdatedAt: now}
		if exists {
			next.ID, next.CreatedAt = cur.ID, cur.CreatedAt
		}
		if p, err = r.Payments.Upsert(ctx, next); err != nil {
			return fmt.Errorf("store payment: %w", err)
		}
		changed = true
		if st == StatusCompleted && o.Status == orders.StatusPending {
			return r.Machine.Apply(ctx, auth.System, o, orders.StatusProcessing)
		}
		return nil
	})
	if err != nil {
		return Payment{}, err
	}
	if changed {
		r.recorded(ctx, caller, p, o)
		r.Machine.Changed(ctx, auth.System, o, from)
	}
	return p, nil
}

func (r *Recorder) recorded(ctx context.Context, caller auth.Identity, p Payment, o orders.Order) {
	r.Log.Info().Str("order_id", p.OrderID).Str("payment_id", p.ID).Str("status", string(p.Status)).
		Str("by", string(caller.Role)).Str("order_status", string(o.Status)).Msg("payment recorded")
	if r.Events == nil {
		return
	}
	pl := orders.PaymentRecordedPayload{OrderID: p.OrderID, PaymentID: p.ID, Status: string(p.Status), OrderStatus: o.Status}
	if err := r.Events.Emit(ctx, orders.TopicPaymentRecorded, orders.EventPaymentRecorded, p.OrderID, pl); err != nil {
		r.Log.Warn().Err(err).Str("order_id", p.OrderID).Msg("emit payment recorded failed")
	}
}
