package httpx

import (
	"context"
	"fmt"
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"

	"github.com/ariefcatur/catering-orders/internal/apperr"
	"github.com/ariefcatur/catering-orders/internal/auth"
	"github.com/ariefcatur/catering-orders/internal/orders"
	"github.com/ariefcatur/catering-orders/internal/redisx"
)

const (
	HeaderIdempotencyKey = "Idempotency-Key"
	HeaderReplayed       = "Idempotent-Replayed"
)

type statusReq struct {
	Status string `json:"status"`
}

func (a *API) createDirectOrder(w http.ResponseWriter, r *http.Request) {
	var in orders.DirectInput
	if err := decode(r, &in); err != nil {
		a.fail(w, r, err)
		return
	}
	a.createOnce(w, r, "direct", func(ctx context.Context, c auth.Identity) (orders.Order, error) {
		return a.Factory.Direct(ctx, c, in)
	})
}

func (a *API) createCartOrder(w http.ResponseWriter, r *http.Request) {
	var ful orders.Fulfillment
	if err := decode(r, &ful); err != nil {
		a.fail(w, r, err)
		return
	}
	a.createOnce(w, r, "cart", func(ctx context.Context, c auth.Identity) (orders.Order, error) {
		return a.Factory.FromCart(ctx, c, ful)
	})
}

// createOnce runs create at most once per (user, route, Idempotency-Key). A replay gets
// the order the first request created; a replay racing the first request gets
// ErrConflict.
func (a *API) createOnce(w http.ResponseWriter, r *http.Request, route string, create func(context.Context, auth.Identity) (orders.Order, error)) {
	ctx, c := r.Context(), caller(r)
	key := strings.TrimSpace(r.Header.Get(HeaderIdempotencyKey))
	if key == "" || a.Idem == nil {
		o, err := create(ctx, c)
		if err != nil {
			a.fail(w, r, err)
			return
		}
		writeData(w, http.StatusCreated, o)
		return
	}

	rk := fmt.Sprintf(redisx.KeyIdemOrderCreate, c.UserID, route, key)
	claimed, err := a.Idem.Claim(ctx, rk, redisx.TTLInFlight)
	if err != nil {
		a.fail(w, r, fmt.Errorf("idempotency claim: %w", err))
		return
	}
	if !claimed {
		a.replay(w, r, rk)
		return
	}

	o, err := create(ctx, c)
	if err != nil {
		if ferr := a.Idem.Forget(context.WithoutCancel(ctx), rk); ferr != nil {
			a.Log.Warn().Err(ferr).Str("key", rk).Msg("release idempotency key failed")
		}
		a.fail(w, r, err)
		return
	}
	if err := a.Idem.Bind(ctx, rk, o.ID, redisx.TTLIdempotency); err != nil {
		a.Log.Warn().Err(err).Str("key", rk).Str("order_id", o.ID).Msg("bind idempotency key failed")
	}
	writeData(w, http.StatusCreated, o)
}

func (a *API) replay(w http.ResponseWriter, r *http.Request, rk string) {
	orderID, found, err := a.Idem.Lookup(r.Context(), rk)
	if err != nil {
		a.fail(w, r, fmt.Errorf("idempotency lookup: %w", err))
		return
	}
	if !found || orderID == redisx.Pending {
		a.fail(w, r, fmt.Errorf("request with this idempotency key is in progress: %w", apperr.ErrConflict))
		return
	}
	o, err := a.Machine.Get(r.Context(), caller(r), orderID)
	if err != nil {
		a.fail(w, r, err)
		return
	}
	w.Header().Set(HeaderReplayed, "true")
	writeData(w, http.StatusOK, o)
}

func (a *API) listOrders(w http.ResponseWriter, r *http.Request) {
	list, err := a.Machine.List(r.Context(), caller(r))
	if err != nil {
		a.fail(w, r, err)
		return
	}
	writeData(w, http.StatusOK, list)
}

func (a *API) getOrder(w http.ResponseWriter, r *http.Request) {
	o, err := a.Machine.Get(r.Context(), caller(r), chi.URLParam(r, "id"))
	if err != nil {
		a.fail(w, r, err)
		return
	}
	writeData(w, http.StatusOK, o)
}

// updateOrderStatus is the customer-facing route. The transition table decides;
// customers own no transition of their own.
func (a *API) updateOrderStatus(w http.ResponseWriter, r *http.Request) {
	var req statusReq
	if err := decode(r, &req); err != nil {
		a.fail(w, r, err)
		return
	}
	o, err := a.Machine.Advance(r.Context(), caller(r), chi.URLParam(r, "id"), orders.Status(req.Status))
	if err != nil {
		a.fail(w, r, err)
		return
	}
	writeData(w, http.StatusOK, o)
}
