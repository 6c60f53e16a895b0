package httpx

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/rs/zerolog"

	"github.com/ariefcatur/catering-orders/internal/admin"
	"github.com/ariefcatur/catering-orders/internal/apperr"
	"github.com/ariefcatur/catering-orders/internal/cart"
	"github.com/ariefcatur/catering-orders/internal/orders"
	"github.com/ariefcatur/catering-orders/internal/payments"
	"github.com/ariefcatur/catering-orders/internal/redisx"
)

// API serves the customer and admin routes.
type API struct {
	Cart     *cart.Aggregator
	Factory  *orders.Factory
	Machine  *orders.Machine
	Payments *payments.Recorder
	Admin    *admin.Override
	Idem     *redisx.Store // optional; without it Idempotency-Key is ignored
	Log      zerolog.Logger
}

func (a *API) Register(r chi.Router) {
	r.Group(func(r chi.Router) {
		r.Use(RequireIdentity)

		r.Route("/cart", func(r chi.Router) {
			r.Get("/", a.listCart)
			r.Post("/", a.addToCart)
			r.Put("/{id}", a.updateCartEntry)
			r.Delete("/{id}", a.removeCartEntry)
		})

		r.Route("/orders", func(r chi.Router) {
			r.Post("/direct", a.createDirectOrder)
			r.Post("/cart", a.createCartOrder)
			r.Get("/", a.listOrders)
			r.Get("/{id}", a.getOrder)
			r.Put("/{id}/status", a.updateOrderStatus)
		})

		r.Route("/payments", func(r chi.Router) {
			r.Post("/callback", a.paymentCallback)
			r.Get("/success", a.paymentSuccess)
			r.Post("/{orderId}", a.recordPayment)
		})

		r.Route("/admin", func(r chi.Router) {
			r.Use(RequireAdmin)
			r.Get("/orders", a.adminListOrders)
			r.Get("/orders/{id}", a.adminGetOrder)
			r.Put("/orders/{id}/status", a.adminSetOrderStatus)
			r.Get("/payments", a.adminListPayments)
			r.Get("/payments/{id}", a.adminGetPayment)
			r.Put("/payments/{id}/status", a.adminSetPaymentStatus)
			r.Get("/stocks", a.adminListStock)
			r.Post("/stocks", a.adminCreateStock)
			r.Get("/stocks/{id}", a.adminGetStock)
			r.Put("/stocks/{id}", a.adminSetQuantity)
			r.Delete("/stocks/{id}", a.adminDeleteStock)
			r.Post("/stocks/{id}/restock", a.adminRestock)
		})
	})
}

// fail writes err and logs it when it is not one of the declared kinds.
func (a *API) fail(w http.ResponseWriter, r *http.Request, err error) {
	if !apperr.IsBusiness(err) {
		a.Log.Error().Err(err).Str("method", r.Method).Str("path", r.URL.Path).Msg("request failed")
	}
	writeError(w, err)
}
