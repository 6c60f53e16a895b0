package httpx

import (
	"fmt"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/ariefcatur/catering-orders/internal/apperr"
	"github.com/ariefcatur/catering-orders/internal/payments"
)

// paymentReq accepts the web client's payment_status as well as status.
type paymentReq struct {
	Status        payments.Status `json:"status"`
	PaymentStatus payments.Status `json:"payment_status"`
}

func (p paymentReq) status() payments.Status {
	if p.PaymentStatus != "" {
		return p.PaymentStatus
	}
	return p.Status
}

func (a *API) recordPayment(w http.ResponseWriter, r *http.Request) {
	var req paymentReq
	if err := decode(r, &req); err != nil {
		a.fail(w, r, err)
		return
	}
	p, err := a.Payments.CreateOrUpdate(r.Context(), caller(r), chi.URLParam(r, "orderId"), req.status())
	if err != nil {
		a.fail(w, r, err)
		return
	}
	writeData(w, http.StatusOK, p)
}

// paymentCallback is the gateway notification relayed by a signed-in client.
// Customers may only report on their own orders; the broker stream is the
// system path.
func (a *API) paymentCallback(w http.ResponseWriter, r *http.Request) {
	var msg payments.CallbackMessage
	if err := decode(r, &msg); err != nil {
		a.fail(w, r, err)
		return
	}
	if msg.OrderID == "" {
		a.fail(w, r, fmt.Errorf("order_id is required: %w", apperr.ErrInvalidInput))
		return
	}
	p, err := a.Payments.Callback(r.Context(), caller(r), msg.OrderID, msg.Status)
	if err != nil {
		a.fail(w, r, err)
		return
	}
	writeData(w, http.StatusOK, p)
}

func (a *API) paymentSuccess(w http.ResponseWriter, r *http.Request) {
	orderID := r.URL.Query().Get("order_id")
	if orderID == "" {
		a.fail(w, r, fmt.Errorf("order_id is required: %w", apperr.ErrInvalidInput))
		return
	}
	rc, err := a.Payments.Receipt(r.Context(), caller(r), orderID)
	if err != nil {
		a.fail(w, r, err)
		return
	}
	writeData(w, http.StatusOK, rc)
}
