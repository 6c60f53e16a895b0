package httpx

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/ariefcatur/catering-orders/internal/orders"
)

type stockReq struct {
	Name     string `json:"name"`
	Quantity int    `json:"quantity"`
}

func (a *API) adminListOrders(w http.ResponseWriter, r *http.Request) {
	list, err := a.Admin.ListOrders(r.Context(), caller(r))
	if err != nil {
		a.fail(w, r, err)
		return
	}
	writeData(w, http.StatusOK, list)
}

func (a *API) adminGetOrder(w http.ResponseWriter, r *http.Request) {
	o, err := a.Admin.GetOrder(r.Context(), caller(r), chi.URLParam(r, "id"))
	if err != nil {
		a.fail(w, r, err)
		return
	}
	writeData(w, http.StatusOK, o)
}

func (a *API) adminSetOrderStatus(w http.ResponseWriter, r *http.Request) {
	var req statusReq
	if err := decode(r, &req); err != nil {
		a.fail(w, r, err)
		return
	}
	o, err := a.Admin.SetOrderStatus(r.Context(), caller(r), chi.URLParam(r, "id"), orders.Status(req.Status))
	if err != nil {
		a.fail(w, r, err)
		return
	}
	writeData(w, http.StatusOK, o)
}

func (a *API) adminListPayments(w http.ResponseWriter, r *http.Request) {
	list, err := a.Admin.ListPayments(r.Context(), caller(r))
	if err != nil {
		a.fail(w, r, err)
		return
	}
	writeData(w, http.StatusOK, list)
}

func (a *API) adminGetPayment(w http.ResponseWriter, r *http.Request) {
	p, err := a.Admin.GetPayment(r.Context(), caller(r), chi.URLParam(r, "id"))
	if err != nil {
		a.fail(w, r, err)
		return
	}
	writeData(w, http.StatusOK, p)
}

func (a *API) adminSetPaymentStatus(w http.ResponseWriter, r *http.Request) {
	var req paymentReq
	if err := decode(r, &req); err != nil {
		a.fail(w, r, err)
		return
	}
	p, err := a.Admin.SetPaymentStatus(r.Context(), caller(r), chi.URLParam(r, "id"), req.status())
	if err != nil {
		a.fail(w, r, err)
		return
	}
	writeData(w, http.StatusOK, p)
}

func (a *API) adminListStock(w http.ResponseWriter, r *http.Request) {
	list, err := a.Admin.ListStock(r.Context(), caller(r))
	if err != nil {
		a.fail(w, r, err)
		return
	}
	writeData(w, http.StatusOK, list)
}

func (a *API) adminCreateStock(w http.ResponseWriter, r *http.Request) {
	var req stockReq
	if err := decode(r, &req); err != nil {
		a.fail(w, r, err)
		return
	}
	it, err := a.Admin.CreateStock(r.Context(), caller(r), req.Name, req.Quantity)
	if err != nil {
		a.fail(w, r, err)
		return
	}
	writeData(w, http.StatusCreated, it)
}

func (a *API) adminGetStock(w http.ResponseWriter, r *http.Request) {
	it, err := a.Admin.GetStock(r.Context(), caller(r), chi.URLParam(r, "id"))
	if err != nil {
		a.fail(w, r, err)
		return
	}
	writeData(w, http.StatusOK, it)
}

func (a *API) adminSetQuantity(w http.ResponseWriter, r *http.Request) {
	var req stockReq
	if err := decode(r, &req); err != nil {
		a.fail(w, r, err)
		return
	}
	it, err := a.Admin.SetQuantity(r.Context(), caller(r), chi.URLParam(r, "id"), req.Quantity)
	if err != nil {
		a.fail(w, r, err)
		return
	}
	writeData(w, http.StatusOK, it)
}

func (a *API) adminRestock(w http.ResponseWriter, r *http.Request) {
	var req stockReq
	if err := decode(r, &req); err != nil {
		a.fail(w, r, err)
		return
	}
	it, err := a.Admin.Restock(r.Context(), caller(r), chi.URLParam(r, "id"), req.Quantity)
	if err != nil {
		a.fail(w, r, err)
		return
	}
	writeData(w, http.StatusOK, it)
}

func (a *API) adminDeleteStock(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	if err := a.Admin.DeleteStock(r.Context(), caller(r), id); err != nil {
		a.fail(w, r, err)
		return
	}
	writeData(w, http.StatusOK, map[string]string{"id": id})
}
