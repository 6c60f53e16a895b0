package httpx

import (
	"net/http"

	"github.com/go-chi/chi/v5"
)

type cartEntryReq struct {
	FoodID   string `json:"food_id"`
	Quantity int    `json:"quantity"`
}

func (a *API) listCart(w http.ResponseWriter, r *http.Request) {
	v, err := a.Cart.List(r.Context(), caller(r))
	if err != nil {
		a.fail(w, r, err)
		return
	}
	writeData(w, http.StatusOK, v)
}

func (a *API) addToCart(w http.ResponseWriter, r *http.Request) {
	var req cartEntryReq
	if err := decode(r, &req); err != nil {
		a.fail(w, r, err)
		return
	}
	e, err := a.Cart.Add(r.Context(), caller(r), req.FoodID, req.Quantity)
	if err != nil {
		a.fail(w, r, err)
		return
	}
	writeData(w, http.StatusCreated, e)
}

func (a *API) updateCartEntry(w http.ResponseWriter, r *http.Request) {
	var req cartEntryReq
	if err := decode(r, &req); err != nil {
		a.fail(w, r, err)
		return
	}
	e, err := a.Cart.Update(r.Context(), caller(r), chi.URLParam(r, "id"), req.Quantity)
	if err != nil {
		a.fail(w, r, err)
		return
	}
	writeData(w, http.StatusOK, e)
}

func (a *API) removeCartEntry(w http.ResponseWriter, r *http.Request) {
	if err := a.Cart.Remove(r.Context(), caller(r), chi.URLParam(r, "id")); err != nil {
		a.fail(w, r, err)
		return
	}
	writeData(w, http.StatusOK, map[string]string{"id": chi.URLParam(r, "id")})
}
