// Package apperr holds the error kinds shared by the ledger, cart, order and payment
// components. Callers wrap a kind with fmt.Errorf("...: %w", ErrX) and classify with
// errors.Is; the HTTP layer maps kinds to status codes.
package apperr

import (
	"errors"
	"net/http"
)

var (
	ErrInsufficientStock   = errors.New("insufficient stock")
	ErrInvalidTransition   = errors.New("invalid status transition")
	ErrEmptyCart           = errors.New("cart is empty")
	ErrNotFound            = errors.New("not found")
	ErrOrderNotFound       = errors.New("order not found")
	ErrOrderAlreadySettled = errors.New("order already settled")
	ErrUnauthorized        = errors.New("unauthorized")
	ErrUnauthenticated     = errors.New("unauthenticated")
	ErrInvalidInput        = errors.New("invalid input")
	ErrConflict            = errors.New("conflict")
)

type kind struct {
	err    error
	name   string
	status int
}

// order matters: ErrOrderNotFound before the generic ErrNotFound.
var kinds = []kind{
	{ErrInsufficientStock, "InsufficientStock", http.StatusConflict},
	{ErrInvalidTransition, "InvalidTransition", http.StatusConflict},
	{ErrEmptyCart, "EmptyCart", http.StatusNotFound},
	{ErrOrderNotFound, "OrderNotFound", http.StatusNotFound},
	{ErrNotFound, "NotFound", http.StatusNotFound},
	{ErrOrderAlreadySettled, "OrderAlreadySettled", http.StatusConflict},
	{ErrUnauthorized, "Unauthorized", http.StatusForbidden},
	{ErrUnauthenticated, "Unauthenticated", http.StatusUnauthorized},
	{ErrInvalidInput, "InvalidInput", http.StatusBadRequest},
	{ErrConflict, "Conflict", http.StatusConflict},
}

// Kind returns the machine-readable kind of err, or "Internal".
func Kind(err error) string {
	for _, k := range kinds {
		if errors.Is(err, k.err) {
			return k.name
		}
	}
	return "Internal"
}

// HTTPStatus maps err to a response code; unknown errors are 500.
func HTTPStatus(err error) int {
	for _, k := range kinds {
		if errors.Is(err, k.err) {
			return k.status
		}
	}
	return http.StatusInternalServerError
}

// IsBusiness reports whether err carries one of the declared kinds, i.e. it is a
// caller-correctable rejection rather than an infrastructure failure.
func IsBusiness(err error) bool {
	return Kind(err) != "Internal"
}
