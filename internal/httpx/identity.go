package httpx

import (
	"fmt"
	"net/http"

	"github.com/ariefcatur/catering-orders/internal/apperr"
	"github.com/ariefcatur/catering-orders/internal/auth"
)

// Headers set by the gateway after it has authenticated the caller.
const (
	HeaderUserID   = "X-User-ID"
	HeaderUserRole = "X-User-Role"
)

// Identify attaches the gateway-asserted identity to the request context.
// Requests with a missing id or an unknown role stay anonymous.
func Identify(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		id := r.Header.Get(HeaderUserID)
		role, ok := auth.ParseRole(r.Header.Get(HeaderUserRole))
		if id != "" && ok {
			r = r.WithContext(auth.WithIdentity(r.Context(), auth.Identity{UserID: id, Role: role}))
		}
		next.ServeHTTP(w, r)
	})
}

func RequireIdentity(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if _, ok := auth.FromContext(r.Context()); !ok {
			writeError(w, fmt.Errorf("missing identity: %w", apperr.ErrUnauthenticated))
			return
		}
		next.ServeHTTP(w, r)
	})
}

// RequireAdmin guards the /admin tree. The admin package checks the role again.
func RequireAdmin(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if err := auth.RequireAdmin(caller(r)); err != nil {
			writeError(w, err)
			return
		}
		next.ServeHTTP(w, r)
	})
}

func caller(r *http.Request) auth.Identity {
	id, _ := auth.FromContext(r.Context())
	return id
}
