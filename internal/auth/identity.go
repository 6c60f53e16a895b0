package auth

import (
	"context"
	"fmt"

	"github.com/ariefcatur/catering-orders/internal/apperr"
)

type Role string

const (
	RoleCustomer Role = "customer"
	RoleAdmin    Role = "admin"
	// RoleSystem is used for transitions driven by payment reconciliation,
	// never issued to a request.
	RoleSystem Role = "system"
)

// Identity is the authenticated caller as asserted by the gateway.
type Identity struct {
	UserID string
	Role   Role
}

// System is the identity used by the payment callback path.
var System = Identity{UserID: "system", Role: RoleSystem}

func (i Identity) IsAdmin() bool { return i.Role == RoleAdmin }

// Owns reports whether the caller may act on a resource owned by userID.
func (i Identity) Owns(userID string) bool {
	return i.Role == RoleCustomer && i.UserID != "" && i.UserID == userID
}

// RequireAdmin fails closed for anything but an admin identity.
func RequireAdmin(i Identity) error {
	if !i.IsAdmin() {
		return fmt.Errorf("admin role required: %w", apperr.ErrUnauthorized)
	}
	return nil
}

// ParseRole accepts only known request roles.
func ParseRole(s string) (Role, bool) {
	switch Role(s) {
	case RoleCustomer, RoleAdmin:
		return Role(s), true
	}
	return "", false
}

type ctxKey struct{}

func WithIdentity(ctx context.Context, id Identity) context.Context {
	return context.WithValue(ctx, ctxKey{}, id)
}

func FromContext(ctx context.Context) (Identity, bool) {
	id, ok := ctx.Value(ctxKey{}).(Identity)
	return id, ok
}
