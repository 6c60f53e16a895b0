package orders

import (
	"fmt"

	"github.com/ariefcatur/catering-orders/internal/apperr"
	"github.com/ariefcatur/catering-orders/internal/auth"
)

type Status string

const (
	StatusPending    Status = "pending"
	StatusProcessing Status = "processing"
	StatusCompleted  Status = "completed"
	StatusCancelled  Status = "cancelled"
)

func (s Status) Valid() bool {
	switch s {
	case StatusPending, StatusProcessing, StatusCompleted, StatusCancelled:
		return true
	}
	return false
}

func (s Status) Terminal() bool { return s == StatusCompleted || s == StatusCancelled }

type rule struct {
	roles        []auth.Role
	needsPayment bool
}

func (r rule) allows(role auth.Role) bool {
	for _, x := range r.roles {
		if x == role {
			return true
		}
	}
	return false
}

// Customers never appear here: their only path to processing is a completed
// payment, which the payment recorder applies as auth.RoleSystem.
var validNext = map[Status]map[Status]rule{
	StatusPending: {
		StatusProcessing: {roles: []auth.Role{auth.RoleAdmin, auth.RoleSystem}, needsPayment: true},
		StatusCancelled:  {roles: []auth.Role{auth.RoleAdmin}},
	},
	StatusProcessing: {
		StatusCompleted: {roles: []auth.Role{auth.RoleAdmin}},
		StatusCancelled: {roles: []auth.Role{auth.RoleAdmin}},
	},
	StatusCompleted: {},
	StatusCancelled: {},
}

// NeedsPayment reports whether moving from -> to requires a completed payment.
func NeedsPayment(from, to Status) bool {
	return validNext[from][to].needsPayment
}

// Transition decides whether role may move an order from -> to. paid tells
// whether the order's payment is completed. Unknown statuses and roles are rejected.
func Transition(from, to Status, role auth.Role, paid bool) error {
	r, ok := validNext[from][to]
	if !ok {
		return fmt.Errorf("%s -> %s: %w", from, to, apperr.ErrInvalidTransition)
	}
	if !r.allows(role) {
		return fmt.Errorf("%s -> %s not allowed for role %q: %w", from, to, role, apperr.ErrInvalidTransition)
	}
	if r.needsPayment && !paid {
		return fmt.Errorf("%s -> %s requires a completed payment: %w", from, to, apperr.ErrInvalidTransition)
	}
	return nil
}
