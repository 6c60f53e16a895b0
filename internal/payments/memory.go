package payments

import (
	"context"
	"fmt"
	"sort"
	"sync"

	"github.com/ariefcatur/catering-orders/internal/apperr"
)

type MemoryRepo struct {
	mu      sync.RWMutex
	byID    map[string]Payment
	byOrder map[string]string
}

func NewMemoryRepo() *MemoryRepo {
	return &MemoryRepo{byID: map[string]Payment{}, byOrder: map[string]string{}}
}

func notFound(what, id string) error { return fmt.Errorf("payment for %s %s: %w", what, id, apperr.ErrNotFound) }

func (r *MemoryRepo) Upsert(_ context.Context, p Payment) (Payment, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if id, ok := r.byOrder[p.OrderID]; ok {
		cur := r.byID[id]
		cur.Status = p.Status
		cur.PaymentDate = p.PaymentDate
		cur.UpdatedAt = p.UpdatedAt
		r.byID[id] = cur
		return cur, nil
	}
	r.byID[p.ID] = p
	r.byOrder[p.OrderID] = p.ID
	return p, nil
}

func (r *MemoryRepo) ByOrder(_ context.Context, orderID string) (Payment, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	id, ok := r.byOrder[orderID]
	if !ok {
		return Payment{}, notFound("order", orderID)
	}
	return r.byID[id], nil
}

func (r *MemoryRepo) Get(_ context.Context, id string) (Payment, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	p, ok := r.byID[id]
	if !ok {
		return Payment{}, notFound("id", id)
	}
	return p, nil
}

func (r *MemoryRepo) List(_ context.Context) ([]Payment, error) {
	r.mu.RLock()
	out := make([]Payment, 0, len(r.byID))
	for _, p := range r.byID {
		out = append(out, p)
	}
	r.mu.RUnlock()
	sort.Slice(out, func(i, j int) bool { return out[i].PaymentDate.After(out[j].PaymentDate) })
	return out, nil
}

var _ Repository = (*MemoryRepo)(nil)
