package cart

import (
	"context"
	"fmt"
	"sync"

	"github.com/ariefcatur/catering-orders/internal/apperr"
)

type MemoryRepo struct {
	mu        sync.Mutex
	byUser    map[string][]Entry
	checkouts map[string]*sync.Mutex
}

func NewMemoryRepo() *MemoryRepo {
	return &MemoryRepo{byUser: map[string][]Entry{}, checkouts: map[string]*sync.Mutex{}}
}

func notFound(id string) error { return fmt.Errorf("cart entry %s: %w", id, apperr.ErrNotFound) }

func (r *MemoryRepo) Merge(_ context.Context, e Entry) (Entry, error) {
	l := r.checkoutLock(e.UserID)
	l.Lock()
	defer l.Unlock()
	r.mu.Lock()
	defer r.mu.Unlock()
	entries := r.byUser[e.UserID]
	for i := range entries {
		if entries[i].FoodID == e.FoodID {
			entries[i].Quantity += e.Quantity
			return entries[i], nil
		}
	}
	r.byUser[e.UserID] = append(entries, e)
	return e, nil
}

func (r *MemoryRepo) SetQuantity(_ context.Context, userID, id string, qty int) (Entry, error) {
	l := r.checkoutLock(userID)
	l.Lock()
	defer l.Unlock()
	r.mu.Lock()
	defer r.mu.Unlock()
	entries := r.byUser[userID]
	for i := range entries {
		if entries[i].ID == id {
			entries[i].Quantity = qty
			return entries[i], nil
		}
	}
	return Entry{}, notFound(id)
}

func (r *MemoryRepo) Delete(_ context.Context, userID, id string) error {
	l := r.checkoutLock(userID)
	l.Lock()
	defer l.Unlock()
	r.mu.Lock()
	defer r.mu.Unlock()
	entries := r.byUser[userID]
	for i := range entries {
		if entries[i].ID == id {
			r.byUser[userID] = append(entries[:i:i], entries[i+1:]...)
			return nil
		}
	}
	return notFound(id)
}

func (r *MemoryRepo) List(_ context.Context, userID string) ([]Entry, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]Entry(nil), r.byUser[userID]...), nil
}

// checkoutLock serializes writes to one user's cart, a whole checkout counting
// as one write. It is always taken before r.mu.
func (r *MemoryRepo) checkoutLock(userID string) *sync.Mutex {
	r.mu.Lock()
	defer r.mu.Unlock()
	l, ok := r.checkouts[userID]
	if !ok {
		l = &sync.Mutex{}
		r.checkouts[userID] = l
	}
	return l
}

func (r *MemoryRepo) Checkout(ctx context.Context, userID string, fn func(ctx context.Context, entries []Entry) error) error {
	l := r.checkoutLock(userID)
	l.Lock()
	defer l.Unlock()

	entries, err := r.List(ctx, userID)
	if err != nil {
		return err
	}
	if err := fn(ctx, entries); err != nil {
		return err
	}
	r.deleteEntries(userID, entries)
	return nil
}

func (r *MemoryRepo) deleteEntries(userID string, entries []Entry) {
	r.mu.Lock()
	defer r.mu.Unlock()
	drop := make(map[string]bool, len(entries))
	for _, e := range entries {
		drop[e.ID] = true
	}
	kept := r.byUser[userID][:0:0]
	for _, e := range r.byUser[userID] {
		if !drop[e.ID] {
			kept = append(kept, e)
		}
	}
	r.byUser[userID] = kept
}

var _ Repository = (*MemoryRepo)(nil)
