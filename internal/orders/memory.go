package orders

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/ariefcatur/catering-orders/internal/apperr"
)

// MemoryRepo serializes Update per order with one mutex per order id.
type MemoryRepo struct {
	mu     sync.RWMutex
	orders map[string]Order
	locks  map[string]*sync.Mutex
	seq    map[string]int // insertion order breaks created_at ties
}

func NewMemoryRepo() *MemoryRepo {
	return &MemoryRepo{orders: map[string]Order{}, locks: map[string]*sync.Mutex{}, seq: map[string]int{}}
}

func orderNotFound(id string) error { return fmt.Errorf("order %s: %w", id, apperr.ErrOrderNotFound) }

func clone(o Order) Order {
	o.Items = append([]Item(nil), o.Items...)
	return o
}

func (r *MemoryRepo) Create(_ context.Context, o Order) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.orders[o.ID]; ok {
		return fmt.Errorf("order %s exists: %w", o.ID, apperr.ErrConflict)
	}
	r.orders[o.ID] = clone(o)
	r.locks[o.ID] = &sync.Mutex{}
	r.seq[o.ID] = len(r.seq)
	return nil
}

func (r *MemoryRepo) Get(_ context.Context, id string) (Order, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	o, ok := r.orders[id]
	if !ok {
		return Order{}, orderNotFound(id)
	}
	return clone(o), nil
}

func (r *MemoryRepo) List(_ context.Context, userID string) ([]Order, error) {
	r.mu.RLock()
	out := make([]Order, 0, len(r.orders))
	for _, o := range r.orders {
		if userID == "" || o.UserID == userID {
			out = append(out, clone(o))
		}
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].CreatedAt.Equal(out[j].CreatedAt) {
			return r.seq[out[i].ID] > r.seq[out[j].ID]
		}
		return out[i].CreatedAt.After(out[j].CreatedAt)
	})
	r.mu.RUnlock()
	return out, nil
}

func (r *MemoryRepo) Update(ctx context.Context, id string, fn func(context.Context, *Order) error) (Order, error) {
	r.mu.RLock()
	lock, ok := r.locks[id]
	r.mu.RUnlock()
	if !ok {
		return Order{}, orderNotFound(id)
	}
	lock.Lock()
	defer lock.Unlock()

	cur, err := r.Get(ctx, id)
	if err != nil {
		return Order{}, err
	}
	next := clone(cur)
	if err := fn(ctx, &next); err != nil {
		return Order{}, err
	}
	if next.Status != cur.Status {
		cur.Status = next.Status
		cur.UpdatedAt = time.Now().UTC()
	}
	r.mu.Lock()
	r.orders[id] = cur
	r.mu.Unlock()
	return clone(cur), nil
}

var _ Repository = (*MemoryRepo)(nil)
