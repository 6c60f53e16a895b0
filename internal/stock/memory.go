package stock

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/ariefcatur/catering-orders/internal/apperr"
)

type memItem struct {
	mu   sync.Mutex
	item Item
}

// MemoryRepo keeps items in process. Each item has its own mutex so reservations
// on different items do not contend.
type MemoryRepo struct {
	mu    sync.RWMutex
	items map[string]*memItem
}

func NewMemoryRepo(seed ...Item) *MemoryRepo {
	r := &MemoryRepo{items: make(map[string]*memItem, len(seed))}
	for _, it := range seed {
		r.items[it.ID] = &memItem{item: it}
	}
	return r
}

func (r *MemoryRepo) lookup(id string) (*memItem, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	m, ok := r.items[id]
	if !ok {
		return nil, fmt.Errorf("stock item %s: %w", id, apperr.ErrNotFound)
	}
	return m, nil
}

func (r *MemoryRepo) Create(_ context.Context, it Item) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.items[it.ID]; ok {
		return fmt.Errorf("stock item %s exists: %w", it.ID, apperr.ErrConflict)
	}
	r.items[it.ID] = &memItem{item: it}
	return nil
}

func (r *MemoryRepo) Get(_ context.Context, id string) (Item, error) {
	m, err := r.lookup(id)
	if err != nil {
		return Item{}, err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.item, nil
}

func (r *MemoryRepo) List(_ context.Context) ([]Item, error) {
	r.mu.RLock()
	out := make([]Item, 0, len(r.items))
	for _, m := range r.items {
		m.mu.Lock()
		out = append(out, m.item)
		m.mu.Unlock()
	}
	r.mu.RUnlock()
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out, nil
}

func (r *MemoryRepo) Delete(_ context.Context, id string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.items[id]; !ok {
		return fmt.Errorf("stock item %s: %w", id, apperr.ErrNotFound)
	}
	delete(r.items, id)
	return nil
}

func (r *MemoryRepo) Decrement(_ context.Context, id string, qty int) (int, error) {
	m, err := r.lookup(id)
	if err != nil {
		return 0, err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.item.Quantity < qty {
		return m.item.Quantity, fmt.Errorf("%s has %d, need %d: %w", id, m.item.Quantity, qty, apperr.ErrInsufficientStock)
	}
	m.item.Quantity -= qty
	m.item.UpdatedAt = time.Now().UTC()
	return m.item.Quantity, nil
}

func (r *MemoryRepo) Increment(_ context.Context, id string, qty int) (int, error) {
	m, err := r.lookup(id)
	if err != nil {
		return 0, err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.item.Quantity += qty
	m.item.UpdatedAt = time.Now().UTC()
	return m.item.Quantity, nil
}

func (r *MemoryRepo) Set(_ context.Context, id string, qty int) error {
	if qty < 0 {
		return fmt.Errorf("quantity %d: %w", qty, apperr.ErrInvalidInput)
	}
	m, err := r.lookup(id)
	if err != nil {
		return err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.item.Quantity = qty
	m.item.UpdatedAt = time.Now().UTC()
	return nil
}

var _ Repository = (*MemoryRepo)(nil)
