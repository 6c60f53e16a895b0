// Package catalog is the read side of the food catalog. Catalog management lives
// outside this service; orders and carts only need names, prices and the stock
// item each food draws from.
package catalog

import (
	"context"
	"fmt"
	"sync"

	"github.com/shopspring/decimal"

	"github.com/ariefcatur/catering-orders/internal/apperr"
)

type Food struct {
	ID         string          `json:"id"`
	CategoryID string          `json:"category_id,omitempty"`
	Name       string          `json:"name"`
	Price      decimal.Decimal `json:"price"`
	Image      string          `json:"image,omitempty"`
	StockID    string          `json:"stock_id"`
}

type Reader interface {
	Food(ctx context.Context, id string) (Food, error)
	// Foods returns the requested foods keyed by id; unknown ids are absent.
	Foods(ctx context.Context, ids []string) (map[string]Food, error)
}

// MemoryCatalog is a Reader for tests and STORE=memory.
type MemoryCatalog struct {
	mu    sync.RWMutex
	foods map[string]Food
}

func NewMemoryCatalog(foods ...Food) *MemoryCatalog {
	c := &MemoryCatalog{foods: make(map[string]Food, len(foods))}
	for _, f := range foods {
		c.foods[f.ID] = f
	}
	return c
}

func (c *MemoryCatalog) Put(f Food) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.foods[f.ID] = f
}

func (c *MemoryCatalog) SetPrice(id string, price decimal.Decimal) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if f, ok := c.foods[id]; ok {
		f.Price = price
		c.foods[id] = f
	}
}

func (c *MemoryCatalog) Food(_ context.Context, id string) (Food, error) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	f, ok := c.foods[id]
	if !ok {
		return Food{}, fmt.Errorf("food %s: %w", id, apperr.ErrNotFound)
	}
	return f, nil
}

func (c *MemoryCatalog) Foods(_ context.Context, ids []string) (map[string]Food, error) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	out := make(map[string]Food, len(ids))
	for _, id := range ids {
		if f, ok := c.foods[id]; ok {
			out[id] = f
		}
	}
	return out, nil
}

var _ Reader = (*MemoryCatalog)(nil)
