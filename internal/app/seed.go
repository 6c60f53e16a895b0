package app

import (
	"context"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/ariefcatur/catering-orders/internal/catalog"
	"github.com/ariefcatur/catering-orders/internal/stock"
)

var menu = []struct {
	name  string
	price int64
	qty   int
}{
	{"Nasi Box Ayam Bakar", 25000, 50},
	{"Nasi Box Rendang", 32000, 40},
	{"Tumpeng Mini", 85000, 10},
	{"Snack Box", 15000, 100},
}

// seedMenu gives STORE=memory something to order.
func seedMenu(ctx context.Context, st stock.Repository, cat *catalog.MemoryCatalog) ([]catalog.Food, error) {
	out := make([]catalog.Food, 0, len(menu))
	for _, m := range menu {
		stockID := uuid.NewString()
		if err := st.Create(ctx, stock.Item{ID: stockID, Name: m.name, Quantity: m.qty}); err != nil {
			return nil, err
		}
		f := catalog.Food{ID: uuid.NewString(), Name: m.name, Price: decimal.NewFromInt(m.price), StockID: stockID}
		cat.Put(f)
		out = append(out, f)
	}
	return out, nil
}
