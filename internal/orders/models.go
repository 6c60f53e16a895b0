package orders

import (
	"strings"
	"time"

	"github.com/shopspring/decimal"
)

// Fulfillment is captured when the order is placed, not read from the profile.
type Fulfillment struct {
	Name    string `json:"name"`
	Address string `json:"address"`
	Phone   string `json:"phone"`
}

func (f Fulfillment) normalized() Fulfillment {
	return Fulfillment{
		Name:    strings.TrimSpace(f.Name),
		Address: strings.TrimSpace(f.Address),
		Phone:   strings.TrimSpace(f.Phone),
	}
}

func (f Fulfillment) complete() bool {
	return f.Name != "" && f.Address != "" && f.Phone != ""
}

// Item is an order line. UnitPrice is the catalog price at order time.
type Item struct {
	FoodID    string          `json:"food_id"`
	StockID   string          `json:"stock_id"`
	FoodName  string          `json:"food_name"`
	Quantity  int             `json:"quantity"`
	UnitPrice decimal.Decimal `json:"unit_price"`
}

func (it Item) Subtotal() decimal.Decimal {
	return it.UnitPrice.Mul(decimal.NewFromInt(int64(it.Quantity)))
}

type Order struct {
	ID     string `json:"id"`
	UserID string `json:"user_id"`
	Fulfillment
	Items     []Item          `json:"items"`
	Total     decimal.Decimal `json:"total_amount"`
	Status    Status          `json:"status"`
	CreatedAt time.Time       `json:"created_at"`
	UpdatedAt time.Time       `json:"updated_at"`
}

func total(items []Item) decimal.Decimal {
	sum := decimal.Zero
	for _, it := range items {
		sum = sum.Add(it.Subtotal())
	}
	return sum
}
