package orders

import (
	"context"
	"encoding/json"
	"time"

	"github.com/shopspring/decimal"
)

const (
	EventOrderCreated       = "OrderCreated"
	EventOrderStatusChanged = "OrderStatusChanged"
	EventPaymentRecorded    = "PaymentRecorded"
)

type Envelope struct {
	EventID       string          `json:"event_id"`
	EventType     string          `json:"event_type"`
	EventVersion  int             `json:"event_version"`
	OccurredAt    time.Time       `json:"occurred_at"`
	Producer      string          `json:"producer"`
	TraceID       string          `json:"trace_id,omitempty"`
	CorrelationID string          `json:"correlation_id,omitempty"` // order id
	Payload       json.RawMessage `json:"payload"`
}

// Emitter publishes domain events. Emission happens after the state change is
// stored; a failed emit is logged by the caller and never undoes the change.
type Emitter interface {
	Emit(ctx context.Context, topic, eventType, orderID string, payload any) error
}

type NopEmitter struct{}

func (NopEmitter) Emit(context.Context, string, string, string, any) error { return nil }

type ItemPrice struct {
	FoodID    string          `json:"food_id"`
	StockID   string          `json:"stock_id"`
	Quantity  int             `json:"quantity"`
	UnitPrice decimal.Decimal `json:"unit_price"`
}

type OrderCreatedPayload struct {
	OrderID string          `json:"order_id"`
	UserID  string          `json:"user_id"`
	Items   []ItemPrice     `json:"items"`
	Total   decimal.Decimal `json:"total"`
}

type OrderStatusChangedPayload struct {
	OrderID string `json:"order_id"`
	From    Status `json:"from"`
	To      Status `json:"to"`
	By      string `json:"by"`
}

type PaymentRecordedPayload struct {
	OrderID     string `json:"order_id"`
	PaymentID   string `json:"payment_id"`
	Status      string `json:"status"`
	OrderStatus Status `json:"order_status"`
}

func createdPayload(o Order) OrderCreatedPayload {
	items := make([]ItemPrice, 0, len(o.Items))
	for _, it := range o.Items {
		items = append(items, ItemPrice{FoodID: it.FoodID, StockID: it.StockID, Quantity: it.Quantity, UnitPrice: it.UnitPrice})
	}
	return OrderCreatedPayload{OrderID: o.ID, UserID: o.UserID, Items: items, Total: o.Total}
}
