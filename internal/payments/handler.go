package payments

import (
	"context"
	"fmt"

	"github.com/rs/zerolog"
	kafkago "github.com/segmentio/kafka-go"

	"github.com/ariefcatur/catering-orders/internal/apperr"
	"github.com/ariefcatur/catering-orders/internal/auth"
	kafkax "github.com/ariefcatur/catering-orders/internal/kafka"
)

// CallbackMessage is the body of a payment.callback record and of
// POST /payments/callback.
type CallbackMessage struct {
	OrderID string `json:"order_id"`
	Status  Status `json:"status"`
}

// CallbackHandler consumes payment.callback. A nil return commits the offset:
// malformed records and business rejections are logged and committed, anything
// else is returned so the record is retried.
type CallbackHandler struct {
	Recorder *Recorder
	Log      zerolog.Logger
}

func (h *CallbackHandler) Handle(ctx context.Context, m kafkago.Message) error {
	msg, err := kafkax.Decode[CallbackMessage](m.Value)
	if err != nil || msg.OrderID == "" {
		h.Log.Warn().Err(err).Int64("offset", m.Offset).Int("partition", m.Partition).Msg("malformed payment callback dropped")
		return nil
	}
	p, err := h.Recorder.Callback(ctx, auth.System, msg.OrderID, msg.Status)
	if err != nil {
		if apperr.IsBusiness(err) {
			h.Log.Warn().Err(err).Str("order_id", msg.OrderID).Str("kind", apperr.Kind(err)).Msg("payment callback rejected")
			return nil
		}
		return fmt.Errorf("payment callback %s: %w", msg.OrderID, err)
	}
	h.Log.Debug().Str("order_id", msg.OrderID).Str("payment_id", p.ID).Msg("payment callback applied")
	return nil
}
