package kafka

import (
	"context"
	"fmt"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5/middleware"
	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"github.com/segmentio/kafka-go"

	"github.com/ariefcatur/catering-orders/internal/orders"
)

const eventVersion = 1

// Bus implements orders.Emitter with one Producer per topic.
type Bus struct {
	Producers map[string]*Producer
	Service   string
}

func NewBus(brokers []string, service string, log zerolog.Logger, topics ...string) *Bus {
	b := &Bus{Producers: make(map[string]*Producer, len(topics)), Service: service}
	for _, t := range topics {
		b.Producers[t] = NewProducer(brokers, t, 1024, log)
	}
	return b
}

func (b *Bus) Start(ctx context.Context) {
	for _, p := range b.Producers {
		p.Start(ctx)
	}
}

func (b *Bus) WaitClosed() {
	for _, p := range b.Producers {
		p.WaitClosed()
	}
}

func (b *Bus) Emit(ctx context.Context, topic, eventType, orderID string, payload any) error {
	p, ok := b.Producers[topic]
	if !ok {
		return fmt.Errorf("no producer for topic %s", topic)
	}
	env := orders.Envelope{
		EventID:       uuid.NewString(),
		EventType:     eventType,
		EventVersion:  eventVersion,
		OccurredAt:    time.Now().UTC(),
		Producer:      b.Service,
		TraceID:       middleware.GetReqID(ctx),
		CorrelationID: orderID,
		Payload:       MustMarshal(payload),
	}
	return p.Publish(ctx, orders.PartitionKey(orderID), MustMarshal(env),
		kafka.Header{Key: "x-event-type", Value: []byte(eventType)},
		kafka.Header{Key: "x-event-version", Value: []byte(strconv.Itoa(eventVersion))},
	)
}

var _ orders.Emitter = (*Bus)(nil)
