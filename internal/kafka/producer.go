package kafka

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/rs/zerolog"
	"github.com/segmentio/kafka-go"
)

// ErrProducerClosed is returned by Publish once the writer loop has stopped.
var ErrProducerClosed = errors.New("kafka producer closed")

// Producer writes from a buffered inbox on its own goroutine so request paths
// never wait on the broker.
type Producer struct {
	w        *kafka.Writer
	inbox    chan kafka.Message
	stopping chan struct{}
	closeCh  chan struct{}
	log      zerolog.Logger

	// mu is held shared by every Publish and exclusively while the loop marks
	// itself closed, so nothing lands in the inbox after the final drain.
	mu     sync.RWMutex
	closed bool
}

func NewProducer(brokers []string, topic string, buf int, log zerolog.Logger) *Producer {
	return &Producer{
		w: &kafka.Writer{
			Addr:         kafka.TCP(brokers...),
			Topic:        topic,
			Balancer:     &kafka.Hash{},
			RequiredAcks: kafka.RequireAll,
		},
		inbox:    make(chan kafka.Message, buf),
		stopping: make(chan struct{}),
		closeCh:  make(chan struct{}),
		log:      log.With().Str("topic", topic).Logger(),
	}
}

func (p *Producer) write(m kafka.Message) {
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := p.w.WriteMessages(ctx, m); err != nil {
		p.log.Error().Err(err).Str("key", string(m.Key)).Msg("kafka write failed")
	}
}

// Start runs the writer loop until ctx is done, then flushes what is queued.
func (p *Producer) Start(ctx context.Context) {
	go func() {
		defer close(p.closeCh)
		defer func() { _ = p.w.Close() }()
		for {
			select {
			case <-ctx.Done():
				close(p.stopping)
				p.mu.Lock()
				p.closed = true
				p.mu.Unlock()
				for {
					select {
					case m := <-p.inbox:
						p.write(m)
					default:
						return
					}
				}
			case m := <-p.inbox:
				p.write(m)
			}
		}
	}()
}

// Publish queues a message. It blocks while the inbox is full, up to ctx, and
// fails with ErrProducerClosed once Start's context is done.
func (p *Producer) Publish(ctx context.Context, key, value []byte, headers ...kafka.Header) error {
	p.mu.RLock()
	defer p.mu.RUnlock()
	if p.closed {
		return ErrProducerClosed
	}
	m := kafka.Message{Key: key, Value: value, Time: time.Now(), Headers: headers}
	select {
	case p.inbox <- m:
		return nil
	case <-p.stopping:
		return ErrProducerClosed
	case <-ctx.Done():
		return ctx.Err()
	}
}

// WaitClosed blocks until the loop started by Start has flushed and exited.
func (p *Producer) WaitClosed() { <-p.closeCh }
