package kafka

import (
	"context"
	"sync"
	"time"

	"github.com/rs/zerolog"
	"github.com/segmentio/kafka-go"
)

// Handler returns nil only when the message is done with and may be committed.
type Handler func(ctx context.Context, m kafka.Message) error

type Consumer struct {
	r       *kafka.Reader
	workers int
	log     zerolog.Logger
	backoff time.Duration
}

func NewConsumer(brokers []string, group, topic string, workers int, log zerolog.Logger) *Consumer {
	r := kafka.NewReader(kafka.ReaderConfig{
		Brokers:        brokers,
		GroupID:        group,
		Topic:          topic,
		MinBytes:       1,
		MaxBytes:       10e6,
		CommitInterval: 0, // manual commit
	})
	if workers <= 0 {
		workers = 1
	}
	return &Consumer{r: r, workers: workers, log: log.With().Str("topic", topic).Logger(), backoff: 200 * time.Millisecond}
}

// Start fetches messages and hands them to the workers until ctx is done. A
// partition always goes to the same worker, so its messages are handled and
// committed in offset order and a commit never passes a message still retrying.
func (c *Consumer) Start(ctx context.Context, h Handler) error {
	defer c.r.Close()

	lanes := make([]chan kafka.Message, c.workers)
	var wg sync.WaitGroup
	for i := range lanes {
		lanes[i] = make(chan kafka.Message, 1)
		wg.Add(1)
		go func(jobs <-chan kafka.Message) {
			defer wg.Done()
			c.work(ctx, h, jobs, c.r.CommitMessages)
		}(lanes[i])
	}
	defer wg.Wait()
	defer func() {
		for _, l := range lanes {
			close(l)
		}
	}()

	for {
		m, err := c.r.FetchMessage(ctx)
		if err != nil {
			if ctx.Err() != nil {
				return nil
			}
			return err
		}
		select {
		case lanes[lane(m.Partition, c.workers)] <- m:
		case <-ctx.Done():
			return nil
		}
	}
}

func lane(partition, workers int) int {
	if partition < 0 {
		partition = -partition
	}
	return partition % workers
}

func (c *Consumer) work(ctx context.Context, h Handler, jobs <-chan kafka.Message, commit func(context.Context, ...kafka.Message) error) {
	for m := range jobs {
		if err := retry(ctx, c.log, c.backoff, h, m); err != nil {
			// shutting down; this and every later message of the lane stay
			// uncommitted and are redelivered
			return
		}
		if err := commit(ctx, m); err != nil {
			c.log.Error().Err(err).Int("partition", m.Partition).Int64("offset", m.Offset).Msg("commit failed")
		}
	}
}

// retry runs h until it succeeds or ctx ends, doubling the pause between
// attempts up to 30s.
func retry(ctx context.Context, log zerolog.Logger, backoff time.Duration, h Handler, m kafka.Message) error {
	wait := backoff
	for attempt := 1; ; attempt++ {
		err := h(ctx, m)
		if err == nil {
			return nil
		}
		log.Error().Err(err).Int("attempt", attempt).Int("partition", m.Partition).Int64("offset", m.Offset).Msg("handler failed")
		select {
		case <-time.After(wait):
		case <-ctx.Done():
			return ctx.Err()
		}
		if wait < 30*time.Second {
			wait *= 2
		}
	}
}
