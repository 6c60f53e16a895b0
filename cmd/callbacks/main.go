// Command callbacks consumes payment.callback and applies each notification
// through the same recorder as POST /payments/callback.
package main

import (
	"context"
	"errors"
	"os/signal"
	"syscall"

	"github.com/joho/godotenv"
	"golang.org/x/sync/errgroup"

	"github.com/ariefcatur/catering-orders/internal/app"
	"github.com/ariefcatur/catering-orders/internal/config"
	kafkax "github.com/ariefcatur/catering-orders/internal/kafka"
	"github.com/ariefcatur/catering-orders/internal/logging"
	"github.com/ariefcatur/catering-orders/internal/orders"
	"github.com/ariefcatur/catering-orders/internal/payments"
)

func main() {
	_ = godotenv.Load()

	cfg, err := config.Load()
	log := logging.New(cfg.LogLevel, cfg.ServiceName+"-callbacks")
	if err != nil {
		log.Fatal().Err(err).Msg("load config")
	}
	if len(cfg.KafkaBrokers) == 0 {
		log.Fatal().Msg("KAFKA_BROKERS is required")
	}
	if cfg.Store == app.StoreMemory {
		log.Warn().Msg("memory store is not shared with the API; callbacks only affect this process")
	}
	config.Watch(func(c config.Config) { logging.SetLevel(c.LogLevel) })

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	a, err := app.New(ctx, cfg, log)
	if err != nil {
		log.Fatal().Err(err).Msg("init")
	}
	defer a.Close()

	h := &payments.CallbackHandler{Recorder: a.Recorder, Log: log.With().Str("component", "callbacks").Logger()}
	cons := kafkax.NewConsumer(cfg.KafkaBrokers, cfg.CallbackGroup, orders.TopicPaymentCallback, cfg.CallbackWorkers, log)

	g, gctx := errgroup.WithContext(ctx)
	a.Bus.Start(gctx)
	g.Go(func() error {
		log.Info().Str("group", cfg.CallbackGroup).Str("topic", orders.TopicPaymentCallback).
			Int("workers", cfg.CallbackWorkers).Msg("callback consumer started")
		return cons.Start(gctx, h.Handle)
	})

	err = g.Wait()
	a.Bus.WaitClosed()
	if err != nil && !errors.Is(err, context.Canceled) {
		log.Error().Err(err).Msg("consumer exit")
		return
	}
	log.Info().Msg("consumer stopped")
}
