package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"golang.org/x/sync/errgroup"

	"github.com/ariefcatur/catering-orders/internal/app"
	"github.com/ariefcatur/catering-orders/internal/config"
	"github.com/ariefcatur/catering-orders/internal/httpx"
	"github.com/ariefcatur/catering-orders/internal/logging"
)

func main() {
	_ = godotenv.Load()

	cfg, err := config.Load()
	log := logging.New(cfg.LogLevel, cfg.ServiceName)
	if err != nil {
		log.Fatal().Err(err).Msg("load config")
	}
	if config.Watch(func(c config.Config) {
		logging.SetLevel(c.LogLevel)
		log.Info().Str("level", c.LogLevel).Msg("config reloaded")
	}) {
		log.Info().Msg("watching config file")
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	a, err := app.New(ctx, cfg, log)
	if err != nil {
		log.Fatal().Err(err).Msg("init")
	}
	defer a.Close()

	router := httpx.NewRouter(log)
	a.API(log).Register(router)
	srv := &http.Server{Addr: cfg.HTTPAddr, Handler: router, ReadHeaderTimeout: 5 * time.Second}

	g, gctx := errgroup.WithContext(ctx)
	if a.Bus != nil {
		a.Bus.Start(gctx)
	}
	g.Go(func() error {
		log.Info().Str("addr", cfg.HTTPAddr).Str("store", cfg.Store).Msg("HTTP listening")
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})
	g.Go(func() error {
		<-gctx.Done()
		log.Info().Msg("shutting down")
		sctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		return srv.Shutdown(sctx)
	})

	werr := g.Wait()
	if a.Bus != nil {
		a.Bus.WaitClosed()
	}
	if werr != nil {
		log.Error().Err(werr).Msg("server stopped")
		a.Close()
		os.Exit(1)
	}
}
