// Package app builds the service graph shared by the API and the callback
// consumer from a config.Config.
package app

import (
	"context"
	"fmt"

	"github.com/rs/zerolog"

	"github.com/ariefcatur/catering-orders/internal/admin"
	"github.com/ariefcatur/catering-orders/internal/cart"
	"github.com/ariefcatur/catering-orders/internal/catalog"
	"github.com/ariefcatur/catering-orders/internal/config"
	"github.com/ariefcatur/catering-orders/internal/httpx"
	"github.com/ariefcatur/catering-orders/internal/kafka"
	"github.com/ariefcatur/catering-orders/internal/orders"
	"github.com/ariefcatur/catering-orders/internal/payments"
	"github.com/ariefcatur/catering-orders/internal/postgres"
	"github.com/ariefcatur/catering-orders/internal/redisx"
	"github.com/ariefcatur/catering-orders/internal/stock"
)

const (
	StorePostgres = "postgres"
	StoreMemory   = "memory"
)

type App struct {
	Ledger   *stock.Ledger
	Cart     *cart.Aggregator
	Factory  *orders.Factory
	Machine  *orders.Machine
	Recorder *payments.Recorder
	Admin    *admin.Override
	Idem     *redisx.Store
	Bus      *kafka.Bus // nil without brokers

	closers []func()
}

type stores struct {
	stock    stock.Repository
	carts    cart.Repository
	catalog  catalog.Reader
	orders   orders.Repository
	payments payments.Repository
	tx       orders.Transactor
}

// New opens the configured store, Redis and Kafka and wires the components.
// Redis and Kafka are optional: an empty address disables them.
func New(ctx context.Context, cfg config.Config, log zerolog.Logger) (*App, error) {
	a := &App{}
	st, err := a.openStores(ctx, cfg, log)
	if err != nil {
		a.Close()
		return nil, err
	}

	var emitter orders.Emitter = orders.NopEmitter{}
	if len(cfg.KafkaBrokers) > 0 {
		a.Bus = kafka.NewBus(cfg.KafkaBrokers, cfg.ServiceName, log.With().Str("component", "kafka").Logger(),
			orders.TopicOrderCreated, orders.TopicOrderStatusChanged, orders.TopicPaymentRecorded)
		emitter = a.Bus
	}

	var claims payments.Claims
	if cfg.RedisAddr != "" {
		rdb := redisx.New(cfg.RedisAddr)
		a.closers = append(a.closers, func() { _ = rdb.Close() })
		if err := rdb.Ping(ctx).Err(); err != nil {
			log.Warn().Err(err).Str("addr", cfg.RedisAddr).Msg("redis not reachable yet")
		}
		a.Idem = &redisx.Store{RDB: rdb}
		claims = a.Idem
	}

	component := func(name string) zerolog.Logger { return log.With().Str("component", name).Logger() }
	a.Ledger = &stock.Ledger{Repo: st.stock, Log: component("stock")}
	a.Cart = &cart.Aggregator{Repo: st.carts, Catalog: st.catalog, Log: component("cart")}
	a.Factory = &orders.Factory{
		Orders: st.orders, Carts: st.carts, Catalog: st.catalog,
		Ledger: a.Ledger, Tx: st.tx, Events: emitter, Log: component("orders"),
	}
	a.Machine = &orders.Machine{
		Orders: st.orders, Ledger: a.Ledger, Payments: payments.Settlements{Repo: st.payments},
		Events: emitter, Log: component("orders"),
	}
	a.Recorder = &payments.Recorder{
		Orders: st.orders, Payments: st.payments, Machine: a.Machine,
		Claims: claims, Events: emitter, Log: component("payments"),
	}
	a.Admin = &admin.Override{Machine: a.Machine, Payments: a.Recorder, Stock: a.Ledger, Log: component("admin")}
	return a, nil
}

func (a *App) openStores(ctx context.Context, cfg config.Config, log zerolog.Logger) (stores, error) {
	switch cfg.Store {
	case StoreMemory:
		st := stock.NewMemoryRepo()
		cat := catalog.NewMemoryCatalog()
		foods, err := seedMenu(ctx, st, cat)
		if err != nil {
			return stores{}, err
		}
		for _, f := range foods {
			log.Info().Str("food_id", f.ID).Str("name", f.Name).Str("price", f.Price.String()).Msg("menu item")
		}
		log.Warn().Msg("using in-memory store; data is lost on exit")
		return stores{
			stock: st, carts: cart.NewMemoryRepo(), catalog: cat,
			orders: orders.NewMemoryRepo(), payments: payments.NewMemoryRepo(), tx: orders.InlineTx{},
		}, nil
	case StorePostgres:
		if cfg.AutoMigrate {
			if err := postgres.Migrate(cfg.PostgresDSN); err != nil {
				return stores{}, fmt.Errorf("migrate: %w", err)
			}
		}
		db, err := postgres.Open(ctx, cfg.PostgresDSN)
		if err != nil {
			return stores{}, fmt.Errorf("db connect: %w", err)
		}
		a.closers = append(a.closers, db.Close)
		return stores{
			stock: &stock.PostgresRepo{DB: db}, carts: &cart.PostgresRepo{DB: db}, catalog: &catalog.PostgresCatalog{DB: db},
			orders: &orders.PostgresRepo{DB: db}, payments: &payments.PostgresRepo{DB: db}, tx: db,
		}, nil
	}
	return stores{}, fmt.Errorf("unknown STORE %q", cfg.Store)
}

// API returns the HTTP surface over the app's components.
func (a *App) API(log zerolog.Logger) *httpx.API {
	return &httpx.API{
		Cart: a.Cart, Factory: a.Factory, Machine: a.Machine, Payments: a.Recorder,
		Admin: a.Admin, Idem: a.Idem, Log: log.With().Str("component", "http").Logger(),
	}
}

// Close releases connections in reverse order of opening.
func (a *App) Close() {
	for i := len(a.closers) - 1; i >= 0; i-- {
		a.closers[i]()
	}
	a.closers = nil
}
