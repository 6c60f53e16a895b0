package payments

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"

	"github.com/alicebob/miniredis/v2"
	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/suite"
	"golang.org/x/sync/errgroup"

	"github.com/ariefcatur/catering-orders/internal/apperr"
	"github.com/ariefcatur/catering-orders/internal/auth"
	"github.com/ariefcatur/catering-orders/internal/cart"
	"github.com/ariefcatur/catering-orders/internal/catalog"
	"github.com/ariefcatur/catering-orders/internal/orders"
	"github.com/ariefcatur/catering-orders/internal/postgres/pgtest"
	"github.com/ariefcatur/catering-orders/internal/redisx"
	"github.com/ariefcatur/catering-orders/internal/stock"
)

type fixture struct {
	orders   orders.Repository
	payments Repository
	catalog  catalog.Reader
	stock    stock.Repository
	tx       orders.Transactor
	addFood  func(name string, price int64, qty int) string
}

func memoryFixture(*testing.T) fixture {
	cat := catalog.NewMemoryCatalog()
	st := stock.NewMemoryRepo()
	return fixture{
		orders:   orders.NewMemoryRepo(),
		payments: NewMemoryRepo(),
		catalog:  cat,
		stock:    st,
		tx:       orders.InlineTx{},
		addFood: func(name string, price int64, qty int) string {
			foodID, stockID := uuid.NewString(), uuid.NewString()
			_ = st.Create(context.Background(), stock.Item{ID: stockID, Name: name, Quantity: qty})
			cat.Put(catalog.Food{ID: foodID, Name: name, Price: decimal.NewFromInt(price), StockID: stockID})
			return foodID
		},
	}
}

func postgresFixture(t *testing.T) fixture {
	db := pgtest.Open(t)
	return fixture{
		orders:   &orders.PostgresRepo{DB: db},
		payments: &PostgresRepo{DB: db},
		catalog:  &catalog.PostgresCatalog{DB: db},
		stock:    &stock.PostgresRepo{DB: db},
		tx:       db,
		addFood: func(name string, price int64, qty int) string {
			id, _ := pgtest.SeedFood(t, db, name, price, qty)
			return id
		},
	}
}

type countingEmitter struct {
	mu    sync.Mutex
	count map[string]int
}

func (e *countingEmitter) Emit(_ context.Context, _, eventType, _ string, _ any) error {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.count[eventType]++
	return nil
}

func (e *countingEmitter) n(eventType string) int {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.count[eventType]
}

type RecorderTestSuite struct {
	suite.Suite
	newFixture func(t *testing.T) fixture
	fx         fixture
	mr         *miniredis.Miniredis
	events     *countingEmitter
	factory    *orders.Factory
	machine    *orders.Machine
	rec        *Recorder
	alice, bob auth.Identity
	admin      auth.Identity
}

func TestRecorderMemory(t *testing.T) {
	suite.Run(t, &RecorderTestSuite{newFixture: memoryFixture})
}

func TestRecorderPostgres(t *testing.T) {
	suite.Run(t, &RecorderTestSuite{newFixture: postgresFixture})
}

func (s *RecorderTestSuite) SetupTest() {
	s.fx = s.newFixture(s.T())
	s.mr = miniredis.RunT(s.T())
	s.events = &countingEmitter{count: map[string]int{}}
	ledger := &stock.Ledger{Repo: s.fx.stock, Log: zerolog.Nop()}
	s.factory = &orders.Factory{
		Orders: s.fx.orders, Carts: cart.NewMemoryRepo(), Catalog: s.fx.catalog,
		Ledger: ledger, Tx: s.fx.tx, Events: s.events, Log: zerolog.Nop(),
	}
	s.machine = &orders.Machine{
		Orders: s.fx.orders, Ledger: ledger, Payments: Settlements{Repo: s.fx.payments},
		Events: s.events, Log: zerolog.Nop(),
	}
	s.rec = &Recorder{
		Orders: s.fx.orders, Payments: s.fx.payments, Machine: s.machine,
		Claims: &redisx.Store{RDB: redisx.New(s.mr.Addr())}, Events: s.events, Log: zerolog.Nop(),
	}
	s.alice = auth.Identity{UserID: "alice", Role: auth.RoleCustomer}
	s.bob = auth.Identity{UserID: "bob", Role: auth.RoleCustomer}
	s.admin = auth.Identity{UserID: "admin-1", Role: auth.RoleAdmin}
}

func (s *RecorderTestSuite) placeOrder() orders.Order {
	food := s.fx.addFood("Nasi Box", 25000, 10)
	o, err := s.factory.Direct(context.Background(), s.alice, orders.DirectInput{
		FoodID: food, Quantity: 3,
		Fulfillment: orders.Fulfillment{Name: "Alice", Address: "Jl. Merdeka 1", Phone: "0812"},
	})
	s.Require().NoError(err)
	return o
}

func (s *RecorderTestSuite) orderStatus(id string) orders.Status {
	o, err := s.fx.orders.Get(context.Background(), id)
	s.Require().NoError(err)
	return o.Status
}

func (s *RecorderTestSuite) TestCompletedPaymentAdvancesOrder() {
	ctx := context.Background()
	o := s.placeOrder()

	p, err := s.rec.CreateOrUpdate(ctx, s.alice, o.ID, StatusCompleted)
	s.Require().NoError(err)
	s.Equal(StatusCompleted, p.Status)
	s.Equal(o.ID, p.OrderID)
	s.Equal(orders.StatusProcessing, s.orderStatus(o.ID))
	s.Equal(1, s.events.n(orders.EventPaymentRecorded))
	s.Equal(1, s.events.n(orders.EventOrderStatusChanged))

	// the confirmed order can no longer be advanced by hand from pending
	_, err = s.machine.Advance(ctx, s.alice, o.ID, orders.StatusProcessing)
	s.True(errors.Is(err, apperr.ErrInvalidTransition))
}

func (s *RecorderTestSuite) TestPaymentIsOverwrittenNotDuplicated() {
	ctx := context.Background()
	o := s.placeOrder()

	first, err := s.rec.CreateOrUpdate(ctx, s.alice, o.ID, StatusPending)
	s.Require().NoError(err)
	second, err := s.rec.CreateOrUpdate(ctx, s.alice, o.ID, StatusFailed)
	s.Require().NoError(err)

	s.Equal(first.ID, second.ID)
	s.Equal(StatusFailed, second.Status)
	s.Equal(orders.StatusPending, s.orderStatus(o.ID))

	all, err := s.rec.List(ctx, s.admin)
	s.Require().NoError(err)
	s.Len(all, 1)
}

func (s *RecorderTestSuite) TestSettledOrdersRejectPayments() {
	ctx := context.Background()
	o := s.placeOrder()
	_, err := s.machine.Advance(ctx, s.admin, o.ID, orders.StatusCancelled)
	s.Require().NoError(err)

	_, err = s.rec.CreateOrUpdate(ctx, s.alice, o.ID, StatusCompleted)
	s.True(errors.Is(err, apperr.ErrOrderAlreadySettled), "got %v", err)
	_, err = s.rec.Payments.ByOrder(ctx, o.ID)
	s.True(errors.Is(err, apperr.ErrNotFound))
}

func (s *RecorderTestSuite) TestProcessingOrderKeepsCompletedPayment() {
	ctx := context.Background()
	o := s.placeOrder()
	_, err := s.rec.CreateOrUpdate(ctx, s.alice, o.ID, StatusCompleted)
	s.Require().NoError(err)

	_, err = s.rec.CreateOrUpdate(ctx, s.alice, o.ID, StatusFailed)
	s.True(errors.Is(err, apperr.ErrInvalidTransition))

	again, err := s.rec.CreateOrUpdate(ctx, s.alice, o.ID, StatusCompleted)
	s.Require().NoError(err)
	s.Equal(StatusCompleted, again.Status)
	s.Equal(1, s.events.n(orders.EventPaymentRecorded))
}

func (s *RecorderTestSuite) TestCallerChecks() {
	ctx := context.Background()
	o := s.placeOrder()

	_, err := s.rec.CreateOrUpdate(ctx, s.bob, o.ID, StatusCompleted)
	s.True(errors.Is(err, apperr.ErrUnauthorized))
	_, err = s.rec.CreateOrUpdate(ctx, s.alice, uuid.NewString(), StatusCompleted)
	s.True(errors.Is(err, apperr.ErrOrderNotFound))
	_, err = s.rec.CreateOrUpdate(ctx, s.alice, o.ID, Status("refunded"))
	s.True(errors.Is(err, apperr.ErrInvalidInput))
	_, err = s.rec.CreateOrUpdate(ctx, auth.Identity{Role: "guest"}, o.ID, StatusCompleted)
	s.True(errors.Is(err, apperr.ErrUnauthorized))
	_, err = s.rec.List(ctx, s.alice)
	s.True(errors.Is(err, apperr.ErrUnauthorized))
	s.Equal(orders.StatusPending, s.orderStatus(o.ID))
}

func (s *RecorderTestSuite) TestCallbackRedeliveryIsNoop() {
	o := s.placeOrder()

	var g errgroup.Group
	for i := 0; i < 10; i++ {
		g.Go(func() error {
			_, err := s.rec.Callback(context.Background(), auth.System, o.ID, StatusCompleted)
			return err
		})
	}
	s.Require().NoError(g.Wait())

	s.Equal(orders.StatusProcessing, s.orderStatus(o.ID))
	s.Equal(1, s.events.n(orders.EventPaymentRecorded))
	s.Equal(1, s.events.n(orders.EventOrderStatusChanged))
	s.True(s.mr.Exists(fmt.Sprintf(redisx.KeyDedup, "payments", o.ID+":completed")))
}

func (s *RecorderTestSuite) TestCallbackWithoutClaimsIsIdempotent() {
	s.rec.Claims = nil
	o := s.placeOrder()

	for i := 0; i < 3; i++ {
		_, err := s.rec.Callback(context.Background(), auth.System, o.ID, StatusCompleted)
		s.Require().NoError(err)
	}
	s.Equal(1, s.events.n(orders.EventPaymentRecorded))
}

func (s *RecorderTestSuite) TestCallbackRedeliveredAfterSettlement() {
	ctx := context.Background()
	s.rec.Claims = nil
	o := s.placeOrder()

	_, err := s.rec.Callback(ctx, auth.System, o.ID, StatusCompleted)
	s.Require().NoError(err)
	_, err = s.machine.Advance(ctx, s.admin, o.ID, orders.StatusCompleted)
	s.Require().NoError(err)

	p, err := s.rec.Callback(ctx, auth.System, o.ID, StatusCompleted)
	s.Require().NoError(err)
	s.Equal(StatusCompleted, p.Status)
	s.Equal(1, s.events.n(orders.EventPaymentRecorded))

	_, err = s.rec.Callback(ctx, auth.System, o.ID, StatusFailed)
	s.True(errors.Is(err, apperr.ErrOrderAlreadySettled), "got %v", err)
	s.Equal(orders.StatusCompleted, s.orderStatus(o.ID))
}

func (s *RecorderTestSuite) TestCallbackCallerChecks() {
	ctx := context.Background()
	o := s.placeOrder()

	_, err := s.rec.Callback(ctx, s.bob, o.ID, StatusCompleted)
	s.True(errors.Is(err, apperr.ErrUnauthorized), "got %v", err)
	_, err = s.rec.Callback(ctx, auth.Identity{UserID: "x", Role: "guest"}, o.ID, StatusCompleted)
	s.True(errors.Is(err, apperr.ErrUnauthorized), "got %v", err)
	s.Equal(orders.StatusPending, s.orderStatus(o.ID))
	s.False(s.mr.Exists(fmt.Sprintf(redisx.KeyDedup, "payments", o.ID+":completed")))

	_, err = s.rec.Callback(ctx, s.alice, o.ID, StatusCompleted)
	s.Require().NoError(err)
	s.Equal(orders.StatusProcessing, s.orderStatus(o.ID))
}

func (s *RecorderTestSuite) TestFailedCallbackReleasesClaim() {
	missing := uuid.NewString()
	_, err := s.rec.Callback(context.Background(), auth.System, missing, StatusCompleted)
	s.True(errors.Is(err, apperr.ErrOrderNotFound))
	s.False(s.mr.Exists(fmt.Sprintf(redisx.KeyDedup, "payments", missing+":completed")))
}

func (s *RecorderTestSuite) TestCallbackWhenRedisIsDown() {
	o := s.placeOrder()
	s.mr.Close()

	_, err := s.rec.Callback(context.Background(), auth.System, o.ID, StatusCompleted)
	s.Require().NoError(err)
	s.Equal(orders.StatusProcessing, s.orderStatus(o.ID))
}

func (s *RecorderTestSuite) TestAdminOverride() {
	ctx := context.Background()
	o := s.placeOrder()
	p, err := s.rec.CreateOrUpdate(ctx, s.alice, o.ID, StatusPending)
	s.Require().NoError(err)

	_, err = s.rec.UpdateByID(ctx, s.alice, p.ID, StatusCompleted)
	s.True(errors.Is(err, apperr.ErrUnauthorized))

	got, err := s.rec.UpdateByID(ctx, s.admin, p.ID, StatusCompleted)
	s.Require().NoError(err)
	s.Equal(StatusCompleted, got.Status)
	s.Equal(orders.StatusProcessing, s.orderStatus(o.ID))

	byID, err := s.rec.Get(ctx, s.admin, p.ID)
	s.Require().NoError(err)
	s.Equal(StatusCompleted, byID.Status)

	_, err = s.rec.UpdateByID(ctx, s.admin, uuid.NewString(), StatusCompleted)
	s.True(errors.Is(err, apperr.ErrNotFound))
}

func (s *RecorderTestSuite) TestReceipt() {
	ctx := context.Background()
	o := s.placeOrder()

	rc, err := s.rec.Receipt(ctx, s.alice, o.ID)
	s.Require().NoError(err)
	s.Nil(rc.Payment)

	_, err = s.rec.CreateOrUpdate(ctx, s.alice, o.ID, StatusCompleted)
	s.Require().NoError(err)
	rc, err = s.rec.Receipt(ctx, s.alice, o.ID)
	s.Require().NoError(err)
	s.Require().NotNil(rc.Payment)
	s.Equal(StatusCompleted, rc.Payment.Status)
	s.Equal(orders.StatusProcessing, rc.Order.Status)

	_, err = s.rec.Receipt(ctx, s.bob, o.ID)
	s.True(errors.Is(err, apperr.ErrUnauthorized))
}
