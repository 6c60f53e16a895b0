package orders

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/suite"
	"golang.org/x/sync/errgroup"

	"github.com/ariefcatur/catering-orders/internal/apperr"
	"github.com/ariefcatur/catering-orders/internal/auth"
	"github.com/ariefcatur/catering-orders/internal/cart"
	"github.com/ariefcatur/catering-orders/internal/catalog"
	"github.com/ariefcatur/catering-orders/internal/postgres/pgtest"
	"github.com/ariefcatur/catering-orders/internal/stock"
)

type fixture struct {
	orders  Repository
	carts   cart.Repository
	catalog catalog.Reader
	stock   stock.Repository
	tx      Transactor
	addFood func(name string, price int64, qty int) (foodID, stockID string)
	// nil when the store keeps stock items referenced by foods
	dropStock func(stockID string)
}

func memoryFixture(*testing.T) fixture {
	cat := catalog.NewMemoryCatalog()
	st := stock.NewMemoryRepo()
	return fixture{
		orders:  NewMemoryRepo(),
		carts:   cart.NewMemoryRepo(),
		catalog: cat,
		stock:   st,
		tx:      InlineTx{},
		addFood: func(name string, price int64, qty int) (string, string) {
			foodID, stockID := uuid.NewString(), uuid.NewString()
			_ = st.Create(context.Background(), stock.Item{ID: stockID, Name: name, Quantity: qty})
			cat.Put(catalog.Food{ID: foodID, Name: name, Price: decimal.NewFromInt(price), StockID: stockID})
			return foodID, stockID
		},
		dropStock: func(id string) { _ = st.Delete(context.Background(), id) },
	}
}

func postgresFixture(t *testing.T) fixture {
	db := pgtest.Open(t)
	return fixture{
		orders:  &PostgresRepo{DB: db},
		carts:   &cart.PostgresRepo{DB: db},
		catalog: &catalog.PostgresCatalog{DB: db},
		stock:   &stock.PostgresRepo{DB: db},
		tx:      db,
		addFood: func(name string, price int64, qty int) (string, string) {
			return pgtest.SeedFood(t, db, name, price, qty)
		},
	}
}

// paidOrders stands in for the payment store.
type paidOrders struct {
	mu   sync.Mutex
	paid map[string]bool
}

func (p *paidOrders) mark(id string) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.paid[id] = true
}

func (p *paidOrders) Completed(_ context.Context, id string) (bool, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.paid[id], nil
}

// slowLedger holds every reservation open a little longer.
type slowLedger struct {
	Ledger
	delay time.Duration
}

func (l slowLedger) Reserve(ctx context.Context, id string, qty int) error {
	time.Sleep(l.delay)
	return l.Ledger.Reserve(ctx, id, qty)
}

type recordedEvent struct{ topic, eventType, orderID string }

type recorder struct {
	mu     sync.Mutex
	events []recordedEvent
}

func (r *recorder) Emit(_ context.Context, topic, eventType, orderID string, _ any) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.events = append(r.events, recordedEvent{topic, eventType, orderID})
	return nil
}

func (r *recorder) count(eventType string) int {
	r.mu.Lock()
	defer r.mu.Unlock()
	n := 0
	for _, e := range r.events {
		if e.eventType == eventType {
			n++
		}
	}
	return n
}

type OrdersTestSuite struct {
	suite.Suite
	newFixture func(t *testing.T) fixture
	fx         fixture
	ledger     *stock.Ledger
	cartAgg    *cart.Aggregator
	factory    *Factory
	machine    *Machine
	paid       *paidOrders
	events     *recorder
	alice, bob auth.Identity
	admin      auth.Identity
	ful        Fulfillment
}

func TestOrdersMemory(t *testing.T) {
	suite.Run(t, &OrdersTestSuite{newFixture: memoryFixture})
}

func TestOrdersPostgres(t *testing.T) {
	suite.Run(t, &OrdersTestSuite{newFixture: postgresFixture})
}

func (s *OrdersTestSuite) SetupTest() {
	s.fx = s.newFixture(s.T())
	s.ledger = &stock.Ledger{Repo: s.fx.stock, Log: zerolog.Nop()}
	s.cartAgg = &cart.Aggregator{Repo: s.fx.carts, Catalog: s.fx.catalog, Log: zerolog.Nop()}
	s.paid = &paidOrders{paid: map[string]bool{}}
	s.events = &recorder{}
	s.factory = &Factory{
		Orders: s.fx.orders, Carts: s.fx.carts, Catalog: s.fx.catalog,
		Ledger: s.ledger, Tx: s.fx.tx, Events: s.events, Log: zerolog.Nop(),
	}
	s.machine = &Machine{
		Orders: s.fx.orders, Ledger: s.ledger, Payments: s.paid, Events: s.events, Log: zerolog.Nop(),
	}
	s.alice = auth.Identity{UserID: "alice", Role: auth.RoleCustomer}
	s.bob = auth.Identity{UserID: "bob", Role: auth.RoleCustomer}
	s.admin = auth.Identity{UserID: "admin-1", Role: auth.RoleAdmin}
	s.ful = Fulfillment{Name: "Alice", Address: "Jl. Merdeka 1", Phone: "0812"}
}

func (s *OrdersTestSuite) quantity(stockID string) int {
	it, err := s.fx.stock.Get(context.Background(), stockID)
	s.Require().NoError(err)
	return it.Quantity
}

func (s *OrdersTestSuite) direct(foodID string, qty int) Order {
	o, err := s.factory.Direct(context.Background(), s.alice, DirectInput{FoodID: foodID, Quantity: qty, Fulfillment: s.ful})
	s.Require().NoError(err)
	return o
}

func (s *OrdersTestSuite) TestCartCheckoutSnapshotsPrice() {
	ctx := context.Background()
	food, stockID := s.fx.addFood("Nasi Box", 25000, 10)
	_, err := s.cartAgg.Add(ctx, s.alice, food, 3)
	s.Require().NoError(err)

	o, err := s.factory.FromCart(ctx, s.alice, s.ful)
	s.Require().NoError(err)

	s.Equal(StatusPending, o.Status)
	s.Require().Len(o.Items, 1)
	s.True(o.Items[0].UnitPrice.Equal(decimal.NewFromInt(25000)))
	s.True(o.Total.Equal(decimal.NewFromInt(75000)), o.Total.String())
	s.Equal(7, s.quantity(stockID))

	v, err := s.cartAgg.List(ctx, s.alice)
	s.Require().NoError(err)
	s.Empty(v.Lines)
	s.Equal(1, s.events.count(EventOrderCreated))

	stored, err := s.machine.Get(ctx, s.alice, o.ID)
	s.Require().NoError(err)
	s.True(stored.Total.Equal(decimal.NewFromInt(75000)))
	s.Equal("Jl. Merdeka 1", stored.Address)
}

func (s *OrdersTestSuite) TestEmptyCart() {
	_, err := s.factory.FromCart(context.Background(), s.alice, s.ful)
	s.True(errors.Is(err, apperr.ErrEmptyCart), "got %v", err)
}

func (s *OrdersTestSuite) TestConcurrentCheckoutsConvertCartOnce() {
	ctx := context.Background()
	food, stockID := s.fx.addFood("Nasi Box", 25000, 1000)
	_, err := s.cartAgg.Add(ctx, s.alice, food, 3)
	s.Require().NoError(err)
	s.factory.Ledger = slowLedger{Ledger: s.ledger, delay: 5 * time.Millisecond}

	var ok atomic.Int32
	var g errgroup.Group
	for i := 0; i < 4; i++ {
		g.Go(func() error {
			_, err := s.factory.FromCart(context.Background(), s.alice, s.ful)
			switch {
			case err == nil:
				ok.Add(1)
			case errors.Is(err, apperr.ErrEmptyCart):
			default:
				return err
			}
			return nil
		})
	}
	s.Require().NoError(g.Wait())
	s.EqualValues(1, ok.Load())
	s.Equal(997, s.quantity(stockID))

	list, err := s.machine.List(ctx, s.alice)
	s.Require().NoError(err)
	s.Len(list, 1)
}

func (s *OrdersTestSuite) TestCartCheckoutIsAllOrNothing() {
	ctx := context.Background()
	soto, sotoStock := s.fx.addFood("Soto", 15000, 5)
	tumpeng, tumpengStock := s.fx.addFood("Tumpeng", 300000, 1)
	_, err := s.cartAgg.Add(ctx, s.alice, soto, 2)
	s.Require().NoError(err)
	_, err = s.cartAgg.Add(ctx, s.alice, tumpeng, 3)
	s.Require().NoError(err)

	_, err = s.factory.FromCart(ctx, s.alice, s.ful)
	s.True(errors.Is(err, apperr.ErrInsufficientStock), "got %v", err)

	s.Equal(5, s.quantity(sotoStock))
	s.Equal(1, s.quantity(tumpengStock))
	v, err := s.cartAgg.List(ctx, s.alice)
	s.Require().NoError(err)
	s.Len(v.Lines, 2)
	list, err := s.machine.List(ctx, s.alice)
	s.Require().NoError(err)
	s.Empty(list)
	s.Zero(s.events.count(EventOrderCreated))
}

func (s *OrdersTestSuite) TestDirectValidation() {
	ctx := context.Background()
	food, stockID := s.fx.addFood("Rendang", 40000, 3)

	_, err := s.factory.Direct(ctx, s.alice, DirectInput{FoodID: food, Quantity: 1, Fulfillment: Fulfillment{Name: "A", Address: " ", Phone: "1"}})
	s.True(errors.Is(err, apperr.ErrInvalidInput))
	_, err = s.factory.Direct(ctx, s.alice, DirectInput{FoodID: food, Quantity: 0, Fulfillment: s.ful})
	s.True(errors.Is(err, apperr.ErrInvalidInput))
	_, err = s.factory.Direct(ctx, s.alice, DirectInput{FoodID: uuid.NewString(), Quantity: 1, Fulfillment: s.ful})
	s.True(errors.Is(err, apperr.ErrNotFound))
	_, err = s.factory.Direct(ctx, s.admin, DirectInput{FoodID: food, Quantity: 1, Fulfillment: s.ful})
	s.True(errors.Is(err, apperr.ErrUnauthorized))
	_, err = s.factory.Direct(ctx, s.alice, DirectInput{FoodID: food, Quantity: 4, Fulfillment: s.ful})
	s.True(errors.Is(err, apperr.ErrInsufficientStock))

	s.Equal(3, s.quantity(stockID))
}

func (s *OrdersTestSuite) TestConcurrentOrdersNeverOversell() {
	food, stockID := s.fx.addFood("Nasi Kuning", 20000, 5)

	var ok atomic.Int32
	var g errgroup.Group
	for i := 0; i < 20; i++ {
		g.Go(func() error {
			_, err := s.factory.Direct(context.Background(), s.alice, DirectInput{FoodID: food, Quantity: 1, Fulfillment: s.ful})
			switch {
			case err == nil:
				ok.Add(1)
			case errors.Is(err, apperr.ErrInsufficientStock):
			default:
				return err
			}
			return nil
		})
	}
	s.Require().NoError(g.Wait())
	s.EqualValues(5, ok.Load())
	s.Zero(s.quantity(stockID))
}

func (s *OrdersTestSuite) TestProcessingRequiresPayment() {
	ctx := context.Background()
	food, _ := s.fx.addFood("Soto", 15000, 5)
	o := s.direct(food, 1)

	_, err := s.machine.Advance(ctx, s.admin, o.ID, StatusProcessing)
	s.True(errors.Is(err, apperr.ErrInvalidTransition))

	s.paid.mark(o.ID)
	got, err := s.machine.Advance(ctx, s.admin, o.ID, StatusProcessing)
	s.Require().NoError(err)
	s.Equal(StatusProcessing, got.Status)

	got, err = s.machine.Advance(ctx, s.admin, o.ID, StatusCompleted)
	s.Require().NoError(err)
	s.Equal(StatusCompleted, got.Status)
	s.Equal(2, s.events.count(EventOrderStatusChanged))

	_, err = s.machine.Advance(ctx, s.admin, o.ID, StatusCancelled)
	s.True(errors.Is(err, apperr.ErrInvalidTransition))
}

func (s *OrdersTestSuite) TestCancelReleasesStockOnce() {
	ctx := context.Background()
	food, stockID := s.fx.addFood("Gado-gado", 18000, 10)
	o := s.direct(food, 4)
	s.Equal(6, s.quantity(stockID))

	var ok atomic.Int32
	var g errgroup.Group
	for i := 0; i < 8; i++ {
		g.Go(func() error {
			_, err := s.machine.Advance(context.Background(), s.admin, o.ID, StatusCancelled)
			switch {
			case err == nil:
				ok.Add(1)
			case errors.Is(err, apperr.ErrInvalidTransition):
			default:
				return err
			}
			return nil
		})
	}
	s.Require().NoError(g.Wait())
	s.EqualValues(1, ok.Load())
	s.Equal(10, s.quantity(stockID))

	got, err := s.machine.Get(ctx, s.admin, o.ID)
	s.Require().NoError(err)
	s.Equal(StatusCancelled, got.Status)
}

// Stock 5: A takes 3, B cannot take 4 until an admin cancels A.
func (s *OrdersTestSuite) TestCancelFreesStockForAnotherCustomer() {
	ctx := context.Background()
	food, stockID := s.fx.addFood("Tumpeng Mini", 150000, 5)

	a, err := s.factory.Direct(ctx, s.alice, DirectInput{FoodID: food, Quantity: 3, Fulfillment: s.ful})
	s.Require().NoError(err)
	s.Equal(2, s.quantity(stockID))

	_, err = s.factory.Direct(ctx, s.bob, DirectInput{FoodID: food, Quantity: 4, Fulfillment: s.ful})
	s.True(errors.Is(err, apperr.ErrInsufficientStock), "got %v", err)
	s.Equal(2, s.quantity(stockID))

	_, err = s.machine.Advance(ctx, s.admin, a.ID, StatusCancelled)
	s.Require().NoError(err)
	s.Equal(5, s.quantity(stockID))

	b, err := s.factory.Direct(ctx, s.bob, DirectInput{FoodID: food, Quantity: 4, Fulfillment: s.ful})
	s.Require().NoError(err)
	s.Equal(StatusPending, b.Status)
	s.Equal(1, s.quantity(stockID))
}

func (s *OrdersTestSuite) TestCancelSkipsDeletedStock() {
	if s.fx.dropStock == nil {
		s.T().Skip("store keeps referenced stock items")
	}
	food, stockID := s.fx.addFood("Es Teh", 5000, 2)
	o := s.direct(food, 1)
	s.fx.dropStock(stockID)

	got, err := s.machine.Advance(context.Background(), s.admin, o.ID, StatusCancelled)
	s.Require().NoError(err)
	s.Equal(StatusCancelled, got.Status)
}

func (s *OrdersTestSuite) TestCustomersCannotMoveStatus() {
	ctx := context.Background()
	food, stockID := s.fx.addFood("Sate", 30000, 5)
	o := s.direct(food, 2)
	s.paid.mark(o.ID)

	_, err := s.machine.Advance(ctx, s.alice, o.ID, StatusCancelled)
	s.True(errors.Is(err, apperr.ErrInvalidTransition))
	_, err = s.machine.Advance(ctx, s.alice, o.ID, StatusProcessing)
	s.True(errors.Is(err, apperr.ErrInvalidTransition))
	_, err = s.machine.Advance(ctx, s.bob, o.ID, StatusCancelled)
	s.True(errors.Is(err, apperr.ErrUnauthorized))
	_, err = s.machine.Advance(ctx, s.admin, o.ID, Status("shipped"))
	s.True(errors.Is(err, apperr.ErrInvalidTransition))
	_, err = s.machine.Advance(ctx, s.admin, uuid.NewString(), StatusCancelled)
	s.True(errors.Is(err, apperr.ErrOrderNotFound))

	got, err := s.machine.Get(ctx, s.alice, o.ID)
	s.Require().NoError(err)
	s.Equal(StatusPending, got.Status)
	s.Equal(3, s.quantity(stockID))
}

func (s *OrdersTestSuite) TestReadScoping() {
	ctx := context.Background()
	food, _ := s.fx.addFood("Bakso", 12000, 10)
	first := s.direct(food, 1)
	second := s.direct(food, 2)

	_, err := s.machine.Get(ctx, s.bob, first.ID)
	s.True(errors.Is(err, apperr.ErrUnauthorized))

	mine, err := s.machine.List(ctx, s.alice)
	s.Require().NoError(err)
	s.Require().Len(mine, 2)
	s.Equal(second.ID, mine[0].ID)
	s.Len(mine[0].Items, 1)

	theirs, err := s.machine.List(ctx, s.bob)
	s.Require().NoError(err)
	s.Empty(theirs)

	all, err := s.machine.List(ctx, s.admin)
	s.Require().NoError(err)
	s.Len(all, 2)

	_, err = s.machine.List(ctx, auth.System)
	s.True(errors.Is(err, apperr.ErrUnauthorized))
}
