package cart

import (
	"context"
	"errors"
	"testing"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/suite"

	"github.com/ariefcatur/catering-orders/internal/apperr"
	"github.com/ariefcatur/catering-orders/internal/auth"
	"github.com/ariefcatur/catering-orders/internal/catalog"
	"github.com/ariefcatur/catering-orders/internal/postgres/pgtest"
)

// fixture abstracts over the storage the suite runs against.
type fixture struct {
	repo     Repository
	catalog  catalog.Reader
	addFood  func(name string, price int64) string
	setPrice func(foodID string, price int64)
}

type AggregatorTestSuite struct {
	suite.Suite
	newFixture func(t *testing.T) fixture
	fx         fixture
	agg        *Aggregator
	alice, bob auth.Identity
}

func memoryFixture(*testing.T) fixture {
	cat := catalog.NewMemoryCatalog()
	return fixture{
		repo:    NewMemoryRepo(),
		catalog: cat,
		addFood: func(name string, price int64) string {
			id := uuid.NewString()
			cat.Put(catalog.Food{ID: id, Name: name, Price: decimal.NewFromInt(price), StockID: uuid.NewString()})
			return id
		},
		setPrice: func(id string, price int64) { cat.SetPrice(id, decimal.NewFromInt(price)) },
	}
}

func postgresFixture(t *testing.T) fixture {
	db := pgtest.Open(t)
	return fixture{
		repo:    &PostgresRepo{DB: db},
		catalog: &catalog.PostgresCatalog{DB: db},
		addFood: func(name string, price int64) string {
			id, _ := pgtest.SeedFood(t, db, name, price, 10)
			return id
		},
		setPrice: func(id string, price int64) { pgtest.SetPrice(t, db, id, price) },
	}
}

func TestAggregatorMemory(t *testing.T) {
	suite.Run(t, &AggregatorTestSuite{newFixture: memoryFixture})
}

func TestAggregatorPostgres(t *testing.T) {
	suite.Run(t, &AggregatorTestSuite{newFixture: postgresFixture})
}

func (s *AggregatorTestSuite) SetupTest() {
	s.fx = s.newFixture(s.T())
	s.agg = &Aggregator{Repo: s.fx.repo, Catalog: s.fx.catalog, Log: zerolog.Nop()}
	s.alice = auth.Identity{UserID: "alice", Role: auth.RoleCustomer}
	s.bob = auth.Identity{UserID: "bob", Role: auth.RoleCustomer}
}

func (s *AggregatorTestSuite) TestAddMergesSameFood() {
	ctx := context.Background()
	food := s.fx.addFood("Nasi Box", 25000)

	first, err := s.agg.Add(ctx, s.alice, food, 2)
	s.Require().NoError(err)
	second, err := s.agg.Add(ctx, s.alice, food, 3)
	s.Require().NoError(err)

	s.Equal(first.ID, second.ID)
	s.Equal(5, second.Quantity)

	v, err := s.agg.List(ctx, s.alice)
	s.Require().NoError(err)
	s.Require().Len(v.Lines, 1)
	s.Equal(5, v.Lines[0].Quantity)
}

func (s *AggregatorTestSuite) TestAddValidation() {
	ctx := context.Background()
	food := s.fx.addFood("Soto", 15000)

	_, err := s.agg.Add(ctx, s.alice, food, 0)
	s.True(errors.Is(err, apperr.ErrInvalidInput))
	_, err = s.agg.Add(ctx, s.alice, uuid.NewString(), 1)
	s.True(errors.Is(err, apperr.ErrNotFound))
	_, err = s.agg.Add(ctx, auth.Identity{UserID: "a", Role: auth.RoleAdmin}, food, 1)
	s.True(errors.Is(err, apperr.ErrUnauthorized))
}

func (s *AggregatorTestSuite) TestListInsertionOrderAndCurrentPrice() {
	ctx := context.Background()
	soto := s.fx.addFood("Soto", 15000)
	nasi := s.fx.addFood("Nasi Box", 25000)

	_, err := s.agg.Add(ctx, s.alice, soto, 1)
	s.Require().NoError(err)
	_, err = s.agg.Add(ctx, s.alice, nasi, 2)
	s.Require().NoError(err)

	v, err := s.agg.List(ctx, s.alice)
	s.Require().NoError(err)
	s.Require().Len(v.Lines, 2)
	s.Equal(soto, v.Lines[0].FoodID)
	s.Equal(nasi, v.Lines[1].FoodID)
	s.True(v.Total.Equal(decimal.NewFromInt(65000)), v.Total.String())

	s.fx.setPrice(nasi, 30000)
	v, err = s.agg.List(ctx, s.alice)
	s.Require().NoError(err)
	s.True(v.Lines[1].Subtotal.Equal(decimal.NewFromInt(60000)), v.Lines[1].Subtotal.String())
	s.True(v.Total.Equal(decimal.NewFromInt(75000)), v.Total.String())
}

func (s *AggregatorTestSuite) TestUpdateAndRemoveScopedToOwner() {
	ctx := context.Background()
	food := s.fx.addFood("Rendang", 40000)
	e, err := s.agg.Add(ctx, s.alice, food, 1)
	s.Require().NoError(err)

	_, err = s.agg.Update(ctx, s.bob, e.ID, 4)
	s.True(errors.Is(err, apperr.ErrNotFound))
	s.True(errors.Is(s.agg.Remove(ctx, s.bob, e.ID), apperr.ErrNotFound))

	_, err = s.agg.Update(ctx, s.alice, e.ID, 0)
	s.True(errors.Is(err, apperr.ErrInvalidInput))

	got, err := s.agg.Update(ctx, s.alice, e.ID, 4)
	s.Require().NoError(err)
	s.Equal(4, got.Quantity)

	s.Require().NoError(s.agg.Remove(ctx, s.alice, e.ID))
	s.True(errors.Is(s.agg.Remove(ctx, s.alice, e.ID), apperr.ErrNotFound))

	v, err := s.agg.List(ctx, s.alice)
	s.Require().NoError(err)
	s.Empty(v.Lines)
	s.True(v.Total.IsZero())
}

func (s *AggregatorTestSuite) TestCartsAreIsolated() {
	ctx := context.Background()
	food := s.fx.addFood("Es Teh", 5000)
	_, err := s.agg.Add(ctx, s.alice, food, 1)
	s.Require().NoError(err)

	v, err := s.agg.List(ctx, s.bob)
	s.Require().NoError(err)
	s.Empty(v.Lines)
}

func (s *AggregatorTestSuite) TestCheckoutEmptiesCartOnlyOnSuccess() {
	ctx := context.Background()
	food := s.fx.addFood("Rendang", 40000)
	_, err := s.agg.Add(ctx, s.alice, food, 2)
	s.Require().NoError(err)

	boom := errors.New("boom")
	err = s.fx.repo.Checkout(ctx, s.alice.UserID, func(_ context.Context, entries []Entry) error {
		s.Len(entries, 1)
		return boom
	})
	s.ErrorIs(err, boom)
	v, err := s.agg.List(ctx, s.alice)
	s.Require().NoError(err)
	s.Len(v.Lines, 1)

	var seen int
	err = s.fx.repo.Checkout(ctx, s.alice.UserID, func(_ context.Context, entries []Entry) error {
		seen = len(entries)
		return nil
	})
	s.Require().NoError(err)
	s.Equal(1, seen)
	v, err = s.agg.List(ctx, s.alice)
	s.Require().NoError(err)
	s.Empty(v.Lines)
}
