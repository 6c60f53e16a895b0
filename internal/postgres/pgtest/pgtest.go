// Package pgtest opens the integration database for repository tests. Tests are
// skipped unless TEST_POSTGRES_DSN points at a disposable database.
package pgtest

import (
	"context"
	"os"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/require"

	"github.com/ariefcatur/catering-orders/internal/postgres"
)

const envDSN = "TEST_POSTGRES_DSN"

func Open(t *testing.T) *postgres.DB {
	t.Helper()
	dsn := os.Getenv(envDSN)
	if dsn == "" {
		t.Skipf("%s not set", envDSN)
	}
	require.NoError(t, postgres.Migrate(dsn))

	ctx := context.Background()
	db, err := postgres.Open(ctx, dsn)
	require.NoError(t, err)
	t.Cleanup(db.Close)

	_, err = db.Pool.Exec(ctx, `TRUNCATE payments, order_items, orders, cart_entries, foods, categories, stocks`)
	require.NoError(t, err)
	return db
}

// SeedFood inserts a stock item with qty units and a food drawing from it.
func SeedFood(t *testing.T, db *postgres.DB, name string, price int64, qty int) (foodID, stockID string) {
	t.Helper()
	ctx := context.Background()
	foodID, stockID = uuid.NewString(), uuid.NewString()
	_, err := db.Pool.Exec(ctx, `INSERT INTO stocks(id, name, quantity) VALUES ($1, $2, $3)`, stockID, name, qty)
	require.NoError(t, err)
	_, err = db.Pool.Exec(ctx, `INSERT INTO foods(id, name, price, stock_id) VALUES ($1, $2, $3, $4)`, foodID, name, price, stockID)
	require.NoError(t, err)
	return foodID, stockID
}

// SetPrice changes a food's catalog price.
func SetPrice(t *testing.T, db *postgres.DB, foodID string, price int64) {
	t.Helper()
	_, err := db.Pool.Exec(context.Background(), `UPDATE foods SET price=$2 WHERE id=$1`, foodID, price)
	require.NoError(t, err)
}
