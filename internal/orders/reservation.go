package orders

import (
	"context"
	"errors"
	"sort"

	"github.com/rs/zerolog"

	"github.com/ariefcatur/catering-orders/internal/apperr"
)

// Ledger is the stock side of an order.
type Ledger interface {
	Reserve(ctx context.Context, stockID string, qty int) error
	Release(ctx context.Context, stockID string, qty int) error
}

type need struct {
	stockID string
	qty     int
}

// needs sums quantities per stock item, ordered by stock id so concurrent orders
// always lock items in the same order.
func needs(items []Item) []need {
	sum := map[string]int{}
	for _, it := range items {
		sum[it.StockID] += it.Quantity
	}
	out := make([]need, 0, len(sum))
	for id, q := range sum {
		out = append(out, need{stockID: id, qty: q})
	}
	sort.Slice(out, func(i, j int) bool { return out[i].stockID < out[j].stockID })
	return out
}

// reserveAll reserves every line or none: on the first failure the reservations
// already taken are released before the error is returned.
func reserveAll(ctx context.Context, l Ledger, log zerolog.Logger, items []Item) ([]need, error) {
	all := needs(items)
	taken := make([]need, 0, len(all))
	for _, n := range all {
		if err := l.Reserve(ctx, n.stockID, n.qty); err != nil {
			releaseAll(ctx, l, log, taken)
			return nil, err
		}
		taken = append(taken, n)
	}
	return taken, nil
}

// releaseAll ignores cancellation of ctx.
func releaseAll(ctx context.Context, l Ledger, log zerolog.Logger, taken []need) {
	ctx = context.WithoutCancel(ctx)
	for _, n := range taken {
		if err := l.Release(ctx, n.stockID, n.qty); err != nil {
			log.Error().Err(err).Str("stock_id", n.stockID).Int("qty", n.qty).Msg("compensating release failed")
		}
	}
}

// releaseItems returns a cancelled order's quantities. Stock items deleted since
// the order was placed are skipped with a warning.
func releaseItems(ctx context.Context, l Ledger, log zerolog.Logger, orderID string, items []Item) error {
	for _, n := range needs(items) {
		err := l.Release(ctx, n.stockID, n.qty)
		if errors.Is(err, apperr.ErrNotFound) {
			log.Warn().Str("order_id", orderID).Str("stock_id", n.stockID).Int("qty", n.qty).Msg("stock item gone, release skipped")
			continue
		}
		if err != nil {
			return err
		}
	}
	return nil
}
