package catalog

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"

	"github.com/ariefcatur/catering-orders/internal/apperr"
	"github.com/ariefcatur/catering-orders/internal/postgres"
)

type PostgresCatalog struct{ DB *postgres.DB }

const foodColumns = `id, COALESCE(category_id::text, ''), name, price, image, stock_id`

func scanFood(row pgx.Row) (Food, error) {
	var f Food
	err := row.Scan(&f.ID, &f.CategoryID, &f.Name, &f.Price, &f.Image, &f.StockID)
	return f, err
}

func (c *PostgresCatalog) Food(ctx context.Context, id string) (Food, error) {
	if _, err := uuid.Parse(id); err != nil {
		return Food{}, fmt.Errorf("food %s: %w", id, apperr.ErrNotFound)
	}
	f, err := scanFood(c.DB.Conn(ctx).QueryRow(ctx, `SELECT `+foodColumns+` FROM foods WHERE id=$1`, id))
	if errors.Is(err, pgx.ErrNoRows) {
		return Food{}, fmt.Errorf("food %s: %w", id, apperr.ErrNotFound)
	}
	return f, err
}

func (c *PostgresCatalog) Foods(ctx context.Context, ids []string) (map[string]Food, error) {
	valid := make([]string, 0, len(ids))
	for _, id := range ids {
		if _, err := uuid.Parse(id); err == nil {
			valid = append(valid, id)
		}
	}
	out := make(map[string]Food, len(valid))
	if len(valid) == 0 {
		return out, nil
	}
	rows, err := c.DB.Conn(ctx).Query(ctx, `SELECT `+foodColumns+` FROM foods WHERE id = ANY($1::uuid[])`, valid)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	for rows.Next() {
		f, err := scanFood(rows)
		if err != nil {
			return nil, err
		}
		out[f.ID] = f
	}
	return out, rows.Err()
}

var _ Reader = (*PostgresCatalog)(nil)
