package cart

import (
	"context"
	"errors"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"

	"github.com/ariefcatur/catering-orders/internal/postgres"
)

type PostgresRepo struct{ DB *postgres.DB }

const entryColumns = `id, user_id, food_id, quantity, created_at`

func scanEntry(row pgx.Row) (Entry, error) {
	var e Entry
	err := row.Scan(&e.ID, &e.UserID, &e.FoodID, &e.Quantity, &e.CreatedAt)
	return e, err
}

func (r *PostgresRepo) Merge(ctx context.Context, e Entry) (Entry, error) {
	return scanEntry(r.DB.Conn(ctx).QueryRow(ctx, `
		INSERT INTO cart_entries(id, user_id, food_id, quantity, created_at)
		VALUES ($1, $2, $3, $4, $5)
		ON CONFLICT (user_id, food_id)
		DO UPDATE SET quantity = cart_entries.quantity + EXCLUDED.quantity
		RETURNING `+entryColumns, e.ID, e.UserID, e.FoodID, e.Quantity, e.CreatedAt))
}

func (r *PostgresRepo) SetQuantity(ctx context.Context, userID, id string, qty int) (Entry, error) {
	if _, err := uuid.Parse(id); err != nil {
		return Entry{}, notFound(id)
	}
	e, err := scanEntry(r.DB.Conn(ctx).QueryRow(ctx, `
		UPDATE cart_entries SET quantity=$3
		WHERE id=$1 AND user_id=$2
		RETURNING `+entryColumns, id, userID, qty))
	if errors.Is(err, pgx.ErrNoRows) {
		return Entry{}, notFound(id)
	}
	return e, err
}

func (r *PostgresRepo) Delete(ctx context.Context, userID, id string) error {
	if _, err := uuid.Parse(id); err != nil {
		return notFound(id)
	}
	ct, err := r.DB.Conn(ctx).Exec(ctx, `DELETE FROM cart_entries WHERE id=$1 AND user_id=$2`, id, userID)
	if err != nil {
		return err
	}
	if ct.RowsAffected() == 0 {
		return notFound(id)
	}
	return nil
}

func (r *PostgresRepo) List(ctx context.Context, userID string) ([]Entry, error) {
	return r.list(ctx, `SELECT `+entryColumns+` FROM cart_entries WHERE user_id=$1 ORDER BY seq`, userID)
}

// Checkout holds the row locks of the cart until the caller's transaction ends.
// A concurrent checkout waits on them and then finds the rows gone.
func (r *PostgresRepo) Checkout(ctx context.Context, userID string, fn func(ctx context.Context, entries []Entry) error) error {
	entries, err := r.list(ctx, `SELECT `+entryColumns+` FROM cart_entries WHERE user_id=$1 ORDER BY seq FOR UPDATE`, userID)
	if err != nil {
		return err
	}
	if err := fn(ctx, entries); err != nil {
		return err
	}
	if len(entries) == 0 {
		return nil
	}
	ids := make([]string, 0, len(entries))
	for _, e := range entries {
		ids = append(ids, e.ID)
	}
	_, err = r.DB.Conn(ctx).Exec(ctx, `DELETE FROM cart_entries WHERE user_id=$1 AND id = ANY($2::uuid[])`, userID, ids)
	return err
}

func (r *PostgresRepo) list(ctx context.Context, sql, userID string) ([]Entry, error) {
	rows, err := r.DB.Conn(ctx).Query(ctx, sql, userID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []Entry
	for rows.Next() {
		e, err := scanEntry(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, e)
	}
	return out, rows.Err()
}

var _ Repository = (*PostgresRepo)(nil)
