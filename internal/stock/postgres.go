package stock

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"

	"github.com/ariefcatur/catering-orders/internal/apperr"
	"github.com/ariefcatur/catering-orders/internal/postgres"
)

// PostgresRepo relies on single conditional UPDATE statements: the row lock taken
// by the UPDATE serializes concurrent reservations of the same item.
type PostgresRepo struct{ DB *postgres.DB }

func notFound(id string) error { return fmt.Errorf("stock item %s: %w", id, apperr.ErrNotFound) }

func (r *PostgresRepo) Create(ctx context.Context, it Item) error {
	_, err := r.DB.Conn(ctx).Exec(ctx, `
		INSERT INTO stocks(id, name, quantity, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5)`, it.ID, it.Name, it.Quantity, it.CreatedAt, it.UpdatedAt)
	if postgres.IsUniqueViolation(err) {
		return fmt.Errorf("stock item %s exists: %w", it.ID, apperr.ErrConflict)
	}
	return err
}

func (r *PostgresRepo) Get(ctx context.Context, id string) (Item, error) {
	if _, err := uuid.Parse(id); err != nil {
		return Item{}, notFound(id)
	}
	var it Item
	err := r.DB.Conn(ctx).QueryRow(ctx, `
		SELECT id, name, quantity, created_at, updated_at FROM stocks WHERE id=$1`, id).
		Scan(&it.ID, &it.Name, &it.Quantity, &it.CreatedAt, &it.UpdatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return Item{}, notFound(id)
	}
	return it, err
}

func (r *PostgresRepo) List(ctx context.Context) ([]Item, error) {
	rows, err := r.DB.Conn(ctx).Query(ctx, `
		SELECT id, name, quantity, created_at, updated_at FROM stocks ORDER BY name`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []Item
	for rows.Next() {
		var it Item
		if err := rows.Scan(&it.ID, &it.Name, &it.Quantity, &it.CreatedAt, &it.UpdatedAt); err != nil {
			return nil, err
		}
		out = append(out, it)
	}
	return out, rows.Err()
}

func (r *PostgresRepo) Delete(ctx context.Context, id string) error {
	if _, err := uuid.Parse(id); err != nil {
		return notFound(id)
	}
	ct, err := r.DB.Conn(ctx).Exec(ctx, `DELETE FROM stocks WHERE id=$1`, id)
	if postgres.IsForeignKeyViolation(err) {
		return fmt.Errorf("stock item %s is still linked to foods: %w", id, apperr.ErrConflict)
	}
	if err != nil {
		return err
	}
	if ct.RowsAffected() == 0 {
		return notFound(id)
	}
	return nil
}

func (r *PostgresRepo) Decrement(ctx context.Context, id string, qty int) (int, error) {
	if _, err := uuid.Parse(id); err != nil {
		return 0, notFound(id)
	}
	q := r.DB.Conn(ctx)
	var left int
	err := q.QueryRow(ctx, `
		UPDATE stocks SET quantity = quantity - $2, updated_at = now()
		WHERE id = $1 AND quantity >= $2
		RETURNING quantity`, id, qty).Scan(&left)
	if err == nil {
		return left, nil
	}
	if !errors.Is(err, pgx.ErrNoRows) {
		return 0, err
	}
	// nothing updated: either the item is missing or it is short
	var have int
	err = q.QueryRow(ctx, `SELECT quantity FROM stocks WHERE id=$1`, id).Scan(&have)
	if errors.Is(err, pgx.ErrNoRows) {
		return 0, notFound(id)
	}
	if err != nil {
		return 0, err
	}
	return have, fmt.Errorf("%s has %d, need %d: %w", id, have, qty, apperr.ErrInsufficientStock)
}

func (r *PostgresRepo) Increment(ctx context.Context, id string, qty int) (int, error) {
	if _, err := uuid.Parse(id); err != nil {
		return 0, notFound(id)
	}
	var left int
	err := r.DB.Conn(ctx).QueryRow(ctx, `
		UPDATE stocks SET quantity = quantity + $2, updated_at = now()
		WHERE id = $1
		RETURNING quantity`, id, qty).Scan(&left)
	if errors.Is(err, pgx.ErrNoRows) {
		return 0, notFound(id)
	}
	return left, err
}

func (r *PostgresRepo) Set(ctx context.Context, id string, qty int) error {
	if _, err := uuid.Parse(id); err != nil {
		return notFound(id)
	}
	ct, err := r.DB.Conn(ctx).Exec(ctx, `UPDATE stocks SET quantity=$2, updated_at=now() WHERE id=$1`, id, qty)
	if postgres.IsCheckViolation(err) {
		return fmt.Errorf("quantity %d: %w", qty, apperr.ErrInvalidInput)
	}
	if err != nil {
		return err
	}
	if ct.RowsAffected() == 0 {
		return notFound(id)
	}
	return nil
}

var _ Repository = (*PostgresRepo)(nil)
