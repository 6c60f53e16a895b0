package payments

import (
	"context"
	"errors"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"

	"github.com/ariefcatur/catering-orders/internal/postgres"
)

type PostgresRepo struct{ DB *postgres.DB }

const cols = `id, order_id, payment_date, status, created_at, updated_at`

func scan(row pgx.Row) (Payment, error) {
	var p Payment
	var st string
	err := row.Scan(&p.ID, &p.OrderID, &p.PaymentDate, &st, &p.CreatedAt, &p.UpdatedAt)
	p.Status = Status(st)
	return p, err
}

func (r *PostgresRepo) Upsert(ctx context.Context, p Payment) (Payment, error) {
	return scan(r.DB.Conn(ctx).QueryRow(ctx, `
		INSERT INTO payments(`+cols+`)
		VALUES ($1, $2, $3, $4, $5, $6)
		ON CONFLICT (order_id) DO UPDATE
		SET status = EXCLUDED.status, payment_date = EXCLUDED.payment_date, updated_at = EXCLUDED.updated_at
		RETURNING `+cols,
		p.ID, p.OrderID, p.PaymentDate, string(p.Status), p.CreatedAt, p.UpdatedAt))
}

func (r *PostgresRepo) ByOrder(ctx context.Context, orderID string) (Payment, error) {
	if _, err := uuid.Parse(orderID); err != nil {
		return Payment{}, notFound("order", orderID)
	}
	p, err := scan(r.DB.Conn(ctx).QueryRow(ctx, `SELECT `+cols+` FROM payments WHERE order_id=$1`, orderID))
	if errors.Is(err, pgx.ErrNoRows) {
		return Payment{}, notFound("order", orderID)
	}
	return p, err
}

func (r *PostgresRepo) Get(ctx context.Context, id string) (Payment, error) {
	if _, err := uuid.Parse(id); err != nil {
		return Payment{}, notFound("id", id)
	}
	p, err := scan(r.DB.Conn(ctx).QueryRow(ctx, `SELECT `+cols+` FROM payments WHERE id=$1`, id))
	if errors.Is(err, pgx.ErrNoRows) {
		return Payment{}, notFound("id", id)
	}
	return p, err
}

func (r *PostgresRepo) List(ctx context.Context) ([]Payment, error) {
	rows, err := r.DB.Conn(ctx).Query(ctx, `SELECT `+cols+` FROM payments ORDER BY payment_date DESC`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []Payment
	for rows.Next() {
		p, err := scan(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, p)
	}
	return out, rows.Err()
}

var _ Repository = (*PostgresRepo)(nil)
