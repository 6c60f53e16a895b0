package orders

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"

	"github.com/ariefcatur/catering-orders/internal/apperr"
	"github.com/ariefcatur/catering-orders/internal/postgres"
)

type PostgresRepo struct{ DB *postgres.DB }

const orderCols = `id, user_id, name, address, phone, total, status, created_at, updated_at`

func (r *PostgresRepo) Create(ctx context.Context, o Order) error {
	return r.DB.WithinTx(ctx, func(ctx context.Context) error {
		q := r.DB.Conn(ctx)
		_, err := q.Exec(ctx, `
			INSERT INTO orders(`+orderCols+`)
			VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)`,
			o.ID, o.UserID, o.Name, o.Address, o.Phone, o.Total, string(o.Status), o.CreatedAt, o.UpdatedAt)
		if postgres.IsUniqueViolation(err) {
			return fmt.Errorf("order %s exists: %w", o.ID, apperr.ErrConflict)
		}
		if err != nil {
			return err
		}
		for _, it := range o.Items {
			_, err := q.Exec(ctx, `
				INSERT INTO order_items(order_id, food_id, stock_id, food_name, quantity, unit_price)
				VALUES ($1, $2, $3, $4, $5, $6)`,
				o.ID, it.FoodID, it.StockID, it.FoodName, it.Quantity, it.UnitPrice)
			if err != nil {
				return err
			}
		}
		return nil
	})
}

func scanOrder(row pgx.Row) (Order, error) {
	var o Order
	var st string
	err := row.Scan(&o.ID, &o.UserID, &o.Name, &o.Address, &o.Phone, &o.Total, &st, &o.CreatedAt, &o.UpdatedAt)
	o.Status = Status(st)
	return o, err
}

func (r *PostgresRepo) Get(ctx context.Context, id string) (Order, error) {
	return r.get(ctx, id, false)
}

func (r *PostgresRepo) get(ctx context.Context, id string, forUpdate bool) (Order, error) {
	if _, err := uuid.Parse(id); err != nil {
		return Order{}, orderNotFound(id)
	}
	sql := `SELECT ` + orderCols + ` FROM orders WHERE id=$1`
	if forUpdate {
		sql += ` FOR UPDATE`
	}
	q := r.DB.Conn(ctx)
	o, err := scanOrder(q.QueryRow(ctx, sql, id))
	if errors.Is(err, pgx.ErrNoRows) {
		return Order{}, orderNotFound(id)
	}
	if err != nil {
		return Order{}, err
	}
	items, err := r.items(ctx, []string{id})
	if err != nil {
		return Order{}, err
	}
	o.Items = items[id]
	return o, nil
}

func (r *PostgresRepo) items(ctx context.Context, ids []string) (map[string][]Item, error) {
	rows, err := r.DB.Conn(ctx).Query(ctx, `
		SELECT order_id, food_id, stock_id, food_name, quantity, unit_price
		FROM order_items WHERE order_id = ANY($1::uuid[]) ORDER BY id`, ids)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := make(map[string][]Item, len(ids))
	for rows.Next() {
		var orderID string
		var it Item
		if err := rows.Scan(&orderID, &it.FoodID, &it.StockID, &it.FoodName, &it.Quantity, &it.UnitPrice); err != nil {
			return nil, err
		}
		out[orderID] = append(out[orderID], it)
	}
	return out, rows.Err()
}

func (r *PostgresRepo) List(ctx context.Context, userID string) ([]Order, error) {
	q := r.DB.Conn(ctx)
	var (
		rows pgx.Rows
		err  error
	)
	if userID == "" {
		rows, err = q.Query(ctx, `SELECT `+orderCols+` FROM orders ORDER BY created_at DESC, id DESC`)
	} else {
		rows, err = q.Query(ctx, `SELECT `+orderCols+` FROM orders WHERE user_id=$1 ORDER BY created_at DESC, id DESC`, userID)
	}
	if err != nil {
		return nil, err
	}
	var out []Order
	var ids []string
	for rows.Next() {
		o, err := scanOrder(rows)
		if err != nil {
			rows.Close()
			return nil, err
		}
		out = append(out, o)
		ids = append(ids, o.ID)
	}
	rows.Close()
	if err := rows.Err(); err != nil {
		return nil, err
	}
	if len(ids) == 0 {
		return out, nil
	}
	items, err := r.items(ctx, ids)
	if err != nil {
		return nil, err
	}
	for i := range out {
		out[i].Items = items[out[i].ID]
	}
	return out, nil
}

// Update holds the order row lock (SELECT ... FOR UPDATE) while fn runs, so
// writes fn makes through ctx commit or roll back with the status change.
func (r *PostgresRepo) Update(ctx context.Context, id string, fn func(context.Context, *Order) error) (Order, error) {
	var out Order
	err := r.DB.WithinTx(ctx, func(ctx context.Context) error {
		cur, err := r.get(ctx, id, true)
		if err != nil {
			return err
		}
		next := cur
		next.Items = append([]Item(nil), cur.Items...)
		if err := fn(ctx, &next); err != nil {
			return err
		}
		if next.Status != cur.Status {
			cur.Status = next.Status
			cur.UpdatedAt = time.Now().UTC()
			_, err := r.DB.Conn(ctx).Exec(ctx,
				`UPDATE orders SET status=$2, updated_at=$3 WHERE id=$1`, id, string(cur.Status), cur.UpdatedAt)
			if err != nil {
				return err
			}
		}
		out = cur
		return nil
	})
	return out, err
}

var _ Repository = (*PostgresRepo)(nil)
