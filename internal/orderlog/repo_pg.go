package orderlog

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

type repoPG struct{ pool *pgxpool.Pool }

func NewRepoPG(pool *pgxpool.Pool) Repository {
	return &repoPG{pool: pool}
}

const orderCols = `id, order_ref, customer_id, supplier_id, item_count,
	total_quantity, total_price, items, submitted_at`

func (r *repoPG) scanOrder(row pgx.Row) (*OrderRecord, error) {
	var rec OrderRecord
	var items []byte
	err := row.Scan(&rec.ID, &rec.OrderRef, &rec.CustomerID, &rec.SupplierID, &rec.ItemCount,
		&rec.TotalQuantity, &rec.TotalPrice, &items, &rec.SubmittedAt)
	if err != nil {
		return nil, err
	}
	if len(items) > 0 {
		if err := json.Unmarshal(items, &rec.Items); err != nil {
			return nil, fmt.Errorf("decode order items: %w", err)
		}
	}
	return &rec, nil
}

func (r *repoPG) Create(ctx context.Context, rec *OrderRecord) error {
	if rec.ID == uuid.Nil {
		rec.ID = uuid.New()
	}
	items, err := json.Marshal(rec.Items)
	if err != nil {
		return fmt.Errorf("encode order items: %w", err)
	}
	_, err = r.pool.Exec(ctx, `
		INSERT INTO order_log (id, order_ref, customer_id, supplier_id, item_count,
			total_quantity, total_price, items)
		VALUES ($1,$2,$3,$4,$5,$6,$7,$8)`,
		rec.ID, rec.OrderRef, rec.CustomerID, rec.SupplierID, rec.ItemCount,
		rec.TotalQuantity, rec.TotalPrice, items)
	return err
}

func (r *repoPG) GetByID(ctx context.Context, id uuid.UUID) (*OrderRecord, error) {
	return r.scanOrder(r.pool.QueryRow(ctx, `SELECT `+orderCols+` FROM order_log WHERE id = $1`, id))
}

func (r *repoPG) ListByCustomer(ctx context.Context, customerID string, limit, offset int) ([]*OrderRecord, int, error) {
	var total int
	if err := r.pool.QueryRow(ctx, `SELECT COUNT(*) FROM order_log WHERE customer_id = $1`, customerID).Scan(&total); err != nil {
		return nil, 0, err
	}
	rows, err := r.pool.Query(ctx, `SELECT `+orderCols+` FROM order_log WHERE customer_id = $1 ORDER BY submitted_at DESC LIMIT $2 OFFSET $3`,
		customerID, limit, offset)
	if err != nil {
		return nil, 0, err
	}
	defer rows.Close()
	return r.collect(rows, total)
}

func (r *repoPG) List(ctx context.Context, limit, offset int) ([]*OrderRecord, int, error) {
	var total int
	if err := r.pool.QueryRow(ctx, `SELECT COUNT(*) FROM order_log`).Scan(&total); err != nil {
		return nil, 0, err
	}
	rows, err := r.pool.Query(ctx, `SELECT `+orderCols+` FROM order_log ORDER BY submitted_at DESC LIMIT $1 OFFSET $2`, limit, offset)
	if err != nil {
		return nil, 0, err
	}
	defer rows.Close()
	return r.collect(rows, total)
}

func (r *repoPG) collect(rows pgx.Rows, total int) ([]*OrderRecord, int, error) {
	var items []*OrderRecord
	for rows.Next() {
		rec, err := r.scanOrder(rows)
		if err != nil {
			return nil, 0, err
		}
		items = append(items, rec)
	}
	if err := rows.Err(); err != nil {
		return nil, 0, err
	}
	return items, total, nil
}
