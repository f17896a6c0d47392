package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/jmoiron/sqlx"
	"github.com/omnistore/ledger-service/internal/model"
)

type PGRepository struct {
	DB *sqlx.DB
}

func NewPGRepository(db *sqlx.DB) *PGRepository {
	return &PGRepository{DB: db}
}

const insertOrderQuery = `
    INSERT INTO orders (id, customer_id, status, total, shipping_address, billing_address, created_at, updated_at)
    VALUES (:id, :customer_id, :status, :total, :shipping_address, :billing_address, :created_at, :updated_at)
`

const insertLineQuery = `
    INSERT INTO order_lines (id, order_id, item_id, sku, name, quantity, unit_price, line_total)
    VALUES (:id, :order_id, :item_id, :sku, :name, :quantity, :unit_price, :line_total)
`

const insertOrderEventQuery = `
    INSERT INTO order_status_events (id, order_id, status, comment, actor_id, created_at)
    VALUES (:id, :order_id, :status, :comment, :actor_id, :created_at)
`

func (r *PGRepository) GetByID(ctx context.Context, id string) (*model.Order, error) {
	var o model.Order
	err := r.DB.GetContext(ctx, &o, `SELECT * FROM orders WHERE id = $1 LIMIT 1`, id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, err
	}

	err = r.DB.SelectContext(ctx, &o.Lines, `SELECT * FROM order_lines WHERE order_id = $1 ORDER BY id`, id)
	if err != nil {
		return nil, err
	}
	return &o, nil
}

func (r *PGRepository) CreateWithEvent(ctx context.Context, order *model.Order, event *model.OrderStatusEvent) error {
	tx, err := r.DB.BeginTxx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()

	if _, err := tx.NamedExecContext(ctx, insertOrderQuery, order); err != nil {
		return fmt.Errorf("failed to insert order: %w", err)
	}
	for i := range order.Lines {
		if _, err := tx.NamedExecContext(ctx, insertLineQuery, &order.Lines[i]); err != nil {
			return fmt.Errorf("failed to insert order line: %w", err)
		}
	}
	if _, err := tx.NamedExecContext(ctx, insertOrderEventQuery, event); err != nil {
		return fmt.Errorf("failed to insert order status event: %w", err)
	}

	return tx.Commit()
}

func (r *PGRepository) UpdateStatusWithEvent(ctx context.Context, order *model.Order, event *model.OrderStatusEvent) error {
	tx, err := r.DB.BeginTxx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()

	updateQuery := `UPDATE orders SET status = :status, updated_at = :updated_at WHERE id = :id`
	if _, err := tx.NamedExecContext(ctx, updateQuery, order); err != nil {
		return fmt.Errorf("failed to update order status: %w", err)
	}
	if _, err := tx.NamedExecContext(ctx, insertOrderEventQuery, event); err != nil {
		return fmt.Errorf("failed to insert order status event: %w", err)
	}

	return tx.Commit()
}

func (r *PGRepository) ListEvents(ctx context.Context, orderID string) ([]model.OrderStatusEvent, error) {
	var events []model.OrderStatusEvent
	query := `SELECT * FROM order_status_events WHERE order_id = $1 ORDER BY created_at`
	err := r.DB.SelectContext(ctx, &events, query, orderID)
	return events, err
}
