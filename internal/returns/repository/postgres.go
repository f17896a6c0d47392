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

const insertReturnQuery = `
    INSERT INTO return_requests (
        id, order_id, customer_id, status, reason, refund_amount, restocking_fee,
        shipping_cost_refund, refund_method, approved_at, received_at, refunded_at,
        closed_at, created_at, updated_at
    )
    VALUES (
        :id, :order_id, :customer_id, :status, :reason, :refund_amount, :restocking_fee,
        :shipping_cost_refund, :refund_method, :approved_at, :received_at, :refunded_at,
        :closed_at, :created_at, :updated_at
    )
`

const upsertReturnItemQuery = `
    INSERT INTO return_items (
        id, return_id, order_line_id, item_id, quantity, refund_amount,
        condition, restock_approved, inspector_id, inspected_at
    )
    VALUES (
        :id, :return_id, :order_line_id, :item_id, :quantity, :refund_amount,
        :condition, :restock_approved, :inspector_id, :inspected_at
    )
    ON CONFLICT (id)
    DO UPDATE SET
        refund_amount = EXCLUDED.refund_amount,
        condition = EXCLUDED.condition,
        restock_approved = EXCLUDED.restock_approved,
        inspector_id = EXCLUDED.inspector_id,
        inspected_at = EXCLUDED.inspected_at
`

const updateReturnQuery = `
    UPDATE return_requests SET
        status = :status,
        refund_amount = :refund_amount,
        restocking_fee = :restocking_fee,
        shipping_cost_refund = :shipping_cost_refund,
        refund_method = :refund_method,
        approved_at = :approved_at,
        received_at = :received_at,
        refunded_at = :refunded_at,
        closed_at = :closed_at,
        updated_at = :updated_at
    WHERE id = :id
`

const insertReturnEventQuery = `
    INSERT INTO return_status_events (id, return_id, status, comment, actor_id, created_at)
    VALUES (:id, :return_id, :status, :comment, :actor_id, :created_at)
`

func (r *PGRepository) GetByID(ctx context.Context, id string) (*model.ReturnRequest, error) {
	var req model.ReturnRequest
	err := r.DB.GetContext(ctx, &req, `SELECT * FROM return_requests WHERE id = $1 LIMIT 1`, id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, err
	}

	err = r.DB.SelectContext(ctx, &req.Items, `SELECT * FROM return_items WHERE return_id = $1 ORDER BY id`, id)
	if err != nil {
		return nil, err
	}
	return &req, nil
}

func (r *PGRepository) ListByOrder(ctx context.Context, orderID string) ([]model.ReturnRequest, error) {
	var requests []model.ReturnRequest
	query := `SELECT * FROM return_requests WHERE order_id = $1 ORDER BY created_at`
	if err := r.DB.SelectContext(ctx, &requests, query, orderID); err != nil {
		return nil, err
	}

	for i := range requests {
		err := r.DB.SelectContext(ctx, &requests[i].Items,
			`SELECT * FROM return_items WHERE return_id = $1 ORDER BY id`, requests[i].ID)
		if err != nil {
			return nil, err
		}
	}
	return requests, nil
}

func (r *PGRepository) CreateWithEvent(ctx context.Context, req *model.ReturnRequest, event *model.ReturnStatusEvent) error {
	tx, err := r.DB.BeginTxx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()

	if _, err := tx.NamedExecContext(ctx, insertReturnQuery, req); err != nil {
		return fmt.Errorf("failed to insert return request: %w", err)
	}
	for i := range req.Items {
		if _, err := tx.NamedExecContext(ctx, upsertReturnItemQuery, &req.Items[i]); err != nil {
			return fmt.Errorf("failed to insert return item: %w", err)
		}
	}
	if _, err := tx.NamedExecContext(ctx, insertReturnEventQuery, event); err != nil {
		return fmt.Errorf("failed to insert return status event: %w", err)
	}

	return tx.Commit()
}

func (r *PGRepository) UpdateWithEvent(ctx context.Context, req *model.ReturnRequest, event *model.ReturnStatusEvent) error {
	tx, err := r.DB.BeginTxx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()

	if _, err := tx.NamedExecContext(ctx, updateReturnQuery, req); err != nil {
		return fmt.Errorf("failed to update return request: %w", err)
	}
	for i := range req.Items {
		if _, err := tx.NamedExecContext(ctx, upsertReturnItemQuery, &req.Items[i]); err != nil {
			return fmt.Errorf("failed to update return item: %w", err)
		}
	}
	if event != nil {
		if _, err := tx.NamedExecContext(ctx, insertReturnEventQuery, event); err != nil {
			return fmt.Errorf("failed to insert return status event: %w", err)
		}
	}

	return tx.Commit()
}

func (r *PGRepository) ListEvents(ctx context.Context, returnID string) ([]model.ReturnStatusEvent, error) {
	var events []model.ReturnStatusEvent
	query := `SELECT * FROM return_status_events WHERE return_id = $1 ORDER BY created_at`
	err := r.DB.SelectContext(ctx, &events, query, returnID)
	return events, err
}
