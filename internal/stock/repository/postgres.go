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

func (r *PGRepository) GetRecord(ctx context.Context, warehouseID, itemID string) (*model.StockRecord, error) {
	var rec model.StockRecord
	query := `SELECT * FROM stock_records WHERE warehouse_id = $1 AND item_id = $2`
	err := r.DB.GetContext(ctx, &rec, query, warehouseID, itemID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil // Caller decides whether absence means NotFound or lazy create
		}
		return nil, err
	}
	return &rec, nil
}

func (r *PGRepository) ListByItem(ctx context.Context, itemID string) ([]model.StockRecord, error) {
	var records []model.StockRecord
	query := `SELECT * FROM stock_records WHERE item_id = $1 ORDER BY warehouse_id`
	err := r.DB.SelectContext(ctx, &records, query, itemID)
	return records, err
}

const upsertRecordQuery = `
    INSERT INTO stock_records (id, warehouse_id, item_id, quantity, reserved_quantity, updated_at)
    VALUES (:id, :warehouse_id, :item_id, :quantity, :reserved_quantity, :updated_at)
    ON CONFLICT (warehouse_id, item_id)
    DO UPDATE SET
        quantity = EXCLUDED.quantity,
        reserved_quantity = EXCLUDED.reserved_quantity,
        updated_at = EXCLUDED.updated_at
`

const insertMovementQuery = `
    INSERT INTO movement_entries (
        id, warehouse_id, item_id, kind, quantity_delta, resulting_balance,
        unit_cost, description, reference_table, reference_id, actor_id, created_at
    )
    VALUES (
        :id, :warehouse_id, :item_id, :kind, :quantity_delta, :resulting_balance,
        :unit_cost, :description, :reference_table, :reference_id, :actor_id, :created_at
    )
`

func (r *PGRepository) SaveWithMovements(ctx context.Context, records []*model.StockRecord, movements []*model.MovementEntry) error {
	tx, err := r.DB.BeginTxx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()

	for _, rec := range records {
		if _, err := tx.NamedExecContext(ctx, upsertRecordQuery, rec); err != nil {
			return fmt.Errorf("failed to upsert stock record %s/%s: %w", rec.WarehouseID, rec.ItemID, err)
		}
	}

	for _, m := range movements {
		if _, err := tx.NamedExecContext(ctx, insertMovementQuery, m); err != nil {
			return fmt.Errorf("failed to append movement entry: %w", err)
		}
	}

	return tx.Commit()
}

func (r *PGRepository) CreateIfAbsent(ctx context.Context, records []*model.StockRecord) error {
	query := `
        INSERT INTO stock_records (id, warehouse_id, item_id, quantity, reserved_quantity, updated_at)
        VALUES (:id, :warehouse_id, :item_id, :quantity, :reserved_quantity, :updated_at)
        ON CONFLICT (warehouse_id, item_id) DO NOTHING
    `
	for _, rec := range records {
		if _, err := r.DB.NamedExecContext(ctx, query, rec); err != nil {
			return fmt.Errorf("failed to create stock record %s/%s: %w", rec.WarehouseID, rec.ItemID, err)
		}
	}
	return nil
}
