package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"

	"github.com/jmoiron/sqlx"
	"github.com/omnistore/ledger-service/internal/model"
	"github.com/omnistore/ledger-service/internal/movement/dto"
)

type PGRepository struct {
	DB *sqlx.DB
}

func NewPGRepository(db *sqlx.DB) *PGRepository {
	return &PGRepository{DB: db}
}

func (r *PGRepository) Search(ctx context.Context, f *dto.MovementFilters) ([]model.MovementEntry, int, error) {
	conditions := []string{}
	args := map[string]interface{}{}

	if f.WarehouseID != "" {
		conditions = append(conditions, "warehouse_id = :warehouse_id")
		args["warehouse_id"] = f.WarehouseID
	}
	if f.ItemID != "" {
		conditions = append(conditions, "item_id = :item_id")
		args["item_id"] = f.ItemID
	}
	if len(f.Kinds) > 0 {
		conditions = append(conditions, "kind IN (:kinds)")
		args["kinds"] = f.Kinds
	}
	if f.Query != "" {
		conditions = append(conditions, "description ILIKE :query")
		args["query"] = "%" + f.Query + "%"
	}
	if f.StartDate != nil {
		conditions = append(conditions, "created_at >= :start_date")
		args["start_date"] = *f.StartDate
	}
	if f.EndDate != nil {
		conditions = append(conditions, "created_at <= :end_date")
		args["end_date"] = *f.EndDate
	}

	whereClause := ""
	if len(conditions) > 0 {
		whereClause = " WHERE " + strings.Join(conditions, " AND ")
	}

	count, err := r.count(ctx, whereClause, args)
	if err != nil {
		return nil, 0, err
	}

	query := "SELECT * FROM movement_entries" + whereClause + " ORDER BY created_at DESC"
	if f.PageSize > 0 {
		page := f.Page
		if page < 1 {
			page = 1
		}
		query += fmt.Sprintf(" LIMIT %d OFFSET %d", f.PageSize, (page-1)*f.PageSize)
	}

	query, posArgs, err := bindNamed(r.DB, query, args)
	if err != nil {
		return nil, 0, err
	}

	var entries []model.MovementEntry
	err = r.DB.SelectContext(ctx, &entries, query, posArgs...)
	return entries, count, err
}

func (r *PGRepository) count(ctx context.Context, whereClause string, args map[string]interface{}) (int, error) {
	query, posArgs, err := bindNamed(r.DB, "SELECT count(*) FROM movement_entries"+whereClause, args)
	if err != nil {
		return 0, err
	}
	var count int
	err = r.DB.GetContext(ctx, &count, query, posArgs...)
	return count, err
}

// bindNamed resolves named parameters and expands IN slices for the driver.
func bindNamed(db *sqlx.DB, query string, args map[string]interface{}) (string, []interface{}, error) {
	query, posArgs, err := sqlx.Named(query, args)
	if err != nil {
		return "", nil, err
	}
	query, posArgs, err = sqlx.In(query, posArgs...)
	if err != nil {
		return "", nil, err
	}
	return db.Rebind(query), posArgs, nil
}

func (r *PGRepository) ByReference(ctx context.Context, table, id string) ([]model.MovementEntry, error) {
	var entries []model.MovementEntry
	query := `
        SELECT * FROM movement_entries
        WHERE reference_table = $1 AND reference_id = $2
        ORDER BY created_at
    `
	err := r.DB.SelectContext(ctx, &entries, query, table, id)
	return entries, err
}

func (r *PGRepository) LastBalance(ctx context.Context, warehouseID, itemID string) (int64, error) {
	var balance int64
	query := `
        SELECT resulting_balance FROM movement_entries
        WHERE warehouse_id = $1 AND item_id = $2
        ORDER BY created_at DESC
        LIMIT 1
    `
	err := r.DB.GetContext(ctx, &balance, query, warehouseID, itemID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return 0, nil
		}
		return 0, err
	}
	return balance, nil
}
