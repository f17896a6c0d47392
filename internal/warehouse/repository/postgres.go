package repository

import (
	"context"
	"database/sql"
	"errors"

	"github.com/jmoiron/sqlx"
	"github.com/omnistore/ledger-service/internal/model"
)

type PGRepository struct {
	DB *sqlx.DB
}

func NewPGRepository(db *sqlx.DB) *PGRepository {
	return &PGRepository{DB: db}
}

func (r *PGRepository) Get(ctx context.Context, id string) (*model.Warehouse, error) {
	var wh model.Warehouse
	query := `SELECT * FROM warehouses WHERE id = $1 LIMIT 1`
	err := r.DB.GetContext(ctx, &wh, query, id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, err
	}
	return &wh, nil
}

func (r *PGRepository) ListActive(ctx context.Context) ([]model.Warehouse, error) {
	var warehouses []model.Warehouse
	query := `SELECT * FROM warehouses WHERE is_active = true ORDER BY code`
	err := r.DB.SelectContext(ctx, &warehouses, query)
	return warehouses, err
}
