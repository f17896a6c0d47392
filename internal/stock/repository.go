package stock

import (
	"context"

	"github.com/omnistore/ledger-service/internal/model"
)

type Repository interface {
	// GetRecord returns nil when no record exists for the pair yet.
	GetRecord(ctx context.Context, warehouseID, itemID string) (*model.StockRecord, error)
	ListByItem(ctx context.Context, itemID string) ([]model.StockRecord, error)

	// SaveWithMovements upserts the records and appends the movements inside
	// one transaction. A failed validation upstream means this is never called,
	// so no partial stock mutation survives a rejected operation.
	SaveWithMovements(ctx context.Context, records []*model.StockRecord, movements []*model.MovementEntry) error

	// CreateIfAbsent inserts zero records, skipping pairs that already exist.
	CreateIfAbsent(ctx context.Context, records []*model.StockRecord) error
}
