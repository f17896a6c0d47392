package warehouse

import (
	"context"

	"github.com/omnistore/ledger-service/internal/model"
)

// Repository is the read-side view of warehouse master data. The ledger never
// mutates warehouses.
type Repository interface {
	Get(ctx context.Context, id string) (*model.Warehouse, error)
	ListActive(ctx context.Context) ([]model.Warehouse, error)
}
