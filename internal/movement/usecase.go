package movement

import (
	"context"

	"github.com/omnistore/ledger-service/internal/model"
	"github.com/omnistore/ledger-service/internal/movement/dto"
)

// UseCase exposes the audit trail and the kardex accounting view on top of it.
type UseCase interface {
	// Search runs against the full audit trail, all movement kinds included.
	Search(ctx context.Context, f *dto.MovementFilters) ([]model.MovementEntry, int, error)
	// Kardex is the simplified accounting view: adjustments, purchases, sales
	// and returns only.
	Kardex(ctx context.Context, f *dto.MovementFilters) ([]model.MovementEntry, int, error)
	ByReference(ctx context.Context, table, id string) ([]model.MovementEntry, error)
	LastBalance(ctx context.Context, warehouseID, itemID string) (int64, error)
}
