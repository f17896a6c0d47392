package movement

import (
	"context"

	"github.com/omnistore/ledger-service/internal/model"
	"github.com/omnistore/ledger-service/internal/movement/dto"
)

// Repository reads the movement log. Appending happens inside the Stock
// Ledger's transactions; nothing here mutates entries.
type Repository interface {
	Search(ctx context.Context, f *dto.MovementFilters) ([]model.MovementEntry, int, error)
	ByReference(ctx context.Context, table, id string) ([]model.MovementEntry, error)
	// LastBalance returns the most recent resulting balance for the pair, zero
	// when no movement has been logged yet.
	LastBalance(ctx context.Context, warehouseID, itemID string) (int64, error)
}
