package catalog

import (
	"context"

	"github.com/omnistore/ledger-service/internal/model"
)

// Repository is the read-side view of the item master. Order creation uses it
// for active checks and current prices; the ledger never writes items.
type Repository interface {
	Get(ctx context.Context, id string) (*model.Item, error)
	ByIDs(ctx context.Context, ids []string) ([]model.Item, error)
}
