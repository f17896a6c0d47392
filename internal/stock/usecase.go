package stock

import (
	"context"

	"github.com/omnistore/ledger-service/internal/model"
	"github.com/omnistore/ledger-service/internal/stock/dto"
)

// UseCase is the Stock Ledger. Every mutating operation runs its
// read-validate-write cycle under a per-(warehouse, item) lock and persists
// record changes together with their movement entries atomically.
type UseCase interface {
	Adjust(ctx context.Context, input *dto.AdjustInput) (*model.StockRecord, error)
	Transfer(ctx context.Context, input *dto.TransferInput) error
	Reserve(ctx context.Context, warehouseID, itemID string, qty int64) error
	Release(ctx context.Context, input *dto.ReleaseInput) error
	Fulfill(ctx context.Context, input *dto.FulfillInput) error
	Receive(ctx context.Context, input *dto.ReceiveInput) (*model.StockRecord, error)
	ReturnToStock(ctx context.Context, input *dto.ReturnToStockInput) error
	EnsureTracked(ctx context.Context, itemID string) error

	StockOf(ctx context.Context, warehouseID, itemID string) (*model.StockRecord, error)
	StockAcrossWarehouses(ctx context.Context, itemID string) ([]model.StockRecord, error)
	CheckAvailability(ctx context.Context, warehouseID, itemID string, qty int64) (bool, error)
}
