package returns

import (
	"context"

	"github.com/omnistore/ledger-service/internal/model"
)

type Repository interface {
	// GetByID returns the request with its items, nil when absent.
	GetByID(ctx context.Context, id string) (*model.ReturnRequest, error)

	// ListByOrder returns every return opened against the order, items
	// included. Used for duplicate-claim checks.
	ListByOrder(ctx context.Context, orderID string) ([]model.ReturnRequest, error)

	// CreateWithEvent persists the request, its items and the initial status
	// event in one transaction.
	CreateWithEvent(ctx context.Context, r *model.ReturnRequest, event *model.ReturnStatusEvent) error

	// UpdateWithEvent writes the request header and items, appending the event
	// when one is given (nil for item inspections that change no status), all
	// in one transaction.
	UpdateWithEvent(ctx context.Context, r *model.ReturnRequest, event *model.ReturnStatusEvent) error

	ListEvents(ctx context.Context, returnID string) ([]model.ReturnStatusEvent, error)
}
