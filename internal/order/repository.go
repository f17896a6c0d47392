package order

import (
	"context"

	"github.com/omnistore/ledger-service/internal/model"
)

type Repository interface {
	// GetByID returns the order with its lines, nil when absent.
	GetByID(ctx context.Context, id string) (*model.Order, error)

	// CreateWithEvent persists the order, its lines and the initial status
	// event in one transaction.
	CreateWithEvent(ctx context.Context, order *model.Order, event *model.OrderStatusEvent) error

	// UpdateStatusWithEvent writes the new status and appends the transition
	// event in one transaction.
	UpdateStatusWithEvent(ctx context.Context, order *model.Order, event *model.OrderStatusEvent) error

	ListEvents(ctx context.Context, orderID string) ([]model.OrderStatusEvent, error)
}
