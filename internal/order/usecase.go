package order

import (
	"context"

	"github.com/omnistore/ledger-service/internal/model"
	"github.com/omnistore/ledger-service/internal/order/dto"
)

// UseCase drives the order state machine. Creation reserves stock, cancellation
// releases it, shipment fulfills it; plain status updates move no stock.
type UseCase interface {
	Create(ctx context.Context, input *dto.CreateOrderInput) (*model.Order, error)
	GetOrder(ctx context.Context, id string) (*model.Order, error)
	Transition(ctx context.Context, input *dto.TransitionInput) (*model.Order, error)
	Cancel(ctx context.Context, input *dto.CancelInput) (*model.Order, error)
	MarkShipped(ctx context.Context, input *dto.MarkShippedInput) (*model.Order, error)
	History(ctx context.Context, orderID string) ([]model.OrderStatusEvent, error)
}
