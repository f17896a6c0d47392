package returns

import (
	"context"

	"github.com/omnistore/ledger-service/internal/model"
	"github.com/omnistore/ledger-service/internal/returns/dto"
)

// UseCase drives the RMA state machine: approval, physical receipt, per-item
// inspection, refund computation and conditional restock on close. It reads
// order data to seed its records but never mutates order state.
type UseCase interface {
	Open(ctx context.Context, input *dto.OpenReturnInput) (*model.ReturnRequest, error)
	Get(ctx context.Context, id string) (*model.ReturnRequest, error)
	ApproveOrReject(ctx context.Context, input *dto.ApproveOrRejectInput) (*model.ReturnRequest, error)
	MarkInTransit(ctx context.Context, input *dto.MarkInTransitInput) (*model.ReturnRequest, error)
	MarkReceived(ctx context.Context, input *dto.MarkReceivedInput) (*model.ReturnRequest, error)
	InspectItem(ctx context.Context, input *dto.InspectItemInput) (*model.ReturnRequest, error)
	CompleteInspection(ctx context.Context, input *dto.CompleteInspectionInput) (*model.ReturnRequest, error)
	ProcessRefund(ctx context.Context, input *dto.ProcessRefundInput) (*model.ReturnRequest, error)
	Close(ctx context.Context, input *dto.CloseReturnInput) (*model.ReturnRequest, error)
	Cancel(ctx context.Context, input *dto.CancelReturnInput) (*model.ReturnRequest, error)
	History(ctx context.Context, returnID string) ([]model.ReturnStatusEvent, error)
}
