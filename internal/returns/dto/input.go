package dto

import (
	"github.com/omnistore/ledger-service/internal/model"
	"github.com/shopspring/decimal"
)

type OpenReturnInput struct {
	OrderID string
	Lines   []OpenReturnLine
	Reason  model.ReturnReason
	Comment string
	ActorID string
}

type OpenReturnLine struct {
	OrderLineID string
	Quantity    int64
}

type ApproveOrRejectInput struct {
	ReturnID string
	Approve  bool
	// ShippingRefund is the refundable part of the original shipping cost,
	// decided by staff at approval time. Zero when shipping is not refunded.
	ShippingRefund decimal.Decimal
	Comment        string
	ActorID        string
}

type MarkInTransitInput struct {
	ReturnID string
	Comment  string
	ActorID  string
}

type MarkReceivedInput struct {
	ReturnID string
	Comment  string
	ActorID  string
}

type InspectItemInput struct {
	ReturnID        string
	ReturnItemID    string
	Condition       model.ItemCondition
	RestockApproved bool
	Comment         string
	InspectorID     string
}

type CompleteInspectionInput struct {
	ReturnID string
	Comment  string
	ActorID  string
}

type ProcessRefundInput struct {
	ReturnID     string
	RefundMethod string
	Comment      string
	ActorID      string
}

type CloseReturnInput struct {
	ReturnID string
	Comment  string
	ActorID  string
}

type CancelReturnInput struct {
	ReturnID string
	Reason   string
	ActorID  string
}
