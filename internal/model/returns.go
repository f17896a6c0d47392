package model

import (
	"time"

	"github.com/shopspring/decimal"
)

type ReturnStatus string

const (
	ReturnStatusPending    ReturnStatus = "PENDING"
	ReturnStatusApproved   ReturnStatus = "APPROVED"
	ReturnStatusRejected   ReturnStatus = "REJECTED"
	ReturnStatusInTransit  ReturnStatus = "IN_TRANSIT"
	ReturnStatusReceived   ReturnStatus = "RECEIVED"
	ReturnStatusInspecting ReturnStatus = "INSPECTING"
	ReturnStatusRefunded   ReturnStatus = "REFUNDED"
	ReturnStatusClosed     ReturnStatus = "CLOSED"
	ReturnStatusCancelled  ReturnStatus = "CANCELLED"
)

var returnTransitions = map[ReturnStatus][]ReturnStatus{
	ReturnStatusPending:    {ReturnStatusApproved, ReturnStatusRejected, ReturnStatusCancelled},
	ReturnStatusApproved:   {ReturnStatusInTransit, ReturnStatusCancelled},
	ReturnStatusInTransit:  {ReturnStatusReceived},
	ReturnStatusReceived:   {ReturnStatusInspecting},
	ReturnStatusInspecting: {ReturnStatusRefunded},
	ReturnStatusRefunded:   {ReturnStatusClosed},
}

func (s ReturnStatus) CanTransitionTo(next ReturnStatus) bool {
	for _, allowed := range returnTransitions[s] {
		if allowed == next {
			return true
		}
	}
	return false
}

func (s ReturnStatus) IsTerminal() bool {
	return s == ReturnStatusRejected || s == ReturnStatusClosed || s == ReturnStatusCancelled
}

type ReturnReason string

const (
	ReasonDefective         ReturnReason = "DEFECTIVE"
	ReasonWrongItem         ReturnReason = "WRONG_ITEM"
	ReasonNotAsDescribed    ReturnReason = "NOT_AS_DESCRIBED"
	ReasonDamagedInShipping ReturnReason = "DAMAGED_IN_SHIPPING"
	ReasonChangedMind       ReturnReason = "CHANGED_MIND"
	ReasonWrongSizeOrColor  ReturnReason = "WRONG_SIZE_OR_COLOR"
	ReasonLateDelivery      ReturnReason = "LATE_DELIVERY"
	ReasonOther             ReturnReason = "OTHER"
)

// restockingFeePercent maps return reasons to the fee percentage withheld from
// the refund. Seller-caused reasons carry no fee.
var restockingFeePercent = map[ReturnReason]decimal.Decimal{
	ReasonDefective:         decimal.Zero,
	ReasonWrongItem:         decimal.Zero,
	ReasonNotAsDescribed:    decimal.Zero,
	ReasonDamagedInShipping: decimal.Zero,
	ReasonChangedMind:       decimal.NewFromInt(10),
	ReasonWrongSizeOrColor:  decimal.NewFromInt(10),
	ReasonLateDelivery:      decimal.NewFromInt(5),
	ReasonOther:             decimal.NewFromInt(5),
}

// RestockingFeePercent returns the fee percentage for a reason. Unknown
// reasons fall back to the OTHER rate.
func RestockingFeePercent(reason ReturnReason) decimal.Decimal {
	if pct, ok := restockingFeePercent[reason]; ok {
		return pct
	}
	return restockingFeePercent[ReasonOther]
}

func ValidReturnReason(r ReturnReason) bool {
	_, ok := restockingFeePercent[r]
	return ok
}

type ItemCondition string

const (
	ConditionUnopened     ItemCondition = "UNOPENED"
	ConditionOpenedUnused ItemCondition = "OPENED_UNUSED"
	ConditionUsedLikeNew  ItemCondition = "USED_LIKE_NEW"
	ConditionUsedGood     ItemCondition = "USED_GOOD"
	ConditionDamaged      ItemCondition = "DAMAGED"
	ConditionDefective    ItemCondition = "DEFECTIVE"
)

// conditionRefundMultiplier scales an item's refund by its inspected condition.
var conditionRefundMultiplier = map[ItemCondition]decimal.Decimal{
	ConditionUnopened:     decimal.NewFromInt(1),
	ConditionOpenedUnused: decimal.NewFromInt(1),
	ConditionDefective:    decimal.NewFromInt(1),
	ConditionUsedLikeNew:  decimal.NewFromFloat(0.95),
	ConditionUsedGood:     decimal.NewFromFloat(0.80),
	ConditionDamaged:      decimal.NewFromFloat(0.30),
}

func ConditionRefundMultiplier(c ItemCondition) (decimal.Decimal, bool) {
	m, ok := conditionRefundMultiplier[c]
	return m, ok
}

// Restockable reports whether a condition permits physical restock on close.
// Damaged, defective and used-good items never go back on the shelf.
func (c ItemCondition) Restockable() bool {
	switch c {
	case ConditionUnopened, ConditionOpenedUnused, ConditionUsedLikeNew:
		return true
	}
	return false
}

// ReturnRequest is the RMA aggregate. It reads completed order data but never
// mutates order state.
type ReturnRequest struct {
	BaseModel
	OrderID            string          `db:"order_id" json:"order_id"`
	CustomerID         string          `db:"customer_id" json:"customer_id"`
	Status             ReturnStatus    `db:"status" json:"status"`
	Reason             ReturnReason    `db:"reason" json:"reason"`
	RefundAmount       decimal.Decimal `db:"refund_amount" json:"refund_amount"`
	RestockingFee      decimal.Decimal `db:"restocking_fee" json:"restocking_fee"`
	ShippingCostRefund decimal.Decimal `db:"shipping_cost_refund" json:"shipping_cost_refund"`
	RefundMethod       *string         `db:"refund_method" json:"refund_method,omitempty"`
	ApprovedAt         *time.Time      `db:"approved_at" json:"approved_at,omitempty"`
	ReceivedAt         *time.Time      `db:"received_at" json:"received_at,omitempty"`
	RefundedAt         *time.Time      `db:"refunded_at" json:"refunded_at,omitempty"`
	ClosedAt           *time.Time      `db:"closed_at" json:"closed_at,omitempty"`
	Items              []ReturnItem    `db:"-" json:"items"`
}

// AllItemsInspected reports whether every item carries an inspected condition.
func (r *ReturnRequest) AllItemsInspected() bool {
	for i := range r.Items {
		if r.Items[i].Condition == nil {
			return false
		}
	}
	return len(r.Items) > 0
}

// ItemsSubtotal sums the per-item refund amounts at their current scaling.
func (r *ReturnRequest) ItemsSubtotal() decimal.Decimal {
	total := decimal.Zero
	for i := range r.Items {
		total = total.Add(r.Items[i].RefundAmount)
	}
	return total
}

type ReturnItem struct {
	ID              string          `db:"id" json:"id"`
	ReturnID        string          `db:"return_id" json:"return_id"`
	OrderLineID     string          `db:"order_line_id" json:"order_line_id"`
	ItemID          string          `db:"item_id" json:"item_id"`
	Quantity        int64           `db:"quantity" json:"quantity"`
	RefundAmount    decimal.Decimal `db:"refund_amount" json:"refund_amount"`
	Condition       *ItemCondition  `db:"condition" json:"condition,omitempty"`
	RestockApproved bool            `db:"restock_approved" json:"restock_approved"`
	InspectorID     *string         `db:"inspector_id" json:"inspector_id,omitempty"`
	InspectedAt     *time.Time      `db:"inspected_at" json:"inspected_at,omitempty"`
}

// ReturnStatusEvent mirrors OrderStatusEvent, scoped to a return request.
type ReturnStatusEvent struct {
	ID        string       `db:"id" json:"id"`
	ReturnID  string       `db:"return_id" json:"return_id"`
	Status    ReturnStatus `db:"status" json:"status"`
	Comment   string       `db:"comment" json:"comment"`
	ActorID   *string      `db:"actor_id" json:"actor_id,omitempty"`
	CreatedAt time.Time    `db:"created_at" json:"created_at"`
}
