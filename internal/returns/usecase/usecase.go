package usecase

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/omnistore/ledger-service/internal/apperror"
	"github.com/omnistore/ledger-service/internal/auth"
	"github.com/omnistore/ledger-service/internal/model"
	"github.com/omnistore/ledger-service/internal/order"
	"github.com/omnistore/ledger-service/internal/returns"
	"github.com/omnistore/ledger-service/internal/returns/dto"
	"github.com/omnistore/ledger-service/internal/stock"
	stockdto "github.com/omnistore/ledger-service/internal/stock/dto"
	"github.com/omnistore/ledger-service/pkg/cache"
	"github.com/omnistore/ledger-service/pkg/logger"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"
)

const (
	lockTTL       = 5 * time.Second
	lockAttempts  = 3
	lockRetryWait = 100 * time.Millisecond
)

const returnReferenceTable = "return_requests"

var oneHundred = decimal.NewFromInt(100)

type returnUseCase struct {
	repo               returns.Repository
	orders             order.Repository
	stock              stock.UseCase
	locker             cache.Locker
	logger             logger.ZapLogger
	defaultWarehouseID string
	returnWindow       time.Duration
}

func NewReturnUseCase(repo returns.Repository, orders order.Repository, stockUC stock.UseCase, locker cache.Locker, log logger.ZapLogger, defaultWarehouseID string, returnWindowDays int) returns.UseCase {
	return &returnUseCase{
		repo:               repo,
		orders:             orders,
		stock:              stockUC,
		locker:             locker,
		logger:             log,
		defaultWarehouseID: defaultWarehouseID,
		returnWindow:       time.Duration(returnWindowDays) * 24 * time.Hour,
	}
}

func (uc *returnUseCase) withReturnLock(ctx context.Context, returnID string, fn func() error) error {
	key := fmt.Sprintf("lock:return:%s", returnID)
	value := uuid.New().String()

	var acquired bool
	for attempt := 0; attempt < lockAttempts; attempt++ {
		ok, err := uc.locker.AcquireLock(ctx, key, value, lockTTL)
		if err != nil {
			uc.logger.Error("failed to acquire return lock", zap.String("return_id", returnID), zap.Error(err))
		}
		if ok {
			acquired = true
			break
		}
		time.Sleep(lockRetryWait)
	}
	if !acquired {
		return apperror.Unavailable(nil, "return %s busy, please retry", returnID)
	}
	defer func() {
		if err := uc.locker.ReleaseLock(ctx, key, value); err != nil {
			uc.logger.Error("failed to release return lock", zap.String("return_id", returnID), zap.Error(err))
		}
	}()

	return fn()
}

func (uc *returnUseCase) actor(ctx context.Context, explicit string) string {
	if explicit != "" {
		return explicit
	}
	return auth.GetActorID(ctx)
}

func newEvent(returnID string, status model.ReturnStatus, comment, actorID string) *model.ReturnStatusEvent {
	var actor *string
	if actorID != "" {
		actor = &actorID
	}
	return &model.ReturnStatusEvent{
		ID:        uuid.New().String(),
		ReturnID:  returnID,
		Status:    status,
		Comment:   comment,
		ActorID:   actor,
		CreatedAt: time.Now(),
	}
}

// deliveredAt finds the delivery timestamp from the order's status history.
func deliveredAt(events []model.OrderStatusEvent) (time.Time, bool) {
	for i := len(events) - 1; i >= 0; i-- {
		if events[i].Status == model.OrderStatusDelivered {
			return events[i].CreatedAt, true
		}
	}
	return time.Time{}, false
}

func (uc *returnUseCase) Open(ctx context.Context, input *dto.OpenReturnInput) (*model.ReturnRequest, error) {
	if len(input.Lines) == 0 {
		return nil, apperror.ValidationFailure("return requires at least one line")
	}
	if !model.ValidReturnReason(input.Reason) {
		return nil, apperror.ValidationFailure("unknown return reason %q", input.Reason)
	}

	o, err := uc.orders.GetByID(ctx, input.OrderID)
	if err != nil {
		return nil, apperror.Unavailable(err, "load order")
	}
	if o == nil {
		return nil, apperror.NotFound("order %s not found", input.OrderID)
	}
	if o.Status != model.OrderStatusDelivered {
		return nil, apperror.ValidationFailure("returns require a delivered order, order %s is %s", o.ID, o.Status)
	}

	events, err := uc.orders.ListEvents(ctx, o.ID)
	if err != nil {
		return nil, apperror.Unavailable(err, "load order history")
	}
	delivered, ok := deliveredAt(events)
	if !ok {
		// Status says delivered but the event log disagrees; refuse rather
		// than guess a window start.
		return nil, apperror.ValidationFailure("order %s has no delivery event", o.ID)
	}
	if time.Since(delivered) > uc.returnWindow {
		return nil, apperror.ExpiredReturnWindow("return window of %d days expired for order %s (delivered %s)",
			int(uc.returnWindow.Hours()/24), o.ID, delivered.Format("2006-01-02"))
	}

	linesByID := make(map[string]model.OrderLine, len(o.Lines))
	for _, line := range o.Lines {
		linesByID[line.ID] = line
	}

	// Lines already claimed by another open (non-terminal) return are off limits.
	existing, err := uc.repo.ListByOrder(ctx, o.ID)
	if err != nil {
		return nil, apperror.Unavailable(err, "load existing returns")
	}
	claimed := map[string]bool{}
	for _, req := range existing {
		if req.Status.IsTerminal() {
			continue
		}
		for _, item := range req.Items {
			claimed[item.OrderLineID] = true
		}
	}

	now := time.Now()
	req := &model.ReturnRequest{
		BaseModel:          model.BaseModel{ID: uuid.New().String(), CreatedAt: now, UpdatedAt: now},
		OrderID:            o.ID,
		CustomerID:         o.CustomerID,
		Status:             model.ReturnStatusPending,
		Reason:             input.Reason,
		RefundAmount:       decimal.Zero,
		RestockingFee:      decimal.Zero,
		ShippingCostRefund: decimal.Zero,
	}

	for _, line := range input.Lines {
		orderLine, ok := linesByID[line.OrderLineID]
		if !ok {
			return nil, apperror.NotFound("order line %s does not belong to order %s", line.OrderLineID, o.ID)
		}
		if line.Quantity <= 0 {
			return nil, apperror.ValidationFailure("return quantity must be positive for line %s", line.OrderLineID)
		}
		if line.Quantity > orderLine.Quantity {
			return nil, apperror.ValidationFailure("cannot return %d of line %s, only %d purchased",
				line.Quantity, line.OrderLineID, orderLine.Quantity)
		}
		if claimed[line.OrderLineID] {
			return nil, apperror.DuplicateReturnClaim("a return is already open for order line %s", line.OrderLineID)
		}
		// A line claims the whole order line; listing it twice in one request
		// would over-claim past the purchased quantity.
		claimed[line.OrderLineID] = true

		refund := orderLine.UnitPrice.Mul(decimal.NewFromInt(line.Quantity))
		req.Items = append(req.Items, model.ReturnItem{
			ID:           uuid.New().String(),
			ReturnID:     req.ID,
			OrderLineID:  orderLine.ID,
			ItemID:       orderLine.ItemID,
			Quantity:     line.Quantity,
			RefundAmount: refund,
		})
		req.RefundAmount = req.RefundAmount.Add(refund)
	}

	comment := input.Comment
	if comment == "" {
		comment = "return requested"
	}
	event := newEvent(req.ID, model.ReturnStatusPending, comment, uc.actor(ctx, input.ActorID))
	if err := uc.repo.CreateWithEvent(ctx, req, event); err != nil {
		return nil, apperror.Unavailable(err, "persist return request")
	}
	return req, nil
}

func (uc *returnUseCase) Get(ctx context.Context, id string) (*model.ReturnRequest, error) {
	req, err := uc.repo.GetByID(ctx, id)
	if err != nil {
		return nil, apperror.Unavailable(err, "load return request")
	}
	if req == nil {
		return nil, apperror.NotFound("return %s not found", id)
	}
	return req, nil
}

func (uc *returnUseCase) ApproveOrReject(ctx context.Context, input *dto.ApproveOrRejectInput) (*model.ReturnRequest, error) {
	var result *model.ReturnRequest
	err := uc.withReturnLock(ctx, input.ReturnID, func() error {
		req, err := uc.Get(ctx, input.ReturnID)
		if err != nil {
			return err
		}
		if req.Status != model.ReturnStatusPending {
			return apperror.InvalidTransition("return in status %s cannot be approved or rejected", req.Status)
		}

		now := time.Now()
		actorID := uc.actor(ctx, input.ActorID)

		if !input.Approve {
			if input.Comment == "" {
				return apperror.ValidationFailure("rejection requires a comment")
			}
			req.Status = model.ReturnStatusRejected
			req.UpdatedAt = now
			event := newEvent(req.ID, model.ReturnStatusRejected, input.Comment, actorID)
			if err := uc.repo.UpdateWithEvent(ctx, req, event); err != nil {
				return apperror.Unavailable(err, "persist return rejection")
			}
			result = req
			return nil
		}

		subtotal := req.ItemsSubtotal()
		feePct := model.RestockingFeePercent(req.Reason)
		req.RestockingFee = subtotal.Mul(feePct).Div(oneHundred).Round(2)
		req.ShippingCostRefund = input.ShippingRefund
		req.RefundAmount = subtotal.Sub(req.RestockingFee).Add(req.ShippingCostRefund)
		req.Status = model.ReturnStatusApproved
		req.ApprovedAt = &now
		req.UpdatedAt = now

		comment := input.Comment
		if comment == "" {
			comment = "return approved"
		}
		event := newEvent(req.ID, model.ReturnStatusApproved, comment, actorID)
		if err := uc.repo.UpdateWithEvent(ctx, req, event); err != nil {
			return apperror.Unavailable(err, "persist return approval")
		}
		result = req
		return nil
	})
	return result, err
}

// transition applies a plain status change with no side effects beyond the event.
func (uc *returnUseCase) transition(ctx context.Context, returnID string, next model.ReturnStatus, comment, actorID string, mutate func(req *model.ReturnRequest, now time.Time)) (*model.ReturnRequest, error) {
	var result *model.ReturnRequest
	err := uc.withReturnLock(ctx, returnID, func() error {
		req, err := uc.Get(ctx, returnID)
		if err != nil {
			return err
		}
		if !req.Status.CanTransitionTo(next) {
			return apperror.InvalidTransition("cannot transition return from %s to %s", req.Status, next)
		}

		now := time.Now()
		req.Status = next
		req.UpdatedAt = now
		if mutate != nil {
			mutate(req, now)
		}

		event := newEvent(req.ID, next, comment, actorID)
		if err := uc.repo.UpdateWithEvent(ctx, req, event); err != nil {
			return apperror.Unavailable(err, "persist return transition")
		}
		result = req
		return nil
	})
	return result, err
}

func (uc *returnUseCase) MarkInTransit(ctx context.Context, input *dto.MarkInTransitInput) (*model.ReturnRequest, error) {
	comment := input.Comment
	if comment == "" {
		comment = "package in transit"
	}
	return uc.transition(ctx, input.ReturnID, model.ReturnStatusInTransit, comment, uc.actor(ctx, input.ActorID), nil)
}

func (uc *returnUseCase) MarkReceived(ctx context.Context, input *dto.MarkReceivedInput) (*model.ReturnRequest, error) {
	comment := input.Comment
	if comment == "" {
		comment = "package received"
	}
	return uc.transition(ctx, input.ReturnID, model.ReturnStatusReceived, comment, uc.actor(ctx, input.ActorID),
		func(req *model.ReturnRequest, now time.Time) {
			req.ReceivedAt = &now
		})
}

func (uc *returnUseCase) InspectItem(ctx context.Context, input *dto.InspectItemInput) (*model.ReturnRequest, error) {
	multiplier, ok := model.ConditionRefundMultiplier(input.Condition)
	if !ok {
		return nil, apperror.ValidationFailure("unknown item condition %q", input.Condition)
	}

	var result *model.ReturnRequest
	err := uc.withReturnLock(ctx, input.ReturnID, func() error {
		req, err := uc.Get(ctx, input.ReturnID)
		if err != nil {
			return err
		}
		if req.Status != model.ReturnStatusReceived && req.Status != model.ReturnStatusInspecting {
			return apperror.InvalidTransition("return in status %s cannot be inspected", req.Status)
		}

		var item *model.ReturnItem
		for i := range req.Items {
			if req.Items[i].ID == input.ReturnItemID {
				item = &req.Items[i]
				break
			}
		}
		if item == nil {
			return apperror.NotFound("return item %s not found on return %s", input.ReturnItemID, req.ID)
		}
		if item.Condition != nil {
			return apperror.AlreadyInspected("return item %s was already inspected as %s", item.ID, *item.Condition)
		}

		now := time.Now()
		cond := input.Condition
		item.Condition = &cond
		item.RestockApproved = input.RestockApproved
		item.RefundAmount = item.RefundAmount.Mul(multiplier).Round(2)
		item.InspectedAt = &now
		item.InspectorID = nullable(uc.actor(ctx, input.InspectorID))

		// The first inspected item starts the inspection phase.
		var event *model.ReturnStatusEvent
		if req.Status == model.ReturnStatusReceived {
			req.Status = model.ReturnStatusInspecting
			comment := input.Comment
			if comment == "" {
				comment = "inspection started"
			}
			event = newEvent(req.ID, model.ReturnStatusInspecting, comment, uc.actor(ctx, input.InspectorID))
		}

		// With the last item inspected, the request total reflects the scaled
		// item amounts net of the restocking fee.
		if req.AllItemsInspected() {
			refund := req.ItemsSubtotal().Sub(req.RestockingFee).Add(req.ShippingCostRefund)
			if refund.IsNegative() {
				refund = decimal.Zero
			}
			req.RefundAmount = refund
		}
		req.UpdatedAt = now

		if err := uc.repo.UpdateWithEvent(ctx, req, event); err != nil {
			return apperror.Unavailable(err, "persist item inspection")
		}
		result = req
		return nil
	})
	return result, err
}

func (uc *returnUseCase) CompleteInspection(ctx context.Context, input *dto.CompleteInspectionInput) (*model.ReturnRequest, error) {
	var result *model.ReturnRequest
	err := uc.withReturnLock(ctx, input.ReturnID, func() error {
		req, err := uc.Get(ctx, input.ReturnID)
		if err != nil {
			return err
		}
		if req.Status != model.ReturnStatusInspecting {
			return apperror.InvalidTransition("return in status %s has no inspection to complete", req.Status)
		}
		if err := uc.requireAllInspected(req); err != nil {
			return err
		}

		// A checkpoint, not a transition: the status stays INSPECTING and only
		// the note is recorded.
		comment := input.Comment
		if comment == "" {
			comment = "inspection completed"
		}
		req.UpdatedAt = time.Now()
		event := newEvent(req.ID, model.ReturnStatusInspecting, comment, uc.actor(ctx, input.ActorID))
		if err := uc.repo.UpdateWithEvent(ctx, req, event); err != nil {
			return apperror.Unavailable(err, "persist inspection checkpoint")
		}
		result = req
		return nil
	})
	return result, err
}

func (uc *returnUseCase) requireAllInspected(req *model.ReturnRequest) error {
	if req.AllItemsInspected() {
		return nil
	}
	inspected := 0
	for i := range req.Items {
		if req.Items[i].Condition != nil {
			inspected++
		}
	}
	return apperror.PendingInspection("%d of %d return items inspected", inspected, len(req.Items))
}

func (uc *returnUseCase) ProcessRefund(ctx context.Context, input *dto.ProcessRefundInput) (*model.ReturnRequest, error) {
	var result *model.ReturnRequest
	err := uc.withReturnLock(ctx, input.ReturnID, func() error {
		req, err := uc.Get(ctx, input.ReturnID)
		if err != nil {
			return err
		}
		if req.Status != model.ReturnStatusInspecting {
			return apperror.InvalidTransition("return in status %s cannot be refunded", req.Status)
		}
		if err := uc.requireAllInspected(req); err != nil {
			return err
		}

		method := input.RefundMethod
		if method == "" && req.RefundMethod != nil {
			method = *req.RefundMethod
		}
		if method == "" {
			return apperror.ValidationFailure("refund method is required")
		}

		// The payment gateway call happens outside this core; this records the
		// refund decision exactly once.
		now := time.Now()
		req.RefundMethod = &method
		req.Status = model.ReturnStatusRefunded
		req.RefundedAt = &now
		req.UpdatedAt = now

		comment := input.Comment
		if comment == "" {
			comment = fmt.Sprintf("refund of %s via %s", req.RefundAmount.StringFixed(2), method)
		}
		event := newEvent(req.ID, model.ReturnStatusRefunded, comment, uc.actor(ctx, input.ActorID))
		if err := uc.repo.UpdateWithEvent(ctx, req, event); err != nil {
			return apperror.Unavailable(err, "persist refund")
		}
		result = req
		return nil
	})
	return result, err
}

func (uc *returnUseCase) Close(ctx context.Context, input *dto.CloseReturnInput) (*model.ReturnRequest, error) {
	var result *model.ReturnRequest
	err := uc.withReturnLock(ctx, input.ReturnID, func() error {
		req, err := uc.Get(ctx, input.ReturnID)
		if err != nil {
			return err
		}
		if !req.Status.CanTransitionTo(model.ReturnStatusClosed) {
			return apperror.InvalidTransition("cannot close return in status %s", req.Status)
		}

		actorID := uc.actor(ctx, input.ActorID)

		// Restock what came back sellable. Individual failures are logged and
		// skipped so one bad item cannot wedge the whole return open.
		for i := range req.Items {
			item := &req.Items[i]
			if !item.RestockApproved || item.Condition == nil || !item.Condition.Restockable() {
				continue
			}
			err := uc.stock.ReturnToStock(ctx, &stockdto.ReturnToStockInput{
				WarehouseID:    uc.defaultWarehouseID,
				ItemID:         item.ItemID,
				Quantity:       item.Quantity,
				Reason:         fmt.Sprintf("return %s closed, condition %s", req.ID, *item.Condition),
				ReferenceTable: returnReferenceTable,
				ReferenceID:    req.ID,
				ActorID:        actorID,
			})
			if err != nil {
				uc.logger.Error("failed to restock return item",
					zap.String("return_id", req.ID),
					zap.String("item_id", item.ItemID),
					zap.Error(err),
				)
			}
		}

		now := time.Now()
		req.Status = model.ReturnStatusClosed
		req.ClosedAt = &now
		req.UpdatedAt = now

		comment := input.Comment
		if comment == "" {
			comment = "return closed"
		}
		event := newEvent(req.ID, model.ReturnStatusClosed, comment, actorID)
		if err := uc.repo.UpdateWithEvent(ctx, req, event); err != nil {
			return apperror.Unavailable(err, "persist return close")
		}
		result = req
		return nil
	})
	return result, err
}

func (uc *returnUseCase) Cancel(ctx context.Context, input *dto.CancelReturnInput) (*model.ReturnRequest, error) {
	var result *model.ReturnRequest
	err := uc.withReturnLock(ctx, input.ReturnID, func() error {
		req, err := uc.Get(ctx, input.ReturnID)
		if err != nil {
			return err
		}
		if req.Status != model.ReturnStatusPending && req.Status != model.ReturnStatusApproved {
			return apperror.InvalidTransition("return in status %s cannot be cancelled", req.Status)
		}

		req.Status = model.ReturnStatusCancelled
		req.UpdatedAt = time.Now()
		event := newEvent(req.ID, model.ReturnStatusCancelled, input.Reason, uc.actor(ctx, input.ActorID))
		if err := uc.repo.UpdateWithEvent(ctx, req, event); err != nil {
			return apperror.Unavailable(err, "persist return cancellation")
		}
		result = req
		return nil
	})
	return result, err
}

func (uc *returnUseCase) History(ctx context.Context, returnID string) ([]model.ReturnStatusEvent, error) {
	events, err := uc.repo.ListEvents(ctx, returnID)
	if err != nil {
		return nil, apperror.Unavailable(err, "load return history")
	}
	return events, nil
}

func nullable(s string) *string {
	if s == "" {
		return nil
	}
	return &s
}
