package usecase

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/omnistore/ledger-service/internal/apperror"
	"github.com/omnistore/ledger-service/internal/auth"
	"github.com/omnistore/ledger-service/internal/catalog"
	"github.com/omnistore/ledger-service/internal/model"
	"github.com/omnistore/ledger-service/internal/order"
	"github.com/omnistore/ledger-service/internal/order/dto"
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

const orderReferenceTable = "orders"

type orderUseCase struct {
	repo               order.Repository
	stock              stock.UseCase
	items              catalog.Repository
	locker             cache.Locker
	logger             logger.ZapLogger
	defaultWarehouseID string
}

func NewOrderUseCase(repo order.Repository, stockUC stock.UseCase, items catalog.Repository, locker cache.Locker, log logger.ZapLogger, defaultWarehouseID string) order.UseCase {
	return &orderUseCase{
		repo:               repo,
		stock:              stockUC,
		items:              items,
		locker:             locker,
		logger:             log,
		defaultWarehouseID: defaultWarehouseID,
	}
}

// withOrderLock serializes state transitions per order aggregate, so the
// status read at the start of a transition is the one acted upon.
func (uc *orderUseCase) withOrderLock(ctx context.Context, orderID string, fn func() error) error {
	key := fmt.Sprintf("lock:order:%s", orderID)
	value := uuid.New().String()

	var acquired bool
	for attempt := 0; attempt < lockAttempts; attempt++ {
		ok, err := uc.locker.AcquireLock(ctx, key, value, lockTTL)
		if err != nil {
			uc.logger.Error("failed to acquire order lock", zap.String("order_id", orderID), zap.Error(err))
		}
		if ok {
			acquired = true
			break
		}
		time.Sleep(lockRetryWait)
	}
	if !acquired {
		return apperror.Unavailable(nil, "order %s busy, please retry", orderID)
	}
	defer func() {
		if err := uc.locker.ReleaseLock(ctx, key, value); err != nil {
			uc.logger.Error("failed to release order lock", zap.String("order_id", orderID), zap.Error(err))
		}
	}()

	return fn()
}

func (uc *orderUseCase) actor(ctx context.Context, explicit string) string {
	if explicit != "" {
		return explicit
	}
	return auth.GetActorID(ctx)
}

func newEvent(orderID string, status model.OrderStatus, comment, actorID string) *model.OrderStatusEvent {
	var actor *string
	if actorID != "" {
		actor = &actorID
	}
	return &model.OrderStatusEvent{
		ID:        uuid.New().String(),
		OrderID:   orderID,
		Status:    status,
		Comment:   comment,
		ActorID:   actor,
		CreatedAt: time.Now(),
	}
}

func (uc *orderUseCase) Create(ctx context.Context, input *dto.CreateOrderInput) (*model.Order, error) {
	if input.CustomerID == "" {
		return nil, apperror.ValidationFailure("customer id is required")
	}
	if len(input.Lines) == 0 {
		return nil, apperror.ValidationFailure("order requires at least one line")
	}
	for _, line := range input.Lines {
		if line.Quantity <= 0 {
			return nil, apperror.ValidationFailure("line quantity must be positive for item %s", line.ItemID)
		}
	}

	itemIDs := make([]string, len(input.Lines))
	for i, line := range input.Lines {
		itemIDs[i] = line.ItemID
	}
	items, err := uc.items.ByIDs(ctx, itemIDs)
	if err != nil {
		return nil, apperror.Unavailable(err, "load items")
	}
	byID := make(map[string]model.Item, len(items))
	for _, item := range items {
		byID[item.ID] = item
	}

	// Validate every line before touching any stock: either the whole order
	// reserves or none of it does.
	now := time.Now()
	o := &model.Order{
		BaseModel:       model.BaseModel{ID: uuid.New().String(), CreatedAt: now, UpdatedAt: now},
		CustomerID:      input.CustomerID,
		Status:          model.OrderStatusPending,
		ShippingAddress: input.ShippingAddress,
		BillingAddress:  input.BillingAddress,
		Total:           decimal.Zero,
	}
	for _, line := range input.Lines {
		item, ok := byID[line.ItemID]
		if !ok {
			return nil, apperror.NotFound("item %s not found", line.ItemID)
		}
		if !item.IsActive {
			return nil, apperror.ValidationFailure("item %s (%s) is not active", item.ID, item.SKU)
		}

		available, err := uc.stock.StockOf(ctx, uc.defaultWarehouseID, line.ItemID)
		if err != nil {
			return nil, err
		}
		if available.Available() < line.Quantity {
			return nil, apperror.InsufficientStock("insufficient stock for item %s: available %d, requested %d",
				item.SKU, available.Available(), line.Quantity)
		}

		lineTotal := item.Price.Mul(decimal.NewFromInt(line.Quantity))
		o.Lines = append(o.Lines, model.OrderLine{
			ID:        uuid.New().String(),
			OrderID:   o.ID,
			ItemID:    item.ID,
			SKU:       item.SKU,
			Name:      item.Name,
			Quantity:  line.Quantity,
			UnitPrice: item.Price,
			LineTotal: lineTotal,
		})
		o.Total = o.Total.Add(lineTotal)
	}

	actorID := uc.actor(ctx, input.ActorID)
	event := newEvent(o.ID, model.OrderStatusPending, "order created", actorID)
	if err := uc.repo.CreateWithEvent(ctx, o, event); err != nil {
		return nil, apperror.Unavailable(err, "persist order")
	}

	// Reserve after persisting. A concurrent sale can still win the race, in
	// which case everything reserved so far is rolled back and the order is
	// cancelled rather than left half-claimed.
	for i, line := range o.Lines {
		if err := uc.stock.Reserve(ctx, uc.defaultWarehouseID, line.ItemID, line.Quantity); err != nil {
			uc.rollbackReservations(ctx, o, i)
			return nil, err
		}
	}

	return o, nil
}

// rollbackReservations releases the first n reserved lines and cancels the
// order after a partial reservation failure.
func (uc *orderUseCase) rollbackReservations(ctx context.Context, o *model.Order, n int) {
	for _, line := range o.Lines[:n] {
		releaseErr := uc.stock.Release(ctx, &stockdto.ReleaseInput{
			WarehouseID:    uc.defaultWarehouseID,
			ItemID:         line.ItemID,
			Quantity:       line.Quantity,
			Reason:         "order creation failed",
			ReferenceTable: orderReferenceTable,
			ReferenceID:    o.ID,
		})
		if releaseErr != nil {
			uc.logger.Error("failed to release reservation during order rollback",
				zap.String("order_id", o.ID),
				zap.String("item_id", line.ItemID),
				zap.Error(releaseErr),
			)
		}
	}

	o.Status = model.OrderStatusCancelled
	o.UpdatedAt = time.Now()
	event := newEvent(o.ID, model.OrderStatusCancelled, "stock reservation failed", "")
	if err := uc.repo.UpdateStatusWithEvent(ctx, o, event); err != nil {
		uc.logger.Error("failed to cancel order after reservation failure",
			zap.String("order_id", o.ID),
			zap.Error(err),
		)
	}
}

func (uc *orderUseCase) GetOrder(ctx context.Context, id string) (*model.Order, error) {
	o, err := uc.repo.GetByID(ctx, id)
	if err != nil {
		return nil, apperror.Unavailable(err, "load order")
	}
	if o == nil {
		return nil, apperror.NotFound("order %s not found", id)
	}
	return o, nil
}

func (uc *orderUseCase) Transition(ctx context.Context, input *dto.TransitionInput) (*model.Order, error) {
	if !model.ValidOrderStatus(string(input.NewStatus)) {
		return nil, apperror.ValidationFailure("unknown order status %q", input.NewStatus)
	}
	// Cancellation and shipment move stock; each has its own operation.
	if input.NewStatus == model.OrderStatusCancelled {
		return nil, apperror.ValidationFailure("use cancel to cancel an order")
	}
	if input.NewStatus == model.OrderStatusShipped {
		return nil, apperror.ValidationFailure("use ship to mark an order shipped")
	}

	var result *model.Order
	err := uc.withOrderLock(ctx, input.OrderID, func() error {
		o, err := uc.GetOrder(ctx, input.OrderID)
		if err != nil {
			return err
		}
		if !o.Status.CanTransitionTo(input.NewStatus) {
			return apperror.InvalidTransition("cannot transition order from %s to %s", o.Status, input.NewStatus)
		}

		o.Status = input.NewStatus
		o.UpdatedAt = time.Now()
		event := newEvent(o.ID, input.NewStatus, input.Comment, uc.actor(ctx, input.ActorID))
		if err := uc.repo.UpdateStatusWithEvent(ctx, o, event); err != nil {
			return apperror.Unavailable(err, "persist order transition")
		}
		result = o
		return nil
	})
	return result, err
}

func (uc *orderUseCase) Cancel(ctx context.Context, input *dto.CancelInput) (*model.Order, error) {
	var result *model.Order
	err := uc.withOrderLock(ctx, input.OrderID, func() error {
		o, err := uc.GetOrder(ctx, input.OrderID)
		if err != nil {
			return err
		}

		cancellable := false
		for _, s := range model.OrderCancellableStatuses() {
			if o.Status == s {
				cancellable = true
				break
			}
		}
		if !cancellable {
			return apperror.InvalidTransition("order in status %s cannot be cancelled", o.Status)
		}

		for _, line := range o.Lines {
			err := uc.stock.Release(ctx, &stockdto.ReleaseInput{
				WarehouseID:    uc.defaultWarehouseID,
				ItemID:         line.ItemID,
				Quantity:       line.Quantity,
				Reason:         "order cancelled: " + input.Reason,
				ReferenceTable: orderReferenceTable,
				ReferenceID:    o.ID,
				ActorID:        input.ActorID,
			})
			if err != nil {
				return err
			}
		}

		o.Status = model.OrderStatusCancelled
		o.UpdatedAt = time.Now()
		event := newEvent(o.ID, model.OrderStatusCancelled, input.Reason, uc.actor(ctx, input.ActorID))
		if err := uc.repo.UpdateStatusWithEvent(ctx, o, event); err != nil {
			return apperror.Unavailable(err, "persist order cancellation")
		}
		result = o
		return nil
	})
	return result, err
}

// MarkShipped is the fulfillment boundary: shipment creation decrements
// physical stock for every line, then moves the order to SHIPPED.
func (uc *orderUseCase) MarkShipped(ctx context.Context, input *dto.MarkShippedInput) (*model.Order, error) {
	var result *model.Order
	err := uc.withOrderLock(ctx, input.OrderID, func() error {
		o, err := uc.GetOrder(ctx, input.OrderID)
		if err != nil {
			return err
		}
		if !o.Status.CanTransitionTo(model.OrderStatusShipped) {
			return apperror.InvalidTransition("cannot transition order from %s to %s", o.Status, model.OrderStatusShipped)
		}

		for _, line := range o.Lines {
			err := uc.stock.Fulfill(ctx, &stockdto.FulfillInput{
				WarehouseID:    uc.defaultWarehouseID,
				ItemID:         line.ItemID,
				Quantity:       line.Quantity,
				Reason:         "order shipped",
				ReferenceTable: orderReferenceTable,
				ReferenceID:    o.ID,
				ActorID:        input.ActorID,
			})
			if err != nil {
				return err
			}
		}

		comment := input.Comment
		if comment == "" {
			comment = "order shipped"
		}
		o.Status = model.OrderStatusShipped
		o.UpdatedAt = time.Now()
		event := newEvent(o.ID, model.OrderStatusShipped, comment, uc.actor(ctx, input.ActorID))
		if err := uc.repo.UpdateStatusWithEvent(ctx, o, event); err != nil {
			return apperror.Unavailable(err, "persist order shipment")
		}
		result = o
		return nil
	})
	return result, err
}

func (uc *orderUseCase) History(ctx context.Context, orderID string) ([]model.OrderStatusEvent, error) {
	events, err := uc.repo.ListEvents(ctx, orderID)
	if err != nil {
		return nil, apperror.Unavailable(err, "load order history")
	}
	return events, nil
}
