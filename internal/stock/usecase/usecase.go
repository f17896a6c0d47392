package usecase

import (
	"context"
	"fmt"
	"sort"
	"time"

	"github.com/google/uuid"
	"github.com/omnistore/ledger-service/internal/apperror"
	"github.com/omnistore/ledger-service/internal/auth"
	"github.com/omnistore/ledger-service/internal/model"
	"github.com/omnistore/ledger-service/internal/movement"
	"github.com/omnistore/ledger-service/internal/stock"
	"github.com/omnistore/ledger-service/internal/stock/dto"
	"github.com/omnistore/ledger-service/internal/warehouse"
	"github.com/omnistore/ledger-service/pkg/cache"
	"github.com/omnistore/ledger-service/pkg/logger"
	"go.uber.org/zap"
)

const (
	lockTTL       = 5 * time.Second
	lockAttempts  = 3
	lockRetryWait = 100 * time.Millisecond
)

const transferReferenceTable = "stock_transfers"

type stockUseCase struct {
	repo       stock.Repository
	warehouses warehouse.Repository
	locker     cache.Locker
	indexer    *movement.Indexer
	logger     logger.ZapLogger
}

func NewStockUseCase(repo stock.Repository, warehouses warehouse.Repository, locker cache.Locker, indexer *movement.Indexer, log logger.ZapLogger) stock.UseCase {
	return &stockUseCase{
		repo:       repo,
		warehouses: warehouses,
		locker:     locker,
		indexer:    indexer,
		logger:     log,
	}
}

func stockLockKey(warehouseID, itemID string) string {
	return fmt.Sprintf("lock:stock:%s:%s", warehouseID, itemID)
}

// withLocks runs fn while holding every key. Keys are acquired in sorted order
// so two transfers touching the same pair of warehouses cannot deadlock.
func (uc *stockUseCase) withLocks(ctx context.Context, keys []string, fn func() error) error {
	sort.Strings(keys)
	value := uuid.New().String()

	acquired := make([]string, 0, len(keys))
	release := func() {
		for i := len(acquired) - 1; i >= 0; i-- {
			if err := uc.locker.ReleaseLock(ctx, acquired[i], value); err != nil {
				uc.logger.Error("failed to release stock lock", zap.String("key", acquired[i]), zap.Error(err))
			}
		}
	}

	for _, key := range keys {
		var ok bool
		for attempt := 0; attempt < lockAttempts; attempt++ {
			got, err := uc.locker.AcquireLock(ctx, key, value, lockTTL)
			if err != nil {
				uc.logger.Error("failed to acquire stock lock", zap.String("key", key), zap.Error(err))
			}
			if got {
				ok = true
				break
			}
			time.Sleep(lockRetryWait)
		}
		if !ok {
			release()
			return apperror.Unavailable(nil, "stock ledger busy, please retry")
		}
		acquired = append(acquired, key)
	}

	defer release()
	return fn()
}

// load returns the record for the pair. When absent and createAbsent is set, a
// zero record is initialized after checking the warehouse exists; otherwise
// absence is NotFound.
func (uc *stockUseCase) load(ctx context.Context, warehouseID, itemID string, createAbsent bool) (*model.StockRecord, error) {
	rec, err := uc.repo.GetRecord(ctx, warehouseID, itemID)
	if err != nil {
		return nil, apperror.Unavailable(err, "load stock record")
	}
	if rec != nil {
		return rec, nil
	}
	if !createAbsent {
		return nil, apperror.NotFound("no stock record for item %s in warehouse %s", itemID, warehouseID)
	}

	wh, err := uc.warehouses.Get(ctx, warehouseID)
	if err != nil {
		return nil, apperror.Unavailable(err, "load warehouse")
	}
	if wh == nil {
		return nil, apperror.NotFound("warehouse %s not found", warehouseID)
	}

	return &model.StockRecord{
		ID:          uuid.New().String(),
		WarehouseID: warehouseID,
		ItemID:      itemID,
		UpdatedAt:   time.Now(),
	}, nil
}

func (uc *stockUseCase) save(ctx context.Context, records []*model.StockRecord, movements []*model.MovementEntry) error {
	if err := uc.repo.SaveWithMovements(ctx, records, movements); err != nil {
		return apperror.Unavailable(err, "persist stock change")
	}
	if uc.indexer.Enabled() && len(movements) > 0 {
		go uc.indexer.Index(context.Background(), movements...)
	}
	return nil
}

func newMovement(rec *model.StockRecord, kind model.MovementKind, delta int64, description, refTable, refID, actorID string) *model.MovementEntry {
	return &model.MovementEntry{
		ID:               uuid.New().String(),
		WarehouseID:      rec.WarehouseID,
		ItemID:           rec.ItemID,
		Kind:             kind,
		QuantityDelta:    delta,
		ResultingBalance: rec.Quantity,
		Description:      description,
		ReferenceTable:   nullable(refTable),
		ReferenceID:      nullable(refID),
		ActorID:          nullable(actorID),
		CreatedAt:        time.Now(),
	}
}

// actor prefers an explicitly supplied id, falling back to the request context
// so HTTP/gRPC callers get audit attribution without threading it by hand.
func actor(ctx context.Context, explicit string) string {
	if explicit != "" {
		return explicit
	}
	return auth.GetActorID(ctx)
}

func nullable(s string) *string {
	if s == "" {
		return nil
	}
	return &s
}

func (uc *stockUseCase) Adjust(ctx context.Context, input *dto.AdjustInput) (*model.StockRecord, error) {
	var result *model.StockRecord
	err := uc.withLocks(ctx, []string{stockLockKey(input.WarehouseID, input.ItemID)}, func() error {
		rec, err := uc.load(ctx, input.WarehouseID, input.ItemID, true)
		if err != nil {
			return err
		}

		newQty := rec.Quantity + input.QuantityChange
		if newQty < 0 {
			return apperror.InsufficientStock("insufficient stock: on hand %d, requested decrease %d", rec.Quantity, -input.QuantityChange)
		}
		rec.Quantity = newQty
		rec.UpdatedAt = time.Now()

		mov := newMovement(rec, model.MovementAdjustment, input.QuantityChange, input.Reason, input.ReferenceTable, input.ReferenceID, actor(ctx, input.ActorID))
		if err := uc.save(ctx, []*model.StockRecord{rec}, []*model.MovementEntry{mov}); err != nil {
			return err
		}
		result = rec
		return nil
	})
	return result, err
}

func (uc *stockUseCase) Transfer(ctx context.Context, input *dto.TransferInput) error {
	if input.FromWarehouseID == input.ToWarehouseID {
		return apperror.ValidationFailure("transfer requires two distinct warehouses")
	}
	if input.Quantity <= 0 {
		return apperror.ValidationFailure("transfer quantity must be positive, got %d", input.Quantity)
	}

	keys := []string{
		stockLockKey(input.FromWarehouseID, input.ItemID),
		stockLockKey(input.ToWarehouseID, input.ItemID),
	}
	return uc.withLocks(ctx, keys, func() error {
		from, err := uc.load(ctx, input.FromWarehouseID, input.ItemID, false)
		if err != nil {
			return err
		}
		if from.Available() < input.Quantity {
			return apperror.InsufficientStock("insufficient stock: available %d, requested %d", from.Available(), input.Quantity)
		}

		to, err := uc.load(ctx, input.ToWarehouseID, input.ItemID, true)
		if err != nil {
			return err
		}

		now := time.Now()
		from.Quantity -= input.Quantity
		from.UpdatedAt = now
		to.Quantity += input.Quantity
		to.UpdatedAt = now

		// Both entries carry the same transfer id so either side resolves the other.
		transferID := uuid.New().String()
		out := newMovement(from, model.MovementTransferOut, -input.Quantity, input.Reason, transferReferenceTable, transferID, actor(ctx, input.ActorID))
		in := newMovement(to, model.MovementTransferIn, input.Quantity, input.Reason, transferReferenceTable, transferID, actor(ctx, input.ActorID))

		return uc.save(ctx,
			[]*model.StockRecord{from, to},
			[]*model.MovementEntry{out, in},
		)
	})
}

func (uc *stockUseCase) Reserve(ctx context.Context, warehouseID, itemID string, qty int64) error {
	if qty <= 0 {
		return apperror.ValidationFailure("reserve quantity must be positive, got %d", qty)
	}
	return uc.withLocks(ctx, []string{stockLockKey(warehouseID, itemID)}, func() error {
		rec, err := uc.load(ctx, warehouseID, itemID, false)
		if err != nil {
			return err
		}
		if rec.Available() < qty {
			return apperror.InsufficientStock("insufficient stock: available %d, requested %d", rec.Available(), qty)
		}

		rec.ReservedQuantity += qty
		rec.UpdatedAt = time.Now()

		// A reservation is a claim on physical quantity, not a change of it;
		// nothing is appended to the movement log.
		return uc.save(ctx, []*model.StockRecord{rec}, nil)
	})
}

func (uc *stockUseCase) Release(ctx context.Context, input *dto.ReleaseInput) error {
	if input.Quantity <= 0 {
		return apperror.ValidationFailure("release quantity must be positive, got %d", input.Quantity)
	}
	return uc.withLocks(ctx, []string{stockLockKey(input.WarehouseID, input.ItemID)}, func() error {
		rec, err := uc.load(ctx, input.WarehouseID, input.ItemID, false)
		if err != nil {
			return err
		}

		rec.ReservedQuantity -= input.Quantity
		if rec.ReservedQuantity < 0 {
			rec.ReservedQuantity = 0
		}
		rec.UpdatedAt = time.Now()

		// Physical quantity is untouched, so the cancellation is logged with a
		// zero delta: it stays out of the accounting view but keeps the audit
		// trail complete.
		mov := newMovement(rec, model.MovementCancellation, 0, input.Reason, input.ReferenceTable, input.ReferenceID, actor(ctx, input.ActorID))
		return uc.save(ctx, []*model.StockRecord{rec}, []*model.MovementEntry{mov})
	})
}

func (uc *stockUseCase) Fulfill(ctx context.Context, input *dto.FulfillInput) error {
	if input.Quantity <= 0 {
		return apperror.ValidationFailure("fulfill quantity must be positive, got %d", input.Quantity)
	}
	return uc.withLocks(ctx, []string{stockLockKey(input.WarehouseID, input.ItemID)}, func() error {
		rec, err := uc.load(ctx, input.WarehouseID, input.ItemID, false)
		if err != nil {
			return err
		}
		if rec.Quantity < input.Quantity {
			return apperror.InsufficientStock("insufficient stock: on hand %d, requested %d", rec.Quantity, input.Quantity)
		}

		rec.Quantity -= input.Quantity
		rec.ReservedQuantity -= input.Quantity
		if rec.ReservedQuantity < 0 {
			rec.ReservedQuantity = 0
		}
		rec.UpdatedAt = time.Now()

		mov := newMovement(rec, model.MovementSale, -input.Quantity, input.Reason, input.ReferenceTable, input.ReferenceID, actor(ctx, input.ActorID))
		return uc.save(ctx, []*model.StockRecord{rec}, []*model.MovementEntry{mov})
	})
}

func (uc *stockUseCase) Receive(ctx context.Context, input *dto.ReceiveInput) (*model.StockRecord, error) {
	if input.Quantity <= 0 {
		return nil, apperror.ValidationFailure("receive quantity must be positive, got %d", input.Quantity)
	}
	var result *model.StockRecord
	err := uc.withLocks(ctx, []string{stockLockKey(input.WarehouseID, input.ItemID)}, func() error {
		rec, err := uc.load(ctx, input.WarehouseID, input.ItemID, true)
		if err != nil {
			return err
		}

		rec.Quantity += input.Quantity
		rec.UpdatedAt = time.Now()

		mov := newMovement(rec, model.MovementPurchase, input.Quantity, input.Reason, input.ReferenceTable, input.ReferenceID, actor(ctx, input.ActorID))
		cost := input.UnitCost
		mov.UnitCost = &cost

		if err := uc.save(ctx, []*model.StockRecord{rec}, []*model.MovementEntry{mov}); err != nil {
			return err
		}
		result = rec
		return nil
	})
	return result, err
}

func (uc *stockUseCase) ReturnToStock(ctx context.Context, input *dto.ReturnToStockInput) error {
	if input.Quantity <= 0 {
		return apperror.ValidationFailure("return quantity must be positive, got %d", input.Quantity)
	}
	return uc.withLocks(ctx, []string{stockLockKey(input.WarehouseID, input.ItemID)}, func() error {
		rec, err := uc.load(ctx, input.WarehouseID, input.ItemID, true)
		if err != nil {
			return err
		}

		rec.Quantity += input.Quantity
		rec.UpdatedAt = time.Now()

		mov := newMovement(rec, model.MovementReturn, input.Quantity, input.Reason, input.ReferenceTable, input.ReferenceID, actor(ctx, input.ActorID))
		return uc.save(ctx, []*model.StockRecord{rec}, []*model.MovementEntry{mov})
	})
}

// EnsureTracked creates a zero record for the item in every active warehouse
// that lacks one, so a newly sellable item is visible everywhere.
func (uc *stockUseCase) EnsureTracked(ctx context.Context, itemID string) error {
	warehouses, err := uc.warehouses.ListActive(ctx)
	if err != nil {
		return apperror.Unavailable(err, "list active warehouses")
	}

	existing, err := uc.repo.ListByItem(ctx, itemID)
	if err != nil {
		return apperror.Unavailable(err, "list stock records")
	}
	tracked := make(map[string]bool, len(existing))
	for _, rec := range existing {
		tracked[rec.WarehouseID] = true
	}

	now := time.Now()
	var missing []*model.StockRecord
	for _, wh := range warehouses {
		if tracked[wh.ID] {
			continue
		}
		missing = append(missing, &model.StockRecord{
			ID:          uuid.New().String(),
			WarehouseID: wh.ID,
			ItemID:      itemID,
			UpdatedAt:   now,
		})
	}
	if len(missing) == 0 {
		return nil
	}

	if err := uc.repo.CreateIfAbsent(ctx, missing); err != nil {
		return apperror.Unavailable(err, "create stock records")
	}
	return nil
}

func (uc *stockUseCase) StockOf(ctx context.Context, warehouseID, itemID string) (*model.StockRecord, error) {
	rec, err := uc.repo.GetRecord(ctx, warehouseID, itemID)
	if err != nil {
		return nil, apperror.Unavailable(err, "load stock record")
	}
	if rec == nil {
		// Untracked pairs read as zero rather than an error.
		return &model.StockRecord{WarehouseID: warehouseID, ItemID: itemID}, nil
	}
	return rec, nil
}

func (uc *stockUseCase) StockAcrossWarehouses(ctx context.Context, itemID string) ([]model.StockRecord, error) {
	records, err := uc.repo.ListByItem(ctx, itemID)
	if err != nil {
		return nil, apperror.Unavailable(err, "list stock records")
	}
	return records, nil
}

func (uc *stockUseCase) CheckAvailability(ctx context.Context, warehouseID, itemID string, qty int64) (bool, error) {
	rec, err := uc.StockOf(ctx, warehouseID, itemID)
	if err != nil {
		return false, err
	}
	return rec.Available() >= qty, nil
}
