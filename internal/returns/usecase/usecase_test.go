package usecase

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/omnistore/ledger-service/internal/apperror"
	"github.com/omnistore/ledger-service/internal/model"
	"github.com/omnistore/ledger-service/internal/returns/dto"
	stockdto "github.com/omnistore/ledger-service/internal/stock/dto"
	"github.com/omnistore/ledger-service/pkg/logger"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type memLocker struct {
	mu    sync.Mutex
	locks map[string]string
}

func newMemLocker() *memLocker {
	return &memLocker{locks: map[string]string{}}
}

func (l *memLocker) AcquireLock(_ context.Context, key, value string, _ time.Duration) (bool, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	if _, held := l.locks[key]; held {
		return false, nil
	}
	l.locks[key] = value
	return true, nil
}

func (l *memLocker) ReleaseLock(_ context.Context, key, value string) error {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.locks[key] == value {
		delete(l.locks, key)
	}
	return nil
}

type memReturnsRepo struct {
	mu       sync.Mutex
	requests map[string]*model.ReturnRequest
	events   map[string][]model.ReturnStatusEvent
}

func newMemReturnsRepo() *memReturnsRepo {
	return &memReturnsRepo{
		requests: map[string]*model.ReturnRequest{},
		events:   map[string][]model.ReturnStatusEvent{},
	}
}

func copyRequest(r *model.ReturnRequest) *model.ReturnRequest {
	copied := *r
	copied.Items = append([]model.ReturnItem(nil), r.Items...)
	return &copied
}

func (r *memReturnsRepo) GetByID(_ context.Context, id string) (*model.ReturnRequest, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	req, ok := r.requests[id]
	if !ok {
		return nil, nil
	}
	return copyRequest(req), nil
}

func (r *memReturnsRepo) ListByOrder(_ context.Context, orderID string) ([]model.ReturnRequest, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []model.ReturnRequest
	for _, req := range r.requests {
		if req.OrderID == orderID {
			out = append(out, *copyRequest(req))
		}
	}
	return out, nil
}

func (r *memReturnsRepo) CreateWithEvent(_ context.Context, req *model.ReturnRequest, event *model.ReturnStatusEvent) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.requests[req.ID] = copyRequest(req)
	r.events[req.ID] = append(r.events[req.ID], *event)
	return nil
}

func (r *memReturnsRepo) UpdateWithEvent(_ context.Context, req *model.ReturnRequest, event *model.ReturnStatusEvent) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.requests[req.ID] = copyRequest(req)
	if event != nil {
		r.events[req.ID] = append(r.events[req.ID], *event)
	}
	return nil
}

func (r *memReturnsRepo) ListEvents(_ context.Context, returnID string) ([]model.ReturnStatusEvent, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]model.ReturnStatusEvent(nil), r.events[returnID]...), nil
}

type memOrderRepo struct {
	orders map[string]*model.Order
	events map[string][]model.OrderStatusEvent
}

func (r *memOrderRepo) GetByID(_ context.Context, id string) (*model.Order, error) {
	o, ok := r.orders[id]
	if !ok {
		return nil, nil
	}
	return o, nil
}

func (r *memOrderRepo) CreateWithEvent(_ context.Context, o *model.Order, event *model.OrderStatusEvent) error {
	r.orders[o.ID] = o
	r.events[o.ID] = append(r.events[o.ID], *event)
	return nil
}

func (r *memOrderRepo) UpdateStatusWithEvent(_ context.Context, o *model.Order, event *model.OrderStatusEvent) error {
	r.orders[o.ID] = o
	r.events[o.ID] = append(r.events[o.ID], *event)
	return nil
}

func (r *memOrderRepo) ListEvents(_ context.Context, orderID string) ([]model.OrderStatusEvent, error) {
	return r.events[orderID], nil
}

// recordingStock records restock calls; every other ledger operation is a
// no-op here because the RMA flow only ever restocks.
type recordingStock struct {
	mu       sync.Mutex
	restocks []*stockdto.ReturnToStockInput
}

func (s *recordingStock) Adjust(context.Context, *stockdto.AdjustInput) (*model.StockRecord, error) {
	return nil, nil
}
func (s *recordingStock) Transfer(context.Context, *stockdto.TransferInput) error { return nil }
func (s *recordingStock) Reserve(context.Context, string, string, int64) error    { return nil }
func (s *recordingStock) Release(context.Context, *stockdto.ReleaseInput) error   { return nil }
func (s *recordingStock) Fulfill(context.Context, *stockdto.FulfillInput) error   { return nil }
func (s *recordingStock) Receive(context.Context, *stockdto.ReceiveInput) (*model.StockRecord, error) {
	return nil, nil
}
func (s *recordingStock) ReturnToStock(_ context.Context, input *stockdto.ReturnToStockInput) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.restocks = append(s.restocks, input)
	return nil
}
func (s *recordingStock) EnsureTracked(context.Context, string) error { return nil }
func (s *recordingStock) StockOf(context.Context, string, string) (*model.StockRecord, error) {
	return &model.StockRecord{}, nil
}
func (s *recordingStock) StockAcrossWarehouses(context.Context, string) ([]model.StockRecord, error) {
	return nil, nil
}
func (s *recordingStock) CheckAvailability(context.Context, string, string, int64) (bool, error) {
	return true, nil
}

type returnsFixture struct {
	uc          *returnUseCase
	repo        *memReturnsRepo
	orders      *memOrderRepo
	stock       *recordingStock
	warehouseID string
	order       *model.Order
}

// newReturnsFixture seeds a delivered two-line order: 2 x 50.00 and 1 x 20.00.
func newReturnsFixture(t *testing.T, deliveredAgo time.Duration) *returnsFixture {
	t.Helper()

	warehouseID := uuid.New().String()
	now := time.Now()

	o := &model.Order{
		BaseModel:  model.BaseModel{ID: uuid.New().String(), CreatedAt: now.Add(-40 * 24 * time.Hour)},
		CustomerID: uuid.New().String(),
		Status:     model.OrderStatusDelivered,
	}
	o.Lines = []model.OrderLine{
		{
			ID:        uuid.New().String(),
			OrderID:   o.ID,
			ItemID:    uuid.New().String(),
			SKU:       "SKU-A",
			Quantity:  2,
			UnitPrice: decimal.RequireFromString("50.00"),
			LineTotal: decimal.RequireFromString("100.00"),
		},
		{
			ID:        uuid.New().String(),
			OrderID:   o.ID,
			ItemID:    uuid.New().String(),
			SKU:       "SKU-B",
			Quantity:  1,
			UnitPrice: decimal.RequireFromString("20.00"),
			LineTotal: decimal.RequireFromString("20.00"),
		},
	}

	orders := &memOrderRepo{
		orders: map[string]*model.Order{o.ID: o},
		events: map[string][]model.OrderStatusEvent{
			o.ID: {
				{ID: uuid.New().String(), OrderID: o.ID, Status: model.OrderStatusPending, CreatedAt: o.CreatedAt},
				{ID: uuid.New().String(), OrderID: o.ID, Status: model.OrderStatusShipped, CreatedAt: o.CreatedAt.Add(24 * time.Hour)},
				{ID: uuid.New().String(), OrderID: o.ID, Status: model.OrderStatusDelivered, CreatedAt: now.Add(-deliveredAgo)},
			},
		},
	}

	repo := newMemReturnsRepo()
	stockUC := &recordingStock{}
	uc := NewReturnUseCase(repo, orders, stockUC, newMemLocker(), logger.NewNop(), warehouseID, 30).(*returnUseCase)

	return &returnsFixture{
		uc:          uc,
		repo:        repo,
		orders:      orders,
		stock:       stockUC,
		warehouseID: warehouseID,
		order:       o,
	}
}

func (f *returnsFixture) open(t *testing.T, reason model.ReturnReason) *model.ReturnRequest {
	t.Helper()
	req, err := f.uc.Open(context.Background(), &dto.OpenReturnInput{
		OrderID: f.order.ID,
		Lines: []dto.OpenReturnLine{
			{OrderLineID: f.order.Lines[0].ID, Quantity: 2},
			{OrderLineID: f.order.Lines[1].ID, Quantity: 1},
		},
		Reason: reason,
	})
	require.NoError(t, err)
	return req
}

func (f *returnsFixture) approve(t *testing.T, req *model.ReturnRequest, shipping string) *model.ReturnRequest {
	t.Helper()
	approved, err := f.uc.ApproveOrReject(context.Background(), &dto.ApproveOrRejectInput{
		ReturnID:       req.ID,
		Approve:        true,
		ShippingRefund: decimal.RequireFromString(shipping),
	})
	require.NoError(t, err)
	return approved
}

// receive walks an approved return through transit to RECEIVED.
func (f *returnsFixture) receive(t *testing.T, req *model.ReturnRequest) *model.ReturnRequest {
	t.Helper()
	ctx := context.Background()
	_, err := f.uc.MarkInTransit(ctx, &dto.MarkInTransitInput{ReturnID: req.ID})
	require.NoError(t, err)
	received, err := f.uc.MarkReceived(ctx, &dto.MarkReceivedInput{ReturnID: req.ID})
	require.NoError(t, err)
	return received
}

func TestOpenReturn(t *testing.T) {
	ctx := context.Background()

	t.Run("seeds refund from order prices", func(t *testing.T) {
		f := newReturnsFixture(t, 5*24*time.Hour)

		req := f.open(t, model.ReasonChangedMind)
		assert.Equal(t, model.ReturnStatusPending, req.Status)
		require.Len(t, req.Items, 2)
		assert.True(t, req.Items[0].RefundAmount.Equal(decimal.RequireFromString("100.00")))
		assert.True(t, req.Items[1].RefundAmount.Equal(decimal.RequireFromString("20.00")))
		assert.True(t, req.RefundAmount.Equal(decimal.RequireFromString("120.00")))

		events, err := f.uc.History(ctx, req.ID)
		require.NoError(t, err)
		require.Len(t, events, 1)
		assert.Equal(t, model.ReturnStatusPending, events[0].Status)
	})

	t.Run("rejects undelivered orders", func(t *testing.T) {
		f := newReturnsFixture(t, 5*24*time.Hour)
		f.order.Status = model.OrderStatusShipped

		_, err := f.uc.Open(ctx, &dto.OpenReturnInput{
			OrderID: f.order.ID,
			Lines:   []dto.OpenReturnLine{{OrderLineID: f.order.Lines[0].ID, Quantity: 1}},
			Reason:  model.ReasonDefective,
		})
		require.Error(t, err)
		assert.True(t, apperror.IsKind(err, apperror.KindValidationFailure))
	})

	t.Run("rejects expired window", func(t *testing.T) {
		f := newReturnsFixture(t, 31*24*time.Hour)

		_, err := f.uc.Open(ctx, &dto.OpenReturnInput{
			OrderID: f.order.ID,
			Lines:   []dto.OpenReturnLine{{OrderLineID: f.order.Lines[0].ID, Quantity: 1}},
			Reason:  model.ReasonDefective,
		})
		require.Error(t, err)
		assert.True(t, apperror.IsKind(err, apperror.KindExpiredReturnWindow))
	})

	t.Run("rejects foreign order line", func(t *testing.T) {
		f := newReturnsFixture(t, 5*24*time.Hour)

		_, err := f.uc.Open(ctx, &dto.OpenReturnInput{
			OrderID: f.order.ID,
			Lines:   []dto.OpenReturnLine{{OrderLineID: uuid.New().String(), Quantity: 1}},
			Reason:  model.ReasonDefective,
		})
		require.Error(t, err)
		assert.True(t, apperror.IsKind(err, apperror.KindNotFound))
	})

	t.Run("rejects quantity beyond purchase", func(t *testing.T) {
		f := newReturnsFixture(t, 5*24*time.Hour)

		_, err := f.uc.Open(ctx, &dto.OpenReturnInput{
			OrderID: f.order.ID,
			Lines:   []dto.OpenReturnLine{{OrderLineID: f.order.Lines[0].ID, Quantity: 3}},
			Reason:  model.ReasonDefective,
		})
		require.Error(t, err)
		assert.True(t, apperror.IsKind(err, apperror.KindValidationFailure))
	})

	t.Run("rejects double claims on a line", func(t *testing.T) {
		f := newReturnsFixture(t, 5*24*time.Hour)
		f.open(t, model.ReasonChangedMind)

		_, err := f.uc.Open(ctx, &dto.OpenReturnInput{
			OrderID: f.order.ID,
			Lines:   []dto.OpenReturnLine{{OrderLineID: f.order.Lines[0].ID, Quantity: 1}},
			Reason:  model.ReasonDefective,
		})
		require.Error(t, err)
		assert.True(t, apperror.IsKind(err, apperror.KindDuplicateReturnClaim))
	})

	t.Run("rejects the same line listed twice", func(t *testing.T) {
		f := newReturnsFixture(t, 5*24*time.Hour)

		_, err := f.uc.Open(ctx, &dto.OpenReturnInput{
			OrderID: f.order.ID,
			Lines: []dto.OpenReturnLine{
				{OrderLineID: f.order.Lines[0].ID, Quantity: 2},
				{OrderLineID: f.order.Lines[0].ID, Quantity: 2},
			},
			Reason: model.ReasonChangedMind,
		})
		require.Error(t, err)
		assert.True(t, apperror.IsKind(err, apperror.KindDuplicateReturnClaim))
	})

	t.Run("cancelled claims free the line again", func(t *testing.T) {
		f := newReturnsFixture(t, 5*24*time.Hour)
		first := f.open(t, model.ReasonChangedMind)

		_, err := f.uc.Cancel(ctx, &dto.CancelReturnInput{ReturnID: first.ID, Reason: "opened by mistake"})
		require.NoError(t, err)

		_, err = f.uc.Open(ctx, &dto.OpenReturnInput{
			OrderID: f.order.ID,
			Lines:   []dto.OpenReturnLine{{OrderLineID: f.order.Lines[0].ID, Quantity: 1}},
			Reason:  model.ReasonDefective,
		})
		require.NoError(t, err)
	})

	t.Run("rejects unknown reason", func(t *testing.T) {
		f := newReturnsFixture(t, 5*24*time.Hour)

		_, err := f.uc.Open(ctx, &dto.OpenReturnInput{
			OrderID: f.order.ID,
			Lines:   []dto.OpenReturnLine{{OrderLineID: f.order.Lines[0].ID, Quantity: 1}},
			Reason:  model.ReturnReason("VIBES"),
		})
		require.Error(t, err)
		assert.True(t, apperror.IsKind(err, apperror.KindValidationFailure))
	})
}

func TestApproveOrReject(t *testing.T) {
	ctx := context.Background()

	t.Run("approval withholds the restocking fee", func(t *testing.T) {
		f := newReturnsFixture(t, 5*24*time.Hour)
		req := f.open(t, model.ReasonChangedMind)

		approved := f.approve(t, req, "0.00")
		assert.Equal(t, model.ReturnStatusApproved, approved.Status)
		require.NotNil(t, approved.ApprovedAt)

		// CHANGED_MIND carries a 10% fee: 120.00 -> 12.00 fee, 108.00 refund.
		assert.True(t, approved.RestockingFee.Equal(decimal.RequireFromString("12.00")))
		assert.True(t, approved.RefundAmount.Equal(decimal.RequireFromString("108.00")))
	})

	t.Run("seller fault carries no fee", func(t *testing.T) {
		f := newReturnsFixture(t, 5*24*time.Hour)
		req := f.open(t, model.ReasonDefective)

		approved := f.approve(t, req, "7.50")
		assert.True(t, approved.RestockingFee.IsZero())
		assert.True(t, approved.RefundAmount.Equal(decimal.RequireFromString("127.50")))
		assert.True(t, approved.ShippingCostRefund.Equal(decimal.RequireFromString("7.50")))
	})

	t.Run("rejection requires a comment", func(t *testing.T) {
		f := newReturnsFixture(t, 5*24*time.Hour)
		req := f.open(t, model.ReasonOther)

		_, err := f.uc.ApproveOrReject(ctx, &dto.ApproveOrRejectInput{ReturnID: req.ID, Approve: false})
		require.Error(t, err)
		assert.True(t, apperror.IsKind(err, apperror.KindValidationFailure))

		rejected, err := f.uc.ApproveOrReject(ctx, &dto.ApproveOrRejectInput{
			ReturnID: req.ID,
			Approve:  false,
			Comment:  "outside policy",
		})
		require.NoError(t, err)
		assert.Equal(t, model.ReturnStatusRejected, rejected.Status)
	})

	t.Run("only pending returns are decidable", func(t *testing.T) {
		f := newReturnsFixture(t, 5*24*time.Hour)
		req := f.open(t, model.ReasonOther)
		f.approve(t, req, "0.00")

		_, err := f.uc.ApproveOrReject(ctx, &dto.ApproveOrRejectInput{ReturnID: req.ID, Approve: true})
		require.Error(t, err)
		assert.True(t, apperror.IsKind(err, apperror.KindInvalidTransition))
	})
}

func TestReturnShipping(t *testing.T) {
	ctx := context.Background()

	t.Run("walks approved through transit to received", func(t *testing.T) {
		f := newReturnsFixture(t, 5*24*time.Hour)
		req := f.approve(t, f.open(t, model.ReasonDefective), "0.00")

		received := f.receive(t, req)
		assert.Equal(t, model.ReturnStatusReceived, received.Status)
		require.NotNil(t, received.ReceivedAt)
	})

	t.Run("pending returns cannot ship", func(t *testing.T) {
		f := newReturnsFixture(t, 5*24*time.Hour)
		req := f.open(t, model.ReasonDefective)

		_, err := f.uc.MarkInTransit(ctx, &dto.MarkInTransitInput{ReturnID: req.ID})
		require.Error(t, err)
		assert.True(t, apperror.IsKind(err, apperror.KindInvalidTransition))
	})
}

func TestInspectItem(t *testing.T) {
	ctx := context.Background()

	t.Run("first inspection starts the inspecting phase", func(t *testing.T) {
		f := newReturnsFixture(t, 5*24*time.Hour)
		req := f.receive(t, f.approve(t, f.open(t, model.ReasonChangedMind), "0.00"))

		updated, err := f.uc.InspectItem(ctx, &dto.InspectItemInput{
			ReturnID:        req.ID,
			ReturnItemID:    req.Items[0].ID,
			Condition:       model.ConditionUnopened,
			RestockApproved: true,
			InspectorID:     "inspector-1",
		})
		require.NoError(t, err)
		assert.Equal(t, model.ReturnStatusInspecting, updated.Status)
		require.NotNil(t, updated.Items[0].Condition)
		require.NotNil(t, updated.Items[0].InspectedAt)
	})

	t.Run("condition scales the item refund", func(t *testing.T) {
		f := newReturnsFixture(t, 5*24*time.Hour)
		req := f.receive(t, f.approve(t, f.open(t, model.ReasonChangedMind), "0.00"))

		// DAMAGED refunds 30%: the 100.00 line drops to 30.00.
		updated, err := f.uc.InspectItem(ctx, &dto.InspectItemInput{
			ReturnID:     req.ID,
			ReturnItemID: req.Items[0].ID,
			Condition:    model.ConditionDamaged,
		})
		require.NoError(t, err)
		assert.True(t, updated.Items[0].RefundAmount.Equal(decimal.RequireFromString("30.00")))
	})

	t.Run("completing inspection recomputes the total", func(t *testing.T) {
		f := newReturnsFixture(t, 5*24*time.Hour)
		req := f.receive(t, f.approve(t, f.open(t, model.ReasonChangedMind), "0.00"))

		_, err := f.uc.InspectItem(ctx, &dto.InspectItemInput{
			ReturnID:     req.ID,
			ReturnItemID: req.Items[0].ID,
			Condition:    model.ConditionDamaged,
		})
		require.NoError(t, err)

		updated, err := f.uc.InspectItem(ctx, &dto.InspectItemInput{
			ReturnID:        req.ID,
			ReturnItemID:    req.Items[1].ID,
			Condition:       model.ConditionUnopened,
			RestockApproved: true,
		})
		require.NoError(t, err)

		// 30.00 + 20.00 items, minus the 12.00 fee from approval.
		assert.True(t, updated.RefundAmount.Equal(decimal.RequireFromString("38.00")))
	})

	t.Run("an item is inspected exactly once", func(t *testing.T) {
		f := newReturnsFixture(t, 5*24*time.Hour)
		req := f.receive(t, f.approve(t, f.open(t, model.ReasonChangedMind), "0.00"))

		_, err := f.uc.InspectItem(ctx, &dto.InspectItemInput{
			ReturnID:     req.ID,
			ReturnItemID: req.Items[0].ID,
			Condition:    model.ConditionUsedGood,
		})
		require.NoError(t, err)

		_, err = f.uc.InspectItem(ctx, &dto.InspectItemInput{
			ReturnID:     req.ID,
			ReturnItemID: req.Items[0].ID,
			Condition:    model.ConditionUnopened,
		})
		require.Error(t, err)
		assert.True(t, apperror.IsKind(err, apperror.KindAlreadyInspected))
	})

	t.Run("rejects unknown condition", func(t *testing.T) {
		f := newReturnsFixture(t, 5*24*time.Hour)
		req := f.receive(t, f.approve(t, f.open(t, model.ReasonChangedMind), "0.00"))

		_, err := f.uc.InspectItem(ctx, &dto.InspectItemInput{
			ReturnID:     req.ID,
			ReturnItemID: req.Items[0].ID,
			Condition:    model.ItemCondition("PRISTINE"),
		})
		require.Error(t, err)
		assert.True(t, apperror.IsKind(err, apperror.KindValidationFailure))
	})
}

func TestCompleteInspectionAndRefund(t *testing.T) {
	ctx := context.Background()

	inspectAll := func(t *testing.T, f *returnsFixture, req *model.ReturnRequest, restock bool) {
		t.Helper()
		for _, item := range req.Items {
			_, err := f.uc.InspectItem(ctx, &dto.InspectItemInput{
				ReturnID:        req.ID,
				ReturnItemID:    item.ID,
				Condition:       model.ConditionUnopened,
				RestockApproved: restock,
			})
			require.NoError(t, err)
		}
	}

	t.Run("refund waits for every item", func(t *testing.T) {
		f := newReturnsFixture(t, 5*24*time.Hour)
		req := f.receive(t, f.approve(t, f.open(t, model.ReasonChangedMind), "0.00"))

		_, err := f.uc.InspectItem(ctx, &dto.InspectItemInput{
			ReturnID:     req.ID,
			ReturnItemID: req.Items[0].ID,
			Condition:    model.ConditionUnopened,
		})
		require.NoError(t, err)

		_, err = f.uc.CompleteInspection(ctx, &dto.CompleteInspectionInput{ReturnID: req.ID})
		require.Error(t, err)
		assert.True(t, apperror.IsKind(err, apperror.KindPendingInspection))

		_, err = f.uc.ProcessRefund(ctx, &dto.ProcessRefundInput{ReturnID: req.ID, RefundMethod: "store_credit"})
		require.Error(t, err)
		assert.True(t, apperror.IsKind(err, apperror.KindPendingInspection))
	})

	t.Run("refund requires a method", func(t *testing.T) {
		f := newReturnsFixture(t, 5*24*time.Hour)
		req := f.receive(t, f.approve(t, f.open(t, model.ReasonChangedMind), "0.00"))
		inspectAll(t, f, req, true)

		_, err := f.uc.ProcessRefund(ctx, &dto.ProcessRefundInput{ReturnID: req.ID})
		require.Error(t, err)
		assert.True(t, apperror.IsKind(err, apperror.KindValidationFailure))
	})

	t.Run("refund moves to refunded", func(t *testing.T) {
		f := newReturnsFixture(t, 5*24*time.Hour)
		req := f.receive(t, f.approve(t, f.open(t, model.ReasonChangedMind), "0.00"))
		inspectAll(t, f, req, true)

		_, err := f.uc.CompleteInspection(ctx, &dto.CompleteInspectionInput{ReturnID: req.ID, Comment: "all good"})
		require.NoError(t, err)

		refunded, err := f.uc.ProcessRefund(ctx, &dto.ProcessRefundInput{ReturnID: req.ID, RefundMethod: "original_payment"})
		require.NoError(t, err)
		assert.Equal(t, model.ReturnStatusRefunded, refunded.Status)
		require.NotNil(t, refunded.RefundedAt)
		require.NotNil(t, refunded.RefundMethod)
		assert.Equal(t, "original_payment", *refunded.RefundMethod)
	})
}

func TestCloseReturn(t *testing.T) {
	ctx := context.Background()

	// walk drives a fresh return to REFUNDED, inspecting each item with the
	// given condition and restock decision.
	walk := func(t *testing.T, f *returnsFixture, conditions []model.ItemCondition, restock []bool) *model.ReturnRequest {
		t.Helper()
		req := f.receive(t, f.approve(t, f.open(t, model.ReasonChangedMind), "0.00"))
		for i, item := range req.Items {
			_, err := f.uc.InspectItem(ctx, &dto.InspectItemInput{
				ReturnID:        req.ID,
				ReturnItemID:    item.ID,
				Condition:       conditions[i],
				RestockApproved: restock[i],
			})
			require.NoError(t, err)
		}
		refunded, err := f.uc.ProcessRefund(ctx, &dto.ProcessRefundInput{ReturnID: req.ID, RefundMethod: "store_credit"})
		require.NoError(t, err)
		return refunded
	}

	t.Run("restocks only approved sellable items", func(t *testing.T) {
		f := newReturnsFixture(t, 5*24*time.Hour)
		req := walk(t, f,
			[]model.ItemCondition{model.ConditionUnopened, model.ConditionDamaged},
			[]bool{true, true},
		)

		closed, err := f.uc.Close(ctx, &dto.CloseReturnInput{ReturnID: req.ID})
		require.NoError(t, err)
		assert.Equal(t, model.ReturnStatusClosed, closed.Status)
		require.NotNil(t, closed.ClosedAt)

		// Only the unopened line goes back on the shelf.
		require.Len(t, f.stock.restocks, 1)
		assert.Equal(t, req.Items[0].ItemID, f.stock.restocks[0].ItemID)
		assert.Equal(t, int64(2), f.stock.restocks[0].Quantity)
		assert.Equal(t, f.warehouseID, f.stock.restocks[0].WarehouseID)
		assert.Equal(t, "return_requests", f.stock.restocks[0].ReferenceTable)
		assert.Equal(t, req.ID, f.stock.restocks[0].ReferenceID)
	})

	t.Run("defective items never restock", func(t *testing.T) {
		f := newReturnsFixture(t, 5*24*time.Hour)
		req := walk(t, f,
			[]model.ItemCondition{model.ConditionDefective, model.ConditionDefective},
			[]bool{true, true},
		)

		_, err := f.uc.Close(ctx, &dto.CloseReturnInput{ReturnID: req.ID})
		require.NoError(t, err)
		assert.Empty(t, f.stock.restocks)
	})

	t.Run("restock needs explicit approval", func(t *testing.T) {
		f := newReturnsFixture(t, 5*24*time.Hour)
		req := walk(t, f,
			[]model.ItemCondition{model.ConditionUnopened, model.ConditionUnopened},
			[]bool{false, false},
		)

		_, err := f.uc.Close(ctx, &dto.CloseReturnInput{ReturnID: req.ID})
		require.NoError(t, err)
		assert.Empty(t, f.stock.restocks)
	})

	t.Run("only refunded returns close", func(t *testing.T) {
		f := newReturnsFixture(t, 5*24*time.Hour)
		req := f.open(t, model.ReasonChangedMind)

		_, err := f.uc.Close(ctx, &dto.CloseReturnInput{ReturnID: req.ID})
		require.Error(t, err)
		assert.True(t, apperror.IsKind(err, apperror.KindInvalidTransition))
	})
}

func TestCancelReturn(t *testing.T) {
	ctx := context.Background()

	t.Run("pending and approved cancel", func(t *testing.T) {
		f := newReturnsFixture(t, 5*24*time.Hour)
		req := f.open(t, model.ReasonOther)

		cancelled, err := f.uc.Cancel(ctx, &dto.CancelReturnInput{ReturnID: req.ID, Reason: "customer kept it"})
		require.NoError(t, err)
		assert.Equal(t, model.ReturnStatusCancelled, cancelled.Status)
	})

	t.Run("received returns cannot cancel", func(t *testing.T) {
		f := newReturnsFixture(t, 5*24*time.Hour)
		req := f.receive(t, f.approve(t, f.open(t, model.ReasonOther), "0.00"))

		_, err := f.uc.Cancel(ctx, &dto.CancelReturnInput{ReturnID: req.ID, Reason: "too late"})
		require.Error(t, err)
		assert.True(t, apperror.IsKind(err, apperror.KindInvalidTransition))
	})
}
