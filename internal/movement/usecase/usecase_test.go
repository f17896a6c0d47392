package usecase

import (
	"context"
	"testing"

	"github.com/omnistore/ledger-service/internal/model"
	"github.com/omnistore/ledger-service/internal/movement/dto"
	"github.com/omnistore/ledger-service/pkg/logger"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type recordingRepo struct {
	lastFilters *dto.MovementFilters
	entries     []model.MovementEntry
	balance     int64
}

func (r *recordingRepo) Search(_ context.Context, f *dto.MovementFilters) ([]model.MovementEntry, int, error) {
	r.lastFilters = f
	return r.entries, len(r.entries), nil
}

func (r *recordingRepo) ByReference(_ context.Context, _, _ string) ([]model.MovementEntry, error) {
	return r.entries, nil
}

func (r *recordingRepo) LastBalance(_ context.Context, _, _ string) (int64, error) {
	return r.balance, nil
}

func TestKardexScopesKinds(t *testing.T) {
	repo := &recordingRepo{entries: []model.MovementEntry{{ID: "m-1"}}}
	uc := NewMovementUseCase(repo, nil, logger.NewNop())

	// The caller's kind filter is overridden, and the caller's own filter
	// struct must stay untouched.
	filters := &dto.MovementFilters{
		WarehouseID: "wh-1",
		Kinds:       []model.MovementKind{model.MovementCancellation},
	}
	entries, count, err := uc.Kardex(context.Background(), filters)
	require.NoError(t, err)
	assert.Len(t, entries, 1)
	assert.Equal(t, 1, count)

	require.NotNil(t, repo.lastFilters)
	assert.ElementsMatch(t, []model.MovementKind{
		model.MovementAdjustment,
		model.MovementPurchase,
		model.MovementSale,
		model.MovementReturn,
	}, repo.lastFilters.Kinds)
	assert.Equal(t, "wh-1", repo.lastFilters.WarehouseID)

	assert.Equal(t, []model.MovementKind{model.MovementCancellation}, filters.Kinds)
}

func TestSearchFallsBackToSQLWithoutIndex(t *testing.T) {
	repo := &recordingRepo{entries: []model.MovementEntry{{ID: "m-1"}, {ID: "m-2"}}}
	uc := NewMovementUseCase(repo, nil, logger.NewNop())

	entries, count, err := uc.Search(context.Background(), &dto.MovementFilters{Query: "PO-1042"})
	require.NoError(t, err)
	assert.Len(t, entries, 2)
	assert.Equal(t, 2, count)
}

func TestLastBalance(t *testing.T) {
	repo := &recordingRepo{balance: 42}
	uc := NewMovementUseCase(repo, nil, logger.NewNop())

	balance, err := uc.LastBalance(context.Background(), "wh-1", "item-1")
	require.NoError(t, err)
	assert.Equal(t, int64(42), balance)
}
