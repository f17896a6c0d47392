package usecase

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/omnistore/ledger-service/internal/apperror"
	"github.com/omnistore/ledger-service/internal/model"
	"github.com/omnistore/ledger-service/internal/movement"
	"github.com/omnistore/ledger-service/internal/movement/dto"
	"github.com/omnistore/ledger-service/pkg/logger"
	"github.com/omnistore/ledger-service/pkg/search"
	"go.uber.org/zap"
)

const auditIndex = "movement-entries"

type movementUseCase struct {
	repo   movement.Repository
	es     *search.Client
	logger logger.ZapLogger
}

func NewMovementUseCase(repo movement.Repository, es *search.Client, log logger.ZapLogger) movement.UseCase {
	return &movementUseCase{
		repo:   repo,
		es:     es,
		logger: log,
	}
}

func (uc *movementUseCase) Search(ctx context.Context, f *dto.MovementFilters) ([]model.MovementEntry, int, error) {
	// Free-text lookups go through the audit index when available; the SQL log
	// remains the fallback and the source of truth.
	if f.Query != "" && uc.es != nil {
		entries, count, err := uc.searchES(ctx, f)
		if err == nil {
			return entries, count, nil
		}
		uc.logger.Error("audit index search failed, falling back to SQL", zap.Error(err))
	}

	entries, count, err := uc.repo.Search(ctx, f)
	if err != nil {
		return nil, 0, apperror.Unavailable(err, "search movement log")
	}
	return entries, count, nil
}

func (uc *movementUseCase) searchES(ctx context.Context, f *dto.MovementFilters) ([]model.MovementEntry, int, error) {
	must := []map[string]interface{}{
		{
			"query_string": map[string]interface{}{
				"query":  fmt.Sprintf("*%s*", f.Query),
				"fields": []string{"description", "reference_id"},
			},
		},
	}
	if f.WarehouseID != "" {
		must = append(must, map[string]interface{}{"term": map[string]interface{}{"warehouse_id": f.WarehouseID}})
	}
	if f.ItemID != "" {
		must = append(must, map[string]interface{}{"term": map[string]interface{}{"item_id": f.ItemID}})
	}
	if len(f.Kinds) > 0 {
		kinds := make([]string, len(f.Kinds))
		for i, k := range f.Kinds {
			kinds[i] = string(k)
		}
		must = append(must, map[string]interface{}{"terms": map[string]interface{}{"kind": kinds}})
	}

	q := map[string]interface{}{
		"query": map[string]interface{}{
			"bool": map[string]interface{}{"must": must},
		},
		"sort": []map[string]interface{}{
			{"created_at": map[string]interface{}{"order": "desc"}},
		},
	}
	if f.PageSize > 0 {
		page := f.Page
		if page < 1 {
			page = 1
		}
		q["from"] = (page - 1) * f.PageSize
		q["size"] = f.PageSize
	}

	res, err := uc.es.Search(ctx, auditIndex, q)
	if err != nil {
		return nil, 0, err
	}

	var entries []model.MovementEntry
	for _, hit := range res.Hits.Hits {
		var e model.MovementEntry
		if err := json.Unmarshal(hit.Source, &e); err != nil {
			continue
		}
		entries = append(entries, e)
	}
	return entries, res.Hits.Total.Value, nil
}

func (uc *movementUseCase) Kardex(ctx context.Context, f *dto.MovementFilters) ([]model.MovementEntry, int, error) {
	scoped := *f
	scoped.Kinds = model.KardexKinds()
	return uc.Search(ctx, &scoped)
}

func (uc *movementUseCase) ByReference(ctx context.Context, table, id string) ([]model.MovementEntry, error) {
	entries, err := uc.repo.ByReference(ctx, table, id)
	if err != nil {
		return nil, apperror.Unavailable(err, "load movements by reference")
	}
	return entries, nil
}

func (uc *movementUseCase) LastBalance(ctx context.Context, warehouseID, itemID string) (int64, error) {
	balance, err := uc.repo.LastBalance(ctx, warehouseID, itemID)
	if err != nil {
		return 0, apperror.Unavailable(err, "load last balance")
	}
	return balance, nil
}
