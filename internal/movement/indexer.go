package movement

import (
	"context"

	"github.com/omnistore/ledger-service/internal/model"
	"github.com/omnistore/ledger-service/pkg/logger"
	"github.com/omnistore/ledger-service/pkg/search"
	"go.uber.org/zap"
)

const indexName = "movement-entries"

const indexMapping = `{
	"mappings": {
		"properties": {
			"warehouse_id": { "type": "keyword" },
			"item_id": { "type": "keyword" },
			"kind": { "type": "keyword" },
			"quantity_delta": { "type": "long" },
			"resulting_balance": { "type": "long" },
			"description": { "type": "text" },
			"reference_table": { "type": "keyword" },
			"reference_id": { "type": "keyword" },
			"actor_id": { "type": "keyword" },
			"created_at": { "type": "date" }
		}
	}
}`

// Indexer mirrors movement entries into Elasticsearch for free-text audit
// search. Best effort: the SQL log stays authoritative and indexing failures
// are logged, never surfaced.
type Indexer struct {
	es     *search.Client
	logger logger.ZapLogger
}

func NewIndexer(es *search.Client, log logger.ZapLogger) *Indexer {
	return &Indexer{es: es, logger: log}
}

func (ix *Indexer) Enabled() bool {
	return ix != nil && ix.es != nil
}

func (ix *Indexer) Index(ctx context.Context, entries ...*model.MovementEntry) {
	if !ix.Enabled() {
		return
	}
	_ = ix.es.CreateIndex(ctx, indexName, indexMapping)

	for _, e := range entries {
		if err := ix.es.Index(ctx, indexName, e.ID, e); err != nil {
			ix.logger.Error("failed to index movement entry",
				zap.String("movement_id", e.ID),
				zap.Error(err),
			)
		}
	}
}
