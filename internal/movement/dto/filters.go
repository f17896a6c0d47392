package dto

import (
	"time"

	"github.com/omnistore/ledger-service/internal/model"
)

type MovementFilters struct {
	WarehouseID string
	ItemID      string
	Kinds       []model.MovementKind
	Query       string // free text against description
	StartDate   *time.Time
	EndDate     *time.Time
	Page        int
	PageSize    int
}
