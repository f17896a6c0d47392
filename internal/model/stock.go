package model

import (
	"time"

	"github.com/shopspring/decimal"
)

// StockRecord tracks physical and reserved quantity per (warehouse, item).
// Created lazily on the first stock-affecting operation for the pair.
type StockRecord struct {
	ID               string    `db:"id" json:"id"`
	WarehouseID      string    `db:"warehouse_id" json:"warehouse_id"`
	ItemID           string    `db:"item_id" json:"item_id"`
	Quantity         int64     `db:"quantity" json:"quantity"`
	ReservedQuantity int64     `db:"reserved_quantity" json:"reserved_quantity"`
	UpdatedAt        time.Time `db:"updated_at" json:"updated_at"`
}

// Available is the quantity not claimed by reservations.
func (s *StockRecord) Available() int64 {
	return s.Quantity - s.ReservedQuantity
}

type MovementKind string

const (
	MovementAdjustment   MovementKind = "ADJUSTMENT"
	MovementPurchase     MovementKind = "PURCHASE"
	MovementSale         MovementKind = "SALE"
	MovementReturn       MovementKind = "RETURN"
	MovementTransferIn   MovementKind = "TRANSFER_IN"
	MovementTransferOut  MovementKind = "TRANSFER_OUT"
	MovementCancellation MovementKind = "CANCELLATION"
)

// KardexKinds is the accounting view of the movement log. Transfers and
// cancellations stay in the full audit trail but are filtered out here.
func KardexKinds() []MovementKind {
	return []MovementKind{MovementAdjustment, MovementPurchase, MovementSale, MovementReturn}
}

// MovementEntry is an append-only record of one quantity change at one warehouse.
// Never mutated or deleted.
type MovementEntry struct {
	ID               string           `db:"id" json:"id"`
	WarehouseID      string           `db:"warehouse_id" json:"warehouse_id"`
	ItemID           string           `db:"item_id" json:"item_id"`
	Kind             MovementKind     `db:"kind" json:"kind"`
	QuantityDelta    int64            `db:"quantity_delta" json:"quantity_delta"`
	ResultingBalance int64            `db:"resulting_balance" json:"resulting_balance"`
	UnitCost         *decimal.Decimal `db:"unit_cost" json:"unit_cost,omitempty"`
	Description      string           `db:"description" json:"description"`
	ReferenceTable   *string          `db:"reference_table" json:"reference_table,omitempty"`
	ReferenceID      *string          `db:"reference_id" json:"reference_id,omitempty"`
	ActorID          *string          `db:"actor_id" json:"actor_id,omitempty"`
	CreatedAt        time.Time        `db:"created_at" json:"created_at"`
}
