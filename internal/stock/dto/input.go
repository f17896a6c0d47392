package dto

import "github.com/shopspring/decimal"

type AdjustInput struct {
	WarehouseID    string
	ItemID         string
	QuantityChange int64
	Reason         string
	ReferenceTable string
	ReferenceID    string
	ActorID        string
}

type TransferInput struct {
	FromWarehouseID string
	ToWarehouseID   string
	ItemID          string
	Quantity        int64
	Reason          string
	ActorID         string
}

type ReleaseInput struct {
	WarehouseID    string
	ItemID         string
	Quantity       int64
	Reason         string
	ReferenceTable string
	ReferenceID    string
	ActorID        string
}

type FulfillInput struct {
	WarehouseID    string
	ItemID         string
	Quantity       int64
	Reason         string
	ReferenceTable string
	ReferenceID    string
	ActorID        string
}

type ReceiveInput struct {
	WarehouseID    string
	ItemID         string
	Quantity       int64
	UnitCost       decimal.Decimal
	Reason         string
	ReferenceTable string
	ReferenceID    string
	ActorID        string
}

type ReturnToStockInput struct {
	WarehouseID    string
	ItemID         string
	Quantity       int64
	Reason         string
	ReferenceTable string
	ReferenceID    string
	ActorID        string
}
