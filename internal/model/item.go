package model

import "github.com/shopspring/decimal"

// Item is the sellable-item master, owned by the catalog module outside this
// core. Order creation reads it for pricing and active checks.
type Item struct {
	BaseModel
	SKU       string           `db:"sku" json:"sku"`
	Name      string           `db:"name" json:"name"`
	Price     decimal.Decimal  `db:"price" json:"price"`
	CostPrice *decimal.Decimal `db:"cost_price" json:"cost_price,omitempty"`
	IsActive  bool             `db:"is_active" json:"is_active"`
}
