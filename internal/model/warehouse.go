package model

// Warehouse master data, read-only from the ledger's perspective.
type Warehouse struct {
	BaseModel
	Code     string  `db:"code" json:"code"`
	Name     string  `db:"name" json:"name"`
	Address  *string `db:"address" json:"address,omitempty"`
	IsActive bool    `db:"is_active" json:"is_active"`
}
