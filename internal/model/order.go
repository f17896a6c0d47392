package model

import (
	"database/sql/driver"
	"encoding/json"
	"fmt"
	"time"

	"github.com/shopspring/decimal"
)

type OrderStatus string

const (
	OrderStatusPending      OrderStatus = "PENDING"
	OrderStatusAwaitPayment OrderStatus = "AWAIT_PAYMENT"
	OrderStatusPaid         OrderStatus = "PAID"
	OrderStatusProcessing   OrderStatus = "PROCESSING"
	OrderStatusShipped      OrderStatus = "SHIPPED"
	OrderStatusDelivered    OrderStatus = "DELIVERED"
	OrderStatusCancelled    OrderStatus = "CANCELLED"
	OrderStatusRefunded     OrderStatus = "REFUNDED"
)

// orderTransitions is the single authoritative transition table. Collaborators
// must not keep their own copy. Shipped orders are not cancellable.
var orderTransitions = map[OrderStatus][]OrderStatus{
	OrderStatusPending:      {OrderStatusAwaitPayment, OrderStatusCancelled},
	OrderStatusAwaitPayment: {OrderStatusPaid, OrderStatusCancelled},
	OrderStatusPaid:         {OrderStatusProcessing, OrderStatusRefunded},
	OrderStatusProcessing:   {OrderStatusShipped, OrderStatusCancelled},
	OrderStatusShipped:      {OrderStatusDelivered},
	OrderStatusDelivered:    {OrderStatusRefunded},
}

func (s OrderStatus) CanTransitionTo(next OrderStatus) bool {
	for _, allowed := range orderTransitions[s] {
		if allowed == next {
			return true
		}
	}
	return false
}

func (s OrderStatus) IsTerminal() bool {
	return s == OrderStatusCancelled || s == OrderStatusRefunded
}

// OrderCancellableStatuses are the statuses from which an order cancellation
// (with stock release) is allowed.
func OrderCancellableStatuses() []OrderStatus {
	return []OrderStatus{OrderStatusPending, OrderStatusAwaitPayment, OrderStatusProcessing}
}

func ValidOrderStatus(s string) bool {
	switch OrderStatus(s) {
	case OrderStatusPending, OrderStatusAwaitPayment, OrderStatusPaid, OrderStatusProcessing,
		OrderStatusShipped, OrderStatusDelivered, OrderStatusCancelled, OrderStatusRefunded:
		return true
	}
	return false
}

// Address is an immutable snapshot taken at checkout, stored as jsonb.
type Address struct {
	Street  string `json:"street"`
	City    string `json:"city"`
	State   string `json:"state"`
	ZipCode string `json:"zip_code"`
	Country string `json:"country"`
}

func (a Address) Value() (driver.Value, error) {
	return json.Marshal(a)
}

func (a *Address) Scan(src interface{}) error {
	switch v := src.(type) {
	case []byte:
		return json.Unmarshal(v, a)
	case string:
		return json.Unmarshal([]byte(v), a)
	case nil:
		return nil
	}
	return fmt.Errorf("address: cannot scan %T", src)
}

// Order is never physically deleted; cancellation is a status.
type Order struct {
	BaseModel
	CustomerID      string          `db:"customer_id" json:"customer_id"`
	Status          OrderStatus     `db:"status" json:"status"`
	Total           decimal.Decimal `db:"total" json:"total"`
	ShippingAddress Address         `db:"shipping_address" json:"shipping_address"`
	BillingAddress  Address         `db:"billing_address" json:"billing_address"`
	Lines           []OrderLine     `db:"-" json:"lines"`
}

type OrderLine struct {
	ID        string          `db:"id" json:"id"`
	OrderID   string          `db:"order_id" json:"order_id"`
	ItemID    string          `db:"item_id" json:"item_id"`
	SKU       string          `db:"sku" json:"sku"`
	Name      string          `db:"name" json:"name"`
	Quantity  int64           `db:"quantity" json:"quantity"`
	UnitPrice decimal.Decimal `db:"unit_price" json:"unit_price"`
	LineTotal decimal.Decimal `db:"line_total" json:"line_total"`
}

// OrderStatusEvent is append-only; one row per transition, including creation.
type OrderStatusEvent struct {
	ID        string      `db:"id" json:"id"`
	OrderID   string      `db:"order_id" json:"order_id"`
	Status    OrderStatus `db:"status" json:"status"`
	Comment   string      `db:"comment" json:"comment"`
	ActorID   *string     `db:"actor_id" json:"actor_id,omitempty"`
	CreatedAt time.Time   `db:"created_at" json:"created_at"`
}
