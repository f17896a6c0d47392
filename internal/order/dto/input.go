package dto

import "github.com/omnistore/ledger-service/internal/model"

type CreateOrderInput struct {
	CustomerID      string
	Lines           []CreateOrderLine
	ShippingAddress model.Address
	BillingAddress  model.Address
	ActorID         string
}

type CreateOrderLine struct {
	ItemID   string
	Quantity int64
}

type TransitionInput struct {
	OrderID   string
	NewStatus model.OrderStatus
	Comment   string
	ActorID   string
}

type CancelInput struct {
	OrderID string
	Reason  string
	ActorID string
}

type MarkShippedInput struct {
	OrderID string
	Comment string
	ActorID string
}
