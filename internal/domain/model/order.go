package model

import (
	"time"

	"github.com/shopspring/decimal"
)

// OrderStatus describes order lifecycle. Only pending may transition.
type OrderStatus string

const (
	OrderStatusPending   OrderStatus = "pending"
	OrderStatusApproved  OrderStatus = "approved"
	OrderStatusRejected  OrderStatus = "rejected"
	OrderStatusCancelled OrderStatus = "cancelled"
)

// Valid reports whether s is one of the known statuses.
func (s OrderStatus) Valid() bool {
	switch s {
	case OrderStatusPending, OrderStatusApproved, OrderStatusRejected, OrderStatusCancelled:
		return true
	default:
		return false
	}
}

// Terminal reports whether no further transition is permitted.
func (s OrderStatus) Terminal() bool {
	switch s {
	case OrderStatusApproved, OrderStatusRejected, OrderStatusCancelled:
		return true
	case OrderStatusPending:
		return false
	default:
		return false
	}
}

// CanTransitionTo reports whether the order may move from s to target.
func (s OrderStatus) CanTransitionTo(target OrderStatus) bool {
	if s != OrderStatusPending {
		return false
	}
	switch target {
	case OrderStatusApproved, OrderStatusRejected, OrderStatusCancelled:
		return true
	case OrderStatusPending:
		return false
	default:
		return false
	}
}

// Order describes one checkout attempt.
type Order struct {
	ID             int64
	CustomerID     int64
	TotalAmount    decimal.Decimal
	Status         OrderStatus
	PaymentRef     *string
	PaymentMethod  string
	PaymentPayload []byte
	IdempotencyKey *string
	CreatedAt      time.Time
	UpdatedAt      time.Time
}

// HasPayment reports whether a gateway intent has been attached.
func (o *Order) HasPayment() bool {
	return o.PaymentRef != nil && *o.PaymentRef != ""
}

// OrderItem is a line item with the unit price captured at purchase time.
type OrderItem struct {
	ID        int64
	OrderID   int64
	ProductID int64
	Quantity  int
	UnitPrice decimal.Decimal
}

// Subtotal returns quantity times unit price.
func (i OrderItem) Subtotal() decimal.Decimal {
	return i.UnitPrice.Mul(decimal.NewFromInt(int64(i.Quantity)))
}
