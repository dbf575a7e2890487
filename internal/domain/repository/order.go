package repository

import (
	"context"
	"time"

	"github.com/polkiloo/pixstore/internal/domain/model"
)

// NewOrder carries everything needed to persist a checkout atomically.
type NewOrder struct {
	Customer       model.Customer
	TotalAmount    string
	PaymentMethod  string
	IdempotencyKey *string
	Items          []model.OrderItem
}

// OrderRepository describes persistence operations with orders and their items.
type OrderRepository interface {
	// CreateWithItems upserts the customer by email and inserts the order with its
	// items in one transaction.
	CreateWithItems(ctx context.Context, order NewOrder) (*model.Order, error)
	GetByID(ctx context.Context, id int64) (*model.Order, error)
	GetByPaymentRef(ctx context.Context, ref string) (*model.Order, error)
	GetByIdempotencyKey(ctx context.Context, key string) (*model.Order, error)
	GetCustomer(ctx context.Context, id int64) (*model.Customer, error)
	Items(ctx context.Context, orderID int64) ([]model.OrderItem, error)
	// AttachPayment stores the gateway intent. It never overwrites a different reference.
	AttachPayment(ctx context.Context, orderID int64, ref, method string, payload []byte) error
	// ApplyStatus moves a pending order to target and provisions grants in the same
	// transaction. It reports false when the order was no longer pending.
	ApplyStatus(ctx context.Context, orderID int64, target model.OrderStatus, grants []model.GrantRequest) (bool, error)
	// EnsureGrants inserts missing grants for an approved order and returns how many were created.
	EnsureGrants(ctx context.Context, orderID int64, grants []model.GrantRequest) (int, error)
	SelectPendingForReconcile(ctx context.Context, limit int, checkedBefore time.Time) ([]model.Order, error)
}
