package handlers

import (
	"context"

	"github.com/polkiloo/pixstore/internal/usecase"
)

// CheckoutFacade creates orders and their PIX intents.
type CheckoutFacade interface {
	CreateOrder(ctx context.Context, req usecase.CheckoutRequest) (*usecase.CheckoutResult, error)
}

// PaymentFacade answers storefront polling.
type PaymentFacade interface {
	PaymentStatus(ctx context.Context, paymentID string) (*usecase.PaymentStatus, error)
	ListGrants(ctx context.Context, paymentID string) (*usecase.GrantListing, error)
}

// WebhookFacade processes gateway notifications.
type WebhookFacade interface {
	HandleNotification(ctx context.Context, n usecase.Notification) (*usecase.Ack, error)
}

// DownloadFacade redeems download tokens.
type DownloadFacade interface {
	Redeem(ctx context.Context, token string) (*usecase.Redemption, error)
}

// AdminFacade exposes operator actions.
type AdminFacade interface {
	ReconcilePayment(ctx context.Context, paymentID string) (*usecase.Ack, error)
	InvalidateCatalog(ctx context.Context, productIDs ...int64) error
}

// HealthFacade reports dependency health.
type HealthFacade interface {
	HealthCheck(ctx context.Context) error
}

// StoreFacade aggregates the full set of operations used across handlers.
type StoreFacade interface {
	CheckoutFacade
	PaymentFacade
	WebhookFacade
	DownloadFacade
	AdminFacade
	HealthFacade
}
