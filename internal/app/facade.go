package app

import (
	"context"
	"time"

	"github.com/polkiloo/pixstore/internal/domain/model"
	"github.com/polkiloo/pixstore/internal/usecase"
)

// HealthChecker reports whether a backing dependency answers.
type HealthChecker interface {
	HealthCheck(ctx context.Context) error
}

// StoreFacade is the single entry point used by HTTP handlers and the reconciler.
type StoreFacade struct {
	catalog   *usecase.CatalogUseCase
	checkout  *usecase.CheckoutUseCase
	webhook   *usecase.WebhookUseCase
	downloads *usecase.DownloadUseCase
	status    *usecase.StatusUseCase
	health    HealthChecker
}

func NewStoreFacade(
	catalog *usecase.CatalogUseCase,
	checkout *usecase.CheckoutUseCase,
	webhook *usecase.WebhookUseCase,
	downloads *usecase.DownloadUseCase,
	status *usecase.StatusUseCase,
	health HealthChecker,
) *StoreFacade {
	return &StoreFacade{
		catalog:   catalog,
		checkout:  checkout,
		webhook:   webhook,
		downloads: downloads,
		status:    status,
		health:    health,
	}
}

func (f *StoreFacade) CreateOrder(ctx context.Context, req usecase.CheckoutRequest) (*usecase.CheckoutResult, error) {
	return f.checkout.CreateOrder(ctx, req)
}

func (f *StoreFacade) PaymentStatus(ctx context.Context, paymentID string) (*usecase.PaymentStatus, error) {
	return f.status.GetStatus(ctx, paymentID)
}

func (f *StoreFacade) ListGrants(ctx context.Context, paymentID string) (*usecase.GrantListing, error) {
	return f.downloads.ListGrants(ctx, paymentID)
}

func (f *StoreFacade) HandleNotification(ctx context.Context, n usecase.Notification) (*usecase.Ack, error) {
	return f.webhook.HandleNotification(ctx, n)
}

func (f *StoreFacade) Redeem(ctx context.Context, token string) (*usecase.Redemption, error) {
	return f.downloads.Redeem(ctx, token)
}

func (f *StoreFacade) ReconcilePayment(ctx context.Context, paymentID string) (*usecase.Ack, error) {
	return f.webhook.ReconcilePayment(ctx, paymentID)
}

func (f *StoreFacade) InvalidateCatalog(ctx context.Context, productIDs ...int64) error {
	return f.catalog.Invalidate(ctx, productIDs...)
}

func (f *StoreFacade) HealthCheck(ctx context.Context) error {
	if f.health == nil {
		return nil
	}
	return f.health.HealthCheck(ctx)
}

func (f *StoreFacade) PendingPayments(ctx context.Context, limit int, olderThan time.Duration) ([]model.Order, error) {
	return f.webhook.PendingPayments(ctx, limit, olderThan)
}

// ReconcileOrder settles one payment for the worker. Ignored payments report
// an empty status.
func (f *StoreFacade) ReconcileOrder(ctx context.Context, paymentID string) (model.OrderStatus, error) {
	ack, err := f.webhook.ReconcilePayment(ctx, paymentID)
	if err != nil {
		return "", err
	}
	return ack.Status, nil
}
