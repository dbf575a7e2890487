package app

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"net/url"
	"testing"
	"time"

	"github.com/shopspring/decimal"

	"github.com/polkiloo/pixstore/internal/cache"
	domainErrors "github.com/polkiloo/pixstore/internal/domain/errors"
	"github.com/polkiloo/pixstore/internal/domain/model"
	testhelpers "github.com/polkiloo/pixstore/internal/test"
	"github.com/polkiloo/pixstore/internal/usecase"
)

type healthStub struct {
	err error
}

func (h healthStub) HealthCheck(context.Context) error { return h.err }

func newFacade(health HealthChecker) (*StoreFacade, *testhelpers.MemoryStore, *testhelpers.GatewayStub) {
	store := testhelpers.NewMemoryStore()
	store.AddProduct(model.Product{ID: 1, Name: "Ebook Go", Price: decimal.RequireFromString("99.90"), FileFormat: "pdf", DownloadURL: "https://cdn.example.com/ebook-go.pdf", Active: true})
	gateway := testhelpers.NewGatewayStub()

	now := time.Date(2026, 3, 10, 12, 0, 0, 0, time.UTC)
	clock := func() time.Time { return now }
	policy := usecase.Policy{
		MaxDownloads:  2,
		DownloadTTL:   24 * time.Hour,
		PublicBaseURL: "https://shop.example.com",
		PollInterval:  3 * time.Second,
	}
	logger := slog.New(slog.NewJSONHandler(io.Discard, nil))

	catalog := usecase.NewCatalogUseCase(store.Products(), cache.NewMemoryCache(time.Minute, clock))
	facade := NewStoreFacade(
		catalog,
		usecase.NewCheckoutUseCase(store.Orders(), catalog, gateway, logger),
		usecase.NewWebhookUseCase(store.Orders(), store.Downloads(), catalog, gateway, &testhelpers.NotifierStub{}, policy, clock, usecase.NewDownloadToken, logger),
		usecase.NewDownloadUseCase(store.Orders(), store.Downloads(), catalog, testhelpers.ResolverStub{}, policy, clock, logger),
		usecase.NewStatusUseCase(store.Orders(), gateway, policy),
		health,
	)
	return facade, store, gateway
}

func checkout(t *testing.T, facade *StoreFacade) *usecase.CheckoutResult {
	t.Helper()
	result, err := facade.CreateOrder(context.Background(), usecase.CheckoutRequest{
		CustomerName:  "Ana",
		CustomerEmail: testhelpers.RandomEmail(),
		Items:         []usecase.CheckoutItem{{ProductID: 1, Quantity: 1}},
	})
	if err != nil {
		t.Fatalf("create order: %v", err)
	}
	return result
}

func TestStoreFacadePurchaseFlow(t *testing.T) {
	ctx := context.Background()
	facade, _, gateway := newFacade(nil)

	result := checkout(t, facade)
	paymentID := result.Intent.ID

	status, err := facade.PaymentStatus(ctx, paymentID)
	if err != nil {
		t.Fatalf("payment status: %v", err)
	}
	if status.Status != model.OrderStatusPending || status.PollInterval != 3*time.Second {
		t.Fatalf("unexpected pending status %+v", status)
	}

	if _, err := facade.ListGrants(ctx, paymentID); !errors.Is(err, domainErrors.ErrOrderNotApproved) {
		t.Fatalf("expected grants to be hidden before approval, got %v", err)
	}

	gateway.SetStatus(paymentID, model.GatewayStatusApproved)
	ack, err := facade.HandleNotification(ctx, usecase.Notification{Kind: "payment", PaymentID: paymentID})
	if err != nil {
		t.Fatalf("handle notification: %v", err)
	}
	if !ack.Changed || ack.Status != model.OrderStatusApproved {
		t.Fatalf("unexpected ack %+v", ack)
	}

	listing, err := facade.ListGrants(ctx, paymentID)
	if err != nil {
		t.Fatalf("list grants: %v", err)
	}
	if len(listing.Downloads) != 1 || listing.Downloads[0].Remaining != 2 {
		t.Fatalf("unexpected downloads %+v", listing.Downloads)
	}

	link, err := url.Parse(listing.Downloads[0].URL)
	if err != nil {
		t.Fatalf("parse download url: %v", err)
	}
	redemption, err := facade.Redeem(ctx, link.Query().Get("token"))
	if err != nil {
		t.Fatalf("redeem: %v", err)
	}
	if redemption.Location != "https://cdn.example.com/ebook-go.pdf" {
		t.Fatalf("unexpected location %q", redemption.Location)
	}

	if err := facade.InvalidateCatalog(ctx); err != nil {
		t.Fatalf("invalidate catalog: %v", err)
	}
	if err := facade.HealthCheck(ctx); err != nil {
		t.Fatalf("expected nil health checker to report healthy, got %v", err)
	}
}

func TestStoreFacadeReconcileOrder(t *testing.T) {
	ctx := context.Background()
	facade, _, gateway := newFacade(nil)
	result := checkout(t, facade)
	paymentID := result.Intent.ID

	pending, err := facade.PendingPayments(ctx, 10, time.Minute)
	if err != nil {
		t.Fatalf("pending payments: %v", err)
	}
	if len(pending) != 1 || pending[0].ID != result.Order.ID {
		t.Fatalf("expected the new order to be pending, got %+v", pending)
	}

	status, err := facade.ReconcileOrder(ctx, paymentID)
	if err != nil {
		t.Fatalf("reconcile pending: %v", err)
	}
	if status != model.OrderStatusPending {
		t.Fatalf("expected pending, got %q", status)
	}

	gateway.SetStatus(paymentID, model.GatewayStatusRejected)
	status, err = facade.ReconcileOrder(ctx, paymentID)
	if err != nil {
		t.Fatalf("reconcile rejected: %v", err)
	}
	if status != model.OrderStatusRejected {
		t.Fatalf("expected rejected, got %q", status)
	}

	if _, err := facade.ReconcileOrder(ctx, "424242"); !errors.Is(err, domainErrors.ErrNotFound) {
		t.Fatalf("expected not found for unknown payment, got %v", err)
	}

	ack, err := facade.ReconcilePayment(ctx, paymentID)
	if err != nil {
		t.Fatalf("reconcile payment: %v", err)
	}
	if ack.Changed {
		t.Fatalf("expected replay to be a no-op, got %+v", ack)
	}
}

func TestStoreFacadeHealthCheck(t *testing.T) {
	facade, _, _ := newFacade(healthStub{err: errors.New("db down")})
	if err := facade.HealthCheck(context.Background()); err == nil {
		t.Fatal("expected health error to surface")
	}
}
