package usecase

import (
	"context"
	"io"
	"log/slog"
	"testing"
	"time"

	"github.com/shopspring/decimal"

	"github.com/polkiloo/pixstore/internal/cache"
	"github.com/polkiloo/pixstore/internal/domain/model"
	testhelpers "github.com/polkiloo/pixstore/internal/test"
)

var fixtureNow = time.Date(2026, 3, 10, 12, 0, 0, 0, time.UTC)

type fixture struct {
	store    *testhelpers.MemoryStore
	gateway  *testhelpers.GatewayStub
	notifier *testhelpers.NotifierStub
	now      time.Time
	policy   Policy

	catalog   *CatalogUseCase
	checkout  *CheckoutUseCase
	webhook   *WebhookUseCase
	downloads *DownloadUseCase
	status    *StatusUseCase
}

func newFixture(t *testing.T) *fixture {
	t.Helper()

	f := &fixture{
		store:    testhelpers.NewMemoryStore(),
		gateway:  testhelpers.NewGatewayStub(),
		notifier: &testhelpers.NotifierStub{},
		now:      fixtureNow,
		policy: Policy{
			MaxDownloads:  3,
			DownloadTTL:   7 * 24 * time.Hour,
			PublicBaseURL: "https://shop.example.com",
			PollInterval:  defaultPollInterval,
		},
	}
	f.store.AddProduct(model.Product{ID: 1, Name: "Ebook Go", Price: decimal.RequireFromString("99.90"), FileFormat: "pdf", DownloadURL: "https://cdn.example.com/ebook-go.pdf", Active: true})
	f.store.AddProduct(model.Product{ID: 2, Name: "Planilha", Price: decimal.RequireFromString("19.95"), FileFormat: "xlsx", DownloadURL: "https://cdn.example.com/planilha.xlsx", Active: true})
	f.store.AddProduct(model.Product{ID: 3, Name: "Retirado", Price: decimal.RequireFromString("5.00"), FileFormat: "zip", DownloadURL: "https://cdn.example.com/old.zip", Active: false})

	logger := slog.New(slog.NewJSONHandler(io.Discard, nil))
	clock := func() time.Time { return f.now }

	f.catalog = NewCatalogUseCase(f.store.Products(), cache.NewMemoryCache(time.Minute, clock))
	f.checkout = NewCheckoutUseCase(f.store.Orders(), f.catalog, f.gateway, logger)
	f.webhook = NewWebhookUseCase(f.store.Orders(), f.store.Downloads(), f.catalog, f.gateway, f.notifier, f.policy, clock, NewDownloadToken, logger)
	f.downloads = NewDownloadUseCase(f.store.Orders(), f.store.Downloads(), f.catalog, testhelpers.ResolverStub{}, f.policy, clock, logger)
	f.status = NewStatusUseCase(f.store.Orders(), f.gateway, f.policy)
	return f
}

func checkoutRequest(items ...CheckoutItem) CheckoutRequest {
	return CheckoutRequest{
		CustomerName:  testhelpers.RandomASCIIString(5, 10),
		CustomerEmail: testhelpers.RandomEmail(),
		Items:         items,
	}
}

// createOrder checks out and returns the order and its payment id.
func (f *fixture) createOrder(t *testing.T, items ...CheckoutItem) (*model.Order, string) {
	t.Helper()
	result, err := f.checkout.CreateOrder(context.Background(), checkoutRequest(items...))
	if err != nil {
		t.Fatalf("create order: %v", err)
	}
	if result.Intent == nil || result.Intent.ID == "" {
		t.Fatalf("expected payment intent, got %+v", result.Intent)
	}
	return result.Order, result.Intent.ID
}

// deliver sets the gateway status and replays the notification for paymentID.
func (f *fixture) deliver(t *testing.T, paymentID string, status model.GatewayStatus) *Ack {
	t.Helper()
	f.gateway.SetStatus(paymentID, status)
	ack, err := f.webhook.HandleNotification(context.Background(), Notification{Kind: "payment", PaymentID: paymentID})
	if err != nil {
		t.Fatalf("handle notification: %v", err)
	}
	return ack
}

func (f *fixture) approvedOrder(t *testing.T, items ...CheckoutItem) (*model.Order, string) {
	t.Helper()
	order, paymentID := f.createOrder(t, items...)
	if ack := f.deliver(t, paymentID, model.GatewayStatusApproved); !ack.Changed {
		t.Fatalf("expected approval to change order, got %+v", ack)
	}
	return order, paymentID
}
