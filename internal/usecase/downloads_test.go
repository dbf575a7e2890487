package usecase

import (
	"context"
	"errors"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/polkiloo/pixstore/internal/adapter/assets"
	domainErrors "github.com/polkiloo/pixstore/internal/domain/errors"
	"github.com/polkiloo/pixstore/internal/domain/model"
)

func TestRedeemHappyPathAndLimit(t *testing.T) {
	f := newFixture(t)
	order, _ := f.approvedOrder(t, CheckoutItem{ProductID: 1, Quantity: 1})
	token := f.store.Grants(order.ID)[0].Token

	for i := 1; i <= 3; i++ {
		redemption, err := f.downloads.Redeem(context.Background(), token)
		if err != nil {
			t.Fatalf("redeem %d: %v", i, err)
		}
		if redemption.Location != "https://cdn.example.com/ebook-go.pdf" {
			t.Fatalf("unexpected location %q", redemption.Location)
		}
		if redemption.Grant.DownloadCount != i || redemption.Grant.Remaining() != 3-i {
			t.Fatalf("unexpected counters after %d: %+v", i, redemption.Grant)
		}
	}

	if _, err := f.downloads.Redeem(context.Background(), token); !errors.Is(err, domainErrors.ErrLimitExceeded) {
		t.Fatalf("expected ErrLimitExceeded, got %v", err)
	}
	if got := f.store.Grants(order.ID)[0].DownloadCount; got != 3 {
		t.Fatalf("expected count to stay at 3, got %d", got)
	}
}

func TestRedeemConcurrentNeverExceedsMax(t *testing.T) {
	for _, n := range []int{3, 4, 16, 64} {
		f := newFixture(t)
		order, _ := f.approvedOrder(t, CheckoutItem{ProductID: 2, Quantity: 1})
		token := f.store.Grants(order.ID)[0].Token

		var (
			wg        sync.WaitGroup
			mu        sync.Mutex
			successes int
			limited   int
			other     []error
		)
		start := make(chan struct{})
		for i := 0; i < n; i++ {
			wg.Add(1)
			go func() {
				defer wg.Done()
				<-start
				_, err := f.downloads.Redeem(context.Background(), token)
				mu.Lock()
				defer mu.Unlock()
				switch {
				case err == nil:
					successes++
				case errors.Is(err, domainErrors.ErrLimitExceeded):
					limited++
				default:
					other = append(other, err)
				}
			}()
		}
		close(start)
		wg.Wait()

		if len(other) != 0 {
			t.Fatalf("n=%d: unexpected errors %v", n, other)
		}
		if successes != 3 || limited != n-3 {
			t.Fatalf("n=%d: expected 3 successes and %d limited, got %d and %d", n, n-3, successes, limited)
		}
		if got := f.store.Grants(order.ID)[0].DownloadCount; got != 3 {
			t.Fatalf("n=%d: expected count 3, got %d", n, got)
		}
	}
}

func TestRedeemExpiredWinsOverRemainingCount(t *testing.T) {
	f := newFixture(t)
	order, _ := f.approvedOrder(t, CheckoutItem{ProductID: 1, Quantity: 1})
	grant := f.store.Grants(order.ID)[0]

	f.now = grant.ExpiresAt
	if _, err := f.downloads.Redeem(context.Background(), grant.Token); !errors.Is(err, domainErrors.ErrExpired) {
		t.Fatalf("expected ErrExpired at expiry instant, got %v", err)
	}

	f.now = grant.ExpiresAt.Add(-time.Nanosecond)
	if _, err := f.downloads.Redeem(context.Background(), grant.Token); err != nil {
		t.Fatalf("expected redeem just before expiry to pass, got %v", err)
	}

	f.store.ExpireGrant(grant.Token, fixtureNow.Add(-time.Hour))
	f.now = fixtureNow
	if _, err := f.downloads.Redeem(context.Background(), grant.Token); !errors.Is(err, domainErrors.ErrExpired) {
		t.Fatalf("expected ErrExpired, got %v", err)
	}
}

func TestRedeemExpiredBeforeLimit(t *testing.T) {
	f := newFixture(t)
	order, _ := f.approvedOrder(t, CheckoutItem{ProductID: 1, Quantity: 1})
	token := f.store.Grants(order.ID)[0].Token
	for i := 0; i < 3; i++ {
		if _, err := f.downloads.Redeem(context.Background(), token); err != nil {
			t.Fatalf("redeem: %v", err)
		}
	}
	f.now = fixtureNow.Add(8 * 24 * time.Hour)
	if _, err := f.downloads.Redeem(context.Background(), token); !errors.Is(err, domainErrors.ErrExpired) {
		t.Fatalf("expected expiry to be reported first, got %v", err)
	}
}

func TestRedeemRequiresApprovedOrder(t *testing.T) {
	f := newFixture(t)
	order, _ := f.approvedOrder(t, CheckoutItem{ProductID: 1, Quantity: 1})
	token := f.store.Grants(order.ID)[0].Token

	for _, status := range []model.OrderStatus{model.OrderStatusPending, model.OrderStatusCancelled, model.OrderStatusRejected} {
		f.store.SetStatus(order.ID, status)
		if _, err := f.downloads.Redeem(context.Background(), token); !errors.Is(err, domainErrors.ErrForbidden) {
			t.Fatalf("%s: expected ErrForbidden, got %v", status, err)
		}
	}
	if got := f.store.Grants(order.ID)[0].DownloadCount; got != 0 {
		t.Fatalf("forbidden redeems must not count, got %d", got)
	}
}

func TestRedeemTokenErrors(t *testing.T) {
	f := newFixture(t)
	if _, err := f.downloads.Redeem(context.Background(), "  "); !errors.Is(err, domainErrors.ErrInvalidToken) {
		t.Fatalf("expected ErrInvalidToken, got %v", err)
	}
	if _, err := f.downloads.Redeem(context.Background(), "nope"); !errors.Is(err, domainErrors.ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
}

func TestRedeemResolveFailureKeepsDownload(t *testing.T) {
	f := newFixture(t)
	order, _ := f.approvedOrder(t, CheckoutItem{ProductID: 1, Quantity: 1})
	token := f.store.Grants(order.ID)[0].Token

	broken := NewDownloadUseCase(f.store.Orders(), f.store.Downloads(), f.catalog, failingResolver{}, f.policy, func() time.Time { return f.now }, f.webhook.logger)
	if _, err := broken.Redeem(context.Background(), token); !errors.Is(err, assets.ErrUnresolvable) {
		t.Fatalf("expected ErrUnresolvable, got %v", err)
	}
	if got := f.store.Grants(order.ID)[0].DownloadCount; got != 0 {
		t.Fatalf("failed resolution must not consume a download, got %d", got)
	}
	if f.store.ConsumeCalls() != 0 {
		t.Fatal("consume must not be attempted")
	}
}

type failingResolver struct{}

func (failingResolver) Resolve(context.Context, model.Product) (string, error) {
	return "", assets.ErrUnresolvable
}

func TestListGrants(t *testing.T) {
	f := newFixture(t)
	order, paymentID := f.approvedOrder(t, CheckoutItem{ProductID: 2, Quantity: 2}, CheckoutItem{ProductID: 1, Quantity: 1})

	listing, err := f.downloads.ListGrants(context.Background(), paymentID)
	if err != nil {
		t.Fatalf("list grants: %v", err)
	}
	if listing.Order.ID != order.ID || len(listing.Downloads) != 2 {
		t.Fatalf("unexpected listing: %+v", listing)
	}
	first := listing.Downloads[0]
	if first.ProductID != 1 || first.ProductName != "Ebook Go" || first.Format != "pdf" || first.Remaining != 3 {
		t.Fatalf("unexpected descriptor: %+v", first)
	}
	if !strings.HasPrefix(first.URL, "https://shop.example.com/download-file?token=") {
		t.Fatalf("unexpected url %q", first.URL)
	}
}

func TestListGrantsSkipsMissingProduct(t *testing.T) {
	f := newFixture(t)
	_, paymentID := f.approvedOrder(t, CheckoutItem{ProductID: 1, Quantity: 1}, CheckoutItem{ProductID: 2, Quantity: 1})

	f.store.RemoveProduct(2)
	if err := f.catalog.Invalidate(context.Background()); err != nil {
		t.Fatalf("invalidate: %v", err)
	}

	listing, err := f.downloads.ListGrants(context.Background(), paymentID)
	if err != nil {
		t.Fatalf("list grants: %v", err)
	}
	if len(listing.Downloads) != 1 || listing.Downloads[0].ProductID != 1 || listing.Downloads[0].ProductName != "Ebook Go" {
		t.Fatalf("expected only the catalogued product, got %+v", listing.Downloads)
	}
}

func TestListGrantsErrors(t *testing.T) {
	f := newFixture(t)
	if _, err := f.downloads.ListGrants(context.Background(), ""); !errors.Is(err, domainErrors.ErrInvalidRequest) {
		t.Fatalf("expected ErrInvalidRequest, got %v", err)
	}
	if _, err := f.downloads.ListGrants(context.Background(), "missing"); !errors.Is(err, domainErrors.ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}

	_, pending := f.createOrder(t, CheckoutItem{ProductID: 1, Quantity: 1})
	if _, err := f.downloads.ListGrants(context.Background(), pending); !errors.Is(err, domainErrors.ErrOrderNotApproved) {
		t.Fatalf("expected ErrOrderNotApproved, got %v", err)
	}
}

func TestEndToEndApprovedScenario(t *testing.T) {
	f := newFixture(t)
	_, paymentID := f.createOrder(t, CheckoutItem{ProductID: 1, Quantity: 1})
	f.deliver(t, paymentID, model.GatewayStatusApproved)

	listing, err := f.downloads.ListGrants(context.Background(), paymentID)
	if err != nil {
		t.Fatalf("list grants: %v", err)
	}
	if len(listing.Downloads) != 1 {
		t.Fatalf("expected exactly one descriptor, got %d", len(listing.Downloads))
	}
	token := listing.Downloads[0].URL[strings.Index(listing.Downloads[0].URL, "token=")+len("token="):]

	for i := 0; i < 3; i++ {
		redemption, err := f.downloads.Redeem(context.Background(), token)
		if err != nil {
			t.Fatalf("redeem %d: %v", i+1, err)
		}
		if redemption.Location != "https://cdn.example.com/ebook-go.pdf" {
			t.Fatalf("unexpected location %q", redemption.Location)
		}
	}
	if _, err := f.downloads.Redeem(context.Background(), token); !errors.Is(err, domainErrors.ErrLimitExceeded) {
		t.Fatalf("expected ErrLimitExceeded on 4th redeem, got %v", err)
	}
}

func TestEndToEndRejectedScenario(t *testing.T) {
	f := newFixture(t)
	order, paymentID := f.createOrder(t, CheckoutItem{ProductID: 1, Quantity: 1})
	f.deliver(t, paymentID, model.GatewayStatusRejected)

	if _, err := f.downloads.ListGrants(context.Background(), paymentID); !errors.Is(err, domainErrors.ErrOrderNotApproved) {
		t.Fatalf("expected ErrOrderNotApproved, got %v", err)
	}
	if grants := f.store.Grants(order.ID); len(grants) != 0 {
		t.Fatalf("expected no grants, got %d", len(grants))
	}
}
