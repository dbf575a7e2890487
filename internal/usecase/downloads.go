package usecase

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/polkiloo/pixstore/internal/adapter/assets"
	domainErrors "github.com/polkiloo/pixstore/internal/domain/errors"
	"github.com/polkiloo/pixstore/internal/domain/model"
	"github.com/polkiloo/pixstore/internal/domain/repository"
)

// Redemption is a successful download: where to send the client and the updated grant.
type Redemption struct {
	Location string
	Grant    *model.DownloadGrant
	Product  *model.Product
}

// GrantListing is the set of downloads of an approved order.
type GrantListing struct {
	Order     *model.Order
	Downloads []model.DownloadDescriptor
}

// DownloadUseCase redeems and lists download grants.
type DownloadUseCase struct {
	orders    repository.OrderRepository
	downloads repository.DownloadRepository
	catalog   *CatalogUseCase
	resolver  assets.Resolver
	policy    Policy
	clock     Clock
	logger    *slog.Logger
}

// NewDownloadUseCase constructs DownloadUseCase.
func NewDownloadUseCase(
	orders repository.OrderRepository,
	downloads repository.DownloadRepository,
	catalog *CatalogUseCase,
	resolver assets.Resolver,
	policy Policy,
	clock Clock,
	logger *slog.Logger,
) *DownloadUseCase {
	return &DownloadUseCase{
		orders:    orders,
		downloads: downloads,
		catalog:   catalog,
		resolver:  resolver,
		policy:    policy,
		clock:     clock,
		logger:    logger,
	}
}

// Redeem consumes one download of token. Failures are reported in the order
// not found, expired, limit exceeded, forbidden.
func (u *DownloadUseCase) Redeem(ctx context.Context, token string) (*Redemption, error) {
	token = strings.TrimSpace(token)
	if token == "" {
		return nil, domainErrors.ErrInvalidToken
	}

	grant, err := u.downloads.GetByToken(ctx, token)
	if err != nil {
		return nil, err
	}
	now := u.clock()
	if err := u.classify(ctx, grant, now); err != nil {
		return nil, err
	}

	product, err := u.catalog.Product(ctx, grant.ProductID)
	if err != nil {
		return nil, err
	}
	location, err := u.resolver.Resolve(ctx, *product)
	if err != nil {
		u.logger.ErrorContext(ctx, "asset location unresolvable", slog.Int64("product_id", product.ID), slog.Any("error", err))
		return nil, err
	}

	consumed, ok, err := u.downloads.Consume(ctx, token, now)
	if err != nil {
		return nil, err
	}
	if !ok {
		// Lost a race against a concurrent redemption or state change.
		current, err := u.downloads.GetByToken(ctx, token)
		if err != nil {
			return nil, err
		}
		if err := u.classify(ctx, current, now); err != nil {
			return nil, err
		}
		return nil, domainErrors.ErrLimitExceeded
	}

	u.logger.InfoContext(ctx, "download redeemed",
		slog.Int64("order_id", consumed.OrderID),
		slog.Int64("product_id", consumed.ProductID),
		slog.Int("remaining", consumed.Remaining()),
	)
	return &Redemption{Location: location, Grant: consumed, Product: product}, nil
}

func (u *DownloadUseCase) classify(ctx context.Context, grant *model.DownloadGrant, now time.Time) error {
	if grant.Expired(now) {
		return domainErrors.ErrExpired
	}
	if grant.Exhausted() {
		return domainErrors.ErrLimitExceeded
	}
	order, err := u.orders.GetByID(ctx, grant.OrderID)
	if err != nil {
		if errors.Is(err, domainErrors.ErrNotFound) {
			return domainErrors.ErrForbidden
		}
		return err
	}
	if order.Status != model.OrderStatusApproved {
		return domainErrors.ErrForbidden
	}
	return nil
}

// ListGrants returns the downloads of the order paid by paymentID.
func (u *DownloadUseCase) ListGrants(ctx context.Context, paymentID string) (*GrantListing, error) {
	paymentID = strings.TrimSpace(paymentID)
	if paymentID == "" {
		return nil, fmt.Errorf("payment id is required: %w", domainErrors.ErrInvalidRequest)
	}

	order, err := u.orders.GetByPaymentRef(ctx, paymentID)
	if err != nil {
		return nil, err
	}
	if order.Status != model.OrderStatusApproved {
		return nil, domainErrors.ErrOrderNotApproved
	}

	grants, err := u.downloads.ListByOrder(ctx, order.ID)
	if err != nil {
		return nil, err
	}
	descriptors, err := describeGrants(ctx, u.catalog, u.policy, grants, u.logger)
	if err != nil {
		return nil, err
	}
	return &GrantListing{Order: order, Downloads: descriptors}, nil
}

// describeGrants skips grants whose product is no longer in the catalog.
func describeGrants(ctx context.Context, catalog *CatalogUseCase, policy Policy, grants []model.DownloadGrant, logger *slog.Logger) ([]model.DownloadDescriptor, error) {
	ids := make([]int64, 0, len(grants))
	for _, g := range grants {
		ids = append(ids, g.ProductID)
	}
	products, err := catalog.Products(ctx, ids)
	if err != nil {
		return nil, err
	}

	descriptors := make([]model.DownloadDescriptor, 0, len(grants))
	for _, g := range grants {
		p, ok := products[g.ProductID]
		if !ok {
			logger.WarnContext(ctx, "grant references missing product",
				slog.Int64("order_id", g.OrderID),
				slog.Int64("product_id", g.ProductID),
			)
			continue
		}
		descriptors = append(descriptors, model.DownloadDescriptor{
			ProductID:   g.ProductID,
			ProductName: p.Name,
			Format:      p.FileFormat,
			URL:         policy.RedemptionURL(g.Token),
			Remaining:   g.Remaining(),
			ExpiresAt:   g.ExpiresAt,
		})
	}
	return descriptors, nil
}
