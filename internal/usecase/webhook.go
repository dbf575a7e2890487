package usecase

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/polkiloo/pixstore/internal/adapter/mercadopago"
	"github.com/polkiloo/pixstore/internal/adapter/notify"
	domainErrors "github.com/polkiloo/pixstore/internal/domain/errors"
	"github.com/polkiloo/pixstore/internal/domain/model"
	"github.com/polkiloo/pixstore/internal/domain/repository"
)

const notificationKindPayment = "payment"

// Notification is the part of a gateway callback the store reads. Everything
// else is fetched again from the gateway.
type Notification struct {
	Kind      string
	PaymentID string
}

// Ack reports what a notification or reconciliation did.
type Ack struct {
	Ignored bool
	Reason  string
	OrderID int64
	Status  model.OrderStatus
	Changed bool
}

// WebhookUseCase reconciles orders with the authoritative gateway state.
type WebhookUseCase struct {
	orders    repository.OrderRepository
	downloads repository.DownloadRepository
	catalog   *CatalogUseCase
	gateway   mercadopago.Gateway
	notifier  notify.Notifier
	policy    Policy
	clock     Clock
	tokens    TokenGenerator
	logger    *slog.Logger
}

// NewWebhookUseCase constructs WebhookUseCase.
func NewWebhookUseCase(
	orders repository.OrderRepository,
	downloads repository.DownloadRepository,
	catalog *CatalogUseCase,
	gateway mercadopago.Gateway,
	notifier notify.Notifier,
	policy Policy,
	clock Clock,
	tokens TokenGenerator,
	logger *slog.Logger,
) *WebhookUseCase {
	return &WebhookUseCase{
		orders:    orders,
		downloads: downloads,
		catalog:   catalog,
		gateway:   gateway,
		notifier:  notifier,
		policy:    policy,
		clock:     clock,
		tokens:    tokens,
		logger:    logger,
	}
}

// HandleNotification processes a gateway callback. Replays are harmless.
func (u *WebhookUseCase) HandleNotification(ctx context.Context, n Notification) (*Ack, error) {
	if !strings.EqualFold(strings.TrimSpace(n.Kind), notificationKindPayment) {
		u.logger.DebugContext(ctx, "notification ignored", slog.String("kind", n.Kind))
		return &Ack{Ignored: true, Reason: "unsupported_kind"}, nil
	}
	paymentID := strings.TrimSpace(n.PaymentID)
	if paymentID == "" {
		return nil, fmt.Errorf("notification without payment id: %w", domainErrors.ErrInvalidRequest)
	}

	ack, err := u.ReconcilePayment(ctx, paymentID)
	if errors.Is(err, domainErrors.ErrNotFound) {
		u.logger.WarnContext(ctx, "notification for unknown payment", slog.String("payment_id", paymentID))
		return &Ack{Ignored: true, Reason: "unknown_payment"}, nil
	}
	return ack, err
}

// ReconcilePayment fetches the payment from the gateway and applies its status to the order.
func (u *WebhookUseCase) ReconcilePayment(ctx context.Context, paymentID string) (*Ack, error) {
	payment, err := u.gateway.GetPayment(ctx, paymentID)
	if err != nil {
		if errors.Is(err, mercadopago.ErrPaymentNotFound) {
			return nil, fmt.Errorf("payment %s: %w", paymentID, domainErrors.ErrNotFound)
		}
		return nil, fmt.Errorf("%w: %w", domainErrors.ErrPaymentGateway, err)
	}

	order, err := u.resolveOrder(ctx, payment)
	if err != nil {
		return nil, err
	}
	if order == nil {
		u.logger.InfoContext(ctx, "payment does not belong to any order",
			slog.String("payment_id", payment.ID),
			slog.String("external_reference", payment.ExternalReference),
		)
		return &Ack{Ignored: true, Reason: "unknown_reference"}, nil
	}

	return u.apply(ctx, order, payment)
}

// PendingPayments returns pending orders with a payment that were not checked within olderThan.
func (u *WebhookUseCase) PendingPayments(ctx context.Context, limit int, olderThan time.Duration) ([]model.Order, error) {
	return u.orders.SelectPendingForReconcile(ctx, limit, u.clock().Add(-olderThan))
}

func (u *WebhookUseCase) resolveOrder(ctx context.Context, payment *model.GatewayPayment) (*model.Order, error) {
	order, err := u.orders.GetByPaymentRef(ctx, payment.ID)
	if err == nil {
		return order, nil
	}
	if !errors.Is(err, domainErrors.ErrNotFound) {
		return nil, err
	}

	orderID, ok := parseOrderID(payment.ExternalReference)
	if !ok {
		return nil, nil
	}
	order, err = u.orders.GetByID(ctx, orderID)
	if err != nil {
		if errors.Is(err, domainErrors.ErrNotFound) {
			return nil, fmt.Errorf("payment %s references order %d: %w", payment.ID, orderID, domainErrors.ErrNotReconciled)
		}
		return nil, err
	}

	if !order.HasPayment() {
		err := u.orders.AttachPayment(ctx, order.ID, payment.ID, paymentMethodPix, nil)
		switch {
		case err == nil:
			ref := payment.ID
			order.PaymentRef = &ref
			u.logger.InfoContext(ctx, "payment reference recovered from gateway", slog.Int64("order_id", order.ID), slog.String("payment_id", ref))
			return order, nil
		case errors.Is(err, domainErrors.ErrAlreadyExists):
			if order, err = u.orders.GetByID(ctx, orderID); err != nil {
				return nil, err
			}
		default:
			return nil, err
		}
	}

	if *order.PaymentRef != payment.ID {
		u.logger.WarnContext(ctx, "order already bound to another payment",
			slog.Int64("order_id", order.ID),
			slog.String("bound_payment_id", *order.PaymentRef),
			slog.String("payment_id", payment.ID),
		)
		return nil, nil
	}
	return order, nil
}

func (u *WebhookUseCase) apply(ctx context.Context, order *model.Order, payment *model.GatewayPayment) (*Ack, error) {
	target := payment.Status.OrderStatus()
	ack := &Ack{OrderID: order.ID, Status: order.Status}

	if order.Status.Terminal() {
		if target != order.Status {
			u.logger.WarnContext(ctx, "gateway status change after terminal state ignored",
				slog.Int64("order_id", order.ID),
				slog.String("status", string(order.Status)),
				slog.String("gateway_status", string(payment.Status)),
			)
		}
		if order.Status == model.OrderStatusApproved {
			if err := u.ensureGrants(ctx, order); err != nil {
				return nil, err
			}
		}
		return ack, nil
	}

	if target == model.OrderStatusPending {
		return ack, nil
	}

	if target == model.OrderStatusApproved && !payment.Amount.IsZero() && !payment.Amount.Equal(order.TotalAmount) {
		u.logger.ErrorContext(ctx, "paid amount differs from order total",
			slog.Int64("order_id", order.ID),
			slog.String("paid", payment.Amount.StringFixed(2)),
			slog.String("total", order.TotalAmount.StringFixed(2)),
		)
		ack.Ignored = true
		ack.Reason = "amount_mismatch"
		return ack, nil
	}

	var grants []model.GrantRequest
	if target == model.OrderStatusApproved {
		var err error
		if grants, err = u.grantRequests(ctx, order.ID); err != nil {
			return nil, err
		}
	}

	changed, err := u.orders.ApplyStatus(ctx, order.ID, target, grants)
	if err != nil {
		return nil, err
	}
	if !changed {
		current, err := u.orders.GetByID(ctx, order.ID)
		if err != nil {
			return nil, err
		}
		ack.Status = current.Status
		return ack, nil
	}

	ack.Status = target
	ack.Changed = true
	u.logger.InfoContext(ctx, "order status changed",
		slog.Int64("order_id", order.ID),
		slog.String("status", string(target)),
		slog.String("payment_id", payment.ID),
		slog.Int("grants", len(grants)),
	)

	if target == model.OrderStatusApproved {
		u.notifyDelivery(ctx, order)
	}
	return ack, nil
}

// grantRequests builds one fresh grant per distinct product of the order.
func (u *WebhookUseCase) grantRequests(ctx context.Context, orderID int64) ([]model.GrantRequest, error) {
	items, err := u.orders.Items(ctx, orderID)
	if err != nil {
		return nil, err
	}
	expiresAt := u.clock().Add(u.policy.DownloadTTL)
	seen := make(map[int64]struct{}, len(items))
	grants := make([]model.GrantRequest, 0, len(items))
	for _, item := range items {
		if _, dup := seen[item.ProductID]; dup {
			continue
		}
		seen[item.ProductID] = struct{}{}
		token, err := u.tokens()
		if err != nil {
			return nil, err
		}
		grants = append(grants, model.GrantRequest{
			ProductID:    item.ProductID,
			Token:        token,
			MaxDownloads: u.policy.MaxDownloads,
			ExpiresAt:    expiresAt,
		})
	}
	return grants, nil
}

func (u *WebhookUseCase) ensureGrants(ctx context.Context, order *model.Order) error {
	grants, err := u.grantRequests(ctx, order.ID)
	if err != nil {
		return err
	}
	created, err := u.orders.EnsureGrants(ctx, order.ID, grants)
	if err != nil {
		return err
	}
	if created > 0 {
		u.logger.WarnContext(ctx, "missing download grants restored", slog.Int64("order_id", order.ID), slog.Int("created", created))
	}
	return nil
}

func (u *WebhookUseCase) notifyDelivery(ctx context.Context, order *model.Order) {
	delivery, err := u.delivery(ctx, order)
	if err == nil {
		err = u.notifier.NotifyDelivery(ctx, *delivery)
	}
	if err != nil {
		u.logger.ErrorContext(ctx, "delivery notification failed", slog.Int64("order_id", order.ID), slog.Any("error", err))
	}
}

func (u *WebhookUseCase) delivery(ctx context.Context, order *model.Order) (*notify.Delivery, error) {
	customer, err := u.orders.GetCustomer(ctx, order.CustomerID)
	if err != nil {
		return nil, err
	}
	grants, err := u.downloads.ListByOrder(ctx, order.ID)
	if err != nil {
		return nil, err
	}
	descriptors, err := describeGrants(ctx, u.catalog, u.policy, grants, u.logger)
	if err != nil {
		return nil, err
	}
	return &notify.Delivery{
		OrderID:       order.ID,
		CustomerName:  customer.Name,
		CustomerEmail: customer.Email,
		Downloads:     descriptors,
	}, nil
}
