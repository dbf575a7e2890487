package usecase

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/shopspring/decimal"

	"github.com/polkiloo/pixstore/internal/adapter/mercadopago"
	domainErrors "github.com/polkiloo/pixstore/internal/domain/errors"
	"github.com/polkiloo/pixstore/internal/domain/model"
	"github.com/polkiloo/pixstore/internal/domain/repository"
)

const paymentMethodPix = "pix"

// maxOrderTotal is the largest amount a NUMERIC(12,2) column holds.
var maxOrderTotal = decimal.RequireFromString("9999999999.99")

// CheckoutItem is one requested product. Client prices are never read.
type CheckoutItem struct {
	ProductID int64
	Quantity  int
}

// CheckoutRequest describes a purchase attempt.
type CheckoutRequest struct {
	RequestID     string
	CustomerName  string
	CustomerEmail string
	Items         []CheckoutItem
	// TotalAmount is the total the storefront displayed, checked against the catalog.
	TotalAmount *decimal.Decimal
}

// CheckoutResult is the created (or resumed) order with its payment intent.
type CheckoutResult struct {
	Order   *model.Order
	Items   []model.OrderItem
	Intent  *model.PaymentIntent
	Resumed bool
}

// CheckoutUseCase creates orders and their PIX intents.
type CheckoutUseCase struct {
	orders  repository.OrderRepository
	catalog *CatalogUseCase
	gateway mercadopago.Gateway
	logger  *slog.Logger
}

// NewCheckoutUseCase constructs CheckoutUseCase.
func NewCheckoutUseCase(orders repository.OrderRepository, catalog *CatalogUseCase, gateway mercadopago.Gateway, logger *slog.Logger) *CheckoutUseCase {
	return &CheckoutUseCase{orders: orders, catalog: catalog, gateway: gateway, logger: logger}
}

// CreateOrder persists a pending order priced from the catalog and requests a PIX charge for it.
func (u *CheckoutUseCase) CreateOrder(ctx context.Context, req CheckoutRequest) (*CheckoutResult, error) {
	items, err := normalizeCheckout(&req)
	if err != nil {
		return nil, err
	}

	if req.RequestID != "" {
		existing, err := u.orders.GetByIdempotencyKey(ctx, req.RequestID)
		switch {
		case err == nil:
			return u.resume(ctx, existing)
		case !errors.Is(err, domainErrors.ErrNotFound):
			return nil, err
		}
	}

	lines, total, err := u.price(ctx, items)
	if err != nil {
		return nil, err
	}
	if req.TotalAmount != nil && !req.TotalAmount.Round(2).Equal(total) {
		u.logger.WarnContext(ctx, "client total differs from catalog",
			slog.String("client_total", req.TotalAmount.StringFixed(2)),
			slog.String("catalog_total", total.StringFixed(2)),
		)
		return nil, fmt.Errorf("expected %s: %w", total.StringFixed(2), domainErrors.ErrAmountMismatch)
	}

	var key *string
	if req.RequestID != "" {
		key = &req.RequestID
	}
	customer := model.Customer{Name: req.CustomerName, Email: req.CustomerEmail}

	order, err := u.orders.CreateWithItems(ctx, repository.NewOrder{
		Customer:       customer,
		TotalAmount:    total.StringFixed(2),
		PaymentMethod:  paymentMethodPix,
		IdempotencyKey: key,
		Items:          lines,
	})
	if err != nil {
		if errors.Is(err, domainErrors.ErrAlreadyExists) && key != nil {
			existing, lookupErr := u.orders.GetByIdempotencyKey(ctx, *key)
			if lookupErr != nil {
				return nil, lookupErr
			}
			return u.resume(ctx, existing)
		}
		return nil, err
	}
	u.logger.InfoContext(ctx, "order created",
		slog.Int64("order_id", order.ID),
		slog.String("total", total.StringFixed(2)),
		slog.Int("items", len(lines)),
	)

	intent, err := u.requestPayment(ctx, order, customer)
	if err != nil {
		return nil, err
	}
	for i := range lines {
		lines[i].OrderID = order.ID
	}
	return &CheckoutResult{Order: order, Items: lines, Intent: intent}, nil
}

func (u *CheckoutUseCase) price(ctx context.Context, items []CheckoutItem) ([]model.OrderItem, decimal.Decimal, error) {
	ids := make([]int64, 0, len(items))
	for _, item := range items {
		ids = append(ids, item.ProductID)
	}
	products, err := u.catalog.Products(ctx, ids)
	if err != nil {
		return nil, decimal.Zero, err
	}

	lines := make([]model.OrderItem, 0, len(items))
	total := decimal.Zero
	for _, item := range items {
		p, ok := products[item.ProductID]
		if !ok || !p.Active {
			return nil, decimal.Zero, fmt.Errorf("product %d: %w", item.ProductID, domainErrors.ErrProductNotFound)
		}
		if p.Price.IsNegative() {
			return nil, decimal.Zero, fmt.Errorf("product %d has negative price: %w", item.ProductID, domainErrors.ErrInvalidRequest)
		}
		line := model.OrderItem{ProductID: p.ID, Quantity: item.Quantity, UnitPrice: p.Price}
		total = total.Add(line.Subtotal())
		lines = append(lines, line)
	}
	total = total.Round(2)
	if total.GreaterThan(maxOrderTotal) {
		return nil, decimal.Zero, fmt.Errorf("order total %s exceeds %s: %w", total.StringFixed(2), maxOrderTotal.StringFixed(2), domainErrors.ErrInvalidRequest)
	}
	return lines, total, nil
}

// resume answers a retried checkout with the order it already created.
func (u *CheckoutUseCase) resume(ctx context.Context, order *model.Order) (*CheckoutResult, error) {
	items, err := u.orders.Items(ctx, order.ID)
	if err != nil {
		return nil, err
	}
	if order.HasPayment() {
		return &CheckoutResult{Order: order, Items: items, Intent: storedIntent(order), Resumed: true}, nil
	}
	if order.Status != model.OrderStatusPending {
		return nil, fmt.Errorf("order %d is %s: %w", order.ID, order.Status, domainErrors.ErrAlreadyExists)
	}

	customer, err := u.orders.GetCustomer(ctx, order.CustomerID)
	if err != nil {
		return nil, err
	}
	u.logger.InfoContext(ctx, "resuming payment for order", slog.Int64("order_id", order.ID))

	intent, err := u.requestPayment(ctx, order, *customer)
	if err != nil {
		return nil, err
	}
	return &CheckoutResult{Order: order, Items: items, Intent: intent, Resumed: true}, nil
}

func (u *CheckoutUseCase) requestPayment(ctx context.Context, order *model.Order, customer model.Customer) (*model.PaymentIntent, error) {
	intent, err := u.gateway.CreatePix(ctx, mercadopago.PixRequest{
		OrderID:     order.ID,
		Amount:      order.TotalAmount,
		Description: fmt.Sprintf("Pedido #%d", order.ID),
		PayerEmail:  customer.Email,
		PayerName:   customer.Name,
	})
	if err != nil {
		u.logger.ErrorContext(ctx, "payment intent creation failed", slog.Int64("order_id", order.ID), slog.Any("error", err))
		return nil, fmt.Errorf("%w: %w", domainErrors.ErrPaymentGateway, err)
	}

	if err := u.orders.AttachPayment(ctx, order.ID, intent.ID, paymentMethodPix, intent.Raw); err != nil {
		if !errors.Is(err, domainErrors.ErrAlreadyExists) {
			return nil, err
		}
		current, lookupErr := u.orders.GetByID(ctx, order.ID)
		if lookupErr != nil {
			return nil, lookupErr
		}
		if !current.HasPayment() {
			return nil, err
		}
		*order = *current
		return storedIntent(current), nil
	}

	ref := intent.ID
	order.PaymentRef = &ref
	order.PaymentMethod = paymentMethodPix
	order.PaymentPayload = intent.Raw
	u.logger.InfoContext(ctx, "payment intent attached", slog.Int64("order_id", order.ID), slog.String("payment_id", ref))
	return intent, nil
}

// storedIntent rebuilds the intent from the persisted gateway response.
func storedIntent(order *model.Order) *model.PaymentIntent {
	if intent, err := mercadopago.DecodeIntent(order.PaymentPayload); err == nil && intent.ID == *order.PaymentRef {
		return intent
	}
	return &model.PaymentIntent{
		ID:     *order.PaymentRef,
		Status: model.GatewayStatusPending,
		Raw:    order.PaymentPayload,
	}
}
