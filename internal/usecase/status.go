package usecase

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/shopspring/decimal"

	"github.com/polkiloo/pixstore/internal/adapter/mercadopago"
	domainErrors "github.com/polkiloo/pixstore/internal/domain/errors"
	"github.com/polkiloo/pixstore/internal/domain/model"
	"github.com/polkiloo/pixstore/internal/domain/repository"
)

// Sources of a PaymentStatus.
const (
	StatusSourceOrder   = "order"
	StatusSourceGateway = "gateway"
)

// PaymentStatus is the polling view of a payment.
type PaymentStatus struct {
	PaymentID     string
	OrderID       *int64
	Status        model.OrderStatus
	GatewayStatus model.GatewayStatus
	TotalAmount   decimal.Decimal
	Terminal      bool
	UpdatedAt     *time.Time
	Source        string
	// PollInterval is zero once the status is terminal.
	PollInterval time.Duration
}

// StatusUseCase answers storefront polling. It never writes.
type StatusUseCase struct {
	orders  repository.OrderRepository
	gateway mercadopago.Gateway
	policy  Policy
}

// NewStatusUseCase constructs StatusUseCase.
func NewStatusUseCase(orders repository.OrderRepository, gateway mercadopago.Gateway, policy Policy) *StatusUseCase {
	return &StatusUseCase{orders: orders, gateway: gateway, policy: policy}
}

// GetStatus reports the local order status, or the gateway's when no order carries paymentID.
func (u *StatusUseCase) GetStatus(ctx context.Context, paymentID string) (*PaymentStatus, error) {
	paymentID = strings.TrimSpace(paymentID)
	if paymentID == "" {
		return nil, fmt.Errorf("payment id is required: %w", domainErrors.ErrInvalidRequest)
	}

	order, err := u.orders.GetByPaymentRef(ctx, paymentID)
	if err == nil {
		id := order.ID
		updated := order.UpdatedAt
		return u.withPoll(&PaymentStatus{
			PaymentID:   paymentID,
			OrderID:     &id,
			Status:      order.Status,
			TotalAmount: order.TotalAmount,
			Terminal:    order.Status.Terminal(),
			UpdatedAt:   &updated,
			Source:      StatusSourceOrder,
		}), nil
	}
	if !errors.Is(err, domainErrors.ErrNotFound) {
		return nil, err
	}

	payment, err := u.gateway.GetPayment(ctx, paymentID)
	if err != nil {
		if errors.Is(err, mercadopago.ErrPaymentNotFound) {
			return nil, fmt.Errorf("payment %s: %w", paymentID, domainErrors.ErrNotFound)
		}
		return nil, fmt.Errorf("%w: %w", domainErrors.ErrPaymentGateway, err)
	}
	status := payment.Status.OrderStatus()
	result := &PaymentStatus{
		PaymentID:     paymentID,
		Status:        status,
		GatewayStatus: payment.Status,
		TotalAmount:   payment.Amount,
		Terminal:      status.Terminal(),
		UpdatedAt:     payment.UpdatedAt,
		Source:        StatusSourceGateway,
	}
	if id, ok := parseOrderID(payment.ExternalReference); ok {
		result.OrderID = &id
	}
	return u.withPoll(result), nil
}

func (u *StatusUseCase) withPoll(s *PaymentStatus) *PaymentStatus {
	if !s.Terminal {
		s.PollInterval = u.policy.PollInterval
	}
	return s
}
