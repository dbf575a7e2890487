package test

import (
	"context"
	"encoding/json"
	"strconv"
	"sync"

	"github.com/shopspring/decimal"

	"github.com/polkiloo/pixstore/internal/adapter/mercadopago"
	"github.com/polkiloo/pixstore/internal/domain/model"
)

// GatewayStub emulates the PIX provider in memory.
type GatewayStub struct {
	mu       sync.Mutex
	payments map[string]*model.GatewayPayment
	next     int64

	// CreateErr and GetErr fail the respective calls when set.
	CreateErr error
	GetErr    error

	Requests []mercadopago.PixRequest
	getCalls int
}

var _ mercadopago.Gateway = (*GatewayStub)(nil)

// NewGatewayStub constructs a stub whose payment ids start at 1001.
func NewGatewayStub() *GatewayStub {
	return &GatewayStub{payments: make(map[string]*model.GatewayPayment), next: 1000}
}

// CreatePix registers a pending payment for the order.
func (g *GatewayStub) CreatePix(_ context.Context, req mercadopago.PixRequest) (*model.PaymentIntent, error) {
	g.mu.Lock()
	defer g.mu.Unlock()

	g.Requests = append(g.Requests, req)
	if g.CreateErr != nil {
		return nil, g.CreateErr
	}
	g.next++
	id := strconv.FormatInt(g.next, 10)
	g.payments[id] = &model.GatewayPayment{
		ID:                id,
		Status:            model.GatewayStatusPending,
		ExternalReference: strconv.FormatInt(req.OrderID, 10),
		Amount:            req.Amount,
	}

	qr := "00020126" + RandomASCIIString(24, 24)
	raw, _ := json.Marshal(map[string]any{
		"id":     g.next,
		"status": "pending",
		"point_of_interaction": map[string]any{
			"transaction_data": map[string]string{"qr_code": qr},
		},
	})
	return &model.PaymentIntent{
		ID:     id,
		Status: model.GatewayStatusPending,
		QRCode: qr,
		Raw:    raw,
	}, nil
}

// GetPayment returns the stored payment or mercadopago.ErrPaymentNotFound.
func (g *GatewayStub) GetPayment(_ context.Context, id string) (*model.GatewayPayment, error) {
	g.mu.Lock()
	defer g.mu.Unlock()

	g.getCalls++
	if g.GetErr != nil {
		return nil, g.GetErr
	}
	p, ok := g.payments[id]
	if !ok {
		return nil, mercadopago.ErrPaymentNotFound
	}
	out := *p
	return &out, nil
}

// SetStatus changes the provider status of a payment.
func (g *GatewayStub) SetStatus(id string, status model.GatewayStatus) {
	g.mu.Lock()
	defer g.mu.Unlock()
	if p, ok := g.payments[id]; ok {
		p.Status = status
	}
}

// SetAmount changes the amount the provider reports as paid.
func (g *GatewayStub) SetAmount(id string, amount decimal.Decimal) {
	g.mu.Lock()
	defer g.mu.Unlock()
	if p, ok := g.payments[id]; ok {
		p.Amount = amount
	}
}

// PutPayment stores an arbitrary payment, e.g. one created outside the store.
func (g *GatewayStub) PutPayment(p model.GatewayPayment) {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.payments[p.ID] = &p
}

// GetCalls reports how many lookups were made.
func (g *GatewayStub) GetCalls() int {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.getCalls
}
