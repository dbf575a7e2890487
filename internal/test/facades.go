package test

import (
	"context"
	"sync"
	"sync/atomic"
	"time"

	"github.com/polkiloo/pixstore/internal/domain/model"
)

// ReconcileFacadeStub mimics the worker's view of the application.
type ReconcileFacadeStub struct {
	Batches     [][]model.Order
	PendingFn   func(context.Context, int, time.Duration) ([]model.Order, error)
	ReconcileFn func(context.Context, string) (model.OrderStatus, error)

	mu         sync.Mutex
	reconciled []string
	calls      int32
}

// PendingPayments returns configured batches one per call.
func (s *ReconcileFacadeStub) PendingPayments(ctx context.Context, limit int, olderThan time.Duration) ([]model.Order, error) {
	if s.PendingFn != nil {
		return s.PendingFn(ctx, limit, olderThan)
	}
	call := atomic.AddInt32(&s.calls, 1)
	if int(call) <= len(s.Batches) {
		return s.Batches[call-1], nil
	}
	return nil, nil
}

// ReconcileOrder records paymentID and returns approved unless overridden.
func (s *ReconcileFacadeStub) ReconcileOrder(ctx context.Context, paymentID string) (model.OrderStatus, error) {
	s.mu.Lock()
	s.reconciled = append(s.reconciled, paymentID)
	s.mu.Unlock()
	if s.ReconcileFn != nil {
		return s.ReconcileFn(ctx, paymentID)
	}
	return model.OrderStatusApproved, nil
}

// Reconciled returns payment ids passed to ReconcileOrder.
func (s *ReconcileFacadeStub) Reconciled() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]string(nil), s.reconciled...)
}
