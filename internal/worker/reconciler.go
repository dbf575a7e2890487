package worker

import (
	"context"
	"errors"
	"log/slog"
	"sync"
	"time"

	"github.com/polkiloo/pixstore/internal/adapter/mercadopago"
	domainErrors "github.com/polkiloo/pixstore/internal/domain/errors"
	"github.com/polkiloo/pixstore/internal/domain/model"
)

const maxRetryPause = time.Minute

// ReconcileFacade exposes the subset of application functionality required by the worker.
type ReconcileFacade interface {
	PendingPayments(ctx context.Context, limit int, olderThan time.Duration) ([]model.Order, error)
	ReconcileOrder(ctx context.Context, paymentID string) (model.OrderStatus, error)
}

// Reconciler periodically re-checks pending payments with the gateway so
// orders settle even when a webhook is lost.
type Reconciler struct {
	facade    ReconcileFacade
	interval  time.Duration
	batchSize int
	workers   int
	logger    *slog.Logger

	wg     sync.WaitGroup
	cancel context.CancelFunc
	mu     sync.Mutex
}

// NewReconciler constructs the reconciliation worker pool. A non-positive
// interval disables it.
func NewReconciler(facade ReconcileFacade, interval time.Duration, batchSize, workers int, logger *slog.Logger) *Reconciler {
	if workers <= 0 {
		workers = 1
	}
	if batchSize <= 0 {
		batchSize = 1
	}
	return &Reconciler{
		facade:    facade,
		interval:  interval,
		batchSize: batchSize,
		workers:   workers,
		logger:    logger,
	}
}

// Enabled reports whether Start launches anything.
func (r *Reconciler) Enabled() bool {
	return r.interval > 0
}

// Start launches background processing.
func (r *Reconciler) Start(ctx context.Context) {
	if !r.Enabled() {
		r.logger.Info("payment reconciliation disabled")
		return
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	if r.cancel != nil {
		return
	}

	runCtx, cancel := context.WithCancel(context.WithoutCancel(ctx))
	r.cancel = cancel
	// dispatch closes jobs on exit, so every run gets its own channel.
	jobs := make(chan string, r.batchSize*r.workers)

	for i := 0; i < r.workers; i++ {
		r.wg.Add(1)
		go r.worker(runCtx, jobs)
	}

	r.wg.Add(1)
	go r.dispatch(runCtx, jobs)
}

// Stop waits for all workers to finish. The reconciler can be started again afterwards.
func (r *Reconciler) Stop() {
	r.mu.Lock()
	if r.cancel != nil {
		r.cancel()
		r.cancel = nil
	}
	r.mu.Unlock()

	r.wg.Wait()
}

func (r *Reconciler) dispatch(ctx context.Context, jobs chan<- string) {
	defer r.wg.Done()
	defer close(jobs)
	ticker := time.NewTicker(r.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			r.fetchAndDispatch(ctx, jobs)
		}
	}
}

func (r *Reconciler) fetchAndDispatch(ctx context.Context, jobs chan<- string) {
	orders, err := r.facade.PendingPayments(ctx, r.batchSize, r.interval)
	if err != nil {
		r.logger.Error("fetch pending payments failed", slog.String("error", err.Error()))
		return
	}
	for _, order := range orders {
		if !order.HasPayment() {
			continue
		}
		select {
		case <-ctx.Done():
			return
		case jobs <- *order.PaymentRef:
		}
	}
}

func (r *Reconciler) worker(ctx context.Context, jobs <-chan string) {
	defer r.wg.Done()
	for {
		select {
		case <-ctx.Done():
			return
		case paymentID, ok := <-jobs:
			if !ok {
				return
			}
			r.reconcile(ctx, paymentID)
		}
	}
}

func (r *Reconciler) reconcile(ctx context.Context, paymentID string) {
	status, err := r.facade.ReconcileOrder(ctx, paymentID)
	if err == nil {
		if status.Terminal() {
			r.logger.Info("payment reconciled", slog.String("payment_id", paymentID), slog.String("status", string(status)))
		}
		return
	}

	var upstream mercadopago.UpstreamError
	switch {
	case errors.As(err, &upstream) && upstream.RetryAfter > 0:
		r.logger.Warn("payment gateway rate limited", slog.Duration("retry_after", upstream.RetryAfter))
		r.pause(ctx, upstream.RetryAfter)
	case errors.Is(err, domainErrors.ErrNotFound), errors.Is(err, domainErrors.ErrNotReconciled):
		r.logger.Warn("payment not reconcilable yet", slog.String("payment_id", paymentID), slog.String("error", err.Error()))
	default:
		r.logger.Error("payment reconciliation failed", slog.String("payment_id", paymentID), slog.String("error", err.Error()))
	}
}

func (r *Reconciler) pause(ctx context.Context, d time.Duration) {
	if d > maxRetryPause {
		d = maxRetryPause
	}
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
	case <-timer.C:
	}
}
