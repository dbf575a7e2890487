package test

import (
	"context"
	"sync"

	"github.com/polkiloo/pixstore/internal/adapter/assets"
	"github.com/polkiloo/pixstore/internal/adapter/notify"
	"github.com/polkiloo/pixstore/internal/domain/model"
)

// NotifierStub records delivery notices.
type NotifierStub struct {
	mu         sync.Mutex
	Err        error
	deliveries []notify.Delivery
}

var _ notify.Notifier = (*NotifierStub)(nil)

// NotifyDelivery records d and returns Err.
func (n *NotifierStub) NotifyDelivery(_ context.Context, d notify.Delivery) error {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.deliveries = append(n.deliveries, d)
	return n.Err
}

// Deliveries returns the recorded notices.
func (n *NotifierStub) Deliveries() []notify.Delivery {
	n.mu.Lock()
	defer n.mu.Unlock()
	return append([]notify.Delivery(nil), n.deliveries...)
}

// ResolverStub returns the product's stored location unchanged.
type ResolverStub struct {
	Err error
}

var _ assets.Resolver = ResolverStub{}

// Resolve returns p.DownloadURL or Err.
func (r ResolverStub) Resolve(_ context.Context, p model.Product) (string, error) {
	if r.Err != nil {
		return "", r.Err
	}
	return p.DownloadURL, nil
}
