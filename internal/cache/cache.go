// Package cache keeps catalog entries close to the checkout path.
package cache

import (
	"context"
	"sync"
	"time"

	"github.com/polkiloo/pixstore/internal/domain/model"
)

// Clock returns the current time. Tests inject a fake one.
type Clock func() time.Time

// ProductCache stores catalog entries for a bounded time.
type ProductCache interface {
	Get(ctx context.Context, id int64) (model.Product, bool)
	Set(ctx context.Context, product model.Product)
	// Invalidate drops the given products, or every product when ids is empty.
	Invalidate(ctx context.Context, ids ...int64) error
}

type memoryEntry struct {
	product   model.Product
	expiresAt time.Time
}

// MemoryCache is a process local ProductCache.
type MemoryCache struct {
	mu      sync.RWMutex
	ttl     time.Duration
	now     Clock
	entries map[int64]memoryEntry
}

func NewMemoryCache(ttl time.Duration, clock Clock) *MemoryCache {
	if clock == nil {
		clock = time.Now
	}
	return &MemoryCache{ttl: ttl, now: clock, entries: make(map[int64]memoryEntry)}
}

func (c *MemoryCache) Get(_ context.Context, id int64) (model.Product, bool) {
	c.mu.RLock()
	entry, ok := c.entries[id]
	c.mu.RUnlock()
	if !ok {
		return model.Product{}, false
	}
	if !c.now().Before(entry.expiresAt) {
		c.mu.Lock()
		if current, ok := c.entries[id]; ok && current.expiresAt.Equal(entry.expiresAt) {
			delete(c.entries, id)
		}
		c.mu.Unlock()
		return model.Product{}, false
	}
	return entry.product, true
}

func (c *MemoryCache) Set(_ context.Context, product model.Product) {
	if c.ttl <= 0 {
		return
	}
	c.mu.Lock()
	c.entries[product.ID] = memoryEntry{product: product, expiresAt: c.now().Add(c.ttl)}
	c.mu.Unlock()
}

func (c *MemoryCache) Invalidate(_ context.Context, ids ...int64) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if len(ids) == 0 {
		c.entries = make(map[int64]memoryEntry)
		return nil
	}
	for _, id := range ids {
		delete(c.entries, id)
	}
	return nil
}
