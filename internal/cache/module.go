package cache

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/redis/go-redis/v9"
	"go.uber.org/fx"

	"github.com/polkiloo/pixstore/internal/config"
)

// Module provides the product cache, backed by Redis when REDIS_URL is set.
var Module = fx.Provide(newProductCache)

type cacheParams struct {
	fx.In

	Lifecycle fx.Lifecycle
	Config    *config.Config
	Logger    *slog.Logger
}

func newProductCache(p cacheParams) (ProductCache, error) {
	if p.Config.RedisURL == "" {
		return NewMemoryCache(p.Config.ProductCacheTTL, time.Now), nil
	}

	opts, err := redis.ParseURL(p.Config.RedisURL)
	if err != nil {
		return nil, fmt.Errorf("parse redis url: %w", err)
	}
	c := NewRedisCache(redis.NewClient(opts), p.Config.ProductCacheTTL, p.Logger)
	p.Lifecycle.Append(fx.Hook{
		OnStop: func(context.Context) error {
			return c.Close()
		},
	})
	return c, nil
}
