package cache

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"strconv"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/polkiloo/pixstore/internal/domain/model"
)

const (
	productKeyPrefix = "pixstore:product:"
	versionKey       = "pixstore:products:version"
)

// RedisCache shares catalog entries between instances. Redis failures are
// treated as misses so checkout keeps working against the database.
type RedisCache struct {
	client *redis.Client
	ttl    time.Duration
	logger *slog.Logger
}

func NewRedisCache(client *redis.Client, ttl time.Duration, logger *slog.Logger) *RedisCache {
	return &RedisCache{client: client, ttl: ttl, logger: logger}
}

func (c *RedisCache) Get(ctx context.Context, id int64) (model.Product, bool) {
	version, err := c.version(ctx)
	if err != nil {
		c.logger.WarnContext(ctx, "product cache unavailable", slog.Any("error", err))
		return model.Product{}, false
	}

	raw, err := c.client.Get(ctx, c.key(version, id)).Bytes()
	if err != nil {
		if !errors.Is(err, redis.Nil) {
			c.logger.WarnContext(ctx, "product cache read failed", slog.Int64("product_id", id), slog.Any("error", err))
		}
		return model.Product{}, false
	}

	var product model.Product
	if err := json.Unmarshal(raw, &product); err != nil {
		c.logger.WarnContext(ctx, "failed to unmarshal cached product", slog.Int64("product_id", id), slog.Any("error", err))
		return model.Product{}, false
	}
	return product, true
}

func (c *RedisCache) Set(ctx context.Context, product model.Product) {
	if c.ttl <= 0 {
		return
	}
	version, err := c.version(ctx)
	if err != nil {
		return
	}
	payload, err := json.Marshal(product)
	if err != nil {
		c.logger.WarnContext(ctx, "failed to marshal product for cache", slog.Int64("product_id", product.ID), slog.Any("error", err))
		return
	}
	if err := c.client.Set(ctx, c.key(version, product.ID), payload, c.ttl).Err(); err != nil {
		c.logger.WarnContext(ctx, "failed to cache product", slog.Int64("product_id", product.ID), slog.Any("error", err))
	}
}

// Invalidate bumps the key version when ids is empty so every instance misses at once.
func (c *RedisCache) Invalidate(ctx context.Context, ids ...int64) error {
	if len(ids) == 0 {
		if err := c.client.Incr(ctx, versionKey).Err(); err != nil {
			return fmt.Errorf("failed to invalidate cache: %w", err)
		}
		return nil
	}

	version, err := c.version(ctx)
	if err != nil {
		return fmt.Errorf("failed to invalidate cache: %w", err)
	}
	keys := make([]string, 0, len(ids))
	for _, id := range ids {
		keys = append(keys, c.key(version, id))
	}
	if err := c.client.Del(ctx, keys...).Err(); err != nil {
		return fmt.Errorf("failed to invalidate cache: %w", err)
	}
	return nil
}

// Close releases the connection pool.
func (c *RedisCache) Close() error {
	return c.client.Close()
}

func (c *RedisCache) version(ctx context.Context) (int64, error) {
	v, err := c.client.Get(ctx, versionKey).Int64()
	if errors.Is(err, redis.Nil) {
		return 0, nil
	}
	return v, err
}

func (c *RedisCache) key(version, id int64) string {
	return productKeyPrefix + "v" + strconv.FormatInt(version, 10) + ":" + strconv.FormatInt(id, 10)
}
