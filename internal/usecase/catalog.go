package usecase

import (
	"context"
	"fmt"

	"github.com/polkiloo/pixstore/internal/cache"
	domainErrors "github.com/polkiloo/pixstore/internal/domain/errors"
	"github.com/polkiloo/pixstore/internal/domain/model"
	"github.com/polkiloo/pixstore/internal/domain/repository"
)

// CatalogUseCase reads products through the cache.
type CatalogUseCase struct {
	products repository.ProductRepository
	cache    cache.ProductCache
}

// NewCatalogUseCase constructs CatalogUseCase.
func NewCatalogUseCase(products repository.ProductRepository, c cache.ProductCache) *CatalogUseCase {
	return &CatalogUseCase{products: products, cache: c}
}

// Products returns catalog entries keyed by id. Unknown ids are absent from the map.
func (u *CatalogUseCase) Products(ctx context.Context, ids []int64) (map[int64]model.Product, error) {
	result := make(map[int64]model.Product, len(ids))
	seen := make(map[int64]struct{}, len(ids))
	var missing []int64
	for _, id := range ids {
		if _, dup := seen[id]; dup {
			continue
		}
		seen[id] = struct{}{}
		if p, ok := u.cache.Get(ctx, id); ok {
			result[id] = p
			continue
		}
		missing = append(missing, id)
	}
	if len(missing) == 0 {
		return result, nil
	}

	fetched, err := u.products.GetByIDs(ctx, missing)
	if err != nil {
		return nil, fmt.Errorf("load products: %w", err)
	}
	for _, p := range fetched {
		result[p.ID] = p
		u.cache.Set(ctx, p)
	}
	return result, nil
}

// Product returns a single catalog entry.
func (u *CatalogUseCase) Product(ctx context.Context, id int64) (*model.Product, error) {
	products, err := u.Products(ctx, []int64{id})
	if err != nil {
		return nil, err
	}
	p, ok := products[id]
	if !ok {
		return nil, fmt.Errorf("product %d: %w", id, domainErrors.ErrProductNotFound)
	}
	return &p, nil
}

// Invalidate drops cached entries, all of them when ids is empty.
func (u *CatalogUseCase) Invalidate(ctx context.Context, ids ...int64) error {
	return u.cache.Invalidate(ctx, ids...)
}
