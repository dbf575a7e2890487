package repository

import (
	"context"

	"github.com/polkiloo/pixstore/internal/domain/model"
)

// ProductRepository reads the catalog.
type ProductRepository interface {
	GetByID(ctx context.Context, id int64) (*model.Product, error)
	GetByIDs(ctx context.Context, ids []int64) ([]model.Product, error)
}
