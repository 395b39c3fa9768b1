package cache

import (
	"context"
	"errors"

	"github.com/mrops-br/product-catalog-api/internal/domain"
)

// ProductCache holds products keyed by their business product id.
type ProductCache interface {
	Get(ctx context.Context, productID string) (*domain.Product, error)
	Set(ctx context.Context, product *domain.Product) error
	Delete(ctx context.Context, productID string) error
}

var ErrCacheMiss = errors.New("cache miss")
