// Package cached decorates a product repository with a read-through lookup
// cache. Cache failures are logged and bypassed; they never fail a request.
package cached

import (
	"context"
	"errors"
	"iter"
	"log/slog"

	"github.com/mrops-br/product-catalog-api/internal/domain"
	"github.com/mrops-br/product-catalog-api/internal/infrastructure/cache"
	"golang.org/x/sync/singleflight"
)

type ProductRepository struct {
	next   domain.ProductRepository
	cache  cache.ProductCache
	logger *slog.Logger
	sfg    singleflight.Group // collapses concurrent misses for one product id
}

func NewProductRepository(next domain.ProductRepository, c cache.ProductCache, logger *slog.Logger) *ProductRepository {
	return &ProductRepository{next: next, cache: c, logger: logger}
}

func (r *ProductRepository) Save(ctx context.Context, product *domain.Product) (*domain.Product, error) {
	saved, err := r.next.Save(ctx, product)
	if err != nil {
		return nil, err
	}
	r.invalidate(ctx, saved.ProductID)
	return saved, nil
}

func (r *ProductRepository) SaveAll(ctx context.Context, products []*domain.Product) iter.Seq2[*domain.Product, error] {
	return func(yield func(*domain.Product, error) bool) {
		for p, err := range r.next.SaveAll(ctx, products) {
			if err == nil {
				r.invalidate(ctx, p.ProductID)
			}
			if !yield(p, err) {
				return
			}
		}
	}
}

func (r *ProductRepository) FindAll(ctx context.Context) iter.Seq2[*domain.Product, error] {
	return r.next.FindAll(ctx)
}

// FindByProductID shares one read per product id between concurrent
// callers. The shared read is detached from caller cancellation; each caller
// only stops waiting when its own context is done.
func (r *ProductRepository) FindByProductID(ctx context.Context, productID string) (*domain.Product, error) {
	ch := r.sfg.DoChan(productID, func() (interface{}, error) {
		return r.readThrough(context.WithoutCancel(ctx), productID)
	})

	select {
	case <-ctx.Done():
		return nil, domain.NewStorageError("find_by_product_id", ctx.Err())
	case res := <-ch:
		if res.Err != nil {
			return nil, res.Err
		}
		// callers sharing one flight must not share the product
		return res.Val.(*domain.Product).Clone(), nil
	}
}

func (r *ProductRepository) readThrough(ctx context.Context, productID string) (*domain.Product, error) {
	p, err := r.cache.Get(ctx, productID)
	if err == nil {
		r.logger.DebugContext(ctx, "Product cache hit", slog.String("product_id", productID))
		return p, nil
	}
	if !errors.Is(err, cache.ErrCacheMiss) {
		r.logger.WarnContext(ctx, "Product cache read failed",
			slog.String("product_id", productID),
			slog.String("error", err.Error()),
		)
	}

	p, err = r.next.FindByProductID(ctx, productID)
	if err != nil {
		return nil, err
	}

	if err := r.cache.Set(ctx, p); err != nil {
		r.logger.WarnContext(ctx, "Product cache write failed",
			slog.String("product_id", productID),
			slog.String("error", err.Error()),
		)
	}
	return p, nil
}

func (r *ProductRepository) invalidate(ctx context.Context, productID string) {
	if err := r.cache.Delete(ctx, productID); err != nil {
		r.logger.WarnContext(ctx, "Product cache invalidation failed",
			slog.String("product_id", productID),
			slog.String("error", err.Error()),
		)
	}
}
