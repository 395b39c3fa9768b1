package memory

import (
	"context"
	"iter"
	"log/slog"
	"sync"

	"github.com/google/uuid"
	"github.com/mrops-br/product-catalog-api/internal/domain"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
)

// ProductRepository is an in-memory implementation of domain.ProductRepository
type ProductRepository struct {
	mu          sync.RWMutex
	products    map[string]*domain.Product // keyed by internal id
	order       []string                   // internal ids in insertion order
	byProductID map[string]string          // product id -> first internal id
	unique      bool
	tracer      trace.Tracer
	logger      *slog.Logger
}

// NewProductRepository creates a new in-memory product repository.
// When unique is set, non-blank product ids may only be stored once.
func NewProductRepository(tracer trace.Tracer, logger *slog.Logger, unique bool) *ProductRepository {
	return &ProductRepository{
		products:    make(map[string]*domain.Product),
		byProductID: make(map[string]string),
		unique:      unique,
		tracer:      tracer,
		logger:      logger,
	}
}

// Save stores a new product and assigns its internal id
func (r *ProductRepository) Save(ctx context.Context, product *domain.Product) (*domain.Product, error) {
	ctx, span := r.tracer.Start(ctx, "ProductRepository.Save")
	defer span.End()

	span.SetAttributes(attribute.String("product.product_id", product.ProductID))

	saved, err := r.insert(ctx, product)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "Failed to save product")
		return nil, domain.NewStorageError("save", err)
	}

	r.logger.InfoContext(ctx, "Product saved in repository",
		slog.String("internal_id", saved.InternalID),
		slog.String("product_id", saved.ProductID),
	)

	span.SetStatus(codes.Ok, "Product saved successfully")
	return saved, nil
}

// SaveAll stores products one by one as the sequence is consumed
func (r *ProductRepository) SaveAll(ctx context.Context, products []*domain.Product) iter.Seq2[*domain.Product, error] {
	return func(yield func(*domain.Product, error) bool) {
		ctx, span := r.tracer.Start(ctx, "ProductRepository.SaveAll")
		defer span.End()

		span.SetAttributes(attribute.Int("product.count", len(products)))

		saved := 0
		for _, product := range products {
			p, err := r.insert(ctx, product)
			if err != nil {
				span.RecordError(err)
				span.SetStatus(codes.Error, "Failed to save products")
				r.logger.DebugContext(ctx, "Bulk save stopped",
					slog.Int("saved", saved),
					slog.String("error", err.Error()),
				)
				yield(nil, domain.NewStorageError("save_all", err))
				return
			}
			saved++
			if !yield(p, nil) {
				return
			}
		}

		r.logger.InfoContext(ctx, "Products saved in repository",
			slog.Int("count", saved),
		)
		span.SetStatus(codes.Ok, "Products saved successfully")
	}
}

// FindAll yields a snapshot of all products in insertion order
func (r *ProductRepository) FindAll(ctx context.Context) iter.Seq2[*domain.Product, error] {
	return func(yield func(*domain.Product, error) bool) {
		ctx, span := r.tracer.Start(ctx, "ProductRepository.FindAll")
		defer span.End()

		if err := ctx.Err(); err != nil {
			span.RecordError(err)
			span.SetStatus(codes.Error, "Context done")
			yield(nil, domain.NewStorageError("find_all", err))
			return
		}

		r.mu.RLock()
		snapshot := make([]*domain.Product, 0, len(r.order))
		for _, id := range r.order {
			snapshot = append(snapshot, r.products[id].Clone())
		}
		r.mu.RUnlock()

		span.SetAttributes(attribute.Int("product.count", len(snapshot)))

		r.logger.InfoContext(ctx, "Products retrieved from repository",
			slog.Int("count", len(snapshot)),
		)

		span.SetStatus(codes.Ok, "Products retrieved successfully")
		for _, p := range snapshot {
			if !yield(p, nil) {
				return
			}
		}
	}
}

// FindByProductID retrieves the first product stored under productID
func (r *ProductRepository) FindByProductID(ctx context.Context, productID string) (*domain.Product, error) {
	ctx, span := r.tracer.Start(ctx, "ProductRepository.FindByProductID")
	defer span.End()

	span.SetAttributes(attribute.String("product.product_id", productID))

	if err := ctx.Err(); err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "Context done")
		return nil, domain.NewStorageError("find_by_product_id", err)
	}

	r.mu.RLock()
	defer r.mu.RUnlock()

	id, exists := r.byProductID[productID]
	if !exists {
		span.RecordError(domain.ErrProductNotFound)
		span.SetStatus(codes.Error, "Product not found")
		r.logger.DebugContext(ctx, "Product not found",
			slog.String("product_id", productID),
		)
		return nil, domain.ErrProductNotFound
	}

	product := r.products[id]
	r.logger.DebugContext(ctx, "Product found in repository",
		slog.String("product_id", productID),
		slog.String("internal_id", id),
	)

	span.SetStatus(codes.Ok, "Product found")
	return product.Clone(), nil
}

func (r *ProductRepository) insert(ctx context.Context, product *domain.Product) (*domain.Product, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	_, taken := r.byProductID[product.ProductID]
	if r.unique && taken && product.ProductID != "" {
		return nil, domain.ErrDuplicateProductID
	}

	stored := product.Clone()
	stored.InternalID = uuid.New().String()

	r.products[stored.InternalID] = stored
	r.order = append(r.order, stored.InternalID)
	if !taken {
		r.byProductID[stored.ProductID] = stored.InternalID
	}

	return stored.Clone(), nil
}
