package service

import (
	"context"
	"errors"
	"log/slog"
	"strings"

	"github.com/mrops-br/product-catalog-api/internal/app/apperr"
	"github.com/mrops-br/product-catalog-api/internal/app/dto"
	"github.com/mrops-br/product-catalog-api/internal/app/validation"
	"github.com/mrops-br/product-catalog-api/internal/domain"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/trace"
)

// Options tunes the product service.
type Options struct {
	// UniqueProductID rejects batches that repeat a product id. The store
	// enforces the same rule across requests.
	UniqueProductID bool
	// ConcurrentMappingThreshold is the batch size from which bulk mapping
	// runs on a worker group. Zero or less keeps mapping sequential.
	ConcurrentMappingThreshold int
}

// ProductService handles product use cases
type ProductService struct {
	repo                  domain.ProductRepository
	opts                  Options
	tracer                trace.Tracer
	logger                *slog.Logger
	productCreatedCounter metric.Int64Counter
	productOperations     metric.Int64Counter
}

// NewProductService creates a new product service
func NewProductService(
	repo domain.ProductRepository,
	opts Options,
	tracer trace.Tracer,
	meter metric.Meter,
	logger *slog.Logger,
) *ProductService {
	// Initialize metrics
	productCreatedCounter, _ := meter.Int64Counter(
		"products.created.total",
		metric.WithDescription("Total number of products created"),
	)

	productOperations, _ := meter.Int64Counter(
		"products.operations",
		metric.WithDescription("Total number of product operations"),
	)

	return &ProductService{
		repo:                  repo,
		opts:                  opts,
		tracer:                tracer,
		logger:                logger,
		productCreatedCounter: productCreatedCounter,
		productOperations:     productOperations,
	}
}

// CreateProduct stores a single product. No field is required on this path.
func (s *ProductService) CreateProduct(ctx context.Context, req *dto.ProductRequest) (*dto.ProductResponse, error) {
	ctx, span := s.tracer.Start(ctx, "ProductService.CreateProduct")
	defer span.End()

	span.SetAttributes(attribute.String("product.product_id", req.ProductID))

	s.logger.InfoContext(ctx, "Creating product",
		slog.String("product_id", req.ProductID),
		slog.String("price", req.Price.String()),
	)

	product := dto.ToEntity(req)

	// Nothing has been written yet, so a finished request can still be dropped.
	if err := ctx.Err(); err != nil {
		return nil, s.fail(ctx, span, "create", classify(err))
	}

	saved, err := s.repo.Save(ctx, product)
	if err != nil {
		return nil, s.fail(ctx, span, "create", classify(err))
	}

	s.productCreatedCounter.Add(ctx, 1)
	s.record(ctx, "create", "success")

	s.logger.InfoContext(ctx, "Product created successfully",
		slog.String("product_id", saved.ProductID),
		slog.String("internal_id", saved.InternalID),
	)

	span.SetStatus(codes.Ok, "Product created successfully")
	return dto.ToProductResponse(saved), nil
}

// CreateProducts stores a batch. Every element must carry a product id;
// one invalid element rejects the whole batch before anything is written.
func (s *ProductService) CreateProducts(ctx context.Context, reqs []dto.ProductRequest) ([]*dto.ProductResponse, error) {
	ctx, span := s.tracer.Start(ctx, "ProductService.CreateProducts")
	defer span.End()

	span.SetAttributes(attribute.Int("product.count", len(reqs)))

	s.logger.InfoContext(ctx, "Creating products in bulk",
		slog.Int("count", len(reqs)),
	)

	reqs, err := validation.ValidateBulk(reqs)
	if err != nil {
		return nil, s.fail(ctx, span, "create_bulk", classify(err))
	}

	if s.opts.UniqueProductID {
		if dups := validation.DuplicateProductIDs(reqs); len(dups) > 0 {
			s.logger.DebugContext(ctx, "Batch repeats product ids",
				slog.String("product_ids", strings.Join(dups, ",")),
			)
			return nil, s.fail(ctx, span, "create_bulk", apperr.New(apperr.ProductAlreadyExists))
		}
	}

	products, err := s.toEntities(ctx, reqs)
	if err != nil {
		return nil, s.fail(ctx, span, "create_bulk", classify(err))
	}

	if err := ctx.Err(); err != nil {
		return nil, s.fail(ctx, span, "create_bulk", classify(err))
	}

	saved, err := domain.Collect(s.repo.SaveAll(ctx, products))
	if err != nil {
		return nil, s.fail(ctx, span, "create_bulk", classify(err))
	}

	responses, err := s.toResponses(ctx, saved)
	if err != nil {
		return nil, s.fail(ctx, span, "create_bulk", classify(err))
	}

	s.productCreatedCounter.Add(ctx, int64(len(saved)))
	s.record(ctx, "create_bulk", "success")

	s.logger.InfoContext(ctx, "Products created successfully",
		slog.Int("count", len(saved)),
	)

	span.SetStatus(codes.Ok, "Products created successfully")
	return responses, nil
}

// ListProducts retrieves all products
func (s *ProductService) ListProducts(ctx context.Context) ([]*dto.ProductResponse, error) {
	ctx, span := s.tracer.Start(ctx, "ProductService.ListProducts")
	defer span.End()

	s.logger.InfoContext(ctx, "Listing all products")

	products, err := domain.Collect(s.repo.FindAll(ctx))
	if err != nil {
		return nil, s.fail(ctx, span, "list", classify(err))
	}

	responses, err := s.toResponses(ctx, products)
	if err != nil {
		return nil, s.fail(ctx, span, "list", classify(err))
	}

	span.SetAttributes(attribute.Int("product.count", len(products)))
	s.record(ctx, "list", "success")

	s.logger.InfoContext(ctx, "Products listed successfully",
		slog.Int("count", len(products)),
	)

	span.SetStatus(codes.Ok, "Products listed successfully")
	return responses, nil
}

// GetProductByProductID retrieves a product by its business id. A missing
// or blank id fails before storage is queried.
func (s *ProductService) GetProductByProductID(ctx context.Context, productID *string) (*dto.ProductResponse, error) {
	ctx, span := s.tracer.Start(ctx, "ProductService.GetProductByProductID")
	defer span.End()

	id, err := validation.ValidateProductIDParam(productID)
	if err != nil {
		return nil, s.fail(ctx, span, "read", classify(err))
	}

	span.SetAttributes(attribute.String("product.product_id", id))

	s.logger.InfoContext(ctx, "Getting product by product id",
		slog.String("product_id", id),
	)

	product, err := s.repo.FindByProductID(ctx, id)
	if err != nil {
		return nil, s.fail(ctx, span, "read", classify(err))
	}

	s.record(ctx, "read", "success")

	s.logger.InfoContext(ctx, "Product retrieved successfully",
		slog.String("product_id", id),
	)

	span.SetStatus(codes.Ok, "Product retrieved successfully")
	return dto.ToProductResponse(product), nil
}

func (s *ProductService) toEntities(ctx context.Context, reqs []dto.ProductRequest) ([]*domain.Product, error) {
	if s.concurrent(len(reqs)) {
		return dto.ToEntitiesConcurrent(ctx, reqs)
	}
	return dto.ToEntities(reqs), nil
}

func (s *ProductService) toResponses(ctx context.Context, products []*domain.Product) ([]*dto.ProductResponse, error) {
	if s.concurrent(len(products)) {
		return dto.ToProductResponseListConcurrent(ctx, products)
	}
	return dto.ToProductResponseList(products), nil
}

func (s *ProductService) concurrent(n int) bool {
	return s.opts.ConcurrentMappingThreshold > 0 && n >= s.opts.ConcurrentMappingThreshold
}

// fail records a classified failure on the span and metrics. The
// severity-tagged log record is left to the response dispatcher.
func (s *ProductService) fail(ctx context.Context, span trace.Span, operation string, err *apperr.Error) *apperr.Error {
	span.RecordError(err)
	span.SetStatus(codes.Error, err.Code.Label)
	s.logger.DebugContext(ctx, "Product operation failed",
		slog.String("operation", operation),
		slog.String("code", err.Code.Key),
	)
	s.record(ctx, operation, resultFor(err.Code))
	return err
}

func (s *ProductService) record(ctx context.Context, operation, result string) {
	s.productOperations.Add(ctx, 1,
		metric.WithAttributes(
			attribute.String("operation", operation),
			attribute.String("result", result),
		),
	)
}

func resultFor(code apperr.Code) string {
	switch code.Key {
	case apperr.InvalidProductID.Key:
		return "not_found"
	case apperr.InvalidInputData.Key:
		return "invalid"
	case apperr.ProductAlreadyExists.Key:
		return "conflict"
	default:
		return "failure"
	}
}

// classify maps any failure on a service path to exactly one classified
// failure. Storage errors and done contexts are translated here.
func classify(err error) *apperr.Error {
	if appErr, ok := apperr.From(err); ok {
		return appErr
	}
	switch {
	case errors.Is(err, domain.ErrProductNotFound):
		return apperr.Wrap(apperr.InvalidProductID, err)
	case errors.Is(err, domain.ErrDuplicateProductID):
		return apperr.Wrap(apperr.ProductAlreadyExists, err)
	case errors.Is(err, domain.ErrUnstorableProduct):
		return apperr.Wrap(apperr.InvalidInputData, err)
	case errors.Is(err, domain.ErrStorageUnavailable),
		errors.Is(err, context.DeadlineExceeded),
		errors.Is(err, context.Canceled):
		return apperr.Wrap(apperr.ServiceUnavailable, err)
	default:
		return apperr.Wrap(apperr.DatabaseError, err)
	}
}
