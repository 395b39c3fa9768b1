// Package mongo stores products as documents in a MongoDB collection.
package mongo

import (
	"context"
	"errors"
	"fmt"
	"iter"
	"log/slog"

	"github.com/mrops-br/product-catalog-api/internal/domain"
	"github.com/shopspring/decimal"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
	"go.mongodb.org/mongo-driver/x/mongo/driver/topology"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
)

const CollectionName = "products"

type productDocument struct {
	ID           primitive.ObjectID   `bson:"_id,omitempty"`
	ProductID    string               `bson:"productId"`
	Title        string               `bson:"title"`
	Brand        string               `bson:"brand"`
	Manufacturer string               `bson:"manufacturer"`
	Price        primitive.Decimal128 `bson:"price"`
}

// toDocument fails with domain.ErrUnstorableProduct when the price needs more
// than the 34 significant digits of a Decimal128.
func toDocument(p *domain.Product) (*productDocument, error) {
	price, err := primitive.ParseDecimal128(p.Price.String())
	if err != nil {
		return nil, fmt.Errorf("%w: price %s: %w", domain.ErrUnstorableProduct, p.Price, err)
	}
	return &productDocument{
		ProductID:    p.ProductID,
		Title:        p.Title,
		Brand:        p.Brand,
		Manufacturer: p.Manufacturer,
		Price:        price,
	}, nil
}

func (d *productDocument) toDomain() (*domain.Product, error) {
	price, err := decimal.NewFromString(d.Price.String())
	if err != nil {
		return nil, fmt.Errorf("invalid stored price %s: %w", d.Price, err)
	}
	return &domain.Product{
		InternalID:   d.ID.Hex(),
		ProductID:    d.ProductID,
		Title:        d.Title,
		Brand:        d.Brand,
		Manufacturer: d.Manufacturer,
		Price:        price,
	}, nil
}

// ProductRepository implements domain.ProductRepository on a MongoDB collection.
type ProductRepository struct {
	collection *mongo.Collection
	tracer     trace.Tracer
	logger     *slog.Logger
}

func NewProductRepository(db *mongo.Database, tracer trace.Tracer, logger *slog.Logger) *ProductRepository {
	return &ProductRepository{
		collection: db.Collection(CollectionName),
		tracer:     tracer,
		logger:     logger,
	}
}

// CreateIndexes indexes productId. With unique set, the index is unique over
// non-empty product ids only.
func (r *ProductRepository) CreateIndexes(ctx context.Context, unique bool) error {
	idx := options.Index().SetName("productId_1")
	if unique {
		idx = idx.SetName("productId_unique").
			SetUnique(true).
			SetPartialFilterExpression(bson.M{"productId": bson.M{"$gt": ""}})
	}

	_, err := r.collection.Indexes().CreateOne(ctx, mongo.IndexModel{
		Keys:    bson.D{{Key: "productId", Value: 1}},
		Options: idx,
	})
	if err != nil {
		return fmt.Errorf("failed to create indexes: %w", err)
	}
	return nil
}

func (r *ProductRepository) Save(ctx context.Context, product *domain.Product) (*domain.Product, error) {
	ctx, span := r.tracer.Start(ctx, "MongoProductRepository.Save")
	defer span.End()

	span.SetAttributes(attribute.String("product.product_id", product.ProductID))

	doc, err := toDocument(product)
	if err != nil {
		return nil, r.fail(ctx, span, "save", err)
	}
	doc.ID = primitive.NewObjectID()

	if _, err := r.collection.InsertOne(ctx, doc); err != nil {
		return nil, r.fail(ctx, span, "save", err)
	}

	saved := product.Clone()
	saved.InternalID = doc.ID.Hex()

	r.logger.InfoContext(ctx, "Product saved in MongoDB",
		slog.String("internal_id", saved.InternalID),
		slog.String("product_id", saved.ProductID),
	)
	span.SetStatus(codes.Ok, "Product saved successfully")
	return saved, nil
}

// SaveAll issues one ordered InsertMany when iteration starts. On a write
// error the documents before the failing one stay stored.
func (r *ProductRepository) SaveAll(ctx context.Context, products []*domain.Product) iter.Seq2[*domain.Product, error] {
	return func(yield func(*domain.Product, error) bool) {
		ctx, span := r.tracer.Start(ctx, "MongoProductRepository.SaveAll")
		defer span.End()

		span.SetAttributes(attribute.Int("product.count", len(products)))
		if len(products) == 0 {
			span.SetStatus(codes.Ok, "Nothing to save")
			return
		}

		docs := make([]any, len(products))
		saved := make([]*domain.Product, len(products))
		for i, p := range products {
			doc, err := toDocument(p)
			if err != nil {
				yield(nil, r.fail(ctx, span, "save_all", err))
				return
			}
			doc.ID = primitive.NewObjectID()
			docs[i] = doc

			saved[i] = p.Clone()
			saved[i].InternalID = doc.ID.Hex()
		}

		opts := options.InsertMany().SetOrdered(true)
		if _, err := r.collection.InsertMany(ctx, docs, opts); err != nil {
			yield(nil, r.fail(ctx, span, "save_all", err))
			return
		}

		r.logger.InfoContext(ctx, "Products saved in MongoDB",
			slog.Int("count", len(saved)),
		)
		span.SetStatus(codes.Ok, "Products saved successfully")

		for _, p := range saved {
			if !yield(p, nil) {
				return
			}
		}
	}
}

// FindAll streams the collection in insertion order from a cursor that is
// closed when iteration ends.
func (r *ProductRepository) FindAll(ctx context.Context) iter.Seq2[*domain.Product, error] {
	return func(yield func(*domain.Product, error) bool) {
		ctx, span := r.tracer.Start(ctx, "MongoProductRepository.FindAll")
		defer span.End()

		opts := options.Find().SetSort(bson.D{{Key: "_id", Value: 1}})
		cursor, err := r.collection.Find(ctx, bson.D{}, opts)
		if err != nil {
			yield(nil, r.fail(ctx, span, "find_all", err))
			return
		}
		defer cursor.Close(context.WithoutCancel(ctx))

		count := 0
		for cursor.Next(ctx) {
			var doc productDocument
			if err := cursor.Decode(&doc); err != nil {
				yield(nil, r.fail(ctx, span, "find_all", err))
				return
			}
			p, err := doc.toDomain()
			if err != nil {
				yield(nil, r.fail(ctx, span, "find_all", err))
				return
			}
			count++
			if !yield(p, nil) {
				return
			}
		}
		if err := cursor.Err(); err != nil {
			yield(nil, r.fail(ctx, span, "find_all", err))
			return
		}

		span.SetAttributes(attribute.Int("product.count", count))
		r.logger.InfoContext(ctx, "Products retrieved from MongoDB",
			slog.Int("count", count),
		)
		span.SetStatus(codes.Ok, "Products retrieved successfully")
	}
}

// FindByProductID returns the oldest document with the given product id.
func (r *ProductRepository) FindByProductID(ctx context.Context, productID string) (*domain.Product, error) {
	ctx, span := r.tracer.Start(ctx, "MongoProductRepository.FindByProductID")
	defer span.End()

	span.SetAttributes(attribute.String("product.product_id", productID))

	var doc productDocument
	opts := options.FindOne().SetSort(bson.D{{Key: "_id", Value: 1}})
	err := r.collection.FindOne(ctx, bson.M{"productId": productID}, opts).Decode(&doc)
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			span.RecordError(domain.ErrProductNotFound)
			span.SetStatus(codes.Error, "Product not found")
			r.logger.DebugContext(ctx, "Product not found",
				slog.String("product_id", productID),
			)
			return nil, domain.ErrProductNotFound
		}
		return nil, r.fail(ctx, span, "find_by_product_id", err)
	}

	p, err := doc.toDomain()
	if err != nil {
		return nil, r.fail(ctx, span, "find_by_product_id", err)
	}

	span.SetStatus(codes.Ok, "Product found")
	return p, nil
}

func (r *ProductRepository) fail(ctx context.Context, span trace.Span, op string, err error) error {
	err = classify(err)
	span.RecordError(err)
	span.SetStatus(codes.Error, op+" failed")
	r.logger.DebugContext(ctx, "MongoDB operation failed",
		slog.String("op", op),
		slog.String("error", err.Error()),
	)
	return domain.NewStorageError(op, err)
}

// classify tags driver errors with the domain sentinels the service
// translates.
func classify(err error) error {
	var selectionErr topology.ServerSelectionError
	switch {
	case mongo.IsDuplicateKeyError(err):
		return fmt.Errorf("%w: %w", domain.ErrDuplicateProductID, err)
	case mongo.IsNetworkError(err),
		mongo.IsTimeout(err),
		errors.Is(err, mongo.ErrClientDisconnected),
		errors.As(err, &selectionErr):
		return fmt.Errorf("%w: %w", domain.ErrStorageUnavailable, err)
	default:
		return err
	}
}
