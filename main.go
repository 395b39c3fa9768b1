package main

import (
	"context"
	"log"
	"log/slog"
	"os/signal"
	"syscall"
	"time"

	"github.com/mrops-br/product-catalog-api/internal/app/service"
	"github.com/mrops-br/product-catalog-api/internal/domain"
	"github.com/mrops-br/product-catalog-api/internal/infrastructure/cache"
	"github.com/mrops-br/product-catalog-api/internal/infrastructure/config"
	"github.com/mrops-br/product-catalog-api/internal/infrastructure/http"
	"github.com/mrops-br/product-catalog-api/internal/infrastructure/http/handler"
	"github.com/mrops-br/product-catalog-api/internal/infrastructure/http/response"
	"github.com/mrops-br/product-catalog-api/internal/infrastructure/repository/cached"
	"github.com/mrops-br/product-catalog-api/internal/infrastructure/repository/memory"
	mongorepo "github.com/mrops-br/product-catalog-api/internal/infrastructure/repository/mongo"
	"github.com/mrops-br/product-catalog-api/internal/infrastructure/telemetry"
	"github.com/redis/go-redis/v9"
	"go.opentelemetry.io/otel/trace"
)

const instrumentationName = "product-catalog-api"

func main() {
	// Load configuration
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}

	// Setup graceful shutdown
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	// Initialize OpenTelemetry
	var telem *telemetry.Telemetry
	if cfg.OTLP.Enabled {
		telem, err = telemetry.NewTelemetry(ctx, &cfg.OTLP)
	} else {
		telem, err = telemetry.NewNoOpTelemetry(&cfg.OTLP)
	}
	if err != nil {
		log.Fatalf("Failed to initialize telemetry: %v", err)
	}

	// Ensure telemetry is shutdown on exit
	defer func() {
		shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer shutdownCancel()
		if err := telem.Shutdown(shutdownCtx); err != nil {
			log.Printf("Error shutting down telemetry: %v", err)
		}
	}()

	tracer := telem.TracerProvider.Tracer(instrumentationName)
	meter := telem.MeterProvider.Meter(instrumentationName)
	logger := telem.Logger

	logger.Info("Starting Product Catalog API",
		slog.String("storage_driver", cfg.StorageDriver),
		slog.Bool("unique_product_id", cfg.Catalog.UniqueProductID),
		slog.Bool("redis_cache", cfg.Redis.Enabled),
	)

	repo, closeRepo, err := newRepository(ctx, cfg, tracer, logger)
	if err != nil {
		logger.Error("Failed to initialize repository", slog.String("error", err.Error()))
		return
	}
	defer closeRepo()

	productService := service.NewProductService(repo, service.Options{
		UniqueProductID:            cfg.Catalog.UniqueProductID,
		ConcurrentMappingThreshold: cfg.Catalog.ConcurrentMappingThreshold,
	}, tracer, meter, logger)

	dispatcher := response.NewDispatcher(logger)
	productHandler := handler.NewProductHandler(productService, dispatcher, logger, cfg.Server.MaxBodyBytes)
	server := http.NewServer(&cfg.Server, productHandler, dispatcher, logger, telem.MeterProvider, telem.Registry)

	serverErr := make(chan error, 1)
	go func() {
		serverErr <- server.Start()
	}()

	select {
	case <-ctx.Done():
		logger.Info("Shutting down server...")
	case err := <-serverErr:
		if err != nil {
			logger.Error("Server error", slog.String("error", err.Error()))
		}
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
	defer cancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		logger.Error("Server shutdown failed", slog.String("error", err.Error()))
	}

	logger.Info("Server stopped")
}

// newRepository builds the configured store, optionally behind the Redis
// lookup cache. The returned func releases its connections.
func newRepository(ctx context.Context, cfg *config.Config, tracer trace.Tracer, logger *slog.Logger) (domain.ProductRepository, func(), error) {
	var (
		repo    domain.ProductRepository
		closers []func(context.Context) error
	)

	switch cfg.StorageDriver {
	case config.StorageMongo:
		connectCtx, cancel := context.WithTimeout(ctx, cfg.Mongo.ConnectTimeout)
		defer cancel()

		db, err := mongorepo.Connect(connectCtx, cfg.Mongo.URI, cfg.Mongo.Database, mongorepo.ConnectOptions{
			ConnectTimeout:         cfg.Mongo.ConnectTimeout,
			ServerSelectionTimeout: cfg.Mongo.ServerSelectionTimeout,
			MaxPoolSize:            cfg.Mongo.MaxPoolSize,
			MinPoolSize:            cfg.Mongo.MinPoolSize,
		})
		if err != nil {
			return nil, nil, err
		}
		closers = append(closers, db.Client().Disconnect)

		mongoRepo := mongorepo.NewProductRepository(db, tracer, logger)
		if err := mongoRepo.CreateIndexes(connectCtx, cfg.Catalog.UniqueProductID); err != nil {
			_ = db.Client().Disconnect(context.Background())
			return nil, nil, err
		}
		repo = mongoRepo
		logger.Info("Connected to MongoDB", slog.String("database", cfg.Mongo.Database))
	default:
		repo = memory.NewProductRepository(tracer, logger, cfg.Catalog.UniqueProductID)
	}

	if cfg.Redis.Enabled {
		client := redis.NewClient(&redis.Options{
			Addr:     cfg.Redis.Addr,
			Password: cfg.Redis.Password,
			DB:       cfg.Redis.DB,
		})
		// The cache is optional: an unreachable Redis only costs lookups
		if err := client.Ping(ctx).Err(); err != nil {
			logger.Warn("Redis not reachable, cache reads will fall through",
				slog.String("addr", cfg.Redis.Addr),
				slog.String("error", err.Error()),
			)
		}
		closers = append(closers, func(context.Context) error { return client.Close() })
		repo = cached.NewProductRepository(repo, cache.NewRedisCache(client, cfg.Redis.TTL), logger)
	}

	closeAll := func() {
		closeCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		for i := len(closers) - 1; i >= 0; i-- {
			if err := closers[i](closeCtx); err != nil {
				logger.Error("Failed to close storage connection", slog.String("error", err.Error()))
			}
		}
	}

	return repo, closeAll, nil
}
