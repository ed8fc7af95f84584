package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/shoplens/backend/config"
	httpDelivery "github.com/shoplens/backend/internal/delivery/http"
	"github.com/shoplens/backend/internal/domain"
	"github.com/shoplens/backend/internal/infrastructure/cache"
	"github.com/shoplens/backend/internal/infrastructure/catalog"
	"github.com/shoplens/backend/internal/infrastructure/events"
	"github.com/shoplens/backend/internal/infrastructure/imagefetch"
	"github.com/shoplens/backend/internal/infrastructure/redact"
	"github.com/shoplens/backend/internal/infrastructure/vision"
	"github.com/shoplens/backend/internal/usecase"
	"go.uber.org/zap"
)

func main() {
	// Load configuration
	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to load configuration: %s\n", redact.Secrets(err.Error()))
		os.Exit(2)
	}

	logger, err := newLogger(cfg)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to create logger: %v\n", err)
		os.Exit(2)
	}
	defer func() { _ = logger.Sync() }()

	if err := run(cfg, logger); err != nil {
		logger.Error("server stopped with error", zap.String("error", redact.Secrets(err.Error())))
		os.Exit(1)
	}
}

func newLogger(cfg *config.Config) (*zap.Logger, error) {
	if cfg.Server.IsProduction() {
		return zap.NewProduction()
	}
	return zap.NewDevelopment()
}

func run(cfg *config.Config, logger *zap.Logger) error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	logger.Info("starting ShopLens backend",
		zap.String("version", "1.0.0"),
		zap.String("environment", cfg.Server.Environment),
		zap.String("port", cfg.Server.Port),
		zap.String("catalogSource", cfg.Catalog.Source),
		zap.String("cacheType", cfg.Cache.Type))

	// Initialize infrastructure dependencies
	catalogRepo, closeCatalog, err := newCatalogRepository(ctx, cfg, logger)
	if err != nil {
		return err
	}
	defer closeCatalog()

	cacheRepo, closeCache, err := newCache(ctx, cfg)
	if err != nil {
		return err
	}
	defer closeCache()
	logger.Info("catalog cache ready", zap.String("type", cfg.Cache.Type), zap.Duration("ttl", cfg.Cache.TTL))

	// A missing API key leaves the vision client nil; identify requests then answer 500
	var visionClient domain.VisionClient
	gemini, err := vision.NewGeminiClient(ctx, vision.Config{
		APIKey:  cfg.Vision.APIKey,
		Model:   cfg.Vision.Model,
		BaseURL: cfg.Vision.BaseURL,
	}, logger)
	switch {
	case err == nil:
		visionClient = gemini
		logger.Info("vision model configured", zap.String("provider", cfg.Vision.Provider), zap.String("model", cfg.Vision.Model))
	case errors.Is(err, domain.ErrVisionNotConfigured):
		logger.Warn("vision API key not configured - photo identification requests will fail")
	default:
		return fmt.Errorf("vision client: %w", err)
	}

	publisher, closePublisher, err := newPublisher(cfg, logger)
	if err != nil {
		return err
	}
	defer closePublisher()

	// Initialize usecase layer
	catalogService := usecase.NewCatalogService(catalogRepo, cacheRepo, logger, usecase.CatalogServiceConfig{
		CacheTTL: cfg.Cache.TTL,
	})
	matcher := usecase.NewMatchingService(logger, usecase.MatchConfig{
		EnableDebugLogging: !cfg.Server.IsProduction(),
	})
	analyzer := usecase.NewImageAnalyzer(
		imagefetch.NewClient(cfg.Pipeline.MaxImageBytes, logger),
		visionClient,
		matcher,
		logger,
		usecase.ImageAnalyzerConfig{
			FetchTimeout:  cfg.Pipeline.FetchTimeout,
			VisionTimeout: cfg.Pipeline.VisionTimeout,
		},
	)
	identificationService := usecase.NewIdentificationService(catalogService, analyzer, publisher, logger,
		usecase.IdentificationServiceConfig{
			VisionRPS:      cfg.Pipeline.VisionRPS,
			PublishTimeout: cfg.Events.PublishTimeout,
		})

	// Create HTTP handler with dependencies
	handler := httpDelivery.NewHandler(identificationService, catalogService, logger)
	router := httpDelivery.SetupRouter(cfg, handler, logger)

	srv := &http.Server{
		Addr:              fmt.Sprintf(":%s", cfg.Server.Port),
		Handler:           router,
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		logger.Info("server listening", zap.String("addr", srv.Addr))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		if err != nil {
			return fmt.Errorf("failed to start server: %w", err)
		}
		return nil
	case <-ctx.Done():
	}

	logger.Info("shutting down", zap.Duration("timeout", cfg.Server.ShutdownTimeout))
	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("graceful shutdown: %w", err)
	}
	return nil
}

func newCatalogRepository(ctx context.Context, cfg *config.Config, logger *zap.Logger) (domain.CatalogRepository, func(), error) {
	switch cfg.Catalog.Source {
	case "file":
		repo, err := catalog.NewFileRepository(cfg.Catalog.FilePath, logger)
		if err != nil {
			return nil, nil, fmt.Errorf("catalog file: %w", err)
		}
		return repo, func() {}, nil
	default:
		repo, err := catalog.NewPostgresRepository(ctx, cfg.Catalog.DatabaseURL, cfg.Catalog.Table, logger)
		if err != nil {
			return nil, nil, fmt.Errorf("catalog database: %w", err)
		}
		return repo, repo.Close, nil
	}
}

func newCache(ctx context.Context, cfg *config.Config) (domain.CacheRepository, func(), error) {
	if cfg.Cache.Type == "redis" {
		redisCache, err := cache.NewRedisCache(ctx, cfg.Cache.RedisURL, cfg.Cache.Prefix)
		if err != nil {
			return nil, nil, fmt.Errorf("redis cache: %w", err)
		}
		return redisCache, func() { _ = redisCache.Close() }, nil
	}

	memoryCache := cache.NewMemoryCache()
	return memoryCache, func() { _ = memoryCache.Close() }, nil
}

func newPublisher(cfg *config.Config, logger *zap.Logger) (domain.EventPublisher, func(), error) {
	if !cfg.Events.Enabled {
		return events.NoopPublisher{}, func() {}, nil
	}

	producer, err := events.NewKafkaPublisher(events.ProducerConfig{
		Brokers: cfg.Events.Brokers,
		Topic:   cfg.Events.Topic,
	})
	if err != nil {
		return nil, nil, fmt.Errorf("kafka publisher: %w", err)
	}
	logger.Info("batch events enabled", zap.Strings("brokers", cfg.Events.Brokers), zap.String("topic", cfg.Events.Topic))

	return producer, func() {
		if err := producer.Close(); err != nil {
			logger.Warn("kafka publisher close failed", zap.Error(err))
		}
	}, nil
}
