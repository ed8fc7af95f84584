package usecase

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/shoplens/backend/internal/domain"
	"github.com/shoplens/backend/internal/infrastructure/metrics"
	"go.uber.org/zap"
)

// catalogCacheKey is the cache key holding the JSON catalog snapshot
const catalogCacheKey = "catalog:snapshot"

// CatalogServiceConfig holds configuration for the catalog service
type CatalogServiceConfig struct {
	CacheTTL time.Duration
}

// CatalogStats summarizes the current catalog snapshot
type CatalogStats struct {
	TotalProducts int            `json:"totalProducts"`
	ProductTypes  map[string]int `json:"productTypes"`
	Cached        bool           `json:"cached"`
}

// CatalogService loads read-only catalog snapshots with caching
type CatalogService struct {
	repo     domain.CatalogRepository
	cache    domain.CacheRepository
	logger   *zap.Logger
	cacheTTL time.Duration
}

// NewCatalogService creates a new catalog service. cache may be nil.
func NewCatalogService(
	repo domain.CatalogRepository,
	cache domain.CacheRepository,
	logger *zap.Logger,
	config CatalogServiceConfig,
) *CatalogService {
	if logger == nil {
		logger = zap.NewNop()
	}

	cacheTTL := config.CacheTTL
	if cacheTTL == 0 {
		cacheTTL = 5 * time.Minute
	}

	return &CatalogService{
		repo:     repo,
		cache:    cache,
		logger:   logger.With(zap.String("component", "catalog")),
		cacheTTL: cacheTTL,
	}
}

// LoadCatalog returns the current catalog snapshot.
// Flow: check cache -> read repository -> cache -> return
func (s *CatalogService) LoadCatalog(ctx context.Context) ([]domain.CatalogProduct, error) {
	if s.repo == nil {
		return nil, domain.ErrCatalogUnavailable
	}

	if products, ok := s.getFromCache(ctx); ok {
		metrics.CatalogLoadsTotal.WithLabelValues("cache").Inc()
		return products, nil
	}

	products, err := s.repo.FetchCatalog(ctx)
	if err != nil {
		if errors.Is(err, domain.ErrCatalogUnavailable) {
			return nil, err
		}
		return nil, fmt.Errorf("%w: %v", domain.ErrCatalogUnavailable, err)
	}
	metrics.CatalogLoadsTotal.WithLabelValues("repository").Inc()

	// An empty catalog is not cached so newly imported products show up at once
	if len(products) > 0 {
		s.setInCache(ctx, products)
	}

	return products, nil
}

// Invalidate drops the cached snapshot so the next load reads the repository
func (s *CatalogService) Invalidate(ctx context.Context) error {
	if s.cache == nil {
		return nil
	}
	if err := s.cache.Delete(ctx, catalogCacheKey); err != nil {
		return fmt.Errorf("invalidate catalog cache: %w", err)
	}
	return nil
}

// Stats loads the catalog and counts products per normalized product type
func (s *CatalogService) Stats(ctx context.Context) (*CatalogStats, error) {
	cached := false
	if s.cache != nil {
		if ok, err := s.cache.Exists(ctx, catalogCacheKey); err == nil {
			cached = ok
		}
	}

	products, err := s.LoadCatalog(ctx)
	if err != nil {
		return nil, err
	}

	stats := &CatalogStats{
		TotalProducts: len(products),
		ProductTypes:  make(map[string]int),
		Cached:        cached,
	}
	for _, p := range products {
		productType := Normalize(p.ProductType)
		if productType == "" {
			productType = "unknown"
		}
		stats.ProductTypes[productType]++
	}

	return stats, nil
}

// getFromCache returns the cached snapshot. Any cache error counts as a miss.
func (s *CatalogService) getFromCache(ctx context.Context) ([]domain.CatalogProduct, bool) {
	if s.cache == nil {
		return nil, false
	}

	data, err := s.cache.Get(ctx, catalogCacheKey)
	if err != nil {
		if !errors.Is(err, domain.ErrCacheMiss) {
			s.logger.Warn("catalog cache read failed", zap.Error(err))
		}
		return nil, false
	}

	var products []domain.CatalogProduct
	if err := json.Unmarshal(data, &products); err != nil {
		s.logger.Warn("catalog cache entry is corrupt", zap.Error(err))
		return nil, false
	}
	if len(products) == 0 {
		return nil, false
	}

	return products, true
}

// setInCache stores the snapshot; failures are logged, never returned
func (s *CatalogService) setInCache(ctx context.Context, products []domain.CatalogProduct) {
	if s.cache == nil {
		return
	}

	data, err := json.Marshal(products)
	if err != nil {
		s.logger.Warn("catalog snapshot marshal failed", zap.Error(err))
		return
	}
	if err := s.cache.Set(ctx, catalogCacheKey, data, s.cacheTTL); err != nil {
		s.logger.Warn("catalog cache write failed", zap.Error(err))
	}
}
