package usecase

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/shoplens/backend/internal/domain"
	"github.com/shoplens/backend/internal/infrastructure/metrics"
	"github.com/shoplens/backend/internal/infrastructure/worker"
	"go.uber.org/zap"
)

const (
	// MaxImagesPerBatch is the most image URLs one request may submit
	MaxImagesPerBatch = 10

	// MaxConcurrentAnalyses bounds how many images are analyzed at once
	MaxConcurrentAnalyses = 3

	defaultPublishTimeout = 2 * time.Second
)

// CatalogLoader returns the catalog snapshot a batch matches against
type CatalogLoader interface {
	LoadCatalog(ctx context.Context) ([]domain.CatalogProduct, error)
}

// IdentificationServiceConfig holds configuration for the batch orchestrator
type IdentificationServiceConfig struct {
	// VisionRPS caps how fast new analyses start. Set to <=0 to disable.
	VisionRPS float64

	// PublishTimeout bounds the batch event publish. Defaults to 2s.
	PublishTimeout time.Duration
}

// IdentificationService validates a batch of photo URLs and analyzes them
// on a bounded worker pool.
type IdentificationService struct {
	catalog   CatalogLoader
	analyzer  *ImageAnalyzer
	publisher domain.EventPublisher
	logger    *zap.Logger
	visionRPS float64

	publishTimeout time.Duration
}

// BatchResult is the output of one identification batch
type BatchResult struct {
	Analyses      []domain.ImageAnalysisResult
	TotalProducts int
	Summary       domain.BatchSummary
}

// NewIdentificationService creates a new identification service with dependencies.
// publisher may be nil.
func NewIdentificationService(
	catalog CatalogLoader,
	analyzer *ImageAnalyzer,
	publisher domain.EventPublisher,
	logger *zap.Logger,
	config IdentificationServiceConfig,
) *IdentificationService {
	if logger == nil {
		logger = zap.NewNop()
	}
	publishTimeout := config.PublishTimeout
	if publishTimeout <= 0 {
		publishTimeout = defaultPublishTimeout
	}

	return &IdentificationService{
		catalog:        catalog,
		analyzer:       analyzer,
		publisher:      publisher,
		logger:         logger.With(zap.String("component", "identification")),
		visionRPS:      config.VisionRPS,
		publishTimeout: publishTimeout,
	}
}

// RunBatch analyzes every URL and returns exactly one result per URL, in input
// order. Request-level problems (bad input, missing vision credentials, empty
// or unreadable catalog) are returned as errors before any image is fetched.
func (s *IdentificationService) RunBatch(ctx context.Context, imageURLs []string) (*BatchResult, error) {
	if err := validateImageURLs(imageURLs); err != nil {
		metrics.BatchesTotal.WithLabelValues("rejected").Inc()
		return nil, err
	}

	if !s.analyzer.Configured() {
		metrics.BatchesTotal.WithLabelValues("rejected").Inc()
		return nil, domain.ErrVisionNotConfigured
	}

	catalog, err := s.catalog.LoadCatalog(ctx)
	if err != nil {
		metrics.BatchesTotal.WithLabelValues("error").Inc()
		return nil, err
	}
	if len(catalog) == 0 {
		metrics.BatchesTotal.WithLabelValues("rejected").Inc()
		return nil, domain.ErrEmptyCatalog
	}

	batchID := uuid.NewString()
	start := time.Now()

	s.logger.Info("identification batch started",
		zap.String("batchId", batchID),
		zap.Int("images", len(imageURLs)),
		zap.Int("catalogSize", len(catalog)))

	results := worker.ProcessAll(ctx, imageURLs,
		func(ctx context.Context, imageURL string) (domain.ImageAnalysisResult, error) {
			return s.analyzer.AnalyzeImage(ctx, imageURL, catalog), nil
		},
		worker.Options{Workers: MaxConcurrentAnalyses, RateLimitRPS: s.visionRPS},
	)

	analyses := make([]domain.ImageAnalysisResult, len(results))
	for i, r := range results {
		if r.Err != nil {
			// Only a cancelled rate limiter wait ends up here
			s.logger.Warn("image skipped", zap.String("imageUrl", r.Input), zap.Error(r.Err))
			analyses[i] = degradedResult(newImageID())
			continue
		}
		analyses[i] = r.Output
	}

	duration := time.Since(start)
	summary := summarize(batchID, analyses, len(catalog), duration)
	recordBatchMetrics(summary, duration)

	s.logger.Info("identification batch finished",
		zap.String("batchId", batchID),
		zap.Int("matched", summary.Matched),
		zap.Int("unmatched", summary.Unmatched),
		zap.Int("degraded", summary.Degraded),
		zap.Int("autoAssignable", summary.AutoAssignable),
		zap.Duration("duration", duration))

	s.publish(ctx, batchID, summary, analyses)

	return &BatchResult{
		Analyses:      analyses,
		TotalProducts: len(catalog),
		Summary:       summary,
	}, nil
}

// publish sends the batch event on a context detached from the request and
// bounded by publishTimeout. Failures are only logged.
func (s *IdentificationService) publish(ctx context.Context, batchID string, summary domain.BatchSummary, analyses []domain.ImageAnalysisResult) {
	if s.publisher == nil {
		return
	}

	publishCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), s.publishTimeout)
	defer cancel()

	if err := s.publisher.PublishBatchCompleted(publishCtx, summary, analyses); err != nil {
		s.logger.Warn("batch event publish failed", zap.String("batchId", batchID), zap.Error(err))
	}
}

func validateImageURLs(imageURLs []string) error {
	if len(imageURLs) == 0 {
		return fmt.Errorf("%w: %w", domain.ErrInvalidRequest, domain.ErrNoImages)
	}
	if len(imageURLs) > MaxImagesPerBatch {
		return fmt.Errorf("%w: %w: got %d, max %d",
			domain.ErrInvalidRequest, domain.ErrTooManyImages, len(imageURLs), MaxImagesPerBatch)
	}
	return nil
}

func summarize(batchID string, analyses []domain.ImageAnalysisResult, totalProducts int, d time.Duration) domain.BatchSummary {
	summary := domain.BatchSummary{
		BatchID:        batchID,
		TotalImages:    len(analyses),
		TotalProducts:  totalProducts,
		DurationMillis: d.Milliseconds(),
	}
	for _, a := range analyses {
		switch {
		case a.Degraded():
			summary.Degraded++
		case len(a.Matches) > 0:
			summary.Matched++
		default:
			summary.Unmatched++
		}
		if a.AutoAssignRecommended {
			summary.AutoAssignable++
		}
	}
	return summary
}

func recordBatchMetrics(summary domain.BatchSummary, d time.Duration) {
	metrics.BatchesTotal.WithLabelValues("success").Inc()
	metrics.BatchDuration.Observe(d.Seconds())
	metrics.ImagesTotal.WithLabelValues("matched").Add(float64(summary.Matched))
	metrics.ImagesTotal.WithLabelValues("unmatched").Add(float64(summary.Unmatched))
	metrics.ImagesTotal.WithLabelValues("degraded").Add(float64(summary.Degraded))
	metrics.AutoAssignTotal.Add(float64(summary.AutoAssignable))
}
