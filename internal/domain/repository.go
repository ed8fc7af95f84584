package domain

import (
	"context"
	"time"
)

// CacheRepository defines the interface for caching operations.
// Values are stored as JSON bytes so memory and redis behave the same.
type CacheRepository interface {
	Get(ctx context.Context, key string) ([]byte, error)
	Set(ctx context.Context, key string, value []byte, ttl time.Duration) error
	Delete(ctx context.Context, key string) error
	Exists(ctx context.Context, key string) (bool, error)
}

// CatalogRepository reads the product catalog owned by the persistence layer
type CatalogRepository interface {
	FetchCatalog(ctx context.Context) ([]CatalogProduct, error)
}

// VisionClient sends one image and an instruction to an external vision model
// and returns the model's free-text reply.
type VisionClient interface {
	Describe(ctx context.Context, image []byte, mediaType, prompt string) (string, error)
}

// ImageFetcher downloads a photo by URL
type ImageFetcher interface {
	Fetch(ctx context.Context, imageURL string) (*FetchedImage, error)
}

// EventPublisher announces finished identification batches to downstream consumers
type EventPublisher interface {
	PublishBatchCompleted(ctx context.Context, summary BatchSummary, results []ImageAnalysisResult) error
}
