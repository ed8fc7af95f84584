package domain

import "errors"

var (
	// ErrInvalidRequest is returned when request parameters are invalid
	ErrInvalidRequest = errors.New("invalid request parameters")

	// ErrNoImages is returned when a batch contains no image URLs
	ErrNoImages = errors.New("at least one image URL is required")

	// ErrTooManyImages is returned when a batch exceeds MaxImagesPerBatch
	ErrTooManyImages = errors.New("too many image URLs in batch")

	// ErrEmptyCatalog is returned when the catalog has no products to match against
	ErrEmptyCatalog = errors.New("catalog contains no products")

	// ErrCatalogUnavailable is returned when the catalog cannot be read
	ErrCatalogUnavailable = errors.New("catalog unavailable")

	// ErrVisionNotConfigured is returned when the vision model credentials are missing
	ErrVisionNotConfigured = errors.New("vision model is not configured")

	// ErrVisionAPIFailure is returned when the vision model call fails
	ErrVisionAPIFailure = errors.New("vision model request failed")

	// ErrUnparsableReply is returned when the vision reply holds a JSON object that does not decode
	ErrUnparsableReply = errors.New("vision reply could not be parsed")

	// ErrImageFetchFailed is returned when an image cannot be downloaded
	ErrImageFetchFailed = errors.New("image fetch failed")

	// ErrImageTooLarge is returned when an image exceeds the configured size cap
	ErrImageTooLarge = errors.New("image exceeds maximum size")

	// ErrCacheMiss is returned when data is not found in cache
	ErrCacheMiss = errors.New("cache miss")

	// ErrCacheUnavailable is returned when cache service is unavailable
	ErrCacheUnavailable = errors.New("cache service unavailable")
)
