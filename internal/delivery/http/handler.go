package http

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"reflect"
	"strconv"

	"github.com/gin-gonic/gin"
	"github.com/go-playground/validator/v10"
	"github.com/shoplens/backend/internal/domain"
	"github.com/shoplens/backend/internal/usecase"
	"go.uber.org/zap"
)

// maxRequestBodyBytes caps the identify request body. Ten URLs fit easily.
const maxRequestBodyBytes = 1 << 20

// PhotoIdentifier runs identification batches
type PhotoIdentifier interface {
	RunBatch(ctx context.Context, imageURLs []string) (*usecase.BatchResult, error)
}

// CatalogInspector reports on and refreshes the catalog snapshot
type CatalogInspector interface {
	Stats(ctx context.Context) (*usecase.CatalogStats, error)
	Invalidate(ctx context.Context) error
}

// Handler holds dependencies for HTTP handlers
type Handler struct {
	identifier PhotoIdentifier
	catalog    CatalogInspector
	logger     *zap.Logger
}

// NewHandler creates a new HTTP handler. A nil identifier or catalog makes
// the matching endpoints answer 503.
func NewHandler(identifier PhotoIdentifier, catalog CatalogInspector, logger *zap.Logger) *Handler {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Handler{
		identifier: identifier,
		catalog:    catalog,
		logger:     logger.With(zap.String("component", "http")),
	}
}

// HealthCheck returns the health status of the API
func (h *Handler) HealthCheck(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"status":  "healthy",
		"service": "shoplens-backend",
		"version": "1.0.0",
	})
}

// IdentifyPhotos runs the photo identification pipeline over a batch of image URLs
func (h *Handler) IdentifyPhotos(c *gin.Context) {
	if h.identifier == nil {
		respondError(c, http.StatusServiceUnavailable, "photo identification is not available")
		return
	}

	c.Request.Body = http.MaxBytesReader(c.Writer, c.Request.Body, maxRequestBodyBytes)

	var req domain.IdentifyRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondError(c, http.StatusBadRequest, bindingErrorMessage(err))
		return
	}

	result, err := h.identifier.RunBatch(c.Request.Context(), req.ImageURLs)
	if err != nil {
		status, message := errorStatus(err)
		if status >= http.StatusInternalServerError {
			h.logger.Error("photo identification failed", zap.Error(err))
		}
		respondError(c, status, message)
		return
	}

	c.JSON(http.StatusOK, domain.IdentifyResponse{
		Success:       true,
		Analyses:      result.Analyses,
		TotalProducts: result.TotalProducts,
	})
}

// CatalogStats reports the size of the catalog snapshot.
// ?refresh=true drops the cached snapshot first.
func (h *Handler) CatalogStats(c *gin.Context) {
	if h.catalog == nil {
		respondError(c, http.StatusServiceUnavailable, "catalog is not available")
		return
	}

	if refresh, _ := strconv.ParseBool(c.Query("refresh")); refresh {
		if err := h.catalog.Invalidate(c.Request.Context()); err != nil {
			h.logger.Warn("catalog cache invalidation failed", zap.Error(err))
		}
	}

	stats, err := h.catalog.Stats(c.Request.Context())
	if err != nil {
		status, message := errorStatus(err)
		if status >= http.StatusInternalServerError {
			h.logger.Error("catalog stats failed", zap.Error(err))
		}
		respondError(c, status, message)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"success": true,
		"stats":   stats,
	})
}

func respondError(c *gin.Context, status int, message string) {
	c.JSON(status, gin.H{
		"success": false,
		"error":   message,
	})
}

// errorStatus maps domain errors to an HTTP status and a client-safe message
func errorStatus(err error) (int, string) {
	switch {
	case errors.Is(err, domain.ErrNoImages):
		return http.StatusBadRequest, domain.ErrNoImages.Error()
	case errors.Is(err, domain.ErrTooManyImages):
		return http.StatusBadRequest, fmt.Sprintf("at most %d image URLs are allowed per request", usecase.MaxImagesPerBatch)
	case errors.Is(err, domain.ErrInvalidRequest):
		return http.StatusBadRequest, domain.ErrInvalidRequest.Error()
	case errors.Is(err, domain.ErrEmptyCatalog):
		return http.StatusBadRequest, "no products found in catalog"
	case errors.Is(err, domain.ErrCatalogUnavailable):
		return http.StatusInternalServerError, "failed to load product catalog"
	case errors.Is(err, domain.ErrVisionNotConfigured):
		return http.StatusInternalServerError, "vision model is not configured"
	default:
		return http.StatusInternalServerError, "internal server error"
	}
}

// bindingErrorMessage turns a gin binding error into a client-facing message
func bindingErrorMessage(err error) string {
	var maxBytesErr *http.MaxBytesError
	if errors.As(err, &maxBytesErr) {
		return "request body too large"
	}

	var validationErrs validator.ValidationErrors
	if !errors.As(err, &validationErrs) || len(validationErrs) == 0 {
		return "invalid request body"
	}

	// IdentifyRequest has a single field, so messages can name it directly
	fe := validationErrs[0]
	switch fe.Tag() {
	case "required":
		if fe.Kind() == reflect.String {
			return "imageUrls must not contain empty URLs"
		}
		return "imageUrls is required"
	case "min":
		return domain.ErrNoImages.Error()
	case "max":
		return fmt.Sprintf("at most %s image URLs are allowed per request", fe.Param())
	default:
		return "imageUrls is invalid"
	}
}
