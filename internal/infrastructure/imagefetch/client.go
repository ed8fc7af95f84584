package imagefetch

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/shoplens/backend/internal/domain"
	"go.uber.org/zap"
)

// DefaultMaxBytes caps the size of a downloaded image
const DefaultMaxBytes int64 = 10 << 20

// Client downloads product photos over HTTP
type Client struct {
	httpClient *http.Client
	maxBytes   int64
	logger     *zap.Logger
}

// NewClient creates a new image fetch client
func NewClient(maxBytes int64, logger *zap.Logger) *Client {
	if maxBytes <= 0 {
		maxBytes = DefaultMaxBytes
	}
	if logger == nil {
		logger = zap.NewNop()
	}

	return &Client{
		httpClient: &http.Client{
			Timeout: 30 * time.Second,
		},
		maxBytes: maxBytes,
		logger:   logger.With(zap.String("component", "imagefetch")),
	}
}

// Fetch downloads the image at imageURL. Non-2xx responses and bodies larger
// than the configured cap are errors.
func (c *Client) Fetch(ctx context.Context, imageURL string) (*domain.FetchedImage, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, imageURL, nil)
	if err != nil {
		return nil, fmt.Errorf("%w: failed to create request: %v", domain.ErrImageFetchFailed, err)
	}
	req.Header.Set("User-Agent", "ShopLens/1.0")
	req.Header.Set("Accept", "image/*")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", domain.ErrImageFetchFailed, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		// Drain a little of the body so the connection can be reused
		_, _ = io.CopyN(io.Discard, resp.Body, 4<<10)
		return nil, fmt.Errorf("%w: status %d", domain.ErrImageFetchFailed, resp.StatusCode)
	}

	data, err := io.ReadAll(io.LimitReader(resp.Body, c.maxBytes+1))
	if err != nil {
		return nil, fmt.Errorf("%w: reading body: %v", domain.ErrImageFetchFailed, err)
	}
	if int64(len(data)) > c.maxBytes {
		return nil, fmt.Errorf("%w: more than %d bytes", domain.ErrImageTooLarge, c.maxBytes)
	}
	if len(data) == 0 {
		return nil, fmt.Errorf("%w: empty body", domain.ErrImageFetchFailed)
	}

	c.logger.Debug("image fetched",
		zap.Int("bytes", len(data)),
		zap.String("contentType", resp.Header.Get("Content-Type")))

	return &domain.FetchedImage{
		Data:        data,
		ContentType: resp.Header.Get("Content-Type"),
	}, nil
}
