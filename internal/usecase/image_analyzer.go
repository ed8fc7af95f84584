package usecase

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/shoplens/backend/internal/domain"
	"github.com/shoplens/backend/internal/infrastructure/metrics"
	"github.com/shoplens/backend/internal/infrastructure/redact"
	"go.uber.org/zap"
)

// AutoAssignThreshold is the top confidence a match must exceed before the
// pipeline recommends assigning the photo without review.
const AutoAssignThreshold = 90

// errNoJSONObject marks a model reply without any '{'. Such replies fall
// back to the empty extraction instead of degrading the image.
var errNoJSONObject = errors.New("reply contains no JSON object")

// ExtractionPrompt is the fixed instruction sent with every photo
const ExtractionPrompt = `You are analyzing a product photo for an online store that sells candles, wax melts, room sprays and similar home fragrance products.

Identify the product in the photo and return ONLY a JSON object with exactly this shape:
{
  "productName": "the product name as printed on the label, or your best guess",
  "scentName": "the scent or fragrance name if visible",
  "productType": "the kind of product, e.g. candle, wax melt, room spray",
  "visualFeatures": {
    "colors": ["dominant colors of the product and its packaging"],
    "containerType": "e.g. jar, tin, bottle, box",
    "size": "size or volume if visible, e.g. 8 oz"
  }
}

Rules:
- Use an empty string for anything you cannot determine and an empty array for colors if unsure.
- Do not include extra keys or any text outside the JSON object.`

// ImageAnalyzerConfig holds configuration for the image analyzer
type ImageAnalyzerConfig struct {
	FetchTimeout  time.Duration
	VisionTimeout time.Duration
}

// ImageAnalyzer runs the fetch -> vision -> match steps for a single photo
type ImageAnalyzer struct {
	fetcher       domain.ImageFetcher
	vision        domain.VisionClient
	matcher       *MatchingService
	logger        *zap.Logger
	fetchTimeout  time.Duration
	visionTimeout time.Duration
	newImageID    func() string
}

// NewImageAnalyzer creates a new image analyzer with dependencies
func NewImageAnalyzer(
	fetcher domain.ImageFetcher,
	vision domain.VisionClient,
	matcher *MatchingService,
	logger *zap.Logger,
	config ImageAnalyzerConfig,
) *ImageAnalyzer {
	if logger == nil {
		logger = zap.NewNop()
	}

	fetchTimeout := config.FetchTimeout
	if fetchTimeout <= 0 {
		fetchTimeout = 15 * time.Second
	}
	visionTimeout := config.VisionTimeout
	if visionTimeout <= 0 {
		visionTimeout = 60 * time.Second
	}

	return &ImageAnalyzer{
		fetcher:       fetcher,
		vision:        vision,
		matcher:       matcher,
		logger:        logger.With(zap.String("component", "analyzer")),
		fetchTimeout:  fetchTimeout,
		visionTimeout: visionTimeout,
		newImageID:    newImageID,
	}
}

// AnalyzeImage identifies the product in one photo. It never returns an error:
// fetch, vision and reply decoding failures produce a degraded result with an empty ImageURL
// and no matches.
func (a *ImageAnalyzer) AnalyzeImage(ctx context.Context, imageURL string, catalog []domain.CatalogProduct) domain.ImageAnalysisResult {
	imageID := a.newImageID()

	extracted, err := a.extract(ctx, imageURL)
	if err != nil {
		a.logger.Warn("image analysis failed",
			zap.String("imageId", imageID),
			zap.String("imageUrl", imageURL),
			zap.String("error", redact.Secrets(err.Error())))
		return degradedResult(imageID)
	}

	matches := a.matcher.MatchProducts(extracted, catalog)
	autoAssign := len(matches) > 0 && matches[0].Confidence > AutoAssignThreshold

	a.logger.Debug("image analyzed",
		zap.String("imageId", imageID),
		zap.String("productName", extracted.ProductName),
		zap.Int("matches", len(matches)),
		zap.Bool("autoAssign", autoAssign))

	return domain.ImageAnalysisResult{
		ImageID:               imageID,
		ImageURL:              imageURL,
		ExtractedInfo:         extracted,
		Matches:               matches,
		AutoAssignRecommended: autoAssign,
	}
}

// extract downloads the image and asks the vision model about it.
// A reply with no JSON object yields EmptyExtraction; one whose object does
// not decode is an error.
func (a *ImageAnalyzer) extract(ctx context.Context, imageURL string) (domain.ExtractedAttributes, error) {
	fetchCtx, cancel := context.WithTimeout(ctx, a.fetchTimeout)
	image, err := a.fetcher.Fetch(fetchCtx, imageURL)
	cancel()
	if err != nil {
		return domain.EmptyExtraction(), err
	}

	mediaType := detectMediaType(image.ContentType, imageURL, image.Data)

	visionCtx, cancel := context.WithTimeout(ctx, a.visionTimeout)
	start := time.Now()
	reply, err := a.vision.Describe(visionCtx, image.Data, mediaType, ExtractionPrompt)
	cancel()
	metrics.ObserveVisionCall(time.Since(start), err)
	if err != nil {
		return domain.EmptyExtraction(), fmt.Errorf("%w: %v", domain.ErrVisionAPIFailure, err)
	}

	extracted, err := ParseExtraction(reply)
	if errors.Is(err, errNoJSONObject) {
		a.logger.Info("vision reply had no JSON object", zap.String("imageUrl", imageURL))
		return extracted, nil
	}
	return extracted, err
}

// ParseExtraction decodes the first JSON object in a model reply, ignoring
// any prose or markdown fences around it. A reply without an object returns
// errNoJSONObject; an object that does not decode returns an error wrapping
// domain.ErrUnparsableReply. Both return the empty extraction.
func ParseExtraction(reply string) (domain.ExtractedAttributes, error) {
	start := strings.IndexByte(reply, '{')
	if start < 0 {
		return domain.EmptyExtraction(), errNoJSONObject
	}

	var parsed domain.ExtractedAttributes
	if err := json.NewDecoder(strings.NewReader(reply[start:])).Decode(&parsed); err != nil {
		return domain.EmptyExtraction(), fmt.Errorf("%w: %v", domain.ErrUnparsableReply, err)
	}

	return sanitizeExtraction(parsed), nil
}

func sanitizeExtraction(e domain.ExtractedAttributes) domain.ExtractedAttributes {
	colors := make([]string, 0, len(e.VisualFeatures.Colors))
	for _, c := range e.VisualFeatures.Colors {
		if c = strings.TrimSpace(c); c != "" {
			colors = append(colors, c)
		}
	}
	return domain.ExtractedAttributes{
		ProductName: strings.TrimSpace(e.ProductName),
		ScentName:   strings.TrimSpace(e.ScentName),
		ProductType: strings.TrimSpace(e.ProductType),
		VisualFeatures: domain.VisualFeatures{
			Colors:        colors,
			ContainerType: strings.TrimSpace(e.VisualFeatures.ContainerType),
			Size:          strings.TrimSpace(e.VisualFeatures.Size),
		},
	}
}

func degradedResult(imageID string) domain.ImageAnalysisResult {
	return domain.ImageAnalysisResult{
		ImageID:               imageID,
		ImageURL:              "",
		ExtractedInfo:         domain.EmptyExtraction(),
		Matches:               []domain.MatchCandidate{},
		AutoAssignRecommended: false,
	}
}

// newImageID returns a time-ordered id with a random suffix (UUIDv7)
func newImageID() string {
	id, err := uuid.NewV7()
	if err != nil {
		id = uuid.New()
	}
	return "img_" + id.String()
}

// Configured reports whether a vision client is wired in
func (a *ImageAnalyzer) Configured() bool {
	return a != nil && a.vision != nil
}
