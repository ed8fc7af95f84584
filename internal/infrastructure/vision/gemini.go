package vision

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/shoplens/backend/internal/domain"
	"go.uber.org/zap"
	"google.golang.org/genai"
)

// DefaultModel is used when no model is configured
const DefaultModel = "gemini-2.5-flash"

// Config holds Gemini client configuration
type Config struct {
	APIKey string
	Model  string

	// BaseURL overrides the Gemini API base URL. Useful for proxies/testing.
	BaseURL string
}

// GeminiClient describes product photos with a Gemini vision model
type GeminiClient struct {
	client *genai.Client
	model  string
	logger *zap.Logger
}

// NewGeminiClient creates a Gemini-backed vision client. A missing API key
// returns domain.ErrVisionNotConfigured.
func NewGeminiClient(ctx context.Context, cfg Config, logger *zap.Logger) (*GeminiClient, error) {
	if strings.TrimSpace(cfg.APIKey) == "" {
		return nil, domain.ErrVisionNotConfigured
	}
	model := strings.TrimSpace(cfg.Model)
	if model == "" {
		model = DefaultModel
	}
	if logger == nil {
		logger = zap.NewNop()
	}

	cc := &genai.ClientConfig{
		APIKey:  strings.TrimSpace(cfg.APIKey),
		Backend: genai.BackendGeminiAPI,
	}
	if strings.TrimSpace(cfg.BaseURL) != "" {
		cc.HTTPOptions.BaseURL = strings.TrimSpace(cfg.BaseURL)
	}

	client, err := genai.NewClient(ctx, cc)
	if err != nil {
		return nil, fmt.Errorf("gemini: create client: %w", err)
	}

	return &GeminiClient{
		client: client,
		model:  model,
		logger: logger.With(zap.String("component", "vision"), zap.String("model", model)),
	}, nil
}

var extractionSchema = &genai.Schema{
	Type: genai.TypeObject,
	Properties: map[string]*genai.Schema{
		"productName": {Type: genai.TypeString},
		"scentName":   {Type: genai.TypeString},
		"productType": {Type: genai.TypeString},
		"visualFeatures": {
			Type: genai.TypeObject,
			Properties: map[string]*genai.Schema{
				"colors":        {Type: genai.TypeArray, Items: &genai.Schema{Type: genai.TypeString}},
				"containerType": {Type: genai.TypeString},
				"size":          {Type: genai.TypeString},
			},
		},
	},
	Required: []string{"productName", "scentName", "productType", "visualFeatures"},
}

// Describe sends the image inline together with the prompt and returns the
// model's text reply.
func (g *GeminiClient) Describe(ctx context.Context, image []byte, mediaType, prompt string) (string, error) {
	if len(image) == 0 {
		return "", errors.New("gemini: empty image")
	}

	contents := []*genai.Content{
		genai.NewContentFromParts([]*genai.Part{
			genai.NewPartFromBytes(image, mediaType),
			genai.NewPartFromText(prompt),
		}, genai.RoleUser),
	}

	resp, err := g.client.Models.GenerateContent(ctx, g.model, contents, &genai.GenerateContentConfig{
		Temperature:      genai.Ptr[float32](0),
		CandidateCount:   1,
		ResponseMIMEType: "application/json",
		ResponseSchema:   extractionSchema,
	})
	if err != nil {
		return "", classifyErr(err)
	}

	text := resp.Text()
	if strings.TrimSpace(text) == "" {
		return "", errors.New("gemini: empty response")
	}

	g.logger.Debug("vision reply received", zap.Int("chars", len(text)), zap.String("mediaType", mediaType))
	return text, nil
}

// classifyErr labels provider failures so logs show whether the vision API
// rejected the request or was unavailable.
func classifyErr(err error) error {
	var apiErr genai.APIError
	if errors.As(err, &apiErr) {
		switch {
		case apiErr.Code == 401 || apiErr.Code == 403:
			return fmt.Errorf("gemini: credentials rejected (%d): %w", apiErr.Code, err)
		case apiErr.Code == 429:
			return fmt.Errorf("gemini: quota exceeded: %w", err)
		case apiErr.Code/100 == 5:
			return fmt.Errorf("gemini: service unavailable (%d): %w", apiErr.Code, err)
		}
	}
	return fmt.Errorf("gemini: %w", err)
}
