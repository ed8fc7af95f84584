package usecase

import (
	"cmp"
	"fmt"
	"slices"
	"strings"

	"github.com/shoplens/backend/internal/domain"
	"go.uber.org/zap"
)

// MaxMatchesPerImage caps how many candidates are returned for one photo
const MaxMatchesPerImage = 3

// Name scoring tiers. Only the highest applicable tier counts.
const (
	exactNameBonus        = 50
	strongNameBonus       = 35
	partialNameBonus      = 20
	nameInTitleBonus      = 15
	strongNameSimilarity  = 80
	partialNameSimilarity = 60
	nameInTitleThreshold  = 75
)

// Scent, type and visual bonuses
const (
	scentTagBonus         = 20
	scentTitleBonus       = 15
	scentThreshold        = 85
	exactTypeBonus        = 15
	similarTypeBonus      = 10
	similarTypeThreshold  = 70
	colorMatchPoints      = 2
	maxColorBonus         = 5
	colorThreshold        = 85
	containerBonus        = 5
	containerThreshold    = 80
	maxKeywordBonus       = 5
	minKeywordLength      = 4
	maxConfidence         = 100
	exactNameMatchReason  = "Exact product name match"
	containerMatchReason  = "Container type match"
	productTypeExactMatch = "Product type match"
)

// MatchConfig holds configuration for the matching service
type MatchConfig struct {
	EnableDebugLogging bool
}

// MatchingService scores extracted photo attributes against catalog products
type MatchingService struct {
	logger             *zap.Logger
	enableDebugLogging bool
}

// NewMatchingService creates a new matching service with the given configuration
func NewMatchingService(logger *zap.Logger, config MatchConfig) *MatchingService {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &MatchingService{
		logger:             logger.With(zap.String("component", "match")),
		enableDebugLogging: config.EnableDebugLogging,
	}
}

type scoredProduct struct {
	index     int
	candidate domain.MatchCandidate
}

// MatchProducts returns at most MaxMatchesPerImage candidates for the extracted
// attributes, ordered by confidence descending and then by catalog position.
// Products with no supporting evidence are left out.
func (s *MatchingService) MatchProducts(extracted domain.ExtractedAttributes, catalog []domain.CatalogProduct) []domain.MatchCandidate {
	features := newExtractedFeatures(extracted)

	scored := make([]scoredProduct, 0, len(catalog))
	for i, product := range catalog {
		score, reasons := scoreProduct(features, product)
		score = clampConfidence(score)

		if s.enableDebugLogging {
			s.logger.Debug("scored product",
				zap.String("productId", product.ID),
				zap.String("title", product.Title),
				zap.Int("score", score),
				zap.Strings("reasons", reasons))
		}

		if score == 0 {
			continue
		}
		scored = append(scored, scoredProduct{
			index: i,
			candidate: domain.MatchCandidate{
				ProductID:     product.ID,
				ProductTitle:  product.Title,
				ProductHandle: product.Handle,
				Confidence:    score,
				MatchReasons:  reasons,
			},
		})
	}

	slices.SortFunc(scored, func(a, b scoredProduct) int {
		if c := cmp.Compare(b.candidate.Confidence, a.candidate.Confidence); c != 0 {
			return c
		}
		return cmp.Compare(a.index, b.index)
	})

	if len(scored) > MaxMatchesPerImage {
		scored = scored[:MaxMatchesPerImage]
	}

	matches := make([]domain.MatchCandidate, len(scored))
	for i, sp := range scored {
		matches[i] = sp.candidate
	}
	return matches
}

// extractedFeatures caches the normalized forms of one extraction so they are
// computed once per photo rather than once per product.
type extractedFeatures struct {
	name          string
	scent         string
	productType   string
	nameKeywords  []string
	colors        []string
	containerType string
}

func newExtractedFeatures(e domain.ExtractedAttributes) extractedFeatures {
	f := extractedFeatures{
		name:          Normalize(e.ProductName),
		scent:         Normalize(e.ScentName),
		productType:   Normalize(e.ProductType),
		containerType: strings.TrimSpace(e.VisualFeatures.ContainerType),
	}
	for _, word := range strings.Fields(f.name) {
		if len(word) >= minKeywordLength {
			f.nameKeywords = append(f.nameKeywords, word)
		}
	}
	for _, color := range e.VisualFeatures.Colors {
		if strings.TrimSpace(color) != "" {
			f.colors = append(f.colors, color)
		}
	}
	return f
}

// scoreProduct applies every scoring rule in order and returns the raw score
// and one reason per rule that fired.
func scoreProduct(f extractedFeatures, product domain.CatalogProduct) (int, []string) {
	score := 0
	reasons := []string{}
	add := func(points int, reason string) {
		score += points
		reasons = append(reasons, reason)
	}

	title := Normalize(product.Title)

	// 1. Name tiers
	if f.name != "" {
		switch sim := Similarity(title, f.name); {
		case title == f.name:
			add(exactNameBonus, exactNameMatchReason)
		case sim >= strongNameSimilarity:
			add(strongNameBonus, fmt.Sprintf("Strong name similarity (%d%%)", sim))
		case sim >= partialNameSimilarity:
			add(partialNameBonus, fmt.Sprintf("Partial name similarity (%d%%)", sim))
		case FuzzyContains(title, f.name, nameInTitleThreshold):
			add(nameInTitleBonus, "Product name found in title")
		}
	}

	// 2. Scent
	if f.scent != "" {
		for _, tag := range product.Tags {
			if Normalize(tag) == f.scent || FuzzyContains(tag, f.scent, scentThreshold) {
				add(scentTagBonus, fmt.Sprintf("Scent matches tag: %s", tag))
				break
			}
		}
		if FuzzyContains(title, f.scent, scentThreshold) {
			add(scentTitleBonus, "Scent found in title")
		}
	}

	// 3. Product type
	if f.productType != "" {
		productType := Normalize(product.ProductType)
		if productType == f.productType {
			add(exactTypeBonus, productTypeExactMatch)
		} else if productType != "" && Similarity(f.productType, productType) >= similarTypeThreshold {
			add(similarTypeBonus, "Similar product type")
		}
	}

	// 4. Visual features
	searchable := searchableText(product)
	if len(f.colors) > 0 {
		var found []string
		for _, color := range f.colors {
			if FuzzyContains(searchable, color, colorThreshold) {
				found = append(found, color)
			}
		}
		if len(found) > 0 {
			add(min(maxColorBonus, len(found)*colorMatchPoints),
				fmt.Sprintf("Color match: %s", strings.Join(found, ", ")))
		}
	}
	if f.containerType != "" && FuzzyContains(searchable, f.containerType, containerThreshold) {
		add(containerBonus, containerMatchReason)
	}

	// 5. Description keywords
	if description := Normalize(product.Description); description != "" && len(f.nameKeywords) > 0 {
		matched := 0
		for _, keyword := range f.nameKeywords {
			if strings.Contains(description, keyword) {
				matched++
			}
		}
		if matched > 0 {
			add(min(maxKeywordBonus, matched), fmt.Sprintf("Description keyword matches: %d", matched))
		}
	}

	return score, reasons
}

// searchableText concatenates the product fields visual features are checked against
func searchableText(product domain.CatalogProduct) string {
	parts := make([]string, 0, len(product.Tags)+2)
	parts = append(parts, product.Title)
	parts = append(parts, product.Tags...)
	parts = append(parts, product.Description)
	return strings.Join(parts, " ")
}

func clampConfidence(score int) int {
	if score < 0 {
		return 0
	}
	if score > maxConfidence {
		return maxConfidence
	}
	return score
}
