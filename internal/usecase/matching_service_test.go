package usecase

import (
	"slices"
	"testing"

	"github.com/shoplens/backend/internal/domain"
)

func newTestMatcher() *MatchingService {
	return NewMatchingService(nil, MatchConfig{})
}

func TestMatchProducts_ExactName(t *testing.T) {
	catalog := []domain.CatalogProduct{
		{ID: "1", Title: "Calm Down Girl Candle", Handle: "calm-down-girl-candle"},
	}
	extracted := domain.ExtractedAttributes{ProductName: "Calm Down Girl Candle"}

	matches := newTestMatcher().MatchProducts(extracted, catalog)

	if len(matches) != 1 {
		t.Fatalf("len(matches) = %d, want 1", len(matches))
	}
	top := matches[0]
	if top.Confidence != 50 {
		t.Errorf("Confidence = %d, want 50", top.Confidence)
	}
	if !slices.Contains(top.MatchReasons, "Exact product name match") {
		t.Errorf("MatchReasons = %v, want exact name reason", top.MatchReasons)
	}
	if top.ProductID != "1" || top.ProductHandle != "calm-down-girl-candle" || top.ProductTitle != "Calm Down Girl Candle" {
		t.Errorf("candidate fields not copied from product: %+v", top)
	}
}

func TestMatchProducts_TypoInName(t *testing.T) {
	catalog := []domain.CatalogProduct{
		{ID: "1", Title: "Calm Down Girl Candle"},
	}
	extracted := domain.ExtractedAttributes{ProductName: "Calm Dwn Girl Candl"}

	matches := newTestMatcher().MatchProducts(extracted, catalog)

	if len(matches) != 1 {
		t.Fatalf("len(matches) = %d, want 1", len(matches))
	}
	top := matches[0]
	if top.Confidence < 35 || top.Confidence >= 50 {
		t.Errorf("Confidence = %d, want in [35, 50)", top.Confidence)
	}
	if slices.Contains(top.MatchReasons, "Exact product name match") {
		t.Errorf("typo must not count as exact match: %v", top.MatchReasons)
	}
	if !slices.Contains(top.MatchReasons, "Strong name similarity (90%)") {
		t.Errorf("MatchReasons = %v, want strong similarity reason", top.MatchReasons)
	}
}

func TestMatchProducts_EmptyExtraction(t *testing.T) {
	catalog := []domain.CatalogProduct{
		{ID: "1", Title: "Calm Down Girl Candle", Tags: []string{"lavender"}, ProductType: "Candle", Description: "Soy wax in a jar"},
		{ID: "2", Title: "Ocean Breeze Wax Melt"},
	}

	matches := newTestMatcher().MatchProducts(domain.EmptyExtraction(), catalog)

	if matches == nil {
		t.Fatal("matches should be an empty slice, not nil")
	}
	if len(matches) != 0 {
		t.Errorf("len(matches) = %d, want 0: %+v", len(matches), matches)
	}
}

func TestMatchProducts_ExactOutranksWeakerTiers(t *testing.T) {
	catalog := []domain.CatalogProduct{
		{ID: "set", Title: "Calm Down Girl Candle Set"},
		{ID: "exact", Title: "Calm Down Girl Candle"},
		{ID: "mini", Title: "Calm Down Girl Mini"},
	}
	extracted := domain.ExtractedAttributes{ProductName: "Calm Down Girl Candle"}

	matches := newTestMatcher().MatchProducts(extracted, catalog)

	if len(matches) == 0 {
		t.Fatal("expected matches")
	}
	if matches[0].ProductID != "exact" {
		t.Errorf("top match = %s, want exact", matches[0].ProductID)
	}
	if matches[0].Confidence < 50 {
		t.Errorf("exact match confidence = %d, want >= 50", matches[0].Confidence)
	}
	for _, m := range matches[1:] {
		if m.Confidence >= matches[0].Confidence {
			t.Errorf("%s confidence %d should be below exact match %d", m.ProductID, m.Confidence, matches[0].Confidence)
		}
	}
}

func TestMatchProducts_TieBreakByCatalogOrder(t *testing.T) {
	catalog := []domain.CatalogProduct{
		{ID: "unrelated", Title: "Something Else Entirely"},
		{ID: "first", Title: "Vanilla Bean"},
		{ID: "second", Title: "Vanilla Bean"},
	}
	extracted := domain.ExtractedAttributes{ProductName: "Vanilla Bean"}

	matches := newTestMatcher().MatchProducts(extracted, catalog)

	if len(matches) != 2 {
		t.Fatalf("len(matches) = %d, want 2: %+v", len(matches), matches)
	}
	if matches[0].ProductID != "first" || matches[1].ProductID != "second" {
		t.Errorf("order = [%s %s], want [first second]", matches[0].ProductID, matches[1].ProductID)
	}
}

func TestMatchProducts_CapsAtThree(t *testing.T) {
	var catalog []domain.CatalogProduct
	for _, id := range []string{"a", "b", "c", "d", "e"} {
		catalog = append(catalog, domain.CatalogProduct{ID: id, Title: "Vanilla Bean"})
	}
	extracted := domain.ExtractedAttributes{ProductName: "Vanilla Bean"}

	matches := newTestMatcher().MatchProducts(extracted, catalog)

	if len(matches) != MaxMatchesPerImage {
		t.Fatalf("len(matches) = %d, want %d", len(matches), MaxMatchesPerImage)
	}
	for i, want := range []string{"a", "b", "c"} {
		if matches[i].ProductID != want {
			t.Errorf("matches[%d] = %s, want %s", i, matches[i].ProductID, want)
		}
	}
}

func TestMatchProducts_ScoringRules(t *testing.T) {
	tests := []struct {
		name        string
		extracted   domain.ExtractedAttributes
		product     domain.CatalogProduct
		wantScore   int
		wantReasons []string
	}{
		{
			name:      "scent in tag and title",
			extracted: domain.ExtractedAttributes{ScentName: "Lavender"},
			product:   domain.CatalogProduct{ID: "1", Title: "Lavender Dreams Candle", Tags: []string{"lavender", "soy"}},
			wantScore: 35,
			wantReasons: []string{
				"Scent matches tag: lavender",
				"Scent found in title",
			},
		},
		{
			name:        "exact product type",
			extracted:   domain.ExtractedAttributes{ProductType: "Candle"},
			product:     domain.CatalogProduct{ID: "1", Title: "Zzz", ProductType: "candle"},
			wantScore:   15,
			wantReasons: []string{"Product type match"},
		},
		{
			name:        "similar product type",
			extracted:   domain.ExtractedAttributes{ProductType: "wax melt"},
			product:     domain.CatalogProduct{ID: "1", Title: "Zzz", ProductType: "Wax Melts"},
			wantScore:   10,
			wantReasons: []string{"Similar product type"},
		},
		{
			name: "colors capped at five",
			extracted: domain.ExtractedAttributes{
				VisualFeatures: domain.VisualFeatures{Colors: []string{"red", "blue", "green"}},
			},
			product:     domain.CatalogProduct{ID: "1", Title: "Zzz", Description: "red blue green"},
			wantScore:   5,
			wantReasons: []string{"Color match: red, blue, green"},
		},
		{
			name: "color and container",
			extracted: domain.ExtractedAttributes{
				VisualFeatures: domain.VisualFeatures{Colors: []string{"amber", " "}, ContainerType: "Jar"},
			},
			product:     domain.CatalogProduct{ID: "1", Title: "Zzz", Description: "Poured into an amber glass jar"},
			wantScore:   7,
			wantReasons: []string{"Color match: amber", "Container type match"},
		},
		{
			name:        "description keywords",
			extracted:   domain.ExtractedAttributes{ProductName: "Autumn Harvest"},
			product:     domain.CatalogProduct{ID: "1", Title: "Zzz", Description: "A warm autumn harvest blend"},
			wantScore:   2,
			wantReasons: []string{"Description keyword matches: 2"},
		},
		{
			name: "everything stacks and clamps",
			extracted: domain.ExtractedAttributes{
				ProductName: "Calm Down Girl Candle",
				ScentName:   "Calm",
				ProductType: "Candle",
				VisualFeatures: domain.VisualFeatures{
					Colors:        []string{"purple", "white", "gold"},
					ContainerType: "jar",
				},
			},
			product: domain.CatalogProduct{
				ID:          "1",
				Title:       "Calm Down Girl Candle",
				Tags:        []string{"calm", "purple"},
				ProductType: "candle",
				Description: "Calm down girl candle, purple white gold jar",
			},
			wantScore: 100,
			wantReasons: []string{
				"Exact product name match",
				"Scent matches tag: calm",
				"Scent found in title",
				"Product type match",
				"Color match: purple, white, gold",
				"Container type match",
				"Description keyword matches: 4",
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			matches := newTestMatcher().MatchProducts(tt.extracted, []domain.CatalogProduct{tt.product})
			if len(matches) != 1 {
				t.Fatalf("len(matches) = %d, want 1", len(matches))
			}
			if matches[0].Confidence != tt.wantScore {
				t.Errorf("Confidence = %d, want %d (reasons %v)", matches[0].Confidence, tt.wantScore, matches[0].MatchReasons)
			}
			if !slices.Equal(matches[0].MatchReasons, tt.wantReasons) {
				t.Errorf("MatchReasons = %v, want %v", matches[0].MatchReasons, tt.wantReasons)
			}
		})
	}
}

func TestMatchProducts_Invariants(t *testing.T) {
	catalog := []domain.CatalogProduct{
		{ID: "1", Title: "Lavender Fields Candle", Tags: []string{"lavender"}, ProductType: "Candle", Description: "Purple wax in a glass jar"},
		{ID: "2", Title: "Lavender Wax Melt", Tags: []string{"lavender"}, ProductType: "Wax Melt"},
		{ID: "3", Title: "Ocean Breeze Room Spray", Tags: []string{"ocean"}, ProductType: "Room Spray", Description: "Blue bottle"},
		{ID: "4", Title: "Lavender Room Spray", Tags: []string{"lavender"}, ProductType: "Room Spray"},
		{ID: "5", Title: "Calm Lavender Candle", Tags: []string{"lavender", "calm"}, ProductType: "Candle"},
	}
	extractions := []domain.ExtractedAttributes{
		{ProductName: "Lavender Candle", ScentName: "Lavender", ProductType: "candle"},
		{ScentName: "lavendar", VisualFeatures: domain.VisualFeatures{Colors: []string{"purple"}, ContainerType: "jar"}},
		{ProductName: "Ocean Breeze", ProductType: "spray", VisualFeatures: domain.VisualFeatures{Colors: []string{"blue"}}},
		domain.EmptyExtraction(),
	}

	svc := newTestMatcher()
	for _, extracted := range extractions {
		matches := svc.MatchProducts(extracted, catalog)
		if len(matches) > MaxMatchesPerImage {
			t.Errorf("len(matches) = %d, exceeds cap", len(matches))
		}
		for i, m := range matches {
			if m.Confidence <= 0 || m.Confidence > 100 {
				t.Errorf("confidence %d out of (0, 100]", m.Confidence)
			}
			if i > 0 && m.Confidence > matches[i-1].Confidence {
				t.Errorf("matches not sorted: %d after %d", m.Confidence, matches[i-1].Confidence)
			}
		}
	}
}
