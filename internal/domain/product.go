package domain

// CatalogProduct is a read-only snapshot of one storefront product
type CatalogProduct struct {
	ID          string   `json:"id" yaml:"id"`
	Title       string   `json:"title" yaml:"title"`
	Handle      string   `json:"handle" yaml:"handle"`
	ProductType string   `json:"productType,omitempty" yaml:"productType"`
	Tags        []string `json:"tags,omitempty" yaml:"tags"`
	Description string   `json:"description,omitempty" yaml:"description"`
}

// VisualFeatures describes what the product looks like in the photo
type VisualFeatures struct {
	Colors        []string `json:"colors"`
	ContainerType string   `json:"containerType"`
	Size          string   `json:"size"`
}

// ExtractedAttributes is the vision model's best guess about a single photo
type ExtractedAttributes struct {
	ProductName    string         `json:"productName"`
	ScentName      string         `json:"scentName"`
	ProductType    string         `json:"productType"`
	VisualFeatures VisualFeatures `json:"visualFeatures"`
}

// EmptyExtraction returns the fallback used when nothing could be extracted.
// Colors is non-nil so it serializes as [].
func EmptyExtraction() ExtractedAttributes {
	return ExtractedAttributes{
		VisualFeatures: VisualFeatures{Colors: []string{}},
	}
}

// IsEmpty reports whether no attribute was extracted at all
func (e ExtractedAttributes) IsEmpty() bool {
	return e.ProductName == "" &&
		e.ScentName == "" &&
		e.ProductType == "" &&
		len(e.VisualFeatures.Colors) == 0 &&
		e.VisualFeatures.ContainerType == "" &&
		e.VisualFeatures.Size == ""
}

// MatchCandidate is one scored catalog product for a photo
type MatchCandidate struct {
	ProductID     string   `json:"productId"`
	ProductTitle  string   `json:"productTitle"`
	ProductHandle string   `json:"productHandle"`
	Confidence    int      `json:"confidence"` // 0-100, not a probability
	MatchReasons  []string `json:"matchReasons"`
}

// ImageAnalysisResult is one row of pipeline output. Degraded rows have an
// empty ImageURL and no matches.
type ImageAnalysisResult struct {
	ImageID               string              `json:"imageId"`
	ImageURL              string              `json:"imageUrl"`
	ExtractedInfo         ExtractedAttributes `json:"extractedInfo"`
	Matches               []MatchCandidate    `json:"matches"`
	AutoAssignRecommended bool                `json:"autoAssignRecommended"`
}

// Degraded reports whether the image could not be analyzed
func (r ImageAnalysisResult) Degraded() bool {
	return r.ImageURL == ""
}

// IdentifyRequest is the body accepted by the photo identification endpoint
type IdentifyRequest struct {
	ImageURLs []string `json:"imageUrls" binding:"required,min=1,max=10,dive,required"`
}

// IdentifyResponse is the body returned on success
type IdentifyResponse struct {
	Success       bool                  `json:"success"`
	Analyses      []ImageAnalysisResult `json:"analyses"`
	TotalProducts int                   `json:"totalProducts"`
}

// FetchedImage holds raw image bytes and the reported content type
type FetchedImage struct {
	Data        []byte
	ContentType string
}

// BatchSummary describes the outcome of one identification batch
type BatchSummary struct {
	BatchID        string `json:"batchId"`
	TotalImages    int    `json:"totalImages"`
	Matched        int    `json:"matched"`
	Unmatched      int    `json:"unmatched"`
	Degraded       int    `json:"degraded"`
	AutoAssignable int    `json:"autoAssignable"`
	TotalProducts  int    `json:"totalProducts"`
	DurationMillis int64  `json:"durationMs"`
}
