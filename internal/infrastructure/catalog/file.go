package catalog

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/shoplens/backend/internal/domain"
	"github.com/xuri/excelize/v2"
	"go.uber.org/zap"
	"gopkg.in/yaml.v3"
)

// FileRepository reads the catalog from an exported file. Supported formats
// are YAML, JSON and Excel (.xlsx). The file is re-read on every fetch.
type FileRepository struct {
	path   string
	logger *zap.Logger
}

// catalogFile is the document shape for YAML and JSON exports
type catalogFile struct {
	Products []domain.CatalogProduct `json:"products" yaml:"products"`
}

// NewFileRepository creates a file-backed catalog repository
func NewFileRepository(path string, logger *zap.Logger) (*FileRepository, error) {
	if strings.TrimSpace(path) == "" {
		return nil, fmt.Errorf("catalog file path is required")
	}
	switch strings.ToLower(filepath.Ext(path)) {
	case ".yaml", ".yml", ".json", ".xlsx":
	default:
		return nil, fmt.Errorf("unsupported catalog file type: %s", filepath.Ext(path))
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &FileRepository{
		path:   path,
		logger: logger.With(zap.String("component", "catalog")),
	}, nil
}

// FetchCatalog reads and decodes the catalog file
func (r *FileRepository) FetchCatalog(ctx context.Context) ([]domain.CatalogProduct, error) {
	var (
		products []domain.CatalogProduct
		err      error
	)

	switch strings.ToLower(filepath.Ext(r.path)) {
	case ".xlsx":
		products, err = readSpreadsheet(r.path)
	case ".json":
		products, err = readDocument(r.path, json.Unmarshal)
	default:
		products, err = readDocument(r.path, yaml.Unmarshal)
	}
	if err != nil {
		return nil, fmt.Errorf("%w: %v", domain.ErrCatalogUnavailable, err)
	}

	r.logger.Debug("catalog loaded from file", zap.String("path", r.path), zap.Int("products", len(products)))
	return products, nil
}

func readDocument(path string, unmarshal func([]byte, any) error) ([]domain.CatalogProduct, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read %s: %w", path, err)
	}

	// A bare list of products is accepted as well as {products: [...]}
	var doc catalogFile
	if err := unmarshal(data, &doc); err != nil {
		var list []domain.CatalogProduct
		if listErr := unmarshal(data, &list); listErr != nil {
			return nil, fmt.Errorf("decode %s: %w", path, err)
		}
		return list, nil
	}
	return doc.Products, nil
}

// spreadsheet column names, matched case-insensitively against the header
// row with spaces read as underscores
var columnAliases = map[string]string{
	"id":           "id",
	"product_id":   "id",
	"title":        "title",
	"name":         "title",
	"handle":       "handle",
	"slug":         "handle",
	"product_type": "productType",
	"producttype":  "productType",
	"type":         "productType",
	"tags":         "tags",
	"description":  "description",
}

// readSpreadsheet reads the first sheet; row 1 is the header. Tags are a
// comma-separated list in a single cell.
func readSpreadsheet(path string) ([]domain.CatalogProduct, error) {
	xlsx, err := excelize.OpenFile(path)
	if err != nil {
		return nil, fmt.Errorf("open %s: %w", path, err)
	}
	defer xlsx.Close()

	sheets := xlsx.GetSheetList()
	if len(sheets) == 0 {
		return nil, fmt.Errorf("%s has no sheets", path)
	}

	rows, err := xlsx.GetRows(sheets[0])
	if err != nil {
		return nil, fmt.Errorf("read sheet %s: %w", sheets[0], err)
	}
	if len(rows) == 0 {
		return nil, nil
	}

	columns := make(map[string]int)
	for i, header := range rows[0] {
		key := strings.ReplaceAll(strings.ToLower(strings.TrimSpace(header)), " ", "_")
		if field, ok := columnAliases[key]; ok {
			if _, seen := columns[field]; !seen {
				columns[field] = i
			}
		}
	}
	if _, ok := columns["title"]; !ok {
		return nil, fmt.Errorf("%s: header row has no title column", path)
	}

	cell := func(row []string, field string) string {
		i, ok := columns[field]
		if !ok || i >= len(row) {
			return ""
		}
		return strings.TrimSpace(row[i])
	}

	var products []domain.CatalogProduct
	for _, row := range rows[1:] {
		title := cell(row, "title")
		if title == "" {
			continue
		}
		products = append(products, domain.CatalogProduct{
			ID:          cell(row, "id"),
			Title:       title,
			Handle:      cell(row, "handle"),
			ProductType: cell(row, "productType"),
			Tags:        splitTags(cell(row, "tags")),
			Description: cell(row, "description"),
		})
	}
	return products, nil
}

func splitTags(s string) []string {
	if s == "" {
		return nil
	}
	var tags []string
	for _, tag := range strings.Split(s, ",") {
		if tag = strings.TrimSpace(tag); tag != "" {
			tags = append(tags, tag)
		}
	}
	return tags
}
