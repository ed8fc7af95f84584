package catalog

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/shoplens/backend/internal/domain"
	"go.uber.org/zap"
)

// DefaultTable is the products table read when none is configured
const DefaultTable = "products"

// querier is the subset of *pgxpool.Pool the repository needs
type querier interface {
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
}

// PostgresRepository reads the storefront catalog from Postgres
type PostgresRepository struct {
	db     querier
	pool   *pgxpool.Pool
	query  string
	logger *zap.Logger
}

// NewPostgresRepository connects to databaseURL and verifies the connection
func NewPostgresRepository(ctx context.Context, databaseURL, table string, logger *zap.Logger) (*PostgresRepository, error) {
	if strings.TrimSpace(databaseURL) == "" {
		return nil, fmt.Errorf("database URL is required for the postgres catalog")
	}

	pool, err := pgxpool.New(ctx, databaseURL)
	if err != nil {
		return nil, fmt.Errorf("failed to create connection pool: %w", err)
	}

	pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if err := pool.Ping(pingCtx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("failed to connect to catalog database: %w", err)
	}

	repo := newPostgresRepository(pool, table, logger)
	repo.pool = pool
	return repo, nil
}

func newPostgresRepository(db querier, table string, logger *zap.Logger) *PostgresRepository {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &PostgresRepository{
		db:     db,
		query:  buildCatalogQuery(table),
		logger: logger.With(zap.String("component", "catalog")),
	}
}

// buildCatalogQuery selects every product in a stable order so match
// tie-breaks are reproducible between runs.
func buildCatalogQuery(table string) string {
	if strings.TrimSpace(table) == "" {
		table = DefaultTable
	}
	ident := pgx.Identifier(strings.Split(strings.TrimSpace(table), "."))
	return fmt.Sprintf(`SELECT id::text, title, handle,
	COALESCE(product_type, ''), COALESCE(tags, '{}'::text[]), COALESCE(description, '')
FROM %s
ORDER BY id`, ident.Sanitize())
}

// FetchCatalog returns every product in the catalog
func (r *PostgresRepository) FetchCatalog(ctx context.Context) ([]domain.CatalogProduct, error) {
	rows, err := r.db.Query(ctx, r.query)
	if err != nil {
		return nil, fmt.Errorf("%w: query products: %v", domain.ErrCatalogUnavailable, err)
	}
	defer rows.Close()

	var products []domain.CatalogProduct
	for rows.Next() {
		var p domain.CatalogProduct
		if err := rows.Scan(&p.ID, &p.Title, &p.Handle, &p.ProductType, &p.Tags, &p.Description); err != nil {
			return nil, fmt.Errorf("%w: scan product: %v", domain.ErrCatalogUnavailable, err)
		}
		products = append(products, p)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("%w: iterate products: %v", domain.ErrCatalogUnavailable, err)
	}

	r.logger.Debug("catalog loaded from postgres", zap.Int("products", len(products)))
	return products, nil
}

// Close releases the connection pool
func (r *PostgresRepository) Close() {
	if r.pool != nil {
		r.pool.Close()
	}
}
