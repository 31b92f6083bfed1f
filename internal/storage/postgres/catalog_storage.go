package postgres

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/pgvector/pgvector-go"
	"github.com/ternarybob/arbor"

	"github.com/quotienthq/quotient/internal/interfaces"
	"github.com/quotienthq/quotient/internal/models"
)

// CatalogStorage implements the CatalogStorage interface on Postgres with
// the pgvector extension. Similarity search runs in the database using the
// cosine distance operator.
type CatalogStorage struct {
	pool   *pgxpool.Pool
	logger arbor.ILogger
}

// NewCatalogStorage connects to Postgres and ensures the schema exists.
func NewCatalogStorage(ctx context.Context, logger arbor.ILogger, connString string) (*CatalogStorage, error) {
	pool, err := pgxpool.New(ctx, connString)
	if err != nil {
		return nil, fmt.Errorf("failed to create connection pool: %w", err)
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("failed to connect to postgres: %w", err)
	}

	s := &CatalogStorage{pool: pool, logger: logger}
	if err := s.ensureSchema(ctx); err != nil {
		pool.Close()
		return nil, err
	}

	logger.Debug().Msg("Postgres catalog storage initialized")
	return s, nil
}

func (s *CatalogStorage) ensureSchema(ctx context.Context) error {
	statements := []string{
		`CREATE EXTENSION IF NOT EXISTS vector`,
		`CREATE TABLE IF NOT EXISTS products (
			id TEXT PRIMARY KEY,
			name TEXT NOT NULL,
			description TEXT NOT NULL DEFAULT '',
			unit TEXT NOT NULL DEFAULT 'each',
			unit_cost DOUBLE PRECISION NOT NULL DEFAULT 0,
			labor_hours DOUBLE PRECISION NOT NULL DEFAULT 0,
			embedding vector,
			embedding_model TEXT NOT NULL DEFAULT '',
			created_at TIMESTAMPTZ NOT NULL,
			updated_at TIMESTAMPTZ NOT NULL
		)`,
	}
	for _, stmt := range statements {
		if _, err := s.pool.Exec(ctx, stmt); err != nil {
			return fmt.Errorf("failed to ensure schema: %w", err)
		}
	}
	return nil
}

// embeddingParam renders a vector as its pgvector text form so queries can
// cast it with ::vector and skip pgx type registration.
func embeddingParam(v []float32) interface{} {
	if len(v) == 0 {
		return nil
	}
	return pgvector.NewVector(v).String()
}

func (s *CatalogStorage) CreateProduct(ctx context.Context, product *models.Product) error {
	if product.ID == "" {
		return fmt.Errorf("product ID is required")
	}
	now := time.Now().UTC()
	if product.CreatedAt.IsZero() {
		product.CreatedAt = now
	}
	product.UpdatedAt = now

	_, err := s.pool.Exec(ctx, `
		INSERT INTO products (id, name, description, unit, unit_cost, labor_hours, embedding, embedding_model, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7::vector, $8, $9, $10)`,
		product.ID, product.Name, product.Description, product.Unit,
		product.UnitCost, product.LaborHours, embeddingParam(product.Embedding),
		product.EmbeddingModel, product.CreatedAt, product.UpdatedAt)
	if err != nil {
		return fmt.Errorf("failed to create product: %w", err)
	}
	return nil
}

func (s *CatalogStorage) GetProduct(ctx context.Context, productID string) (*models.Product, error) {
	row := s.pool.QueryRow(ctx, `
		SELECT id, name, description, unit, unit_cost, labor_hours,
		       COALESCE(embedding::text, ''), embedding_model, created_at, updated_at
		FROM products WHERE id = $1`, productID)

	product, err := scanProduct(row)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, interfaces.ErrProductNotFound
		}
		return nil, fmt.Errorf("failed to get product: %w", err)
	}
	return product, nil
}

func (s *CatalogStorage) UpdateProduct(ctx context.Context, product *models.Product) error {
	if product.ID == "" {
		return fmt.Errorf("product ID is required")
	}
	product.UpdatedAt = time.Now().UTC()

	tag, err := s.pool.Exec(ctx, `
		UPDATE products
		SET name = $2, description = $3, unit = $4, unit_cost = $5, labor_hours = $6,
		    embedding = $7::vector, embedding_model = $8, updated_at = $9
		WHERE id = $1`,
		product.ID, product.Name, product.Description, product.Unit,
		product.UnitCost, product.LaborHours, embeddingParam(product.Embedding),
		product.EmbeddingModel, product.UpdatedAt)
	if err != nil {
		return fmt.Errorf("failed to update product: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return interfaces.ErrProductNotFound
	}
	return nil
}

func (s *CatalogStorage) ListProducts(ctx context.Context, limit, offset int) ([]*models.Product, error) {
	if limit <= 0 {
		limit = 100
	}
	rows, err := s.pool.Query(ctx, `
		SELECT id, name, description, unit, unit_cost, labor_hours,
		       COALESCE(embedding::text, ''), embedding_model, created_at, updated_at
		FROM products ORDER BY created_at DESC LIMIT $1 OFFSET $2`, limit, offset)
	if err != nil {
		return nil, fmt.Errorf("failed to list products: %w", err)
	}
	defer rows.Close()

	return collectProducts(rows)
}

func (s *CatalogStorage) ProductsMissingEmbedding(ctx context.Context, limit int) ([]*models.Product, error) {
	if limit <= 0 {
		limit = 100
	}
	rows, err := s.pool.Query(ctx, `
		SELECT id, name, description, unit, unit_cost, labor_hours,
		       '', embedding_model, created_at, updated_at
		FROM products WHERE embedding IS NULL ORDER BY created_at LIMIT $1`, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to query products missing embeddings: %w", err)
	}
	defer rows.Close()

	return collectProducts(rows)
}

func (s *CatalogStorage) FindByEmbeddingNeighborhood(ctx context.Context, embedding []float32, limit int) ([]models.ProductMatch, error) {
	if len(embedding) == 0 {
		return nil, fmt.Errorf("embedding is required")
	}
	if limit <= 0 {
		limit = 10
	}

	rows, err := s.pool.Query(ctx, `
		SELECT id, name, description, unit, unit_cost, labor_hours,
		       COALESCE(embedding::text, ''), embedding_model, created_at, updated_at,
		       1 - (embedding <=> $1::vector) AS score
		FROM products
		WHERE embedding IS NOT NULL
		ORDER BY embedding <=> $1::vector
		LIMIT $2`,
		pgvector.NewVector(embedding).String(), limit)
	if err != nil {
		return nil, fmt.Errorf("failed to run similarity search: %w", err)
	}
	defer rows.Close()

	var matches []models.ProductMatch
	for rows.Next() {
		var p models.Product
		var embeddingText string
		var score float64
		err := rows.Scan(&p.ID, &p.Name, &p.Description, &p.Unit, &p.UnitCost,
			&p.LaborHours, &embeddingText, &p.EmbeddingModel, &p.CreatedAt, &p.UpdatedAt, &score)
		if err != nil {
			return nil, fmt.Errorf("failed to scan match row: %w", err)
		}
		p.Embedding = parseVectorText(embeddingText)
		if score < 0 {
			score = 0
		}
		matches = append(matches, models.ProductMatch{Product: &p, Score: score})
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to read match rows: %w", err)
	}
	return matches, nil
}

// Close releases the connection pool.
func (s *CatalogStorage) Close() error {
	s.pool.Close()
	return nil
}

type rowScanner interface {
	Scan(dest ...interface{}) error
}

func scanProduct(row rowScanner) (*models.Product, error) {
	var p models.Product
	var embeddingText string
	err := row.Scan(&p.ID, &p.Name, &p.Description, &p.Unit, &p.UnitCost,
		&p.LaborHours, &embeddingText, &p.EmbeddingModel, &p.CreatedAt, &p.UpdatedAt)
	if err != nil {
		return nil, err
	}
	p.Embedding = parseVectorText(embeddingText)
	return &p, nil
}

func collectProducts(rows pgx.Rows) ([]*models.Product, error) {
	var products []*models.Product
	for rows.Next() {
		p, err := scanProduct(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan product row: %w", err)
		}
		products = append(products, p)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to read product rows: %w", err)
	}
	return products, nil
}

// parseVectorText decodes the pgvector text form "[0.1,0.2,...]".
func parseVectorText(text string) []float32 {
	if text == "" {
		return nil
	}
	var v pgvector.Vector
	if err := v.Parse(text); err != nil {
		return nil
	}
	return v.Slice()
}
