package badger

import (
	"context"
	"fmt"
	"sort"
	"time"

	"github.com/ternarybob/arbor"
	"github.com/timshannon/badgerhold/v4"

	"github.com/quotienthq/quotient/internal/interfaces"
	"github.com/quotienthq/quotient/internal/models"
)

// ProductStorage implements the CatalogStorage interface for Badger.
// Similarity search is a brute-force scan, which is fine for the catalog
// sizes a single contractor carries. Larger catalogs use the Postgres
// backend with pgvector.
type ProductStorage struct {
	db     *BadgerDB
	logger arbor.ILogger
}

// NewProductStorage creates a new ProductStorage instance.
func NewProductStorage(db *BadgerDB, logger arbor.ILogger) interfaces.CatalogStorage {
	return &ProductStorage{
		db:     db,
		logger: logger,
	}
}

func (s *ProductStorage) CreateProduct(ctx context.Context, product *models.Product) error {
	if product.ID == "" {
		return fmt.Errorf("product ID is required")
	}
	now := time.Now().UTC()
	if product.CreatedAt.IsZero() {
		product.CreatedAt = now
	}
	product.UpdatedAt = now

	if err := s.db.Store().Insert(product.ID, product); err != nil {
		if err == badgerhold.ErrKeyExists {
			return fmt.Errorf("product %s already exists", product.ID)
		}
		return fmt.Errorf("failed to create product: %w", err)
	}
	return nil
}

func (s *ProductStorage) GetProduct(ctx context.Context, productID string) (*models.Product, error) {
	var product models.Product
	if err := s.db.Store().Get(productID, &product); err != nil {
		if err == badgerhold.ErrNotFound {
			return nil, interfaces.ErrProductNotFound
		}
		return nil, fmt.Errorf("failed to get product: %w", err)
	}
	return &product, nil
}

func (s *ProductStorage) UpdateProduct(ctx context.Context, product *models.Product) error {
	if product.ID == "" {
		return fmt.Errorf("product ID is required")
	}
	product.UpdatedAt = time.Now().UTC()

	err := s.db.Store().Update(product.ID, product)
	if err == badgerhold.ErrNotFound {
		return interfaces.ErrProductNotFound
	}
	if err != nil {
		return fmt.Errorf("failed to update product: %w", err)
	}
	return nil
}

func (s *ProductStorage) ListProducts(ctx context.Context, limit, offset int) ([]*models.Product, error) {
	query := badgerhold.Where("ID").Ne("").SortBy("CreatedAt").Reverse()
	if limit > 0 {
		query = query.Limit(limit)
	}
	if offset > 0 {
		query = query.Skip(offset)
	}

	var products []models.Product
	if err := s.db.Store().Find(&products, query); err != nil {
		return nil, fmt.Errorf("failed to list products: %w", err)
	}

	result := make([]*models.Product, len(products))
	for i := range products {
		result[i] = &products[i]
	}
	return result, nil
}

func (s *ProductStorage) ProductsMissingEmbedding(ctx context.Context, limit int) ([]*models.Product, error) {
	var products []models.Product
	if err := s.db.Store().Find(&products, nil); err != nil {
		return nil, fmt.Errorf("failed to scan products: %w", err)
	}

	var result []*models.Product
	for i := range products {
		if len(products[i].Embedding) == 0 {
			result = append(result, &products[i])
			if limit > 0 && len(result) >= limit {
				break
			}
		}
	}
	return result, nil
}

func (s *ProductStorage) FindByEmbeddingNeighborhood(ctx context.Context, embedding []float32, limit int) ([]models.ProductMatch, error) {
	if len(embedding) == 0 {
		return nil, fmt.Errorf("embedding is required")
	}

	var products []models.Product
	if err := s.db.Store().Find(&products, nil); err != nil {
		return nil, fmt.Errorf("failed to scan products: %w", err)
	}

	var matches []models.ProductMatch
	for i := range products {
		if len(products[i].Embedding) == 0 {
			continue
		}
		score := models.CosineSimilarity(embedding, products[i].Embedding)
		matches = append(matches, models.ProductMatch{
			Product: &products[i],
			Score:   score,
		})
	}

	sort.SliceStable(matches, func(a, b int) bool {
		return matches[a].Score > matches[b].Score
	})

	if limit > 0 && len(matches) > limit {
		matches = matches[:limit]
	}
	return matches, nil
}
