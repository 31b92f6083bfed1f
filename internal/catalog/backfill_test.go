package catalog

import (
	"context"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/ternarybob/arbor"

	"github.com/quotienthq/quotient/internal/models"
)

// memCatalog is an in-memory CatalogStorage for backfill and creator tests.
type memCatalog struct {
	mu       sync.Mutex
	products map[string]*models.Product
}

func newMemCatalog() *memCatalog {
	return &memCatalog{products: map[string]*models.Product{}}
}

func (m *memCatalog) CreateProduct(ctx context.Context, product *models.Product) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	copied := *product
	m.products[product.ID] = &copied
	return nil
}

func (m *memCatalog) GetProduct(ctx context.Context, productID string) (*models.Product, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	p, ok := m.products[productID]
	if !ok {
		return nil, nil
	}
	copied := *p
	return &copied, nil
}

func (m *memCatalog) UpdateProduct(ctx context.Context, product *models.Product) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	copied := *product
	m.products[product.ID] = &copied
	return nil
}

func (m *memCatalog) ListProducts(ctx context.Context, limit, offset int) ([]*models.Product, error) {
	return nil, nil
}

func (m *memCatalog) ProductsMissingEmbedding(ctx context.Context, limit int) ([]*models.Product, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []*models.Product
	for _, p := range m.products {
		if len(p.Embedding) == 0 {
			copied := *p
			out = append(out, &copied)
			if limit > 0 && len(out) >= limit {
				break
			}
		}
	}
	return out, nil
}

func (m *memCatalog) FindByEmbeddingNeighborhood(ctx context.Context, embedding []float32, limit int) ([]models.ProductMatch, error) {
	return nil, nil
}

func TestBackfillEmbedsMissingVectors(t *testing.T) {
	storage := newMemCatalog()
	storage.products["p1"] = &models.Product{ID: "p1", Name: "Gutter cleaning"}
	storage.products["p2"] = &models.Product{ID: "p2", Name: "Deck staining"}
	storage.products["p3"] = &models.Product{ID: "p3", Name: "Already embedded", Embedding: []float32{1}}

	embedder := &stubEmbedder{enabled: true, vectors: map[string][]float32{
		"Gutter cleaning": {0.1, 0.2},
		"Deck staining":   {0.3, 0.4},
	}}

	backfiller := NewBackfiller(embedder, storage, arbor.NewLogger())
	embedded, skipped, err := backfiller.Run(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 2, embedded)
	assert.Equal(t, 0, skipped)

	p1, _ := storage.GetProduct(context.Background(), "p1")
	assert.Equal(t, []float32{0.1, 0.2}, p1.Embedding)
	assert.Equal(t, "stub-embed", p1.EmbeddingModel)
}

func TestBackfillStopsWithoutProgress(t *testing.T) {
	storage := newMemCatalog()
	storage.products["p1"] = &models.Product{ID: "p1", Name: "No vector available"}

	// Enabled embedder that degrades every call to (nil, nil).
	embedder := &stubEmbedder{enabled: true, vectors: map[string][]float32{}}

	backfiller := NewBackfiller(embedder, storage, arbor.NewLogger())
	embedded, skipped, err := backfiller.Run(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 0, embedded)
	assert.Equal(t, 1, skipped)
}

func TestBackfillRequiresEmbeddings(t *testing.T) {
	backfiller := NewBackfiller(&stubEmbedder{enabled: false}, newMemCatalog(), arbor.NewLogger())
	_, _, err := backfiller.Run(context.Background())
	assert.Error(t, err)
}

func TestCreateFromItem(t *testing.T) {
	storage := newMemCatalog()
	embedder := &stubEmbedder{enabled: true, vectors: map[string][]float32{
		"Install drip edge\nInstall drip edge": {0.5, 0.5},
	}}
	creator := NewCreator(embedder, storage, arbor.NewLogger())

	item := &models.DraftLineItem{Description: "Install drip edge", Quantity: 120, Unit: "lf", UnitCost: 3.5, Total: 420}
	product, err := creator.CreateFromItem(context.Background(), item)
	require.NoError(t, err)

	assert.NotEmpty(t, product.ID)
	assert.Equal(t, "Install drip edge", product.Name)
	assert.Equal(t, "lf", product.Unit)
	assert.Equal(t, 3.5, product.UnitCost)
	assert.Equal(t, []float32{0.5, 0.5}, product.Embedding)

	stored, _ := storage.GetProduct(context.Background(), product.ID)
	require.NotNil(t, stored)
}

func TestCreateFromItemWithoutEmbedding(t *testing.T) {
	storage := newMemCatalog()
	creator := NewCreator(&stubEmbedder{enabled: false}, storage, arbor.NewLogger())

	item := &models.DraftLineItem{Description: "Haul away debris", Quantity: 1, Unit: "job", UnitCost: 150, Total: 150}
	product, err := creator.CreateFromItem(context.Background(), item)
	require.NoError(t, err)
	assert.Empty(t, product.Embedding, "product is stored without a vector for later backfill")
}

func TestCreateFromItemRequiresDescription(t *testing.T) {
	creator := NewCreator(&stubEmbedder{enabled: true}, newMemCatalog(), arbor.NewLogger())
	_, err := creator.CreateFromItem(context.Background(), &models.DraftLineItem{})
	assert.Error(t, err)
}
