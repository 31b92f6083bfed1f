package badger

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/ternarybob/arbor"

	"github.com/quotienthq/quotient/internal/interfaces"
	"github.com/quotienthq/quotient/internal/models"
)

func TestProductStorageCreateGet(t *testing.T) {
	ctx := context.Background()
	storage := NewProductStorage(openTestStore(t), arbor.NewLogger())

	product := &models.Product{
		ID:       "prod-1",
		Name:     "Gutter guard installation",
		Unit:     "lf",
		UnitCost: 12.5,
	}
	require.NoError(t, storage.CreateProduct(ctx, product))
	assert.False(t, product.CreatedAt.IsZero())

	stored, err := storage.GetProduct(ctx, "prod-1")
	require.NoError(t, err)
	assert.Equal(t, "Gutter guard installation", stored.Name)
	assert.Equal(t, 12.5, stored.UnitCost)
}

func TestProductStorageCreateDuplicate(t *testing.T) {
	ctx := context.Background()
	storage := NewProductStorage(openTestStore(t), arbor.NewLogger())

	product := &models.Product{ID: "prod-1", Name: "A"}
	require.NoError(t, storage.CreateProduct(ctx, product))
	assert.Error(t, storage.CreateProduct(ctx, product))
}

func TestProductStorageUpdate(t *testing.T) {
	ctx := context.Background()
	storage := NewProductStorage(openTestStore(t), arbor.NewLogger())

	product := &models.Product{ID: "prod-1", Name: "A", UnitCost: 10}
	require.NoError(t, storage.CreateProduct(ctx, product))

	product.UnitCost = 12
	require.NoError(t, storage.UpdateProduct(ctx, product))

	stored, err := storage.GetProduct(ctx, "prod-1")
	require.NoError(t, err)
	assert.Equal(t, 12.0, stored.UnitCost)

	assert.ErrorIs(t, storage.UpdateProduct(ctx, &models.Product{ID: "ghost"}), interfaces.ErrProductNotFound)
}

func TestProductStorageGetMissing(t *testing.T) {
	storage := NewProductStorage(openTestStore(t), arbor.NewLogger())
	_, err := storage.GetProduct(context.Background(), "nope")
	assert.ErrorIs(t, err, interfaces.ErrProductNotFound)
}

func TestProductsMissingEmbedding(t *testing.T) {
	ctx := context.Background()
	storage := NewProductStorage(openTestStore(t), arbor.NewLogger())

	require.NoError(t, storage.CreateProduct(ctx, &models.Product{ID: "p1", Name: "No vector"}))
	require.NoError(t, storage.CreateProduct(ctx, &models.Product{ID: "p2", Name: "Has vector", Embedding: []float32{1, 0}}))

	missing, err := storage.ProductsMissingEmbedding(ctx, 10)
	require.NoError(t, err)
	require.Len(t, missing, 1)
	assert.Equal(t, "p1", missing[0].ID)
}

func TestFindByEmbeddingNeighborhood(t *testing.T) {
	ctx := context.Background()
	storage := NewProductStorage(openTestStore(t), arbor.NewLogger())

	require.NoError(t, storage.CreateProduct(ctx, &models.Product{ID: "exact", Name: "Exact", Embedding: []float32{1, 0}}))
	require.NoError(t, storage.CreateProduct(ctx, &models.Product{ID: "close", Name: "Close", Embedding: []float32{0.7, 0.7}}))
	require.NoError(t, storage.CreateProduct(ctx, &models.Product{ID: "far", Name: "Far", Embedding: []float32{0, 1}}))
	require.NoError(t, storage.CreateProduct(ctx, &models.Product{ID: "novec", Name: "No vector"}))

	matches, err := storage.FindByEmbeddingNeighborhood(ctx, []float32{1, 0}, 10)
	require.NoError(t, err)
	require.Len(t, matches, 3, "unembedded products never match")

	assert.Equal(t, "exact", matches[0].Product.ID)
	assert.InDelta(t, 1.0, matches[0].Score, 0.001)
	assert.Equal(t, "close", matches[1].Product.ID)
	assert.InDelta(t, 0.707, matches[1].Score, 0.01)
	assert.Equal(t, "far", matches[2].Product.ID)

	limited, err := storage.FindByEmbeddingNeighborhood(ctx, []float32{1, 0}, 2)
	require.NoError(t, err)
	assert.Len(t, limited, 2)
}

func TestFindByEmbeddingNeighborhoodRequiresVector(t *testing.T) {
	storage := NewProductStorage(openTestStore(t), arbor.NewLogger())
	_, err := storage.FindByEmbeddingNeighborhood(context.Background(), nil, 5)
	assert.Error(t, err)
}
