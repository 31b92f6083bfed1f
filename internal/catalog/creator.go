package catalog

import (
	"context"
	"fmt"
	"time"

	"github.com/ternarybob/arbor"

	"github.com/quotienthq/quotient/internal/common"
	"github.com/quotienthq/quotient/internal/interfaces"
	"github.com/quotienthq/quotient/internal/models"
)

// Creator turns reviewed draft items into catalog products. This is the
// explicit write step the matcher deliberately never takes.
type Creator struct {
	embedder interfaces.Embedder
	storage  interfaces.CatalogStorage
	logger   arbor.ILogger
}

func NewCreator(embedder interfaces.Embedder, storage interfaces.CatalogStorage, logger arbor.ILogger) *Creator {
	return &Creator{
		embedder: embedder,
		storage:  storage,
		logger:   logger,
	}
}

// CreateFromItem persists a new catalog product from a reviewed draft item,
// computing its embedding when the feature is available. A nil embedding is
// stored as-is; the backfill utility can fill it in later.
func (c *Creator) CreateFromItem(ctx context.Context, item *models.DraftLineItem) (*models.Product, error) {
	if item.Description == "" {
		return nil, fmt.Errorf("item description is required")
	}

	product := &models.Product{
		ID:          common.NewProductID(),
		Name:        item.Description,
		Description: item.Description,
		Unit:        item.Unit,
		UnitCost:    item.UnitCost,
		LaborHours:  item.LaborHours,
		CreatedAt:   time.Now().UTC(),
	}

	vector, err := c.embedder.Embed(ctx, product.EmbeddingText())
	if err != nil {
		return nil, fmt.Errorf("failed to embed product text: %w", err)
	}
	if vector != nil {
		product.Embedding = vector
		product.EmbeddingModel = c.embedder.ModelName()
	}

	if err := c.storage.CreateProduct(ctx, product); err != nil {
		return nil, err
	}

	c.logger.Info().
		Str("product_id", product.ID).
		Bool("embedded", len(product.Embedding) > 0).
		Msg("Created catalog product")

	return product, nil
}
