package catalog

import (
	"context"
	"fmt"

	"github.com/ternarybob/arbor"

	"github.com/quotienthq/quotient/internal/interfaces"
)

// backfillBatchSize bounds one pass of the backfill scan.
const backfillBatchSize = 100

// Backfiller computes embeddings for catalog entries that have none, used to
// bootstrap similarity search after a data import.
type Backfiller struct {
	embedder interfaces.Embedder
	storage  interfaces.CatalogStorage
	logger   arbor.ILogger
}

func NewBackfiller(embedder interfaces.Embedder, storage interfaces.CatalogStorage, logger arbor.ILogger) *Backfiller {
	return &Backfiller{
		embedder: embedder,
		storage:  storage,
		logger:   logger,
	}
}

// Run embeds every product missing a vector. Returns the count embedded and
// the count skipped (empty text or degraded embedding call). Stops early if
// the context is cancelled or the embedding feature is unavailable.
func (b *Backfiller) Run(ctx context.Context) (embedded, skipped int, err error) {
	if !b.embedder.IsEnabled() {
		return 0, 0, fmt.Errorf("embedding feature is disabled")
	}

	for {
		products, err := b.storage.ProductsMissingEmbedding(ctx, backfillBatchSize)
		if err != nil {
			return embedded, skipped, fmt.Errorf("failed to scan for missing embeddings: %w", err)
		}
		if len(products) == 0 {
			return embedded, skipped, nil
		}

		progress := false
		for _, product := range products {
			if ctx.Err() != nil {
				return embedded, skipped, ctx.Err()
			}

			vector, err := b.embedder.Embed(ctx, product.EmbeddingText())
			if err != nil {
				return embedded, skipped, err
			}
			if vector == nil {
				skipped++
				continue
			}

			product.Embedding = vector
			product.EmbeddingModel = b.embedder.ModelName()
			if err := b.storage.UpdateProduct(ctx, product); err != nil {
				return embedded, skipped, fmt.Errorf("failed to persist embedding for %s: %w", product.ID, err)
			}
			embedded++
			progress = true
		}

		// A full batch of skips would loop forever: the same products come
		// back on the next scan.
		if !progress {
			b.logger.Warn().Int("skipped", skipped).Msg("Backfill made no progress, stopping")
			return embedded, skipped, nil
		}
	}
}
