package catalog

import (
	"context"
	"fmt"
	"sync"

	"github.com/ternarybob/arbor"

	"github.com/quotienthq/quotient/internal/interfaces"
	"github.com/quotienthq/quotient/internal/models"
)

// Default similarity thresholds. At or above hard the item reuses the
// existing product; between soft and hard it is surfaced for review.
const (
	DefaultHardThreshold = 0.85
	DefaultSoftThreshold = 0.60
)

// tieEpsilon bounds the score gap within which candidates are considered
// tied with the best match. Tied candidates are all returned rather than
// arbitrarily picking one.
const tieEpsilon = 0.005

// neighborhoodLimit caps how many nearest neighbors one match consults.
const neighborhoodLimit = 5

// defaultMatchConcurrency bounds parallel matching within one batch. Matching
// is read-only against the catalog so items can safely run in parallel.
const defaultMatchConcurrency = 4

// Matcher classifies draft line items against the existing catalog. It never
// writes to the catalog; creation is an explicit separate step.
type Matcher struct {
	embedder    interfaces.Embedder
	storage     interfaces.CatalogStorage
	logger      arbor.ILogger
	concurrency int
}

func NewMatcher(embedder interfaces.Embedder, storage interfaces.CatalogStorage, logger arbor.ILogger) *Matcher {
	return &Matcher{
		embedder:    embedder,
		storage:     storage,
		logger:      logger,
		concurrency: defaultMatchConcurrency,
	}
}

// resolveThresholds applies defaults and keeps soft below hard.
func resolveThresholds(opts models.MatchOptions) (hard, soft float64) {
	hard = opts.HardThreshold
	if hard <= 0 || hard > 1 {
		hard = DefaultHardThreshold
	}
	soft = opts.SoftThreshold
	if soft <= 0 || soft > 1 {
		soft = DefaultSoftThreshold
	}
	if soft > hard {
		soft = hard
	}
	return hard, soft
}

// matchText is the text embedded for similarity comparison.
func matchText(item *models.DraftLineItem) string {
	return item.Description
}

// UpsertOrMatch classifies one item. Embeddings being disabled or failing
// degrades the item to "new" with a nil score; only infrastructure errors
// (catalog unreachable, context cancelled) produce kind "error".
func (m *Matcher) UpsertOrMatch(ctx context.Context, item *models.DraftLineItem, opts models.MatchOptions) *models.CatalogMatchResult {
	hard, soft := resolveThresholds(opts)

	vector, err := m.embedder.Embed(ctx, matchText(item))
	if err != nil {
		return &models.CatalogMatchResult{
			Kind:  models.MatchKindError,
			Error: fmt.Sprintf("embedding failed: %v", err),
		}
	}
	if vector == nil {
		return &models.CatalogMatchResult{Kind: models.MatchKindNew}
	}

	neighbors, err := m.storage.FindByEmbeddingNeighborhood(ctx, vector, neighborhoodLimit)
	if err != nil {
		return &models.CatalogMatchResult{
			Kind:  models.MatchKindError,
			Error: fmt.Sprintf("similarity search failed: %v", err),
		}
	}

	if len(neighbors) == 0 {
		return &models.CatalogMatchResult{Kind: models.MatchKindNew}
	}

	best := neighbors[0]
	score := best.Score
	candidates := tiedCandidates(neighbors)

	switch {
	case score >= hard:
		return &models.CatalogMatchResult{
			Kind:        models.MatchKindMatch,
			ProductID:   best.Product.ID,
			MatchedName: best.Product.Name,
			Score:       &score,
			Matches:     candidates,
		}
	case score >= soft:
		return &models.CatalogMatchResult{
			Kind:    models.MatchKindNear,
			Score:   &score,
			Matches: rankedCandidates(neighbors),
		}
	default:
		return &models.CatalogMatchResult{
			Kind:  models.MatchKindNew,
			Score: &score,
		}
	}
}

// tiedCandidates returns every neighbor within tieEpsilon of the top score.
func tiedCandidates(neighbors []models.ProductMatch) []models.MatchCandidate {
	if len(neighbors) == 0 {
		return nil
	}
	top := neighbors[0].Score
	var out []models.MatchCandidate
	for _, n := range neighbors {
		if top-n.Score > tieEpsilon {
			break
		}
		out = append(out, models.MatchCandidate{
			ID:    n.Product.ID,
			Name:  n.Product.Name,
			Score: n.Score,
		})
	}
	return out
}

// rankedCandidates returns all neighbors as candidates, ranked by score
// descending, for caller-side disambiguation of near matches.
func rankedCandidates(neighbors []models.ProductMatch) []models.MatchCandidate {
	out := make([]models.MatchCandidate, 0, len(neighbors))
	for _, n := range neighbors {
		out = append(out, models.MatchCandidate{
			ID:    n.Product.ID,
			Name:  n.Product.Name,
			Score: n.Score,
		})
	}
	return out
}

// MatchAll classifies a batch. Items run in parallel up to the matcher's
// concurrency bound; one item erroring never aborts the rest. Output order
// follows input order.
func (m *Matcher) MatchAll(ctx context.Context, items []models.DraftLineItem, opts models.MatchOptions) []models.AnnotatedItem {
	annotated := make([]models.AnnotatedItem, len(items))

	sem := make(chan struct{}, m.concurrency)
	var wg sync.WaitGroup
	for i := range items {
		wg.Add(1)
		sem <- struct{}{}
		go func(idx int) {
			defer wg.Done()
			defer func() { <-sem }()

			result := m.UpsertOrMatch(ctx, &items[idx], opts)
			annotated[idx] = models.AnnotatedItem{
				DraftLineItem: items[idx],
				CatalogStatus: result.Kind,
				Match:         result,
			}
		}(i)
	}
	wg.Wait()

	return annotated
}
