package llm

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"sync/atomic"

	"github.com/ternarybob/arbor"
	"google.golang.org/genai"

	"github.com/quotienthq/quotient/internal/interfaces"
)

type embedderState struct {
	settings *EmbeddingSettings
	client   *genai.Client
}

// GeminiEmbedder implements the embedding adapter on Gemini. The pacer
// spaces outbound calls process-wide; callers share one instance.
type GeminiEmbedder struct {
	resolver *Resolver
	pacer    Pacer
	logger   arbor.ILogger
	state    atomic.Pointer[embedderState]
	initMu   sync.Mutex
}

func NewGeminiEmbedder(resolver *Resolver, pacer Pacer, logger arbor.ILogger) *GeminiEmbedder {
	return &GeminiEmbedder{
		resolver: resolver,
		pacer:    pacer,
		logger:   logger,
	}
}

func (e *GeminiEmbedder) ProviderName() string {
	return ProviderGemini
}

func (e *GeminiEmbedder) ModelName() string {
	if state := e.state.Load(); state != nil && state.settings.Model != "" {
		return state.settings.Model
	}
	return DefaultEmbeddingModel
}

// IsEnabled reports the similarity feature flag. Missing credentials also
// disable the adapter so callers degrade instead of erroring.
func (e *GeminiEmbedder) IsEnabled() bool {
	state, err := e.snapshot(context.Background())
	if err != nil {
		return false
	}
	return state.settings.Enabled
}

func (e *GeminiEmbedder) Reinitialize(ctx context.Context) error {
	state, err := e.buildState(ctx)
	if err != nil {
		return err
	}
	e.state.Store(state)
	return nil
}

func (e *GeminiEmbedder) buildState(ctx context.Context) (*embedderState, error) {
	embeddingSettings, err := e.resolver.ResolveEmbedding(ctx)
	if err != nil {
		return nil, err
	}

	state := &embedderState{settings: embeddingSettings}
	if !embeddingSettings.Enabled {
		return state, nil
	}

	client, err := genai.NewClient(ctx, &genai.ClientConfig{
		APIKey:  embeddingSettings.APIKey,
		Backend: genai.BackendGeminiAPI,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create embedding client: %w", err)
	}
	state.client = client
	return state, nil
}

func (e *GeminiEmbedder) snapshot(ctx context.Context) (*embedderState, error) {
	if state := e.state.Load(); state != nil {
		return state, nil
	}

	e.initMu.Lock()
	defer e.initMu.Unlock()

	if state := e.state.Load(); state != nil {
		return state, nil
	}

	state, err := e.buildState(ctx)
	if err != nil {
		return nil, err
	}
	e.state.Store(state)
	return state, nil
}

// Embed returns the vector for a text, reduced to the configured target
// dimensionality. Returns (nil, nil) when the feature is disabled, no
// credential resolves, or the backend fails unrecoverably, so one bad
// embedding degrades a single item rather than aborting the batch.
func (e *GeminiEmbedder) Embed(ctx context.Context, text string) ([]float32, error) {
	if strings.TrimSpace(text) == "" {
		return nil, nil
	}

	state, err := e.snapshot(ctx)
	if err != nil {
		if errors.Is(err, interfaces.ErrNotConfigured) {
			e.logger.Warn().Msg("Embedding credential not configured, degrading to no similarity")
			return nil, nil
		}
		e.logger.Warn().Err(err).Msg("Embedding adapter unavailable")
		return nil, nil
	}
	if !state.settings.Enabled {
		return nil, nil
	}

	if err := e.pacer.Wait(ctx); err != nil {
		return nil, err
	}

	vector, err := e.embedOnce(ctx, state, state.settings.Model, text)
	if err != nil && IsModelNotFoundError(err) && state.settings.Model != DefaultEmbeddingModel {
		// Stored configuration can outlive a retired model name. Retry once
		// against the known-good default before degrading.
		e.logger.Warn().
			Str("model", state.settings.Model).
			Str("fallback", DefaultEmbeddingModel).
			Msg("Configured embedding model not found, retrying with default")
		vector, err = e.embedOnce(ctx, state, DefaultEmbeddingModel, text)
	}
	if err != nil {
		if ctx.Err() != nil {
			return nil, ctx.Err()
		}
		e.logger.Warn().Err(err).Msg("Embedding call failed, degrading to no similarity")
		return nil, nil
	}

	return ReduceDimensions(vector, state.settings.Dimension), nil
}

func (e *GeminiEmbedder) embedOnce(ctx context.Context, state *embedderState, model, text string) ([]float32, error) {
	contents := []*genai.Content{
		genai.NewContentFromText(text, genai.RoleUser),
	}

	result, err := state.client.Models.EmbedContent(ctx, model, contents, nil)
	if err != nil {
		return nil, err
	}
	if len(result.Embeddings) == 0 || len(result.Embeddings[0].Values) == 0 {
		return nil, fmt.Errorf("empty embedding result from model %s", model)
	}
	return result.Embeddings[0].Values, nil
}

// ReduceDimensions shrinks a vector to the target length by uniform-stride
// subsampling, picking index floor(i*len/target) for each output slot. This
// preserves coverage across the whole vector instead of only its prefix.
// Vectors at or below the target length are returned unchanged; short
// vectors are never padded.
func ReduceDimensions(vector []float32, target int) []float32 {
	if target <= 0 || len(vector) <= target {
		return vector
	}

	reduced := make([]float32, target)
	for i := 0; i < target; i++ {
		reduced[i] = vector[i*len(vector)/target]
	}
	return reduced
}
