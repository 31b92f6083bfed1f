package interfaces

import (
	"context"
	"errors"

	"github.com/quotienthq/quotient/internal/models"
)

// ErrNotConfigured is returned when no credential resolves for the selected
// provider. It is non-retryable until settings change.
var ErrNotConfigured = errors.New("provider not configured: no API key resolved")

// ChatOptions are per-call overrides for a chat completion.
type ChatOptions struct {
	Model             string
	Temperature       float32
	MaxTokens         int
	SystemInstruction string
}

// ChatCompletion is a provider-agnostic completion response.
type ChatCompletion struct {
	Text     string
	Provider string
	Model    string
}

// ChatProvider is the uniform interface over interchangeable chat-completion
// backends. Implementations resolve credentials and model names from layered
// configuration and cache the resolution until Reinitialize is called.
type ChatProvider interface {
	GenerateChatCompletion(ctx context.Context, messages []models.Message, opts *ChatOptions) (*ChatCompletion, error)
	ProviderName() string
	ModelName() string
	Reinitialize(ctx context.Context) error
}

// Embedder is the uniform interface over vector-embedding backends.
//
// Embed returns (nil, nil) when the similarity feature is disabled or the
// call fails unrecoverably, so a single bad embedding degrades one item to
// "new" rather than aborting a whole job. Callers must treat a nil vector
// as "no similarity information".
type Embedder interface {
	Embed(ctx context.Context, text string) ([]float32, error)
	IsEnabled() bool
	ProviderName() string
	ModelName() string
	Reinitialize(ctx context.Context) error
}
