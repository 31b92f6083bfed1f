package llm

import (
	"context"
	"fmt"
	"os"
	"strings"

	"github.com/ternarybob/arbor"

	"github.com/quotienthq/quotient/internal/common"
	"github.com/quotienthq/quotient/internal/interfaces"
	"github.com/quotienthq/quotient/internal/services/settings"
)

// ResolvedConfig is the immutable provider configuration snapshot an adapter
// operates against. Adapters construct a new snapshot on first use or on
// Reinitialize and swap it atomically, so a settings change never mutates
// state under an in-flight request.
type ResolvedConfig struct {
	Provider    string
	APIKey      string
	BaseURL     string
	Model       string
	Temperature float32
	MaxTokens   int
}

// EmbeddingSettings is the resolved embedding configuration.
type EmbeddingSettings struct {
	Enabled   bool
	APIKey    string
	Model     string
	Dimension int
}

// Resolver resolves provider configuration through the layered sources:
// provider-specific stored setting, generic stored setting, environment
// variable, config file, registry default.
type Resolver struct {
	settings *settings.Service
	config   *common.Config
	logger   arbor.ILogger
}

func NewResolver(settingsService *settings.Service, config *common.Config, logger arbor.ILogger) *Resolver {
	return &Resolver{
		settings: settingsService,
		config:   config,
		logger:   logger,
	}
}

// ActiveProvider returns the configured chat provider name.
func (r *Resolver) ActiveProvider(ctx context.Context) string {
	provider := r.settings.GetString(ctx, settings.KeyLLMProvider, r.config.LLM.Provider)
	if provider == "" {
		provider = ProviderGemini
	}
	return provider
}

// resolveField applies the layered lookup for one configuration field.
func (r *Resolver) resolveField(ctx context.Context, provider, field, envVar, fileValue, defaultValue string) string {
	if value, ok := r.settings.Lookup(ctx, settings.ProviderKey(provider, field)); ok {
		return value
	}
	if value, ok := r.settings.Lookup(ctx, "llm."+field); ok {
		return value
	}
	// Application-prefixed env var first, then the provider SDK's convention.
	prefixed := "QUOTIENT_" + strings.ToUpper(provider) + "_" + strings.ToUpper(field)
	if value := os.Getenv(prefixed); value != "" {
		return value
	}
	if envVar != "" {
		if value := os.Getenv(envVar); value != "" {
			return value
		}
	}
	if fileValue != "" {
		return fileValue
	}
	return defaultValue
}

// ResolveChat produces the configuration snapshot for the named provider.
// Returns ErrNotConfigured when no credential resolves through any layer.
func (r *Resolver) ResolveChat(ctx context.Context, provider string) (*ResolvedConfig, error) {
	entry, ok := LookupProvider(provider)
	if !ok {
		return nil, fmt.Errorf("unknown provider %q", provider)
	}

	apiKey := r.resolveField(ctx, entry.Name, "api_key", entry.APIKeyEnvVar, r.config.LLM.APIKey, "")
	if apiKey == "" {
		return nil, interfaces.ErrNotConfigured
	}

	resolved := &ResolvedConfig{
		Provider:    entry.Name,
		APIKey:      apiKey,
		BaseURL:     r.resolveField(ctx, entry.Name, "base_url", "", r.config.LLM.BaseURL, ""),
		Model:       NormalizeModel(r.resolveField(ctx, entry.Name, "model", "", r.config.LLM.Model, entry.DefaultModel)),
		Temperature: r.config.LLM.Temperature,
		MaxTokens:   r.config.LLM.MaxTokens,
	}

	r.logger.Debug().
		Str("provider", resolved.Provider).
		Str("model", resolved.Model).
		Bool("base_url_set", resolved.BaseURL != "").
		Msg("Resolved provider configuration")

	return resolved, nil
}

// ResolveEmbedding produces the embedding configuration snapshot. A disabled
// feature flag short-circuits before credential resolution so the adapter can
// report disabled without touching the environment.
func (r *Resolver) ResolveEmbedding(ctx context.Context) (*EmbeddingSettings, error) {
	enabled := r.settings.GetBool(ctx, settings.KeyEmbeddingEnabled, r.config.Embedding.Enabled)
	if !enabled {
		return &EmbeddingSettings{Enabled: false}, nil
	}

	entry, _ := LookupProvider(ProviderGemini)
	apiKey := r.resolveField(ctx, entry.Name, "api_key", entry.APIKeyEnvVar, r.config.LLM.APIKey, "")
	if apiKey == "" {
		return nil, interfaces.ErrNotConfigured
	}

	model := r.settings.GetString(ctx, settings.KeyEmbeddingModel, r.config.Embedding.Model)
	if model == "" {
		model = DefaultEmbeddingModel
	}

	return &EmbeddingSettings{
		Enabled:   true,
		APIKey:    apiKey,
		Model:     model,
		Dimension: r.settings.GetInt(ctx, settings.KeyEmbeddingDimension, r.config.Embedding.Dimension),
	}, nil
}

// NewChatProvider constructs the adapter for the configured provider.
func NewChatProvider(ctx context.Context, resolver *Resolver, logger arbor.ILogger) (interfaces.ChatProvider, error) {
	name := resolver.ActiveProvider(ctx)
	entry, ok := LookupProvider(name)
	if !ok {
		return nil, fmt.Errorf("unknown provider %q", name)
	}
	return entry.Build(resolver, logger), nil
}
