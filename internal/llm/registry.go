package llm

import (
	"strings"

	"github.com/ternarybob/arbor"

	"github.com/quotienthq/quotient/internal/interfaces"
)

// Provider names.
const (
	ProviderGemini = "gemini"
	ProviderClaude = "claude"
)

// Known-good default models. The embedding default doubles as the fallback
// when a configured model name has been retired upstream.
const (
	DefaultGeminiModel    = "gemini-2.5-flash"
	DefaultClaudeModel    = "claude-sonnet-4-20250514"
	DefaultEmbeddingModel = "gemini-embedding-001"
)

// RegistryEntry describes one chat provider: its defaults, where its
// credential lives in the environment, and how to construct the adapter.
type RegistryEntry struct {
	Name         string
	DefaultModel string
	APIKeyEnvVar string
	Build        func(resolver *Resolver, logger arbor.ILogger) interfaces.ChatProvider
}

var registry = map[string]RegistryEntry{
	ProviderGemini: {
		Name:         ProviderGemini,
		DefaultModel: DefaultGeminiModel,
		APIKeyEnvVar: "GEMINI_API_KEY",
		Build: func(resolver *Resolver, logger arbor.ILogger) interfaces.ChatProvider {
			return NewGeminiProvider(resolver, logger)
		},
	},
	ProviderClaude: {
		Name:         ProviderClaude,
		DefaultModel: DefaultClaudeModel,
		APIKeyEnvVar: "ANTHROPIC_API_KEY",
		Build: func(resolver *Resolver, logger arbor.ILogger) interfaces.ChatProvider {
			return NewClaudeProvider(resolver, logger)
		},
	},
}

// LookupProvider returns the registry entry for a provider name.
func LookupProvider(name string) (RegistryEntry, bool) {
	entry, ok := registry[strings.ToLower(strings.TrimSpace(name))]
	return entry, ok
}

// DetectProvider determines the provider from a model string. Model strings
// may carry an explicit prefix ("claude/...", "gemini/...") or be bare model
// names; empty or unrecognized strings fall back to the supplied default.
func DetectProvider(model, defaultProvider string) string {
	if model == "" {
		return defaultProvider
	}

	model = strings.ToLower(model)

	if strings.HasPrefix(model, "claude/") || strings.HasPrefix(model, "anthropic/") {
		return ProviderClaude
	}
	if strings.HasPrefix(model, "gemini/") || strings.HasPrefix(model, "google/") {
		return ProviderGemini
	}

	if strings.HasPrefix(model, "claude-") {
		return ProviderClaude
	}
	if strings.HasPrefix(model, "gemini-") {
		return ProviderGemini
	}

	return defaultProvider
}

// NormalizeModel removes a provider prefix from a model name if present.
func NormalizeModel(model string) string {
	prefixes := []string{"claude/", "anthropic/", "gemini/", "google/"}
	for _, prefix := range prefixes {
		if strings.HasPrefix(strings.ToLower(model), prefix) {
			return model[len(prefix):]
		}
	}
	return model
}
