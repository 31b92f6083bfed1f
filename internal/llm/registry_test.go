package llm

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLookupProvider(t *testing.T) {
	entry, ok := LookupProvider("gemini")
	require.True(t, ok)
	assert.Equal(t, ProviderGemini, entry.Name)
	assert.Equal(t, DefaultGeminiModel, entry.DefaultModel)
	assert.Equal(t, "GEMINI_API_KEY", entry.APIKeyEnvVar)

	entry, ok = LookupProvider(" Claude ")
	require.True(t, ok)
	assert.Equal(t, ProviderClaude, entry.Name)
	assert.Equal(t, "ANTHROPIC_API_KEY", entry.APIKeyEnvVar)

	_, ok = LookupProvider("openai")
	assert.False(t, ok)
}

func TestDetectProvider(t *testing.T) {
	tests := []struct {
		model string
		want  string
	}{
		{"claude/claude-sonnet-4-20250514", ProviderClaude},
		{"anthropic/claude-3-haiku", ProviderClaude},
		{"claude-sonnet-4-20250514", ProviderClaude},
		{"gemini/gemini-2.5-flash", ProviderGemini},
		{"google/gemini-2.5-pro", ProviderGemini},
		{"gemini-2.5-flash", ProviderGemini},
		{"GEMINI-2.5-FLASH", ProviderGemini},
		{"", "fallback"},
		{"gpt-4o", "fallback"},
	}

	for _, tt := range tests {
		t.Run(tt.model, func(t *testing.T) {
			assert.Equal(t, tt.want, DetectProvider(tt.model, "fallback"))
		})
	}
}

func TestNormalizeModel(t *testing.T) {
	assert.Equal(t, "gemini-2.5-flash", NormalizeModel("gemini/gemini-2.5-flash"))
	assert.Equal(t, "claude-sonnet-4-20250514", NormalizeModel("claude/claude-sonnet-4-20250514"))
	assert.Equal(t, "claude-3-haiku", NormalizeModel("anthropic/claude-3-haiku"))
	assert.Equal(t, "gemini-2.5-pro", NormalizeModel("google/gemini-2.5-pro"))
	assert.Equal(t, "gemini-2.5-flash", NormalizeModel("gemini-2.5-flash"))
}
