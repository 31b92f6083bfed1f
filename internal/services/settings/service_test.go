package settings

import (
	"context"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/ternarybob/arbor"

	"github.com/quotienthq/quotient/internal/interfaces"
)

// memKV is an in-memory KeyValueStorage.
type memKV struct {
	values map[string]string
}

func newMemKV() *memKV {
	return &memKV{values: map[string]string{}}
}

func (m *memKV) Get(ctx context.Context, key string) (string, error) {
	value, ok := m.values[strings.ToLower(key)]
	if !ok {
		return "", interfaces.ErrKeyNotFound
	}
	return value, nil
}

func (m *memKV) Set(ctx context.Context, key, value, description string) error {
	m.values[strings.ToLower(key)] = value
	return nil
}

func (m *memKV) Delete(ctx context.Context, key string) error {
	if _, ok := m.values[strings.ToLower(key)]; !ok {
		return interfaces.ErrKeyNotFound
	}
	delete(m.values, strings.ToLower(key))
	return nil
}

func (m *memKV) List(ctx context.Context) ([]interfaces.KeyValuePair, error) {
	pairs := make([]interfaces.KeyValuePair, 0, len(m.values))
	for k, v := range m.values {
		pairs = append(pairs, interfaces.KeyValuePair{Key: k, Value: v})
	}
	return pairs, nil
}

func newTestService() (*Service, *memKV) {
	kv := newMemKV()
	return NewService(kv, arbor.NewLogger()), kv
}

func TestProviderKey(t *testing.T) {
	assert.Equal(t, "llm.gemini.api_key", ProviderKey("gemini", "api_key"))
	assert.Equal(t, "llm.claude.model", ProviderKey("claude", "model"))
}

func TestGetStringFallsBack(t *testing.T) {
	ctx := context.Background()
	service, kv := newTestService()

	assert.Equal(t, "gemini", service.GetString(ctx, KeyLLMProvider, "gemini"))

	kv.values[KeyLLMProvider] = "claude"
	assert.Equal(t, "claude", service.GetString(ctx, KeyLLMProvider, "gemini"))

	// Empty stored values fall back too.
	kv.values[KeyLLMProvider] = ""
	assert.Equal(t, "gemini", service.GetString(ctx, KeyLLMProvider, "gemini"))
}

func TestLookup(t *testing.T) {
	ctx := context.Background()
	service, kv := newTestService()

	_, ok := service.Lookup(ctx, "llm.gemini.api_key")
	assert.False(t, ok)

	kv.values["llm.gemini.api_key"] = "secret"
	value, ok := service.Lookup(ctx, "llm.gemini.api_key")
	assert.True(t, ok)
	assert.Equal(t, "secret", value)
}

func TestTypedGetters(t *testing.T) {
	ctx := context.Background()
	service, kv := newTestService()

	kv.values[KeyEmbeddingEnabled] = "false"
	kv.values[KeyEmbeddingDimension] = "1536"
	kv.values[KeyHardThreshold] = "0.9"

	assert.False(t, service.GetBool(ctx, KeyEmbeddingEnabled, true))
	assert.Equal(t, 1536, service.GetInt(ctx, KeyEmbeddingDimension, 768))
	assert.Equal(t, 0.9, service.GetFloat(ctx, KeyHardThreshold, 0.85))

	// Unparseable values fall back to the default instead of erroring.
	kv.values[KeyEmbeddingEnabled] = "maybe"
	kv.values[KeyEmbeddingDimension] = "lots"
	kv.values[KeyHardThreshold] = "high"

	assert.True(t, service.GetBool(ctx, KeyEmbeddingEnabled, true))
	assert.Equal(t, 768, service.GetInt(ctx, KeyEmbeddingDimension, 768))
	assert.Equal(t, 0.85, service.GetFloat(ctx, KeyHardThreshold, 0.85))
}

func TestDeleteAbsentKeyIsNoOp(t *testing.T) {
	ctx := context.Background()
	service, kv := newTestService()

	require.NoError(t, service.Delete(ctx, "never.set"))

	kv.values["some.key"] = "v"
	require.NoError(t, service.Delete(ctx, "some.key"))
	_, ok := kv.values["some.key"]
	assert.False(t, ok)
}
