package settings

import (
	"context"
	"errors"
	"strconv"

	"github.com/ternarybob/arbor"

	"github.com/quotienthq/quotient/internal/interfaces"
)

// Well-known settings keys. Provider-specific keys follow the pattern
// llm.<provider>.<field> and shadow the generic llm.<field> keys.
const (
	KeyLLMProvider        = "llm.provider"
	KeyEmbeddingModel     = "llm.embedding.model"
	KeyEmbeddingEnabled   = "llm.embedding.enabled"
	KeyEmbeddingDimension = "llm.embedding.dimension"
	KeyHardThreshold      = "match.hard_threshold"
	KeySoftThreshold      = "match.soft_threshold"
)

// Service reads and writes runtime settings stored in the key-value store.
// Typed getters fall back to the supplied default when the key is absent or
// the stored value does not parse.
type Service struct {
	kv     interfaces.KeyValueStorage
	logger arbor.ILogger
}

func NewService(kv interfaces.KeyValueStorage, logger arbor.ILogger) *Service {
	return &Service{
		kv:     kv,
		logger: logger,
	}
}

// ProviderKey builds the provider-specific key for a field, e.g.
// ProviderKey("gemini", "api_key") -> "llm.gemini.api_key".
func ProviderKey(provider, field string) string {
	return "llm." + provider + "." + field
}

// GetString returns the stored value or the default when absent.
func (s *Service) GetString(ctx context.Context, key, defaultValue string) string {
	value, err := s.kv.Get(ctx, key)
	if err != nil {
		if !errors.Is(err, interfaces.ErrKeyNotFound) {
			s.logger.Warn().Err(err).Str("key", key).Msg("Failed to read setting")
		}
		return defaultValue
	}
	if value == "" {
		return defaultValue
	}
	return value
}

// Lookup returns the stored value and whether the key exists.
func (s *Service) Lookup(ctx context.Context, key string) (string, bool) {
	value, err := s.kv.Get(ctx, key)
	if err != nil || value == "" {
		return "", false
	}
	return value, true
}

func (s *Service) GetBool(ctx context.Context, key string, defaultValue bool) bool {
	value, ok := s.Lookup(ctx, key)
	if !ok {
		return defaultValue
	}
	parsed, err := strconv.ParseBool(value)
	if err != nil {
		s.logger.Warn().Str("key", key).Str("value", value).Msg("Invalid boolean setting, using default")
		return defaultValue
	}
	return parsed
}

func (s *Service) GetInt(ctx context.Context, key string, defaultValue int) int {
	value, ok := s.Lookup(ctx, key)
	if !ok {
		return defaultValue
	}
	parsed, err := strconv.Atoi(value)
	if err != nil {
		s.logger.Warn().Str("key", key).Str("value", value).Msg("Invalid integer setting, using default")
		return defaultValue
	}
	return parsed
}

func (s *Service) GetFloat(ctx context.Context, key string, defaultValue float64) float64 {
	value, ok := s.Lookup(ctx, key)
	if !ok {
		return defaultValue
	}
	parsed, err := strconv.ParseFloat(value, 64)
	if err != nil {
		s.logger.Warn().Str("key", key).Str("value", value).Msg("Invalid float setting, using default")
		return defaultValue
	}
	return parsed
}

// Set stores a setting value.
func (s *Service) Set(ctx context.Context, key, value, description string) error {
	return s.kv.Set(ctx, key, value, description)
}

// Delete removes a setting.
func (s *Service) Delete(ctx context.Context, key string) error {
	err := s.kv.Delete(ctx, key)
	if errors.Is(err, interfaces.ErrKeyNotFound) {
		return nil
	}
	return err
}

// List returns all stored settings.
func (s *Service) List(ctx context.Context) ([]interfaces.KeyValuePair, error) {
	return s.kv.List(ctx)
}
