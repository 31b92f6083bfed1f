package llm

import (
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestIsRateLimitError(t *testing.T) {
	assert.False(t, IsRateLimitError(nil))
	assert.True(t, IsRateLimitError(errors.New("Error 429: Too Many Requests")))
	assert.True(t, IsRateLimitError(errors.New("rpc error: code = ResourceExhausted desc = RESOURCE_EXHAUSTED")))
	assert.True(t, IsRateLimitError(errors.New("quota exceeded for metric")))
	assert.False(t, IsRateLimitError(errors.New("connection refused")))
}

func TestIsModelNotFoundError(t *testing.T) {
	assert.False(t, IsModelNotFoundError(nil))
	assert.True(t, IsModelNotFoundError(errors.New("Error 404: model not found")))
	assert.True(t, IsModelNotFoundError(errors.New("models/gemini-embedding-exp-03-07 is Not Found")))
	assert.True(t, IsModelNotFoundError(errors.New("code = NOT_FOUND")))
	assert.False(t, IsModelNotFoundError(errors.New("Error 500: internal")))
}

func TestExtractRetryDelay(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want time.Duration
	}{
		{"nil error", nil, 0},
		{"please retry format", errors.New("429: Please retry in 23s"), 23 * time.Second},
		{"retryDelay format", errors.New(`"retryDelay": "17s"`), 17 * time.Second},
		{"fractional seconds", errors.New("Please retry in 2.5s"), 2500 * time.Millisecond},
		{"no delay present", errors.New("429 too many requests"), 0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, ExtractRetryDelay(tt.err))
		})
	}
}

func TestCalculateBackoff(t *testing.T) {
	config := NewDefaultRetryConfig()

	// Without an API hint the initial backoff grows by the multiplier.
	assert.Equal(t, 45*time.Second, config.CalculateBackoff(0, 0))
	assert.Equal(t, time.Duration(float64(45*time.Second)*1.5), config.CalculateBackoff(1, 0))

	// Growth is capped.
	assert.Equal(t, 90*time.Second, config.CalculateBackoff(5, 0))

	// An API-suggested delay replaces the base, with a safety margin.
	assert.Equal(t, 25*time.Second, config.CalculateBackoff(0, 20*time.Second))
}
