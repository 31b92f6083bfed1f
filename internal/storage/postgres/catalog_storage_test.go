package postgres

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/quotienthq/quotient/internal/interfaces"
)

var _ interfaces.CatalogStorage = (*CatalogStorage)(nil)

func TestEmbeddingParam(t *testing.T) {
	assert.Nil(t, embeddingParam(nil))
	assert.Nil(t, embeddingParam([]float32{}))

	param := embeddingParam([]float32{1, 0, 0.5})
	text, ok := param.(string)
	require.True(t, ok)
	assert.Equal(t, "[1,0,0.5]", text)
}

func TestParseVectorText(t *testing.T) {
	assert.Nil(t, parseVectorText(""))
	assert.Nil(t, parseVectorText("not a vector"))

	v := parseVectorText("[1,0,0.5]")
	require.Len(t, v, 3)
	assert.Equal(t, float32(1), v[0])
	assert.Equal(t, float32(0.5), v[2])
}

func TestVectorTextRoundTrip(t *testing.T) {
	original := []float32{0.25, -1, 3}
	text, ok := embeddingParam(original).(string)
	require.True(t, ok)
	assert.Equal(t, original, parseVectorText(text))
}
