package llm

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestReduceDimensions(t *testing.T) {
	vector := make([]float32, 12)
	for i := range vector {
		vector[i] = float32(i)
	}

	reduced := ReduceDimensions(vector, 4)
	require.Len(t, reduced, 4)
	// Uniform stride picks index i*len/target: 0, 3, 6, 9.
	assert.Equal(t, []float32{0, 3, 6, 9}, reduced)
}

func TestReduceDimensionsCoversWholeVector(t *testing.T) {
	vector := make([]float32, 3072)
	for i := range vector {
		vector[i] = float32(i)
	}

	reduced := ReduceDimensions(vector, 768)
	require.Len(t, reduced, 768)
	assert.Equal(t, float32(0), reduced[0])
	// The last slot samples from near the end, not the prefix.
	assert.Equal(t, float32(767*3072/768), reduced[767])
}

func TestReduceDimensionsNoOpAtOrBelowTarget(t *testing.T) {
	vector := []float32{1, 2, 3}

	assert.Equal(t, vector, ReduceDimensions(vector, 3))
	// Short vectors are never padded.
	assert.Equal(t, vector, ReduceDimensions(vector, 10))
	assert.Equal(t, vector, ReduceDimensions(vector, 0))
	assert.Equal(t, vector, ReduceDimensions(vector, -1))
}

func TestReduceDimensionsIdempotent(t *testing.T) {
	vector := make([]float32, 100)
	for i := range vector {
		vector[i] = float32(i)
	}

	once := ReduceDimensions(vector, 25)
	twice := ReduceDimensions(once, 25)
	assert.Equal(t, once, twice)
}

func TestReduceDimensionsNilVector(t *testing.T) {
	assert.Nil(t, ReduceDimensions(nil, 768))
}
