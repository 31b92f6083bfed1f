package models

import (
	"math"
	"testing"
)

func TestCosineSimilarity(t *testing.T) {
	tests := []struct {
		name   string
		a      []float32
		b      []float32
		want   float64
		margin float64
	}{
		{
			name:   "identical vectors",
			a:      []float32{1, 2, 3},
			b:      []float32{1, 2, 3},
			want:   1,
			margin: 0.0001,
		},
		{
			name:   "orthogonal vectors",
			a:      []float32{1, 0},
			b:      []float32{0, 1},
			want:   0,
			margin: 0.0001,
		},
		{
			name:   "opposite vectors clamp to zero",
			a:      []float32{1, 0},
			b:      []float32{-1, 0},
			want:   0,
			margin: 0.0001,
		},
		{
			name:   "45 degrees",
			a:      []float32{1, 0},
			b:      []float32{1, 1},
			want:   0.7071,
			margin: 0.001,
		},
		{
			name:   "differing lengths compare over common prefix",
			a:      []float32{1, 0},
			b:      []float32{1, 0, 5, 5},
			want:   1,
			margin: 0.0001,
		},
		{
			name:   "empty vector",
			a:      nil,
			b:      []float32{1, 2},
			want:   0,
			margin: 0.0001,
		},
		{
			name:   "zero vector",
			a:      []float32{0, 0},
			b:      []float32{1, 2},
			want:   0,
			margin: 0.0001,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := CosineSimilarity(tt.a, tt.b)
			if math.Abs(got-tt.want) > tt.margin {
				t.Errorf("CosineSimilarity() = %f, want %f (±%f)", got, tt.want, tt.margin)
			}
		})
	}
}

func TestExpectedTotal(t *testing.T) {
	item := DraftLineItem{Quantity: 3, UnitCost: 19.99}
	if got := item.ExpectedTotal(); got != 59.97 {
		t.Errorf("ExpectedTotal() = %f, want 59.97", got)
	}

	// Rounding to cents.
	item = DraftLineItem{Quantity: 0.333, UnitCost: 10}
	if got := item.ExpectedTotal(); got != 3.33 {
		t.Errorf("ExpectedTotal() = %f, want 3.33", got)
	}
}
