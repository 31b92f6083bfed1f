package models

import "math"

// CosineSimilarity returns the cosine similarity of two vectors mapped onto
// a 0-1 scale (negative similarities clamp to 0). Vectors of differing
// length are compared over their common prefix; embedding reduction keeps
// stored vectors at a single configured length, but callers must tolerate
// short vectors from degraded providers.
func CosineSimilarity(a, b []float32) float64 {
	n := len(a)
	if len(b) < n {
		n = len(b)
	}
	if n == 0 {
		return 0
	}

	var dot, normA, normB float64
	for i := 0; i < n; i++ {
		dot += float64(a[i]) * float64(b[i])
		normA += float64(a[i]) * float64(a[i])
		normB += float64(b[i]) * float64(b[i])
	}
	if normA == 0 || normB == 0 {
		return 0
	}

	sim := dot / (math.Sqrt(normA) * math.Sqrt(normB))
	if sim < 0 {
		return 0
	}
	if sim > 1 {
		return 1
	}
	return sim
}
