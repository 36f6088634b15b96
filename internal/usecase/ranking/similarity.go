package ranking

import (
	"fmt"
	"math"

	"github.com/kailas-cloud/herdask/internal/domain"
)

// epsilon keeps the cosine denominator non-zero for all-zero vectors.
const epsilon = 1e-10

// CosineSimilarity returns dot(a,b) / (|a|*|b| + 1e-10).
// Vectors must have equal length. The result is not clamped.
func CosineSimilarity(a, b []float32) (float64, error) {
	if len(a) != len(b) {
		return 0, fmt.Errorf("cosine %d vs %d: %w", len(a), len(b), domain.ErrVectorDimMismatch)
	}

	var dot, normA, normB float64
	for i := range a {
		x, y := float64(a[i]), float64(b[i])
		dot += x * y
		normA += x * x
		normB += y * y
	}

	return dot / (math.Sqrt(normA)*math.Sqrt(normB) + epsilon), nil
}
