// Package similarity implements cosine scoring over embedding vectors and
// the fixed classification thresholds used by duplicate detection.
package similarity

import (
	"errors"
	"math"
)

// ErrDimensionMismatch indicates a programming or data error: vectors of
// unequal dimensionality were compared. It is fatal and never retried.
var ErrDimensionMismatch = errors.New("similarity: vectors have unequal dimensions")

// Cosine computes dot(a,b) / (|a| * |b|). It returns 0 when either vector is
// the zero vector and ErrDimensionMismatch on unequal lengths.
func Cosine(a, b []float32) (float64, error) {
	if len(a) != len(b) {
		return 0, ErrDimensionMismatch
	}

	var dot, normA, normB float64
	for i := range a {
		dot += float64(a[i]) * float64(b[i])
		normA += float64(a[i]) * float64(a[i])
		normB += float64(b[i]) * float64(b[i])
	}

	if normA == 0 || normB == 0 {
		return 0, nil
	}

	return dot / (math.Sqrt(normA) * math.Sqrt(normB)), nil
}
