package similarity

import (
	"testing"

	"github.com/kbforge/curatex/internal/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCosineIdentity(t *testing.T) {
	v := []float32{0.3, -1.2, 4.5, 0.01}

	score, err := Cosine(v, v)
	require.NoError(t, err)
	assert.InDelta(t, 1.0, score, 1e-9)
}

func TestCosineOrthogonal(t *testing.T) {
	score, err := Cosine([]float32{1, 0, 0}, []float32{0, 1, 0})
	require.NoError(t, err)
	assert.InDelta(t, 0.0, score, 1e-9)
}

func TestCosineOpposite(t *testing.T) {
	score, err := Cosine([]float32{1, 2}, []float32{-1, -2})
	require.NoError(t, err)
	assert.InDelta(t, -1.0, score, 1e-9)
}

func TestCosineZeroVector(t *testing.T) {
	score, err := Cosine([]float32{0, 0, 0}, []float32{1, 2, 3})
	require.NoError(t, err)
	assert.Equal(t, 0.0, score)

	score, err = Cosine([]float32{1, 2, 3}, []float32{0, 0, 0})
	require.NoError(t, err)
	assert.Equal(t, 0.0, score)
}

func TestCosineDimensionMismatch(t *testing.T) {
	_, err := Cosine([]float32{1, 2}, []float32{1, 2, 3})
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrDimensionMismatch)
}

func TestClassifyBoundaries(t *testing.T) {
	tests := []struct {
		score    float64
		expected domain.DuplicationStatus
	}{
		{0.9801, domain.DuplicationStatusExact},
		{0.99, domain.DuplicationStatusExact},
		{0.98, domain.DuplicationStatusNear}, // equality at the upper bound is near
		{0.85, domain.DuplicationStatusNear},
		{0.9, domain.DuplicationStatusNear},
		{0.8499, domain.DuplicationStatusUnique},
		{0.0, domain.DuplicationStatusUnique},
	}

	for _, tt := range tests {
		assert.Equal(t, tt.expected, Classify(tt.score), "score %v", tt.score)
	}
}
