package oracle

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestCosineSimilarity(t *testing.T) {
	tests := []struct {
		name     string
		a        []float64
		b        []float64
		expected float64
	}{
		{
			name:     "Identical non-zero vectors",
			a:        []float64{1, 2, 3},
			b:        []float64{1, 2, 3},
			expected: 1,
		},
		{
			name:     "Both zero vectors",
			a:        []float64{0, 0, 0},
			b:        []float64{0, 0, 0},
			expected: 0,
		},
		{
			name:     "One zero vector",
			a:        []float64{1, 2, 3},
			b:        []float64{0, 0, 0},
			expected: 0,
		},
		{
			name:     "Mismatched lengths",
			a:        []float64{1, 2},
			b:        []float64{1, 2, 3},
			expected: 0,
		},
		{
			name:     "Empty vectors",
			a:        nil,
			b:        nil,
			expected: 0,
		},
		{
			name:     "Orthogonal vectors",
			a:        []float64{1, 0},
			b:        []float64{0, 1},
			expected: 0,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := CosineSimilarity(tt.a, tt.b)
			assert.InDelta(t, tt.expected, got, 1e-9)
		})
	}
}

func TestEmbeddingScorer_Blacklist(t *testing.T) {
	scorer := NewEmbeddingScorer("test-key", []string{"Evil Corp"})

	assert.True(t, scorer.isBlacklisted("Evil Corp Inc."))
	assert.True(t, scorer.isBlacklisted("  evil corp  "))
	assert.False(t, scorer.isBlacklisted("Good Corp"))
}
