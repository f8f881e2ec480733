package similarity

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestJaroWinkler(t *testing.T) {
	scorer := NewScorer()

	tests := []struct {
		name     string
		a        string
		b        string
		expected float64
		delta    float64
	}{
		{
			name:     "exact match",
			a:        "martha",
			b:        "martha",
			expected: 1.0,
			delta:    0.0001,
		},
		{
			name:     "classic martha marhta",
			a:        "martha",
			b:        "marhta",
			expected: 0.9611,
			delta:    0.001,
		},
		{
			name:     "no similarity",
			a:        "abc",
			b:        "xyz",
			expected: 0.0,
			delta:    0.0001,
		},
		{
			name:     "empty strings differ from non-empty",
			a:        "",
			b:        "abc",
			expected: 0.0,
			delta:    0.0001,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.InDelta(t, tt.expected, scorer.JaroWinkler(tt.a, tt.b), tt.delta)
		})
	}
}

func TestLevenshtein(t *testing.T) {
	scorer := NewScorer()

	t.Run("distance", func(t *testing.T) {
		assert.Equal(t, 3, scorer.LevenshteinDistance("kitten", "sitting"))
		assert.Equal(t, 0, scorer.LevenshteinDistance("abc", "abc"))
		assert.Equal(t, 3, scorer.LevenshteinDistance("", "abc"))
	})

	t.Run("similarity is normalized", func(t *testing.T) {
		assert.InDelta(t, 1.0-3.0/7.0, scorer.Levenshtein("kitten", "sitting"), 0.0001)
		assert.Equal(t, 1.0, scorer.Levenshtein("", ""))
	})
}

func TestExactMatch(t *testing.T) {
	scorer := NewScorer()

	assert.Equal(t, 1.0, scorer.ExactMatch("ABC", "abc", false))
	assert.Equal(t, 0.0, scorer.ExactMatch("ABC", "abc", true))
	assert.Equal(t, 1.0, scorer.ExactMatch("abc", "abc", true))
}

func TestTokenOverlap(t *testing.T) {
	scorer := NewScorer()

	assert.Equal(t, 1.0, scorer.TokenOverlap("jane doe", "doe jane"))
	assert.InDelta(t, 1.0/3.0, scorer.TokenOverlap("jane doe", "jane smith"), 0.0001)
	assert.Equal(t, 0.0, scorer.TokenOverlap("", "jane"))
}

func TestCosine(t *testing.T) {
	scorer := NewScorer()

	t.Run("identical vectors", func(t *testing.T) {
		assert.InDelta(t, 1.0, scorer.Cosine([]float64{0.5, 0.5, 0.5}, []float64{0.5, 0.5, 0.5}), 0.0001)
	})

	t.Run("orthogonal vectors", func(t *testing.T) {
		assert.InDelta(t, 0.0, scorer.Cosine([]float64{1, 0}, []float64{0, 1}), 0.0001)
	})

	t.Run("opposite vectors clamp to zero", func(t *testing.T) {
		assert.Equal(t, 0.0, scorer.Cosine([]float64{1, 1}, []float64{-1, -1}))
	})

	t.Run("dimension mismatch", func(t *testing.T) {
		assert.Equal(t, 0.0, scorer.Cosine([]float64{1, 2}, []float64{1, 2, 3}))
	})

	t.Run("zero magnitude", func(t *testing.T) {
		assert.Equal(t, 0.0, scorer.Cosine([]float64{0, 0}, []float64{1, 2}))
	})
}
