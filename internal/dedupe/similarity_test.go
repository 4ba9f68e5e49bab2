package dedupe

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestSimilarity(t *testing.T) {
	tests := []struct {
		name     string
		a        string
		b        string
		expected float64
	}{
		{
			name:     "identical strings",
			a:        "running shoes",
			b:        "running shoes",
			expected: 1.0,
		},
		{
			name:     "both empty",
			a:        "",
			b:        "",
			expected: 1.0,
		},
		{
			name:     "left empty",
			a:        "",
			b:        "shoes",
			expected: 0.0,
		},
		{
			name:     "right empty",
			a:        "shoes",
			b:        "",
			expected: 0.0,
		},
		{
			name:     "single substitution",
			a:        "running shoes",
			b:        "runring shoes",
			expected: 1.0 - 1.0/13.0,
		},
		{
			name:     "kitten sitting",
			a:        "kitten",
			b:        "sitting",
			expected: 1.0 - 3.0/7.0,
		},
		{
			name:     "completely different",
			a:        "abc",
			b:        "xyz",
			expected: 0.0,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.InDelta(t, tt.expected, Similarity(tt.a, tt.b), 1e-9)
		})
	}
}

func TestSimilaritySymmetric(t *testing.T) {
	assert.Equal(t, Similarity("kitten", "sitting"), Similarity("sitting", "kitten"))
}

func TestSimilarityThresholdBoundary(t *testing.T) {
	// 3 substitutions over 20 runes is exactly 0.85.
	a := strings.Repeat("a", 20)
	b := strings.Repeat("a", 17) + "bbb"
	assert.InDelta(t, 0.85, Similarity(a, b), 1e-9)

	// 3 substitutions over 19 runes falls just under.
	a = strings.Repeat("a", 19)
	b = strings.Repeat("a", 16) + "bbb"
	assert.Less(t, Similarity(a, b), 0.85)
}

func TestSimilarityUnicode(t *testing.T) {
	// Distance counts runes, not bytes.
	assert.InDelta(t, 1.0-1.0/4.0, Similarity("café", "cafe"), 1e-9)
}
