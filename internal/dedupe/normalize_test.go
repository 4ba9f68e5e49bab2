package dedupe

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestNormalize(t *testing.T) {
	tests := []struct {
		name     string
		input    string
		expected string
	}{
		{
			name:     "lowercases",
			input:    "Running Shoes",
			expected: "running shoes",
		},
		{
			name:     "trims surrounding whitespace",
			input:    "  running shoes  ",
			expected: "running shoes",
		},
		{
			name:     "collapses inner whitespace",
			input:    "running \t  shoes",
			expected: "running shoes",
		},
		{
			name:     "strips diacritics",
			input:    "Café Olé",
			expected: "cafe ole",
		},
		{
			name:     "combined",
			input:    "  CAFÉ   Running\tShoes ",
			expected: "cafe running shoes",
		},
		{
			name:     "empty input",
			input:    "",
			expected: "",
		},
		{
			name:     "whitespace only",
			input:    "   \t  ",
			expected: "",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, Normalize(tt.input))
		})
	}
}

func TestNormalizeIdempotent(t *testing.T) {
	inputs := []string{"Running Shoes", "Café", "  a   b  c  "}
	for _, input := range inputs {
		once := Normalize(input)
		assert.Equal(t, once, Normalize(once))
	}
}
