package dedupe

// Similarity computes an edit-distance similarity between a and b in [0, 1].
// Identical strings score exactly 1.0; if either string is empty (and they
// differ) the score is 0.0. Otherwise the score is
// 1 - levenshtein(a, b) / max(len(a), len(b)), computed over runes.
//
// Cost is O(len(a)*len(b)) in time and space, so callers doing pairwise
// comparison must bound the candidate set.
func Similarity(a, b string) float64 {
	if a == b {
		return 1.0
	}

	ra := []rune(a)
	rb := []rune(b)
	if len(ra) == 0 || len(rb) == 0 {
		return 0.0
	}

	maxLen := len(ra)
	if len(rb) > maxLen {
		maxLen = len(rb)
	}

	return 1.0 - float64(levenshtein(ra, rb))/float64(maxLen)
}

// levenshtein is the classic dynamic-programming edit distance with unit
// costs for substitution, insertion, and deletion.
func levenshtein(a, b []rune) int {
	matrix := make([][]int, len(b)+1)
	for i := range matrix {
		matrix[i] = make([]int, len(a)+1)
		matrix[i][0] = i
	}
	for j := 0; j <= len(a); j++ {
		matrix[0][j] = j
	}

	for i := 1; i <= len(b); i++ {
		for j := 1; j <= len(a); j++ {
			if b[i-1] == a[j-1] {
				matrix[i][j] = matrix[i-1][j-1]
				continue
			}

			min := matrix[i-1][j-1]
			if matrix[i][j-1] < min {
				min = matrix[i][j-1]
			}
			if matrix[i-1][j] < min {
				min = matrix[i-1][j]
			}
			matrix[i][j] = min + 1
		}
	}

	return matrix[len(b)][len(a)]
}
