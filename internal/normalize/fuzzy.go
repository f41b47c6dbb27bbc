package normalize

import (
	"strings"
)

// Levenshtein returns the rune-level edit distance between a and b
func Levenshtein(a, b string) int {
	ra, rb := []rune(a), []rune(b)
	if len(ra) == 0 {
		return len(rb)
	}
	if len(rb) == 0 {
		return len(ra)
	}

	prev := make([]int, len(rb)+1)
	curr := make([]int, len(rb)+1)
	for j := range prev {
		prev[j] = j
	}

	for i := 1; i <= len(ra); i++ {
		curr[0] = i
		for j := 1; j <= len(rb); j++ {
			cost := 1
			if ra[i-1] == rb[j-1] {
				cost = 0
			}
			curr[j] = min(prev[j]+1, curr[j-1]+1, prev[j-1]+cost)
		}
		prev, curr = curr, prev
	}

	return prev[len(rb)]
}

// FuzzySimilarity is 1 - distance/maxLen over lowercased, trimmed input
func FuzzySimilarity(a, b string) float64 {
	a = strings.ToLower(strings.TrimSpace(a))
	b = strings.ToLower(strings.TrimSpace(b))

	maxLen := max(len([]rune(a)), len([]rune(b)))
	if maxLen == 0 {
		return 1.0
	}
	return 1.0 - float64(Levenshtein(a, b))/float64(maxLen)
}

// FuzzyMatch reports whether query appears in text, tolerating typos. A
// window of text tokens as long as the query must reach threshold similarity.
func FuzzyMatch(query, text string, threshold float64) bool {
	q := strings.ToLower(strings.TrimSpace(query))
	if q == "" {
		return false
	}
	t := strings.ToLower(text)
	if strings.Contains(t, q) {
		return true
	}

	qTokens := strings.Fields(q)
	tTokens := strings.Fields(t)
	if len(tTokens) <= len(qTokens) {
		return FuzzySimilarity(q, strings.Join(tTokens, " ")) >= threshold
	}

	for i := 0; i+len(qTokens) <= len(tTokens); i++ {
		window := strings.Join(tTokens[i:i+len(qTokens)], " ")
		if FuzzySimilarity(q, window) >= threshold {
			return true
		}
	}
	return false
}
