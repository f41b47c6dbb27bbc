package normalize

import (
	"strings"
	"unicode"
)

// titleSuffixSeparators introduce a trailing company or location qualifier,
// as in "Backend Engineer - Acme" or "Designer @ Acme".
var titleSuffixSeparators = []string{" - ", " @ ", " | ", " – ", " — "}

const tokenTrimSet = ".,;:!?()[]{}\"'/"

// NormalizeTitle reduces a job title to a comparison key
func NormalizeTitle(title string) string {
	s := strings.TrimSpace(strings.ToLower(title))
	s = stripTitleSuffix(s)

	fields := strings.Fields(s)
	expanded := make([]string, 0, len(fields))
	for _, field := range fields {
		if full, ok := titleAbbreviations[strings.Trim(field, tokenTrimSet)]; ok {
			expanded = append(expanded, full)
			continue
		}
		expanded = append(expanded, field)
	}

	cleaned := strings.Map(func(r rune) rune {
		if unicode.IsLetter(r) || unicode.IsDigit(r) || r == '-' {
			return r
		}
		return ' '
	}, strings.Join(expanded, " "))

	tokens := strings.Fields(cleaned)
	kept := tokens[:0]
	for _, token := range tokens {
		if strings.Trim(token, "-") != "" {
			kept = append(kept, token)
		}
	}
	return strings.Join(kept, " ")
}

// stripTitleSuffix cuts the last " - X" style qualifier, keeping the title
// itself when the separator is leading.
func stripTitleSuffix(s string) string {
	cut := -1
	for _, sep := range titleSuffixSeparators {
		if i := strings.LastIndex(s, sep); i > cut {
			cut = i
		}
	}
	if cut <= 0 {
		return s
	}
	return strings.TrimSpace(s[:cut])
}

// canonicalTitleTokens maps each token through the synonym groups
func canonicalTitleTokens(normalized string) map[string]struct{} {
	fields := strings.Fields(normalized)
	set := make(map[string]struct{}, len(fields))
	for _, token := range fields {
		if rep, ok := titleSynonymIndex[token]; ok {
			token = rep
		}
		set[token] = struct{}{}
	}
	return set
}

// TitleSimilarity returns the Jaccard similarity in [0, 1] of two titles'
// synonym-canonicalized token sets. Identical normalized titles score 1.0.
func TitleSimilarity(a, b string) float64 {
	na, nb := NormalizeTitle(a), NormalizeTitle(b)
	if na == nb {
		return 1.0
	}

	left := canonicalTitleTokens(na)
	right := canonicalTitleTokens(nb)

	intersection := 0
	for token := range left {
		if _, ok := right[token]; ok {
			intersection++
		}
	}

	union := len(left) + len(right) - intersection
	if union <= 0 {
		return 0
	}
	return float64(intersection) / float64(union)
}

// TitlePrefix returns the first n tokens of the normalized title
func TitlePrefix(title string, n int) string {
	fields := strings.Fields(NormalizeTitle(title))
	if len(fields) > n {
		fields = fields[:n]
	}
	return strings.Join(fields, " ")
}
