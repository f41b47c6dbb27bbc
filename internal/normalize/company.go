// Package normalize turns free-text job fields into comparison keys and scores
// how alike two listings are.
//
// Every function in this package is total: any input, including the empty
// string, produces a defined result.
package normalize

import (
	"regexp"
	"strings"
	"unicode"

	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"
)

var (
	parentheticalRE = regexp.MustCompile(`\([^()]*\)`)
	// "S.A." and "O'Reilly" collapse to single tokens
	joinerReplacer = strings.NewReplacer(".", "", "'", "", "’", "")
)

// foldDiacritics strips combining marks so "Zürich" and "Zurich" compare equal
func foldDiacritics(s string) string {
	t := transform.Chain(norm.NFD, runes.Remove(runes.In(unicode.Mn)), norm.NFC)
	result, _, err := transform.String(t, s)
	if err != nil {
		return s
	}
	return result
}

// alnumTokens replaces every non letter/digit rune with a space and splits
func alnumTokens(s string) []string {
	return strings.FieldsFunc(s, func(r rune) bool {
		return !unicode.IsLetter(r) && !unicode.IsDigit(r)
	})
}

// NormalizeCompany reduces a company name to a comparison key.
// NormalizeCompany(NormalizeCompany(x)) == NormalizeCompany(x) for every x.
func NormalizeCompany(name string) string {
	s := strings.TrimSpace(strings.ToLower(foldDiacritics(name)))
	if s == "" {
		return ""
	}

	// nested parentheses are peeled from the inside out
	for {
		stripped := parentheticalRE.ReplaceAllString(s, " ")
		if stripped == s {
			break
		}
		s = stripped
	}

	tokens := alnumTokens(joinerReplacer.Replace(s))

	// the last remaining token is never stripped, so "Protocol" stays "protocol"
	for len(tokens) > 1 {
		if _, ok := legalSuffixes[tokens[len(tokens)-1]]; !ok {
			break
		}
		tokens = tokens[:len(tokens)-1]
	}

	return strings.Join(tokens, " ")
}

// CompanyKey returns the alias-resolved key for a company name. Names in the
// same alias entry share a key; other names key on NormalizeCompany.
func CompanyKey(name string) string {
	key := NormalizeCompany(name)
	if canonical, ok := companyAliasIndex[key]; ok {
		return canonical
	}
	return key
}

// SameCompany reports whether two names refer to the same company.
// Names that normalize to nothing fall back to a case-insensitive comparison
// of the trimmed raw strings; two empty names never match.
func SameCompany(a, b string) bool {
	ka, kb := NormalizeCompany(a), NormalizeCompany(b)
	if ka == "" || kb == "" {
		ta, tb := strings.TrimSpace(a), strings.TrimSpace(b)
		if ta == "" || tb == "" {
			return false
		}
		return strings.EqualFold(ta, tb)
	}
	if ka == kb {
		return true
	}

	ca, okA := companyAliasIndex[ka]
	cb, okB := companyAliasIndex[kb]
	return okA && okB && ca == cb
}
