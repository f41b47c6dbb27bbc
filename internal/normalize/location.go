package normalize

import (
	"regexp"
	"strings"
)

var countryCodeSuffixRE = regexp.MustCompile(`(?:,\s*|\s+)[a-z]{2}$`)

// NormalizeLocation reduces a location string to a comparison key
func NormalizeLocation(loc string) string {
	s := strings.TrimSpace(strings.ToLower(foldDiacritics(loc)))
	if s == "" {
		return ""
	}

	for _, entry := range locationAliases {
		if strings.Contains(s, entry.Canonical) {
			return entry.Canonical
		}
		for _, alias := range entry.Aliases {
			if strings.Contains(s, alias) {
				return entry.Canonical
			}
		}
	}

	s = countryCodeSuffixRE.ReplaceAllString(s, "")
	return strings.Trim(s, " ,")
}

// SameLocation reports whether two locations normalize to the same key
func SameLocation(a, b string) bool {
	return NormalizeLocation(a) == NormalizeLocation(b)
}
