package normalize

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestNormalizeCompany(t *testing.T) {
	tests := []struct {
		name string
		in   string
		want string
	}{
		{name: "suffix and case", in: "Acme Inc.", want: "acme"},
		{name: "bare name", in: "ACME", want: "acme"},
		{name: "stacked suffixes", in: "Acme Labs, Inc.", want: "acme"},
		{name: "parenthetical", in: "Chainlink Labs (formerly SmartContract)", want: "chainlink"},
		{name: "dotted name", in: "Crypto.com", want: "cryptocom"},
		{name: "apostrophe", in: "O'Reilly Media", want: "oreilly media"},
		{name: "diacritics", in: "Société Générale S.A.", want: "societe generale"},
		{name: "suffix only name kept", in: "Protocol", want: "protocol"},
		{name: "whitespace collapse", in: "  Paradigm   Operations  LP ", want: "paradigm operations lp"},
		{name: "empty", in: "", want: ""},
		{name: "only punctuation", in: "!!!", want: ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, NormalizeCompany(tt.in))
		})
	}
}

func TestSameCompany(t *testing.T) {
	tests := []struct {
		name string
		a, b string
		want bool
	}{
		{name: "suffix and case", a: "Acme Inc.", b: "ACME", want: true},
		{name: "alias entry", a: "Andreessen Horowitz", b: "a16z", want: true},
		{name: "alias to alias", a: "Payward, Inc.", b: "Kraken", want: true},
		{name: "alias after suffix strip", a: "Ava Labs", b: "Avalanche", want: true},
		{name: "different companies", a: "Coinbase", b: "Kraken", want: false},
		{name: "two blanks never match", a: "", b: "", want: false},
		{name: "blank against name", a: "", b: "Acme", want: false},
		{name: "unnormalizable but equal", a: "???", b: "???", want: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, SameCompany(tt.a, tt.b))
			assert.Equal(t, tt.want, SameCompany(tt.b, tt.a))
		})
	}
}

func TestCompanyKey(t *testing.T) {
	assert.Equal(t, "a16z", CompanyKey("Andreessen Horowitz"))
	assert.Equal(t, "chainlink", CompanyKey("SmartContract.com"))
	assert.Equal(t, "acme", CompanyKey("Acme, Inc."))
	assert.Equal(t, "", CompanyKey(""))
}

func TestNormalizeTitle(t *testing.T) {
	tests := []struct {
		name string
		in   string
		want string
	}{
		{name: "abbreviation with dot", in: "Sr. Solidity Engineer", want: "senior solidity engineer"},
		{name: "company suffix dash", in: "Backend Engineer - Acme", want: "backend engineer"},
		{name: "company suffix at", in: "Product Designer @ Acme Labs", want: "product designer"},
		{name: "keeps hyphens", in: "Full-Stack Dev (Remote)", want: "full-stack developer remote"},
		{name: "token level only", in: "Senior Developer", want: "senior developer"},
		{name: "multi word expansion", in: "SWE II", want: "software engineer ii"},
		{name: "leading separator kept", in: " - Engineer", want: "engineer"},
		{name: "empty", in: "", want: ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, NormalizeTitle(tt.in))
		})
	}
}

func TestTitleSimilarity(t *testing.T) {
	assert.Equal(t, 1.0, TitleSimilarity("Sr. Solidity Engineer", "Senior Solidity Developer"))
	assert.Equal(t, 1.0, TitleSimilarity("Front-End Engineer", "frontend programmer"))
	assert.InDelta(t, 2.0/3.0, TitleSimilarity("Senior Rust Engineer", "Rust Engineer"), 1e-9)
	assert.Equal(t, 0.0, TitleSimilarity("Designer", "Accountant"))
	assert.Equal(t, 0.0, TitleSimilarity("", "Engineer"))
	assert.Equal(t, 1.0, TitleSimilarity("", ""))
}

func TestNormalizeLocation(t *testing.T) {
	tests := []struct {
		in   string
		want string
	}{
		{in: "Remote (US)", want: "remote"},
		{in: "Anywhere in the world", want: "remote"},
		{in: "NYC", want: "new york"},
		{in: "Brooklyn, NY", want: "new york"},
		{in: "SF Bay Area", want: "san francisco"},
		{in: "Paris, FR", want: "paris"},
		{in: "Lagos NG", want: "lagos"},
		{in: "Zürich, CH", want: "zurich"},
		{in: "  ", want: ""},
	}

	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			assert.Equal(t, tt.want, NormalizeLocation(tt.in))
		})
	}

	assert.True(t, SameLocation("New York, NY", "Manhattan"))
	assert.False(t, SameLocation("Berlin", "London"))
}

func TestLevenshtein(t *testing.T) {
	assert.Equal(t, 0, Levenshtein("solidity", "solidity"))
	assert.Equal(t, 3, Levenshtein("kitten", "sitting"))
	assert.Equal(t, 4, Levenshtein("", "rust"))
	assert.Equal(t, 1, Levenshtein("zürich", "zurich"))
}

func TestFuzzyMatch(t *testing.T) {
	assert.True(t, FuzzyMatch("solidity", "Senior Solidity Engineer", 0.8))
	assert.True(t, FuzzyMatch("solidty", "Senior Solidity Engineer", 0.8))
	assert.True(t, FuzzyMatch("smart contract", "Smart-contract", 0.8))
	assert.False(t, FuzzyMatch("designer", "Senior Solidity Engineer", 0.8))
	assert.False(t, FuzzyMatch("", "anything", 0.8))
	assert.Equal(t, 1.0, FuzzySimilarity("", ""))
}

func TestTablesAreCopied(t *testing.T) {
	entries := CompanyAliases()
	entries[0].Aliases[0] = "mutated"
	assert.NotEqual(t, "mutated", CompanyAliases()[0].Aliases[0])
	assert.NotEmpty(t, LocationAliases())
}
