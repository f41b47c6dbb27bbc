package dedup

import "strings"

// sourceRank pairs a crawler keyword with its rank
type sourceRank struct {
	keyword string
	rank    int
}

// sourcePriorities is matched in order against the lowercased source string;
// the first keyword found wins. ATS-hosted postings outrank aggregators.
var sourcePriorities = []sourceRank{
	{keyword: "greenhouse", rank: 100},
	{keyword: "lever", rank: 95},
	{keyword: "ashby", rank: 90},
	{keyword: "workable", rank: 85},
	{keyword: "smartrecruiters", rank: 80},
	{keyword: "workday", rank: 80},
	{keyword: "linkedin", rank: 60},
	{keyword: "cryptojobslist", rank: 55},
	{keyword: "web3.career", rank: 50},
	{keyword: "remote3", rank: 45},
	{keyword: "wellfound", rank: 45},
	{keyword: "angel.co", rank: 45},
	{keyword: "indeed", rank: 40},
	{keyword: "topcv", rank: 35},
	{keyword: "telegram", rank: 20},
}

// UnknownSourcePriority is the rank of sources not in the table
const UnknownSourcePriority = 0

// SourcePriority ranks a crawler source by case-insensitive substring match
func SourcePriority(source string) int {
	s := strings.ToLower(source)
	if s == "" {
		return UnknownSourcePriority
	}
	for _, sp := range sourcePriorities {
		if strings.Contains(s, sp.keyword) {
			return sp.rank
		}
	}
	return UnknownSourcePriority
}
