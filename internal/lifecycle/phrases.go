package lifecycle

import "strings"

// closedPhrases is deliberately narrow: only wording that unambiguously says
// the posting is closed. Generic text like "expired" or "apply" is excluded.
var closedPhrases = []string{
	"this position has been filled",
	"this role has been filled",
	"this job is no longer available",
	"this position is no longer available",
	"this job posting is no longer available",
	"no longer accepting applications",
	"this job has expired",
	"this job posting has expired",
	"this job posting has been closed",
	"job not found",
}

// ClosedPhrases returns a copy of the closed-listing allowlist
func ClosedPhrases() []string {
	out := make([]string, len(closedPhrases))
	copy(out, closedPhrases)
	return out
}

// containsClosedPhrase scans whitespace-collapsed lowercase text
func containsClosedPhrase(text string) (string, bool) {
	normalized := strings.Join(strings.Fields(strings.ToLower(text)), " ")
	for _, phrase := range closedPhrases {
		if strings.Contains(normalized, phrase) {
			return phrase, true
		}
	}
	return "", false
}
