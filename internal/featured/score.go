// Package featured ranks active listings and maintains the featured set.
package featured

import (
	"regexp"
	"strconv"
	"strings"
	"time"

	"github.com/job-curator/internal/models"
)

// vcTier is a fixed-weight bucket of notable backer names
type vcTier struct {
	name    string
	points  int
	members []string
}

var vcTiers = []vcTier{
	{
		name:   "tier1",
		points: 40,
		members: []string{
			"a16z", "andreessen horowitz", "paradigm", "sequoia", "coinbase ventures",
			"polychain", "pantera", "multicoin", "binance labs",
		},
	},
	{
		name:   "tier2",
		points: 25,
		members: []string{
			"dragonfly", "electric capital", "framework", "placeholder", "variant",
			"1confirmation", "haun", "jump crypto", "galaxy",
		},
	},
	{
		name:   "tier3",
		points: 10,
		members: []string{
			"hashed", "animoca", "delphi", "spartan", "digital currency group",
			"robot ventures", "nascent",
		},
	},
}

const (
	maxMatchesPerTier = 2
	maxVCPoints       = 80

	maxRecencyPoints = 50
	recencyWindow    = 30 // days

	salaryTopThreshold  = 200000
	salaryMidThreshold  = 100000
	salaryBaseThreshold = 50000

	// MaxScore is the highest total ComputeScore can return
	MaxScore = maxVCPoints + maxRecencyPoints + 30 + 15
)

var salaryNumberRE = regexp.MustCompile(`\d[\d,]*(?:\.\d+)?`)

// ScoreBreakdown holds the per-component values of a featured score
type ScoreBreakdown struct {
	VC         int `json:"vc" yaml:"vc"`
	Recency    int `json:"recency" yaml:"recency"`
	Salary     int `json:"salary" yaml:"salary"`
	Employment int `json:"employment" yaml:"employment"`
	Total      int `json:"total" yaml:"total"`
}

// ComputeScore returns the featured score of a record at time now
func ComputeScore(record *models.JobRecord, now time.Time) int {
	return Breakdown(record, now).Total
}

// Breakdown computes every score component. It never fails and never returns
// negative values.
func Breakdown(record *models.JobRecord, now time.Time) ScoreBreakdown {
	if record == nil {
		return ScoreBreakdown{}
	}

	b := ScoreBreakdown{
		VC:         vcPoints(record.Backers),
		Recency:    recencyPoints(record.PostedDate, now),
		Salary:     salaryPoints(record),
		Employment: employmentPoints(record.EmploymentType),
	}
	b.Total = b.VC + b.Recency + b.Salary + b.Employment
	return b
}

// vcPoints counts backer entries per tier. Repeated backer strings count once
// per occurrence.
func vcPoints(backers []string) int {
	total := 0
	for _, tier := range vcTiers {
		matches := 0
		for _, backer := range backers {
			if tierContains(tier, strings.ToLower(backer)) {
				matches++
			}
		}
		total += min(matches, maxMatchesPerTier) * tier.points
	}
	return min(total, maxVCPoints)
}

func tierContains(tier vcTier, backer string) bool {
	if backer == "" {
		return false
	}
	for _, member := range tier.members {
		if strings.Contains(backer, member) {
			return true
		}
	}
	return false
}

func recencyPoints(posted *time.Time, now time.Time) int {
	if posted == nil {
		return 0
	}
	days := int(now.Sub(*posted).Hours() / 24)
	if days < 0 {
		days = 0
	}
	if days >= recencyWindow {
		return 0
	}
	return maxRecencyPoints * (recencyWindow - days) / recencyWindow
}

func salaryPoints(record *models.JobRecord) int {
	var value float64
	switch {
	case record.SalaryMax != nil:
		value = float64(*record.SalaryMax)
	case record.SalaryMin != nil:
		value = float64(*record.SalaryMin)
	default:
		value = ParseSalary(record.Salary)
	}

	switch {
	case value >= salaryTopThreshold:
		return 30
	case value >= salaryMidThreshold:
		return 20
	case value >= salaryBaseThreshold:
		return 10
	default:
		return 0
	}
}

// ParseSalary extracts the largest number from free text. Values below 1000
// are read as thousands, so "150-180k" yields 180000.
func ParseSalary(text string) float64 {
	best := 0.0
	for _, match := range salaryNumberRE.FindAllString(text, -1) {
		v, err := strconv.ParseFloat(strings.ReplaceAll(match, ",", ""), 64)
		if err != nil {
			continue
		}
		if v > best {
			best = v
		}
	}
	if best > 0 && best < 1000 {
		best *= 1000
	}
	return best
}

func employmentPoints(employmentType string) int {
	t := strings.ToLower(employmentType)
	switch {
	case strings.Contains(t, "full"):
		return 15
	case strings.Contains(t, "part"):
		return 8
	case strings.Contains(t, "contract"):
		return 5
	default:
		return 0
	}
}
