package models

import (
	"time"
)

// JobRecord represents a single job listing in the catalog
type JobRecord struct {
	ID             int64      `json:"id" yaml:"id" db:"id"`
	Title          string     `json:"title" yaml:"title" db:"title"`
	Company        string     `json:"company" yaml:"company" db:"company"`
	Location       string     `json:"location" yaml:"location" db:"location"`
	URL            string     `json:"url" yaml:"url" db:"url"`
	Source         string     `json:"source" yaml:"source" db:"source"` // crawler identity
	PostedDate     *time.Time `json:"postedDate,omitempty" yaml:"postedDate,omitempty" db:"posted_date"`
	Deadline       *time.Time `json:"deadline,omitempty" yaml:"deadline,omitempty" db:"deadline"`
	Description    string     `json:"description,omitempty" yaml:"description,omitempty" db:"description"`
	Salary         string     `json:"salary,omitempty" yaml:"salary,omitempty" db:"salary"`
	SalaryMin      *int       `json:"salaryMin,omitempty" yaml:"salaryMin,omitempty" db:"salary_min"`
	SalaryMax      *int       `json:"salaryMax,omitempty" yaml:"salaryMax,omitempty" db:"salary_max"`
	EmploymentType string     `json:"employmentType,omitempty" yaml:"employmentType,omitempty" db:"employment_type"`
	Backers        []string   `json:"backers,omitempty" yaml:"backers,omitempty" db:"backers"`
	IsActive       bool       `json:"isActive" yaml:"isActive" db:"is_active"`
	FeaturedScore  int        `json:"featuredScore" yaml:"featuredScore" db:"featured_score"`
	FeaturedPinned bool       `json:"featuredPinned" yaml:"featuredPinned" db:"featured_pinned"`
	IsFeatured     bool       `json:"isFeatured" yaml:"isFeatured" db:"is_featured"`
	FeaturedAt     *time.Time `json:"featuredAt,omitempty" yaml:"featuredAt,omitempty" db:"featured_at"`
	// Deactivation fields are set together on a true->false transition
	DeactivatedAt      *time.Time `json:"deactivatedAt,omitempty" yaml:"deactivatedAt,omitempty" db:"deactivated_at"`
	DeactivationReason *string    `json:"deactivationReason,omitempty" yaml:"deactivationReason,omitempty" db:"deactivation_reason"`
	CanonicalID        *int64     `json:"canonicalId,omitempty" yaml:"canonicalId,omitempty" db:"canonical_id"`
	CompanyKey         string     `json:"companyKey" yaml:"companyKey" db:"company_key"`
	DedupKey           string     `json:"dedupKey" yaml:"dedupKey" db:"dedup_key"`
	CreatedAt          time.Time  `json:"createdAt" yaml:"createdAt" db:"created_at"`
	UpdatedAt          time.Time  `json:"updatedAt" yaml:"updatedAt" db:"updated_at"`
}

// Reason returns the deactivation reason or an empty string
func (r *JobRecord) Reason() string {
	if r.DeactivationReason == nil {
		return ""
	}
	return *r.DeactivationReason
}

// AgeAnchor is the timestamp used to order records oldest first
func (r *JobRecord) AgeAnchor() time.Time {
	if r.PostedDate != nil {
		return *r.PostedDate
	}
	return r.CreatedAt
}

// ListFilter narrows ListActive queries
type ListFilter struct {
	CompanyKey string // empty means any company
	Source     string
	Limit      int
}

// ProbeCursor is a keyset position in the oldest-first probe order
type ProbeCursor struct {
	Anchor time.Time `json:"anchor"`
	ID     int64     `json:"id"`
}

// IsZero reports whether the cursor points at the start of the order
func (c *ProbeCursor) IsZero() bool {
	return c == nil || (c.ID == 0 && c.Anchor.IsZero())
}
