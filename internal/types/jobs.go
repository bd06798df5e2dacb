package types

import "time"

// JobRecord is a job listing owned by the ingestion process. The pipeline never mutates it.
type JobRecord struct {
	ID                 string     `json:"id"`
	Title              string     `json:"title"`
	CompanyName        string     `json:"company_name"`
	CompanyDomain      *string    `json:"company_domain,omitempty"`
	Location           *string    `json:"location,omitempty"`
	RoleCategory       string     `json:"role_category"`
	SalaryMin          *int       `json:"salary_min,omitempty"`
	SalaryMax          *int       `json:"salary_max,omitempty"`
	IsRemote           bool       `json:"is_remote"`
	IsFractional       bool       `json:"is_fractional"`
	PostedDate         *time.Time `json:"posted_date,omitempty"`
	DescriptionSnippet *string    `json:"description_snippet,omitempty"`
}

// Ref returns the compact reference stored in generation metadata
func (j JobRecord) Ref() JobRef {
	return JobRef{ID: j.ID, Company: j.CompanyName, Title: j.Title}
}

// JobIDs extracts the ids of the given jobs, preserving order
func JobIDs(jobs []JobRecord) []string {
	ids := make([]string, 0, len(jobs))
	for _, j := range jobs {
		ids = append(ids, j.ID)
	}
	return ids
}

// JobQuery filters the active-jobs table for candidate selection
type JobQuery struct {
	// RoleCategory restricts to one job role_category; empty means any
	RoleCategory string
	// ExcludeCoverageType drops jobs covered by this content type since ExcludeSince; empty disables
	ExcludeCoverageType ContentType
	ExcludeSince        time.Time
	// ExcludeByCompany widens the exclusion to every job of a covered company
	ExcludeByCompany bool
	Limit            int
}
