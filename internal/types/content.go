// Package types provides type definitions for structured data used throughout the newsroom pipeline.
//
//nolint:revive // types is a standard Go package name pattern
package types

import "time"

// ContentType identifies the kind of article the pipeline produces
type ContentType string

// Content types in rotation order
const (
	ContentTypeRoundup   ContentType = "job_roundup"
	ContentTypeSpotlight ContentType = "company_spotlight"
	ContentTypeTrend     ContentType = "market_trend"
)

// ContentTypeRotation is the fixed cycle the rotator walks through.
var ContentTypeRotation = []ContentType{
	ContentTypeRoundup,
	ContentTypeSpotlight,
	ContentTypeTrend,
}

// Valid reports whether t is one of the known content types
func (t ContentType) Valid() bool {
	for _, c := range ContentTypeRotation {
		if c == t {
			return true
		}
	}
	return false
}

// Label returns a human readable form, e.g. "job roundup"
func (t ContentType) Label() string {
	switch t {
	case ContentTypeRoundup:
		return "job roundup"
	case ContentTypeSpotlight:
		return "company spotlight"
	case ContentTypeTrend:
		return "market trend"
	default:
		return string(t)
	}
}

// Category is an article category
type Category string

// Article categories
const (
	CategoryFinance     Category = "Finance"
	CategoryMarketing   Category = "Marketing"
	CategoryEngineering Category = "Engineering"
	CategoryOperations  Category = "Operations"
	CategoryHR          Category = "HR"
	CategorySales       Category = "Sales"
	CategoryGeneral     Category = "General"
)

// CategoryRotation is the canonical order used to balance roundups.
// HR is a valid article category but is not part of the roundup cycle.
var CategoryRotation = []Category{
	CategoryFinance,
	CategoryMarketing,
	CategoryEngineering,
	CategoryOperations,
	CategorySales,
	CategoryGeneral,
}

// AllCategories lists every category the generator may return
var AllCategories = []Category{
	CategoryFinance,
	CategoryMarketing,
	CategoryEngineering,
	CategoryOperations,
	CategoryHR,
	CategorySales,
	CategoryGeneral,
}

// roleCategoryOther is the job-side name for the General article category
const roleCategoryOther = "Other"

// Valid reports whether c is a known article category
func (c Category) Valid() bool {
	for _, known := range AllCategories {
		if known == c {
			return true
		}
	}
	return false
}

// RoleCategory maps an article category to the job table's role_category value.
func (c Category) RoleCategory() string {
	if c == CategoryGeneral {
		return roleCategoryOther
	}
	return string(c)
}

// CategoryFromRole maps a job role_category to an article category.
// Unknown role categories map to General.
func CategoryFromRole(roleCategory string) Category {
	if roleCategory == roleCategoryOther {
		return CategoryGeneral
	}
	c := Category(roleCategory)
	if c.Valid() {
		return c
	}
	return CategoryGeneral
}

// Article is a published content unit
type Article struct {
	ID                 int64              `json:"id"`
	Slug               string             `json:"slug"`
	Title              string             `json:"title"`
	Content            string             `json:"content"`
	Excerpt            string             `json:"excerpt"`
	Category           Category           `json:"category"`
	ContentType        ContentType        `json:"content_type"`
	App                string             `json:"app"`
	Status             string             `json:"status"`
	AutoGenerated      bool               `json:"auto_generated"`
	GenerationMetadata GenerationMetadata `json:"generation_metadata"`
	FeaturedImageURL   *string            `json:"featured_asset_url,omitempty"`
	PublishedAt        time.Time          `json:"published_at"`
}

// ArticleStatusPublished is the only status this pipeline writes
const ArticleStatusPublished = "published"

// GenerationMetadata is stored as JSON alongside every generated article
type GenerationMetadata struct {
	RunID       string      `json:"run_id,omitempty"`
	GeneratedAt time.Time   `json:"generated_at"`
	ContentType ContentType `json:"content_type"`
	Category    Category    `json:"category,omitempty"`
	JobsUsed    []JobRef    `json:"jobs_used"`
	Model       string      `json:"model"`
	Generator   string      `json:"generator"`
}

// JobRef is the compact job reference kept in generation metadata
type JobRef struct {
	ID      string `json:"id"`
	Company string `json:"company"`
	Title   string `json:"title"`
}

// CoverageRecord records that a job contributed to an article
type CoverageRecord struct {
	JobID        string      `json:"job_id"`
	ArticleID    int64       `json:"article_id"`
	CoverageType ContentType `json:"coverage_type"`
	CoveredAt    time.Time   `json:"covered_at"`
}

// GenerationState is the singleton rotation cursor
type GenerationState struct {
	LastContentType *ContentType `json:"last_content_type,omitempty"`
	LastGeneratedAt *time.Time   `json:"last_generated_at,omitempty"`
	RunCount        int64        `json:"run_count"`
	Version         int64        `json:"version"`
}

// GeneratedArticle is the structured payload returned by the content generator
type GeneratedArticle struct {
	Title         string   `json:"title" validate:"required,max=100"`
	Excerpt       string   `json:"excerpt" validate:"required,max=300"`
	Content       string   `json:"content" validate:"required"`
	Category      Category `json:"category" validate:"required,oneof=Finance Marketing Engineering Operations HR Sales General"`
	SuggestedSlug string   `json:"suggested_slug" validate:"max=200"`
}
