// Package coverage selects jobs that have not been written about recently and
// records which jobs fed which article.
package coverage

import (
	"context"
	"fmt"
	"time"

	"github.com/jonathan/jobs-newsroom/internal/types"
)

// Default coverage windows and batch size
const (
	DefaultSpotlightWindow = 7 * 24 * time.Hour
	DefaultRoundupWindow   = 14 * 24 * time.Hour
	DefaultLimit           = 5

	// trendMultiplier widens the trend sample; diversity matters more than novelty there
	trendMultiplier = 2
)

// JobSource reads active jobs
type JobSource interface {
	ListCandidateJobs(ctx context.Context, q types.JobQuery) ([]types.JobRecord, error)
}

// Writer inserts coverage rows, skipping (job_id, article_id) pairs that already exist.
// It returns the number of rows actually inserted.
type Writer interface {
	InsertCoverage(ctx context.Context, records []types.CoverageRecord) (int, error)
}

// Windows holds the per-type recency windows
type Windows struct {
	Spotlight time.Duration
	Roundup   time.Duration
}

// DefaultWindows returns the 7 day spotlight and 14 day roundup windows
func DefaultWindows() Windows {
	return Windows{Spotlight: DefaultSpotlightWindow, Roundup: DefaultRoundupWindow}
}

// Tracker implements candidate selection and coverage recording
type Tracker struct {
	jobs    JobSource
	writer  Writer
	windows Windows
	now     func() time.Time
}

// NewTracker creates a Tracker. Zero windows fall back to the defaults.
func NewTracker(jobs JobSource, writer Writer, windows Windows) *Tracker {
	if windows.Spotlight <= 0 {
		windows.Spotlight = DefaultSpotlightWindow
	}
	if windows.Roundup <= 0 {
		windows.Roundup = DefaultRoundupWindow
	}
	return &Tracker{jobs: jobs, writer: writer, windows: windows, now: time.Now}
}

// WithClock returns a copy of the tracker using now as its clock
func (t *Tracker) WithClock(now func() time.Time) *Tracker {
	c := *t
	c.now = now
	return &c
}

// WithWriter returns a copy of the tracker that records through w, e.g. a transaction
func (t *Tracker) WithWriter(w Writer) *Tracker {
	c := *t
	c.writer = w
	return &c
}

// Windows returns the configured windows
func (t *Tracker) Windows() Windows {
	return t.windows
}

// Query builds the job query for a content type without running it
func (t *Tracker) Query(contentType types.ContentType, category *types.Category, limit int) (types.JobQuery, error) {
	if limit <= 0 {
		limit = DefaultLimit
	}
	now := t.now()

	switch contentType {
	case types.ContentTypeSpotlight:
		return types.JobQuery{
			ExcludeCoverageType: types.ContentTypeSpotlight,
			ExcludeSince:        now.Add(-t.windows.Spotlight),
			ExcludeByCompany:    true,
			Limit:               1,
		}, nil
	case types.ContentTypeRoundup:
		if category == nil {
			return types.JobQuery{}, fmt.Errorf("roundup selection requires a category")
		}
		return types.JobQuery{
			RoleCategory:        category.RoleCategory(),
			ExcludeCoverageType: types.ContentTypeRoundup,
			ExcludeSince:        now.Add(-t.windows.Roundup),
			Limit:               limit,
		}, nil
	case types.ContentTypeTrend:
		return types.JobQuery{Limit: limit * trendMultiplier}, nil
	default:
		return types.JobQuery{}, fmt.Errorf("unknown content type %q", contentType)
	}
}

// Select returns the candidate jobs for a content type, most recently posted first.
// An empty result is normal and returned without error.
func (t *Tracker) Select(ctx context.Context, contentType types.ContentType, category *types.Category, limit int) ([]types.JobRecord, error) {
	q, err := t.Query(contentType, category, limit)
	if err != nil {
		return nil, err
	}

	jobs, err := t.jobs.ListCandidateJobs(ctx, q)
	if err != nil {
		return nil, fmt.Errorf("failed to select %s candidates: %w", contentType, err)
	}
	if len(jobs) > q.Limit {
		jobs = jobs[:q.Limit]
	}
	return jobs, nil
}

// Record writes one coverage row per distinct job id. Re-recording the same
// article is a no-op for pairs that already exist.
func (t *Tracker) Record(ctx context.Context, jobIDs []string, articleID int64, contentType types.ContentType) error {
	if t.writer == nil {
		return fmt.Errorf("coverage writer not configured")
	}
	if len(jobIDs) == 0 {
		return nil
	}

	coveredAt := t.now()
	seen := make(map[string]bool, len(jobIDs))
	records := make([]types.CoverageRecord, 0, len(jobIDs))
	for _, id := range jobIDs {
		if seen[id] {
			continue
		}
		seen[id] = true
		records = append(records, types.CoverageRecord{
			JobID:        id,
			ArticleID:    articleID,
			CoverageType: contentType,
			CoveredAt:    coveredAt,
		})
	}

	if _, err := t.writer.InsertCoverage(ctx, records); err != nil {
		return fmt.Errorf("failed to record coverage for article %d: %w", articleID, err)
	}
	return nil
}
