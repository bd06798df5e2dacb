// Package store declares the persistence contracts the pipeline runs against.
// internal/db implements them on PostgreSQL, internal/memstore in memory.
package store

import (
	"context"
	"time"

	"github.com/jonathan/jobs-newsroom/internal/types"
)

// Writer is the write surface of the commit protocol. Implementations must be
// usable both directly and inside a transaction.
type Writer interface {
	// InsertArticle persists a and returns its id. A slug collision returns types.ErrDuplicateSlug.
	InsertArticle(ctx context.Context, a *types.Article) (int64, error)
	// InsertCoverage inserts coverage rows, skipping existing (job_id, article_id) pairs.
	InsertCoverage(ctx context.Context, records []types.CoverageRecord) (int, error)
	// AdvanceGenerationState sets the rotation cursor only if the stored version equals
	// expectedVersion, otherwise it returns types.ErrStateConflict.
	AdvanceGenerationState(ctx context.Context, expectedVersion int64, contentType types.ContentType, at time.Time) error
}

// Reader is the read surface used before anything is written
type Reader interface {
	GetGenerationState(ctx context.Context) (types.GenerationState, error)
	CountRoundupsByCategory(ctx context.Context, app string) (map[types.Category]int, error)
	ListCandidateJobs(ctx context.Context, q types.JobQuery) ([]types.JobRecord, error)
	// GetCompanyLogo returns the primary logo URL for a company domain, or "" when unknown
	GetCompanyLogo(ctx context.Context, domain string) (string, error)
}

// Store is the full pipeline store
type Store interface {
	Reader
	Writer
	// InTx runs fn in a transaction. Every write made through the Writer passed to
	// fn is discarded when fn returns an error.
	InTx(ctx context.Context, fn func(tx Writer) error) error
}
