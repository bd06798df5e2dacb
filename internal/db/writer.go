package db

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5/pgconn"

	"github.com/jonathan/jobs-newsroom/internal/types"
)

// uniqueViolation is the PostgreSQL SQLSTATE for unique_violation
const uniqueViolation = "23505"

// writer implements store.Writer over either the pool or a transaction
type writer struct {
	q querier
}

// InsertArticle inserts a published article and returns its id
func (w *writer) InsertArticle(ctx context.Context, a *types.Article) (int64, error) {
	metadata, err := json.Marshal(a.GenerationMetadata)
	if err != nil {
		return 0, fmt.Errorf("failed to marshal generation metadata: %w", err)
	}

	var id int64
	err = w.q.QueryRow(ctx,
		`INSERT INTO articles (slug, title, content, excerpt, status, app, category,
		                       article_type, auto_generated, generation_metadata,
		                       featured_asset_url, published_at)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12)
		 RETURNING id`,
		a.Slug, a.Title, a.Content, a.Excerpt, a.Status, a.App, string(a.Category),
		string(a.ContentType), a.AutoGenerated, metadata, a.FeaturedImageURL, a.PublishedAt,
	).Scan(&id)
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == uniqueViolation {
			return 0, fmt.Errorf("%w: %s", types.ErrDuplicateSlug, a.Slug)
		}
		return 0, fmt.Errorf("failed to insert article: %w", err)
	}
	return id, nil
}

// InsertCoverage inserts one row per record, skipping existing (job_id, article_id) pairs
func (w *writer) InsertCoverage(ctx context.Context, records []types.CoverageRecord) (int, error) {
	inserted := 0
	for _, r := range records {
		tag, err := w.q.Exec(ctx,
			`INSERT INTO job_news_coverage (job_id, article_id, coverage_type, covered_at)
			 VALUES ($1, $2, $3, $4)
			 ON CONFLICT (job_id, article_id) DO NOTHING`,
			r.JobID, r.ArticleID, string(r.CoverageType), r.CoveredAt,
		)
		if err != nil {
			return inserted, fmt.Errorf("failed to insert coverage for job %s: %w", r.JobID, err)
		}
		inserted += int(tag.RowsAffected())
	}
	return inserted, nil
}

// AdvanceGenerationState moves the rotation cursor with a compare-and-swap on version
func (w *writer) AdvanceGenerationState(ctx context.Context, expectedVersion int64, contentType types.ContentType, at time.Time) error {
	tag, err := w.q.Exec(ctx,
		`UPDATE news_generation_state
		 SET last_content_type = $1,
		     last_generated_at = $2,
		     jobs_processed_count = jobs_processed_count + 1,
		     version = version + 1
		 WHERE id = 1 AND version = $3`,
		string(contentType), at, expectedVersion,
	)
	if err != nil {
		return fmt.Errorf("failed to advance generation state: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return types.ErrStateConflict
	}
	return nil
}
