package db

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/jackc/pgx/v5"

	"github.com/jonathan/jobs-newsroom/internal/types"
)

// -----------------------------------------------------------------------------
// Generation State
// -----------------------------------------------------------------------------

// GetGenerationState reads the singleton rotation cursor, creating the row if missing
func (db *DB) GetGenerationState(ctx context.Context) (types.GenerationState, error) {
	var state types.GenerationState
	var lastType *string
	var lastAt *time.Time

	err := db.pool.QueryRow(ctx,
		`SELECT last_content_type, last_generated_at, jobs_processed_count, version
		 FROM news_generation_state WHERE id = 1`,
	).Scan(&lastType, &lastAt, &state.RunCount, &state.Version)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			if _, err := db.pool.Exec(ctx,
				`INSERT INTO news_generation_state (id) VALUES (1) ON CONFLICT (id) DO NOTHING`,
			); err != nil {
				return state, fmt.Errorf("failed to initialize generation state: %w", err)
			}
			return types.GenerationState{}, nil
		}
		return state, fmt.Errorf("failed to get generation state: %w", err)
	}

	if lastType != nil && *lastType != "" {
		ct := types.ContentType(*lastType)
		state.LastContentType = &ct
	}
	state.LastGeneratedAt = lastAt
	return state, nil
}

// -----------------------------------------------------------------------------
// Articles
// -----------------------------------------------------------------------------

// CountRoundupsByCategory counts auto-generated roundups per category for an app
func (db *DB) CountRoundupsByCategory(ctx context.Context, app string) (map[types.Category]int, error) {
	rows, err := db.pool.Query(ctx,
		`SELECT category, COUNT(*)
		 FROM articles
		 WHERE article_type = $1 AND app = $2 AND auto_generated = true
		 GROUP BY category`,
		string(types.ContentTypeRoundup), app,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to count roundups: %w", err)
	}
	defer rows.Close()

	counts := make(map[types.Category]int)
	for rows.Next() {
		var category *string
		var count int64
		if err := rows.Scan(&category, &count); err != nil {
			return nil, fmt.Errorf("failed to scan roundup count: %w", err)
		}
		if category != nil {
			counts[types.Category(*category)] = int(count)
		}
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to count roundups: %w", err)
	}
	return counts, nil
}

// -----------------------------------------------------------------------------
// Jobs
// -----------------------------------------------------------------------------

// ListCandidateJobs returns active fractional jobs matching q, newest posting first
func (db *DB) ListCandidateJobs(ctx context.Context, q types.JobQuery) ([]types.JobRecord, error) {
	query, args := buildCandidateQuery(q)

	rows, err := db.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to list candidate jobs: %w", err)
	}
	defer rows.Close()

	var jobs []types.JobRecord
	for rows.Next() {
		var j types.JobRecord
		var roleCategory *string
		var isRemote *bool
		if err := rows.Scan(&j.ID, &j.Title, &j.CompanyName, &j.CompanyDomain, &j.Location,
			&roleCategory, &j.SalaryMin, &j.SalaryMax, &isRemote, &j.IsFractional, &j.PostedDate,
			&j.DescriptionSnippet); err != nil {
			return nil, fmt.Errorf("failed to scan job: %w", err)
		}
		if roleCategory != nil {
			j.RoleCategory = *roleCategory
		}
		j.IsRemote = isRemote != nil && *isRemote
		jobs = append(jobs, j)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to list candidate jobs: %w", err)
	}
	return jobs, nil
}

// buildCandidateQuery renders the candidate SQL and its positional arguments
func buildCandidateQuery(q types.JobQuery) (string, []any) {
	var sb strings.Builder
	sb.WriteString(`SELECT j.id::text, j.title, j.company_name, j.company_domain, j.location,
		       j.role_category, j.salary_min, j.salary_max, j.is_remote, j.is_fractional,
		       j.posted_date, j.description_snippet
		FROM jobs j
		WHERE j.is_active = true AND j.is_fractional = true`)
	args := []any{}
	argNum := 1

	if q.RoleCategory != "" {
		sb.WriteString(fmt.Sprintf(" AND j.role_category = $%d", argNum))
		args = append(args, q.RoleCategory)
		argNum++
	}

	if q.ExcludeCoverageType != "" {
		if q.ExcludeByCompany {
			sb.WriteString(fmt.Sprintf(`
		  AND NOT EXISTS (
		      SELECT 1 FROM job_news_coverage jnc
		      JOIN jobs cj ON cj.id::text = jnc.job_id
		      WHERE lower(cj.company_name) = lower(j.company_name)
		        AND jnc.coverage_type = $%d
		        AND jnc.covered_at > $%d
		  )`, argNum, argNum+1))
		} else {
			sb.WriteString(fmt.Sprintf(`
		  AND NOT EXISTS (
		      SELECT 1 FROM job_news_coverage jnc
		      WHERE jnc.job_id = j.id::text
		        AND jnc.coverage_type = $%d
		        AND jnc.covered_at > $%d
		  )`, argNum, argNum+1))
		}
		args = append(args, string(q.ExcludeCoverageType), q.ExcludeSince)
		argNum += 2
	}

	sb.WriteString(fmt.Sprintf(" ORDER BY j.posted_date DESC NULLS LAST LIMIT $%d", argNum))
	args = append(args, q.Limit)

	return sb.String(), args
}

// -----------------------------------------------------------------------------
// Company Brands
// -----------------------------------------------------------------------------

// GetCompanyLogo returns the primary logo URL for a company domain, or "" when unknown
func (db *DB) GetCompanyLogo(ctx context.Context, domain string) (string, error) {
	if domain == "" {
		return "", nil
	}

	var logosJSON []byte
	err := db.pool.QueryRow(ctx,
		`SELECT logos FROM company_brands WHERE domain = $1`,
		domain,
	).Scan(&logosJSON)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return "", nil
		}
		return "", fmt.Errorf("failed to get company logo: %w", err)
	}

	return parseLogo(logosJSON), nil
}

// parseLogo accepts {"primary": ..., "icon": ...} objects or plain arrays of URLs
func parseLogo(raw []byte) string {
	if len(raw) == 0 {
		return ""
	}

	var obj struct {
		Primary string `json:"primary"`
		Icon    string `json:"icon"`
	}
	if err := json.Unmarshal(raw, &obj); err == nil {
		if obj.Primary != "" {
			return obj.Primary
		}
		return obj.Icon
	}

	var list []string
	if err := json.Unmarshal(raw, &list); err == nil && len(list) > 0 {
		return list[0]
	}
	return ""
}
