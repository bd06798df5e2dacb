// Package memstore is an in-memory implementation of the pipeline store. It backs
// local dry runs of the generate command and the pipeline tests.
package memstore

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/jonathan/jobs-newsroom/internal/store"
	"github.com/jonathan/jobs-newsroom/internal/types"
)

var _ store.Store = (*Store)(nil)

// Store holds articles, jobs, coverage, and the generation state in memory.
// It is safe for concurrent use.
type Store struct {
	mu       sync.Mutex
	articles []types.Article
	jobs     []types.JobRecord
	inactive map[string]bool
	coverage []types.CoverageRecord
	state    types.GenerationState
	logos    map[string]string
	nextID   int64

	// Fail* inject errors into the matching write; used by tests
	FailInsertArticle  error
	FailInsertCoverage error
	FailAdvanceState   error
	FailListJobs       error
}

// New creates an empty store
func New() *Store {
	return &Store{
		inactive: make(map[string]bool),
		logos:    make(map[string]string),
		nextID:   1,
	}
}

// AddJobs appends active jobs. Only jobs flagged IsFractional are ever listed.
func (s *Store) AddJobs(jobs ...types.JobRecord) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.jobs = append(s.jobs, jobs...)
}

// Deactivate marks a job as inactive
func (s *Store) Deactivate(jobID string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.inactive[jobID] = true
}

// SetState replaces the generation state
func (s *Store) SetState(state types.GenerationState) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.state = state
}

// SetLogo registers a logo URL for a company domain
func (s *Store) SetLogo(domain, url string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.logos[domain] = url
}

// SeedCoverage inserts coverage rows directly, bypassing article checks
func (s *Store) SeedCoverage(records ...types.CoverageRecord) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.coverage = append(s.coverage, records...)
}

// SeedArticles inserts articles directly, assigning ids
func (s *Store) SeedArticles(articles ...types.Article) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, a := range articles {
		a.ID = s.nextID
		s.nextID++
		s.articles = append(s.articles, a)
	}
}

// Articles returns a copy of all stored articles
func (s *Store) Articles() []types.Article {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]types.Article(nil), s.articles...)
}

// Coverage returns a copy of all coverage rows
func (s *Store) Coverage() []types.CoverageRecord {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]types.CoverageRecord(nil), s.coverage...)
}

// State returns the current generation state
func (s *Store) State() types.GenerationState {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state
}

// GetGenerationState implements the pipeline store
func (s *Store) GetGenerationState(_ context.Context) (types.GenerationState, error) {
	return s.State(), nil
}

// CountRoundupsByCategory counts auto-generated roundups per category for app
func (s *Store) CountRoundupsByCategory(_ context.Context, app string) (map[types.Category]int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	counts := make(map[types.Category]int)
	for _, a := range s.articles {
		if a.ContentType == types.ContentTypeRoundup && a.AutoGenerated && a.App == app {
			counts[a.Category]++
		}
	}
	return counts, nil
}

// ListCandidateJobs applies q to the active fractional jobs, newest posting first, undated last
func (s *Store) ListCandidateJobs(_ context.Context, q types.JobQuery) ([]types.JobRecord, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.FailListJobs != nil {
		return nil, s.FailListJobs
	}

	excludedJobs := make(map[string]bool)
	excludedCompanies := make(map[string]bool)
	if q.ExcludeCoverageType != "" {
		byID := make(map[string]types.JobRecord, len(s.jobs))
		for _, j := range s.jobs {
			byID[j.ID] = j
		}
		for _, c := range s.coverage {
			if c.CoverageType != q.ExcludeCoverageType || !c.CoveredAt.After(q.ExcludeSince) {
				continue
			}
			excludedJobs[c.JobID] = true
			if j, ok := byID[c.JobID]; ok {
				excludedCompanies[strings.ToLower(j.CompanyName)] = true
			}
		}
	}

	var out []types.JobRecord
	for _, j := range s.jobs {
		if s.inactive[j.ID] || !j.IsFractional {
			continue
		}
		if q.RoleCategory != "" && j.RoleCategory != q.RoleCategory {
			continue
		}
		if excludedJobs[j.ID] {
			continue
		}
		if q.ExcludeByCompany && excludedCompanies[strings.ToLower(j.CompanyName)] {
			continue
		}
		out = append(out, j)
	}

	sort.SliceStable(out, func(a, b int) bool {
		pa, pb := out[a].PostedDate, out[b].PostedDate
		switch {
		case pa == nil:
			return false
		case pb == nil:
			return true
		default:
			return pa.After(*pb)
		}
	})

	if q.Limit > 0 && len(out) > q.Limit {
		out = out[:q.Limit]
	}
	return out, nil
}

// GetCompanyLogo returns the registered logo for domain, or "" if none
func (s *Store) GetCompanyLogo(_ context.Context, domain string) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.logos[domain], nil
}

// InsertArticle stores an article and returns its id
func (s *Store) InsertArticle(_ context.Context, a *types.Article) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.insertArticle(a)
}

func (s *Store) insertArticle(a *types.Article) (int64, error) {
	if s.FailInsertArticle != nil {
		return 0, s.FailInsertArticle
	}
	for _, existing := range s.articles {
		if existing.Slug == a.Slug {
			return 0, fmt.Errorf("%w: %s", types.ErrDuplicateSlug, a.Slug)
		}
	}
	stored := *a
	stored.ID = s.nextID
	s.nextID++
	s.articles = append(s.articles, stored)
	return stored.ID, nil
}

// InsertCoverage inserts records, skipping existing (job_id, article_id) pairs
func (s *Store) InsertCoverage(_ context.Context, records []types.CoverageRecord) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.insertCoverage(records)
}

func (s *Store) insertCoverage(records []types.CoverageRecord) (int, error) {
	if s.FailInsertCoverage != nil {
		return 0, s.FailInsertCoverage
	}
	inserted := 0
	for _, r := range records {
		if s.hasPair(r.JobID, r.ArticleID) {
			continue
		}
		s.coverage = append(s.coverage, r)
		inserted++
	}
	return inserted, nil
}

func (s *Store) hasPair(jobID string, articleID int64) bool {
	for _, c := range s.coverage {
		if c.JobID == jobID && c.ArticleID == articleID {
			return true
		}
	}
	return false
}

// AdvanceGenerationState moves the cursor if the stored version still equals expectedVersion
func (s *Store) AdvanceGenerationState(_ context.Context, expectedVersion int64, contentType types.ContentType, at time.Time) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.advance(expectedVersion, contentType, at)
}

func (s *Store) advance(expectedVersion int64, contentType types.ContentType, at time.Time) error {
	if s.FailAdvanceState != nil {
		return s.FailAdvanceState
	}
	if s.state.Version != expectedVersion {
		return types.ErrStateConflict
	}
	ct := contentType
	ts := at
	s.state.LastContentType = &ct
	s.state.LastGeneratedAt = &ts
	s.state.RunCount++
	s.state.Version++
	return nil
}

// InTx runs fn while holding the store lock and restores the previous contents if fn fails
func (s *Store) InTx(ctx context.Context, fn func(tx store.Writer) error) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	tx := &txStore{s: s}
	savedArticles := append([]types.Article(nil), s.articles...)
	savedCoverage := append([]types.CoverageRecord(nil), s.coverage...)
	savedState := s.state
	savedNextID := s.nextID

	if err := fn(tx); err != nil {
		s.articles = savedArticles
		s.coverage = savedCoverage
		s.state = savedState
		s.nextID = savedNextID
		return err
	}
	return nil
}

// txStore writes through to the locked store
type txStore struct {
	s *Store
}

func (t *txStore) InsertArticle(_ context.Context, a *types.Article) (int64, error) {
	return t.s.insertArticle(a)
}

func (t *txStore) InsertCoverage(_ context.Context, records []types.CoverageRecord) (int, error) {
	return t.s.insertCoverage(records)
}

func (t *txStore) AdvanceGenerationState(_ context.Context, expectedVersion int64, contentType types.ContentType, at time.Time) error {
	return t.s.advance(expectedVersion, contentType, at)
}
