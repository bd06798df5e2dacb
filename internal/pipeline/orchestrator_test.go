package pipeline

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zaptest/observer"

	"github.com/jonathan/jobs-newsroom/internal/generator"
	"github.com/jonathan/jobs-newsroom/internal/llm"
	"github.com/jonathan/jobs-newsroom/internal/memstore"
	"github.com/jonathan/jobs-newsroom/internal/observability"
	"github.com/jonathan/jobs-newsroom/internal/rotation"
	"github.com/jonathan/jobs-newsroom/internal/types"
)

var testNow = time.Date(2026, 5, 10, 9, 0, 0, 0, time.UTC)

// scriptedLLM returns a fixed response and counts calls
type scriptedLLM struct {
	response string
	err      error
	calls    int
	hook     func()
}

func (s *scriptedLLM) GenerateJSON(_ context.Context, _ llm.Prompt) (string, error) {
	s.calls++
	if s.hook != nil {
		s.hook()
	}
	return s.response, s.err
}

func (s *scriptedLLM) Model() string { return "test-model" }
func (s *scriptedLLM) Close() error  { return nil }

func validResponse(t *testing.T, category types.Category) string {
	t.Helper()
	b, err := json.Marshal(map[string]any{
		"title":          "The Part-Time Market This Week",
		"excerpt":        "What the latest roles tell us.",
		"content":        "## Overview\n\nDemand for fractional leaders keeps growing.",
		"category":       category,
		"suggested_slug": "part-time-market-this-week",
	})
	require.NoError(t, err)
	return string(b)
}

func makeJobs(prefix, role string, n int, posted time.Time) []types.JobRecord {
	jobs := make([]types.JobRecord, n)
	for i := range jobs {
		p := posted.Add(-time.Duration(i) * time.Hour)
		jobs[i] = types.JobRecord{
			ID:           fmt.Sprintf("%s-%d", prefix, i),
			Title:        fmt.Sprintf("%s role %d", role, i),
			CompanyName:  fmt.Sprintf("%s Co %d", prefix, i),
			RoleCategory: role,
			IsFractional: true,
			PostedDate:   &p,
		}
	}
	return jobs
}

func stateAt(ct types.ContentType, at time.Time, version int64) types.GenerationState {
	return types.GenerationState{LastContentType: &ct, LastGeneratedAt: &at, RunCount: version, Version: version}
}

type harness struct {
	store   *memstore.Store
	llm     *scriptedLLM
	orch    *Orchestrator
	logs    *observer.ObservedLogs
	metrics *observability.Metrics
	events  []ProgressEvent
}

func newHarness(t *testing.T, mode CommitMode) *harness {
	t.Helper()
	core, logs := observer.New(zap.DebugLevel)
	h := &harness{
		store:   memstore.New(),
		llm:     &scriptedLLM{},
		logs:    logs,
		metrics: observability.NewMetrics(prometheus.NewRegistry()),
	}
	gen := generator.New(h.llm, time.Second)
	h.orch = New(h.store, gen, Options{CommitMode: mode, GeneratorName: "gateway"}, zap.New(core), h.metrics).
		WithClock(func() time.Time { return testNow }).
		OnProgress(func(e ProgressEvent) { h.events = append(h.events, e) })
	return h
}

func requireAbort(t *testing.T, err error, reason AbortReason) *AbortError {
	t.Helper()
	var ae *AbortError
	require.True(t, errors.As(err, &ae), "expected AbortError, got %v", err)
	require.Equal(t, reason, ae.Reason, ae.Error())
	return ae
}

// =============================================================================
// Scenario Tests
// =============================================================================

func TestRun_ScenarioA_TrendAfterSpotlight(t *testing.T) {
	h := newHarness(t, CommitTransactional)
	h.store.SetState(stateAt(types.ContentTypeSpotlight, testNow.Add(-2*time.Hour), 7))
	h.store.AddJobs(makeJobs("job", "Finance", 6, testNow.Add(-24*time.Hour))...)
	h.llm.response = validResponse(t, types.CategoryGeneral)

	out, err := h.orch.Run(context.Background())
	require.NoError(t, err)

	assert.Equal(t, types.ContentTypeTrend, out.ContentType)
	assert.Nil(t, out.Category)
	assert.Equal(t, 6, out.JobsUsed)

	articles := h.store.Articles()
	require.Len(t, articles, 1)
	a := articles[0]
	assert.Equal(t, types.ContentTypeTrend, a.ContentType)
	assert.Equal(t, types.CategoryGeneral, a.Category)
	assert.Equal(t, "part-time", a.App)
	assert.Equal(t, types.ArticleStatusPublished, a.Status)
	assert.True(t, a.AutoGenerated)
	assert.Regexp(t, `^part-time-market-this-week-[0-9a-z]+$`, a.Slug)
	assert.Equal(t, "test-model", a.GenerationMetadata.Model)
	assert.Equal(t, "gateway", a.GenerationMetadata.Generator)
	assert.Equal(t, out.RunID, a.GenerationMetadata.RunID)
	assert.Len(t, a.GenerationMetadata.JobsUsed, 6)

	assert.Len(t, h.store.Coverage(), 6)
	for _, c := range h.store.Coverage() {
		assert.Equal(t, a.ID, c.ArticleID)
		assert.Equal(t, types.ContentTypeTrend, c.CoverageType)
	}

	state := h.store.State()
	require.NotNil(t, state.LastContentType)
	assert.Equal(t, types.ContentTypeTrend, *state.LastContentType)
	assert.Equal(t, testNow, *state.LastGeneratedAt)
	assert.Equal(t, int64(8), state.Version)

	assert.Equal(t, 1.0, testutil.ToFloat64(h.metrics.RunsTotal.WithLabelValues("market_trend", "done")))
}

func TestRun_ScenarioB_AllFinanceJobsRecentlyCovered(t *testing.T) {
	h := newHarness(t, CommitTransactional)
	before := stateAt(types.ContentTypeTrend, testNow.Add(-3*time.Hour), 2)
	h.store.SetState(before)

	jobs := makeJobs("fin", "Finance", 5, testNow.Add(-72*time.Hour))
	h.store.AddJobs(jobs...)
	for _, j := range jobs {
		h.store.SeedCoverage(types.CoverageRecord{
			JobID: j.ID, ArticleID: 99, CoverageType: types.ContentTypeRoundup,
			CoveredAt: testNow.Add(-48 * time.Hour),
		})
	}

	_, err := h.orch.Run(context.Background())
	ae := requireAbort(t, err, ReasonNoCandidates)
	assert.True(t, ae.Reason.Soft())
	assert.Equal(t, StageTypeSelected, ae.Stage)

	assert.Zero(t, h.llm.calls)
	assert.Empty(t, h.store.Articles())
	assert.Equal(t, before, h.store.State())
}

func TestRun_ScenarioC_RateLimited(t *testing.T) {
	h := newHarness(t, CommitTransactional)
	before := stateAt(types.ContentTypeRoundup, testNow.Add(-10*time.Minute), 3)
	h.store.SetState(before)
	h.store.AddJobs(makeJobs("job", "Sales", 3, testNow)...)

	_, err := h.orch.Run(context.Background())
	ae := requireAbort(t, err, ReasonRateLimited)
	assert.Equal(t, StageIdle, ae.Stage)
	assert.Contains(t, ae.Message, "2026-05-10T09:50:00Z")

	assert.Zero(t, h.llm.calls)
	assert.Empty(t, h.store.Articles())
	assert.Empty(t, h.store.Coverage())
	assert.Equal(t, before, h.store.State())

	var infos int
	for _, e := range h.logs.All() {
		assert.NotEqual(t, zap.ErrorLevel, e.Level, "soft abort must not log at error")
		if e.Message == "run skipped" {
			infos++
		}
	}
	assert.Equal(t, 1, infos)
}

func TestRun_ScenarioD_MalformedGeneratorOutput(t *testing.T) {
	h := newHarness(t, CommitTransactional)
	before := stateAt(types.ContentTypeRoundup, testNow.Add(-5*time.Hour), 1)
	h.store.SetState(before)
	h.store.AddJobs(makeJobs("job", "Marketing", 2, testNow)...)
	h.llm.response = `{"title": "Half an article",`

	_, err := h.orch.Run(context.Background())
	ae := requireAbort(t, err, ReasonGenerationFailed)
	assert.False(t, ae.Reason.Soft())
	var se *generator.SchemaError
	assert.True(t, errors.As(err, &se))

	assert.Equal(t, 1, h.llm.calls)
	assert.Empty(t, h.store.Articles())
	assert.Empty(t, h.store.Coverage())
	assert.Equal(t, before, h.store.State())
}

// =============================================================================
// Selection Tests
// =============================================================================

func TestRun_FirstRunIsFinanceRoundup(t *testing.T) {
	h := newHarness(t, CommitTransactional)
	h.store.AddJobs(makeJobs("fin", "Finance", 7, testNow)...)
	h.store.AddJobs(makeJobs("mkt", "Marketing", 2, testNow)...)
	h.llm.response = validResponse(t, types.CategoryMarketing)

	out, err := h.orch.Run(context.Background())
	require.NoError(t, err)

	assert.Equal(t, types.ContentTypeRoundup, out.ContentType)
	require.NotNil(t, out.Category)
	assert.Equal(t, types.CategoryFinance, *out.Category)
	assert.Equal(t, 5, out.JobsUsed)
	// Roundups keep the balanced category even if the model disagrees
	assert.Equal(t, types.CategoryFinance, out.Article.Category)
}

func TestRun_RoundupBalancesCategories(t *testing.T) {
	h := newHarness(t, CommitTransactional)
	h.store.SetState(stateAt(types.ContentTypeTrend, testNow.Add(-3*time.Hour), 5))
	h.store.SeedArticles(
		types.Article{Slug: "a", App: "part-time", ContentType: types.ContentTypeRoundup, Category: types.CategoryFinance, AutoGenerated: true},
		types.Article{Slug: "b", App: "part-time", ContentType: types.ContentTypeRoundup, Category: types.CategoryMarketing, AutoGenerated: true},
	)
	h.store.AddJobs(makeJobs("eng", "Engineering", 2, testNow)...)
	h.llm.response = validResponse(t, types.CategoryEngineering)

	out, err := h.orch.Run(context.Background())
	require.NoError(t, err)
	assert.Equal(t, types.CategoryEngineering, *out.Category)
}

func TestRun_GeneralRoundupUsesOtherRole(t *testing.T) {
	h := newHarness(t, CommitTransactional)
	h.store.SetState(stateAt(types.ContentTypeTrend, testNow.Add(-3*time.Hour), 5))
	var seeded []types.Article
	for i, c := range []types.Category{types.CategoryFinance, types.CategoryMarketing, types.CategoryEngineering, types.CategoryOperations, types.CategorySales} {
		seeded = append(seeded, types.Article{Slug: fmt.Sprintf("s%d", i), App: "part-time", ContentType: types.ContentTypeRoundup, Category: c, AutoGenerated: true})
	}
	h.store.SeedArticles(seeded...)
	h.store.AddJobs(makeJobs("oth", "Other", 1, testNow)...)
	h.llm.response = validResponse(t, types.CategoryGeneral)

	out, err := h.orch.Run(context.Background())
	require.NoError(t, err)
	assert.Equal(t, types.CategoryGeneral, *out.Category)
	assert.Equal(t, 1, out.JobsUsed)
}

func TestRun_SpotlightPicksOneJobAndLogo(t *testing.T) {
	h := newHarness(t, CommitTransactional)
	h.store.SetState(stateAt(types.ContentTypeRoundup, testNow.Add(-3*time.Hour), 1))

	domain := "acme.co.uk"
	jobs := makeJobs("job", "Operations", 3, testNow)
	jobs[0].CompanyDomain = &domain
	h.store.AddJobs(jobs...)
	h.store.SetLogo(domain, "https://cdn.example/acme.png")
	h.llm.response = validResponse(t, types.CategoryOperations)

	out, err := h.orch.Run(context.Background())
	require.NoError(t, err)

	assert.Equal(t, types.ContentTypeSpotlight, out.ContentType)
	assert.Equal(t, 1, out.JobsUsed)
	require.NotNil(t, out.Article.FeaturedImageURL)
	assert.Equal(t, "https://cdn.example/acme.png", *out.Article.FeaturedImageURL)
	assert.Equal(t, types.CategoryOperations, out.Article.Category)
}

func TestRun_StoreReadFailure(t *testing.T) {
	h := newHarness(t, CommitTransactional)
	h.store.SetState(stateAt(types.ContentTypeRoundup, testNow.Add(-3*time.Hour), 1))
	h.store.FailListJobs = errors.New("connection reset")

	_, err := h.orch.Run(context.Background())
	ae := requireAbort(t, err, ReasonStoreFailed)
	assert.False(t, ae.Reason.Soft())
}

// =============================================================================
// Commit Tests
// =============================================================================

func TestRun_Transactional_CoverageFailureRollsBackArticle(t *testing.T) {
	h := newHarness(t, CommitTransactional)
	before := stateAt(types.ContentTypeSpotlight, testNow.Add(-3*time.Hour), 4)
	h.store.SetState(before)
	h.store.AddJobs(makeJobs("job", "Sales", 2, testNow)...)
	h.store.FailInsertCoverage = errors.New("disk full")
	h.llm.response = validResponse(t, types.CategorySales)

	_, err := h.orch.Run(context.Background())
	ae := requireAbort(t, err, ReasonPersistenceFailed)
	assert.Nil(t, ae.Article)

	assert.Empty(t, h.store.Articles())
	assert.Empty(t, h.store.Coverage())
	assert.Equal(t, before, h.store.State())
}

func TestRun_Transactional_StateConflict(t *testing.T) {
	h := newHarness(t, CommitTransactional)
	h.store.SetState(stateAt(types.ContentTypeSpotlight, testNow.Add(-3*time.Hour), 4))
	h.store.AddJobs(makeJobs("job", "Sales", 2, testNow)...)
	h.llm.response = validResponse(t, types.CategorySales)
	// Another invocation commits while this one is waiting on the generator
	h.llm.hook = func() {
		require.NoError(t, h.store.AdvanceGenerationState(context.Background(), 4, types.ContentTypeTrend, testNow))
	}

	_, err := h.orch.Run(context.Background())
	ae := requireAbort(t, err, ReasonStateConflict)
	assert.True(t, ae.Reason.Soft())
	assert.True(t, errors.Is(err, types.ErrStateConflict))

	assert.Empty(t, h.store.Articles())
	assert.Empty(t, h.store.Coverage())
	assert.Equal(t, int64(5), h.store.State().Version)
}

func TestRun_Sequential_ArticleInsertFailure(t *testing.T) {
	h := newHarness(t, CommitSequential)
	h.store.AddJobs(makeJobs("fin", "Finance", 1, testNow)...)
	h.store.FailInsertArticle = errors.New("constraint violation")
	h.llm.response = validResponse(t, types.CategoryFinance)

	_, err := h.orch.Run(context.Background())
	ae := requireAbort(t, err, ReasonPersistenceFailed)
	assert.Equal(t, StageGenerated, ae.Stage)
	assert.Empty(t, h.store.Coverage())
	assert.Nil(t, h.store.State().LastContentType)
}

func TestRun_Sequential_StateFailureIsBookkeeping(t *testing.T) {
	h := newHarness(t, CommitSequential)
	h.store.AddJobs(makeJobs("fin", "Finance", 2, testNow)...)
	h.store.FailAdvanceState = errors.New("lock timeout")
	h.llm.response = validResponse(t, types.CategoryFinance)

	_, err := h.orch.Run(context.Background())
	ae := requireAbort(t, err, ReasonBookkeepingFailed)
	assert.Equal(t, StageCoverageRecorded, ae.Stage)
	require.NotNil(t, ae.Article)

	// Article and coverage stay; the cursor does not move
	require.Len(t, h.store.Articles(), 1)
	assert.Equal(t, ae.Article.ID, h.store.Articles()[0].ID)
	assert.Len(t, h.store.Coverage(), 2)
	assert.Nil(t, h.store.State().LastContentType)

	warnings := h.logs.FilterField(zap.Bool(observability.FieldConsistencyWarning, true)).All()
	require.Len(t, warnings, 1)
	assert.Equal(t, zap.ErrorLevel, warnings[0].Level)
}

func TestRun_Sequential_CoverageFailureIsBookkeeping(t *testing.T) {
	h := newHarness(t, CommitSequential)
	h.store.AddJobs(makeJobs("fin", "Finance", 2, testNow)...)
	h.store.FailInsertCoverage = errors.New("deadlock")
	h.llm.response = validResponse(t, types.CategoryFinance)

	_, err := h.orch.Run(context.Background())
	ae := requireAbort(t, err, ReasonBookkeepingFailed)
	assert.Equal(t, StagePersisted, ae.Stage)
	assert.Len(t, h.store.Articles(), 1)
	assert.Empty(t, h.store.Coverage())
}

// =============================================================================
// Cross-run Tests
// =============================================================================

func TestRun_ConsecutiveRunsRotateAndDoNotReuseJobs(t *testing.T) {
	h := newHarness(t, CommitTransactional)
	h.store.AddJobs(makeJobs("fin", "Finance", 3, testNow)...)
	h.llm.response = validResponse(t, types.CategoryFinance)

	clock := testNow
	h.orch.WithClock(func() time.Time { return clock })

	_, err := h.orch.Run(context.Background())
	require.NoError(t, err)

	// Within the minimum interval the next trigger is refused
	clock = clock.Add(30 * time.Minute)
	_, err = h.orch.Run(context.Background())
	requireAbort(t, err, ReasonRateLimited)

	clock = clock.Add(rotation.DefaultMinInterval)
	out, err := h.orch.Run(context.Background())
	require.NoError(t, err)
	assert.Equal(t, types.ContentTypeSpotlight, out.ContentType)

	assert.Len(t, h.store.Articles(), 2)
	seen := map[string]bool{}
	for _, c := range h.store.Coverage() {
		key := fmt.Sprintf("%s/%d", c.JobID, c.ArticleID)
		assert.False(t, seen[key], "duplicate coverage pair %s", key)
		seen[key] = true
	}
}

func TestRun_ProgressEvents(t *testing.T) {
	h := newHarness(t, CommitTransactional)
	h.store.AddJobs(makeJobs("fin", "Finance", 1, testNow)...)
	h.llm.response = validResponse(t, types.CategoryFinance)

	_, err := h.orch.Run(context.Background())
	require.NoError(t, err)

	var stages []Stage
	for _, e := range h.events {
		stages = append(stages, e.Stage)
	}
	assert.Equal(t, []Stage{
		StageRateChecked, StageTypeSelected, StageCandidatesSelected, StageGenerated,
		StagePersisted, StageCoverageRecorded, StageStateAdvanced, StageDone,
	}, stages)
}

func TestOptions_Normalize(t *testing.T) {
	o := New(memstore.New(), generator.New(&scriptedLLM{}, 0), Options{CommitMode: "bogus"}, nil, nil)
	opts := o.Options()

	assert.Equal(t, "part-time", opts.App)
	assert.Equal(t, 5, opts.Limit)
	assert.Equal(t, CommitTransactional, opts.CommitMode)
	assert.Equal(t, rotation.DefaultMinInterval, opts.Cadence.MinInterval)
}

func TestAbortError(t *testing.T) {
	cause := errors.New("boom")
	err := abort(ReasonPersistenceFailed, StageGenerated, "failed to insert article", cause)

	assert.Equal(t, "PersistenceFailed: failed to insert article: boom", err.Error())
	assert.True(t, errors.Is(err, cause))
	assert.Equal(t, "RateLimited: too soon", abort(ReasonRateLimited, StageIdle, "too soon", nil).Error())
}
