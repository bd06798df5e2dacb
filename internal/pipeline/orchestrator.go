// Package pipeline sequences one newsroom run: rate check, type and category
// selection, candidate selection, generation, and the commit of the article with
// its coverage rows and the rotation cursor.
package pipeline

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/jonathan/jobs-newsroom/internal/coverage"
	"github.com/jonathan/jobs-newsroom/internal/generator"
	"github.com/jonathan/jobs-newsroom/internal/observability"
	"github.com/jonathan/jobs-newsroom/internal/rotation"
	"github.com/jonathan/jobs-newsroom/internal/slug"
	"github.com/jonathan/jobs-newsroom/internal/store"
	"github.com/jonathan/jobs-newsroom/internal/types"
)

// DefaultApp is the site key written on every article
const DefaultApp = "part-time"

// Generator drafts an article from candidate jobs
type Generator interface {
	Generate(ctx context.Context, req generator.Request) generator.Result
	Model() string
}

// Options configures an Orchestrator
type Options struct {
	App        string
	Limit      int
	CommitMode CommitMode
	Cadence    rotation.Cadence
	Windows    coverage.Windows
	// GeneratorName is recorded in generation metadata, e.g. "gateway"
	GeneratorName string
}

func (o *Options) normalize() {
	if o.App == "" {
		o.App = DefaultApp
	}
	if o.Limit <= 0 {
		o.Limit = coverage.DefaultLimit
	}
	if !o.CommitMode.Valid() {
		o.CommitMode = CommitTransactional
	}
	o.Cadence = rotation.NewCadence(o.Cadence.MinInterval)
}

// Outcome describes a run that reached Done
type Outcome struct {
	RunID       string
	ContentType types.ContentType
	Category    *types.Category
	Article     *types.Article
	JobsUsed    int
}

// Orchestrator runs the newsroom pipeline against a store and a generator
type Orchestrator struct {
	store      store.Store
	tracker    *coverage.Tracker
	gen        Generator
	slugs      *slug.Allocator
	opts       Options
	logger     *zap.Logger
	metrics    *observability.Metrics
	now        func() time.Time
	onProgress ProgressCallback
}

// New creates an Orchestrator. A nil logger discards logs; nil metrics are not recorded.
func New(st store.Store, gen Generator, opts Options, logger *zap.Logger, metrics *observability.Metrics) *Orchestrator {
	opts.normalize()
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Orchestrator{
		store:   st,
		tracker: coverage.NewTracker(st, st, opts.Windows),
		gen:     gen,
		slugs:   slug.NewAllocator(),
		opts:    opts,
		logger:  logger,
		metrics: metrics,
		now:     time.Now,
	}
}

// WithClock makes the orchestrator and its collaborators use now
func (o *Orchestrator) WithClock(now func() time.Time) *Orchestrator {
	o.now = now
	o.tracker = o.tracker.WithClock(now)
	o.slugs = slug.NewAllocatorWithClock(now)
	return o
}

// OnProgress registers a callback for stage transitions
func (o *Orchestrator) OnProgress(cb ProgressCallback) *Orchestrator {
	o.onProgress = cb
	return o
}

// Options returns the normalized options
func (o *Orchestrator) Options() Options {
	return o.opts
}

// run carries the per-invocation values through the stages
type run struct {
	id          string
	log         *zap.Logger
	stage       Stage
	state       types.GenerationState
	contentType types.ContentType
	category    *types.Category
	jobs        []types.JobRecord
	article     *types.Article
}

// Run executes one pipeline invocation. Every run that does not reach Done returns
// an *AbortError; errors.As distinguishes soft and hard aborts by Reason.
func (o *Orchestrator) Run(ctx context.Context) (*Outcome, error) {
	r := &run{id: uuid.NewString(), stage: StageIdle}
	r.log = o.logger.With(zap.String(observability.FieldRunID, r.id))
	start := o.now()

	out, err := o.execute(ctx, r)
	o.finish(r, err, o.now().Sub(start))
	return out, err
}

func (o *Orchestrator) execute(ctx context.Context, r *run) (*Outcome, error) {
	state, err := o.store.GetGenerationState(ctx)
	if err != nil {
		return nil, abort(ReasonStoreFailed, r.stage, "failed to read generation state", err)
	}
	r.state = state

	// Idle -> RateChecked
	if !o.opts.Cadence.ShouldRun(state, o.now()) {
		next := o.opts.Cadence.NextAllowedAt(state)
		return nil, abort(ReasonRateLimited, r.stage,
			fmt.Sprintf("Rate limited - last generation was too recent (next run allowed at %s)", next.UTC().Format(time.RFC3339)), nil)
	}
	o.advance(r, StageRateChecked, "rate check passed", nil)

	// RateChecked -> TypeSelected
	r.contentType = rotation.NextContentType(state)
	if r.contentType == types.ContentTypeRoundup {
		counts, err := o.store.CountRoundupsByCategory(ctx, o.opts.App)
		if err != nil {
			return nil, abort(ReasonStoreFailed, r.stage, "failed to count roundups", err)
		}
		c := rotation.NextCategory(counts)
		r.category = &c
	}
	r.log = r.log.With(zap.String(observability.FieldContentType, string(r.contentType)))
	if r.category != nil {
		r.log = r.log.With(zap.String(observability.FieldCategory, string(*r.category)))
	}
	o.advance(r, StageTypeSelected, fmt.Sprintf("selected %s", r.contentType.Label()), nil)

	// TypeSelected -> CandidatesSelected
	jobs, err := o.tracker.Select(ctx, r.contentType, r.category, o.opts.Limit)
	if err != nil {
		return nil, abort(ReasonStoreFailed, r.stage, "failed to select candidate jobs", err)
	}
	if len(jobs) == 0 {
		return nil, abort(ReasonNoCandidates, r.stage, "No uncovered jobs available for content generation", nil)
	}
	r.jobs = jobs
	r.log.Info("candidates selected", zap.Int(observability.FieldJobCount, len(jobs)))
	o.advance(r, StageCandidatesSelected, fmt.Sprintf("found %d jobs to cover", len(jobs)), jobs)

	// CandidatesSelected -> Generated
	res := o.gen.Generate(ctx, generator.Request{
		ContentType: r.contentType,
		Category:    r.category,
		Jobs:        jobs,
	})
	o.metrics.RecordGeneration(string(r.contentType), res.Kind.String(), res.Latency)
	if !res.OK() {
		return nil, abort(ReasonGenerationFailed, r.stage,
			fmt.Sprintf("article generation failed (%s)", res.Kind), res.Err)
	}
	r.article = o.buildArticle(ctx, r, res.Article)
	o.advance(r, StageGenerated, "article generated", r.article)

	if o.opts.CommitMode == CommitSequential {
		err = o.commitSequential(ctx, r)
	} else {
		err = o.commitTransactional(ctx, r)
	}
	if err != nil {
		return nil, err
	}

	o.advance(r, StageDone, fmt.Sprintf("created article %s", r.article.Slug), r.article)
	return &Outcome{
		RunID:       r.id,
		ContentType: r.contentType,
		Category:    r.category,
		Article:     r.article,
		JobsUsed:    len(r.jobs),
	}, nil
}

// buildArticle turns the generated payload into the row to insert
func (o *Orchestrator) buildArticle(ctx context.Context, r *run, g *types.GeneratedArticle) *types.Article {
	now := o.now()

	category := g.Category
	if r.category != nil {
		// Balancing counts stored categories, so roundups keep the balanced target
		category = *r.category
	}

	refs := make([]types.JobRef, 0, len(r.jobs))
	for _, j := range r.jobs {
		refs = append(refs, j.Ref())
	}

	return &types.Article{
		Slug:          o.slugs.Allocate(slug.Seed(g.SuggestedSlug, g.Title)),
		Title:         g.Title,
		Content:       g.Content,
		Excerpt:       g.Excerpt,
		Category:      category,
		ContentType:   r.contentType,
		App:           o.opts.App,
		Status:        types.ArticleStatusPublished,
		AutoGenerated: true,
		GenerationMetadata: types.GenerationMetadata{
			RunID:       r.id,
			GeneratedAt: now,
			ContentType: r.contentType,
			Category:    category,
			JobsUsed:    refs,
			Model:       o.gen.Model(),
			Generator:   o.opts.GeneratorName,
		},
		FeaturedImageURL: o.lookupLogo(ctx, r),
		PublishedAt:      now,
	}
}

// lookupLogo is best effort: any failure leaves the article without an image
func (o *Orchestrator) lookupLogo(ctx context.Context, r *run) *string {
	first := r.jobs[0]
	if first.CompanyDomain == nil || *first.CompanyDomain == "" {
		return nil
	}
	url, err := o.store.GetCompanyLogo(ctx, *first.CompanyDomain)
	if err != nil {
		r.log.Warn("company logo lookup failed", zap.Error(err))
		return nil
	}
	if url == "" {
		return nil
	}
	return &url
}

// commitTransactional writes the article, its coverage, and the state advance atomically
func (o *Orchestrator) commitTransactional(ctx context.Context, r *run) error {
	var articleID int64
	err := o.store.InTx(ctx, func(tx store.Writer) error {
		id, err := tx.InsertArticle(ctx, r.article)
		if err != nil {
			return fmt.Errorf("failed to insert article: %w", err)
		}
		articleID = id

		if err := o.tracker.WithWriter(tx).Record(ctx, types.JobIDs(r.jobs), id, r.contentType); err != nil {
			return err
		}
		return tx.AdvanceGenerationState(ctx, r.state.Version, r.contentType, o.now())
	})
	if err != nil {
		if errors.Is(err, types.ErrStateConflict) {
			return abort(ReasonStateConflict, r.stage,
				"Another run advanced the rotation first; nothing was published", err)
		}
		return abort(ReasonPersistenceFailed, r.stage, "failed to commit article", err)
	}

	r.article.ID = articleID
	r.log = r.log.With(zap.Int64(observability.FieldArticleID, articleID))
	o.advance(r, StagePersisted, "article persisted", nil)
	o.advance(r, StageCoverageRecorded, "coverage recorded", nil)
	o.advance(r, StageStateAdvanced, "generation state advanced", nil)
	return nil
}

// commitSequential writes in order without a transaction. Failures after the article
// insert leave it published and are reported as BookkeepingFailed.
func (o *Orchestrator) commitSequential(ctx context.Context, r *run) error {
	id, err := o.store.InsertArticle(ctx, r.article)
	if err != nil {
		return abort(ReasonPersistenceFailed, r.stage, "failed to insert article", err)
	}
	r.article.ID = id
	r.log = r.log.With(zap.Int64(observability.FieldArticleID, id))
	o.advance(r, StagePersisted, "article persisted", nil)

	if err := o.tracker.Record(ctx, types.JobIDs(r.jobs), id, r.contentType); err != nil {
		return o.bookkeepingFailed(r, "failed to record coverage", err)
	}
	o.advance(r, StageCoverageRecorded, "coverage recorded", nil)

	if err := o.store.AdvanceGenerationState(ctx, r.state.Version, r.contentType, o.now()); err != nil {
		return o.bookkeepingFailed(r, "failed to advance generation state", err)
	}
	o.advance(r, StageStateAdvanced, "generation state advanced", nil)
	return nil
}

func (o *Orchestrator) bookkeepingFailed(r *run, message string, err error) *AbortError {
	e := abort(ReasonBookkeepingFailed, r.stage, message, err)
	e.Article = r.article
	return e
}

func (o *Orchestrator) advance(r *run, stage Stage, message string, content any) {
	r.stage = stage
	r.log.Debug(message, zap.String("stage", string(stage)))
	if o.onProgress != nil {
		o.onProgress(ProgressEvent{RunID: r.id, Stage: stage, Message: message, Content: content})
	}
}

// finish logs and counts the run outcome
func (o *Orchestrator) finish(r *run, err error, elapsed time.Duration) {
	duration := zap.Int64(observability.FieldDurationMS, elapsed.Milliseconds())

	if err == nil {
		r.log.Info("article published",
			zap.String(observability.FieldSlug, r.article.Slug),
			zap.Int(observability.FieldJobCount, len(r.jobs)),
			duration)
		o.metrics.RecordRun(string(r.contentType), string(StageDone))
		o.metrics.RecordPublished(string(r.contentType), string(r.article.Category))
		return
	}

	var ae *AbortError
	if !errors.As(err, &ae) {
		r.log.Error("run failed", zap.Error(err), duration)
		o.metrics.RecordRun(string(r.contentType), "error")
		return
	}

	reason := zap.String(observability.FieldReason, string(ae.Reason))
	switch {
	case ae.Reason == ReasonBookkeepingFailed:
		r.log.Error("article published without complete bookkeeping",
			reason,
			zap.Bool(observability.FieldConsistencyWarning, true),
			zap.String(observability.FieldSlug, ae.Article.Slug),
			zap.String("stage", string(ae.Stage)),
			zap.Error(ae.Err),
			duration)
		// The article is live even though bookkeeping failed
		o.metrics.RecordPublished(string(r.contentType), string(ae.Article.Category))
	case ae.Reason.Soft():
		r.log.Info("run skipped", reason, zap.String("message", ae.Message), duration)
	default:
		r.log.Error("run aborted", reason, zap.String("message", ae.Message), zap.Error(ae.Err), duration)
	}
	o.metrics.RecordRun(string(r.contentType), string(ae.Reason))
	if o.onProgress != nil {
		o.onProgress(ProgressEvent{RunID: r.id, Stage: StageAborted, Message: ae.Error()})
	}
}
