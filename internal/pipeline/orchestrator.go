package pipeline

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"

	"github.com/ppiankov/claimlens/internal/extract"
	"github.com/ppiankov/claimlens/internal/gather"
	"github.com/ppiankov/claimlens/internal/judge"
	"github.com/ppiankov/claimlens/internal/logging"
	"github.com/ppiankov/claimlens/internal/model"
	"github.com/ppiankov/claimlens/internal/score"
)

const saveTimeout = 10 * time.Second

// Gatherer collects evidence for a run
type Gatherer interface {
	Gather(ctx context.Context, req gather.Request, progress func(gather.Progress)) (*gather.Result, error)
}

// Judge reviews one sentence
type Judge interface {
	Judge(ctx context.Context, sentence model.Sentence, evidence model.Evidence) (model.SentenceReview, error)
}

// Segmenter splits an article body into sentences
type Segmenter interface {
	Split(body string) ([]model.Sentence, error)
}

// Repository persists finished analyses
type Repository interface {
	SaveAnalysis(ctx context.Context, rec model.AnalysisRecord) error
}

// Orchestrator drives one analysis per Run call through gathering,
// judging and aggregation, streaming events to the caller.
type Orchestrator struct {
	gatherer   Gatherer
	judge      Judge
	segmenter  Segmenter
	aggregator *score.Aggregator
	repo       Repository
	search     model.SearchConfig
	cfg        model.PipelineConfig
	log        *logrus.Entry
	newID      func() string
	now        func() time.Time
}

// Option customizes an Orchestrator
type Option func(*Orchestrator)

// WithRepository saves every completed analysis to repo
func WithRepository(repo Repository) Option {
	return func(o *Orchestrator) { o.repo = repo }
}

// WithSegmenter replaces the default sentence segmenter
func WithSegmenter(s Segmenter) Option {
	return func(o *Orchestrator) { o.segmenter = s }
}

// WithLogger sets the log entry
func WithLogger(entry *logrus.Entry) Option {
	return func(o *Orchestrator) { o.log = entry }
}

// NewOrchestrator creates an orchestrator
func NewOrchestrator(g Gatherer, j Judge, cfg *model.Config, opts ...Option) *Orchestrator {
	o := &Orchestrator{
		gatherer:   g,
		judge:      j,
		segmenter:  extract.NewSegmenter(),
		aggregator: score.NewAggregator(cfg.Aggregate),
		search:     cfg.Search,
		cfg:        cfg.Pipeline,
		log:        logging.Discard(),
		newID:      uuid.NewString,
		now:        time.Now,
	}
	if o.cfg.GatherTimeout <= 0 {
		o.cfg.GatherTimeout = 2 * time.Minute
	}
	if o.cfg.EventBuffer < 0 {
		o.cfg.EventBuffer = 0
	}
	for _, opt := range opts {
		opt(o)
	}
	return o
}

// Run starts an analysis and returns its event stream. The channel is
// closed after the complete event, or without further events once ctx
// is cancelled.
func (o *Orchestrator) Run(ctx context.Context, req model.AnalysisRequest) <-chan model.Event {
	_, events := o.start(ctx, req)
	return events
}

// RunAnalysis is an alias for Run
func (o *Orchestrator) RunAnalysis(ctx context.Context, req model.AnalysisRequest) <-chan model.Event {
	return o.Run(ctx, req)
}

func (o *Orchestrator) start(ctx context.Context, req model.AnalysisRequest) (string, <-chan model.Event) {
	r := &run{
		o:      o,
		ctx:    ctx,
		req:    req.WithDefaults(o.search),
		state:  NewRunState(o.newID()),
		events: make(chan model.Event, o.cfg.EventBuffer),
	}
	r.log = o.log.WithField("run_id", r.state.ID)

	go r.execute()
	return r.state.ID, r.events
}

// Collect runs an analysis to completion and gathers its events.
// A failed run is reported through the outcome's Error; the returned
// error is only set when ctx ends the run early.
func (o *Orchestrator) Collect(ctx context.Context, req model.AnalysisRequest) (*model.AnalysisOutcome, error) {
	id, events := o.start(ctx, req)
	out := &model.AnalysisOutcome{RunID: id}

	completed := false
	for ev := range events {
		if out.Apply(ev) {
			completed = true
		}
	}

	if !completed {
		if err := ctx.Err(); err != nil {
			return out, err
		}
		return out, errors.New("event stream ended without complete")
	}
	return out, nil
}

// run is the per-request state machine. Only execute writes to events.
type run struct {
	o      *Orchestrator
	ctx    context.Context
	req    model.AnalysisRequest
	state  *RunState
	events chan model.Event
	log    *logrus.Entry
}

// emit sends ev unless the run was cancelled
func (r *run) emit(ev model.Event) bool {
	if r.ctx.Err() != nil {
		return false
	}
	select {
	case r.events <- ev:
		return true
	case <-r.ctx.Done():
		return false
	}
}

func (r *run) fail(info model.ErrorInfo) {
	r.log.WithFields(logrus.Fields{
		"code":  info.Code,
		"phase": r.state.Phase,
	}).Warn(info.Message)
	r.state.Fail(info)

	if r.emit(model.ErrorEvent(info)) {
		r.emit(model.CompleteEvent())
	}
}

func (r *run) cancelled() bool {
	if r.ctx.Err() == nil {
		return false
	}
	r.log.WithField("phase", r.state.Phase).Info("run cancelled")
	return true
}

func (r *run) execute() {
	defer close(r.events)
	defer r.state.Release()

	started := r.o.now()
	r.log.WithField("query", r.req.Query).Info("analysis started")

	// 1. Reject bad input before any external call
	if err := r.req.Validate(); err != nil {
		r.fail(errorInfo(err, r.state.Phase))
		return
	}
	sentences, err := r.o.segmenter.Split(r.req.TargetArticle.Body)
	if err != nil {
		r.fail(errorInfo(err, r.state.Phase))
		return
	}

	// 2. Gathering
	if !r.gatherEvidence() {
		return
	}

	// 3. Judging, strictly in sentence order
	if err := r.state.Transition(PhaseJudging); err != nil {
		r.fail(model.ErrorInfo{Code: model.ErrorCodeInternal, Message: err.Error()})
		return
	}
	if !r.emit(model.AnalysisStartEvent(len(sentences), r.req.TargetArticle)) {
		r.cancelled()
		return
	}
	for i, sentence := range sentences {
		if r.cancelled() {
			return
		}

		// A started judgment runs to completion under the judge's own timeout;
		// cancellation takes effect between sentences.
		review, err := r.o.judge.Judge(context.WithoutCancel(r.ctx), sentence, r.state.Evidence)
		if r.cancelled() {
			return
		}
		if err != nil {
			r.fail(errorInfo(err, r.state.Phase))
			return
		}
		if err := r.state.Append(review); err != nil {
			r.fail(model.ErrorInfo{Code: model.ErrorCodeInternal, Message: err.Error()})
			return
		}
		if review.Downgraded() {
			r.log.WithField("sentence", sentence.Index).Warn("sentence judgment downgraded")
		}
		if !r.emit(model.SentenceReviewEvent(review, i+1, len(sentences))) {
			r.cancelled()
			return
		}
	}

	// 4. Aggregating
	if err := r.state.Transition(PhaseAggregating); err != nil {
		r.fail(model.ErrorInfo{Code: model.ErrorCodeInternal, Message: err.Error()})
		return
	}
	if !r.emit(model.GeneratingSummaryEvent()) {
		r.cancelled()
		return
	}
	assessment := r.o.aggregator.Aggregate(r.state.Reviews)
	report := model.NewAnalysisReport(assessment, len(sentences), r.req.TargetArticle, r.state.Evidence)

	if err := r.state.Transition(PhaseDone); err != nil {
		r.fail(model.ErrorInfo{Code: model.ErrorCodeInternal, Message: err.Error()})
		return
	}
	r.save(report)

	r.log.WithFields(logrus.Fields{
		"sentences": len(sentences),
		"risk":      assessment.MisleadingRiskScore,
		"duration":  r.o.now().Sub(started).Round(time.Millisecond),
	}).Info("analysis complete")

	if r.emit(model.AnalysisCompleteEvent(report)) {
		r.emit(model.CompleteEvent())
	}
}

// gatherEvidence runs the gathering phase; false means the run is over
func (r *run) gatherEvidence() bool {
	if !r.emit(model.StatusEvent("Searching for reference articles...")) {
		r.cancelled()
		return false
	}

	gctx, cancel := context.WithTimeout(r.ctx, r.o.cfg.GatherTimeout)
	defer cancel()

	res, err := r.o.gatherer.Gather(gctx, gather.Request{
		Query:           r.req.Query,
		MaxResults:      r.req.MaxResults,
		MaxReferences:   r.req.MaxArticlesToFetch,
		PreferReputable: r.req.PreferReputable(),
	}, func(p gather.Progress) {
		msg := fmt.Sprintf("Fetched article %d of %d", p.Current, p.Total)
		if !p.OK {
			msg = fmt.Sprintf("Failed to fetch article %d of %d", p.Current, p.Total)
		}
		r.emit(model.ProgressEvent(p.Current, p.Total, msg))
	})
	if r.cancelled() {
		return false
	}
	if err != nil {
		r.fail(errorInfo(err, r.state.Phase))
		return false
	}

	for _, w := range res.Warnings {
		r.emit(model.WarningEvent(w))
	}
	if n := len(res.Evidence); n < r.req.MaxArticlesToFetch {
		r.emit(model.WarningEvent(fmt.Sprintf("Only %d of %d requested reference articles could be used", n, r.req.MaxArticlesToFetch)))
	}
	if !r.emit(model.FetchSummaryEvent(res.Summary)) {
		r.cancelled()
		return false
	}

	r.state.Evidence = res.Evidence
	return true
}

func (r *run) save(report model.AnalysisReport) {
	if r.o.repo == nil {
		return
	}

	ctx, cancel := context.WithTimeout(context.WithoutCancel(r.ctx), saveTimeout)
	defer cancel()

	rec := model.AnalysisRecord{
		ID:          r.state.ID,
		TargetURL:   r.req.TargetArticle.URL,
		TargetTitle: r.req.TargetArticle.Title,
		Query:       r.req.Query,
		CreatedAt:   r.o.now().UTC(),
		Report:      report,
		Reviews:     r.state.Reviews,
	}
	if err := r.o.repo.SaveAnalysis(ctx, rec); err != nil {
		r.log.WithError(err).Error("failed to save analysis")
	}
}

// errorInfo classifies a fatal error for the error event
func errorInfo(err error, phase Phase) model.ErrorInfo {
	switch {
	case model.IsInputError(err):
		return model.ErrorInfo{Code: model.ErrorCodeInput, Message: err.Error()}
	case errors.Is(err, model.ErrNoEvidence):
		return model.ErrorInfo{Code: model.ErrorCodeGathering, Message: "No reference articles could be fetched. Try a different query or disable reputable-only search."}
	case model.IsTimeout(err):
		return model.ErrorInfo{Code: model.ErrorCodeGathering, Message: "Evidence gathering timed out"}
	case errors.Is(err, judge.ErrInvalidSentence):
		return model.ErrorInfo{Code: model.ErrorCodeJudging, Message: err.Error()}
	case phase == PhaseGathering:
		return model.ErrorInfo{Code: model.ErrorCodeGathering, Message: err.Error()}
	case phase == PhaseJudging:
		return model.ErrorInfo{Code: model.ErrorCodeJudging, Message: err.Error()}
	default:
		return model.ErrorInfo{Code: model.ErrorCodeInternal, Message: err.Error()}
	}
}
