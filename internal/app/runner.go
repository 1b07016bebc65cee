package app

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"

	"sanctionsbot/internal/observability"
	"sanctionsbot/internal/publisher"
	"sanctionsbot/internal/watchlist"
	logx "sanctionsbot/pkg/logx"
)

// ErrRunInProgress is returned when a run is requested while another is active.
var ErrRunInProgress = errors.New("run already in progress")

type Outcome string

const (
	OutcomeBootstrap     Outcome = "bootstrap"
	OutcomeNoChange      Outcome = "no_change"
	OutcomePublished     Outcome = "published"
	OutcomePartial       Outcome = "partial"        // some publishers failed
	OutcomePublishFailed Outcome = "publish_failed" // every publisher failed
	OutcomeFailed        Outcome = "failed"         // fetch or storage error
	OutcomeSkipped       Outcome = "skipped"
)

// RunReport summarizes one cycle.
type RunReport struct {
	ID            string
	Outcome       Outcome
	Added         int
	Removed       int
	ListSize      int
	Published     []string // platforms that accepted every chunk
	PublishErrors []error
	Persisted     bool
	StartedAt     time.Time
	Took          time.Duration
}

// Runner executes fetch → compare → publish → persist cycles. Runs never overlap.
type Runner struct {
	fetcher Fetcher
	store   SnapshotStore
	log     logx.Logger
	metrics *observability.Metrics
	now     func() time.Time

	// guarded by cfgMu; Reconfigure swaps them between runs
	cfgMu            sync.RWMutex
	pubs             []publisher.Publisher
	separator        string
	persistOnFailure bool

	mu   sync.Mutex // held for the duration of a run
	last atomic.Pointer[RunReport]
}

// policy is the per-run copy of the reconfigurable settings.
type policy struct {
	pubs             []publisher.Publisher
	separator        string
	persistOnFailure bool
}

type RunnerOption func(*Runner)

func WithRunLogger(log logx.Logger) RunnerOption { return func(r *Runner) { r.log = log } }

func WithMetrics(m *observability.Metrics) RunnerOption { return func(r *Runner) { r.metrics = m } }

func WithClock(now func() time.Time) RunnerOption { return func(r *Runner) { r.now = now } }

// WithSeparator sets the text placed between per-source lines.
func WithSeparator(sep string) RunnerOption { return func(r *Runner) { r.separator = sep } }

// WithPersistOnPublishFailure controls whether a run that failed to publish
// still saves the new snapshot. Default true: a failed alert is dropped rather
// than repeated on every following run.
func WithPersistOnPublishFailure(enabled bool) RunnerOption {
	return func(r *Runner) { r.persistOnFailure = enabled }
}

func NewRunner(f Fetcher, s SnapshotStore, pubs []Publisher, opts ...RunnerOption) *Runner {
	r := &Runner{
		fetcher:          f,
		store:            s,
		log:              logx.Nop(),
		now:              time.Now,
		persistOnFailure: true,
	}
	r.pubs = toPublishers(pubs)
	for _, o := range opts {
		o(r)
	}
	return r
}

// Reconfigure replaces the publishers and applies opts. A run in progress
// keeps the settings it started with.
func (r *Runner) Reconfigure(pubs []Publisher, opts ...RunnerOption) {
	r.cfgMu.Lock()
	defer r.cfgMu.Unlock()
	r.pubs = toPublishers(pubs)
	for _, o := range opts {
		o(r)
	}
}

func toPublishers(pubs []Publisher) []publisher.Publisher {
	out := make([]publisher.Publisher, 0, len(pubs))
	for _, p := range pubs {
		out = append(out, p)
	}
	return out
}

// Last returns the most recent finished run, if any.
func (r *Runner) Last() (RunReport, bool) {
	p := r.last.Load()
	if p == nil {
		return RunReport{}, false
	}
	return *p, true
}

// Run performs one cycle. A publish failure is not an error unless the
// snapshot was withheld because of it.
func (r *Runner) Run(ctx context.Context) (RunReport, error) {
	if !r.mu.TryLock() {
		r.log.Warn("run skipped: previous run still active")
		r.metrics.ObserveRun(string(OutcomeSkipped), 0, 0, 0, 0, false)
		return RunReport{Outcome: OutcomeSkipped}, ErrRunInProgress
	}
	defer r.mu.Unlock()

	r.cfgMu.RLock()
	pol := policy{pubs: r.pubs, separator: r.separator, persistOnFailure: r.persistOnFailure}
	r.cfgMu.RUnlock()

	rep := RunReport{ID: uuid.NewString(), StartedAt: r.now()}
	log := r.log.With(logx.String("run_id", rep.ID))
	rep, err := r.run(ctx, log, pol, rep)
	rep.Took = r.now().Sub(rep.StartedAt)

	r.metrics.ObserveRun(string(rep.Outcome), rep.Added, rep.Removed, rep.ListSize, rep.Took, rep.Persisted)
	r.last.Store(&rep)

	if err != nil {
		log.Error("run failed", logx.String("outcome", string(rep.Outcome)), logx.Duration("took", rep.Took), logx.Err(err))
		return rep, err
	}
	log.Info("run finished",
		logx.String("outcome", string(rep.Outcome)),
		logx.Int("added", rep.Added),
		logx.Int("removed", rep.Removed),
		logx.Strings("published", rep.Published),
		logx.Int("publish_errors", len(rep.PublishErrors)),
		logx.Duration("took", rep.Took))
	return rep, nil
}

func (r *Runner) run(ctx context.Context, log logx.Logger, pol policy, rep RunReport) (RunReport, error) {
	state := func(s string) { log.Debug("state", logx.String("state", s)) }

	state("fetching")
	cur, err := r.fetcher.Fetch(ctx)
	if err != nil {
		rep.Outcome = OutcomeFailed
		return rep, fmt.Errorf("fetch: %w", err)
	}
	rep.ListSize = cur.Len()

	state("comparing")
	prev, found, err := r.store.Load(ctx)
	if err != nil {
		rep.Outcome = OutcomeFailed
		return rep, fmt.Errorf("load previous snapshot: %w", err)
	}
	if !found {
		log.Info("no previous snapshot; recording baseline without publishing", logx.Int("entries", cur.Len()))
		rep.Outcome = OutcomeBootstrap
		return r.persist(ctx, state, cur, rep)
	}

	d := watchlist.Compare(prev, cur)
	rep.Added, rep.Removed = d.Count()
	if d.Empty() {
		state("no_change")
		rep.Outcome = OutcomeNoChange
		return r.persist(ctx, state, cur, rep)
	}

	state("formatting")
	log.Info("list changed",
		logx.Int("added", rep.Added),
		logx.Int("removed", rep.Removed),
		logx.Strings("added_sources", d.AddedSources()),
		logx.Strings("removed_sources", d.RemovedSources()))

	state("publishing")
	fan := publisher.NewFanout(log, pol.separator, pol.pubs...)
	dels, perr := fan.Publish(ctx, d)
	for _, del := range dels {
		if del.Err != nil {
			rep.PublishErrors = append(rep.PublishErrors, del.Err)
			r.metrics.IncPublishFailure(del.Platform)
			continue
		}
		rep.Published = append(rep.Published, del.Platform)
	}
	switch {
	case perr == nil:
		rep.Outcome = OutcomePublished
	case len(rep.Published) > 0:
		rep.Outcome = OutcomePartial
	default:
		rep.Outcome = OutcomePublishFailed
	}

	if perr != nil && !pol.persistOnFailure {
		log.Warn("publish failed; keeping previous snapshot so the change is retried next run")
		return rep, fmt.Errorf("publish: %w", perr)
	}
	return r.persist(ctx, state, cur, rep)
}

func (r *Runner) persist(ctx context.Context, state func(string), cur watchlist.Snapshot, rep RunReport) (RunReport, error) {
	state("persisting")
	if err := r.store.Save(ctx, cur); err != nil {
		rep.Outcome = OutcomeFailed
		return rep, fmt.Errorf("save snapshot: %w", err)
	}
	rep.Persisted = true
	return rep, nil
}
