// Package app wires the bot together: it owns the run cycle, serve mode and
// hot-reload of configuration.
package app

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/coreos/go-systemd/v22/daemon"

	"sanctionsbot/internal/config"
	"sanctionsbot/internal/fetcher"
	"sanctionsbot/internal/observability"
	rtsup "sanctionsbot/internal/runtime/supervisor"
	"sanctionsbot/internal/storage"
	"sanctionsbot/internal/task/scheduler"
	logx "sanctionsbot/pkg/logx"
)

const jobName = "sanctions.refresh"

type Options struct {
	ConfigPath string
	DryRun     bool
}

type App struct {
	opts Options
	cfgm *config.Manager

	log  logx.Logger
	logs *logx.Service

	store   storage.Store
	runner  *Runner
	metrics *observability.Metrics
	sched   *scheduler.Service
	obs     *observability.Server

	sup *rtsup.Supervisor
}

// New loads the config and builds every component. Nothing runs yet.
func New(ctx context.Context, opts Options) (*App, error) {
	cfgm := config.NewManager(opts.ConfigPath)
	cfg, err := cfgm.Load()
	if err != nil {
		return nil, err
	}

	// Bootstrap logging without alerts; the alert sender is built with the publishers.
	logCfg := mapLogConfig(cfg)
	bootCfg := logCfg
	bootCfg.Alerts.Enabled = false
	logs, root := logx.New(bootCfg, nil)
	log := root.With(logx.String("comp", "app"))

	pubs, alerts, err := buildPublishers(cfg, opts.DryRun, root)
	if err != nil {
		_ = logs.Close()
		return nil, err
	}
	logs.SetAlertSender(alerts)
	logs.Apply(logCfg)

	sc, err := mapStorageConfig(cfg)
	if err != nil {
		_ = logs.Close()
		return nil, err
	}
	store, err := storage.Open(ctx, sc, root.With(logx.String("comp", "storage")))
	if err != nil {
		_ = logs.Close()
		return nil, err
	}

	fc, err := mapFetcherConfig(cfg)
	if err != nil {
		_ = store.Close()
		_ = logs.Close()
		return nil, err
	}
	metrics := observability.NewMetrics()
	runner := NewRunner(
		fetcher.New(fc, root.With(logx.String("comp", "fetcher"))),
		store,
		pubs,
		append(runnerOptions(cfg),
			WithRunLogger(root.With(logx.String("comp", "runner"))),
			WithMetrics(metrics),
		)...,
	)

	schedCfg, err := mapSchedulerConfig(cfg)
	if err != nil {
		_ = store.Close()
		_ = logs.Close()
		return nil, err
	}

	a := &App{
		opts:    opts,
		cfgm:    cfgm,
		log:     log,
		logs:    logs,
		store:   store,
		runner:  runner,
		metrics: metrics,
		sched:   scheduler.New(schedCfg, root.With(logx.String("comp", "scheduler"))),
	}
	a.obs = observability.NewServer(mapObservabilityConfig(cfg), metrics, a.health, root)

	log.Info("initialized",
		logx.String("storage", sc.Driver),
		logx.String("source", fc.URL),
		logx.Strings("publishers", publisherNames(pubs)),
		logx.Bool("dry_run", opts.DryRun || cfg.Run.DryRun))
	return a, nil
}

func publisherNames(pubs []Publisher) []string {
	out := make([]string, 0, len(pubs))
	for _, p := range pubs {
		out = append(out, p.Name())
	}
	return out
}

func (a *App) Logger() logx.Logger { return a.log }

// RunOnce performs a single cycle.
func (a *App) RunOnce(ctx context.Context) (RunReport, error) {
	if timeout := a.runTimeout(); timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, timeout)
		defer cancel()
	}
	return a.runner.Run(ctx)
}

func (a *App) runTimeout() time.Duration {
	d, _ := config.ParseDurationField("run.timeout", a.cfgm.Get().Run.Timeout)
	return d
}

// Serve runs once immediately, then on the configured schedule until ctx is
// done. A failing first run is fatal.
func (a *App) Serve(ctx context.Context) error {
	a.sup = rtsup.New(ctx, rtsup.WithLogger(a.log), rtsup.WithCancelOnError(true))

	a.cfgm.SetLogger(a.log.With(logx.String("comp", "config")))
	a.cfgm.SetValidator(a.validateReload)

	a.obs.Reconfigure(a.sup.Context(), mapObservabilityConfig(a.cfgm.Get()))

	if _, err := a.RunOnce(a.sup.Context()); err != nil {
		a.Stop(context.Background(), StopFatalError)
		return fmt.Errorf("initial run: %w", err)
	}

	if err := a.sched.Set(jobName, a.cfgm.Get().Scheduler.Schedule, a.scheduledRun); err != nil && a.cfgm.Get().Scheduler.Enabled {
		a.Stop(context.Background(), StopFatalError)
		return fmt.Errorf("scheduler: %w", err)
	}
	if a.cfgm.Get().Scheduler.Enabled {
		a.sched.Start(a.sup.Context())
	} else {
		a.log.Warn("scheduler disabled; serve will only react to config changes")
	}

	sub := a.cfgm.Subscribe(8)
	a.sup.Go0("config.reload", func(c context.Context) {
		defer a.cfgm.Unsubscribe(sub)
		a.reloadLoop(c, sub)
	})
	a.sup.GoRestart("config.watch", a.cfgm.Watch, rtsup.WithRestartBackoff(time.Second, 30*time.Second))

	if ok, err := daemon.SdNotify(false, daemon.SdNotifyReady); err != nil {
		a.log.Warn("sd_notify failed", logx.Err(err))
	} else if ok {
		a.log.Debug("sd_notify ready sent")
	}
	a.log.Info("serving", logx.Time("next_run", a.sched.Next()))

	<-a.sup.Context().Done()
	reason := StopSignal
	err := a.sup.Err()
	if err != nil {
		reason = StopFatalError
	}
	stopCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	a.Stop(stopCtx, reason)
	return err
}

func (a *App) scheduledRun(ctx context.Context) error {
	_, err := a.runner.Run(ctx)
	if errors.Is(err, ErrRunInProgress) {
		return nil
	}
	return err
}

// validateReload rejects configs serve mode cannot apply.
func (a *App) validateReload(_ context.Context, cfg *config.Config) error {
	if cfg.Scheduler.Enabled {
		if err := a.sched.Validate(cfg.Scheduler.Schedule); err != nil {
			return fmt.Errorf("scheduler.schedule: %w", err)
		}
	}
	if _, err := mapSchedulerConfig(cfg); err != nil {
		return err
	}
	_, _, err := buildPublishers(cfg, a.opts.DryRun, logx.Nop())
	return err
}

func (a *App) reloadLoop(ctx context.Context, sub chan *config.Config) {
	lastApplied := a.cfgm.Get()
	for {
		select {
		case <-ctx.Done():
			return
		case newCfg, ok := <-sub:
			if !ok {
				return
			}
			// coalesce bursts
		drain:
			for {
				select {
				case newer := <-sub:
					if newer != nil {
						newCfg = newer
					}
				default:
					break drain
				}
			}
			a.apply(ctx, lastApplied, newCfg)
			lastApplied = newCfg
		}
	}
}

func (a *App) apply(ctx context.Context, oldCfg, newCfg *config.Config) {
	sections, attrs := config.SummarizeConfigChange(oldCfg, newCfg)
	if len(sections) == 0 {
		a.log.Info("config reloaded (no changes)")
		return
	}
	for _, s := range sections {
		if s == "storage" || s == "source" {
			a.log.Warn("config section changed; restart required for it to take effect", logx.String("section", s))
		}
	}

	pubs, alerts, err := buildPublishers(newCfg, a.opts.DryRun, a.log)
	if err != nil {
		a.log.Warn("invalid publisher config; keeping previous", logx.Err(err))
	} else {
		a.runner.Reconfigure(pubs, runnerOptions(newCfg)...)
		a.logs.SetAlertSender(alerts)
	}
	a.logs.Apply(mapLogConfig(newCfg))

	schedCfg, err := mapSchedulerConfig(newCfg)
	if err != nil {
		a.log.Warn("invalid scheduler config; keeping previous", logx.Err(err))
	} else {
		if err := a.sched.Apply(schedCfg); err != nil {
			a.log.Warn("schedule rejected; keeping previous", logx.Err(err))
		}
		switch {
		case oldCfg.Scheduler.Enabled && !newCfg.Scheduler.Enabled:
			a.log.Info("scheduler disabled via config")
			stopCtx, cancel := context.WithTimeout(ctx, 3*time.Second)
			a.sched.Stop(stopCtx)
			cancel()
		case !oldCfg.Scheduler.Enabled && newCfg.Scheduler.Enabled:
			a.log.Info("scheduler enabled via config")
			if err := a.sched.Set(jobName, newCfg.Scheduler.Schedule, a.scheduledRun); err != nil {
				a.log.Warn("schedule rejected", logx.Err(err))
			}
			a.sched.Start(ctx)
		}
	}

	a.obs.Reconfigure(ctx, mapObservabilityConfig(newCfg))

	fields := append([]logx.Field{logx.String("changed", strings.Join(sections, ","))}, attrs...)
	a.log.Info("config reloaded", fields...)
}

// health backs /healthz.
func (a *App) health() (map[string]any, error) {
	out := map[string]any{"supervisor": a.sup.Counters()}
	if next := a.sched.Next(); !next.IsZero() {
		out["next_run"] = next
	}
	last, ok := a.runner.Last()
	if !ok {
		return out, nil
	}
	out["last_run_id"] = last.ID
	out["last_outcome"] = last.Outcome
	out["last_run_at"] = last.StartedAt
	out["last_persisted"] = last.Persisted
	if err := runHealth(last); err != nil {
		return out, err
	}
	return out, nil
}

// runHealth is degraded when the last run failed, no platform accepted the
// change, or the snapshot was withheld (the change will be retried).
func runHealth(last RunReport) error {
	switch {
	case last.Outcome == OutcomeFailed:
		return errors.New("last run failed")
	case last.Outcome == OutcomePublishFailed:
		return errors.New("last run could not publish")
	case !last.Persisted:
		return fmt.Errorf("last run (%s) did not save the snapshot", last.Outcome)
	}
	return nil
}

// Stop shuts everything down. Each step is bounded so one slow component
// cannot stall the rest.
func (a *App) Stop(ctx context.Context, reason StopReason) {
	a.log.Info("stopping", logx.String("reason", string(reason)))
	_, _ = daemon.SdNotify(false, daemon.SdNotifyStopping)

	step := func(name string, max time.Duration, fn func(context.Context) error) {
		start := time.Now()
		c, cancel := context.WithTimeout(ctx, max)
		defer cancel()
		if err := fn(c); err != nil && !errors.Is(err, context.Canceled) {
			a.log.Warn("stop step error", logx.String("name", name), logx.Err(err))
		}
		a.log.Debug("stop step end", logx.String("name", name), logx.Duration("took", time.Since(start)))
	}

	if a.sup != nil {
		a.sup.Cancel()
	}
	step("scheduler", 5*time.Second, func(c context.Context) error { a.sched.Stop(c); return nil })
	step("observability", 2*time.Second, func(c context.Context) error { a.obs.Stop(c); return nil })
	if a.sup != nil {
		step("supervisor", 2*time.Second, a.sup.Wait)
	}
	step("storage", time.Second, func(context.Context) error { return a.store.Close() })

	a.log.Info("stopped")
	_ = a.logs.Close()
}
