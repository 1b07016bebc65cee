package scheduler

import (
	"context"
	"errors"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"github.com/robfig/cron/v3"

	logx "sanctionsbot/pkg/logx"
)

// Config controls the trigger.
type Config struct {
	Enabled  bool
	Schedule string
	Timezone string        // IANA TZ, e.g. "America/New_York"; empty means Local
	Timeout  time.Duration // per-run deadline; 0 means none
}

// Job is one scheduled run.
type Job func(ctx context.Context) error

// ctxBox keeps atomic.Value's stored type constant across context kinds.
type ctxBox struct{ ctx context.Context }

type scheduleDef struct {
	name    string
	spec    string // robfig/cron syntax
	job     Job
	entryID cron.EntryID
}

// Service owns a single named job. Set replaces it; Apply follows config reloads.
type Service struct {
	mu sync.Mutex

	cfg    Config
	log    logx.Logger
	parser cron.Parser

	c   *cron.Cron
	loc *time.Location
	def *scheduleDef

	// read by running jobs without s.mu; Stop waits for jobs while holding it
	runCtx     atomic.Value // ctxBox
	runTimeout atomic.Int64
}

func New(cfg Config, log logx.Logger) *Service {
	if log.IsZero() {
		log = logx.Nop()
	}
	s := &Service{
		cfg: cfg,
		log: log,
		// SecondOptional allows both 5-field and 6-field (with seconds) cron specs.
		parser: cron.NewParser(cron.SecondOptional | cron.Minute | cron.Hour | cron.Dom | cron.Month | cron.Dow | cron.Descriptor),
	}
	s.runCtx.Store(ctxBox{context.Background()})
	s.runTimeout.Store(int64(cfg.Timeout))
	return s
}

// Validate reports whether schedule is accepted by Set.
func (s *Service) Validate(schedule string) error {
	_, err := s.compile(schedule)
	return err
}

func (s *Service) compile(schedule string) (string, error) {
	ps, err := ParseSchedule(schedule)
	if err != nil {
		return "", err
	}
	spec := ps.CronSpec()
	if _, err := s.parser.Parse(spec); err != nil {
		return "", err
	}
	return spec, nil
}

// Set registers job under name, replacing any previous job.
func (s *Service) Set(name, schedule string, job Job) error {
	if strings.TrimSpace(name) == "" {
		return errors.New("name required")
	}
	if job == nil {
		return errors.New("job required")
	}
	spec, err := s.compile(schedule)
	if err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	s.removeLocked()
	s.def = &scheduleDef{name: name, spec: spec, job: job}
	if s.c != nil {
		if err := s.addLocked(s.def); err != nil {
			return err
		}
		s.log.Info("schedule registered", logx.String("name", name), logx.String("spec", spec), logx.String("next", s.nextLocked().Format(time.RFC3339)))
	}
	return nil
}

// Remove drops the job, if any.
func (s *Service) Remove() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.removeLocked()
	s.def = nil
}

// Apply takes a reloaded config. A timezone change restarts cron; a schedule
// change re-registers the current job.
func (s *Service) Apply(cfg Config) error {
	s.mu.Lock()
	oldTZ := strings.TrimSpace(s.cfg.Timezone)
	oldSchedule := strings.TrimSpace(s.cfg.Schedule)
	s.cfg = cfg
	s.runTimeout.Store(int64(cfg.Timeout))
	def := s.def
	running := s.c != nil
	if running && oldTZ != strings.TrimSpace(cfg.Timezone) {
		s.restartLocked()
	}
	s.mu.Unlock()

	if def != nil && oldSchedule != strings.TrimSpace(cfg.Schedule) {
		return s.Set(def.name, cfg.Schedule, def.job)
	}
	return nil
}

// Start begins triggering. Jobs run with a context derived from ctx.
func (s *Service) Start(ctx context.Context) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.c != nil {
		return
	}
	s.runCtx.Store(ctxBox{ctx})
	s.newCronLocked()
	if s.def != nil {
		if err := s.addLocked(s.def); err != nil {
			s.log.Error("schedule register failed", logx.String("name", s.def.name), logx.String("spec", s.def.spec), logx.Err(err))
		}
	}
	s.c.Start()

	fields := []logx.Field{logx.String("tz", s.loc.String())}
	if next := s.nextLocked(); !next.IsZero() {
		fields = append(fields, logx.Time("next", next))
	}
	s.log.Info("scheduler started", fields...)
}

// Stop halts triggering and waits for a running job or ctx, whichever is first.
func (s *Service) Stop(ctx context.Context) {
	s.mu.Lock()
	c := s.c
	s.c = nil
	if s.def != nil {
		s.def.entryID = 0
	}
	s.mu.Unlock()

	if c == nil {
		return
	}
	select {
	case <-c.Stop().Done():
	case <-ctx.Done():
	}
	s.log.Info("scheduler stopped")
}

// Next returns the next trigger time, or zero if nothing is scheduled.
func (s *Service) Next() time.Time {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.nextLocked()
}

func (s *Service) nextLocked() time.Time {
	if s.c == nil || s.def == nil || s.def.entryID == 0 {
		return time.Time{}
	}
	return s.c.Entry(s.def.entryID).Next
}

func (s *Service) newCronLocked() {
	s.loc = s.loadLocationLocked()
	cl := logx.CronLogger{L: s.log}
	s.c = cron.New(
		cron.WithParser(s.parser),
		cron.WithLocation(s.loc),
		cron.WithLogger(cl),
		cron.WithChain(cron.Recover(cl), cron.SkipIfStillRunning(cl)),
	)
}

func (s *Service) addLocked(d *scheduleDef) error {
	job := d.job
	name := d.name
	eid, err := s.c.AddFunc(d.spec, func() {
		base := s.runCtx.Load().(ctxBox).ctx
		timeout := time.Duration(s.runTimeout.Load())

		ctx := base
		if timeout > 0 {
			var cancel context.CancelFunc
			ctx, cancel = context.WithTimeout(base, timeout)
			defer cancel()
		}
		start := time.Now()
		if err := job(ctx); err != nil {
			s.log.Warn("scheduled run failed", logx.String("name", name), logx.Duration("took", time.Since(start)), logx.Err(err))
			return
		}
		s.log.Debug("scheduled run finished", logx.String("name", name), logx.Duration("took", time.Since(start)))
	})
	if err != nil {
		return err
	}
	d.entryID = eid
	return nil
}

func (s *Service) removeLocked() {
	if s.def == nil || s.c == nil || s.def.entryID == 0 {
		return
	}
	s.c.Remove(s.def.entryID)
	s.def.entryID = 0
}

func (s *Service) restartLocked() {
	if s.c != nil {
		<-s.c.Stop().Done()
	}
	s.newCronLocked()
	if s.def != nil {
		if err := s.addLocked(s.def); err != nil {
			s.log.Error("schedule register failed", logx.String("name", s.def.name), logx.Err(err))
		}
	}
	s.c.Start()
	s.log.Info("scheduler restarted", logx.String("tz", s.loc.String()))
}

func (s *Service) loadLocationLocked() *time.Location {
	tz := strings.TrimSpace(s.cfg.Timezone)
	if tz == "" {
		return time.Local
	}
	loc, err := time.LoadLocation(tz)
	if err != nil {
		s.log.Warn("invalid timezone; falling back to Local", logx.String("tz", tz), logx.Err(err))
		return time.Local
	}
	return loc
}
