// Package scheduler runs named background jobs on cron schedules.
//
// Jobs run outside of any request. Every scheduled run gets a context that is
// cancelled when the scheduler stops; a restarted scheduler hands out a new one.
// A job never overlaps itself: a run triggered while the previous one is
// still in progress is skipped. Errors and panics of a job are logged
// by the scheduler and never reach other jobs or the HTTP server.
package scheduler

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/robfig/cron/v3"

	"github.com/projpool/projpool/internal/apperrors"
	"github.com/projpool/projpool/internal/logger"
)

type JobFunc func(ctx context.Context) error

type JobInfo struct {
	ID   string    `json:"id"`
	Spec string    `json:"trigger"`
	Next time.Time `json:"next_run_time"`
	Prev time.Time `json:"prev_run_time"`
}

type job struct {
	id      string
	spec    string
	entryID cron.EntryID
	fn      JobFunc

	// held while the job runs
	busy sync.Mutex
}

type Option func(*options)

type options struct {
	location *time.Location
}

// WithLocation sets time zone schedules are evaluated in. Local time by default.
func WithLocation(loc *time.Location) Option {
	return func(o *options) {
		o.location = loc
	}
}

type Scheduler struct {
	cron   *cron.Cron
	logger logger.Logger

	ctx    context.Context
	cancel context.CancelFunc

	mu      sync.RWMutex
	jobs    map[string]*job
	running bool
}

func New(l logger.Logger, opts ...Option) *Scheduler {
	o := options{location: time.Local}
	for _, opt := range opts {
		opt(&o)
	}

	if l == nil {
		l = logger.NewNoOpLogger()
	}
	l = l.WithGroup("scheduler")
	cl := cronLogger{logger: l}

	return &Scheduler{
		cron: cron.New(
			cron.WithLocation(o.location),
			cron.WithLogger(cl),
			cron.WithChain(cron.Recover(cl), cron.SkipIfStillRunning(cl)),
		),
		logger: l,
		jobs:   make(map[string]*job),
	}
}

// AddJob registers job under unique id.
// spec is standard 5 fields cron expression, e.g. "0 3 * * *" for every day at 03:00.
func (s *Scheduler) AddJob(id string, spec string, fn JobFunc) error {
	if id == "" || fn == nil {
		return errors.New("job id and func must not be empty")
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.jobs[id]; ok {
		return fmt.Errorf("%w: %s", apperrors.ErrJobAlreadyExists, id)
	}

	j := &job{id: id, spec: spec, fn: fn}
	entryID, err := s.cron.AddJob(spec, cron.FuncJob(func() { s.scheduled(j) }))
	if err != nil {
		return fmt.Errorf("invalid schedule %q for job %s. Err: %w", spec, id, err)
	}
	j.entryID = entryID
	s.jobs[id] = j

	s.logger.Info("job registered", "job", id, "trigger", spec)
	return nil
}

func (s *Scheduler) Start() {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.running {
		return
	}
	s.ctx, s.cancel = context.WithCancel(context.Background())
	s.cron.Start()
	s.running = true
	s.logger.Info("scheduler started", "jobs", len(s.jobs))
}

// Stop prevents new runs and waits running jobs or ctx cancellation
func (s *Scheduler) Stop(ctx context.Context) error {
	s.mu.Lock()
	if !s.running {
		s.mu.Unlock()
		return nil
	}
	s.running = false
	s.cancel()
	s.mu.Unlock()

	done := s.cron.Stop()

	select {
	case <-done.Done():
		s.logger.Info("scheduler stopped")
		return nil
	case <-ctx.Done():
		return fmt.Errorf("scheduler stop interrupted, jobs still running. Err: %w", ctx.Err())
	}
}

func (s *Scheduler) Running() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.running
}

// Jobs returns registered jobs ordered by id
func (s *Scheduler) Jobs() []JobInfo {
	s.mu.RLock()
	defer s.mu.RUnlock()

	infos := make([]JobInfo, 0, len(s.jobs))
	for _, j := range s.jobs {
		infos = append(infos, s.info(j))
	}
	sort.Slice(infos, func(i, k int) bool { return infos[i].ID < infos[k].ID })

	return infos
}

func (s *Scheduler) Job(id string) (JobInfo, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	j, ok := s.jobs[id]
	if !ok {
		return JobInfo{}, fmt.Errorf("%w: %s", apperrors.ErrJobNotFound, id)
	}
	return s.info(j), nil
}

// RunNow runs job right away in the caller goroutine and returns its error.
// The run is detached from ctx cancellation, so a gone client does not abort it.
// Returns apperrors.ErrJobAlreadyRunning if the job is running at the moment.
func (s *Scheduler) RunNow(ctx context.Context, id string) error {
	s.mu.RLock()
	j, ok := s.jobs[id]
	s.mu.RUnlock()
	if !ok {
		return fmt.Errorf("%w: %s", apperrors.ErrJobNotFound, id)
	}

	return s.execute(context.WithoutCancel(ctx), j)
}

func (s *Scheduler) info(j *job) JobInfo {
	entry := s.cron.Entry(j.entryID)
	return JobInfo{ID: j.id, Spec: j.spec, Next: entry.Next, Prev: entry.Prev}
}

// Run triggered by cron schedule
func (s *Scheduler) scheduled(j *job) {
	s.mu.RLock()
	ctx := s.ctx
	s.mu.RUnlock()

	if err := s.execute(ctx, j); errors.Is(err, apperrors.ErrJobAlreadyRunning) {
		s.logger.Info("job skipped, previous run still in progress", "job", j.id)
	}
}

func (s *Scheduler) execute(ctx context.Context, j *job) (err error) {
	if !j.busy.TryLock() {
		return fmt.Errorf("%w: %s", apperrors.ErrJobAlreadyRunning, j.id)
	}
	defer j.busy.Unlock()

	start := time.Now()
	l := s.logger.With("job", j.id)

	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("job panicked: %v", r)
		}

		if err != nil {
			l.Error("job failed", "error", err, "duration", time.Since(start))
			return
		}
		l.Info("job finished", "duration", time.Since(start))
	}()

	l.Debug("job started")
	return j.fn(ctx)
}

// cronLogger routes cron internals to the app logger
type cronLogger struct {
	logger logger.Logger
}

func (l cronLogger) Info(msg string, keysAndValues ...any) {
	l.logger.Debug(msg, keysAndValues...)
}

func (l cronLogger) Error(err error, msg string, keysAndValues ...any) {
	l.logger.Error(msg, append(keysAndValues, "error", err)...)
}
