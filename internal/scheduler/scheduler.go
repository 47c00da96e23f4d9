// Package scheduler fires the scrape cycle on a cron spec and on demand,
// never running two cycles at once.
package scheduler

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/robfig/cron/v3"
	"go.uber.org/zap"
)

// ErrBusy is returned by Trigger while a cycle is already running.
var ErrBusy = errors.New("a cycle is already running")

// Job is one cycle.
type Job func(ctx context.Context) error

// Status describes the last completed cycle.
type Status struct {
	Running  bool      `json:"running"`
	LastRun  time.Time `json:"last_run,omitempty"`
	LastErr  string    `json:"last_error,omitempty"`
	NextRun  time.Time `json:"next_run,omitempty"`
	Runs     int       `json:"runs"`
	Skipped  int       `json:"skipped"`
	Schedule string    `json:"schedule"`
}

// Scheduler wraps robfig/cron.
type Scheduler struct {
	cron    *cron.Cron
	spec    string
	job     Job
	timeout time.Duration
	log     *zap.SugaredLogger

	running sync.Mutex
	mu      sync.Mutex
	status  Status
	entry   cron.EntryID
	ctx     context.Context
	wg      sync.WaitGroup
}

// New validates spec (standard five-field cron or descriptors like
// "@every 6h") and prepares the scheduler. timeout bounds each cycle.
func New(spec string, job Job, timeout time.Duration, log *zap.SugaredLogger) (*Scheduler, error) {
	if log == nil {
		log = zap.NewNop().Sugar()
	}
	if _, err := cron.ParseStandard(spec); err != nil {
		return nil, fmt.Errorf("invalid schedule %q: %w", spec, err)
	}
	cl := cronLogger{log: log}
	return &Scheduler{
		cron:    cron.New(cron.WithLogger(cl), cron.WithChain(cron.Recover(cl))),
		spec:    spec,
		job:     job,
		timeout: timeout,
		log:     log,
		status:  Status{Schedule: spec},
	}, nil
}

// Start registers the job and starts ticking. Cycles run under ctx.
func (s *Scheduler) Start(ctx context.Context) error {
	s.mu.Lock()
	s.ctx = ctx
	s.mu.Unlock()

	id, err := s.cron.AddFunc(s.spec, func() {
		if err := s.run(ctx); errors.Is(err, ErrBusy) {
			s.log.Warn("Previous cycle still running, skipping tick")
		}
	})
	if err != nil {
		return fmt.Errorf("cron.AddFunc: %w", err)
	}
	s.mu.Lock()
	s.entry = id
	s.mu.Unlock()

	s.cron.Start()
	s.log.Infow("Scheduler started", "schedule", s.spec, "next_run", s.cron.Entry(id).Next)
	return nil
}

// Trigger starts a cycle in the background unless one is running.
func (s *Scheduler) Trigger() error {
	if !s.running.TryLock() {
		s.skip()
		return ErrBusy
	}
	s.mu.Lock()
	ctx := s.ctx
	s.mu.Unlock()
	if ctx == nil {
		ctx = context.Background()
	}

	s.wg.Add(1)
	go func() {
		defer s.wg.Done()
		defer s.running.Unlock()
		s.execute(ctx)
	}()
	return nil
}

// RunNow runs a cycle synchronously.
func (s *Scheduler) RunNow(ctx context.Context) error {
	return s.run(ctx)
}

func (s *Scheduler) run(ctx context.Context) error {
	if !s.running.TryLock() {
		s.skip()
		return ErrBusy
	}
	defer s.running.Unlock()
	return s.execute(ctx)
}

func (s *Scheduler) skip() {
	s.mu.Lock()
	s.status.Skipped++
	s.mu.Unlock()
}

// execute runs the job once. A panicking job is recorded as a failed cycle.
func (s *Scheduler) execute(ctx context.Context) (err error) {
	s.setRunning(true)
	if s.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, s.timeout)
		defer cancel()
	}

	start := time.Now()
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("cycle panicked: %v", r)
		}

		s.mu.Lock()
		s.status.Running = false
		s.status.LastRun = start
		s.status.Runs++
		s.status.LastErr = ""
		if err != nil {
			s.status.LastErr = err.Error()
		}
		s.mu.Unlock()

		if err != nil {
			s.log.Errorw("Cycle failed", "error", err, "duration", time.Since(start))
		}
	}()
	return s.job(ctx)
}

func (s *Scheduler) setRunning(v bool) {
	s.mu.Lock()
	s.status.Running = v
	s.mu.Unlock()
}

// Status reports the current state.
func (s *Scheduler) Status() Status {
	s.mu.Lock()
	defer s.mu.Unlock()
	st := s.status
	if s.entry != 0 {
		st.NextRun = s.cron.Entry(s.entry).Next
	}
	return st
}

// Stop halts the ticker and waits for a running cycle to finish.
func (s *Scheduler) Stop() {
	<-s.cron.Stop().Done()
	s.wg.Wait()
	s.log.Info("Scheduler stopped")
}

// cronLogger adapts zap to cron.Logger.
type cronLogger struct {
	log *zap.SugaredLogger
}

func (l cronLogger) Info(msg string, keysAndValues ...interface{}) {
	l.log.Debugw(msg, keysAndValues...)
}

func (l cronLogger) Error(err error, msg string, keysAndValues ...interface{}) {
	l.log.Errorw(msg, append(keysAndValues, "error", err)...)
}
