package cron

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"
)

// Job is a named function run on a fixed interval.
type Job struct {
	Name     string
	Interval time.Duration
	Fn       func(ctx context.Context) error
}

// Ticker produces ticks for one job. stop releases it.
type Ticker func(d time.Duration) (ticks <-chan time.Time, stop func())

func realTicker(d time.Duration) (<-chan time.Time, func()) {
	t := time.NewTicker(d)
	return t.C, t.Stop
}

// Option configures a Scheduler.
type Option func(*Scheduler)

// WithClock sets the clock used to stamp job attempts.
func WithClock(clock func() time.Time) Option {
	return func(s *Scheduler) {
		if clock != nil {
			s.now = clock
		}
	}
}

// WithTicker replaces the interval ticker.
func WithTicker(t Ticker) Option {
	return func(s *Scheduler) {
		if t != nil {
			s.newTicker = t
		}
	}
}

// Scheduler runs registered jobs until the context passed to Start ends or
// Stop is called.
type Scheduler struct {
	jobs      []Job
	now       func() time.Time
	newTicker Ticker

	mu      sync.Mutex
	cancel  context.CancelFunc
	wg      sync.WaitGroup
	started bool
}

func NewScheduler(opts ...Option) *Scheduler {
	s := &Scheduler{
		now:       time.Now,
		newTicker: realTicker,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// AddJob registers a job. Jobs added after Start are not run.
func (s *Scheduler) AddJob(name string, interval time.Duration, fn func(ctx context.Context) error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.jobs = append(s.jobs, Job{
		Name:     name,
		Interval: interval,
		Fn:       fn,
	})
	slog.Info("Cron job registered", "name", name, "interval", interval)
}

// Start runs every job once immediately and then on its interval. Jobs
// receive a context derived from ctx.
func (s *Scheduler) Start(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.started {
		return errors.New("cron scheduler already started")
	}
	for _, job := range s.jobs {
		if job.Interval <= 0 {
			return fmt.Errorf("cron job %q: interval must be positive", job.Name)
		}
	}

	runCtx, cancel := context.WithCancel(ctx)
	s.cancel = cancel
	s.started = true

	for _, job := range s.jobs {
		s.wg.Add(1)
		go s.runJob(runCtx, job)
	}

	slog.Info("Cron scheduler started", "job_count", len(s.jobs))
	return nil
}

// Stop cancels running jobs and waits for them to return.
func (s *Scheduler) Stop() {
	s.mu.Lock()
	cancel := s.cancel
	s.mu.Unlock()
	if cancel == nil {
		return
	}

	slog.Info("Stopping cron scheduler")
	cancel()
	s.wg.Wait()
	slog.Info("Cron scheduler stopped")
}

func (s *Scheduler) runJob(ctx context.Context, job Job) {
	defer s.wg.Done()

	ticks, stop := s.newTicker(job.Interval)
	defer stop()

	s.execute(ctx, job)

	for {
		select {
		case <-ctx.Done():
			slog.Info("Cron job stopping", "name", job.Name)
			return
		case <-ticks:
			s.execute(ctx, job)
		}
	}
}

// execute runs one attempt of job and logs its outcome with the attempt time.
func (s *Scheduler) execute(ctx context.Context, job Job) error {
	attempt := s.now()
	slog.DebugContext(ctx, "Cron job starting", "name", job.Name, "attempt", attempt.Format(time.RFC3339))

	err := job.Fn(ctx)
	duration := s.now().Sub(attempt)
	if err != nil {
		slog.ErrorContext(ctx, "Cron job failed",
			"name", job.Name, "attempt", attempt.Format(time.RFC3339), "error", err, "duration", duration)
		return fmt.Errorf("cron job %q at %s: %w", job.Name, attempt.Format(time.RFC3339), err)
	}
	slog.DebugContext(ctx, "Cron job completed", "name", job.Name, "duration", duration)
	return nil
}

// RunOnce runs every job once in registration order and joins their errors.
func (s *Scheduler) RunOnce(ctx context.Context) error {
	s.mu.Lock()
	jobs := append([]Job(nil), s.jobs...)
	s.mu.Unlock()

	var errs []error
	for _, job := range jobs {
		if err := s.execute(ctx, job); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}
