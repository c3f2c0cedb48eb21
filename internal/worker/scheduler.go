package worker

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"
)

const (
	DefaultInterval   = 15 * time.Minute
	DefaultMaxRetries = 3
	DefaultBackoff    = 30 * time.Second
)

// ErrPermanentFailure is returned once a job has used up its retries.
var ErrPermanentFailure = errors.New("job failed permanently")

// Job is a unit of periodic background work.
type Job interface {
	Name() string
	Run(ctx context.Context) error
}

// JobFunc adapts a function to Job.
type JobFunc struct {
	JobName string
	Fn      func(ctx context.Context) error
}

func (j JobFunc) Name() string                  { return j.JobName }
func (j JobFunc) Run(ctx context.Context) error { return j.Fn(ctx) }

// Hooks observe job outcomes. All fields are optional.
type Hooks struct {
	OnAttempt func(name string, attempt int, err error)
	OnFailure func(name string, err error)
}

// Scheduler runs named jobs periodically. A job name is scheduled at most
// once; later Schedule calls for the same name are ignored.
type Scheduler struct {
	Interval   time.Duration
	MaxRetries int
	Backoff    time.Duration
	Logger     *slog.Logger
	Hooks      Hooks

	mu   sync.Mutex
	jobs map[string]*entry
	wg   sync.WaitGroup
}

type entry struct {
	cancel context.CancelFunc
}

func NewScheduler(logger *slog.Logger) *Scheduler {
	if logger == nil {
		logger = slog.Default()
	}
	return &Scheduler{
		Interval:   DefaultInterval,
		MaxRetries: DefaultMaxRetries,
		Backoff:    DefaultBackoff,
		Logger:     logger,
		jobs:       make(map[string]*entry),
	}
}

// Schedule starts job now and then every Interval until ctx is done or
// Cancel is called. It reports false when the name is already scheduled.
func (s *Scheduler) Schedule(ctx context.Context, job Job) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.jobs == nil {
		s.jobs = make(map[string]*entry)
	}
	if _, ok := s.jobs[job.Name()]; ok {
		s.Logger.Debug("job already scheduled", "job", job.Name())
		return false
	}

	ctx, cancel := context.WithCancel(ctx)
	e := &entry{cancel: cancel}
	s.jobs[job.Name()] = e
	s.wg.Add(1)
	go s.loop(ctx, job, e)
	s.Logger.Info("job scheduled", "job", job.Name(), "interval", s.Interval)
	return true
}

func (s *Scheduler) loop(ctx context.Context, job Job, e *entry) {
	defer s.wg.Done()
	defer s.remove(job.Name(), e)

	interval := s.Interval
	if interval <= 0 {
		interval = DefaultInterval
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		s.RunOnce(ctx, job)
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
		}
	}
}

// remove drops name only if it still refers to e.
func (s *Scheduler) remove(name string, e *entry) {
	s.mu.Lock()
	if cur, ok := s.jobs[name]; ok && cur == e {
		delete(s.jobs, name)
	}
	s.mu.Unlock()
	e.cancel()
}

// Cancel stops the named job.
func (s *Scheduler) Cancel(name string) {
	s.mu.Lock()
	e, ok := s.jobs[name]
	delete(s.jobs, name)
	s.mu.Unlock()
	if ok {
		e.cancel()
	}
}

// Scheduled reports whether name has a running schedule.
func (s *Scheduler) Scheduled(name string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	_, ok := s.jobs[name]
	return ok
}

// Wait blocks until every scheduled loop has exited.
func (s *Scheduler) Wait() {
	s.wg.Wait()
}

// RunOnce runs job with retries: the first attempt plus up to MaxRetries
// more, sleeping Backoff, then twice that, between them. A panic counts as a
// failed attempt. After the last failure it returns an error wrapping
// ErrPermanentFailure. Cancelling ctx returns ctx.Err() without reporting a
// failure.
func (s *Scheduler) RunOnce(ctx context.Context, job Job) error {
	backoff := s.Backoff
	var err error
	for attempt := 0; ; attempt++ {
		err = safeRun(ctx, job)
		if s.Hooks.OnAttempt != nil {
			s.Hooks.OnAttempt(job.Name(), attempt, err)
		}
		if err == nil {
			if attempt > 0 {
				s.Logger.Info("job succeeded after retry", "job", job.Name(), "attempt", attempt)
			}
			return nil
		}
		if ctx.Err() != nil {
			return ctx.Err()
		}
		if attempt >= s.MaxRetries {
			break
		}

		s.Logger.Warn("job attempt failed, retrying", "job", job.Name(), "attempt", attempt, "backoff", backoff, "error", err)
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(backoff):
		}
		backoff *= 2
	}

	s.Logger.Error("job failed permanently", "job", job.Name(), "error", err)
	if s.Hooks.OnFailure != nil {
		s.Hooks.OnFailure(job.Name(), err)
	}
	return fmt.Errorf("%s: %w: %v", job.Name(), ErrPermanentFailure, err)
}

func safeRun(ctx context.Context, job Job) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("panic: %v", r)
		}
	}()
	return job.Run(ctx)
}
