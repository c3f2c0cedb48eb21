package worker

import (
	"context"
	"errors"
	"path/filepath"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/prabalesh/droidinsight/internal/widget"
)

func testScheduler() *Scheduler {
	s := NewScheduler(nil)
	s.Backoff = time.Millisecond
	return s
}

func TestRunOnceSucceedsAfterRetries(t *testing.T) {
	s := testScheduler()
	calls := 0
	job := JobFunc{JobName: "flaky", Fn: func(context.Context) error {
		calls++
		if calls < 3 {
			return errors.New("transient")
		}
		return nil
	}}

	if err := s.RunOnce(context.Background(), job); err != nil {
		t.Fatalf("RunOnce() error = %v", err)
	}
	if calls != 3 {
		t.Fatalf("calls = %d, want 3", calls)
	}
}

func TestRunOncePermanentFailure(t *testing.T) {
	s := testScheduler()
	var failed string
	s.Hooks.OnFailure = func(name string, err error) { failed = name }

	calls := 0
	job := JobFunc{JobName: "broken", Fn: func(context.Context) error {
		calls++
		return errors.New("nope")
	}}

	err := s.RunOnce(context.Background(), job)
	if !errors.Is(err, ErrPermanentFailure) {
		t.Fatalf("RunOnce() error = %v, want ErrPermanentFailure", err)
	}
	if calls != DefaultMaxRetries+1 {
		t.Fatalf("calls = %d, want %d", calls, DefaultMaxRetries+1)
	}
	if failed != "broken" {
		t.Fatalf("failure hook got %q", failed)
	}
}

func TestRunOnceRecoversPanic(t *testing.T) {
	s := testScheduler()
	var attempts []error
	s.Hooks.OnAttempt = func(_ string, _ int, err error) { attempts = append(attempts, err) }

	job := JobFunc{JobName: "panicky", Fn: func(context.Context) error { panic("boom") }}
	if err := s.RunOnce(context.Background(), job); !errors.Is(err, ErrPermanentFailure) {
		t.Fatalf("RunOnce() error = %v", err)
	}
	if len(attempts) != DefaultMaxRetries+1 {
		t.Fatalf("attempts = %d", len(attempts))
	}
	for _, err := range attempts {
		if err == nil {
			t.Fatal("panicking attempt reported success")
		}
	}
}

func TestRunOnceBackoffDoubles(t *testing.T) {
	s := testScheduler()
	s.Backoff = 20 * time.Millisecond
	s.MaxRetries = 2

	var stamps []time.Time
	job := JobFunc{JobName: "timed", Fn: func(context.Context) error {
		stamps = append(stamps, time.Now())
		return errors.New("again")
	}}
	s.RunOnce(context.Background(), job)

	if len(stamps) != 3 {
		t.Fatalf("attempts = %d, want 3", len(stamps))
	}
	if gap := stamps[2].Sub(stamps[1]); gap < 40*time.Millisecond {
		t.Fatalf("second backoff = %v, want >= 40ms", gap)
	}
}

func TestRunOnceStopsOnCancel(t *testing.T) {
	s := testScheduler()
	s.Backoff = time.Hour
	var failures atomic.Int32
	s.Hooks.OnFailure = func(string, error) { failures.Add(1) }
	ctx, cancel := context.WithCancel(context.Background())

	started := make(chan struct{}, 1)
	done := make(chan error, 1)
	go func() {
		done <- s.RunOnce(ctx, JobFunc{JobName: "slow", Fn: func(context.Context) error {
			select {
			case started <- struct{}{}:
			default:
			}
			return errors.New("x")
		}})
	}()
	<-started
	time.Sleep(50 * time.Millisecond)
	cancel()

	select {
	case err := <-done:
		if !errors.Is(err, context.Canceled) {
			t.Fatalf("RunOnce() error = %v, want context.Canceled", err)
		}
		if errors.Is(err, ErrPermanentFailure) {
			t.Fatalf("cancellation reported as permanent failure: %v", err)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("RunOnce did not return after cancel")
	}
	if n := failures.Load(); n != 0 {
		t.Fatalf("OnFailure called %d times on cancel", n)
	}
}

func TestScheduleKeepsExisting(t *testing.T) {
	s := testScheduler()
	s.Interval = time.Hour
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	var runs atomic.Int32
	var once sync.Once
	started := make(chan struct{})
	job := JobFunc{JobName: "unique", Fn: func(context.Context) error {
		runs.Add(1)
		once.Do(func() { close(started) })
		return nil
	}}

	if !s.Schedule(ctx, job) {
		t.Fatal("first Schedule() = false")
	}
	if s.Schedule(ctx, job) {
		t.Fatal("second Schedule() should be ignored")
	}

	select {
	case <-started:
	case <-time.After(2 * time.Second):
		t.Fatal("job did not run immediately")
	}
	if !s.Scheduled("unique") {
		t.Fatal("Scheduled() = false")
	}

	s.Cancel("unique")
	s.Wait()
	if s.Scheduled("unique") {
		t.Fatal("Scheduled() = true after Cancel")
	}
	if runs.Load() != 1 {
		t.Fatalf("runs = %d, want 1", runs.Load())
	}
}

func TestSchedulePeriodic(t *testing.T) {
	s := testScheduler()
	s.Interval = 10 * time.Millisecond
	ctx, cancel := context.WithCancel(context.Background())

	var runs atomic.Int32
	enough := make(chan struct{})
	var once sync.Once
	s.Schedule(ctx, JobFunc{JobName: "tick", Fn: func(context.Context) error {
		if runs.Add(1) == 3 {
			once.Do(func() { close(enough) })
		}
		return nil
	}})

	select {
	case <-enough:
	case <-time.After(2 * time.Second):
		t.Fatal("job did not repeat")
	}
	cancel()
	s.Wait()
}

type levels struct{}

func (levels) BatteryLevel(context.Context) int    { return 50 }
func (levels) RAMUsagePercent(context.Context) int { return 10 }

func TestWidgetJob(t *testing.T) {
	dir := t.TempDir()
	w := widget.New(filepath.Join(dir, "state.yaml"), filepath.Join(dir, "widget.txt"), levels{}, nil)

	job := WidgetJob{Widget: w}
	if job.Name() != WidgetJobName {
		t.Fatalf("Name() = %q", job.Name())
	}
	if err := testScheduler().RunOnce(context.Background(), job); err != nil {
		t.Fatalf("RunOnce(widget) error = %v", err)
	}
}
