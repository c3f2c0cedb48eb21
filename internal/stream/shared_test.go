package stream

import (
	"context"
	"sync/atomic"
	"testing"
	"time"
)

// counterProducer emits 1, 2, 3... every step until ctx is done.
func counterProducer(starts, stops *atomic.Int32, step time.Duration) Producer[int] {
	return func(ctx context.Context) <-chan int {
		starts.Add(1)
		out := make(chan int)
		go func() {
			defer close(out)
			defer stops.Add(1)
			n := 0
			ticker := time.NewTicker(step)
			defer ticker.Stop()
			for {
				select {
				case <-ctx.Done():
					return
				case <-ticker.C:
					n++
					select {
					case out <- n:
					case <-ctx.Done():
						return
					}
				}
			}
		}()
		return out
	}
}

func waitFor(t *testing.T, cond func() bool, msg string) {
	t.Helper()
	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		if cond() {
			return
		}
		time.Sleep(5 * time.Millisecond)
	}
	t.Fatal(msg)
}

func TestSubscribeDeliversInitialValue(t *testing.T) {
	var starts, stops atomic.Int32
	s := NewShared(-1, time.Second, counterProducer(&starts, &stops, time.Hour))
	defer s.Close()

	sub := s.Subscribe()
	defer sub.Close()

	select {
	case v := <-sub.C:
		if v != -1 {
			t.Fatalf("expected initial value -1, got %d", v)
		}
	case <-time.After(time.Second):
		t.Fatal("no initial value")
	}
	if starts.Load() != 1 {
		t.Fatalf("expected upstream started once, got %d", starts.Load())
	}
}

func TestSubscribersReceiveUpdates(t *testing.T) {
	var starts, stops atomic.Int32
	s := NewShared(0, time.Second, counterProducer(&starts, &stops, 5*time.Millisecond))
	defer s.Close()

	a := s.Subscribe()
	b := s.Subscribe()
	defer a.Close()
	defer b.Close()

	for _, sub := range []*Subscription[int]{a, b} {
		deadline := time.After(2 * time.Second)
		for got := 0; got < 2; {
			select {
			case v := <-sub.C:
				got = v
			case <-deadline:
				t.Fatal("timed out waiting for updates")
			}
		}
	}
	if starts.Load() != 1 {
		t.Fatalf("expected a single upstream for two subscribers, got %d", starts.Load())
	}
	if s.Value() < 2 {
		t.Fatalf("expected value to track upstream, got %d", s.Value())
	}
}

func TestUpstreamStopsAfterGrace(t *testing.T) {
	var starts, stops atomic.Int32
	grace := 50 * time.Millisecond
	s := NewShared(0, grace, counterProducer(&starts, &stops, 5*time.Millisecond))
	defer s.Close()

	sub := s.Subscribe()
	sub.Close()

	if !s.Running() {
		t.Fatal("upstream should keep running during the grace period")
	}
	waitFor(t, func() bool { return !s.Running() && stops.Load() == 1 }, "upstream not stopped after grace")
}

func TestResubscribeWithinGraceKeepsUpstream(t *testing.T) {
	var starts, stops atomic.Int32
	s := NewShared(0, 200*time.Millisecond, counterProducer(&starts, &stops, 5*time.Millisecond))
	defer s.Close()

	first := s.Subscribe()
	first.Close()
	second := s.Subscribe()
	defer second.Close()

	time.Sleep(300 * time.Millisecond)
	if !s.Running() {
		t.Fatal("upstream stopped although a subscriber is attached")
	}
	if starts.Load() != 1 {
		t.Fatalf("expected upstream reused, started %d times", starts.Load())
	}
}

func TestRestartAfterStop(t *testing.T) {
	var starts, stops atomic.Int32
	s := NewShared(0, 0, counterProducer(&starts, &stops, 5*time.Millisecond))
	defer s.Close()

	s.Subscribe().Close()
	waitFor(t, func() bool { return stops.Load() == 1 }, "upstream not stopped")

	sub := s.Subscribe()
	defer sub.Close()
	if starts.Load() != 2 {
		t.Fatalf("expected upstream restarted, started %d times", starts.Load())
	}
}

func TestFiniteUpstreamKeepsLastValue(t *testing.T) {
	s := NewShared(0, time.Second, func(ctx context.Context) <-chan int {
		out := make(chan int, 1)
		out <- 42
		close(out)
		return out
	})
	defer s.Close()

	sub := s.Subscribe()
	defer sub.Close()
	waitFor(t, func() bool { return s.Value() == 42 }, "last value not retained")
}

func TestSubscriptionCloseIsIdempotent(t *testing.T) {
	var starts, stops atomic.Int32
	s := NewShared(0, 0, counterProducer(&starts, &stops, time.Hour))
	sub := s.Subscribe()
	sub.Close()
	sub.Close()

	<-sub.C // initial value still buffered
	if _, ok := <-sub.C; ok {
		t.Fatal("expected channel closed")
	}
}
