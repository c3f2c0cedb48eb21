package collector

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/prabalesh/droidinsight/internal/models"
)

// scriptedSource replays counter readings; the last one repeats.
type scriptedSource struct {
	mu       sync.Mutex
	readings [][2]int64
	calls    int
}

func (s *scriptedSource) TotalBytes(context.Context) (int64, int64) {
	s.mu.Lock()
	defer s.mu.Unlock()
	i := s.calls
	if i >= len(s.readings) {
		i = len(s.readings) - 1
	}
	s.calls++
	return s.readings[i][0], s.readings[i][1]
}

func collect(t *testing.T, ch <-chan models.NetworkRate, n int) []models.NetworkRate {
	t.Helper()
	var got []models.NetworkRate
	timeout := time.After(5 * time.Second)
	for len(got) < n {
		select {
		case v, ok := <-ch:
			if !ok {
				return got
			}
			got = append(got, v)
		case <-timeout:
			t.Fatalf("timed out after %d of %d rates", len(got), n)
		}
	}
	return got
}

func TestSamplerComputesDeltas(t *testing.T) {
	src := &scriptedSource{readings: [][2]int64{
		{1000, 500},
		{3000, 700},
		{3500, 700},
	}}
	s := NewSampler(src, time.Second)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// one-second cadence keeps the values unscaled
	got := collect(t, s.Observe(ctx), 3)
	want := []models.NetworkRate{
		{},
		{DownloadSpeed: 2000, UploadSpeed: 200},
		{DownloadSpeed: 500, UploadSpeed: 0},
	}
	for i := range want {
		if got[i] != want[i] {
			t.Fatalf("rate %d = %+v, want %+v", i, got[i], want[i])
		}
	}
}

func TestSamplerClampsCounterReset(t *testing.T) {
	src := &scriptedSource{readings: [][2]int64{
		{1000, 1000},
		{200, 50},
		{400, 150},
	}}
	s := NewSampler(src, 10*time.Millisecond)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	got := collect(t, s.Observe(ctx), 3)
	if got[1] != (models.NetworkRate{}) {
		t.Fatalf("expected zero rate after reset, got %+v", got[1])
	}
	// 200 and 100 bytes over 10ms scale to bytes per second
	if got[2].DownloadSpeed != 20000 || got[2].UploadSpeed != 10000 {
		t.Fatalf("expected scaled rate after reset, got %+v", got[2])
	}
	for i, r := range got {
		if r.DownloadSpeed < 0 || r.UploadSpeed < 0 {
			t.Fatalf("rate %d negative: %+v", i, r)
		}
	}
}

func TestSamplerUnsupportedEmitsOnce(t *testing.T) {
	tests := []struct {
		name    string
		reading [2]int64
	}{
		{"rx unsupported", [2]int64{Unsupported, 10}},
		{"tx unsupported", [2]int64{10, Unsupported}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			src := &scriptedSource{readings: [][2]int64{tt.reading}}
			ch := NewSampler(src, time.Millisecond).Observe(context.Background())

			got := collect(t, ch, 2)
			if len(got) != 1 || got[0] != (models.NetworkRate{}) {
				t.Fatalf("expected exactly one zero rate, got %+v", got)
			}
		})
	}
}

func TestSamplerIsLazyAndRestartable(t *testing.T) {
	src := &scriptedSource{readings: [][2]int64{{100, 100}}}
	s := NewSampler(src, time.Millisecond)
	if src.calls != 0 {
		t.Fatal("sampler read counters before Observe")
	}

	for i := 0; i < 2; i++ {
		ctx, cancel := context.WithCancel(context.Background())
		got := collect(t, s.Observe(ctx), 1)
		if got[0] != (models.NetworkRate{}) {
			t.Fatalf("run %d: expected initial zero rate, got %+v", i, got[0])
		}
		cancel()
	}
}

func TestSamplerStopsOnCancel(t *testing.T) {
	src := &scriptedSource{readings: [][2]int64{{0, 0}}}
	ctx, cancel := context.WithCancel(context.Background())
	ch := NewSampler(src, time.Millisecond).Observe(ctx)
	<-ch
	cancel()

	done := make(chan struct{})
	go func() {
		for range ch {
		}
		close(done)
	}()
	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("sampler did not stop after cancel")
	}
}
