package netbench

import (
	"fmt"
	"sync"

	"github.com/prabalesh/droidinsight/internal/models"
)

// HistorySize is the number of download samples kept for the chart.
const HistorySize = 60

// Stats accumulates throughput samples for the network screen.
type Stats struct {
	mu      sync.Mutex
	current models.NetworkRate
	history []int64
	maxDown int64
	sum     int64
	count   int64
}

func NewStats() *Stats {
	return &Stats{history: make([]int64, 0, HistorySize)}
}

// Record appends a sample. Max and average only move while a benchmark
// is running, and zero samples do not count towards the average.
func (s *Stats) Record(rate models.NetworkRate, testing bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.current = rate
	if len(s.history) == HistorySize {
		copy(s.history, s.history[1:])
		s.history = s.history[:HistorySize-1]
	}
	s.history = append(s.history, rate.DownloadSpeed)

	if !testing {
		return
	}
	if rate.DownloadSpeed > s.maxDown {
		s.maxDown = rate.DownloadSpeed
	}
	if rate.DownloadSpeed > 0 {
		s.sum += rate.DownloadSpeed
		s.count++
	}
}

// Reset clears the benchmark max and average.
func (s *Stats) Reset() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.maxDown, s.sum, s.count = 0, 0, 0
}

func (s *Stats) Current() models.NetworkRate {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.current
}

// History returns a copy of the samples, oldest first.
func (s *Stats) History() []int64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]int64, len(s.history))
	copy(out, s.history)
	return out
}

func (s *Stats) Max() int64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.maxDown
}

func (s *Stats) Avg() int64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.count == 0 {
		return 0
	}
	return s.sum / s.count
}

// FormatSpeed renders bytes per second.
func FormatSpeed(bps int64) string {
	switch {
	case bps >= 1024*1024:
		return fmt.Sprintf("%.1f MB/s", float64(bps)/(1024*1024))
	case bps >= 1024:
		return fmt.Sprintf("%.1f KB/s", float64(bps)/1024)
	default:
		return fmt.Sprintf("%d B/s", bps)
	}
}
