package collector

import (
	"context"
	"time"

	"github.com/shirou/gopsutil/v3/net"

	"github.com/prabalesh/droidinsight/internal/models"
)

// Unsupported is reported by a CounterSource that cannot read byte counters.
const Unsupported int64 = -1

const DefaultSampleInterval = time.Second

// CounterSource reports cumulative bytes received and sent since boot.
type CounterSource interface {
	TotalBytes(ctx context.Context) (rx, tx int64)
}

// IOCounterSource sums the counters of every non-loopback interface.
type IOCounterSource struct{}

func (IOCounterSource) TotalBytes(ctx context.Context) (int64, int64) {
	counters, err := net.IOCountersWithContext(ctx, true)
	if err != nil {
		return Unsupported, Unsupported
	}

	var rx, tx uint64
	seen := 0
	for _, c := range counters {
		if c.Name == "lo" {
			continue
		}
		rx += c.BytesRecv
		tx += c.BytesSent
		seen++
	}
	if seen == 0 {
		return Unsupported, Unsupported
	}
	return int64(rx), int64(tx)
}

// Sampler turns cumulative counters into per-second throughput.
type Sampler struct {
	Source   CounterSource
	Interval time.Duration
}

func NewSampler(source CounterSource, interval time.Duration) *Sampler {
	if source == nil {
		source = IOCounterSource{}
	}
	if interval <= 0 {
		interval = DefaultSampleInterval
	}
	return &Sampler{Source: source, Interval: interval}
}

// Observe starts sampling. Nothing is read until it is called and every call
// takes a fresh baseline. When the counters are unsupported a single zero
// record is emitted and the channel is closed; otherwise a zero record is
// emitted right away and then one record per interval until ctx is done.
func (s *Sampler) Observe(ctx context.Context) <-chan models.NetworkRate {
	out := make(chan models.NetworkRate, 1)
	go func() {
		defer close(out)

		lastRx, lastTx := s.Source.TotalBytes(ctx)
		if lastRx == Unsupported || lastTx == Unsupported {
			out <- models.NetworkRate{}
			return
		}
		out <- models.NetworkRate{}

		ticker := time.NewTicker(s.Interval)
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
			}

			rx, tx := s.Source.TotalBytes(ctx)
			if rx == Unsupported || tx == Unsupported {
				// counters vanished mid-stream; keep the baseline
				continue
			}
			rate := models.NetworkRate{
				DownloadSpeed: s.perSecond(rx - lastRx),
				UploadSpeed:   s.perSecond(tx - lastTx),
			}
			lastRx, lastTx = rx, tx

			select {
			case out <- rate:
			case <-ctx.Done():
				return
			}
		}
	}()
	return out
}

// perSecond floors delta at zero, which covers counter resets on reboot or
// overflow, and scales it to a one second window.
func (s *Sampler) perSecond(delta int64) int64 {
	if delta <= 0 {
		return 0
	}
	if s.Interval == time.Second {
		return delta
	}
	return int64(float64(delta) * float64(time.Second) / float64(s.Interval))
}
