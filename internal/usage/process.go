package usage

import (
	"context"
	"fmt"
	"time"

	ps "github.com/mitchellh/go-ps"
	"github.com/shirou/gopsutil/v3/process"

	"github.com/prabalesh/droidinsight/internal/models"
)

// ProcessSource approximates per-app activity on hosts without a usage
// service: CPU time (user+system) of every process, grouped by executable.
// Last use is the newest process start time.
type ProcessSource struct {
	list    func() ([]ps.Process, error)
	inspect func(ctx context.Context, pid int) (cpuMillis, createdMillis int64, err error)
}

func NewProcessSource() *ProcessSource {
	return &ProcessSource{list: ps.Processes, inspect: inspectProcess}
}

func (*ProcessSource) HasPermission(context.Context) bool { return true }

func (p *ProcessSource) QueryUsageStats(ctx context.Context, start, end time.Time) ([]models.RawUsageStats, error) {
	procs, err := p.list()
	if err != nil {
		return nil, fmt.Errorf("list processes: %w", err)
	}

	endMs := end.UnixMilli()
	stats := make([]models.RawUsageStats, 0, len(procs))
	for _, proc := range procs {
		if ctx.Err() != nil {
			return nil, ctx.Err()
		}
		if proc.Executable() == "" {
			continue
		}
		cpuMs, created, err := p.inspect(ctx, proc.Pid())
		if err != nil || created >= endMs {
			// exited or unreadable
			continue
		}
		stats = append(stats, models.RawUsageStats{
			PackageName:           proc.Executable(),
			TotalTimeInForeground: cpuMs,
			LastTimeUsed:          created,
		})
	}
	return merge(stats), nil
}

func inspectProcess(ctx context.Context, pid int) (int64, int64, error) {
	proc, err := process.NewProcessWithContext(ctx, int32(pid))
	if err != nil {
		return 0, 0, err
	}
	times, err := proc.TimesWithContext(ctx)
	if err != nil {
		return 0, 0, err
	}
	created, err := proc.CreateTimeWithContext(ctx)
	if err != nil {
		return 0, 0, err
	}
	return int64((times.User + times.System) * 1000), created, nil
}
