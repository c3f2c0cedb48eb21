package collector

import (
	"context"

	"github.com/shirou/gopsutil/v3/disk"
)

func (s *StatsCollector) getStorageStats(ctx context.Context) capacity {
	total, available, err := s.readStorage(ctx, s.storagePath)
	if err != nil {
		s.logger.Debug("storage probe failed", "path", s.storagePath, "err", err)
		return capacity{}
	}
	return capacity{total: total, available: available}
}

// readDiskUsage reports the filesystem size and the space available to
// unprivileged users, which is what StatFs calls available blocks.
func readDiskUsage(ctx context.Context, path string) (uint64, uint64, error) {
	usage, err := disk.UsageWithContext(ctx, path)
	if err != nil {
		return 0, 0, err
	}
	return usage.Total, usage.Free, nil
}
