package collector

import (
	"context"
	"log/slog"
	"time"

	"github.com/prabalesh/droidinsight/internal/models"
)

type Options struct {
	StoragePath     string
	PowerSupplyPath string
	Logger          *slog.Logger
}

// StatsCollector reads device state from the OS. Every accessor degrades to
// a default value instead of failing.
type StatsCollector struct {
	storagePath     string
	powerSupplyPath string
	deviceCache     *DeviceCache
	logger          *slog.Logger

	// OS accessors, swapped out in tests
	readMemory  func(ctx context.Context) (total, available uint64, err error)
	readStorage func(ctx context.Context, path string) (total, available uint64, err error)
	readDevice  func(ctx context.Context) models.DeviceInfo
}

func NewStatsCollector(opts Options) *StatsCollector {
	if opts.StoragePath == "" {
		opts.StoragePath = "/"
	}
	if opts.PowerSupplyPath == "" {
		opts.PowerSupplyPath = defaultPowerSupplyPath
	}
	if opts.Logger == nil {
		opts.Logger = slog.Default()
	}
	return &StatsCollector{
		storagePath:     opts.StoragePath,
		powerSupplyPath: opts.PowerSupplyPath,
		deviceCache:     NewDeviceCache(),
		logger:          opts.Logger,
		readMemory:      readVirtualMemory,
		readStorage:     readDiskUsage,
		readDevice:      readDeviceInfo,
	}
}

// GetSystemInfo probes device identity, RAM and storage.
func (s *StatsCollector) GetSystemInfo(ctx context.Context) models.SystemInfo {
	device := s.getDeviceInfo(ctx)
	mem := s.getMemoryStats(ctx)
	storage := s.getStorageStats(ctx)

	return models.SystemInfo{
		ModelName:        device.ModelName,
		OSVersion:        device.OSVersion,
		Manufacturer:     device.Manufacturer,
		TotalRAM:         mem.total,
		AvailableRAM:     mem.available,
		TotalStorage:     storage.total,
		AvailableStorage: storage.available,
	}
}

// WatchSystemInfo emits a probe right away and then once per interval
// until ctx is cancelled.
func (s *StatsCollector) WatchSystemInfo(ctx context.Context, interval time.Duration) <-chan models.SystemInfo {
	out := make(chan models.SystemInfo)
	go func() {
		defer close(out)
		ticker := time.NewTicker(interval)
		defer ticker.Stop()
		for {
			select {
			case out <- s.GetSystemInfo(ctx):
			case <-ctx.Done():
				return
			}
			select {
			case <-ticker.C:
			case <-ctx.Done():
				return
			}
		}
	}()
	return out
}

// RAMUsagePercent returns used RAM as an integer percentage, 0 when the
// total is unknown.
func (s *StatsCollector) RAMUsagePercent(ctx context.Context) int {
	mem := s.getMemoryStats(ctx)
	if mem.total == 0 || mem.available > mem.total {
		return 0
	}
	return int((mem.total - mem.available) * 100 / mem.total)
}

func (s *StatsCollector) ClearDeviceCache() {
	s.deviceCache.Clear()
}
