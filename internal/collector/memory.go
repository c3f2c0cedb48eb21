package collector

import (
	"context"

	"github.com/shirou/gopsutil/v3/mem"
)

type capacity struct {
	total     uint64
	available uint64
}

func (s *StatsCollector) getMemoryStats(ctx context.Context) capacity {
	total, available, err := s.readMemory(ctx)
	if err != nil {
		s.logger.Debug("memory probe failed", "err", err)
		return capacity{}
	}
	return capacity{total: total, available: available}
}

func readVirtualMemory(ctx context.Context) (uint64, uint64, error) {
	vm, err := mem.VirtualMemoryWithContext(ctx)
	if err != nil {
		return 0, 0, err
	}
	return vm.Total, vm.Available, nil
}
