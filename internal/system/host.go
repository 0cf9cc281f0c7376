package system

import (
	"context"
	"runtime"

	"github.com/shirou/gopsutil/v3/cpu"
	"github.com/shirou/gopsutil/v3/mem"
)

// HostInfo summarizes the machine the pipeline runs on.
type HostInfo struct {
	LogicalCPUs     int
	PhysicalCPUs    int
	TotalMemory     uint64
	AvailableMemory uint64
	UsedPercent     float64
}

// Host collects CPU and memory figures. Fields that cannot be read stay zero.
func Host(ctx context.Context) (HostInfo, error) {
	var info HostInfo
	logical, err := cpu.CountsWithContext(ctx, true)
	if err != nil {
		return info, err
	}
	info.LogicalCPUs = logical
	if physical, err := cpu.CountsWithContext(ctx, false); err == nil {
		info.PhysicalCPUs = physical
	}

	vm, err := mem.VirtualMemoryWithContext(ctx)
	if err != nil {
		return info, err
	}
	info.TotalMemory = vm.Total
	info.AvailableMemory = vm.Available
	info.UsedPercent = vm.UsedPercent
	return info, nil
}

// DefaultWorkers is the default concurrency for engine and audio fan-out.
func DefaultWorkers() int {
	if n, err := cpu.Counts(true); err == nil && n > 0 {
		return n
	}
	return runtime.NumCPU()
}

// ResolveWorkers returns configured when positive, DefaultWorkers otherwise.
func ResolveWorkers(configured int) int {
	if configured > 0 {
		return configured
	}
	return DefaultWorkers()
}
