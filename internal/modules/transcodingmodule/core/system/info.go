// Package system reports host resources and the resource use of running
// stage processes.
package system

import (
	"context"
	"fmt"
	"runtime"
	"time"

	"github.com/hashicorp/go-hclog"
	"github.com/shirou/gopsutil/v4/cpu"
	"github.com/shirou/gopsutil/v4/disk"
	"github.com/shirou/gopsutil/v4/load"
	"github.com/shirou/gopsutil/v4/mem"
	"github.com/shirou/gopsutil/v4/process"
)

// SystemInfo provides real system resource information
type SystemInfo struct {
	CPUCores      int              `json:"cpu_cores"`
	CPUPercent    float64          `json:"cpu_percent"`
	TotalMemoryMB uint64           `json:"total_memory_mb"`
	FreeMemoryMB  uint64           `json:"free_memory_mb"`
	MemoryPercent float64          `json:"memory_percent"`
	LoadAverage   []float64        `json:"load_average"`
	Disks         map[string]Space `json:"disks,omitempty"`
}

// Space is the capacity of the file system holding a directory.
type Space struct {
	TotalMB     uint64  `json:"total_mb"`
	FreeMB      uint64  `json:"free_mb"`
	UsedPercent float64 `json:"used_percent"`
}

// ProcessStats is a sample of one process.
type ProcessStats struct {
	PID        int32         `json:"pid"`
	Name       string        `json:"name"`
	CPUPercent float64       `json:"cpu_percent"`
	MemoryMB   uint64        `json:"memory_mb"`
	Threads    int32         `json:"threads"`
	Running    time.Duration `json:"running_ns"`
}

// Sampler collects host and process statistics.
type Sampler struct {
	logger hclog.Logger
	dirs   map[string]string
}

// NewSampler creates a sampler that also reports free space for each named
// directory.
func NewSampler(logger hclog.Logger, dirs map[string]string) *Sampler {
	if logger == nil {
		logger = hclog.NewNullLogger()
	}
	return &Sampler{logger: logger.Named("system"), dirs: dirs}
}

// GetSystemInfo retrieves actual system resource information. Load average
// and disk figures are best effort; memory is required.
func (s *Sampler) GetSystemInfo(ctx context.Context) (*SystemInfo, error) {
	info := &SystemInfo{
		CPUCores:    runtime.NumCPU(),
		LoadAverage: []float64{0, 0, 0},
	}

	memStats, err := mem.VirtualMemoryWithContext(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to get memory info: %w", err)
	}
	info.TotalMemoryMB = memStats.Total / 1024 / 1024
	info.FreeMemoryMB = memStats.Available / 1024 / 1024
	info.MemoryPercent = memStats.UsedPercent

	// zero interval compares against the previous call
	if percents, err := cpu.PercentWithContext(ctx, 0, false); err == nil && len(percents) > 0 {
		info.CPUPercent = percents[0]
	} else if err != nil {
		s.logger.Debug("cpu percent unavailable", "error", err)
	}

	if avg, err := load.AvgWithContext(ctx); err == nil {
		info.LoadAverage = []float64{avg.Load1, avg.Load5, avg.Load15}
	} else {
		s.logger.Debug("load average unavailable", "error", err)
	}

	for name, dir := range s.dirs {
		usage, err := disk.UsageWithContext(ctx, dir)
		if err != nil {
			s.logger.Debug("disk usage unavailable", "dir", dir, "error", err)
			continue
		}
		if info.Disks == nil {
			info.Disks = make(map[string]Space)
		}
		info.Disks[name] = Space{
			TotalMB:     usage.Total / 1024 / 1024,
			FreeMB:      usage.Free / 1024 / 1024,
			UsedPercent: usage.UsedPercent,
		}
	}

	return info, nil
}

// ProcessStats samples a running process.
func (s *Sampler) ProcessStats(ctx context.Context, pid int) (*ProcessStats, error) {
	if pid <= 0 {
		return nil, fmt.Errorf("invalid pid %d", pid)
	}

	proc, err := process.NewProcessWithContext(ctx, int32(pid))
	if err != nil {
		return nil, fmt.Errorf("process %d: %w", pid, err)
	}

	stats := &ProcessStats{PID: proc.Pid}
	if name, err := proc.NameWithContext(ctx); err == nil {
		stats.Name = name
	}
	if pct, err := proc.CPUPercentWithContext(ctx); err == nil {
		stats.CPUPercent = pct
	}
	if memInfo, err := proc.MemoryInfoWithContext(ctx); err == nil && memInfo != nil {
		stats.MemoryMB = memInfo.RSS / 1024 / 1024
	}
	if threads, err := proc.NumThreadsWithContext(ctx); err == nil {
		stats.Threads = threads
	}
	if created, err := proc.CreateTimeWithContext(ctx); err == nil {
		stats.Running = time.Since(time.UnixMilli(created))
	}

	return stats, nil
}
