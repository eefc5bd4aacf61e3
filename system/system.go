package system

import (
	"context"
	"runtime"

	"github.com/shirou/gopsutil/v3/cpu"
	"github.com/shirou/gopsutil/v3/disk"
	"github.com/shirou/gopsutil/v3/host"
	"github.com/shirou/gopsutil/v3/load"
	"github.com/shirou/gopsutil/v3/mem"
)

// Version is overwritten at build time with -ldflags.
var Version = "develop"

type Information struct {
	Version string `json:"version"`
	System  System `json:"system"`
}

type System struct {
	Architecture  string `json:"architecture"`
	CPUThreads    int    `json:"cpu_threads"`
	MemoryBytes   int64  `json:"memory_bytes"`
	KernelVersion string `json:"kernel_version"`
	OS            string `json:"os"`
	OSType        string `json:"os_type"`
	GoVersion     string `json:"go_version"`
}

type Utilization struct {
	MemoryTotal uint64  `json:"memory_total"`
	MemoryUsed  uint64  `json:"memory_used"`
	LoadAvg1    float64 `json:"load_average1"`
	LoadAvg5    float64 `json:"load_average5"`
	LoadAvg15   float64 `json:"load_average15"`
	CpuPercent  float64 `json:"cpu_percent"`
	// Space of the disk holding the uploaded module files.
	DiskTotal uint64 `json:"disk_total"`
	DiskUsed  uint64 `json:"disk_used"`
}

func GetSystemInformation(ctx context.Context) (*Information, error) {
	kernelVersion, err := host.KernelVersionWithContext(ctx)
	if err != nil {
		return nil, err
	}
	m, err := mem.VirtualMemoryWithContext(ctx)
	if err != nil {
		return nil, err
	}

	return &Information{
		Version: Version,
		System: System{
			Architecture:  runtime.GOARCH,
			CPUThreads:    runtime.NumCPU(),
			MemoryBytes:   int64(m.Total),
			KernelVersion: kernelVersion,
			OS:            getOperatingSystemName(),
			OSType:        runtime.GOOS,
			GoVersion:     runtime.Version(),
		},
	}, nil
}

// GetSystemUtilization returns the current load of the host. Disk usage is
// reported for the filesystem containing dataDir.
func GetSystemUtilization(ctx context.Context, dataDir string) (*Utilization, error) {
	c, err := cpu.PercentWithContext(ctx, 0, false)
	if err != nil {
		return nil, err
	}
	m, err := mem.VirtualMemoryWithContext(ctx)
	if err != nil {
		return nil, err
	}
	u := &Utilization{
		MemoryTotal: m.Total,
		MemoryUsed:  m.Used,
	}
	if len(c) > 0 {
		u.CpuPercent = c[0]
	}
	// Load averages are not available on every platform.
	if l, err := load.AvgWithContext(ctx); err == nil {
		u.LoadAvg1, u.LoadAvg5, u.LoadAvg15 = l.Load1, l.Load5, l.Load15
	}
	d, err := disk.UsageWithContext(ctx, dataDir)
	if err != nil {
		return nil, err
	}
	u.DiskTotal = d.Total
	u.DiskUsed = d.Used
	return u, nil
}
