package stats

import (
	"context"
	"os"
	"runtime"
	"time"

	"github.com/shirou/gopsutil/v3/cpu"
	"github.com/shirou/gopsutil/v3/disk"
	"github.com/shirou/gopsutil/v3/host"
	"github.com/shirou/gopsutil/v3/mem"
	"github.com/shirou/gopsutil/v3/process"
)

type SystemInfo struct {
	OS           string
	Hostname     string
	SystemUptime time.Duration

	CPUCores int
	CPUUsage float64

	MemUsed    uint64
	MemTotal   uint64
	MemPercent float64

	DiskUsed    uint64
	DiskTotal   uint64
	DiskPercent float64
	DiskFree    uint64

	ProcessPID int
	ProcessCPU float64
	ProcessMem uint64

	GoVersion  string
	Goroutines int
	HeapAlloc  uint64
}

// CollectSystemInfo reads host, memory and disk usage for diskPath. Probes that
// fail leave their fields zero.
func CollectSystemInfo(ctx context.Context, diskPath string) *SystemInfo {
	info := &SystemInfo{CPUCores: runtime.NumCPU(), ProcessPID: os.Getpid()}

	if h, err := host.InfoWithContext(ctx); err == nil {
		info.OS = h.OS
		info.Hostname = h.Hostname
		info.SystemUptime = time.Duration(h.Uptime) * time.Second
	}

	if pct, err := cpu.PercentWithContext(ctx, 500*time.Millisecond, false); err == nil && len(pct) > 0 {
		info.CPUUsage = pct[0]
	}

	if vm, err := mem.VirtualMemoryWithContext(ctx); err == nil {
		info.MemUsed = vm.Used
		info.MemTotal = vm.Total
		info.MemPercent = vm.UsedPercent
	}

	if diskPath == "" {
		diskPath = "/"
	}
	if d, err := disk.UsageWithContext(ctx, diskPath); err == nil {
		info.DiskUsed = d.Used
		info.DiskTotal = d.Total
		info.DiskPercent = d.UsedPercent
		info.DiskFree = d.Free
	}

	if proc, err := process.NewProcessWithContext(ctx, int32(os.Getpid())); err == nil {
		if pct, err := proc.CPUPercentWithContext(ctx); err == nil {
			info.ProcessCPU = pct
		}
		if m, err := proc.MemoryInfoWithContext(ctx); err == nil {
			info.ProcessMem = m.RSS
		}
	}

	var m runtime.MemStats
	runtime.ReadMemStats(&m)
	info.GoVersion = runtime.Version()
	info.Goroutines = runtime.NumGoroutine()
	info.HeapAlloc = m.Alloc
	return info
}
