// Package ops reads process and host vitals for the health job and the
// status API. Readings are advisory; a failed collector degrades to zero
// with a warning instead of failing the probe.
package ops

import (
	"os"
	"runtime"
	"time"

	"github.com/rs/zerolog"
	"github.com/shirou/gopsutil/v3/cpu"
	"github.com/shirou/gopsutil/v3/disk"
	"github.com/shirou/gopsutil/v3/mem"
	"github.com/shirou/gopsutil/v3/process"
)

// Health is one point-in-time reading.
type Health struct {
	CPUPercent     float64 `json:"cpu_percent"`
	MemUsedPercent float64 `json:"mem_used_percent"`
	ProcessRSSMB   float64 `json:"process_rss_mb"`
	DiskUsedPct    float64 `json:"disk_used_percent"`
	DiskFreeGB     float64 `json:"disk_free_gb"`
	Goroutines     int     `json:"goroutines"`
	UptimeSec      int64   `json:"uptime_sec"`
}

// Probe samples the running process and the data directory's filesystem.
type Probe struct {
	dataDir   string
	startedAt time.Time
	log       zerolog.Logger
}

// NewProbe creates a new system probe
func NewProbe(dataDir string, log zerolog.Logger) *Probe {
	return &Probe{
		dataDir:   dataDir,
		startedAt: time.Now(),
		log:       log.With().Str("component", "ops").Logger(),
	}
}

// Snapshot collects one reading. The CPU sample uses a short window so
// callers on the request path are not blocked for a full second.
func (p *Probe) Snapshot() Health {
	h := Health{
		Goroutines: runtime.NumGoroutine(),
		UptimeSec:  int64(time.Since(p.startedAt).Seconds()),
	}

	cpuPercent, err := cpu.Percent(100*time.Millisecond, false)
	if err != nil {
		p.log.Warn().Err(err).Msg("cpu sample failed")
	} else if len(cpuPercent) > 0 {
		h.CPUPercent = cpuPercent[0]
	}

	memStat, err := mem.VirtualMemory()
	if err != nil {
		p.log.Warn().Err(err).Msg("memory sample failed")
	} else {
		h.MemUsedPercent = memStat.UsedPercent
	}

	proc, err := process.NewProcess(int32(os.Getpid()))
	if err == nil {
		if info, err := proc.MemoryInfo(); err == nil && info != nil {
			h.ProcessRSSMB = float64(info.RSS) / (1024 * 1024)
		}
	}

	if p.dataDir != "" {
		usage, err := disk.Usage(p.dataDir)
		if err != nil {
			p.log.Warn().Err(err).Str("path", p.dataDir).Msg("disk sample failed")
		} else {
			h.DiskUsedPct = usage.UsedPercent
			h.DiskFreeGB = float64(usage.Free) / (1024 * 1024 * 1024)
		}
	}

	return h
}

// Log emits one reading as a structured info line.
func (p *Probe) Log() Health {
	h := p.Snapshot()
	p.log.Info().
		Float64("cpu_percent", h.CPUPercent).
		Float64("mem_used_percent", h.MemUsedPercent).
		Float64("process_rss_mb", h.ProcessRSSMB).
		Float64("disk_used_percent", h.DiskUsedPct).
		Float64("disk_free_gb", h.DiskFreeGB).
		Int("goroutines", h.Goroutines).
		Int64("uptime_sec", h.UptimeSec).
		Msg("system health")
	return h
}
