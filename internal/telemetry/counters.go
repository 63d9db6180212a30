package telemetry

import (
	"context"
	"math"
	"strings"
	"sync"

	"github.com/shirou/gopsutil/v4/cpu"
	"github.com/shirou/gopsutil/v4/mem"
	"github.com/shirou/gopsutil/v4/sensors"
)

// CountersBackend samples CPU load, memory, and (where the kernel exposes
// one) a CPU temperature through generic OS counters. It is the cheapest and
// most widely available backend, so the aggregator always tries it first.
type CountersBackend struct {
	mu           sync.Mutex
	lastCPUTotal float64
	lastCPUIdle  float64
}

// NewCountersBackend returns a counters backend. No I/O happens until the
// first Sample call.
func NewCountersBackend() *CountersBackend {
	return &CountersBackend{}
}

func (b *CountersBackend) Name() string { return "counters" }

func (b *CountersBackend) Sample(ctx context.Context, metric Metric) (float64, bool) {
	switch metric {
	case MetricCPUPercent:
		return b.sampleCPUPercent(ctx)
	case MetricMemoryUsed:
		stats, err := mem.VirtualMemoryWithContext(ctx)
		if err != nil || stats == nil {
			return 0, false
		}
		return float64(stats.Used), true
	case MetricMemoryTotal:
		stats, err := mem.VirtualMemoryWithContext(ctx)
		if err != nil || stats == nil {
			return 0, false
		}
		return float64(stats.Total), true
	case MetricCPUTempC:
		return b.sampleCPUTemp(ctx)
	default:
		return 0, false
	}
}

func (b *CountersBackend) Close() {}

// sampleCPUPercent derives utilization from the delta between consecutive
// cumulative cpu.Times readings. The very first call has no previous sample
// and reports 0; the aggregator's cache interval keeps subsequent deltas
// meaningful.
func (b *CountersBackend) sampleCPUPercent(ctx context.Context) (float64, bool) {
	timesStats, err := cpu.TimesWithContext(ctx, false)
	if err != nil || len(timesStats) == 0 {
		return 0, false
	}
	total := cpuTotal(timesStats[0])
	idle := timesStats[0].Idle + timesStats[0].Iowait

	b.mu.Lock()
	deltaTotal := total - b.lastCPUTotal
	deltaIdle := idle - b.lastCPUIdle
	hasPrev := b.lastCPUTotal > 0
	b.lastCPUTotal = total
	b.lastCPUIdle = idle
	b.mu.Unlock()

	if !hasPrev || deltaTotal <= 0 {
		return 0, true
	}
	used := deltaTotal - deltaIdle
	if used < 0 {
		used = 0
	}
	return clampFloat((used/deltaTotal)*100, 0, 100), true
}

// cpuTempSensorKeys are sensor name fragments that identify the package/core
// temperature across common platforms.
var cpuTempSensorKeys = []string{"coretemp", "k10temp", "cpu_thermal", "cpu-thermal", "acpitz", "tctl"}

func (b *CountersBackend) sampleCPUTemp(ctx context.Context) (float64, bool) {
	stats, err := sensors.TemperaturesWithContext(ctx)
	if err != nil || len(stats) == 0 {
		return 0, false
	}
	for _, key := range cpuTempSensorKeys {
		for _, stat := range stats {
			if strings.Contains(strings.ToLower(stat.SensorKey), key) && stat.Temperature > 0 {
				return stat.Temperature, true
			}
		}
	}
	return 0, false
}

func cpuTotal(stat cpu.TimesStat) float64 {
	return stat.User + stat.System + stat.Nice + stat.Idle + stat.Iowait + stat.Irq + stat.Softirq + stat.Steal + stat.Guest + stat.GuestNice
}

func clampFloat(val, min, max float64) float64 {
	if math.IsNaN(val) {
		return min
	}
	if val < min {
		return min
	}
	if val > max {
		return max
	}
	return val
}
