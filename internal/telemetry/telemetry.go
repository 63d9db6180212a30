// Package telemetry samples host hardware utilization from several partially
// available backends and serves cached readings to the orchestrator.
//
// Backends are layered by precision: generic OS counters first, a Windows
// management-instrumentation thermal query next, and the vendor GPU library
// last but preferred for GPU metrics. A metric nobody can answer reports a
// zero sentinel instead of an error; a missing sensor is an expected
// condition on most hosts.
package telemetry

import (
	"context"
	"time"
)

// Metric identifies one hardware reading the aggregator can serve.
type Metric int

const (
	MetricCPUPercent Metric = iota
	MetricGPUPercent
	MetricCPUTempC
	MetricGPUTempC
	MetricGPUFanPercent
	MetricMemoryUsed
	MetricMemoryTotal
)

// String returns the configuration/log name of the metric.
func (m Metric) String() string {
	switch m {
	case MetricCPUPercent:
		return "cpu_percent"
	case MetricGPUPercent:
		return "gpu_percent"
	case MetricCPUTempC:
		return "cpu_temp"
	case MetricGPUTempC:
		return "gpu_temp"
	case MetricGPUFanPercent:
		return "gpu_fan"
	case MetricMemoryUsed:
		return "memory_used"
	case MetricMemoryTotal:
		return "memory_total"
	}
	return "unknown"
}

// Sample is one cached reading. Backend is empty for the zero sentinel
// produced when no backend could answer.
type Sample struct {
	Value      float64   `json:"value"`
	CapturedAt time.Time `json:"captured_at"`
	Backend    string    `json:"backend,omitempty"`
}

// Backend wraps one hardware-sampling mechanism. Implementations must treat
// an absent sensor as (0, false), never as an error: the aggregator falls
// through to the next backend or a zero sentinel.
type Backend interface {
	// Name identifies the backend in samples and logs.
	Name() string
	// Sample reads one metric. ok is false when this backend cannot serve
	// the metric on this host.
	Sample(ctx context.Context, metric Metric) (value float64, ok bool)
	// Close releases any native handles. Must be safe to call twice.
	Close()
}
