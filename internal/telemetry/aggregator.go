package telemetry

import (
	"context"
	"sync"
	"time"

	"aism/internal/models"
)

// Minimum re-sampling intervals per metric. Load and memory are cheap to read
// and refresh quickly; temperature and fan queries cost more (WMI round trip,
// vendor library) and change slowly, so they are held longer.
const (
	loadInterval    = 500 * time.Millisecond
	thermalInterval = 2 * time.Second
)

// referenceMaxFanRPM is the assumed full-speed RPM used to turn a fan duty
// cycle percentage into an RPM figure when the driver exposes no tachometer.
// The result is an estimate, flagged as such on SystemMetrics.
const referenceMaxFanRPM = 3000.0

// Aggregator selects among telemetry backends per metric and caches readings
// so that callers can poll freely without multiplying syscall/WMI/vendor-API
// traffic. It is the exclusive owner of the sample cache.
type Aggregator struct {
	mu       sync.Mutex
	backends []Backend // precision order: a later backend is only asked when earlier ones cannot answer
	cache    map[Metric]Sample
	now      func() time.Time

	closeOnce sync.Once
	logf      func(string)
}

// NewAggregator builds an aggregator over the standard backend set: generic
// OS counters, the Windows thermal-zone query, and the NVIDIA management
// library. Backends that do not apply to the host simply report unavailable.
func NewAggregator(logf func(string)) *Aggregator {
	return NewAggregatorWithBackends([]Backend{
		NewCountersBackend(),
		NewWMIBackend(logf),
		NewNVMLBackend(logf),
	}, logf)
}

// NewAggregatorWithBackends builds an aggregator over an explicit backend
// list, tried in order for every metric.
func NewAggregatorWithBackends(backends []Backend, logf func(string)) *Aggregator {
	return &Aggregator{
		backends: backends,
		cache:    make(map[Metric]Sample),
		now:      time.Now,
		logf:     logf,
	}
}

func metricInterval(metric Metric) time.Duration {
	switch metric {
	case MetricCPUTempC, MetricGPUTempC, MetricGPUFanPercent:
		return thermalInterval
	default:
		return loadInterval
	}
}

// plausible rejects readings that are obviously garbage (a temperature of
// -273 or a utilization of 400%) so a misbehaving sensor cannot poison the
// snapshot; the next backend gets a chance instead.
func plausible(metric Metric, value float64) bool {
	switch metric {
	case MetricCPUPercent, MetricGPUPercent, MetricGPUFanPercent:
		return value >= 0 && value <= 100
	case MetricCPUTempC, MetricGPUTempC:
		return value >= 0 && value < 150
	default:
		return value >= 0
	}
}

// Get returns the freshest available sample for the metric. A cached sample
// younger than the metric's minimum interval is returned verbatim; otherwise
// backends are tried in precision order and the first plausible reading wins.
// When nobody answers, a zero sentinel (empty Backend) is cached and returned
// so an absent sensor costs at most one sweep per interval.
func (a *Aggregator) Get(ctx context.Context, metric Metric) Sample {
	a.mu.Lock()
	defer a.mu.Unlock()

	now := a.now()
	if cached, ok := a.cache[metric]; ok && now.Sub(cached.CapturedAt) < metricInterval(metric) {
		return cached
	}

	sample := Sample{CapturedAt: now}
	for _, backend := range a.backends {
		value, ok := backend.Sample(ctx, metric)
		if !ok {
			continue
		}
		if !plausible(metric, value) {
			if a.logf != nil {
				a.logf("Telemetry: discarding implausible " + metric.String() + " reading from " + backend.Name())
			}
			continue
		}
		sample.Value = value
		sample.Backend = backend.Name()
		break
	}
	a.cache[metric] = sample
	return sample
}

// Snapshot assembles a SystemMetrics from the latest samples. It never fails:
// metrics nobody can serve stay zero.
func (a *Aggregator) Snapshot(ctx context.Context) models.SystemMetrics {
	fan := a.Get(ctx, MetricGPUFanPercent)

	snapshot := models.SystemMetrics{
		CPUPercent:  a.Get(ctx, MetricCPUPercent).Value,
		GPUPercent:  a.Get(ctx, MetricGPUPercent).Value,
		CPUTempC:    a.Get(ctx, MetricCPUTempC).Value,
		GPUTempC:    a.Get(ctx, MetricGPUTempC).Value,
		MemoryUsed:  uint64(a.Get(ctx, MetricMemoryUsed).Value),
		MemoryTotal: uint64(a.Get(ctx, MetricMemoryTotal).Value),
		SampledAt:   a.timestamp(),
	}
	if fan.Backend != "" {
		snapshot.GPUFanRPM = EstimateFanRPM(fan.Value)
		snapshot.GPUFanEstimated = true
	}
	return snapshot
}

func (a *Aggregator) timestamp() time.Time {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.now()
}

// EstimateFanRPM converts a fan duty-cycle percentage into an approximate RPM
// against a fixed reference maximum. It is an estimate, not a measurement.
func EstimateFanRPM(percent float64) float64 {
	return clampFloat(percent, 0, 100) / 100 * referenceMaxFanRPM
}

// Close releases every backend exactly once. Safe to call repeatedly.
func (a *Aggregator) Close() {
	a.closeOnce.Do(func() {
		for _, backend := range a.backends {
			backend.Close()
		}
	})
}
