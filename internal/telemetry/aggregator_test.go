package telemetry

import (
	"context"
	"testing"
	"time"
)

// fakeBackend serves scripted values for a subset of metrics and counts how
// often it is asked.
type fakeBackend struct {
	name   string
	values map[Metric]float64
	calls  int
	closed int
}

func (f *fakeBackend) Name() string { return f.name }

func (f *fakeBackend) Sample(ctx context.Context, metric Metric) (float64, bool) {
	f.calls++
	v, ok := f.values[metric]
	return v, ok
}

func (f *fakeBackend) Close() { f.closed++ }

func newTestAggregator(backends ...Backend) (*Aggregator, *time.Time) {
	agg := NewAggregatorWithBackends(backends, nil)
	now := time.Date(2026, 3, 1, 9, 0, 0, 0, time.UTC)
	agg.now = func() time.Time { return now }
	return agg, &now
}

func TestGetCachesWithinInterval(t *testing.T) {
	be := &fakeBackend{name: "fake", values: map[Metric]float64{MetricGPUTempC: 61}}
	agg, now := newTestAggregator(be)

	first := agg.Get(context.Background(), MetricGPUTempC)
	if first.Value != 61 || first.Backend != "fake" {
		t.Fatalf("unexpected first sample: %+v", first)
	}

	// 100ms later: identical cached sample, no new backend call.
	*now = now.Add(100 * time.Millisecond)
	be.values[MetricGPUTempC] = 70
	second := agg.Get(context.Background(), MetricGPUTempC)
	if second != first {
		t.Fatalf("expected cached sample %+v, got %+v", first, second)
	}
	if be.calls != 1 {
		t.Fatalf("expected 1 backend call, got %d", be.calls)
	}

	// Past the thermal interval the new value is picked up.
	*now = now.Add(thermalInterval)
	third := agg.Get(context.Background(), MetricGPUTempC)
	if third.Value != 70 {
		t.Fatalf("expected refreshed value 70, got %+v", third)
	}
}

func TestGetPrefersEarlierBackend(t *testing.T) {
	coarse := &fakeBackend{name: "coarse", values: map[Metric]float64{MetricCPUPercent: 40}}
	precise := &fakeBackend{name: "precise", values: map[Metric]float64{MetricCPUPercent: 42, MetricGPUPercent: 55}}
	agg, _ := newTestAggregator(coarse, precise)

	cpu := agg.Get(context.Background(), MetricCPUPercent)
	if cpu.Backend != "coarse" {
		t.Fatalf("expected first backend to win for cpu, got %q", cpu.Backend)
	}

	// coarse cannot answer GPU; the next backend is consulted.
	gpu := agg.Get(context.Background(), MetricGPUPercent)
	if gpu.Backend != "precise" || gpu.Value != 55 {
		t.Fatalf("expected fallthrough to precise backend, got %+v", gpu)
	}
}

func TestGetSkipsImplausibleReadings(t *testing.T) {
	broken := &fakeBackend{name: "broken", values: map[Metric]float64{MetricGPUPercent: 400}}
	sane := &fakeBackend{name: "sane", values: map[Metric]float64{MetricGPUPercent: 63}}
	agg, _ := newTestAggregator(broken, sane)

	got := agg.Get(context.Background(), MetricGPUPercent)
	if got.Backend != "sane" || got.Value != 63 {
		t.Fatalf("expected implausible reading to be skipped, got %+v", got)
	}
}

func TestGetZeroSentinelWhenNobodyAnswers(t *testing.T) {
	agg, now := newTestAggregator(&fakeBackend{name: "empty"})

	got := agg.Get(context.Background(), MetricGPUTempC)
	if got.Value != 0 || got.Backend != "" {
		t.Fatalf("expected zero sentinel, got %+v", got)
	}

	// The sentinel is cached too, bounding retry cost.
	be := agg.backends[0].(*fakeBackend)
	calls := be.calls
	*now = now.Add(100 * time.Millisecond)
	agg.Get(context.Background(), MetricGPUTempC)
	if be.calls != calls {
		t.Fatalf("expected sentinel to be served from cache, backend calls went %d -> %d", calls, be.calls)
	}
}

func TestSnapshotNeverFails(t *testing.T) {
	agg, _ := newTestAggregator(&fakeBackend{name: "empty"})

	snap := agg.Snapshot(context.Background())
	if snap.CPUPercent != 0 || snap.GPUTempC != 0 || snap.MemoryTotal != 0 {
		t.Fatalf("expected all-zero snapshot, got %+v", snap)
	}
	if snap.GPUFanEstimated {
		t.Fatal("fan must not be flagged estimated when no backend answered")
	}
	if snap.SampledAt.IsZero() {
		t.Fatal("snapshot timestamp missing")
	}
}

func TestSnapshotEstimatesFanRPM(t *testing.T) {
	be := &fakeBackend{name: "gpu", values: map[Metric]float64{MetricGPUFanPercent: 50}}
	agg, _ := newTestAggregator(be)

	snap := agg.Snapshot(context.Background())
	if !snap.GPUFanEstimated {
		t.Fatal("expected fan RPM to be flagged as estimated")
	}
	if snap.GPUFanRPM != referenceMaxFanRPM/2 {
		t.Fatalf("expected %v RPM for 50%%, got %v", referenceMaxFanRPM/2, snap.GPUFanRPM)
	}
}

func TestCloseIsIdempotent(t *testing.T) {
	be := &fakeBackend{name: "fake"}
	agg, _ := newTestAggregator(be)

	agg.Close()
	agg.Close()
	if be.closed != 1 {
		t.Fatalf("expected exactly one backend Close, got %d", be.closed)
	}
}
