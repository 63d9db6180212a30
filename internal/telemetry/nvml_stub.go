//go:build !linux || !cgo

package telemetry

import "context"

// NVMLBackend requires the Linux NVIDIA driver stack; this stub reports every
// metric unavailable elsewhere.
type NVMLBackend struct{}

// NewNVMLBackend returns an inert vendor GPU backend. logf is accepted for
// signature parity and ignored.
func NewNVMLBackend(logf func(string)) *NVMLBackend {
	_ = logf
	return &NVMLBackend{}
}

func (b *NVMLBackend) Name() string { return "nvml" }

func (b *NVMLBackend) Sample(ctx context.Context, metric Metric) (float64, bool) {
	return 0, false
}

func (b *NVMLBackend) Close() {}
