//go:build !windows

package telemetry

import "context"

// WMIBackend is Windows-only; this stub reports every metric unavailable so
// the aggregator's backend list is identical across platforms.
type WMIBackend struct{}

// NewWMIBackend returns an inert WMI backend on non-Windows hosts. logf is
// accepted for signature parity and ignored.
func NewWMIBackend(logf func(string)) *WMIBackend {
	_ = logf
	return &WMIBackend{}
}

func (b *WMIBackend) Name() string { return "wmi" }

func (b *WMIBackend) Sample(ctx context.Context, metric Metric) (float64, bool) {
	return 0, false
}

func (b *WMIBackend) Close() {}
