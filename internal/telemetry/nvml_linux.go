//go:build linux && cgo

package telemetry

import (
	"context"
	"sync"

	"github.com/NVIDIA/go-nvml/pkg/nvml"
)

// NVMLBackend reads GPU utilization, temperature, and fan duty cycle from the
// NVIDIA management library. The library is initialized lazily on first use
// (hosts without the driver simply report unavailable) and shut down exactly
// once at teardown.
type NVMLBackend struct {
	initOnce  sync.Once
	closeOnce sync.Once
	available bool
	device    nvml.Device
	logf      func(string)
}

// NewNVMLBackend returns a vendor GPU backend. logf may be nil. No driver
// interaction happens until the first Sample call.
func NewNVMLBackend(logf func(string)) *NVMLBackend {
	return &NVMLBackend{logf: logf}
}

func (b *NVMLBackend) Name() string { return "nvml" }

func (b *NVMLBackend) init() {
	b.initOnce.Do(func() {
		if ret := nvml.Init(); ret != nvml.SUCCESS {
			if b.logf != nil {
				b.logf("Telemetry (nvml): driver not available: " + nvml.ErrorString(ret))
			}
			return
		}
		device, ret := nvml.DeviceGetHandleByIndex(0)
		if ret != nvml.SUCCESS {
			if b.logf != nil {
				b.logf("Telemetry (nvml): no device at index 0: " + nvml.ErrorString(ret))
			}
			// Initialized but useless; shut down now so Close stays a no-op.
			_ = nvml.Shutdown()
			return
		}
		b.device = device
		b.available = true
	})
}

func (b *NVMLBackend) Sample(ctx context.Context, metric Metric) (float64, bool) {
	_ = ctx // NVML calls are local ioctls; they do not block on the network.
	b.init()
	if !b.available {
		return 0, false
	}
	switch metric {
	case MetricGPUPercent:
		util, ret := b.device.GetUtilizationRates()
		if ret != nvml.SUCCESS {
			return 0, false
		}
		return float64(util.Gpu), true
	case MetricGPUTempC:
		temp, ret := b.device.GetTemperature(nvml.TEMPERATURE_GPU)
		if ret != nvml.SUCCESS {
			return 0, false
		}
		return float64(temp), true
	case MetricGPUFanPercent:
		speed, ret := b.device.GetFanSpeed()
		if ret != nvml.SUCCESS {
			return 0, false
		}
		return float64(speed), true
	default:
		return 0, false
	}
}

// Close shuts NVML down. Safe to call repeatedly; only the first call after a
// successful init releases the handle.
func (b *NVMLBackend) Close() {
	b.closeOnce.Do(func() {
		if b.available {
			b.available = false
			_ = nvml.Shutdown()
		}
	})
}
