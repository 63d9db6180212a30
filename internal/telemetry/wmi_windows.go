//go:build windows

package telemetry

import (
	"context"
	"time"

	wmi "github.com/StackExchange/wmi"
)

// msAcpiThermalZone mirrors the MSAcpi_ThermalZoneTemperature class in the
// root\wmi namespace. CurrentTemperature is in tenths of a Kelvin.
type msAcpiThermalZone struct {
	InstanceName       string
	CurrentTemperature uint32
}

// WMIBackend queries thermal zones through Windows management
// instrumentation. The query is comparatively expensive and frequently
// unsupported (many consumer boards expose no ACPI thermal zone), so the
// aggregator samples it at a longer interval and falls through quietly when
// it reports nothing.
type WMIBackend struct {
	logf func(string)
}

// NewWMIBackend returns a WMI thermal backend. logf may be nil.
func NewWMIBackend(logf func(string)) *WMIBackend {
	return &WMIBackend{logf: logf}
}

func (b *WMIBackend) Name() string { return "wmi" }

func (b *WMIBackend) Sample(ctx context.Context, metric Metric) (float64, bool) {
	if metric != MetricCPUTempC {
		return 0, false
	}

	// Bounded attempts with backoff to harden against transient WMI issues.
	var zones []msAcpiThermalZone
	q := "SELECT InstanceName, CurrentTemperature FROM MSAcpi_ThermalZoneTemperature"
	var lastErr error
	for attempt := 1; attempt <= 2; attempt++ {
		qctx, cancel := context.WithTimeout(ctx, 3*time.Second)
		err := wmi.QueryWithContext(qctx, q, &zones, nil, "root\\wmi")
		cancel()
		if err == nil {
			lastErr = nil
			break
		}
		lastErr = err
		if attempt < 2 {
			time.Sleep(250 * time.Millisecond)
		}
	}
	if lastErr != nil {
		if b.logf != nil {
			b.logf("Telemetry (wmi): thermal zone query failed: " + lastErr.Error())
		}
		return 0, false
	}
	for _, zone := range zones {
		if zone.CurrentTemperature == 0 {
			continue
		}
		// Tenths of Kelvin -> Celsius.
		celsius := float64(zone.CurrentTemperature)/10 - 273.15
		if celsius > 0 && celsius < 150 {
			return celsius, true
		}
	}
	return 0, false
}

func (b *WMIBackend) Close() {}
