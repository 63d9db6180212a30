package models

import "time"

// SystemMetrics captures host-level resource usage assembled on demand from
// the latest telemetry samples. Sensors absent on the host report zero; a
// missing sensor is never an error.
type SystemMetrics struct {
	CPUPercent float64 `json:"cpu_percent"`
	GPUPercent float64 `json:"gpu_percent"`
	CPUTempC   float64 `json:"cpu_temp_c"`
	GPUTempC   float64 `json:"gpu_temp_c"`

	// GPUFanRPM is estimated from a duty-cycle percentage against a fixed
	// reference maximum when the GPU driver only exposes a percentage.
	// GPUFanEstimated is true in that case; treat the RPM as approximate.
	GPUFanRPM       float64 `json:"gpu_fan_rpm"`
	GPUFanEstimated bool    `json:"gpu_fan_estimated"`

	MemoryUsed  uint64 `json:"memory_used_bytes"`
	MemoryTotal uint64 `json:"memory_total_bytes"`

	SampledAt time.Time `json:"sampled_at"`
}
