// Package models defines the data types shared between the orchestrator, the
// telemetry layer, and the HTTP API.
package models

import "time"

// ServiceType classifies a tracked service by the role it plays for the
// desktop application.
type ServiceType string

const (
	ServiceTypeLLM                ServiceType = "llm"
	ServiceTypeMCP                ServiceType = "mcp"
	ServiceTypeTTS                ServiceType = "tts"
	ServiceTypeImageGen           ServiceType = "imagegen"
	ServiceTypeVirtualEnvironment ServiceType = "virtualenv"
	ServiceTypeOther              ServiceType = "other"
)

// ServiceStatus is the last known state of one tracked service. Records are
// created once at orchestrator construction and mutated only by the
// orchestrator; everyone else receives copies.
type ServiceStatus struct {
	Name        string      `json:"name"`
	DisplayName string      `json:"display_name"`
	Type        ServiceType `json:"type"`
	Endpoint    string      `json:"endpoint"`
	Running     bool        `json:"running"`
	LastStarted *time.Time  `json:"last_started,omitempty"`
	LastStopped *time.Time  `json:"last_stopped,omitempty"`
}

// Uptime returns how long the service has been up, or zero when it is not
// running or has never been observed running.
func (s *ServiceStatus) Uptime() time.Duration {
	if s == nil || !s.Running || s.LastStarted == nil {
		return 0
	}
	return time.Since(*s.LastStarted)
}

// Observe folds a reachability observation into the status. LastStarted and
// LastStopped move only when Running actually flips; repeating the same
// observation is a no-op so that uptime stays meaningful and listeners are not
// flooded with duplicate change events. Returns true when the state changed.
func (s *ServiceStatus) Observe(running bool, at time.Time) bool {
	if s == nil || s.Running == running {
		return false
	}
	s.Running = running
	stamp := at
	if running {
		s.LastStarted = &stamp
	} else {
		s.LastStopped = &stamp
	}
	return true
}

// Clone returns an independent copy of the status. Timestamp pointers are
// duplicated so callers cannot reach back into orchestrator-owned state.
func (s *ServiceStatus) Clone() ServiceStatus {
	out := *s
	if s.LastStarted != nil {
		t := *s.LastStarted
		out.LastStarted = &t
	}
	if s.LastStopped != nil {
		t := *s.LastStopped
		out.LastStopped = &t
	}
	return out
}
