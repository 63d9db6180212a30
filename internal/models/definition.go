package models

import "time"

// LaunchCandidate is one way a service might be started locally: an
// executable (or interpreter) plus arguments and a working directory. The
// supervisor walks candidates in order and launches the first one whose
// executable exists on disk.
type LaunchCandidate struct {
	Path string   `json:"path"`
	Args []string `json:"args,omitempty"`
	Dir  string   `json:"dir,omitempty"`
}

// ServiceDefinition describes one tracked service: where to probe it, how to
// start it when it is not running, and how it participates in startup
// auto-provisioning.
type ServiceDefinition struct {
	Name        string
	DisplayName string
	Type        ServiceType
	Endpoint    string

	// ProbePaths are tried in order against Endpoint; the first path that
	// answers 2xx marks the service reachable. Services without a dedicated
	// health endpoint list several introspection paths here.
	ProbePaths []string

	// AutoStart services are provisioned during orchestrator startup.
	// Critical ones are provisioned first and concurrently with each other.
	AutoStart bool
	Critical  bool

	// SettleDelay is how long a freshly spawned process is given before the
	// post-launch probe.
	SettleDelay time.Duration

	Candidates []LaunchCandidate
}
