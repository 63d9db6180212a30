package orchestrator

import (
	"context"
	"os"
	"os/exec"
	"time"

	"aism/internal/models"
	"aism/internal/utils"
)

// DefaultSettleDelay is how long a freshly launched process gets before the
// post-launch probe when the service definition does not say otherwise.
const DefaultSettleDelay = 2 * time.Second

// Supervisor locates and starts local service processes. It makes exactly one
// pass over a definition's launch candidates per EnsureRunning call; retry
// cadence across calls is the orchestrator's concern.
type Supervisor struct {
	prober *Prober
	log    *utils.Logger
}

// NewSupervisor returns a supervisor that uses the given prober for its
// pre-launch and post-launch reachability checks.
func NewSupervisor(prober *Prober, log *utils.Logger) *Supervisor {
	return &Supervisor{prober: prober, log: log}
}

// EnsureRunning makes sure the service is reachable, spawning a local process
// when it is not. The returned process handle is non-nil only when this call
// launched something; an externally-started service is reported running
// without touching the process table. Failures to locate a candidate, spawn,
// or re-probe are logged and reported as not running, never as errors.
func (sv *Supervisor) EnsureRunning(ctx context.Context, def models.ServiceDefinition) (bool, *os.Process) {
	// Probe first so an externally managed instance is never double-launched.
	if res := sv.prober.Probe(ctx, def); res.Reachable {
		return true, nil
	}
	if ctx.Err() != nil {
		return false, nil
	}

	candidate, ok := sv.findCandidate(def)
	if !ok {
		sv.logf("Supervisor: no launch candidate found for %s", def.Name)
		return false, nil
	}

	proc, err := sv.launch(candidate)
	if err != nil {
		sv.logf("Supervisor: failed to start %s via %s: %v", def.Name, candidate.Path, err)
		return false, nil
	}
	sv.logf("Supervisor: started %s (pid %d) via %s", def.Name, proc.Pid, candidate.Path)

	settle := def.SettleDelay
	if settle <= 0 {
		settle = DefaultSettleDelay
	}
	select {
	case <-time.After(settle):
	case <-ctx.Done():
		// Shutdown while settling: leave the child alive (it is detached)
		// and report not running for this call.
		return false, proc
	}

	res := sv.prober.Probe(ctx, def)
	if !res.Reachable {
		sv.logf("Supervisor: %s did not become reachable after launch", def.Name)
	}
	return res.Reachable, proc
}

// findCandidate walks the prioritized candidate list and returns the first
// whose executable exists on disk.
func (sv *Supervisor) findCandidate(def models.ServiceDefinition) (models.LaunchCandidate, bool) {
	for _, candidate := range def.Candidates {
		if candidate.Path == "" {
			continue
		}
		if info, err := os.Stat(candidate.Path); err == nil && !info.IsDir() {
			return candidate, true
		}
	}
	return models.LaunchCandidate{}, false
}

func (sv *Supervisor) launch(candidate models.LaunchCandidate) (*os.Process, error) {
	cmd := exec.Command(candidate.Path, candidate.Args...)
	if candidate.Dir != "" {
		cmd.Dir = candidate.Dir
	}
	// Detach so the child survives aism restarts and receives no signals
	// meant for us; no console window on Windows.
	models.SetDetachedProcessGroup(cmd)
	if err := cmd.Start(); err != nil {
		return nil, err
	}
	// Reap the child in the background so it never becomes a zombie.
	go func() { _ = cmd.Wait() }()
	return cmd.Process, nil
}

func (sv *Supervisor) logf(format string, args ...interface{}) {
	if sv.log != nil {
		sv.log.Writef(format, args...)
	}
}
