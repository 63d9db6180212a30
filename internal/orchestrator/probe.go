package orchestrator

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"aism/internal/models"
)

// DefaultProbeTimeout bounds a single reachability attempt.
const DefaultProbeTimeout = 3 * time.Second

// ProbeResult is the outcome of one reachability check. Transport failures
// never escape the probe layer: they are folded into Reachable=false with the
// last error kept for diagnostics only.
type ProbeResult struct {
	Reachable bool
	// Path is the probe path that answered, when reachable.
	Path string
	// Err is the last transport error observed. Diagnostic only; callers
	// must branch on Reachable, not on Err.
	Err error
}

// Prober performs bounded-time HTTP reachability checks against a service's
// endpoint. It holds a single shared client so connection pools are reused
// across probes.
type Prober struct {
	client  *http.Client
	timeout time.Duration
}

// NewProber returns a prober with the given per-attempt timeout.
// Non-positive timeouts fall back to the default.
func NewProber(timeout time.Duration) *Prober {
	if timeout <= 0 {
		timeout = DefaultProbeTimeout
	}
	return &Prober{
		// The client carries no timeout of its own; each attempt gets a
		// context deadline composed with the caller's (shutdown) context.
		client:  &http.Client{},
		timeout: timeout,
	}
}

// Probe tries the definition's probe paths in order and reports the first
// that answers 2xx. All transport failures (timeout, connection refused, DNS)
// collapse into an unreachable result; cancellation of ctx does too.
func (p *Prober) Probe(ctx context.Context, def models.ServiceDefinition) ProbeResult {
	paths := def.ProbePaths
	if len(paths) == 0 {
		paths = []string{"/health"}
	}

	var lastErr error
	for _, path := range paths {
		ok, err := p.attempt(ctx, def.Endpoint, path)
		if ok {
			return ProbeResult{Reachable: true, Path: path}
		}
		if err != nil {
			lastErr = err
		}
		if ctx.Err() != nil {
			// Shutdown in flight; report unreachable without trying the
			// remaining paths.
			break
		}
	}
	return ProbeResult{Reachable: false, Err: lastErr}
}

func (p *Prober) attempt(ctx context.Context, endpoint, path string) (bool, error) {
	url := strings.TrimRight(endpoint, "/") + path
	attemptCtx, cancel := context.WithTimeout(ctx, p.timeout)
	defer cancel()

	req, err := http.NewRequestWithContext(attemptCtx, http.MethodGet, url, nil)
	if err != nil {
		return false, fmt.Errorf("building probe request for %s: %w", url, err)
	}
	resp, err := p.client.Do(req)
	if err != nil {
		return false, err
	}
	defer resp.Body.Close()
	// Drain so the connection can be reused.
	_, _ = io.Copy(io.Discard, io.LimitReader(resp.Body, 4096))

	return resp.StatusCode >= 200 && resp.StatusCode < 300, nil
}
