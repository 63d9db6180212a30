package orchestrator

import (
	"sync"
	"time"
)

// Circuit breaker defaults: after three consecutive probe failures a service
// is considered demonstrably down and further probes are suppressed for the
// cooldown window. This bounds monitoring I/O to services that are healthy or
// freshly failing.
const (
	DefaultFailureThreshold = 3
	DefaultCooldown         = time.Minute
)

type breakerEntry struct {
	failures    int
	lastFailure time.Time
}

// CircuitBreaker tracks consecutive probe failures per service and gates
// whether a probe should be attempted at all. It is an open -> half-open ->
// closed state machine collapsed into a counter and a timestamp: crossing the
// cooldown boundary lazily resets the counter, so exactly one trial probe
// runs and either closes the breaker (success) or re-opens it (failure).
type CircuitBreaker struct {
	mu        sync.Mutex
	threshold int
	cooldown  time.Duration
	entries   map[string]*breakerEntry
	now       func() time.Time
}

// NewCircuitBreaker returns a breaker with the given threshold and cooldown.
// Non-positive arguments fall back to the defaults.
func NewCircuitBreaker(threshold int, cooldown time.Duration) *CircuitBreaker {
	if threshold <= 0 {
		threshold = DefaultFailureThreshold
	}
	if cooldown <= 0 {
		cooldown = DefaultCooldown
	}
	return &CircuitBreaker{
		threshold: threshold,
		cooldown:  cooldown,
		entries:   make(map[string]*breakerEntry),
		now:       time.Now,
	}
}

// ShouldSkip reports whether a probe for the service should be suppressed.
// As a side effect, an elapsed cooldown resets the failure counter; there is
// no background timer.
func (cb *CircuitBreaker) ShouldSkip(name string) bool {
	cb.mu.Lock()
	defer cb.mu.Unlock()

	entry, ok := cb.entries[name]
	if !ok || entry.failures < cb.threshold {
		return false
	}
	if cb.now().Sub(entry.lastFailure) >= cb.cooldown {
		entry.failures = 0
		return false
	}
	return true
}

// RecordFailure increments the service's consecutive failure counter and
// stamps the failure time.
func (cb *CircuitBreaker) RecordFailure(name string) {
	cb.mu.Lock()
	defer cb.mu.Unlock()

	entry, ok := cb.entries[name]
	if !ok {
		entry = &breakerEntry{}
		cb.entries[name] = entry
	}
	entry.failures++
	entry.lastFailure = cb.now()
}

// RecordSuccess resets the service's failure counter.
func (cb *CircuitBreaker) RecordSuccess(name string) {
	cb.mu.Lock()
	defer cb.mu.Unlock()

	if entry, ok := cb.entries[name]; ok {
		entry.failures = 0
	}
}

// Failures returns the current consecutive failure count for a service.
func (cb *CircuitBreaker) Failures(name string) int {
	cb.mu.Lock()
	defer cb.mu.Unlock()

	if entry, ok := cb.entries[name]; ok {
		return entry.failures
	}
	return 0
}
