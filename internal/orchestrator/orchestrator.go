// Package orchestrator tracks the health of the desktop application's
// dependent services, auto-starts the ones that should be running, and serves
// cached host telemetry. It is the single writer for all service status and
// circuit-breaker state; readers get defensive copies.
package orchestrator

import (
	"context"
	"os"
	"sync"
	"time"

	"golang.org/x/sync/singleflight"
	"golang.org/x/time/rate"

	"aism/internal/models"
	"aism/internal/telemetry"
	"aism/internal/utils"
)

// Orchestrator owns the tracked-service map and coordinates probes, the
// supervisor, the circuit breaker, and the telemetry aggregator. Construction
// is cheap and does no I/O; Start performs auto-provisioning and the first
// probe sweep.
type Orchestrator struct {
	cfg   *Config
	paths *utils.Paths
	log   *utils.Logger

	breaker    *CircuitBreaker
	prober     *Prober
	supervisor *Supervisor
	metrics    *telemetry.Aggregator

	mu        sync.RWMutex
	defs      map[string]models.ServiceDefinition
	order     []string
	statuses  map[string]*models.ServiceStatus
	owned     map[string]*os.Process
	lastProbe map[string]time.Time

	// flight serializes probe->decide->update per service: a second caller
	// during an in-flight check shares its result instead of racing it.
	flight  singleflight.Group
	recheck *rate.Limiter

	listenersMu      sync.RWMutex
	statusListeners  []func(models.StatusChange)
	metricsListeners []func(models.SystemMetrics)

	ctx       context.Context
	cancel    context.CancelFunc
	wg        sync.WaitGroup
	started   bool
	closeOnce sync.Once
}

// New constructs an orchestrator from configuration. No network or process
// activity happens until Start.
func New(cfg *Config, log *utils.Logger) *Orchestrator {
	if cfg == nil {
		cfg = DefaultConfig()
	}
	paths := utils.NewPaths(cfg.RootPath)

	logf := func(msg string) {
		if log != nil {
			log.Write(msg)
		}
	}
	prober := NewProber(cfg.ProbeTimeout())

	ctx, cancel := context.WithCancel(context.Background())
	o := &Orchestrator{
		cfg:        cfg,
		paths:      paths,
		log:        log,
		breaker:    NewCircuitBreaker(DefaultFailureThreshold, DefaultCooldown),
		prober:     prober,
		supervisor: NewSupervisor(prober, log),
		metrics:    telemetry.NewAggregator(logf),
		defs:       make(map[string]models.ServiceDefinition),
		statuses:   make(map[string]*models.ServiceStatus),
		owned:      make(map[string]*os.Process),
		lastProbe:  make(map[string]time.Time),
		recheck:    rate.NewLimiter(rate.Every(time.Duration(cfg.RecheckSeconds)*time.Second), 1),
		ctx:        ctx,
		cancel:     cancel,
	}
	for _, def := range cfg.Definitions(paths) {
		o.defs[def.Name] = def
		o.order = append(o.order, def.Name)
		o.statuses[def.Name] = &models.ServiceStatus{
			Name:        def.Name,
			DisplayName: def.DisplayName,
			Type:        def.Type,
			Endpoint:    def.Endpoint,
		}
	}
	return o
}

// Start performs startup auto-provisioning: critical auto-start services are
// ensured running concurrently, then every remaining service is probed once,
// also concurrently. One dependency's outage never blocks visibility into the
// others; every failure is logged and folded into status. Start returns once
// the initial sweep completes (or ctx is cancelled while waiting) and leaves
// the periodic refresh loop running in the background.
func (o *Orchestrator) Start(ctx context.Context) error {
	o.mu.Lock()
	if o.started {
		o.mu.Unlock()
		return nil
	}
	o.started = true
	names := append([]string(nil), o.order...)
	o.mu.Unlock()

	o.logf("Orchestrator starting: %d tracked services", len(names))

	// Critical auto-start services are provisioned first, as a wave of their
	// own; everything else follows once they have settled.
	var critical, rest []string
	for _, name := range names {
		if def, ok := o.definition(name); ok && def.Critical && def.AutoStart {
			critical = append(critical, name)
		} else {
			rest = append(rest, name)
		}
	}

	done := make(chan struct{})
	go func() {
		defer close(done)
		o.sweepWave(critical)
		o.sweepWave(rest)
	}()

	// The refresh loop starts regardless of how the initial sweep goes, so a
	// caller abandoning the wait does not leave monitoring permanently off.
	if o.cfg.RefreshSeconds > 0 {
		o.wg.Add(1)
		go o.refreshLoop(time.Duration(o.cfg.RefreshSeconds) * time.Second)
	}

	select {
	case <-done:
	case <-ctx.Done():
		return ctx.Err()
	}

	o.logf("Orchestrator started")
	return nil
}

// sweepWave provisions or checks the named services concurrently and waits
// for all of them.
func (o *Orchestrator) sweepWave(names []string) {
	var wave sync.WaitGroup
	for _, name := range names {
		def, ok := o.definition(name)
		if !ok {
			continue
		}
		wave.Add(1)
		go func(def models.ServiceDefinition) {
			defer wave.Done()
			defer o.recoverCheck(def.Name)
			if def.AutoStart {
				o.provision(def)
			} else {
				o.checkService(def.Name)
			}
		}(def)
	}
	wave.Wait()
}

// provision ensures one auto-start service is running, launching it when
// needed, and folds the outcome into its status.
func (o *Orchestrator) provision(def models.ServiceDefinition) {
	running, proc := o.supervisor.EnsureRunning(o.ctx, def)
	if proc != nil {
		o.mu.Lock()
		o.owned[def.Name] = proc
		o.mu.Unlock()
	}
	if running {
		o.breaker.RecordSuccess(def.Name)
	} else {
		o.breaker.RecordFailure(def.Name)
	}
	o.applyObservation(def.Name, running, false)
}

// checkService runs one probe->decide->update sequence for a service.
// Concurrent callers for the same service share the in-flight check via
// singleflight; a suppressed (circuit-open) check returns the cached value.
func (o *Orchestrator) checkService(name string) bool {
	v, _, _ := o.flight.Do(name, func() (interface{}, error) {
		def, ok := o.definition(name)
		if !ok {
			return false, nil
		}
		if o.breaker.ShouldSkip(name) {
			return o.cachedRunning(name), nil
		}
		res := o.prober.Probe(o.ctx, def)
		if res.Reachable {
			o.breaker.RecordSuccess(name)
		} else {
			o.breaker.RecordFailure(name)
			if res.Err != nil {
				o.logf("Probe: %s unreachable: %v", name, res.Err)
			}
		}
		o.applyObservation(name, res.Reachable, false)
		return res.Reachable, nil
	})
	running, _ := v.(bool)
	return running
}

// recoverCheck converts a panic inside an async check into a logged
// "not running" observation so one malfunctioning check cannot take the
// orchestrator down or block checks for other services.
func (o *Orchestrator) recoverCheck(name string) {
	if r := recover(); r != nil {
		o.logf("Check for %s panicked: %v", name, r)
		o.applyObservation(name, false, false)
	}
}

// applyObservation folds a reachability observation into the service's
// status. Events fire only on an actual transition unless force is set
// (manual start/stop/restart actions always notify).
func (o *Orchestrator) applyObservation(name string, running bool, force bool) bool {
	now := time.Now()

	o.mu.Lock()
	status, ok := o.statuses[name]
	if !ok {
		o.mu.Unlock()
		return false
	}
	previous := status.Clone()
	changed := status.Observe(running, now)
	current := status.Clone()
	o.lastProbe[name] = now
	o.mu.Unlock()

	if changed {
		o.logf("Service %s: %s -> %s", name, runState(previous.Running), runState(running))
	}
	if changed || force {
		o.emitStatus(models.StatusChange{Name: name, Previous: previous, Current: current, At: now})
	}
	return changed
}

func runState(running bool) string {
	if running {
		return "running"
	}
	return "stopped"
}

// Status returns the latest cached record for a service. For the single
// configured watch service, a stale cache triggers a rate-limited live
// re-check first; everyone else is served purely from cache.
func (o *Orchestrator) Status(name string) (models.ServiceStatus, bool) {
	if name == o.cfg.WatchService && o.cacheStale(name) && o.recheck.Allow() {
		o.checkService(name)
	}

	o.mu.RLock()
	defer o.mu.RUnlock()
	status, ok := o.statuses[name]
	if !ok {
		return models.ServiceStatus{}, false
	}
	return status.Clone(), true
}

func (o *Orchestrator) cacheStale(name string) bool {
	o.mu.RLock()
	defer o.mu.RUnlock()
	last, ok := o.lastProbe[name]
	if !ok {
		return true
	}
	return time.Since(last) >= time.Duration(o.cfg.RecheckSeconds)*time.Second
}

// AllStatuses returns an independent snapshot of every tracked service.
// Mutating the returned map or records does not affect orchestrator state.
func (o *Orchestrator) AllStatuses() map[string]models.ServiceStatus {
	o.mu.RLock()
	defer o.mu.RUnlock()
	out := make(map[string]models.ServiceStatus, len(o.statuses))
	for name, status := range o.statuses {
		out[name] = status.Clone()
	}
	return out
}

// StartService starts (or confirms) a service on behalf of the UI. A
// status-changed event fires even when the state did not flip, so the caller
// always sees a response to its action.
func (o *Orchestrator) StartService(name string) bool {
	def, ok := o.definition(name)
	if !ok {
		return false
	}
	o.logf("Start requested for %s", name)
	running, proc := o.supervisor.EnsureRunning(o.ctx, def)
	if proc != nil {
		o.mu.Lock()
		o.owned[name] = proc
		o.mu.Unlock()
	}
	if running {
		o.breaker.RecordSuccess(name)
	}
	o.applyObservation(name, running, true)
	return running
}

// StopService stops a service the orchestrator launched. Services started
// externally have no process handle here; they are marked stopped and the
// next probe corrects the record if they are in fact still alive.
func (o *Orchestrator) StopService(name string) bool {
	if _, ok := o.definition(name); !ok {
		return false
	}
	o.logf("Stop requested for %s", name)

	o.mu.Lock()
	proc := o.owned[name]
	delete(o.owned, name)
	o.mu.Unlock()

	if proc != nil {
		if err := proc.Kill(); err != nil {
			o.logf("Stopping %s (pid %d): %v", name, proc.Pid, err)
		}
	} else {
		o.logf("Stop for %s: no owned process, marking stopped", name)
	}
	o.applyObservation(name, false, true)
	return true
}

// RestartService stops the service, waits the configured delay, and starts it
// again.
func (o *Orchestrator) RestartService(name string) bool {
	if !o.StopService(name) {
		return false
	}
	if delay := o.cfg.RestartDelay(); delay > 0 {
		select {
		case <-time.After(delay):
		case <-o.ctx.Done():
			return false
		}
	}
	return o.StartService(name)
}

// ApplyExternalStatus folds a push-style notification from a monitored
// service into the same transition logic a probe outcome goes through.
func (o *Orchestrator) ApplyExternalStatus(name string, running bool) bool {
	if _, ok := o.definition(name); !ok {
		return false
	}
	if running {
		o.breaker.RecordSuccess(name)
	} else {
		o.breaker.RecordFailure(name)
	}
	o.applyObservation(name, running, false)
	return true
}

// CurrentMetrics assembles the latest host telemetry snapshot. It always
// succeeds, degrading to zeros for unavailable sensors, and raises a
// metrics-updated event with the same payload.
func (o *Orchestrator) CurrentMetrics() models.SystemMetrics {
	snapshot := o.metrics.Snapshot(o.ctx)
	o.emitMetrics(snapshot)
	return snapshot
}

// SetEndpoint overrides a service's endpoint at runtime and persists the
// override. Probes pick the new endpoint up immediately.
func (o *Orchestrator) SetEndpoint(name, endpoint string) bool {
	o.mu.Lock()
	def, ok := o.defs[name]
	if !ok {
		o.mu.Unlock()
		return false
	}
	def.Endpoint = endpoint
	o.defs[name] = def
	o.statuses[name].Endpoint = endpoint
	// Config writes stay under the same lock: concurrent overrides must not
	// race on the map or interleave file writes.
	o.cfg.Endpoints[name] = endpoint
	err := o.cfg.Save()
	o.mu.Unlock()

	if err != nil {
		o.logf("Saving endpoint override for %s: %v", name, err)
	}
	o.logf("Endpoint for %s set to %s", name, endpoint)
	return true
}

// OnStatusChange registers a listener for status-change events. Listeners
// run on whatever goroutine completed the check and must marshal to their
// own execution context if they need one.
func (o *Orchestrator) OnStatusChange(fn func(models.StatusChange)) {
	o.listenersMu.Lock()
	defer o.listenersMu.Unlock()
	o.statusListeners = append(o.statusListeners, fn)
}

// OnMetrics registers a listener for metrics-updated events.
func (o *Orchestrator) OnMetrics(fn func(models.SystemMetrics)) {
	o.listenersMu.Lock()
	defer o.listenersMu.Unlock()
	o.metricsListeners = append(o.metricsListeners, fn)
}

func (o *Orchestrator) emitStatus(change models.StatusChange) {
	o.listenersMu.RLock()
	listeners := append([]func(models.StatusChange){}, o.statusListeners...)
	o.listenersMu.RUnlock()
	for _, fn := range listeners {
		fn(change)
	}
}

func (o *Orchestrator) emitMetrics(snapshot models.SystemMetrics) {
	o.listenersMu.RLock()
	listeners := append([]func(models.SystemMetrics){}, o.metricsListeners...)
	o.listenersMu.RUnlock()
	for _, fn := range listeners {
		fn(snapshot)
	}
}

// refreshLoop periodically re-probes every tracked service and publishes a
// telemetry snapshot.
func (o *Orchestrator) refreshLoop(interval time.Duration) {
	defer o.wg.Done()
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ticker.C:
			o.sweep()
			o.CurrentMetrics()
		case <-o.ctx.Done():
			return
		}
	}
}

// sweep probes all tracked services concurrently and waits for the stragglers
// so sweeps never pile up.
func (o *Orchestrator) sweep() {
	o.mu.RLock()
	names := append([]string(nil), o.order...)
	o.mu.RUnlock()

	var wg sync.WaitGroup
	for _, name := range names {
		wg.Add(1)
		go func(name string) {
			defer wg.Done()
			defer o.recoverCheck(name)
			o.checkService(name)
		}(name)
	}
	wg.Wait()
}

// Close tears the orchestrator down: cancels every in-flight probe, stops the
// refresh loop, best-effort kills owned processes, and releases telemetry
// handles exactly once. Safe to call repeatedly.
func (o *Orchestrator) Close() {
	o.closeOnce.Do(func() {
		o.logf("Orchestrator shutting down")
		o.cancel()
		o.wg.Wait()

		o.mu.Lock()
		owned := o.owned
		o.owned = make(map[string]*os.Process)
		o.mu.Unlock()
		for name, proc := range owned {
			o.logf("Stopping owned service %s (pid %d)", name, proc.Pid)
			if err := proc.Kill(); err != nil {
				o.logf("Stopping %s: %v", name, err)
			}
		}

		o.metrics.Close()
		o.logf("Orchestrator shut down")
	})
}

func (o *Orchestrator) definition(name string) (models.ServiceDefinition, bool) {
	o.mu.RLock()
	defer o.mu.RUnlock()
	def, ok := o.defs[name]
	return def, ok
}

func (o *Orchestrator) cachedRunning(name string) bool {
	o.mu.RLock()
	defer o.mu.RUnlock()
	if status, ok := o.statuses[name]; ok {
		return status.Running
	}
	return false
}

func (o *Orchestrator) logf(format string, args ...interface{}) {
	if o.log != nil {
		o.log.Writef(format, args...)
	}
}

// Breaker exposes the circuit breaker for diagnostics.
func (o *Orchestrator) Breaker() *CircuitBreaker { return o.breaker }

// Config returns the orchestrator's configuration.
func (o *Orchestrator) Config() *Config { return o.cfg }
