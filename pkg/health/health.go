// Package health implements Kubernetes-style liveness and readiness probes.
//
// Every registered check runs on its own ticker goroutine. State transitions
// are thresholded the way kubelet probes are: a check flips to unhealthy only
// after failureThreshold consecutive failures and back to healthy after
// successThreshold consecutive passes, so one slow poll does not take a
// service out of rotation.
package health

import (
	"context"
	"encoding/json"
	"net/http"
	"sync"
	"sync/atomic"
	"time"
)

// CheckFunc probes one component. A nil return means healthy.
type CheckFunc func(ctx context.Context) error

// Default thresholds, matching common kubelet probe settings.
const (
	defaultFailureThreshold = 3
	defaultSuccessThreshold = 1
)

// probe is one registered check plus its runtime state.
//
// run() executes on a single ticker goroutine, so the consecutive counters
// need no synchronization. healthy and lastErr are also read by HTTP handlers
// on arbitrary goroutines and therefore use atomics.
type probe struct {
	name             string
	timeout          time.Duration
	check            CheckFunc
	failureThreshold int
	successThreshold int

	healthy atomic.Bool
	lastErr atomic.Pointer[error]

	consecutiveFails int
	consecutiveOK    int
}

func newProbe(name string, timeout time.Duration, check CheckFunc) *probe {
	p := &probe{
		name:             name,
		timeout:          timeout,
		check:            check,
		failureThreshold: defaultFailureThreshold,
		successThreshold: defaultSuccessThreshold,
	}
	p.healthy.Store(true) // assume healthy until proven otherwise
	return p
}

func (p *probe) isHealthy() bool {
	return p.healthy.Load()
}

// getLastError returns the error from the most recent run, or nil.
func (p *probe) getLastError() error {
	if e := p.lastErr.Load(); e != nil {
		return *e
	}
	return nil
}

// run executes the check once and applies the thresholds. Must only be
// called from the probe's own goroutine.
func (p *probe) run(ctx context.Context) {
	checkCtx, cancel := context.WithTimeout(ctx, p.timeout)
	defer cancel()

	err := p.check(checkCtx)
	p.lastErr.Store(&err)

	if err != nil {
		p.consecutiveOK = 0
		if p.consecutiveFails++; p.consecutiveFails >= p.failureThreshold {
			p.healthy.Store(false)
		}
		return
	}
	p.consecutiveFails = 0
	if p.consecutiveOK++; p.consecutiveOK >= p.successThreshold {
		p.healthy.Store(true)
	}
}

// loop re-runs the probe at the interval until ctx is cancelled. The first
// run happens immediately rather than one interval in.
func (p *probe) loop(ctx context.Context, interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	p.run(ctx)
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			p.run(ctx)
		}
	}
}

// Health manages the probe set for a service and serves the probe endpoints.
type Health struct {
	ready atomic.Bool

	// mu guards the slices and cancel. Handlers copy the slice under RLock
	// and release before touching probe state, so locks never nest.
	mu              sync.RWMutex
	livenessChecks  []*probe
	readinessChecks []*probe
	cancel          context.CancelFunc
}

// New creates a Health in the not-ready state. Call SetReady(true) once
// initialization has finished.
func New() *Health {
	return &Health{}
}

// AddLivenessCheck registers a check that decides whether the process itself
// is functioning (goroutine count, GC pauses, deadlocks).
func (h *Health) AddLivenessCheck(name string, timeout time.Duration, check CheckFunc) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.livenessChecks = append(h.livenessChecks, newProbe(name, timeout, check))
}

// AddReadinessCheck registers a check that decides whether the service can
// take traffic (database reachable, caches warm, dependencies up).
func (h *Health) AddReadinessCheck(name string, timeout time.Duration, check CheckFunc) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.readinessChecks = append(h.readinessChecks, newProbe(name, timeout, check))
}

// Start launches one goroutine per registered probe, each ticking at the
// given interval. Register all checks before calling Start.
func (h *Health) Start(ctx context.Context, interval time.Duration) {
	ctx, cancel := context.WithCancel(ctx)

	h.mu.Lock()
	h.cancel = cancel
	probes := make([]*probe, 0, len(h.livenessChecks)+len(h.readinessChecks))
	probes = append(probes, h.livenessChecks...)
	probes = append(probes, h.readinessChecks...)
	h.mu.Unlock()

	for _, p := range probes {
		go p.loop(ctx, interval)
	}
}

// Stop cancels the probe goroutines. Safe to call more than once.
func (h *Health) Stop() {
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.cancel != nil {
		h.cancel()
		h.cancel = nil
	}
}

// SetReady flips the manual readiness gate. Hosts set it to true after
// startup and back to false at the beginning of graceful shutdown so load
// balancers drain the instance.
func (h *Health) SetReady(ready bool) {
	h.ready.Store(ready)
}

// IsReady reports whether the manual gate is open and every readiness probe
// is currently passing.
func (h *Health) IsReady() bool {
	if !h.ready.Load() {
		return false
	}
	for _, p := range h.snapshot(&h.readinessChecks) {
		if !p.isHealthy() {
			return false
		}
	}
	return true
}

// snapshot copies a probe slice under the read lock.
func (h *Health) snapshot(probes *[]*probe) []*probe {
	h.mu.RLock()
	defer h.mu.RUnlock()
	out := make([]*probe, len(*probes))
	copy(out, *probes)
	return out
}

// statusResponse is the JSON body served by both probe endpoints.
type statusResponse struct {
	Status string            `json:"status"`
	Checks map[string]string `json:"checks,omitempty"`
}

// LiveEndpoint serves /livez: 200 {"status":"ok"} while all liveness probes
// pass, otherwise 503 with the failing checks listed.
func (h *Health) LiveEndpoint(w http.ResponseWriter, _ *http.Request) {
	writeStatus(w, failuresOf(h.snapshot(&h.livenessChecks)))
}

// ReadyEndpoint serves /readyz: 200 only when the service has been marked
// ready and every readiness probe passes.
func (h *Health) ReadyEndpoint(w http.ResponseWriter, _ *http.Request) {
	failures := failuresOf(h.snapshot(&h.readinessChecks))
	if !h.ready.Load() {
		failures["_readiness"] = "service is not ready"
	}
	writeStatus(w, failures)
}

// failuresOf maps each unhealthy probe to its last error message. It reads
// the stored result instead of re-running checks on the request path.
func failuresOf(probes []*probe) map[string]string {
	failures := make(map[string]string)
	for _, p := range probes {
		if p.isHealthy() {
			continue
		}
		if err := p.getLastError(); err != nil {
			failures[p.name] = err.Error()
		} else {
			failures[p.name] = "check is unhealthy"
		}
	}
	return failures
}

func writeStatus(w http.ResponseWriter, failures map[string]string) {
	resp := statusResponse{Status: "ok"}
	status := http.StatusOK
	if len(failures) > 0 {
		resp.Status = "unhealthy"
		resp.Checks = failures
		status = http.StatusServiceUnavailable
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	// The status line is out the door, so an encode error here only means
	// the client went away.
	_ = json.NewEncoder(w).Encode(resp)
}
