package model

import (
	"sync"
	"time"
)

// EndpointHealth tracks the health status of a model endpoint.
type EndpointHealth struct {
	// Available indicates if the endpoint is currently usable.
	Available bool `json:"available"`

	// LastSuccess is the time of the last successful request.
	LastSuccess time.Time `json:"last_success,omitempty"`

	// LastFailure is the time of the last failed request.
	LastFailure time.Time `json:"last_failure,omitempty"`

	// FailureCount is the number of consecutive failures.
	FailureCount int `json:"failure_count"`

	// CircuitOpen indicates if the circuit breaker has tripped.
	CircuitOpen bool `json:"circuit_open"`

	// CircuitOpenedAt is when the circuit was opened.
	CircuitOpenedAt time.Time `json:"circuit_opened_at,omitempty"`
}

// HealthConfig configures the health tracking behavior.
type HealthConfig struct {
	// FailureThreshold is the number of failures before opening the circuit.
	FailureThreshold int

	// RecoveryTimeout is how long to wait before trying a failed endpoint again.
	RecoveryTimeout time.Duration

	// HalfOpenRequests is how many test requests to allow when recovering.
	HalfOpenRequests int
}

// DefaultHealthConfig returns sensible defaults for health tracking.
func DefaultHealthConfig() HealthConfig {
	return HealthConfig{
		FailureThreshold: 3,
		RecoveryTimeout:  30 * time.Second,
		HalfOpenRequests: 1,
	}
}

// healthState stores endpoint health information.
type healthState struct {
	mu       sync.RWMutex
	config   HealthConfig
	statuses map[string]*EndpointHealth
}

// newHealthState creates a new health state tracker.
func newHealthState(cfg HealthConfig) *healthState {
	return &healthState{
		config:   cfg,
		statuses: make(map[string]*EndpointHealth),
	}
}

// getOrCreate returns the health status for an endpoint, creating if needed.
func (h *healthState) getOrCreate(name string) *EndpointHealth {
	h.mu.Lock()
	defer h.mu.Unlock()

	if status, ok := h.statuses[name]; ok {
		return status
	}

	status := &EndpointHealth{Available: true}
	h.statuses[name] = status
	return status
}

// MarkEndpointSuccess records a successful request to an endpoint.
func (l *Ladder) MarkEndpointSuccess(name string) {
	l.mu.Lock()
	if l.health == nil {
		l.health = newHealthState(DefaultHealthConfig())
	}
	l.mu.Unlock()

	status := l.health.getOrCreate(name)

	l.health.mu.Lock()
	defer l.health.mu.Unlock()

	status.LastSuccess = time.Now()
	status.FailureCount = 0
	status.Available = true
	status.CircuitOpen = false
}

// MarkEndpointFailure records a failed request to an endpoint.
func (l *Ladder) MarkEndpointFailure(name string) {
	l.mu.Lock()
	if l.health == nil {
		l.health = newHealthState(DefaultHealthConfig())
	}
	l.mu.Unlock()

	status := l.health.getOrCreate(name)

	l.health.mu.Lock()
	defer l.health.mu.Unlock()

	status.LastFailure = time.Now()
	status.FailureCount++

	if status.FailureCount >= l.health.config.FailureThreshold {
		status.CircuitOpen = true
		status.CircuitOpenedAt = time.Now()
		status.Available = false
	}
}

// IsEndpointAvailable checks if an endpoint is available for requests.
// Returns false if the circuit breaker is open and recovery timeout hasn't passed.
func (l *Ladder) IsEndpointAvailable(name string) bool {
	l.mu.RLock()
	if l.health == nil {
		l.mu.RUnlock()
		return true // No health tracking = always available
	}
	l.mu.RUnlock()

	l.health.mu.RLock()
	status, ok := l.health.statuses[name]
	if !ok {
		l.health.mu.RUnlock()
		return true // Unknown endpoint = available
	}

	// Copy values to avoid holding lock during time comparison
	circuitOpen := status.CircuitOpen
	circuitOpenedAt := status.CircuitOpenedAt
	l.health.mu.RUnlock()

	if !circuitOpen {
		return true
	}

	l.mu.RLock()
	recoveryTimeout := l.health.config.RecoveryTimeout
	l.mu.RUnlock()

	if time.Since(circuitOpenedAt) > recoveryTimeout {
		return true // Allow a test request (half-open)
	}

	return false
}

// GetEndpointHealth returns the health status for an endpoint.
// Returns nil if no health information is available.
func (l *Ladder) GetEndpointHealth(name string) *EndpointHealth {
	l.mu.RLock()
	if l.health == nil {
		l.mu.RUnlock()
		return nil
	}
	l.mu.RUnlock()

	l.health.mu.RLock()
	defer l.health.mu.RUnlock()

	if status, ok := l.health.statuses[name]; ok {
		// Return a copy to avoid races
		return &EndpointHealth{
			Available:       status.Available,
			LastSuccess:     status.LastSuccess,
			LastFailure:     status.LastFailure,
			FailureCount:    status.FailureCount,
			CircuitOpen:     status.CircuitOpen,
			CircuitOpenedAt: status.CircuitOpenedAt,
		}
	}
	return nil
}

// NextAvailable walks the ladder upward from current and returns the first
// tier whose endpoint is available. Falls back to the plain Next tier when
// every stronger tier is unhealthy; better to try something than nothing.
func (l *Ladder) NextAvailable(current string) string {
	fallback := l.Next(current)
	prev, candidate := current, fallback
	for candidate != prev {
		if l.IsEndpointAvailable(candidate) {
			return candidate
		}
		prev, candidate = candidate, l.Next(candidate)
	}
	return fallback
}

// SetHealthConfig updates the health tracking configuration.
func (l *Ladder) SetHealthConfig(cfg HealthConfig) {
	l.mu.Lock()
	defer l.mu.Unlock()

	if l.health == nil {
		l.health = newHealthState(cfg)
	} else {
		l.health.config = cfg
	}
}

// ResetEndpointHealth clears the health status for an endpoint.
func (l *Ladder) ResetEndpointHealth(name string) {
	l.mu.RLock()
	if l.health == nil {
		l.mu.RUnlock()
		return
	}
	l.mu.RUnlock()

	l.health.mu.Lock()
	defer l.health.mu.Unlock()

	delete(l.health.statuses, name)
}
