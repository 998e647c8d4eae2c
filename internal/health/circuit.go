// Package health implements the per-connection circuit breaker and
// health monitor: the generalized, time-based descendant of a
// consecutive-failure probe counter, evaluated against a Clock so
// reset timeouts are deterministic under test.
package health

import (
	"sync"
	"time"

	"github.com/engindearing-projects/omniTAK-sub001/internal/clock"
)

// CircuitState is one of the three states a breaker can occupy.
type CircuitState int

const (
	Closed CircuitState = iota
	Open
	HalfOpen
)

func (s CircuitState) String() string {
	switch s {
	case Closed:
		return "closed"
	case Open:
		return "open"
	case HalfOpen:
		return "half_open"
	default:
		return "unknown"
	}
}

// CircuitConfig bundles the breaker's tunables.
type CircuitConfig struct {
	FailureThreshold uint32
	ResetTimeout     time.Duration
	SuccessThreshold uint32
}

// CircuitBreaker tracks consecutive failures for one connection and
// opens once FailureThreshold is reached, refusing calls until
// ResetTimeout elapses. It then lets probes through in HalfOpen and
// closes once SuccessThreshold consecutive probes succeed, or reopens
// immediately on the first probe failure.
type CircuitBreaker struct {
	cfg CircuitConfig
	clk clock.Clock

	mu                   sync.Mutex
	state                CircuitState
	consecutiveFailures  uint32
	consecutiveSuccesses uint32
	openedAt             time.Time
}

func NewCircuitBreaker(cfg CircuitConfig, clk clock.Clock) *CircuitBreaker {
	if clk == nil {
		clk = clock.Real{}
	}
	if cfg.FailureThreshold == 0 {
		cfg.FailureThreshold = 1
	}
	if cfg.SuccessThreshold == 0 {
		cfg.SuccessThreshold = 1
	}
	return &CircuitBreaker{cfg: cfg, clk: clk, state: Closed}
}

// Allow reports whether a call should be attempted, transitioning
// Open->HalfOpen as a side effect once the reset timeout has elapsed.
func (b *CircuitBreaker) Allow() bool {
	b.mu.Lock()
	defer b.mu.Unlock()
	switch b.state {
	case Closed:
		return true
	case HalfOpen:
		return true
	case Open:
		if b.clk.Now().Sub(b.openedAt) >= b.cfg.ResetTimeout {
			b.state = HalfOpen
			b.consecutiveSuccesses = 0
			return true
		}
		return false
	default:
		return true
	}
}

// RecordSuccess registers a successful call.
func (b *CircuitBreaker) RecordSuccess() {
	b.mu.Lock()
	defer b.mu.Unlock()
	switch b.state {
	case HalfOpen:
		b.consecutiveSuccesses++
		if b.consecutiveSuccesses >= b.cfg.SuccessThreshold {
			b.state = Closed
			b.consecutiveFailures = 0
			b.consecutiveSuccesses = 0
		}
	case Closed:
		b.consecutiveFailures = 0
	}
}

// RecordFailure registers a failed call.
func (b *CircuitBreaker) RecordFailure() {
	b.mu.Lock()
	defer b.mu.Unlock()
	switch b.state {
	case HalfOpen:
		b.trip()
	case Closed:
		b.consecutiveFailures++
		if b.consecutiveFailures >= b.cfg.FailureThreshold {
			b.trip()
		}
	}
}

// trip must be called with mu held.
func (b *CircuitBreaker) trip() {
	b.state = Open
	b.openedAt = b.clk.Now()
	b.consecutiveSuccesses = 0
}

// State reports the breaker's current state without mutating it.
func (b *CircuitBreaker) State() CircuitState {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.state
}
