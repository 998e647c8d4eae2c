package health

import (
	"testing"
	"time"

	"github.com/engindearing-projects/omniTAK-sub001/internal/clock"
)

// Scenario E: circuit opens on 3 failures, half-opens after
// reset_timeout, closes after success_threshold probes.
func TestCircuitBreakerOpensAfterFailureThreshold(t *testing.T) {
	vc := clock.NewVirtual(time.Unix(0, 0))
	b := NewCircuitBreaker(CircuitConfig{FailureThreshold: 3, ResetTimeout: 10 * time.Second, SuccessThreshold: 2}, vc)

	if b.State() != Closed {
		t.Fatal("fresh breaker should start closed")
	}
	b.RecordFailure()
	b.RecordFailure()
	if b.State() != Closed {
		t.Fatal("breaker should remain closed below failure threshold")
	}
	b.RecordFailure()
	if b.State() != Open {
		t.Fatal("breaker should open once failure threshold is reached")
	}
	if b.Allow() {
		t.Fatal("open breaker should not allow calls before reset_timeout elapses")
	}
}

func TestCircuitBreakerHalfOpensAfterResetTimeout(t *testing.T) {
	vc := clock.NewVirtual(time.Unix(0, 0))
	b := NewCircuitBreaker(CircuitConfig{FailureThreshold: 1, ResetTimeout: 5 * time.Second, SuccessThreshold: 2}, vc)

	b.RecordFailure()
	if b.State() != Open {
		t.Fatal("expected breaker to open on first failure at threshold 1")
	}

	vc.Advance(5 * time.Second)
	if !b.Allow() {
		t.Fatal("expected breaker to allow a probe after reset_timeout elapses")
	}
	if b.State() != HalfOpen {
		t.Fatalf("expected state half_open after probe admitted, got %s", b.State())
	}
}

func TestCircuitBreakerClosesAfterSuccessThresholdProbes(t *testing.T) {
	vc := clock.NewVirtual(time.Unix(0, 0))
	b := NewCircuitBreaker(CircuitConfig{FailureThreshold: 1, ResetTimeout: time.Second, SuccessThreshold: 2}, vc)

	b.RecordFailure()
	vc.Advance(time.Second)
	b.Allow()

	b.RecordSuccess()
	if b.State() != HalfOpen {
		t.Fatal("expected breaker to remain half_open before success_threshold reached")
	}
	b.RecordSuccess()
	if b.State() != Closed {
		t.Fatal("expected breaker to close after success_threshold consecutive probes")
	}
}

func TestCircuitBreakerReopensOnProbeFailure(t *testing.T) {
	vc := clock.NewVirtual(time.Unix(0, 0))
	b := NewCircuitBreaker(CircuitConfig{FailureThreshold: 1, ResetTimeout: time.Second, SuccessThreshold: 2}, vc)

	b.RecordFailure()
	vc.Advance(time.Second)
	b.Allow()
	b.RecordFailure()
	if b.State() != Open {
		t.Fatal("expected a probe failure in half_open to reopen the breaker")
	}
}
