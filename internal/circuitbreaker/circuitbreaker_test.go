package circuitbreaker

import (
	"errors"
	"testing"
	"time"
)

func TestCircuitBreaker_ClosedState(t *testing.T) {
	cb := New("test", Config{
		MaxRequests: 3,
		Interval:    10 * time.Second,
		Timeout:     30 * time.Second,
		ReadyToTrip: func(counts Counts) bool { return counts.ConsecutiveFailures >= 5 },
	})

	for i := 0; i < 10; i++ {
		if err := cb.Execute(func() error { return nil }); err != nil {
			t.Fatalf("expected success, got %v", err)
		}
	}

	if cb.State() != StateClosed {
		t.Errorf("expected CLOSED, got %s", cb.State())
	}
	if counts := cb.Counts(); counts.TotalSuccesses != 10 {
		t.Errorf("expected 10 successes, got %d", counts.TotalSuccesses)
	}
}

func TestCircuitBreaker_TripsOpenAfterConsecutiveFailures(t *testing.T) {
	cb := New("test", Config{
		MaxRequests: 3,
		Interval:    10 * time.Second,
		Timeout:     30 * time.Second,
		ReadyToTrip: func(counts Counts) bool { return counts.ConsecutiveFailures >= 5 },
	})

	for i := 0; i < 5; i++ {
		_ = cb.Execute(func() error { return errors.New("service unavailable") })
	}

	if cb.State() != StateOpen {
		t.Errorf("expected OPEN, got %s", cb.State())
	}

	called := false
	err := cb.Execute(func() error { called = true; return nil })
	if err != ErrOpenState {
		t.Errorf("expected ErrOpenState, got %v", err)
	}
	if called {
		t.Error("an open breaker must not invoke the wrapped function")
	}
}

func TestCircuitBreaker_HalfOpenRecovery(t *testing.T) {
	cb := New("test", Config{
		MaxRequests: 1,
		Interval:    10 * time.Second,
		Timeout:     20 * time.Millisecond,
		ReadyToTrip: func(counts Counts) bool { return counts.ConsecutiveFailures >= 2 },
	})

	_ = cb.Execute(func() error { return errors.New("fail") })
	_ = cb.Execute(func() error { return errors.New("fail") })
	if cb.State() != StateOpen {
		t.Fatalf("expected OPEN after 2 consecutive failures, got %s", cb.State())
	}

	time.Sleep(30 * time.Millisecond)
	if cb.State() != StateHalfOpen {
		t.Fatalf("expected HALF_OPEN after timeout elapses, got %s", cb.State())
	}

	if err := cb.Execute(func() error { return nil }); err != nil {
		t.Fatalf("expected the half-open probe to be let through, got %v", err)
	}
	if cb.State() != StateClosed {
		t.Fatalf("expected a successful probe to close the breaker, got %s", cb.State())
	}
}

func TestCircuitBreaker_HalfOpenFailureReopens(t *testing.T) {
	cb := New("test", Config{
		MaxRequests: 1,
		Interval:    10 * time.Second,
		Timeout:     20 * time.Millisecond,
		ReadyToTrip: func(counts Counts) bool { return counts.ConsecutiveFailures >= 1 },
	})

	_ = cb.Execute(func() error { return errors.New("fail") })
	time.Sleep(30 * time.Millisecond)
	if cb.State() != StateHalfOpen {
		t.Fatalf("expected HALF_OPEN, got %s", cb.State())
	}

	_ = cb.Execute(func() error { return errors.New("still failing") })
	if cb.State() != StateOpen {
		t.Fatalf("expected a failed probe to reopen the breaker, got %s", cb.State())
	}
}

func TestCircuitBreaker_OnStateChangeCallback(t *testing.T) {
	var transitions []State
	cb := New("test", Config{
		MaxRequests: 1,
		Interval:    10 * time.Second,
		Timeout:     10 * time.Second,
		ReadyToTrip: func(counts Counts) bool { return counts.ConsecutiveFailures >= 1 },
	})
	cb.OnStateChange(func(name string, from, to State) { transitions = append(transitions, to) })

	_ = cb.Execute(func() error { return errors.New("fail") })
	if len(transitions) != 1 || transitions[0] != StateOpen {
		t.Fatalf("expected one transition to OPEN, got %v", transitions)
	}
}
