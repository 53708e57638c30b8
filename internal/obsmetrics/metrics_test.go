package obsmetrics

import (
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
)

func TestObserveSagaExecution_IncrementsCounter(t *testing.T) {
	reg := prometheus.NewRegistry()
	m := New(reg)

	m.ObserveSagaExecution("completed", 2*time.Second)

	got := testutil.ToFloat64(m.SagaExecutionsTotal.WithLabelValues("completed"))
	if got != 1 {
		t.Fatalf("expected one completed execution recorded, got %v", got)
	}
}

func TestObserveCircuitBreakerState_SetsGauge(t *testing.T) {
	reg := prometheus.NewRegistry()
	m := New(reg)

	m.ObserveCircuitBreakerState("inventory", 2)

	got := testutil.ToFloat64(m.CircuitBreakerState.WithLabelValues("inventory"))
	if got != 2 {
		t.Fatalf("expected gauge value 2, got %v", got)
	}
}

func TestNilMetrics_EveryMethodIsANoOp(t *testing.T) {
	var m *Metrics
	// None of these must panic on a nil receiver.
	m.ObserveSagaExecution("completed", time.Second)
	m.ObserveStep("inventory", "succeeded", time.Second)
	m.ObserveCompensation("inventory", "succeeded")
	m.ObserveCircuitBreakerState("inventory", 0)
	m.ObserveCircuitBreakerRequest("inventory", "success")
	m.ObserveCommunicatorAttempt("inventory", "success")
	m.ObserveHTTPRequest("GET", "/health", "2xx", time.Millisecond)
}
