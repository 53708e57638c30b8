// Package obsmetrics exposes the coordinator's Prometheus metrics.
//
// Grounded on the teacher's pkg/metrics/metrics.go, trimmed to the
// saga/circuit-breaker/communicator/HTTP concerns this repo actually
// has, and renamed accordingly. The teacher package exposes its
// collectors as package-level vars behind an InitMetrics() sync.Once
// guard; spec.md §9 explicitly asks to "avoid module-level
// singletons; they complicate testing", so here the collectors live
// on an instantiable *Metrics struct built by New(reg), and every
// caller that needs to record something takes a *Metrics parameter
// instead of importing package-level state.
package obsmetrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// Metrics bundles every collector the coordinator registers. A nil
// *Metrics is safe to use everywhere below — all recording methods
// guard against it — so tests and call sites that don't care about
// metrics can pass nil instead of building a throwaway registry.
type Metrics struct {
	SagaExecutionsTotal   *prometheus.CounterVec
	SagaExecutionDuration *prometheus.HistogramVec
	SagaCompensationsTotal *prometheus.CounterVec
	SagaStepDuration      *prometheus.HistogramVec

	CircuitBreakerState    *prometheus.GaugeVec
	CircuitBreakerRequests *prometheus.CounterVec

	CommunicatorAttemptsTotal *prometheus.CounterVec

	HTTPRequestsTotal   *prometheus.CounterVec
	HTTPRequestDuration *prometheus.HistogramVec
}

// New registers every collector against reg and returns the bundle.
// Pass prometheus.NewRegistry() in tests to avoid the default global
// registry's double-registration panics across test runs.
func New(reg prometheus.Registerer) *Metrics {
	m := &Metrics{
		SagaExecutionsTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "saga",
			Name:      "executions_total",
			Help:      "Total saga executions by terminal status.",
		}, []string{"status"}),

		SagaExecutionDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: "saga",
			Name:      "execution_duration_seconds",
			Help:      "Saga end-to-end execution duration.",
			Buckets:   []float64{0.1, 0.25, 0.5, 1, 2.5, 5, 10, 30, 60},
		}, []string{"status"}),

		SagaCompensationsTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "saga",
			Name:      "compensations_total",
			Help:      "Total compensation calls issued, by participant and outcome.",
		}, []string{"participant", "outcome"}),

		SagaStepDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: "saga",
			Name:      "step_duration_seconds",
			Help:      "Per-step duration within a saga execution.",
			Buckets:   []float64{0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10},
		}, []string{"participant", "status"}),

		CircuitBreakerState: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Namespace: "saga",
			Subsystem: "circuit_breaker",
			Name:      "state",
			Help:      "Circuit breaker state by participant (0=closed, 1=open, 2=half_open).",
		}, []string{"participant"}),

		CircuitBreakerRequests: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "saga",
			Subsystem: "circuit_breaker",
			Name:      "requests_total",
			Help:      "Requests observed by the circuit breaker, by participant and outcome.",
		}, []string{"participant", "outcome"}),

		CommunicatorAttemptsTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "saga",
			Subsystem: "communicator",
			Name:      "attempts_total",
			Help:      "Send attempts against a participant, by outcome.",
		}, []string{"participant", "outcome"}),

		HTTPRequestsTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "saga",
			Subsystem: "http",
			Name:      "requests_total",
			Help:      "HTTP requests served by the operator API.",
		}, []string{"method", "path", "status"}),

		HTTPRequestDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: "saga",
			Subsystem: "http",
			Name:      "request_duration_seconds",
			Help:      "HTTP request duration served by the operator API.",
			Buckets:   prometheus.DefBuckets,
		}, []string{"method", "path"}),
	}

	reg.MustRegister(
		m.SagaExecutionsTotal,
		m.SagaExecutionDuration,
		m.SagaCompensationsTotal,
		m.SagaStepDuration,
		m.CircuitBreakerState,
		m.CircuitBreakerRequests,
		m.CommunicatorAttemptsTotal,
		m.HTTPRequestsTotal,
		m.HTTPRequestDuration,
	)
	return m
}

func (m *Metrics) ObserveSagaExecution(status string, d time.Duration) {
	if m == nil {
		return
	}
	m.SagaExecutionsTotal.WithLabelValues(status).Inc()
	m.SagaExecutionDuration.WithLabelValues(status).Observe(d.Seconds())
}

func (m *Metrics) ObserveStep(participant, status string, d time.Duration) {
	if m == nil {
		return
	}
	m.SagaStepDuration.WithLabelValues(participant, status).Observe(d.Seconds())
}

func (m *Metrics) ObserveCompensation(participant, outcome string) {
	if m == nil {
		return
	}
	m.SagaCompensationsTotal.WithLabelValues(participant, outcome).Inc()
}

func (m *Metrics) ObserveCircuitBreakerState(participant string, state int) {
	if m == nil {
		return
	}
	m.CircuitBreakerState.WithLabelValues(participant).Set(float64(state))
}

func (m *Metrics) ObserveCircuitBreakerRequest(participant, outcome string) {
	if m == nil {
		return
	}
	m.CircuitBreakerRequests.WithLabelValues(participant, outcome).Inc()
}

func (m *Metrics) ObserveCommunicatorAttempt(participant, outcome string) {
	if m == nil {
		return
	}
	m.CommunicatorAttemptsTotal.WithLabelValues(participant, outcome).Inc()
}

func (m *Metrics) ObserveHTTPRequest(method, path, status string, d time.Duration) {
	if m == nil {
		return
	}
	m.HTTPRequestsTotal.WithLabelValues(method, path, status).Inc()
	m.HTTPRequestDuration.WithLabelValues(method, path).Observe(d.Seconds())
}
