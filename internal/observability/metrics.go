// Package observability provides Prometheus metrics for the router.
package observability

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metrics holds all Prometheus metrics for the application.
type Metrics struct {
	// Planning metrics
	PlansTotal   *prometheus.CounterVec
	PlanDuration *prometheus.HistogramVec
	LegsPlanned  *prometheus.CounterVec
	SolverSteps  *prometheus.HistogramVec

	// Collaborator metrics
	OracleCalls    *prometheus.CounterVec
	RPCCallLatency *prometheus.HistogramVec

	// Audit metrics
	AuditErrors *prometheus.CounterVec

	gatherer prometheus.Gatherer
}

// NewMetrics registers all metrics on reg. A nil reg uses a fresh registry.
func NewMetrics(namespace string, reg *prometheus.Registry) *Metrics {
	if namespace == "" {
		namespace = "yield_router"
	}
	if reg == nil {
		reg = prometheus.NewRegistry()
	}
	f := promauto.With(reg)

	return &Metrics{
		PlansTotal: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "planner",
			Name:      "plans_total",
			Help:      "Planning calls by direction, pool and outcome",
		}, []string{"direction", "pool", "outcome"}),
		PlanDuration: f.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "planner",
			Name:      "plan_duration_seconds",
			Help:      "Planning call latency in seconds",
			Buckets:   []float64{0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10, 20},
		}, []string{"direction"}),
		LegsPlanned: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "planner",
			Name:      "legs_total",
			Help:      "Swap legs in successful plans by kind",
		}, []string{"kind"}),
		SolverSteps: f.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "planner",
			Name:      "solver_steps",
			Help:      "Increments taken by the minimal-input solver",
			Buckets:   []float64{0, 1, 2, 5, 10, 50, 100, 500, 1000},
		}, []string{"leg"}),

		OracleCalls: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "oracle",
			Name:      "calls_total",
			Help:      "Oracle and venue queries by name and status",
		}, []string{"oracle", "status"}),
		RPCCallLatency: f.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "ethereum",
			Name:      "rpc_call_latency_seconds",
			Help:      "JSON-RPC call latency in seconds",
			Buckets:   prometheus.DefBuckets,
		}, []string{"method"}),

		AuditErrors: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "audit",
			Name:      "errors_total",
			Help:      "Failed audit writes by sink",
		}, []string{"sink"}),

		gatherer: reg,
	}
}

// ObserveSolverSteps records one solver run
func (m *Metrics) ObserveSolverSteps(leg string, steps int) {
	m.SolverSteps.WithLabelValues(leg).Observe(float64(steps))
}

// OracleCall records one oracle query
func (m *Metrics) OracleCall(oracle string, err error) {
	status := "ok"
	if err != nil {
		status = "error"
	}
	m.OracleCalls.WithLabelValues(oracle, status).Inc()
}

// ObserveRPC records one JSON-RPC round trip
func (m *Metrics) ObserveRPC(method string, d time.Duration) {
	m.RPCCallLatency.WithLabelValues(method).Observe(d.Seconds())
}

// Handler serves the registry in the Prometheus text format
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.gatherer, promhttp.HandlerOpts{})
}
