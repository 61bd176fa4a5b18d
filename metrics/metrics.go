// Package metrics exposes Prometheus counters for the execution engine.
package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metrics holds the engine's Prometheus collectors.
type Metrics struct {
	registry *prometheus.Registry

	// Turns counts completed turns, labeled by terminal outcome of the
	// turn ("continued", "completed", "stuck", "aborted", "error").
	Turns *prometheus.CounterVec

	// Escalations counts model escalations by reason.
	Escalations *prometheus.CounterVec

	// Interrupts counts user interrupts by command type.
	Interrupts *prometheus.CounterVec

	// LockContention counts acquisitions refused because the thread was
	// already running.
	LockContention prometheus.Counter

	// ModelCalls counts model calls by tier and outcome.
	ModelCalls *prometheus.CounterVec

	// Checkpoints counts checkpoint writes.
	Checkpoints prometheus.Counter

	// ExecutionDuration observes wall-clock execution time in seconds.
	ExecutionDuration prometheus.Histogram

	// ActiveExecutions tracks currently running executions.
	ActiveExecutions prometheus.Gauge
}

// New creates the engine's collectors on a fresh registry.
func New() *Metrics {
	registry := prometheus.NewRegistry()
	factory := promauto.With(registry)

	return &Metrics{
		registry: registry,
		Turns: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: "agentloop",
			Name:      "turns_total",
			Help:      "Completed execution turns by outcome.",
		}, []string{"outcome"}),
		Escalations: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: "agentloop",
			Name:      "escalations_total",
			Help:      "Model escalations by reason.",
		}, []string{"reason"}),
		Interrupts: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: "agentloop",
			Name:      "interrupts_total",
			Help:      "User interrupts by command type.",
		}, []string{"type"}),
		LockContention: factory.NewCounter(prometheus.CounterOpts{
			Namespace: "agentloop",
			Name:      "lock_contention_total",
			Help:      "Execution requests refused because the thread was busy.",
		}),
		ModelCalls: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: "agentloop",
			Name:      "model_calls_total",
			Help:      "Model calls by ladder tier and outcome.",
		}, []string{"tier", "outcome"}),
		Checkpoints: factory.NewCounter(prometheus.CounterOpts{
			Namespace: "agentloop",
			Name:      "checkpoints_total",
			Help:      "Checkpoint snapshots written.",
		}),
		ExecutionDuration: factory.NewHistogram(prometheus.HistogramOpts{
			Namespace: "agentloop",
			Name:      "execution_duration_seconds",
			Help:      "Wall-clock duration of finished executions.",
			Buckets:   prometheus.ExponentialBuckets(1, 2, 12),
		}),
		ActiveExecutions: factory.NewGauge(prometheus.GaugeOpts{
			Namespace: "agentloop",
			Name:      "active_executions",
			Help:      "Executions currently holding a thread lock.",
		}),
	}
}

// Handler serves the registry in Prometheus exposition format.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}

// Registry exposes the underlying registry for additional collectors.
func (m *Metrics) Registry() *prometheus.Registry {
	return m.registry
}
