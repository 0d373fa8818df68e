// Package metrics exposes Prometheus instrumentation for pipeline runs.
package metrics

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/example/draft-agent/internal/models"
	"github.com/example/draft-agent/internal/orchestrator"
)

const namespace = "draftagent"

type Metrics struct {
	gatherer prometheus.Gatherer

	runs          *prometheus.CounterVec
	stageDuration *prometheus.HistogramVec
	fallbacks     *prometheus.CounterVec
	inFlight      prometheus.Gauge
}

// New registers the collectors on reg. A nil reg gets a fresh registry.
func New(reg *prometheus.Registry) *Metrics {
	if reg == nil {
		reg = prometheus.NewRegistry()
	}
	m := &Metrics{
		gatherer: reg,
		runs: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "runs_total",
			Help:      "Finished pipeline runs by outcome.",
		}, []string{"outcome"}),
		stageDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "stage_duration_seconds",
			Help:      "Stage execution time by final status.",
			Buckets:   []float64{0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10, 20, 45},
		}, []string{"stage", "status"}),
		fallbacks: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "stage_fallbacks_total",
			Help:      "Stages that substituted a canned fallback.",
		}, []string{"stage"}),
		inFlight: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "runs_in_flight",
			Help:      "Runs currently executing.",
		}),
	}
	reg.MustRegister(m.runs, m.stageDuration, m.fallbacks, m.inFlight)
	return m
}

// Hooks returns runner hooks feeding the collectors.
func (m *Metrics) Hooks() orchestrator.Hooks {
	return orchestrator.Hooks{
		OnRunStart: m.inFlight.Inc,
		OnStageEnd: func(stage models.Stage, status models.NodeStatus, elapsed time.Duration) {
			m.stageDuration.WithLabelValues(string(stage), string(status)).Observe(elapsed.Seconds())
			if status == models.StatusError {
				m.fallbacks.WithLabelValues(string(stage)).Inc()
			}
		},
		OnRunEnd: func(outcome models.Outcome) {
			m.inFlight.Dec()
			m.runs.WithLabelValues(string(outcome)).Inc()
		},
	}
}

// Handler serves the exposition format for the registry.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.gatherer, promhttp.HandlerOpts{})
}
