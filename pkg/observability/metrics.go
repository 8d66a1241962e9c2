package observability

import (
	"context"
	"net/http"

	"github.com/aretw0/compositor/pkg/domain"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metrics records evaluator activity in a dedicated Prometheus registry.
type Metrics struct {
	registry *prometheus.Registry

	evaluations *prometheus.CounterVec
	duration    *prometheus.HistogramVec
	cacheHits   *prometheus.CounterVec
	degraded    *prometheus.CounterVec
	frames      *prometheus.CounterVec
}

// NewMetrics creates the collectors and registers them.
func NewMetrics() *Metrics {
	m := &Metrics{
		registry: prometheus.NewRegistry(),
		evaluations: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "compositor_node_evaluations_total",
				Help: "Number of node evaluations by kind.",
			},
			[]string{"kind"},
		),
		duration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "compositor_node_evaluation_duration_seconds",
				Help:    "Time spent in a node's Evaluate.",
				Buckets: prometheus.DefBuckets,
			},
			[]string{"kind"},
		),
		cacheHits: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "compositor_cache_hits_total",
				Help: "Number of node results served from cache by kind.",
			},
			[]string{"kind"},
		),
		degraded: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "compositor_node_degraded_total",
				Help: "Number of evaluations that fell back to default outputs.",
			},
			[]string{"kind"},
		),
		frames: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "compositor_frames_delivered_total",
				Help: "Number of frames handed to viewer consumers.",
			},
			[]string{"node", "result"},
		),
	}
	m.registry.MustRegister(m.evaluations, m.duration, m.cacheHits, m.degraded, m.frames)
	return m
}

// Registry exposes the underlying registry, e.g. to add process collectors.
func (m *Metrics) Registry() *prometheus.Registry { return m.registry }

// Handler serves the metrics in the Prometheus exposition format.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{Registry: m.registry})
}

// Hooks returns lifecycle hooks feeding the collectors.
func (m *Metrics) Hooks() domain.LifecycleHooks {
	return domain.LifecycleHooks{
		OnNodeEvaluate: func(_ context.Context, e *domain.NodeEvent) {
			m.evaluations.WithLabelValues(e.Kind).Inc()
			m.duration.WithLabelValues(e.Kind).Observe(e.Duration.Seconds())
		},
		OnCacheHit: func(_ context.Context, e *domain.NodeEvent) {
			m.cacheHits.WithLabelValues(e.Kind).Inc()
		},
		OnNodeDegraded: func(_ context.Context, e *domain.NodeEvent) {
			m.degraded.WithLabelValues(e.Kind).Inc()
		},
		OnFrameDelivered: func(_ context.Context, e *domain.FrameEvent) {
			result := "ok"
			if e.Err != nil {
				result = "error"
			}
			m.frames.WithLabelValues(e.Frame.NodeID, result).Inc()
		},
	}
}
