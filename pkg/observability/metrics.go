package observability

import (
	"context"
	"net/http"

	"github.com/aretw0/stanza/pkg/domain"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Namespace prefixes every metric name.
const Namespace = "stanza"

// Metrics holds the collectors fed by the dispatcher hooks.
type Metrics struct {
	registry *prometheus.Registry

	Matched  *prometheus.CounterVec
	Unrouted prometheus.Counter
	Outcomes *prometheus.CounterVec
	Duration *prometheus.HistogramVec
}

// MetricsOption configures Metrics.
type MetricsOption func(*Metrics)

// WithRegistry registers the collectors on reg instead of a fresh registry.
func WithRegistry(reg *prometheus.Registry) MetricsOption {
	return func(m *Metrics) {
		m.registry = reg
	}
}

// NewMetrics creates and registers the keyword collectors.
func NewMetrics(opts ...MetricsOption) *Metrics {
	m := &Metrics{
		Matched: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: Namespace,
				Name:      "keywords_matched_total",
				Help:      "Total number of keyword occurrences matched, by route.",
			},
			[]string{"group", "route"},
		),
		Unrouted: prometheus.NewCounter(
			prometheus.CounterOpts{
				Namespace: Namespace,
				Name:      "keywords_unrouted_total",
				Help:      "Total number of keyword occurrences no route could serve.",
			},
		),
		Outcomes: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: Namespace,
				Name:      "keyword_outcomes_total",
				Help:      "Total number of finished keyword occurrences, by status.",
			},
			[]string{"status"},
		),
		Duration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: Namespace,
				Name:      "keyword_duration_seconds",
				Help:      "Duration of keyword occurrences from search to outcome.",
				Buckets:   prometheus.DefBuckets,
			},
			[]string{"group"},
		),
	}
	for _, opt := range opts {
		opt(m)
	}
	if m.registry == nil {
		m.registry = prometheus.NewRegistry()
		m.registry.MustRegister(
			collectors.NewGoCollector(),
			collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
		)
	}
	m.registry.MustRegister(m.Matched, m.Unrouted, m.Outcomes, m.Duration)
	return m
}

// Registry returns the registry holding the collectors.
func (m *Metrics) Registry() *prometheus.Registry {
	return m.registry
}

// Handler serves the registry in the Prometheus exposition format.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{Registry: m.registry})
}

// Hooks returns dispatcher hooks recording into m.
func (m *Metrics) Hooks() domain.LifecycleHooks {
	return domain.LifecycleHooks{
		OnMatched: func(ctx context.Context, e *domain.KeywordEvent) {
			m.Matched.WithLabelValues(e.Group, e.Route).Inc()
		},
		OnUnrouted: func(ctx context.Context, e *domain.KeywordEvent) {
			m.Unrouted.Inc()
		},
		OnFinish: func(ctx context.Context, e *domain.KeywordEvent) {
			m.Outcomes.WithLabelValues(string(e.Status)).Inc()
			m.Duration.WithLabelValues(e.Group).Observe(e.Duration.Seconds())
		},
	}
}
