package observability

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

const namespace = "newsroom"

// Metrics holds the pipeline's Prometheus collectors
type Metrics struct {
	// RunsTotal counts pipeline runs by content type and outcome.
	RunsTotal *prometheus.CounterVec
	// GeneratorDuration measures generator call latency.
	GeneratorDuration *prometheus.HistogramVec
	// ArticlesPublished counts committed articles by content type and category.
	ArticlesPublished *prometheus.CounterVec
	// TriggerRequests counts trigger endpoint requests by outcome.
	TriggerRequests *prometheus.CounterVec
}

// NewMetrics registers the collectors with reg. Pass prometheus.NewRegistry() in tests.
func NewMetrics(reg prometheus.Registerer) *Metrics {
	factory := promauto.With(reg)
	return &Metrics{
		RunsTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "runs_total",
				Help:      "Total number of pipeline runs by outcome",
			},
			[]string{"content_type", "outcome"},
		),
		GeneratorDuration: factory.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: namespace,
				Name:      "generator_duration_seconds",
				Help:      "Duration of article generation calls in seconds",
				Buckets:   []float64{0.5, 1, 2.5, 5, 10, 20, 30, 60, 90, 120},
			},
			[]string{"content_type", "result"},
		),
		ArticlesPublished: factory.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "articles_published_total",
				Help:      "Total number of articles published",
			},
			[]string{"content_type", "category"},
		),
		TriggerRequests: factory.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "trigger_requests_total",
				Help:      "Total number of trigger endpoint requests by outcome",
			},
			[]string{"status"},
		),
	}
}

// RecordRun records a finished run. contentType may be empty when the run aborted early.
func (m *Metrics) RecordRun(contentType, outcome string) {
	if m == nil {
		return
	}
	if contentType == "" {
		contentType = "none"
	}
	m.RunsTotal.WithLabelValues(contentType, outcome).Inc()
}

// RecordGeneration records a generator call
func (m *Metrics) RecordGeneration(contentType, result string, d time.Duration) {
	if m == nil {
		return
	}
	m.GeneratorDuration.WithLabelValues(contentType, result).Observe(d.Seconds())
}

// RecordPublished records a committed article
func (m *Metrics) RecordPublished(contentType, category string) {
	if m == nil {
		return
	}
	m.ArticlesPublished.WithLabelValues(contentType, category).Inc()
}

// RecordTrigger records a trigger endpoint response
func (m *Metrics) RecordTrigger(status string) {
	if m == nil {
		return
	}
	m.TriggerRequests.WithLabelValues(status).Inc()
}
