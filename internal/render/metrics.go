package render

import (
	"sync"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Render outcomes used as metric labels and history statuses.
const (
	OutcomeSucceeded    = "succeeded"
	OutcomeFailed       = "failed"
	OutcomeCached       = "cached"
	OutcomeStreamFailed = "stream_failed"
)

var (
	metricsOnce sync.Once
	metrics     *renderMetrics
)

type renderMetrics struct {
	requestsTotal   *prometheus.CounterVec
	durationSeconds *prometheus.HistogramVec
	inFlight        prometheus.Gauge
	cacheLookups    *prometheus.CounterVec
	cleanupErrors   prometheus.Counter
}

func getMetrics() *renderMetrics {
	metricsOnce.Do(func() {
		metrics = &renderMetrics{
			requestsTotal: promauto.NewCounterVec(
				prometheus.CounterOpts{
					Name: "mermaid_render_requests_total",
					Help: "Total number of render requests by outcome",
				},
				[]string{"outcome"},
			),
			durationSeconds: promauto.NewHistogramVec(
				prometheus.HistogramOpts{
					Name:    "mermaid_render_duration_seconds",
					Help:    "Duration of render requests",
					Buckets: []float64{0.1, 0.25, 0.5, 1, 2, 5, 10, 30, 60, 120},
				},
				[]string{"outcome"},
			),
			inFlight: promauto.NewGauge(
				prometheus.GaugeOpts{
					Name: "mermaid_renders_in_flight",
					Help: "Number of renderer processes currently running",
				},
			),
			cacheLookups: promauto.NewCounterVec(
				prometheus.CounterOpts{
					Name: "mermaid_render_cache_lookups_total",
					Help: "Render cache lookups by result",
				},
				[]string{"result"},
			),
			cleanupErrors: promauto.NewCounter(
				prometheus.CounterOpts{
					Name: "mermaid_render_cleanup_errors_total",
					Help: "Jobs whose temporary files could not all be removed",
				},
			),
		}
	})
	return metrics
}
