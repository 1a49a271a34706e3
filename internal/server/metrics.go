package server

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics holds the Prometheus instruments for the fit service. Each
// server carries its own registry so tests can run servers side by side.
type Metrics struct {
	registry *prometheus.Registry

	fitsTotal     *prometheus.CounterVec
	fitDuration   prometheus.Histogram
	fitIterations prometheus.Histogram
}

func newMetrics() *Metrics {
	registry := prometheus.NewRegistry()
	factory := promauto.With(registry)

	return &Metrics{
		registry: registry,
		fitsTotal: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "vikhfit_fits_total",
			Help: "Fit jobs by terminal status (completed, failed, cached).",
		}, []string{"status"}),
		fitDuration: factory.NewHistogram(prometheus.HistogramOpts{
			Name:    "vikhfit_fit_duration_seconds",
			Help:    "Wall-clock duration of freshly computed fits.",
			Buckets: prometheus.ExponentialBuckets(0.001, 4, 10),
		}),
		fitIterations: factory.NewHistogram(prometheus.HistogramOpts{
			Name:    "vikhfit_fit_iterations",
			Help:    "Optimizer iterations per freshly computed fit.",
			Buckets: prometheus.ExponentialBuckets(1, 4, 8),
		}),
	}
}
