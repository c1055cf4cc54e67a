// Copyright 2025 The MapAudit Authors
// SPDX-License-Identifier: Apache-2.0

package report

import (
	"net/http"
	"time"

	"github.com/mapaudit/mapaudit/correlate"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const namespace = "mapaudit"

// Metrics exposes analysis outcomes to Prometheus. It owns its registry so
// several instances (and tests) never collide.
type Metrics struct {
	registry *prometheus.Registry
	outcomes *prometheus.CounterVec
	distance *prometheus.HistogramVec
	lastRun  *prometheus.GaugeVec
}

// NewMetrics creates the collectors on a fresh registry.
func NewMetrics() *Metrics {
	registry := prometheus.NewRegistry()
	factory := promauto.With(registry)

	return &Metrics{
		registry: registry,
		outcomes: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "outcomes_total",
			Help:      "Correlation outcomes by analysis and kind.",
		}, []string{"analysis", "kind"}),
		distance: factory.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "match_distance_meters",
			Help:      "Distance between matched items and features.",
			Buckets:   []float64{1, 5, 10, 15, 25, 50, 75, 100, 200, 500, 1000},
		}, []string{"analysis"}),
		lastRun: factory.NewGaugeVec(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "last_run_timestamp_seconds",
			Help:      "Unix time of the last completed run of an analysis.",
		}, []string{"analysis"}),
	}
}

// Registry returns the registry holding the collectors.
func (m *Metrics) Registry() *prometheus.Registry {
	return m.registry
}

// Handler serves the registry in the Prometheus exposition format.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}

// Observe records the outcomes of one run. A nil m does nothing.
func Observe[T correlate.Item](m *Metrics, analysis string, res *correlate.Result[T]) {
	if m == nil {
		return
	}

	for _, o := range res.Outcomes {
		m.outcomes.WithLabelValues(analysis, o.Kind.String()).Inc()

		if o.Kind.IsMatch() {
			m.distance.WithLabelValues(analysis).Observe(o.Distance)
		}
	}

	m.lastRun.WithLabelValues(analysis).Set(float64(time.Now().Unix()))
}
