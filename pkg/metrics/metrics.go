package metrics

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metrics owns the service collectors. A nil *Metrics is a valid no-op sink.
type Metrics struct {
	registry        *prometheus.Registry
	fetchDuration   *prometheus.HistogramVec
	updates         *prometheus.CounterVec
	classifications *prometheus.CounterVec
	currentAQI      prometheus.Gauge
}

// New registers the service collectors on a private registry.
func New() *Metrics {
	m := &Metrics{
		registry: prometheus.NewRegistry(),
		fetchDuration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "airguard_fetch_duration_seconds",
				Help:    "Histogram of upstream reading fetch times.",
				Buckets: prometheus.DefBuckets,
			},
			[]string{"source", "outcome"},
		),
		updates: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "airguard_location_updates_total",
				Help: "Location update attempts by outcome.",
			},
			[]string{"outcome"},
		),
		classifications: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "airguard_classifications_total",
				Help: "Readings classified per AQI category.",
			},
			[]string{"category"},
		),
		currentAQI: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "airguard_current_aqi",
			Help: "AQI of the reading currently shown on the dashboard.",
		}),
	}
	m.registry.MustRegister(m.fetchDuration, m.updates, m.classifications, m.currentAQI)
	return m
}

// ObserveFetch records one upstream fetch.
func (m *Metrics) ObserveFetch(source, outcome string, elapsed time.Duration) {
	if m == nil {
		return
	}
	m.fetchDuration.WithLabelValues(source, outcome).Observe(elapsed.Seconds())
}

// CountUpdate increments the update counter for outcome.
func (m *Metrics) CountUpdate(outcome string) {
	if m == nil {
		return
	}
	m.updates.WithLabelValues(outcome).Inc()
}

// CountClassification increments the per-category counter.
func (m *Metrics) CountClassification(category string) {
	if m == nil {
		return
	}
	m.classifications.WithLabelValues(category).Inc()
}

// SetCurrentAQI publishes the AQI now on display.
func (m *Metrics) SetCurrentAQI(aqi float64) {
	if m == nil {
		return
	}
	m.currentAQI.Set(aqi)
}

// Handler exposes the registry in the Prometheus text format.
func (m *Metrics) Handler() http.Handler {
	if m == nil {
		return promhttp.HandlerFor(prometheus.NewRegistry(), promhttp.HandlerOpts{})
	}
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}
