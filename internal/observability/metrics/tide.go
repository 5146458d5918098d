package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// TideMetrics contains Prometheus metrics for tide prediction lookups
type TideMetrics struct {
	fetchesTotal  *prometheus.CounterVec
	fetchDuration *prometheus.HistogramVec
}

// NewTideMetrics creates and registers new tide metrics
func NewTideMetrics(registry prometheus.Registerer) (*TideMetrics, error) {
	m := &TideMetrics{
		fetchesTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: Namespace,
				Name:      "tide_fetches_total",
				Help:      "Total number of tide prediction lookups",
			},
			[]string{"station", "status"}, // status: ok, no_data, error
		),
		fetchDuration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: Namespace,
				Name:      "tide_fetch_duration_seconds",
				Help:      "Time taken to fetch one station's predictions",
				Buckets:   prometheus.ExponentialBuckets(BucketStart100ms, BucketFactor2, BucketCount10),
			},
			[]string{"station"},
		),
	}
	if err := registry.Register(m); err != nil {
		return nil, err
	}
	return m, nil
}

// RecordTideFetch records one station lookup.
func (m *TideMetrics) RecordTideFetch(station, status string, elapsed time.Duration) {
	m.fetchesTotal.WithLabelValues(station, status).Inc()
	m.fetchDuration.WithLabelValues(station).Observe(elapsed.Seconds())
}

// Describe implements the Collector interface
func (m *TideMetrics) Describe(ch chan<- *prometheus.Desc) {
	m.fetchesTotal.Describe(ch)
	m.fetchDuration.Describe(ch)
}

// Collect implements the Collector interface
func (m *TideMetrics) Collect(ch chan<- prometheus.Metric) {
	m.fetchesTotal.Collect(ch)
	m.fetchDuration.Collect(ch)
}
