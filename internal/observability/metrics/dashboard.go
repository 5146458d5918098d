package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// DashboardMetrics covers store appends, sessions and view computation.
type DashboardMetrics struct {
	appendsTotal        *prometheus.CounterVec
	appendedRowsTotal   *prometheus.CounterVec
	sessionEventsTotal  *prometheus.CounterVec
	activeSessions      prometheus.Gauge
	viewRecords         *prometheus.HistogramVec
	viewComputeDuration *prometheus.HistogramVec
}

// NewDashboardMetrics creates and registers the dashboard metrics.
func NewDashboardMetrics(registry prometheus.Registerer) (*DashboardMetrics, error) {
	m := &DashboardMetrics{
		appendsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: Namespace,
				Name:      "appends_total",
				Help:      "Total number of append operations on the encounter store",
			},
			[]string{"source", "status"}, // source: manual, upload
		),
		appendedRowsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: Namespace,
				Name:      "appended_rows_total",
				Help:      "Total number of rows appended to the encounter store",
			},
			[]string{"source"},
		),
		sessionEventsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: Namespace,
				Name:      "session_events_total",
				Help:      "Session lifecycle events",
			},
			[]string{"event"}, // started, reloaded, evicted
		),
		activeSessions: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: Namespace,
			Name:      "active_sessions",
			Help:      "Sessions currently holding a loaded collection",
		}),
		viewRecords: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: Namespace,
				Name:      "view_records",
				Help:      "Records in the filtered view served per request",
				Buckets:   prometheus.ExponentialBuckets(1, BucketFactor4, BucketCount8),
			},
			[]string{"endpoint"},
		),
		viewComputeDuration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: Namespace,
				Name:      "view_compute_duration_seconds",
				Help:      "Time taken to filter and aggregate a view",
				Buckets:   prometheus.ExponentialBuckets(BucketStart1ms, BucketFactor2, BucketCount10),
			},
			[]string{"endpoint"},
		),
	}
	if err := registry.Register(m); err != nil {
		return nil, err
	}
	return m, nil
}

// RecordAppend counts one append attempt.
func (m *DashboardMetrics) RecordAppend(source string, rows int, err error) {
	if err != nil {
		m.appendsTotal.WithLabelValues(source, StatusError).Inc()
		return
	}
	m.appendsTotal.WithLabelValues(source, StatusSuccess).Inc()
	m.appendedRowsTotal.WithLabelValues(source).Add(float64(rows))
}

// RecordSessionEvent counts one session lifecycle event.
func (m *DashboardMetrics) RecordSessionEvent(event string) {
	m.sessionEventsTotal.WithLabelValues(event).Inc()
}

// SetActiveSessions sets the live session gauge.
func (m *DashboardMetrics) SetActiveSessions(n int) {
	m.activeSessions.Set(float64(n))
}

// ObserveView records the size and compute time of a served view.
func (m *DashboardMetrics) ObserveView(endpoint string, records int, elapsed time.Duration) {
	m.viewRecords.WithLabelValues(endpoint).Observe(float64(records))
	m.viewComputeDuration.WithLabelValues(endpoint).Observe(elapsed.Seconds())
}

// Describe implements the Collector interface
func (m *DashboardMetrics) Describe(ch chan<- *prometheus.Desc) {
	m.appendsTotal.Describe(ch)
	m.appendedRowsTotal.Describe(ch)
	m.sessionEventsTotal.Describe(ch)
	m.activeSessions.Describe(ch)
	m.viewRecords.Describe(ch)
	m.viewComputeDuration.Describe(ch)
}

// Collect implements the Collector interface
func (m *DashboardMetrics) Collect(ch chan<- prometheus.Metric) {
	m.appendsTotal.Collect(ch)
	m.appendedRowsTotal.Collect(ch)
	m.sessionEventsTotal.Collect(ch)
	m.activeSessions.Collect(ch)
	m.viewRecords.Collect(ch)
	m.viewComputeDuration.Collect(ch)
}
