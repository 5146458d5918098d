// Package metrics defines the Prometheus collectors of the dashboard.
package metrics

// Namespace prefixes every metric name.
const Namespace = "mantaview"

// Histogram bucket layout constants.
const (
	// BucketStart1ms is the starting bucket for 1ms histograms (1ms to ~1s range).
	BucketStart1ms = 0.001
	// BucketStart100ms is the starting bucket for 100ms histograms (100ms to ~100s range).
	BucketStart100ms = 0.1
	// BucketFactor2 is the common exponential growth factor of 2 for histogram buckets.
	BucketFactor2 = 2
	// BucketFactor4 grows record-count buckets from single rows to large uploads.
	BucketFactor4 = 4
	// BucketCount10 defines 10 exponential buckets.
	BucketCount10 = 10
	// BucketCount8 defines 8 exponential buckets.
	BucketCount8 = 8
)

// Status label values.
const (
	StatusSuccess = "success"
	StatusError   = "error"
)
