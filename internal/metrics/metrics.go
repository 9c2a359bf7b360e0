// Package metrics provides Prometheus metrics for sync runs. The
// endpoint is optional and mostly useful for long bulk mirrors driven
// from CI or a scheduler.
package metrics

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	// S3 metrics
	s3OperationDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "datasets_s3_operation_duration_seconds",
			Help:    "S3 operation duration in seconds",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"operation"},
	)

	s3OperationsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "datasets_s3_operations_total",
			Help: "Total S3 operations",
		},
		[]string{"operation", "status"},
	)

	// Sync metrics
	bytesFetched = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "datasets_bytes_fetched_total",
			Help: "Total object bytes written to the local mirror",
		},
	)

	objectsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "datasets_objects_total",
			Help: "Objects processed by the sync engine",
		},
		[]string{"result"},
	)

	fetchDuration = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "datasets_fetch_duration_seconds",
			Help:    "Time to fetch one object, including retries",
			Buckets: prometheus.ExponentialBuckets(0.05, 2, 12),
		},
	)

	// Extraction metrics
	extractionsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "datasets_extractions_total",
			Help: "Archive extractions by result",
		},
		[]string{"result"},
	)

	extractDuration = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "datasets_extract_duration_seconds",
			Help:    "Time to extract one archive",
			Buckets: prometheus.ExponentialBuckets(0.05, 2, 12),
		},
	)

	// Manifest metrics
	manifestNodes = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "datasets_manifest_nodes",
			Help: "Number of nodes in the active manifest",
		},
	)
)

// Handler returns the Prometheus metrics HTTP handler.
func Handler() http.Handler {
	return promhttp.Handler()
}

// RecordS3Operation records an S3 operation.
func RecordS3Operation(operation string, duration time.Duration, success bool) {
	s3OperationDuration.WithLabelValues(operation).Observe(duration.Seconds())
	status := "success"
	if !success {
		status = "error"
	}
	s3OperationsTotal.WithLabelValues(operation, status).Inc()
}

// RecordFetch records one fetched object.
func RecordFetch(bytes int64, duration time.Duration) {
	bytesFetched.Add(float64(bytes))
	fetchDuration.Observe(duration.Seconds())
	objectsTotal.WithLabelValues("fetched").Inc()
}

// RecordSkip records an object skipped because it is already present.
func RecordSkip() {
	objectsTotal.WithLabelValues("skipped").Inc()
}

// RecordFailure records an object that could not be fetched.
func RecordFailure() {
	objectsTotal.WithLabelValues("failed").Inc()
}

// RecordExtraction records an archive extraction.
func RecordExtraction(duration time.Duration, success bool) {
	extractDuration.Observe(duration.Seconds())
	result := "extracted"
	if !success {
		result = "failed"
	}
	extractionsTotal.WithLabelValues(result).Inc()
}

// SetManifestNodes sets the size of the manifest being processed.
func SetManifestNodes(count int) {
	manifestNodes.Set(float64(count))
}
