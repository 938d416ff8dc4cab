package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// API Metrics
	HTTPRequestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "videotube_http_requests_total",
			Help: "Total number of HTTP requests",
		},
		[]string{"method", "endpoint", "status"},
	)

	HTTPRequestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "videotube_http_request_duration_seconds",
			Help:    "HTTP request latency in seconds",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"method", "endpoint"},
	)

	// Publication Metrics
	VideosPublishedTotal = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "videotube_videos_published_total",
			Help: "Total number of videos published",
		},
	)

	// Encoding Job Metrics
	JobsCreatedTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "videotube_encoding_jobs_created_total",
			Help: "Total number of encoding jobs created",
		},
		[]string{"priority"},
	)

	CallbacksTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "videotube_encoding_callbacks_total",
			Help: "Total number of worker callbacks applied",
		},
		[]string{"status"},
	)

	VariantsReadyTotal = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "videotube_variants_ready_total",
			Help: "Total number of variants marked ready by callbacks",
		},
	)

	// Playback Metrics
	ManifestRequestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "videotube_manifest_requests_total",
			Help: "Total number of manifest resolutions",
		},
		[]string{"format", "outcome"},
	)

	SegmentRequestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "videotube_segment_requests_total",
			Help: "Total number of segment URL resolutions",
		},
		[]string{"outcome"},
	)

	// Telemetry Metrics
	TelemetryReportsTotal = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "videotube_telemetry_reports_total",
			Help: "Total number of telemetry deliveries recorded",
		},
	)

	// Storage Metrics
	StorageOperationsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "videotube_storage_operations_total",
			Help: "Total number of storage operations",
		},
		[]string{"operation", "status"},
	)

	// Cache Metrics
	CacheHitsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "videotube_cache_hits_total",
			Help: "Total number of cache hits",
		},
		[]string{"cache_type"},
	)

	CacheMissesTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "videotube_cache_misses_total",
			Help: "Total number of cache misses",
		},
		[]string{"cache_type"},
	)

	// Error Metrics
	ErrorsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "videotube_errors_total",
			Help: "Total number of errors",
		},
		[]string{"component", "error_type"},
	)
)

// RecordHTTPRequest records an HTTP request
func RecordHTTPRequest(method, endpoint, status string, duration float64) {
	HTTPRequestsTotal.WithLabelValues(method, endpoint, status).Inc()
	HTTPRequestDuration.WithLabelValues(method, endpoint).Observe(duration)
}

// RecordCallback records a worker callback application
func RecordCallback(status string) {
	CallbacksTotal.WithLabelValues(status).Inc()
}

// RecordManifestRequest records a manifest resolution outcome
func RecordManifestRequest(format, outcome string) {
	ManifestRequestsTotal.WithLabelValues(format, outcome).Inc()
}

// RecordSegmentRequest records a segment resolution outcome
func RecordSegmentRequest(outcome string) {
	SegmentRequestsTotal.WithLabelValues(outcome).Inc()
}

// RecordStorageOperation records a storage operation
func RecordStorageOperation(operation, status string) {
	StorageOperationsTotal.WithLabelValues(operation, status).Inc()
}

// RecordCacheAccess records cache hit or miss
func RecordCacheAccess(cacheType string, hit bool) {
	if hit {
		CacheHitsTotal.WithLabelValues(cacheType).Inc()
	} else {
		CacheMissesTotal.WithLabelValues(cacheType).Inc()
	}
}

// RecordError records an error
func RecordError(component, errorType string) {
	ErrorsTotal.WithLabelValues(component, errorType).Inc()
}
