package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// HTTP metrics
var (
	HTTPRequestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "fingerprinter_http_requests_total",
			Help: "Total number of HTTP requests served by the query server",
		},
		[]string{"method", "path", "status"},
	)

	HTTPRequestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "fingerprinter_http_request_duration_seconds",
			Help:    "HTTP request duration in seconds",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"method", "path"},
	)

	HTTPRequestsInFlight = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "fingerprinter_http_requests_in_flight",
			Help: "Number of HTTP requests currently being processed",
		},
	)
)

// Database metrics
var (
	DBQueryTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "fingerprinter_db_queries_total",
			Help: "Total number of database queries",
		},
		[]string{"operation", "status"},
	)

	DBQueryDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "fingerprinter_db_query_duration_seconds",
			Help:    "Database query duration in seconds",
			Buckets: []float64{0.001, 0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1, 2.5, 5},
		},
		[]string{"operation"},
	)

	DBTransactionDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "fingerprinter_db_transaction_duration_seconds",
			Help:    "Duration of database transactions in seconds",
			Buckets: []float64{0.001, 0.005, 0.01, 0.05, 0.1, 0.5, 1, 5, 10},
		},
		[]string{"type"},
	)

	DBSizeBytes = promauto.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "fingerprinter_db_size_bytes",
			Help: "Size of SQLite database files in bytes",
		},
		[]string{"file"}, // "main", "wal", "shm"
	)

	DBFilesTotal = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "fingerprinter_db_files",
			Help: "Number of file records in the store",
		},
	)

	DBHashesTotal = promauto.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "fingerprinter_db_hashes",
			Help: "Number of stored hash records by algorithm",
		},
		[]string{"algorithm"},
	)
)

// Run metrics
var (
	RunsTotal = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "fingerprinter_runs_total",
			Help: "Total number of fingerprinting runs",
		},
	)

	RunIsActive = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "fingerprinter_run_active",
			Help: "Whether a run is currently in progress (1 = running, 0 = idle)",
		},
	)

	RunLastTimestamp = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "fingerprinter_run_last_timestamp",
			Help: "Unix timestamp of the last completed run",
		},
	)

	RunLastDuration = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "fingerprinter_run_last_duration_seconds",
			Help: "Duration of the last run in seconds",
		},
	)

	RunPlannedFiles = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "fingerprinter_run_planned_files",
			Help: "Number of files the planner scheduled in the current run",
		},
	)

	RunFilesTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "fingerprinter_run_files_total",
			Help: "Files handled by the pipeline by outcome",
		},
		[]string{"outcome"}, // "added", "updated", "cached", "not_a_file", "empty"
	)

	FilesInFlight = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "fingerprinter_files_in_flight",
			Help: "Number of files currently being fingerprinted",
		},
	)
)

// Hash metrics
var (
	HashComputationsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "fingerprinter_hash_computations_total",
			Help: "Hash computations by algorithm and status",
		},
		[]string{"algorithm", "status"}, // status: "success", "unsupported", "access_error", "error"
	)

	HashDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "fingerprinter_hash_duration_seconds",
			Help:    "Time spent computing a hash family for one file",
			Buckets: []float64{0.001, 0.005, 0.01, 0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10},
		},
		[]string{"family"}, // "binary", "perceptual"
	)

	HashBytesRead = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "fingerprinter_hash_bytes_read_total",
			Help: "Bytes streamed through binary hashers",
		},
	)

	ImageDecodeTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "fingerprinter_image_decode_total",
			Help: "Image decodes for perceptual hashing by decoder and status",
		},
		[]string{"decoder", "status"}, // decoder: "imaging", "vips"
	)
)

// Classification metrics
var (
	ClassificationsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "fingerprinter_classifications_total",
			Help: "File type classifications by deciding detector",
		},
		[]string{"detector"}, // "header", "decoder", "vips", "unidentified", "error"
	)

	ClassificationCacheHits = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "fingerprinter_classification_cache_hits_total",
			Help: "Classifications answered from the memo",
		},
	)
)

// Buffer metrics
var (
	BufferCapacity = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "fingerprinter_buffer_capacity",
			Help: "Current result buffer capacity chosen by the sizing policy",
		},
	)

	BufferFlushesTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "fingerprinter_buffer_flushes_total",
			Help: "Result buffer flushes by status",
		},
		[]string{"status"},
	)

	BufferFlushDuration = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "fingerprinter_buffer_flush_duration_seconds",
			Help:    "Duration of result buffer flushes in seconds",
			Buckets: []float64{0.001, 0.005, 0.01, 0.05, 0.1, 0.25, 0.5, 1, 2.5},
		},
	)

	BufferFlushSize = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "fingerprinter_buffer_flush_size",
			Help:    "Number of results written per flush",
			Buckets: []float64{1, 2, 5, 10, 20, 50, 100, 250},
		},
	)
)

// Filesystem metrics
var (
	FilesystemOperationDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "fingerprinter_filesystem_operation_duration_seconds",
			Help:    "Duration of filesystem operations by volume and operation",
			Buckets: []float64{0.0001, 0.0005, 0.001, 0.005, 0.01, 0.05, 0.1, 0.5, 1},
		},
		[]string{"volume", "operation"},
	)

	FilesystemOperationErrors = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "fingerprinter_filesystem_operation_errors_total",
			Help: "Filesystem operation errors by volume and operation",
		},
		[]string{"volume", "operation"},
	)

	FilesystemRetryAttempts = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "fingerprinter_filesystem_retry_attempts_total",
			Help: "Filesystem operation retries after stale NFS handles",
		},
		[]string{"operation", "volume"},
	)

	FilesystemRetrySuccess = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "fingerprinter_filesystem_retry_success_total",
			Help: "Filesystem operations that succeeded after retrying",
		},
		[]string{"operation", "volume"},
	)

	FilesystemRetryFailures = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "fingerprinter_filesystem_retry_failures_total",
			Help: "Filesystem operations that failed after exhausting retries",
		},
		[]string{"operation", "volume"},
	)

	FilesystemStaleErrors = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "fingerprinter_filesystem_stale_errors_total",
			Help: "ESTALE errors observed by operation and volume",
		},
		[]string{"operation", "volume"},
	)

	FilesystemRetryDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "fingerprinter_filesystem_retry_duration_seconds",
			Help:    "Total time spent in retried filesystem operations",
			Buckets: []float64{0.05, 0.1, 0.25, 0.5, 1, 2.5, 5},
		},
		[]string{"operation", "volume"},
	)
)

// Memory metrics
var (
	GoMemLimit = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "fingerprinter_go_memlimit_bytes",
			Help: "Configured GOMEMLIMIT in bytes (0 when unlimited)",
		},
	)

	GoMemAllocBytes = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "fingerprinter_go_memalloc_bytes",
			Help: "Current heap allocation in bytes",
		},
	)

	MemoryUsageRatio = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "fingerprinter_memory_usage_ratio",
			Help: "Heap usage as a ratio of the memory limit (0.0-1.0)",
		},
	)

	MemoryPressureTotal = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "fingerprinter_memory_pressure_total",
			Help: "Times heap usage crossed the high-water mark",
		},
	)
)

// AppInfo exposes build information as labels on a constant gauge.
var AppInfo = promauto.NewGaugeVec(
	prometheus.GaugeOpts{
		Name: "fingerprinter_app_info",
		Help: "Application build information",
	},
	[]string{"version", "commit", "go_version"},
)

// SetAppInfo sets the application info metric
func SetAppInfo(version, commit, goVersion string) {
	AppInfo.WithLabelValues(version, commit, goVersion).Set(1)
}
