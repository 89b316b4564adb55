package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// HTTP metrics
var (
	HTTPRequestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "media_cloud_http_requests_total",
			Help: "Total number of HTTP requests",
		},
		[]string{"method", "path", "status"},
	)

	HTTPRequestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "media_cloud_http_request_duration_seconds",
			Help:    "HTTP request duration in seconds",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"method", "path"},
	)

	HTTPRequestsInFlight = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "media_cloud_http_requests_in_flight",
			Help: "Number of HTTP requests currently being processed",
		},
	)
)

// Upload metrics
var (
	UploadsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "media_cloud_uploads_total",
			Help: "Uploads by outcome (success, skipped, failed)",
		},
		[]string{"result"},
	)

	UploadBytes = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "media_cloud_upload_bytes_total",
			Help: "Total bytes written to the originals area by uploads",
		},
	)
)

// Thumbnail metrics
var (
	ThumbnailDerivationsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "media_cloud_thumbnail_derivations_total",
			Help: "Thumbnail derivations by media type and result kind",
		},
		[]string{"type", "result"},
	)

	ThumbnailDerivationDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "media_cloud_thumbnail_derivation_duration_seconds",
			Help:    "Time taken to derive a thumbnail",
			Buckets: []float64{0.01, 0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10, 30},
		},
		[]string{"type"},
	)

	ThumbnailDecoderUsed = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "media_cloud_thumbnail_decoder_total",
			Help: "Image decodes by decoder backend (imaging, vips, ffmpeg)",
		},
		[]string{"decoder"},
	)

	ThumbnailCacheClears = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "media_cloud_thumbnail_cache_clears_total",
			Help: "Number of times the thumbnail area was cleared",
		},
	)

	ResizedOriginalsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "media_cloud_resized_originals_total",
			Help: "On-demand resized originals by result (resized, raw, fallback)",
		},
		[]string{"result"},
	)
)

// Metadata store metrics
var (
	MetadataStoreOperations = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "media_cloud_metadata_store_operations_total",
			Help: "Metadata store operations by backend, operation and status",
		},
		[]string{"backend", "operation", "status"},
	)

	MetadataStoreDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "media_cloud_metadata_store_duration_seconds",
			Help:    "Metadata store operation duration in seconds",
			Buckets: []float64{0.001, 0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1, 2.5},
		},
		[]string{"backend", "operation"},
	)

	SettingsLoads = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "media_cloud_settings_loads_total",
			Help: "Settings loads by outcome (ok, not_found, corrupt)",
		},
		[]string{"status"},
	)
)

// Reconcile metrics
var (
	ReconcileRunsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "media_cloud_reconcile_runs_total",
			Help: "Rescan passes by trigger (http, schedule, watcher, cli)",
		},
		[]string{"trigger"},
	)

	ReconcileFilesTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "media_cloud_reconcile_files_total",
			Help: "Files handled by rescan by outcome (created, updated, restored, skipped, unsupported, failed)",
		},
		[]string{"outcome"},
	)

	ReconcileDuration = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "media_cloud_reconcile_duration_seconds",
			Help:    "Duration of a rescan pass",
			Buckets: []float64{0.01, 0.1, 0.5, 1, 5, 15, 30, 60, 300},
		},
	)

	ReconcileLastRunTimestamp = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "media_cloud_reconcile_last_run_timestamp",
			Help: "Unix timestamp of the last completed rescan",
		},
	)
)

// Watcher and schedule metrics
var (
	WatcherEventsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "media_cloud_watcher_events_total",
			Help: "Filesystem events seen in the originals area by operation",
		},
		[]string{"op"},
	)

	WatcherErrors = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "media_cloud_watcher_errors_total",
			Help: "Errors reported by the originals watcher",
		},
	)

	BackgroundRescanFailures = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "media_cloud_scheduled_rescans_failed_total",
			Help: "Scheduled or watcher-triggered rescans that returned an error",
		},
	)
)

// Background task metrics
var (
	TaskTransitionsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "media_cloud_task_transitions_total",
			Help: "Background task status transitions by target status",
		},
		[]string{"status"},
	)

	TasksRunning = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "media_cloud_tasks_running",
			Help: "Number of background tasks currently running",
		},
	)

	TaskDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "media_cloud_task_duration_seconds",
			Help:    "Background task wall time by final status",
			Buckets: []float64{1, 5, 15, 30, 60, 120, 300, 600},
		},
		[]string{"status"},
	)
)

// AI service metrics
var (
	AIRequestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "media_cloud_ai_requests_total",
			Help: "Requests to external AI services by service and status",
		},
		[]string{"service", "status"},
	)

	AIRequestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "media_cloud_ai_request_duration_seconds",
			Help:    "External AI request duration in seconds",
			Buckets: []float64{0.1, 0.5, 1, 2.5, 5, 10, 30, 60, 120},
		},
		[]string{"service"},
	)

	MemoryPhotosRejected = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "media_cloud_memory_photos_rejected_total",
			Help: "Candidate photos rejected during memory selection by reason",
		},
		[]string{"reason"},
	)
)

// Library gauges, refreshed by the Collector
var (
	LibraryRecords = promauto.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "media_cloud_library_records",
			Help: "Metadata records by media type",
		},
		[]string{"type"},
	)

	LibraryIncompleteRecords = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "media_cloud_library_incomplete_records",
			Help: "Metadata records still waiting for a capture timestamp",
		},
	)

	LibraryThumbnails = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "media_cloud_library_thumbnails",
			Help: "Files in the thumbnails area",
		},
	)

	LibraryOriginalsBytes = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "media_cloud_library_originals_bytes",
			Help: "Total size of top-level originals in bytes",
		},
	)

	LibraryMemories = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "media_cloud_library_memories",
			Help: "Persisted memory results",
		},
	)
)

// Filesystem retry metrics
var (
	FilesystemRetryAttempts = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "media_cloud_filesystem_retry_attempts_total",
			Help: "Retries after a stale file handle, by operation and volume",
		},
		[]string{"operation", "volume"},
	)

	FilesystemRetrySuccess = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "media_cloud_filesystem_retry_success_total",
			Help: "Operations that succeeded after at least one retry",
		},
		[]string{"operation", "volume"},
	)

	FilesystemRetryFailures = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "media_cloud_filesystem_retry_failures_total",
			Help: "Operations that failed after exhausting retries",
		},
		[]string{"operation", "volume"},
	)

	FilesystemStaleErrors = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "media_cloud_filesystem_stale_errors_total",
			Help: "ESTALE errors observed, by operation and volume",
		},
		[]string{"operation", "volume"},
	)

	FilesystemRetryDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "media_cloud_filesystem_operation_duration_seconds",
			Help:    "Duration of retried filesystem operations including backoff",
			Buckets: []float64{0.0001, 0.0005, 0.001, 0.005, 0.01, 0.05, 0.1, 0.5, 1, 2},
		},
		[]string{"operation", "volume"},
	)
)

// Application info
var (
	AppInfo = promauto.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "media_cloud_app_info",
			Help: "Build information, value is always 1",
		},
		[]string{"version", "commit", "go_version"},
	)
)

// SetAppInfo records build information as a constant gauge.
func SetAppInfo(version, commit, goVersion string) {
	AppInfo.WithLabelValues(version, commit, goVersion).Set(1)
}
