// Package metrics provides Prometheus instrumentation for media-cloud.
//
// All metrics are registered with promauto on the default registry and are
// prefixed with "media_cloud_". They are grouped by concern:
//
//   - HTTP: request totals, durations and in-flight requests
//   - Uploads and thumbnails: ingestion outcomes, derivation results per
//     media type and result kind, decoder backend usage
//   - Metadata store: load/save operations per backend
//   - Reconcile: rescan passes per trigger and per-file outcomes
//   - Tasks: status transitions, running tasks and task wall time
//   - AI: external service requests and rejected memory candidates
//   - Library: gauges refreshed by Collector from a StatsProvider
//   - Filesystem: stale file handle retries per volume
//
// InitializeMetrics should be called once at startup so that every label
// combination is exported from the first scrape.
package metrics
