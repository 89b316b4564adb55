// Package startup handles application initialization, configuration loading,
// and startup/shutdown logging.
//
// # Configuration
//
// All configuration is loaded from environment variables via [LoadConfig]:
//
//   - STORAGE_DIR: Root of originals/, thumbnails/, memories/ and the stores (default: ./storage)
//   - ASSETS_DIR: Music, frames and frames_config.json for memories (default: ./assets)
//   - PORT: HTTP server port (default: 8000)
//   - METRICS_PORT: Prometheus metrics server port (default: 9090)
//   - METRICS_ENABLED: Enable or disable the metrics server (default: true)
//   - METADATA_BACKEND: json or sqlite (default: json)
//   - RESCAN_SCHEDULE: Cron expression with seconds; empty disables (default: empty)
//   - WATCH_ORIGINALS: Rescan when files land in originals/ (default: false)
//   - WATCH_DEBOUNCE: Quiet period before a watcher rescan (default: 5s)
//   - MEMORY_TASK_TIMEOUT: Maximum runtime of a memory task (default: 10m)
//   - THUMBNAIL_WORKERS: Bulk thumbnail workers; 0 sizes by CPU (default: 0)
//   - CAPTION_URL, COLLAGE_URL: Gradio space base URLs
//   - HF_TOKEN: Optional Hugging Face token
//   - OLLAMA_URL, OLLAMA_MODEL: Narration model (default: http://localhost:11434, gemma3:1b)
//   - AI_REQUESTS_PER_MINUTE: Shared budget for remote AI calls; 0 disables (default: 30)
//   - LOG_LEVEL, DEBUG: Logging level
//   - LOG_MEDIA_REQUESTS, LOG_HEALTH_CHECKS: Access log filtering
//   - MEMORY_LIMIT, MEMORY_RATIO, GOMEMLIMIT: Go memory limit, see [ConfigureMemoryLimit]
//
// # Build Information
//
// Build-time variables are injected via ldflags and exposed via [GetBuildInfo].
//
// # Lifecycle Logging
//
// [LogStoresInit], [LogMediaInit], [LogBackgroundInit], [LogHTTPRoutes],
// [LogServerStarted] and the LogShutdown* helpers print the sectioned
// startup and shutdown output.
package startup
