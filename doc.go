// Package main provides the entry point for the media-cloud server.
//
// media-cloud is a self-hosted personal media store. Photos and videos are
// uploaded into an originals area, get a thumbnail and a capture timestamp,
// and are listed newest first in a gallery. On request it composes AI
// "memories": a collage of recent photos with captions, a short narration
// and a soundtrack.
//
// # Application Lifecycle
//
//  1. Memory Configuration: Sets GOMEMLIMIT from environment or cgroup limits
//  2. Configuration Loading: Reads environment variables and prepares STORAGE_DIR
//  3. Stores: Opens the metadata store (JSON document or SQLite) and settings
//  4. Components:
//     - Media pipeline: libvips and FFmpeg backed thumbnail derivation
//     - Library: ingest, reconcile, gallery and file browser
//     - Memory engine: captioner, narrator, collage composer, music picker
//     - Task supervisor: runs memory generations in the background
//     - Metrics Collector: Updates library gauges every minute
//     - Scheduler and watcher: optional background rescans
//  5. HTTP Server Setup: Configures routes, middleware, and starts server
//  6. Graceful Shutdown: Handles SIGINT/SIGTERM, stops all components cleanly
//
// # HTTP Server
//
// The application runs two HTTP servers:
//
//  1. Main Server (default port 8000):
//     - Upload, gallery, thumbnail and original endpoints
//     - Settings and thumbnail maintenance
//     - File browser over the originals area
//     - Memory generation, status and assets
//     - Health, readiness and version endpoints
//
//  2. Metrics Server (default port 9090, optional):
//     - Prometheus metrics endpoint (/metrics)
//     - Health check endpoint (/health)
//
// # Graceful Shutdown
//
//  1. Stop the originals watcher and the rescan scheduler
//  2. Stop metrics collector
//  3. Shutdown main HTTP server (30s timeout)
//  4. Cancel running memory tasks
//  5. Shutdown metrics server (if running)
//  6. Close the metadata store and libvips
//
// # Build Requirements
//
// CGO is required for SQLite and libvips. FFmpeg is used for video
// thumbnails and as a fallback for formats libvips cannot read.
//
//	go build -o media-cloud .
//
// See [media-cloud/internal/startup] for the environment variables.
package main
