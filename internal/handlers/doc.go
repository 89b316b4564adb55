// Package handlers provides the HTTP handlers of the media-cloud API.
//
// It includes handlers for:
//   - Uploads, the gallery, thumbnails and originals
//   - Settings and thumbnail maintenance (rescan, clear, regenerate)
//   - The file browser over the originals area
//   - Memory generation tasks and their assets
//   - Health checks, version and metrics
//
// Errors are returned as JSON objects of the form {"error": "..."}.
package handlers
