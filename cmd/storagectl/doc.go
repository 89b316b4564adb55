// Command storagectl runs library maintenance against a media-cloud
// storage directory without the HTTP server.
//
// Subcommands:
//
//   - rescan: reconcile metadata with the originals area
//   - generate-thumbnails: rebuild every thumbnail
//   - clear-cache: delete every thumbnail
//   - gallery: print the gallery as a table or JSON
//
// The storage directory and backend default to STORAGE_DIR and
// METADATA_BACKEND, the same variables the server reads.
package main
