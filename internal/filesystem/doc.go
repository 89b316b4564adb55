/*
Package filesystem wraps the storage-area file operations media-cloud relies on.

Originals, thumbnails and memories are often kept on network mounts, so stat,
open and readdir are retried with exponential backoff when they fail with
ESTALE (stale file handle). Every other error is returned immediately.

	info, err := filesystem.StatWithRetry(path, filesystem.DefaultRetryConfig())

Defaults are 3 retries starting at 50ms and capped at 500ms. Retry counts and
durations are exported per operation and per storage area; the area is found
with a VolumeResolver registered at startup.

WriteAtomic and WriteFileAtomic write to a temp file in the destination
directory and rename it into place, which is how thumbnails, settings, the
JSON metadata document and memory results are persisted.
*/
package filesystem
