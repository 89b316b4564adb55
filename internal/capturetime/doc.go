// Package capturetime resolves when a photo or video was taken.
//
// Resolve walks a fixed chain: the EXIF date of a photo (DateTimeOriginal,
// then CreateDate, then DateTime), the creation_time of a video container
// as reported by ffprobe, and finally the file's modification time. An
// embedded date always wins over the filesystem.
//
// The extractors sit behind the Extractor interface so tests can replace
// them.
package capturetime
