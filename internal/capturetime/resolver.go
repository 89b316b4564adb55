package capturetime

import (
	"context"
	"os"
	"time"

	"media-cloud/internal/filesystem"
	"media-cloud/internal/logging"
	"media-cloud/internal/mediatypes"
)

// Extractor reads an embedded capture time from a file. ok is false when
// the file carries none or it cannot be read.
type Extractor interface {
	Extract(ctx context.Context, path string) (t time.Time, ok bool)
}

// Source names where a resolved timestamp came from.
type Source string

const (
	SourceExif      Source = "exif"
	SourceContainer Source = "container"
	SourceModTime   Source = "mtime"
	SourceNow       Source = "now"
)

// Resolver finds the best-known capture time of an original.
type Resolver struct {
	Photo Extractor
	Video Extractor
	Stat  func(path string) (os.FileInfo, error)
	Now   func() time.Time
}

// NewResolver returns a Resolver wired to the EXIF parser and ffprobe.
func NewResolver() *Resolver {
	return &Resolver{
		Photo: ExifExtractor{},
		Video: NewFFprobeExtractor(),
	}
}

// Resolve returns the capture time of path in epoch seconds. It never fails.
func (r *Resolver) Resolve(ctx context.Context, path string) float64 {
	ts, _ := r.ResolveWithSource(ctx, path)
	return ts
}

// ResolveWithSource is Resolve that also reports which step answered.
// The chain is embedded photo metadata, then video container metadata,
// then the file modification time. If even stat fails the current time is
// used so the record can still be completed.
func (r *Resolver) ResolveWithSource(ctx context.Context, path string) (float64, Source) {
	ext := mediatypes.Ext(path)

	if mediatypes.ExifExtensions[ext] && r.Photo != nil {
		if t, ok := r.Photo.Extract(ctx, path); ok {
			logging.Debug("Capture time for %s from EXIF: %s", path, t.Format(time.RFC3339))
			return epochSeconds(t), SourceExif
		}
	}

	if mediatypes.VideoExtensions[ext] && r.Video != nil {
		if t, ok := r.Video.Extract(ctx, path); ok {
			logging.Debug("Capture time for %s from container: %s", path, t.Format(time.RFC3339))
			return epochSeconds(t), SourceContainer
		}
	}

	stat := r.Stat
	if stat == nil {
		stat = func(p string) (os.FileInfo, error) {
			return filesystem.StatWithRetry(p, filesystem.DefaultRetryConfig())
		}
	}
	info, err := stat(path)
	if err == nil {
		logging.Debug("No embedded capture time for %s, using modification time", path)
		return epochSeconds(info.ModTime()), SourceModTime
	}
	logging.Warn("Cannot stat %s for capture time, using current time: %v", path, err)

	now := time.Now
	if r.Now != nil {
		now = r.Now
	}
	return epochSeconds(now()), SourceNow
}

func epochSeconds(t time.Time) float64 {
	return float64(t.UnixNano()) / float64(time.Second)
}

// plausible rejects the zero dates some cameras and muxers write.
func plausible(t time.Time) bool {
	return t.Year() > 1970
}
