package library

import (
	"context"
	"fmt"
	"io"
	"path"
	"strings"

	"media-cloud/internal/filesystem"
	"media-cloud/internal/logging"
	"media-cloud/internal/mediatypes"
	"media-cloud/internal/metastore"
	"media-cloud/internal/metrics"
)

// Upload statuses reported to clients.
const (
	StatusSuccess = "success"
	StatusSkipped = "skipped"
)

// UploadResult describes the outcome of one ingested upload.
type UploadResult struct {
	Filename string              `json:"filename"`
	Type     mediatypes.FileType `json:"type,omitempty"`
	Status   string              `json:"status"`
	Message  string              `json:"message,omitempty"`
}

// BaseName strips any directory components a client put in an upload name.
func BaseName(name string) string {
	return path.Base(strings.ReplaceAll(name, "\\", "/"))
}

// Ingest stores r as an original named after the base of filename, derives
// its thumbnail, resolves its capture time and records it. Unsupported
// types are stored but reported as skipped. A failed derivation returns an
// error wrapping ErrThumbnail and leaves no record.
func (l *Library) Ingest(ctx context.Context, filename string, r io.Reader) (UploadResult, error) {
	name := BaseName(filename)
	if !mediatypes.IsSafeName(name) {
		metrics.UploadsTotal.WithLabelValues("failed").Inc()
		return UploadResult{}, fmt.Errorf("%w: %q", ErrInvalidName, filename)
	}

	src := l.originalPath(name)
	if err := writeOriginal(src, r); err != nil {
		metrics.UploadsTotal.WithLabelValues("failed").Inc()
		return UploadResult{}, err
	}

	fileType, ok := mediatypes.Classify(name)
	if !ok {
		logging.Info("Upload %s stored but skipped: unsupported type", name)
		metrics.UploadsTotal.WithLabelValues("skipped").Inc()
		return UploadResult{Filename: name, Status: StatusSkipped, Message: "Unsupported file type"}, nil
	}

	rec, err := l.derive(ctx, name)
	if err != nil {
		metrics.UploadsTotal.WithLabelValues("failed").Inc()
		return UploadResult{}, err
	}
	rec.Type = fileType

	l.mu.Lock()
	err = l.store.Upsert(ctx, name, rec)
	l.mu.Unlock()
	if err != nil {
		metrics.UploadsTotal.WithLabelValues("failed").Inc()
		return UploadResult{}, fmt.Errorf("failed to record %s: %w", name, err)
	}

	metrics.UploadsTotal.WithLabelValues("success").Inc()
	logging.Info("Ingested %s (%s)", name, fileType)
	return UploadResult{Filename: name, Type: fileType, Status: StatusSuccess}, nil
}

// derive writes the thumbnail for the original name and resolves its
// capture time. The returned record has no Type set.
func (l *Library) derive(ctx context.Context, name string) (metastore.Record, error) {
	src := l.originalPath(name)
	thumb := mediatypes.ThumbnailName(name)

	s, _ := l.settings.Load()
	res := l.deriver.Derive(ctx, src, l.thumbnailPath(thumb), s)
	if !res.OK {
		return metastore.Record{}, fmt.Errorf("%w for %s: %v", ErrThumbnail, name, res.Err)
	}

	ts := l.resolver.Resolve(ctx, src)
	return metastore.Record{Thumbnail: thumb, Timestamp: &ts}, nil
}

func writeOriginal(dst string, r io.Reader) error {
	var written int64
	err := filesystem.WriteAtomic(dst, 0o644, func(w io.Writer) error {
		n, err := io.Copy(w, r)
		written = n
		return err
	})
	if err != nil {
		return fmt.Errorf("failed to store %s: %w", dst, err)
	}
	metrics.UploadBytes.Add(float64(written))
	return nil
}
