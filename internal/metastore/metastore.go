package metastore

import (
	"context"
	"fmt"
	"path/filepath"
	"time"

	"media-cloud/internal/mediatypes"
	"media-cloud/internal/metrics"
)

// Record is the metadata kept for one original, keyed by file name.
type Record struct {
	Type      mediatypes.FileType `json:"type"`
	Thumbnail string              `json:"thumbnail"`
	// Timestamp is the capture time in epoch seconds. nil until resolved.
	Timestamp *float64 `json:"timestamp"`
}

// Complete reports whether the record has a resolved timestamp.
func (r Record) Complete() bool {
	return r.Timestamp != nil
}

// Mapping is the whole metadata document.
type Mapping map[string]Record

// LoadStatus tells apart the outcomes of reading the document.
type LoadStatus string

const (
	LoadOK       LoadStatus = "ok"
	LoadNotFound LoadStatus = "not_found"
	LoadCorrupt  LoadStatus = "corrupt"
)

// Backend names accepted by Open.
const (
	BackendJSON   = "json"
	BackendSQLite = "sqlite"
)

// Store persists the Mapping wholesale. Load never fails: an absent or
// unreadable document yields an empty mapping and a non-ok status.
type Store interface {
	Load(ctx context.Context) (Mapping, LoadStatus)
	Save(ctx context.Context, m Mapping) error
	Upsert(ctx context.Context, filename string, rec Record) error
	Backend() string
	Close() error
}

// Open returns the Store for backend rooted in dir.
func Open(ctx context.Context, backend, dir string) (Store, error) {
	switch backend {
	case "", BackendJSON:
		return NewJSONStore(filepath.Join(dir, "metadata.json")), nil
	case BackendSQLite:
		return NewSQLiteStore(ctx, filepath.Join(dir, "metadata.db"))
	default:
		return nil, fmt.Errorf("unknown metadata backend %q", backend)
	}
}

// Timestamp is a helper for building records.
func Timestamp(v float64) *float64 {
	return &v
}

func observe(backend, op, status string, start time.Time) {
	metrics.MetadataStoreOperations.WithLabelValues(backend, op, status).Inc()
	metrics.MetadataStoreDuration.WithLabelValues(backend, op).Observe(time.Since(start).Seconds())
}
