package library

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"sync"

	"media-cloud/internal/media"
	"media-cloud/internal/metastore"
	"media-cloud/internal/settings"
	"media-cloud/internal/workers"
)

var (
	// ErrUnsupported is returned when a file extension is neither image nor video.
	ErrUnsupported = errors.New("unsupported file type")
	// ErrThumbnail is returned when ingestion could not derive a thumbnail.
	ErrThumbnail = errors.New("could not create thumbnail")
	// ErrInvalidName is returned for names carrying path separators or dot segments.
	ErrInvalidName = errors.New("invalid file name")
	// ErrNotFound is returned when an original or directory does not exist.
	ErrNotFound = errors.New("not found")
	// ErrForbidden is returned for paths resolving outside the originals area.
	ErrForbidden = errors.New("access denied")
	// ErrExists is returned when creating a folder that already exists.
	ErrExists = errors.New("already exists")
)

// Deriver produces thumbnails and display-sized copies of originals.
// *media.Deriver satisfies it.
type Deriver interface {
	Derive(ctx context.Context, src, dst string, s settings.Settings) media.Result
	ResizeForDisplay(ctx context.Context, src string, maxSize, quality int) ([]byte, error)
}

// TimeResolver returns the capture time of a file in epoch seconds.
// *capturetime.Resolver satisfies it.
type TimeResolver interface {
	Resolve(ctx context.Context, path string) float64
}

// Config locates the storage areas the library works on.
type Config struct {
	OriginalsDir  string
	ThumbnailsDir string
	// Workers bounds bulk thumbnail generation. 0 uses one per CPU.
	Workers int
}

// Library owns the originals and thumbnails areas and keeps the metadata
// store consistent with them.
type Library struct {
	originalsDir  string
	thumbnailsDir string
	workers       int

	store    metastore.Store
	settings *settings.Store
	deriver  Deriver
	resolver TimeResolver

	// mu serializes every read-modify-write of the metadata store.
	mu sync.Mutex
}

// New creates a Library.
func New(cfg Config, store metastore.Store, st *settings.Store, deriver Deriver, resolver TimeResolver) *Library {
	n := cfg.Workers
	if n <= 0 {
		n = workers.ForCPU(0)
	}
	return &Library{
		originalsDir:  cfg.OriginalsDir,
		thumbnailsDir: cfg.ThumbnailsDir,
		workers:       n,
		store:         store,
		settings:      st,
		deriver:       deriver,
		resolver:      resolver,
	}
}

// OriginalsDir returns the directory holding originals.
func (l *Library) OriginalsDir() string {
	return l.originalsDir
}

// ThumbnailsDir returns the directory holding thumbnails.
func (l *Library) ThumbnailsDir() string {
	return l.thumbnailsDir
}

// EnsureDirs creates the originals and thumbnails areas.
func (l *Library) EnsureDirs() error {
	for _, dir := range []string{l.originalsDir, l.thumbnailsDir} {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return err
		}
	}
	return nil
}

func (l *Library) originalPath(name string) string {
	return filepath.Join(l.originalsDir, name)
}

func (l *Library) thumbnailPath(name string) string {
	return filepath.Join(l.thumbnailsDir, name)
}
