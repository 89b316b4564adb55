package library

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"

	"media-cloud/internal/filesystem"
	"media-cloud/internal/logging"
	"media-cloud/internal/mediatypes"
	"media-cloud/internal/metrics"
)

// GalleryItem is one entry of the gallery feed.
type GalleryItem struct {
	Filename  string              `json:"filename"`
	Type      mediatypes.FileType `json:"type"`
	Thumbnail string              `json:"thumbnail"`
	Timestamp float64             `json:"timestamp"`
}

// Gallery returns every record with a resolved timestamp, newest first.
// Equal timestamps are ordered by file name.
func (l *Library) Gallery(ctx context.Context) []GalleryItem {
	mapping, _ := l.store.Load(ctx)

	items := make([]GalleryItem, 0, len(mapping))
	for name, rec := range mapping {
		if !rec.Complete() {
			continue
		}
		items = append(items, GalleryItem{
			Filename:  name,
			Type:      rec.Type,
			Thumbnail: rec.Thumbnail,
			Timestamp: *rec.Timestamp,
		})
	}

	sort.Slice(items, func(i, j int) bool {
		if items[i].Timestamp != items[j].Timestamp {
			return items[i].Timestamp > items[j].Timestamp
		}
		return items[i].Filename < items[j].Filename
	})
	return items
}

// fileIn returns dir/name when name is a plain file name of an existing
// regular file.
func fileIn(dir, name string) (string, error) {
	if !mediatypes.IsSafeName(name) {
		return "", fmt.Errorf("%w: %q", ErrInvalidName, name)
	}
	p := filepath.Join(dir, name)
	info, err := filesystem.StatWithRetry(p, filesystem.DefaultRetryConfig())
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return "", fmt.Errorf("%w: %s", ErrNotFound, name)
		}
		return "", err
	}
	if !info.Mode().IsRegular() {
		return "", fmt.Errorf("%w: %s", ErrNotFound, name)
	}
	return p, nil
}

// OriginalPath returns the path of the original called name.
func (l *Library) OriginalPath(name string) (string, error) {
	return fileIn(l.originalsDir, name)
}

// ThumbnailPath returns the path of the thumbnail called name. A thumbnail
// missing after a cache clear is rendered again from the original of the
// record that points at it.
func (l *Library) ThumbnailPath(ctx context.Context, name string) (string, error) {
	p, err := fileIn(l.thumbnailsDir, name)
	if !errors.Is(err, ErrNotFound) {
		return p, err
	}

	l.mu.Lock()
	defer l.mu.Unlock()

	// Another request may have rendered it while we waited.
	if p, err := fileIn(l.thumbnailsDir, name); !errors.Is(err, ErrNotFound) {
		return p, err
	}

	original, ok := l.ownerOf(ctx, name)
	if !ok {
		return "", err
	}

	s, _ := l.settings.Load()
	dst := l.thumbnailPath(name)
	if res := l.deriver.Derive(ctx, l.originalPath(original), dst, s); !res.OK {
		logging.Warn("Could not restore thumbnail %s from %s: %v", name, original, res.Err)
		return "", err
	}
	logging.Debug("Restored thumbnail %s from %s", name, original)
	return dst, nil
}

// ownerOf returns the original whose record points at thumbnail name and
// still exists. With colliding names the first original by name wins.
func (l *Library) ownerOf(ctx context.Context, thumb string) (string, bool) {
	mapping, _ := l.store.Load(ctx)

	var owners []string
	for filename, rec := range mapping {
		if rec.Thumbnail == thumb {
			owners = append(owners, filename)
		}
	}
	sort.Strings(owners)

	for _, filename := range owners {
		if _, err := fileIn(l.originalsDir, filename); err == nil {
			return filename, true
		}
	}
	return "", false
}

// Display is a rendition of an original ready to be served.
type Display struct {
	Data        []byte
	ContentType string
}

// ResizedOriginal returns the original called name re-encoded as JPEG
// within the photo_size box at photo_quality. Types that cannot be resized,
// and any resize error, yield the original bytes unchanged.
func (l *Library) ResizedOriginal(ctx context.Context, name string) (Display, error) {
	src, err := l.OriginalPath(name)
	if err != nil {
		return Display{}, err
	}

	ext := mediatypes.Ext(name)
	if mediatypes.ResizableExtensions[ext] {
		s, _ := l.settings.Load()
		data, err := l.deriver.ResizeForDisplay(ctx, src, s.PhotoSize, s.PhotoQuality)
		if err == nil {
			metrics.ResizedOriginalsTotal.WithLabelValues("resized").Inc()
			return Display{Data: data, ContentType: "image/jpeg"}, nil
		}
		logging.Warn("Failed to resize %s, serving original: %v", name, err)
		metrics.ResizedOriginalsTotal.WithLabelValues("fallback").Inc()
	} else {
		metrics.ResizedOriginalsTotal.WithLabelValues("raw").Inc()
	}

	data, err := os.ReadFile(src)
	if err != nil {
		return Display{}, fmt.Errorf("failed to read %s: %w", name, err)
	}
	return Display{Data: data, ContentType: mediatypes.GetMimeType(ext)}, nil
}

// GetStats implements metrics.StatsProvider for the library gauges.
// Memories are counted elsewhere.
func (l *Library) GetStats() metrics.Stats {
	var stats metrics.Stats

	mapping, _ := l.store.Load(context.Background())
	for _, rec := range mapping {
		switch rec.Type {
		case mediatypes.FileTypeImage:
			stats.Images++
		case mediatypes.FileTypeVideo:
			stats.Videos++
		}
		if !rec.Complete() {
			stats.IncompleteRecords++
		}
	}

	if entries, err := os.ReadDir(l.thumbnailsDir); err == nil {
		for _, e := range entries {
			if e.Type().IsRegular() {
				stats.Thumbnails++
			}
		}
	}

	if files, err := l.candidates(); err == nil {
		for _, e := range files {
			if info, err := e.Info(); err == nil {
				stats.OriginalsBytes += info.Size()
			}
		}
	}

	return stats
}
