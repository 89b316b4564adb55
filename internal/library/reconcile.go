package library

import (
	"context"
	"errors"
	"fmt"
	"os"
	"sync/atomic"
	"time"

	"media-cloud/internal/filesystem"
	"media-cloud/internal/logging"
	"media-cloud/internal/mediatypes"
	"media-cloud/internal/metastore"
	"media-cloud/internal/metrics"
	"media-cloud/internal/workers"
)

// ReconcileResult counts the records a rescan wrote.
type ReconcileResult struct {
	Created int `json:"created"`
	Updated int `json:"updated"`
}

// GenerateResult counts the outcome of a bulk thumbnail pass.
type GenerateResult struct {
	Generated int `json:"generated"`
	Failed    int `json:"failed"`
}

// candidates lists the regular, visible files at the top of the originals area.
func (l *Library) candidates() ([]os.DirEntry, error) {
	entries, err := filesystem.ReadDirWithRetry(l.originalsDir, filesystem.DefaultRetryConfig())
	if err != nil {
		return nil, fmt.Errorf("failed to read originals: %w", err)
	}

	files := entries[:0]
	for _, e := range entries {
		if !e.Type().IsRegular() || mediatypes.IsHidden(e.Name()) || filesystem.IsTempFile(e.Name()) {
			continue
		}
		files = append(files, e)
	}
	return files, nil
}

// Reconcile repairs missing and incomplete records for every original.
// Complete records are not rewritten, so a second pass over an unchanged
// originals area reports zero. A complete record whose thumbnail was
// cleared gets it rendered again without moving either counter. trigger
// labels the run in metrics.
func (l *Library) Reconcile(ctx context.Context, trigger string) (ReconcileResult, error) {
	l.mu.Lock()
	defer l.mu.Unlock()

	start := time.Now()
	metrics.ReconcileRunsTotal.WithLabelValues(trigger).Inc()
	defer func() {
		metrics.ReconcileDuration.Observe(time.Since(start).Seconds())
		metrics.ReconcileLastRunTimestamp.SetToCurrentTime()
	}()

	var result ReconcileResult

	files, err := l.candidates()
	if err != nil {
		return result, err
	}

	mapping, status := l.store.Load(ctx)
	if status == metastore.LoadCorrupt {
		logging.Warn("Metadata store is corrupt, rebuilding records from originals")
	}

	for _, entry := range files {
		if err := ctx.Err(); err != nil {
			return result, err
		}

		name := entry.Name()
		prior, exists := mapping[name]
		if exists && prior.Complete() {
			l.restoreThumbnail(ctx, name, prior)
			continue
		}

		fileType, ok := mediatypes.Classify(name)
		if !ok {
			metrics.ReconcileFilesTotal.WithLabelValues("unsupported").Inc()
			continue
		}
		if exists && prior.Type != "" {
			fileType = prior.Type
		}

		rec, err := l.repair(ctx, name)
		if err != nil {
			logging.Warn("Rescan skipped %s: %v", name, err)
			metrics.ReconcileFilesTotal.WithLabelValues("failed").Inc()
			continue
		}
		rec.Type = fileType
		mapping[name] = rec

		if exists {
			result.Updated++
			metrics.ReconcileFilesTotal.WithLabelValues("updated").Inc()
		} else {
			result.Created++
			metrics.ReconcileFilesTotal.WithLabelValues("created").Inc()
		}
	}

	if result.Created+result.Updated > 0 {
		if err := l.store.Save(ctx, mapping); err != nil {
			return ReconcileResult{}, fmt.Errorf("failed to save metadata: %w", err)
		}
	}

	logging.Info("Rescan (%s) complete: %d new, %d updated in %v", trigger, result.Created, result.Updated, time.Since(start))
	return result, nil
}

// restoreThumbnail renders the thumbnail of a complete record when it is
// missing on disk. The record itself is unchanged.
func (l *Library) restoreThumbnail(ctx context.Context, name string, rec metastore.Record) {
	_, err := os.Stat(l.thumbnailPath(rec.Thumbnail))
	if !errors.Is(err, os.ErrNotExist) {
		metrics.ReconcileFilesTotal.WithLabelValues("skipped").Inc()
		return
	}

	s, _ := l.settings.Load()
	if res := l.deriver.Derive(ctx, l.originalPath(name), l.thumbnailPath(rec.Thumbnail), s); !res.OK {
		logging.Warn("Rescan could not restore thumbnail of %s: %v", name, res.Err)
		metrics.ReconcileFilesTotal.WithLabelValues("failed").Inc()
		return
	}
	metrics.ReconcileFilesTotal.WithLabelValues("restored").Inc()
}

// repair is derive without re-rendering a thumbnail that is already on disk.
func (l *Library) repair(ctx context.Context, name string) (metastore.Record, error) {
	thumb := mediatypes.ThumbnailName(name)
	_, err := os.Stat(l.thumbnailPath(thumb))
	if errors.Is(err, os.ErrNotExist) {
		return l.derive(ctx, name)
	}
	if err != nil {
		return metastore.Record{}, err
	}

	ts := l.resolver.Resolve(ctx, l.originalPath(name))
	return metastore.Record{Thumbnail: thumb, Timestamp: &ts}, nil
}

// GenerateAll re-derives the thumbnail of every supported original with
// the current settings. One failure does not stop the others. The metadata
// store is not touched.
func (l *Library) GenerateAll(ctx context.Context) (GenerateResult, error) {
	files, err := l.candidates()
	if err != nil {
		return GenerateResult{}, err
	}

	names := make([]string, 0, len(files))
	for _, e := range files {
		if _, ok := mediatypes.Classify(e.Name()); ok {
			names = append(names, e.Name())
		}
	}

	s, _ := l.settings.Load()
	var generated, failed atomic.Int64

	start := time.Now()
	workers.Each(ctx, l.workers, names, func(ctx context.Context, name string) {
		dst := l.thumbnailPath(mediatypes.ThumbnailName(name))
		if res := l.deriver.Derive(ctx, l.originalPath(name), dst, s); res.OK {
			generated.Add(1)
		} else {
			failed.Add(1)
		}
	})

	result := GenerateResult{Generated: int(generated.Load()), Failed: int(failed.Load())}
	logging.Info("Generated %d thumbnails (%d failed) with %d workers in %v",
		result.Generated, result.Failed, l.workers, time.Since(start))
	return result, ctx.Err()
}

// ClearCache deletes every file in the thumbnails area. The metadata store
// is not touched: records keep pointing at their thumbnail names, and the
// next rescan or thumbnail request renders them again.
func (l *Library) ClearCache() error {
	entries, err := filesystem.ReadDirWithRetry(l.thumbnailsDir, filesystem.DefaultRetryConfig())
	if err != nil {
		return fmt.Errorf("failed to read thumbnails: %w", err)
	}

	removed := 0
	for _, e := range entries {
		if !e.Type().IsRegular() {
			continue
		}
		if err := os.Remove(l.thumbnailPath(e.Name())); err != nil && !errors.Is(err, os.ErrNotExist) {
			return fmt.Errorf("failed to remove thumbnail %s: %w", e.Name(), err)
		}
		removed++
	}

	metrics.ThumbnailCacheClears.Inc()
	logging.Info("Thumbnail cache cleared (%d files)", removed)
	return nil
}
