// Package watcher triggers a debounced rescan when files appear in the
// originals area.
package watcher

import (
	"context"
	"fmt"
	"path/filepath"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"

	"media-cloud/internal/filesystem"
	"media-cloud/internal/library"
	"media-cloud/internal/logging"
	"media-cloud/internal/mediatypes"
	"media-cloud/internal/metrics"
)

// Reconciler is the rescan entry point. *library.Library satisfies it.
type Reconciler interface {
	Reconcile(ctx context.Context, trigger string) (library.ReconcileResult, error)
}

// Trigger labels watcher rescans.
const Trigger = "watcher"

// Watcher monitors the top level of a directory.
type Watcher struct {
	dir        string
	debounce   time.Duration
	reconciler Reconciler

	fsw    *fsnotify.Watcher
	cancel context.CancelFunc
	wg     sync.WaitGroup
}

// New starts watching dir. Call Start to process events.
func New(dir string, debounce time.Duration, r Reconciler) (*Watcher, error) {
	fsw, err := fsnotify.NewWatcher()
	if err != nil {
		metrics.WatcherErrors.Inc()
		return nil, fmt.Errorf("failed to create file watcher: %w", err)
	}
	if err := fsw.Add(dir); err != nil {
		_ = fsw.Close()
		metrics.WatcherErrors.Inc()
		return nil, fmt.Errorf("failed to watch %s: %w", dir, err)
	}
	if debounce <= 0 {
		debounce = time.Second
	}
	return &Watcher{dir: dir, debounce: debounce, reconciler: r, fsw: fsw}, nil
}

// Start processes events until Stop.
func (w *Watcher) Start() {
	ctx, cancel := context.WithCancel(context.Background())
	w.cancel = cancel
	w.wg.Add(1)
	go func() {
		defer w.wg.Done()
		w.loop(ctx)
	}()
	logging.Debug("Watching %s for new originals (debounce %v)", w.dir, w.debounce)
}

// Stop ends watching and waits for a running rescan to return.
func (w *Watcher) Stop() error {
	if w.cancel != nil {
		w.cancel()
	}
	err := w.fsw.Close()
	w.wg.Wait()
	return err
}

func (w *Watcher) loop(ctx context.Context) {
	timer := time.NewTimer(w.debounce)
	timer.Stop()
	defer timer.Stop()

	for {
		select {
		case <-ctx.Done():
			return

		case event, ok := <-w.fsw.Events:
			if !ok {
				return
			}
			metrics.WatcherEventsTotal.WithLabelValues(opName(event.Op)).Inc()
			if relevant(event) {
				timer.Reset(w.debounce)
			}

		case err, ok := <-w.fsw.Errors:
			if !ok {
				return
			}
			logging.Error("Watcher error: %v", err)
			metrics.WatcherErrors.Inc()

		case <-timer.C:
			w.rescan(ctx)
		}
	}
}

func (w *Watcher) rescan(ctx context.Context) {
	res, err := w.reconciler.Reconcile(ctx, Trigger)
	if err != nil {
		if ctx.Err() == nil {
			logging.Warn("Watcher rescan failed: %v", err)
			metrics.BackgroundRescanFailures.Inc()
		}
		return
	}
	if res.Created+res.Updated > 0 {
		logging.Info("Watcher rescan: %d new, %d updated", res.Created, res.Updated)
	}
}

// relevant reports whether event can make a rescan find new work.
func relevant(event fsnotify.Event) bool {
	if !event.Has(fsnotify.Create) && !event.Has(fsnotify.Write) && !event.Has(fsnotify.Rename) {
		return false
	}
	name := filepath.Base(event.Name)
	if mediatypes.IsHidden(name) || filesystem.IsTempFile(name) {
		return false
	}
	_, ok := mediatypes.Classify(name)
	return ok
}

func opName(op fsnotify.Op) string {
	switch {
	case op.Has(fsnotify.Create):
		return "create"
	case op.Has(fsnotify.Write):
		return "write"
	case op.Has(fsnotify.Remove):
		return "remove"
	case op.Has(fsnotify.Rename):
		return "rename"
	case op.Has(fsnotify.Chmod):
		return "chmod"
	default:
		return "unknown"
	}
}
