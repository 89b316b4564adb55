package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"

	"github.com/spf13/cobra"

	"media-cloud/internal/capturetime"
	"media-cloud/internal/library"
	"media-cloud/internal/media"
	"media-cloud/internal/metastore"
	"media-cloud/internal/settings"
)

var (
	storageDir string
	backend    string
	workers    int
)

var rootCmd = &cobra.Command{
	Use:   "storagectl",
	Short: "Offline maintenance for a media-cloud storage directory",
	Long: `storagectl runs the library maintenance operations of the server
directly against a storage directory. Stop the server first when using the
json backend: both processes rewrite the same metadata document.

Examples:
  storagectl rescan --storage-dir /data/storage
  storagectl generate-thumbnails --workers 2
  storagectl clear-cache
  storagectl gallery --json`,
	SilenceUsage: true,
}

func init() {
	rootCmd.PersistentFlags().StringVar(&storageDir, "storage-dir", envOr("STORAGE_DIR", "./storage"), "Storage directory (env STORAGE_DIR)")
	rootCmd.PersistentFlags().StringVar(&backend, "backend", envOr("METADATA_BACKEND", metastore.BackendJSON), "Metadata backend: json or sqlite (env METADATA_BACKEND)")
	rootCmd.PersistentFlags().IntVarP(&workers, "workers", "w", 0, "Thumbnail workers (0 sizes by CPU)")
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

func envOr(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}

// signalContext cancels on SIGINT or SIGTERM so long passes stop between files.
func signalContext() (context.Context, context.CancelFunc) {
	return signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
}

// openLibrary opens the metadata store of storageDir and builds a library
// over it. The returned func closes the store.
func openLibrary(ctx context.Context) (*library.Library, func(), error) {
	info, err := os.Stat(storageDir)
	if err != nil {
		return nil, nil, fmt.Errorf("storage directory: %w", err)
	}
	if !info.IsDir() {
		return nil, nil, fmt.Errorf("storage directory %s is not a directory", storageDir)
	}

	store, err := metastore.Open(ctx, backend, storageDir)
	if err != nil {
		return nil, nil, fmt.Errorf("open metadata store: %w", err)
	}

	if err := media.InitVips(); err != nil {
		fmt.Fprintf(os.Stderr, "Warning: libvips unavailable: %v\n", err)
	}

	lib := library.New(library.Config{
		OriginalsDir:  filepath.Join(storageDir, "originals"),
		ThumbnailsDir: filepath.Join(storageDir, "thumbnails"),
		Workers:       workers,
	}, store, settings.NewStore(filepath.Join(storageDir, "settings.json")),
		media.NewDeriver(media.ExecRunner{}), capturetime.NewResolver())

	if err := lib.EnsureDirs(); err != nil {
		store.Close()
		return nil, nil, err
	}

	closeFn := func() {
		if err := store.Close(); err != nil {
			fmt.Fprintf(os.Stderr, "Warning: failed to close metadata store: %v\n", err)
		}
		media.ShutdownVips()
	}
	return lib, closeFn, nil
}
