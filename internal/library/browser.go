package library

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"media-cloud/internal/filesystem"
	"media-cloud/internal/logging"
	"media-cloud/internal/mediatypes"
)

// Entry types in a directory listing.
const (
	EntryGallery   = "virtual_gallery"
	EntryDirectory = "directory"
	EntryFile      = "file"
)

// GalleryEntryName is the name of the virtual gallery folder shown at the root.
const GalleryEntryName = "gallery"

// Entry is one item of a directory listing.
type Entry struct {
	Name string `json:"name"`
	Type string `json:"type"`
	Size *int64 `json:"size,omitempty"`
}

// Listing is the content of one directory under originals.
type Listing struct {
	Path  string  `json:"path"`
	Items []Entry `json:"items"`
}

func entryRank(t string) int {
	switch t {
	case EntryGallery:
		return 0
	case EntryDirectory:
		return 1
	default:
		return 2
	}
}

// resolve maps a client path relative to originals onto the filesystem,
// rejecting anything that escapes the originals area.
func (l *Library) resolve(rel string) (string, error) {
	base, err := filepath.Abs(l.originalsDir)
	if err != nil {
		return "", err
	}
	target := filepath.Join(base, filepath.FromSlash(rel))
	if target != base && !strings.HasPrefix(target, base+string(os.PathSeparator)) {
		return "", fmt.Errorf("%w: %q", ErrForbidden, rel)
	}
	return target, nil
}

// resolveDir is resolve for paths that must be existing directories.
func (l *Library) resolveDir(rel string) (string, error) {
	dir, err := l.resolve(rel)
	if err != nil {
		return "", err
	}
	info, err := filesystem.StatWithRetry(dir, filesystem.DefaultRetryConfig())
	if err != nil || !info.IsDir() {
		return "", fmt.Errorf("%w: directory %q", ErrNotFound, rel)
	}
	return dir, nil
}

func isRoot(rel string) bool {
	rel = strings.Trim(filepath.ToSlash(filepath.Clean("/"+rel)), "/")
	return rel == ""
}

// ListDir lists the directory rel under originals. At the root a virtual
// gallery entry is added and originals that belong to the gallery are
// hidden. Items are ordered gallery, directories, files, then by name
// ignoring case.
func (l *Library) ListDir(ctx context.Context, rel string) (Listing, error) {
	dir, err := l.resolveDir(rel)
	if err != nil {
		return Listing{}, err
	}

	entries, err := filesystem.ReadDirWithRetry(dir, filesystem.DefaultRetryConfig())
	if err != nil {
		return Listing{}, fmt.Errorf("failed to read %q: %w", rel, err)
	}

	root := isRoot(rel)
	items := make([]Entry, 0, len(entries)+1)
	if root {
		items = append(items, Entry{Name: GalleryEntryName, Type: EntryGallery})
	}

	var gallery map[string]bool
	if root {
		mapping, _ := l.store.Load(ctx)
		gallery = make(map[string]bool, len(mapping))
		for name := range mapping {
			gallery[name] = true
		}
	}

	for _, e := range entries {
		name := e.Name()
		if filesystem.IsTempFile(name) {
			continue
		}
		if e.IsDir() {
			items = append(items, Entry{Name: name, Type: EntryDirectory})
			continue
		}
		if gallery[name] {
			continue
		}
		info, err := e.Info()
		if err != nil {
			logging.Debug("Skipping %s in listing: %v", name, err)
			continue
		}
		size := info.Size()
		items = append(items, Entry{Name: name, Type: EntryFile, Size: &size})
	}

	sort.SliceStable(items, func(i, j int) bool {
		ri, rj := entryRank(items[i].Type), entryRank(items[j].Type)
		if ri != rj {
			return ri < rj
		}
		return strings.ToLower(items[i].Name) < strings.ToLower(items[j].Name)
	})

	return Listing{Path: rel, Items: items}, nil
}

// CreateFolder creates the folder name inside the directory rel.
func (l *Library) CreateFolder(rel, name string) error {
	if !mediatypes.IsSafeName(name) {
		return fmt.Errorf("%w: %q", ErrInvalidName, name)
	}
	parent, err := l.resolveDir(rel)
	if err != nil {
		return err
	}

	target := filepath.Join(parent, name)
	if _, err := os.Lstat(target); err == nil {
		return fmt.Errorf("%w: %s", ErrExists, name)
	} else if !errors.Is(err, os.ErrNotExist) {
		return err
	}

	if err := os.Mkdir(target, 0o755); err != nil {
		if errors.Is(err, os.ErrExist) {
			return fmt.Errorf("%w: %s", ErrExists, name)
		}
		return fmt.Errorf("failed to create folder %s: %w", name, err)
	}
	logging.Info("Created folder %s in %q", name, rel)
	return nil
}

// UploadToPath stores r as filename inside the directory rel. Files of the
// browser upload types that land at the originals root also join the
// gallery; a thumbnail failure there is logged and the file stays stored.
func (l *Library) UploadToPath(ctx context.Context, rel, filename string, r io.Reader) (string, error) {
	name := BaseName(filename)
	if !mediatypes.IsSafeName(name) {
		return "", fmt.Errorf("%w: %q", ErrInvalidName, filename)
	}
	dir, err := l.resolveDir(rel)
	if err != nil {
		return "", err
	}

	if err := writeOriginal(filepath.Join(dir, name), r); err != nil {
		return "", err
	}

	if !isRoot(rel) || !mediatypes.BrowserUploadExtensions[mediatypes.Ext(name)] {
		return name, nil
	}

	rec, err := l.derive(ctx, name)
	if err != nil {
		logging.Warn("Stored %s but could not add it to the gallery: %v", name, err)
		return name, nil
	}
	rec.Type = mediatypes.GetFileType(mediatypes.Ext(name))

	l.mu.Lock()
	err = l.store.Upsert(ctx, name, rec)
	l.mu.Unlock()
	if err != nil {
		return "", fmt.Errorf("failed to record %s: %w", name, err)
	}
	return name, nil
}

// NestedOriginalPath returns the path of the file rel under originals.
func (l *Library) NestedOriginalPath(rel string) (string, error) {
	p, err := l.resolve(rel)
	if err != nil {
		return "", err
	}
	info, err := filesystem.StatWithRetry(p, filesystem.DefaultRetryConfig())
	if err != nil || !info.Mode().IsRegular() {
		return "", fmt.Errorf("%w: %q", ErrNotFound, rel)
	}
	return p, nil
}
