package library

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"media-cloud/internal/metastore"
)

func TestListDirRoot(t *testing.T) {
	tl := newTestLibrary(t, metastore.BackendJSON)
	ctx := context.Background()

	tl.writeOriginal(t, "in-gallery.jpg", time.Time{})
	tl.writeOriginal(t, "Zeta.txt", time.Time{})
	tl.writeOriginal(t, "alpha.bin", time.Time{})
	for _, dir := range []string{"Trips", "archive"} {
		if err := os.Mkdir(filepath.Join(tl.OriginalsDir(), dir), 0o755); err != nil {
			t.Fatal(err)
		}
	}
	if _, err := tl.Reconcile(ctx, "http"); err != nil {
		t.Fatal(err)
	}

	listing, err := tl.ListDir(ctx, "")
	if err != nil {
		t.Fatalf("ListDir() error = %v", err)
	}

	var got []string
	for _, item := range listing.Items {
		got = append(got, item.Type+":"+item.Name)
	}
	want := []string{
		"virtual_gallery:gallery",
		"directory:archive",
		"directory:Trips",
		"file:alpha.bin",
		"file:Zeta.txt",
	}
	if strings.Join(got, ",") != strings.Join(want, ",") {
		t.Errorf("items = %v, want %v", got, want)
	}

	last := listing.Items[len(listing.Items)-1]
	if last.Size == nil || *last.Size != int64(len("data-Zeta.txt")) {
		t.Errorf("Size = %v, want %d", last.Size, len("data-Zeta.txt"))
	}
}

func TestListDirNested(t *testing.T) {
	tl := newTestLibrary(t, metastore.BackendJSON)
	ctx := context.Background()

	sub := filepath.Join(tl.OriginalsDir(), "sub")
	if err := os.Mkdir(sub, 0o755); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(filepath.Join(sub, "x.jpg"), []byte("x"), 0o644); err != nil {
		t.Fatal(err)
	}
	// A record with the same name as the nested file does not hide it.
	if err := tl.store.Upsert(ctx, "x.jpg", metastore.Record{Type: "image", Thumbnail: "x.jpg"}); err != nil {
		t.Fatal(err)
	}

	listing, err := tl.ListDir(ctx, "sub")
	if err != nil {
		t.Fatalf("ListDir() error = %v", err)
	}
	if listing.Path != "sub" {
		t.Errorf("Path = %q, want sub", listing.Path)
	}
	if len(listing.Items) != 1 || listing.Items[0].Name != "x.jpg" {
		t.Errorf("items = %+v, want only x.jpg", listing.Items)
	}
}

func TestListDirErrors(t *testing.T) {
	tl := newTestLibrary(t, metastore.BackendJSON)
	tl.writeOriginal(t, "file.jpg", time.Time{})

	tests := []struct {
		name    string
		path    string
		wantErr error
	}{
		{"outside originals", "../thumbnails", ErrForbidden},
		{"sibling prefix", "../originals2", ErrForbidden},
		{"missing", "nope", ErrNotFound},
		{"not a directory", "file.jpg", ErrNotFound},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := tl.ListDir(context.Background(), tt.path)
			if !errors.Is(err, tt.wantErr) {
				t.Errorf("ListDir(%q) error = %v, want %v", tt.path, err, tt.wantErr)
			}
		})
	}
}

func TestCreateFolder(t *testing.T) {
	tl := newTestLibrary(t, metastore.BackendJSON)
	if err := os.Mkdir(filepath.Join(tl.OriginalsDir(), "existing"), 0o755); err != nil {
		t.Fatal(err)
	}

	tests := []struct {
		name    string
		path    string
		folder  string
		wantErr error
	}{
		{"at root", "", "new", nil},
		{"nested", "existing", "child", nil},
		{"already exists", "", "existing", ErrExists},
		{"outside originals", "..", "escape", ErrForbidden},
		{"missing parent", "ghost", "child", ErrNotFound},
		{"separator in name", "", "a/b", ErrInvalidName},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tl.CreateFolder(tt.path, tt.folder)
			if tt.wantErr != nil {
				if !errors.Is(err, tt.wantErr) {
					t.Fatalf("CreateFolder() error = %v, want %v", err, tt.wantErr)
				}
				return
			}
			if err != nil {
				t.Fatalf("CreateFolder() error = %v", err)
			}
			info, err := os.Stat(filepath.Join(tl.OriginalsDir(), tt.path, tt.folder))
			if err != nil || !info.IsDir() {
				t.Errorf("folder not created: %v", err)
			}
		})
	}
}

func TestUploadToPath(t *testing.T) {
	tl := newTestLibrary(t, metastore.BackendJSON)
	ctx := context.Background()
	if err := os.Mkdir(filepath.Join(tl.OriginalsDir(), "docs"), 0o755); err != nil {
		t.Fatal(err)
	}

	tests := []struct {
		name       string
		path       string
		filename   string
		wantErr    error
		wantRecord bool
	}{
		{"gallery type at root", "", "pic.jpg", nil, true},
		{"video at root", "", "clip.mov", nil, true},
		{"non browser type at root", "", "raw.heic", nil, false},
		{"nested", "docs", "scan.png", nil, false},
		{"thumbnail failure still stored", "", "bad.png", nil, false},
		{"missing directory", "ghost", "a.jpg", ErrNotFound, false},
		{"outside originals", "../..", "a.jpg", ErrForbidden, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			name, err := tl.UploadToPath(ctx, tt.path, tt.filename, strings.NewReader("body"))
			if tt.wantErr != nil {
				if !errors.Is(err, tt.wantErr) {
					t.Fatalf("UploadToPath() error = %v, want %v", err, tt.wantErr)
				}
				return
			}
			if err != nil {
				t.Fatalf("UploadToPath() error = %v", err)
			}
			if name != tt.filename {
				t.Errorf("name = %q, want %q", name, tt.filename)
			}
			if _, err := os.Stat(filepath.Join(tl.OriginalsDir(), tt.path, tt.filename)); err != nil {
				t.Errorf("file not stored: %v", err)
			}

			mapping, _ := tl.store.Load(ctx)
			if _, ok := mapping[tt.filename]; ok != tt.wantRecord {
				t.Errorf("recorded = %v, want %v", ok, tt.wantRecord)
			}
		})
	}
}

func TestNestedOriginalPath(t *testing.T) {
	tl := newTestLibrary(t, metastore.BackendJSON)
	sub := filepath.Join(tl.OriginalsDir(), "a")
	if err := os.Mkdir(sub, 0o755); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(filepath.Join(sub, "b.jpg"), []byte("b"), 0o644); err != nil {
		t.Fatal(err)
	}

	if p, err := tl.NestedOriginalPath("a/b.jpg"); err != nil || filepath.Base(p) != "b.jpg" {
		t.Errorf("NestedOriginalPath() = %q, %v", p, err)
	}
	if _, err := tl.NestedOriginalPath("a"); !errors.Is(err, ErrNotFound) {
		t.Errorf("directory error = %v, want ErrNotFound", err)
	}
	if _, err := tl.NestedOriginalPath("../settings.json"); !errors.Is(err, ErrForbidden) {
		t.Errorf("traversal error = %v, want ErrForbidden", err)
	}
}
