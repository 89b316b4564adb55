package library

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"
	"time"

	"media-cloud/internal/capturetime"
	"media-cloud/internal/media"
	"media-cloud/internal/metastore"
	"media-cloud/internal/settings"
)

// fakeDeriver writes a small file for every source except those whose name
// contains "bad".
type fakeDeriver struct {
	mu    sync.Mutex
	calls []string
}

func (f *fakeDeriver) Derive(_ context.Context, src, dst string, _ settings.Settings) media.Result {
	f.mu.Lock()
	f.calls = append(f.calls, filepath.Base(src))
	f.mu.Unlock()

	if strings.Contains(filepath.Base(src), "bad") {
		return media.Result{Kind: media.KindDecode, Err: errors.New("cannot decode")}
	}
	if err := os.WriteFile(dst, []byte("thumb"), 0o644); err != nil {
		return media.Result{Kind: media.KindEncode, Err: err}
	}
	return media.Result{OK: true, Kind: media.KindOK}
}

func (f *fakeDeriver) ResizeForDisplay(_ context.Context, src string, _, _ int) ([]byte, error) {
	if strings.Contains(filepath.Base(src), "bad") {
		return nil, errors.New("cannot decode")
	}
	return []byte("resized"), nil
}

func (f *fakeDeriver) callCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.calls)
}

type testLibrary struct {
	*Library
	deriver *fakeDeriver
	store   metastore.Store
	root    string
}

func newTestLibrary(t *testing.T, backend string) *testLibrary {
	t.Helper()
	root := t.TempDir()

	store, err := metastore.Open(context.Background(), backend, root)
	if err != nil {
		t.Fatalf("metastore.Open() error = %v", err)
	}
	t.Cleanup(func() { _ = store.Close() })

	d := &fakeDeriver{}
	lib := New(Config{
		OriginalsDir:  filepath.Join(root, "originals"),
		ThumbnailsDir: filepath.Join(root, "thumbnails"),
		Workers:       2,
	}, store, settings.NewStore(filepath.Join(root, "settings.json")), d, &capturetime.Resolver{})
	if err := lib.EnsureDirs(); err != nil {
		t.Fatalf("EnsureDirs() error = %v", err)
	}
	return &testLibrary{Library: lib, deriver: d, store: store, root: root}
}

func (tl *testLibrary) writeOriginal(t *testing.T, name string, mtime time.Time) string {
	t.Helper()
	p := filepath.Join(tl.OriginalsDir(), name)
	if err := os.WriteFile(p, []byte("data-"+name), 0o644); err != nil {
		t.Fatal(err)
	}
	if !mtime.IsZero() {
		if err := os.Chtimes(p, mtime, mtime); err != nil {
			t.Fatal(err)
		}
	}
	return p
}

func TestIngest(t *testing.T) {
	tests := []struct {
		name       string
		filename   string
		wantStatus string
		wantType   string
		wantErr    error
		wantRecord bool
	}{
		{"image", "photo.jpg", StatusSuccess, "image", nil, true},
		{"video", "clip.MOV", StatusSuccess, "video", nil, true},
		{"path components stripped", "../../etc/photo2.png", StatusSuccess, "image", nil, true},
		{"windows path stripped", `C:\Users\me\photo3.jpeg`, StatusSuccess, "image", nil, true},
		{"double dot inside name", "trip..beach.jpg", StatusSuccess, "image", nil, true},
		{"unsupported", "notes.txt", StatusSkipped, "", nil, false},
		{"thumbnail failure", "bad.jpg", "", "", ErrThumbnail, false},
		{"empty name", "", "", "", ErrInvalidName, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			tl := newTestLibrary(t, metastore.BackendJSON)
			ctx := context.Background()

			res, err := tl.Ingest(ctx, tt.filename, strings.NewReader("payload"))
			if tt.wantErr != nil {
				if !errors.Is(err, tt.wantErr) {
					t.Fatalf("Ingest() error = %v, want %v", err, tt.wantErr)
				}
			} else if err != nil {
				t.Fatalf("Ingest() error = %v", err)
			}
			if res.Status != tt.wantStatus {
				t.Errorf("Status = %q, want %q", res.Status, tt.wantStatus)
			}
			if string(res.Type) != tt.wantType {
				t.Errorf("Type = %q, want %q", res.Type, tt.wantType)
			}

			mapping, _ := tl.store.Load(ctx)
			if got := len(mapping); got != map[bool]int{true: 1, false: 0}[tt.wantRecord] {
				t.Errorf("records = %d, want record=%v", got, tt.wantRecord)
			}
			if tt.wantRecord {
				rec := mapping[res.Filename]
				if rec.Timestamp == nil {
					t.Error("record should have a timestamp")
				}
				if strings.ContainsAny(res.Filename, `/\`) {
					t.Errorf("Filename %q still has path components", res.Filename)
				}
			}
		})
	}
}

func TestIngestSkippedFileIsStored(t *testing.T) {
	tl := newTestLibrary(t, metastore.BackendJSON)

	res, err := tl.Ingest(context.Background(), "doc.pdf", strings.NewReader("pdf"))
	if err != nil {
		t.Fatalf("Ingest() error = %v", err)
	}
	if res.Message != "Unsupported file type" {
		t.Errorf("Message = %q", res.Message)
	}
	if _, err := os.Stat(filepath.Join(tl.OriginalsDir(), "doc.pdf")); err != nil {
		t.Errorf("original should be stored: %v", err)
	}
}

// Upload then gallery: the timestamp of a file without embedded metadata is
// its modification time.
func TestIngestThenGalleryUsesModTime(t *testing.T) {
	tl := newTestLibrary(t, metastore.BackendJSON)
	ctx := context.Background()

	if _, err := tl.Ingest(ctx, "a.jpg", strings.NewReader("jpeg")); err != nil {
		t.Fatalf("Ingest() error = %v", err)
	}
	info, err := os.Stat(filepath.Join(tl.OriginalsDir(), "a.jpg"))
	if err != nil {
		t.Fatal(err)
	}

	items := tl.Gallery(ctx)
	if len(items) != 1 {
		t.Fatalf("Gallery() = %d items, want 1", len(items))
	}
	want := float64(info.ModTime().UnixNano()) / float64(time.Second)
	if items[0].Timestamp != want {
		t.Errorf("Timestamp = %v, want %v", items[0].Timestamp, want)
	}
	if items[0].Thumbnail != "a.jpg" || items[0].Type != "image" {
		t.Errorf("item = %+v", items[0])
	}
}

func TestIngestLastWriterWins(t *testing.T) {
	tl := newTestLibrary(t, metastore.BackendJSON)
	ctx := context.Background()

	for _, body := range []string{"first", "second"} {
		if _, err := tl.Ingest(ctx, "same.jpg", strings.NewReader(body)); err != nil {
			t.Fatalf("Ingest() error = %v", err)
		}
	}
	data, err := os.ReadFile(filepath.Join(tl.OriginalsDir(), "same.jpg"))
	if err != nil {
		t.Fatal(err)
	}
	if string(data) != "second" {
		t.Errorf("original = %q, want second", data)
	}
}

func TestReconcile(t *testing.T) {
	for _, backend := range []string{metastore.BackendJSON, metastore.BackendSQLite} {
		t.Run(backend, func(t *testing.T) {
			tl := newTestLibrary(t, backend)
			ctx := context.Background()
			mtime := time.Date(2021, 6, 1, 12, 0, 0, 0, time.UTC)
			tl.writeOriginal(t, "x.jpg", mtime)

			first, err := tl.Reconcile(ctx, "http")
			if err != nil {
				t.Fatalf("Reconcile() error = %v", err)
			}
			if first != (ReconcileResult{Created: 1}) {
				t.Errorf("first pass = %+v, want {1 0}", first)
			}

			second, err := tl.Reconcile(ctx, "http")
			if err != nil {
				t.Fatalf("Reconcile() error = %v", err)
			}
			if second != (ReconcileResult{}) {
				t.Errorf("second pass = %+v, want {0 0}", second)
			}

			mapping, _ := tl.store.Load(ctx)
			rec, ok := mapping["x.jpg"]
			if !ok || !rec.Complete() {
				t.Fatalf("record = %+v, want complete", rec)
			}
			if *rec.Timestamp != float64(mtime.Unix()) {
				t.Errorf("Timestamp = %v, want %v", *rec.Timestamp, mtime.Unix())
			}
		})
	}
}

func TestReconcileCompletesIncompleteRecord(t *testing.T) {
	tl := newTestLibrary(t, metastore.BackendJSON)
	ctx := context.Background()
	tl.writeOriginal(t, "old.mp4", time.Time{})

	// Thumbnail already on disk: it must not be rendered again.
	if err := os.WriteFile(filepath.Join(tl.ThumbnailsDir(), "old.jpg"), []byte("t"), 0o644); err != nil {
		t.Fatal(err)
	}
	err := tl.store.Save(ctx, metastore.Mapping{
		"old.mp4": {Type: "video", Thumbnail: "old.jpg"},
	})
	if err != nil {
		t.Fatal(err)
	}

	res, err := tl.Reconcile(ctx, "cli")
	if err != nil {
		t.Fatalf("Reconcile() error = %v", err)
	}
	if res != (ReconcileResult{Updated: 1}) {
		t.Errorf("Reconcile() = %+v, want {0 1}", res)
	}
	if n := tl.deriver.callCount(); n != 0 {
		t.Errorf("Derive called %d times, want 0", n)
	}

	mapping, _ := tl.store.Load(ctx)
	if !mapping["old.mp4"].Complete() || mapping["old.mp4"].Type != "video" {
		t.Errorf("record = %+v", mapping["old.mp4"])
	}
}

func TestReconcileSkipsWithoutCounting(t *testing.T) {
	tl := newTestLibrary(t, metastore.BackendJSON)
	ctx := context.Background()

	tl.writeOriginal(t, "readme.txt", time.Time{})
	tl.writeOriginal(t, "bad.png", time.Time{})
	tl.writeOriginal(t, ".hidden.jpg", time.Time{})
	if err := os.Mkdir(filepath.Join(tl.OriginalsDir(), "album.jpg"), 0o755); err != nil {
		t.Fatal(err)
	}

	res, err := tl.Reconcile(ctx, "http")
	if err != nil {
		t.Fatalf("Reconcile() error = %v", err)
	}
	if res != (ReconcileResult{}) {
		t.Errorf("Reconcile() = %+v, want {0 0}", res)
	}
	mapping, _ := tl.store.Load(ctx)
	if len(mapping) != 0 {
		t.Errorf("mapping = %v, want empty", mapping)
	}
}

func TestReconcileCancelled(t *testing.T) {
	tl := newTestLibrary(t, metastore.BackendJSON)
	tl.writeOriginal(t, "x.jpg", time.Time{})

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	if _, err := tl.Reconcile(ctx, "http"); !errors.Is(err, context.Canceled) {
		t.Errorf("Reconcile() error = %v, want context.Canceled", err)
	}
}

func TestGenerateAllIsolatesFailures(t *testing.T) {
	tl := newTestLibrary(t, metastore.BackendJSON)
	ctx := context.Background()

	tl.writeOriginal(t, "good.jpg", time.Time{})
	tl.writeOriginal(t, "bad.jpg", time.Time{})
	tl.writeOriginal(t, "notes.txt", time.Time{})

	res, err := tl.GenerateAll(ctx)
	if err != nil {
		t.Fatalf("GenerateAll() error = %v", err)
	}
	if res != (GenerateResult{Generated: 1, Failed: 1}) {
		t.Errorf("GenerateAll() = %+v, want {1 1}", res)
	}
	if _, err := os.Stat(filepath.Join(tl.ThumbnailsDir(), "good.jpg")); err != nil {
		t.Errorf("thumbnail for good.jpg missing: %v", err)
	}
	mapping, status := tl.store.Load(ctx)
	if status != metastore.LoadNotFound || len(mapping) != 0 {
		t.Errorf("metadata touched: status=%v mapping=%v", status, mapping)
	}
}

func TestClearCache(t *testing.T) {
	tl := newTestLibrary(t, metastore.BackendJSON)
	for i := 0; i < 3; i++ {
		p := filepath.Join(tl.ThumbnailsDir(), fmt.Sprintf("t%d.jpg", i))
		if err := os.WriteFile(p, []byte("x"), 0o644); err != nil {
			t.Fatal(err)
		}
	}

	if err := tl.ClearCache(); err != nil {
		t.Fatalf("ClearCache() error = %v", err)
	}
	entries, err := os.ReadDir(tl.ThumbnailsDir())
	if err != nil {
		t.Fatal(err)
	}
	if len(entries) != 0 {
		t.Errorf("%d thumbnails left", len(entries))
	}
}

func TestReconcileRestoresClearedThumbnails(t *testing.T) {
	tl := newTestLibrary(t, metastore.BackendJSON)
	ctx := context.Background()

	tl.writeOriginal(t, "photo1.jpg", time.Time{})
	if _, err := tl.Reconcile(ctx, "http"); err != nil {
		t.Fatalf("Reconcile() error = %v", err)
	}
	before, _ := tl.store.Load(ctx)

	if err := tl.ClearCache(); err != nil {
		t.Fatalf("ClearCache() error = %v", err)
	}

	res, err := tl.Reconcile(ctx, "http")
	if err != nil {
		t.Fatalf("Reconcile() error = %v", err)
	}
	if res != (ReconcileResult{}) {
		t.Errorf("Reconcile() after clear = %+v, want {0 0}", res)
	}
	if _, err := os.Stat(filepath.Join(tl.ThumbnailsDir(), "photo1.jpg")); err != nil {
		t.Errorf("thumbnail not restored: %v", err)
	}

	after, _ := tl.store.Load(ctx)
	if *after["photo1.jpg"].Timestamp != *before["photo1.jpg"].Timestamp {
		t.Error("record rewritten by restore")
	}

	calls := tl.deriver.callCount()
	if _, err := tl.Reconcile(ctx, "http"); err != nil {
		t.Fatalf("Reconcile() error = %v", err)
	}
	if tl.deriver.callCount() != calls {
		t.Error("thumbnail rendered again although present")
	}
}

func TestThumbnailPathRestoresClearedThumbnail(t *testing.T) {
	tl := newTestLibrary(t, metastore.BackendJSON)
	ctx := context.Background()

	tl.writeOriginal(t, "photo1.jpg", time.Time{})
	if _, err := tl.Reconcile(ctx, "http"); err != nil {
		t.Fatalf("Reconcile() error = %v", err)
	}
	if err := tl.ClearCache(); err != nil {
		t.Fatalf("ClearCache() error = %v", err)
	}

	tests := []struct {
		name    string
		thumb   string
		wantErr error
	}{
		{"recorded thumbnail", "photo1.jpg", nil},
		{"no record", "other.jpg", ErrNotFound},
		{"invalid name", "../photo1.jpg", ErrInvalidName},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			p, err := tl.ThumbnailPath(ctx, tt.thumb)
			if tt.wantErr != nil {
				if !errors.Is(err, tt.wantErr) {
					t.Errorf("ThumbnailPath() error = %v, want %v", err, tt.wantErr)
				}
				return
			}
			if err != nil {
				t.Fatalf("ThumbnailPath() error = %v", err)
			}
			if _, err := os.Stat(p); err != nil {
				t.Errorf("restored thumbnail missing: %v", err)
			}
		})
	}
}

func TestGalleryOrderAndFilter(t *testing.T) {
	tl := newTestLibrary(t, metastore.BackendJSON)
	ctx := context.Background()

	err := tl.store.Save(ctx, metastore.Mapping{
		"old.jpg":     {Type: "image", Thumbnail: "old.jpg", Timestamp: metastore.Timestamp(100)},
		"new.mp4":     {Type: "video", Thumbnail: "new.jpg", Timestamp: metastore.Timestamp(300)},
		"b.jpg":       {Type: "image", Thumbnail: "b.jpg", Timestamp: metastore.Timestamp(200)},
		"a.jpg":       {Type: "image", Thumbnail: "a.jpg", Timestamp: metastore.Timestamp(200)},
		"pending.jpg": {Type: "image", Thumbnail: "pending.jpg"},
	})
	if err != nil {
		t.Fatal(err)
	}

	var got []string
	for _, item := range tl.Gallery(ctx) {
		got = append(got, item.Filename)
	}
	want := []string{"new.mp4", "a.jpg", "b.jpg", "old.jpg"}
	if strings.Join(got, ",") != strings.Join(want, ",") {
		t.Errorf("Gallery() = %v, want %v", got, want)
	}
}

func TestResizedOriginal(t *testing.T) {
	tl := newTestLibrary(t, metastore.BackendJSON)
	ctx := context.Background()
	tl.writeOriginal(t, "p.png", time.Time{})
	tl.writeOriginal(t, "bad.jpg", time.Time{})
	tl.writeOriginal(t, "v.mp4", time.Time{})

	tests := []struct {
		name     string
		file     string
		wantData string
		wantType string
		wantErr  error
	}{
		{"resizable", "p.png", "resized", "image/jpeg", nil},
		{"resize error serves original", "bad.jpg", "data-bad.jpg", "image/jpeg", nil},
		{"not resizable", "v.mp4", "data-v.mp4", "video/mp4", nil},
		{"missing", "nope.jpg", "", "", ErrNotFound},
		{"traversal", "../settings.json", "", "", ErrInvalidName},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			d, err := tl.ResizedOriginal(ctx, tt.file)
			if tt.wantErr != nil {
				if !errors.Is(err, tt.wantErr) {
					t.Fatalf("error = %v, want %v", err, tt.wantErr)
				}
				return
			}
			if err != nil {
				t.Fatalf("ResizedOriginal() error = %v", err)
			}
			if !bytes.Equal(d.Data, []byte(tt.wantData)) {
				t.Errorf("Data = %q, want %q", d.Data, tt.wantData)
			}
			if d.ContentType != tt.wantType {
				t.Errorf("ContentType = %q, want %q", d.ContentType, tt.wantType)
			}
		})
	}
}

func TestGetStats(t *testing.T) {
	tl := newTestLibrary(t, metastore.BackendJSON)
	ctx := context.Background()

	tl.writeOriginal(t, "a.jpg", time.Time{})
	tl.writeOriginal(t, "b.mp4", time.Time{})
	if _, err := tl.Reconcile(ctx, "http"); err != nil {
		t.Fatal(err)
	}
	if err := tl.store.Upsert(ctx, "c.jpg", metastore.Record{Type: "image", Thumbnail: "c.jpg"}); err != nil {
		t.Fatal(err)
	}

	stats := tl.GetStats()
	if stats.Images != 2 || stats.Videos != 1 {
		t.Errorf("Images=%d Videos=%d, want 2 and 1", stats.Images, stats.Videos)
	}
	if stats.IncompleteRecords != 1 {
		t.Errorf("IncompleteRecords = %d, want 1", stats.IncompleteRecords)
	}
	if stats.Thumbnails != 2 {
		t.Errorf("Thumbnails = %d, want 2", stats.Thumbnails)
	}
	if want := int64(len("data-a.jpg") + len("data-b.mp4")); stats.OriginalsBytes != want {
		t.Errorf("OriginalsBytes = %d, want %d", stats.OriginalsBytes, want)
	}
}

func TestConcurrentIngestAndReconcile(t *testing.T) {
	tl := newTestLibrary(t, metastore.BackendJSON)
	ctx := context.Background()

	var wg sync.WaitGroup
	for i := 0; i < 8; i++ {
		wg.Add(2)
		go func(i int) {
			defer wg.Done()
			name := fmt.Sprintf("img%d.jpg", i)
			if _, err := tl.Ingest(ctx, name, strings.NewReader("x")); err != nil {
				t.Errorf("Ingest(%s) error = %v", name, err)
			}
		}(i)
		go func() {
			defer wg.Done()
			if _, err := tl.Reconcile(ctx, "http"); err != nil {
				t.Errorf("Reconcile() error = %v", err)
			}
		}()
	}
	wg.Wait()

	mapping, _ := tl.store.Load(ctx)
	if len(mapping) != 8 {
		t.Errorf("records = %d, want 8", len(mapping))
	}
}
