package metastore

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"media-cloud/internal/mediatypes"
)

// openBoth returns one store per backend rooted in fresh temp dirs.
func openBoth(t *testing.T) map[string]Store {
	t.Helper()
	ctx := context.Background()

	stores := map[string]Store{}
	for _, backend := range []string{BackendJSON, BackendSQLite} {
		s, err := Open(ctx, backend, t.TempDir())
		if err != nil {
			t.Fatalf("Open(%s) error = %v", backend, err)
		}
		t.Cleanup(func() { _ = s.Close() })
		stores[backend] = s
	}
	return stores
}

func TestOpenUnknownBackend(t *testing.T) {
	if _, err := Open(context.Background(), "redis", t.TempDir()); err == nil {
		t.Error("Open(redis) should fail")
	}
}

func TestLoadEmpty(t *testing.T) {
	for backend, s := range openBoth(t) {
		t.Run(backend, func(t *testing.T) {
			m, status := s.Load(context.Background())
			if status != LoadNotFound {
				t.Errorf("status = %v, want %v", status, LoadNotFound)
			}
			if m == nil || len(m) != 0 {
				t.Errorf("Load() = %v, want empty non-nil mapping", m)
			}
		})
	}
}

func TestSaveLoadRoundTrip(t *testing.T) {
	want := Mapping{
		"photo1.jpg": {Type: mediatypes.FileTypeImage, Thumbnail: "photo1.jpg", Timestamp: Timestamp(1700000000.5)},
		"clip.mov":   {Type: mediatypes.FileTypeVideo, Thumbnail: "clip.jpg"},
	}

	for backend, s := range openBoth(t) {
		t.Run(backend, func(t *testing.T) {
			ctx := context.Background()
			if err := s.Save(ctx, want); err != nil {
				t.Fatalf("Save() error = %v", err)
			}

			got, status := s.Load(ctx)
			if status != LoadOK {
				t.Fatalf("status = %v, want %v", status, LoadOK)
			}
			assertMapping(t, got, want)
		})
	}
}

func TestSaveReplacesWholeMapping(t *testing.T) {
	for backend, s := range openBoth(t) {
		t.Run(backend, func(t *testing.T) {
			ctx := context.Background()
			first := Mapping{
				"a.jpg": {Type: mediatypes.FileTypeImage, Thumbnail: "a.jpg", Timestamp: Timestamp(1)},
				"b.jpg": {Type: mediatypes.FileTypeImage, Thumbnail: "b.jpg", Timestamp: Timestamp(2)},
			}
			second := Mapping{
				"b.jpg": {Type: mediatypes.FileTypeImage, Thumbnail: "b.jpg", Timestamp: Timestamp(3)},
			}
			if err := s.Save(ctx, first); err != nil {
				t.Fatal(err)
			}
			if err := s.Save(ctx, second); err != nil {
				t.Fatal(err)
			}

			got, _ := s.Load(ctx)
			assertMapping(t, got, second)
		})
	}
}

func TestUpsert(t *testing.T) {
	for backend, s := range openBoth(t) {
		t.Run(backend, func(t *testing.T) {
			ctx := context.Background()
			incomplete := Record{Type: mediatypes.FileTypeImage, Thumbnail: "p.jpg"}
			if err := s.Upsert(ctx, "p.jpg", incomplete); err != nil {
				t.Fatalf("Upsert() error = %v", err)
			}
			got, _ := s.Load(ctx)
			if got["p.jpg"].Complete() {
				t.Error("record should be incomplete after first upsert")
			}

			complete := Record{Type: mediatypes.FileTypeImage, Thumbnail: "p.jpg", Timestamp: Timestamp(42)}
			if err := s.Upsert(ctx, "p.jpg", complete); err != nil {
				t.Fatalf("Upsert() error = %v", err)
			}
			if err := s.Upsert(ctx, "q.mp4", Record{Type: mediatypes.FileTypeVideo, Thumbnail: "q.jpg", Timestamp: Timestamp(7)}); err != nil {
				t.Fatal(err)
			}

			got, status := s.Load(ctx)
			if status != LoadOK {
				t.Errorf("status = %v, want ok", status)
			}
			if len(got) != 2 {
				t.Fatalf("len = %d, want 2", len(got))
			}
			if ts := got["p.jpg"].Timestamp; ts == nil || *ts != 42 {
				t.Errorf("p.jpg timestamp = %v, want 42", ts)
			}
		})
	}
}

func TestJSONStoreCorruptDocument(t *testing.T) {
	path := filepath.Join(t.TempDir(), "metadata.json")
	if err := os.WriteFile(path, []byte(`{"photo1.jpg": `), 0o644); err != nil {
		t.Fatal(err)
	}

	m, status := NewJSONStore(path).Load(context.Background())
	if status != LoadCorrupt {
		t.Errorf("status = %v, want %v", status, LoadCorrupt)
	}
	if len(m) != 0 {
		t.Errorf("Load() = %v, want empty", m)
	}
}

func TestJSONStoreNullDocument(t *testing.T) {
	path := filepath.Join(t.TempDir(), "metadata.json")
	if err := os.WriteFile(path, []byte(`null`), 0o644); err != nil {
		t.Fatal(err)
	}

	m, status := NewJSONStore(path).Load(context.Background())
	if status != LoadOK {
		t.Errorf("status = %v, want ok", status)
	}
	if m == nil {
		t.Error("Load() returned nil mapping")
	}
}

func TestJSONStoreDocumentShape(t *testing.T) {
	path := filepath.Join(t.TempDir(), "metadata.json")
	s := NewJSONStore(path)
	if err := s.Save(context.Background(), Mapping{
		"x.png": {Type: mediatypes.FileTypeImage, Thumbnail: "x.jpg"},
	}); err != nil {
		t.Fatal(err)
	}

	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatal(err)
	}
	want := "{\n    \"x.png\": {\n        \"type\": \"image\",\n        \"thumbnail\": \"x.jpg\",\n        \"timestamp\": null\n    }\n}\n"
	if string(data) != want {
		t.Errorf("document = %q, want %q", data, want)
	}
}

func assertMapping(t *testing.T, got, want Mapping) {
	t.Helper()
	if len(got) != len(want) {
		t.Fatalf("len(mapping) = %d, want %d", len(got), len(want))
	}
	for name, w := range want {
		g, ok := got[name]
		if !ok {
			t.Errorf("missing record %s", name)
			continue
		}
		if g.Type != w.Type || g.Thumbnail != w.Thumbnail {
			t.Errorf("%s = %+v, want %+v", name, g, w)
		}
		switch {
		case w.Timestamp == nil && g.Timestamp != nil:
			t.Errorf("%s timestamp = %v, want nil", name, *g.Timestamp)
		case w.Timestamp != nil && (g.Timestamp == nil || *g.Timestamp != *w.Timestamp):
			t.Errorf("%s timestamp = %v, want %v", name, g.Timestamp, *w.Timestamp)
		}
	}
}
