package main

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gorilla/mux"

	"media-cloud/internal/handlers"
	"media-cloud/internal/metrics"
)

type mockLibraryStats struct {
	stats metrics.Stats
}

func (m *mockLibraryStats) GetStats() metrics.Stats { return m.stats }

type mockMemoryCounter int

func (m mockMemoryCounter) Count() int { return int(m) }

func TestStatsAdapter(t *testing.T) {
	lib := &mockLibraryStats{stats: metrics.Stats{
		Images:            40,
		Videos:            10,
		IncompleteRecords: 2,
		Thumbnails:        48,
		OriginalsBytes:    1 << 20,
	}}
	adapter := &statsAdapter{lib: lib, results: mockMemoryCounter(3)}

	var _ metrics.StatsProvider = adapter

	stats := adapter.GetStats()
	if stats.Images != 40 || stats.Videos != 10 {
		t.Errorf("media counts = %d/%d, want 40/10", stats.Images, stats.Videos)
	}
	if stats.IncompleteRecords != 2 {
		t.Errorf("IncompleteRecords = %d, want 2", stats.IncompleteRecords)
	}
	if stats.Thumbnails != 48 {
		t.Errorf("Thumbnails = %d, want 48", stats.Thumbnails)
	}
	if stats.OriginalsBytes != 1<<20 {
		t.Errorf("OriginalsBytes = %d, want %d", stats.OriginalsBytes, 1<<20)
	}
	if stats.Memories != 3 {
		t.Errorf("Memories = %d, want 3", stats.Memories)
	}
}

func TestSetupRouter(t *testing.T) {
	r := setupRouter(handlers.New(handlers.Deps{}))

	tests := []struct {
		method   string
		path     string
		template string
	}{
		{"POST", "/upload/", "/upload/"},
		{"GET", "/gallery/", "/gallery/"},
		{"POST", "/gallery/rescan", "/gallery/rescan"},
		{"GET", "/thumbnail/a.jpg", "/thumbnail/{filename}"},
		{"GET", "/original/a.jpg", "/original/{filename}"},
		{"GET", "/original_resized/a.jpg", "/original_resized/{filename}"},
		{"GET", "/settings/", "/settings/"},
		{"POST", "/settings/", "/settings/"},
		{"POST", "/thumbnails/clear_cache/", "/thumbnails/clear_cache/"},
		{"POST", "/thumbnails/generate_all/", "/thumbnails/generate_all/"},
		{"GET", "/files/list/", "/files/list/"},
		{"POST", "/files/create_folder/", "/files/create_folder/"},
		{"POST", "/files/upload_to_path/", "/files/upload_to_path/"},
		{"GET", "/original_with_path/", "/original_with_path/"},
		{"POST", "/memories/generate", "/memories/generate"},
		{"GET", "/memories/status/abc", "/memories/status/{task_id}"},
		{"GET", "/memories/", "/memories/"},
		{"GET", "/memories/memory_abc.png", "/memories/{filename}"},
		{"GET", "/music/song.mp3", "/music/{filename}"},
		{"GET", "/health", "/health"},
		{"HEAD", "/livez", "/livez"},
		{"GET", "/readyz", "/readyz"},
		{"GET", "/version", "/version"},
	}

	for _, tt := range tests {
		t.Run(tt.method+" "+tt.path, func(t *testing.T) {
			req := httptest.NewRequest(tt.method, tt.path, http.NoBody)
			var match mux.RouteMatch
			if !r.Match(req, &match) || match.Route == nil {
				t.Fatalf("no route for %s %s", tt.method, tt.path)
			}
			got, err := match.Route.GetPathTemplate()
			if err != nil {
				t.Fatalf("GetPathTemplate: %v", err)
			}
			if got != tt.template {
				t.Errorf("template = %q, want %q", got, tt.template)
			}
		})
	}

	t.Run("wrong method", func(t *testing.T) {
		req := httptest.NewRequest("GET", "/upload/", http.NoBody)
		var match mux.RouteMatch
		if r.Match(req, &match) && match.MatchErr == nil {
			t.Error("GET /upload/ should not match")
		}
	})
}

func TestMetricsServer(t *testing.T) {
	srv := newMetricsServer("0", handlers.New(handlers.Deps{}))
	if srv.Addr != ":0" {
		t.Errorf("Addr = %q, want :0", srv.Addr)
	}

	w := httptest.NewRecorder()
	srv.Handler.ServeHTTP(w, httptest.NewRequest("GET", "/metrics", http.NoBody))
	if w.Code != http.StatusOK {
		t.Errorf("/metrics status = %d, want 200", w.Code)
	}
}
