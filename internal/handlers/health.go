package handlers

import (
	"net/http"
	"os"
	"runtime"
	"time"

	"media-cloud/internal/startup"
	"media-cloud/internal/tasks"
)

const (
	statusHealthy  = "healthy"
	statusDegraded = "degraded"
)

// HealthResponse contains the health check response
type HealthResponse struct {
	Status  string `json:"status"`
	Ready   bool   `json:"ready"`
	Version string `json:"version"`
	Uptime  string `json:"uptime"`

	// System info
	GoVersion    string `json:"goVersion"`
	NumCPU       int    `json:"numCpu"`
	NumGoroutine int    `json:"numGoroutine"`

	// Library summary
	Images            int `json:"images"`
	Videos            int `json:"videos"`
	IncompleteRecords int `json:"incompleteRecords"`
	Memories          int `json:"memories"`
	RunningTasks      int `json:"runningTasks"`
}

// HealthCheck returns the health status of the service
func (h *Handlers) HealthCheck(w http.ResponseWriter, _ *http.Request) {
	ready := h.storageReady()
	stats := h.library.GetStats()

	response := HealthResponse{
		Status:            statusHealthy,
		Ready:             ready,
		Version:           startup.Version,
		Uptime:            time.Since(h.startTime).Round(time.Second).String(),
		GoVersion:         runtime.Version(),
		NumCPU:            runtime.NumCPU(),
		NumGoroutine:      runtime.NumGoroutine(),
		Images:            stats.Images,
		Videos:            stats.Videos,
		IncompleteRecords: stats.IncompleteRecords,
		Memories:          h.results.Count(),
		RunningTasks:      h.runningTasks(),
	}

	code := http.StatusOK
	if !ready {
		response.Status = statusDegraded
		code = http.StatusServiceUnavailable
	}
	writeJSONResponse(w, code, response)
}

// LivenessCheck is a simple liveness check (always returns 200 if server is running)
func (h *Handlers) LivenessCheck(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)

	// For HEAD requests, only send headers (no body)
	if r.Method != http.MethodHead {
		writeJSON(w, map[string]string{
			"status": "alive",
		})
	}
}

// ReadinessCheck returns 200 only when the storage areas are usable
func (h *Handlers) ReadinessCheck(w http.ResponseWriter, _ *http.Request) {
	if h.storageReady() {
		writeJSONResponse(w, http.StatusOK, map[string]string{"status": "ready"})
		return
	}
	writeJSONResponse(w, http.StatusServiceUnavailable, map[string]string{"status": "not_ready"})
}

func (h *Handlers) storageReady() bool {
	for _, dir := range []string{h.library.OriginalsDir(), h.library.ThumbnailsDir(), h.results.Dir()} {
		info, err := os.Stat(dir)
		if err != nil || !info.IsDir() {
			return false
		}
	}
	return true
}

func (h *Handlers) runningTasks() int {
	n := 0
	for _, t := range h.tasks.Store().List() {
		if !t.Status.Terminal() {
			n++
		}
	}
	return n
}
