package handlers

import (
	"net/http"

	"github.com/gorilla/mux"
)

// GenerateMemory starts a memory task and returns its id.
func (h *Handlers) GenerateMemory(w http.ResponseWriter, _ *http.Request) {
	task := h.tasks.Submit(h.generator.Run)
	writeJSONResponse(w, http.StatusAccepted, map[string]string{"task_id": task.ID})
}

// MemoryStatus reports the state of a memory task.
func (h *Handlers) MemoryStatus(w http.ResponseWriter, r *http.Request) {
	task, ok := h.tasks.Store().Get(mux.Vars(r)["task_id"])
	if !ok {
		writeJSONError(w, "Task not found", http.StatusNotFound)
		return
	}
	w.Header().Set("Cache-Control", "no-cache")
	writeJSONResponse(w, http.StatusOK, task)
}

// ListMemories returns the persisted memories, newest first.
func (h *Handlers) ListMemories(w http.ResponseWriter, _ *http.Request) {
	writeJSONResponse(w, http.StatusOK, h.results.List())
}

// MemoryAsset serves a collage from the memories area.
func (h *Handlers) MemoryAsset(w http.ResponseWriter, r *http.Request) {
	p, err := h.results.AssetPath(mux.Vars(r)["filename"])
	if err != nil {
		writeLibraryError(w, err, "File not found")
		return
	}
	serveFile(w, r, p)
}

// MusicAsset serves a track from the music area.
func (h *Handlers) MusicAsset(w http.ResponseWriter, r *http.Request) {
	p, err := h.music.Path(mux.Vars(r)["filename"])
	if err != nil {
		writeLibraryError(w, err, "File not found")
		return
	}
	serveFile(w, r, p)
}
