package handlers

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strconv"

	"github.com/gorilla/mux"

	"media-cloud/internal/library"
	"media-cloud/internal/logging"
	"media-cloud/internal/metrics"
)

// Upload ingests the multipart "file" into the gallery.
func (h *Handlers) Upload(w http.ResponseWriter, r *http.Request) {
	f, filename, err := formFile(r)
	if err != nil {
		metrics.UploadsTotal.WithLabelValues("failed").Inc()
		writeJSONError(w, "Missing file", http.StatusBadRequest)
		return
	}
	defer f.Close()

	res, err := h.library.Ingest(r.Context(), filename, f)
	switch {
	case errors.Is(err, library.ErrInvalidName):
		writeJSONError(w, "Invalid file name", http.StatusBadRequest)
		return
	case errors.Is(err, library.ErrThumbnail):
		logging.Error("Upload of %s failed: %v", filename, err)
		writeJSONError(w, "Could not create thumbnail", http.StatusInternalServerError)
		return
	case err != nil:
		logging.Error("Upload of %s failed: %v", filename, err)
		writeJSONError(w, "Could not store file", http.StatusInternalServerError)
		return
	}

	writeJSONResponse(w, http.StatusOK, res)
}

// Rescan reconciles the metadata store with the originals area.
func (h *Handlers) Rescan(w http.ResponseWriter, r *http.Request) {
	res, err := h.library.Reconcile(r.Context(), "http")
	if err != nil {
		logging.Error("Rescan failed: %v", err)
		writeJSONError(w, "Rescan failed", http.StatusInternalServerError)
		return
	}
	writeJSONStatus(w, fmt.Sprintf("Scan complete. New: %d. Updated: %d.", res.Created, res.Updated))
}

// Gallery lists the complete records, newest capture first.
func (h *Handlers) Gallery(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Cache-Control", "no-cache")
	writeJSONResponse(w, http.StatusOK, h.library.Gallery(r.Context()))
}

// Thumbnail serves a derived thumbnail.
func (h *Handlers) Thumbnail(w http.ResponseWriter, r *http.Request) {
	p, err := h.library.ThumbnailPath(r.Context(), mux.Vars(r)["filename"])
	if err != nil {
		writeLibraryError(w, err, "Thumbnail not found")
		return
	}
	w.Header().Set("Cache-Control", "public, max-age=86400")
	serveFile(w, r, p)
}

// Original serves an uploaded original unchanged.
func (h *Handlers) Original(w http.ResponseWriter, r *http.Request) {
	p, err := h.library.OriginalPath(mux.Vars(r)["filename"])
	if err != nil {
		writeLibraryError(w, err, "File not found")
		return
	}
	serveFile(w, r, p)
}

// OriginalResized serves an original bounded by the photo settings.
func (h *Handlers) OriginalResized(w http.ResponseWriter, r *http.Request) {
	d, err := h.library.ResizedOriginal(r.Context(), mux.Vars(r)["filename"])
	if err != nil {
		writeLibraryError(w, err, "File not found")
		return
	}
	w.Header().Set("Content-Type", d.ContentType)
	w.Header().Set("Content-Length", strconv.Itoa(len(d.Data)))
	if _, err := w.Write(d.Data); err != nil {
		logging.Debug("Failed to write resized original: %v", err)
	}
}

// GetSettings returns the effective settings.
func (h *Handlers) GetSettings(w http.ResponseWriter, _ *http.Request) {
	s, _ := h.settings.Load()
	writeJSONResponse(w, http.StatusOK, s)
}

// UpdateSettings merges the recognized keys of the JSON body.
func (h *Handlers) UpdateSettings(w http.ResponseWriter, r *http.Request) {
	var partial map[string]interface{}
	if err := json.NewDecoder(r.Body).Decode(&partial); err != nil {
		writeJSONError(w, "Invalid JSON body", http.StatusBadRequest)
		return
	}

	s, err := h.settings.Update(partial)
	if err != nil {
		logging.Error("Failed to update settings: %v", err)
		writeJSONError(w, "Could not save settings", http.StatusInternalServerError)
		return
	}
	writeJSONResponse(w, http.StatusOK, map[string]interface{}{
		"status":   "success",
		"settings": s,
	})
}

// ClearCache deletes every thumbnail.
func (h *Handlers) ClearCache(w http.ResponseWriter, _ *http.Request) {
	if err := h.library.ClearCache(); err != nil {
		logging.Error("Failed to clear thumbnail cache: %v", err)
		writeJSONError(w, "Could not clear thumbnail cache", http.StatusInternalServerError)
		return
	}
	writeJSONStatus(w, "Thumbnail cache cleared")
}

// GenerateAll rebuilds the thumbnail of every supported original.
func (h *Handlers) GenerateAll(w http.ResponseWriter, r *http.Request) {
	res, err := h.library.GenerateAll(r.Context())
	if err != nil {
		logging.Error("Thumbnail generation failed: %v", err)
		writeJSONError(w, "Thumbnail generation failed", http.StatusInternalServerError)
		return
	}
	writeJSONResponse(w, http.StatusOK, map[string]interface{}{
		"status":    "success",
		"generated": res.Generated,
		"failed":    res.Failed,
	})
}
