package handlers

import (
	"errors"
	"fmt"
	"net/http"
)

// ListFiles lists a directory under originals.
func (h *Handlers) ListFiles(w http.ResponseWriter, r *http.Request) {
	listing, err := h.library.ListDir(r.Context(), r.URL.Query().Get("path"))
	if err != nil {
		writeLibraryError(w, err, "Directory not found")
		return
	}
	writeJSONResponse(w, http.StatusOK, listing)
}

// CreateFolder creates folder_name inside path.
func (h *Handlers) CreateFolder(w http.ResponseWriter, r *http.Request) {
	if err := r.ParseMultipartForm(maxFormMemory); err != nil && !errors.Is(err, http.ErrNotMultipart) {
		writeJSONError(w, "Invalid form", http.StatusBadRequest)
		return
	}
	name := r.FormValue("folder_name")
	if err := h.library.CreateFolder(r.FormValue("path"), name); err != nil {
		writeLibraryError(w, err, "Parent directory not found")
		return
	}
	writeJSONStatus(w, fmt.Sprintf("Folder '%s' created.", name))
}

// UploadToPath stores the multipart "file" inside path.
func (h *Handlers) UploadToPath(w http.ResponseWriter, r *http.Request) {
	f, filename, err := formFile(r)
	if err != nil {
		writeJSONError(w, "Missing file", http.StatusBadRequest)
		return
	}
	defer f.Close()

	name, err := h.library.UploadToPath(r.Context(), r.FormValue("path"), filename, f)
	if err != nil {
		writeLibraryError(w, err, "Target directory not found")
		return
	}
	writeJSONResponse(w, http.StatusOK, map[string]string{
		"status":   "success",
		"filename": name,
	})
}

// OriginalWithPath serves a nested original.
func (h *Handlers) OriginalWithPath(w http.ResponseWriter, r *http.Request) {
	p, err := h.library.NestedOriginalPath(r.URL.Query().Get("path"))
	if err != nil {
		writeLibraryError(w, err, "File not found")
		return
	}
	serveFile(w, r, p)
}
