package handlers

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"os"
	"path/filepath"

	"media-cloud/internal/filesystem"
	"media-cloud/internal/library"
	"media-cloud/internal/logging"
	"media-cloud/internal/mediatypes"
	"media-cloud/internal/memories"
)

// maxFormMemory bounds the in-memory part of multipart forms; larger
// files spill to temporary files.
const maxFormMemory = 32 << 20

// writeJSON encodes v as JSON and writes it to the response writer.
// Any encoding or write errors are logged since we typically cannot
// recover from them in an HTTP handler context.
func writeJSON(w http.ResponseWriter, v interface{}) {
	if err := json.NewEncoder(w).Encode(v); err != nil {
		logging.Error("failed to encode JSON response: %v", err)
	}
}

// writeJSONResponse writes v with the given status code.
func writeJSONResponse(w http.ResponseWriter, statusCode int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)
	writeJSON(w, v)
}

// writeJSONError writes an error response as JSON with the given status code.
func writeJSONError(w http.ResponseWriter, message string, statusCode int) {
	writeJSONResponse(w, statusCode, map[string]string{"error": message})
}

// writeJSONStatus writes a success response with a message.
func writeJSONStatus(w http.ResponseWriter, message string) {
	writeJSONResponse(w, http.StatusOK, map[string]string{
		"status":  "success",
		"message": message,
	})
}

// writeLibraryError maps library sentinels onto status codes. notFound is
// the message used for missing files.
func writeLibraryError(w http.ResponseWriter, err error, notFound string) {
	switch {
	case errors.Is(err, library.ErrInvalidName), errors.Is(err, memories.ErrInvalidName):
		writeJSONError(w, "Invalid file name", http.StatusBadRequest)
	case errors.Is(err, library.ErrForbidden):
		writeJSONError(w, "Access denied", http.StatusForbidden)
	case errors.Is(err, library.ErrNotFound), errors.Is(err, os.ErrNotExist):
		writeJSONError(w, notFound, http.StatusNotFound)
	case errors.Is(err, library.ErrExists):
		writeJSONError(w, "Folder with this name already exists", http.StatusConflict)
	default:
		logging.Error("Request failed: %v", err)
		writeJSONError(w, "Internal server error", http.StatusInternalServerError)
	}
}

// serveFile streams the file at path with a content type derived from its
// extension.
func serveFile(w http.ResponseWriter, r *http.Request, path string) {
	f, err := filesystem.OpenWithRetry(path, filesystem.DefaultRetryConfig())
	if err != nil {
		writeLibraryError(w, err, "File not found")
		return
	}
	defer f.Close()

	info, err := f.Stat()
	if err != nil {
		writeLibraryError(w, err, "File not found")
		return
	}
	w.Header().Set("Content-Type", mediatypes.GetMimeType(mediatypes.Ext(path)))
	http.ServeContent(w, r, filepath.Base(path), info.ModTime(), f)
}

// formFile returns the "file" part of a multipart request.
func formFile(r *http.Request) (io.ReadCloser, string, error) {
	if err := r.ParseMultipartForm(maxFormMemory); err != nil {
		return nil, "", err
	}
	f, header, err := r.FormFile("file")
	if err != nil {
		return nil, "", err
	}
	return f, header.Filename, nil
}
