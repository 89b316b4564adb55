package middleware

import (
	"net/http"
	"strings"
)

// RouteClass groups the server's routes by how their traffic is treated.
type RouteClass string

const (
	// ClassAPI covers JSON endpoints: uploads, gallery, settings, memories.
	ClassAPI    RouteClass = "api"
	// ClassMedia covers routes that stream stored files: thumbnails,
	// originals, collages and music.
	ClassMedia  RouteClass = "media"
	// ClassHealth covers health checks and the metrics scrape.
	ClassHealth RouteClass = "health"
)

var healthPaths = map[string]bool{
	"/health":  true,
	"/healthz": true,
	"/livez":   true,
	"/readyz":  true,
	"/metrics": true,
}

var mediaPrefixes = []string{
	"/thumbnail/",
	"/original/",
	"/original_resized/",
	"/original_with_path/",
	"/music/",
}

// ClassifyPath returns the class of the route serving path.
func ClassifyPath(path string) RouteClass {
	if healthPaths[path] {
		return ClassHealth
	}
	for _, p := range mediaPrefixes {
		if strings.HasPrefix(path, p) {
			return ClassMedia
		}
	}

	// /memories/{filename} serves collages; the other /memories routes are JSON.
	if rest, ok := strings.CutPrefix(path, "/memories/"); ok {
		if rest != "" && rest != "generate" && !strings.HasPrefix(rest, "status/") {
			return ClassMedia
		}
	}
	return ClassAPI
}

// statusRecorder captures what a handler sent for the logger and metrics.
type statusRecorder struct {
	http.ResponseWriter
	status  int
	written int64
}

func newStatusRecorder(w http.ResponseWriter) *statusRecorder {
	return &statusRecorder{ResponseWriter: w}
}

func (r *statusRecorder) WriteHeader(code int) {
	if r.status == 0 {
		r.status = code
	}
	r.ResponseWriter.WriteHeader(code)
}

func (r *statusRecorder) Write(b []byte) (int, error) {
	if r.status == 0 {
		r.status = http.StatusOK
	}
	n, err := r.ResponseWriter.Write(b)
	r.written += int64(n)
	return n, err
}

// Status is the status sent, 200 when the handler wrote nothing.
func (r *statusRecorder) Status() int {
	if r.status == 0 {
		return http.StatusOK
	}
	return r.status
}
