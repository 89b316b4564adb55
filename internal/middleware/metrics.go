package middleware

import (
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/gorilla/mux"

	"media-cloud/internal/metrics"
)

// MetricsConfig holds configuration for the metrics middleware.
type MetricsConfig struct {
	// RecordHealthChecks also counts health checks and scrapes.
	RecordHealthChecks bool
}

// DefaultMetricsConfig leaves health checks out of the request metrics.
func DefaultMetricsConfig() MetricsConfig {
	return MetricsConfig{}
}

// Metrics returns a middleware that records Prometheus metrics. Register it
// with (*mux.Router).Use so the matched route template is available.
func Metrics(config MetricsConfig) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if !config.RecordHealthChecks && ClassifyPath(r.URL.Path) == ClassHealth {
				next.ServeHTTP(w, r)
				return
			}

			metrics.HTTPRequestsInFlight.Inc()
			defer metrics.HTTPRequestsInFlight.Dec()

			rec := newStatusRecorder(w)
			start := time.Now()

			next.ServeHTTP(rec, r)

			path := routeLabel(r)
			metrics.HTTPRequestsTotal.WithLabelValues(r.Method, path, strconv.Itoa(rec.Status())).Inc()
			metrics.HTTPRequestDuration.WithLabelValues(r.Method, path).Observe(time.Since(start).Seconds())
		})
	}
}

// routeLabel prefers the matched route template (e.g. /thumbnail/{filename})
// and falls back to normalizePath for unmatched requests.
func routeLabel(r *http.Request) string {
	if route := mux.CurrentRoute(r); route != nil {
		if tpl, err := route.GetPathTemplate(); err == nil {
			return tpl
		}
	}
	return normalizePath(r.URL.Path)
}

// normalizePath keeps the first path segment and collapses the rest so
// file names never become label values.
func normalizePath(path string) string {
	trimmed := strings.Trim(path, "/")
	if trimmed == "" {
		return "/"
	}
	first, rest, found := strings.Cut(trimmed, "/")
	if !found || rest == "" {
		return "/" + first
	}
	return "/" + first + "/{path}"
}
