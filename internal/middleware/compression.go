package middleware

import (
	"compress/gzip"
	"io"
	"mime"
	"net/http"
	"strings"
	"sync"
)

// CompressionConfig holds configuration for the compression middleware.
type CompressionConfig struct {
	// MinSize is the smallest body worth compressing, in bytes.
	MinSize int
	// Level is the gzip level (gzip.BestSpeed to gzip.BestCompression).
	Level int
}

// DefaultCompressionConfig returns the server's defaults. A gallery of a
// few hundred records is tens of kilobytes of repetitive JSON.
func DefaultCompressionConfig() CompressionConfig {
	return CompressionConfig{
		MinSize: 1024,
		Level:   gzip.DefaultCompression,
	}
}

// compressible lists the bodies the API produces besides stored media:
// JSON documents and plain-text errors from the router.
var compressible = map[string]bool{
	"application/json": true,
	"text/plain":       true,
}

// Compression gzips API responses for clients that accept it. Media routes
// pass through untouched: their bodies are already compressed images,
// video and audio, and they answer Range requests.
func Compression(config CompressionConfig) func(http.Handler) http.Handler {
	level := config.Level
	if level < gzip.HuffmanOnly || level > gzip.BestCompression {
		level = gzip.DefaultCompression
	}
	pool := &sync.Pool{New: func() interface{} {
		zw, _ := gzip.NewWriterLevel(io.Discard, level)
		return zw
	}}

	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if r.Method == http.MethodHead || !acceptsGzip(r) || ClassifyPath(r.URL.Path) != ClassAPI {
				next.ServeHTTP(w, r)
				return
			}

			gw := &gzipWriter{ResponseWriter: w, minSize: config.MinSize, pool: pool, status: http.StatusOK}
			defer func() { _ = gw.Close() }()
			next.ServeHTTP(gw, r)
		})
	}
}

// acceptsGzip reports whether Accept-Encoding lists gzip without q=0.
func acceptsGzip(r *http.Request) bool {
	for _, part := range strings.Split(r.Header.Get("Accept-Encoding"), ",") {
		coding, params, _ := strings.Cut(strings.TrimSpace(part), ";")
		if !strings.EqualFold(strings.TrimSpace(coding), "gzip") {
			continue
		}
		q := strings.ReplaceAll(params, " ", "")
		return q != "q=0" && q != "q=0.0" && q != "q=0.00" && q != "q=0.000"
	}
	return false
}

// gzipWriter holds the body back until MinSize bytes arrived or the
// handler returned, then either compresses or passes everything through.
type gzipWriter struct {
	http.ResponseWriter
	minSize int
	pool    *sync.Pool

	status  int
	buf     []byte
	decided bool
	zw      *gzip.Writer
}

func (g *gzipWriter) WriteHeader(code int) {
	if !g.decided {
		g.status = code
	}
}

func (g *gzipWriter) Write(b []byte) (int, error) {
	if g.decided {
		if g.zw != nil {
			return g.zw.Write(b)
		}
		return g.ResponseWriter.Write(b)
	}

	g.buf = append(g.buf, b...)
	if len(g.buf) >= g.minSize {
		if err := g.decide(); err != nil {
			return 0, err
		}
	}
	return len(b), nil
}

func (g *gzipWriter) compress() bool {
	h := g.Header()
	if len(g.buf) < g.minSize || h.Get("Content-Encoding") != "" {
		return false
	}
	if g.status < http.StatusOK || g.status == http.StatusNoContent || g.status == http.StatusNotModified {
		return false
	}
	mediaType, _, err := mime.ParseMediaType(h.Get("Content-Type"))
	return err == nil && compressible[mediaType]
}

// decide sends the header and flushes the held bytes.
func (g *gzipWriter) decide() error {
	g.decided = true
	buf := g.buf
	g.buf = nil

	if !g.compress() {
		g.ResponseWriter.WriteHeader(g.status)
		if len(buf) == 0 {
			return nil
		}
		_, err := g.ResponseWriter.Write(buf)
		return err
	}

	h := g.Header()
	h.Del("Content-Length")
	h.Set("Content-Encoding", "gzip")
	h.Add("Vary", "Accept-Encoding")
	g.ResponseWriter.WriteHeader(g.status)

	g.zw = g.pool.Get().(*gzip.Writer)
	g.zw.Reset(g.ResponseWriter)
	_, err := g.zw.Write(buf)
	return err
}

// Close sends whatever is still held and returns the gzip writer to the pool.
func (g *gzipWriter) Close() error {
	if !g.decided {
		if err := g.decide(); err != nil {
			return err
		}
	}
	if g.zw == nil {
		return nil
	}
	err := g.zw.Close()
	g.pool.Put(g.zw)
	g.zw = nil
	return err
}
