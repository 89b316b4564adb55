// Package middleware provides HTTP middleware for the media-cloud server.
//
// Requests are split into route classes by ClassifyPath: API calls, media
// downloads (thumbnails, originals, collages, music) and health checks. The class
// decides what reaches the W3C access log, which responses are gzipped and
// whether Prometheus records the request.
package middleware
