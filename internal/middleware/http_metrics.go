// Package middleware provides HTTP middleware components for the API server.
package middleware

import (
	"net/http"
	"strconv"
	"strings"
	"time"
)

// normalizePath converts paths with dynamic segments to route patterns to prevent
// cardinality explosion in metrics. This maps paths like /floor-plans/123 to
// /floor-plans/{id}.
func normalizePath(path string) string {
	// Exact matches for static routes (no normalization needed)
	staticRoutes := map[string]bool{
		"/":                   true,
		"/floor-plans":        true,
		"/floor-plans/public": true,
		"/floor-plans/master": true,
		"/health":             true,
		"/ready":              true,
		"/metrics":            true,
	}

	if staticRoutes[path] {
		return path
	}

	// /floor-plans/{id}/... patterns
	if strings.HasPrefix(path, "/floor-plans/") {
		parts := strings.Split(path, "/")
		switch len(parts) {
		case 3:
			// /floor-plans/{id}
			if parts[2] != "" {
				return "/floor-plans/{id}"
			}
		case 4:
			// /floor-plans/{id}/booths, /export, /analytics, /share, /live
			switch parts[3] {
			case "booths", "export", "analytics", "share", "live":
				return "/floor-plans/{id}/" + parts[3]
			}
		case 5:
			// /floor-plans/{id}/booths/{shapeId}
			if parts[3] == "booths" && parts[4] != "" {
				return "/floor-plans/{id}/booths/{shapeId}"
			}
			// /floor-plans/{id}/analytics/booths or /heatmap
			if parts[3] == "analytics" && (parts[4] == "booths" || parts[4] == "heatmap") {
				return "/floor-plans/{id}/analytics/" + parts[4]
			}
			// /floor-plans/{id}/background/sign, /finalize
			if parts[3] == "background" && (parts[4] == "sign" || parts[4] == "finalize") {
				return "/floor-plans/{id}/background/" + parts[4]
			}
		case 6:
			// /floor-plans/{id}/booths/{shapeId}/status or /neighbors
			if parts[3] == "booths" && (parts[5] == "status" || parts[5] == "neighbors") {
				return "/floor-plans/{id}/booths/{shapeId}/" + parts[5]
			}
		}
	}

	// /shared/{token}
	if strings.HasPrefix(path, "/shared/") {
		parts := strings.Split(path, "/")
		if len(parts) == 3 && parts[2] != "" {
			return "/shared/{token}"
		}
		if len(parts) == 4 && parts[3] == "export" {
			return "/shared/{token}/export"
		}
	}

	// /exhibitors/find-booth/{boothNumber}
	if strings.HasPrefix(path, "/exhibitors/find-booth/") {
		parts := strings.Split(path, "/")
		if len(parts) == 4 && parts[3] != "" {
			return "/exhibitors/find-booth/{boothNumber}"
		}
	}

	// Fallback: return as-is for unknown patterns
	// This ensures we don't accidentally break metrics for new routes
	return path
}

// metricsResponseWriter wraps http.ResponseWriter to capture status code and response size.
type metricsResponseWriter struct {
	http.ResponseWriter
	statusCode  int
	size        int64
	wroteHeader bool
}

// WriteHeader captures the status code before writing it.
func (mrw *metricsResponseWriter) WriteHeader(code int) {
	if mrw.wroteHeader {
		return
	}
	mrw.statusCode = code
	mrw.wroteHeader = true
	mrw.ResponseWriter.WriteHeader(code)
}

// Write captures the response size and writes the data.
func (mrw *metricsResponseWriter) Write(b []byte) (int, error) {
	n, err := mrw.ResponseWriter.Write(b)
	mrw.size += int64(n)
	return n, err
}

// Unwrap exposes the inner writer so UpdateResponseContext can reach the
// logging middleware's writer through this wrapper.
func (mrw *metricsResponseWriter) Unwrap() http.ResponseWriter {
	return mrw.ResponseWriter
}

// newMetricsResponseWriter creates a new metricsResponseWriter with default 200 status.
func newMetricsResponseWriter(w http.ResponseWriter) *metricsResponseWriter {
	return &metricsResponseWriter{
		ResponseWriter: w,
		statusCode:     http.StatusOK,
	}
}

// HTTPMetrics is a middleware that records HTTP request metrics.
// It captures duration, request/response sizes, and request counts.
// Health check endpoints (/health, /ready) are excluded from metrics to avoid cardinality issues.
func HTTPMetrics(metrics *Metrics) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			// Exclude health check endpoints from metrics
			if r.URL.Path == "/health" || r.URL.Path == "/ready" {
				next.ServeHTTP(w, r)
				return
			}

			start := time.Now()

			mrw := newMetricsResponseWriter(w)

			requestSize := int64(0)
			if contentLength := r.Header.Get("Content-Length"); contentLength != "" {
				if size, err := strconv.ParseInt(contentLength, 10, 64); err == nil {
					requestSize = size
				}
			}

			next.ServeHTTP(mrw, r)

			duration := time.Since(start).Seconds()

			// Normalize path to prevent cardinality explosion
			normalizedPath := normalizePath(r.URL.Path)

			metrics.ObserveHTTPRequest(
				r.Method,
				normalizedPath,
				strconv.Itoa(mrw.statusCode),
				duration,
				requestSize,
				mrw.size,
			)
		})
	}
}
