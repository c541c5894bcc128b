package middleware

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
)

// HTTPRecorder receives per-request measurements.
type HTTPRecorder interface {
	ObserveHTTPRequest(method, path string, status int, elapsed time.Duration)
}

// Metrics middleware records HTTP metrics.
func Metrics(recorder HTTPRecorder) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			start := time.Now()

			// Wrap response writer to capture status code
			wrapped := &statusRecorder{ResponseWriter: w, statusCode: http.StatusOK}
			next.ServeHTTP(wrapped, r)

			recorder.ObserveHTTPRequest(r.Method, normalizePath(r), wrapped.statusCode, time.Since(start))
		})
	}
}

// normalizePath labels requests by route pattern to avoid high cardinality:
// /api/v1/statements/01HX... -> /api/v1/statements/{statement_id}
func normalizePath(r *http.Request) string {
	if rctx := chi.RouteContext(r.Context()); rctx != nil {
		if pattern := rctx.RoutePattern(); pattern != "" {
			return pattern
		}
	}
	return "unmatched"
}
