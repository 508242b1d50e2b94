package httpapi

import (
	"context"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/otherjamesbrown/minuteman/pkg/logging"
)

const requestIDHeader = "X-Request-ID"

// statusRecorder captures the response status for logging and metrics.
type statusRecorder struct {
	http.ResponseWriter
	status int
}

func (r *statusRecorder) WriteHeader(status int) {
	r.status = status
	r.ResponseWriter.WriteHeader(status)
}

// cors allows browser frontends on any origin to call the API.
func cors(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, req *http.Request) {
		w.Header().Set("Access-Control-Allow-Origin", "*")
		w.Header().Set("Access-Control-Allow-Methods", "GET, POST, DELETE, OPTIONS")
		w.Header().Set("Access-Control-Allow-Headers", "Content-Type, Authorization, X-Request-ID")

		if req.Method == http.MethodOptions {
			w.WriteHeader(http.StatusNoContent)
			return
		}
		next.ServeHTTP(w, req)
	})
}

// requestID assigns a request id when the client did not send one and
// propagates it via context and response header.
func requestID(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, req *http.Request) {
		id := req.Header.Get(requestIDHeader)
		if id == "" {
			id = uuid.NewString()
		}
		w.Header().Set(requestIDHeader, id)

		ctx := context.WithValue(req.Context(), logging.RequestIDKey, id)
		next.ServeHTTP(w, req.WithContext(ctx))
	})
}

// accessLog emits one structured log line per request.
func (r *Router) accessLog(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, req *http.Request) {
		start := time.Now()
		rec := &statusRecorder{ResponseWriter: w, status: http.StatusOK}

		next.ServeHTTP(rec, req)

		r.logger.WithContext(req.Context()).Info("request handled",
			logging.F("method", req.Method),
			logging.F("path", req.URL.Path),
			logging.F("status", rec.status),
			logging.F("duration_ms", time.Since(start).Milliseconds()))
	})
}

// instrument records request counters and latency.
func (r *Router) instrument(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, req *http.Request) {
		if r.metrics == nil {
			next.ServeHTTP(w, req)
			return
		}

		start := time.Now()
		rec := &statusRecorder{ResponseWriter: w, status: http.StatusOK}
		next.ServeHTTP(rec, req)

		r.metrics.RecordHTTPRequest(
			req.Method,
			routePattern(req.URL.Path),
			strconv.Itoa(rec.status),
			time.Since(start).Seconds())
	})
}

// routePattern collapses per-resource path segments so metric cardinality
// stays bounded.
func routePattern(path string) string {
	for _, prefix := range []string{"/transcripts/", "/recordings/", "/calendar-events/"} {
		if strings.HasPrefix(path, prefix) && len(path) > len(prefix) {
			return prefix + "{id}"
		}
	}
	return path
}
