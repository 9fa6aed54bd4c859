package api

import (
	"fmt"
	"net/http"
	"strconv"
	"time"

	"github.com/MiradoConsulting/RobocodeEngine/pkg/metrics"
)

// MetricsMiddleware records request count and latency per endpoint label,
// plus an error counter for 4xx and 5xx answers.
func MetricsMiddleware(next http.HandlerFunc, endpoint string) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		wrapped := &responseWriter{ResponseWriter: w, statusCode: http.StatusOK}

		next.ServeHTTP(wrapped, r)

		status := strconv.Itoa(wrapped.statusCode)
		metrics.RecordHTTPRequest(endpoint, r.Method, status)
		metrics.RecordHTTPRequestDuration(endpoint, r.Method, status, float64(time.Since(start).Microseconds())/1000)

		if errorType, ok := classifyStatus(wrapped.statusCode); ok {
			metrics.RecordErrorByComponent("http_"+endpoint, errorType)
		}
	}
}

// classifyStatus maps an error status to the error_type label.
func classifyStatus(code int) (string, bool) {
	switch {
	case code == http.StatusServiceUnavailable:
		return "unavailable", true
	case code >= http.StatusInternalServerError:
		return "server_error", true
	case code == http.StatusNotFound:
		return "not_found", true
	case code >= http.StatusBadRequest:
		return "client_error", true
	default:
		return "", false
	}
}

// responseWriter captures the status code written by the handler.
type responseWriter struct {
	http.ResponseWriter
	statusCode int
}

func (rw *responseWriter) WriteHeader(code int) {
	rw.statusCode = code
	rw.ResponseWriter.WriteHeader(code)
}

func (rw *responseWriter) Write(b []byte) (int, error) {
	n, err := rw.ResponseWriter.Write(b)
	if err != nil {
		return n, fmt.Errorf("failed to write response: %w", err)
	}
	return n, nil
}
