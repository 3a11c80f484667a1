package audit

import (
	"fmt"
	"net/http"

	"github.com/platinummonkey/conduit/pkg/httputil"
	"github.com/platinummonkey/conduit/pkg/observability"
)

// responseWriter wraps http.ResponseWriter to capture status code
type responseWriter struct {
	http.ResponseWriter
	statusCode int
	written    bool
}

func (rw *responseWriter) WriteHeader(code int) {
	if !rw.written {
		rw.statusCode = code
		rw.written = true
	}
	rw.ResponseWriter.WriteHeader(code)
}

func (rw *responseWriter) Write(b []byte) (int, error) {
	if !rw.written {
		rw.WriteHeader(http.StatusOK)
	}
	return rw.ResponseWriter.Write(b)
}

// Middleware records every request that may change state: anything other
// than GET, HEAD and OPTIONS. Failed writes are dropped so auditing never
// fails a request.
func Middleware(logger Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if !isMutation(r.Method) {
				next.ServeHTTP(w, r)
				return
			}

			wrapped := &responseWriter{ResponseWriter: w, statusCode: http.StatusOK}
			next.ServeHTTP(wrapped, r)

			e := &Event{
				Type:       EventTypeAPIRequest,
				Status:     EventStatusSuccess,
				RequestID:  observability.GetRequestID(r.Context()),
				Method:     r.Method,
				Path:       r.URL.Path,
				StatusCode: wrapped.statusCode,
				RemoteAddr: httputil.ClientIP(r),
				Message:    fmt.Sprintf("%s %s", r.Method, r.URL.Path),
			}
			if wrapped.statusCode >= http.StatusBadRequest {
				e.Status = EventStatusFailure
			}
			_ = logger.Log(r.Context(), e)
		})
	}
}

func isMutation(method string) bool {
	switch method {
	case http.MethodGet, http.MethodHead, http.MethodOptions:
		return false
	}
	return true
}
