package audit

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/platinummonkey/conduit/pkg/observability"
)

func TestMiddleware(t *testing.T) {
	tests := []struct {
		name       string
		method     string
		status     int
		wantLogged bool
		wantStatus EventStatus
	}{
		{name: "get is skipped", method: http.MethodGet, status: http.StatusOK},
		{name: "head is skipped", method: http.MethodHead, status: http.StatusOK},
		{name: "post succeeds", method: http.MethodPost, status: http.StatusCreated, wantLogged: true, wantStatus: EventStatusSuccess},
		{name: "delete fails", method: http.MethodDelete, status: http.StatusConflict, wantLogged: true, wantStatus: EventStatusFailure},
		{name: "put without explicit status", method: http.MethodPut, wantLogged: true, wantStatus: EventStatusSuccess},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			mem := &memLogger{}
			h := Middleware(mem)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				if tt.status != 0 {
					w.WriteHeader(tt.status)
				}
				_, _ = w.Write([]byte("ok"))
			}))

			req := httptest.NewRequest(tt.method, "/api/v1/plugins/core-loopback/unload", nil)
			req = req.WithContext(observability.WithRequestID(req.Context(), "req-1"))
			req.Header.Set("X-Real-IP", "10.0.0.1")
			h.ServeHTTP(httptest.NewRecorder(), req)

			if !tt.wantLogged {
				assert.Empty(t, mem.events)
				return
			}
			require.Len(t, mem.events, 1)
			e := mem.events[0]
			assert.Equal(t, EventTypeAPIRequest, e.Type)
			assert.Equal(t, tt.wantStatus, e.Status)
			assert.Equal(t, "req-1", e.RequestID)
			assert.Equal(t, "10.0.0.1", e.RemoteAddr)
			assert.Equal(t, "/api/v1/plugins/core-loopback/unload", e.Path)
			if tt.status != 0 {
				assert.Equal(t, tt.status, e.StatusCode)
			} else {
				assert.Equal(t, http.StatusOK, e.StatusCode)
			}
		})
	}
}
