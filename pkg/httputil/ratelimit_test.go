package httputil

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeClock struct{ t time.Time }

func (c *fakeClock) now() time.Time { return c.t }

func newTestLimiter(cfg RateLimitConfig) (*RateLimiter, *fakeClock) {
	clock := &fakeClock{t: time.Unix(1_700_000_000, 0)}
	rl := NewRateLimiter(cfg)
	rl.now = clock.now
	return rl, clock
}

func TestRateLimiter_Allow(t *testing.T) {
	rl, clock := newTestLimiter(RateLimitConfig{RequestsPerWindow: 10, WindowDuration: time.Second, BurstSize: 2})

	allowed := 0
	for i := 0; i < 20; i++ {
		if rl.Allow("a") {
			allowed++
		}
	}
	assert.Equal(t, 12, allowed, "limit plus burst")
	assert.True(t, rl.Allow("b"), "keys are independent")

	clock.t = clock.t.Add(50 * time.Millisecond)
	assert.False(t, rl.Allow("a"), "less than one token refilled")

	clock.t = clock.t.Add(250 * time.Millisecond)
	assert.True(t, rl.Allow("a"))
	assert.Equal(t, 2, rl.Remaining("a"))

	clock.t = clock.t.Add(time.Hour)
	rl.Allow("a")
	assert.Equal(t, 11, rl.Remaining("a"), "refill is capped")
}

func TestRateLimiter_Cleanup(t *testing.T) {
	rl, clock := newTestLimiter(RateLimitConfig{RequestsPerWindow: 1, WindowDuration: time.Second})
	require.True(t, rl.Allow("a"))
	assert.Equal(t, 0, rl.Remaining("a"))

	clock.t = clock.t.Add(3 * time.Second)
	rl.Cleanup()
	assert.Equal(t, 1, rl.Remaining("a"), "idle bucket dropped")
}

func TestRateLimitMiddleware(t *testing.T) {
	rl, _ := newTestLimiter(RateLimitConfig{RequestsPerWindow: 2, WindowDuration: time.Minute})
	h := RateLimitMiddleware(rl)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNoContent)
	}))

	do := func(ip string) *httptest.ResponseRecorder {
		req := httptest.NewRequest(http.MethodPost, "/api/v1/plugins/x/load", nil)
		req.Header.Set("X-Real-IP", ip)
		rec := httptest.NewRecorder()
		h.ServeHTTP(rec, req)
		return rec
	}

	rec := do("10.0.0.1")
	assert.Equal(t, http.StatusNoContent, rec.Code)
	assert.Equal(t, "2", rec.Header().Get("X-RateLimit-Limit"))
	assert.Equal(t, "1", rec.Header().Get("X-RateLimit-Remaining"))

	assert.Equal(t, http.StatusNoContent, do("10.0.0.1").Code)

	rec = do("10.0.0.1")
	assert.Equal(t, http.StatusTooManyRequests, rec.Code)
	assert.Equal(t, "60", rec.Header().Get("Retry-After"))
	assert.Contains(t, rec.Body.String(), "rate limit exceeded")

	assert.Equal(t, http.StatusNoContent, do("10.0.0.2").Code)
}

func TestClientIP(t *testing.T) {
	tests := []struct {
		name    string
		headers map[string]string
		want    string
	}{
		{name: "forwarded", headers: map[string]string{"X-Forwarded-For": "1.1.1.1", "X-Real-IP": "2.2.2.2"}, want: "1.1.1.1"},
		{name: "real ip", headers: map[string]string{"X-Real-IP": "2.2.2.2"}, want: "2.2.2.2"},
		{name: "remote addr", want: "192.0.2.1:1234"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodGet, "/", nil)
			for k, v := range tt.headers {
				req.Header.Set(k, v)
			}
			assert.Equal(t, tt.want, ClientIP(req))
		})
	}
}
