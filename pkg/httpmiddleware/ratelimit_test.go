package httpmiddleware

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newLimitedHandler(cfg RateLimitConfig) http.Handler {
	ok := http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
	})
	return RateLimit(cfg)(ok)
}

func hit(handler http.Handler, remoteAddr string, header http.Header) *httptest.ResponseRecorder {
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.RemoteAddr = remoteAddr
	for k, vs := range header {
		for _, v := range vs {
			req.Header.Add(k, v)
		}
	}
	w := httptest.NewRecorder()
	handler.ServeHTTP(w, req)
	return w
}

func TestRateLimit_AllowsWithinLimit(t *testing.T) {
	handler := newLimitedHandler(RateLimitConfig{Max: 3, Window: time.Minute})

	for i := range 3 {
		w := hit(handler, "198.51.100.7:40000", nil)
		require.Equalf(t, http.StatusOK, w.Code, "request %d", i+1)
		assert.Equal(t, "3", w.Header().Get("X-RateLimit-Limit"))
		assert.NotEmpty(t, w.Header().Get("X-RateLimit-Reset"))
	}
}

func TestRateLimit_RejectsOverLimit(t *testing.T) {
	handler := newLimitedHandler(RateLimitConfig{Max: 2, Window: time.Minute})

	hit(handler, "198.51.100.8:40000", nil)
	hit(handler, "198.51.100.8:40000", nil)
	w := hit(handler, "198.51.100.8:40000", nil)

	assert.Equal(t, http.StatusTooManyRequests, w.Code)
	assert.Equal(t, "application/json", w.Header().Get("Content-Type"))
	assert.Equal(t, "0", w.Header().Get("X-RateLimit-Remaining"))

	var body map[string]any
	require.NoError(t, json.NewDecoder(w.Body).Decode(&body))
	assert.Equal(t, float64(429), body["code"])
	assert.Equal(t, "rate limit exceeded", body["message"])
}

func TestRateLimit_IndependentKeys(t *testing.T) {
	handler := newLimitedHandler(RateLimitConfig{Max: 1, Window: time.Minute})

	assert.Equal(t, http.StatusOK, hit(handler, "10.1.0.1:1111", nil).Code)
	assert.Equal(t, http.StatusOK, hit(handler, "10.1.0.2:1111", nil).Code)
	// The port is not part of the key.
	assert.Equal(t, http.StatusTooManyRequests, hit(handler, "10.1.0.1:2222", nil).Code)
}

func TestRateLimit_CustomKeyFunc(t *testing.T) {
	handler := newLimitedHandler(RateLimitConfig{
		Max:    1,
		Window: time.Minute,
		KeyFunc: func(r *http.Request) string {
			return r.Header.Get("X-Api-Key")
		},
	})

	keyA := http.Header{"X-Api-Key": {"key-a"}}
	keyB := http.Header{"X-Api-Key": {"key-b"}}

	assert.Equal(t, http.StatusOK, hit(handler, "10.1.0.1:1111", keyA).Code)
	assert.Equal(t, http.StatusTooManyRequests, hit(handler, "10.1.0.2:1111", keyA).Code)
	assert.Equal(t, http.StatusOK, hit(handler, "10.1.0.1:1111", keyB).Code)
}

func TestRateLimit_ForwardedHeaders(t *testing.T) {
	tests := []struct {
		name   string
		header http.Header
	}{
		{"x-forwarded-for", http.Header{"X-Forwarded-For": {"203.0.113.50, 70.41.3.18"}}},
		{"x-real-ip", http.Header{"X-Real-Ip": {"203.0.113.60"}}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			handler := newLimitedHandler(RateLimitConfig{Max: 1, Window: time.Minute})

			w := hit(handler, "192.0.2.1:4444", tt.header)
			require.Equal(t, http.StatusOK, w.Code)

			// Same client IP behind a different proxy address is still limited.
			w = hit(handler, "192.0.2.2:5555", tt.header)
			assert.Equal(t, http.StatusTooManyRequests, w.Code)
		})
	}
}

func TestRateLimiter_SlidingWindow(t *testing.T) {
	rl := newRateLimiter(RateLimitConfig{Max: 2, Window: time.Minute})
	base := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)

	_, _, allowed := rl.allow("c1", base)
	require.True(t, allowed)
	_, _, allowed = rl.allow("c1", base.Add(time.Second))
	require.True(t, allowed)
	_, _, allowed = rl.allow("c1", base.Add(2*time.Second))
	require.False(t, allowed)

	// Half a window later the weighted count of the previous window has
	// decayed enough to admit one more request.
	remaining, _, allowed := rl.allow("c1", base.Add(90*time.Second))
	assert.True(t, allowed)
	assert.Equal(t, 0, remaining)

	// Two full windows later the counters are gone entirely.
	remaining, _, allowed = rl.allow("c1", base.Add(3*time.Minute))
	assert.True(t, allowed)
	assert.Equal(t, 1, remaining)
}

func TestRateLimiter_Cleanup(t *testing.T) {
	rl := newRateLimiter(RateLimitConfig{Max: 5, Window: time.Second})
	now := time.Now()
	rl.allow("stale", now)
	rl.allow("fresh", now.Add(5*time.Second))

	rl.cleanup(now.Add(5 * time.Second))

	rl.mu.Lock()
	defer rl.mu.Unlock()
	assert.NotContains(t, rl.entries, "stale")
	assert.Contains(t, rl.entries, "fresh")
}
