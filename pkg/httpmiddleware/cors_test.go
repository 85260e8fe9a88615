package httpmiddleware

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
)

func okHandler() http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
	})
}

func corsRequest(handler http.Handler, method, origin string, header http.Header) *httptest.ResponseRecorder {
	req := httptest.NewRequest(method, "/", nil)
	if origin != "" {
		req.Header.Set("Origin", origin)
	}
	for k, vs := range header {
		for _, v := range vs {
			req.Header.Add(k, v)
		}
	}
	w := httptest.NewRecorder()
	handler.ServeHTTP(w, req)
	return w
}

func TestCORS_ActualRequest(t *testing.T) {
	handler := CORS(CORSConfig{
		AllowOrigins:  []string{"https://shop.example.com"},
		ExposeHeaders: []string{"X-Request-ID"},
	})(okHandler())

	t.Run("allowed origin", func(t *testing.T) {
		w := corsRequest(handler, http.MethodGet, "https://SHOP.example.com", nil)
		assert.Equal(t, http.StatusOK, w.Code)
		// The configured spelling wins over the request's casing.
		assert.Equal(t, "https://shop.example.com", w.Header().Get("Access-Control-Allow-Origin"))
		assert.Equal(t, "X-Request-ID", w.Header().Get("Access-Control-Expose-Headers"))
		assert.Contains(t, w.Header().Values("Vary"), "Origin")
	})

	t.Run("disallowed origin gets no CORS headers", func(t *testing.T) {
		w := corsRequest(handler, http.MethodGet, "https://evil.example.com", nil)
		assert.Equal(t, http.StatusOK, w.Code)
		assert.Empty(t, w.Header().Get("Access-Control-Allow-Origin"))
	})

	t.Run("no origin header passes through", func(t *testing.T) {
		w := corsRequest(handler, http.MethodGet, "", nil)
		assert.Equal(t, http.StatusOK, w.Code)
		assert.Empty(t, w.Header().Get("Access-Control-Allow-Origin"))
	})
}

func TestCORS_Preflight(t *testing.T) {
	handler := CORS(CORSConfig{
		AllowOrigins: []string{"https://shop.example.com"},
		AllowHeaders: []string{"Content-Type", "X-Api-Key"},
		MaxAge:       600,
	})(okHandler())

	preflight := http.Header{"Access-Control-Request-Method": {"POST"}}

	w := corsRequest(handler, http.MethodOptions, "https://shop.example.com", preflight)
	assert.Equal(t, http.StatusNoContent, w.Code)
	h := w.Header()
	assert.Equal(t, "https://shop.example.com", h.Get("Access-Control-Allow-Origin"))
	assert.Equal(t, "GET, POST, PUT, PATCH, DELETE, OPTIONS", h.Get("Access-Control-Allow-Methods"))
	assert.Equal(t, "Content-Type, X-Api-Key", h.Get("Access-Control-Allow-Headers"))
	assert.Equal(t, "600", h.Get("Access-Control-Max-Age"))

	w = corsRequest(handler, http.MethodOptions, "https://evil.example.com", preflight)
	assert.Equal(t, http.StatusNoContent, w.Code)
	assert.Empty(t, w.Header().Get("Access-Control-Allow-Origin"))
}

func TestCORS_WildcardWithCredentials(t *testing.T) {
	// Credentials must never be combined with the "*" origin; the specific
	// origin is echoed instead.
	handler := CORS(CORSConfig{
		AllowOrigins:     []string{"*"},
		AllowCredentials: true,
	})(okHandler())

	w := corsRequest(handler, http.MethodGet, "https://shop.example.com", nil)
	assert.Equal(t, http.StatusOK, w.Code)
	assert.NotEqual(t, "*", w.Header().Get("Access-Control-Allow-Origin"))
}
