package middleware_test

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/yugmi/sense-api/internal/config"
	"github.com/yugmi/sense-api/internal/http/middleware"
	"go.uber.org/zap"
)

func corsRequest(cfg *config.CORSConfig, env, origin string) *httptest.ResponseRecorder {
	h := middleware.CORS(cfg, env, zap.NewNop())(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	}))
	req := httptest.NewRequest(http.MethodGet, "/api/v1/projects", nil)
	if origin != "" {
		req.Header.Set("Origin", origin)
	}
	w := httptest.NewRecorder()
	h.ServeHTTP(w, req)
	return w
}

func TestCORS(t *testing.T) {
	base := config.CORSConfig{
		AllowedMethods: []string{"GET", "POST"},
		AllowedHeaders: []string{"Authorization", "Content-Type"},
	}

	t.Run("explicit origin allowed", func(t *testing.T) {
		cfg := base
		cfg.AllowedOrigins = []string{"https://app.yugmi.io"}
		w := corsRequest(&cfg, "production", "https://app.yugmi.io")
		assert.Equal(t, "https://app.yugmi.io", w.Header().Get("Access-Control-Allow-Origin"))
	})

	t.Run("unknown origin rejected", func(t *testing.T) {
		cfg := base
		cfg.AllowedOrigins = []string{"https://app.yugmi.io"}
		w := corsRequest(&cfg, "production", "https://evil.example.com")
		assert.Empty(t, w.Header().Get("Access-Control-Allow-Origin"))
	})

	t.Run("development allows any origin", func(t *testing.T) {
		cfg := base
		w := corsRequest(&cfg, "development", "http://localhost:5173")
		assert.Equal(t, "http://localhost:5173", w.Header().Get("Access-Control-Allow-Origin"))
	})

	t.Run("production without origins denies", func(t *testing.T) {
		cfg := base
		w := corsRequest(&cfg, "production", "http://localhost:5173")
		assert.Empty(t, w.Header().Get("Access-Control-Allow-Origin"))
		assert.Equal(t, http.StatusOK, w.Code)
	})

	t.Run("requests without origin pass", func(t *testing.T) {
		cfg := base
		w := corsRequest(&cfg, "production", "")
		assert.Equal(t, http.StatusOK, w.Code)
	})
}
