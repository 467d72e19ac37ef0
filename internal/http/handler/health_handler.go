package handler

import (
	"context"
	"encoding/json"
	"net/http"
	"time"

	"github.com/yugmi/sense-api/internal/database"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

const healthCheckTimeout = 3 * time.Second

// HealthHandler serves liveness and readiness probes. Probe bodies are plain JSON
// rather than the API envelope.
type HealthHandler struct {
	db             *gorm.DB
	visionProvider string
	logger         *zap.Logger
}

func NewHealthHandler(db *gorm.DB, visionProvider string, logger *zap.Logger) *HealthHandler {
	return &HealthHandler{
		db:             db,
		visionProvider: visionProvider,
		logger:         logger,
	}
}

func writeProbe(w http.ResponseWriter, status int, body map[string]interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(body)
}

// Health is the liveness probe
func (h *HealthHandler) Health(w http.ResponseWriter, r *http.Request) {
	writeProbe(w, http.StatusOK, map[string]interface{}{"status": "ok"})
}

// Database reports database reachability with connection pool statistics
func (h *HealthHandler) Database(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), healthCheckTimeout)
	defer cancel()

	stats, err := database.HealthCheckWithStats(ctx, h.db)
	if err != nil {
		h.logger.Error("database health check failed", zap.Error(err))
		writeProbe(w, http.StatusServiceUnavailable, map[string]interface{}{
			"status":  "unhealthy",
			"error":   err.Error(),
			"service": "database",
		})
		return
	}

	writeProbe(w, http.StatusOK, map[string]interface{}{
		"status":  "healthy",
		"service": "database",
		"stats": map[string]interface{}{
			"max_open_connections": stats.MaxOpenConnections,
			"open_connections":     stats.OpenConnections,
			"in_use":               stats.InUse,
			"idle":                 stats.Idle,
			"wait_count":           stats.WaitCount,
			"wait_duration_ms":     stats.WaitDuration.Milliseconds(),
			"max_idle_closed":      stats.MaxIdleClosed,
			"max_lifetime_closed":  stats.MaxLifetimeClosed,
		},
	})
}

// Ready is the readiness probe. A missing AI provider is reported but does not
// make the service unready.
func (h *HealthHandler) Ready(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), healthCheckTimeout)
	defer cancel()

	checks := map[string]interface{}{
		"vision": map[string]interface{}{"provider": h.visionProvider},
	}
	healthy := true

	if err := database.HealthCheck(ctx, h.db); err != nil {
		h.logger.Error("database health check failed", zap.Error(err))
		checks["database"] = map[string]interface{}{"status": "unhealthy", "error": err.Error()}
		healthy = false
	} else {
		checks["database"] = map[string]interface{}{"status": "healthy"}
	}

	if healthy {
		writeProbe(w, http.StatusOK, map[string]interface{}{"status": "healthy", "checks": checks})
		return
	}
	writeProbe(w, http.StatusServiceUnavailable, map[string]interface{}{"status": "unhealthy", "checks": checks})
}
