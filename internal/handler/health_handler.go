package handler

import (
	"context"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/GTDGit/bizdir_api/internal/location"
	"github.com/GTDGit/bizdir_api/internal/utils"
)

var startTime = time.Now()

// Pinger reports whether a backing service is reachable.
type Pinger interface {
	Ping(ctx context.Context) error
}

// HealthHandler provides health endpoint.
type HealthHandler struct {
	db       Pinger
	redis    Pinger
	cache    *location.HierarchyCache
	registry *location.Registry
}

// NewHealthHandler creates a new HealthHandler. redis may be nil.
func NewHealthHandler(db, redis Pinger, cache *location.HierarchyCache, registry *location.Registry) *HealthHandler {
	return &HealthHandler{db: db, redis: redis, cache: cache, registry: registry}
}

// GetHealth responds with service, database, Redis and hierarchy cache status.
// Only an unreachable database makes the service unhealthy.
func (h *HealthHandler) GetHealth(c *gin.Context) {
	ctx, cancel := context.WithTimeout(c.Request.Context(), 2*time.Second)
	defer cancel()

	status, code := "healthy", http.StatusOK
	dbStatus := "connected"
	if err := h.db.Ping(ctx); err != nil {
		dbStatus = "disconnected"
		status, code = "unhealthy", http.StatusServiceUnavailable
	}

	redisStatus := "disabled"
	if h.redis != nil {
		redisStatus = "connected"
		if err := h.redis.Ping(ctx); err != nil {
			redisStatus = "disconnected"
			if status == "healthy" {
				status = "degraded"
			}
		}
	}

	utils.Success(c, code, "Service is "+status, gin.H{
		"status":    status,
		"version":   "1.0.0",
		"uptime":    int(time.Since(startTime).Seconds()),
		"database":  gin.H{"status": dbStatus},
		"redis":     gin.H{"status": redisStatus},
		"hierarchy": h.cache.Stats(),
		"sessions":  h.registry.Len(),
	})
}
