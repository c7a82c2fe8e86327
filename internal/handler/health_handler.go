package handler

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/jmoiron/sqlx"

	"github.com/pledgecam/pledgecam-api/internal/repository"
	"github.com/pledgecam/pledgecam-api/internal/service"
)

// HealthHandler exposes observability endpoints.
type HealthHandler struct {
	db      *sqlx.DB
	cache   *repository.CacheRepository
	metrics *service.MetricsService
}

// NewHealthHandler constructs a health handler.
func NewHealthHandler(db *sqlx.DB, cache *repository.CacheRepository, metrics *service.MetricsService) *HealthHandler {
	return &HealthHandler{db: db, cache: cache, metrics: metrics}
}

// Health godoc
// @Summary Service and database health
// @Tags Health
// @Produce json
// @Success 200 {object} map[string]string
// @Failure 503 {object} map[string]string
// @Router /health [get]
func (h *HealthHandler) Health(c *gin.Context) {
	ctx, cancel := contextWithTimeout(c, 2*time.Second)
	defer cancel()

	payload := gin.H{"status": "ok", "database": "ok", "cache": "ok"}
	status := http.StatusOK

	if h.db == nil {
		payload["database"] = "not configured"
		payload["status"] = "degraded"
		status = http.StatusServiceUnavailable
	} else if err := h.db.PingContext(ctx); err != nil {
		payload["database"] = "unavailable"
		payload["status"] = "degraded"
		status = http.StatusServiceUnavailable
	}

	// A missing cache degrades gracefully, it never fails the probe.
	if h.cache == nil {
		payload["cache"] = "not configured"
	} else if err := h.cache.Ping(ctx); err != nil {
		payload["cache"] = "unavailable"
	}

	c.JSON(status, payload)
}

// Prometheus serves the Prometheus metrics endpoint.
func (h *HealthHandler) Prometheus(c *gin.Context) {
	if h.metrics == nil {
		c.Status(http.StatusServiceUnavailable)
		return
	}
	h.metrics.Handler().ServeHTTP(c.Writer, c.Request)
}
