package handlers

import (
	"context"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"projectpulse.io/pulse/internal/pkg/logger"
)

const readinessTimeout = 2 * time.Second

// Health is the probe response.
type Health struct {
	Status string            `json:"status"`
	Driver string            `json:"driver,omitempty"`
	Checks map[string]string `json:"checks,omitempty"`
	// Pools reports running/free/cap per worker pool on readiness probes.
	Pools map[string]map[string]int `json:"pools,omitempty"`
}

// GetLiveness handles GET /health/live.
func (s *Server) GetLiveness(c *gin.Context) {
	h := Health{Status: "ok"}
	if s.health != nil {
		h.Driver = s.health.Driver()
	}
	c.JSON(http.StatusOK, h)
}

// GetReadiness handles GET /health/ready.
func (s *Server) GetReadiness(c *gin.Context) {
	h := Health{Status: "ok", Checks: map[string]string{}}
	httpStatus := http.StatusOK

	if s.health == nil {
		h.Status = "degraded"
		h.Checks["database"] = "unconfigured"
		c.JSON(http.StatusServiceUnavailable, h)
		return
	}
	h.Driver = s.health.Driver()

	ctx, cancel := context.WithTimeout(c.Request.Context(), readinessTimeout)
	defer cancel()
	if err := s.health.Ping(ctx); err != nil {
		logger.Warn("Readiness check failed", zap.String("check", "database"), zap.Error(err))
		h.Checks["database"] = "error"
		h.Status = "degraded"
		httpStatus = http.StatusServiceUnavailable
	} else {
		h.Checks["database"] = "ok"
	}
	if s.pools != nil {
		h.Pools = s.pools.Metrics()
	}

	c.JSON(httpStatus, h)
}
