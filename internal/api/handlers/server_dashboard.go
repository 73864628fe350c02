package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"
)

// GetDashboardStats handles GET /dashboard/stats.
func (s *Server) GetDashboardStats(c *gin.Context) {
	d, err := s.dashboard.Stats(c.Request.Context(), actorFromCtx(c), c.Query("department"))
	if err != nil {
		_ = c.Error(err)
		return
	}
	c.JSON(http.StatusOK, d)
}
