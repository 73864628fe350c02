package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"projectpulse.io/pulse/internal/api/openapi"
)

// GetOpenAPISpec handles GET /openapi.yaml.
func (s *Server) GetOpenAPISpec(c *gin.Context) {
	c.Data(http.StatusOK, "application/yaml", openapi.Document())
}
