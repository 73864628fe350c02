package app

import (
	"strings"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"projectpulse.io/pulse/internal/api/handlers"
	"projectpulse.io/pulse/internal/api/middleware"
	"projectpulse.io/pulse/internal/config"
	"projectpulse.io/pulse/internal/pkg/logger"
)

const apiBaseURL = "/api/v1"

// Public routes that do NOT require JWT authentication.
var publicPrefixes = []string{
	apiBaseURL + "/auth/login",
	apiBaseURL + "/health/",
	apiBaseURL + "/openapi.yaml",
}

// adminPrefixes are routes that require platform:admin role.
var adminPrefixes = []string{
	apiBaseURL + "/admin/",
}

// defaultAllowedOrigins are the local frontend dev servers.
var defaultAllowedOrigins = []string{
	"http://localhost:3000",
	"http://localhost:5173",
}

func newRouter(cfg *config.Config, server *handlers.Server, jwtCfg middleware.JWTConfig) *gin.Engine {
	router := gin.New()
	router.Use(
		gin.Recovery(),
		middleware.RequestID(),
		middleware.RequestLogger(),
		cors.New(buildCORSConfig(cfg)),
	)
	// The validator wraps ErrorHandler so rendered errors are checked too.
	if cfg.Server.OpenAPIValidation {
		router.Use(middleware.MustOpenAPIValidator(apiBaseURL))
	}
	router.Use(middleware.ErrorHandler())
	router.Use(jwtSkipPublic(jwtCfg))
	router.Use(rbacAdminRoutes())

	handlers.RegisterHandlers(router, server, handlers.RouteOptions{BaseURL: apiBaseURL})
	return router
}

// buildCORSConfig turns the server settings into a cors.Config. A "*" origin
// is dropped unless UnsafeAllowAllOrigins is set, which also turns off
// credentials since browsers reject that combination.
func buildCORSConfig(cfg *config.Config) cors.Config {
	cc := cors.Config{
		AllowMethods:     []string{"GET", "POST", "PUT", "PATCH", "DELETE", "OPTIONS"},
		AllowHeaders:     []string{"Origin", "Content-Type", "Authorization", middleware.RequestIDHeader},
		ExposeHeaders:    []string{"Content-Disposition", middleware.RequestIDHeader},
		AllowCredentials: cfg.Server.AllowCredentials,
		MaxAge:           12 * time.Hour,
	}

	wildcard := false
	origins := make([]string, 0, len(cfg.Server.AllowedOrigins))
	for _, o := range cfg.Server.AllowedOrigins {
		o = strings.TrimSpace(o)
		switch {
		case o == "":
		case o == "*":
			wildcard = true
		default:
			origins = append(origins, o)
		}
	}

	if wildcard && cfg.Server.UnsafeAllowAllOrigins {
		logger.Warn("CORS allows every origin; credentials disabled")
		cc.AllowAllOrigins = true
		cc.AllowCredentials = false
		return cc
	}
	if wildcard {
		logger.Warn("Ignoring wildcard CORS origin", zap.Strings("origins", origins))
	}
	if len(origins) == 0 {
		origins = append(origins, defaultAllowedOrigins...)
	}
	cc.AllowOrigins = origins
	return cc
}

// jwtSkipPublic returns middleware that applies JWT auth only on non-public routes.
func jwtSkipPublic(jwtCfg middleware.JWTConfig) gin.HandlerFunc {
	jwtMw := middleware.JWTAuth(jwtCfg)
	return func(c *gin.Context) {
		for _, prefix := range publicPrefixes {
			if strings.HasPrefix(c.Request.URL.Path, prefix) {
				c.Next()
				return
			}
		}
		jwtMw(c)
	}
}

// rbacAdminRoutes returns middleware enforcing platform:admin on admin endpoints.
func rbacAdminRoutes() gin.HandlerFunc {
	adminMw := middleware.RequirePermission(middleware.PermPlatformAdmin)
	return func(c *gin.Context) {
		for _, prefix := range adminPrefixes {
			if strings.HasPrefix(c.Request.URL.Path, prefix) {
				adminMw(c)
				return
			}
		}
		c.Next()
	}
}
