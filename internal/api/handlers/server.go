// Package handlers implements the Project Pulse HTTP API described by the
// embedded OpenAPI contract.
//
// Handlers stay thin: they bind input, build the caller identity and hand
// off to the service layer. Errors go to c.Error and are rendered by
// middleware.ErrorHandler.
package handlers

import (
	"context"
	"time"

	"github.com/gin-gonic/gin"

	"projectpulse.io/pulse/internal/api/middleware"
	"projectpulse.io/pulse/internal/domain"
	"projectpulse.io/pulse/internal/governance/audit"
	"projectpulse.io/pulse/internal/pkg/worker"
	"projectpulse.io/pulse/internal/service"
)

// UserStore is the account persistence the auth handlers need.
type UserStore interface {
	GetUserByID(ctx context.Context, id string) (domain.User, error)
	GetUserByEmail(ctx context.Context, email string) (domain.User, error)
	SetPassword(ctx context.Context, id, hash string) error
}

// HealthChecker reports store liveness.
type HealthChecker interface {
	Ping(ctx context.Context) error
	Driver() string
}

// Server implements all API handlers.
type Server struct {
	users         UserStore
	health        HealthChecker
	jwtCfg        middleware.JWTConfig
	audit         *audit.Logger
	projects      *service.ProjectService
	notifications *service.NotificationService
	dashboard     *service.DashboardService
	pools         *worker.Pools
	now           func() time.Time
}

// ServerDeps holds all dependencies for creating a Server.
// Manual DI, no Wire/Dig.
type ServerDeps struct {
	Users         UserStore
	Health        HealthChecker
	JWTCfg        middleware.JWTConfig
	Audit         *audit.Logger
	Projects      *service.ProjectService
	Notifications *service.NotificationService
	Dashboard     *service.DashboardService
	Pools         *worker.Pools // Optional: exports render inline without it
}

// NewServer creates a new Server with all dependencies.
func NewServer(deps ServerDeps) *Server {
	return &Server{
		users:         deps.Users,
		health:        deps.Health,
		jwtCfg:        deps.JWTCfg,
		audit:         deps.Audit,
		projects:      deps.Projects,
		notifications: deps.Notifications,
		dashboard:     deps.Dashboard,
		pools:         deps.Pools,
		now:           func() time.Time { return time.Now().UTC() },
	}
}

// actorFromCtx builds the service identity from the authenticated principal.
// Requests without one act as an anonymous caller with an empty scope.
func actorFromCtx(c *gin.Context) service.Actor {
	p, ok := middleware.GetPrincipal(c.Request.Context())
	if !ok {
		return service.Actor{}
	}
	return service.Actor{
		ID:         p.UserID,
		Name:       p.Name,
		Role:       p.Role,
		Department: p.Department,
	}
}
