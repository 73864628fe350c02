package handlers

import (
	"github.com/gin-gonic/gin"

	"projectpulse.io/pulse/internal/api/middleware"
)

// RouteOptions configures RegisterHandlers.
type RouteOptions struct {
	BaseURL string
}

// RegisterHandlers mounts every operation of the API contract on router.
// Authentication is applied by the caller; permission checks are per route.
func RegisterHandlers(router gin.IRouter, s *Server, opts RouteOptions) {
	g := router.Group(opts.BaseURL)

	g.GET("/health/live", s.GetLiveness)
	g.GET("/health/ready", s.GetReadiness)
	g.GET("/openapi.yaml", s.GetOpenAPISpec)

	g.POST("/auth/login", s.Login)
	g.GET("/auth/me", s.GetCurrentUser)
	g.POST("/auth/change-password", s.ChangePassword)

	read := middleware.RequirePermission(middleware.PermProjectRead)
	write := middleware.RequirePermission(middleware.PermProjectWrite)

	g.GET("/projects", read, s.ListProjects)
	g.POST("/projects", write, s.CreateProject)
	g.GET("/projects/export", middleware.RequirePermission(middleware.PermProjectExport), s.ExportProjects)
	g.GET("/projects/:id", read, s.GetProject)
	g.PATCH("/projects/:id", write, s.UpdateProject)
	g.DELETE("/projects/:id", write, s.DeleteProject)
	g.POST("/projects/:id/extension-requests", middleware.RequirePermission(middleware.PermExtensionRequest), s.RequestExtension)

	g.GET("/dashboard/stats", read, s.GetDashboardStats)

	inbox := middleware.RequirePermission(middleware.PermNotificationRead)
	g.GET("/notifications", inbox, s.ListNotifications)
	g.GET("/notifications/unread-count", inbox, s.GetUnreadCount)
	g.POST("/notifications/read-all", inbox, s.MarkAllNotificationsRead)
	g.POST("/notifications/reconcile", middleware.RequirePermission(middleware.PermPlatformAdmin), s.ReconcileNotifications)
	g.PATCH("/notifications/:id", inbox, s.UpdateNotification)
	g.DELETE("/notifications/:id", inbox, s.DeleteNotification)

	g.PUT("/admin/log-level", middleware.RequirePermission(middleware.PermPlatformAdmin), s.SetLogLevel)
}
