package handlers

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"projectpulse.io/pulse/internal/api/middleware"
	apperrors "projectpulse.io/pulse/internal/pkg/errors"
	"projectpulse.io/pulse/internal/pkg/logger"
	"projectpulse.io/pulse/internal/service"
)

// ListNotifications handles GET /notifications.
func (s *Server) ListNotifications(c *gin.Context) {
	unreadOnly := false
	if raw := c.Query("unreadOnly"); raw != "" {
		v, err := strconv.ParseBool(raw)
		if err != nil {
			_ = c.Error(apperrors.BadRequest(apperrors.CodeInvalidRequest, "unreadOnly must be a boolean"))
			return
		}
		unreadOnly = v
	}

	ns, err := s.notifications.List(c.Request.Context(), actorFromCtx(c), unreadOnly)
	if err != nil {
		_ = c.Error(err)
		return
	}
	c.JSON(http.StatusOK, ns)
}

// GetUnreadCount handles GET /notifications/unread-count.
func (s *Server) GetUnreadCount(c *gin.Context) {
	n, err := s.notifications.UnreadCount(c.Request.Context(), actorFromCtx(c))
	if err != nil {
		_ = c.Error(err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"count": n})
}

// MarkAllNotificationsRead handles POST /notifications/read-all.
func (s *Server) MarkAllNotificationsRead(c *gin.Context) {
	n, err := s.notifications.MarkAllRead(c.Request.Context(), actorFromCtx(c))
	if err != nil {
		_ = c.Error(err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"updated": n})
}

// UpdateNotification handles PATCH /notifications/{id}. Deciding an
// extension request needs extension:review.
func (s *Server) UpdateNotification(c *gin.Context) {
	var in service.NotificationUpdate
	if err := c.ShouldBindJSON(&in); err != nil {
		_ = c.Error(apperrors.BadRequest(apperrors.CodeInvalidRequest, "request body is not a valid notification update"))
		return
	}
	if in.Read == nil && in.Action == nil {
		_ = c.Error(apperrors.BadRequest(apperrors.CodeInvalidRequest, "read or action is required"))
		return
	}
	if in.Action != nil && !middleware.HasPermission(c, middleware.PermExtensionReview) {
		_ = c.Error(apperrors.FromCode(apperrors.CodeForbidden, "only reviewers may decide extension requests"))
		return
	}

	n, err := s.notifications.Update(c.Request.Context(), actorFromCtx(c), c.Param("id"), in)
	if err != nil {
		_ = c.Error(err)
		return
	}
	c.JSON(http.StatusOK, n)
}

// DeleteNotification handles DELETE /notifications/{id}.
func (s *Server) DeleteNotification(c *gin.Context) {
	if err := s.notifications.Delete(c.Request.Context(), actorFromCtx(c), c.Param("id")); err != nil {
		_ = c.Error(err)
		return
	}
	c.Status(http.StatusNoContent)
}

// ReconcileNotifications handles POST /notifications/reconcile and runs one
// pass synchronously.
func (s *Server) ReconcileNotifications(c *gin.Context) {
	res, err := s.notifications.Reconcile(c.Request.Context())
	if err != nil {
		_ = c.Error(err)
		return
	}
	logger.Info("Reconcile triggered",
		zap.String("actor", actorFromCtx(c).Label()),
		zap.Int("created", res.Created),
	)
	c.JSON(http.StatusOK, res)
}
