package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	apperrors "projectpulse.io/pulse/internal/pkg/errors"
	"projectpulse.io/pulse/internal/pkg/logger"
)

// LogLevel is the PUT /admin/log-level payload and response.
type LogLevel struct {
	Level string `json:"level" binding:"required"`
}

// SetLogLevel handles PUT /admin/log-level. The change is process-local
// and lasts until restart.
func (s *Server) SetLogLevel(c *gin.Context) {
	var req LogLevel
	if err := c.ShouldBindJSON(&req); err != nil {
		_ = c.Error(apperrors.BadRequest(apperrors.CodeInvalidRequest, "level is required"))
		return
	}
	if err := logger.SetLevel(req.Level); err != nil {
		_ = c.Error(apperrors.Validation(apperrors.FieldError{
			Field:   "level",
			Code:    "INVALID_VALUE",
			Message: err.Error(),
		}))
		return
	}

	actor := actorFromCtx(c)
	logger.Info("Log level changed", zap.String("level", logger.GetLevel().String()), zap.String("actor", actor.Label()))
	if s.audit != nil {
		if err := s.audit.LogAction(c.Request.Context(), "log_level.changed", "system", "logger", actor.Label(),
			map[string]any{"level": req.Level}); err != nil {
			logger.Warn("audit log write failed", zap.Error(err), zap.String("action", "log_level.changed"))
		}
	}

	c.JSON(http.StatusOK, LogLevel{Level: logger.GetLevel().String()})
}
