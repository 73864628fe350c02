// Package middleware provides the HTTP middleware chain of the Project
// Pulse API.
package middleware

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	apperrors "projectpulse.io/pulse/internal/pkg/errors"
	"projectpulse.io/pulse/internal/pkg/logger"
)

// ErrorHandler captures errors added via c.Error() and renders them as
// {code, message[, params, fieldErrors]} JSON.
func ErrorHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Next()

		if len(c.Errors) == 0 || c.Writer.Written() {
			return
		}

		err := c.Errors.Last().Err
		rid := GetRequestID(c.Request.Context())

		var appErr *apperrors.AppError
		if errors.As(err, &appErr) {
			logger.Warn("Request error",
				zap.String("request_id", rid),
				zap.String("code", appErr.Code),
				zap.String("message", appErr.Message),
				zap.Int("status", appErr.HTTPStatus),
				zap.Error(appErr.Err),
			)
			c.JSON(appErr.HTTPStatus, appErr)
			return
		}

		if code, status, ok := sentinelStatus(err); ok {
			logger.Warn("Request error", zap.String("request_id", rid), zap.String("code", code), zap.Error(err))
			c.JSON(status, gin.H{"code": code, "message": err.Error()})
			return
		}

		logger.Error("Unhandled request error", zap.String("request_id", rid), zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{
			"code":    apperrors.CodeInternal,
			"message": "An internal error occurred",
		})
	}
}

func sentinelStatus(err error) (string, int, bool) {
	switch {
	case errors.Is(err, apperrors.ErrNotFound):
		return apperrors.CodeNotFound, http.StatusNotFound, true
	case errors.Is(err, apperrors.ErrConflict):
		return "CONFLICT", http.StatusConflict, true
	case errors.Is(err, apperrors.ErrInvalid):
		return apperrors.CodeInvalidRequest, http.StatusBadRequest, true
	case errors.Is(err, apperrors.ErrForbidden):
		return apperrors.CodeForbidden, http.StatusForbidden, true
	case errors.Is(err, apperrors.ErrUnauthorized):
		return apperrors.CodeUnauthorized, http.StatusUnauthorized, true
	default:
		return "", 0, false
	}
}
