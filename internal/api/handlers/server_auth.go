package handlers

import (
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
	"golang.org/x/crypto/bcrypt"

	"projectpulse.io/pulse/internal/api/middleware"
	"projectpulse.io/pulse/internal/domain"
	apperrors "projectpulse.io/pulse/internal/pkg/errors"
	"projectpulse.io/pulse/internal/pkg/logger"
	"projectpulse.io/pulse/internal/repository"
)

const (
	passwordHashCost  = 12
	minPasswordLength = 8
)

// LoginRequest is the POST /auth/login payload.
type LoginRequest struct {
	Email    string `json:"email" binding:"required"`
	Password string `json:"password" binding:"required"`
}

// LoginResponse carries the signed token and the signed-in user.
type LoginResponse struct {
	Token     string    `json:"token"`
	ExpiresAt time.Time `json:"expiresAt"`
	User      UserInfo  `json:"user"`
}

// UserInfo is a user as seen by the API, with the permissions of its role.
type UserInfo struct {
	ID          string            `json:"id"`
	Name        string            `json:"name"`
	Email       string            `json:"email"`
	Role        domain.Role       `json:"role"`
	Department  domain.Department `json:"department,omitempty"`
	Permissions []string          `json:"permissions"`
	CreatedAt   time.Time         `json:"createdAt"`
}

// ChangePasswordRequest is the POST /auth/change-password payload.
type ChangePasswordRequest struct {
	OldPassword string `json:"oldPassword" binding:"required"`
	NewPassword string `json:"newPassword" binding:"required"`
}

// HashPassword hashes a plaintext password with the API's bcrypt cost.
func HashPassword(password string) (string, error) {
	hash, err := bcrypt.GenerateFromPassword([]byte(password), passwordHashCost)
	if err != nil {
		return "", err
	}
	return string(hash), nil
}

func newUserInfo(u domain.User) UserInfo {
	return UserInfo{
		ID:          u.ID,
		Name:        u.Name,
		Email:       u.Email,
		Role:        u.Role,
		Department:  u.Department,
		Permissions: middleware.PermissionsForRole(u.Role),
		CreatedAt:   u.CreatedAt,
	}
}

// Login handles POST /auth/login.
func (s *Server) Login(c *gin.Context) {
	var req LoginRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		_ = c.Error(apperrors.BadRequest(apperrors.CodeInvalidRequest, "email and password are required"))
		return
	}
	email := strings.ToLower(strings.TrimSpace(req.Email))

	user, err := s.users.GetUserByEmail(c.Request.Context(), email)
	if err != nil {
		if !errors.Is(err, repository.ErrNotFound) {
			_ = c.Error(err)
			return
		}
		logger.Warn("login failed: invalid credentials")
		_ = c.Error(apperrors.FromCode(apperrors.CodeInvalidCredentials, "invalid email or password"))
		return
	}

	if err := bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(req.Password)); err != nil {
		logger.Warn("login failed: invalid credentials", zap.String("user_id", user.ID))
		_ = c.Error(apperrors.FromCode(apperrors.CodeInvalidCredentials, "invalid email or password"))
		return
	}

	token, expiresAt, err := middleware.GenerateToken(s.jwtCfg, user)
	if err != nil {
		logger.Error("failed to generate token", zap.Error(err))
		_ = c.Error(apperrors.Wrap(err, apperrors.CodeInternal, "failed to issue token", http.StatusInternalServerError))
		return
	}

	if s.audit != nil {
		if err := s.audit.LogAction(c.Request.Context(), "user.login", "user", user.ID, user.ID, nil); err != nil {
			logger.Warn("audit log write failed",
				zap.Error(err),
				zap.String("action", "user.login"),
				zap.String("user_id", user.ID),
			)
		}
	}

	c.JSON(http.StatusOK, LoginResponse{
		Token:     token,
		ExpiresAt: expiresAt.UTC(),
		User:      newUserInfo(user),
	})
}

// GetCurrentUser handles GET /auth/me.
func (s *Server) GetCurrentUser(c *gin.Context) {
	userID := middleware.GetUserID(c.Request.Context())
	if userID == "" {
		_ = c.Error(apperrors.FromCode(apperrors.CodeUnauthorized, "not authenticated"))
		return
	}

	user, err := s.users.GetUserByID(c.Request.Context(), userID)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			_ = c.Error(apperrors.FromCode(apperrors.CodeUnauthorized, "user no longer exists"))
			return
		}
		_ = c.Error(err)
		return
	}

	c.JSON(http.StatusOK, newUserInfo(user))
}

// ChangePassword handles POST /auth/change-password.
func (s *Server) ChangePassword(c *gin.Context) {
	userID := middleware.GetUserID(c.Request.Context())
	if userID == "" {
		_ = c.Error(apperrors.FromCode(apperrors.CodeUnauthorized, "not authenticated"))
		return
	}

	var req ChangePasswordRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		_ = c.Error(apperrors.BadRequest(apperrors.CodeInvalidRequest, "oldPassword and newPassword are required"))
		return
	}
	if len(req.NewPassword) < minPasswordLength {
		_ = c.Error(apperrors.Validation(apperrors.FieldError{
			Field:   "newPassword",
			Code:    "TOO_SHORT",
			Message: "password must be at least 8 characters",
		}))
		return
	}

	user, err := s.users.GetUserByID(c.Request.Context(), userID)
	if err != nil {
		_ = c.Error(err)
		return
	}
	if err := bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(req.OldPassword)); err != nil {
		_ = c.Error(apperrors.FromCode(apperrors.CodeInvalidCredentials, "current password is incorrect"))
		return
	}

	hash, err := HashPassword(req.NewPassword)
	if err != nil {
		logger.Error("failed to hash new password", zap.Error(err), zap.String("user_id", userID))
		_ = c.Error(err)
		return
	}
	if err := s.users.SetPassword(c.Request.Context(), userID, hash); err != nil {
		logger.Error("failed to update password", zap.Error(err), zap.String("user_id", userID))
		_ = c.Error(err)
		return
	}

	if s.audit != nil {
		if err := s.audit.LogAction(c.Request.Context(), "user.password_change", "user", userID, userID,
			map[string]any{"reason": "user_initiated"}); err != nil {
			logger.Warn("audit log write failed",
				zap.Error(err),
				zap.String("action", "user.password_change"),
				zap.String("user_id", userID),
			)
		}
	}

	c.Status(http.StatusNoContent)
}
