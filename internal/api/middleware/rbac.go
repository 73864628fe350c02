package middleware

import (
	"net/http"
	"slices"

	"github.com/gin-gonic/gin"

	"projectpulse.io/pulse/internal/domain"
)

// Permissions granted through roles.
const (
	PermPlatformAdmin    = "platform:admin"
	PermProjectRead      = "project:read"
	PermProjectWrite     = "project:write"
	PermProjectExport    = "project:export"
	PermNotificationRead = "notification:read"
	PermExtensionRequest = "extension:request"
	PermExtensionReview  = "extension:review"
)

var rolePermissions = map[domain.Role][]string{
	domain.RoleAdmin: {PermPlatformAdmin},
	domain.RoleDepartment: {
		PermProjectRead, PermProjectWrite, PermProjectExport,
		PermNotificationRead, PermExtensionRequest,
	},
	domain.RoleProject: {
		PermProjectRead, PermProjectWrite, PermProjectExport,
		PermNotificationRead, PermExtensionRequest,
	},
}

// PermissionsForRole returns the permissions granted to role.
func PermissionsForRole(role domain.Role) []string {
	return slices.Clone(rolePermissions[role])
}

// HasPermission reports whether the authenticated caller holds permission.
// platform:admin implies every permission.
func HasPermission(c *gin.Context, permission string) bool {
	perms, exists := c.Get("permissions")
	if !exists {
		return false
	}
	permList, ok := perms.([]string)
	if !ok {
		return false
	}
	return slices.Contains(permList, PermPlatformAdmin) || slices.Contains(permList, permission)
}

// RequirePermission returns middleware that checks if the authenticated user
// has a specific permission (from their role).
func RequirePermission(permission string) gin.HandlerFunc {
	return func(c *gin.Context) {
		if _, exists := c.Get("permissions"); !exists {
			c.AbortWithStatusJSON(http.StatusForbidden, gin.H{
				"code": "FORBIDDEN", "message": "no permissions in context",
			})
			return
		}
		if !HasPermission(c, permission) {
			c.AbortWithStatusJSON(http.StatusForbidden, gin.H{
				"code": "FORBIDDEN", "message": "insufficient permissions",
			})
			return
		}
		c.Next()
	}
}
