package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"

	"projectpulse.io/pulse/internal/domain"
)

func TestPermissionsForRole(t *testing.T) {
	t.Parallel()

	assert.Equal(t, []string{PermPlatformAdmin}, PermissionsForRole(domain.RoleAdmin))
	assert.Contains(t, PermissionsForRole(domain.RoleDepartment), PermProjectExport)
	assert.NotContains(t, PermissionsForRole(domain.RoleProject), PermExtensionReview)
	assert.Empty(t, PermissionsForRole(domain.Role("guest")))

	perms := PermissionsForRole(domain.RoleProject)
	perms[0] = "mutated"
	assert.NotEqual(t, "mutated", PermissionsForRole(domain.RoleProject)[0])
}

func TestRequirePermission(t *testing.T) {
	tests := []struct {
		name  string
		perms []string
		set   bool
		want  int
	}{
		{"no permissions in context", nil, false, http.StatusForbidden},
		{"missing permission", []string{PermProjectRead}, true, http.StatusForbidden},
		{"has permission", []string{PermExtensionReview}, true, http.StatusOK},
		{"platform admin", []string{PermPlatformAdmin}, true, http.StatusOK},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			router := gin.New()
			router.Use(func(c *gin.Context) {
				if tt.set {
					c.Set("permissions", tt.perms)
				}
				c.Next()
			})
			router.POST("/review", RequirePermission(PermExtensionReview), func(c *gin.Context) {
				c.Status(http.StatusOK)
			})

			w := httptest.NewRecorder()
			router.ServeHTTP(w, httptest.NewRequest(http.MethodPost, "/review", nil))
			assert.Equal(t, tt.want, w.Code)
		})
	}
}
