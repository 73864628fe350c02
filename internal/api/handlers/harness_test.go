package handlers

import (
	"bytes"
	"encoding/json"
	"io"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/require"

	"projectpulse.io/pulse/internal/api/middleware"
	"projectpulse.io/pulse/internal/domain"
	"projectpulse.io/pulse/internal/governance/approval"
	"projectpulse.io/pulse/internal/governance/audit"
	"projectpulse.io/pulse/internal/notification"
	"projectpulse.io/pulse/internal/pkg/logger"
	"projectpulse.io/pulse/internal/repository"
	"projectpulse.io/pulse/internal/service"
	"projectpulse.io/pulse/internal/testutil"
)

func init() {
	gin.SetMode(gin.TestMode)
	_ = logger.Init("error", "json")
}

const testBaseURL = "/api/v1"

var testJWT = middleware.JWTConfig{
	SigningKey: []byte("handlers-test-signing-key-0123456789abcdef"),
	Issuer:     "project-pulse-test",
	ExpiresIn:  time.Hour,
}

type harness struct {
	t      *testing.T
	router *gin.Engine
	store  *repository.Store
	admin  domain.User
}

func newHarness(t *testing.T) *harness {
	t.Helper()
	store := testutil.NewTestStore(t)
	admin := testutil.MustCreateUser(t, store, domain.User{
		ID:    "1",
		Name:  "John Admin",
		Email: "john.admin@projectpulse.com",
		Role:  domain.RoleAdmin,
	})

	auditLogger := audit.NewLogger(store)
	engine := notification.NewEngine(admin.ID)
	sender := notification.NewInboxSender(store)
	projects := service.NewProjectService(store, auditLogger, nil)
	gateway := approval.NewGateway(store, engine, sender, auditLogger)
	reconciler := notification.NewReconciler(engine, store, sender)

	srv := NewServer(ServerDeps{
		Users:         store,
		Health:        store,
		JWTCfg:        testJWT,
		Audit:         auditLogger,
		Projects:      projects,
		Notifications: service.NewNotificationService(store, projects, gateway, reconciler),
		Dashboard:     service.NewDashboardService(projects),
	})

	router := gin.New()
	router.Use(middleware.RequestID(), middleware.ErrorHandler())
	auth := middleware.JWTAuth(testJWT)
	router.Use(func(c *gin.Context) {
		p := c.Request.URL.Path
		if p == testBaseURL+"/auth/login" || p == testBaseURL+"/openapi.yaml" || strings.HasPrefix(p, testBaseURL+"/health/") {
			c.Next()
			return
		}
		auth(c)
	})
	RegisterHandlers(router, srv, RouteOptions{BaseURL: testBaseURL})

	return &harness{t: t, router: router, store: store, admin: admin}
}

func (h *harness) token(u domain.User) string {
	h.t.Helper()
	tok, _, err := middleware.GenerateToken(testJWT, u)
	require.NoError(h.t, err)
	return tok
}

// do sends a request as u; a zero user sends no Authorization header.
func (h *harness) do(method, path string, u domain.User, body any) *httptest.ResponseRecorder {
	h.t.Helper()
	var r io.Reader
	if body != nil {
		b, err := json.Marshal(body)
		require.NoError(h.t, err)
		r = bytes.NewReader(b)
	}
	req := httptest.NewRequest(method, testBaseURL+path, r)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if u.ID != "" {
		req.Header.Set("Authorization", "Bearer "+h.token(u))
	}
	w := httptest.NewRecorder()
	h.router.ServeHTTP(w, req)
	return w
}

func decode[T any](t *testing.T, w *httptest.ResponseRecorder) T {
	t.Helper()
	var v T
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &v), w.Body.String())
	return v
}

func requireCode(t *testing.T, w *httptest.ResponseRecorder, status int, code string) {
	t.Helper()
	require.Equal(t, status, w.Code, w.Body.String())
	body := decode[map[string]any](t, w)
	require.Equal(t, code, body["code"])
}
