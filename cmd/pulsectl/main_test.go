package main

import (
	"bytes"
	"context"
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"projectpulse.io/pulse/internal/api/middleware"
	"projectpulse.io/pulse/internal/domain"
	"projectpulse.io/pulse/internal/notification"
	"projectpulse.io/pulse/internal/repository"
	"projectpulse.io/pulse/internal/seed"
)

const testSigningKey = "pulsectl-test-signing-key-0123456789abcdef"

func writeConfig(t *testing.T) string {
	t.Helper()
	return writeConfigIn(t, t.TempDir())
}

func writeConfigIn(t *testing.T, dir string) string {
	t.Helper()
	path := filepath.Join(dir, "config.yaml")
	doc := `
database:
  driver: sqlite
  sqlite_path: ` + filepath.Join(dir, "pulse.db") + `
log:
  level: error
security:
  jwt_signing_key: ` + testSigningKey + `
  default_password: demo-password
worker:
  general_pool_size: 4
  jobs_pool_size: 2
`
	require.NoError(t, os.WriteFile(path, []byte(doc), 0o600))
	return path
}

func run(t *testing.T, args ...string) (string, error) {
	t.Helper()
	cmd := newRootCmd()
	var out bytes.Buffer
	cmd.SetOut(&out)
	cmd.SetErr(&out)
	cmd.SetArgs(args)
	err := cmd.ExecuteContext(context.Background())
	return out.String(), err
}

func TestMigrate(t *testing.T) {
	cfg := writeConfig(t)

	out, err := run(t, "migrate", "--config", cfg)
	require.NoError(t, err)
	assert.Contains(t, out, "schema at version")
}

func TestSeed_Idempotent(t *testing.T) {
	cfg := writeConfig(t)

	out, err := run(t, "seed", "--config", cfg)
	require.NoError(t, err)
	var res seed.Result
	require.NoError(t, json.Unmarshal([]byte(out), &res))
	assert.Equal(t, seed.Result{UsersCreated: 3, ProjectsCreated: 5}, res)

	out, err = run(t, "seed", "--config", cfg)
	require.NoError(t, err)
	require.NoError(t, json.Unmarshal([]byte(out), &res))
	assert.Equal(t, seed.Result{UsersSkipped: 3, ProjectsSkipped: 5}, res)
}

func TestToken(t *testing.T) {
	cfg := writeConfig(t)
	_, err := run(t, "seed", "--config", cfg)
	require.NoError(t, err)

	for _, user := range []string{"1", "mike@projectpulse.com"} {
		t.Run(user, func(t *testing.T) {
			out, err := run(t, "token", "--config", cfg, "--user", user)
			require.NoError(t, err)

			jwtCfg := middleware.JWTConfig{SigningKey: []byte(testSigningKey), Issuer: "project-pulse", ExpiresIn: time.Hour}
			claims, err := jwtCfg.ValidateToken(context.Background(), strings.TrimSpace(out))
			require.NoError(t, err)
			assert.NotEmpty(t, claims.UserID)
		})
	}

	_, err = run(t, "token", "--config", cfg, "--user", "ghost@projectpulse.com")
	assert.Error(t, err)

	_, err = run(t, "token", "--config", cfg)
	assert.Error(t, err, "--user is required")
}

func TestReconcile(t *testing.T) {
	cfg := writeConfig(t)
	_, err := run(t, "seed", "--config", cfg)
	require.NoError(t, err)

	out, err := run(t, "reconcile", "--config", cfg)
	require.NoError(t, err)
	var res notification.Result
	require.NoError(t, json.Unmarshal([]byte(out), &res))
	assert.Equal(t, 5, res.Projects)
}

func TestExport(t *testing.T) {
	cfg := writeConfig(t)
	_, err := run(t, "seed", "--config", cfg)
	require.NoError(t, err)

	out, err := run(t, "export", "--config", cfg, "--department", "finance")
	require.NoError(t, err)
	lines := strings.Split(strings.TrimRight(out, "\n"), "\n")
	require.Len(t, lines, 2)
	assert.True(t, strings.HasPrefix(lines[1], `"Financial System Upgrade","Emma Wilson"`))

	file := filepath.Join(t.TempDir(), "projects.xlsx")
	_, err = run(t, "export", "--config", cfg, "--format", "xlsx", "-o", file)
	require.NoError(t, err)
	data, err := os.ReadFile(file)
	require.NoError(t, err)
	assert.Equal(t, "PK", string(data[:2]))

	_, err = run(t, "export", "--config", cfg, "--format", "pdf")
	assert.Error(t, err)
}

func TestUsers(t *testing.T) {
	cfg := writeConfig(t)
	_, err := run(t, "seed", "--config", cfg)
	require.NoError(t, err)

	out, err := run(t, "users", "--config", cfg)
	require.NoError(t, err)
	assert.Contains(t, out, "EMAIL")
	assert.Contains(t, out, "john@projectpulse.com")
	assert.Contains(t, out, repository.ManagerEmail("Emma Wilson"))
}

func TestExtensions(t *testing.T) {
	dir := t.TempDir()
	cfg := writeConfigIn(t, dir)
	_, err := run(t, "seed", "--config", cfg)
	require.NoError(t, err)

	ctx := context.Background()
	store, err := repository.OpenSQLite(ctx, filepath.Join(dir, "pulse.db"))
	require.NoError(t, err)
	projects, err := store.ListProjects(ctx, repository.ProjectFilter{Search: "Financial System Upgrade"})
	require.NoError(t, err)
	require.Len(t, projects, 1)
	req := domain.Notification{
		ID:              "req-1",
		Type:            domain.NotifyExtensionRequest,
		ProjectID:       projects[0].ID,
		ProjectName:     projects[0].Name,
		Message:         "Extension requested for " + projects[0].Name,
		ExtensionReason: "Auditors asked for more time",
		ActionRequired:  true,
		UserID:          "1",
		CreatedAt:       time.Now().UTC(),
	}
	require.NoError(t, store.InsertNotifications(ctx, []domain.Notification{req}))
	require.NoError(t, store.Close())

	out, err := run(t, "extensions", "list", "--config", cfg)
	require.NoError(t, err)
	assert.Contains(t, out, "req-1")
	assert.Contains(t, out, "Auditors asked for more time")

	out, err = run(t, "extensions", "reject", "req-1", "--config", cfg)
	require.NoError(t, err)
	var resp domain.Notification
	require.NoError(t, json.Unmarshal([]byte(out), &resp))
	assert.Equal(t, domain.NotifyExtensionRejected, resp.Type)
	assert.Equal(t, "Extension request for Financial System Upgrade was rejected", resp.Message)

	_, err = run(t, "extensions", "approve", "req-1", "--config", cfg)
	assert.Error(t, err, "already resolved")

	out, err = run(t, "extensions", "list", "--config", cfg)
	require.NoError(t, err)
	assert.NotContains(t, out, "req-1")
}
