package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoad_Defaults(t *testing.T) {
	t.Setenv("SECURITY_JWT_SIGNING_KEY", "")
	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, 8080, cfg.Server.Port)
	assert.Equal(t, 30*time.Second, cfg.Server.ReadTimeout)
	assert.Equal(t, []string{"http://localhost:3000"}, cfg.Server.AllowedOrigins)
	assert.True(t, cfg.Server.OpenAPIValidation)

	assert.Equal(t, DriverSQLite, cfg.Database.Driver)
	assert.Equal(t, "project-pulse.db", cfg.Database.SQLitePath)
	assert.EqualValues(t, 20, cfg.Database.MaxConns)

	assert.Equal(t, "info", cfg.Log.Level)
	assert.Equal(t, "json", cfg.Log.Format)

	assert.Equal(t, time.Minute, cfg.Engine.ReconcileInterval)
	assert.Equal(t, "1", cfg.Engine.OwnerUserID)
	assert.Equal(t, 90*24*time.Hour, cfg.Engine.NotificationRetention)
	assert.Equal(t, 12*time.Hour, cfg.Security.TokenTTL)

	assert.Len(t, cfg.Security.JWTSigningKey, 64, "generated key is 32 random bytes hex encoded")
}

func TestLoad_EnvOverrides(t *testing.T) {
	t.Setenv("DATABASE_DRIVER", "postgres")
	t.Setenv("DATABASE_URL", "postgres://pulse:secret@db:5432/pulse?sslmode=disable")
	t.Setenv("SERVER_ALLOWED_ORIGINS", "https://pulse.example.com")
	t.Setenv("ENGINE_RECONCILE_INTERVAL", "30s")
	t.Setenv("SECURITY_JWT_SIGNING_KEY", "0123456789abcdef0123456789abcdef")

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, DriverPostgres, cfg.Database.Driver)
	assert.Equal(t, "postgres://pulse:secret@db:5432/pulse?sslmode=disable", cfg.Database.DSN())
	assert.Equal(t, []string{"https://pulse.example.com"}, cfg.Server.AllowedOrigins)
	assert.Equal(t, 30*time.Second, cfg.Engine.ReconcileInterval)
	assert.Equal(t, "0123456789abcdef0123456789abcdef", cfg.Security.JWTSigningKey)
}

func TestLoadFile(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "pulse.yaml")
	require.NoError(t, os.WriteFile(path, []byte(`
server:
  port: 9090
engine:
  owner_user_id: "42"
log:
  level: debug
`), 0o600))

	cfg, err := LoadFile(path)
	require.NoError(t, err)
	assert.Equal(t, 9090, cfg.Server.Port)
	assert.Equal(t, "42", cfg.Engine.OwnerUserID)
	assert.Equal(t, "debug", cfg.Log.Level)

	_, err = LoadFile(filepath.Join(dir, "missing.yaml"))
	assert.Error(t, err, "an explicit file must exist")
}

func TestDatabaseConfig_DSN(t *testing.T) {
	c := DatabaseConfig{User: "pulse", Password: "pw", Host: "db", Port: 5433, Database: "pp"}
	assert.Equal(t, "postgres://pulse:pw@db:5433/pp?sslmode=disable", c.DSN())

	c.SSLMode = "require"
	assert.Equal(t, "postgres://pulse:pw@db:5433/pp?sslmode=require", c.DSN())

	c.URL = "postgres://override"
	assert.Equal(t, "postgres://override", c.DSN())
}

func TestValidate(t *testing.T) {
	valid := func() *Config {
		return &Config{
			Database: DatabaseConfig{Driver: DriverSQLite, SQLitePath: "x.db"},
			Security: SecurityConfig{JWTSigningKey: "0123456789abcdef0123456789abcdef", TokenTTL: time.Hour},
			Engine:   EngineConfig{ReconcileInterval: time.Minute, OwnerUserID: "1"},
		}
	}
	require.NoError(t, valid().Validate())

	tests := []struct {
		name   string
		mutate func(c *Config)
	}{
		{"unknown driver", func(c *Config) { c.Database.Driver = "mysql" }},
		{"sqlite without path", func(c *Config) { c.Database.SQLitePath = "" }},
		{"short signing key", func(c *Config) { c.Security.JWTSigningKey = "short" }},
		{"zero token ttl", func(c *Config) { c.Security.TokenTTL = 0 }},
		{"sub-second interval", func(c *Config) { c.Engine.ReconcileInterval = 10 * time.Millisecond }},
		{"no owner", func(c *Config) { c.Engine.OwnerUserID = "" }},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c := valid()
			tt.mutate(c)
			assert.Error(t, c.Validate())
		})
	}
}

func TestEnsureSecrets_PreservesProvidedKey(t *testing.T) {
	c := &Config{Security: SecurityConfig{JWTSigningKey: "keep-me"}}
	require.NoError(t, c.ensureSecrets())
	assert.Equal(t, "keep-me", c.Security.JWTSigningKey)
}
