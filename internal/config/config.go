// Package config loads Project Pulse configuration.
//
// Sources, lowest to highest precedence:
//  1. defaults (setDefaults)
//  2. config.yaml in ., ./config or /etc/project-pulse (optional)
//  3. environment variables: database.url -> DATABASE_URL, server.port -> SERVER_PORT
package config

import (
	"crypto/rand"
	"encoding/hex"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/spf13/viper"
	"go.uber.org/zap"
)

// Database drivers.
const (
	DriverPostgres = "postgres"
	DriverSQLite   = "sqlite"
)

// Config is the root configuration.
type Config struct {
	Server   ServerConfig   `mapstructure:"server"`
	Database DatabaseConfig `mapstructure:"database"`
	Log      LogConfig      `mapstructure:"log"`
	River    RiverConfig    `mapstructure:"river"`
	Security SecurityConfig `mapstructure:"security"`
	Worker   WorkerConfig   `mapstructure:"worker"`
	Engine   EngineConfig   `mapstructure:"engine"`
}

// ServerConfig contains HTTP server settings.
type ServerConfig struct {
	Port            int           `mapstructure:"port"`
	ReadTimeout     time.Duration `mapstructure:"read_timeout"`
	WriteTimeout    time.Duration `mapstructure:"write_timeout"`
	ShutdownTimeout time.Duration `mapstructure:"shutdown_timeout"`

	AllowedOrigins   []string `mapstructure:"allowed_origins"`
	AllowCredentials bool     `mapstructure:"allow_credentials"`
	// UnsafeAllowAllOrigins honours "*" in AllowedOrigins and disables credentials.
	UnsafeAllowAllOrigins bool `mapstructure:"unsafe_allow_all_origins"`

	// OpenAPIValidation checks requests against the embedded API contract.
	OpenAPIValidation bool `mapstructure:"openapi_validation"`
}

// DatabaseConfig selects and configures the store.
type DatabaseConfig struct {
	Driver string `mapstructure:"driver"`

	URL      string `mapstructure:"url"`
	Host     string `mapstructure:"host"`
	Port     int    `mapstructure:"port"`
	User     string `mapstructure:"user"`
	Password string `mapstructure:"password"`
	Database string `mapstructure:"database"`
	SSLMode  string `mapstructure:"sslmode"`

	MaxConns        int32         `mapstructure:"max_conns"`
	MinConns        int32         `mapstructure:"min_conns"`
	MaxConnLifetime time.Duration `mapstructure:"max_conn_lifetime"`
	MaxConnIdleTime time.Duration `mapstructure:"max_conn_idle_time"`

	// SQLitePath is used when Driver is sqlite.
	SQLitePath string `mapstructure:"sqlite_path"`

	AutoMigrate bool `mapstructure:"auto_migrate"`
}

// DSN returns the PostgreSQL connection string, DATABASE_URL first.
func (c DatabaseConfig) DSN() string {
	if c.URL != "" {
		return c.URL
	}
	sslmode := c.SSLMode
	if sslmode == "" {
		sslmode = "disable"
	}
	return fmt.Sprintf(
		"postgres://%s:%s@%s:%d/%s?sslmode=%s",
		c.User, c.Password, c.Host, c.Port, c.Database, sslmode,
	)
}

// LogConfig contains logging settings.
type LogConfig struct {
	Level  string `mapstructure:"level"`
	Format string `mapstructure:"format"` // json or console
}

// RiverConfig contains River queue settings.
type RiverConfig struct {
	MaxWorkers                  int           `mapstructure:"max_workers"`
	CompletedJobRetentionPeriod time.Duration `mapstructure:"completed_job_retention_period"`
}

// SecurityConfig contains authentication settings.
type SecurityConfig struct {
	JWTSigningKey string        `mapstructure:"jwt_signing_key"`
	JWTIssuer     string        `mapstructure:"jwt_issuer"`
	TokenTTL      time.Duration `mapstructure:"token_ttl"`
	// DefaultPassword is assigned to seeded accounts.
	DefaultPassword string `mapstructure:"default_password"`
}

// WorkerConfig sizes the goroutine pools.
type WorkerConfig struct {
	GeneralPoolSize int `mapstructure:"general_pool_size"`
	JobsPoolSize    int `mapstructure:"jobs_pool_size"`
}

// EngineConfig tunes status and notification derivation.
type EngineConfig struct {
	ReconcileInterval     time.Duration `mapstructure:"reconcile_interval"`
	OwnerUserID           string        `mapstructure:"owner_user_id"`
	NotificationRetention time.Duration `mapstructure:"notification_retention"`
	ReconcileOnChange     bool          `mapstructure:"reconcile_on_change"`
}

var (
	bootstrapLoggerOnce sync.Once
	bootstrapLogger     *zap.Logger
)

// Load reads configuration from the default locations.
func Load() (*Config, error) {
	return LoadFile("")
}

// LoadFile reads configuration from file, or from the default locations
// when file is empty.
func LoadFile(file string) (*Config, error) {
	v := viper.New()

	if file != "" {
		v.SetConfigFile(file)
	} else {
		v.SetConfigName("config")
		v.SetConfigType("yaml")
		v.AddConfigPath(".")
		v.AddConfigPath("./config")
		v.AddConfigPath("/etc/project-pulse")
	}

	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	setDefaults(v)

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if file != "" || !errors.As(err, &notFound) {
			return nil, fmt.Errorf("read config: %w", err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("unmarshal config: %w", err)
	}

	if err := cfg.ensureSecrets(); err != nil {
		return nil, fmt.Errorf("ensure secrets: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("validate config: %w", err)
	}
	return &cfg, nil
}

// Validate checks for configuration errors that would fail at runtime.
func (c *Config) Validate() error {
	switch c.Database.Driver {
	case DriverPostgres, DriverSQLite:
	default:
		return fmt.Errorf("database.driver %q must be %s or %s", c.Database.Driver, DriverPostgres, DriverSQLite)
	}
	if c.Database.Driver == DriverSQLite && c.Database.SQLitePath == "" {
		return fmt.Errorf("database.sqlite_path must be set for the sqlite driver")
	}
	if len(c.Security.JWTSigningKey) < 32 {
		return fmt.Errorf("security.jwt_signing_key must be at least 32 characters")
	}
	if c.Security.TokenTTL <= 0 {
		return fmt.Errorf("security.token_ttl must be positive")
	}
	if c.Engine.ReconcileInterval < time.Second {
		return fmt.Errorf("engine.reconcile_interval must be at least 1s, got %s", c.Engine.ReconcileInterval)
	}
	if c.Engine.OwnerUserID == "" {
		return fmt.Errorf("engine.owner_user_id must not be empty")
	}
	return nil
}

// ensureSecrets generates a signing key on first boot when none is set.
// Tokens stop validating after restart until JWT signing key is pinned.
func (c *Config) ensureSecrets() error {
	if c.Security.JWTSigningKey != "" {
		return nil
	}
	key, err := generateSecureRandomHex(32)
	if err != nil {
		return fmt.Errorf("auto-generate jwt signing key: %w", err)
	}
	c.Security.JWTSigningKey = key
	logBootstrapWarn(
		"auto-generated jwt_signing_key; set SECURITY_JWT_SIGNING_KEY to keep tokens valid across restarts",
		zap.Int("length", len(key)),
	)
	return nil
}

func logBootstrapWarn(msg string, fields ...zap.Field) {
	bootstrapLoggerOnce.Do(func() {
		cfg := zap.NewProductionConfig()
		cfg.Level = zap.NewAtomicLevelAt(zap.WarnLevel)
		l, err := cfg.Build()
		if err != nil {
			bootstrapLogger = zap.NewNop()
			return
		}
		bootstrapLogger = l
	})
	bootstrapLogger.Warn(msg, fields...)
}

func generateSecureRandomHex(n int) (string, error) {
	b := make([]byte, n)
	if _, err := rand.Read(b); err != nil {
		return "", fmt.Errorf("crypto/rand: %w", err)
	}
	return hex.EncodeToString(b), nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("server.port", 8080)
	v.SetDefault("server.read_timeout", "30s")
	v.SetDefault("server.write_timeout", "60s")
	v.SetDefault("server.shutdown_timeout", "30s")
	v.SetDefault("server.allowed_origins", []string{"http://localhost:3000"})
	v.SetDefault("server.allow_credentials", true)
	v.SetDefault("server.unsafe_allow_all_origins", false)
	v.SetDefault("server.openapi_validation", true)

	v.SetDefault("database.driver", DriverSQLite)
	v.SetDefault("database.url", "")
	v.SetDefault("database.host", "localhost")
	v.SetDefault("database.port", 5432)
	v.SetDefault("database.user", "pulse")
	v.SetDefault("database.password", "")
	v.SetDefault("database.database", "project_pulse")
	v.SetDefault("database.sslmode", "disable")
	v.SetDefault("database.max_conns", 20)
	v.SetDefault("database.min_conns", 2)
	v.SetDefault("database.max_conn_lifetime", "1h")
	v.SetDefault("database.max_conn_idle_time", "10m")
	v.SetDefault("database.sqlite_path", "project-pulse.db")
	v.SetDefault("database.auto_migrate", true)

	v.SetDefault("log.level", "info")
	v.SetDefault("log.format", "json")

	v.SetDefault("river.max_workers", 4)
	v.SetDefault("river.completed_job_retention_period", "24h")

	v.SetDefault("security.jwt_signing_key", "")
	v.SetDefault("security.jwt_issuer", "project-pulse")
	v.SetDefault("security.token_ttl", "12h")
	v.SetDefault("security.default_password", "pulse-demo")

	v.SetDefault("worker.general_pool_size", 50)
	v.SetDefault("worker.jobs_pool_size", 4)

	v.SetDefault("engine.reconcile_interval", "1m")
	v.SetDefault("engine.owner_user_id", "1")
	v.SetDefault("engine.notification_retention", "2160h")
	v.SetDefault("engine.reconcile_on_change", true)
}
