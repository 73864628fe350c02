// Package infrastructure opens the database and the job queue client.
//
// On PostgreSQL one pgxpool is shared by the sqlx store and River so that
// store writes and job inserts can share a transaction. SQLite runs the
// store alone; scheduled jobs then run in-process (see jobs.LocalScheduler).
package infrastructure

import (
	"context"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/jackc/pgx/v5/stdlib"
	"github.com/jmoiron/sqlx"
	"github.com/riverqueue/river"
	"github.com/riverqueue/river/riverdriver/riverpgxv5"
	"github.com/riverqueue/river/rivermigrate"
	"go.uber.org/zap"

	"projectpulse.io/pulse/internal/config"
	"projectpulse.io/pulse/internal/pkg/logger"
	"projectpulse.io/pulse/internal/repository"
)

// DatabaseClients holds every database handle of the process.
type DatabaseClients struct {
	// Pool is the shared pgx pool; nil on SQLite.
	Pool *pgxpool.Pool

	// Store is the sqlx store over Pool (PostgreSQL) or the SQLite file.
	Store *repository.Store

	// RiverClient is set by InitRiverClient; nil on SQLite.
	RiverClient *river.Client[pgx.Tx]
}

// NewDatabaseClients opens the configured database.
func NewDatabaseClients(ctx context.Context, cfg config.DatabaseConfig) (*DatabaseClients, error) {
	switch cfg.Driver {
	case config.DriverSQLite:
		store, err := repository.OpenSQLite(ctx, cfg.SQLitePath)
		if err != nil {
			return nil, err
		}
		if err := store.Ping(ctx); err != nil {
			store.Close()
			return nil, fmt.Errorf("ping sqlite: %w", err)
		}
		logger.Info("SQLite database opened", zap.String("path", cfg.SQLitePath))
		return &DatabaseClients{Store: store}, nil
	case config.DriverPostgres:
		return newPostgresClients(ctx, cfg)
	default:
		return nil, fmt.Errorf("unsupported database driver %q", cfg.Driver)
	}
}

func newPostgresClients(ctx context.Context, cfg config.DatabaseConfig) (*DatabaseClients, error) {
	poolConfig, err := pgxpool.ParseConfig(cfg.DSN())
	if err != nil {
		return nil, fmt.Errorf("parse pool config: %w", err)
	}
	if cfg.MaxConns > 0 {
		poolConfig.MaxConns = cfg.MaxConns
	}
	poolConfig.MinConns = cfg.MinConns
	if cfg.MaxConnLifetime > 0 {
		poolConfig.MaxConnLifetime = cfg.MaxConnLifetime
	}
	if cfg.MaxConnIdleTime > 0 {
		poolConfig.MaxConnIdleTime = cfg.MaxConnIdleTime
	}
	poolConfig.HealthCheckPeriod = time.Minute
	poolConfig.AfterConnect = func(ctx context.Context, conn *pgx.Conn) error {
		_, err := conn.Exec(ctx, "SET timezone = 'UTC'")
		return err
	}

	pool, err := pgxpool.NewWithConfig(ctx, poolConfig)
	if err != nil {
		return nil, fmt.Errorf("create pool: %w", err)
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("ping database: %w", err)
	}

	db := sqlx.NewDb(stdlib.OpenDBFromPool(pool), repository.DriverPostgres)

	logger.Info("Database connection pool created",
		zap.Int32("max_conns", poolConfig.MaxConns),
		zap.Int32("min_conns", poolConfig.MinConns),
	)

	return &DatabaseClients{
		Pool:  pool,
		Store: repository.New(db),
	}, nil
}

// UsesRiver reports whether jobs run through River.
func (c *DatabaseClients) UsesRiver() bool {
	return c.Pool != nil
}

// AutoMigrate applies the store schema and, on PostgreSQL, River's tables.
func (c *DatabaseClients) AutoMigrate(ctx context.Context) error {
	logger.Info("Running store migration...", zap.String("driver", c.Store.Driver()))
	if err := c.Store.Migrate(ctx); err != nil {
		return fmt.Errorf("store migrate: %w", err)
	}

	if c.Pool == nil {
		return nil
	}

	migrator, err := rivermigrate.New(riverpgxv5.New(c.Pool), nil)
	if err != nil {
		return fmt.Errorf("create river migrator: %w", err)
	}
	res, err := migrator.Migrate(ctx, rivermigrate.DirectionUp, nil)
	if err != nil {
		return fmt.Errorf("river migrate up: %w", err)
	}
	if len(res.Versions) > 0 {
		logger.Info("River migration completed", zap.Int("versions_applied", len(res.Versions)))
	} else {
		logger.Info("River migration: already up-to-date")
	}
	return nil
}

// InitRiverClient creates the River client. It is a no-op on SQLite.
func (c *DatabaseClients) InitRiverClient(workers *river.Workers, cfg config.RiverConfig) error {
	if c.Pool == nil {
		return nil
	}
	maxWorkers := cfg.MaxWorkers
	if maxWorkers <= 0 {
		maxWorkers = 1
	}
	riverClient, err := river.NewClient(riverpgxv5.New(c.Pool), &river.Config{
		Queues: map[string]river.QueueConfig{
			river.QueueDefault: {MaxWorkers: maxWorkers},
		},
		Workers:                     workers,
		CompletedJobRetentionPeriod: cfg.CompletedJobRetentionPeriod,
	})
	if err != nil {
		return fmt.Errorf("create river client: %w", err)
	}
	c.RiverClient = riverClient
	logger.Info("River client initialized", zap.Int("max_workers", maxWorkers))
	return nil
}

// Close releases all handles.
func (c *DatabaseClients) Close() {
	if c.Store != nil {
		_ = c.Store.Close()
	}
	if c.Pool != nil {
		c.Pool.Close()
	}
}
