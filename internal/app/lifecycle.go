package app

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.uber.org/zap"

	"projectpulse.io/pulse/internal/pkg/logger"
)

const defaultShutdownTimeout = 30 * time.Second

// Start launches background work: River consumers on PostgreSQL, the local
// scheduler on SQLite.
func (a *Application) Start(ctx context.Context) error {
	if a.usesRiver() {
		if err := a.DB.RiverClient.Start(ctx); err != nil {
			return fmt.Errorf("start river client: %w", err)
		}
		logger.Info("River client started", zap.String("driver", a.DB.Store.Driver()))
	}
	if a.Scheduler != nil {
		if err := a.Scheduler.Start(ctx); err != nil {
			return fmt.Errorf("start local scheduler: %w", err)
		}
		logger.Info("Local scheduler started")
	}
	return nil
}

// Shutdown stops background work, then modules, pools and the database.
// Running reconcile and cleanup jobs get server.shutdown_timeout to finish;
// River jobs still running after that are cancelled. Safe to call twice.
func (a *Application) Shutdown() {
	a.shutdownOnce.Do(a.shutdown)
}

func (a *Application) shutdown() {
	timeout := defaultShutdownTimeout
	if a.Config != nil && a.Config.Server.ShutdownTimeout > 0 {
		timeout = a.Config.Server.ShutdownTimeout
	}
	ctx, cancel := context.WithTimeout(context.Background(), timeout)
	defer cancel()

	if a.Scheduler != nil {
		a.Scheduler.Stop()
		logger.Info("Local scheduler stopped")
	}
	if a.usesRiver() {
		a.stopRiver(ctx)
	}

	for _, mod := range a.Modules {
		if mod == nil {
			continue
		}
		if err := mod.Shutdown(ctx); err != nil {
			logger.Warn("Module shutdown failed", zap.String("module", mod.Name()), zap.Error(err))
		}
	}

	if a.Pools != nil {
		a.Pools.Shutdown()
	}
	if a.DB != nil {
		a.DB.Close()
	}
	logger.Info("Application stopped")
}

func (a *Application) stopRiver(ctx context.Context) {
	err := a.DB.RiverClient.Stop(ctx)
	if err == nil {
		logger.Info("River client stopped")
		return
	}
	if !errors.Is(err, context.DeadlineExceeded) {
		logger.Error("Stopping river client failed", zap.Error(err))
		return
	}

	logger.Warn("River jobs still running at shutdown deadline; cancelling them")
	hardCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := a.DB.RiverClient.StopAndCancel(hardCtx); err != nil {
		logger.Error("Cancelling river jobs failed", zap.Error(err))
	}
}

func (a *Application) usesRiver() bool {
	return a.DB != nil && a.DB.RiverClient != nil
}
