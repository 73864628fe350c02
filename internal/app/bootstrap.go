// Package app is the composition root. Bootstrap stays orchestration-only.
package app

import (
	"context"
	"fmt"
	"sync"

	"github.com/gin-gonic/gin"
	"github.com/riverqueue/river"
	"go.uber.org/zap"

	"projectpulse.io/pulse/internal/api/handlers"
	"projectpulse.io/pulse/internal/app/modules"
	"projectpulse.io/pulse/internal/config"
	"projectpulse.io/pulse/internal/infrastructure"
	"projectpulse.io/pulse/internal/jobs"
	"projectpulse.io/pulse/internal/pkg/logger"
	"projectpulse.io/pulse/internal/pkg/worker"
)

// Application holds composed application dependencies.
type Application struct {
	Config  *config.Config
	Router  *gin.Engine
	DB      *infrastructure.DatabaseClients
	Pools   *worker.Pools
	Modules []modules.Module

	// Scheduler runs periodic jobs when River is unavailable (SQLite).
	Scheduler *jobs.LocalScheduler

	shutdownOnce sync.Once
}

// Bootstrap initializes all dependencies using module-oriented manual DI.
func Bootstrap(ctx context.Context, cfg *config.Config) (*Application, error) {
	infra, err := modules.NewInfrastructure(ctx, cfg)
	if err != nil {
		return nil, fmt.Errorf("init infrastructure: %w", err)
	}

	notificationModule := modules.NewNotificationModule(infra)
	allModules := []modules.Module{
		notificationModule,
		modules.NewProjectModule(infra, notificationModule),
	}

	workers := river.NewWorkers()
	for _, mod := range allModules {
		mod.RegisterWorkers(workers)
	}
	if err := infra.InitRiver(workers); err != nil {
		infra.Close()
		return nil, fmt.Errorf("init river workers: %w", err)
	}

	scheduler := schedulePeriodicJobs(infra, allModules)

	serverDeps := modules.NewServerDeps(cfg, infra, allModules)
	server := handlers.NewServer(serverDeps)

	return &Application{
		Config:    cfg,
		Router:    newRouter(cfg, server, serverDeps.JWTCfg),
		DB:        infra.DB,
		Pools:     infra.Pools,
		Modules:   allModules,
		Scheduler: scheduler,
	}, nil
}

// schedulePeriodicJobs registers every module's recurring jobs with River.
// Only the elected River leader enqueues periodic jobs, so several replicas
// do not multiply passes. Without River the jobs go to a LocalScheduler,
// which is returned.
func schedulePeriodicJobs(infra *modules.Infrastructure, mods []modules.Module) *jobs.LocalScheduler {
	var periodic []modules.PeriodicJob
	for _, mod := range mods {
		if p, ok := mod.(modules.PeriodicJobs); ok {
			periodic = append(periodic, p.Periodic()...)
		}
	}

	if infra.RiverClient != nil {
		for _, pj := range periodic {
			args := pj.Args
			infra.RiverClient.PeriodicJobs().Add(
				river.NewPeriodicJob(
					river.PeriodicInterval(pj.Schedule.Interval),
					func() (river.JobArgs, *river.InsertOpts) {
						return args, nil
					},
					&river.PeriodicJobOpts{RunOnStart: pj.Schedule.RunOnStart},
				),
			)
			logger.Info("Periodic job registered",
				zap.String("kind", args.Kind()),
				zap.Duration("interval", pj.Schedule.Interval),
			)
		}
		return nil
	}

	schedules := make([]jobs.Schedule, 0, len(periodic))
	for _, pj := range periodic {
		schedules = append(schedules, pj.Schedule)
	}
	return jobs.NewLocalScheduler(infra.Pools, schedules...)
}
