// Package modules groups the Project Pulse services into units the
// application wires together: notifications (engine, reconcile and cleanup
// jobs, extension gateway) and projects (CRUD, dashboard, export).
package modules

import (
	"context"

	"github.com/riverqueue/river"

	"projectpulse.io/pulse/internal/api/handlers"
	"projectpulse.io/pulse/internal/jobs"
)

// Module is one slice of the application. Bootstrap asks every module for
// its handler services and River workers, and shuts modules down in order.
type Module interface {
	Name() string
	// ContributeServerDeps fills the handler services the module owns.
	ContributeServerDeps(*handlers.ServerDeps)
	// RegisterWorkers adds the module's River workers; unused on SQLite.
	RegisterWorkers(*river.Workers)
	Shutdown(context.Context) error
}

// ServerDepsContributor is implemented by modules that own HTTP dependencies.
type ServerDepsContributor interface {
	ContributeServerDeps(*handlers.ServerDeps)
}

// PeriodicJobs is implemented by modules that own recurring jobs. The same
// schedule drives River periodic jobs on PostgreSQL and the LocalScheduler
// on SQLite.
type PeriodicJobs interface {
	Periodic() []PeriodicJob
}

// PeriodicJob pairs a River job with the in-process runner doing the same work.
type PeriodicJob struct {
	Schedule jobs.Schedule
	Args     river.JobArgs
}
