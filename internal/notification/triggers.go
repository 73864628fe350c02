package notification

import (
	"context"

	"go.uber.org/zap"

	"projectpulse.io/pulse/internal/pkg/logger"
	"projectpulse.io/pulse/internal/pkg/worker"
)

// Submitter runs tasks in the background.
type Submitter interface {
	SubmitDetached(poolName string, task worker.Task) error
}

// Triggers reruns reconciliation when a project changes so that warnings
// appear without waiting for the next scheduled pass. Failures are logged,
// never returned: the scheduled pass covers anything missed here.
type Triggers struct {
	reconciler *Reconciler
	pools      Submitter
}

// NewTriggers creates project change triggers.
func NewTriggers(reconciler *Reconciler, pools Submitter) *Triggers {
	return &Triggers{reconciler: reconciler, pools: pools}
}

// OnProjectChanged fires after a project is created or updated.
func (t *Triggers) OnProjectChanged(projectID string) {
	if t == nil || t.reconciler == nil || t.pools == nil {
		return
	}
	err := t.pools.SubmitDetached(worker.PoolJobs, func(ctx context.Context) {
		if _, err := t.reconciler.Run(ctx); err != nil {
			logger.Error("reconcile after project change failed",
				zap.String("project_id", projectID),
				zap.Error(err),
			)
		}
	})
	if err != nil {
		logger.Warn("reconcile after project change not scheduled",
			zap.String("project_id", projectID),
			zap.Error(err),
		)
	}
}
