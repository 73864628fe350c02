// Package jobs defines the periodic background jobs: notification
// reconciliation and inbox cleanup. On PostgreSQL they run as River
// periodic jobs; on SQLite the LocalScheduler runs the same workers.
package jobs

import (
	"context"
	"fmt"
	"time"

	"github.com/riverqueue/river"
	"go.uber.org/zap"

	"projectpulse.io/pulse/internal/notification"
	"projectpulse.io/pulse/internal/pkg/logger"
)

// DefaultReconcileInterval matches the once-a-minute re-evaluation of the
// project list.
const DefaultReconcileInterval = time.Minute

// ReconcileArgs triggers one notification reconcile pass.
type ReconcileArgs struct{}

// Kind returns the job kind identifier.
func (ReconcileArgs) Kind() string { return "project_reconcile" }

// InsertOpts keeps a single attempt: the next tick retries anyway.
func (ReconcileArgs) InsertOpts() river.InsertOpts {
	return river.InsertOpts{
		Queue:       river.QueueDefault,
		MaxAttempts: 1,
	}
}

// Reconciler runs one reconcile pass.
type Reconciler interface {
	Run(ctx context.Context) (notification.Result, error)
}

// ReconcileWorker runs the notification reconciler.
type ReconcileWorker struct {
	river.WorkerDefaults[ReconcileArgs]
	reconciler Reconciler
	timeout    time.Duration
}

// NewReconcileWorker creates the worker. Each pass is bounded by timeout,
// defaulting to 30s.
func NewReconcileWorker(r Reconciler, timeout time.Duration) *ReconcileWorker {
	if timeout <= 0 {
		timeout = 30 * time.Second
	}
	return &ReconcileWorker{reconciler: r, timeout: timeout}
}

// Timeout bounds a River execution.
func (w *ReconcileWorker) Timeout(*river.Job[ReconcileArgs]) time.Duration {
	return w.timeout
}

// Work implements river.Worker.
func (w *ReconcileWorker) Work(ctx context.Context, _ *river.Job[ReconcileArgs]) error {
	return w.Run(ctx)
}

// Run performs one pass.
func (w *ReconcileWorker) Run(ctx context.Context) error {
	if w == nil || w.reconciler == nil {
		return fmt.Errorf("reconcile worker is not initialized")
	}
	res, err := w.reconciler.Run(ctx)
	if err != nil {
		return fmt.Errorf("reconcile notifications: %w", err)
	}
	logger.Debug("reconcile pass completed",
		zap.Int("projects", res.Projects),
		zap.Int("created", res.Created),
	)
	return nil
}
