package jobs

import (
	"context"
	"fmt"
	"time"

	"github.com/riverqueue/river"
	"go.uber.org/zap"

	"projectpulse.io/pulse/internal/pkg/logger"
)

// DefaultNotificationRetention is how long read notifications are kept.
const DefaultNotificationRetention = 90 * 24 * time.Hour

// NotificationCleanupInterval is how often read notifications are pruned.
const NotificationCleanupInterval = 24 * time.Hour

// NotificationCleanupArgs removes expired read notifications.
type NotificationCleanupArgs struct{}

// Kind returns the job kind identifier.
func (NotificationCleanupArgs) Kind() string { return "notification_cleanup" }

// InsertOpts ensures at most one cleanup job is enqueued per day.
func (NotificationCleanupArgs) InsertOpts() river.InsertOpts {
	return river.InsertOpts{
		Queue:       river.QueueDefault,
		MaxAttempts: 1,
		UniqueOpts: river.UniqueOpts{
			ByPeriod: 24 * time.Hour,
			ByQueue:  true,
			ByArgs:   true,
		},
	}
}

// Cleaner deletes old read notifications.
type Cleaner interface {
	DeleteReadNotificationsBefore(ctx context.Context, cutoff time.Time) (int64, error)
}

// NotificationCleanupWorker deletes read notifications older than retention.
// Unread ones are kept so that nothing needing attention disappears.
type NotificationCleanupWorker struct {
	river.WorkerDefaults[NotificationCleanupArgs]
	store     Cleaner
	retention time.Duration
	now       func() time.Time
}

// NewNotificationCleanupWorker creates a cleanup worker. Non-positive
// retention falls back to DefaultNotificationRetention.
func NewNotificationCleanupWorker(store Cleaner, retention time.Duration) *NotificationCleanupWorker {
	if retention <= 0 {
		retention = DefaultNotificationRetention
	}
	return &NotificationCleanupWorker{
		store:     store,
		retention: retention,
		now:       func() time.Time { return time.Now().UTC() },
	}
}

// Work implements river.Worker.
func (w *NotificationCleanupWorker) Work(ctx context.Context, _ *river.Job[NotificationCleanupArgs]) error {
	return w.Run(ctx)
}

// Run removes expired rows.
func (w *NotificationCleanupWorker) Run(ctx context.Context) error {
	if w == nil || w.store == nil {
		return fmt.Errorf("notification cleanup worker is not initialized")
	}

	cutoff := w.now().Add(-w.retention)
	deleted, err := w.store.DeleteReadNotificationsBefore(ctx, cutoff)
	if err != nil {
		return fmt.Errorf("delete expired notifications before %s: %w", cutoff.Format(time.RFC3339), err)
	}

	logger.Info("notification cleanup completed",
		zap.Int64("deleted_rows", deleted),
		zap.String("cutoff", cutoff.Format(time.RFC3339)),
		zap.Duration("retention", w.retention),
	)
	return nil
}
