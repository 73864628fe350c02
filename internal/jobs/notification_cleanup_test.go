package jobs

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/riverqueue/river"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"projectpulse.io/pulse/internal/domain"
	"projectpulse.io/pulse/internal/pkg/logger"
	"projectpulse.io/pulse/internal/repository"
	"projectpulse.io/pulse/internal/testutil"
)

func init() {
	_ = logger.Init("error", "json")
}

func TestNotificationCleanupArgsKind(t *testing.T) {
	t.Parallel()

	if got := (NotificationCleanupArgs{}).Kind(); got != "notification_cleanup" {
		t.Fatalf("Kind() = %q, want %q", got, "notification_cleanup")
	}
}

func TestNotificationCleanupArgsInsertOpts(t *testing.T) {
	t.Parallel()

	opts := (NotificationCleanupArgs{}).InsertOpts()
	if opts.Queue != river.QueueDefault {
		t.Fatalf("Queue = %q, want %q", opts.Queue, river.QueueDefault)
	}
	if opts.MaxAttempts != 1 {
		t.Fatalf("MaxAttempts = %d, want 1", opts.MaxAttempts)
	}
	if opts.UniqueOpts.ByPeriod != 24*time.Hour {
		t.Fatalf("UniqueOpts.ByPeriod = %s, want %s", opts.UniqueOpts.ByPeriod, 24*time.Hour)
	}
	if !opts.UniqueOpts.ByQueue || !opts.UniqueOpts.ByArgs {
		t.Fatal("UniqueOpts must be scoped by queue and args")
	}
}

func TestNewNotificationCleanupWorkerRetention(t *testing.T) {
	t.Parallel()

	t.Run("defaults to ninety days when non-positive", func(t *testing.T) {
		w := NewNotificationCleanupWorker(nil, 0)
		if w.retention != DefaultNotificationRetention {
			t.Fatalf("retention = %s, want %s", w.retention, DefaultNotificationRetention)
		}
	})

	t.Run("uses explicit retention when provided", func(t *testing.T) {
		want := 7 * 24 * time.Hour
		w := NewNotificationCleanupWorker(nil, want)
		if w.retention != want {
			t.Fatalf("retention = %s, want %s", w.retention, want)
		}
	})
}

func TestNotificationCleanupWorkerWork_Uninitialized(t *testing.T) {
	t.Parallel()

	t.Run("nil receiver", func(t *testing.T) {
		var w *NotificationCleanupWorker
		err := w.Work(context.Background(), nil)
		if err == nil || !strings.Contains(err.Error(), "not initialized") {
			t.Fatalf("Work() error = %v, want contains %q", err, "not initialized")
		}
	})

	t.Run("nil store", func(t *testing.T) {
		w := &NotificationCleanupWorker{}
		err := w.Work(context.Background(), nil)
		if err == nil || !strings.Contains(err.Error(), "not initialized") {
			t.Fatalf("Work() error = %v, want contains %q", err, "not initialized")
		}
	})
}

type recordingCleaner struct {
	cutoff time.Time
	err    error
}

func (c *recordingCleaner) DeleteReadNotificationsBefore(_ context.Context, cutoff time.Time) (int64, error) {
	c.cutoff = cutoff
	return 3, c.err
}

func TestNotificationCleanupWorker_Cutoff(t *testing.T) {
	t.Parallel()

	now := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)
	c := &recordingCleaner{}
	w := NewNotificationCleanupWorker(c, 48*time.Hour)
	w.now = func() time.Time { return now }

	require.NoError(t, w.Run(context.Background()))
	assert.Equal(t, now.Add(-48*time.Hour), c.cutoff)

	c.err = errors.New("locked")
	assert.ErrorContains(t, w.Run(context.Background()), "locked")
}

func TestNotificationCleanupWorker_KeepsUnread(t *testing.T) {
	ctx := context.Background()
	store := testutil.NewTestStore(t)
	now := time.Now().UTC()
	p := testutil.MustCreateProject(t, store, testutil.ProjectOpts{Name: "Atlas", Start: testutil.Day(now, -5), End: testutil.Day(now, 30)})

	old := now.Add(-100 * 24 * time.Hour)
	require.NoError(t, store.InsertNotifications(ctx, []domain.Notification{
		{ID: "old-read", UserID: "1", ProjectID: p.ID, ProjectName: p.Name, Type: domain.NotifyProjectDelayed, Message: "m", Read: true, CreatedAt: old},
		{ID: "old-unread", UserID: "1", ProjectID: p.ID, ProjectName: p.Name, Type: domain.NotifyDeadlineWarning, Message: "m", CreatedAt: old},
		{ID: "new-read", UserID: "1", ProjectID: p.ID, ProjectName: p.Name, Type: domain.NotifyExtensionRequest, Message: "m", Read: true, CreatedAt: now},
	}))

	require.NoError(t, NewNotificationCleanupWorker(store, 0).Run(ctx))

	left, err := store.ListNotifications(ctx, repository.NotificationFilter{UserID: "1", IncludeResolved: true})
	require.NoError(t, err)
	ids := make([]string, 0, len(left))
	for _, n := range left {
		ids = append(ids, n.ID)
	}
	assert.ElementsMatch(t, []string{"old-unread", "new-read"}, ids)
}
