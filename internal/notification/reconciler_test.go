package notification

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"projectpulse.io/pulse/internal/domain"
	"projectpulse.io/pulse/internal/pkg/logger"
	"projectpulse.io/pulse/internal/pkg/worker"
	"projectpulse.io/pulse/internal/repository"
	"projectpulse.io/pulse/internal/testutil"
)

func init() {
	_ = logger.Init("error", "json")
}

func TestReconciler_Run(t *testing.T) {
	ctx := context.Background()
	store := testutil.NewTestStore(t)
	clock := time.Now().UTC()

	testutil.MustCreateProject(t, store, testutil.ProjectOpts{Name: "Late", Start: testutil.Day(clock, -20), End: testutil.Day(clock, -1), Percent: 60})
	testutil.MustCreateProject(t, store, testutil.ProjectOpts{Name: "Soon", Start: testutil.Day(clock, -20), End: testutil.Day(clock, 2), Percent: 50})
	testutil.MustCreateProject(t, store, testutil.ProjectOpts{Name: "Later", Start: testutil.Day(clock, 5), End: testutil.Day(clock, 40)})

	r := NewReconciler(NewEngine("owner"), store, NewInboxSender(store))
	r.SetClock(func() time.Time { return clock })

	res, err := r.Run(ctx)
	require.NoError(t, err)
	assert.Equal(t, Result{Projects: 3, Existing: 0, Created: 2}, res)

	stored, err := store.ListNotifications(ctx, repository.NotificationFilter{UserID: "owner"})
	require.NoError(t, err)
	require.Len(t, stored, 2)
	types := map[domain.NotificationType]string{}
	for _, n := range stored {
		types[n.Type] = n.ProjectName
	}
	assert.Equal(t, "Late", types[domain.NotifyProjectDelayed])
	assert.Equal(t, "Soon", types[domain.NotifyDeadlineWarning])

	// Second pass creates nothing, even once the owner has read everything.
	_, err = store.MarkAllNotificationsRead(ctx, "owner")
	require.NoError(t, err)
	res, err = r.Run(ctx)
	require.NoError(t, err)
	assert.Equal(t, 0, res.Created)
	assert.Equal(t, 2, res.Existing)
}

type failingSource struct{}

func (failingSource) ListProjects(context.Context, repository.ProjectFilter) ([]domain.Project, error) {
	return nil, errors.New("db down")
}

func (failingSource) ListNotifications(context.Context, repository.NotificationFilter) ([]domain.Notification, error) {
	return nil, nil
}

func TestReconciler_RunPropagatesLoadError(t *testing.T) {
	r := NewReconciler(NewEngine("owner"), failingSource{}, NewInboxSender(nil))
	_, err := r.Run(context.Background())
	assert.ErrorContains(t, err, "db down")
}

type memoryInbox struct {
	mu  sync.Mutex
	got []domain.Notification
	err error
}

func (m *memoryInbox) InsertNotifications(_ context.Context, ns []domain.Notification) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.err != nil {
		return m.err
	}
	m.got = append(m.got, ns...)
	return nil
}

func TestInboxSender(t *testing.T) {
	valid := domain.Notification{ID: "n1", Type: domain.NotifyDeadlineWarning, ProjectID: "p1", UserID: "1", Message: "m"}

	t.Run("stores valid batch", func(t *testing.T) {
		inbox := &memoryInbox{}
		require.NoError(t, NewInboxSender(inbox).Send(context.Background(), valid))
		assert.Len(t, inbox.got, 1)
	})

	t.Run("empty batch is a no-op", func(t *testing.T) {
		inbox := &memoryInbox{err: errors.New("must not be called")}
		assert.NoError(t, NewInboxSender(inbox).Send(context.Background()))
	})

	t.Run("rejects invalid notification", func(t *testing.T) {
		inbox := &memoryInbox{}
		bad := valid
		bad.UserID = ""
		err := NewInboxSender(inbox).Send(context.Background(), valid, bad)
		assert.ErrorContains(t, err, "user_id is required")
		assert.Empty(t, inbox.got, "nothing is stored when any entry is invalid")
	})

	t.Run("wraps store error", func(t *testing.T) {
		inbox := &memoryInbox{err: errors.New("disk full")}
		err := NewInboxSender(inbox).Send(context.Background(), valid)
		assert.ErrorContains(t, err, "disk full")
	})
}

func TestTriggers_OnProjectChanged(t *testing.T) {
	store := testutil.NewTestStore(t)
	clock := time.Now().UTC()
	testutil.MustCreateProject(t, store, testutil.ProjectOpts{Name: "Late", Start: testutil.Day(clock, -20), End: testutil.Day(clock, -3), Percent: 10})

	pools, err := worker.NewPools(context.Background(), worker.PoolConfig{GeneralPoolSize: 1, JobsPoolSize: 1})
	require.NoError(t, err)
	defer pools.Shutdown()

	r := NewReconciler(NewEngine("owner"), store, NewInboxSender(store))
	NewTriggers(r, pools).OnProjectChanged("p")

	assert.Eventually(t, func() bool {
		n, err := store.CountUnread(context.Background(), "owner")
		return err == nil && n == 1
	}, 5*time.Second, 20*time.Millisecond)

	var nilTriggers *Triggers
	assert.NotPanics(t, func() { nilTriggers.OnProjectChanged("p") })
}
