package jobs

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/riverqueue/river"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"projectpulse.io/pulse/internal/notification"
	"projectpulse.io/pulse/internal/pkg/worker"
)

type stubReconciler struct {
	calls atomic.Int32
	err   error
}

func (s *stubReconciler) Run(context.Context) (notification.Result, error) {
	s.calls.Add(1)
	return notification.Result{Projects: 2, Created: 1}, s.err
}

func TestReconcileArgs(t *testing.T) {
	t.Parallel()

	assert.Equal(t, "project_reconcile", ReconcileArgs{}.Kind())
	opts := ReconcileArgs{}.InsertOpts()
	assert.Equal(t, river.QueueDefault, opts.Queue)
	assert.Equal(t, 1, opts.MaxAttempts)
}

func TestReconcileWorker(t *testing.T) {
	t.Parallel()

	t.Run("not initialized", func(t *testing.T) {
		var w *ReconcileWorker
		assert.ErrorContains(t, w.Run(context.Background()), "not initialized")
		assert.ErrorContains(t, (&ReconcileWorker{}).Run(context.Background()), "not initialized")
	})

	t.Run("runs reconciler", func(t *testing.T) {
		r := &stubReconciler{}
		w := NewReconcileWorker(r, 0)
		assert.Equal(t, 30*time.Second, w.Timeout(nil))
		require.NoError(t, w.Work(context.Background(), nil))
		assert.EqualValues(t, 1, r.calls.Load())
	})

	t.Run("wraps failure", func(t *testing.T) {
		w := NewReconcileWorker(&stubReconciler{err: errors.New("boom")}, time.Second)
		err := w.Run(context.Background())
		assert.ErrorContains(t, err, "reconcile notifications")
		assert.ErrorContains(t, err, "boom")
	})
}

type countingJob struct {
	mu    sync.Mutex
	calls int
}

func (c *countingJob) Run(context.Context) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.calls++
	return errors.New("ignored")
}

func (c *countingJob) count() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.calls
}

func TestLocalScheduler(t *testing.T) {
	pools, err := worker.NewPools(context.Background(), worker.PoolConfig{GeneralPoolSize: 4, JobsPoolSize: 2})
	require.NoError(t, err)
	t.Cleanup(pools.Shutdown)

	t.Run("rejects invalid schedule", func(t *testing.T) {
		s := NewLocalScheduler(pools, Schedule{Name: "bad", Job: &countingJob{}})
		assert.Error(t, s.Start(context.Background()))
		s.Stop()
	})

	t.Run("runs on start and on every tick", func(t *testing.T) {
		job := &countingJob{}
		s := NewLocalScheduler(pools, Schedule{Name: "count", Interval: 10 * time.Millisecond, RunOnStart: true, Job: job})
		require.NoError(t, s.Start(context.Background()))

		assert.Eventually(t, func() bool { return job.count() >= 3 }, 2*time.Second, 5*time.Millisecond)
		s.Stop()

		stopped := job.count()
		time.Sleep(30 * time.Millisecond)
		assert.Equal(t, stopped, job.count())
	})
}
