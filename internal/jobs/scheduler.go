package jobs

import (
	"context"
	"fmt"
	"sync"
	"time"

	"go.uber.org/zap"

	"projectpulse.io/pulse/internal/pkg/logger"
	"projectpulse.io/pulse/internal/pkg/worker"
)

// Runner is a job that can run outside River.
type Runner interface {
	Run(ctx context.Context) error
}

// Schedule is one periodic entry of the LocalScheduler.
type Schedule struct {
	Name       string
	Interval   time.Duration
	RunOnStart bool
	Job        Runner
}

// Submitter runs long-lived tasks in a worker pool.
type Submitter interface {
	SubmitDetached(poolName string, task worker.Task) error
}

// LocalScheduler runs periodic jobs in-process when River is not available.
// Each schedule runs in its own pool task; runs of one schedule never overlap.
type LocalScheduler struct {
	pools     Submitter
	schedules []Schedule

	cancel context.CancelFunc
	wg     sync.WaitGroup
}

// NewLocalScheduler creates a scheduler.
func NewLocalScheduler(pools Submitter, schedules ...Schedule) *LocalScheduler {
	return &LocalScheduler{pools: pools, schedules: schedules}
}

// Start launches every schedule. Stop must be called to release them.
func (s *LocalScheduler) Start(ctx context.Context) error {
	for _, sch := range s.schedules {
		if sch.Interval <= 0 || sch.Job == nil {
			return fmt.Errorf("schedule %q: interval and job are required", sch.Name)
		}
	}
	ctx, s.cancel = context.WithCancel(ctx)
	for _, sch := range s.schedules {
		sch := sch
		s.wg.Add(1)
		err := s.pools.SubmitDetached(worker.PoolGeneral, func(poolCtx context.Context) {
			defer s.wg.Done()
			s.loop(mergeDone(ctx, poolCtx), sch)
		})
		if err != nil {
			s.wg.Done()
			s.cancel()
			return err
		}
		logger.Info("local schedule started",
			zap.String("job", sch.Name),
			zap.Duration("interval", sch.Interval),
		)
	}
	return nil
}

// Stop cancels every schedule and waits for running jobs to return.
func (s *LocalScheduler) Stop() {
	if s.cancel == nil {
		return
	}
	s.cancel()
	s.wg.Wait()
}

func (s *LocalScheduler) loop(ctx context.Context, sch Schedule) {
	if sch.RunOnStart {
		s.runOnce(ctx, sch)
	}
	ticker := time.NewTicker(sch.Interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			s.runOnce(ctx, sch)
		}
	}
}

func (s *LocalScheduler) runOnce(ctx context.Context, sch Schedule) {
	if ctx.Err() != nil {
		return
	}
	if err := sch.Job.Run(ctx); err != nil {
		logger.Error("scheduled job failed", zap.String("job", sch.Name), zap.Error(err))
	}
}

// mergeDone returns a context cancelled when either a or b is done.
func mergeDone(a, b context.Context) context.Context {
	ctx, cancel := context.WithCancel(a)
	stop := context.AfterFunc(b, cancel)
	context.AfterFunc(ctx, func() { stop() })
	return ctx
}
