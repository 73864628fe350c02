// Package worker owns the goroutine pools used for background work.
//
// Components never start bare goroutines for request or job work. They submit
// to one of the pools here so that shutdown can drain everything in one place.
package worker

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/panjf2000/ants/v2"
	"go.uber.org/zap"

	"projectpulse.io/pulse/internal/pkg/logger"
)

// Pool names accepted by SubmitDetached.
const (
	PoolGeneral = "general"
	PoolJobs    = "jobs"
)

// ErrPoolClosed is returned when submitting to a released pool.
var ErrPoolClosed = errors.New("worker pool is closed")

// Task is a context-aware unit of work.
type Task func(ctx context.Context)

// Pool wraps an ants pool with context-aware submission.
type Pool struct {
	pool *ants.Pool
	name string
}

// Pools groups the process pools.
//
// General serves request-adjacent work such as export rendering.
// Jobs runs scheduled jobs (reconcile, cleanup) when River is not in use.
type Pools struct {
	General *Pool
	Jobs    *Pool

	serviceCtx    context.Context
	serviceCancel context.CancelFunc
	shutdownOnce  sync.Once
}

// PoolConfig sizes the pools.
type PoolConfig struct {
	GeneralPoolSize int
	JobsPoolSize    int
}

// DefaultPoolConfig returns default sizes.
func DefaultPoolConfig() PoolConfig {
	return PoolConfig{
		GeneralPoolSize: 50,
		JobsPoolSize:    4,
	}
}

// NewPools creates the pool collection. ctx bounds detached tasks.
func NewPools(ctx context.Context, cfg PoolConfig) (*Pools, error) {
	def := DefaultPoolConfig()
	if cfg.GeneralPoolSize <= 0 {
		cfg.GeneralPoolSize = def.GeneralPoolSize
	}
	if cfg.JobsPoolSize <= 0 {
		cfg.JobsPoolSize = def.JobsPoolSize
	}

	serviceCtx, serviceCancel := context.WithCancel(ctx)

	panicHandler := func(p interface{}) {
		logger.Error("Worker panic recovered",
			zap.Any("panic", p),
			zap.Stack("stack"),
		)
	}

	general, err := ants.NewPool(cfg.GeneralPoolSize,
		ants.WithPanicHandler(panicHandler),
		ants.WithExpiryDuration(10*time.Second),
	)
	if err != nil {
		serviceCancel()
		return nil, err
	}

	jobs, err := ants.NewPool(cfg.JobsPoolSize,
		ants.WithPanicHandler(panicHandler),
		ants.WithExpiryDuration(time.Minute),
	)
	if err != nil {
		general.Release()
		serviceCancel()
		return nil, err
	}

	return &Pools{
		General:       &Pool{pool: general, name: PoolGeneral},
		Jobs:          &Pool{pool: jobs, name: PoolJobs},
		serviceCtx:    serviceCtx,
		serviceCancel: serviceCancel,
	}, nil
}

// Submit runs task with the caller's context. A context already cancelled
// returns ctx.Err() without queueing; one cancelled while queued skips the task.
func (p *Pool) Submit(ctx context.Context, task Task) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	err := p.pool.Submit(func() {
		if ctx.Err() != nil {
			logger.Debug("Task skipped: context cancelled",
				zap.String("pool", p.name),
				zap.Error(ctx.Err()),
			)
			return
		}
		task(ctx)
	})
	if errors.Is(err, ants.ErrPoolClosed) {
		return ErrPoolClosed
	}
	return err
}

// Run submits task and blocks until it finishes or ctx is done.
func (p *Pool) Run(ctx context.Context, task func(ctx context.Context) error) error {
	done := make(chan error, 1)
	if err := p.Submit(ctx, func(ctx context.Context) {
		done <- task(ctx)
	}); err != nil {
		return err
	}
	select {
	case err := <-done:
		return err
	case <-ctx.Done():
		return ctx.Err()
	}
}

// SubmitDetached runs task under the service lifecycle context so it outlives
// the request that triggered it but still stops on shutdown.
func (p *Pools) SubmitDetached(poolName string, task Task) error {
	pool := p.General
	if poolName == PoolJobs {
		pool = p.Jobs
	}
	return pool.Submit(p.serviceCtx, task)
}

// Shutdown cancels detached work and waits up to 30s for running tasks.
func (p *Pools) Shutdown() {
	p.shutdownOnce.Do(func() {
		p.serviceCancel()

		const shutdownTimeout = 30 * time.Second
		for _, pool := range []*Pool{p.General, p.Jobs} {
			if err := pool.pool.ReleaseTimeout(shutdownTimeout); err != nil {
				logger.Warn("Worker pool shutdown timeout",
					zap.String("pool", pool.name),
					zap.Error(err),
				)
			}
		}
	})
}

// Metrics reports running/free/cap per pool.
func (p *Pools) Metrics() map[string]map[string]int {
	out := make(map[string]map[string]int, 2)
	for _, pool := range []*Pool{p.General, p.Jobs} {
		out[pool.name] = map[string]int{
			"running": pool.pool.Running(),
			"free":    pool.pool.Free(),
			"cap":     pool.pool.Cap(),
		}
	}
	return out
}
