package notification

import (
	"context"
	"fmt"
	"sync"
	"time"

	"go.uber.org/zap"

	"projectpulse.io/pulse/internal/domain"
	"projectpulse.io/pulse/internal/pkg/logger"
	"projectpulse.io/pulse/internal/repository"
	"projectpulse.io/pulse/internal/status"
)

// Snapshot loads the inputs of a reconcile pass.
type Snapshot interface {
	ListProjects(ctx context.Context, f repository.ProjectFilter) ([]domain.Project, error)
	ListNotifications(ctx context.Context, f repository.NotificationFilter) ([]domain.Notification, error)
}

// Result summarises one reconcile pass.
type Result struct {
	Projects int `json:"projects"`
	Existing int `json:"existing"`
	Created  int `json:"created"`
}

// Reconciler runs the engine against the store. Passes are serialised
// within the process; across processes only the River leader enqueues them.
type Reconciler struct {
	engine *Engine
	source Snapshot
	sender Sender
	now    func() time.Time

	mu sync.Mutex
}

// NewReconciler wires a reconciler.
func NewReconciler(engine *Engine, source Snapshot, sender Sender) *Reconciler {
	return &Reconciler{
		engine: engine,
		source: source,
		sender: sender,
		now:    func() time.Time { return time.Now().UTC() },
	}
}

// SetClock overrides the evaluation time source.
func (r *Reconciler) SetClock(now func() time.Time) {
	r.now = now
}

// Run performs one pass: compute effective statuses, derive missing
// notifications and deliver only the new ones.
func (r *Reconciler) Run(ctx context.Context) (Result, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	now := r.now()
	projects, err := r.source.ListProjects(ctx, repository.ProjectFilter{})
	if err != nil {
		return Result{}, fmt.Errorf("load projects: %w", err)
	}
	existing, err := r.source.ListNotifications(ctx, repository.NotificationFilter{})
	if err != nil {
		return Result{}, fmt.Errorf("load notifications: %w", err)
	}

	next := r.engine.Reconcile(status.Apply(projects, now), existing, now)
	added, _ := Diff(existing, next)

	if err := r.sender.Send(ctx, added...); err != nil {
		return Result{}, err
	}

	res := Result{Projects: len(projects), Existing: len(existing), Created: len(added)}
	if res.Created > 0 {
		logger.Named("reconciler").Info("notifications reconciled",
			zap.Int("projects", res.Projects),
			zap.Int("existing", res.Existing),
			zap.Int("created", res.Created),
		)
	}
	return res, nil
}
