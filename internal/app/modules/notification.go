package modules

import (
	"context"
	"time"

	"github.com/riverqueue/river"

	"projectpulse.io/pulse/internal/api/handlers"
	"projectpulse.io/pulse/internal/governance/approval"
	"projectpulse.io/pulse/internal/jobs"
	"projectpulse.io/pulse/internal/notification"
)

// reconcileTimeout bounds one scheduled reconcile pass.
const reconcileTimeout = 30 * time.Second

// NotificationModule wires the notification engine, the extension request
// gateway and the background jobs that keep the inbox current.
type NotificationModule struct {
	infra      *Infrastructure
	engine     *notification.Engine
	reconciler *notification.Reconciler
	triggers   *notification.Triggers
	gateway    *approval.Gateway

	reconcileWorker *jobs.ReconcileWorker
	cleanupWorker   *jobs.NotificationCleanupWorker
}

// NewNotificationModule creates the notification module.
func NewNotificationModule(infra *Infrastructure) *NotificationModule {
	cfg := infra.Config.Engine
	engine := notification.NewEngine(cfg.OwnerUserID)
	sender := notification.NewInboxSender(infra.Store)
	reconciler := notification.NewReconciler(engine, infra.Store, sender)

	var triggers *notification.Triggers
	if cfg.ReconcileOnChange {
		triggers = notification.NewTriggers(reconciler, infra.Pools)
	}

	return &NotificationModule{
		infra:           infra,
		engine:          engine,
		reconciler:      reconciler,
		triggers:        triggers,
		gateway:         approval.NewGateway(infra.Store, engine, sender, infra.AuditLogger),
		reconcileWorker: jobs.NewReconcileWorker(reconciler, reconcileTimeout),
		cleanupWorker:   jobs.NewNotificationCleanupWorker(infra.Store, cfg.NotificationRetention),
	}
}

func (m *NotificationModule) Name() string { return "notification" }

// ContributeServerDeps is a no-op: the project module exposes the
// notification service built from this module's parts.
func (m *NotificationModule) ContributeServerDeps(_ *handlers.ServerDeps) {}

func (m *NotificationModule) RegisterWorkers(workers *river.Workers) {
	if workers == nil || m == nil {
		return
	}
	river.AddWorker(workers, m.reconcileWorker)
	river.AddWorker(workers, m.cleanupWorker)
}

// Periodic returns the reconcile pass and the inbox cleanup. Both run once
// on start.
func (m *NotificationModule) Periodic() []PeriodicJob {
	interval := m.infra.Config.Engine.ReconcileInterval
	if interval <= 0 {
		interval = jobs.DefaultReconcileInterval
	}
	return []PeriodicJob{
		{
			Schedule: jobs.Schedule{Name: "project_reconcile", Interval: interval, RunOnStart: true, Job: m.reconcileWorker},
			Args:     jobs.ReconcileArgs{},
		},
		{
			Schedule: jobs.Schedule{Name: "notification_cleanup", Interval: jobs.NotificationCleanupInterval, RunOnStart: true, Job: m.cleanupWorker},
			Args:     jobs.NotificationCleanupArgs{},
		},
	}
}

func (m *NotificationModule) Shutdown(context.Context) error { return nil }

// Gateway exposes the extension request gateway to command-line tools.
func (m *NotificationModule) Gateway() *approval.Gateway { return m.gateway }
