package modules

import (
	"context"

	"github.com/riverqueue/river"

	"projectpulse.io/pulse/internal/api/handlers"
	"projectpulse.io/pulse/internal/service"
)

// ProjectModule wires the project, dashboard and inbox services.
type ProjectModule struct {
	projects      *service.ProjectService
	notifications *service.NotificationService
	dashboard     *service.DashboardService
}

// NewProjectModule creates the project module on top of the notification
// module, whose triggers follow project writes.
func NewProjectModule(infra *Infrastructure, notifications *NotificationModule) *ProjectModule {
	var notifier service.ChangeNotifier
	if notifications.triggers != nil {
		notifier = notifications.triggers
	}
	projects := service.NewProjectService(infra.Store, infra.AuditLogger, notifier)

	return &ProjectModule{
		projects:      projects,
		notifications: service.NewNotificationService(infra.Store, projects, notifications.gateway, notifications.reconciler),
		dashboard:     service.NewDashboardService(projects),
	}
}

func (m *ProjectModule) Name() string { return "project" }

func (m *ProjectModule) ContributeServerDeps(deps *handlers.ServerDeps) {
	if deps == nil {
		return
	}
	deps.Projects = m.projects
	deps.Notifications = m.notifications
	deps.Dashboard = m.dashboard
}

func (m *ProjectModule) RegisterWorkers(_ *river.Workers) {}

func (m *ProjectModule) Shutdown(context.Context) error { return nil }

// Projects exposes the project service to command-line tools.
func (m *ProjectModule) Projects() *service.ProjectService { return m.projects }

// Notifications exposes the inbox service to command-line tools.
func (m *ProjectModule) Notifications() *service.NotificationService { return m.notifications }
