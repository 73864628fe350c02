package repository_test

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"projectpulse.io/pulse/internal/domain"
	"projectpulse.io/pulse/internal/repository"
	"projectpulse.io/pulse/internal/testutil"
)

func backends(t *testing.T) map[string]func(t *testing.T) *repository.Store {
	return map[string]func(t *testing.T) *repository.Store{
		"sqlite":   testutil.NewTestStore,
		"postgres": testutil.NewPostgresStore,
	}
}

func TestStore(t *testing.T) {
	for name, open := range backends(t) {
		t.Run(name, func(t *testing.T) {
			t.Run("migrate is idempotent", func(t *testing.T) { testMigrateIdempotent(t, open(t)) })
			t.Run("project crud", func(t *testing.T) { testProjectCRUD(t, open(t)) })
			t.Run("project filters", func(t *testing.T) { testProjectFilters(t, open(t)) })
			t.Run("users", func(t *testing.T) { testUsers(t, open(t)) })
			t.Run("notifications", func(t *testing.T) { testNotifications(t, open(t)) })
			t.Run("resolve extension", func(t *testing.T) { testResolveExtension(t, open(t)) })
			t.Run("audit", func(t *testing.T) { testAudit(t, open(t)) })
		})
	}
}

func testMigrateIdempotent(t *testing.T, s *repository.Store) {
	ctx := context.Background()
	require.NoError(t, s.Migrate(ctx))
	v, err := s.SchemaVersion(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, v)
}

func testProjectCRUD(t *testing.T, s *repository.Store) {
	ctx := context.Background()
	start := time.Date(2024, 1, 15, 0, 0, 0, 0, time.UTC)
	end := time.Date(2024, 6, 30, 0, 0, 0, 0, time.UTC)

	created, err := s.CreateProject(ctx, domain.Project{
		Name:            "Website Redesign",
		Manager:         "Mike Manager",
		Department:      domain.DeptMarketing,
		Priority:        domain.PriorityHigh,
		Status:          domain.StatusInProgress,
		StartDate:       start,
		EndDate:         end,
		PercentComplete: 40,
		Stakeholders:    []string{"Alice", "Bob"},
		Partners:        []string{"Acme"},
	})
	require.NoError(t, err)
	require.NotEmpty(t, created.ID)
	assert.Equal(t, "Mike Manager", created.Manager)
	assert.NotEmpty(t, created.ManagerID)
	assert.True(t, start.Equal(created.StartDate.UTC()), "start %s", created.StartDate)
	assert.True(t, end.Equal(created.EndDate.UTC()), "end %s", created.EndDate)
	assert.Equal(t, []string{"Alice", "Bob"}, created.Stakeholders)
	assert.Equal(t, []string{"Acme"}, created.Partners)

	manager, err := s.GetUserByEmail(ctx, "mike.manager@projectpulse.com")
	require.NoError(t, err)
	assert.Equal(t, domain.RoleProject, manager.Role)
	assert.Equal(t, created.ManagerID, manager.ID)

	// A second project by the same manager reuses the user.
	other := testutil.MustCreateProject(t, s, testutil.ProjectOpts{Name: "Mobile App", Manager: "Mike Manager"})
	assert.Equal(t, manager.ID, other.ManagerID)

	pct := 100
	done := domain.StatusCompleted
	stakeholders := []string{"Carol"}
	updated, err := s.UpdateProject(ctx, created.ID, repository.ProjectPatch{
		PercentComplete: &pct,
		Status:          &done,
		Stakeholders:    &stakeholders,
	})
	require.NoError(t, err)
	assert.Equal(t, 100, updated.PercentComplete)
	assert.Equal(t, domain.StatusCompleted, updated.Status)
	assert.Equal(t, []string{"Carol"}, updated.Stakeholders)
	assert.Equal(t, []string{"Acme"}, updated.Partners, "unset patch fields stay")
	assert.Equal(t, "Website Redesign", updated.Name)

	_, err = s.UpdateProject(ctx, "missing", repository.ProjectPatch{PercentComplete: &pct})
	assert.ErrorIs(t, err, repository.ErrNotFound)

	require.NoError(t, s.DeleteProject(ctx, created.ID))
	_, err = s.GetProject(ctx, created.ID)
	assert.ErrorIs(t, err, repository.ErrNotFound)
	assert.ErrorIs(t, s.DeleteProject(ctx, created.ID), repository.ErrNotFound)
}

func testProjectFilters(t *testing.T, s *repository.Store) {
	ctx := context.Background()
	a := testutil.MustCreateProject(t, s, testutil.ProjectOpts{Name: "CRM Rollout", Manager: "Dana Sales", Department: domain.DeptSales, Priority: domain.PriorityHigh})
	b := testutil.MustCreateProject(t, s, testutil.ProjectOpts{Name: "Payroll Audit", Manager: "Frank Finance", Department: domain.DeptFinance, Priority: domain.PriorityLow})
	c := testutil.MustCreateProject(t, s, testutil.ProjectOpts{Name: "API Gateway", Manager: "Dana Sales", Department: domain.DeptEngineering, Priority: domain.PriorityHigh})

	all, err := s.ListProjects(ctx, repository.ProjectFilter{})
	require.NoError(t, err)
	require.Len(t, all, 3)

	bySearch, err := s.ListProjects(ctx, repository.ProjectFilter{Search: "dana"})
	require.NoError(t, err)
	assert.ElementsMatch(t, []string{a.ID, c.ID}, ids(bySearch))

	byName, err := s.ListProjects(ctx, repository.ProjectFilter{Search: "PAYROLL"})
	require.NoError(t, err)
	assert.Equal(t, []string{b.ID}, ids(byName))

	byDept, err := s.ListProjects(ctx, repository.ProjectFilter{Department: domain.DeptSales, Priority: domain.PriorityHigh})
	require.NoError(t, err)
	assert.Equal(t, []string{a.ID}, ids(byDept))

	byManager, err := s.ListProjects(ctx, repository.ProjectFilter{ManagerID: a.ManagerID})
	require.NoError(t, err)
	assert.ElementsMatch(t, []string{a.ID, c.ID}, ids(byManager))

	byIDs, err := s.ListProjects(ctx, repository.ProjectFilter{IDs: []string{b.ID, c.ID}})
	require.NoError(t, err)
	assert.ElementsMatch(t, []string{b.ID, c.ID}, ids(byIDs))

	none, err := s.ListProjects(ctx, repository.ProjectFilter{IDs: []string{}})
	require.NoError(t, err)
	assert.Empty(t, none)
}

func testUsers(t *testing.T, s *repository.Store) {
	ctx := context.Background()
	u := testutil.MustCreateUser(t, s, domain.User{Name: "John Admin", Email: "John@ProjectPulse.com", Role: domain.RoleAdmin, PasswordHash: "x"})

	got, err := s.GetUserByEmail(ctx, "john@projectpulse.com")
	require.NoError(t, err)
	assert.Equal(t, u.ID, got.ID)
	assert.Equal(t, "x", got.PasswordHash)

	_, err = s.CreateUser(ctx, domain.User{Name: "Dup", Email: "john@projectpulse.com", Role: domain.RoleAdmin})
	assert.ErrorIs(t, err, repository.ErrConflict)

	require.NoError(t, s.SetPassword(ctx, u.ID, "y"))
	got, err = s.GetUserByID(ctx, u.ID)
	require.NoError(t, err)
	assert.Equal(t, "y", got.PasswordHash)

	_, err = s.GetUserByID(ctx, "nope")
	assert.ErrorIs(t, err, repository.ErrNotFound)

	users, err := s.ListUsers(ctx)
	require.NoError(t, err)
	assert.Len(t, users, 1)
}

func testNotifications(t *testing.T, s *repository.Store) {
	ctx := context.Background()
	p := testutil.MustCreateProject(t, s, testutil.ProjectOpts{})
	base := time.Date(2024, 5, 1, 9, 0, 0, 0, time.UTC)

	require.NoError(t, s.InsertNotifications(ctx, []domain.Notification{
		{ID: "n1", Type: domain.NotifyDeadlineWarning, ProjectID: p.ID, ProjectName: p.Name, Message: "m1", UserID: "u1", CreatedAt: base},
		{ID: "n2", Type: domain.NotifyProjectDelayed, ProjectID: p.ID, ProjectName: p.Name, Message: "m2", ActionRequired: true, UserID: "u1", CreatedAt: base.Add(time.Hour)},
		{ID: "n3", Type: domain.NotifyDeadlineWarning, ProjectID: p.ID, ProjectName: p.Name, Message: "m3", UserID: "u2", CreatedAt: base.Add(2 * time.Hour)},
	}))
	assert.ErrorIs(t, s.InsertNotifications(ctx, []domain.Notification{{ID: "n1", Type: domain.NotifyDeadlineWarning, ProjectID: p.ID, UserID: "u1", CreatedAt: base}}), repository.ErrConflict)

	list, err := s.ListNotifications(ctx, repository.NotificationFilter{UserID: "u1"})
	require.NoError(t, err)
	assert.Equal(t, []string{"n2", "n1"}, notificationIDs(list))
	assert.True(t, list[0].ActionRequired)

	count, err := s.CountUnread(ctx, "u1")
	require.NoError(t, err)
	assert.Equal(t, 2, count)

	require.NoError(t, s.MarkNotificationRead(ctx, "n1"))
	assert.ErrorIs(t, s.MarkNotificationRead(ctx, "missing"), repository.ErrNotFound)
	require.NoError(t, s.SetNotificationRead(ctx, "n1", false))
	count, err = s.CountUnread(ctx, "u1")
	require.NoError(t, err)
	assert.Equal(t, 2, count)
	require.NoError(t, s.SetNotificationRead(ctx, "n1", true))

	unread, err := s.ListNotifications(ctx, repository.NotificationFilter{UserID: "u1", UnreadOnly: true})
	require.NoError(t, err)
	assert.Equal(t, []string{"n2"}, notificationIDs(unread))

	n, err := s.MarkAllNotificationsRead(ctx, "u1")
	require.NoError(t, err)
	assert.EqualValues(t, 1, n)

	page, err := s.ListNotifications(ctx, repository.NotificationFilter{Limit: 1, Offset: 1})
	require.NoError(t, err)
	assert.Equal(t, []string{"n2"}, notificationIDs(page))

	deleted, err := s.DeleteReadNotificationsBefore(ctx, base.Add(90*time.Minute))
	require.NoError(t, err)
	assert.EqualValues(t, 2, deleted)

	require.NoError(t, s.DeleteNotification(ctx, "n3"))
	assert.ErrorIs(t, s.DeleteNotification(ctx, "n3"), repository.ErrNotFound)

	// Deleting a project cascades to its notifications.
	require.NoError(t, s.InsertNotifications(ctx, []domain.Notification{
		{ID: "n4", Type: domain.NotifyProjectDelayed, ProjectID: p.ID, ProjectName: p.Name, Message: "m4", UserID: "u1", CreatedAt: base},
	}))
	require.NoError(t, s.DeleteProject(ctx, p.ID))
	_, err = s.GetNotification(ctx, "n4")
	assert.ErrorIs(t, err, repository.ErrNotFound)
}

func testResolveExtension(t *testing.T, s *repository.Store) {
	ctx := context.Background()
	p := testutil.MustCreateProject(t, s, testutil.ProjectOpts{})
	now := time.Now().UTC()

	req := domain.Notification{ID: "req", Type: domain.NotifyExtensionRequest, ProjectID: p.ID, ProjectName: p.Name,
		Message: "Extension requested for " + p.Name, ExtensionReason: "vendor slip", ActionRequired: true, UserID: "admin", CreatedAt: now}
	require.NoError(t, s.InsertNotifications(ctx, []domain.Notification{req}))

	resp := domain.Notification{ID: "resp", Type: domain.NotifyExtensionApproved, ProjectID: p.ID, ProjectName: p.Name,
		Message: "Extension request for " + p.Name + " was approved", UserID: "admin", CreatedAt: now}
	require.NoError(t, s.ResolveExtension(ctx, "req", domain.ActionApprove, resp))

	got, err := s.GetNotification(ctx, "req")
	require.NoError(t, err)
	assert.Equal(t, "approve", got.ActionTaken)
	assert.True(t, got.Read)
	assert.False(t, got.ActionRequired)
	assert.Equal(t, "vendor slip", got.ExtensionReason)

	active, err := s.ListNotifications(ctx, repository.NotificationFilter{})
	require.NoError(t, err)
	assert.Equal(t, []string{"resp"}, notificationIDs(active))

	all, err := s.ListNotifications(ctx, repository.NotificationFilter{IncludeResolved: true})
	require.NoError(t, err)
	assert.Len(t, all, 2)

	resp.ID = "resp2"
	err = s.ResolveExtension(ctx, "req", domain.ActionReject, resp)
	assert.ErrorIs(t, err, repository.ErrConflict)
	_, err = s.GetNotification(ctx, "resp2")
	assert.ErrorIs(t, err, repository.ErrNotFound, "response must roll back with the failed resolve")
}

func testAudit(t *testing.T, s *repository.Store) {
	ctx := context.Background()
	require.NoError(t, s.AppendAudit(ctx, domain.AuditEntry{Action: "project.create", ResourceType: "project", ResourceID: "p1", Actor: "john"}))
	require.NoError(t, s.AppendAudit(ctx, domain.AuditEntry{Action: "project.update", ResourceType: "project", ResourceID: "p1", Actor: "john"}))

	entries, err := s.ListAudit(ctx, "project", "p1")
	require.NoError(t, err)
	require.Len(t, entries, 2)
	for _, e := range entries {
		assert.Contains(t, e.ID, "audit-")
	}
}

func ids(ps []domain.Project) []string {
	out := make([]string, len(ps))
	for i, p := range ps {
		out[i] = p.ID
	}
	return out
}

func notificationIDs(ns []domain.Notification) []string {
	out := make([]string, len(ns))
	for i, n := range ns {
		out[i] = n.ID
	}
	return out
}
