// Package testutil provides stores and fixtures for package tests.
package testutil

import (
	"context"
	"testing"
	"time"

	"projectpulse.io/pulse/internal/domain"
	"projectpulse.io/pulse/internal/repository"
)

// NewTestStore returns a migrated in-memory SQLite store closed on cleanup.
func NewTestStore(t *testing.T) *repository.Store {
	t.Helper()

	ctx := context.Background()
	s, err := repository.OpenSQLite(ctx, ":memory:")
	if err != nil {
		t.Fatalf("creating test store: %v", err)
	}
	t.Cleanup(func() {
		if err := s.Close(); err != nil {
			t.Errorf("closing test store: %v", err)
		}
	})
	if err := s.Migrate(ctx); err != nil {
		t.Fatalf("migrating test store: %v", err)
	}
	return s
}

// Day returns UTC midnight offset days from ref.
func Day(ref time.Time, offset int) time.Time {
	d := ref.UTC().AddDate(0, 0, offset)
	return time.Date(d.Year(), d.Month(), d.Day(), 0, 0, 0, 0, time.UTC)
}

// ProjectOpts customises MustCreateProject.
type ProjectOpts struct {
	Name       string
	Manager    string
	Department domain.Department
	Priority   domain.Priority
	Status     domain.ProjectStatus
	Start, End time.Time
	Percent    int
}

// MustCreateProject inserts a project with sensible defaults.
func MustCreateProject(t *testing.T, s *repository.Store, o ProjectOpts) domain.Project {
	t.Helper()
	if o.Name == "" {
		o.Name = "Website Redesign"
	}
	if o.Manager == "" {
		o.Manager = "Sarah Engineer"
	}
	if o.Department == "" {
		o.Department = domain.DeptEngineering
	}
	if o.Priority == "" {
		o.Priority = domain.PriorityMedium
	}
	if o.Status == "" {
		o.Status = domain.StatusInProgress
	}
	now := time.Now().UTC()
	if o.Start.IsZero() {
		o.Start = Day(now, -30)
	}
	if o.End.IsZero() {
		o.End = Day(now, 30)
	}

	p, err := s.CreateProject(context.Background(), domain.Project{
		Name:            o.Name,
		Manager:         o.Manager,
		Department:      o.Department,
		Priority:        o.Priority,
		Status:          o.Status,
		StartDate:       o.Start,
		EndDate:         o.End,
		PercentComplete: o.Percent,
		Stakeholders:    []string{"Alice"},
		Partners:        []string{},
	})
	if err != nil {
		t.Fatalf("creating project %q: %v", o.Name, err)
	}
	return p
}

// MustCreateUser inserts a user.
func MustCreateUser(t *testing.T, s *repository.Store, u domain.User) domain.User {
	t.Helper()
	created, err := s.CreateUser(context.Background(), u)
	if err != nil {
		t.Fatalf("creating user %q: %v", u.Email, err)
	}
	return created
}
