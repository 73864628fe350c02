package service

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"go.uber.org/zap"

	"projectpulse.io/pulse/internal/domain"
	"projectpulse.io/pulse/internal/governance/audit"
	apperrors "projectpulse.io/pulse/internal/pkg/errors"
	"projectpulse.io/pulse/internal/pkg/logger"
	"projectpulse.io/pulse/internal/repository"
	"projectpulse.io/pulse/internal/status"
)

// ProjectStore is the persistence ProjectService needs.
type ProjectStore interface {
	ListProjects(ctx context.Context, f repository.ProjectFilter) ([]domain.Project, error)
	GetProject(ctx context.Context, id string) (domain.Project, error)
	CreateProject(ctx context.Context, p domain.Project) (domain.Project, error)
	UpdateProject(ctx context.Context, id string, patch repository.ProjectPatch) (domain.Project, error)
	DeleteProject(ctx context.Context, id string) error
}

// ChangeNotifier is told about project writes.
type ChangeNotifier interface {
	OnProjectChanged(projectID string)
}

// ProjectService manages projects within the caller's scope. Every project
// it returns carries the effective status.
type ProjectService struct {
	store    ProjectStore
	audit    *audit.Logger
	notifier ChangeNotifier
	now      func() time.Time
}

// NewProjectService creates a ProjectService. auditLogger and notifier may be nil.
func NewProjectService(store ProjectStore, auditLogger *audit.Logger, notifier ChangeNotifier) *ProjectService {
	return &ProjectService{
		store:    store,
		audit:    auditLogger,
		notifier: notifier,
		now:      func() time.Time { return time.Now().UTC() },
	}
}

// SetClock overrides the clock used for effective status.
func (s *ProjectService) SetClock(now func() time.Time) {
	s.now = now
}

// List returns the visible projects matching q, most recently updated first.
func (s *ProjectService) List(ctx context.Context, actor Actor, q ProjectQuery) ([]domain.Project, error) {
	f := repository.ProjectFilter{Search: strings.TrimSpace(q.Search)}

	var fields []apperrors.FieldError
	if q.Department != "" && q.Department != "all" {
		d, err := domain.ParseDepartment(q.Department)
		if err != nil {
			fields = append(fields, invalidField("department", err))
		}
		f.Department = d
	}
	if q.Priority != "" && q.Priority != "all" {
		p, err := domain.ParsePriority(q.Priority)
		if err != nil {
			fields = append(fields, invalidField("priority", err))
		}
		f.Priority = p
	}
	var want domain.ProjectStatus
	if q.Status != "" && q.Status != "all" {
		st, err := domain.ParseProjectStatus(q.Status)
		if err != nil {
			fields = append(fields, invalidField("status", err))
		}
		want = st
	}
	if len(fields) > 0 {
		return nil, apperrors.Validation(fields...)
	}

	switch actor.Role {
	case domain.RoleAdmin:
	case domain.RoleDepartment:
		if f.Department != "" && f.Department != actor.Department {
			return []domain.Project{}, nil
		}
		f.Department = actor.Department
	case domain.RoleProject:
		f.ManagerID = actor.ID
	default:
		return nil, apperrors.Forbidden(apperrors.CodeForbidden, "role has no project access")
	}

	projects, err := s.store.ListProjects(ctx, f)
	if err != nil {
		return nil, fmt.Errorf("list projects: %w", err)
	}

	projects = status.Apply(projects, s.now())
	if want == "" {
		return projects, nil
	}
	out := projects[:0]
	for _, p := range projects {
		if p.Status == want {
			out = append(out, p)
		}
	}
	return out, nil
}

// Get returns one visible project.
func (s *ProjectService) Get(ctx context.Context, actor Actor, id string) (domain.Project, error) {
	p, err := s.load(ctx, actor, id)
	if err != nil {
		return domain.Project{}, err
	}
	p.Status = status.ComputeStatus(p, s.now())
	return p, nil
}

// Create validates in and stores a new project.
func (s *ProjectService) Create(ctx context.Context, actor Actor, in ProjectInput) (domain.Project, error) {
	p, err := s.validateInput(in)
	if err != nil {
		return domain.Project{}, err
	}
	if !actor.IsAdmin() && actor.Role == domain.RoleDepartment && p.Department != actor.Department {
		return domain.Project{}, apperrors.Forbidden(apperrors.CodeForbidden, "projects can only be created in your department")
	}

	created, err := s.store.CreateProject(ctx, p)
	if err != nil {
		return domain.Project{}, apperrors.Wrap(err, apperrors.CodeProjectCreateFailed, "failed to create project", http.StatusInternalServerError)
	}

	_ = s.audit.LogProject(ctx, "created", created.ID, actor.Label(), map[string]any{
		"name":       created.Name,
		"department": string(created.Department),
	})
	logger.Info("Project created",
		zap.String("project_id", created.ID),
		zap.String("actor", actor.Label()),
	)
	s.changed(created.ID)

	created.Status = status.ComputeStatus(created, s.now())
	return created, nil
}

// Update applies a partial update to a visible project.
func (s *ProjectService) Update(ctx context.Context, actor Actor, id string, in ProjectUpdate) (domain.Project, error) {
	current, err := s.load(ctx, actor, id)
	if err != nil {
		return domain.Project{}, err
	}

	patch, changed, err := s.validateUpdate(current, in)
	if err != nil {
		return domain.Project{}, err
	}
	if actor.Role == domain.RoleDepartment && patch.Department != nil && *patch.Department != actor.Department {
		return domain.Project{}, apperrors.Forbidden(apperrors.CodeForbidden, "projects cannot be moved out of your department")
	}

	updated, err := s.store.UpdateProject(ctx, id, patch)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return domain.Project{}, projectNotFound(id)
		}
		return domain.Project{}, apperrors.Wrap(err, apperrors.CodeProjectUpdateFailed, "failed to update project", http.StatusInternalServerError)
	}

	_ = s.audit.LogProject(ctx, "updated", id, actor.Label(), map[string]any{"fields": changed})
	logger.Info("Project updated",
		zap.String("project_id", id),
		zap.Strings("fields", changed),
		zap.String("actor", actor.Label()),
	)
	s.changed(id)

	updated.Status = status.ComputeStatus(updated, s.now())
	return updated, nil
}

// Delete removes a visible project together with its notifications.
func (s *ProjectService) Delete(ctx context.Context, actor Actor, id string) error {
	p, err := s.load(ctx, actor, id)
	if err != nil {
		return err
	}
	if err := s.store.DeleteProject(ctx, id); err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return projectNotFound(id)
		}
		return fmt.Errorf("delete project %s: %w", id, err)
	}

	_ = s.audit.LogProject(ctx, "deleted", id, actor.Label(), map[string]any{"name": p.Name})
	logger.Info("Project deleted",
		zap.String("project_id", id),
		zap.String("actor", actor.Label()),
	)
	return nil
}

func (s *ProjectService) load(ctx context.Context, actor Actor, id string) (domain.Project, error) {
	p, err := s.store.GetProject(ctx, id)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return domain.Project{}, projectNotFound(id)
		}
		return domain.Project{}, fmt.Errorf("get project %s: %w", id, err)
	}
	if !actor.CanSee(p) {
		// Out-of-scope projects are reported as missing.
		return domain.Project{}, projectNotFound(id)
	}
	return p, nil
}

func (s *ProjectService) changed(id string) {
	if s.notifier != nil {
		s.notifier.OnProjectChanged(id)
	}
}

func (s *ProjectService) validateInput(in ProjectInput) (domain.Project, error) {
	var fields []apperrors.FieldError
	p := domain.Project{
		Name:         strings.TrimSpace(in.Name),
		Manager:      strings.TrimSpace(in.Manager),
		Stakeholders: nonNil(in.Stakeholders),
		Partners:     nonNil(in.Partners),
		Status:       domain.StatusUpcoming,
		Priority:     domain.PriorityMedium,
	}

	if p.Name == "" {
		fields = append(fields, requiredField("projectName"))
	}
	if p.Manager == "" {
		fields = append(fields, requiredField("projectManager"))
	}

	if d, err := domain.ParseDepartment(in.Department); err != nil {
		fields = append(fields, invalidField("department", err))
	} else {
		p.Department = d
	}
	if in.Priority != "" {
		if v, err := domain.ParsePriority(in.Priority); err != nil {
			fields = append(fields, invalidField("priority", err))
		} else {
			p.Priority = v
		}
	}
	if in.Status != "" {
		if v, err := domain.ParseProjectStatus(in.Status); err != nil {
			fields = append(fields, invalidField("status", err))
		} else {
			p.Status = v
		}
	}

	var startOK, endOK bool
	p.StartDate, startOK, fields = parseDateField("startDate", in.StartDate, fields)
	p.EndDate, endOK, fields = parseDateField("endDate", in.EndDate, fields)
	if startOK && endOK && p.EndDate.Before(p.StartDate) {
		fields = append(fields, apperrors.FieldError{Field: "endDate", Code: "BEFORE_START", Message: "end date must not be before start date"})
	}

	if in.PercentComplete != nil {
		p.PercentComplete = *in.PercentComplete
		if p.PercentComplete < 0 || p.PercentComplete > 100 {
			fields = append(fields, percentField())
		}
	}

	if len(fields) > 0 {
		return domain.Project{}, apperrors.Validation(fields...)
	}
	return p, nil
}

func (s *ProjectService) validateUpdate(current domain.Project, in ProjectUpdate) (repository.ProjectPatch, []string, error) {
	var (
		patch   repository.ProjectPatch
		changed []string
		fields  []apperrors.FieldError
	)

	if in.Name != nil {
		v := strings.TrimSpace(*in.Name)
		if v == "" {
			fields = append(fields, requiredField("projectName"))
		}
		patch.Name = &v
		changed = append(changed, "projectName")
	}
	if in.Manager != nil {
		v := strings.TrimSpace(*in.Manager)
		if v == "" {
			fields = append(fields, requiredField("projectManager"))
		}
		patch.Manager = &v
		changed = append(changed, "projectManager")
	}
	if in.Department != nil {
		d, err := domain.ParseDepartment(*in.Department)
		if err != nil {
			fields = append(fields, invalidField("department", err))
		}
		patch.Department = &d
		changed = append(changed, "department")
	}
	if in.Priority != nil {
		v, err := domain.ParsePriority(*in.Priority)
		if err != nil {
			fields = append(fields, invalidField("priority", err))
		}
		patch.Priority = &v
		changed = append(changed, "priority")
	}
	if in.Status != nil {
		v, err := domain.ParseProjectStatus(*in.Status)
		if err != nil {
			fields = append(fields, invalidField("status", err))
		}
		patch.Status = &v
		changed = append(changed, "status")
	}

	start, end := current.StartDate, current.EndDate
	datesOK := true
	if in.StartDate != nil {
		var ok bool
		start, ok, fields = parseDateField("startDate", *in.StartDate, fields)
		datesOK = datesOK && ok
		patch.StartDate = &start
		changed = append(changed, "startDate")
	}
	if in.EndDate != nil {
		var ok bool
		end, ok, fields = parseDateField("endDate", *in.EndDate, fields)
		datesOK = datesOK && ok
		patch.EndDate = &end
		changed = append(changed, "endDate")
	}
	if datesOK && (in.StartDate != nil || in.EndDate != nil) && end.Before(start) {
		fields = append(fields, apperrors.FieldError{Field: "endDate", Code: "BEFORE_START", Message: "end date must not be before start date"})
	}

	if in.PercentComplete != nil {
		v := *in.PercentComplete
		if v < 0 || v > 100 {
			fields = append(fields, percentField())
		}
		patch.PercentComplete = &v
		changed = append(changed, "percentComplete")
	}
	if in.Stakeholders != nil {
		v := nonNil(*in.Stakeholders)
		patch.Stakeholders = &v
		changed = append(changed, "stakeholders")
	}
	if in.Partners != nil {
		v := nonNil(*in.Partners)
		patch.Partners = &v
		changed = append(changed, "partners")
	}

	if len(fields) > 0 {
		return repository.ProjectPatch{}, nil, apperrors.Validation(fields...)
	}
	return patch, changed, nil
}

func parseDateField(name, raw string, fields []apperrors.FieldError) (time.Time, bool, []apperrors.FieldError) {
	if strings.TrimSpace(raw) == "" {
		return time.Time{}, false, append(fields, requiredField(name))
	}
	t, err := domain.ParseDate(raw)
	if err != nil {
		return time.Time{}, false, append(fields, apperrors.FieldError{Field: name, Code: "INVALID_DATE", Message: err.Error()})
	}
	return t, true, fields
}

func validationErr(fields ...apperrors.FieldError) error {
	return apperrors.Validation(fields...)
}

func requiredField(name string) apperrors.FieldError {
	return apperrors.FieldError{Field: name, Code: "REQUIRED", Message: name + " is required"}
}

func invalidField(name string, err error) apperrors.FieldError {
	return apperrors.FieldError{Field: name, Code: "INVALID_VALUE", Message: err.Error()}
}

func percentField() apperrors.FieldError {
	return apperrors.FieldError{Field: "percentComplete", Code: "OUT_OF_RANGE", Message: "percentComplete must be between 0 and 100"}
}

func projectNotFound(id string) error {
	return apperrors.NotFound(apperrors.CodeProjectNotFound, "project not found").
		WithParams(map[string]any{"id": id})
}

func nonNil(l NameList) []string {
	if l == nil {
		return []string{}
	}
	return []string(l)
}
