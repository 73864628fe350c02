package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"

	"github.com/jmoiron/sqlx"

	"projectpulse.io/pulse/internal/domain"
)

const projectColumns = `
	p.id, p.name, p.manager_id, u.name AS manager_name, p.department, p.priority,
	p.status, p.start_date, p.end_date, p.percent_complete, p.created_at, p.updated_at`

const projectFrom = ` FROM projects p JOIN users u ON u.id = p.manager_id`

// ListProjects returns projects matching f, most recently updated first.
func (s *Store) ListProjects(ctx context.Context, f ProjectFilter) ([]domain.Project, error) {
	var (
		conds []string
		args  []interface{}
	)
	if f.Search != "" {
		conds = append(conds, "(LOWER(p.name) LIKE ? OR LOWER(u.name) LIKE ?)")
		q := likePattern(f.Search)
		args = append(args, q, q)
	}
	if f.Department != "" {
		conds = append(conds, "p.department = ?")
		args = append(args, string(f.Department))
	}
	if f.Priority != "" {
		conds = append(conds, "p.priority = ?")
		args = append(args, string(f.Priority))
	}
	if f.ManagerID != "" {
		conds = append(conds, "p.manager_id = ?")
		args = append(args, f.ManagerID)
	}
	if f.IDs != nil {
		if len(f.IDs) == 0 {
			return []domain.Project{}, nil
		}
		conds = append(conds, "p.id IN (?)")
		args = append(args, f.IDs)
	}

	query := "SELECT" + projectColumns + projectFrom
	if len(conds) > 0 {
		query += " WHERE " + strings.Join(conds, " AND ")
	}
	query += " ORDER BY p.updated_at DESC, p.id"

	query, args, err := sqlx.In(query, args...)
	if err != nil {
		return nil, fmt.Errorf("expanding project query: %w", err)
	}

	projects := []domain.Project{}
	if err := s.db.SelectContext(ctx, &projects, s.db.Rebind(query), args...); err != nil {
		return nil, fmt.Errorf("listing projects: %w", err)
	}
	if err := loadMembers(ctx, s.db, projects); err != nil {
		return nil, err
	}
	return projects, nil
}

// GetProject loads one project.
func (s *Store) GetProject(ctx context.Context, id string) (domain.Project, error) {
	return getProject(ctx, s.db, id)
}

func getProject(ctx context.Context, q sqlx.ExtContext, id string) (domain.Project, error) {
	var p domain.Project
	err := sqlx.GetContext(ctx, q, &p, q.Rebind("SELECT"+projectColumns+projectFrom+" WHERE p.id = ?"), id)
	if err != nil {
		return domain.Project{}, notFound("project", id, err)
	}
	one := []domain.Project{p}
	if err := loadMembers(ctx, q, one); err != nil {
		return domain.Project{}, err
	}
	return one[0], nil
}

// CreateProject inserts p, creating its manager user by name when no such
// user exists. ID and timestamps are assigned here.
func (s *Store) CreateProject(ctx context.Context, p domain.Project) (domain.Project, error) {
	now := s.now()
	if p.ID == "" {
		p.ID = newID()
	}
	p.CreatedAt, p.UpdatedAt = now, now

	err := s.inTx(ctx, func(tx *sqlx.Tx) error {
		manager, err := s.managerByName(ctx, tx, p.Manager, p.Department)
		if err != nil {
			return err
		}
		p.ManagerID = manager.ID

		_, err = tx.ExecContext(ctx, tx.Rebind(`
			INSERT INTO projects (id, name, manager_id, department, priority, status,
				start_date, end_date, percent_complete, created_at, updated_at)
			VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`),
			p.ID, p.Name, p.ManagerID, string(p.Department), string(p.Priority), string(p.Status),
			p.StartDate.UTC(), p.EndDate.UTC(), p.PercentComplete, p.CreatedAt, p.UpdatedAt,
		)
		if err != nil {
			if isUniqueViolation(err) {
				return fmt.Errorf("project %s: %w", p.ID, ErrConflict)
			}
			return fmt.Errorf("creating project: %w", err)
		}
		if err := replaceMembers(ctx, tx, "project_stakeholders", p.ID, p.Stakeholders); err != nil {
			return err
		}
		return replaceMembers(ctx, tx, "project_partners", p.ID, p.Partners)
	})
	if err != nil {
		return domain.Project{}, err
	}
	return s.GetProject(ctx, p.ID)
}

// UpdateProject applies patch to project id and bumps updated_at.
func (s *Store) UpdateProject(ctx context.Context, id string, patch ProjectPatch) (domain.Project, error) {
	err := s.inTx(ctx, func(tx *sqlx.Tx) error {
		p, err := getProject(ctx, tx, id)
		if err != nil {
			return err
		}

		if patch.Name != nil {
			p.Name = *patch.Name
		}
		if patch.Department != nil {
			p.Department = *patch.Department
		}
		if patch.Manager != nil && *patch.Manager != p.Manager {
			manager, err := s.managerByName(ctx, tx, *patch.Manager, p.Department)
			if err != nil {
				return err
			}
			p.ManagerID = manager.ID
		}
		if patch.Priority != nil {
			p.Priority = *patch.Priority
		}
		if patch.Status != nil {
			p.Status = *patch.Status
		}
		if patch.StartDate != nil {
			p.StartDate = *patch.StartDate
		}
		if patch.EndDate != nil {
			p.EndDate = *patch.EndDate
		}
		if patch.PercentComplete != nil {
			p.PercentComplete = *patch.PercentComplete
		}

		_, err = tx.ExecContext(ctx, tx.Rebind(`
			UPDATE projects SET name = ?, manager_id = ?, department = ?, priority = ?, status = ?,
				start_date = ?, end_date = ?, percent_complete = ?, updated_at = ?
			WHERE id = ?`),
			p.Name, p.ManagerID, string(p.Department), string(p.Priority), string(p.Status),
			p.StartDate.UTC(), p.EndDate.UTC(), p.PercentComplete, s.now(), id,
		)
		if err != nil {
			return fmt.Errorf("updating project %s: %w", id, err)
		}

		if patch.Stakeholders != nil {
			if err := replaceMembers(ctx, tx, "project_stakeholders", id, *patch.Stakeholders); err != nil {
				return err
			}
		}
		if patch.Partners != nil {
			if err := replaceMembers(ctx, tx, "project_partners", id, *patch.Partners); err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		return domain.Project{}, err
	}
	return s.GetProject(ctx, id)
}

// DeleteProject removes a project with its members and notifications.
func (s *Store) DeleteProject(ctx context.Context, id string) error {
	res, err := s.db.ExecContext(ctx, s.db.Rebind(`DELETE FROM projects WHERE id = ?`), id)
	if err != nil {
		return fmt.Errorf("deleting project %s: %w", id, err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return fmt.Errorf("project %s: %w", id, ErrNotFound)
	}
	return nil
}

// managerByName returns the user called name, creating a project-role user
// when there is none.
func (s *Store) managerByName(ctx context.Context, tx *sqlx.Tx, name string, dept domain.Department) (domain.User, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return domain.User{}, fmt.Errorf("project manager name is empty")
	}

	var u domain.User
	err := tx.GetContext(ctx, &u, tx.Rebind(`SELECT `+userColumns+` FROM users WHERE name = ? ORDER BY created_at LIMIT 1`), name)
	if err == nil {
		return u, nil
	}
	if !errors.Is(err, sql.ErrNoRows) {
		return domain.User{}, fmt.Errorf("looking up manager %q: %w", name, err)
	}

	u = domain.User{
		ID:         newID(),
		Name:       name,
		Email:      ManagerEmail(name),
		Role:       domain.RoleProject,
		Department: dept,
		CreatedAt:  s.now(),
	}
	if err := insertUser(ctx, tx, u); err != nil {
		return domain.User{}, err
	}
	return u, nil
}

// ManagerEmail derives the address given to auto-created managers.
func ManagerEmail(name string) string {
	return strings.Join(strings.Fields(strings.ToLower(name)), ".") + "@projectpulse.com"
}

type memberRow struct {
	ProjectID string `db:"project_id"`
	Name      string `db:"name"`
}

func loadMembers(ctx context.Context, q sqlx.ExtContext, projects []domain.Project) error {
	if len(projects) == 0 {
		return nil
	}
	ids := make([]string, len(projects))
	pos := make(map[string]int, len(projects))
	for i, p := range projects {
		ids[i] = p.ID
		pos[p.ID] = i
		projects[i].Stakeholders = []string{}
		projects[i].Partners = []string{}
	}

	for _, table := range []string{"project_stakeholders", "project_partners"} {
		query, args, err := sqlx.In(`SELECT project_id, name FROM `+table+` WHERE project_id IN (?) ORDER BY position`, ids)
		if err != nil {
			return fmt.Errorf("expanding %s query: %w", table, err)
		}
		var rows []memberRow
		if err := sqlx.SelectContext(ctx, q, &rows, q.Rebind(query), args...); err != nil {
			return fmt.Errorf("loading %s: %w", table, err)
		}
		for _, r := range rows {
			i := pos[r.ProjectID]
			if table == "project_stakeholders" {
				projects[i].Stakeholders = append(projects[i].Stakeholders, r.Name)
			} else {
				projects[i].Partners = append(projects[i].Partners, r.Name)
			}
		}
	}
	return nil
}

func replaceMembers(ctx context.Context, tx *sqlx.Tx, table, projectID string, names []string) error {
	if _, err := tx.ExecContext(ctx, tx.Rebind(`DELETE FROM `+table+` WHERE project_id = ?`), projectID); err != nil {
		return fmt.Errorf("clearing %s for project %s: %w", table, projectID, err)
	}
	seen := make(map[string]struct{}, len(names))
	for i, name := range names {
		if _, dup := seen[name]; dup || name == "" {
			continue
		}
		seen[name] = struct{}{}
		_, err := tx.ExecContext(ctx, tx.Rebind(`INSERT INTO `+table+` (project_id, name, position) VALUES (?, ?, ?)`), projectID, name, i)
		if err != nil {
			return fmt.Errorf("adding %s %q to project %s: %w", table, name, projectID, err)
		}
	}
	return nil
}
