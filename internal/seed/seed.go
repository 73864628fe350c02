// Package seed loads demo accounts and projects into an empty or partially
// seeded database. Seeding is idempotent: users are matched by email and
// projects by exact name.
package seed

import (
	"bytes"
	"context"
	_ "embed"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"

	"go.uber.org/zap"
	"gopkg.in/yaml.v3"

	"projectpulse.io/pulse/internal/domain"
	apperrors "projectpulse.io/pulse/internal/pkg/errors"
	"projectpulse.io/pulse/internal/pkg/logger"
	"projectpulse.io/pulse/internal/repository"
)

//go:embed fixtures.yaml
var defaultFixtures []byte

// Fixtures is the YAML seed document.
type Fixtures struct {
	Users    []UserFixture    `yaml:"users"`
	Projects []ProjectFixture `yaml:"projects"`
}

// UserFixture describes one account.
type UserFixture struct {
	ID         string `yaml:"id"`
	Name       string `yaml:"name"`
	Email      string `yaml:"email"`
	Role       string `yaml:"role"`
	Department string `yaml:"department"`
}

// ProjectFixture describes one project. Dates are ISO-8601.
type ProjectFixture struct {
	Name         string   `yaml:"name"`
	Manager      string   `yaml:"manager"`
	Department   string   `yaml:"department"`
	Priority     string   `yaml:"priority"`
	Status       string   `yaml:"status"`
	Start        string   `yaml:"start"`
	End          string   `yaml:"end"`
	Percent      int      `yaml:"percent"`
	Stakeholders []string `yaml:"stakeholders"`
	Partners     []string `yaml:"partners"`
}

// Store is the subset of the repository used for seeding.
type Store interface {
	GetUserByEmail(ctx context.Context, email string) (domain.User, error)
	CreateUser(ctx context.Context, u domain.User) (domain.User, error)
	ListProjects(ctx context.Context, f repository.ProjectFilter) ([]domain.Project, error)
	CreateProject(ctx context.Context, p domain.Project) (domain.Project, error)
}

// Result counts what a run inserted and skipped.
type Result struct {
	UsersCreated    int `json:"usersCreated"`
	UsersSkipped    int `json:"usersSkipped"`
	ProjectsCreated int `json:"projectsCreated"`
	ProjectsSkipped int `json:"projectsSkipped"`
}

// Default returns the embedded demo fixtures.
func Default() (*Fixtures, error) {
	return Parse(bytes.NewReader(defaultFixtures))
}

// LoadFile reads fixtures from path, or the embedded set when path is empty.
func LoadFile(path string) (*Fixtures, error) {
	if path == "" {
		return Default()
	}
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open fixtures: %w", err)
	}
	defer f.Close()
	return Parse(f)
}

// Parse decodes and validates a fixtures document.
func Parse(r io.Reader) (*Fixtures, error) {
	var fx Fixtures
	dec := yaml.NewDecoder(r)
	dec.KnownFields(true)
	if err := dec.Decode(&fx); err != nil && !errors.Is(err, io.EOF) {
		return nil, fmt.Errorf("decode fixtures: %w", err)
	}
	if err := fx.validate(); err != nil {
		return nil, err
	}
	return &fx, nil
}

func (fx *Fixtures) validate() error {
	for i, u := range fx.Users {
		if strings.TrimSpace(u.Name) == "" || strings.TrimSpace(u.Email) == "" {
			return fmt.Errorf("users[%d]: name and email are required", i)
		}
		if _, err := domain.ParseRole(u.Role); err != nil {
			return fmt.Errorf("users[%d]: %w", i, err)
		}
		if u.Department != "" {
			if _, err := domain.ParseDepartment(u.Department); err != nil {
				return fmt.Errorf("users[%d]: %w", i, err)
			}
		}
	}
	for i, p := range fx.Projects {
		if _, err := p.project(); err != nil {
			return fmt.Errorf("projects[%d] %q: %w", i, p.Name, err)
		}
	}
	return nil
}

func (p ProjectFixture) project() (domain.Project, error) {
	if strings.TrimSpace(p.Name) == "" || strings.TrimSpace(p.Manager) == "" {
		return domain.Project{}, errors.New("name and manager are required")
	}
	dept, err := domain.ParseDepartment(p.Department)
	if err != nil {
		return domain.Project{}, err
	}
	prio, err := domain.ParsePriority(p.Priority)
	if err != nil {
		return domain.Project{}, err
	}
	status := domain.StatusInProgress
	if p.Status != "" {
		if status, err = domain.ParseProjectStatus(p.Status); err != nil {
			return domain.Project{}, err
		}
	}
	start, err := domain.ParseDate(p.Start)
	if err != nil {
		return domain.Project{}, err
	}
	end, err := domain.ParseDate(p.End)
	if err != nil {
		return domain.Project{}, err
	}
	if end.Before(start) {
		return domain.Project{}, errors.New("end is before start")
	}
	if p.Percent < 0 || p.Percent > 100 {
		return domain.Project{}, fmt.Errorf("percent %d is out of range", p.Percent)
	}
	return domain.Project{
		Name:            p.Name,
		Manager:         p.Manager,
		Department:      dept,
		Priority:        prio,
		Status:          status,
		StartDate:       start,
		EndDate:         end,
		PercentComplete: p.Percent,
		Stakeholders:    nonNil(p.Stakeholders),
		Partners:        nonNil(p.Partners),
	}, nil
}

func nonNil(s []string) []string {
	if s == nil {
		return []string{}
	}
	return s
}

// Run inserts missing users, then missing projects. passwordHash is stored
// on every created user.
func Run(ctx context.Context, store Store, fx *Fixtures, passwordHash string) (Result, error) {
	var res Result

	for _, uf := range fx.Users {
		_, err := store.GetUserByEmail(ctx, uf.Email)
		if err == nil {
			res.UsersSkipped++
			continue
		}
		if !errors.Is(err, apperrors.ErrNotFound) {
			return res, fmt.Errorf("look up user %s: %w", uf.Email, err)
		}
		u, err := store.CreateUser(ctx, domain.User{
			ID:           uf.ID,
			Name:         uf.Name,
			Email:        uf.Email,
			Role:         domain.Role(uf.Role),
			Department:   domain.Department(uf.Department),
			PasswordHash: passwordHash,
		})
		if err != nil {
			return res, fmt.Errorf("create user %s: %w", uf.Email, err)
		}
		res.UsersCreated++
		logger.Info("Seeded user", zap.String("id", u.ID), zap.String("email", u.Email), zap.String("role", string(u.Role)))
	}

	for _, pf := range fx.Projects {
		exists, err := projectExists(ctx, store, pf.Name)
		if err != nil {
			return res, err
		}
		if exists {
			res.ProjectsSkipped++
			continue
		}
		p, err := pf.project()
		if err != nil {
			return res, fmt.Errorf("project %q: %w", pf.Name, err)
		}
		created, err := store.CreateProject(ctx, p)
		if err != nil {
			return res, fmt.Errorf("create project %q: %w", pf.Name, err)
		}
		res.ProjectsCreated++
		logger.Info("Seeded project", zap.String("id", created.ID), zap.String("name", created.Name))
	}
	return res, nil
}

func projectExists(ctx context.Context, store Store, name string) (bool, error) {
	matches, err := store.ListProjects(ctx, repository.ProjectFilter{Search: name})
	if err != nil {
		return false, fmt.Errorf("look up project %q: %w", name, err)
	}
	for _, p := range matches {
		if p.Name == name {
			return true, nil
		}
	}
	return false, nil
}
