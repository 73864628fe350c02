// Package repository persists projects, users, notifications and audit
// entries through sqlx, on PostgreSQL (pgx) or SQLite (modernc).
package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jmoiron/sqlx"
	"modernc.org/sqlite"
	sqlite3 "modernc.org/sqlite/lib"

	"projectpulse.io/pulse/internal/domain"
	apperrors "projectpulse.io/pulse/internal/pkg/errors"
)

// Driver names accepted by New.
const (
	DriverPostgres = "pgx"
	DriverSQLite   = "sqlite"
)

// ErrNotFound is returned when a record does not exist.
var ErrNotFound = apperrors.ErrNotFound

// ErrConflict is returned on unique violations and lost state races.
var ErrConflict = apperrors.ErrConflict

// ProjectFilter narrows ListProjects. Zero values match everything.
type ProjectFilter struct {
	Search     string
	Department domain.Department
	Priority   domain.Priority
	ManagerID  string
	IDs        []string
}

// ProjectPatch is a partial project update. Nil fields are left unchanged.
type ProjectPatch struct {
	Name            *string
	Manager         *string
	Department      *domain.Department
	Priority        *domain.Priority
	Status          *domain.ProjectStatus
	StartDate       *time.Time
	EndDate         *time.Time
	PercentComplete *int
	Stakeholders    *[]string
	Partners        *[]string
}

// NotificationFilter narrows ListNotifications.
type NotificationFilter struct {
	UserID          string
	ProjectID       string
	UnreadOnly      bool
	IncludeResolved bool
	Limit           int
	Offset          int
}

// Store is the SQL-backed store.
type Store struct {
	db  *sqlx.DB
	now func() time.Time
}

// New wraps an open sqlx handle. Call Migrate before first use.
func New(db *sqlx.DB) *Store {
	return &Store{db: db, now: func() time.Time { return time.Now().UTC() }}
}

// OpenSQLite opens a SQLite database at path (":memory:" for tests).
func OpenSQLite(ctx context.Context, path string) (*Store, error) {
	dsn := path
	if path != ":memory:" {
		dsn = "file:" + path + "?_pragma=busy_timeout(5000)"
	}
	db, err := sqlx.Open(DriverSQLite, dsn)
	if err != nil {
		return nil, fmt.Errorf("opening sqlite db: %w", err)
	}
	// One connection: serialises writers and keeps ":memory:" a single database.
	db.SetMaxOpenConns(1)

	for _, pragma := range []string{"PRAGMA journal_mode=WAL", "PRAGMA foreign_keys=ON"} {
		if _, err := db.ExecContext(ctx, pragma); err != nil {
			db.Close()
			return nil, fmt.Errorf("%s: %w", pragma, err)
		}
	}
	return New(db), nil
}

// DB exposes the underlying handle.
func (s *Store) DB() *sqlx.DB {
	return s.db
}

// Driver returns the sqlx driver name.
func (s *Store) Driver() string {
	return s.db.DriverName()
}

// Ping checks connectivity.
func (s *Store) Ping(ctx context.Context) error {
	return s.db.PingContext(ctx)
}

// Close closes the handle.
func (s *Store) Close() error {
	return s.db.Close()
}

// SetClock overrides the timestamp source.
func (s *Store) SetClock(now func() time.Time) {
	s.now = now
}

func (s *Store) inTx(ctx context.Context, fn func(tx *sqlx.Tx) error) error {
	tx, err := s.db.BeginTxx(ctx, nil)
	if err != nil {
		return fmt.Errorf("beginning transaction: %w", err)
	}
	defer tx.Rollback() //nolint:errcheck

	if err := fn(tx); err != nil {
		return err
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("committing transaction: %w", err)
	}
	return nil
}

func newID() string {
	id, err := uuid.NewV7()
	if err != nil {
		return uuid.NewString()
	}
	return id.String()
}

func notFound(kind, id string, err error) error {
	if errors.Is(err, sql.ErrNoRows) {
		return fmt.Errorf("%s %s: %w", kind, id, ErrNotFound)
	}
	return fmt.Errorf("loading %s %s: %w", kind, id, err)
}

func isUniqueViolation(err error) bool {
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		return pgErr.Code == "23505"
	}
	var liteErr *sqlite.Error
	if errors.As(err, &liteErr) {
		code := liteErr.Code()
		return code == sqlite3.SQLITE_CONSTRAINT_UNIQUE || code == sqlite3.SQLITE_CONSTRAINT_PRIMARYKEY
	}
	return false
}

func likePattern(q string) string {
	return "%" + strings.ToLower(strings.TrimSpace(q)) + "%"
}
