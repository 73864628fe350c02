package repository

import (
	"context"
	"fmt"
	"strings"

	"github.com/jmoiron/sqlx"
)

type migration struct {
	version int
	stmts   []string
}

// schema is written once with {{placeholders}} expanded per dialect.
var schema = []migration{
	{
		version: 1,
		stmts: []string{
			`CREATE TABLE IF NOT EXISTS users (
				id            TEXT PRIMARY KEY,
				name          TEXT NOT NULL,
				email         TEXT NOT NULL UNIQUE,
				role          TEXT NOT NULL,
				department    TEXT NOT NULL DEFAULT '',
				password_hash TEXT NOT NULL DEFAULT '',
				created_at    {{ts}} NOT NULL
			)`,
			`CREATE TABLE IF NOT EXISTS projects (
				id               TEXT PRIMARY KEY,
				name             TEXT NOT NULL,
				manager_id       TEXT NOT NULL REFERENCES users(id),
				department       TEXT NOT NULL,
				priority         TEXT NOT NULL,
				status           TEXT NOT NULL,
				start_date       {{date}} NOT NULL,
				end_date         {{date}} NOT NULL,
				percent_complete INTEGER NOT NULL DEFAULT 0 CHECK (percent_complete BETWEEN 0 AND 100),
				created_at       {{ts}} NOT NULL,
				updated_at       {{ts}} NOT NULL
			)`,
			`CREATE INDEX IF NOT EXISTS idx_projects_updated_at ON projects(updated_at)`,
			`CREATE INDEX IF NOT EXISTS idx_projects_department ON projects(department)`,
			`CREATE TABLE IF NOT EXISTS project_stakeholders (
				project_id TEXT NOT NULL REFERENCES projects(id) ON DELETE CASCADE,
				name       TEXT NOT NULL,
				position   INTEGER NOT NULL,
				PRIMARY KEY (project_id, name)
			)`,
			`CREATE TABLE IF NOT EXISTS project_partners (
				project_id TEXT NOT NULL REFERENCES projects(id) ON DELETE CASCADE,
				name       TEXT NOT NULL,
				position   INTEGER NOT NULL,
				PRIMARY KEY (project_id, name)
			)`,
			`CREATE TABLE IF NOT EXISTS notifications (
				id               TEXT PRIMARY KEY,
				type             TEXT NOT NULL,
				project_id       TEXT NOT NULL REFERENCES projects(id) ON DELETE CASCADE,
				project_name     TEXT NOT NULL,
				message          TEXT NOT NULL,
				extension_reason TEXT NOT NULL DEFAULT '',
				read             {{bool}} NOT NULL DEFAULT {{false}},
				action_required  {{bool}} NOT NULL DEFAULT {{false}},
				action_taken     TEXT NOT NULL DEFAULT '',
				user_id          TEXT NOT NULL,
				created_at       {{ts}} NOT NULL
			)`,
			`CREATE INDEX IF NOT EXISTS idx_notifications_project_type ON notifications(project_id, type)`,
			`CREATE INDEX IF NOT EXISTS idx_notifications_user_read ON notifications(user_id, read)`,
			`CREATE TABLE IF NOT EXISTS audit_logs (
				id            TEXT PRIMARY KEY,
				action        TEXT NOT NULL,
				resource_type TEXT NOT NULL,
				resource_id   TEXT NOT NULL,
				actor         TEXT NOT NULL,
				details       TEXT NOT NULL DEFAULT '',
				created_at    {{ts}} NOT NULL
			)`,
			`CREATE INDEX IF NOT EXISTS idx_audit_logs_resource ON audit_logs(resource_type, resource_id)`,
		},
	},
}

var dialectTypes = map[string]*strings.Replacer{
	DriverPostgres: strings.NewReplacer(
		"{{ts}}", "TIMESTAMPTZ",
		"{{date}}", "DATE",
		"{{bool}}", "BOOLEAN",
		"{{false}}", "FALSE",
	),
	DriverSQLite: strings.NewReplacer(
		"{{ts}}", "TIMESTAMP",
		"{{date}}", "DATE",
		"{{bool}}", "BOOLEAN",
		"{{false}}", "0",
	),
}

// Migrate applies pending schema migrations.
func (s *Store) Migrate(ctx context.Context) error {
	repl, ok := dialectTypes[s.Driver()]
	if !ok {
		return fmt.Errorf("no migrations for driver %q", s.Driver())
	}

	if _, err := s.db.ExecContext(ctx,
		`CREATE TABLE IF NOT EXISTS schema_version (version INTEGER PRIMARY KEY)`); err != nil {
		return fmt.Errorf("creating schema_version table: %w", err)
	}

	var current int
	if err := s.db.GetContext(ctx, &current, `SELECT COALESCE(MAX(version), 0) FROM schema_version`); err != nil {
		return fmt.Errorf("reading schema version: %w", err)
	}

	for _, m := range schema {
		if m.version <= current {
			continue
		}
		err := s.inTx(ctx, func(tx *sqlx.Tx) error {
			for _, stmt := range m.stmts {
				if _, err := tx.ExecContext(ctx, repl.Replace(stmt)); err != nil {
					return err
				}
			}
			_, err := tx.ExecContext(ctx, tx.Rebind(`INSERT INTO schema_version (version) VALUES (?)`), m.version)
			return err
		})
		if err != nil {
			return fmt.Errorf("applying migration v%d: %w", m.version, err)
		}
	}
	return nil
}

// SchemaVersion returns the applied schema version.
func (s *Store) SchemaVersion(ctx context.Context) (int, error) {
	var v int
	err := s.db.GetContext(ctx, &v, `SELECT COALESCE(MAX(version), 0) FROM schema_version`)
	return v, err
}
