package repository

import (
	"context"
	"fmt"

	"projectpulse.io/pulse/internal/domain"
)

// AppendAudit stores an audit entry.
func (s *Store) AppendAudit(ctx context.Context, e domain.AuditEntry) error {
	if e.ID == "" {
		e.ID = "audit-" + newID()
	}
	if e.CreatedAt.IsZero() {
		e.CreatedAt = s.now()
	}
	_, err := s.db.ExecContext(ctx, s.db.Rebind(`
		INSERT INTO audit_logs (id, action, resource_type, resource_id, actor, details, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?)`),
		e.ID, e.Action, e.ResourceType, e.ResourceID, e.Actor, e.Details, e.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("appending audit %s on %s/%s: %w", e.Action, e.ResourceType, e.ResourceID, err)
	}
	return nil
}

// ListAudit returns entries for one resource, newest first.
func (s *Store) ListAudit(ctx context.Context, resourceType, resourceID string) ([]domain.AuditEntry, error) {
	entries := []domain.AuditEntry{}
	err := s.db.SelectContext(ctx, &entries, s.db.Rebind(`
		SELECT id, action, resource_type, resource_id, actor, details, created_at
		FROM audit_logs WHERE resource_type = ? AND resource_id = ?
		ORDER BY created_at DESC, id DESC`), resourceType, resourceID)
	if err != nil {
		return nil, fmt.Errorf("listing audit for %s/%s: %w", resourceType, resourceID, err)
	}
	return entries, nil
}
