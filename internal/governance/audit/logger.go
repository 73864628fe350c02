// Package audit records who changed what. Entries are append-only.
package audit

import (
	"context"
	"encoding/json"
	"fmt"

	"go.uber.org/zap"

	"projectpulse.io/pulse/internal/domain"
	"projectpulse.io/pulse/internal/pkg/logger"
)

// Writer persists audit entries.
type Writer interface {
	AppendAudit(ctx context.Context, e domain.AuditEntry) error
}

// Logger writes audit records.
type Logger struct {
	w Writer
}

// NewLogger creates an audit Logger.
func NewLogger(w Writer) *Logger {
	return &Logger{w: w}
}

// LogAction records an auditable action. A nil Logger is a no-op.
func (l *Logger) LogAction(ctx context.Context, action, resourceType, resourceID, actor string, details map[string]any) error {
	if l == nil || l.w == nil {
		return nil
	}
	var raw string
	if len(details) > 0 {
		b, err := json.Marshal(details)
		if err != nil {
			return fmt.Errorf("encode audit details: %w", err)
		}
		raw = string(b)
	}

	err := l.w.AppendAudit(ctx, domain.AuditEntry{
		Action:       action,
		ResourceType: resourceType,
		ResourceID:   resourceID,
		Actor:        actor,
		Details:      raw,
	})
	if err != nil {
		logger.Error("Failed to write audit log",
			zap.String("action", action),
			zap.String("resource_type", resourceType),
			zap.String("resource_id", resourceID),
			zap.Error(err),
		)
		return fmt.Errorf("write audit log: %w", err)
	}
	return nil
}

// LogProject records a project create, update or delete.
func (l *Logger) LogProject(ctx context.Context, operation, projectID, actor string, details map[string]any) error {
	return l.LogAction(ctx, "project."+operation, "project", projectID, actor, details)
}

// LogExtension records an extension request or decision.
func (l *Logger) LogExtension(ctx context.Context, operation, notificationID, projectID, actor string) error {
	return l.LogAction(ctx, "extension."+operation, "notification", notificationID, actor, map[string]any{
		"project_id": projectID,
	})
}
