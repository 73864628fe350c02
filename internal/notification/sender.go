package notification

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"projectpulse.io/pulse/internal/domain"
	"projectpulse.io/pulse/internal/pkg/logger"
)

// Inbox is where delivered notifications are stored.
type Inbox interface {
	InsertNotifications(ctx context.Context, ns []domain.Notification) error
}

// Sender delivers notifications.
type Sender interface {
	Send(ctx context.Context, ns ...domain.Notification) error
}

// InboxSender writes notifications to the in-app inbox synchronously.
type InboxSender struct {
	inbox Inbox
}

// NewInboxSender creates an inbox sender.
func NewInboxSender(inbox Inbox) *InboxSender {
	return &InboxSender{inbox: inbox}
}

// Send validates and stores ns in one batch.
func (s *InboxSender) Send(ctx context.Context, ns ...domain.Notification) error {
	if len(ns) == 0 {
		return nil
	}
	for _, n := range ns {
		if err := validate(n); err != nil {
			return fmt.Errorf("notification %s invalid: %w", n.ID, err)
		}
	}
	if err := s.inbox.InsertNotifications(ctx, ns); err != nil {
		return fmt.Errorf("deliver %d notifications: %w", len(ns), err)
	}

	for _, n := range ns {
		logger.Debug("notification sent",
			zap.String("notification_id", n.ID),
			zap.String("recipient", n.UserID),
			zap.String("type", string(n.Type)),
			zap.String("project_id", n.ProjectID),
		)
	}
	return nil
}

var _ Sender = (*InboxSender)(nil)

func validate(n domain.Notification) error {
	switch {
	case n.ID == "":
		return fmt.Errorf("id is required")
	case !n.Type.IsValid():
		return fmt.Errorf("unknown type %q", n.Type)
	case n.ProjectID == "":
		return fmt.Errorf("project_id is required")
	case n.UserID == "":
		return fmt.Errorf("user_id is required")
	case n.Message == "":
		return fmt.Errorf("message is required")
	}
	return nil
}
