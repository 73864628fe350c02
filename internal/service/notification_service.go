package service

import (
	"context"
	"errors"
	"fmt"

	"go.uber.org/zap"

	"projectpulse.io/pulse/internal/domain"
	"projectpulse.io/pulse/internal/governance/approval"
	"projectpulse.io/pulse/internal/notification"
	apperrors "projectpulse.io/pulse/internal/pkg/errors"
	"projectpulse.io/pulse/internal/pkg/logger"
	"projectpulse.io/pulse/internal/repository"
)

// NotificationStore is the inbox persistence NotificationService needs.
type NotificationStore interface {
	ListNotifications(ctx context.Context, f repository.NotificationFilter) ([]domain.Notification, error)
	GetNotification(ctx context.Context, id string) (domain.Notification, error)
	CountUnread(ctx context.Context, userID string) (int, error)
	SetNotificationRead(ctx context.Context, id string, read bool) error
	MarkAllNotificationsRead(ctx context.Context, userID string) (int64, error)
	DeleteNotification(ctx context.Context, id string) error
}

// ReconcileRunner runs one reconcile pass.
type ReconcileRunner interface {
	Run(ctx context.Context) (notification.Result, error)
}

// NotificationUpdate is the PATCH payload: read flag and/or a decision on
// an extension request.
type NotificationUpdate struct {
	Read   *bool   `json:"read"`
	Action *string `json:"action"`
}

// NotificationService serves the caller's inbox and extension requests.
type NotificationService struct {
	store      NotificationStore
	projects   *ProjectService
	gateway    *approval.Gateway
	reconciler ReconcileRunner
}

// NewNotificationService creates a NotificationService.
func NewNotificationService(store NotificationStore, projects *ProjectService, gateway *approval.Gateway, reconciler ReconcileRunner) *NotificationService {
	return &NotificationService{store: store, projects: projects, gateway: gateway, reconciler: reconciler}
}

// List returns the actor's active notifications, newest first.
func (s *NotificationService) List(ctx context.Context, actor Actor, unreadOnly bool) ([]domain.Notification, error) {
	ns, err := s.store.ListNotifications(ctx, repository.NotificationFilter{UserID: actor.ID, UnreadOnly: unreadOnly})
	if err != nil {
		return nil, fmt.Errorf("list notifications for %s: %w", actor.ID, err)
	}
	return ns, nil
}

// UnreadCount returns the bell badge count.
func (s *NotificationService) UnreadCount(ctx context.Context, actor Actor) (int, error) {
	n, err := s.store.CountUnread(ctx, actor.ID)
	if err != nil {
		return 0, fmt.Errorf("count unread for %s: %w", actor.ID, err)
	}
	return n, nil
}

// Update sets the read flag and/or decides an extension request. Callers
// must check the actor may review extensions before passing an action.
func (s *NotificationService) Update(ctx context.Context, actor Actor, id string, in NotificationUpdate) (domain.Notification, error) {
	n, err := s.load(ctx, actor, id)
	if err != nil {
		return domain.Notification{}, err
	}

	if in.Action != nil {
		action, err := domain.ParseExtensionAction(*in.Action)
		if err != nil {
			return domain.Notification{}, apperrors.BadRequest(apperrors.CodeInvalidAction, "action must be approve or reject")
		}
		if _, err := s.gateway.Decide(ctx, id, action, actor.Label()); err != nil {
			return domain.Notification{}, mapDecisionError(id, err)
		}
	} else if in.Read != nil {
		if err := s.store.SetNotificationRead(ctx, id, *in.Read); err != nil {
			return domain.Notification{}, notificationError(id, err)
		}
	} else {
		return n, nil
	}

	updated, err := s.store.GetNotification(ctx, id)
	if err != nil {
		return domain.Notification{}, notificationError(id, err)
	}
	return updated, nil
}

// MarkAllRead marks the actor's inbox read and returns the affected count.
func (s *NotificationService) MarkAllRead(ctx context.Context, actor Actor) (int64, error) {
	n, err := s.store.MarkAllNotificationsRead(ctx, actor.ID)
	if err != nil {
		return 0, fmt.Errorf("mark all read for %s: %w", actor.ID, err)
	}
	return n, nil
}

// Delete removes one of the actor's notifications.
func (s *NotificationService) Delete(ctx context.Context, actor Actor, id string) error {
	if _, err := s.load(ctx, actor, id); err != nil {
		return err
	}
	if err := s.store.DeleteNotification(ctx, id); err != nil {
		return notificationError(id, err)
	}
	logger.Debug("Notification deleted", zap.String("notification_id", id), zap.String("actor", actor.Label()))
	return nil
}

// RequestExtension opens an extension request for a visible project.
func (s *NotificationService) RequestExtension(ctx context.Context, actor Actor, projectID, reason string) (domain.Notification, error) {
	if _, err := s.projects.Get(ctx, actor, projectID); err != nil {
		return domain.Notification{}, err
	}
	req, err := s.gateway.Request(ctx, projectID, reason, actor.Label())
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return domain.Notification{}, projectNotFound(projectID)
		}
		return domain.Notification{}, err
	}
	return req, nil
}

// Reconcile runs one reconcile pass on demand.
func (s *NotificationService) Reconcile(ctx context.Context) (notification.Result, error) {
	if s.reconciler == nil {
		return notification.Result{}, apperrors.Internal(apperrors.CodeInternal, "reconciler is not configured")
	}
	return s.reconciler.Run(ctx)
}

// load fetches a notification addressed to the actor. Admins may open any.
func (s *NotificationService) load(ctx context.Context, actor Actor, id string) (domain.Notification, error) {
	n, err := s.store.GetNotification(ctx, id)
	if err != nil {
		return domain.Notification{}, notificationError(id, err)
	}
	if n.UserID != actor.ID && !actor.IsAdmin() {
		return domain.Notification{}, notificationError(id, repository.ErrNotFound)
	}
	return n, nil
}

func notificationError(id string, err error) error {
	if errors.Is(err, repository.ErrNotFound) {
		return apperrors.NotFound(apperrors.CodeNotificationNotFound, "notification not found").
			WithParams(map[string]any{"id": id})
	}
	return fmt.Errorf("notification %s: %w", id, err)
}

func mapDecisionError(id string, err error) error {
	switch {
	case errors.Is(err, notification.ErrNotExtensionRequest):
		return apperrors.BadRequest(apperrors.CodeNotExtensionRequest, "notification is not an extension request")
	case errors.Is(err, notification.ErrInvalidAction):
		return apperrors.BadRequest(apperrors.CodeInvalidAction, "action must be approve or reject")
	case errors.Is(err, approval.ErrAlreadyResolved):
		return apperrors.Conflict(apperrors.CodeAlreadyResolved, "extension request already resolved")
	default:
		return notificationError(id, err)
	}
}
