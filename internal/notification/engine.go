// Package notification derives, deduplicates and resolves project
// notifications, and delivers them to the inbox store.
//
// Engine is pure: every operation takes a notification set and returns a
// new one without touching its input. Persistence and scheduling live in
// Reconciler, InboxSender and Triggers.
package notification

import (
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"

	"projectpulse.io/pulse/internal/domain"
	"projectpulse.io/pulse/internal/status"
)

var (
	// ErrNotExtensionRequest is returned when resolving anything other than
	// an extension request.
	ErrNotExtensionRequest = errors.New("notification is not an extension request")
	// ErrInvalidAction is returned for actions other than approve and reject.
	ErrInvalidAction = errors.New("invalid extension action")
)

// Engine applies the notification rules.
type Engine struct {
	// OwnerID receives detected notifications and extension requests.
	OwnerID string
	// NewID generates notification ids.
	NewID func() string
	// Now stamps CreatedAt for user-initiated notifications.
	Now func() time.Time
}

// NewEngine returns an Engine addressing notifications to ownerID.
func NewEngine(ownerID string) *Engine {
	return &Engine{
		OwnerID: ownerID,
		NewID:   newID,
		Now:     func() time.Time { return time.Now().UTC() },
	}
}

func newID() string {
	id, err := uuid.NewV7()
	if err != nil {
		return uuid.NewString()
	}
	return id.String()
}

// Reconcile returns existing plus a new notification for every project that
// is due within the warning window or delayed and has no notification of that
// type yet. New entries come first, most recent detection at the head.
// projects must carry their effective status.
func (e *Engine) Reconcile(projects []domain.Project, existing []domain.Notification, now time.Time) []domain.Notification {
	idx := newIndex(existing)
	var fresh []domain.Notification

	for _, p := range projects {
		if status.ShouldShowDeadlineWarning(p.EndDate, p.PercentComplete, now) && !idx.has(p.ID, domain.NotifyDeadlineWarning) {
			n := e.build(p.ID, p.Name, domain.NotifyDeadlineWarning, now)
			n.Message = fmt.Sprintf("%s deadline is in %d days or less", p.Name, status.WarningWindowDays)
			fresh = append(fresh, n)
			idx.add(n)
		}
		if p.Status == domain.StatusDelayed && !idx.has(p.ID, domain.NotifyProjectDelayed) {
			n := e.build(p.ID, p.Name, domain.NotifyProjectDelayed, now)
			n.Message = fmt.Sprintf("%s is delayed. Currently at %d%% completion.", p.Name, p.PercentComplete)
			n.ActionRequired = true
			fresh = append(fresh, n)
			idx.add(n)
		}
	}

	return prepend(existing, fresh...)
}

// MarkAsRead sets Read on the notification with id. Unknown ids are ignored.
// It works on an in-memory set; the inbox API persists read flags through
// the store (SetNotificationRead), which holds the authoritative state.
func (e *Engine) MarkAsRead(set []domain.Notification, id string) []domain.Notification {
	out := clone(set)
	for i := range out {
		if out[i].ID == id {
			out[i].Read = true
		}
	}
	return out
}

// MarkAllAsRead sets Read on every notification of an in-memory set. The
// store's MarkAllNotificationsRead is the persisted counterpart.
func (e *Engine) MarkAllAsRead(set []domain.Notification) []domain.Notification {
	out := clone(set)
	for i := range out {
		out[i].Read = true
	}
	return out
}

// Delete removes the notification with id. Unknown ids are ignored.
func (e *Engine) Delete(set []domain.Notification, id string) []domain.Notification {
	out := make([]domain.Notification, 0, len(set))
	for _, n := range set {
		if n.ID != id {
			out = append(out, n)
		}
	}
	return out
}

// CreateExtensionRequest prepends a new extension request addressed to the
// owner. Outstanding requests for the same project do not block a new one.
func (e *Engine) CreateExtensionRequest(set []domain.Notification, projectID, projectName, reason string) ([]domain.Notification, domain.Notification) {
	n := e.build(projectID, projectName, domain.NotifyExtensionRequest, e.Now())
	n.Message = fmt.Sprintf("Extension requested for %s", projectName)
	n.ExtensionReason = reason
	n.ActionRequired = true
	return prepend(set, n), n
}

// ResolveExtension drops request from set and prepends the approval or
// rejection addressed to the request's recipient. The project itself is
// not modified.
func (e *Engine) ResolveExtension(set []domain.Notification, request domain.Notification, action domain.ExtensionAction) ([]domain.Notification, domain.Notification, error) {
	if request.Type != domain.NotifyExtensionRequest {
		return nil, domain.Notification{}, fmt.Errorf("resolve %s: %w", request.ID, ErrNotExtensionRequest)
	}

	var typ domain.NotificationType
	switch action {
	case domain.ActionApprove:
		typ = domain.NotifyExtensionApproved
	case domain.ActionReject:
		typ = domain.NotifyExtensionRejected
	default:
		return nil, domain.Notification{}, fmt.Errorf("resolve %s with %q: %w", request.ID, action, ErrInvalidAction)
	}

	resp := e.build(request.ProjectID, request.ProjectName, typ, e.Now())
	resp.UserID = request.UserID
	resp.Message = fmt.Sprintf("Extension request for %s was %s", request.ProjectName, action.PastTense())

	return prepend(e.Delete(set, request.ID), resp), resp, nil
}

func (e *Engine) build(projectID, projectName string, typ domain.NotificationType, now time.Time) domain.Notification {
	return domain.Notification{
		ID:          e.NewID(),
		Type:        typ,
		ProjectID:   projectID,
		ProjectName: projectName,
		UserID:      e.OwnerID,
		CreatedAt:   now,
	}
}

// Diff reports notifications present only in after (added) and only in
// before (removed), matched by id.
func Diff(before, after []domain.Notification) (added, removed []domain.Notification) {
	inBefore := make(map[string]struct{}, len(before))
	for _, n := range before {
		inBefore[n.ID] = struct{}{}
	}
	inAfter := make(map[string]struct{}, len(after))
	for _, n := range after {
		inAfter[n.ID] = struct{}{}
		if _, ok := inBefore[n.ID]; !ok {
			added = append(added, n)
		}
	}
	for _, n := range before {
		if _, ok := inAfter[n.ID]; !ok {
			removed = append(removed, n)
		}
	}
	return added, removed
}

// prepend returns fresh in reverse order followed by set.
func prepend(set []domain.Notification, fresh ...domain.Notification) []domain.Notification {
	out := make([]domain.Notification, 0, len(set)+len(fresh))
	for i := len(fresh) - 1; i >= 0; i-- {
		out = append(out, fresh[i])
	}
	return append(out, set...)
}

func clone(set []domain.Notification) []domain.Notification {
	out := make([]domain.Notification, len(set))
	copy(out, set)
	return out
}
