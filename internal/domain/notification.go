package domain

import "time"

// NotificationType discriminates notifications.
type NotificationType string

const (
	NotifyDeadlineWarning   NotificationType = "deadline-warning"
	NotifyProjectDelayed    NotificationType = "project-delayed"
	NotifyExtensionRequest  NotificationType = "extension-request"
	NotifyExtensionApproved NotificationType = "extension-approved"
	NotifyExtensionRejected NotificationType = "extension-rejected"
)

func (t NotificationType) IsValid() bool {
	switch t {
	case NotifyDeadlineWarning, NotifyProjectDelayed, NotifyExtensionRequest,
		NotifyExtensionApproved, NotifyExtensionRejected:
		return true
	default:
		return false
	}
}

// Notification is a message addressed to one user about one project.
// ActionTaken is set once an extension request has been decided; such
// requests are no longer part of the active set.
type Notification struct {
	ID              string           `json:"id" db:"id"`
	Type            NotificationType `json:"type" db:"type"`
	ProjectID       string           `json:"projectId" db:"project_id"`
	ProjectName     string           `json:"projectName" db:"project_name"`
	Message         string           `json:"message" db:"message"`
	ExtensionReason string           `json:"extensionReason,omitempty" db:"extension_reason"`
	Read            bool             `json:"read" db:"read"`
	ActionRequired  bool             `json:"actionRequired" db:"action_required"`
	ActionTaken     string           `json:"actionTaken,omitempty" db:"action_taken"`
	UserID          string           `json:"userId" db:"user_id"`
	CreatedAt       time.Time        `json:"createdAt" db:"created_at"`
}

// Resolved reports whether the notification has been acted on.
func (n Notification) Resolved() bool {
	return n.ActionTaken != ""
}
