package domain

import "time"

// User is an account that can sign in and receive notifications.
type User struct {
	ID           string     `json:"id" db:"id"`
	Name         string     `json:"name" db:"name"`
	Email        string     `json:"email" db:"email"`
	Role         Role       `json:"role" db:"role"`
	Department   Department `json:"department,omitempty" db:"department"`
	PasswordHash string     `json:"-" db:"password_hash"`
	CreatedAt    time.Time  `json:"createdAt" db:"created_at"`
}

// AuditEntry records a state-changing action.
type AuditEntry struct {
	ID           string    `json:"id" db:"id"`
	Action       string    `json:"action" db:"action"`
	ResourceType string    `json:"resourceType" db:"resource_type"`
	ResourceID   string    `json:"resourceId" db:"resource_id"`
	Actor        string    `json:"actor" db:"actor"`
	Details      string    `json:"details,omitempty" db:"details"`
	CreatedAt    time.Time `json:"createdAt" db:"created_at"`
}
