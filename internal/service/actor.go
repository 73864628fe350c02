// Package service holds the Project Pulse business logic between the HTTP
// handlers and the store: role scoping, validation, effective status, audit.
package service

import "projectpulse.io/pulse/internal/domain"

// Actor is the authenticated caller.
type Actor struct {
	ID         string
	Name       string
	Role       domain.Role
	Department domain.Department
}

// IsAdmin reports whether the actor has unrestricted access.
func (a Actor) IsAdmin() bool {
	return a.Role == domain.RoleAdmin
}

// CanSee reports whether p is inside the actor's scope.
func (a Actor) CanSee(p domain.Project) bool {
	switch a.Role {
	case domain.RoleAdmin:
		return true
	case domain.RoleDepartment:
		return a.Department != "" && p.Department == a.Department
	case domain.RoleProject:
		return a.ID != "" && p.ManagerID == a.ID
	default:
		return false
	}
}

// Label identifies the actor in audit records and logs.
func (a Actor) Label() string {
	if a.ID == "" {
		return "system"
	}
	return a.ID
}
