package domain

import (
	"errors"
	"fmt"
)

// ErrInvalidEnum is wrapped by every Parse* function.
var ErrInvalidEnum = errors.New("invalid enum value")

// ProjectStatus is the lifecycle status of a project.
type ProjectStatus string

const (
	StatusUpcoming   ProjectStatus = "upcoming"
	StatusInProgress ProjectStatus = "in-progress"
	StatusCompleted  ProjectStatus = "completed"
	StatusDelayed    ProjectStatus = "delayed"
)

// ProjectStatuses lists statuses in display order.
var ProjectStatuses = []ProjectStatus{StatusUpcoming, StatusInProgress, StatusCompleted, StatusDelayed}

func (s ProjectStatus) String() string { return string(s) }

// IsValid reports whether s is a known status.
func (s ProjectStatus) IsValid() bool {
	switch s {
	case StatusUpcoming, StatusInProgress, StatusCompleted, StatusDelayed:
		return true
	default:
		return false
	}
}

// Label returns the human-readable form used in exports.
func (s ProjectStatus) Label() string {
	switch s {
	case StatusUpcoming:
		return "Upcoming"
	case StatusInProgress:
		return "In Progress"
	case StatusCompleted:
		return "Completed"
	case StatusDelayed:
		return "Delayed"
	default:
		return string(s)
	}
}

// ParseProjectStatus parses a status token.
func ParseProjectStatus(s string) (ProjectStatus, error) {
	v := ProjectStatus(s)
	if !v.IsValid() {
		return "", fmt.Errorf("status %q: %w", s, ErrInvalidEnum)
	}
	return v, nil
}

// Priority of a project.
type Priority string

const (
	PriorityHigh   Priority = "high"
	PriorityMedium Priority = "medium"
	PriorityLow    Priority = "low"
)

var Priorities = []Priority{PriorityHigh, PriorityMedium, PriorityLow}

func (p Priority) String() string { return string(p) }

func (p Priority) IsValid() bool {
	switch p {
	case PriorityHigh, PriorityMedium, PriorityLow:
		return true
	default:
		return false
	}
}

func (p Priority) Label() string {
	switch p {
	case PriorityHigh:
		return "High"
	case PriorityMedium:
		return "Medium"
	case PriorityLow:
		return "Low"
	default:
		return string(p)
	}
}

func ParsePriority(s string) (Priority, error) {
	v := Priority(s)
	if !v.IsValid() {
		return "", fmt.Errorf("priority %q: %w", s, ErrInvalidEnum)
	}
	return v, nil
}

// Department owning a project.
type Department string

const (
	DeptEngineering Department = "engineering"
	DeptMarketing   Department = "marketing"
	DeptSales       Department = "sales"
	DeptHR          Department = "hr"
	DeptFinance     Department = "finance"
	DeptOperations  Department = "operations"
)

var Departments = []Department{DeptEngineering, DeptMarketing, DeptSales, DeptHR, DeptFinance, DeptOperations}

func (d Department) String() string { return string(d) }

func (d Department) IsValid() bool {
	switch d {
	case DeptEngineering, DeptMarketing, DeptSales, DeptHR, DeptFinance, DeptOperations:
		return true
	default:
		return false
	}
}

func (d Department) Label() string {
	switch d {
	case DeptEngineering:
		return "Engineering"
	case DeptMarketing:
		return "Marketing"
	case DeptSales:
		return "Sales"
	case DeptHR:
		return "Human Resources"
	case DeptFinance:
		return "Finance"
	case DeptOperations:
		return "Operations"
	default:
		return string(d)
	}
}

func ParseDepartment(s string) (Department, error) {
	v := Department(s)
	if !v.IsValid() {
		return "", fmt.Errorf("department %q: %w", s, ErrInvalidEnum)
	}
	return v, nil
}

// Role controls which projects a user sees.
type Role string

const (
	// RoleAdmin sees everything and reviews extension requests.
	RoleAdmin Role = "admin"
	// RoleDepartment sees projects of its own department.
	RoleDepartment Role = "department"
	// RoleProject sees projects it manages.
	RoleProject Role = "project"
)

func (r Role) IsValid() bool {
	switch r {
	case RoleAdmin, RoleDepartment, RoleProject:
		return true
	default:
		return false
	}
}

func ParseRole(s string) (Role, error) {
	v := Role(s)
	if !v.IsValid() {
		return "", fmt.Errorf("role %q: %w", s, ErrInvalidEnum)
	}
	return v, nil
}

// ExtensionAction is a reviewer's decision on an extension request.
type ExtensionAction string

const (
	ActionApprove ExtensionAction = "approve"
	ActionReject  ExtensionAction = "reject"
)

func (a ExtensionAction) IsValid() bool {
	return a == ActionApprove || a == ActionReject
}

// PastTense returns "approved" or "rejected".
func (a ExtensionAction) PastTense() string {
	switch a {
	case ActionApprove:
		return "approved"
	case ActionReject:
		return "rejected"
	default:
		return string(a)
	}
}

func ParseExtensionAction(s string) (ExtensionAction, error) {
	v := ExtensionAction(s)
	if !v.IsValid() {
		return "", fmt.Errorf("action %q: %w", s, ErrInvalidEnum)
	}
	return v, nil
}
