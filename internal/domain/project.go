// Package domain holds the Project Pulse data contracts shared by the
// engine, the store and the API.
package domain

import (
	"fmt"
	"strings"
	"time"
)

// DateLayout is the ISO-8601 calendar date format used on the wire.
const DateLayout = "2006-01-02"

// Project is a tracked project. Status holds the stored status until a
// caller replaces it with the effective one.
type Project struct {
	ID              string        `json:"id" db:"id"`
	Name            string        `json:"projectName" db:"name"`
	ManagerID       string        `json:"managerId,omitempty" db:"manager_id"`
	Manager         string        `json:"projectManager" db:"manager_name"`
	Department      Department    `json:"department" db:"department"`
	Priority        Priority      `json:"priority" db:"priority"`
	Status          ProjectStatus `json:"status" db:"status"`
	StartDate       time.Time     `json:"startDate" db:"start_date"`
	EndDate         time.Time     `json:"endDate" db:"end_date"`
	PercentComplete int           `json:"percentComplete" db:"percent_complete"`
	Stakeholders    []string      `json:"stakeholders" db:"-"`
	Partners        []string      `json:"partners" db:"-"`
	CreatedAt       time.Time     `json:"createdAt" db:"created_at"`
	UpdatedAt       time.Time     `json:"updatedAt" db:"updated_at"`
}

// ParseDate parses an ISO-8601 calendar date or RFC 3339 timestamp and
// truncates it to UTC midnight.
func ParseDate(s string) (time.Time, error) {
	s = strings.TrimSpace(s)
	if t, err := time.Parse(DateLayout, s); err == nil {
		return t.UTC(), nil
	}
	t, err := time.Parse(time.RFC3339, s)
	if err != nil {
		return time.Time{}, fmt.Errorf("date %q is not ISO-8601: %w", s, err)
	}
	t = t.UTC()
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, time.UTC), nil
}

// SplitList splits a comma separated input into trimmed, non-empty names.
func SplitList(s string) []string {
	var out []string
	for _, part := range strings.Split(s, ",") {
		if p := strings.TrimSpace(part); p != "" {
			out = append(out, p)
		}
	}
	return out
}
