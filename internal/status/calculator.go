// Package status derives a project's effective status from its dates,
// completion and stored status.
package status

import (
	"math"
	"time"

	"projectpulse.io/pulse/internal/domain"
)

// WarningWindowDays is the inclusive number of days before the deadline
// during which an unfinished project raises a deadline warning.
const WarningWindowDays = 3

const day = 24 * time.Hour

// DaysUntilDeadline returns ceil((end-now)/24h). ok is false when end is
// the zero time, which never compares as past or future.
func DaysUntilDeadline(end, now time.Time) (days int, ok bool) {
	if end.IsZero() {
		return 0, false
	}
	return int(math.Ceil(float64(end.Sub(now)) / float64(day))), true
}

// ShouldShowDeadlineWarning reports whether an unfinished project is due
// within [0, WarningWindowDays] days.
func ShouldShowDeadlineWarning(end time.Time, percentComplete int, now time.Time) bool {
	if percentComplete == 100 {
		return false
	}
	days, ok := DaysUntilDeadline(end, now)
	return ok && days >= 0 && days <= WarningWindowDays
}

// rule yields a status when it matches.
type rule struct {
	name  string
	match func(p domain.Project, now time.Time) bool
	yield domain.ProjectStatus
}

// rules are evaluated in order; the first match wins.
var rules = []rule{
	{
		name:  "completed-sticky",
		match: func(p domain.Project, _ time.Time) bool { return p.Status == domain.StatusCompleted },
		yield: domain.StatusCompleted,
	},
	{
		name: "deadline-passed",
		match: func(p domain.Project, now time.Time) bool {
			days, ok := DaysUntilDeadline(p.EndDate, now)
			return ok && days < 0 && p.PercentComplete < 100
		},
		yield: domain.StatusDelayed,
	},
	{
		name: "not-started",
		match: func(p domain.Project, now time.Time) bool {
			return !p.StartDate.IsZero() && p.StartDate.After(now)
		},
		yield: domain.StatusUpcoming,
	},
	{
		name:  "fallback",
		match: func(domain.Project, time.Time) bool { return true },
		yield: domain.StatusInProgress,
	},
}

// ComputeStatus returns the effective status of p at now.
func ComputeStatus(p domain.Project, now time.Time) domain.ProjectStatus {
	for _, r := range rules {
		if r.match(p, now) {
			return r.yield
		}
	}
	return domain.StatusInProgress
}

// Apply returns copies of projects with Status replaced by the effective status.
func Apply(projects []domain.Project, now time.Time) []domain.Project {
	out := make([]domain.Project, len(projects))
	for i, p := range projects {
		p.Status = ComputeStatus(p, now)
		out[i] = p
	}
	return out
}
