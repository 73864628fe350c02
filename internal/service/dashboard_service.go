package service

import (
	"context"
	"math"

	"projectpulse.io/pulse/internal/domain"
)

// Stats summarises a set of projects.
type Stats struct {
	Total          int `json:"total"`
	Completed      int `json:"completed"`
	Delayed        int `json:"delayed"`
	InProgress     int `json:"inProgress"`
	Upcoming       int `json:"upcoming"`
	AvgCompletion  int `json:"avgCompletion"`
	OnTimeRate     int `json:"onTimeRate"`
	CompletionRate int `json:"completionRate"`
}

// DepartmentStats is one row of the department breakdown.
type DepartmentStats struct {
	Department    domain.Department `json:"value"`
	Label         string            `json:"label"`
	Total         int               `json:"total"`
	Completed     int               `json:"completed"`
	Delayed       int               `json:"delayed"`
	AvgCompletion int               `json:"avgCompletion"`
}

// PriorityStats is one row of the priority breakdown.
type PriorityStats struct {
	Priority   domain.Priority `json:"value"`
	Label      string          `json:"label"`
	Count      int             `json:"count"`
	Percentage int             `json:"percentage"`
}

// Dashboard is the analytics view.
type Dashboard struct {
	Department  string            `json:"department"`
	Stats       Stats             `json:"stats"`
	Departments []DepartmentStats `json:"departments"`
	Priorities  []PriorityStats   `json:"priorities"`
}

// DashboardService computes analytics over the caller's visible projects.
type DashboardService struct {
	projects *ProjectService
}

// NewDashboardService creates a DashboardService.
func NewDashboardService(projects *ProjectService) *DashboardService {
	return &DashboardService{projects: projects}
}

// Stats builds the dashboard. department narrows the headline stats and
// the priority breakdown; the department breakdown always covers every
// visible project.
func (s *DashboardService) Stats(ctx context.Context, actor Actor, department string) (Dashboard, error) {
	all, err := s.projects.List(ctx, actor, ProjectQuery{})
	if err != nil {
		return Dashboard{}, err
	}

	filtered := all
	label := "all"
	if department != "" && department != "all" {
		d, err := domain.ParseDepartment(department)
		if err != nil {
			return Dashboard{}, validationErr(invalidField("department", err))
		}
		label = string(d)
		filtered = make([]domain.Project, 0, len(all))
		for _, p := range all {
			if p.Department == d {
				filtered = append(filtered, p)
			}
		}
	}

	return Dashboard{
		Department:  label,
		Stats:       Summarize(filtered),
		Departments: byDepartment(all),
		Priorities:  byPriority(filtered),
	}, nil
}

// Summarize computes headline stats. Projects must carry effective status.
func Summarize(projects []domain.Project) Stats {
	st := Stats{Total: len(projects)}
	if st.Total == 0 {
		return st
	}
	var sum, onTime int
	for _, p := range projects {
		switch p.Status {
		case domain.StatusCompleted:
			st.Completed++
		case domain.StatusDelayed:
			st.Delayed++
		case domain.StatusInProgress:
			st.InProgress++
		case domain.StatusUpcoming:
			st.Upcoming++
		}
		sum += p.PercentComplete
		if p.Status != domain.StatusDelayed && p.PercentComplete >= 50 {
			onTime++
		}
	}
	st.AvgCompletion = ratio(sum, st.Total, 1)
	st.OnTimeRate = ratio(onTime, st.Total, 100)
	st.CompletionRate = ratio(st.Completed, st.Total, 100)
	return st
}

func byDepartment(projects []domain.Project) []DepartmentStats {
	out := make([]DepartmentStats, 0, len(domain.Departments))
	for _, d := range domain.Departments {
		row := DepartmentStats{Department: d, Label: d.Label()}
		var sum int
		for _, p := range projects {
			if p.Department != d {
				continue
			}
			row.Total++
			sum += p.PercentComplete
			switch p.Status {
			case domain.StatusCompleted:
				row.Completed++
			case domain.StatusDelayed:
				row.Delayed++
			}
		}
		row.AvgCompletion = ratio(sum, row.Total, 1)
		out = append(out, row)
	}
	return out
}

func byPriority(projects []domain.Project) []PriorityStats {
	out := make([]PriorityStats, 0, len(domain.Priorities))
	for _, pr := range domain.Priorities {
		row := PriorityStats{Priority: pr, Label: pr.Label()}
		for _, p := range projects {
			if p.Priority == pr {
				row.Count++
			}
		}
		row.Percentage = ratio(row.Count, len(projects), 100)
		out = append(out, row)
	}
	return out
}

// ratio returns round(n*scale/total), or 0 for an empty total.
func ratio(n, total, scale int) int {
	if total == 0 {
		return 0
	}
	return int(math.Round(float64(n*scale) / float64(total)))
}
