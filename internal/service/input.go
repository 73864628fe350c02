package service

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strings"

	"projectpulse.io/pulse/internal/domain"
)

// NameList accepts either a JSON array of names or a single comma
// separated string, as typed into the project form.
type NameList []string

// UnmarshalJSON implements json.Unmarshaler.
func (l *NameList) UnmarshalJSON(b []byte) error {
	b = bytes.TrimSpace(b)
	if bytes.Equal(b, []byte("null")) {
		*l = nil
		return nil
	}
	if len(b) > 0 && b[0] == '"' {
		var s string
		if err := json.Unmarshal(b, &s); err != nil {
			return err
		}
		*l = domain.SplitList(s)
		return nil
	}
	var raw []string
	if err := json.Unmarshal(b, &raw); err != nil {
		return fmt.Errorf("expected a list of names: %w", err)
	}
	out := make([]string, 0, len(raw))
	for _, s := range raw {
		if s = strings.TrimSpace(s); s != "" {
			out = append(out, s)
		}
	}
	*l = out
	return nil
}

// ProjectInput is the create payload.
type ProjectInput struct {
	Name            string   `json:"projectName"`
	Manager         string   `json:"projectManager"`
	Department      string   `json:"department"`
	Priority        string   `json:"priority"`
	Status          string   `json:"status"`
	StartDate       string   `json:"startDate"`
	EndDate         string   `json:"endDate"`
	PercentComplete *int     `json:"percentComplete"`
	Stakeholders    NameList `json:"stakeholders"`
	Partners        NameList `json:"partners"`
}

// ProjectUpdate is the partial update payload. Absent fields are unchanged.
type ProjectUpdate struct {
	Name            *string   `json:"projectName"`
	Manager         *string   `json:"projectManager"`
	Department      *string   `json:"department"`
	Priority        *string   `json:"priority"`
	Status          *string   `json:"status"`
	StartDate       *string   `json:"startDate"`
	EndDate         *string   `json:"endDate"`
	PercentComplete *int      `json:"percentComplete"`
	Stakeholders    *NameList `json:"stakeholders"`
	Partners        *NameList `json:"partners"`
}

// ProjectQuery narrows List. Empty fields match everything.
type ProjectQuery struct {
	Search     string
	Department string
	Priority   string
	Status     string
}
