// Package export renders project lists as CSV or XLSX downloads.
package export

import (
	"fmt"
	"io"
	"strconv"
	"strings"
	"time"

	"projectpulse.io/pulse/internal/domain"
)

// Format is an export file format.
type Format string

const (
	FormatCSV  Format = "csv"
	FormatXLSX Format = "xlsx"
)

// DisplayDateLayout is the human-readable date used in exported cells.
const DisplayDateLayout = "Jan 2, 2006"

// ListSeparator joins stakeholder and partner names in one cell.
const ListSeparator = "; "

// Columns is the header shared by both formats.
var Columns = []string{
	"Project Name",
	"Project Manager",
	"Department",
	"Priority",
	"Status",
	"Start Date",
	"End Date",
	"Progress (%)",
	"Stakeholders",
	"Partners",
}

// ParseFormat parses a format name; empty means CSV.
func ParseFormat(s string) (Format, error) {
	switch Format(strings.ToLower(strings.TrimSpace(s))) {
	case "", FormatCSV:
		return FormatCSV, nil
	case FormatXLSX:
		return FormatXLSX, nil
	default:
		return "", fmt.Errorf("unsupported export format %q", s)
	}
}

// ContentType returns the MIME type of f.
func (f Format) ContentType() string {
	if f == FormatXLSX {
		return "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"
	}
	return "text/csv; charset=utf-8"
}

// Filename returns the download name: <base>_<YYYY-MM-DD>.csv for CSV and
// project_pulse_export_<YYYY-MM-DD>.xlsx for XLSX.
func (f Format) Filename(base string, now time.Time) string {
	day := now.UTC().Format(domain.DateLayout)
	if f == FormatXLSX {
		return "project_pulse_export_" + day + ".xlsx"
	}
	if base == "" {
		base = "projects"
	}
	return base + "_" + day + ".csv"
}

// Write renders projects in format f.
func Write(w io.Writer, f Format, projects []domain.Project) error {
	switch f {
	case FormatCSV:
		return WriteCSV(w, projects)
	case FormatXLSX:
		return WriteXLSX(w, projects)
	default:
		return fmt.Errorf("unsupported export format %q", f)
	}
}

func row(p domain.Project) []string {
	return []string{
		p.Name,
		p.Manager,
		string(p.Department),
		string(p.Priority),
		string(p.Status),
		formatDate(p.StartDate),
		formatDate(p.EndDate),
		strconv.Itoa(p.PercentComplete),
		strings.Join(p.Stakeholders, ListSeparator),
		strings.Join(p.Partners, ListSeparator),
	}
}

func formatDate(t time.Time) string {
	if t.IsZero() {
		return ""
	}
	return t.UTC().Format(DisplayDateLayout)
}
