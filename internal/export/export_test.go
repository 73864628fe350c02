package export

import (
	"bytes"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/xuri/excelize/v2"

	"projectpulse.io/pulse/internal/domain"
)

func sampleProjects() []domain.Project {
	return []domain.Project{
		{
			Name:            `Website "Redesign"`,
			Manager:         "Sarah Engineer",
			Department:      domain.DeptEngineering,
			Priority:        domain.PriorityHigh,
			Status:          domain.StatusInProgress,
			StartDate:       time.Date(2025, 1, 15, 0, 0, 0, 0, time.UTC),
			EndDate:         time.Date(2025, 3, 1, 0, 0, 0, 0, time.UTC),
			PercentComplete: 65,
			Stakeholders:    []string{"Alice", "Bob"},
			Partners:        []string{},
			CreatedAt:       time.Date(2025, 1, 10, 8, 0, 0, 0, time.UTC),
			UpdatedAt:       time.Date(2025, 2, 1, 8, 0, 0, 0, time.UTC),
		},
		{
			Name:       "Q3 Campaign",
			Manager:    "Mike Manager",
			Department: domain.DeptMarketing,
			Priority:   domain.PriorityLow,
			Status:     domain.StatusUpcoming,
			StartDate:  time.Date(2025, 7, 1, 0, 0, 0, 0, time.UTC),
			EndDate:    time.Date(2025, 9, 30, 0, 0, 0, 0, time.UTC),
			Partners:   []string{"Acme"},
		},
	}
}

func TestParseFormat(t *testing.T) {
	t.Parallel()

	tests := []struct {
		in      string
		want    Format
		wantErr bool
	}{
		{"", FormatCSV, false},
		{"CSV", FormatCSV, false},
		{" xlsx ", FormatXLSX, false},
		{"pdf", "", true},
	}
	for _, tt := range tests {
		got, err := ParseFormat(tt.in)
		if tt.wantErr {
			assert.Error(t, err, tt.in)
			continue
		}
		require.NoError(t, err, tt.in)
		assert.Equal(t, tt.want, got)
	}
}

func TestFormat_Filename(t *testing.T) {
	t.Parallel()

	now := time.Date(2025, 4, 9, 23, 0, 0, 0, time.UTC)
	assert.Equal(t, "projects_2025-04-09.csv", FormatCSV.Filename("", now))
	assert.Equal(t, "engineering_2025-04-09.csv", FormatCSV.Filename("engineering", now))
	assert.Equal(t, "project_pulse_export_2025-04-09.xlsx", FormatXLSX.Filename("ignored", now))
	assert.Contains(t, FormatCSV.ContentType(), "text/csv")
}

func TestWriteCSV(t *testing.T) {
	t.Parallel()

	var buf bytes.Buffer
	require.NoError(t, WriteCSV(&buf, sampleProjects()))

	lines := strings.Split(buf.String(), "\n")
	require.Len(t, lines, 3)
	assert.Equal(t, "Project Name,Project Manager,Department,Priority,Status,Start Date,End Date,Progress (%),Stakeholders,Partners", lines[0])
	assert.Equal(t, `"Website ""Redesign""","Sarah Engineer","engineering","high","in-progress","Jan 15, 2025","Mar 1, 2025","65","Alice; Bob",""`, lines[1])
	assert.Equal(t, `"Q3 Campaign","Mike Manager","marketing","low","upcoming","Jul 1, 2025","Sep 30, 2025","0","","Acme"`, lines[2])
}

func TestWriteCSV_Empty(t *testing.T) {
	t.Parallel()

	var buf bytes.Buffer
	require.NoError(t, WriteCSV(&buf, nil))
	assert.Equal(t, strings.Join(Columns, ","), buf.String())
}

func TestWriteXLSX(t *testing.T) {
	t.Parallel()

	var buf bytes.Buffer
	require.NoError(t, Write(&buf, FormatXLSX, sampleProjects()))

	f, err := excelize.OpenReader(&buf)
	require.NoError(t, err)
	defer f.Close()

	assert.Equal(t, []string{SheetName}, f.GetSheetList())
	rows, err := f.GetRows(SheetName)
	require.NoError(t, err)
	require.Len(t, rows, 3)
	assert.Equal(t, "Created At", rows[0][10])
	assert.Equal(t, "Updated At", rows[0][11])
	assert.Equal(t, `Website "Redesign"`, rows[1][0])
	assert.Equal(t, "65", rows[1][7])
	assert.Equal(t, "Jan 10, 2025", rows[1][10])

	typ, err := f.GetCellType(SheetName, "H2")
	require.NoError(t, err)
	assert.NotEqual(t, excelize.CellTypeSharedString, typ)
}

func TestWrite_UnsupportedFormat(t *testing.T) {
	t.Parallel()
	assert.Error(t, Write(&bytes.Buffer{}, Format("pdf"), nil))
}
