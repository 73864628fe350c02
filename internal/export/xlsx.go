package export

import (
	"fmt"
	"io"

	"github.com/xuri/excelize/v2"

	"projectpulse.io/pulse/internal/domain"
)

// SheetName is the worksheet holding the export.
const SheetName = "Projects"

// WriteXLSX writes a workbook with a single Projects sheet. Progress is
// stored as a number; Created At and Updated At are appended columns.
func WriteXLSX(w io.Writer, projects []domain.Project) (err error) {
	f := excelize.NewFile()
	defer func() {
		if cerr := f.Close(); cerr != nil && err == nil {
			err = cerr
		}
	}()

	if err := f.SetSheetName("Sheet1", SheetName); err != nil {
		return fmt.Errorf("rename sheet: %w", err)
	}

	header := make([]any, 0, len(Columns)+2)
	for _, c := range Columns {
		header = append(header, c)
	}
	header = append(header, "Created At", "Updated At")
	if err := f.SetSheetRow(SheetName, "A1", &header); err != nil {
		return fmt.Errorf("write header: %w", err)
	}

	for i, p := range projects {
		cell, err := excelize.CoordinatesToCellName(1, i+2)
		if err != nil {
			return err
		}
		values := xlsxRow(p)
		if err := f.SetSheetRow(SheetName, cell, &values); err != nil {
			return fmt.Errorf("write row %d: %w", i+2, err)
		}
	}

	if _, err := f.WriteTo(w); err != nil {
		return fmt.Errorf("write workbook: %w", err)
	}
	return nil
}

func xlsxRow(p domain.Project) []any {
	cells := row(p)
	out := make([]any, 0, len(cells)+2)
	for i, c := range cells {
		if i == 7 {
			out = append(out, p.PercentComplete)
			continue
		}
		out = append(out, c)
	}
	return append(out, formatDate(p.CreatedAt), formatDate(p.UpdatedAt))
}
