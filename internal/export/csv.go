package export

import (
	"bufio"
	"fmt"
	"io"
	"strings"

	"projectpulse.io/pulse/internal/domain"
)

// WriteCSV writes a header line followed by one line per project, joined
// by "\n" with no trailing newline. Every data cell is quoted.
func WriteCSV(w io.Writer, projects []domain.Project) error {
	bw := bufio.NewWriter(w)
	if _, err := bw.WriteString(strings.Join(Columns, ",")); err != nil {
		return fmt.Errorf("write csv header: %w", err)
	}
	for i, p := range projects {
		cells := row(p)
		for j, c := range cells {
			cells[j] = quote(c)
		}
		if _, err := bw.WriteString("\n" + strings.Join(cells, ",")); err != nil {
			return fmt.Errorf("write csv row %d: %w", i+1, err)
		}
	}
	return bw.Flush()
}

func quote(s string) string {
	return `"` + strings.ReplaceAll(s, `"`, `""`) + `"`
}
