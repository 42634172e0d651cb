package dataset

import (
	"encoding/json"
	"strings"
)

// maxCellWidth truncates long cell text in rendered grids.
const maxCellWidth = 80

// Markdown renders the table as a pipe table.
func (t *Table) Markdown() string {
	var b strings.Builder
	t.WriteMarkdown(&b)
	return b.String()
}

// WriteMarkdown appends the pipe table to b.
func (t *Table) WriteMarkdown(b *strings.Builder) {
	if len(t.cols) == 0 {
		b.WriteString("(empty table)\n")
		return
	}
	b.WriteString("| ")
	for i, c := range t.cols {
		if i > 0 {
			b.WriteString(" | ")
		}
		b.WriteString(SafeName(c.Name))
	}
	b.WriteString(" |\n| ")
	for i := range t.cols {
		if i > 0 {
			b.WriteString(" | ")
		}
		b.WriteString("---")
	}
	b.WriteString(" |\n")
	for r := 0; r < t.nrows; r++ {
		b.WriteString("| ")
		for i, c := range t.cols {
			if i > 0 {
				b.WriteString(" | ")
			}
			val := c.Cells[r].String()
			if len(val) > maxCellWidth {
				val = val[:maxCellWidth-3] + "..."
			}
			b.WriteString(SafeVal(val))
		}
		b.WriteString(" |\n")
	}
}

// SafeName renders an empty name as "(unnamed)".
func SafeName(s string) string {
	s = strings.TrimSpace(s)
	if s == "" {
		return "(unnamed)"
	}
	return s
}

// SafeVal strips characters that would break a pipe table row.
func SafeVal(s string) string {
	return strings.ReplaceAll(strings.ReplaceAll(s, "\n", " "), "|", "/")
}

// grid is the serialized form of a Table.
type grid struct {
	Columns []string `json:"columns" yaml:"columns"`
	Rows    [][]any  `json:"rows" yaml:"rows"`
}

func (t *Table) grid() grid {
	g := grid{Columns: t.Names(), Rows: make([][]any, t.nrows)}
	for r := 0; r < t.nrows; r++ {
		row := make([]any, len(t.cols))
		for j, c := range t.cols {
			row[j] = c.Cells[r].Value()
		}
		g.Rows[r] = row
	}
	return g
}

// MarshalJSON encodes the table as {"columns": [...], "rows": [[...], ...]}.
func (t *Table) MarshalJSON() ([]byte, error) {
	return json.Marshal(t.grid())
}

// MarshalYAML encodes the table like MarshalJSON.
func (t *Table) MarshalYAML() (any, error) {
	return t.grid(), nil
}
