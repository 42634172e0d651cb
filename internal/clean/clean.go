// Package clean implements the row-level cleaning steps applied after load:
// deduplication and the missing-value policy.
package clean

import (
	"fmt"
	"strings"

	"github.com/KaramelBytes/datalens-cli/internal/dataset"
)

// Policy selects how missing cells are handled.
type Policy string

const (
	Keep Policy = "keep"
	Drop Policy = "drop"
	Fill Policy = "fill"
)

// ParsePolicy maps user input to a Policy. The empty string means Keep.
func ParsePolicy(s string) (Policy, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", "keep", "none":
		return Keep, nil
	case "drop", "dropna":
		return Drop, nil
	case "fill", "fillna":
		return Fill, nil
	}
	return "", dataset.Usagef("unknown missing-value policy %q (use keep, drop or fill)", s)
}

// Report describes what one step did to the table.
type Report struct {
	Step    string `json:"step" yaml:"step"`
	Before  int    `json:"rows_before" yaml:"rows_before"`
	After   int    `json:"rows_after" yaml:"rows_after"`
	Removed int    `json:"removed,omitempty" yaml:"removed,omitempty"`
	Filled  int    `json:"filled,omitempty" yaml:"filled,omitempty"`
	// Pending is set when the step was requested but had nothing to apply.
	Pending bool `json:"pending,omitempty" yaml:"pending,omitempty"`
}

// String renders the report as a status line.
func (r Report) String() string {
	switch {
	case r.Pending:
		return fmt.Sprintf("%s: waiting for a fill value", r.Step)
	case r.Filled > 0 || r.Step == "fill":
		return fmt.Sprintf("%s: filled %d missing cells", r.Step, r.Filled)
	default:
		return fmt.Sprintf("%s: removed %d rows (%d -> %d)", r.Step, r.Removed, r.Before, r.After)
	}
}

// Deduplicate removes rows equal in every column to an earlier row. The first
// occurrence is kept and surviving rows keep their relative order. Missing
// cells compare equal to each other.
func Deduplicate(t *dataset.Table) (*dataset.Table, Report) {
	seen := make(map[string]struct{}, t.NumRows())
	keep := make([]int, 0, t.NumRows())
	for r := 0; r < t.NumRows(); r++ {
		k := t.RowKey(r)
		if _, dup := seen[k]; dup {
			continue
		}
		seen[k] = struct{}{}
		keep = append(keep, r)
	}
	return finish("dedup", t, keep)
}

// DropMissing removes every row holding at least one missing cell.
func DropMissing(t *dataset.Table) (*dataset.Table, Report) {
	keep := make([]int, 0, t.NumRows())
	for r := 0; r < t.NumRows(); r++ {
		ok := true
		for _, c := range t.Row(r) {
			if c.IsNull() {
				ok = false
				break
			}
		}
		if ok {
			keep = append(keep, r)
		}
	}
	return finish("drop", t, keep)
}

// FillMissing replaces missing cells with value, stored as text whatever the
// column type, so a filled numeric column reads back as "object". With no
// columns named every column is filled.
func FillMissing(t *dataset.Table, value string, columns ...string) (*dataset.Table, Report, error) {
	target := make(map[string]bool, len(columns))
	for _, name := range columns {
		if _, err := t.Column(name); err != nil {
			return nil, Report{}, err
		}
		target[name] = true
	}
	cols := make([]dataset.Column, t.NumCols())
	filled := 0
	for j := 0; j < t.NumCols(); j++ {
		src := t.ColumnAt(j)
		cells := make([]dataset.Cell, len(src.Cells))
		copy(cells, src.Cells)
		if len(target) == 0 || target[src.Name] {
			for i, c := range cells {
				if c.IsNull() {
					cells[i] = dataset.TextCell(value)
					filled++
				}
			}
		}
		cols[j] = dataset.Column{Name: src.Name, Cells: cells}
	}
	out, err := dataset.New(cols...)
	if err != nil {
		return nil, Report{}, err
	}
	return out, Report{Step: "fill", Before: t.NumRows(), After: out.NumRows(), Filled: filled}, nil
}

func finish(step string, t *dataset.Table, keep []int) (*dataset.Table, Report) {
	out := t.Take(keep)
	return out, Report{
		Step:    step,
		Before:  t.NumRows(),
		After:   out.NumRows(),
		Removed: t.NumRows() - out.NumRows(),
	}
}

// Options selects the cleaning steps to run.
type Options struct {
	Dedup     bool   `json:"dedup" yaml:"dedup"`
	Missing   Policy `json:"missing" yaml:"missing"`
	FillValue string `json:"fill_value,omitempty" yaml:"fill_value,omitempty"`
}

// Apply runs deduplication when enabled and then the missing-value policy.
// A Fill policy with an empty value leaves the table unchanged and reports
// the step as pending.
func Apply(t *dataset.Table, opt Options) (*dataset.Table, []Report, error) {
	var reports []Report
	if opt.Dedup {
		var rep Report
		t, rep = Deduplicate(t)
		reports = append(reports, rep)
	}
	switch opt.Missing {
	case Keep, "":
	case Drop:
		var rep Report
		t, rep = DropMissing(t)
		reports = append(reports, rep)
	case Fill:
		if opt.FillValue == "" {
			reports = append(reports, Report{Step: "fill", Before: t.NumRows(), After: t.NumRows(), Pending: true})
			break
		}
		out, rep, err := FillMissing(t, opt.FillValue)
		if err != nil {
			return nil, reports, err
		}
		t = out
		reports = append(reports, rep)
	default:
		return nil, reports, dataset.Usagef("unknown missing-value policy %q", opt.Missing)
	}
	return t, reports, nil
}
