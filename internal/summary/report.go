package summary

import (
	"fmt"
	"strings"

	"github.com/KaramelBytes/datalens-cli/internal/dataset"
)

// Options controls which sections Build produces.
type Options struct {
	// HeadRows and TailRows select the slices to include; 0 skips the section.
	HeadRows int
	TailRows int
	// OutlierThreshold enables robust z-score outlier counts when > 0.
	OutlierThreshold float64
}

// DefaultOptions returns the defaults used by the shell.
func DefaultOptions() Options {
	return Options{HeadRows: 5, TailRows: 5, OutlierThreshold: 3.5}
}

// ColumnSummary captures the inferred type and counts of one column.
type ColumnSummary struct {
	Name    string `json:"name" yaml:"name"`
	Type    string `json:"type" yaml:"type"`
	NonNull int    `json:"non_null" yaml:"non_null"`
	Missing int    `json:"missing" yaml:"missing"`
	Unique  int    `json:"unique" yaml:"unique"`
	// Outliers (robust z via MAD), numeric columns only
	OutliersCount   int     `json:"outliers,omitempty" yaml:"outliers,omitempty"`
	OutliersMaxAbsZ float64 `json:"outliers_max_abs_z,omitempty" yaml:"outliers_max_abs_z,omitempty"`
}

// Report bundles every summary projection of one table.
type Report struct {
	Name             string          `json:"name,omitempty" yaml:"name,omitempty"`
	Rows             int             `json:"rows" yaml:"rows"`
	Cols             int             `json:"cols" yaml:"cols"`
	Columns          []ColumnSummary `json:"columns" yaml:"columns"`
	Nulls            []NullCount     `json:"nulls" yaml:"nulls"`
	NullTotal        int             `json:"null_total" yaml:"null_total"`
	Describe         *dataset.Table  `json:"describe" yaml:"describe"`
	Categorical      *dataset.Table  `json:"categorical,omitempty" yaml:"categorical,omitempty"`
	Head             *dataset.Table  `json:"head,omitempty" yaml:"head,omitempty"`
	Tail             *dataset.Table  `json:"tail,omitempty" yaml:"tail,omitempty"`
	OutlierThreshold float64         `json:"outlier_threshold,omitempty" yaml:"outlier_threshold,omitempty"`
	Notes            []string        `json:"notes,omitempty" yaml:"notes,omitempty"`
}

// Build computes the report for t. name labels the source file.
func Build(name string, t *dataset.Table, opt Options) (*Report, error) {
	if opt.HeadRows < 0 || opt.TailRows < 0 {
		return nil, dataset.Usagef("row counts must not be negative")
	}
	rep := &Report{Name: name, OutlierThreshold: opt.OutlierThreshold}
	rep.Rows, rep.Cols = Shape(t)
	rep.Nulls, rep.NullTotal = NullCounts(t)
	for j := 0; j < t.NumCols(); j++ {
		c := t.ColumnAt(j)
		cs := ColumnSummary{Name: c.Name, Type: c.Type(), Missing: c.NullCount()}
		cs.NonNull = c.Len() - cs.Missing
		seen := make(map[string]struct{})
		for _, v := range c.Cells {
			if !v.IsNull() {
				seen[v.Key()] = struct{}{}
			}
		}
		cs.Unique = len(seen)
		if opt.OutlierThreshold > 0 && c.IsNumeric() {
			cs.OutliersCount, cs.OutliersMaxAbsZ = robustOutliers(c.Floats(), opt.OutlierThreshold)
		}
		rep.Columns = append(rep.Columns, cs)
	}

	rep.Describe = Describe(t)
	if rep.Describe.NumCols() == 1 {
		rep.Notes = append(rep.Notes, "no numeric columns to describe")
	}
	if cat := DescribeCategorical(t); cat.NumCols() > 1 {
		rep.Categorical = cat
	}

	if opt.HeadRows > 0 && t.NumRows() > 0 {
		h, err := Head(t, opt.HeadRows)
		if err != nil {
			return nil, err
		}
		rep.Head = h
	}
	if opt.TailRows > 0 && t.NumRows() > 0 {
		tl, err := Tail(t, opt.TailRows)
		if err != nil {
			return nil, err
		}
		rep.Tail = tl
	}
	if t.NumRows() == 0 {
		rep.Notes = append(rep.Notes, "table has no rows")
	}
	return rep, nil
}

// Markdown renders the report as sectioned text.
func (r *Report) Markdown() string {
	var b strings.Builder
	b.WriteString("[DATASET SUMMARY]\n")
	if r.Name != "" {
		b.WriteString(fmt.Sprintf("File: %s\n", r.Name))
	}
	b.WriteString(fmt.Sprintf("Rows: %d\n", r.Rows))
	b.WriteString(fmt.Sprintf("Columns: %d\n\n", r.Cols))

	b.WriteString("[SCHEMA]\n")
	for _, c := range r.Columns {
		total := c.NonNull + c.Missing
		missPct := 0.0
		if total > 0 {
			missPct = float64(c.Missing) * 100.0 / float64(total)
		}
		b.WriteString(fmt.Sprintf("- %s: %s (non-null %d, missing %.1f%%, unique %d)",
			dataset.SafeName(c.Name), c.Type, c.NonNull, missPct, c.Unique))
		if r.OutlierThreshold > 0 && c.OutliersCount > 0 {
			b.WriteString(fmt.Sprintf("; outliers: %d above |z|>%.1f (max |z|≈%.2f)",
				c.OutliersCount, r.OutlierThreshold, c.OutliersMaxAbsZ))
		}
		b.WriteString("\n")
	}

	b.WriteString("\n[MISSING VALUES]\n")
	for _, n := range r.Nulls {
		b.WriteString(fmt.Sprintf("- %s: %d\n", dataset.SafeName(n.Name), n.Nulls))
	}
	b.WriteString(fmt.Sprintf("Total: %d\n", r.NullTotal))

	if r.Describe != nil && r.Describe.NumCols() > 1 {
		b.WriteString("\n[DESCRIBE]\n")
		r.Describe.WriteMarkdown(&b)
	}
	if r.Categorical != nil {
		b.WriteString("\n[CATEGORICAL]\n")
		r.Categorical.WriteMarkdown(&b)
	}
	if r.Head != nil {
		b.WriteString(fmt.Sprintf("\n[HEAD %d]\n", r.Head.NumRows()))
		r.Head.WriteMarkdown(&b)
	}
	if r.Tail != nil {
		b.WriteString(fmt.Sprintf("\n[TAIL %d]\n", r.Tail.NumRows()))
		r.Tail.WriteMarkdown(&b)
	}
	if len(r.Notes) > 0 {
		b.WriteString("\n[NOTES]\n")
		for _, w := range r.Notes {
			b.WriteString("- ")
			b.WriteString(w)
			b.WriteString("\n")
		}
	}
	return b.String()
}
