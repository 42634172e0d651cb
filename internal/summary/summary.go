// Package summary computes read-only projections of a table: shape,
// descriptive statistics, missing-value counts, head and tail slices and
// column types.
package summary

import (
	"math"
	"sort"

	"github.com/aclements/go-moremath/stats"

	"github.com/KaramelBytes/datalens-cli/internal/dataset"
)

// StatColumn names the label column of Describe and DescribeCategorical.
const StatColumn = "stat"

// DescribeStats are the rows of Describe, in order.
var DescribeStats = []string{"count", "mean", "std", "min", "25%", "50%", "75%", "max"}

// CategoricalStats are the rows of DescribeCategorical, in order.
var CategoricalStats = []string{"count", "unique", "top", "freq"}

// Shape returns the row and column counts.
func Shape(t *dataset.Table) (rows, cols int) {
	return t.NumRows(), t.NumCols()
}

// Columns returns the column names in their original order.
func Columns(t *dataset.Table) []string { return t.Names() }

// ColumnType pairs a column with its inferred type label.
type ColumnType struct {
	Name string `json:"name" yaml:"name"`
	Type string `json:"type" yaml:"type"`
}

// Types returns the inferred type label of every column.
func Types(t *dataset.Table) []ColumnType {
	out := make([]ColumnType, t.NumCols())
	for j := range out {
		c := t.ColumnAt(j)
		out[j] = ColumnType{Name: c.Name, Type: c.Type()}
	}
	return out
}

// NullCount is the number of missing cells in one column.
type NullCount struct {
	Name  string `json:"name" yaml:"name"`
	Nulls int    `json:"nulls" yaml:"nulls"`
}

// NullCounts returns per-column missing counts and their total.
func NullCounts(t *dataset.Table) ([]NullCount, int) {
	out := make([]NullCount, t.NumCols())
	total := 0
	for j := range out {
		c := t.ColumnAt(j)
		n := c.NullCount()
		out[j] = NullCount{Name: c.Name, Nulls: n}
		total += n
	}
	return out, total
}

// Head returns the first min(n, rows) rows. n must be at least 1.
func Head(t *dataset.Table, n int) (*dataset.Table, error) {
	if n < 1 {
		return nil, dataset.Usagef("head: row count must be at least 1, got %d", n)
	}
	if n > t.NumRows() {
		n = t.NumRows()
	}
	return t.Slice(0, n), nil
}

// Tail returns the last min(n, rows) rows. n must be at least 1.
func Tail(t *dataset.Table, n int) (*dataset.Table, error) {
	if n < 1 {
		return nil, dataset.Usagef("tail: row count must be at least 1, got %d", n)
	}
	if n > t.NumRows() {
		n = t.NumRows()
	}
	return t.Slice(t.NumRows()-n, t.NumRows()), nil
}

// Describe returns count, mean, std, min, quartiles and max for every
// numeric column. The first column holds the statistic name. Standard
// deviation is the sample deviation and is missing below two values.
// Columns with no numeric interpretation are left out.
func Describe(t *dataset.Table) *dataset.Table {
	cols := []dataset.Column{labelColumn(t, DescribeStats)}
	for j := 0; j < t.NumCols(); j++ {
		c := t.ColumnAt(j)
		if !c.IsNumeric() {
			continue
		}
		cols = append(cols, dataset.Column{Name: c.Name, Cells: describeNumeric(c.Floats())})
	}
	return dataset.MustNew(cols...)
}

func describeNumeric(vals []float64) []dataset.Cell {
	n := len(vals)
	nan := math.NaN()
	mean, std, lo, hi := nan, nan, nan, nan
	q1, q2, q3 := nan, nan, nan
	if n > 0 {
		mean = stats.Mean(vals)
		lo, hi = stats.Bounds(vals)
		sorted := make([]float64, n)
		copy(sorted, vals)
		sort.Float64s(sorted)
		q1, q2, q3 = quantile(sorted, 0.25), quantile(sorted, 0.5), quantile(sorted, 0.75)
	}
	if n > 1 {
		std = stats.StdDev(vals)
	}
	return []dataset.Cell{
		dataset.NumberCell(float64(n)),
		dataset.NumberCell(mean),
		dataset.NumberCell(std),
		dataset.NumberCell(lo),
		dataset.NumberCell(q1),
		dataset.NumberCell(q2),
		dataset.NumberCell(q3),
		dataset.NumberCell(hi),
	}
}

// DescribeCategorical returns count, unique, top and freq for every
// non-numeric column. Ties for top go to the value seen first.
func DescribeCategorical(t *dataset.Table) *dataset.Table {
	cols := []dataset.Column{labelColumn(t, CategoricalStats)}
	for j := 0; j < t.NumCols(); j++ {
		c := t.ColumnAt(j)
		if c.IsNumeric() {
			continue
		}
		counts := make(map[string]int)
		var order []dataset.Cell
		count := 0
		for _, v := range c.Cells {
			if v.IsNull() {
				continue
			}
			count++
			k := v.Key()
			if counts[k] == 0 {
				order = append(order, v)
			}
			counts[k]++
		}
		var top dataset.Cell
		freq := 0
		for _, v := range order {
			if n := counts[v.Key()]; n > freq {
				top, freq = v, n
			}
		}
		cells := []dataset.Cell{
			dataset.NumberCell(float64(count)),
			dataset.NumberCell(float64(len(counts))),
			top,
			dataset.NumberCell(float64(freq)),
		}
		if count == 0 {
			cells[3] = dataset.NullCell()
		}
		cols = append(cols, dataset.Column{Name: c.Name, Cells: cells})
	}
	return dataset.MustNew(cols...)
}

// labelColumn is named StatColumn, with underscores appended while that
// name is taken by a data column.
func labelColumn(t *dataset.Table, labels []string) dataset.Column {
	cells := make([]dataset.Cell, len(labels))
	for i, l := range labels {
		cells[i] = dataset.TextCell(l)
	}
	name := StatColumn
	for t.Has(name) {
		name += "_"
	}
	return dataset.Column{Name: name, Cells: cells}
}
