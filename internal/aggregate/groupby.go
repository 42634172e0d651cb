package aggregate

import (
	"errors"
	"fmt"
	"math"
	"sort"
	"strings"

	"github.com/aclements/go-moremath/stats"
	"github.com/aclements/go-moremath/vec"

	"github.com/KaramelBytes/datalens-cli/internal/dataset"
	"github.com/KaramelBytes/datalens-cli/internal/summary"
)

// ResultColumn names the derived column of every group-by result.
const ResultColumn = "newcol"

// ErrNoGroupColumns is returned when no grouping column is selected.
var ErrNoGroupColumns = errors.New("select at least one column to group by")

// Op is an aggregation operator.
type Op string

const (
	Sum    Op = "sum"
	Max    Op = "max"
	Min    Op = "min"
	Mean   Op = "mean"
	Median Op = "median"
	Count  Op = "count"
)

// Ops lists the operators in display order.
var Ops = []Op{Sum, Max, Min, Mean, Median, Count}

// ParseOp maps user input to an Op.
func ParseOp(s string) (Op, error) {
	s = strings.ToLower(strings.TrimSpace(s))
	for _, op := range Ops {
		if string(op) == s {
			return op, nil
		}
	}
	names := make([]string, len(Ops))
	for i, op := range Ops {
		names[i] = string(op)
	}
	return "", dataset.Usagef("unknown aggregation %q (use %s)", s, strings.Join(names, ", "))
}

// Numeric reports whether the operator needs numeric input.
func (op Op) Numeric() bool { return op != Count }

// AggregationError reports an operator applied to a column it cannot handle.
type AggregationError struct {
	Op     Op
	Column string
	Type   string
	Value  string
}

func (e *AggregationError) Error() string {
	return fmt.Sprintf("cannot compute %s of column '%s' (%s): value %q is not numeric", e.Op, e.Column, e.Type, e.Value)
}

// GroupSpec selects what to group and aggregate.
type GroupSpec struct {
	By     []string `json:"by" yaml:"by"`
	Target string   `json:"target" yaml:"target"`
	Op     Op       `json:"op" yaml:"op"`
}

// AggregationResult is the grouped table plus the size of each group.
type AggregationResult struct {
	Spec  GroupSpec      `json:"spec" yaml:"spec"`
	Table *dataset.Table `json:"table" yaml:"table"`
	// Sizes[i] is the number of source rows in result row i.
	Sizes []int `json:"sizes" yaml:"sizes"`
}

// GroupBy partitions rows by the tuple of values in spec.By and applies
// spec.Op to spec.Target within each partition. Missing values form a group
// of their own, so every source row lands in exactly one result row. Rows
// are ordered by ascending group tuple with missing values last. The
// operator skips missing target values.
func GroupBy(t *dataset.Table, spec GroupSpec) (*AggregationResult, error) {
	if len(spec.By) == 0 {
		return nil, ErrNoGroupColumns
	}
	seen := make(map[string]bool, len(spec.By))
	keys := make([]*dataset.Column, len(spec.By))
	for i, name := range spec.By {
		if seen[name] {
			return nil, dataset.Usagef("column '%s' selected more than once for grouping", name)
		}
		if name == ResultColumn {
			return nil, dataset.Usagef("cannot group by '%s': the name is reserved for the result column", name)
		}
		seen[name] = true
		c, err := t.Column(name)
		if err != nil {
			return nil, err
		}
		keys[i] = c
	}
	target, err := t.Column(spec.Target)
	if err != nil {
		return nil, err
	}
	if _, err := ParseOp(string(spec.Op)); err != nil {
		return nil, err
	}

	type group struct {
		first int
		rows  []int
	}
	index := make(map[string]*group)
	var groups []*group
	for r := 0; r < t.NumRows(); r++ {
		var kb strings.Builder
		for _, c := range keys {
			k := c.Cells[r].Key()
			fmt.Fprintf(&kb, "%d:%s", len(k), k)
		}
		g, ok := index[kb.String()]
		if !ok {
			g = &group{first: r}
			index[kb.String()] = g
			groups = append(groups, g)
		}
		g.rows = append(g.rows, r)
	}
	sort.SliceStable(groups, func(i, j int) bool {
		a, b := groups[i].first, groups[j].first
		for _, c := range keys {
			if d := dataset.Compare(c.Cells[a], c.Cells[b]); d != 0 {
				return d < 0
			}
		}
		return false
	})

	cols := make([]dataset.Column, len(keys)+1)
	for i, c := range keys {
		cols[i] = dataset.Column{Name: c.Name, Cells: make([]dataset.Cell, len(groups))}
	}
	derived := make([]dataset.Cell, len(groups))
	sizes := make([]int, len(groups))
	for gi, g := range groups {
		for i, c := range keys {
			cols[i].Cells[gi] = c.Cells[g.first]
		}
		v, err := apply(spec.Op, target, g.rows)
		if err != nil {
			return nil, err
		}
		derived[gi] = v
		sizes[gi] = len(g.rows)
	}
	cols[len(keys)] = dataset.Column{Name: ResultColumn, Cells: derived}
	out, err := dataset.New(cols...)
	if err != nil {
		return nil, err
	}
	return &AggregationResult{Spec: spec, Table: out, Sizes: sizes}, nil
}

func apply(op Op, c *dataset.Column, rows []int) (dataset.Cell, error) {
	var vals []float64
	n := 0
	for _, r := range rows {
		v := c.Cells[r]
		if v.IsNull() {
			continue
		}
		n++
		if !op.Numeric() {
			continue
		}
		f, ok := v.Float()
		if !ok {
			return dataset.Cell{}, &AggregationError{Op: op, Column: c.Name, Type: c.Type(), Value: v.String()}
		}
		vals = append(vals, f)
	}
	if op == Count {
		return dataset.NumberCell(float64(n)), nil
	}
	if op == Sum {
		return dataset.NumberCell(vec.Sum(vals)), nil
	}
	if len(vals) == 0 {
		return dataset.NullCell(), nil
	}
	switch op {
	case Max:
		_, hi := stats.Bounds(vals)
		return dataset.NumberCell(hi), nil
	case Min:
		lo, _ := stats.Bounds(vals)
		return dataset.NumberCell(lo), nil
	case Mean:
		return dataset.NumberCell(stats.Mean(vals)), nil
	case Median:
		return dataset.NumberCell(summary.Median(vals)), nil
	}
	return dataset.NumberCell(math.NaN()), nil
}

// SizeTotal returns the number of source rows covered by the result.
func (r *AggregationResult) SizeTotal() int {
	n := 0
	for _, s := range r.Sizes {
		n += s
	}
	return n
}
