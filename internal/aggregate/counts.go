// Package aggregate computes the value-count and group-by tables the charts
// are drawn from.
package aggregate

import (
	"encoding/json"
	"sort"

	"github.com/KaramelBytes/datalens-cli/internal/dataset"
)

// CountColumn labels the frequency column of a value-count table.
const CountColumn = "count"

// ValueCount is one distinct value and its number of occurrences.
type ValueCount struct {
	Value dataset.Cell
	Label string
	Count int
}

// valueCountDoc is the encoded form of a ValueCount: the value keeps its
// type and the label is its display text.
type valueCountDoc struct {
	Value any    `json:"value" yaml:"value"`
	Label string `json:"label" yaml:"label"`
	Count int    `json:"count" yaml:"count"`
}

func (v ValueCount) doc() valueCountDoc {
	return valueCountDoc{Value: v.Value.Value(), Label: v.Label, Count: v.Count}
}

// MarshalJSON encodes numbers as JSON numbers and times as RFC 3339 strings.
func (v ValueCount) MarshalJSON() ([]byte, error) { return json.Marshal(v.doc()) }

// MarshalYAML implements yaml.Marshaler.
func (v ValueCount) MarshalYAML() (any, error) { return v.doc(), nil }

// ValueCountResult holds the most frequent values of one column.
type ValueCountResult struct {
	Column  string       `json:"column" yaml:"column"`
	Entries []ValueCount `json:"entries" yaml:"entries"`
	// Counted is the number of non-missing cells, before truncation.
	Counted int `json:"counted" yaml:"counted"`
	// Distinct is the number of distinct values, before truncation.
	Distinct int `json:"distinct" yaml:"distinct"`
}

// ValueCounts counts the distinct non-missing values of column, sorts them
// by descending count with ties in order of first appearance, and keeps
// the first k.
func ValueCounts(t *dataset.Table, column string, k int) (*ValueCountResult, error) {
	if k < 1 {
		return nil, dataset.Usagef("value counts: row limit must be at least 1, got %d", k)
	}
	c, err := t.Column(column)
	if err != nil {
		return nil, err
	}
	index := make(map[string]int)
	var entries []ValueCount
	counted := 0
	for _, v := range c.Cells {
		if v.IsNull() {
			continue
		}
		counted++
		key := v.Key()
		i, ok := index[key]
		if !ok {
			i = len(entries)
			index[key] = i
			entries = append(entries, ValueCount{Value: v, Label: v.String()})
		}
		entries[i].Count++
	}
	sort.SliceStable(entries, func(i, j int) bool {
		return entries[i].Count > entries[j].Count
	})
	res := &ValueCountResult{Column: column, Counted: counted, Distinct: len(entries)}
	if len(entries) > k {
		entries = entries[:k]
	}
	res.Entries = entries
	return res, nil
}

// CountLabel returns the name of the count column, "count" unless the
// counted column already has that name.
func (r *ValueCountResult) CountLabel() string {
	if r.Column == CountColumn {
		return CountColumn + ".1"
	}
	return CountColumn
}

// Table returns the result as a two-column table (column, count).
func (r *ValueCountResult) Table() *dataset.Table {
	values := make([]dataset.Cell, len(r.Entries))
	counts := make([]dataset.Cell, len(r.Entries))
	for i, e := range r.Entries {
		values[i] = e.Value
		counts[i] = dataset.NumberCell(float64(e.Count))
	}
	return dataset.MustNew(
		dataset.Column{Name: r.Column, Cells: values},
		dataset.Column{Name: r.CountLabel(), Cells: counts},
	)
}
