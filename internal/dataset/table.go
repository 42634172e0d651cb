// Package dataset holds the in-memory table every stage reads and produces.
package dataset

import (
	"errors"
	"fmt"
	"math"
)

// Column type labels, named after the dataframe dtypes users expect to see.
const (
	TypeInt      = "int64"
	TypeFloat    = "float64"
	TypeDatetime = "datetime64"
	TypeObject   = "object"
)

// Column is a named sequence of cells.
type Column struct {
	Name  string
	Cells []Cell
}

// Len returns the number of cells.
func (c *Column) Len() int { return len(c.Cells) }

// NullCount returns the number of missing cells.
func (c *Column) NullCount() int {
	n := 0
	for _, v := range c.Cells {
		if v.IsNull() {
			n++
		}
	}
	return n
}

// Type infers the column type label from its cells.
func (c *Column) Type() string {
	if len(c.Cells) == 0 {
		return TypeObject
	}
	var nums, times, texts, nulls int
	integral := true
	for _, v := range c.Cells {
		switch v.Kind {
		case Number:
			nums++
			if v.Num != math.Trunc(v.Num) || math.IsInf(v.Num, 0) {
				integral = false
			}
		case Time:
			times++
		case Text:
			texts++
		default:
			nulls++
		}
	}
	switch {
	case texts > 0 || (nums > 0 && times > 0):
		return TypeObject
	case times > 0:
		return TypeDatetime
	case nums > 0 && integral && nulls == 0:
		return TypeInt
	default:
		// numeric with gaps, or entirely missing
		return TypeFloat
	}
}

// IsNumeric reports whether every non-null cell is a number.
func (c *Column) IsNumeric() bool {
	t := c.Type()
	return t == TypeInt || t == TypeFloat
}

// Floats returns the non-null numeric values in order.
func (c *Column) Floats() []float64 {
	out := make([]float64, 0, len(c.Cells))
	for _, v := range c.Cells {
		if f, ok := v.Float(); ok {
			out = append(out, f)
		}
	}
	return out
}

// Table is an ordered set of uniquely named, equal-length columns.
// Tables are never modified after construction; stages return new tables.
type Table struct {
	cols  []*Column
	index map[string]int
	nrows int
}

// New builds a table, checking that names are unique and lengths agree.
func New(cols ...Column) (*Table, error) {
	t := &Table{index: make(map[string]int, len(cols))}
	for i := range cols {
		c := cols[i]
		if _, dup := t.index[c.Name]; dup {
			return nil, fmt.Errorf("duplicate column name %q", c.Name)
		}
		if i == 0 {
			t.nrows = len(c.Cells)
		} else if len(c.Cells) != t.nrows {
			return nil, fmt.Errorf("column %q has %d rows, want %d", c.Name, len(c.Cells), t.nrows)
		}
		t.index[c.Name] = i
		t.cols = append(t.cols, &Column{Name: c.Name, Cells: c.Cells})
	}
	return t, nil
}

// MustNew is like New but panics on error. Intended for fixtures.
func MustNew(cols ...Column) *Table {
	t, err := New(cols...)
	if err != nil {
		panic(err)
	}
	return t
}

// NumRows returns the row count.
func (t *Table) NumRows() int { return t.nrows }

// NumCols returns the column count.
func (t *Table) NumCols() int { return len(t.cols) }

// Names returns the column names in order.
func (t *Table) Names() []string {
	out := make([]string, len(t.cols))
	for i, c := range t.cols {
		out[i] = c.Name
	}
	return out
}

// Has reports whether a column exists.
func (t *Table) Has(name string) bool {
	_, ok := t.index[name]
	return ok
}

// Column looks up a column by name. The returned column must not be modified.
func (t *Table) Column(name string) (*Column, error) {
	i, ok := t.index[name]
	if !ok {
		return nil, &ColumnError{Name: name, Available: t.Names()}
	}
	return t.cols[i], nil
}

// ColumnAt returns the i-th column.
func (t *Table) ColumnAt(i int) *Column { return t.cols[i] }

// Row returns a copy of row r.
func (t *Table) Row(r int) []Cell {
	out := make([]Cell, len(t.cols))
	for j, c := range t.cols {
		out[j] = c.Cells[r]
	}
	return out
}

// Take returns a new table holding the given rows in the given order.
func (t *Table) Take(rows []int) *Table {
	out := &Table{index: t.index, nrows: len(rows)}
	for _, c := range t.cols {
		cells := make([]Cell, len(rows))
		for i, r := range rows {
			cells[i] = c.Cells[r]
		}
		out.cols = append(out.cols, &Column{Name: c.Name, Cells: cells})
	}
	return out
}

// Slice returns rows [from, to).
func (t *Table) Slice(from, to int) *Table {
	rows := make([]int, 0, to-from)
	for r := from; r < to; r++ {
		rows = append(rows, r)
	}
	return t.Take(rows)
}

// MapCells returns a new table with fn applied to every cell.
func (t *Table) MapCells(fn func(Cell) Cell) *Table {
	out := &Table{index: t.index, nrows: t.nrows}
	for _, c := range t.cols {
		cells := make([]Cell, len(c.Cells))
		for i, v := range c.Cells {
			cells[i] = fn(v)
		}
		out.cols = append(out.cols, &Column{Name: c.Name, Cells: cells})
	}
	return out
}

// RowKey returns a key equal for rows whose cells are all equal.
func (t *Table) RowKey(r int) string {
	var b []byte
	for _, c := range t.cols {
		k := c.Cells[r].Key()
		b = append(b, fmt.Sprintf("%d:", len(k))...)
		b = append(b, k...)
	}
	return string(b)
}

// Equal reports whether two tables have the same names, order and cells.
func (t *Table) Equal(o *Table) bool {
	if t == nil || o == nil {
		return t == o
	}
	if t.nrows != o.nrows || len(t.cols) != len(o.cols) {
		return false
	}
	for j, c := range t.cols {
		oc := o.cols[j]
		if c.Name != oc.Name {
			return false
		}
		for i := range c.Cells {
			if !c.Cells[i].Equal(oc.Cells[i]) {
				return false
			}
		}
	}
	return true
}

// Records returns the table as display strings, header first.
func (t *Table) Records() [][]string {
	out := make([][]string, 0, t.nrows+1)
	out = append(out, t.Names())
	for r := 0; r < t.nrows; r++ {
		row := make([]string, len(t.cols))
		for j, c := range t.cols {
			row[j] = c.Cells[r].String()
		}
		out = append(out, row)
	}
	return out
}

// IsColumnError reports whether err is a missing-column error and returns it.
func IsColumnError(err error) (*ColumnError, bool) {
	var ce *ColumnError
	if errors.As(err, &ce) {
		return ce, true
	}
	return nil, false
}
