package dataset

import (
	"math"
	"strconv"
	"strings"
	"time"
)

// Kind tags the value held by a Cell.
type Kind uint8

const (
	Null Kind = iota
	Number
	Text
	Time
)

func (k Kind) String() string {
	switch k {
	case Null:
		return "null"
	case Number:
		return "number"
	case Text:
		return "text"
	case Time:
		return "time"
	default:
		return "unknown"
	}
}

// Cell is one typed value of a column. The zero Cell is Null.
type Cell struct {
	Kind Kind
	Num  float64
	Str  string
	T    time.Time
}

// NullCell returns a missing value.
func NullCell() Cell { return Cell{} }

// NumberCell returns a numeric cell. NaN is stored as Null.
func NumberCell(f float64) Cell {
	if math.IsNaN(f) {
		return Cell{}
	}
	return Cell{Kind: Number, Num: f}
}

// TextCell returns a text cell holding s verbatim.
func TextCell(s string) Cell { return Cell{Kind: Text, Str: s} }

// TimeCell returns a date/time cell.
func TimeCell(t time.Time) Cell { return Cell{Kind: Time, T: t} }

// IsNull reports whether the cell is missing.
func (c Cell) IsNull() bool { return c.Kind == Null }

// Float returns the numeric value and whether the cell is numeric.
func (c Cell) Float() (float64, bool) {
	if c.Kind != Number {
		return 0, false
	}
	return c.Num, true
}

// String renders the cell for display. Null renders as "NaN".
func (c Cell) String() string {
	switch c.Kind {
	case Number:
		return formatNumber(c.Num)
	case Text:
		return c.Str
	case Time:
		if c.T.Hour() == 0 && c.T.Minute() == 0 && c.T.Second() == 0 && c.T.Nanosecond() == 0 {
			return c.T.Format("2006-01-02")
		}
		return c.T.Format("2006-01-02 15:04:05")
	default:
		return "NaN"
	}
}

// Value returns the cell as a plain Go value for encoding: float64, string,
// time.Time or nil. Infinities become strings.
func (c Cell) Value() any {
	switch c.Kind {
	case Number:
		if math.IsInf(c.Num, 0) {
			return formatNumber(c.Num)
		}
		return c.Num
	case Text:
		return c.Str
	case Time:
		return c.T
	default:
		return nil
	}
}

// Key returns a string that is equal for two cells iff the cells are equal.
// Null cells share one key.
func (c Cell) Key() string {
	switch c.Kind {
	case Number:
		f := c.Num
		if f == 0 {
			f = 0 // fold -0
		}
		return "n:" + strconv.FormatFloat(f, 'g', -1, 64)
	case Text:
		return "s:" + c.Str
	case Time:
		return "t:" + c.T.UTC().Format(time.RFC3339Nano)
	default:
		return "\x00"
	}
}

// Equal reports whether two cells hold the same value.
func (c Cell) Equal(o Cell) bool { return c.Key() == o.Key() }

// Compare orders cells: numbers numerically, times chronologically, text
// lexicographically. Across kinds Number < Time < Text, and Null sorts last.
func Compare(a, b Cell) int {
	if a.Kind != b.Kind {
		return kindRank(a.Kind) - kindRank(b.Kind)
	}
	switch a.Kind {
	case Number:
		switch {
		case a.Num < b.Num:
			return -1
		case a.Num > b.Num:
			return 1
		}
		return 0
	case Time:
		return a.T.Compare(b.T)
	case Text:
		return strings.Compare(a.Str, b.Str)
	}
	return 0
}

func kindRank(k Kind) int {
	switch k {
	case Number:
		return 0
	case Time:
		return 1
	case Text:
		return 2
	default:
		return 3
	}
}

func formatNumber(f float64) string {
	if math.IsInf(f, 0) {
		if f > 0 {
			return "inf"
		}
		return "-inf"
	}
	if math.Abs(f) < 1e15 {
		return strconv.FormatFloat(f, 'f', -1, 64)
	}
	return strconv.FormatFloat(f, 'g', -1, 64)
}
