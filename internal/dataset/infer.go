package dataset

import (
	"math"
	"strconv"
	"strings"
	"time"
)

// ParseOptions controls how raw text cells are interpreted.
type ParseOptions struct {
	// DecimalSeparator for numbers. If 0, only '.' is accepted.
	DecimalSeparator rune
	// ThousandsSeparator is stripped before parsing when set.
	ThousandsSeparator rune
	// NAValues are tokens read as missing. Nil means DefaultNAValues.
	NAValues []string
}

// DefaultNAValues are the tokens treated as missing when none are configured.
var DefaultNAValues = []string{
	"", "NA", "N/A", "n/a", "NaN", "nan", "-NaN", "-nan", "null", "NULL",
	"None", "#N/A", "#NA", "<NA>",
}

// IsNA reports whether s is a missing-value token.
func (o ParseOptions) IsNA(s string) bool {
	s = strings.TrimSpace(s)
	if s == "" {
		return true
	}
	na := o.NAValues
	if na == nil {
		na = DefaultNAValues
	}
	for _, tok := range na {
		if s == tok {
			return true
		}
	}
	return false
}

// InferColumn builds a column from raw strings. If every non-missing value
// parses as a number the column is numeric; if every one parses as a date it
// is a datetime column; otherwise the values are kept as text.
func InferColumn(name string, raw []string, opt ParseOptions) Column {
	nums := make([]float64, len(raw))
	times := make([]time.Time, len(raw))
	null := make([]bool, len(raw))
	allNum, allTime := true, true
	nonNull := 0
	for i, s := range raw {
		v := strings.TrimSpace(s)
		if opt.IsNA(v) {
			null[i] = true
			continue
		}
		nonNull++
		if allNum {
			if x, ok := ParseNumber(v, opt); ok {
				nums[i] = x
			} else {
				allNum = false
			}
		}
		if allTime {
			if t, ok := ParseTime(v); ok {
				times[i] = t
			} else {
				allTime = false
			}
		}
	}

	cells := make([]Cell, len(raw))
	for i, s := range raw {
		switch {
		case null[i]:
			cells[i] = NullCell()
		case nonNull > 0 && allNum:
			cells[i] = NumberCell(nums[i])
		case allTime:
			cells[i] = TimeCell(times[i])
		default:
			cells[i] = TextCell(strings.TrimSpace(s))
		}
	}
	return Column{Name: name, Cells: cells}
}

// ParseNumber parses s using the configured separators.
func ParseNumber(s string, opt ParseOptions) (float64, bool) {
	raw := strings.TrimSpace(s)
	raw = strings.TrimSpace(strings.ReplaceAll(raw, "\u00a0", " "))
	dec := opt.DecimalSeparator
	thou := opt.ThousandsSeparator
	if thou != 0 && thou != dec {
		raw = strings.ReplaceAll(raw, string(thou), "")
	}
	if dec != 0 && dec != '.' {
		if strings.Contains(raw, ".") && thou != '.' {
			return 0, false
		}
		raw = strings.ReplaceAll(raw, string(dec), ".")
	}
	if raw == "" || strings.ContainsAny(raw, "_xXpP") {
		return 0, false
	}
	f, err := strconv.ParseFloat(raw, 64)
	if err != nil || math.IsNaN(f) {
		return 0, false
	}
	return f, true
}

var timeLayouts = []string{
	time.RFC3339, "2006-01-02", "2006/01/02", "02/01/2006", "01/02/2006",
	"2006-01-02 15:04", "2006-01-02 15:04:05", "1/2/2006 15:04", "1/2/2006 15:04:05",
}

// ParseTime accepts the common date and timestamp layouts.
func ParseTime(s string) (time.Time, bool) {
	for _, l := range timeLayouts {
		if t, err := time.Parse(l, s); err == nil {
			return t, true
		}
	}
	return time.Time{}, false
}
