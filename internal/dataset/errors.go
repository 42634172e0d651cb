package dataset

import (
	"errors"
	"fmt"
	"strings"
)

var (
	// ErrUsage marks errors caused by the caller's selection rather than the data,
	// e.g. referencing a column that does not exist.
	ErrUsage = errors.New("usage error")
	// ErrDecode marks input that could not be parsed into a Table.
	ErrDecode = errors.New("decode error")
)

// ColumnError indicates a stage referenced a column absent from the table.
type ColumnError struct {
	Name      string
	Available []string
}

func (e *ColumnError) Error() string {
	if len(e.Available) == 0 {
		return fmt.Sprintf("column %q not found", e.Name)
	}
	return fmt.Sprintf("column %q not found (available: %s)", e.Name, strings.Join(e.Available, ", "))
}

func (e *ColumnError) Is(target error) bool { return target == ErrUsage }

// UsageError is a caller mistake such as an out-of-range row count.
type UsageError struct{ Msg string }

func (e *UsageError) Error() string { return e.Msg }

func (e *UsageError) Is(target error) bool { return target == ErrUsage }

// Usagef formats a UsageError.
func Usagef(format string, args ...any) error {
	return &UsageError{Msg: fmt.Sprintf(format, args...)}
}

// DecodeError wraps a failure to parse uploaded content.
type DecodeError struct {
	Name string
	Err  error
}

func (e *DecodeError) Error() string {
	if e.Name == "" {
		return fmt.Sprintf("decode: %v", e.Err)
	}
	return fmt.Sprintf("decode %s: %v", e.Name, e.Err)
}

func (e *DecodeError) Unwrap() error { return e.Err }

func (e *DecodeError) Is(target error) bool { return target == ErrDecode }
