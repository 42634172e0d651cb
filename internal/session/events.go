package session

import (
	"fmt"
	"path/filepath"

	"github.com/KaramelBytes/datalens-cli/internal/aggregate"
	"github.com/KaramelBytes/datalens-cli/internal/chart"
	"github.com/KaramelBytes/datalens-cli/internal/clean"
	"github.com/KaramelBytes/datalens-cli/internal/dataset"
	"github.com/KaramelBytes/datalens-cli/internal/loader"
)

// Event is one user interaction.
type Event interface {
	apply(s Session) (Session, error)
}

// Upload replaces the source file. Selections are kept; ones that no longer
// match a column fail when rendered.
type Upload struct {
	Name string
	Data []byte
}

// ToggleDedup turns deduplication on or off.
type ToggleDedup struct{ On bool }

// SetMissingPolicy selects the missing-value policy.
type SetMissingPolicy struct {
	Policy    clean.Policy
	FillValue string
}

// SetRows sets the head and tail sizes; 0 hides a section.
type SetRows struct{ Head, Tail int }

// SelectColumn picks the value-count column and row limit. K of 0 keeps
// the current limit.
type SelectColumn struct {
	Column string
	K      int
}

// TriggerCount requests the value-count charts for the current selection.
type TriggerCount struct{}

// SetAggregation selects the grouping columns, target and operator.
type SetAggregation struct {
	By     []string
	Target string
	Op     aggregate.Op
}

// SelectChartKind picks the group-by chart kind.
type SelectChartKind struct{ Kind chart.Kind }

// BindAxis binds a chart role to columns; no columns unbinds it.
type BindAxis struct {
	Role    chart.Role
	Columns []string
}

// Dispatch applies ev and returns the new session. s is never modified; on
// error it is returned unchanged. The value-count charts are requested per
// trigger: any other event withdraws the request.
func (s Session) Dispatch(ev Event) (Session, error) {
	if ev == nil {
		return s, dataset.Usagef("no event")
	}
	next := s
	next.Options = s.Options.clone()
	next.Options.CountCharts = false
	out, err := ev.apply(next)
	if err != nil {
		return s, err
	}
	return out, nil
}

func (e Upload) apply(s Session) (Session, error) {
	if !loader.Supported(e.Name) {
		return s, fmt.Errorf("%s: %w", filepath.Base(e.Name), loader.ErrUnsupportedFormat)
	}
	data := append([]byte(nil), e.Data...)
	s.Source = &Source{Name: e.Name, Data: data}
	return s, nil
}

func (e ToggleDedup) apply(s Session) (Session, error) {
	s.Options.Dedup = e.On
	return s, nil
}

func (e SetMissingPolicy) apply(s Session) (Session, error) {
	p, err := clean.ParsePolicy(string(e.Policy))
	if err != nil {
		return s, err
	}
	s.Options.Missing = p
	s.Options.FillValue = ""
	if p == clean.Fill {
		s.Options.FillValue = e.FillValue
	}
	return s, nil
}

func (e SetRows) apply(s Session) (Session, error) {
	if e.Head < 0 || e.Tail < 0 {
		return s, dataset.Usagef("row counts must not be negative")
	}
	s.Options.HeadRows, s.Options.TailRows = e.Head, e.Tail
	return s, nil
}

func (e SelectColumn) apply(s Session) (Session, error) {
	if e.K < 0 {
		return s, dataset.Usagef("value counts: row limit must be at least 1, got %d", e.K)
	}
	s.Options.CountColumn = e.Column
	if e.K > 0 {
		s.Options.TopK = e.K
	}
	return s, nil
}

func (TriggerCount) apply(s Session) (Session, error) {
	s.Options.CountCharts = true
	return s, nil
}

func (e SetAggregation) apply(s Session) (Session, error) {
	op := e.Op
	if op == "" {
		op = aggregate.Sum
	}
	op, err := aggregate.ParseOp(string(op))
	if err != nil {
		return s, err
	}
	s.Options.GroupBy = append([]string(nil), e.By...)
	s.Options.Target = e.Target
	s.Options.Op = op
	return s, nil
}

func (e SelectChartKind) apply(s Session) (Session, error) {
	k, err := chart.ParseKind(string(e.Kind))
	if err != nil {
		return s, err
	}
	s.Options.ChartKind = k
	return s, nil
}

func (e BindAxis) apply(s Session) (Session, error) {
	b, err := s.Options.Bindings.With(e.Role, e.Columns...)
	if err != nil {
		return s, err
	}
	s.Options.Bindings = b
	return s, nil
}
