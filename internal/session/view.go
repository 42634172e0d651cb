package session

import (
	"errors"
	"fmt"
	"path/filepath"

	"github.com/KaramelBytes/datalens-cli/internal/aggregate"
	"github.com/KaramelBytes/datalens-cli/internal/chart"
	"github.com/KaramelBytes/datalens-cli/internal/clean"
	"github.com/KaramelBytes/datalens-cli/internal/dataset"
	"github.com/KaramelBytes/datalens-cli/internal/loader"
	"github.com/KaramelBytes/datalens-cli/internal/summary"
)

// ErrNoData is reported by Render before a file is uploaded.
var ErrNoData = errors.New("no file uploaded")

// View is everything derived from a session. Each section carries its own
// error; a failed section leaves the others intact.
type View struct {
	SessionID string
	Source    string

	Table    *dataset.Table
	Cleaning []clean.Report
	LoadErr  error

	Summary    *summary.Report
	SummaryErr error

	Counts      *aggregate.ValueCountResult
	CountCharts []chart.Spec
	CountErr    error

	Groups   *aggregate.AggregationResult
	GroupErr error

	Chart    *chart.Spec
	ChartErr error
}

// Render loads the source bytes, cleans them and computes every section
// from the current options. Nothing is cached between calls.
func Render(s Session) *View {
	v := &View{SessionID: s.ID}
	if s.Source == nil {
		v.LoadErr = ErrNoData
		return v
	}
	v.Source = filepath.Base(s.Source.Name)
	raw, err := loader.Load(s.Source.Name, s.Source.Data, s.Load)
	if err != nil {
		v.LoadErr = err
		return v
	}
	t, reports, err := clean.Apply(raw, s.Options.Cleaning())
	if err != nil {
		v.LoadErr = err
		return v
	}
	v.Table, v.Cleaning = t, reports
	o := s.Options

	v.Summary, v.SummaryErr = summary.Build(v.Source, t, summary.Options{
		HeadRows:         o.HeadRows,
		TailRows:         o.TailRows,
		OutlierThreshold: s.OutlierThreshold,
	})
	if v.Summary != nil {
		for _, r := range reports {
			v.Summary.Notes = append(v.Summary.Notes, r.String())
		}
	}

	if col := countColumn(t, o.CountColumn); col != "" {
		v.Counts, v.CountErr = aggregate.ValueCounts(t, col, o.TopK)
		if v.CountErr == nil && o.CountCharts {
			v.CountCharts = chart.ValueCountCharts(v.Counts)
		}
	}

	if len(o.GroupBy) == 0 {
		return v
	}
	target := o.Target
	if target == "" && t.NumCols() > 0 {
		target = t.ColumnAt(0).Name
	}
	v.Groups, v.GroupErr = aggregate.GroupBy(t, aggregate.GroupSpec{By: o.GroupBy, Target: target, Op: o.Op})
	if v.GroupErr != nil {
		return v
	}
	spec, err := chart.Dispatch(o.ChartKind, v.Groups, DefaultBindings(o.ChartKind, v.Groups, o.Bindings))
	if err != nil {
		v.ChartErr = err
		return v
	}
	v.Chart = &spec
	return v
}

func countColumn(t *dataset.Table, selected string) string {
	if selected != "" {
		return selected
	}
	if t.NumCols() == 0 {
		return ""
	}
	return t.ColumnAt(0).Name
}

// DefaultBindings fills the required roles of kind that b leaves unbound:
// x and names take the first grouping column, y and values the result
// column, and path the grouping columns.
func DefaultBindings(kind chart.Kind, res *aggregate.AggregationResult, b chart.Bindings) chart.Bindings {
	first := ""
	if len(res.Spec.By) > 0 {
		first = res.Spec.By[0]
	}
	switch kind {
	case chart.Line, chart.Bar, chart.Scatter:
		if b.X == "" {
			b.X = first
		}
		if b.Y == "" {
			b.Y = aggregate.ResultColumn
		}
	case chart.Pie:
		if b.Values == "" {
			b.Values = aggregate.ResultColumn
		}
		if b.Names == "" {
			b.Names = first
		}
	case chart.Sunburst:
		if len(b.Path) == 0 {
			b.Path = append([]string(nil), res.Spec.By...)
		}
	}
	return b
}

// Images renders the value-count charts and the group-by chart. Image names
// are prefixed with their section. Rendering stops at the first error.
func (v *View) Images(r chart.Renderer) ([]chart.Image, error) {
	var out []chart.Image
	add := func(prefix string, s chart.Spec) error {
		imgs, err := r.Render(s)
		if err != nil {
			return err
		}
		for _, img := range imgs {
			img.Name = fmt.Sprintf("%s-%s", prefix, img.Name)
			out = append(out, img)
		}
		return nil
	}
	for _, s := range v.CountCharts {
		if err := add("counts", s); err != nil {
			return out, err
		}
	}
	if v.Chart != nil {
		if err := add("groupby", *v.Chart); err != nil {
			return out, err
		}
	}
	return out, nil
}

// Err returns the first section error, if any.
func (v *View) Err() error {
	for _, err := range []error{v.LoadErr, v.SummaryErr, v.CountErr, v.GroupErr, v.ChartErr} {
		if err != nil {
			return err
		}
	}
	return nil
}
