// Package session holds the exploration state: the uploaded bytes and the
// options the user picked. Events produce new sessions; Render derives every
// view from scratch.
package session

import (
	"github.com/google/uuid"

	"github.com/KaramelBytes/datalens-cli/internal/aggregate"
	"github.com/KaramelBytes/datalens-cli/internal/chart"
	"github.com/KaramelBytes/datalens-cli/internal/clean"
	"github.com/KaramelBytes/datalens-cli/internal/loader"
)

// Options records every selectable option.
type Options struct {
	Dedup     bool         `json:"dedup" yaml:"dedup"`
	Missing   clean.Policy `json:"missing" yaml:"missing"`
	FillValue string       `json:"fill_value,omitempty" yaml:"fill_value,omitempty"`

	// HeadRows and TailRows of 0 hide the section.
	HeadRows int `json:"head_rows" yaml:"head_rows"`
	TailRows int `json:"tail_rows" yaml:"tail_rows"`

	// CountColumn empty means the first column.
	CountColumn string `json:"count_column,omitempty" yaml:"count_column,omitempty"`
	TopK        int    `json:"top_k" yaml:"top_k"`
	// CountCharts is set by the explicit chart trigger and cleared by any
	// later event.
	CountCharts bool `json:"count_charts" yaml:"count_charts"`

	GroupBy []string     `json:"group_by,omitempty" yaml:"group_by,omitempty"`
	Target  string       `json:"target,omitempty" yaml:"target,omitempty"`
	Op      aggregate.Op `json:"op" yaml:"op"`

	ChartKind chart.Kind     `json:"chart_kind" yaml:"chart_kind"`
	Bindings  chart.Bindings `json:"bindings" yaml:"bindings"`
}

// DefaultOptions returns the options of a fresh session.
func DefaultOptions() Options {
	return Options{
		Missing:   clean.Keep,
		HeadRows:  5,
		TailRows:  5,
		TopK:      5,
		Op:        aggregate.Sum,
		ChartKind: chart.Line,
	}
}

func (o Options) clone() Options {
	o.GroupBy = append([]string(nil), o.GroupBy...)
	o.Bindings.Path = append([]string(nil), o.Bindings.Path...)
	return o
}

// Cleaning returns the cleaning options.
func (o Options) Cleaning() clean.Options {
	return clean.Options{Dedup: o.Dedup, Missing: o.Missing, FillValue: o.FillValue}
}

// Source is an uploaded file.
type Source struct {
	Name string
	Data []byte
}

// Session is an immutable snapshot of the exploration state.
type Session struct {
	ID      string
	Source  *Source
	Options Options
	// Load configures parsing of the source bytes.
	Load loader.Options
	// OutlierThreshold is passed to the summary report.
	OutlierThreshold float64
}

// New starts a session with default options.
func New(load loader.Options) Session {
	return Session{
		ID:               uuid.NewString(),
		Options:          DefaultOptions(),
		Load:             load,
		OutlierThreshold: 3.5,
	}
}

// HasData reports whether a file was uploaded.
func (s Session) HasData() bool { return s.Source != nil }
