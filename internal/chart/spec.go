// Package chart describes charts declaratively and renders them with
// go-chart. A Spec binds table columns to visual roles; Dispatch builds one
// from a group-by result and checks the bindings the chart kind needs.
package chart

import (
	"fmt"
	"strings"

	"github.com/KaramelBytes/datalens-cli/internal/aggregate"
	"github.com/KaramelBytes/datalens-cli/internal/dataset"
)

// Kind is a chart type.
type Kind string

const (
	Line     Kind = "line"
	Bar      Kind = "bar"
	Scatter  Kind = "scatter"
	Pie      Kind = "pie"
	Sunburst Kind = "sunburst"
)

// Kinds lists the chart kinds available for group-by results.
var Kinds = []Kind{Line, Bar, Scatter, Pie, Sunburst}

// ParseKind maps user input to a Kind.
func ParseKind(s string) (Kind, error) {
	s = strings.ToLower(strings.TrimSpace(s))
	for _, k := range Kinds {
		if string(k) == s {
			return k, nil
		}
	}
	return "", dataset.Usagef("unknown chart kind %q (use line, bar, scatter, pie or sunburst)", s)
}

// Role is a bindable chart role.
type Role string

const (
	RoleX      Role = "x"
	RoleY      Role = "y"
	RoleColor  Role = "color"
	RoleSize   Role = "size"
	RoleFacet  Role = "facet"
	RoleValues Role = "values"
	RoleNames  Role = "names"
	RolePath   Role = "path"
)

// Roles lists every role in display order.
var Roles = []Role{RoleX, RoleY, RoleColor, RoleSize, RoleFacet, RoleValues, RoleNames, RolePath}

// ParseRole maps user input to a Role.
func ParseRole(s string) (Role, error) {
	s = strings.ToLower(strings.TrimSpace(s))
	for _, r := range Roles {
		if string(r) == s {
			return r, nil
		}
	}
	return "", dataset.Usagef("unknown chart role %q", s)
}

// Bindings maps chart roles to column names. Empty means unbound.
type Bindings struct {
	X      string   `json:"x,omitempty" yaml:"x,omitempty"`
	Y      string   `json:"y,omitempty" yaml:"y,omitempty"`
	Color  string   `json:"color,omitempty" yaml:"color,omitempty"`
	Size   string   `json:"size,omitempty" yaml:"size,omitempty"`
	Facet  string   `json:"facet,omitempty" yaml:"facet,omitempty"`
	Values string   `json:"values,omitempty" yaml:"values,omitempty"`
	Names  string   `json:"names,omitempty" yaml:"names,omitempty"`
	Path   []string `json:"path,omitempty" yaml:"path,omitempty"`
}

// With returns a copy of b with role bound to columns. Only the path role
// takes more than one column; an empty list unbinds the role.
func (b Bindings) With(role Role, columns ...string) (Bindings, error) {
	one := ""
	if len(columns) > 0 {
		one = columns[0]
	}
	if role != RolePath && len(columns) > 1 {
		return b, dataset.Usagef("role %s takes one column, got %d", role, len(columns))
	}
	switch role {
	case RoleX:
		b.X = one
	case RoleY:
		b.Y = one
	case RoleColor:
		b.Color = one
	case RoleSize:
		b.Size = one
	case RoleFacet:
		b.Facet = one
	case RoleValues:
		b.Values = one
	case RoleNames:
		b.Names = one
	case RolePath:
		b.Path = append([]string(nil), columns...)
	default:
		return b, dataset.Usagef("unknown chart role %q", role)
	}
	return b, nil
}

// Spec is a declarative chart: a kind, its column bindings and the table
// the columns come from.
type Spec struct {
	Kind     Kind           `json:"kind" yaml:"kind"`
	Title    string         `json:"title,omitempty" yaml:"title,omitempty"`
	Bindings Bindings       `json:"bindings" yaml:"bindings"`
	Markers  bool           `json:"markers,omitempty" yaml:"markers,omitempty"`
	Labels   bool           `json:"labels,omitempty" yaml:"labels,omitempty"`
	Data     *dataset.Table `json:"data" yaml:"data"`
}

type requirement struct {
	required []Role
	optional []Role
	numeric  []Role
}

var requirements = map[Kind]requirement{
	Line:     {required: []Role{RoleX, RoleY}, optional: []Role{RoleColor}, numeric: []Role{RoleY}},
	Bar:      {required: []Role{RoleX, RoleY}, optional: []Role{RoleColor, RoleFacet}, numeric: []Role{RoleY}},
	Scatter:  {required: []Role{RoleX, RoleY}, optional: []Role{RoleColor, RoleSize}, numeric: []Role{RoleY, RoleSize}},
	Pie:      {required: []Role{RoleValues, RoleNames}, numeric: []Role{RoleValues}},
	Sunburst: {required: []Role{RolePath, RoleValues}, numeric: []Role{RoleValues}},
}

// Accepts reports whether kind uses role.
func Accepts(kind Kind, role Role) bool {
	req, ok := requirements[kind]
	if !ok {
		return false
	}
	for _, r := range append(append([]Role(nil), req.required...), req.optional...) {
		if r == role {
			return true
		}
	}
	return false
}

func (b Bindings) columns(role Role) []string {
	var one string
	switch role {
	case RoleX:
		one = b.X
	case RoleY:
		one = b.Y
	case RoleColor:
		one = b.Color
	case RoleSize:
		one = b.Size
	case RoleFacet:
		one = b.Facet
	case RoleValues:
		one = b.Values
	case RoleNames:
		one = b.Names
	case RolePath:
		return b.Path
	}
	if one == "" {
		return nil
	}
	return []string{one}
}

// only keeps the roles kind uses.
func (b Bindings) only(kind Kind) Bindings {
	var out Bindings
	for _, r := range Roles {
		if Accepts(kind, r) {
			out, _ = out.With(r, b.columns(r)...)
		}
	}
	return out
}

// Validate checks that every required role is bound, every bound column
// exists, and numeric roles are bound to numeric columns.
func (s Spec) Validate() error {
	req, ok := requirements[s.Kind]
	if !ok {
		return dataset.Usagef("unknown chart kind %q", s.Kind)
	}
	if s.Data == nil {
		return dataset.Usagef("%s chart has no data", s.Kind)
	}
	for _, r := range req.required {
		if len(s.Bindings.columns(r)) == 0 {
			return dataset.Usagef("%s chart needs a column bound to %s", s.Kind, r)
		}
	}
	for _, r := range append(append([]Role(nil), req.required...), req.optional...) {
		for _, name := range s.Bindings.columns(r) {
			if _, err := s.Data.Column(name); err != nil {
				return fmt.Errorf("%s: %w", r, err)
			}
		}
	}
	for _, r := range req.numeric {
		for _, name := range s.Bindings.columns(r) {
			c, _ := s.Data.Column(name)
			if !c.IsNumeric() {
				return dataset.Usagef("%s chart: %s column '%s' is %s, want a numeric column", s.Kind, r, name, c.Type())
			}
		}
	}
	return nil
}

// ValueCountCharts returns the bar, line and pie charts of a value-count
// result. All three read the same table.
func ValueCountCharts(r *aggregate.ValueCountResult) []Spec {
	data := r.Table()
	count := r.CountLabel()
	title := fmt.Sprintf("Value counts of %s", r.Column)
	return []Spec{
		{Kind: Bar, Title: title, Bindings: Bindings{X: r.Column, Y: count}, Data: data},
		{Kind: Line, Title: title, Bindings: Bindings{X: r.Column, Y: count}, Markers: true, Labels: true, Data: data},
		{Kind: Pie, Title: title, Bindings: Bindings{Values: count, Names: r.Column}, Data: data},
	}
}

// Dispatch builds the chart of kind for an aggregation result. Bindings the
// kind does not use are dropped; sunburst values are always the result
// column. The aggregation itself is not recomputed.
func Dispatch(kind Kind, res *aggregate.AggregationResult, b Bindings) (Spec, error) {
	if _, ok := requirements[kind]; !ok {
		return Spec{}, dataset.Usagef("unknown chart kind %q", kind)
	}
	if res == nil || res.Table == nil {
		return Spec{}, dataset.Usagef("no aggregation result to chart")
	}
	if kind == Sunburst {
		b.Values = aggregate.ResultColumn
	}
	s := Spec{
		Kind:     kind,
		Title:    fmt.Sprintf("%s of %s by %s", res.Spec.Op, res.Spec.Target, strings.Join(res.Spec.By, ", ")),
		Bindings: b.only(kind),
		Markers:  kind == Line,
		Data:     res.Table,
	}
	if err := s.Validate(); err != nil {
		return Spec{}, err
	}
	return s, nil
}
