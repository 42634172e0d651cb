package cmd

import (
	"bytes"
	"errors"
	"reflect"
	"strings"
	"testing"

	"github.com/KaramelBytes/datalens-cli/internal/aggregate"
	"github.com/KaramelBytes/datalens-cli/internal/chart"
	"github.com/KaramelBytes/datalens-cli/internal/clean"
	"github.com/KaramelBytes/datalens-cli/internal/dataset"
	"github.com/KaramelBytes/datalens-cli/internal/loader"
	"github.com/KaramelBytes/datalens-cli/internal/session"
)

func TestParseCommandEvents(t *testing.T) {
	tests := []struct {
		line string
		want session.Event
	}{
		{"dedup on", session.ToggleDedup{On: true}},
		{"DEDUP off", session.ToggleDedup{On: false}},
		{"missing fill n/a value", session.SetMissingPolicy{Policy: clean.Fill, FillValue: "n/a value"}},
		{"missing drop", session.SetMissingPolicy{Policy: clean.Drop, FillValue: ""}},
		{"rows 3 0", session.SetRows{Head: 3, Tail: 0}},
		{"counts region 2", session.SelectColumn{Column: "region", K: 2}},
		{"counts", session.SelectColumn{}},
		{"draw", session.TriggerCount{}},
		{"group region,year amount MEDIAN", session.SetAggregation{By: []string{"region", "year"}, Target: "amount", Op: aggregate.Median}},
		{"group region amount", session.SetAggregation{By: []string{"region"}, Target: "amount"}},
		{"kind Sunburst", session.SelectChartKind{Kind: chart.Sunburst}},
		{"bind path region year", session.BindAxis{Role: chart.RolePath, Columns: []string{"region", "year"}}},
		{"bind color", session.BindAxis{Role: chart.RoleColor}},
		{`counts "Unit Price" 3`, session.SelectColumn{Column: "Unit Price", K: 3}},
		{`bind x "Unnamed: 1"`, session.BindAxis{Role: chart.RoleX, Columns: []string{"Unnamed: 1"}}},
		{`group 'Sales Rep',region "Unit Price" mean`, session.SetAggregation{By: []string{"Sales Rep", "region"}, Target: "Unit Price", Op: aggregate.Mean}},
		{`missing fill "not given"`, session.SetMissingPolicy{Policy: clean.Fill, FillValue: "not given"}},
	}
	for _, tt := range tests {
		c, err := parseCommand(tt.line)
		if err != nil {
			t.Fatalf("%q: unexpected error: %v", tt.line, err)
		}
		if !reflect.DeepEqual(c.event, tt.want) {
			t.Fatalf("%q: got %#v, want %#v", tt.line, c.event, tt.want)
		}
	}
}

func TestParseCommandShellCommands(t *testing.T) {
	for line, want := range map[string]string{
		"":              "",
		"   # comment":  "",
		"load data.csv": "load",
		"upload x.xlsx": "load",
		"show counts":   "show",
		"render":        "render",
		"?":             "help",
		"exit":          "quit",
	} {
		c, err := parseCommand(line)
		if err != nil {
			t.Fatalf("%q: unexpected error: %v", line, err)
		}
		if c.name != want || c.event != nil {
			t.Fatalf("%q: got name %q event %v, want %q", line, c.name, c.event, want)
		}
	}
}

func TestParseCommandRejects(t *testing.T) {
	for _, line := range []string{
		"load",
		"dedup maybe",
		"missing",
		"rows 1",
		"rows a b",
		"counts region zero",
		"counts a 1 2",
		"group region",
		"kind",
		"bind z a",
		`counts "Unit Price`,
		"frobnicate",
	} {
		_, err := parseCommand(line)
		if err == nil {
			t.Fatalf("%q: expected error", line)
		}
		if !errors.Is(err, dataset.ErrUsage) {
			t.Fatalf("%q: expected usage error, got %v", line, err)
		}
	}
}

func TestShellKeepsSessionOnError(t *testing.T) {
	var out, errOut bytes.Buffer
	sh := &shell{s: session.New(loader.Options{}), out: &out, err: &errOut}
	before := sh.s
	script := "kind area\ngroup region amount mode\nshow summary\nquit\n"
	if err := sh.run(strings.NewReader(script)); err != nil {
		t.Fatalf("run: %v", err)
	}
	if !reflect.DeepEqual(before, sh.s) {
		t.Fatalf("session changed after failed events")
	}
	if got := strings.Count(errOut.String(), "✗ Error:"); got != 3 {
		t.Fatalf("expected 3 errors, got %d:\n%s", got, errOut.String())
	}
	if !strings.Contains(errOut.String(), session.ErrNoData.Error()) {
		t.Fatalf("expected no-data error:\n%s", errOut.String())
	}
}
