package session

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/KaramelBytes/datalens-cli/internal/aggregate"
	"github.com/KaramelBytes/datalens-cli/internal/chart"
	"github.com/KaramelBytes/datalens-cli/internal/clean"
	"github.com/KaramelBytes/datalens-cli/internal/dataset"
	"github.com/KaramelBytes/datalens-cli/internal/loader"
)

const salesCSV = `region,year,amount
north,2023,4
north,2023,4
south,2023,10
north,2024,
west,2024,2
`

func uploaded(t *testing.T) Session {
	t.Helper()
	s, err := New(loader.Options{}).Dispatch(Upload{Name: "sales.csv", Data: []byte(salesCSV)})
	require.NoError(t, err)
	return s
}

func dispatchAll(t *testing.T, s Session, events ...Event) Session {
	t.Helper()
	for _, ev := range events {
		var err error
		s, err = s.Dispatch(ev)
		require.NoError(t, err, "%T", ev)
	}
	return s
}

func TestNewSession(t *testing.T) {
	a := New(loader.Options{})
	b := New(loader.Options{})
	assert.NotEmpty(t, a.ID)
	assert.NotEqual(t, a.ID, b.ID)
	assert.False(t, a.HasData())
	assert.Equal(t, DefaultOptions(), a.Options)

	v := Render(a)
	assert.ErrorIs(t, v.LoadErr, ErrNoData)
	assert.Nil(t, v.Table)
}

func TestDispatchReturnsNewOptions(t *testing.T) {
	s := uploaded(t)
	next, err := s.Dispatch(SetAggregation{By: []string{"region"}, Target: "amount", Op: aggregate.Mean})
	require.NoError(t, err)
	assert.Empty(t, s.Options.GroupBy, "the original session is not modified")
	assert.Equal(t, []string{"region"}, next.Options.GroupBy)

	by := next.Options.GroupBy
	later, err := next.Dispatch(BindAxis{Role: chart.RolePath, Columns: []string{"region", "year"}})
	require.NoError(t, err)
	later.Options.GroupBy[0] = "changed"
	assert.Equal(t, "region", by[0], "sessions do not share slices")
}

func TestDispatchTransitions(t *testing.T) {
	tests := []struct {
		name  string
		ev    Event
		check func(t *testing.T, o Options)
	}{
		{"toggle dedup", ToggleDedup{On: true}, func(t *testing.T, o Options) { assert.True(t, o.Dedup) }},
		{"drop policy", SetMissingPolicy{Policy: clean.Drop, FillValue: "x"}, func(t *testing.T, o Options) {
			assert.Equal(t, clean.Drop, o.Missing)
			assert.Empty(t, o.FillValue)
		}},
		{"fill policy", SetMissingPolicy{Policy: clean.Fill, FillValue: "0"}, func(t *testing.T, o Options) {
			assert.Equal(t, clean.Fill, o.Missing)
			assert.Equal(t, "0", o.FillValue)
		}},
		{"rows", SetRows{Head: 2, Tail: 0}, func(t *testing.T, o Options) {
			assert.Equal(t, 2, o.HeadRows)
			assert.Zero(t, o.TailRows)
		}},
		{"select column", SelectColumn{Column: "region", K: 2}, func(t *testing.T, o Options) {
			assert.Equal(t, "region", o.CountColumn)
			assert.Equal(t, 2, o.TopK)
		}},
		{"trigger", TriggerCount{}, func(t *testing.T, o Options) { assert.True(t, o.CountCharts) }},
		{"chart kind", SelectChartKind{Kind: chart.Pie}, func(t *testing.T, o Options) { assert.Equal(t, chart.Pie, o.ChartKind) }},
		{"bind axis", BindAxis{Role: chart.RoleColor, Columns: []string{"year"}}, func(t *testing.T, o Options) {
			assert.Equal(t, "year", o.Bindings.Color)
		}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s, err := uploaded(t).Dispatch(tt.ev)
			require.NoError(t, err)
			tt.check(t, s.Options)
		})
	}
}

func TestDispatchRejectsBadInput(t *testing.T) {
	s := uploaded(t)
	for _, ev := range []Event{
		Upload{Name: "sales.pdf", Data: []byte("x")},
		SetMissingPolicy{Policy: "impute"},
		SetRows{Head: -1},
		SelectColumn{Column: "region", K: -2},
		SetAggregation{By: []string{"region"}, Op: "mode"},
		SelectChartKind{Kind: "area"},
		BindAxis{Role: "z", Columns: []string{"a"}},
		nil,
	} {
		next, err := s.Dispatch(ev)
		require.Error(t, err, "%T", ev)
		assert.True(t, errors.Is(err, dataset.ErrUsage), "%T: %v", ev, err)
		assert.Equal(t, s, next, "%T leaves the session unchanged", ev)
	}
}

func TestRenderDefaults(t *testing.T) {
	v := Render(uploaded(t))
	require.NoError(t, v.Err())
	assert.Equal(t, "sales.csv", v.Source)
	assert.Equal(t, 5, v.Table.NumRows())
	require.NotNil(t, v.Summary)
	assert.Equal(t, 5, v.Summary.Head.NumRows())

	require.NotNil(t, v.Counts, "value counts default to the first column")
	assert.Equal(t, "region", v.Counts.Column)
	assert.Empty(t, v.CountCharts, "charts wait for the trigger")
	assert.Nil(t, v.Groups, "no grouping without a grouping column")
	assert.Nil(t, v.Chart)
}

func TestRenderFullPipeline(t *testing.T) {
	s := dispatchAll(t, uploaded(t),
		ToggleDedup{On: true},
		SetMissingPolicy{Policy: clean.Drop},
		SelectColumn{Column: "region", K: 1},
		SetAggregation{By: []string{"region"}, Target: "amount", Op: aggregate.Sum},
		SelectChartKind{Kind: chart.Bar},
		TriggerCount{},
	)
	v := Render(s)
	require.NoError(t, v.Err())
	assert.Equal(t, 3, v.Table.NumRows())
	require.Len(t, v.Cleaning, 2)
	assert.Equal(t, 1, v.Cleaning[0].Removed)
	assert.Equal(t, 1, v.Cleaning[1].Removed)

	require.Len(t, v.Counts.Entries, 1)
	assert.Equal(t, "north", v.Counts.Entries[0].Label)
	assert.Len(t, v.CountCharts, 3)

	region, _ := v.Groups.Table.Column("region")
	assert.Equal(t, []dataset.Cell{dataset.TextCell("north"), dataset.TextCell("south"), dataset.TextCell("west")}, region.Cells)
	require.NotNil(t, v.Chart)
	assert.Equal(t, chart.Bar, v.Chart.Kind)
	assert.Equal(t, "region", v.Chart.Bindings.X)
	assert.Equal(t, aggregate.ResultColumn, v.Chart.Bindings.Y)

	imgs, err := v.Images(chart.DefaultRenderer())
	require.NoError(t, err)
	require.Len(t, imgs, 4)
	assert.Equal(t, "counts-bar", imgs[0].Name)
	assert.Equal(t, "groupby-bar", imgs[3].Name)
}

func TestCountChartsNeedFreshTrigger(t *testing.T) {
	s := dispatchAll(t, uploaded(t), SelectColumn{Column: "region"}, TriggerCount{})
	require.Len(t, Render(s).CountCharts, 3)

	s = dispatchAll(t, s, SelectColumn{Column: "amount"})
	v := Render(s)
	require.NoError(t, v.CountErr)
	assert.Equal(t, "amount", v.Counts.Column)
	assert.Empty(t, v.CountCharts, "a new selection does not redraw without a trigger")

	again := Render(dispatchAll(t, s, TriggerCount{}))
	assert.Len(t, again.CountCharts, 3)

	failed, err := dispatchAll(t, s, TriggerCount{}).Dispatch(SelectChartKind{Kind: "area"})
	require.Error(t, err)
	assert.True(t, failed.Options.CountCharts, "a rejected event leaves the trigger in place")
}

func TestRenderChartKindSwitchKeepsAggregation(t *testing.T) {
	s := dispatchAll(t, uploaded(t), SetAggregation{By: []string{"region", "year"}, Target: "amount", Op: aggregate.Count})
	line := Render(s)
	require.NoError(t, line.Err())
	sun := Render(dispatchAll(t, s, SelectChartKind{Kind: chart.Sunburst}))
	require.NoError(t, sun.Err())
	assert.True(t, line.Groups.Table.Equal(sun.Groups.Table))
	assert.Equal(t, []string{"region", "year"}, sun.Chart.Bindings.Path)
}

func TestRenderSectionErrorsAreIndependent(t *testing.T) {
	s := dispatchAll(t, uploaded(t),
		SelectColumn{Column: "gone"},
		SetAggregation{By: []string{"region"}, Target: "region", Op: aggregate.Sum},
	)
	v := Render(s)
	assert.NoError(t, v.LoadErr)
	assert.NoError(t, v.SummaryErr)
	assert.NotNil(t, v.Summary)
	_, isCol := dataset.IsColumnError(v.CountErr)
	assert.True(t, isCol)
	var ae *aggregate.AggregationError
	assert.True(t, errors.As(v.GroupErr, &ae))
	assert.Nil(t, v.Chart)

	bad := dispatchAll(t, s, SelectChartKind{Kind: chart.Scatter}, BindAxis{Role: chart.RoleY, Columns: []string{"region"}})
	bad = dispatchAll(t, bad, SetAggregation{By: []string{"region"}, Target: "amount", Op: aggregate.Sum})
	bv := Render(bad)
	assert.NoError(t, bv.GroupErr)
	assert.ErrorIs(t, bv.ChartErr, dataset.ErrUsage)
	assert.NotNil(t, bv.Groups)
}

func TestRenderRebuildsFromSource(t *testing.T) {
	s := uploaded(t)
	filled := dispatchAll(t, s, SetMissingPolicy{Policy: clean.Fill, FillValue: "0"})
	v := Render(filled)
	require.NoError(t, v.Err())
	amount, _ := v.Table.Column("amount")
	assert.Equal(t, dataset.TextCell("0"), amount.Cells[3])

	again := Render(dispatchAll(t, filled, SetMissingPolicy{Policy: clean.Keep}))
	amount, _ = again.Table.Column("amount")
	assert.True(t, amount.Cells[3].IsNull(), "cleaning is reapplied to the original bytes")

	pending := Render(dispatchAll(t, s, SetMissingPolicy{Policy: clean.Fill}))
	require.Len(t, pending.Cleaning, 1)
	assert.True(t, pending.Cleaning[0].Pending)
}

func TestRenderDecodeError(t *testing.T) {
	s, err := New(loader.Options{}).Dispatch(Upload{Name: "bad.csv", Data: []byte("a,b\n1,2,3\n")})
	require.NoError(t, err)
	v := Render(s)
	assert.ErrorIs(t, v.LoadErr, dataset.ErrDecode)
	assert.Nil(t, v.Summary)
}
