package aggregate

import (
	"encoding/json"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gopkg.in/yaml.v3"

	"github.com/KaramelBytes/datalens-cli/internal/dataset"
)

func texts(ss ...string) []dataset.Cell {
	out := make([]dataset.Cell, len(ss))
	for i, s := range ss {
		if s == "" {
			out[i] = dataset.NullCell()
			continue
		}
		out[i] = dataset.TextCell(s)
	}
	return out
}

func nums(fs ...float64) []dataset.Cell {
	out := make([]dataset.Cell, len(fs))
	for i, f := range fs {
		out[i] = dataset.NumberCell(f)
	}
	return out
}

func TestValueCountsTopK(t *testing.T) {
	tab := dataset.MustNew(dataset.Column{Name: "C", Cells: texts("a", "a", "b", "c", "c", "c")})
	res, err := ValueCounts(tab, "C", 2)
	require.NoError(t, err)

	want := dataset.MustNew(
		dataset.Column{Name: "C", Cells: texts("c", "a")},
		dataset.Column{Name: "count", Cells: nums(3, 2)},
	)
	assert.True(t, res.Table().Equal(want), "got\n%s", res.Table().Markdown())
	assert.Equal(t, 6, res.Counted)
	assert.Equal(t, 3, res.Distinct)
}

func TestValueCountsTiesAndTruncation(t *testing.T) {
	tab := dataset.MustNew(dataset.Column{Name: "v", Cells: texts("y", "x", "", "x", "y", "z", "")})
	res, err := ValueCounts(tab, "v", 10)
	require.NoError(t, err)
	var labels []string
	sum := 0
	for _, e := range res.Entries {
		labels = append(labels, e.Label)
		sum += e.Count
	}
	assert.Equal(t, []string{"y", "x", "z"}, labels, "ties keep first-appearance order")
	assert.Equal(t, res.Counted, sum, "no truncation when k covers every value")
	assert.Equal(t, 5, sum, "missing cells are not counted")

	top, err := ValueCounts(tab, "v", 1)
	require.NoError(t, err)
	assert.LessOrEqual(t, top.Entries[0].Count, tab.NumRows())
	assert.Len(t, top.Entries, 1)
}

func TestValueCountsEncodeTypedValues(t *testing.T) {
	day := time.Date(2024, 3, 1, 0, 0, 0, 0, time.UTC)
	tab := dataset.MustNew(
		dataset.Column{Name: "year", Cells: nums(2023, 2023, 2024)},
		dataset.Column{Name: "day", Cells: []dataset.Cell{dataset.TimeCell(day), dataset.TimeCell(day), dataset.NullCell()}},
	)
	years, err := ValueCounts(tab, "year", 5)
	require.NoError(t, err)

	b, err := json.Marshal(years)
	require.NoError(t, err)
	var doc struct {
		Entries []map[string]any `json:"entries"`
	}
	require.NoError(t, json.Unmarshal(b, &doc))
	require.Len(t, doc.Entries, 2)
	assert.Equal(t, float64(2023), doc.Entries[0]["value"], "numbers stay numbers: %s", b)
	assert.Equal(t, "2023", doc.Entries[0]["label"])
	assert.Equal(t, float64(2), doc.Entries[0]["count"])

	y, err := yaml.Marshal(years)
	require.NoError(t, err)
	assert.Contains(t, string(y), "value: 2023\n")
	assert.NotContains(t, string(y), `value: "2023"`)

	days, err := ValueCounts(tab, "day", 5)
	require.NoError(t, err)
	b, err = json.Marshal(days.Entries[0])
	require.NoError(t, err)
	assert.JSONEq(t, `{"value":"2024-03-01T00:00:00Z","label":"`+days.Entries[0].Label+`","count":2}`, string(b))
}

func TestValueCountsErrors(t *testing.T) {
	tab := dataset.MustNew(dataset.Column{Name: "count", Cells: nums(1, 1)})
	_, err := ValueCounts(tab, "count", 0)
	assert.ErrorIs(t, err, dataset.ErrUsage)
	_, err = ValueCounts(tab, "missing", 3)
	assert.ErrorIs(t, err, dataset.ErrUsage)

	res, err := ValueCounts(tab, "count", 3)
	require.NoError(t, err)
	assert.Equal(t, []string{"count", "count.1"}, res.Table().Names())
}

func TestGroupBySum(t *testing.T) {
	tab := dataset.MustNew(
		dataset.Column{Name: "A", Cells: texts("x", "x", "y")},
		dataset.Column{Name: "V", Cells: nums(1, 2, 3)},
	)
	res, err := GroupBy(tab, GroupSpec{By: []string{"A"}, Target: "V", Op: Sum})
	require.NoError(t, err)
	want := dataset.MustNew(
		dataset.Column{Name: "A", Cells: texts("x", "y")},
		dataset.Column{Name: ResultColumn, Cells: nums(3, 3)},
	)
	assert.True(t, res.Table.Equal(want), "got\n%s", res.Table.Markdown())
	assert.Equal(t, []int{2, 1}, res.Sizes)
}

func sales() *dataset.Table {
	return dataset.MustNew(
		dataset.Column{Name: "region", Cells: texts("south", "north", "south", "", "north", "north")},
		dataset.Column{Name: "year", Cells: nums(2024, 2023, 2023, 2024, 2023, 2024)},
		dataset.Column{Name: "amount", Cells: []dataset.Cell{
			dataset.NumberCell(10), dataset.NumberCell(4), dataset.NullCell(),
			dataset.NumberCell(7), dataset.NumberCell(6), dataset.NumberCell(1),
		}},
		dataset.Column{Name: "rep", Cells: texts("ann", "bob", "cid", "dan", "", "eve")},
	)
}

// withGap places a missing value third, where the group (south, 2023) has
// no amounts.
func withGap(a, b, d, e float64) []dataset.Cell {
	return []dataset.Cell{
		dataset.NumberCell(a), dataset.NumberCell(b), dataset.NullCell(),
		dataset.NumberCell(d), dataset.NumberCell(e),
	}
}

func TestGroupByOps(t *testing.T) {
	tests := []struct {
		op   Op
		want []dataset.Cell
	}{
		{Sum, nums(10, 1, 0, 10, 7)},
		{Max, withGap(6, 1, 10, 7)},
		{Min, withGap(4, 1, 10, 7)},
		{Mean, withGap(5, 1, 10, 7)},
		{Median, withGap(5, 1, 10, 7)},
		{Count, nums(2, 1, 0, 1, 1)},
	}
	for _, tt := range tests {
		t.Run(string(tt.op), func(t *testing.T) {
			res, err := GroupBy(sales(), GroupSpec{By: []string{"region", "year"}, Target: "amount", Op: tt.op})
			require.NoError(t, err)
			region, _ := res.Table.Column("region")
			assert.Equal(t, texts("north", "north", "south", "south", ""), region.Cells, "sorted with missing last")
			year, _ := res.Table.Column("year")
			assert.Equal(t, nums(2023, 2024, 2023, 2024, 2024), year.Cells)
			got, _ := res.Table.Column(ResultColumn)
			assert.Equal(t, tt.want, got.Cells)
		})
	}
}

func TestGroupByOrderAndCompleteness(t *testing.T) {
	res, err := GroupBy(sales(), GroupSpec{By: []string{"year", "region"}, Target: "amount", Op: Count})
	require.NoError(t, err)
	assert.Equal(t, []string{"year", "region", ResultColumn}, res.Table.Names())
	region, _ := res.Table.Column("region")
	assert.Equal(t, texts("north", "south", "north", "south", ""), region.Cells)
	assert.Equal(t, sales().NumRows(), res.SizeTotal())
	assert.LessOrEqual(t, res.Table.NumRows(), sales().NumRows())
}

func TestGroupByCountOnText(t *testing.T) {
	res, err := GroupBy(sales(), GroupSpec{By: []string{"region"}, Target: "rep", Op: Count})
	require.NoError(t, err)
	got, _ := res.Table.Column(ResultColumn)
	assert.Equal(t, nums(2, 2, 1), got.Cells)
}

func TestGroupByErrors(t *testing.T) {
	tests := []struct {
		name  string
		spec  GroupSpec
		check func(t *testing.T, err error)
	}{
		{"no group columns", GroupSpec{Target: "amount", Op: Sum}, func(t *testing.T, err error) {
			assert.ErrorIs(t, err, ErrNoGroupColumns)
		}},
		{"duplicate group column", GroupSpec{By: []string{"region", "region"}, Target: "amount", Op: Sum}, func(t *testing.T, err error) {
			assert.ErrorIs(t, err, dataset.ErrUsage)
		}},
		{"absent group column", GroupSpec{By: []string{"zone"}, Target: "amount", Op: Sum}, func(t *testing.T, err error) {
			ce, ok := dataset.IsColumnError(err)
			require.True(t, ok)
			assert.Equal(t, "zone", ce.Name)
		}},
		{"absent target", GroupSpec{By: []string{"region"}, Target: "total", Op: Sum}, func(t *testing.T, err error) {
			assert.ErrorIs(t, err, dataset.ErrUsage)
		}},
		{"unknown op", GroupSpec{By: []string{"region"}, Target: "amount", Op: "mode"}, func(t *testing.T, err error) {
			assert.ErrorIs(t, err, dataset.ErrUsage)
		}},
		{"sum of text", GroupSpec{By: []string{"region"}, Target: "rep", Op: Sum}, func(t *testing.T, err error) {
			var ae *AggregationError
			require.True(t, errors.As(err, &ae))
			assert.Equal(t, "rep", ae.Column)
			assert.Equal(t, Sum, ae.Op)
		}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			res, err := GroupBy(sales(), tt.spec)
			require.Error(t, err)
			assert.Nil(t, res)
			tt.check(t, err)
		})
	}

	withReserved := dataset.MustNew(
		dataset.Column{Name: ResultColumn, Cells: texts("a")},
		dataset.Column{Name: "v", Cells: nums(1)},
	)
	_, err := GroupBy(withReserved, GroupSpec{By: []string{ResultColumn}, Target: "v", Op: Sum})
	assert.ErrorIs(t, err, dataset.ErrUsage)
}

func TestParseOp(t *testing.T) {
	op, err := ParseOp(" Median ")
	require.NoError(t, err)
	assert.Equal(t, Median, op)
	_, err = ParseOp("avg")
	assert.ErrorIs(t, err, dataset.ErrUsage)
}
