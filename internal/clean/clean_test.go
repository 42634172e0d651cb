package clean

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/KaramelBytes/datalens-cli/internal/dataset"
)

func num(f float64) dataset.Cell { return dataset.NumberCell(f) }
func txt(s string) dataset.Cell { return dataset.TextCell(s) }
func null() dataset.Cell { return dataset.NullCell() }

func sample() *dataset.Table {
	return dataset.MustNew(
		dataset.Column{Name: "k", Cells: []dataset.Cell{txt("a"), txt("a"), txt("b"), null(), null(), txt("c")}},
		dataset.Column{Name: "v", Cells: []dataset.Cell{num(1), num(1), num(2), null(), null(), num(3)}},
	)
}

func TestDeduplicateKeepsFirstOccurrence(t *testing.T) {
	tab := dataset.MustNew(dataset.Column{Name: "x", Cells: []dataset.Cell{num(1), num(1), num(2)}})
	out, rep := Deduplicate(tab)
	assert.Equal(t, 2, out.NumRows())
	assert.Equal(t, 1, rep.Removed)
	x, _ := out.Column("x")
	assert.Equal(t, []dataset.Cell{num(1), num(2)}, x.Cells)
}

func TestDeduplicateIsIdempotent(t *testing.T) {
	once, rep := Deduplicate(sample())
	assert.Equal(t, 2, rep.Removed, "missing cells compare equal")
	twice, rep2 := Deduplicate(once)
	assert.True(t, once.Equal(twice))
	assert.Zero(t, rep2.Removed)
	assert.Equal(t, 6, sample().NumRows(), "input is not modified")
}

func TestDropMissing(t *testing.T) {
	once, rep := DropMissing(sample())
	assert.Equal(t, 4, once.NumRows())
	assert.Equal(t, 2, rep.Removed)
	for j := 0; j < once.NumCols(); j++ {
		assert.Zero(t, once.ColumnAt(j).NullCount())
	}
	twice, rep2 := DropMissing(once)
	assert.True(t, once.Equal(twice))
	assert.Zero(t, rep2.Removed)
}

func TestFillMissingStoresText(t *testing.T) {
	tab := dataset.MustNew(
		dataset.Column{Name: "X", Cells: []dataset.Cell{num(1), num(2)}},
		dataset.Column{Name: "Y", Cells: []dataset.Cell{num(5), null()}},
	)
	out, rep, err := FillMissing(tab, "0")
	require.NoError(t, err)
	assert.Equal(t, 1, rep.Filled)
	y, _ := out.Column("Y")
	assert.Equal(t, txt("0"), y.Cells[1])
	assert.NotEqual(t, num(0), y.Cells[1])
	assert.Equal(t, dataset.TypeObject, y.Type())

	x, _ := out.Column("X")
	assert.Equal(t, dataset.TypeInt, x.Type(), "columns without gaps keep their type")
}

func TestFillMissingTotality(t *testing.T) {
	out, rep, err := FillMissing(sample(), "n/a")
	require.NoError(t, err)
	assert.Equal(t, 4, rep.Filled)
	for j := 0; j < out.NumCols(); j++ {
		assert.Zero(t, out.ColumnAt(j).NullCount())
	}
	again, rep2, err := FillMissing(out, "n/a")
	require.NoError(t, err)
	assert.True(t, out.Equal(again))
	assert.Zero(t, rep2.Filled)
}

func TestFillMissingSelectedColumns(t *testing.T) {
	out, rep, err := FillMissing(sample(), "z", "k")
	require.NoError(t, err)
	assert.Equal(t, 2, rep.Filled)
	v, _ := out.Column("v")
	assert.Equal(t, 2, v.NullCount())

	_, _, err = FillMissing(sample(), "z", "nope")
	assert.True(t, errors.Is(err, dataset.ErrUsage))
}

func TestApply(t *testing.T) {
	tests := []struct {
		name     string
		opt      Options
		wantRows int
		steps    []string
	}{
		{"keep", Options{}, 6, nil},
		{"dedup only", Options{Dedup: true, Missing: Keep}, 4, []string{"dedup"}},
		{"dedup then drop", Options{Dedup: true, Missing: Drop}, 3, []string{"dedup", "drop"}},
		{"fill", Options{Missing: Fill, FillValue: "0"}, 6, []string{"fill"}},
		{"fill pending", Options{Missing: Fill}, 6, []string{"fill"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			out, reports, err := Apply(sample(), tt.opt)
			require.NoError(t, err)
			assert.Equal(t, tt.wantRows, out.NumRows())
			assert.LessOrEqual(t, out.NumRows(), sample().NumRows())
			var steps []string
			for _, r := range reports {
				steps = append(steps, r.Step)
			}
			assert.Equal(t, tt.steps, steps)
		})
	}

	_, reports, err := Apply(sample(), Options{Missing: Fill})
	require.NoError(t, err)
	assert.True(t, reports[0].Pending)

	_, _, err = Apply(sample(), Options{Missing: "bogus"})
	assert.True(t, errors.Is(err, dataset.ErrUsage))
}

func TestParsePolicy(t *testing.T) {
	p, err := ParsePolicy("Drop")
	require.NoError(t, err)
	assert.Equal(t, Drop, p)
	p, err = ParsePolicy("")
	require.NoError(t, err)
	assert.Equal(t, Keep, p)
	_, err = ParsePolicy("impute")
	assert.ErrorIs(t, err, dataset.ErrUsage)
}
