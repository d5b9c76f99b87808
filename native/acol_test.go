package native_test

import (
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/o2graph-lang/o2graph/native"
)

func newAcol(t *testing.T) *native.Acol {
	t.Helper()
	lib, core := newLib(t)
	core.Stdout = discard{}
	a, err := native.NewAcol(lib)
	require.NoError(t, err)
	t.Cleanup(func() { a.Close() })
	return a
}

type discard struct{}

func (discard) Write(p []byte) (int, error) { return len(p), nil }

func TestAcolCreateAndFunction(t *testing.T) {
	a := newAcol(t)
	assert.Equal(t, native.TypeNone, a.Type())
	assert.Zero(t, a.Object())

	require.NoError(t, a.Parse([]string{"-create", "table", "col1", "[3,1,4,1,5]"}))
	assert.Equal(t, native.TypeTable, a.Type())
	require.NoError(t, a.Parse([]string{"-function", "2*col1", "col2"}))

	col, err := a.Column("col2")
	require.NoError(t, err)
	assert.Equal(t, 10.0, col[4])

	tab, err := a.Table()
	require.NoError(t, err)
	assert.False(t, tab.Owner())
	assert.Equal(t, 5, tab.NLines())

	_, err = a.Tensor()
	assert.Error(t, err)
}

func TestAcolUnknownCommandIsNativeError(t *testing.T) {
	a := newAcol(t)
	err := a.Parse([]string{"-frobnicate"})
	var ne *native.NativeError
	require.ErrorAs(t, err, &ne)
	assert.NotZero(t, ne.Code)
	assert.Contains(t, ne.Error(), "frobnicate")
}

func TestAcolAliases(t *testing.T) {
	a := newAcol(t)
	require.NoError(t, a.Parse([]string{"-alias", "mk", "-create table x grid:0,1,0.5"}))
	got := a.ApplyAliases([]string{"-mk", "-type"})
	assert.Equal(t, []string{"-create", "table", "x", "grid:0,1,0.5", "-type"}, got)
	assert.Equal(t, []string{"mk"}, a.ApplyAliases([]string{"mk"}))
}

func TestAcolSliceAndContours(t *testing.T) {
	a := newAcol(t)
	require.NoError(t, a.Parse([]string{"-create", "table3d", "x", "grid:0,2,1", "y", "grid:0,1,1", "z", "x+y"}))
	x, y, data, err := a.Slice("z")
	require.NoError(t, err)
	assert.Equal(t, []float64{0, 1, 2}, x)
	assert.Equal(t, []float64{0, 1}, y)
	assert.Equal(t, []float64{0, 1, 1, 2, 2, 3}, data)

	require.NoError(t, a.Parse([]string{"-contours", "1.5", "z"}))
	assert.Equal(t, native.TypeContourLines, a.Type())
	lines := a.Contours()
	require.NotEmpty(t, lines)
	for _, l := range lines {
		assert.Equal(t, 1.5, l.Level)
		assert.Len(t, l.X, 2)
	}
}

func TestAcolHistograms(t *testing.T) {
	a := newAcol(t)
	require.NoError(t, a.Parse([]string{"-create", "table", "x", "[0,1,1,2,3,3,3,4]"}))
	require.NoError(t, a.Parse([]string{"-function", "x*x", "y"}))
	require.NoError(t, a.Parse([]string{"-to-hist-2d", "x", "y", "2", "2"}))
	assert.Equal(t, native.TypeHist2D, a.Type())
	hx, hy, w, err := a.Hist2D()
	require.NoError(t, err)
	assert.Len(t, hx, 2)
	assert.Len(t, hy, 2)
	sum := 0.0
	for _, v := range w {
		sum += v
	}
	assert.Equal(t, 8.0, sum)

	require.NoError(t, a.Parse([]string{"-create", "table", "x", "[0,1,1,2,3,3,3,4]"}))
	require.NoError(t, a.Parse([]string{"-to-hist", "x", "4"}))
	reps, err := a.HistReps()
	require.NoError(t, err)
	wgts, err := a.HistWeights()
	require.NoError(t, err)
	assert.Equal(t, []float64{0.5, 1.5, 2.5, 3.5}, reps)
	assert.Equal(t, []float64{1, 2, 1, 4}, wgts)
}

func TestAcolReadAndInternal(t *testing.T) {
	a := newAcol(t)
	file := filepath.Join(t.TempDir(), "t.o2")
	require.NoError(t, a.Parse([]string{"-create", "tensor", "3", "2", "3", "4"}))
	require.NoError(t, a.Parse([]string{"-function", "i0+i1+i2"}))
	require.NoError(t, a.Parse([]string{"-internal", file, "ten"}))
	require.NoError(t, a.Parse([]string{"-clear"}))
	assert.Equal(t, native.TypeNone, a.Type())

	require.NoError(t, a.Parse([]string{"-read", file}))
	require.Equal(t, native.TypeTensor, a.Type())
	ten, err := a.Tensor()
	require.NoError(t, err)
	assert.Equal(t, 6.0, ten.Get(1, 2, 3))
	assert.Equal(t, 3, ten.Rank())
}

func TestAcolDoubleArray(t *testing.T) {
	a := newAcol(t)
	require.NoError(t, a.Parse([]string{"-create", "double[]", "func:4:i*i"}))
	assert.Equal(t, native.TypeDoubleArr, a.Type())
	v, err := a.DoubleArray()
	require.NoError(t, err)
	assert.Equal(t, []float64{0, 1, 4, 9}, v)
	_, err = a.Column("x")
	assert.Error(t, err)
}
