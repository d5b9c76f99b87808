package native_test

import (
	"bufio"
	"bytes"
	"errors"
	"math"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/o2graph-lang/o2graph/loader"
	"github.com/o2graph-lang/o2graph/native"
	"github.com/o2graph-lang/o2graph/native/nativetest"
)

func newLib(t *testing.T) (*native.Lib, *nativetest.Core) {
	t.Helper()
	core := nativetest.New()
	t.Cleanup(func() {
		if f := core.Faults(); len(f) > 0 {
			t.Errorf("native misuse: %v", f)
		}
	})
	return native.NewLib(core, nil), core
}

func TestOwnedHandleFreedExactlyOnce(t *testing.T) {
	lib, core := newLib(t)
	const class = "std_vector_double_"

	v, err := native.NewVector[float64](lib)
	require.NoError(t, err)
	assert.True(t, v.Owner())

	b := v.Borrow()
	assert.False(t, b.Owner())
	require.NoError(t, b.Close())
	assert.Equal(t, 0, core.Freed(class), "closing a borrowed handle must not free")

	require.NoError(t, v.Close())
	require.NoError(t, v.Close())
	assert.Equal(t, 1, core.Created(class))
	assert.Equal(t, 1, core.Freed(class))
	assert.True(t, b.Closed(), "borrowed copy shares the freed state")
}

func TestUseAfterClosePanics(t *testing.T) {
	lib, _ := newLib(t)
	v, err := native.NewVectorFrom(lib, []float64{1, 2})
	require.NoError(t, err)
	v.Close()
	defer func() {
		r := recover()
		err, ok := r.(error)
		if !ok || !errors.Is(err, native.ErrClosed) {
			t.Fatalf("recover() = %v, want ErrClosed", r)
		}
	}()
	v.Len()
}

func TestBorrowedChildDiesWithOwner(t *testing.T) {
	lib, _ := newLib(t)
	t3, err := native.NewTable3D(lib)
	require.NoError(t, err)
	t3.SetXY("x", []float64{0, 1}, "y", []float64{0, 1})
	t3.NewSlice("z")

	m, err := t3.Slice("z")
	require.NoError(t, err)
	assert.False(t, m.Closed())

	require.NoError(t, t3.Close())
	assert.True(t, m.Closed(), "a slice view must not outlive its table3d")
	defer func() {
		r := recover()
		err, ok := r.(error)
		if !ok || !errors.Is(err, native.ErrClosed) {
			t.Fatalf("recover() = %v, want ErrClosed", r)
		}
	}()
	m.Ptr()
}

func TestDeepCopyIsDisjoint(t *testing.T) {
	lib, core := newLib(t)
	v, err := native.NewVectorFrom(lib, []int32{1, 2, 3})
	require.NoError(t, err)
	defer v.Close()

	w, err := v.Clone()
	require.NoError(t, err)
	defer w.Close()
	assert.True(t, w.Owner())

	w.Set(0, 42)
	assert.Equal(t, int32(1), v.At(0))
	assert.Equal(t, int32(42), w.At(0))
	assert.Equal(t, 2, core.Live("std_vector_int_"))
}

func TestShallowCopyAliases(t *testing.T) {
	lib, _ := newLib(t)
	tab, err := native.NewTable(lib)
	require.NoError(t, err)
	defer tab.Close()
	tab.LineOfNames("a b")
	require.NoError(t, tab.LineOfData([]float64{1, 2}))

	alias := tab.Borrow()
	alias.Set("b", 0, 7)
	assert.Equal(t, 7.0, tab.Get("b", 0))
}

func TestStringBytesRoundTrip(t *testing.T) {
	lib, core := newLib(t)
	for _, b := range [][]byte{
		{},
		[]byte("plain"),
		[]byte("with\x00nul"),
		{0xff, 0xfe, 0x80},
		[]byte("ħc = 197.327 MeV fm"),
	} {
		s, err := native.NewStringFrom(lib, b)
		require.NoError(t, err)
		assert.Equal(t, b, s.Bytes())
		assert.Equal(t, len(b), s.Len())
		s.Close()
	}
	assert.Equal(t, 0, core.Live("std_string"))
}

func TestVectorViewMatchesGetters(t *testing.T) {
	lib, _ := newLib(t)
	v, err := native.NewVectorFrom(lib, []float64{3, 1, 4, 1, 5, 9})
	require.NoError(t, err)
	defer v.Close()

	view := v.View()
	require.Len(t, view, v.Len())
	for i := range view {
		assert.Equal(t, v.At(i), view[i])
	}
	view[2] = -4
	assert.Equal(t, -4.0, v.At(2), "view shares storage")
	v.Set(3, 10)
	assert.Equal(t, 10.0, view[3])
}

func TestVectorIndexOutOfRangePanics(t *testing.T) {
	lib, _ := newLib(t)
	v, err := native.NewVectorFrom(lib, []uint64{1})
	require.NoError(t, err)
	defer v.Close()
	assert.Panics(t, func() { v.At(1) })
}

func TestMatrixDenseSharesStorage(t *testing.T) {
	lib, _ := newLib(t)
	m, err := native.NewMatrix(lib, 2, 3)
	require.NoError(t, err)
	defer m.Close()

	m.Set(1, 2, 5)
	d := m.Dense()
	r, c := d.Dims()
	assert.Equal(t, [2]int{2, 3}, [2]int{r, c})
	assert.Equal(t, 5.0, d.At(1, 2))
	d.Set(0, 1, 8)
	assert.Equal(t, 8.0, m.At(0, 1))
}

func TestVecVecAndVecString(t *testing.T) {
	lib, core := newLib(t)
	vv, err := native.NewVecVecDouble(lib)
	require.NoError(t, err)
	vv.Resize(2)
	inner, err := native.NewVectorFrom(lib, []float64{1, 2})
	require.NoError(t, err)
	vv.Set(1, inner)
	inner.Close()
	got, err := vv.At(1)
	require.NoError(t, err)
	assert.Equal(t, []float64{1, 2}, got.Values())
	vv.Close()

	vs, err := native.NewVecStringFrom(lib, []string{"x", "yy"})
	require.NoError(t, err)
	ss, err := vs.Strings()
	require.NoError(t, err)
	assert.Equal(t, []string{"x", "yy"}, ss)
	vs.Close()

	assert.Equal(t, 0, core.Live("std_vector_std_vector_double_"))
	assert.Equal(t, 0, core.Live("std_string"))
}

func TestTensorTotalSize(t *testing.T) {
	lib, _ := newLib(t)
	for _, sizes := range [][]int{{5}, {2, 3}, {2, 3, 4}, {1, 7, 1, 2}} {
		ten, err := native.NewTensor(lib, sizes...)
		require.NoError(t, err)
		want := 1
		for _, s := range sizes {
			want *= s
		}
		assert.Equal(t, want, ten.TotalSize())
		assert.Equal(t, sizes, ten.Sizes())
		view, err := ten.View()
		require.NoError(t, err)
		assert.Len(t, view, want)
		ten.Close()
	}
}

func TestTensorRearrange(t *testing.T) {
	lib, _ := newLib(t)
	ten, err := native.NewTensor(lib, 2, 3)
	require.NoError(t, err)
	defer ten.Close()
	for i := 0; i < 2; i++ {
		for j := 0; j < 3; j++ {
			ten.Set(float64(10*i+j), i, j)
		}
	}

	summed, err := ten.RearrangeAndCopy("index(1) sum(0)")
	require.NoError(t, err)
	defer summed.Close()
	assert.Equal(t, []int{3}, summed.Sizes())
	assert.Equal(t, 10.0, summed.Get(0))
	assert.Equal(t, 14.0, summed.Get(2))

	fixed, err := ten.RearrangeAndCopy("fixed(0,1) reverse(1)")
	require.NoError(t, err)
	defer fixed.Close()
	assert.Equal(t, 12.0, fixed.Get(0))

	_, err = ten.RearrangeAndCopy("index(0)")
	var ne *native.NativeError
	assert.ErrorAs(t, err, &ne)
}

// Table with col1 = [3,1,4,1,5]; col2 = 2*col1 gives col2[4] == 10.
func TestTableFunctionColumn(t *testing.T) {
	lib, _ := newLib(t)
	tab, err := native.NewTable(lib)
	require.NoError(t, err)
	defer tab.Close()
	tab.LineOfNames("col1")
	for _, v := range []float64{3, 1, 4, 1, 5} {
		require.NoError(t, tab.LineOfData([]float64{v}))
	}
	require.NoError(t, tab.FunctionColumn("2*col1", "col2"))
	assert.Equal(t, 10.0, tab.Get("col2", 4))
	names, err := tab.ColumnNames()
	require.NoError(t, err)
	assert.Equal(t, []string{"col1", "col2"}, names)

	col, err := tab.Column("col2")
	require.NoError(t, err)
	assert.Equal(t, []float64{6, 2, 8, 2, 10}, col.Values())

	err = tab.FunctionColumn("2*nosuch", "col3")
	var ne *native.NativeError
	assert.ErrorAs(t, err, &ne)
}

func TestTableHDFRoundTrip(t *testing.T) {
	lib, _ := newLib(t)
	file := filepath.Join(t.TempDir(), "table.o2")

	tab, err := native.NewTable(lib)
	require.NoError(t, err)
	defer tab.Close()
	tab.LineOfNames("x y z")
	for i := 0; i < 4; i++ {
		require.NoError(t, tab.LineOfData([]float64{float64(i), float64(i * i), -float64(i)}))
	}

	hf, err := native.NewHDFFile(lib)
	require.NoError(t, err)
	require.NoError(t, hf.OpenOrCreate(file))
	require.NoError(t, hf.WriteTable(tab, "t"))
	hf.CloseFile()

	back, err := native.NewTable(lib)
	require.NoError(t, err)
	defer back.Close()
	require.NoError(t, hf.Open(file, false))
	require.NoError(t, hf.ReadTable(back, "t"))
	require.NoError(t, hf.Close())

	require.Equal(t, tab.NColumns(), back.NColumns())
	require.Equal(t, tab.NLines(), back.NLines())
	wantNames, _ := tab.ColumnNames()
	gotNames, _ := back.ColumnNames()
	assert.Equal(t, wantNames, gotNames)
	for _, n := range wantNames {
		for r := 0; r < tab.NLines(); r++ {
			assert.Equal(t, tab.Get(n, r), back.Get(n, r))
		}
	}
}

// A 2x3x4 tensor with value(i,j,k) = i+j+k survives a save and reload.
func TestTensorHDFRoundTrip(t *testing.T) {
	lib, _ := newLib(t)
	file := filepath.Join(t.TempDir(), "tensor.o2")

	ten, err := native.NewTensor(lib, 2, 3, 4)
	require.NoError(t, err)
	defer ten.Close()
	for i := 0; i < 2; i++ {
		for j := 0; j < 3; j++ {
			for k := 0; k < 4; k++ {
				ten.Set(float64(i+j+k), i, j, k)
			}
		}
	}
	hf, err := native.NewHDFFile(lib)
	require.NoError(t, err)
	defer hf.Close()
	require.NoError(t, hf.OpenOrCreate(file))
	require.NoError(t, hf.WriteTensor(ten, "ten"))
	hf.CloseFile()

	back, err := native.NewTensor(lib)
	require.NoError(t, err)
	defer back.Close()
	require.NoError(t, hf.Open(file, false))
	require.NoError(t, hf.ReadTensor(back, "ten"))
	assert.Equal(t, 3, back.Rank())
	assert.Equal(t, 6.0, back.Get(1, 2, 3))

	assert.Error(t, hf.ReadTensor(back, "missing"))
}

func TestTensorGridHDFRoundTrip(t *testing.T) {
	lib, _ := newLib(t)
	file := filepath.Join(t.TempDir(), "grid.o2")

	tg, err := native.NewTensorGrid(lib, 2, 3)
	require.NoError(t, err)
	defer tg.Close()
	require.NoError(t, tg.SetGrid([]float64{0, 1}, []float64{10, 20, 30}))
	tg.Set(4.5, 1, 2)

	hf, err := native.NewHDFFile(lib)
	require.NoError(t, err)
	defer hf.Close()
	require.NoError(t, hf.OpenOrCreate(file))
	require.NoError(t, hf.WriteTensorGrid(tg, "tg"))
	hf.CloseFile()

	back, err := native.NewTensorGrid(lib)
	require.NoError(t, err)
	defer back.Close()
	require.NoError(t, hf.Open(file, false))
	require.NoError(t, hf.ReadTensorGrid(back, "tg"))
	assert.Equal(t, []int{2, 3}, back.Sizes())
	assert.Equal(t, []float64{10, 20, 30}, back.GridOf(1))
	assert.Equal(t, 4.5, back.Get(1, 2))
}

// Linear interpolation of (sin x + sin 2y) exp(-z^2) on a 21^3 grid
// over [0,2]^3 matches the function at an interior point.
func TestTensorGridInterpLinear(t *testing.T) {
	lib, _ := newLib(t)
	const n = 21
	tg, err := native.NewTensorGrid(lib, n, n, n)
	require.NoError(t, err)
	defer tg.Close()
	g := make([]float64, n)
	for i := range g {
		g[i] = float64(i) / 10
	}
	require.NoError(t, tg.SetGrid(g, g, g))
	f := func(x, y, z float64) float64 { return (math.Sin(x) + math.Sin(2*y)) * math.Exp(-z*z) }
	for i := 0; i < n; i++ {
		for j := 0; j < n; j++ {
			for k := 0; k < n; k++ {
				tg.Set(f(g[i], g[j], g[k]), i, j, k)
			}
		}
	}
	got, err := tg.InterpLinear(0.12, 0.56, 1.34)
	require.NoError(t, err)
	assert.InDelta(t, f(0.12, 0.56, 1.34), got, 4e-3)

	_, err = tg.InterpLinear(1, 2)
	assert.Error(t, err)
}

func TestTable3DSetGetVal(t *testing.T) {
	lib, _ := newLib(t)
	t3, err := native.NewTable3D(lib)
	require.NoError(t, err)
	defer t3.Close()
	t3.SetXY("x", []float64{0, 1, 2}, "y", []float64{0, 0.5})
	t3.NewSlice("z")
	t3.SetVal(1, 0.5, "z", 3.25)
	assert.Equal(t, 3.25, t3.GetVal(1, 0.5, "z"))
	assert.Equal(t, 3.25, t3.Get(1, 1, "z"))

	m, err := t3.Slice("z")
	require.NoError(t, err)
	r, c := m.Dims()
	assert.Equal(t, [2]int{3, 2}, [2]int{r, c})
	assert.Equal(t, 3.25, m.Dense().At(1, 1))

	require.NoError(t, t3.FunctionSlice("x+10*y", "w"))
	assert.Equal(t, 7.0, t3.Get(2, 1, "w"))
	names, err := t3.SliceNames()
	require.NoError(t, err)
	assert.Equal(t, []string{"z", "w"}, names)
}

func TestHist(t *testing.T) {
	lib, _ := newLib(t)
	_, err := native.NewHist(lib, []float64{0, 0})
	assert.Error(t, err)

	h, err := native.NewHist(lib, []float64{0, 1, 2, 4})
	require.NoError(t, err)
	defer h.Close()
	h.Update(0.5, 1)
	h.Update(3, 2)
	h.Update(3.5, 1)
	assert.Equal(t, 3, h.Len())
	assert.Equal(t, 3.0, h.Weight(2))
	lo, hi := h.Bin(2)
	assert.Equal(t, [2]float64{2, 4}, [2]float64{lo, hi})
	assert.Equal(t, 3.0, h.Rep(2))
	h.ClearWeights()
	assert.Zero(t, h.Weight(2))
}

func TestMissingSymbols(t *testing.T) {
	lib, core := newLib(t)
	core.Remove("o2scl_table___summary")
	tab, err := native.NewTable(lib)
	require.NoError(t, err, "optional symbols do not fail the class")
	defer tab.Close()

	_, err = tab.Summary()
	assert.True(t, errors.Is(err, loader.ErrMissingSymbol))
	assert.Contains(t, tab.String(), "table 0 rows")

	core.Remove("o2scl_hist_update")
	_, err = native.NewHist(lib, nil)
	var mse *loader.MissingSymbolError
	require.ErrorAs(t, err, &mse)
	assert.Equal(t, "o2scl_hist_update", mse.Symbol)
}

func TestSummaryIsCaptured(t *testing.T) {
	lib, core := newLib(t)
	tab, err := native.NewTable(lib)
	require.NoError(t, err)
	defer tab.Close()
	tab.LineOfNames("nb ed")
	s, err := tab.Summary()
	if err != nil {
		t.Skipf("stdout capture unavailable: %v", err)
	}
	assert.Contains(t, s, "2 columns")
	assert.Contains(t, s, "ed")
	assert.Equal(t, 2, core.Flushes(), "stdio is flushed when the capture starts and before stdout is restored")
}

func TestCaptureFlushesBufferedNativeOutput(t *testing.T) {
	lib, core := newLib(t)
	var buffered bytes.Buffer
	w := bufio.NewWriter(&buffered)
	core.Stdout = w
	tab, err := native.NewTable(lib)
	require.NoError(t, err)
	defer tab.Close()
	tab.LineOfNames("a")

	_, err = tab.Summary()
	if err != nil {
		t.Skipf("stdout capture unavailable: %v", err)
	}
	assert.Zero(t, w.Buffered(), "native output left in the stdio buffer after the capture")
	assert.Contains(t, buffered.String(), "1 columns")
}

func TestCaptureIsExclusive(t *testing.T) {
	c, err := native.StartCapture()
	if err != nil {
		t.Skipf("stdout capture unavailable: %v", err)
	}
	_, err = native.StartCapture()
	assert.ErrorIs(t, err, native.ErrCaptureActive)
	_, err = c.Close()
	require.NoError(t, err)

	c, err = native.StartCapture()
	require.NoError(t, err)
	c.Close()
}

func TestSettings(t *testing.T) {
	lib, _ := newLib(t)
	s, err := native.GetSettings(lib)
	require.NoError(t, err)
	assert.False(t, s.Owner())

	v, err := s.Version()
	require.NoError(t, err)
	assert.NotEmpty(t, v)

	require.NoError(t, s.SetDataDir("/tmp/o2"))
	dir, err := s.DataDir()
	require.NoError(t, err)
	assert.Equal(t, "/tmp/o2", dir)

	km, err := s.Convert("m", "km", 2500)
	require.NoError(t, err)
	assert.InDelta(t, 2.5, km, 1e-12)
	_, err = s.Convert("m", "MeV", 1)
	assert.Error(t, err)
}

func TestParseType(t *testing.T) {
	for _, typ := range native.Types {
		got, ok := native.ParseType(string(typ))
		assert.True(t, ok)
		assert.Equal(t, typ, got)
	}
	_, ok := native.ParseType("eos_had_skyrme")
	assert.False(t, ok)
	assert.Equal(t, "<none>", native.TypeNone.String())
}
