package o2graph

import (
	"bytes"
	"encoding/json"
	"errors"
	"math"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gonum.org/v1/gonum/spatial/r3"

	"github.com/o2graph-lang/o2graph/dispatch"
	"github.com/o2graph-lang/o2graph/loader"
	"github.com/o2graph-lang/o2graph/native"
	"github.com/o2graph-lang/o2graph/native/nativetest"
)

type testGraph struct {
	*Graph
	core        *nativetest.Core
	out, errOut *bytes.Buffer
}

func newTestGraph(t *testing.T) *testGraph {
	t.Helper()
	core := nativetest.New()
	var out, errOut bytes.Buffer
	core.Stdout = &out
	g, err := New(Options{Binder: core, Out: &out, Err: &errOut})
	require.NoError(t, err)
	t.Cleanup(func() {
		require.NoError(t, g.Close())
		assert.Empty(t, core.Faults())
	})
	return &testGraph{Graph: g, core: core, out: &out, errOut: &errOut}
}

// run executes one command line and fails on reported errors.
func (tg *testGraph) run(t *testing.T, args ...string) {
	t.Helper()
	require.NoError(t, tg.Run(args))
	require.Empty(t, tg.errOut.String())
}

func nonEmpty(t *testing.T, path string) {
	t.Helper()
	fi, err := os.Stat(path)
	require.NoError(t, err)
	assert.NotZero(t, fi.Size(), path)
}

func TestPlotTableAndSave(t *testing.T) {
	g := newTestGraph(t)
	out := filepath.Join(t.TempDir(), "sin.png")
	g.run(t, "-create", "table", "x", "grid:0,10,0.1",
		"-function", "sin(x)", "y",
		"-xtitle", "x", "-ytitle", "sin(x)",
		"-plot", "x", "y", "color=red,lw=2",
		"-scatter", "x", "y", "none", "y",
		"-save", out)
	nonEmpty(t, out)
	assert.Equal(t, native.TypeTable, g.Acol().Type())
	assert.Equal(t, 1, g.Figure().NumAxes())
}

func TestHistogramsAndErrorbars(t *testing.T) {
	g := newTestGraph(t)
	dir := t.TempDir()
	g.run(t, "-create", "table", "x", "grid:0,1,0.05",
		"-function", "x*x", "y",
		"-function", "0.1", "dy",
		"-errorbar", "x", "y", "none", "dy",
		"-errorbar", "x", "y", "0.01", "dy,dy",
		"-hist-plot", "y", "bins=5",
		"-rplot", "x", "y", "x", "dy", "alpha=0.3",
		"-save", filepath.Join(dir, "a.png"))
	nonEmpty(t, filepath.Join(dir, "a.png"))

	g.run(t, "-to-hist", "y", "4", "-hist-plot", "-save", filepath.Join(dir, "b.png"))
	assert.Equal(t, native.TypeHist, g.Acol().Type())
	nonEmpty(t, filepath.Join(dir, "b.png"))
}

func TestDenPlotTensorGridProjection(t *testing.T) {
	g := newTestGraph(t)
	out := filepath.Join(t.TempDir(), "den.png")
	g.run(t, "-create", "tensor_grid", "3", "21", "21", "21",
		"-set-grid", "0", "grid:0,2,0.1",
		"-set-grid", "1", "grid:0,2,0.1",
		"-set-grid", "2", "grid:0,2,0.1",
		"-function", "(sin(x0)+sin(2*x1))*exp(-x2**2)",
		"-den-plot", "0", "1", "fixed(2,1)", "cmap=viridis",
		"-addcbar",
		"-save", out)
	nonEmpty(t, out)

	grid, err := g.tensorGrid("index(0) index(1) fixed(2,1)")
	require.NoError(t, err)
	require.Len(t, grid.X, 21)
	require.Len(t, grid.Y, 21)
	assert.InDelta(t, 2.0, grid.X[20], 1e-12)

	// A rank 3 tensor cannot be shown without a projection.
	g.errOut.Reset()
	require.NoError(t, g.Run([]string{"-den-plot"}))
	assert.Contains(t, g.errOut.String(), "rank 2 projection")
}

func TestDenPlotIntTensorConverts(t *testing.T) {
	g := newTestGraph(t)
	g.run(t, "-create", "tensor<int>", "2", "3", "4", "-function", "i0+i1", "-den-plot")
	assert.Equal(t, native.TypeTensor, g.Acol().Type())
	assert.Equal(t, 1, g.Figure().NumAxes())
}

func TestTable3DPlots(t *testing.T) {
	g := newTestGraph(t)
	dir := t.TempDir()
	g.run(t, "-create", "table3d", "x", "grid:0,1,0.1", "y", "grid:0,2,0.1", "z", "x*y",
		"-function", "x+y", "w",
		"-den-plot", "z",
		"-den-plot-rgb", "z", "w", "z", "renorm=true",
		"-contours", "[0.5,1]", "z",
		"-contour-plot",
		"-save", filepath.Join(dir, "t3d.png"))
	assert.Equal(t, native.TypeContourLines, g.Acol().Type())
	nonEmpty(t, filepath.Join(dir, "t3d.png"))
}

func TestSceneToGLTF(t *testing.T) {
	g := newTestGraph(t)
	prefix := filepath.Join(t.TempDir(), "crust")
	g.run(t, "-create", "table3d", "x", "grid:0,1,0.25", "y", "grid:0,1,0.25", "z", "x*y",
		"-td-axis", "x", "y", "z",
		"-td-den-plot", "z", "cmap=viridis,bins=4",
		"-td-arrow", "0", "0", "0", "1", "1", "1", "diag", "color=red",
		"-gltf", prefix)

	raw, err := os.ReadFile(prefix + ".gltf")
	require.NoError(t, err)
	var doc struct {
		Nodes   []json.RawMessage `json:"nodes"`
		Buffers []struct {
			ByteLength int `json:"byteLength"`
		} `json:"buffers"`
		BufferViews []struct {
			ByteLength int `json:"byteLength"`
		} `json:"bufferViews"`
	}
	require.NoError(t, json.Unmarshal(raw, &doc))
	assert.Len(t, doc.Nodes, len(g.Scene().Groups))
	assert.Len(t, g.Scene().Groups, 8, "three arrows, three labels, a surface and an arrow")

	bin, err := os.ReadFile(prefix + ".bin")
	require.NoError(t, err)
	total := 0
	for _, v := range doc.BufferViews {
		total += v.ByteLength
	}
	assert.Equal(t, len(bin), total)
	require.Len(t, doc.Buffers, 1)
	assert.Equal(t, len(bin), doc.Buffers[0].ByteLength)
	nonEmpty(t, filepath.Join(filepath.Dir(prefix), "x_axis_label.png"))

	g.run(t, "-obj", prefix)
	nonEmpty(t, prefix+".obj")
	nonEmpty(t, prefix+".mtl")
}

func TestTDArrowFillsUnsetLimits(t *testing.T) {
	g := newTestGraph(t)
	g.run(t, "-set", "xlo", "0", "-set", "xhi", "10",
		"-td-arrow", "5", "0", "0", "5", "2", "4", "a")

	grp := g.Scene().Group("a")
	require.NotNil(t, grp)
	lo, hi := grp.Vertices[0], grp.Vertices[0]
	for _, v := range grp.Vertices {
		lo = r3.Vec{X: math.Min(lo.X, v.X), Y: math.Min(lo.Y, v.Y), Z: math.Min(lo.Z, v.Z)}
		hi = r3.Vec{X: math.Max(hi.X, v.X), Y: math.Max(hi.Y, v.Y), Z: math.Max(hi.Z, v.Z)}
	}
	// x follows the set limits, y and z the end points.
	assert.InDelta(t, 0.5, lo.X, 0.05)
	assert.InDelta(t, 0.5, hi.X, 0.05)
	assert.InDelta(t, 1, hi.Y, 0.05)
	assert.InDelta(t, 1, hi.Z, 0.05)
	assert.GreaterOrEqual(t, lo.Z, -0.05)
}

func TestSetGetRouting(t *testing.T) {
	g := newTestGraph(t)
	g.run(t, "-set", "xlo", "1", "-set", "xhi", "3", "-set", "yt_width", "2", "-set", "precision", "8")
	assert.True(t, g.Figure().State.XSet)
	assert.Equal(t, 2.0, g.YT().Camera.Width)

	g.out.Reset()
	g.run(t, "-get", "xlo", "-get", "yt_width", "-get", "precision")
	assert.Equal(t, "xlo = 1\nyt_width = 2\nprecision = 8\n", g.out.String())

	require.NoError(t, g.Run([]string{"-set", "nosuch", "1"}))
	assert.Contains(t, g.errOut.String(), `command "set"`)
	assert.Equal(t, 1, g.Dispatcher().Failures())
}

func TestSetVerboseReachesNative(t *testing.T) {
	g := newTestGraph(t)
	g.run(t, "-set", "verbose", "2")
	assert.Equal(t, 2, g.Figure().State.Verbose)
	g.out.Reset()
	g.run(t, "-get", "verbose")
	assert.Equal(t, "verbose = 2\n", g.out.String())
}

func TestErrorsAreReportedWithType(t *testing.T) {
	g := newTestGraph(t)
	require.NoError(t, g.Run([]string{
		"-create", "double", "3",
		"-den-plot", "z",
		"-plot", "x",
		"-nosuch",
		"-type",
	}))
	msgs := g.errOut.String()
	assert.Contains(t, msgs, `command "den-plot" is not defined for current type double`)
	assert.Contains(t, msgs, `command "plot" is not defined for current type double`)
	assert.Contains(t, msgs, `command "nosuch" (current type double)`)
	assert.Contains(t, g.out.String(), "Type is double.")
	assert.Equal(t, 0, g.ExitCode(nil), "the last native command succeeded")

	g.errOut.Reset()
	require.NoError(t, g.Run([]string{"-create", "table", "x", "grid:0,1,0.5", "-plot", "x"}))
	assert.Contains(t, g.errOut.String(), "not enough parameters (1 given, 2 needed)")
}

func TestExitCode(t *testing.T) {
	g := newTestGraph(t)
	require.NoError(t, g.Run([]string{"-create", "table", "x", "grid:0,1,0.5", "-function", "1/", "y"}))
	assert.Equal(t, 2, g.ExitCode(nil))
	assert.Equal(t, 1, g.ExitCode(errors.New("boom")))
	assert.Equal(t, 2, g.ExitCode(dispatch.ErrQuit))
}

func TestLoadFailure(t *testing.T) {
	_, err := New(Options{Loader: loader.Options{
		LibDir: t.TempDir(),
		Getenv: func(string) string { return "" },
	}})
	require.Error(t, err)
	assert.ErrorIs(t, err, loader.ErrLoad)
}

func TestVersionAndHelp(t *testing.T) {
	g := newTestGraph(t)
	g.run(t, "-version")
	assert.Contains(t, g.out.String(), "o2graph "+Version)
	assert.Contains(t, g.out.String(), "o2scl 0.930-test")

	g.out.Reset()
	g.run(t, "-create", "table3d", "x", "grid:0,1,0.5", "y", "grid:0,1,0.5", "-commands")
	listing := g.out.String()
	for _, name := range []string{"den-plot", "den-plot-rgb", "td-den-plot", "xlimits"} {
		assert.Contains(t, listing, name)
	}
	assert.NotContains(t, listing, "errorbar")

	g.out.Reset()
	g.run(t, "-help", "yt-render")
	assert.Contains(t, g.out.String(), "yt-render <file> [movie]")
}

func TestYTScene(t *testing.T) {
	g := newTestGraph(t)
	dir := t.TempDir()
	g.run(t, "-create", "tensor_grid", "3", "6", "6", "6",
		"-function", "exp(-((i0-2.5)**2+(i1-2.5)**2+(i2-2.5)**2)/4)",
		"-yt-add-vol", "tf_min=0.05,tf_max=1,layers=3",
		"-yt-line", "0", "0", "0", "5", "5", "5", "color=red",
		"-yt-box", "0", "0", "0", "5", "5", "5",
		"-yt-ann", "-text", "0.1", "0.9", "'a volume'", "-rect", "0", "0", "1", "1", "end",
		"-set", "yt_resolution", "(64,48)",
	)
	st := g.Figure().State
	assert.True(t, st.XSet && st.YSet && st.ZSet, "limits taken from the grid")
	assert.Equal(t, []float64{0, 5}, []float64{st.XLo, st.XHi})
	assert.Equal(t, []string{"o2graph_vol1", "o2graph_line1", "o2graph_box1"}, g.YT().Keys())
	assert.Len(t, g.YT().Annotations, 2)

	single := filepath.Join(dir, "single")
	g.run(t, "-yt-render", single)
	nonEmpty(t, single+".png")

	g.run(t, "-yt-path", "yaw", "3", "1.0", "-yt-path", "zoom", "2", "2")
	g.out.Reset()
	g.run(t, "-yt-path")
	assert.Equal(t, "yaw 3 1; zoom 2 2 (5 frames)\n", g.out.String())
	g.run(t, "-yt-render", filepath.Join(dir, "f_*.png"))
	for i := 0; i < 5; i++ {
		nonEmpty(t, filepath.Join(dir, "f_000"+string(rune('0'+i))+".png"))
	}

	g.run(t, "-yt-path", "reset")
	assert.Empty(t, g.YT().Path)
}

func TestYTScatterColumns(t *testing.T) {
	g := newTestGraph(t)
	g.run(t, "-create", "table", "x", "grid:0,1,0.25",
		"-function", "1-x", "y", "-function", "x*x", "z",
		"-yt-scatter", "x", "y", "z", "none", "x", "y", "z")
	require.NoError(t, g.Run([]string{"-yt-scatter", "x", "y", "z", "none", "x"}))
	assert.Contains(t, g.errOut.String(), "three columns")
	assert.Len(t, g.YT().Keys(), 1)
}

// fakeFFmpeg writes a script that records its arguments in dir/args
// and creates its last argument.
func fakeFFmpeg(t *testing.T, dir string) string {
	t.Helper()
	script := filepath.Join(dir, "ffmpeg")
	require.NoError(t, os.WriteFile(script, []byte("#!/bin/sh\necho \"$@\" > "+filepath.Join(dir, "args")+
		"\nfor a; do last=$a; done\necho movie > \"$last\"\n"), 0o755))
	return script
}

func TestMP4WithFakeEncoder(t *testing.T) {
	g := newTestGraph(t)
	dir := t.TempDir()
	g.enc.Path = fakeFFmpeg(t, dir)

	movie := filepath.Join(dir, "m")
	g.run(t, "-mp4", filepath.Join(dir, "f_%03d.png"), movie, "scale=320:-1", "true")
	nonEmpty(t, movie+".mp4")
	args, err := os.ReadFile(filepath.Join(dir, "args"))
	require.NoError(t, err)
	for _, want := range []string{"-r 10", "-stream_loop -1", "-vf scale=320:-1", "-crf 25"} {
		assert.True(t, strings.Contains(string(args), want), "missing %q in %s", want, args)
	}
}

func TestDenPlotAnim(t *testing.T) {
	g := newTestGraph(t)
	dir := t.TempDir()
	g.enc.Path = fakeFFmpeg(t, dir)
	movie := filepath.Join(dir, "anim.mp4")
	g.run(t, "-create", "tensor_grid", "4", "5", "6", "3", "2",
		"-function", "x0*x1+x2-x3",
		"-den-plot-anim", "1", "0", "2r", movie)
	nonEmpty(t, movie)

	require.NoError(t, g.Run([]string{"-den-plot-anim", "1", "1", "2", movie}))
	assert.Contains(t, g.errOut.String(), "the three axes must differ")
}
