package figure

import (
	"bytes"
	"context"
	"image/png"
	"math"
	"os"
	"os/exec"
	"path/filepath"
	"runtime"
	"strconv"
	"strings"
	"testing"

	"github.com/google/go-cmp/cmp"

	"github.com/o2graph-lang/o2graph/dispatch"
)

func kw(t *testing.T, s string) dispatch.Kwargs {
	t.Helper()
	k, err := dispatch.ParseKwargs(s, dispatch.Recipe{"bins": dispatch.Int, "lw": dispatch.Float, "renorm": dispatch.Bool})
	if err != nil {
		t.Fatal(err)
	}
	return k
}

func TestStateSetGet(t *testing.T) {
	s := NewState()
	for _, kv := range [][2]string{{"xlo", "1"}, {"xhi", "5"}, {"logy", "yes"}, {"font", "12"}, {"verbose", "2"}} {
		if err := s.Set(kv[0], kv[1]); err != nil {
			t.Fatalf("Set(%s): %v", kv[0], err)
		}
	}
	if !s.XSet || s.XLo != 1 || s.XHi != 5 {
		t.Errorf("x limits = %v %v set=%v", s.XLo, s.XHi, s.XSet)
	}
	if got, _ := s.Get("logy"); got != "true" {
		t.Errorf("logy = %q", got)
	}
	if got, _ := s.Get("font"); got != "12" {
		t.Errorf("font = %q", got)
	}

	// An inverted pair is kept but not marked set.
	if err := s.Set("xhi", "0"); err != nil {
		t.Fatal(err)
	}
	if s.XSet {
		t.Error("xset must be false when xlo >= xhi")
	}
	if err := s.SetLimits('y', 2, 1); err == nil {
		t.Error("SetLimits accepted lo > hi")
	}
	if err := s.Set("nope", "1"); err == nil || !strings.Contains(err.Error(), "unknown parameter") {
		t.Errorf("unknown parameter error = %v", err)
	}
}

func TestSetAxisFlagNeedsOrderedLimits(t *testing.T) {
	tests := []struct {
		name    string
		before  [][2]string
		flag    string
		value   string
		wantErr bool
		wantSet bool
	}{
		{"xset before any limits", nil, "xset", "true", true, false},
		{"xset after xlo=xhi", [][2]string{{"xlo", "2"}, {"xhi", "2"}}, "xset", "true", true, false},
		{"yset after ordered limits", [][2]string{{"ylo", "-1"}, {"yhi", "1"}, {"yset", "false"}}, "yset", "true", false, true},
		{"zset cleared without limits", nil, "zset", "false", false, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s := NewState()
			for _, kv := range tt.before {
				if err := s.Set(kv[0], kv[1]); err != nil {
					t.Fatalf("Set(%s): %v", kv[0], err)
				}
			}
			err := s.Set(tt.flag, tt.value)
			if (err != nil) != tt.wantErr {
				t.Fatalf("Set(%s, %s) error = %v, wantErr %v", tt.flag, tt.value, err, tt.wantErr)
			}
			got, _ := s.Get(tt.flag)
			if got != strconv.FormatBool(tt.wantSet) {
				t.Errorf("%s = %s, want %v", tt.flag, got, tt.wantSet)
			}
		})
	}
}

func TestFigDict(t *testing.T) {
	s := NewState()
	if err := s.Set("fig_dict", "fig_size_x=8, fig_size_y=4,ticks_in=true,left_margin=0.2,fontsize=10"); err != nil {
		t.Fatal(err)
	}
	want := Layout{SizeX: 8, SizeY: 4, TicksIn: true, Left: 0.2, Right: 0.04, Top: 0.04, Bottom: 0.12, FontSize: 10}
	if diff := cmp.Diff(want, s.Layout); diff != "" {
		t.Errorf("layout (-want +got):\n%s", diff)
	}
	got, _ := s.Get("fig_dict")
	back := DefaultLayout
	if err := back.Parse(got); err != nil {
		t.Fatal(err)
	}
	if back != s.Layout {
		t.Errorf("fig_dict does not round trip: %q", got)
	}
	for _, bad := range []string{"fig_size_x", "bogus=1", "fig_size_x=-1", "ticks_in=maybe", "fig_size_x=9,bogus=1"} {
		l := DefaultLayout
		if err := l.Parse(bad); err == nil {
			t.Errorf("Parse(%q) succeeded", bad)
		}
		if l != DefaultLayout {
			t.Errorf("Parse(%q) changed the layout on error: %+v", bad, l)
		}
	}
}

func TestParseColor(t *testing.T) {
	for _, s := range []string{"r", "black", "Dark Red", "#ff8000", "#ff800080", "C3"} {
		if _, err := ParseColor(s); err != nil {
			t.Errorf("ParseColor(%q): %v", s, err)
		}
	}
	if _, err := ParseColor("#zz"); err == nil {
		t.Error("bad hex accepted")
	}
}

func TestColormap(t *testing.T) {
	for _, n := range []string{"", "viridis", "hot_r", "bluered", "Kindlmann"} {
		cm, err := Colormap(n)
		if err != nil {
			t.Fatalf("Colormap(%q): %v", n, err)
		}
		cm.SetMin(0)
		cm.SetMax(1)
		if _, err := cm.At(0.5); err != nil {
			t.Errorf("Colormap(%q).At: %v", n, err)
		}
	}
	if _, err := Colormap("nope"); err == nil {
		t.Error("unknown colormap accepted")
	}
}

func TestMovieArgs(t *testing.T) {
	tests := []struct {
		m    Movie
		want []string
	}{
		{Movie{Pattern: "f_%03d.png", Out: "anim"},
			[]string{"-y", "-r", "10", "-i", "f_%03d.png", "-vcodec", "libx264", "-pix_fmt", "yuv420p", "-crf", "25", "anim.mp4"}},
		{Movie{Pattern: "f_%03d.png", Out: "anim.mov", Filter: "scale=640:-2", Loop: true},
			[]string{"-y", "-r", "10", "-stream_loop", "-1", "-i", "f_%03d.png", "-vf", "scale=640:-2",
				"-vcodec", "libx264", "-pix_fmt", "yuv420p", "-crf", "25", "anim.mov"}},
	}
	for _, tt := range tests {
		if diff := cmp.Diff(tt.want, tt.m.Args()); diff != "" {
			t.Errorf("Args (-want +got):\n%s", diff)
		}
	}
}

func TestBin2DAndEdges(t *testing.T) {
	g := Bin2D([]float64{0, 0, 1, 1, 0.5}, []float64{0, 1, 0, 1, 0.5}, 2, 2)
	if diff := cmp.Diff([]float64{0.25, 0.75}, g.X); diff != "" {
		t.Errorf("centers: %s", diff)
	}
	// (0.5,0.5) falls into the upper bin of both axes.
	if diff := cmp.Diff([]float64{1, 1, 1, 2}, g.Data); diff != "" {
		t.Errorf("counts: %s", diff)
	}
	if diff := cmp.Diff([]float64{0, 1, 2, 3}, EdgesFromReps([]float64{0.5, 1.5, 2.5})); diff != "" {
		t.Errorf("edges: %s", diff)
	}
}

func TestPrimitiveErrors(t *testing.T) {
	f := New(Options{})
	if err := f.Plot([]float64{1, 2}, []float64{1}, nil); err == nil {
		t.Error("plot with mismatched columns succeeded")
	}
	if err := f.Plot([]float64{math.NaN()}, []float64{1}, nil); err == nil {
		t.Error("plot with no finite points succeeded")
	}
	if err := f.Plot([]float64{1, 2}, []float64{1, 2}, kw(t, "ls=~~")); err == nil {
		t.Error("bad line style accepted")
	}
	if err := f.AddColorbar(nil); err != ErrNoImage {
		t.Errorf("AddColorbar before an image = %v", err)
	}
	if err := f.SelectAxes(3); err == nil {
		t.Error("selax out of range accepted")
	}
	if err := f.DenPlot(Grid{X: []float64{0, 1}, Y: []float64{1, 0}, Data: make([]float64, 4)}, nil); err == nil {
		t.Error("decreasing grid accepted")
	}
}

func testGrid(nx, ny int) Grid {
	g := Grid{X: make([]float64, nx), Y: make([]float64, ny), Data: make([]float64, nx*ny)}
	for i := range g.X {
		g.X[i] = float64(i)
	}
	for j := range g.Y {
		g.Y[j] = float64(j) / 2
	}
	for i := range g.X {
		for j := range g.Y {
			g.Data[i*ny+j] = math.Sin(g.X[i]) * math.Cos(g.Y[j])
		}
	}
	return g
}

func TestSaveEverything(t *testing.T) {
	f := New(Options{})
	f.State.Colbar = true
	if err := f.Subplots(2, 2, false, false); err != nil {
		t.Fatal(err)
	}
	x := []float64{1, 2, 3, 4, 5}
	y := []float64{3, 1, 4, 1, 5}
	steps := []func() error{
		func() error { return f.Plot(x, y, kw(t, "color=r,ls=--,marker=o,label=data")) },
		func() error { return f.Errorbar(x, y, Constant(0.1, 5), Symmetric(y), nil) },
		func() error { return f.Text(2, 2, "hello", nil) },
		func() error { return f.TextBox(0.1, 0.9, "box", kw(t, "fc=yellow")) },
		func() error { return f.Arrow(1, 1, 3, 3, nil) },
		func() error { return f.Rect(1, 1, 2, 2, 30, kw(t, "fc=blue,alpha=0.3")) },
		func() error { return f.Ellipse(3, 3, 1, 0.5, 0, nil) },
		func() error { return f.SelectAxes(1) },
		func() error { return f.DenPlot(testGrid(10, 8), kw(t, "cmap=viridis")) },
		func() error { return f.SelectAxes(2) },
		func() error { return f.HistPlot(y, kw(t, "bins=3")) },
		func() error { return f.Scatter(x, y, y, x, nil) },
		func() error { return f.SelectAxes(3) },
		func() error { return f.PlotColor(x, y, x, "hot", nil) },
		func() error { return f.Contour([]ContourLine{{Level: 1, X: x, Y: y}, {Level: 2, X: y, Y: x}}, nil) },
		func() error { return f.RPlot(x, y, x, x, nil) },
		func() error { return f.Inset(0.6, 0.6, 0.3, 0.3) },
		func() error { return f.Plot1(y, nil) },
		func() error { return f.XLimits(0, 4) },
		func() error { return f.SubAdjust(kw(t, "wspace=0.3")) },
	}
	for i, step := range steps {
		if err := step(); err != nil {
			t.Fatalf("step %d: %v", i, err)
		}
	}
	if f.NumAxes() != 5 {
		t.Errorf("NumAxes = %d, want 5", f.NumAxes())
	}

	dir := t.TempDir()
	for _, name := range []string{"fig.png", "fig.svg", "noext"} {
		if err := f.Save(filepath.Join(dir, name)); err != nil {
			t.Fatalf("Save(%s): %v", name, err)
		}
	}
	data, err := os.ReadFile(filepath.Join(dir, "noext.png"))
	if err != nil {
		t.Fatal(err)
	}
	img, err := png.Decode(bytes.NewReader(data))
	if err != nil {
		t.Fatal(err)
	}
	if img.Bounds().Dx() == 0 || img.Bounds().Dy() == 0 {
		t.Errorf("empty image %v", img.Bounds())
	}
}

func TestLogAxesDropNonPositive(t *testing.T) {
	f := New(Options{})
	f.State.LogX = true
	if err := f.Plot([]float64{-1, 0, 1, 10}, []float64{1, 2, 3, 4}, nil); err != nil {
		t.Fatal(err)
	}
	if err := f.Save(filepath.Join(t.TempDir(), "log.png")); err != nil {
		t.Fatal(err)
	}
	if err := f.Plot([]float64{-1}, []float64{1}, nil); err == nil {
		t.Error("plot with only non-positive x on a log axis succeeded")
	}
}

func TestDenPlotRGB(t *testing.T) {
	f := New(Options{})
	g := testGrid(4, 4)
	if err := f.DenPlotRGB(g, g, g, kw(t, "renorm=false")); err != nil {
		t.Fatal(err)
	}
	if err := f.DenPlotRGB(g, testGrid(3, 4), g, nil); err == nil {
		t.Error("mismatched channels accepted")
	}
}

func fakeFFmpeg(t *testing.T) string {
	t.Helper()
	if runtime.GOOS == "windows" {
		t.Skip("shell script encoder")
	}
	path := filepath.Join(t.TempDir(), "ffmpeg")
	script := "#!/bin/sh\nfor a; do last=$a; done\necho \"$@\" > \"$last\"\n"
	if err := os.WriteFile(path, []byte(script), 0o755); err != nil {
		t.Fatal(err)
	}
	return path
}

func TestDenPlotAnim(t *testing.T) {
	f := New(Options{})
	out := filepath.Join(t.TempDir(), "anim")
	frames := 0
	frame := func(i int) (Grid, error) {
		frames++
		g := testGrid(5, 5)
		for k := range g.Data {
			g.Data[k] *= float64(i + 1)
		}
		return g, nil
	}
	enc := Encoder{Path: fakeFFmpeg(t)}
	if err := f.DenPlotAnim(context.Background(), enc, 3, frame, true, out, nil); err != nil {
		t.Fatal(err)
	}
	if frames != 3 {
		t.Errorf("frame called %d times", frames)
	}
	data, err := os.ReadFile(out + ".mp4")
	if err != nil {
		t.Fatal(err)
	}
	if !strings.Contains(string(data), "-vcodec libx264") {
		t.Errorf("encoder args = %q", data)
	}

	missing := Encoder{Path: filepath.Join(t.TempDir(), "missing")}
	err = f.DenPlotAnim(context.Background(), missing, 2, frame, false, out, kw(t, "keep_frames=true"))
	if err == nil || !strings.Contains(err.Error(), "frames kept in") {
		t.Errorf("failed encode error = %v", err)
	}
}

func TestDenPlotAnimLeavesFigureAndTempDir(t *testing.T) {
	tmp := t.TempDir()
	t.Setenv("TMPDIR", tmp)

	f := New(Options{})
	if err := f.Plot([]float64{1, 2, 3}, []float64{1, 4, 9}, nil); err != nil {
		t.Fatal(err)
	}
	axesBefore, curBefore := len(f.axes), f.cur
	frame := func(i int) (Grid, error) { return testGrid(4, 4), nil }

	missing := Encoder{Path: filepath.Join(t.TempDir(), "missing")}
	err := f.DenPlotAnim(context.Background(), missing, 2, frame, false, filepath.Join(t.TempDir(), "anim"), nil)
	if err == nil {
		t.Fatal("encode with a missing encoder succeeded")
	}
	if strings.Contains(err.Error(), "frames kept in") {
		t.Errorf("frames reported as kept: %v", err)
	}
	if len(f.axes) != axesBefore || f.cur != curBefore || f.cur.p == nil {
		t.Error("current figure changed by den-plot-anim")
	}
	left, err := os.ReadDir(tmp)
	if err != nil {
		t.Fatal(err)
	}
	for _, e := range left {
		if strings.HasPrefix(e.Name(), "o2graph-anim-") {
			t.Errorf("frame directory %s left behind", e.Name())
		}
	}
}

func TestEncodeRealFFmpeg(t *testing.T) {
	if _, err := exec.LookPath("ffmpeg"); err != nil {
		t.Skip("ffmpeg not installed")
	}
	probe, err := exec.LookPath("ffprobe")
	if err != nil {
		t.Skip("ffprobe not installed")
	}
	dir := t.TempDir()
	f := New(Options{})
	f.State.Layout.SizeX, f.State.Layout.SizeY = 2, 2
	for i := 0; i < 3; i++ {
		f.Clear()
		if err := f.Plot([]float64{0, 1}, []float64{0, float64(i)}, nil); err != nil {
			t.Fatal(err)
		}
		if err := f.Save(filepath.Join(dir, "frame_"+string(rune('0'+i))+".png")); err != nil {
			t.Fatal(err)
		}
	}
	m := Movie{Pattern: filepath.Join(dir, "frame_%01d.png"), Out: filepath.Join(dir, "out"), Filter: "pad=ceil(iw/2)*2:ceil(ih/2)*2"}
	if err := (Encoder{}).Encode(context.Background(), m); err != nil {
		t.Fatal(err)
	}
	codec, err := exec.Command(probe, "-v", "error", "-select_streams", "v:0",
		"-show_entries", "stream=codec_name", "-of", "default=nw=1:nk=1", m.Output()).Output()
	if err != nil {
		t.Fatal(err)
	}
	if strings.TrimSpace(string(codec)) != "h264" {
		t.Errorf("codec = %q, want h264", codec)
	}
}
