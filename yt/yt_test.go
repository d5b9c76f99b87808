package yt

import (
	"context"
	"errors"
	"image/png"
	"math"
	"os"
	"path/filepath"
	"runtime"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gonum.org/v1/gonum/spatial/r3"

	"github.com/o2graph-lang/o2graph/figure"
	"github.com/o2graph-lang/o2graph/scene"
)

var testLimits = scene.Limits{Lo: [3]float64{-1, 0, 0}, Hi: [3]float64{1, 4, 10}}

func near(t *testing.T, want, got r3.Vec) {
	t.Helper()
	assert.InDelta(t, 0, r3.Norm(r3.Sub(want, got)), 1e-9, "want %v got %v", want, got)
}

func TestParsePoint(t *testing.T) {
	p, err := ParsePoint("[0, 2, 5] user")
	require.NoError(t, err)
	assert.True(t, p.User)
	near(t, r3.Vec{X: 0.5, Y: 0.5, Z: 0.5}, p.In(NewCoords(testLimits)))

	p, err = ParsePoint("[0.1,0.2,0.3]")
	require.NoError(t, err)
	assert.False(t, p.User)
	assert.Equal(t, "[0.1,0.2,0.3] internal", p.String())

	_, err = ParsePoint("[1,2] user")
	assert.Error(t, err)

	c := NewCoords(scene.Limits{})
	near(t, r3.Vec{X: 0.25, Y: 1, Z: 0}, c.Internal(r3.Vec{X: 0.25, Y: 1}))
}

func TestParsePath(t *testing.T) {
	steps, err := ParsePath("yaw 20 3.14159; zoom 10 2 ;move 5 [0.5, 0.5, 2] user; turn 4 [1,1,1]")
	require.NoError(t, err)
	require.Len(t, steps, 4)
	assert.Equal(t, Yaw, steps[0].Kind)
	assert.Equal(t, 20, steps[0].Frames)
	assert.Equal(t, Zoom, steps[1].Kind)
	assert.Equal(t, 2.0, steps[1].Amount)
	assert.True(t, steps[2].Target.User)
	assert.False(t, steps[3].Target.User)
	assert.Equal(t, 39, Frames(steps))

	again, err := ParsePath(FormatPath(steps))
	require.NoError(t, err)
	assert.Equal(t, steps, again)

	for _, bad := range []string{"spin 3 1", "yaw x 1", "zoom 3 0", "move 3 [1,2]", "yaw 3"} {
		_, err := ParsePath(bad)
		assert.Error(t, err, bad)
	}
}

func TestWalk(t *testing.T) {
	c := NewCoords(testLimits)
	start := view{Position: r3.Vec{X: 2, Y: 0.5, Z: 0.5}, Focus: r3.Vec{X: 0.5, Y: 0.5, Z: 0.5}, North: r3.Vec{Z: 1}, Width: 1}
	steps := []Step{
		{Kind: Yaw, Frames: 8, Amount: 2 * math.Pi},
		{Kind: Zoom, Frames: 4, Amount: 16},
		{Kind: Move, Frames: 2, Target: Point{V: r3.Vec{X: 1, Y: 4, Z: 10}, User: true}},
		{Kind: Turn, Frames: 2, Target: Point{V: r3.Vec{}}},
	}
	var views []view
	require.NoError(t, walk(start, steps, c, func(i int, v view) error {
		assert.Equal(t, len(views), i)
		views = append(views, v)
		return nil
	}))
	require.Len(t, views, 16)
	near(t, start.Position, views[7].Position)
	near(t, r3.Vec{X: 0.5, Y: 2, Z: 0.5}, views[1].Position)
	assert.InDelta(t, 1.0/16, views[11].Width, 1e-12)
	assert.InDelta(t, 0.5, views[8].Width, 1e-12)
	near(t, r3.Vec{X: 1, Y: 1, Z: 1}, views[13].Position)
	near(t, r3.Vec{}, views[15].Focus)

	stop := errors.New("stop")
	err := walk(start, steps, c, func(i int, v view) error {
		if i == 3 {
			return stop
		}
		return nil
	})
	assert.ErrorIs(t, err, stop)
}

func TestParams(t *testing.T) {
	s := New(Options{})
	for _, tt := range []struct{ name, value, want string }{
		{"yt_focus", "[1,2,3] user", "[1,2,3] user"},
		{"yt_position", "[0.5,0.5,3]", "[0.5,0.5,3] internal"},
		{"yt_north", "[0,1,0]", "[0,1,0]"},
		{"yt_width", "0.5*3", "1.5"},
		{"yt_resolution", "(320,200)", "(320,200)"},
		{"yt_sigma_clip", "2", "2"},
		{"yt_filter", "convert %i -negate %o", "convert %i -negate %o"},
		{"yt_path", "yaw 10 1;zoom 2 2", "yaw 10 1; zoom 2 2"},
	} {
		require.NoError(t, s.Set(tt.name, tt.value), tt.name)
		got, err := s.Get(tt.name)
		require.NoError(t, err)
		assert.Equal(t, tt.want, got, tt.name)
	}
	assert.ElementsMatch(t, Params(), []string{"yt_focus", "yt_position", "yt_north", "yt_width", "yt_resolution", "yt_sigma_clip", "yt_filter", "yt_path"})

	assert.ErrorIs(t, s.Set("xlo", "1"), figure.ErrUnknownParam)
	_, err := s.Get("nope")
	assert.ErrorIs(t, err, figure.ErrUnknownParam)
	assert.Error(t, s.Set("yt_width", "-1"))
	assert.Error(t, s.Set("yt_north", "[0,0,0]"))
	assert.Error(t, s.Set("yt_resolution", "12"))
}

func TestTransferFunction(t *testing.T) {
	tf := TransferFunction{Min: 0, Max: 10, Alpha: 1}
	_, ok := tf.Sample(11)
	assert.False(t, ok)
	_, ok = tf.Sample(0)
	assert.False(t, ok, "zero opacity at the bottom of a linear ramp")
	c, ok := tf.Sample(10)
	require.True(t, ok)
	assert.Equal(t, uint8(255), c.A)

	layered := TransferFunction{Min: 0, Max: 1, Layers: 2, Alpha: 1}
	peak, ok := layered.Sample(0.25)
	require.True(t, ok)
	trough, ok := layered.Sample(0.5)
	if ok {
		assert.Less(t, trough.A, peak.A)
	}

	logTF := TransferFunction{Min: 1, Max: 100, Log: true, Alpha: 1}
	_, ok = logTF.Sample(-1)
	assert.False(t, ok)
	mid, ok := logTF.Sample(10)
	require.True(t, ok)
	assert.InDelta(t, 127, int(mid.A), 1)
}

func TestSourcesAndAnnotations(t *testing.T) {
	s := New(Options{})
	k1 := s.Add(&Points{Pos: []r3.Vec{{}}})
	k2 := s.Add(&Points{})
	k3 := s.Add(&Box{})
	assert.Equal(t, []string{"o2graph_points1", "o2graph_points2", "o2graph_box1"}, []string{k1, k2, k3})
	require.NoError(t, s.Remove(k2))
	assert.Equal(t, []string{k1, k3}, s.Keys())
	assert.Error(t, s.Remove(k2))

	require.NoError(t, s.Annotate([]string{"-text", "0.5", "0.9", "title", "-line", "0", "0", "1", "1", "color=r"}))
	require.Len(t, s.Annotations, 2)
	assert.Equal(t, "line", s.Annotations[1].Name)
	assert.Error(t, s.Annotate([]string{"-scatter", "1", "2"}))
	require.NoError(t, s.Annotate(nil))
	assert.Empty(t, s.Annotations)

	s.Clear()
	assert.Empty(t, s.Keys())
}

func testVolume(n int) *Volume {
	v := &Volume{TF: TransferFunction{Min: 0, Max: 3, Alpha: 0.8, Layers: 3}}
	for k := 0; k < 3; k++ {
		for i := 0; i < n; i++ {
			v.Grid[k] = append(v.Grid[k], 2*float64(i)/float64(n-1))
		}
	}
	for _, x := range v.Grid[0] {
		for _, y := range v.Grid[1] {
			for _, z := range v.Grid[2] {
				v.Data = append(v.Data, (math.Sin(x)+math.Sin(2*y))*math.Exp(-z*z)+1)
			}
		}
	}
	return v
}

func TestRenderFrame(t *testing.T) {
	lim := scene.Limits{Hi: [3]float64{2, 2, 2}}
	s := New(Options{Limits: func() scene.Limits { return lim }})
	require.NoError(t, s.Set("yt_resolution", "(96,64)"))
	vol := testVolume(6)
	require.NoError(t, vol.Validate())
	assert.Equal(t, lim, VolumeLimits(vol))
	s.Add(vol)
	s.Add(&Points{Pos: []r3.Vec{{X: 1, Y: 1, Z: 1}}, Sizes: []float64{0.05}})
	s.Add(&Line{From: Point{V: r3.Vec{}}, To: Point{V: r3.Vec{X: 2, Y: 2, Z: 2}, User: true}})
	s.Add(&Box{Lo: Point{}, Hi: Point{V: r3.Vec{X: 1, Y: 1, Z: 1}}})
	require.NoError(t, s.Annotate([]string{"-text", "0.5", "0.9", "frame", "-arrow", "0.1", "0.1", "0.3", "0.3", "-rect", "0.7", "0.1", "0.9", "0.2", "fc=blue"}))

	out := filepath.Join(t.TempDir(), "frame")
	files, err := s.Render(context.Background(), out, "", figure.Encoder{})
	require.NoError(t, err)
	require.Equal(t, []string{out + ".png"}, files)

	f, err := os.Open(files[0])
	require.NoError(t, err)
	defer f.Close()
	img, err := png.Decode(f)
	require.NoError(t, err)
	assert.Equal(t, 96, img.Bounds().Dx())
	assert.Equal(t, 64, img.Bounds().Dy())
	lit := 0
	b := img.Bounds()
	for y := b.Min.Y; y < b.Max.Y; y++ {
		for x := b.Min.X; x < b.Max.X; x++ {
			if r, g, bl, _ := img.At(x, y).RGBA(); r+g+bl > 0 {
				lit++
			}
		}
	}
	assert.Greater(t, lit, 100)
}

func TestRenderPath(t *testing.T) {
	if runtime.GOOS == "windows" {
		t.Skip("shell script encoder")
	}
	dir := t.TempDir()
	ffmpeg := filepath.Join(dir, "ffmpeg")
	script := "#!/bin/sh\nfor a; do last=$a; done\necho \"$@\" > \"$last\"\n"
	require.NoError(t, os.WriteFile(ffmpeg, []byte(script), 0o755))

	s := New(Options{})
	s.Camera.Resolution = [2]int{32, 32}
	s.Add(&Points{Pos: []r3.Vec{{X: 0.5, Y: 0.5, Z: 0.5}}})
	require.NoError(t, s.Set("yt_path", "yaw 3 1; zoom 2 2"))
	require.NoError(t, s.Set("yt_filter", "cp %i %o"))

	files, err := s.Render(context.Background(), filepath.Join(dir, "f_*.png"), filepath.Join(dir, "movie"), figure.Encoder{Path: ffmpeg})
	require.NoError(t, err)
	require.Len(t, files, 5)
	assert.Equal(t, filepath.Join(dir, "f_0004.png"), files[4])
	for _, f := range files {
		assert.FileExists(t, f)
	}
	args, err := os.ReadFile(filepath.Join(dir, "movie.mp4"))
	require.NoError(t, err)
	assert.True(t, strings.Contains(string(args), "f_%04d.png"), string(args))

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err = s.Render(ctx, filepath.Join(dir, "g"), "", figure.Encoder{})
	assert.ErrorIs(t, err, context.Canceled)
}
