// Package yt holds the volume-render scene: a camera that follows a
// path, sources keyed by name, a transfer function and 2-D annotations
// drawn over every frame.
package yt

import (
	"fmt"
	"image/color"
	"math"
	"sort"
	"strconv"

	"github.com/go-kit/log"
	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/spatial/r3"
	"gonum.org/v1/plot/palette"

	"github.com/o2graph-lang/o2graph/calc"
	"github.com/o2graph-lang/o2graph/dispatch"
	"github.com/o2graph-lang/o2graph/figure"
	"github.com/o2graph-lang/o2graph/logutil"
	"github.com/o2graph-lang/o2graph/scene"
)

// Camera is the user-facing camera. North and Width are in internal
// units.
type Camera struct {
	Focus      Point
	Position   Point
	North      r3.Vec
	Width      float64
	Resolution [2]int
	SigmaClip  float64
}

// DefaultCamera looks at the center of the unit cube from outside it.
func DefaultCamera() Camera {
	return Camera{
		Focus:      Point{V: r3.Vec{X: 0.5, Y: 0.5, Z: 0.5}},
		Position:   Point{V: r3.Vec{X: 1.5, Y: 0.6, Z: 0.7}},
		North:      r3.Vec{Z: 1},
		Width:      1.5,
		Resolution: [2]int{512, 512},
		SigmaClip:  4,
	}
}

// TransferFunction maps volume values to colors. With Layers > 0 the
// opacity is a sum of that many Gaussian bands across the range;
// otherwise it grows linearly with the normalised value.
type TransferFunction struct {
	Min, Max float64
	Log      bool
	Cmap     palette.ColorMap
	Layers   int
	Alpha    float64
}

// Sample returns the color of v, or false when v is outside the range
// or fully transparent.
func (tf TransferFunction) Sample(v float64) (color.NRGBA, bool) {
	lo, hi := tf.Min, tf.Max
	if tf.Log {
		if v <= 0 || lo <= 0 {
			return color.NRGBA{}, false
		}
		v, lo, hi = math.Log10(v), math.Log10(lo), math.Log10(hi)
	}
	if math.IsNaN(v) || v < lo || v > hi || !(lo < hi) {
		return color.NRGBA{}, false
	}
	t := (v - lo) / (hi - lo)
	var a float64
	if tf.Layers > 0 {
		w := 0.5 / float64(tf.Layers)
		for k := 0; k < tf.Layers; k++ {
			c := (float64(k) + 0.5) / float64(tf.Layers)
			a = math.Max(a, math.Exp(-math.Pow((t-c)/(w/2), 2)))
		}
	} else {
		a = t
	}
	a *= tf.Alpha
	if a <= 1.0/255 {
		return color.NRGBA{}, false
	}
	cmap := tf.Cmap
	if cmap == nil {
		cmap, _ = figure.Colormap(figure.DefaultColormap)
	}
	cmap.SetMin(0)
	cmap.SetMax(1)
	c, err := cmap.At(t)
	if err != nil {
		return color.NRGBA{}, false
	}
	n := color.NRGBAModel.Convert(c).(color.NRGBA)
	n.A = uint8(math.Min(1, a) * 255)
	return n, true
}

// Source is anything the renderer can draw.
type Source interface {
	Kind() string
}

// Volume is a scalar field on a rectilinear grid in user coordinates,
// Data[(i*len(Grid[1])+j)*len(Grid[2])+k] at (Grid[0][i], Grid[1][j],
// Grid[2][k]).
type Volume struct {
	Grid [3][]float64
	Data []float64
	TF   TransferFunction
}

func (*Volume) Kind() string { return "vol" }

// Validate checks the data length against the grid.
func (v *Volume) Validate() error {
	n := len(v.Grid[0]) * len(v.Grid[1]) * len(v.Grid[2])
	if n == 0 || n != len(v.Data) {
		return fmt.Errorf("volume: %d values for a %dx%dx%d grid", len(v.Data), len(v.Grid[0]), len(v.Grid[1]), len(v.Grid[2]))
	}
	return nil
}

// Points are markers in user coordinates. Sizes are in internal units
// and Colors may be empty, a single color, or one per point.
type Points struct {
	Pos    []r3.Vec
	Sizes  []float64
	Colors []color.Color
}

func (*Points) Kind() string { return "points" }

// Line is one segment.
type Line struct {
	From, To Point
	Color    color.Color
	Width    float64
}

func (*Line) Kind() string { return "line" }

// Box is an axis-aligned wireframe between two corners.
type Box struct {
	Lo, Hi Point
	Color  color.Color
}

func (*Box) Kind() string { return "box" }

// Options configure a Scene.
type Options struct {
	// Limits returns the current axis limits; the unit cube when nil.
	Limits func() scene.Limits
	Logger log.Logger
}

// Scene is the yt scene.
type Scene struct {
	Camera      Camera
	Path        []Step
	Filter      string
	Annotations []dispatch.Segment

	keys    []string
	sources map[string]Source
	counts  map[string]int
	limits  func() scene.Limits
	logger  log.Logger
}

// New returns an empty scene with the default camera.
func New(opts Options) *Scene {
	s := &Scene{
		Camera: DefaultCamera(),
		limits: opts.Limits,
		logger: logutil.With(opts.Logger, "yt"),
	}
	s.Clear()
	return s
}

// Coords returns the converters for the current axis limits.
func (s *Scene) Coords() Coords {
	if s.limits == nil {
		return NewCoords(scene.Limits{})
	}
	return NewCoords(s.limits())
}

// Add stores src under a fresh key such as "o2graph_vol1" and returns
// the key.
func (s *Scene) Add(src Source) string {
	s.counts[src.Kind()]++
	key := fmt.Sprintf("o2graph_%s%d", src.Kind(), s.counts[src.Kind()])
	s.keys = append(s.keys, key)
	s.sources[key] = src
	return key
}

// Source returns the source stored under key.
func (s *Scene) Source(key string) (Source, bool) {
	src, ok := s.sources[key]
	return src, ok
}

// Keys returns the source keys in insertion order.
func (s *Scene) Keys() []string { return append([]string(nil), s.keys...) }

// Remove drops a source.
func (s *Scene) Remove(key string) error {
	if _, ok := s.sources[key]; !ok {
		return fmt.Errorf("no yt source %q", key)
	}
	delete(s.sources, key)
	for i, k := range s.keys {
		if k == key {
			s.keys = append(s.keys[:i], s.keys[i+1:]...)
			break
		}
	}
	return nil
}

// Clear drops every source, the path and the annotations. The camera
// is kept.
func (s *Scene) Clear() {
	s.keys = nil
	s.sources = map[string]Source{}
	s.counts = map[string]int{}
	s.Path = nil
	s.Annotations = nil
}

// Annotate appends the commands in args to the annotation list; they
// are dash-initial drawing commands. No arguments clears the list.
func (s *Scene) Annotate(args []string) error {
	if len(args) == 0 {
		s.Annotations = nil
		return nil
	}
	segs, err := dispatch.Split(args)
	if err != nil {
		return err
	}
	for _, seg := range segs {
		if _, ok := annotators[seg.Name]; !ok {
			return fmt.Errorf("unsupported annotation %q", seg.Name)
		}
	}
	s.Annotations = append(s.Annotations, segs...)
	return nil
}

// Params lists the yt parameters.
func Params() []string {
	out := []string{"yt_focus", "yt_position", "yt_north", "yt_width", "yt_resolution", "yt_sigma_clip", "yt_filter", "yt_path"}
	sort.Strings(out)
	return out
}

// Set assigns a yt parameter. Unknown names return
// figure.ErrUnknownParam.
func (s *Scene) Set(name, value string) error {
	c := &s.Camera
	switch name {
	case "yt_focus", "yt_position":
		p, err := ParsePoint(value)
		if err != nil {
			return fmt.Errorf("%s: %w", name, err)
		}
		if name == "yt_focus" {
			c.Focus = p
		} else {
			c.Position = p
		}
	case "yt_north":
		v, err := dispatch.ParseFloats(value)
		if err != nil || len(v) != 3 {
			return fmt.Errorf("yt_north: expected [x,y,z] but got %q", value)
		}
		n := r3.Vec{X: v[0], Y: v[1], Z: v[2]}
		if r3.Norm(n) == 0 {
			return fmt.Errorf("yt_north: zero vector")
		}
		c.North = n
	case "yt_width":
		v, err := calc.Float(value)
		if err != nil {
			return fmt.Errorf("yt_width: %w", err)
		}
		if v <= 0 {
			return fmt.Errorf("yt_width: must be positive")
		}
		c.Width = v
	case "yt_resolution":
		v, err := dispatch.ParseFloats(value)
		if err != nil || len(v) != 2 || v[0] < 1 || v[1] < 1 {
			return fmt.Errorf("yt_resolution: expected (width,height) but got %q", value)
		}
		c.Resolution = [2]int{int(v[0]), int(v[1])}
	case "yt_sigma_clip":
		v, err := calc.Float(value)
		if err != nil {
			return fmt.Errorf("yt_sigma_clip: %w", err)
		}
		c.SigmaClip = math.Max(0, v)
	case "yt_filter":
		s.Filter = value
	case "yt_path":
		p, err := ParsePath(value)
		if err != nil {
			return fmt.Errorf("yt_path: %w", err)
		}
		s.Path = p
	default:
		return fmt.Errorf("%w %q", figure.ErrUnknownParam, name)
	}
	return nil
}

// Get formats a yt parameter.
func (s *Scene) Get(name string) (string, error) {
	c := s.Camera
	switch name {
	case "yt_focus":
		return c.Focus.String(), nil
	case "yt_position":
		return c.Position.String(), nil
	case "yt_north":
		return fmt.Sprintf("[%g,%g,%g]", c.North.X, c.North.Y, c.North.Z), nil
	case "yt_width":
		return strconv.FormatFloat(c.Width, 'g', -1, 64), nil
	case "yt_resolution":
		return fmt.Sprintf("(%d,%d)", c.Resolution[0], c.Resolution[1]), nil
	case "yt_sigma_clip":
		return strconv.FormatFloat(c.SigmaClip, 'g', -1, 64), nil
	case "yt_filter":
		return s.Filter, nil
	case "yt_path":
		return FormatPath(s.Path), nil
	}
	return "", fmt.Errorf("%w %q", figure.ErrUnknownParam, name)
}

// VolumeLimits returns the extent of a volume grid, for filling axis
// limits that are not set.
func VolumeLimits(v *Volume) scene.Limits {
	var l scene.Limits
	for k := 0; k < 3; k++ {
		l.Lo[k], l.Hi[k] = floats.Min(v.Grid[k]), floats.Max(v.Grid[k])
	}
	return l
}
