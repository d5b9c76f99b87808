package figure

import (
	"fmt"
	"image/color"
	"sort"
	"strconv"
	"strings"

	"golang.org/x/image/colornames"
	"gonum.org/v1/plot/palette"
	"gonum.org/v1/plot/palette/moreland"
	"gonum.org/v1/plot/plotter"
	"gonum.org/v1/plot/plotutil"
	"gonum.org/v1/plot/vg"
	"gonum.org/v1/plot/vg/draw"
)

// Kwargs is the keyword-argument view the drawing primitives read.
// dispatch.Kwargs satisfies it.
type Kwargs interface {
	Has(key string) bool
	Str(key, def string) string
	Float(key string, def float64) float64
	Int(key string, def int) int
	Bool(key string, def bool) bool
}

type noKwargs struct{}

func (noKwargs) Has(string) bool                   { return false }
func (noKwargs) Str(_, def string) string          { return def }
func (noKwargs) Float(_ string, d float64) float64 { return d }
func (noKwargs) Int(_ string, d int) int           { return d }
func (noKwargs) Bool(_ string, d bool) bool        { return d }

func orEmpty(kw Kwargs) Kwargs {
	if kw == nil {
		return noKwargs{}
	}
	return kw
}

// first returns the value of the first key present.
func first(kw Kwargs, def string, keys ...string) string {
	for _, k := range keys {
		if kw.Has(k) {
			return kw.Str(k, def)
		}
	}
	return def
}

func firstFloat(kw Kwargs, def float64, keys ...string) float64 {
	for _, k := range keys {
		if kw.Has(k) {
			return kw.Float(k, def)
		}
	}
	return def
}

var shortColors = map[string]color.Color{
	"r": colornames.Red, "g": colornames.Green, "b": colornames.Blue,
	"k": color.Black, "w": color.White, "c": colornames.Cyan,
	"m": colornames.Magenta, "y": colornames.Yellow,
}

// ParseColor accepts single-letter and CSS color names, "#rrggbb",
// "#rrggbbaa" and "Cn" for the n-th default cycle color.
func ParseColor(s string) (color.Color, error) {
	s = strings.ToLower(strings.TrimSpace(s))
	if c, ok := shortColors[s]; ok {
		return c, nil
	}
	if c, ok := colornames.Map[strings.ReplaceAll(s, " ", "")]; ok {
		return c, nil
	}
	if len(s) == 2 && s[0] == 'c' && s[1] >= '0' && s[1] <= '9' {
		return plotutil.Color(int(s[1] - '0')), nil
	}
	if strings.HasPrefix(s, "#") && (len(s) == 7 || len(s) == 9) {
		v, err := strconv.ParseUint(s[1:], 16, 32)
		if err == nil {
			if len(s) == 7 {
				return color.NRGBA{uint8(v >> 16), uint8(v >> 8), uint8(v), 0xff}, nil
			}
			return color.NRGBA{uint8(v >> 24), uint8(v >> 16), uint8(v >> 8), uint8(v)}, nil
		}
	}
	return nil, fmt.Errorf("unknown color %q", s)
}

func withAlpha(c color.Color, alpha float64) color.Color {
	if alpha >= 1 || alpha < 0 {
		return c
	}
	r, g, b, a := c.RGBA()
	f := func(v uint32) uint8 { return uint8(float64(v>>8) * alpha) }
	return color.RGBA{f(r), f(g), f(b), f(a)}
}

var colormaps = map[string]func() palette.ColorMap{
	"blackbody":          moreland.BlackBody,
	"extended_blackbody": moreland.ExtendedBlackBody,
	"kindlmann":          moreland.Kindlmann,
	"extended_kindlmann": moreland.ExtendedKindlmann,
	"bluered":            func() palette.ColorMap { return moreland.SmoothBlueRed() },
	"bluetan":            func() palette.ColorMap { return moreland.SmoothBlueTan() },
	"greenpurple":        func() palette.ColorMap { return moreland.SmoothGreenPurple() },
	"greenred":           func() palette.ColorMap { return moreland.SmoothGreenRed() },
	"purpleorange":       func() palette.ColorMap { return moreland.SmoothPurpleOrange() },
}

// Common names mapped onto the closest available map.
var colormapAliases = map[string]string{
	"hot": "blackbody", "afmhot": "blackbody", "gist_heat": "blackbody",
	"inferno": "extended_blackbody", "magma": "extended_blackbody",
	"viridis": "extended_kindlmann", "plasma": "extended_kindlmann", "jet": "extended_kindlmann",
	"coolwarm": "bluered", "bwr": "bluered", "seismic": "bluered", "rdbu": "bluered",
	"prgn": "greenpurple", "puor": "purpleorange", "brbg": "bluetan",
}

// DefaultColormap is used when no cmap keyword is given.
const DefaultColormap = "extended_kindlmann"

// Colormap returns a fresh color map by name. A "_r" suffix reverses it.
func Colormap(name string) (palette.ColorMap, error) {
	n := strings.ToLower(strings.TrimSpace(name))
	if n == "" {
		n = DefaultColormap
	}
	rev := strings.HasSuffix(n, "_r")
	n = strings.TrimSuffix(n, "_r")
	if a, ok := colormapAliases[n]; ok {
		n = a
	}
	mk, ok := colormaps[n]
	if !ok {
		return nil, fmt.Errorf("unknown colormap %q (have %s)", name, strings.Join(ColormapNames(), ", "))
	}
	cm := mk()
	if rev {
		cm = palette.Reverse(cm)
	}
	return cm, nil
}

// ColormapNames lists the colormap names and aliases.
func ColormapNames() []string {
	var out []string
	for k := range colormaps {
		out = append(out, k)
	}
	for k := range colormapAliases {
		out = append(out, k)
	}
	sort.Strings(out)
	return out
}

var dashes = map[string][]vg.Length{
	"-":  nil,
	"--": {vg.Points(6), vg.Points(3)},
	":":  {vg.Points(1), vg.Points(2)},
	"-.": {vg.Points(6), vg.Points(2), vg.Points(1), vg.Points(2)},
}

// lineStyle builds a line style from color/c, lw/linewidth, ls/linestyle
// and alpha. ok is false for ls=none.
func lineStyle(kw Kwargs, def color.Color) (sty draw.LineStyle, ok bool, err error) {
	sty = plotter.DefaultLineStyle
	sty.Color = def
	if c := first(kw, "", "color", "c"); c != "" {
		if sty.Color, err = ParseColor(c); err != nil {
			return sty, false, err
		}
	}
	sty.Color = withAlpha(sty.Color, kw.Float("alpha", 1))
	sty.Width = vg.Points(firstFloat(kw, 1, "lw", "linewidth"))
	ls := first(kw, "-", "ls", "linestyle")
	if ls == "none" || ls == "" || ls == "None" {
		return sty, false, nil
	}
	d, found := dashes[ls]
	if !found {
		return sty, false, fmt.Errorf("unknown line style %q", ls)
	}
	sty.Dashes = d
	return sty, true, nil
}

var glyphs = map[string]draw.GlyphDrawer{
	"o": draw.CircleGlyph{},
	".": draw.CircleGlyph{},
	"s": draw.SquareGlyph{},
	"^": draw.TriangleGlyph{},
	"x": draw.CrossGlyph{},
	"+": draw.PlusGlyph{},
	"*": draw.RingGlyph{},
	"D": draw.BoxGlyph{},
	"p": draw.PyramidGlyph{},
}

// glyphStyle builds a marker style from marker, ms/markersize and the
// line color. ok is false without a marker keyword unless always is set.
func glyphStyle(kw Kwargs, c color.Color, always bool) (sty draw.GlyphStyle, ok bool, err error) {
	m := first(kw, "", "marker", "m")
	if m == "" {
		if !always {
			return sty, false, nil
		}
		m = "o"
	}
	g, found := glyphs[m]
	if !found {
		return sty, false, fmt.Errorf("unknown marker %q", m)
	}
	size := firstFloat(kw, 3, "ms", "markersize")
	if m == "." {
		size = firstFloat(kw, 1.5, "ms", "markersize")
	}
	return draw.GlyphStyle{Color: c, Radius: vg.Points(size), Shape: g}, true, nil
}
