package figure

import (
	"fmt"
	"image"
	"image/color"
	"math"

	"gonum.org/v1/plot/palette"
	"gonum.org/v1/plot/plotter"
)

// Grid is a function sampled on a rectilinear grid. Data[i*len(Y)+j]
// is the value at (X[i], Y[j]).
type Grid struct {
	X, Y []float64
	Data []float64
}

// Validate checks the shape and that both axes increase.
func (g Grid) Validate() error {
	if len(g.X) < 2 || len(g.Y) < 2 {
		return fmt.Errorf("grid needs at least 2x2 points, got %dx%d", len(g.X), len(g.Y))
	}
	if len(g.Data) != len(g.X)*len(g.Y) {
		return fmt.Errorf("grid data has %d values, want %d", len(g.Data), len(g.X)*len(g.Y))
	}
	for _, ax := range [][]float64{g.X, g.Y} {
		for i := 1; i < len(ax); i++ {
			if !(ax[i] > ax[i-1]) {
				return fmt.Errorf("grid coordinates must increase")
			}
		}
	}
	return nil
}

// At returns the value at (X[i], Y[j]).
func (g Grid) At(i, j int) float64 { return g.Data[i*len(g.Y)+j] }

// gridXYZ adapts a Grid to plotter.GridXYZ, optionally in log10.
type gridXYZ struct {
	g   Grid
	log bool
}

func (a gridXYZ) Dims() (c, r int) { return len(a.g.X), len(a.g.Y) }
func (a gridXYZ) X(c int) float64  { return a.g.X[c] }
func (a gridXYZ) Y(r int) float64  { return a.g.Y[r] }
func (a gridXYZ) Z(c, r int) float64 {
	v := a.g.At(c, r)
	if a.log {
		if v <= 0 {
			return math.NaN()
		}
		return math.Log10(v)
	}
	return v
}

func (a gridXYZ) zrange() (lo, hi float64) {
	return rangeOf(a.values())
}

// image records the color mapping of the latest image and attaches a
// colorbar when the State asks for one.
func (f *Figure) image(a *axes, cm palette.ColorMap, lo, hi float64, kw Kwargs) {
	f.last = &colorSource{cmap: cm, min: lo, max: hi, label: kw.Str("cbar_label", "")}
	if f.State.Colbar {
		src := *f.last
		a.cbar = &src
	}
}

// colorRange picks the color limits: zmin/zmax keywords, then the
// State z limits, then the data range.
func (f *Figure) colorRange(g gridXYZ, kw Kwargs) (float64, float64) {
	lo, hi := g.zrange()
	if f.State.ZSet {
		lo, hi = f.State.ZLo, f.State.ZHi
		if g.log && lo > 0 {
			lo, hi = math.Log10(lo), math.Log10(hi)
		}
	}
	lo, hi = kw.Float("zmin", lo), kw.Float("zmax", hi)
	if !(lo < hi) {
		hi = lo + 1
	}
	return lo, hi
}

// DenPlot draws g as a heat map using the cmap keyword.
func (f *Figure) DenPlot(g Grid, kw Kwargs) error {
	kw = orEmpty(kw)
	if err := g.Validate(); err != nil {
		return fmt.Errorf("den-plot: %w", err)
	}
	cm, err := Colormap(kw.Str("cmap", ""))
	if err != nil {
		return err
	}
	a := f.ensure()
	gz := gridXYZ{g: g, log: f.State.LogZ || kw.Bool("logz", false)}
	lo, hi := f.colorRange(gz, kw)
	cm.SetMin(lo)
	cm.SetMax(hi)
	pal := cm.Palette(256)
	hm := plotter.NewHeatMap(gz, pal)
	hm.Min, hm.Max = lo, hi
	colors := pal.Colors()
	hm.Underflow, hm.Overflow = colors[0], colors[len(colors)-1]
	hm.Rasterized = true
	a.p.Add(hm)
	f.image(a, cm, lo, hi, kw)
	return nil
}

// DenPlotRGB draws three grids as the red, green and blue channels.
// Each channel is scaled to [0,1] over its own range unless the renorm
// keyword is false, in which case values are clamped to [0,1].
func (f *Figure) DenPlotRGB(r, g, b Grid, kw Kwargs) error {
	kw = orEmpty(kw)
	for _, ch := range []Grid{r, g, b} {
		if err := ch.Validate(); err != nil {
			return fmt.Errorf("den-plot-rgb: %w", err)
		}
		if len(ch.X) != len(r.X) || len(ch.Y) != len(r.Y) {
			return fmt.Errorf("den-plot-rgb: channels differ in shape")
		}
	}
	renorm := kw.Bool("renorm", true)
	nx, ny := len(r.X), len(r.Y)
	img := image.NewNRGBA(image.Rect(0, 0, nx, ny))
	scale := func(ch Grid) func(float64) uint8 {
		lo, hi := 0.0, 1.0
		if renorm {
			lo, hi = rangeOf(ch.Data)
		}
		return func(v float64) uint8 {
			t := (v - lo) / (hi - lo)
			return uint8(math.Round(255 * math.Max(0, math.Min(1, t))))
		}
	}
	sr, sg, sb := scale(r), scale(g), scale(b)
	for i := 0; i < nx; i++ {
		for j := 0; j < ny; j++ {
			img.SetNRGBA(i, ny-1-j, color.NRGBA{sr(r.At(i, j)), sg(g.At(i, j)), sb(b.At(i, j)), 0xff})
		}
	}
	dx := (r.X[nx-1] - r.X[0]) / float64(nx-1) / 2
	dy := (r.Y[ny-1] - r.Y[0]) / float64(ny-1) / 2
	a := f.ensure()
	a.p.Add(plotter.NewImage(img, r.X[0]-dx, r.Y[0]-dy, r.X[nx-1]+dx, r.Y[ny-1]+dy))
	return nil
}

// ContourLine is one polyline at a level.
type ContourLine struct {
	Level float64
	X, Y  []float64
}

// Contour draws contour lines colored by level through the cmap
// keyword, or all in the color keyword when given.
func (f *Figure) Contour(lines []ContourLine, kw Kwargs) error {
	kw = orEmpty(kw)
	if len(lines) == 0 {
		return fmt.Errorf("contour-plot: no contour lines")
	}
	levels := make([]float64, len(lines))
	for i, l := range lines {
		levels[i] = l.Level
	}
	lo, hi := rangeOf(levels)
	cm, err := Colormap(kw.Str("cmap", ""))
	if err != nil {
		return err
	}
	cm.SetMin(lo)
	cm.SetMax(hi)
	a := f.ensure()
	ls, _, err := lineStyle(kw, color.Black)
	if err != nil {
		return err
	}
	fixed := kw.Has("color") || kw.Has("c")
	for _, l := range lines {
		if len(l.X) != len(l.Y) || len(l.X) < 2 {
			continue
		}
		pl, err := plotter.NewLine(pick(l.X, l.Y, seq(len(l.X))))
		if err != nil {
			return err
		}
		pl.LineStyle = ls
		if !fixed {
			if c, err := cm.At(l.Level); err == nil {
				pl.LineStyle.Color = c
			}
		}
		a.p.Add(pl)
	}
	if !fixed {
		f.image(a, cm, lo, hi, kw)
	}
	return nil
}

func seq(n int) []int {
	s := make([]int, n)
	for i := range s {
		s[i] = i
	}
	return s
}
