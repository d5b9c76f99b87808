package figure

import (
	"fmt"
	"image/color"
	"math"

	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/plot"
	"gonum.org/v1/plot/palette"
	"gonum.org/v1/plot/plotter"
	"gonum.org/v1/plot/plotutil"
	"gonum.org/v1/plot/vg"
	"gonum.org/v1/plot/vg/draw"
)

// Errors are the error bars of one axis. A nil *Errors means none.
// Low and High are the distances below and above each point.
type Errors struct {
	Low, High []float64
}

// Symmetric returns errors of v on both sides.
func Symmetric(v []float64) *Errors { return &Errors{Low: v, High: v} }

// Constant returns the same error e for n points.
func Constant(e float64, n int) *Errors {
	v := make([]float64, n)
	for i := range v {
		v[i] = e
	}
	return Symmetric(v)
}

// keep returns the indices of the points drawable on a, dropping
// non-finite values and non-positive ones on log axes.
func (a *axes) keep(x, y []float64) []int {
	idx := make([]int, 0, len(x))
	for i := range x {
		if math.IsNaN(x[i]) || math.IsInf(x[i], 0) || math.IsNaN(y[i]) || math.IsInf(y[i], 0) {
			continue
		}
		if (a.logx && x[i] <= 0) || (a.logy && y[i] <= 0) {
			continue
		}
		idx = append(idx, i)
	}
	return idx
}

func pick(xs, ys []float64, idx []int) plotter.XYs {
	xys := make(plotter.XYs, len(idx))
	for k, i := range idx {
		xys[k] = plotter.XY{X: xs[i], Y: ys[i]}
	}
	return xys
}

func (f *Figure) begin(cmd string, x, y []float64) (*axes, []int, error) {
	if len(x) != len(y) {
		return nil, nil, fmt.Errorf("%s: x has %d points but y has %d", cmd, len(x), len(y))
	}
	a := f.ensure()
	a.logx = a.logx || f.State.LogX
	a.logy = a.logy || f.State.LogY
	idx := a.keep(x, y)
	if len(idx) == 0 {
		return nil, nil, fmt.Errorf("%s: no finite points to draw", cmd)
	}
	return a, idx, nil
}

func (a *axes) nextColor() color.Color {
	c := plotutil.Color(a.n)
	a.n++
	return c
}

func (a *axes) legend(kw Kwargs, thumbs ...plot.Thumbnailer) {
	if label := kw.Str("label", ""); label != "" && len(thumbs) > 0 {
		a.p.Legend.Add(label, thumbs...)
		a.labels++
	}
}

// Plot draws y against x as a line, markers or both.
func (f *Figure) Plot(x, y []float64, kw Kwargs) error {
	kw = orEmpty(kw)
	a, idx, err := f.begin("plot", x, y)
	if err != nil {
		return err
	}
	xys := pick(x, y, idx)
	ls, hasLine, err := lineStyle(kw, a.nextColor())
	if err != nil {
		return err
	}
	gs, hasGlyph, err := glyphStyle(kw, ls.Color, !hasLine)
	if err != nil {
		return err
	}
	var thumbs []plot.Thumbnailer
	if hasLine {
		l, err := plotter.NewLine(xys)
		if err != nil {
			return err
		}
		l.LineStyle = ls
		a.p.Add(l)
		thumbs = append(thumbs, l)
	}
	if hasGlyph {
		s, err := plotter.NewScatter(xys)
		if err != nil {
			return err
		}
		s.GlyphStyle = gs
		a.p.Add(s)
		thumbs = append(thumbs, s)
	}
	a.legend(kw, thumbs...)
	return nil
}

// Plot1 draws y against its index.
func (f *Figure) Plot1(y []float64, kw Kwargs) error {
	x := make([]float64, len(y))
	for i := range x {
		x[i] = float64(i)
	}
	return f.Plot(x, y, kw)
}

// colorLine is a polyline whose segments take colors from a map.
type colorLine struct {
	xys   plotter.XYs
	c     []float64
	cmap  palette.ColorMap
	width vg.Length
}

func (l *colorLine) Plot(c draw.Canvas, p *plot.Plot) {
	trX, trY := p.Transforms(&c)
	sty := draw.LineStyle{Width: l.width}
	for i := 1; i < len(l.xys); i++ {
		col, err := l.cmap.At((l.c[i-1] + l.c[i]) / 2)
		if err != nil {
			continue
		}
		sty.Color = col
		a := vg.Point{X: trX(l.xys[i-1].X), Y: trY(l.xys[i-1].Y)}
		b := vg.Point{X: trX(l.xys[i].X), Y: trY(l.xys[i].Y)}
		c.StrokeLines(sty, c.ClipLinesXY([]vg.Point{a, b})...)
	}
}

func (l *colorLine) DataRange() (xmin, xmax, ymin, ymax float64) {
	return plotter.XYRange(l.xys)
}

// PlotColor draws y against x with each segment colored by c through
// the named colormap.
func (f *Figure) PlotColor(x, y, c []float64, cmapName string, kw Kwargs) error {
	kw = orEmpty(kw)
	if len(c) != len(x) {
		return fmt.Errorf("plot-color: color column has %d points, x has %d", len(c), len(x))
	}
	a, idx, err := f.begin("plot-color", x, y)
	if err != nil {
		return err
	}
	cm, err := Colormap(cmapName)
	if err != nil {
		return err
	}
	cs := make([]float64, len(idx))
	for k, i := range idx {
		cs[k] = c[i]
	}
	lo, hi := rangeOf(cs)
	cm.SetMin(lo)
	cm.SetMax(hi)
	a.p.Add(&colorLine{
		xys:   pick(x, y, idx),
		c:     cs,
		cmap:  cm,
		width: vg.Points(firstFloat(kw, 1, "lw", "linewidth")),
	})
	f.image(a, cm, lo, hi, kw)
	return nil
}

// Scatter draws markers. s, when non-nil, gives marker areas in
// points squared; c, when non-nil, gives values mapped to colors.
func (f *Figure) Scatter(x, y, s, c []float64, kw Kwargs) error {
	kw = orEmpty(kw)
	if (s != nil && len(s) != len(x)) || (c != nil && len(c) != len(x)) {
		return fmt.Errorf("scatter: size and color columns must match x (%d points)", len(x))
	}
	a, idx, err := f.begin("scatter", x, y)
	if err != nil {
		return err
	}
	def := a.nextColor()
	if col := first(kw, "", "color", "c"); col != "" {
		if def, err = ParseColor(col); err != nil {
			return err
		}
	}
	gs, _, err := glyphStyle(kw, withAlpha(def, kw.Float("alpha", 1)), true)
	if err != nil {
		return err
	}
	sc, err := plotter.NewScatter(pick(x, y, idx))
	if err != nil {
		return err
	}
	sc.GlyphStyle = gs

	var cm palette.ColorMap
	var cs []float64
	if c != nil {
		if cm, err = Colormap(kw.Str("cmap", "")); err != nil {
			return err
		}
		cs = make([]float64, len(idx))
		for k, i := range idx {
			cs[k] = c[i]
		}
		lo, hi := rangeOf(cs)
		cm.SetMin(lo)
		cm.SetMax(hi)
		f.image(a, cm, lo, hi, kw)
	}
	if s != nil || c != nil {
		sc.GlyphStyleFunc = func(k int) draw.GlyphStyle {
			g := gs
			if s != nil {
				g.Radius = vg.Points(math.Sqrt(math.Max(s[idx[k]], 0)) / 2)
			}
			if cm != nil {
				if col, err := cm.At(cs[k]); err == nil {
					g.Color = col
				}
			}
			return g
		}
	}
	a.p.Add(sc)
	a.legend(kw, sc)
	return nil
}

type xErrs struct {
	plotter.XYs
	e *Errors
}

func (e xErrs) XError(i int) (float64, float64) { return e.e.Low[i], e.e.High[i] }

type yErrs struct {
	plotter.XYs
	e *Errors
}

func (e yErrs) YError(i int) (float64, float64) { return e.e.Low[i], e.e.High[i] }

func (e *Errors) pick(idx []int) *Errors {
	out := &Errors{Low: make([]float64, len(idx)), High: make([]float64, len(idx))}
	for k, i := range idx {
		out.Low[k], out.High[k] = math.Abs(e.Low[i]), math.Abs(e.High[i])
	}
	return out
}

// Errorbar draws points with x and/or y error bars.
func (f *Figure) Errorbar(x, y []float64, xerr, yerr *Errors, kw Kwargs) error {
	kw = orEmpty(kw)
	for _, e := range []*Errors{xerr, yerr} {
		if e != nil && (len(e.Low) != len(x) || len(e.High) != len(x)) {
			return fmt.Errorf("errorbar: error columns must have %d points", len(x))
		}
	}
	a, idx, err := f.begin("errorbar", x, y)
	if err != nil {
		return err
	}
	xys := pick(x, y, idx)
	ls, hasLine, err := lineStyle(kw, a.nextColor())
	if err != nil {
		return err
	}
	var thumbs []plot.Thumbnailer
	if hasLine {
		l, err := plotter.NewLine(xys)
		if err != nil {
			return err
		}
		l.LineStyle = ls
		a.p.Add(l)
		thumbs = append(thumbs, l)
	}
	gs, hasGlyph, err := glyphStyle(kw, ls.Color, false)
	if err != nil {
		return err
	}
	if hasGlyph {
		s, err := plotter.NewScatter(xys)
		if err != nil {
			return err
		}
		s.GlyphStyle = gs
		a.p.Add(s)
		thumbs = append(thumbs, s)
	}
	bar := ls
	bar.Dashes = nil
	if xerr != nil {
		b, err := plotter.NewXErrorBars(xErrs{xys, xerr.pick(idx)})
		if err != nil {
			return err
		}
		b.LineStyle = bar
		a.p.Add(b)
	}
	if yerr != nil {
		b, err := plotter.NewYErrorBars(yErrs{xys, yerr.pick(idx)})
		if err != nil {
			return err
		}
		b.LineStyle = bar
		a.p.Add(b)
	}
	a.legend(kw, thumbs...)
	return nil
}

func (f *Figure) histStyle(a *axes, h *plotter.Histogram, kw Kwargs) error {
	ls, hasLine, err := lineStyle(kw, a.nextColor())
	if err != nil {
		return err
	}
	h.FillColor = withAlpha(ls.Color, kw.Float("alpha", 0.6))
	h.LineStyle = ls
	if !hasLine {
		h.LineStyle.Width = 0
	}
	if kw.Bool("density", false) {
		h.Normalize(1)
	}
	return nil
}

// HistPlot bins raw values into bins (keyword bins, default 10) and
// draws the histogram.
func (f *Figure) HistPlot(values []float64, kw Kwargs) error {
	kw = orEmpty(kw)
	var vs plotter.Values
	for _, v := range values {
		if !math.IsNaN(v) && !math.IsInf(v, 0) {
			vs = append(vs, v)
		}
	}
	if len(vs) == 0 {
		return fmt.Errorf("hist-plot: no finite values")
	}
	bins := kw.Int("bins", 10)
	if bins < 1 {
		return fmt.Errorf("hist-plot: bins must be positive, got %d", bins)
	}
	a := f.ensure()
	h, err := plotter.NewHist(vs, bins)
	if err != nil {
		return err
	}
	if err := f.histStyle(a, h, kw); err != nil {
		return err
	}
	a.p.Add(h)
	a.legend(kw, h)
	return nil
}

// HistPlotBinned draws a pre-binned histogram; edges has one more
// element than weights.
func (f *Figure) HistPlotBinned(edges, weights []float64, kw Kwargs) error {
	kw = orEmpty(kw)
	if len(weights) == 0 || len(edges) != len(weights)+1 {
		return fmt.Errorf("hist-plot: %d edges for %d bins", len(edges), len(weights))
	}
	bins := make([]plotter.HistogramBin, len(weights))
	for i, w := range weights {
		bins[i] = plotter.HistogramBin{Min: edges[i], Max: edges[i+1], Weight: w}
	}
	a := f.ensure()
	h := &plotter.Histogram{Bins: bins, Width: (edges[len(edges)-1] - edges[0]) / float64(len(weights))}
	if err := f.histStyle(a, h, kw); err != nil {
		return err
	}
	a.p.Add(h)
	a.legend(kw, h)
	return nil
}

// EdgesFromReps reconstructs bin edges from bin midpoints.
func EdgesFromReps(reps []float64) []float64 {
	n := len(reps)
	if n == 0 {
		return nil
	}
	if n == 1 {
		return []float64{reps[0] - 0.5, reps[0] + 0.5}
	}
	e := make([]float64, n+1)
	for i := 1; i < n; i++ {
		e[i] = (reps[i-1] + reps[i]) / 2
	}
	e[0] = reps[0] - (e[1] - reps[0])
	e[n] = reps[n-1] + (reps[n-1] - e[n-1])
	return e
}

// Hist2DPlot bins raw (x, y) pairs into a bins x bins grid (keywords
// bins, or xbins and ybins) and draws it as a density plot.
func (f *Figure) Hist2DPlot(x, y []float64, kw Kwargs) error {
	kw = orEmpty(kw)
	if len(x) != len(y) || len(x) == 0 {
		return fmt.Errorf("hist2d-plot: need equal non-empty columns, got %d and %d", len(x), len(y))
	}
	nb := kw.Int("bins", 10)
	nx, ny := kw.Int("xbins", nb), kw.Int("ybins", nb)
	if nx < 2 || ny < 2 {
		return fmt.Errorf("hist2d-plot: need at least two bins per axis")
	}
	g := Bin2D(x, y, nx, ny)
	return f.DenPlot(g, kw)
}

// Bin2D counts (x, y) pairs on an nx x ny grid spanning their range.
// The grid coordinates are bin centers.
func Bin2D(x, y []float64, nx, ny int) Grid {
	xlo, xhi := rangeOf(x)
	ylo, yhi := rangeOf(y)
	g := Grid{
		X:    centers(xlo, xhi, nx),
		Y:    centers(ylo, yhi, ny),
		Data: make([]float64, nx*ny),
	}
	for k := range x {
		i := binOf(x[k], xlo, xhi, nx)
		j := binOf(y[k], ylo, yhi, ny)
		if i >= 0 && j >= 0 {
			g.Data[i*ny+j]++
		}
	}
	return g
}

func centers(lo, hi float64, n int) []float64 {
	edges := make([]float64, n+1)
	floats.Span(edges, lo, hi)
	c := make([]float64, n)
	for i := range c {
		c[i] = (edges[i] + edges[i+1]) / 2
	}
	return c
}

func binOf(v, lo, hi float64, n int) int {
	if math.IsNaN(v) || v < lo || v > hi {
		return -1
	}
	i := int((v - lo) / (hi - lo) * float64(n))
	if i == n {
		i--
	}
	return i
}

// rangeOf returns the finite extrema of v, widened when degenerate.
func rangeOf(v []float64) (lo, hi float64) {
	lo, hi = math.Inf(1), math.Inf(-1)
	for _, x := range v {
		if math.IsNaN(x) || math.IsInf(x, 0) {
			continue
		}
		lo, hi = math.Min(lo, x), math.Max(hi, x)
	}
	if math.IsInf(lo, 1) {
		return 0, 1
	}
	if lo == hi {
		lo, hi = lo-0.5, hi+0.5
	}
	return lo, hi
}

// RPlot fills the region enclosed by (x1, y1) or, with x2 and y2 set,
// the region between the two curves.
func (f *Figure) RPlot(x1, y1, x2, y2 []float64, kw Kwargs) error {
	kw = orEmpty(kw)
	if len(x1) != len(y1) || len(x2) != len(y2) {
		return fmt.Errorf("rplot: coordinate columns differ in length")
	}
	xs := append([]float64(nil), x1...)
	ys := append([]float64(nil), y1...)
	for i := len(x2) - 1; i >= 0; i-- {
		xs = append(xs, x2[i])
		ys = append(ys, y2[i])
	}
	a, idx, err := f.begin("rplot", xs, ys)
	if err != nil {
		return err
	}
	if len(idx) < 3 {
		return fmt.Errorf("rplot: a region needs at least three points")
	}
	poly, err := plotter.NewPolygon(pick(xs, ys, idx))
	if err != nil {
		return err
	}
	ls, hasLine, err := lineStyle(kw, a.nextColor())
	if err != nil {
		return err
	}
	poly.Color = withAlpha(ls.Color, kw.Float("alpha", 0.5))
	if fc := kw.Str("fc", ""); fc != "" {
		c, err := ParseColor(fc)
		if err != nil {
			return err
		}
		poly.Color = c
	}
	poly.LineStyle = ls
	if !hasLine {
		poly.LineStyle.Width = 0
	}
	a.p.Add(poly)
	a.legend(kw, poly)
	return nil
}
