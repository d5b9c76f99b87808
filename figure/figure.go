// Package figure is the 2-D plot driver. A Figure holds a grid of axes
// plus insets, drawn through gonum/plot when saved.
package figure

import (
	"errors"
	"fmt"
	"math"
	"os"
	"os/exec"
	"path/filepath"
	"strings"

	"github.com/go-kit/log"
	"github.com/go-kit/log/level"
	"gonum.org/v1/plot"
	"gonum.org/v1/plot/font"
	"gonum.org/v1/plot/palette"
	"gonum.org/v1/plot/plotter"
	"gonum.org/v1/plot/text"
	"gonum.org/v1/plot/vg"
	"gonum.org/v1/plot/vg/draw"

	"github.com/o2graph-lang/o2graph/logutil"
)

// ErrNoImage is returned by AddColorbar before any density plot.
var ErrNoImage = errors.New("no image to attach a colorbar to")

// colorSource is what a colorbar shows.
type colorSource struct {
	cmap     palette.ColorMap
	min, max float64
	label    string
}

type axes struct {
	p          *plot.Plot
	xlim, ylim [2]float64
	xset, yset bool
	logx, logy bool
	cbar       *colorSource
	// n counts the series drawn, for default color cycling.
	n int
	// labels counts legend entries.
	labels int

	inset bool
	rect  [4]float64 // left, bottom, width, height as figure fractions
}

// Adjust is the subplot geometry set by subadj, in figure fractions
// as positions of the axes block edges.
type Adjust struct {
	Left, Right, Bottom, Top float64
	WSpace, HSpace           float64
}

// Options configures a Figure.
type Options struct {
	State *State
	// Viewer, when set, is run with the image path by Show.
	Viewer string
	Logger log.Logger
}

// Figure is the plotting canvas. Methods other than Save and Show
// never touch the filesystem.
type Figure struct {
	State  *State
	Viewer string

	logger log.Logger

	rows, cols     int
	sharex, sharey bool
	axes           []*axes
	cur            *axes
	adj            *Adjust
	last           *colorSource
}

// New returns a figure with no canvas yet.
func New(opts Options) *Figure {
	st := opts.State
	if st == nil {
		st = NewState()
	}
	return &Figure{
		State:  st,
		Viewer: opts.Viewer,
		logger: logutil.With(opts.Logger, "figure"),
	}
}

// HasCanvas reports whether the canvas exists.
func (f *Figure) HasCanvas() bool { return len(f.axes) > 0 }

// Canvas creates a one-panel canvas from the current State if none
// exists yet.
func (f *Figure) Canvas() {
	if f.HasCanvas() {
		return
	}
	f.Subplots(1, 1, false, false)
}

func (f *Figure) ensure() *axes {
	f.Canvas()
	return f.cur
}

func (f *Figure) newAxes() *axes {
	a := &axes{p: plot.New()}
	if f.State.XSet {
		a.xlim, a.xset = [2]float64{f.State.XLo, f.State.XHi}, true
	}
	if f.State.YSet {
		a.ylim, a.yset = [2]float64{f.State.YLo, f.State.YHi}, true
	}
	a.logx, a.logy = f.State.LogX, f.State.LogY
	return a
}

// Subplots replaces the canvas by an nr x nc grid of axes and selects
// the first one.
func (f *Figure) Subplots(nr, nc int, sharex, sharey bool) error {
	if nr < 1 || nc < 1 {
		return fmt.Errorf("subplots: need at least one row and one column, got %dx%d", nr, nc)
	}
	f.rows, f.cols = nr, nc
	f.sharex, f.sharey = sharex, sharey
	f.axes = make([]*axes, 0, nr*nc)
	for i := 0; i < nr*nc; i++ {
		f.axes = append(f.axes, f.newAxes())
	}
	f.cur = f.axes[0]
	level.Debug(f.logger).Log("msg", "canvas", "rows", nr, "cols", nc)
	return nil
}

// Inset adds axes at the given figure fractions and selects them.
func (f *Figure) Inset(left, bottom, width, height float64) error {
	if width <= 0 || height <= 0 || left < 0 || bottom < 0 || left+width > 1 || bottom+height > 1 {
		return fmt.Errorf("inset: rectangle (%g,%g,%g,%g) not inside the figure", left, bottom, width, height)
	}
	f.Canvas()
	a := f.newAxes()
	a.inset = true
	a.rect = [4]float64{left, bottom, width, height}
	f.axes = append(f.axes, a)
	f.cur = a
	return nil
}

// SubAdjust sets the subplot geometry; keys are left, right, bottom,
// top, wspace and hspace.
func (f *Figure) SubAdjust(kw Kwargs) error {
	kw = orEmpty(kw)
	l := f.State.Layout
	adj := Adjust{Left: l.Left, Right: 1 - l.Right, Bottom: l.Bottom, Top: 1 - l.Top, WSpace: 0.2, HSpace: 0.2}
	if f.adj != nil {
		adj = *f.adj
	}
	adj.Left = kw.Float("left", adj.Left)
	adj.Right = kw.Float("right", adj.Right)
	adj.Bottom = kw.Float("bottom", adj.Bottom)
	adj.Top = kw.Float("top", adj.Top)
	adj.WSpace = kw.Float("wspace", adj.WSpace)
	adj.HSpace = kw.Float("hspace", adj.HSpace)
	if !(adj.Left < adj.Right) || !(adj.Bottom < adj.Top) {
		return fmt.Errorf("subadj: left must be below right and bottom below top")
	}
	f.adj = &adj
	return nil
}

// NumAxes returns the number of axes, insets included.
func (f *Figure) NumAxes() int { return len(f.axes) }

// SelectAxes makes axes i current; subplots come first in row-major
// order, then insets.
func (f *Figure) SelectAxes(i int) error {
	if i < 0 || i >= len(f.axes) {
		return fmt.Errorf("selax: axes %d out of range [0,%d)", i, len(f.axes))
	}
	f.cur = f.axes[i]
	return nil
}

// Title sets the title of the current axes.
func (f *Figure) Title(s string) { f.ensure().p.Title.Text = s }

// XTitle sets the x label of the current axes.
func (f *Figure) XTitle(s string) { f.ensure().p.X.Label.Text = s }

// YTitle sets the y label of the current axes.
func (f *Figure) YTitle(s string) { f.ensure().p.Y.Label.Text = s }

// XLimits sets the x range of the State and of the current axes.
func (f *Figure) XLimits(lo, hi float64) error {
	if err := f.State.SetLimits('x', lo, hi); err != nil {
		return err
	}
	if f.cur != nil {
		f.cur.xlim, f.cur.xset = [2]float64{lo, hi}, true
	}
	return nil
}

// YLimits sets the y range of the State and of the current axes.
func (f *Figure) YLimits(lo, hi float64) error {
	if err := f.State.SetLimits('y', lo, hi); err != nil {
		return err
	}
	if f.cur != nil {
		f.cur.ylim, f.cur.yset = [2]float64{lo, hi}, true
	}
	return nil
}

// ZLimits sets the color range used by later density plots.
func (f *Figure) ZLimits(lo, hi float64) error {
	return f.State.SetLimits('z', lo, hi)
}

// Clear drops the canvas. The State is kept.
func (f *Figure) Clear() {
	f.axes, f.cur, f.last = nil, nil, nil
	f.rows, f.cols = 0, 0
}

// AddColorbar attaches a colorbar for the most recent image to the
// current axes.
func (f *Figure) AddColorbar(kw Kwargs) error {
	if f.last == nil {
		return ErrNoImage
	}
	kw = orEmpty(kw)
	src := *f.last
	src.label = kw.Str("label", src.label)
	f.ensure().cbar = &src
	return nil
}

func (f *Figure) handler() text.Handler {
	if f.State.UseTeX {
		return text.Latex{Fonts: font.DefaultCache}
	}
	return plot.DefaultTextHandler
}

// decorate applies fonts, scales and limits just before drawing.
func (f *Figure) decorate(a *axes) {
	p := a.p
	h := f.handler()
	size := vg.Points(f.State.Font)
	tick := vg.Points(f.State.Layout.FontSize * 0.75)
	p.TextHandler = h
	p.Title.TextStyle.Handler = h
	p.Title.TextStyle.Font.Size = size
	for _, ax := range []*plot.Axis{&p.X, &p.Y} {
		ax.Label.TextStyle.Handler = h
		ax.Label.TextStyle.Font.Size = size
		ax.Tick.Label.Handler = h
		ax.Tick.Label.Font.Size = tick
	}
	p.Legend.TextStyle.Handler = h
	if a.logx {
		p.X.Scale = plot.LogScale{}
		p.X.Tick.Marker = plot.LogTicks{Prec: -1}
	}
	if a.logy {
		p.Y.Scale = plot.LogScale{}
		p.Y.Tick.Marker = plot.LogTicks{Prec: -1}
	}
	if a.xset {
		p.X.Min, p.X.Max = a.xlim[0], a.xlim[1]
	}
	if a.yset {
		p.Y.Min, p.Y.Max = a.ylim[0], a.ylim[1]
	}
	if a.labels > 0 {
		p.Legend.Top = true
	}
}

func (f *Figure) shareRanges() {
	grid := f.axes[:f.rows*f.cols]
	unite := func(get func(*plot.Plot) *plot.Axis) {
		lo, hi := math.Inf(1), math.Inf(-1)
		for _, a := range grid {
			ax := get(a.p)
			lo, hi = math.Min(lo, ax.Min), math.Max(hi, ax.Max)
		}
		for _, a := range grid {
			ax := get(a.p)
			ax.Min, ax.Max = lo, hi
		}
	}
	if f.sharex {
		unite(func(p *plot.Plot) *plot.Axis { return &p.X })
	}
	if f.sharey {
		unite(func(p *plot.Plot) *plot.Axis { return &p.Y })
	}
}

func (f *Figure) size() (vg.Length, vg.Length) {
	l := f.State.Layout
	return vg.Length(l.SizeX) * vg.Inch, vg.Length(l.SizeY) * vg.Inch
}

// Draw renders every axes onto dc.
func (f *Figure) Draw(dc draw.Canvas) {
	f.Canvas()
	for _, a := range f.axes {
		f.decorate(a)
	}
	f.shareRanges()

	w, h := dc.Max.X-dc.Min.X, dc.Max.Y-dc.Min.Y
	l := f.State.Layout
	adj := Adjust{Left: l.Left, Right: 1 - l.Right, Bottom: l.Bottom, Top: 1 - l.Top, WSpace: 0.2, HSpace: 0.2}
	if f.adj != nil {
		adj = *f.adj
	}
	tiles := draw.Tiles{
		Rows: f.rows, Cols: f.cols,
		PadLeft:   vg.Length(adj.Left) * w,
		PadRight:  vg.Length(1-adj.Right) * w,
		PadBottom: vg.Length(adj.Bottom) * h,
		PadTop:    vg.Length(1-adj.Top) * h,
		PadX:      vg.Length(adj.WSpace) * w / vg.Length(f.cols) / 2,
		PadY:      vg.Length(adj.HSpace) * h / vg.Length(f.rows) / 2,
	}
	for i, a := range f.axes {
		var tc draw.Canvas
		if a.inset {
			r := a.rect
			tc = draw.Crop(dc,
				vg.Length(r[0])*w, -vg.Length(1-r[0]-r[2])*w,
				vg.Length(r[1])*h, -vg.Length(1-r[1]-r[3])*h)
		} else {
			tc = tiles.At(dc, i%f.cols, i/f.cols)
		}
		f.drawAxes(a, tc)
	}
}

func (f *Figure) drawAxes(a *axes, tc draw.Canvas) {
	if a.cbar == nil {
		a.p.Draw(tc)
		return
	}
	w := tc.Max.X - tc.Min.X
	a.p.Draw(draw.Crop(tc, 0, -0.2*w, 0, 0))

	cb := plot.New()
	cm := a.cbar.cmap
	lo, hi := a.cbar.min, a.cbar.max
	if !(lo < hi) {
		hi = lo + 1
	}
	cm.SetMin(lo)
	cm.SetMax(hi)
	cb.Add(&plotter.ColorBar{ColorMap: cm, Vertical: true})
	cb.HideX()
	cb.Y.Label.Text = a.cbar.label
	cb.TextHandler = f.handler()
	cb.Y.Tick.Label.Font.Size = vg.Points(f.State.Layout.FontSize * 0.75)
	cb.Draw(draw.Crop(tc, 0.82*w, 0, 0, 0))
}

// Save writes the figure; the format follows the extension, png when
// there is none.
func (f *Figure) Save(path string) error {
	ext := strings.TrimPrefix(filepath.Ext(path), ".")
	if ext == "" {
		ext = "png"
		path += ".png"
	}
	w, h := f.size()
	c, err := draw.NewFormattedCanvas(w, h, strings.ToLower(ext))
	if err != nil {
		return fmt.Errorf("save %s: %w", path, err)
	}
	f.Draw(draw.New(c))

	out, err := os.Create(path)
	if err != nil {
		return err
	}
	if _, err := c.WriteTo(out); err != nil {
		out.Close()
		return fmt.Errorf("save %s: %w", path, err)
	}
	level.Info(f.logger).Log("msg", "saved figure", "path", path)
	return out.Close()
}

// Show saves the figure to a temporary PNG and, if a viewer is set,
// opens it. It returns the image path.
func (f *Figure) Show() (string, error) {
	path := filepath.Join(os.TempDir(), "o2graph_show.png")
	if err := f.Save(path); err != nil {
		return "", err
	}
	if f.Viewer != "" {
		if err := exec.Command(f.Viewer, path).Start(); err != nil {
			return path, fmt.Errorf("show: starting %s: %w", f.Viewer, err)
		}
	}
	return path, nil
}
