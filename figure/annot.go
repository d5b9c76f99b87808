package figure

import (
	"image/color"
	"math"

	"gonum.org/v1/plot"
	"gonum.org/v1/plot/font"
	"gonum.org/v1/plot/text"
	"gonum.org/v1/plot/vg"
	"gonum.org/v1/plot/vg/draw"
)

// mark is an annotation drawn in data or axes-relative coordinates.
// Marks do not extend the axis ranges.
type mark struct {
	relative bool
	draw     func(c draw.Canvas, pt func(x, y float64) vg.Point)
}

func (m mark) Plot(c draw.Canvas, p *plot.Plot) {
	pt := func(x, y float64) vg.Point {
		return vg.Point{
			X: c.Min.X + vg.Length(x)*(c.Max.X-c.Min.X),
			Y: c.Min.Y + vg.Length(y)*(c.Max.Y-c.Min.Y),
		}
	}
	if !m.relative {
		trX, trY := p.Transforms(&c)
		pt = func(x, y float64) vg.Point { return vg.Point{X: trX(x), Y: trY(y)} }
	}
	m.draw(c, pt)
}

func (f *Figure) add(m mark) {
	f.ensure().p.Add(m)
}

// Line draws a segment between two data points.
func (f *Figure) Line(x1, y1, x2, y2 float64, kw Kwargs) error {
	kw = orEmpty(kw)
	ls, ok, err := lineStyle(kw, color.Black)
	if err != nil || !ok {
		return err
	}
	f.add(mark{draw: func(c draw.Canvas, pt func(x, y float64) vg.Point) {
		c.StrokeLine2(ls, pt(x1, y1).X, pt(x1, y1).Y, pt(x2, y2).X, pt(x2, y2).Y)
	}})
	return nil
}

// Arrow draws a segment from (x1, y1) to (x2, y2) with a head at the
// end. The head_width keyword sets the head size in points.
func (f *Figure) Arrow(x1, y1, x2, y2 float64, kw Kwargs) error {
	kw = orEmpty(kw)
	ls, _, err := lineStyle(kw, color.Black)
	if err != nil {
		return err
	}
	head := vg.Points(kw.Float("head_width", 6))
	f.add(mark{draw: func(c draw.Canvas, pt func(x, y float64) vg.Point) {
		a, b := pt(x1, y1), pt(x2, y2)
		c.StrokeLine2(ls, a.X, a.Y, b.X, b.Y)
		d := b.Sub(a)
		n := vg.Length(math.Hypot(float64(d.X), float64(d.Y)))
		if n == 0 {
			return
		}
		u := d.Scale(1 / n)
		perp := vg.Point{X: -u.Y, Y: u.X}
		base := b.Sub(u.Scale(head * 1.5))
		c.FillPolygon(ls.Color, []vg.Point{b, base.Add(perp.Scale(head / 2)), base.Sub(perp.Scale(head / 2))})
	}})
	return nil
}

func polygonStyle(kw Kwargs) (fill color.Color, ls draw.LineStyle, stroke bool, err error) {
	ls, stroke, err = lineStyle(kw, color.Black)
	if err != nil {
		return nil, ls, false, err
	}
	if fc := first(kw, "", "fc", "facecolor"); fc != "" && fc != "none" {
		if fill, err = ParseColor(fc); err != nil {
			return nil, ls, false, err
		}
		fill = withAlpha(fill, kw.Float("alpha", 1))
	}
	return fill, ls, stroke, nil
}

func (f *Figure) polygon(xs, ys []float64, kw Kwargs) error {
	fill, ls, stroke, err := polygonStyle(orEmpty(kw))
	if err != nil {
		return err
	}
	f.add(mark{draw: func(c draw.Canvas, pt func(x, y float64) vg.Point) {
		pts := make([]vg.Point, len(xs))
		for i := range xs {
			pts[i] = pt(xs[i], ys[i])
		}
		if fill != nil {
			c.FillPolygon(fill, c.ClipPolygonXY(pts))
		}
		if stroke {
			c.StrokeLines(ls, c.ClipLinesXY(append(pts, pts[0]))...)
		}
	}})
	return nil
}

// Rect draws the rectangle with corners (x1, y1) and (x2, y2), rotated
// by angle degrees about its center.
func (f *Figure) Rect(x1, y1, x2, y2, angle float64, kw Kwargs) error {
	cx, cy := (x1+x2)/2, (y1+y2)/2
	hw, hh := math.Abs(x2-x1)/2, math.Abs(y2-y1)/2
	corners := [][2]float64{{-hw, -hh}, {hw, -hh}, {hw, hh}, {-hw, hh}}
	s, c := math.Sincos(angle * math.Pi / 180)
	xs, ys := make([]float64, 4), make([]float64, 4)
	for i, p := range corners {
		xs[i] = cx + p[0]*c - p[1]*s
		ys[i] = cy + p[0]*s + p[1]*c
	}
	return f.polygon(xs, ys, kw)
}

// Ellipse draws an ellipse centered at (x, y) with full width w and
// height h, rotated by angle degrees.
func (f *Figure) Ellipse(x, y, w, h, angle float64, kw Kwargs) error {
	const n = 90
	s, c := math.Sincos(angle * math.Pi / 180)
	xs, ys := make([]float64, n), make([]float64, n)
	for i := 0; i < n; i++ {
		t := 2 * math.Pi * float64(i) / n
		ex, ey := w/2*math.Cos(t), h/2*math.Sin(t)
		xs[i] = x + ex*c - ey*s
		ys[i] = y + ex*s + ey*c
	}
	return f.polygon(xs, ys, kw)
}

func (f *Figure) textStyle(kw Kwargs) (text.Style, error) {
	col := color.Color(color.Black)
	if cs := first(kw, "", "color", "c"); cs != "" {
		var err error
		if col, err = ParseColor(cs); err != nil {
			return text.Style{}, err
		}
	}
	sty := text.Style{
		Color:    col,
		Font:     font.From(plot.DefaultFont, vg.Points(kw.Float("fontsize", f.State.Font))),
		Rotation: kw.Float("rotation", 0) * math.Pi / 180,
		XAlign:   draw.XCenter,
		YAlign:   draw.YCenter,
		Handler:  f.handler(),
	}
	switch kw.Str("ha", "center") {
	case "left":
		sty.XAlign = draw.XLeft
	case "right":
		sty.XAlign = draw.XRight
	}
	switch kw.Str("va", "center") {
	case "top":
		sty.YAlign = draw.YTop
	case "bottom":
		sty.YAlign = draw.YBottom
	}
	return sty, nil
}

// Text writes s at a data point.
func (f *Figure) Text(x, y float64, s string, kw Kwargs) error {
	return f.text(false, x, y, s, orEmpty(kw), false)
}

// TText writes s at axes-relative coordinates in [0,1].
func (f *Figure) TText(x, y float64, s string, kw Kwargs) error {
	return f.text(true, x, y, s, orEmpty(kw), false)
}

// TextBox writes s at axes-relative coordinates inside a filled box;
// keywords fc and ec set the fill and edge colors.
func (f *Figure) TextBox(x, y float64, s string, kw Kwargs) error {
	return f.text(true, x, y, s, orEmpty(kw), true)
}

func (f *Figure) text(relative bool, x, y float64, s string, kw Kwargs, box bool) error {
	sty, err := f.textStyle(kw)
	if err != nil {
		return err
	}
	fill, edge := color.Color(color.White), color.Color(color.Black)
	if box {
		if fc := kw.Str("fc", ""); fc != "" {
			if fill, err = ParseColor(fc); err != nil {
				return err
			}
		}
		if ec := kw.Str("ec", ""); ec != "" {
			if edge, err = ParseColor(ec); err != nil {
				return err
			}
		}
	}
	f.add(mark{relative: relative, draw: func(c draw.Canvas, pt func(x, y float64) vg.Point) {
		at := pt(x, y)
		if box {
			pad := sty.Font.Size / 3
			r := sty.Rectangle(s).Add(at)
			pts := []vg.Point{
				{X: r.Min.X - pad, Y: r.Min.Y - pad},
				{X: r.Max.X + pad, Y: r.Min.Y - pad},
				{X: r.Max.X + pad, Y: r.Max.Y + pad},
				{X: r.Min.X - pad, Y: r.Max.Y + pad},
			}
			c.FillPolygon(fill, pts)
			c.StrokeLines(draw.LineStyle{Color: edge, Width: vg.Points(0.8)}, append(pts, pts[0]))
		}
		c.FillText(sty, at, s)
	}})
	return nil
}
