package yt

import (
	"context"
	"fmt"
	"image"
	"image/color"
	"math"
	"os"
	"os/exec"
	"path/filepath"
	"sort"
	"strings"

	"github.com/go-kit/log/level"
	"gonum.org/v1/gonum/spatial/r3"
	"gonum.org/v1/gonum/stat"
	"gonum.org/v1/plot"
	"gonum.org/v1/plot/font"
	"gonum.org/v1/plot/text"
	"gonum.org/v1/plot/vg"
	"gonum.org/v1/plot/vg/draw"
	"gonum.org/v1/plot/vg/vgimg"

	"github.com/o2graph-lang/o2graph/dispatch"
	"github.com/o2graph-lang/o2graph/figure"
)

// projector is a pinhole camera over a w by h pixel frame. The frame
// spans Width internal units horizontally at the focal distance.
type projector struct {
	pos, fwd, right, up r3.Vec
	dist, width, w, h   float64
}

func newProjector(v view, w, h int) (projector, error) {
	d := r3.Sub(v.Focus, v.Position)
	dist := r3.Norm(d)
	if dist == 0 {
		return projector{}, fmt.Errorf("camera position and focus coincide")
	}
	fwd := r3.Scale(1/dist, d)
	right := r3.Cross(fwd, v.North)
	if r3.Norm(right) < 1e-12 {
		right = r3.Cross(fwd, r3.Vec{Y: 1})
		if r3.Norm(right) < 1e-12 {
			right = r3.Cross(fwd, r3.Vec{X: 1})
		}
	}
	right = r3.Unit(right)
	return projector{
		pos: v.Position, fwd: fwd, right: right, up: r3.Cross(right, fwd),
		dist: dist, width: v.Width, w: float64(w), h: float64(h),
	}, nil
}

// project returns the pixel position of p, the pixels per internal
// unit at its depth, and its depth. Points behind the camera are not
// visible.
func (pr projector) project(p r3.Vec) (pt vg.Point, scale, depth float64, ok bool) {
	d := r3.Sub(p, pr.pos)
	depth = r3.Dot(d, pr.fwd)
	if depth <= 1e-9 {
		return pt, 0, depth, false
	}
	scale = pr.dist / depth * pr.w / pr.width
	pt.X = vg.Length(pr.w/2 + r3.Dot(d, pr.right)*scale)
	pt.Y = vg.Length(pr.h/2 + r3.Dot(d, pr.up)*scale)
	return pt, scale, depth, true
}

type splat struct {
	pt     vg.Point
	radius vg.Length
	depth  float64
	c      color.Color
	square bool
}

// frame draws the scene as seen from v.
func (s *Scene) frame(v view) (*vgimg.Canvas, error) {
	w, h := s.Camera.Resolution[0], s.Camera.Resolution[1]
	pr, err := newProjector(v, w, h)
	if err != nil {
		return nil, err
	}
	c := vgimg.NewWith(vgimg.UseWH(vg.Length(w), vg.Length(h)), vgimg.UseDPI(72), vgimg.UseBackgroundColor(color.Black))
	dc := draw.New(c)
	co := s.Coords()

	var splats []splat
	for _, key := range s.keys {
		switch src := s.sources[key].(type) {
		case *Volume:
			splats = append(splats, volumeSplats(src, pr, co)...)
		case *Points:
			for i, p := range src.Pos {
				pt, scale, depth, ok := pr.project(co.Internal(p))
				if !ok {
					continue
				}
				size := 0.01
				if i < len(src.Sizes) {
					size = src.Sizes[i]
				} else if len(src.Sizes) == 1 {
					size = src.Sizes[0]
				}
				col := color.Color(color.White)
				if i < len(src.Colors) {
					col = src.Colors[i]
				} else if len(src.Colors) == 1 {
					col = src.Colors[0]
				}
				splats = append(splats, splat{pt: pt, radius: vg.Length(math.Max(0.5, size*scale/2)), depth: depth, c: col})
			}
		case *Line:
			drawSegment(dc, pr, src.From.In(co), src.To.In(co), lineStyle(src.Color, src.Width))
		case *Box:
			lo, hi := src.Lo.In(co), src.Hi.In(co)
			sty := lineStyle(src.Color, 1)
			for _, e := range boxEdges(lo, hi) {
				drawSegment(dc, pr, e[0], e[1], sty)
			}
		}
	}
	sort.SliceStable(splats, func(i, j int) bool { return splats[i].depth > splats[j].depth })
	for _, sp := range splats {
		if sp.square {
			r := sp.radius
			dc.FillPolygon(sp.c, []vg.Point{
				{X: sp.pt.X - r, Y: sp.pt.Y - r}, {X: sp.pt.X + r, Y: sp.pt.Y - r},
				{X: sp.pt.X + r, Y: sp.pt.Y + r}, {X: sp.pt.X - r, Y: sp.pt.Y + r},
			})
			continue
		}
		dc.DrawGlyph(draw.GlyphStyle{Color: sp.c, Radius: sp.radius, Shape: draw.CircleGlyph{}}, sp.pt)
	}

	if s.Camera.SigmaClip > 0 {
		sigmaClip(c.Image(), s.Camera.SigmaClip)
	}
	for _, ann := range s.Annotations {
		if err := annotators[ann.Name](dc, ann.Args); err != nil {
			return nil, fmt.Errorf("annotation %s: %w", ann.Name, err)
		}
	}
	return c, nil
}

func volumeSplats(v *Volume, pr projector, co Coords) []splat {
	nx, ny, nz := len(v.Grid[0]), len(v.Grid[1]), len(v.Grid[2])
	// Half the grid spacing, in internal units.
	cell := r3.Vec{X: 1, Y: 1, Z: 1}
	for k, n := range [3]int{nx, ny, nz} {
		if n > 1 {
			span := math.Abs(v.Grid[k][n-1]-v.Grid[k][0]) / float64(n-1)
			switch k {
			case 0:
				cell.X = span
			case 1:
				cell.Y = span
			case 2:
				cell.Z = span
			}
		}
	}
	cell = co.Scale(cell)
	half := math.Max(cell.X, math.Max(cell.Y, cell.Z)) / 2

	var out []splat
	for i := 0; i < nx; i++ {
		for j := 0; j < ny; j++ {
			for k := 0; k < nz; k++ {
				col, ok := v.TF.Sample(v.Data[(i*ny+j)*nz+k])
				if !ok {
					continue
				}
				p := co.Internal(r3.Vec{X: v.Grid[0][i], Y: v.Grid[1][j], Z: v.Grid[2][k]})
				pt, scale, depth, visible := pr.project(p)
				if !visible {
					continue
				}
				out = append(out, splat{pt: pt, radius: vg.Length(math.Max(0.5, half*scale)), depth: depth, c: col, square: true})
			}
		}
	}
	return out
}

func lineStyle(c color.Color, width float64) draw.LineStyle {
	if c == nil {
		c = color.White
	}
	if width <= 0 {
		width = 1
	}
	return draw.LineStyle{Color: c, Width: vg.Length(width)}
}

func drawSegment(dc draw.Canvas, pr projector, a, b r3.Vec, sty draw.LineStyle) {
	pa, _, _, oka := pr.project(a)
	pb, _, _, okb := pr.project(b)
	if oka && okb {
		dc.StrokeLine2(sty, pa.X, pa.Y, pb.X, pb.Y)
	}
}

func boxEdges(lo, hi r3.Vec) [][2]r3.Vec {
	corner := func(i int) r3.Vec {
		c := lo
		if i&1 != 0 {
			c.X = hi.X
		}
		if i&2 != 0 {
			c.Y = hi.Y
		}
		if i&4 != 0 {
			c.Z = hi.Z
		}
		return c
	}
	var edges [][2]r3.Vec
	for i := 0; i < 8; i++ {
		for _, bit := range []int{1, 2, 4} {
			if i&bit == 0 {
				edges = append(edges, [2]r3.Vec{corner(i), corner(i | bit)})
			}
		}
	}
	return edges
}

// sigmaClip rescales the lit pixels so that mean+sigma*stddev of their
// brightness maps to full intensity.
func sigmaClip(img image.Image, sigma float64) {
	rgba, ok := img.(*image.RGBA)
	if !ok {
		return
	}
	var lum []float64
	for i := 0; i+3 < len(rgba.Pix); i += 4 {
		if l := float64(rgba.Pix[i]) + float64(rgba.Pix[i+1]) + float64(rgba.Pix[i+2]); l > 0 {
			lum = append(lum, l/3)
		}
	}
	if len(lum) < 2 {
		return
	}
	mean, std := stat.MeanStdDev(lum, nil)
	clip := mean + sigma*std
	if clip <= 0 || clip >= 255 {
		return
	}
	f := 255 / clip
	for i := 0; i+3 < len(rgba.Pix); i += 4 {
		for k := 0; k < 3; k++ {
			rgba.Pix[i+k] = uint8(math.Min(255, float64(rgba.Pix[i+k])*f))
		}
	}
}

// annotators draw yt-ann commands in frame-relative coordinates.
var annotators = map[string]func(dc draw.Canvas, args []string) error{
	"text":  annText,
	"line":  annLine,
	"arrow": annArrow,
	"rect":  annRect,
}

func annArgs(name string, args []string, n int) (dispatch.Args, figure.Kwargs, error) {
	a := dispatch.Args{Cmd: name, Vals: args}
	var kw dispatch.Kwargs
	if len(args) > n && dispatch.LooksLikeKwargs(args[len(args)-1]) {
		var err error
		if kw, err = dispatch.ParseKwargs(args[len(args)-1], dispatch.Recipe{"fontsize": dispatch.Float, "lw": dispatch.Float}); err != nil {
			return a, kw, err
		}
		a.Vals = args[:len(args)-1]
	}
	if len(a.Vals) < n {
		return a, kw, fmt.Errorf("not enough parameters: %d given, %d needed", len(a.Vals), n)
	}
	return a, kw, nil
}

func relPoint(dc draw.Canvas, a dispatch.Args, i int) (vg.Point, error) {
	x, err := a.Float(i)
	if err != nil {
		return vg.Point{}, err
	}
	y, err := a.Float(i + 1)
	if err != nil {
		return vg.Point{}, err
	}
	return dc.Min.Add(vg.Point{X: vg.Length(x) * dc.Size().X, Y: vg.Length(y) * dc.Size().Y}), nil
}

func annColor(kw figure.Kwargs, def color.Color) (color.Color, error) {
	s := kw.Str("color", kw.Str("c", ""))
	if s == "" {
		return def, nil
	}
	return figure.ParseColor(s)
}

func annText(dc draw.Canvas, args []string) error {
	a, kw, err := annArgs("text", args, 3)
	if err != nil {
		return err
	}
	pt, err := relPoint(dc, a, 0)
	if err != nil {
		return err
	}
	c, err := annColor(kw, color.White)
	if err != nil {
		return err
	}
	sty := text.Style{
		Color:   c,
		Font:    font.From(plot.DefaultFont, vg.Length(kw.Float("fontsize", 16))),
		XAlign:  draw.XCenter,
		YAlign:  draw.YCenter,
		Handler: plot.DefaultTextHandler,
	}
	dc.FillText(sty, pt, a.Str(2))
	return nil
}

func annLine(dc draw.Canvas, args []string) error {
	a, kw, err := annArgs("line", args, 4)
	if err != nil {
		return err
	}
	p1, err := relPoint(dc, a, 0)
	if err != nil {
		return err
	}
	p2, err := relPoint(dc, a, 2)
	if err != nil {
		return err
	}
	c, err := annColor(kw, color.White)
	if err != nil {
		return err
	}
	dc.StrokeLine2(lineStyle(c, kw.Float("lw", 1)), p1.X, p1.Y, p2.X, p2.Y)
	return nil
}

func annArrow(dc draw.Canvas, args []string) error {
	if err := annLine(dc, args); err != nil {
		return err
	}
	a, kw, _ := annArgs("arrow", args, 4)
	p1, _ := relPoint(dc, a, 0)
	p2, _ := relPoint(dc, a, 2)
	c, _ := annColor(kw, color.White)
	dx, dy := float64(p2.X-p1.X), float64(p2.Y-p1.Y)
	l := math.Hypot(dx, dy)
	if l == 0 {
		return nil
	}
	ux, uy := dx/l, dy/l
	hl := math.Min(l/3, 10)
	base := vg.Point{X: p2.X - vg.Length(ux*hl), Y: p2.Y - vg.Length(uy*hl)}
	off := vg.Point{X: vg.Length(-uy * hl / 2), Y: vg.Length(ux * hl / 2)}
	dc.FillPolygon(c, []vg.Point{p2, base.Add(off), base.Sub(off)})
	return nil
}

func annRect(dc draw.Canvas, args []string) error {
	a, kw, err := annArgs("rect", args, 4)
	if err != nil {
		return err
	}
	p1, err := relPoint(dc, a, 0)
	if err != nil {
		return err
	}
	p2, err := relPoint(dc, a, 2)
	if err != nil {
		return err
	}
	pts := []vg.Point{p1, {X: p2.X, Y: p1.Y}, p2, {X: p1.X, Y: p2.Y}}
	if fc := kw.Str("fc", ""); fc != "" {
		c, err := figure.ParseColor(fc)
		if err != nil {
			return err
		}
		dc.FillPolygon(c, pts)
	}
	c, err := annColor(kw, color.White)
	if err != nil {
		return err
	}
	dc.StrokeLines(lineStyle(c, kw.Float("lw", 1)), append(pts, p1))
	return nil
}

// Render writes the frames of the camera path. Without a path a single
// frame is written to file. With one, a '*' in file is replaced by the
// frame number (appended before the extension when absent), each frame
// is passed through the yt_filter command if set, and when movie is not
// empty the frames are encoded with enc. It returns the frame files.
func (s *Scene) Render(ctx context.Context, file, movie string, enc figure.Encoder) ([]string, error) {
	if filepath.Ext(file) == "" {
		file += ".png"
	}
	co := s.Coords()
	start := view{
		Position: s.Camera.Position.In(co),
		Focus:    s.Camera.Focus.In(co),
		North:    s.Camera.North,
		Width:    s.Camera.Width,
	}
	if len(s.Path) == 0 {
		if err := s.writeFrame(ctx, file, start); err != nil {
			return nil, err
		}
		return []string{file}, nil
	}

	if !strings.Contains(file, "*") {
		ext := filepath.Ext(file)
		file = strings.TrimSuffix(file, ext) + "_*" + ext
	}
	var files []string
	err := walk(start, s.Path, co, func(i int, v view) error {
		if err := ctx.Err(); err != nil {
			return err
		}
		name := strings.Replace(file, "*", fmt.Sprintf("%04d", i), 1)
		if err := s.writeFrame(ctx, name, v); err != nil {
			return fmt.Errorf("frame %d: %w", i, err)
		}
		files = append(files, name)
		return nil
	})
	if err != nil {
		return files, err
	}
	level.Info(s.logger).Log("msg", "rendered path", "frames", len(files))
	if movie == "" {
		return files, nil
	}
	m := figure.Movie{Pattern: strings.Replace(file, "*", "%04d", 1), Out: movie}
	return files, enc.Encode(ctx, m)
}

func (s *Scene) writeFrame(ctx context.Context, name string, v view) error {
	c, err := s.frame(v)
	if err != nil {
		return err
	}
	f, err := os.Create(name)
	if err != nil {
		return err
	}
	if _, err := (vgimg.PngCanvas{Canvas: c}).WriteTo(f); err != nil {
		f.Close()
		return err
	}
	if err := f.Close(); err != nil {
		return err
	}
	level.Debug(s.logger).Log("msg", "frame", "file", name)
	if s.Filter != "" {
		return s.filter(ctx, name)
	}
	return nil
}

// filter runs the yt_filter command on a frame. In the command "%i"
// stands for the frame and "%o" for a temporary output that then
// replaces it.
func (s *Scene) filter(ctx context.Context, name string) error {
	tmp := name + ".filtered" + filepath.Ext(name)
	fields, err := dispatch.Fields(s.Filter)
	if err != nil || len(fields) == 0 {
		return fmt.Errorf("yt_filter %q: bad command", s.Filter)
	}
	r := strings.NewReplacer("%i", name, "%o", tmp)
	for i := range fields {
		fields[i] = r.Replace(fields[i])
	}
	out, err := exec.CommandContext(ctx, fields[0], fields[1:]...).CombinedOutput()
	if err != nil {
		return fmt.Errorf("yt_filter: %w\n%s", err, strings.TrimSpace(string(out)))
	}
	if strings.Contains(s.Filter, "%o") {
		return os.Rename(tmp, name)
	}
	return nil
}
