package scene

import (
	"fmt"
	"math"

	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/spatial/r3"
	"gonum.org/v1/plot/palette"
)

// ArrowOptions shape an arrow. Zero fields take defaults relative to
// the arrow length.
type ArrowOptions struct {
	Radius     float64 // shaft radius, default length/100
	HeadLength float64 // default length/10
	HeadRadius float64 // default 2.5 shaft radii
	Segments   int     // default 16
	Material   string
}

// basis returns two unit vectors orthogonal to w and to each other.
func basis(w r3.Vec) (u, v r3.Vec) {
	helper := r3.Vec{X: 1}
	if math.Abs(w.X) > 0.9 {
		helper = r3.Vec{Y: 1}
	}
	u = r3.Unit(r3.Cross(w, helper))
	v = r3.Cross(w, u)
	return u, v
}

// Arrow builds a cylinder from `from` with a cone ending at `to`.
func Arrow(name string, from, to r3.Vec, opt ArrowOptions) (*Group, error) {
	d := r3.Sub(to, from)
	length := r3.Norm(d)
	if length == 0 {
		return nil, fmt.Errorf("arrow %q: start and end coincide", name)
	}
	if opt.Radius <= 0 {
		opt.Radius = length / 100
	}
	if opt.HeadLength <= 0 {
		opt.HeadLength = length / 10
	}
	opt.HeadLength = math.Min(opt.HeadLength, length)
	if opt.HeadRadius <= 0 {
		opt.HeadRadius = 2.5 * opt.Radius
	}
	if opt.Segments < 3 {
		opt.Segments = 16
	}
	w := r3.Scale(1/length, d)
	u, v := basis(w)
	n := opt.Segments
	radial := func(k int) r3.Vec {
		t := 2 * math.Pi * float64(k) / float64(n)
		return r3.Add(r3.Scale(math.Cos(t), u), r3.Scale(math.Sin(t), v))
	}
	g := &Group{Name: name, Material: opt.Material}
	neck := r3.Add(from, r3.Scale(length-opt.HeadLength, w))

	// Shaft side.
	base := len(g.Vertices)
	for k := 0; k < n; k++ {
		r := radial(k)
		g.AddVertex(r3.Add(from, r3.Scale(opt.Radius, r)), r)
		g.AddVertex(r3.Add(neck, r3.Scale(opt.Radius, r)), r)
	}
	for k := 0; k < n; k++ {
		a0, a1 := base+2*k, base+2*k+1
		b0, b1 := base+2*((k+1)%n), base+2*((k+1)%n)+1
		g.AddFace(a0, b0, b1, "")
		g.AddFace(a0, b1, a1, "")
	}

	// Bottom cap and the underside of the head, both facing back.
	back := r3.Scale(-1, w)
	for _, disk := range []struct {
		c r3.Vec
		r float64
	}{{from, opt.Radius}, {neck, opt.HeadRadius}} {
		center := g.AddVertex(disk.c, back)
		ring := len(g.Vertices)
		for k := 0; k < n; k++ {
			g.AddVertex(r3.Add(disk.c, r3.Scale(disk.r, radial(k))), back)
		}
		for k := 0; k < n; k++ {
			g.AddFace(center, ring+(k+1)%n, ring+k, "")
		}
	}

	// Cone side; the slant normal tilts the radial by the head angle.
	slope := opt.HeadRadius / opt.HeadLength
	ring := len(g.Vertices)
	for k := 0; k < n; k++ {
		r := radial(k)
		nrm := r3.Unit(r3.Add(r, r3.Scale(slope, w)))
		g.AddVertex(r3.Add(neck, r3.Scale(opt.HeadRadius, r)), nrm)
	}
	tip := g.AddVertex(to, w)
	for k := 0; k < n; k++ {
		g.AddFace(ring+k, ring+(k+1)%n, tip, "")
	}
	return g, nil
}

// prism adds a box centered at c with half-extent vectors ex, ey, ez.
// With uv set, the faces normal to ez get the full texture and the
// others a single corner of it.
func prism(g *Group, c, ex, ey, ez r3.Vec, uv bool, material string) {
	type side struct {
		n, a, b r3.Vec
		full    bool
	}
	sides := []side{
		{ez, ex, ey, true},
		{r3.Scale(-1, ez), r3.Scale(-1, ex), ey, true},
		{ex, r3.Scale(-1, ez), ey, false},
		{r3.Scale(-1, ex), ez, ey, false},
		{ey, ex, r3.Scale(-1, ez), false},
		{r3.Scale(-1, ey), ex, ez, false},
	}
	for _, s := range sides {
		center := r3.Add(c, s.n)
		nrm := r3.Unit(s.n)
		i0 := len(g.Vertices)
		corners := [4][2]float64{{-1, -1}, {1, -1}, {1, 1}, {-1, 1}}
		for _, k := range corners {
			p := r3.Add(center, r3.Add(r3.Scale(k[0], s.a), r3.Scale(k[1], s.b)))
			g.AddVertex(p, nrm)
			if uv {
				t := [2]float64{0, 0}
				if s.full {
					t = [2]float64{(k[0] + 1) / 2, (1 - k[1]) / 2}
				}
				g.TexCoords = append(g.TexCoords, t)
			}
		}
		g.AddFace(i0, i0+1, i0+2, material)
		g.AddFace(i0, i0+2, i0+3, material)
	}
}

// Label builds a flat textured prism showing text, centered at c with
// its text running along right and up along up. The texture is added
// to s under name+".png" and a material of the same name.
func Label(s *Scene, name, text string, c, right, up r3.Vec, height float64) (*Group, error) {
	png, aspect, err := RenderLabel(text, 48)
	if err != nil {
		return nil, fmt.Errorf("label %q: %w", name, err)
	}
	tex := name + ".png"
	s.AddTexture(tex, png)
	m := Solid(name, 1, 1, 1)
	m.Texture = tex
	s.AddMaterial(m)

	right, up = r3.Unit(right), r3.Unit(up)
	depth := r3.Unit(r3.Cross(right, up))
	g := &Group{Name: name, Material: name}
	prism(g, c, r3.Scale(height*aspect/2, right), r3.Scale(height/2, up), r3.Scale(height/20, depth), true, "")
	return g, nil
}

// AxesMaterial is the material of the axis arrows.
const AxesMaterial = "axes"

// Axes adds three unit arrows along x, y and z of the internal cube and
// a label at the end of each.
func Axes(s *Scene, xlabel, ylabel, zlabel string) error {
	s.AddMaterial(Solid(AxesMaterial, 0.1, 0.1, 0.1))
	type axis struct {
		name, label string
		dir, up     r3.Vec
	}
	axes := []axis{
		{"x_axis", xlabel, r3.Vec{X: 1}, r3.Vec{Z: 1}},
		{"y_axis", ylabel, r3.Vec{Y: 1}, r3.Vec{Z: 1}},
		{"z_axis", zlabel, r3.Vec{Z: 1}, r3.Vec{Y: 1}},
	}
	for _, a := range axes {
		g, err := Arrow(a.name, r3.Vec{}, a.dir, ArrowOptions{Radius: 0.005, Material: AxesMaterial})
		if err != nil {
			return err
		}
		s.Add(g)
		if a.label == "" {
			continue
		}
		right := a.dir
		if a.dir.Z != 0 {
			right = r3.Vec{X: 1}
		}
		at := r3.Scale(1.12, a.dir)
		lg, err := Label(s, a.name+"_label", a.label, at, right, a.up, 0.06)
		if err != nil {
			return err
		}
		s.Add(lg)
	}
	return nil
}

// Limits map user coordinates onto the internal unit cube.
type Limits struct {
	Lo, Hi [3]float64
}

// Valid reports whether every axis has lo < hi.
func (l Limits) Valid() bool {
	return l.Lo[0] < l.Hi[0] && l.Lo[1] < l.Hi[1] && l.Lo[2] < l.Hi[2]
}

// Normalize maps a user point into the unit cube.
func (l Limits) Normalize(p r3.Vec) r3.Vec {
	return r3.Vec{
		X: (p.X - l.Lo[0]) / (l.Hi[0] - l.Lo[0]),
		Y: (p.Y - l.Lo[1]) / (l.Hi[1] - l.Lo[1]),
		Z: (p.Z - l.Lo[2]) / (l.Hi[2] - l.Lo[2]),
	}
}

// Denormalize maps a unit-cube point back to user coordinates.
func (l Limits) Denormalize(p r3.Vec) r3.Vec {
	return r3.Vec{
		X: l.Lo[0] + p.X*(l.Hi[0]-l.Lo[0]),
		Y: l.Lo[1] + p.Y*(l.Hi[1]-l.Lo[1]),
		Z: l.Lo[2] + p.Z*(l.Hi[2]-l.Lo[2]),
	}
}

// Fill replaces degenerate axes of l by the data ranges.
func (l Limits) Fill(ranges [3][2]float64) Limits {
	for k := 0; k < 3; k++ {
		if !(l.Lo[k] < l.Hi[k]) {
			l.Lo[k], l.Hi[k] = ranges[k][0], ranges[k][1]
			if !(l.Lo[k] < l.Hi[k]) {
				l.Lo[k], l.Hi[k] = l.Lo[k]-0.5, l.Hi[k]+0.5
			}
		}
	}
	return l
}

// DefaultMaterial is used by surfaces drawn without a colormap.
const DefaultMaterial = "default"

// DensitySurface triangulates z over the grid x by y (z[i*len(y)+j] at
// (x[i], y[j])) inside the unit cube given by lim. With a colormap the
// z range is cut into bins, one material each, and every face takes
// the material of its mean height; otherwise all faces use
// DefaultMaterial.
func DensitySurface(s *Scene, name string, x, y, z []float64, lim Limits, cmap palette.ColorMap, bins int) (*Group, error) {
	nx, ny := len(x), len(y)
	if nx < 2 || ny < 2 || len(z) != nx*ny {
		return nil, fmt.Errorf("td-den-plot: need a grid of at least 2x2 with %d values, got %d", nx*ny, len(z))
	}
	lim = lim.Fill([3][2]float64{
		{floats.Min(x), floats.Max(x)},
		{floats.Min(y), floats.Max(y)},
		{floats.Min(z), floats.Max(z)},
	})
	g := &Group{Name: name}
	pos := make([]r3.Vec, nx*ny)
	for i := 0; i < nx; i++ {
		for j := 0; j < ny; j++ {
			pos[i*ny+j] = lim.Normalize(r3.Vec{X: x[i], Y: y[j], Z: z[i*ny+j]})
		}
	}
	at := func(i, j int) r3.Vec {
		i = max(0, min(nx-1, i))
		j = max(0, min(ny-1, j))
		return pos[i*ny+j]
	}
	for i := 0; i < nx; i++ {
		for j := 0; j < ny; j++ {
			tx := r3.Sub(at(i+1, j), at(i-1, j))
			ty := r3.Sub(at(i, j+1), at(i, j-1))
			n := r3.Cross(tx, ty)
			if r3.Norm(n) == 0 {
				n = r3.Vec{Z: 1}
			}
			g.AddVertex(pos[i*ny+j], r3.Unit(n))
		}
	}

	if cmap == nil {
		s.AddMaterial(Solid(DefaultMaterial, 0.8, 0.8, 0.8))
		g.Material = DefaultMaterial
	} else {
		if bins < 1 {
			bins = 20
		}
		cmap.SetMin(0)
		cmap.SetMax(1)
		for b := 0; b < bins; b++ {
			c, err := cmap.At((float64(b) + 0.5) / float64(bins))
			if err != nil {
				return nil, err
			}
			r, gg, bb, _ := c.RGBA()
			s.AddMaterial(Solid(binMaterial(name, b), float64(r)/0xffff, float64(gg)/0xffff, float64(bb)/0xffff))
		}
	}
	material := func(vs ...int) string {
		if cmap == nil {
			return ""
		}
		var h float64
		for _, v := range vs {
			h += g.Vertices[v].Z
		}
		b := int(h / float64(len(vs)) * float64(bins))
		return binMaterial(name, max(0, min(bins-1, b)))
	}
	for i := 0; i+1 < nx; i++ {
		for j := 0; j+1 < ny; j++ {
			v00, v10 := i*ny+j, (i+1)*ny+j
			v01, v11 := i*ny+j+1, (i+1)*ny+j+1
			g.AddFace(v00, v10, v11, material(v00, v10, v11))
			g.AddFace(v00, v11, v01, material(v00, v11, v01))
		}
	}
	return g, nil
}

func binMaterial(name string, b int) string {
	return fmt.Sprintf("%s_%d", name, b)
}

// Cubes builds one small cube of edge size per point, points given in
// user coordinates and normalised with lim.
func Cubes(name string, pts []r3.Vec, lim Limits, size float64, material string) (*Group, error) {
	if len(pts) == 0 {
		return nil, fmt.Errorf("td-scatter: no points")
	}
	var ranges [3][2]float64
	for k := range ranges {
		ranges[k] = [2]float64{math.Inf(1), math.Inf(-1)}
	}
	for _, p := range pts {
		for k, v := range [3]float64{p.X, p.Y, p.Z} {
			ranges[k][0], ranges[k][1] = math.Min(ranges[k][0], v), math.Max(ranges[k][1], v)
		}
	}
	lim = lim.Fill(ranges)
	h := size / 2
	g := &Group{Name: name, Material: material}
	for _, p := range pts {
		prism(g, lim.Normalize(p), r3.Vec{X: h}, r3.Vec{Y: h}, r3.Vec{Z: h}, false, "")
	}
	return g, nil
}
