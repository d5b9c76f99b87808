package o2graph

import (
	"fmt"
	"image/color"
	"math"
	"strings"

	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/spatial/r3"
	"gonum.org/v1/plot/palette"

	"github.com/o2graph-lang/o2graph/dispatch"
	"github.com/o2graph-lang/o2graph/figure"
	"github.com/o2graph-lang/o2graph/native"
	"github.com/o2graph-lang/o2graph/scene"
	"github.com/o2graph-lang/o2graph/yt"
)

var sceneKw = dispatch.Recipe{
	"r": dispatch.Float, "head_length": dispatch.Float, "head_radius": dispatch.Float,
	"n": dispatch.Int, "bins": dispatch.Int, "size": dispatch.Float,
}

var ytKw = dispatch.Recipe{
	"tf_min": dispatch.Float, "tf_max": dispatch.Float, "log": dispatch.Bool,
	"layers": dispatch.Int, "alpha": dispatch.Float, "lw": dispatch.Float,
	"size": dispatch.Float,
}

// vec3 reads three coordinates starting at argument i.
func vec3(a dispatch.Args, i int) (r3.Vec, error) {
	v, err := a.Floats(i, i+3)
	if err != nil {
		return r3.Vec{}, err
	}
	return r3.Vec{X: v[0], Y: v[1], Z: v[2]}, nil
}

// colorMaterial adds a solid material named name from the color
// keyword, or returns def when none is given.
func (g *Graph) colorMaterial(kw dispatch.Kwargs, name, def string) (string, error) {
	s := kw.Str("color", kw.Str("c", ""))
	if s == "" {
		return def, nil
	}
	c, err := figure.ParseColor(s)
	if err != nil {
		return "", err
	}
	r, gr, b, _ := c.RGBA()
	g.scene.AddMaterial(scene.Solid(name, float64(r)/0xffff, float64(gr)/0xffff, float64(b)/0xffff))
	return name, nil
}

// cmapOf returns the colormap named by the cmap keyword, or nil.
func cmapOf(kw dispatch.Kwargs) (palette.ColorMap, error) {
	if !kw.Has("cmap") {
		return nil, nil
	}
	return figure.Colormap(kw.Str("cmap", ""))
}

func (g *Graph) sceneEntries() []dispatch.Entry {
	return []dispatch.Entry{
		{
			Name: "td-axis", MinArgs: 3, MaxArgs: 3,
			Short: "Add 3-D axes with labels.", Usage: "td-axis <xlabel> <ylabel> <zlabel>",
			Long: "Adds three arrows along the edges of the unit cube and a textured label at the end of each. " +
				"An empty or none label is skipped.",
			Handler: func(c *dispatch.Call) error {
				var labels [3]string
				for i := range labels {
					if l := c.Args.Str(i); !isNone(l) {
						labels[i] = l
					}
				}
				return scene.Axes(g.scene, labels[0], labels[1], labels[2])
			},
		},
		{
			Name: "td-arrow", MinArgs: 7, MaxArgs: 7, Kwargs: sceneKw,
			Short: "Add a 3-D arrow.", Usage: "td-arrow <x1> <y1> <z1> <x2> <y2> <z2> <name> [color=..,r=..,n=..]",
			Long: "The end points are in user coordinates and are mapped into the unit cube of the axis limits; unset limits follow the end points.",
			Handler: func(c *dispatch.Call) error {
				from, err := vec3(c.Args, 0)
				if err != nil {
					return err
				}
				to, err := vec3(c.Args, 3)
				if err != nil {
					return err
				}
				lim := g.limits().Fill([3][2]float64{
					{math.Min(from.X, to.X), math.Max(from.X, to.X)},
					{math.Min(from.Y, to.Y), math.Max(from.Y, to.Y)},
					{math.Min(from.Z, to.Z), math.Max(from.Z, to.Z)},
				})
				from, to = lim.Normalize(from), lim.Normalize(to)
				name := c.Args.Str(6)
				g.scene.AddMaterial(scene.Solid(scene.AxesMaterial, 0.1, 0.1, 0.1))
				mat, err := g.colorMaterial(c.Kwargs, name+"_mat", scene.AxesMaterial)
				if err != nil {
					return err
				}
				grp, err := scene.Arrow(name, from, to, scene.ArrowOptions{
					Radius:     c.Kwargs.Float("r", 0),
					HeadLength: c.Kwargs.Float("head_length", 0),
					HeadRadius: c.Kwargs.Float("head_radius", 0),
					Segments:   c.Kwargs.Int("n", 0),
					Material:   mat,
				})
				if err != nil {
					return err
				}
				g.scene.Add(grp)
				return nil
			},
		},
		{
			Name: "td-den-plot", Types: []native.Type{native.TypeTable3D}, MinArgs: 1, MaxArgs: 1, Kwargs: sceneKw,
			Short: "Add a slice as a 3-D surface.", Usage: "td-den-plot <slice> [cmap=..,bins=..,name=..]",
			Long: "The surface is normalised to the unit cube of the axis limits; unset limits follow the data. " +
				"With cmap each of bins height bands gets its own material.",
			Handler: func(c *dispatch.Call) error {
				grid, err := g.slice(c.Args.Str(0))
				if err != nil {
					return err
				}
				cmap, err := cmapOf(c.Kwargs)
				if err != nil {
					return err
				}
				name := c.Kwargs.Str("name", c.Args.Str(0))
				grp, err := scene.DensitySurface(g.scene, name, grid.X, grid.Y, grid.Data, g.limits(), cmap, c.Kwargs.Int("bins", 0))
				if err != nil {
					return err
				}
				g.scene.Add(grp)
				return nil
			},
		},
		{
			Name: "td-scatter", Types: tableOnly, MinArgs: 3, MaxArgs: 4, Kwargs: sceneKw,
			Short: "Add a small cube per table row.", Usage: "td-scatter <x> <y> <z> [name] [size=..,color=..]",
			Handler: func(c *dispatch.Call) error {
				cols, err := g.columns(c.Args.Str(0), c.Args.Str(1), c.Args.Str(2))
				if err != nil {
					return err
				}
				pts := make([]r3.Vec, len(cols[0]))
				for i := range pts {
					pts[i] = r3.Vec{X: cols[0][i], Y: cols[1][i], Z: cols[2][i]}
				}
				name := c.Args.StrOr(3, "scatter")
				g.scene.AddMaterial(scene.Solid(scene.DefaultMaterial, 0.8, 0.8, 0.8))
				mat, err := g.colorMaterial(c.Kwargs, name+"_mat", scene.DefaultMaterial)
				if err != nil {
					return err
				}
				grp, err := scene.Cubes(name, pts, g.limits(), c.Kwargs.Float("size", 0.01), mat)
				if err != nil {
					return err
				}
				g.scene.Add(grp)
				return nil
			},
		},
		{
			Name: "td-clear", MinArgs: 0, MaxArgs: 0,
			Short: "Remove every 3-D object.", Usage: "td-clear",
			Handler: func(*dispatch.Call) error {
				g.scene.Clear()
				return nil
			},
		},
		{
			Name: "obj", MinArgs: 1, MaxArgs: 1,
			Short: "Write the 3-D objects as Wavefront OBJ.", Usage: "obj <prefix>",
			Long: "Writes prefix.obj, prefix.mtl and the label textures next to them.",
			Handler: func(c *dispatch.Call) error {
				return g.writeScene(c, "obj", g.scene.WriteOBJ)
			},
		},
		{
			Name: "gltf", MinArgs: 1, MaxArgs: 1,
			Short: "Write the 3-D objects as glTF.", Usage: "gltf <prefix>",
			Long: "Writes prefix.gltf, prefix.bin and the label textures next to them.",
			Handler: func(c *dispatch.Call) error {
				return g.writeScene(c, "gltf", g.scene.WriteGLTF)
			},
		},
	}
}

func (g *Graph) writeScene(c *dispatch.Call, ext string, write func(string) error) error {
	if len(g.scene.Groups) == 0 {
		return fmt.Errorf("no 3-D objects to write")
	}
	prefix := c.Args.Str(0)
	if err := write(prefix); err != nil {
		return err
	}
	fmt.Fprintf(c.Out, "wrote %s.%s with %d groups\n", prefix, ext, len(g.scene.Groups))
	return nil
}

// ytPoint reads a point at argument i; the coords keyword selects
// internal or user coordinates, user by default.
func ytPoint(c *dispatch.Call, i int) (yt.Point, error) {
	v, err := vec3(c.Args, i)
	if err != nil {
		return yt.Point{}, err
	}
	switch coords := c.Kwargs.Str("coords", "user"); coords {
	case "user":
		return yt.Point{V: v, User: true}, nil
	case "internal":
		return yt.Point{V: v}, nil
	default:
		return yt.Point{}, dispatch.Argf(c.Name, "coords must be user or internal, got %q", coords)
	}
}

func ytColor(kw dispatch.Kwargs, def color.Color) (color.Color, error) {
	s := kw.Str("color", kw.Str("c", ""))
	if s == "" {
		return def, nil
	}
	return figure.ParseColor(s)
}

func (g *Graph) ytEntries() []dispatch.Entry {
	return []dispatch.Entry{
		{
			Name: dispatch.AnnotationCommand, MinArgs: 0, MaxArgs: -1,
			Short: "Add 2-D annotations drawn on every yt frame.",
			Usage: "yt-ann -text x y s [kw] -line x1 y1 x2 y2 [kw] ... end",
			Long: "Collects -text, -line, -arrow and -rect commands up to the word end. Coordinates are fractions " +
				"of the frame. With no commands the annotation list is cleared.",
			Handler: func(c *dispatch.Call) error { return g.yt.Annotate(c.Args.Vals) },
		},
		{
			Name: "yt-add-vol", Types: []native.Type{native.TypeTensorGrid}, MinArgs: 0, MaxArgs: 0, Kwargs: ytKw,
			Short: "Add the current rank 3 tensor_grid as a volume.",
			Usage: "yt-add-vol [cmap=..,tf_min=..,tf_max=..,log=..,layers=..,alpha=..]",
			Long: "The transfer function spans tf_min to tf_max, the data range by default. With layers > 0 the " +
				"opacity is a set of Gaussian bands. Unset axis limits are taken from the grid.",
			Handler: g.ytAddVol,
		},
		{
			Name: "yt-scatter", Types: tableOnly, MinArgs: 3, MaxArgs: 7, Kwargs: ytKw,
			Short: "Add table rows as points.", Usage: "yt-scatter <x> <y> <z> [size|none] [r g b] [kwargs]",
			Long:    "Sizes are in units of the unit cube. The r, g and b columns give per-point colors in [0,1].",
			Handler: g.ytScatter,
		},
		{
			Name: "yt-line", MinArgs: 6, MaxArgs: 6, Kwargs: ytKw,
			Short: "Add a line segment.", Usage: "yt-line <x1> <y1> <z1> <x2> <y2> <z2> [color=..,lw=..,coords=user|internal]",
			Handler: func(c *dispatch.Call) error {
				from, err := ytPoint(c, 0)
				if err != nil {
					return err
				}
				to, err := ytPoint(c, 3)
				if err != nil {
					return err
				}
				col, err := ytColor(c.Kwargs, color.White)
				if err != nil {
					return err
				}
				key := g.yt.Add(&yt.Line{From: from, To: to, Color: col, Width: c.Kwargs.Float("lw", 1)})
				fmt.Fprintln(c.Out, "added", key)
				return nil
			},
		},
		{
			Name: "yt-box", MinArgs: 6, MaxArgs: 6, Kwargs: ytKw,
			Short: "Add a box outline.", Usage: "yt-box <x1> <y1> <z1> <x2> <y2> <z2> [color=..,coords=user|internal]",
			Handler: func(c *dispatch.Call) error {
				lo, err := ytPoint(c, 0)
				if err != nil {
					return err
				}
				hi, err := ytPoint(c, 3)
				if err != nil {
					return err
				}
				col, err := ytColor(c.Kwargs, color.Gray{Y: 0xc0})
				if err != nil {
					return err
				}
				key := g.yt.Add(&yt.Box{Lo: lo, Hi: hi, Color: col})
				fmt.Fprintln(c.Out, "added", key)
				return nil
			},
		},
		{
			Name: "yt-path", MinArgs: 0, MaxArgs: -1,
			Short: "Show, extend or reset the camera path.",
			Usage: "yt-path [reset | <kind> <frames> <argument>]",
			Long:  "See help yt_path for the entry grammar.",
			Handler: func(c *dispatch.Call) error {
				switch {
				case c.Args.Len() == 0:
					fmt.Fprintf(c.Out, "%s (%d frames)\n", yt.FormatPath(g.yt.Path), yt.Frames(g.yt.Path))
					return nil
				case c.Args.Len() == 1 && c.Args.Str(0) == "reset":
					g.yt.Path = nil
					return nil
				}
				steps, err := yt.ParsePath(strings.Join(c.Args.Vals, " "))
				if err != nil {
					return err
				}
				g.yt.Path = append(g.yt.Path, steps...)
				return nil
			},
		},
		{
			Name: "yt-render", MinArgs: 1, MaxArgs: 2,
			Short: "Render the yt scene.", Usage: "yt-render <file> [movie]",
			Long: "Without a camera path one image is written. With a path one numbered image is written per " +
				"frame, a * in the file name marking the number, and the frames are encoded into movie when given.",
			Handler: func(c *dispatch.Call) error {
				files, err := g.yt.Render(g.ctx, c.Args.Str(0), c.Args.StrOr(1, ""), g.enc)
				if err != nil {
					return err
				}
				fmt.Fprintf(c.Out, "wrote %d frames\n", len(files))
				return nil
			},
		},
		{
			Name: "yt-clear", MinArgs: 0, MaxArgs: 0,
			Short: "Remove every yt source and annotation.", Usage: "yt-clear",
			Handler: func(*dispatch.Call) error {
				g.yt.Clear()
				return nil
			},
		},
	}
}

func (g *Graph) ytAddVol(c *dispatch.Call) error {
	tg, err := g.acol.TensorGrid()
	if err != nil {
		return err
	}
	if tg.Rank() != 3 {
		return dispatch.Argf(c.Name, "need a tensor_grid of rank 3, have rank %d", tg.Rank())
	}
	view, err := tg.View()
	if err != nil {
		return err
	}
	vol := &yt.Volume{
		Grid: [3][]float64{tg.GridOf(0), tg.GridOf(1), tg.GridOf(2)},
		Data: append([]float64(nil), view...),
	}
	if err := vol.Validate(); err != nil {
		return err
	}
	cmap, err := cmapOf(c.Kwargs)
	if err != nil {
		return err
	}
	vol.TF = yt.TransferFunction{
		Min:    c.Kwargs.Float("tf_min", floats.Min(vol.Data)),
		Max:    c.Kwargs.Float("tf_max", floats.Max(vol.Data)),
		Log:    c.Kwargs.Bool("log", false),
		Cmap:   cmap,
		Layers: c.Kwargs.Int("layers", 0),
		Alpha:  c.Kwargs.Float("alpha", 1),
	}
	st := g.fig.State
	vl := yt.VolumeLimits(vol)
	for k, axis := range []byte{'x', 'y', 'z'} {
		set := [3]bool{st.XSet, st.YSet, st.ZSet}[k]
		if !set && vl.Lo[k] < vl.Hi[k] {
			if err := st.SetLimits(axis, vl.Lo[k], vl.Hi[k]); err != nil {
				return err
			}
		}
	}
	key := g.yt.Add(vol)
	fmt.Fprintln(c.Out, "added", key)
	return nil
}

func (g *Graph) ytScatter(c *dispatch.Call) error {
	if n := c.Args.Len(); n == 5 || n == 6 {
		return dispatch.Argf(c.Name, "colors need three columns r g b")
	}
	cols, err := g.columns(c.Args.Str(0), c.Args.Str(1), c.Args.Str(2))
	if err != nil {
		return err
	}
	pts := &yt.Points{Pos: make([]r3.Vec, len(cols[0]))}
	for i := range pts.Pos {
		pts.Pos[i] = r3.Vec{X: cols[0][i], Y: cols[1][i], Z: cols[2][i]}
	}
	if pts.Sizes, err = g.optColumn(c.Args, 3); err != nil {
		return err
	}
	if pts.Sizes == nil {
		pts.Sizes = []float64{c.Kwargs.Float("size", 0.01)}
	}
	if c.Args.Len() == 7 {
		rgb, err := g.columns(c.Args.Str(4), c.Args.Str(5), c.Args.Str(6))
		if err != nil {
			return err
		}
		pts.Colors = make([]color.Color, len(rgb[0]))
		for i := range pts.Colors {
			pts.Colors[i] = color.NRGBA{R: unit8(rgb[0][i]), G: unit8(rgb[1][i]), B: unit8(rgb[2][i]), A: 0xff}
		}
	} else {
		col, err := ytColor(c.Kwargs, color.White)
		if err != nil {
			return err
		}
		pts.Colors = []color.Color{col}
	}
	key := g.yt.Add(pts)
	fmt.Fprintln(c.Out, "added", key)
	return nil
}

func unit8(v float64) uint8 {
	return uint8(max(0, min(1, v))*255 + 0.5)
}
