package o2graph

import (
	"fmt"

	"github.com/o2graph-lang/o2graph/dispatch"
	"github.com/o2graph-lang/o2graph/figure"
)

// floatArgs evaluates all positional arguments from 0 to n.
func floatArgs(c *dispatch.Call, n int) ([]float64, error) {
	return c.Args.Floats(0, n)
}

func (g *Graph) annotationEntries() []dispatch.Entry {
	shape := func(name string, fn func(x1, y1, x2, y2 float64, kw figure.Kwargs) error) dispatch.Entry {
		return dispatch.Entry{
			Name: name, MinArgs: 4, MaxArgs: 4, Kwargs: styleKw,
			Short: "Draw a " + name + " between two points.",
			Usage: name + " <x1> <y1> <x2> <y2> [kwargs]",
			Handler: func(c *dispatch.Call) error {
				v, err := floatArgs(c, 4)
				if err != nil {
					return err
				}
				return fn(v[0], v[1], v[2], v[3], c.Kwargs)
			},
		}
	}
	text := func(name, short string, fn func(x, y float64, s string, kw figure.Kwargs) error) dispatch.Entry {
		return dispatch.Entry{
			Name: name, MinArgs: 3, MaxArgs: 3, Kwargs: styleKw,
			Short: short, Usage: name + " <x> <y> <text> [kwargs]",
			Handler: func(c *dispatch.Call) error {
				v, err := floatArgs(c, 2)
				if err != nil {
					return err
				}
				return fn(v[0], v[1], c.Args.Str(2), c.Kwargs)
			},
		}
	}
	return []dispatch.Entry{
		shape("line", g.fig.Line),
		shape("arrow", g.fig.Arrow),
		{
			Name: "rect", MinArgs: 4, MaxArgs: 5, Kwargs: styleKw,
			Short: "Draw a rectangle from two corners.",
			Usage: "rect <x1> <y1> <x2> <y2> [angle] [kwargs]",
			Handler: func(c *dispatch.Call) error {
				v, err := floatArgs(c, c.Args.Len())
				if err != nil {
					return err
				}
				v = append(v, 0)
				return g.fig.Rect(v[0], v[1], v[2], v[3], v[4], c.Kwargs)
			},
		},
		{
			Name: "ellipse", MinArgs: 4, MaxArgs: 5, Kwargs: styleKw,
			Short: "Draw an ellipse from its center and size.",
			Usage: "ellipse <x> <y> <w> <h> [angle] [kwargs]",
			Handler: func(c *dispatch.Call) error {
				v, err := floatArgs(c, c.Args.Len())
				if err != nil {
					return err
				}
				v = append(v, 0)
				return g.fig.Ellipse(v[0], v[1], v[2], v[3], v[4], c.Kwargs)
			},
		},
		text("text", "Write text at data coordinates.", g.fig.Text),
		text("ttext", "Write text at axes-relative coordinates.", g.fig.TText),
		text("textbox", "Write boxed text at axes-relative coordinates.", g.fig.TextBox),
	}
}

func (g *Graph) canvasEntries() []dispatch.Entry {
	title := func(name string, fn func(string)) dispatch.Entry {
		return dispatch.Entry{
			Name: name, MinArgs: 1, MaxArgs: 1,
			Short: "Set the " + name[:1] + " axis title.", Usage: name + " <text>",
			Handler: func(c *dispatch.Call) error {
				fn(c.Args.Str(0))
				return nil
			},
		}
	}
	limits := func(name string, fn func(lo, hi float64) error) dispatch.Entry {
		return dispatch.Entry{
			Name: name, MinArgs: 2, MaxArgs: 2,
			Short: "Set the " + name[:1] + " range.", Usage: name + " <lo> <hi>",
			Handler: func(c *dispatch.Call) error {
				v, err := floatArgs(c, 2)
				if err != nil {
					return err
				}
				return fn(v[0], v[1])
			},
		}
	}
	return []dispatch.Entry{
		{
			Name: "addcbar", MinArgs: 0, MaxArgs: 0, Kwargs: styleKw,
			Short: "Add a colorbar for the last image.", Usage: "addcbar [kwargs]",
			Handler: func(c *dispatch.Call) error { return g.fig.AddColorbar(c.Kwargs) },
		},
		{
			Name: "inset", MinArgs: 4, MaxArgs: 4,
			Short: "Add inset axes and select them.", Usage: "inset <left> <bottom> <width> <height>",
			Handler: func(c *dispatch.Call) error {
				v, err := floatArgs(c, 4)
				if err != nil {
					return err
				}
				return g.fig.Inset(v[0], v[1], v[2], v[3])
			},
		},
		{
			Name: "subplots", MinArgs: 1, MaxArgs: 2, Kwargs: styleKw,
			Short: "Replace the canvas by a grid of axes.",
			Usage: "subplots <rows> [cols] [sharex=true,sharey=true]",
			Handler: func(c *dispatch.Call) error {
				nr, err := c.Args.Int(0)
				if err != nil {
					return err
				}
				nc := 1
				if c.Args.Len() > 1 {
					if nc, err = c.Args.Int(1); err != nil {
						return err
					}
				}
				return g.fig.Subplots(nr, nc, c.Kwargs.Bool("sharex", false), c.Kwargs.Bool("sharey", false))
			},
		},
		{
			Name: "subadj", MinArgs: 0, MaxArgs: 0, Kwargs: styleKw,
			Short:   "Adjust subplot margins and spacing.",
			Usage:   "subadj left=..,right=..,top=..,bottom=..,wspace=..,hspace=..",
			Handler: func(c *dispatch.Call) error { return g.fig.SubAdjust(c.Kwargs) },
		},
		{
			Name: "selax", MinArgs: 0, MaxArgs: 1,
			Short: "Select axes by index.", Usage: "selax [index]",
			Long: "Subplots are numbered from 0 in row-major order, insets follow. Without an index the first axes are selected.",
			Handler: func(c *dispatch.Call) error {
				i := 0
				if c.Args.Len() > 0 {
					var err error
					if i, err = c.Args.Int(0); err != nil {
						return err
					}
				}
				g.fig.Canvas()
				return g.fig.SelectAxes(i)
			},
		},
		title("xtitle", g.fig.XTitle),
		title("ytitle", g.fig.YTitle),
		{
			Name: "title", MinArgs: 1, MaxArgs: 1,
			Short: "Set the title of the current axes.", Usage: "title <text>",
			Handler: func(c *dispatch.Call) error {
				g.fig.Title(c.Args.Str(0))
				return nil
			},
		},
		limits("xlimits", g.fig.XLimits),
		limits("ylimits", g.fig.YLimits),
		limits("zlimits", g.fig.ZLimits),
		{
			Name: "clf", MinArgs: 0, MaxArgs: 0,
			Short: "Clear the figure.", Usage: "clf",
			Handler: func(*dispatch.Call) error {
				g.fig.Clear()
				return nil
			},
		},
		{
			Name: "canvas", MinArgs: 0, MaxArgs: 0,
			Short: "Create the canvas from the current settings.", Usage: "canvas",
			Handler: func(*dispatch.Call) error {
				g.fig.Canvas()
				return nil
			},
		},
		{
			Name: "show", MinArgs: 0, MaxArgs: 0,
			Short: "Render the figure and open it in the viewer.", Usage: "show",
			Handler: func(c *dispatch.Call) error {
				path, err := g.fig.Show()
				if err != nil {
					return err
				}
				fmt.Fprintln(c.Out, "figure written to", path)
				return nil
			},
		},
		{
			Name: "save", MinArgs: 1, MaxArgs: 1,
			Short: "Save the figure.", Usage: "save <file>",
			Long:    "The format follows the extension: png, jpg, svg, pdf, eps or tif. Without one png is used.",
			Handler: func(c *dispatch.Call) error { return g.fig.Save(c.Args.Str(0)) },
		},
		{
			Name: "mp4", MinArgs: 2, MaxArgs: 4,
			Short: "Encode numbered images into a movie.",
			Usage: "mp4 <pattern> <out> [vf] [loop]",
			Long: "The pattern is an ffmpeg pattern such as frame_%03d.png. vf is passed verbatim as the video filter; " +
				"loop true repeats the input forever.",
			Handler: func(c *dispatch.Call) error {
				m := figure.Movie{Pattern: c.Args.Str(0), Out: c.Args.Str(1), Filter: c.Args.StrOr(2, "")}
				if isNone(m.Filter) {
					m.Filter = ""
				}
				if c.Args.Len() > 3 {
					var err error
					if m.Loop, err = c.Args.Bool(3); err != nil {
						return err
					}
				}
				if err := g.enc.Encode(g.ctx, m); err != nil {
					return err
				}
				fmt.Fprintln(c.Out, "wrote", m.Output())
				return nil
			},
		},
	}
}
