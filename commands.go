package o2graph

import (
	"fmt"

	"github.com/o2graph-lang/o2graph/dispatch"
	"github.com/o2graph-lang/o2graph/figure"
	"github.com/o2graph-lang/o2graph/native"
)

// styleKw is the recipe shared by the drawing commands.
var styleKw = dispatch.Recipe{
	"lw": dispatch.Float, "ms": dispatch.Float, "alpha": dispatch.Float,
	"fontsize": dispatch.Float, "rotation": dispatch.Float,
	"bins": dispatch.Int, "density": dispatch.Bool, "zmin": dispatch.Float,
	"zmax": dispatch.Float, "head_width": dispatch.Float, "renorm": dispatch.Bool,
	"sharex": dispatch.Bool, "sharey": dispatch.Bool, "loop": dispatch.Bool,
	"left": dispatch.Float, "right": dispatch.Float, "top": dispatch.Float,
	"bottom": dispatch.Float, "wspace": dispatch.Float, "hspace": dispatch.Float,
	"keep_frames": dispatch.Bool,
}

var (
	tableOnly   = []native.Type{native.TypeTable}
	arrayTypes  = []native.Type{native.TypeDoubleArr, native.TypeIntArr, native.TypeSizeTArr}
	tensorTypes = []native.Type{native.TypeTensor, native.TypeTensorGrid}
	intTensors  = []native.Type{native.TypeTensorInt, native.TypeTensorSizeT}
)

func (g *Graph) register() {
	g.disp.Table.MustRegister(g.plotEntries()...)
	g.disp.Table.MustRegister(g.annotationEntries()...)
	g.disp.Table.MustRegister(g.canvasEntries()...)
	g.disp.Table.MustRegister(g.sceneEntries()...)
	g.disp.Table.MustRegister(g.ytEntries()...)
	g.disp.Table.MustRegister(g.paramEntries()...)
}

func (g *Graph) plotEntries() []dispatch.Entry {
	return []dispatch.Entry{
		{
			Name: "plot", Types: tableOnly, MinArgs: 2, MaxArgs: 2, Kwargs: styleKw,
			Short: "Plot two columns.", Usage: "plot <x> <y> [kwargs]",
			Long: "Draws a line through the points of columns x and y, on log axes when logx or logy is set.",
			Handler: func(c *dispatch.Call) error {
				cols, err := g.columns(c.Args.Str(0), c.Args.Str(1))
				if err != nil {
					return err
				}
				return g.fig.Plot(cols[0], cols[1], c.Kwargs)
			},
		},
		{
			Name: "plot1", Types: tableOnly, MinArgs: 1, MaxArgs: 1, Kwargs: styleKw,
			Short: "Plot a column against the row index.", Usage: "plot1 <y> [kwargs]",
			Handler: func(c *dispatch.Call) error {
				y, err := g.acol.Column(c.Args.Str(0))
				if err != nil {
					return err
				}
				return g.fig.Plot1(y, c.Kwargs)
			},
		},
		{
			Name: "plot1", Types: arrayTypes, MinArgs: 0, MaxArgs: 0, Kwargs: styleKw,
			Short: "Plot the array against its index.", Usage: "plot1 [kwargs]",
			Handler: func(c *dispatch.Call) error {
				y, err := g.acol.DoubleArray()
				if err != nil {
					return err
				}
				return g.fig.Plot1(y, c.Kwargs)
			},
		},
		{
			Name: "plot-color", Types: tableOnly, MinArgs: 3, MaxArgs: 4, Kwargs: styleKw,
			Short: "Plot a line colored by a third column.", Usage: "plot-color <x> <y> <c> [cmap] [kwargs]",
			Handler: func(c *dispatch.Call) error {
				cols, err := g.columns(c.Args.Str(0), c.Args.Str(1), c.Args.Str(2))
				if err != nil {
					return err
				}
				return g.fig.PlotColor(cols[0], cols[1], cols[2], c.Args.StrOr(3, figure.DefaultColormap), c.Kwargs)
			},
		},
		{
			Name: "scatter", Types: tableOnly, MinArgs: 2, MaxArgs: 4, Kwargs: styleKw,
			Short: "Scatter plot with optional size and color columns.",
			Usage: "scatter <x> <y> [s|none] [c|none] [kwargs]",
			Handler: func(c *dispatch.Call) error {
				cols, err := g.columns(c.Args.Str(0), c.Args.Str(1))
				if err != nil {
					return err
				}
				s, err := g.optColumn(c.Args, 2)
				if err != nil {
					return err
				}
				col, err := g.optColumn(c.Args, 3)
				if err != nil {
					return err
				}
				return g.fig.Scatter(cols[0], cols[1], s, col, c.Kwargs)
			},
		},
		{
			Name: "errorbar", Types: tableOnly, MinArgs: 4, MaxArgs: 4, Kwargs: styleKw,
			Short: "Plot points with error bars.",
			Usage: "errorbar <x> <y> <xerr> <yerr> [kwargs]",
			Long:  "Each error is none, a number, a column, or lo,hi naming two columns for asymmetric errors.",
			Handler: func(c *dispatch.Call) error {
				cols, err := g.columns(c.Args.Str(0), c.Args.Str(1))
				if err != nil {
					return err
				}
				n := len(cols[0])
				xerr, err := g.errorsArg(c.Args.Str(2), n)
				if err != nil {
					return err
				}
				yerr, err := g.errorsArg(c.Args.Str(3), n)
				if err != nil {
					return err
				}
				return g.fig.Errorbar(cols[0], cols[1], xerr, yerr, c.Kwargs)
			},
		},
		{
			Name: "hist-plot", Types: tableOnly, MinArgs: 1, MaxArgs: 1, Kwargs: styleKw,
			Short: "Histogram of a column.", Usage: "hist-plot <col> [bins=n,density=true,...]",
			Handler: func(c *dispatch.Call) error {
				v, err := g.acol.Column(c.Args.Str(0))
				if err != nil {
					return err
				}
				return g.fig.HistPlot(v, c.Kwargs)
			},
		},
		{
			Name: "hist-plot", Types: []native.Type{native.TypeHist}, MinArgs: 0, MaxArgs: 0, Kwargs: styleKw,
			Short: "Plot the current histogram.", Usage: "hist-plot [kwargs]",
			Handler: func(c *dispatch.Call) error {
				reps, err := g.acol.HistReps()
				if err != nil {
					return err
				}
				w, err := g.acol.HistWeights()
				if err != nil {
					return err
				}
				return g.fig.HistPlotBinned(figure.EdgesFromReps(reps), w, c.Kwargs)
			},
		},
		{
			Name: "hist2d-plot", Types: tableOnly, MinArgs: 2, MaxArgs: 2, Kwargs: styleKw,
			Short: "Two-dimensional histogram of two columns.", Usage: "hist2d-plot <x> <y> [kwargs]",
			Handler: func(c *dispatch.Call) error {
				cols, err := g.columns(c.Args.Str(0), c.Args.Str(1))
				if err != nil {
					return err
				}
				return g.fig.Hist2DPlot(cols[0], cols[1], c.Kwargs)
			},
		},
		{
			Name: "hist2d-plot", Types: []native.Type{native.TypeHist2D}, MinArgs: 0, MaxArgs: 0, Kwargs: styleKw,
			Short: "Plot the current two-dimensional histogram.", Usage: "hist2d-plot [kwargs]",
			Handler: func(c *dispatch.Call) error {
				grid, err := g.hist2dGrid()
				if err != nil {
					return err
				}
				return g.fig.DenPlot(grid, c.Kwargs)
			},
		},
		{
			Name: "den-plot", Types: []native.Type{native.TypeTable3D}, MinArgs: 1, MaxArgs: 1, Kwargs: styleKw,
			Short: "Density plot of a slice.", Usage: "den-plot <slice> [cmap=...,zmin=...,zmax=...]",
			Handler: func(c *dispatch.Call) error {
				grid, err := g.slice(c.Args.Str(0))
				if err != nil {
					return err
				}
				return g.fig.DenPlot(grid, c.Kwargs)
			},
		},
		{
			Name: "den-plot", Types: []native.Type{native.TypeHist2D}, MinArgs: 0, MaxArgs: 0, Kwargs: styleKw,
			Short: "Density plot of the current hist_2d.", Usage: "den-plot [kwargs]",
			Handler: func(c *dispatch.Call) error {
				grid, err := g.hist2dGrid()
				if err != nil {
					return err
				}
				return g.fig.DenPlot(grid, c.Kwargs)
			},
		},
		{
			Name: "den-plot", Types: append(append([]native.Type{}, tensorTypes...), intTensors...), MinArgs: 0, MaxArgs: -1, Kwargs: styleKw,
			Short: "Density plot of a two-axis projection of a tensor.",
			Usage: "den-plot [directive ...] [kwargs]",
			Long: "Directives are index(k), fixed(k,v), sum(k), range(k,lo,hi) and reverse(k); a bare k means index(k). " +
				"Every axis must be named unless the tensor has rank 2. Integer tensors are converted to double first.",
			Handler: func(c *dispatch.Call) error {
				if err := g.convertIntTensor(c.Type); err != nil {
					return err
				}
				grid, err := g.tensorGrid(rearrangeDirs(c.Args.Vals))
				if err != nil {
					return err
				}
				return g.fig.DenPlot(grid, c.Kwargs)
			},
		},
		{
			Name: "den-plot-rgb", Types: []native.Type{native.TypeTable3D}, MinArgs: 3, MaxArgs: 3, Kwargs: styleKw,
			Short: "Density plot with three slices as color channels.",
			Usage: "den-plot-rgb <red> <green> <blue> [renorm=true]",
			Handler: func(c *dispatch.Call) error {
				var grids [3]figure.Grid
				for i := range grids {
					var err error
					if grids[i], err = g.slice(c.Args.Str(i)); err != nil {
						return err
					}
				}
				return g.fig.DenPlotRGB(grids[0], grids[1], grids[2], c.Kwargs)
			},
		},
		{
			Name: "den-plot-anim", Types: tensorTypes, MinArgs: 4, MaxArgs: 4, Kwargs: styleKw,
			Short:   "Movie of density plots along one tensor axis.",
			Usage:   "den-plot-anim <x axis> <y axis> <anim axis>[r] <out.mp4> [kwargs]",
			Long:    "A trailing r on the animation axis reverses the direction. Remaining axes are fixed at their first point. keep_frames=true keeps the frame PNGs.",
			Handler: g.denPlotAnim,
		},
		{
			Name: "contour-plot", Types: []native.Type{native.TypeContourLines}, MinArgs: 0, MaxArgs: 0, Kwargs: styleKw,
			Short: "Plot the current contour lines.", Usage: "contour-plot [kwargs]",
			Handler: g.contourPlot,
		},
		{
			Name: "plotv", Types: []native.Type{native.TypeContourLines}, MinArgs: 0, MaxArgs: 0, Kwargs: styleKw,
			Short: "Plot the current contour lines.", Usage: "plotv [kwargs]",
			Handler: g.contourPlot,
		},
		{
			Name: "rplot", Types: tableOnly, MinArgs: 4, MaxArgs: 4, Kwargs: styleKw,
			Short: "Fill the region between two curves.", Usage: "rplot <x1> <y1> <x2> <y2> [kwargs]",
			Handler: func(c *dispatch.Call) error {
				cols, err := g.columns(c.Args.Str(0), c.Args.Str(1), c.Args.Str(2), c.Args.Str(3))
				if err != nil {
					return err
				}
				return g.fig.RPlot(cols[0], cols[1], cols[2], cols[3], c.Kwargs)
			},
		},
	}
}

func (g *Graph) contourPlot(c *dispatch.Call) error {
	src := g.acol.Contours()
	lines := make([]figure.ContourLine, len(src))
	for i, l := range src {
		lines[i] = figure.ContourLine{Level: l.Level, X: l.X, Y: l.Y}
	}
	return g.fig.Contour(lines, c.Kwargs)
}

func (g *Graph) denPlotAnim(c *dispatch.Call) error {
	axes := [2]int{}
	for i := range axes {
		v, err := c.Args.Int(i)
		if err != nil {
			return err
		}
		axes[i] = v
	}
	animArg := c.Args.Str(2)
	reverse := len(animArg) > 1 && animArg[len(animArg)-1] == 'r'
	if reverse {
		animArg = animArg[:len(animArg)-1]
	}
	anim, err := (dispatch.Args{Cmd: c.Name, Vals: []string{animArg}}).Int(0)
	if err != nil {
		return err
	}

	var rank, n int
	var gridOf func(k int) []float64
	switch c.Type {
	case native.TypeTensorGrid:
		tg, err := g.acol.TensorGrid()
		if err != nil {
			return err
		}
		rank = tg.Rank()
		gridOf = tg.GridOf
	default:
		t, err := g.acol.Tensor()
		if err != nil {
			return err
		}
		rank = t.Rank()
		gridOf = func(k int) []float64 { return indexGrid(t.Size(k)) }
	}
	for _, k := range []int{axes[0], axes[1], anim} {
		if k < 0 || k >= rank {
			return dispatch.Argf(c.Name, "axis %d out of range for rank %d", k, rank)
		}
	}
	if axes[0] == axes[1] || axes[0] == anim || axes[1] == anim {
		return dispatch.Argf(c.Name, "the three axes must differ")
	}
	animGrid := gridOf(anim)
	n = len(animGrid)

	frame := func(i int) (figure.Grid, error) {
		dirs := fmt.Sprintf("index(%d) index(%d) fixed(%d,%g)", axes[0], axes[1], anim, animGrid[i])
		for k := 0; k < rank; k++ {
			if k != axes[0] && k != axes[1] && k != anim {
				dirs += fmt.Sprintf(" fixed(%d,%g)", k, gridOf(k)[0])
			}
		}
		return g.tensorGrid(dirs)
	}
	return g.fig.DenPlotAnim(g.ctx, g.enc, n, frame, reverse, c.Args.Str(3), c.Kwargs)
}
