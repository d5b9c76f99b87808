package o2graph

import (
	"context"
	"errors"
	"io"
	"os"

	"github.com/go-kit/log"
	"github.com/go-kit/log/level"

	"github.com/o2graph-lang/o2graph/dispatch"
	"github.com/o2graph-lang/o2graph/figure"
	"github.com/o2graph-lang/o2graph/loader"
	"github.com/o2graph-lang/o2graph/logutil"
	"github.com/o2graph-lang/o2graph/native"
	"github.com/o2graph-lang/o2graph/scene"
	"github.com/o2graph-lang/o2graph/yt"
)

// Version is the version of the graph tool.
const Version = "0.1.0"

// Options configure a Graph.
type Options struct {
	// Loader locates the native libraries. It is ignored when Binder
	// is set.
	Loader loader.Options
	// Binder replaces the native libraries, as nativetest.Core does.
	Binder loader.Binder

	// Out and Err default to the process streams.
	Out, Err io.Writer
	Logger   log.Logger

	// Encoder runs ffmpeg for mp4, den-plot-anim and yt-render.
	Encoder figure.Encoder
	// Viewer, when set, opens the image written by show.
	Viewer string
	// Context bounds encoder runs; context.Background when nil.
	Context context.Context
}

// Graph is the graph tool: the native command processor plus the
// plotting layer, driven through one dispatcher.
//
// Create a Graph with [New] and call [Graph.Close] when done. A Graph is
// not safe for concurrent use.
type Graph struct {
	lib    *native.Lib
	acol   *native.Acol
	disp   *dispatch.Dispatcher
	fig    *figure.Figure
	scene  *scene.Scene
	yt     *yt.Scene
	enc    figure.Encoder
	ctx    context.Context
	out    io.Writer
	logger log.Logger

	closers []io.Closer
}

// New loads the native library, unless opts.Binder is given, and
// returns a Graph with every command registered. Load failures are
// *loader.LoadError.
func New(opts Options) (*Graph, error) {
	logger := logutil.OrDiscard(opts.Logger)
	g := &Graph{
		enc:    opts.Encoder,
		ctx:    opts.Context,
		out:    opts.Out,
		logger: logutil.With(logger, "graph"),
	}
	if g.ctx == nil {
		g.ctx = context.Background()
	}
	if g.out == nil {
		g.out = os.Stdout
	}
	if g.enc.Logger == nil {
		g.enc.Logger = logger
	}

	binder := opts.Binder
	if binder == nil {
		lo := opts.Loader
		if lo.Logger == nil {
			lo.Logger = logger
		}
		lib, err := loader.Default(lo)
		if err != nil {
			return nil, err
		}
		binder = lib
	}
	g.lib = native.NewLib(binder, logger)
	acol, err := native.NewAcol(g.lib)
	if err != nil {
		return nil, err
	}
	g.acol = acol
	g.closers = append(g.closers, acol)

	g.fig = figure.New(figure.Options{State: figure.NewState(), Viewer: opts.Viewer, Logger: logger})
	g.scene = scene.New(logger)
	g.yt = yt.New(yt.Options{Limits: g.limits, Logger: logger})
	g.disp = dispatch.New(acol, dispatch.Options{Out: g.out, Err: opts.Err, Logger: logger})
	g.register()
	level.Debug(g.logger).Log("msg", "ready", "commands", len(g.disp.Table.Names()))
	return g, nil
}

// Dispatcher returns the command dispatcher.
func (g *Graph) Dispatcher() *dispatch.Dispatcher { return g.disp }

// Figure returns the 2-D figure.
func (g *Graph) Figure() *figure.Figure { return g.fig }

// Scene returns the 3-D objects.
func (g *Graph) Scene() *scene.Scene { return g.scene }

// YT returns the volume-render scene.
func (g *Graph) YT() *yt.Scene { return g.yt }

// Acol returns the native command processor.
func (g *Graph) Acol() *native.Acol { return g.acol }

// Run executes argv-style tokens. Only fatal errors are returned.
func (g *Graph) Run(args []string) error {
	return g.disp.Run(args)
}

// RunREPL reads commands from in until quit, exit or end of input.
func (g *Graph) RunREPL(in io.Reader, opts dispatch.REPLOptions) error {
	return g.disp.REPL(in, opts)
}

// ExitCode maps the outcome of a non-interactive run to a process exit
// status: 1 for a fatal error, 2 when the last native command failed,
// 0 otherwise.
func (g *Graph) ExitCode(runErr error) int {
	if runErr != nil && !errors.Is(runErr, dispatch.ErrQuit) {
		return 1
	}
	var ne *native.NativeError
	if g != nil && errors.As(g.disp.LastNativeError(), &ne) {
		return 2
	}
	return 0
}

// Close frees the native command processor and everything it holds.
func (g *Graph) Close() error {
	var errs []error
	for i := len(g.closers) - 1; i >= 0; i-- {
		errs = append(errs, g.closers[i].Close())
	}
	g.closers = nil
	return errors.Join(errs...)
}

// limits returns the axis limits in force; unset axes are degenerate.
func (g *Graph) limits() scene.Limits {
	st := g.fig.State
	var l scene.Limits
	if st.XSet {
		l.Lo[0], l.Hi[0] = st.XLo, st.XHi
	}
	if st.YSet {
		l.Lo[1], l.Hi[1] = st.YLo, st.YHi
	}
	if st.ZSet {
		l.Lo[2], l.Hi[2] = st.ZLo, st.ZHi
	}
	return l
}
