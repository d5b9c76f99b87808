// Package o2graph is a plotting and scripting front-end for the o2scl
// numerical library.
//
// # Overview
//
// o2graph loads the o2scl shared libraries at run time, holds one o2scl
// command processor (acol) and adds plotting commands on top of it.
// A run is a stream of dash-initial commands:
//
//	o2graph -create table x grid:0,10,0.1 -function "sin(x)" y -plot x y -save sin.png
//
// Commands known to o2graph are handled here; everything else goes to
// the o2scl command processor, which keeps the current object. The
// type of that object selects which o2graph command runs, so den-plot
// means one thing for a table3d and another for a tensor_grid.
//
// # Quick Start
//
//	g, err := o2graph.New(o2graph.Options{})
//	if err != nil {
//	    return err
//	}
//	defer g.Close()
//
//	err = g.Run([]string{"-create", "table", "x", "grid:0,1,0.1",
//	    "-function", "x*x", "y", "-plot", "x", "y", "-save", "sq.png"})
//
// Errors of single commands are reported on the error stream and the
// run continues. Run only returns fatal errors: a failed library load
// or quit. [Graph.ExitCode] turns the outcome into a process status.
//
// # Layers
//
//   - loader finds and opens libo2scl and its dependencies.
//   - native wraps o2scl objects as typed handles with ownership.
//   - dispatch splits commands, routes them and runs the REPL.
//   - figure draws 2-D plots with gonum/plot.
//   - scene builds 3-D objects and writes glTF or OBJ.
//   - yt renders a volume scene along a camera path.
//
// # Parameters
//
// set and get route a name to the figure first (xlo, logx, fig_dict,
// ...), then to the yt scene (yt_focus, yt_path, ...), and finally to
// the o2scl processor.
//
// # Testing
//
// [native/nativetest] implements the o2scl entry points in Go. Pass it
// as Options.Binder to run a Graph without the C++ library.
package o2graph
