package o2graph

import (
	"errors"
	"fmt"

	"github.com/go-kit/log/level"

	"github.com/o2graph-lang/o2graph/dispatch"
	"github.com/o2graph-lang/o2graph/figure"
	"github.com/o2graph-lang/o2graph/native"
)

func (g *Graph) paramEntries() []dispatch.Entry {
	return []dispatch.Entry{
		{
			Name: "set", MinArgs: 2, MaxArgs: 2,
			Short: "Set a parameter.", Usage: "set <name> <value>",
			Long: "Figure and yt parameters are handled here; other names go to the o2scl command processor. " +
				"See help parameters.",
			Handler: func(c *dispatch.Call) error { return g.set(c.Args.Str(0), c.Args.Str(1)) },
		},
		{
			Name: "get", MinArgs: 1, MaxArgs: 1,
			Short: "Print a parameter.", Usage: "get <name>",
			Handler: func(c *dispatch.Call) error {
				name := c.Args.Str(0)
				v, err := g.get(name)
				if errors.Is(err, figure.ErrUnknownParam) {
					return g.disp.Native("-get", name)
				}
				if err != nil {
					return err
				}
				fmt.Fprintf(c.Out, "%s = %s\n", name, v)
				return nil
			},
		},
		{
			Name: "version", MinArgs: 0, MaxArgs: 0,
			Short: "Print version information.", Usage: "version",
			Handler: func(c *dispatch.Call) error {
				fmt.Fprintf(c.Out, "o2graph %s\n", Version)
				v, err := g.nativeVersion()
				if err != nil {
					level.Warn(g.logger).Log("msg", "no native version", "err", err)
					v = "unknown"
				}
				fmt.Fprintf(c.Out, "o2scl %s\n", v)
				return nil
			},
		},
	}
}

// set routes a parameter to the figure, then the yt scene, then the
// native processor. verbose is shared by all three.
func (g *Graph) set(name, value string) error {
	err := g.fig.State.Set(name, value)
	if errors.Is(err, figure.ErrUnknownParam) {
		err = g.yt.Set(name, value)
	}
	switch {
	case errors.Is(err, figure.ErrUnknownParam):
		return g.disp.Native("-set", name, value)
	case err != nil:
		return err
	}
	if name == "verbose" {
		g.acol.SetVerbose(g.fig.State.Verbose)
		return g.disp.Native("-set", name, value)
	}
	level.Debug(g.logger).Log("msg", "set", "name", name, "value", value)
	return nil
}

func (g *Graph) get(name string) (string, error) {
	v, err := g.fig.State.Get(name)
	if errors.Is(err, figure.ErrUnknownParam) {
		return g.yt.Get(name)
	}
	return v, err
}

func (g *Graph) nativeVersion() (string, error) {
	s, err := native.GetSettings(g.lib)
	if err != nil {
		return "", err
	}
	return s.Version()
}
