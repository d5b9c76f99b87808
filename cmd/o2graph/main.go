// o2graph is the command-line graph tool. With arguments it runs them as
// one command stream; without, it starts an interactive session.
package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/signal"
	"strings"

	"github.com/go-kit/log/level"
	"github.com/mattn/go-isatty"

	"github.com/o2graph-lang/o2graph"
	"github.com/o2graph-lang/o2graph/config"
	"github.com/o2graph-lang/o2graph/dispatch"
	"github.com/o2graph-lang/o2graph/figure"
	"github.com/o2graph-lang/o2graph/logutil"
)

func main() {
	os.Exit(run(os.Args[1:], os.Stdin, os.Stdout, os.Stderr))
}

// globals are the options that must be known before the library loads.
// The loader options may be written like commands, with one dash; the
// double-dash spelling is accepted for every option.
type globals struct {
	cppLib, libDir, addlLibs string
	configFile               string
	verbose                  int
	set                      map[string]bool
}

// loaderOptions may lead the command stream with a single dash.
var loaderOptions = map[string]bool{
	"o2scl-cpp-lib":   true,
	"o2scl-lib-dir":   true,
	"o2scl-addl-libs": true,
}

// globalName reports the option name of arg, or false when arg starts
// the command stream.
func globalName(arg string) (string, bool) {
	if strings.HasPrefix(arg, "--") {
		return strings.TrimPrefix(arg, "--"), true
	}
	if name, ok := strings.CutPrefix(arg, "-"); ok {
		base, _, _ := strings.Cut(name, "=")
		if loaderOptions[base] {
			return name, true
		}
	}
	return "", false
}

// parseGlobals removes leading --name=value and --name value options,
// and their single-dash loader forms, from args.
func parseGlobals(args []string) (globals, []string, error) {
	g := globals{set: map[string]bool{}}
	for len(args) > 0 {
		opt, ok := globalName(args[0])
		if !ok {
			break
		}
		name, val, hasVal := strings.Cut(opt, "=")
		args = args[1:]
		if name == "" {
			break
		}
		if !hasVal {
			if len(args) == 0 {
				return g, nil, fmt.Errorf("option %s needs a value", name)
			}
			val, args = args[0], args[1:]
		}
		switch name {
		case "o2scl-cpp-lib":
			g.cppLib = val
		case "o2scl-lib-dir":
			g.libDir = val
		case "o2scl-addl-libs":
			g.addlLibs = val
		case "config":
			g.configFile = val
		case "verbose":
			if _, err := fmt.Sscan(val, &g.verbose); err != nil {
				return g, nil, fmt.Errorf("option --verbose: %v", err)
			}
		default:
			return g, nil, fmt.Errorf("unknown option --%s", name)
		}
		g.set[name] = true
	}
	return g, args, nil
}

func (g globals) apply(c *config.Config) {
	if g.set["o2scl-cpp-lib"] {
		c.CppLib = g.cppLib
	}
	if g.set["o2scl-lib-dir"] {
		c.LibDir = g.libDir
	}
	if g.set["o2scl-addl-libs"] {
		c.AddlLibs = nil
		for _, s := range strings.Split(g.addlLibs, ",") {
			if s = strings.TrimSpace(s); s != "" {
				c.AddlLibs = append(c.AddlLibs, s)
			}
		}
	}
	if g.set["verbose"] {
		c.Verbose = g.verbose
	}
}

func run(args []string, stdin io.Reader, stdout, stderr io.Writer) int {
	opts, args, err := parseGlobals(args)
	if err != nil {
		fmt.Fprintf(stderr, "o2graph: %v\n", err)
		return 1
	}
	cfg, err := config.Load(config.Options{File: opts.configFile})
	if err != nil {
		fmt.Fprintf(stderr, "o2graph: config: %v\n", err)
		return 1
	}
	opts.apply(cfg)

	logger := logutil.New(stderr, cfg.Verbose)
	if cfg.File != "" {
		level.Info(logger).Log("msg", "read config", "file", cfg.File)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	lo := cfg.Loader()
	lo.Logger = logger
	g, err := o2graph.New(o2graph.Options{
		Loader:  lo,
		Out:     stdout,
		Err:     stderr,
		Logger:  logger,
		Encoder: figure.Encoder{Path: cfg.FFmpeg, Logger: logger},
		Viewer:  cfg.Viewer,
		Context: ctx,
	})
	if err != nil {
		fmt.Fprintf(stderr, "o2graph: %v\n", err)
		return 1
	}
	defer g.Close()

	if len(args) > 0 {
		return g.ExitCode(g.Run(append(cfg.Defaults, args...)))
	}
	if len(cfg.Defaults) > 0 {
		if err := g.Run(cfg.Defaults); err != nil {
			return g.ExitCode(err)
		}
	}
	return interactive(g, cfg, stdin, stderr)
}

func interactive(g *o2graph.Graph, cfg *config.Config, stdin io.Reader, stderr io.Writer) int {
	ropts := dispatch.REPLOptions{Prompt: "o2graph> ", Fd: -1}
	if f, ok := stdin.(*os.File); ok && isatty.IsTerminal(f.Fd()) {
		ropts.Fd = int(f.Fd())
	}
	if cfg.History != "" {
		h, err := dispatch.OpenHistory(cfg.History)
		if err != nil {
			fmt.Fprintf(stderr, "o2graph: history disabled: %v\n", err)
		} else {
			defer h.Close()
			ropts.History = h
		}
	}
	err := g.RunREPL(stdin, ropts)
	if err != nil && !errors.Is(err, dispatch.ErrQuit) {
		fmt.Fprintf(stderr, "o2graph: %v\n", err)
		return 1
	}
	return 0
}
