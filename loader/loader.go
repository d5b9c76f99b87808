// Package loader locates the native o2scl shared libraries at run time,
// loads them with global symbol visibility and hands out function
// pointers by name.
//
// Everything above this package depends only on the [Binder] interface,
// so a test double can stand in for the native core:
//
//	lib, err := loader.Open(loader.Options{LibDir: "/usr/local/lib"})
//	if err != nil {
//	    // *LoadError: fatal, report and exit
//	}
//	var nlines func(uintptr) uint64
//	err = lib.Bind(&nlines, "o2scl_table___get_nlines")
package loader

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"runtime"
	"strings"
	"sync"

	"github.com/go-kit/log"
	"github.com/go-kit/log/level"

	"github.com/o2graph-lang/o2graph/logutil"
)

// Environment variables consulted when an option is not given explicitly.
const (
	EnvCppLib   = "O2SCL_CPP_LIB"
	EnvLibDir   = "O2SCL_LIB"
	EnvAddlLibs = "O2SCL_ADDL_LIBS"
)

// Binder binds a Go function variable to a native entry point.
// fptr must be a pointer to a func variable whose signature matches the
// native ABI of the symbol.
type Binder interface {
	Bind(fptr any, symbol string) error
}

// Options controls where and how the native libraries are found.
type Options struct {
	// Extras are additional libraries loaded after the platform extras
	// and before the o2scl libraries (e.g. a custom GSL build).
	Extras []string
	// CppRuntime is the full path of the C++ standard library.
	CppRuntime string
	// LibDir is the directory holding libo2scl and libo2scl_hdf.
	LibDir string
	// Verbose > 0 logs every load attempt.
	Verbose int
	Logger  log.Logger

	// Getenv and GOOS default to os.Getenv and runtime.GOOS.
	Getenv func(string) string
	GOOS   string
}

func (o Options) getenv(k string) string {
	if o.Getenv != nil {
		return o.Getenv(k)
	}
	return os.Getenv(k)
}

func (o Options) goos() string {
	if o.GOOS != "" {
		return o.GOOS
	}
	return runtime.GOOS
}

// target is one library to load together with the locations to try,
// in priority order.
type target struct {
	name       string
	candidates []string
}

func soname(goos, base string) string {
	if goos == "darwin" {
		return base + ".dylib"
	}
	return base + ".so"
}

// plan returns the libraries to load, in load order.
func (o Options) plan() []target {
	goos := o.goos()
	var plan []target

	cpp := target{name: "C++ runtime"}
	if o.CppRuntime != "" {
		cpp.candidates = append(cpp.candidates, o.CppRuntime)
	}
	if env := o.getenv(EnvCppLib); env != "" {
		cpp.candidates = append(cpp.candidates, env)
	}
	if goos == "darwin" {
		cpp.candidates = append(cpp.candidates, "libc++.dylib", "/usr/lib/libc++.dylib")
	} else {
		cpp.candidates = append(cpp.candidates, "libstdc++.so.6")
	}
	plan = append(plan, cpp)

	if goos == "darwin" {
		plan = append(plan, target{
			name: "readline",
			candidates: []string{
				"/opt/homebrew/opt/readline/lib/libreadline.dylib",
				"/usr/local/opt/readline/lib/libreadline.dylib",
				"libreadline.dylib",
			},
		})
	}

	extras := o.Extras
	if len(extras) == 0 {
		if env := o.getenv(EnvAddlLibs); env != "" {
			extras = splitList(env)
		}
	}
	for _, e := range extras {
		plan = append(plan, target{name: filepath.Base(e), candidates: []string{e}})
	}

	dirs := []string{}
	if o.LibDir != "" {
		dirs = append(dirs, o.LibDir)
	}
	if env := o.getenv(EnvLibDir); env != "" {
		dirs = append(dirs, env)
	}
	for _, base := range []string{"libo2scl", "libo2scl_hdf"} {
		file := soname(goos, base)
		t := target{name: base}
		for _, d := range dirs {
			t.candidates = append(t.candidates, filepath.Join(d, file))
		}
		t.candidates = append(t.candidates, file)
		plan = append(plan, t)
	}
	return plan
}

func splitList(s string) []string {
	var out []string
	for _, p := range strings.Split(s, ",") {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, p)
		}
	}
	return out
}

// Library is the process-wide handle on the loaded native libraries.
// The symbol cache is only written while resolving; lookups after the
// first are read-only.
type Library struct {
	mu      sync.RWMutex
	loaded  []loaded
	symbols map[string]uintptr
	logger  log.Logger
}

type loaded struct {
	name   string
	path   string
	handle uintptr
}

// Open loads the C++ runtime, the platform extras, the caller extras and
// the two o2scl libraries, in that order. The first failure aborts with
// a *LoadError.
func Open(opts Options) (*Library, error) {
	logger := logutil.With(opts.Logger, "loader")
	lib := &Library{symbols: make(map[string]uintptr), logger: logger}
	for _, t := range opts.plan() {
		var lastErr error
		ok := false
		for _, path := range t.candidates {
			h, err := dlopen(path)
			if err != nil {
				lastErr = err
				if opts.Verbose > 0 {
					level.Info(logger).Log("msg", "load failed", "lib", t.name, "path", path, "err", err)
				}
				continue
			}
			if opts.Verbose > 0 {
				level.Info(logger).Log("msg", "loaded", "lib", t.name, "path", path)
			}
			lib.loaded = append(lib.loaded, loaded{name: t.name, path: path, handle: h})
			ok = true
			break
		}
		if !ok {
			lib.Close()
			return nil, &LoadError{Library: t.name, Tried: t.candidates, Err: lastErr}
		}
	}
	return lib, nil
}

var (
	defaultMu  sync.Mutex
	defaultLib *Library
)

// Default returns the process-wide Library, opening it on first use.
// Options passed after the first successful call are ignored.
func Default(opts Options) (*Library, error) {
	defaultMu.Lock()
	defer defaultMu.Unlock()
	if defaultLib != nil {
		return defaultLib, nil
	}
	lib, err := Open(opts)
	if err != nil {
		return nil, err
	}
	defaultLib = lib
	return lib, nil
}

// Paths returns the locations the libraries were loaded from, in load
// order.
func (l *Library) Paths() []string {
	l.mu.RLock()
	defer l.mu.RUnlock()
	out := make([]string, len(l.loaded))
	for i, ld := range l.loaded {
		out[i] = ld.path
	}
	return out
}

// Resolve returns the address of a native symbol. The o2scl libraries
// are searched first, then the dependencies in reverse load order.
func (l *Library) Resolve(symbol string) (uintptr, error) {
	l.mu.RLock()
	addr, ok := l.symbols[symbol]
	l.mu.RUnlock()
	if ok {
		return addr, nil
	}

	l.mu.Lock()
	defer l.mu.Unlock()
	for i := len(l.loaded) - 1; i >= 0; i-- {
		a, err := dlsym(l.loaded[i].handle, symbol)
		if err == nil && a != 0 {
			l.symbols[symbol] = a
			return a, nil
		}
	}
	level.Debug(logutil.OrDiscard(l.logger)).Log("msg", "missing symbol", "symbol", symbol)
	return 0, &MissingSymbolError{Symbol: symbol}
}

// Bind resolves symbol and makes *fptr call it.
func (l *Library) Bind(fptr any, symbol string) error {
	addr, err := l.Resolve(symbol)
	if err != nil {
		return err
	}
	return register(fptr, addr, symbol)
}

// Close unloads every library in reverse load order.
func (l *Library) Close() error {
	l.mu.Lock()
	defer l.mu.Unlock()
	var errs []error
	for i := len(l.loaded) - 1; i >= 0; i-- {
		if err := dlclose(l.loaded[i].handle); err != nil {
			errs = append(errs, fmt.Errorf("close %s: %w", l.loaded[i].path, err))
		}
	}
	l.loaded = nil
	l.symbols = map[string]uintptr{}
	return errors.Join(errs...)
}
