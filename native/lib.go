// Package native wraps the classes of the o2scl shared library in typed
// Go handles.
//
// Every wrapper holds a raw pointer, an ownership flag and the [Lib] it
// was created from. Handles returned by a constructor own their pointer
// and free it exactly once, on Close or, failing that, when collected.
// Handles returned by getters borrow the pointer and never free it.
//
// The native entry points of one class are bound together, the first
// time the class is used, from a struct whose fields carry the symbol
// names in `sym` tags:
//
//	type tableABI struct {
//	    NLines func(uintptr) uint64 `sym:"o2scl_%s_get_nlines"`
//	}
//
// A "%s" in the tag is replaced by the class name. Symbols tagged
// ",optional" are left nil when absent; every other missing symbol
// fails the class with a loader.MissingSymbolError.
package native

import (
	"fmt"
	"reflect"
	"strings"
	"sync"

	"github.com/go-kit/log"
	"github.com/go-kit/log/level"

	"github.com/o2graph-lang/o2graph/loader"
	"github.com/o2graph-lang/o2graph/logutil"
)

// Lib binds native entry points through a loader.Binder and caches the
// per-class entry point tables.
type Lib struct {
	b      loader.Binder
	logger log.Logger

	mu   sync.Mutex
	abis map[abiKey]any

	flushOnce sync.Once
	fflush    func(uintptr) int32
}

type abiKey struct {
	t     reflect.Type
	class string
}

// NewLib returns a Lib over b. The logger may be nil.
func NewLib(b loader.Binder, logger log.Logger) *Lib {
	return &Lib{
		b:      b,
		logger: logutil.With(logger, "native"),
		abis:   make(map[abiKey]any),
	}
}

// Logger returns the logger of the library.
func (l *Lib) Logger() log.Logger { return l.logger }

// flushStdio flushes the C stdio buffers, when fflush can be bound.
func (l *Lib) flushStdio() {
	l.flushOnce.Do(func() {
		if err := l.b.Bind(&l.fflush, "fflush"); err != nil {
			l.fflush = nil
			level.Debug(l.logger).Log("msg", "native output is not flushed", "err", err)
		}
	})
	if l.fflush != nil {
		l.fflush(0)
	}
}

// StartCapture starts a stdout capture that flushes native stdio before
// it begins and again before stdout is restored.
func (l *Lib) StartCapture() (*Capture, error) {
	l.flushStdio()
	c, err := StartCapture()
	if err != nil {
		return nil, err
	}
	c.flush = l.flushStdio
	return c, nil
}

// abi returns the entry point table T for class, binding it on first use.
func abi[T any](l *Lib, class string) (*T, error) {
	key := abiKey{t: reflect.TypeOf((*T)(nil)).Elem(), class: class}
	l.mu.Lock()
	defer l.mu.Unlock()
	if v, ok := l.abis[key]; ok {
		return v.(*T), nil
	}
	t := new(T)
	if err := l.bindAll(t, class); err != nil {
		return nil, err
	}
	l.abis[key] = t
	return t, nil
}

func (l *Lib) bindAll(dst any, class string) error {
	v := reflect.ValueOf(dst).Elem()
	st := v.Type()
	for i := 0; i < st.NumField(); i++ {
		f := st.Field(i)
		tag, ok := f.Tag.Lookup("sym")
		if !ok {
			continue
		}
		name, optional := strings.CutSuffix(tag, ",optional")
		if strings.Contains(name, "%s") {
			name = fmt.Sprintf(name, class)
		}
		if err := l.b.Bind(v.Field(i).Addr().Interface(), name); err != nil {
			if optional {
				continue
			}
			return err
		}
	}
	return nil
}
