// Package nativetest is an in-process stand-in for the o2scl shared
// library. It binds Go functions with the same ABI signatures as the
// native entry points, by symbol name, so that the native package and
// everything above it can be exercised without the C++ library.
//
// Object pointers handed out by the double are registry handles, not
// addresses. Data pointers (vector and matrix storage, strings returned
// through out-parameters) are real Go memory kept alive by the
// registry.
package nativetest

import (
	"fmt"
	"io"
	"os"
	"reflect"
	"sort"
	"sync"
	"unsafe"

	"github.com/o2graph-lang/o2graph/loader"
)

// Core is one instance of the double. It implements loader.Binder.
type Core struct {
	mu      sync.Mutex
	objects map[uintptr]any
	nextObj uintptr

	syms    map[string]any
	created map[string]int
	freed   map[string]int
	// Faults collects misuse detected by the double, such as freeing
	// an unknown handle.
	faults []string

	// Stdout receives what native summaries and commands print. It
	// defaults to os.Stdout so that stdout capture sees it.
	Stdout io.Writer

	version string
	flushes int
}

var _ loader.Binder = (*Core)(nil)

// New returns a double with every supported class registered.
func New() *Core {
	c := &Core{
		objects: make(map[uintptr]any),
		nextObj: 1,
		syms:    make(map[string]any),
		created: make(map[string]int),
		freed:   make(map[string]int),
		version: "0.930-test",
	}
	c.registerStrings()
	registerVector[float64](c, "std_vector_double_")
	registerVector[int32](c, "std_vector_int_")
	registerVector[uint64](c, "std_vector_size_t_")
	c.registerVecVec()
	c.registerMatrix()
	c.registerTensor("tensor__")
	c.registerTensor("tensor_grid__")
	c.registerGrid("tensor_grid__")
	c.registerTable()
	c.registerTable3D()
	c.registerHist()
	c.registerHist2D()
	c.registerHDF()
	c.registerSettings()
	c.registerAcol()
	c.def("fflush", func(uintptr) int32 {
		c.mu.Lock()
		c.flushes++
		c.mu.Unlock()
		if f, ok := c.out().(interface{ Flush() error }); ok {
			f.Flush()
		}
		return 0
	})
	return c
}

// Bind implements loader.Binder. The registered function must have
// exactly the type of the variable fptr points to.
func (c *Core) Bind(fptr any, symbol string) error {
	fn, ok := c.syms[symbol]
	if !ok {
		return &loader.MissingSymbolError{Symbol: symbol}
	}
	dst := reflect.ValueOf(fptr)
	if dst.Kind() != reflect.Pointer || dst.Elem().Kind() != reflect.Func {
		return fmt.Errorf("nativetest: bind %s: need a pointer to a func, got %T", symbol, fptr)
	}
	src := reflect.ValueOf(fn)
	if src.Type() != dst.Elem().Type() {
		return fmt.Errorf("nativetest: bind %s: have %s, want %s", symbol, src.Type(), dst.Elem().Type())
	}
	dst.Elem().Set(src)
	return nil
}

// Remove drops a symbol, so tests can simulate an older library.
func (c *Core) Remove(symbol string) { delete(c.syms, symbol) }

// Symbols returns the names of all bound symbols, sorted.
func (c *Core) Symbols() []string {
	out := make([]string, 0, len(c.syms))
	for k := range c.syms {
		out = append(out, k)
	}
	sort.Strings(out)
	return out
}

// Created returns how many objects of class were made by a create entry
// point (or returned as owning results).
func (c *Core) Created(class string) int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.created[class]
}

// Freed returns how many objects of class were freed.
func (c *Core) Freed(class string) int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.freed[class]
}

// Live returns Created(class) - Freed(class).
func (c *Core) Live(class string) int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.created[class] - c.freed[class]
}

// Flushes returns how many times fflush was called.
func (c *Core) Flushes() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.flushes
}

// Faults returns the misuse recorded so far.
func (c *Core) Faults() []string {
	c.mu.Lock()
	defer c.mu.Unlock()
	return append([]string(nil), c.faults...)
}

func (c *Core) def(symbol string, fn any) { c.syms[symbol] = fn }

func (c *Core) out() io.Writer {
	if c.Stdout != nil {
		return c.Stdout
	}
	return os.Stdout
}

func (c *Core) fault(format string, args ...any) {
	c.faults = append(c.faults, fmt.Sprintf(format, args...))
}

// put registers obj and returns its handle. Objects owned by another
// object are registered with put only; objects owned by the caller go
// through create.
func (c *Core) put(obj any) uintptr {
	if obj == nil {
		return 0
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	h := c.nextObj
	c.nextObj++
	c.objects[h] = obj
	return h
}

func (c *Core) create(class string, obj any) uintptr {
	h := c.put(obj)
	c.mu.Lock()
	c.created[class]++
	c.mu.Unlock()
	return h
}

func (c *Core) free(class string, h uintptr) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if _, ok := c.objects[h]; !ok {
		c.fault("free of unknown %s handle %d", class, h)
		return
	}
	delete(c.objects, h)
	c.freed[class]++
}

func (c *Core) drop(h uintptr) {
	c.mu.Lock()
	defer c.mu.Unlock()
	delete(c.objects, h)
}

// get returns the object behind handle h. A stale or mistyped handle is
// recorded as a fault and yields the zero value.
func get[T any](c *Core, h uintptr) T {
	c.mu.Lock()
	defer c.mu.Unlock()
	v, ok := c.objects[h].(T)
	if !ok {
		var zero T
		c.fault("handle %d is %T, want %T", h, c.objects[h], zero)
		return zero
	}
	return v
}

// goString reads a NUL-terminated string.
func goString(p *byte) string {
	if p == nil {
		return ""
	}
	var n int
	for *(*byte)(unsafe.Add(unsafe.Pointer(p), n)) != 0 {
		n++
	}
	return string(unsafe.Slice(p, n))
}

func sliceOf[T any](p unsafe.Pointer, n uint64) []T {
	if p == nil || n == 0 {
		return nil
	}
	return append([]T(nil), unsafe.Slice((*T)(p), n)...)
}
