package native

import (
	"fmt"
	"runtime"
	"sync"
)

// cell is the state shared by an owning handle and its shallow copies.
type cell struct {
	mu    sync.Mutex
	ptr   uintptr
	free  func(uintptr)
	freed bool
	// parent keeps the object a borrowed pointer was obtained from alive.
	parent *cell
}

func (c *cell) release() {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.freed || c.free == nil {
		return
	}
	c.free(c.ptr)
	c.freed = true
}

// dead reports whether c or any object it was borrowed from is freed.
func (c *cell) dead() bool {
	for ; c != nil; c = c.parent {
		c.mu.Lock()
		freed := c.freed
		c.mu.Unlock()
		if freed {
			return true
		}
	}
	return false
}

// Handle is the (pointer, owner, library) triple embedded in every
// wrapper.
type Handle struct {
	c     *cell
	owner bool
	lib   *Lib
	class string
}

// owned returns a Handle that frees ptr with free exactly once.
func owned(lib *Lib, class string, ptr uintptr, free func(uintptr)) Handle {
	c := &cell{ptr: ptr, free: free}
	runtime.SetFinalizer(c, (*cell).release)
	return Handle{c: c, owner: true, lib: lib, class: class}
}

// borrowed returns a Handle on a pointer owned by someone else. parent
// may be the zero Handle.
func borrowed(lib *Lib, class string, ptr uintptr, parent Handle) Handle {
	return Handle{c: &cell{ptr: ptr, parent: parent.c}, lib: lib, class: class}
}

// Ptr returns the raw native pointer. It panics with ErrClosed when the
// owning handle, or the owner a borrowed pointer came from, has been
// closed.
func (h Handle) Ptr() uintptr {
	if h.c == nil {
		panic(ErrClosed)
	}
	if h.c.dead() {
		panic(fmt.Errorf("%s: %w", h.class, ErrClosed))
	}
	return h.c.ptr
}

// Owner reports whether the handle frees its pointer.
func (h Handle) Owner() bool { return h.owner }

// Class returns the native class name of the handle.
func (h Handle) Class() string { return h.class }

// Lib returns the library the handle was created from.
func (h Handle) Lib() *Lib { return h.lib }

// Closed reports whether the pointer has been freed.
func (h Handle) Closed() bool {
	if h.c == nil {
		return true
	}
	return h.c.dead()
}

// Close frees the native object if the handle owns it. Closing a
// borrowed handle, or closing twice, does nothing.
func (h Handle) Close() error {
	if !h.owner || h.c == nil {
		return nil
	}
	runtime.SetFinalizer(h.c, nil)
	h.c.release()
	return nil
}

// shallow returns a borrowed handle aliasing the same native object.
func (h Handle) shallow() Handle {
	return Handle{c: h.c, lib: h.lib, class: h.class}
}

func (h Handle) String() string {
	kind := "borrowed"
	if h.owner {
		kind = "owned"
	}
	if h.Closed() {
		return fmt.Sprintf("<%s freed>", h.class)
	}
	return fmt.Sprintf("<%s %#x %s>", h.class, h.c.ptr, kind)
}
