//go:build darwin || linux || freebsd

package native

import (
	"bytes"
	"errors"
	"io"
	"os"
	"sync/atomic"

	"golang.org/x/sys/unix"
)

// ErrCaptureActive is returned when a capture is started while another
// one is still open.
var ErrCaptureActive = errors.New("native: stdout capture already active")

var capturing atomic.Bool

// Capture redirects file descriptor 1 into a pipe drained by a
// background goroutine, so that output printed by native code can be
// collected as a string.
type Capture struct {
	saved int
	r, w  *os.File
	done  chan struct{}
	buf   bytes.Buffer
	// flush, when set, empties native stdio buffers into the pipe.
	flush func()
}

// StartCapture installs the pipe. Only one capture may be active.
func StartCapture() (*Capture, error) {
	if !capturing.CompareAndSwap(false, true) {
		return nil, ErrCaptureActive
	}
	r, w, err := os.Pipe()
	if err != nil {
		capturing.Store(false)
		return nil, err
	}
	saved, err := unix.Dup(1)
	if err != nil {
		r.Close()
		w.Close()
		capturing.Store(false)
		return nil, err
	}
	if err := dup2(int(w.Fd()), 1); err != nil {
		unix.Close(saved)
		r.Close()
		w.Close()
		capturing.Store(false)
		return nil, err
	}
	c := &Capture{saved: saved, r: r, w: w, done: make(chan struct{})}
	go func() {
		io.Copy(&c.buf, r)
		close(c.done)
	}()
	return c, nil
}

// Close restores the original stdout and returns everything written
// while the capture was active.
func (c *Capture) Close() (string, error) {
	defer capturing.Store(false)
	if c.flush != nil {
		c.flush()
	}
	err := dup2(c.saved, 1)
	unix.Close(c.saved)
	c.w.Close()
	<-c.done
	c.r.Close()
	return c.buf.String(), err
}
