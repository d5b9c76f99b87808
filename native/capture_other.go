//go:build !(darwin || linux || freebsd)

package native

import "errors"

// ErrCaptureActive is returned when a capture is started while another
// one is still open.
var ErrCaptureActive = errors.New("native: stdout capture already active")

var errNoCapture = errors.New("native: stdout capture is not supported on this platform")

// Capture is unavailable on this platform.
type Capture struct {
	flush func()
}

// StartCapture always fails on this platform.
func StartCapture() (*Capture, error) { return nil, errNoCapture }

// Close does nothing.
func (c *Capture) Close() (string, error) { return "", errNoCapture }
