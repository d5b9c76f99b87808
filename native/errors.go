package native

import (
	"errors"
	"fmt"

	"github.com/o2graph-lang/o2graph/loader"
)

// ErrClosed is returned when a handle is used after its owner freed it.
var ErrClosed = errors.New("native: use of freed handle")

// NativeError is a non-zero status returned by a native entry point.
type NativeError struct {
	Func string
	Code int
}

func (e *NativeError) Error() string {
	return fmt.Sprintf("%s failed with status %d", e.Func, e.Code)
}

// status converts a native return code into an error.
func status(fn string, code int32) error {
	if code == 0 {
		return nil
	}
	return &NativeError{Func: fn, Code: int(code)}
}

// missing reports an optional entry point that the library lacks, at
// the point where it is first called.
func missing(symbol string) error {
	return &loader.MissingSymbolError{Symbol: symbol}
}
