//go:build !(darwin || linux || freebsd)

package loader

import (
	"errors"
	"runtime"
)

var errUnsupported = errors.New("dynamic loading is not supported on " + runtime.GOOS)

func dlopen(path string) (uintptr, error) { return 0, errUnsupported }

func dlsym(handle uintptr, symbol string) (uintptr, error) { return 0, errUnsupported }

func dlclose(handle uintptr) error { return nil }

func register(fptr any, addr uintptr, symbol string) error {
	return &MissingSymbolError{Symbol: symbol, Err: errUnsupported}
}
