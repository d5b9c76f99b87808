//go:build darwin || linux || freebsd

package loader

import (
	"fmt"

	"github.com/ebitengine/purego"
)

func dlopen(path string) (uintptr, error) {
	return purego.Dlopen(path, purego.RTLD_NOW|purego.RTLD_GLOBAL)
}

func dlsym(handle uintptr, symbol string) (uintptr, error) {
	return purego.Dlsym(handle, symbol)
}

func dlclose(handle uintptr) error {
	return purego.Dlclose(handle)
}

// register wraps purego.RegisterFunc, which panics on signatures it
// cannot marshal.
func register(fptr any, addr uintptr, symbol string) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = &MissingSymbolError{Symbol: symbol, Err: fmt.Errorf("cannot bind: %v", r)}
		}
	}()
	purego.RegisterFunc(fptr, addr)
	return nil
}
