package loader

import (
	"errors"
	"fmt"
	"strings"
)

// Sentinels for errors.Is.
var (
	ErrLoad          = errors.New("native library load failure")
	ErrMissingSymbol = errors.New("missing native symbol")
)

// LoadError reports a library that could not be loaded from any of the
// locations tried.
type LoadError struct {
	Library string
	Tried   []string
	Err     error
}

func (e *LoadError) Error() string {
	var b strings.Builder
	fmt.Fprintf(&b, "could not load %s", e.Library)
	if e.Err != nil {
		fmt.Fprintf(&b, ": %v", e.Err)
	}
	if len(e.Tried) > 0 {
		b.WriteString("\nlocations tried:")
		for _, t := range e.Tried {
			b.WriteString("\n  ")
			b.WriteString(t)
		}
	}
	return b.String()
}

func (e *LoadError) Unwrap() error { return e.Err }

func (e *LoadError) Is(target error) bool { return target == ErrLoad }

// MissingSymbolError reports a native entry point that is absent.
type MissingSymbolError struct {
	Symbol string
	Err    error
}

func (e *MissingSymbolError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("missing native symbol %q: %v", e.Symbol, e.Err)
	}
	return fmt.Sprintf("missing native symbol %q", e.Symbol)
}

func (e *MissingSymbolError) Unwrap() error { return e.Err }

func (e *MissingSymbolError) Is(target error) bool { return target == ErrMissingSymbol }
