package dispatch

import (
	"fmt"
	"strings"

	"github.com/o2graph-lang/o2graph/calc"
)

// ParseBool accepts the usual spellings of true and false.
func ParseBool(s string) (bool, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "1", "true", "yes", "on", "t", "y":
		return true, nil
	case "0", "false", "no", "off", "f", "n":
		return false, nil
	default:
		return false, fmt.Errorf("expected boolean but got %q", s)
	}
}

// ParseFloats parses "[a,b,c]", "(a,b,c)" or "a,b,c"; each element may
// be an expression.
func ParseFloats(s string) ([]float64, error) {
	s = strings.TrimSpace(s)
	s = strings.TrimPrefix(strings.TrimPrefix(s, "["), "(")
	s = strings.TrimSuffix(strings.TrimSuffix(s, "]"), ")")
	if strings.TrimSpace(s) == "" {
		return nil, nil
	}
	parts := splitTop(s, ',')
	out := make([]float64, len(parts))
	for i, p := range parts {
		v, err := calc.Float(strings.TrimSpace(p))
		if err != nil {
			return nil, err
		}
		out[i] = v
	}
	return out, nil
}

// Args gives typed access to the positional arguments of a command.
// Conversion errors are ArgumentErrors naming the command.
type Args struct {
	Cmd  string
	Vals []string
}

// Len returns the number of arguments.
func (a Args) Len() int { return len(a.Vals) }

// Str returns argument i with one level of quotes removed.
func (a Args) Str(i int) string {
	if i >= len(a.Vals) {
		return ""
	}
	return Unquote(a.Vals[i])
}

// StrOr returns argument i, or def when absent.
func (a Args) StrOr(i int, def string) string {
	if i >= len(a.Vals) {
		return def
	}
	return a.Str(i)
}

// Float evaluates argument i.
func (a Args) Float(i int) (float64, error) {
	if i >= len(a.Vals) {
		return 0, notEnough(a.Cmd, len(a.Vals), i+1)
	}
	v, err := calc.Float(a.Str(i))
	if err != nil {
		return 0, Argf(a.Cmd, "argument %d: %v", i+1, err)
	}
	return v, nil
}

// Floats evaluates arguments from..to (exclusive).
func (a Args) Floats(from, to int) ([]float64, error) {
	out := make([]float64, 0, to-from)
	for i := from; i < to; i++ {
		v, err := a.Float(i)
		if err != nil {
			return nil, err
		}
		out = append(out, v)
	}
	return out, nil
}

// Int evaluates argument i as an integer.
func (a Args) Int(i int) (int, error) {
	if i >= len(a.Vals) {
		return 0, notEnough(a.Cmd, len(a.Vals), i+1)
	}
	v, err := calc.Int(a.Str(i))
	if err != nil {
		return 0, Argf(a.Cmd, "argument %d: %v", i+1, err)
	}
	return v, nil
}

// Bool parses argument i as a boolean.
func (a Args) Bool(i int) (bool, error) {
	if i >= len(a.Vals) {
		return false, notEnough(a.Cmd, len(a.Vals), i+1)
	}
	v, err := ParseBool(a.Str(i))
	if err != nil {
		return false, Argf(a.Cmd, "argument %d: %v", i+1, err)
	}
	return v, nil
}

// Vector parses argument i as a list of numbers.
func (a Args) Vector(i int) ([]float64, error) {
	if i >= len(a.Vals) {
		return nil, notEnough(a.Cmd, len(a.Vals), i+1)
	}
	v, err := ParseFloats(a.Str(i))
	if err != nil {
		return nil, Argf(a.Cmd, "argument %d: %v", i+1, err)
	}
	return v, nil
}
