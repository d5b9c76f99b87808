// Package calc evaluates the small numeric expressions that appear in
// command arguments, keyword values and column functions, e.g.
// "2*col1", "pi/2" or "(sin(x)+sin(2*y))*exp(-z**2)".
package calc

import (
	"fmt"
	"math"
	"strconv"
	"strings"

	"github.com/expr-lang/expr"
	"github.com/expr-lang/expr/vm"
)

// functions available to every expression. Names that expr already
// provides as builtins (abs, ceil, floor, round, max, min) are left to
// expr.
var functions = map[string]any{
	"sin":   math.Sin,
	"cos":   math.Cos,
	"tan":   math.Tan,
	"asin":  math.Asin,
	"acos":  math.Acos,
	"atan":  math.Atan,
	"atan2": math.Atan2,
	"sinh":  math.Sinh,
	"cosh":  math.Cosh,
	"tanh":  math.Tanh,
	"exp":   math.Exp,
	"log":   math.Log,
	"log10": math.Log10,
	"sqrt":  math.Sqrt,
	"pow":   math.Pow,
	"hypot": math.Hypot,
}

var constants = map[string]float64{
	"pi": math.Pi,
	"e":  math.E,
}

// Program is a compiled expression over a fixed set of variable names.
type Program struct {
	src   string
	names []string
	prog  *vm.Program
}

func env(vars map[string]float64) map[string]any {
	m := make(map[string]any, len(functions)+len(constants)+len(vars))
	for k, f := range functions {
		m[k] = f
	}
	for k, v := range constants {
		m[k] = v
	}
	for k, v := range vars {
		m[k] = v
	}
	return m
}

// Compile compiles src so that it can be evaluated repeatedly with the
// variables in names bound to numbers.
func Compile(src string, names ...string) (*Program, error) {
	proto := make(map[string]float64, len(names))
	for _, n := range names {
		proto[n] = 0
	}
	prog, err := expr.Compile(src, expr.Env(env(proto)))
	if err != nil {
		return nil, fmt.Errorf("calc: compile %q: %w", src, err)
	}
	return &Program{src: src, names: names, prog: prog}, nil
}

// Eval runs the program with the given variable bindings.
func (p *Program) Eval(vars map[string]float64) (float64, error) {
	out, err := expr.Run(p.prog, env(vars))
	if err != nil {
		return 0, fmt.Errorf("calc: eval %q: %w", p.src, err)
	}
	return toFloat(p.src, out)
}

// String returns the source expression.
func (p *Program) String() string { return p.src }

// Eval evaluates src once.
func Eval(src string, vars map[string]float64) (float64, error) {
	if f, err := strconv.ParseFloat(strings.TrimSpace(src), 64); err == nil {
		return f, nil
	}
	names := make([]string, 0, len(vars))
	for k := range vars {
		names = append(names, k)
	}
	p, err := Compile(src, names...)
	if err != nil {
		return 0, err
	}
	return p.Eval(vars)
}

// Float evaluates a constant expression such as "3.5" or "pi/4".
func Float(src string) (float64, error) {
	return Eval(src, nil)
}

// Int evaluates a constant expression and requires an integral result.
func Int(src string) (int, error) {
	f, err := Float(src)
	if err != nil {
		return 0, err
	}
	if f != math.Trunc(f) {
		return 0, fmt.Errorf("calc: %q is not an integer", src)
	}
	return int(f), nil
}

func toFloat(src string, v any) (float64, error) {
	switch x := v.(type) {
	case float64:
		return x, nil
	case float32:
		return float64(x), nil
	case int:
		return float64(x), nil
	case int64:
		return float64(x), nil
	case bool:
		if x {
			return 1, nil
		}
		return 0, nil
	default:
		return 0, fmt.Errorf("calc: %q evaluated to non-numeric %T", src, v)
	}
}
