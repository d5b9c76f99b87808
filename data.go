package o2graph

import (
	"fmt"
	"strings"

	"github.com/o2graph-lang/o2graph/calc"
	"github.com/o2graph-lang/o2graph/dispatch"
	"github.com/o2graph-lang/o2graph/figure"
	"github.com/o2graph-lang/o2graph/native"
)

// columns fetches table columns by name.
func (g *Graph) columns(names ...string) ([][]float64, error) {
	out := make([][]float64, len(names))
	for i, n := range names {
		c, err := g.acol.Column(n)
		if err != nil {
			return nil, err
		}
		out[i] = c
	}
	return out, nil
}

// optColumn returns nil for an absent or "none" column argument.
func (g *Graph) optColumn(a dispatch.Args, i int) ([]float64, error) {
	s := a.StrOr(i, "none")
	if isNone(s) {
		return nil, nil
	}
	return g.acol.Column(s)
}

func isNone(s string) bool {
	switch strings.ToLower(s) {
	case "", "none", "null":
		return true
	}
	return false
}

// errorsArg reads one error argument of errorbar: "none", a number, a
// column, or "lo,hi" for an asymmetric pair of columns.
func (g *Graph) errorsArg(s string, n int) (*figure.Errors, error) {
	if isNone(s) {
		return nil, nil
	}
	if v, err := calc.Float(s); err == nil {
		return figure.Constant(v, n), nil
	}
	if lo, hi, ok := strings.Cut(s, ","); ok {
		c, err := g.columns(strings.TrimSpace(lo), strings.TrimSpace(hi))
		if err != nil {
			return nil, err
		}
		return &figure.Errors{Low: c[0], High: c[1]}, nil
	}
	c, err := g.acol.Column(s)
	if err != nil {
		return nil, err
	}
	return figure.Symmetric(c), nil
}

// slice returns a table3d slice as a density grid.
func (g *Graph) slice(name string) (figure.Grid, error) {
	x, y, d, err := g.acol.Slice(name)
	if err != nil {
		return figure.Grid{}, err
	}
	return figure.Grid{X: x, Y: y, Data: d}, nil
}

// hist2dGrid returns the current hist_2d as a density grid.
func (g *Graph) hist2dGrid() (figure.Grid, error) {
	x, y, d, err := g.acol.Hist2D()
	if err != nil {
		return figure.Grid{}, err
	}
	return figure.Grid{X: x, Y: y, Data: d}, nil
}

// convertIntTensor turns a tensor<int> or tensor<size_t> into a double
// tensor through the native processor.
func (g *Graph) convertIntTensor(typ native.Type) error {
	if typ != native.TypeTensorInt && typ != native.TypeTensorSizeT {
		return nil
	}
	return g.disp.Native("-convert", "double")
}

// tensorGrid projects the current tensor or tensor_grid onto two axes.
// dirs is a rearrange directive list; it may be empty for rank 2. The
// grid of a plain tensor is its index.
func (g *Graph) tensorGrid(dirs string) (figure.Grid, error) {
	var t *native.Tensor
	var tg *native.TensorGrid
	var err error
	switch typ := g.acol.Type(); typ {
	case native.TypeTensorGrid:
		if tg, err = g.acol.TensorGrid(); err != nil {
			return figure.Grid{}, err
		}
		if dirs != "" {
			if tg, err = tg.RearrangeAndCopy(dirs); err != nil {
				return figure.Grid{}, err
			}
			defer tg.Close()
		}
		t = &tg.Tensor
	case native.TypeTensor:
		if t, err = g.acol.Tensor(); err != nil {
			return figure.Grid{}, err
		}
		if dirs != "" {
			if t, err = t.RearrangeAndCopy(dirs); err != nil {
				return figure.Grid{}, err
			}
			defer t.Close()
		}
	default:
		return figure.Grid{}, fmt.Errorf("current object is %s, not a tensor", typ)
	}
	if t.Rank() != 2 {
		return figure.Grid{}, fmt.Errorf("need a rank 2 projection but have rank %d; give index(), fixed() or sum() directives", t.Rank())
	}
	view, err := t.View()
	if err != nil {
		return figure.Grid{}, err
	}
	out := figure.Grid{Data: append([]float64(nil), view...)}
	if tg != nil {
		out.X, out.Y = tg.GridOf(0), tg.GridOf(1)
	} else {
		out.X, out.Y = indexGrid(t.Size(0)), indexGrid(t.Size(1))
	}
	return out, nil
}

func indexGrid(n int) []float64 {
	out := make([]float64, n)
	for i := range out {
		out[i] = float64(i)
	}
	return out
}

// rearrangeDirs joins directive arguments; a bare axis number k stands
// for index(k).
func rearrangeDirs(args []string) string {
	parts := make([]string, 0, len(args))
	for _, a := range args {
		a = dispatch.Unquote(a)
		if _, err := calc.Int(a); err == nil && !strings.Contains(a, "(") {
			a = "index(" + a + ")"
		}
		parts = append(parts, a)
	}
	return strings.Join(parts, " ")
}
