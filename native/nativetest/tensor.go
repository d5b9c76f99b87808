package nativetest

import (
	"fmt"
	"math"
	"sort"
	"strconv"
	"strings"
	"unsafe"
)

// tensor backs both tensor and tensor_grid; grid is empty for the
// former.
type tensor struct {
	sizes []uint64
	data  *vec[float64]
	dataH uintptr
	grid  []float64
}

func (c *Core) newTensor() *tensor {
	t := &tensor{data: &vec[float64]{}}
	t.dataH = c.put(t.data)
	return t
}

func (t *tensor) total() int {
	if len(t.sizes) == 0 {
		return 0
	}
	n := 1
	for _, s := range t.sizes {
		n *= int(s)
	}
	return n
}

func (t *tensor) resize(sizes []uint64) {
	t.sizes = append([]uint64(nil), sizes...)
	t.data.v = make([]float64, t.total())
	t.grid = nil
}

// linear maps a multi-index to the packed position; the last index
// varies fastest.
func (t *tensor) linear(ix []uint64) int {
	n := 0
	for i, v := range ix {
		n = n*int(t.sizes[i]) + int(v)
	}
	return n
}

func (t *tensor) unlinear(n int, ix []int) {
	for i := len(t.sizes) - 1; i >= 0; i-- {
		s := int(t.sizes[i])
		ix[i] = n % s
		n /= s
	}
}

// gridOf returns the grid of axis i.
func (t *tensor) gridOf(i int) []float64 {
	if len(t.grid) == 0 {
		return nil
	}
	off := 0
	for k := 0; k < i; k++ {
		off += int(t.sizes[k])
	}
	return t.grid[off : off+int(t.sizes[i])]
}

func (t *tensor) copyFrom(s *tensor) {
	t.sizes = append([]uint64(nil), s.sizes...)
	t.data.v = append([]float64(nil), s.data.v...)
	t.grid = append([]float64(nil), s.grid...)
}

func (c *Core) registerTensor(class string) {
	c.def("o2scl_create_"+class, func() uintptr { return c.create(class, c.newTensor()) })
	c.def("o2scl_free_"+class, func(p uintptr) {
		c.drop(get[*tensor](c, p).dataH)
		c.free(class, p)
	})
	c.def("o2scl_copy_"+class, func(src, dst uintptr) {
		get[*tensor](c, dst).copyFrom(get[*tensor](c, src))
	})
	c.def("o2scl_"+class+"_resize", func(p uintptr, n uint64, sizes unsafe.Pointer) {
		get[*tensor](c, p).resize(sliceOf[uint64](sizes, n))
	})
	c.def("o2scl_"+class+"_get_rank", func(p uintptr) uint64 { return uint64(len(get[*tensor](c, p).sizes)) })
	c.def("o2scl_"+class+"_get_size", func(p uintptr, i uint64) uint64 { return get[*tensor](c, p).sizes[i] })
	c.def("o2scl_"+class+"_total_size", func(p uintptr) uint64 { return uint64(get[*tensor](c, p).total()) })
	c.def("o2scl_"+class+"_get", func(p uintptr, ix unsafe.Pointer) float64 {
		t := get[*tensor](c, p)
		return t.data.v[t.linear(sliceOf[uint64](ix, uint64(len(t.sizes))))]
	})
	c.def("o2scl_"+class+"_set", func(p uintptr, ix unsafe.Pointer, v float64) {
		t := get[*tensor](c, p)
		t.data.v[t.linear(sliceOf[uint64](ix, uint64(len(t.sizes))))] = v
	})
	c.def("o2scl_"+class+"_set_all", func(p uintptr, v float64) {
		d := get[*tensor](c, p).data.v
		for i := range d {
			d[i] = v
		}
	})
	c.def("o2scl_"+class+"_get_data", func(p uintptr) uintptr { return get[*tensor](c, p).dataH })
	c.def("o2scl_"+class+"_rearrange_and_copy", func(p uintptr, spec *byte, verbose int32, errOnFail bool) uintptr {
		t := get[*tensor](c, p)
		out, err := t.rearrange(goString(spec))
		if err != nil {
			if verbose > 0 {
				fmt.Fprintln(c.out(), err)
			}
			return 0
		}
		n := c.newTensor()
		n.sizes, n.data.v, n.grid = out.sizes, out.data.v, out.grid
		return c.create(class, n)
	})
	c.def("o2scl_"+class+"_summary", func(p uintptr) {
		t := get[*tensor](c, p)
		fmt.Fprintf(c.out(), "rank: %d sizes: %v total: %d\n", len(t.sizes), t.sizes, t.total())
	})
}

func (c *Core) registerGrid(class string) {
	c.def("o2scl_"+class+"_set_grid_packed", func(p, v uintptr) {
		t := get[*tensor](c, p)
		t.grid = append([]float64(nil), get[*vec[float64]](c, v).v...)
	})
	c.def("o2scl_"+class+"_get_grid", func(p uintptr, i, j uint64) float64 {
		return get[*tensor](c, p).gridOf(int(i))[j]
	})
	c.def("o2scl_"+class+"_interp_linear", func(p, v uintptr) float64 {
		return get[*tensor](c, p).interpLinear(get[*vec[float64]](c, v).v)
	})
}

// interpLinear interpolates multilinearly between the 2^rank grid
// points surrounding x. Points outside the grid are extrapolated from
// the outermost cell.
func (t *tensor) interpLinear(x []float64) float64 {
	rank := len(t.sizes)
	if len(x) != rank || len(t.grid) == 0 {
		return math.NaN()
	}
	lo := make([]int, rank)
	frac := make([]float64, rank)
	for i := 0; i < rank; i++ {
		g := t.gridOf(i)
		if len(g) < 2 {
			lo[i], frac[i] = 0, 0
			continue
		}
		k := sort.SearchFloat64s(g, x[i]) - 1
		k = max(0, min(k, len(g)-2))
		lo[i] = k
		frac[i] = (x[i] - g[k]) / (g[k+1] - g[k])
	}
	ix := make([]uint64, rank)
	sum := 0.0
	for corner := 0; corner < 1<<rank; corner++ {
		w := 1.0
		for i := 0; i < rank; i++ {
			up := corner>>i&1 == 1
			ix[i] = uint64(lo[i])
			if up && t.sizes[i] > 1 {
				ix[i]++
				w *= frac[i]
			} else if t.sizes[i] > 1 {
				w *= 1 - frac[i]
			}
			if up && t.sizes[i] <= 1 {
				w = 0
			}
		}
		if w != 0 {
			sum += w * t.data.v[t.linear(ix)]
		}
	}
	return sum
}

type outAxis struct {
	src     int
	lo, hi  int
	reverse bool
}

// rearrange applies the index/fixed/sum/range/reverse directives.
func (t *tensor) rearrange(spec string) (*tensor, error) {
	rank := len(t.sizes)
	var axes []outAxis
	fixed := map[int]int{}
	summed := map[int]bool{}
	seen := map[int]bool{}
	for _, d := range strings.Fields(spec) {
		name, argstr, ok := strings.Cut(strings.TrimSuffix(d, ")"), "(")
		if !ok {
			return nil, fmt.Errorf("rearrange: bad directive %q", d)
		}
		args := strings.Split(argstr, ",")
		k, err := strconv.Atoi(strings.TrimSpace(args[0]))
		if err != nil || k < 0 || k >= rank || seen[k] {
			return nil, fmt.Errorf("rearrange: bad axis in %q", d)
		}
		seen[k] = true
		n := int(t.sizes[k])
		switch {
		case name == "index" && len(args) == 1:
			axes = append(axes, outAxis{src: k, lo: 0, hi: n - 1})
		case name == "reverse" && len(args) == 1:
			axes = append(axes, outAxis{src: k, lo: 0, hi: n - 1, reverse: true})
		case name == "sum" && len(args) == 1:
			summed[k] = true
		case name == "fixed" && len(args) == 2:
			v, err := strconv.ParseFloat(strings.TrimSpace(args[1]), 64)
			if err != nil {
				return nil, fmt.Errorf("rearrange: bad value in %q", d)
			}
			fixed[k] = t.nearest(k, v)
		case name == "range" && len(args) == 3:
			lo, err1 := strconv.Atoi(strings.TrimSpace(args[1]))
			hi, err2 := strconv.Atoi(strings.TrimSpace(args[2]))
			if err1 != nil || err2 != nil || lo < 0 || hi >= n {
				return nil, fmt.Errorf("rearrange: bad range in %q", d)
			}
			rev := lo > hi
			if rev {
				lo, hi = hi, lo
			}
			axes = append(axes, outAxis{src: k, lo: lo, hi: hi, reverse: rev})
		default:
			return nil, fmt.Errorf("rearrange: unknown directive %q", d)
		}
	}
	if len(seen) != rank {
		return nil, fmt.Errorf("rearrange: every one of the %d axes must be named", rank)
	}
	out := &tensor{data: &vec[float64]{}}
	sizes := make([]uint64, len(axes))
	for i, a := range axes {
		sizes[i] = uint64(a.hi - a.lo + 1)
	}
	if len(axes) == 0 {
		sizes = []uint64{1}
	}
	out.resize(sizes)
	if len(t.grid) > 0 {
		for _, a := range axes {
			g := append([]float64(nil), t.gridOf(a.src)[a.lo:a.hi+1]...)
			if a.reverse {
				for i, j := 0, len(g)-1; i < j; i, j = i+1, j-1 {
					g[i], g[j] = g[j], g[i]
				}
			}
			out.grid = append(out.grid, g...)
		}
	}
	src := make([]int, rank)
	dst := make([]uint64, len(axes))
next:
	for n := range t.data.v {
		t.unlinear(n, src)
		for k, v := range fixed {
			if src[k] != v {
				continue next
			}
		}
		for i, a := range axes {
			v := src[a.src]
			if v < a.lo || v > a.hi {
				continue next
			}
			if a.reverse {
				dst[i] = uint64(a.hi - v)
			} else {
				dst[i] = uint64(v - a.lo)
			}
		}
		if len(axes) == 0 {
			out.data.v[0] += t.data.v[n]
			continue
		}
		out.data.v[out.linear(dst)] += t.data.v[n]
	}
	return out, nil
}

// nearest converts a fixed() value to an index: a grid coordinate for
// tensor_grid, an index otherwise.
func (t *tensor) nearest(k int, v float64) int {
	g := t.gridOf(k)
	if len(g) == 0 {
		return max(0, min(int(math.Round(v)), int(t.sizes[k])-1))
	}
	best := 0
	for i := range g {
		if math.Abs(g[i]-v) < math.Abs(g[best]-v) {
			best = i
		}
	}
	return best
}
