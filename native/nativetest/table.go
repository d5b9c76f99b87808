package nativetest

import (
	"fmt"
	"math"
	"strings"
	"unsafe"

	"github.com/o2graph-lang/o2graph/calc"
)

type column struct {
	h uintptr
	v *vec[float64]
}

type table struct {
	names  []string
	cols   map[string]*column
	nlines int
}

func newTable() *table { return &table{cols: make(map[string]*column)} }

func (c *Core) addColumn(t *table, name string) *column {
	if col, ok := t.cols[name]; ok {
		return col
	}
	col := &column{v: &vec[float64]{v: make([]float64, t.nlines)}}
	col.h = c.put(col.v)
	t.names = append(t.names, name)
	t.cols[name] = col
	return col
}

func (c *Core) deleteColumn(t *table, name string) {
	col, ok := t.cols[name]
	if !ok {
		return
	}
	c.drop(col.h)
	delete(t.cols, name)
	for i, n := range t.names {
		if n == name {
			t.names = append(t.names[:i], t.names[i+1:]...)
			break
		}
	}
}

func (c *Core) clearTable(t *table) {
	for _, n := range append([]string(nil), t.names...) {
		c.deleteColumn(t, n)
	}
	t.nlines = 0
}

func (c *Core) copyTable(dst, src *table) {
	c.clearTable(dst)
	dst.nlines = src.nlines
	for _, n := range src.names {
		c.addColumn(dst, n).v.v = append([]float64(nil), src.cols[n].v.v...)
	}
}

func (t *table) setNLines(n int) {
	t.nlines = n
	for _, col := range t.cols {
		col.v.v = resize(col.v.v, n)
	}
}

// functionColumn evaluates expr row by row with every column bound to
// its value in that row.
func (c *Core) functionColumn(t *table, expr, name string) error {
	prog, err := calc.Compile(expr, t.names...)
	if err != nil {
		return err
	}
	vals := make([]float64, t.nlines)
	vars := make(map[string]float64, len(t.names))
	for row := 0; row < t.nlines; row++ {
		for _, n := range t.names {
			vars[n] = t.cols[n].v.v[row]
		}
		if vals[row], err = prog.Eval(vars); err != nil {
			return err
		}
	}
	c.addColumn(t, name).v.v = vals
	return nil
}

func (t *table) summary() string {
	var b strings.Builder
	fmt.Fprintf(&b, "table with %d columns and %d lines.\n", len(t.names), t.nlines)
	for i, n := range t.names {
		fmt.Fprintf(&b, "%d. %s\n", i, n)
	}
	return b.String()
}

func (c *Core) registerTable() {
	const class = "table__"
	pre := "o2scl_" + class + "_"
	c.def("o2scl_create_"+class, func() uintptr { return c.create(class, newTable()) })
	c.def("o2scl_free_"+class, func(p uintptr) {
		c.clearTable(get[*table](c, p))
		c.free(class, p)
	})
	c.def("o2scl_copy_"+class, func(src, dst uintptr) { c.copyTable(get[*table](c, dst), get[*table](c, src)) })
	c.def(pre+"line_of_names", func(p uintptr, names *byte) {
		t := get[*table](c, p)
		for _, n := range strings.Fields(goString(names)) {
			c.addColumn(t, n)
		}
	})
	c.def(pre+"line_of_data", func(p uintptr, n uint64, data unsafe.Pointer) {
		t := get[*table](c, p)
		row := sliceOf[float64](data, n)
		t.setNLines(t.nlines + 1)
		for i, name := range t.names {
			if i < len(row) {
				t.cols[name].v.v[t.nlines-1] = row[i]
			}
		}
	})
	c.def(pre+"get_nlines", func(p uintptr) uint64 { return uint64(get[*table](c, p).nlines) })
	c.def(pre+"set_nlines", func(p uintptr, n uint64) { get[*table](c, p).setNLines(int(n)) })
	c.def(pre+"get_ncolumns", func(p uintptr) uint64 { return uint64(len(get[*table](c, p).names)) })
	c.def(pre+"get_column_name", func(p uintptr, i uint64) uintptr {
		return c.newString(get[*table](c, p).names[i])
	})
	c.def(pre+"is_column", func(p uintptr, name *byte) bool {
		_, ok := get[*table](c, p).cols[goString(name)]
		return ok
	})
	c.def(pre+"new_column", func(p uintptr, name *byte) { c.addColumn(get[*table](c, p), goString(name)) })
	c.def(pre+"delete_column", func(p uintptr, name *byte) { c.deleteColumn(get[*table](c, p), goString(name)) })
	c.def(pre+"get", func(p uintptr, name *byte, row uint64) float64 {
		col, ok := get[*table](c, p).cols[goString(name)]
		if !ok || int(row) >= len(col.v.v) {
			c.fault("table get %s[%d] out of range", goString(name), row)
			return math.NaN()
		}
		return col.v.v[row]
	})
	c.def(pre+"set", func(p uintptr, name *byte, row uint64, v float64) {
		t := get[*table](c, p)
		col, ok := t.cols[goString(name)]
		if !ok || int(row) >= t.nlines {
			c.fault("table set %s[%d] out of range", goString(name), row)
			return
		}
		col.v.v[row] = v
	})
	c.def(pre+"get_column", func(p uintptr, name *byte) uintptr {
		if col, ok := get[*table](c, p).cols[goString(name)]; ok {
			return col.h
		}
		return 0
	})
	c.def(pre+"function_column", func(p uintptr, expr, name *byte) int32 {
		if err := c.functionColumn(get[*table](c, p), goString(expr), goString(name)); err != nil {
			fmt.Fprintln(c.out(), err)
			return 1
		}
		return 0
	})
	c.def(pre+"clear", func(p uintptr) { c.clearTable(get[*table](c, p)) })
	c.def(pre+"summary", func(p uintptr) { fmt.Fprint(c.out(), get[*table](c, p).summary()) })
}

type slice struct {
	h uintptr
	m *matrix
}

type table3d struct {
	xname, yname string
	x, y         []float64
	names        []string
	slices       map[string]*slice
}

func newTable3D() *table3d { return &table3d{slices: make(map[string]*slice)} }

func (c *Core) addSlice(t *table3d, name string) *slice {
	if s, ok := t.slices[name]; ok {
		return s
	}
	s := &slice{m: &matrix{r: len(t.x), c: len(t.y), v: make([]float64, len(t.x)*len(t.y))}}
	s.h = c.put(s.m)
	t.names = append(t.names, name)
	t.slices[name] = s
	return s
}

func (c *Core) clearTable3D(t *table3d) {
	for _, s := range t.slices {
		c.drop(s.h)
	}
	t.names, t.slices = nil, make(map[string]*slice)
}

func (c *Core) copyTable3D(dst, src *table3d) {
	c.clearTable3D(dst)
	dst.xname, dst.yname = src.xname, src.yname
	dst.x, dst.y = append([]float64(nil), src.x...), append([]float64(nil), src.y...)
	for _, n := range src.names {
		c.addSlice(dst, n).m.v = append([]float64(nil), src.slices[n].m.v...)
	}
}

func closest(g []float64, v float64) int {
	best := 0
	for i := range g {
		if math.Abs(g[i]-v) < math.Abs(g[best]-v) {
			best = i
		}
	}
	return best
}

// functionSlice evaluates expr at every grid point with the grid names
// and the other slices bound.
func (c *Core) functionSlice(t *table3d, expr, name string) error {
	names := append([]string{t.xname, t.yname}, t.names...)
	prog, err := calc.Compile(expr, names...)
	if err != nil {
		return err
	}
	nx, ny := len(t.x), len(t.y)
	vals := make([]float64, nx*ny)
	vars := make(map[string]float64, len(names))
	for i := 0; i < nx; i++ {
		for j := 0; j < ny; j++ {
			vars[t.xname], vars[t.yname] = t.x[i], t.y[j]
			for _, n := range t.names {
				vars[n] = t.slices[n].m.v[i*ny+j]
			}
			if vals[i*ny+j], err = prog.Eval(vars); err != nil {
				return err
			}
		}
	}
	c.addSlice(t, name).m.v = vals
	return nil
}

func (c *Core) registerTable3D() {
	const class = "table3d"
	pre := "o2scl_" + class + "_"
	at := func(t *table3d, name string, i, j int) *float64 {
		s, ok := t.slices[name]
		if !ok || i < 0 || i >= len(t.x) || j < 0 || j >= len(t.y) {
			c.fault("table3d %s(%d,%d) out of range", name, i, j)
			return new(float64)
		}
		return &s.m.v[i*len(t.y)+j]
	}
	c.def("o2scl_create_"+class, func() uintptr { return c.create(class, newTable3D()) })
	c.def("o2scl_free_"+class, func(p uintptr) {
		c.clearTable3D(get[*table3d](c, p))
		c.free(class, p)
	})
	c.def("o2scl_copy_"+class, func(src, dst uintptr) { c.copyTable3D(get[*table3d](c, dst), get[*table3d](c, src)) })
	c.def(pre+"set_xy", func(p uintptr, xname *byte, nx uint64, x unsafe.Pointer, yname *byte, ny uint64, y unsafe.Pointer) {
		t := get[*table3d](c, p)
		c.clearTable3D(t)
		t.xname, t.x = goString(xname), sliceOf[float64](x, nx)
		t.yname, t.y = goString(yname), sliceOf[float64](y, ny)
	})
	c.def(pre+"new_slice", func(p uintptr, name *byte) { c.addSlice(get[*table3d](c, p), goString(name)) })
	c.def(pre+"set", func(p uintptr, i, j uint64, name *byte, v float64) {
		*at(get[*table3d](c, p), goString(name), int(i), int(j)) = v
	})
	c.def(pre+"get", func(p uintptr, i, j uint64, name *byte) float64 {
		return *at(get[*table3d](c, p), goString(name), int(i), int(j))
	})
	c.def(pre+"set_val", func(p uintptr, x, y float64, name *byte, v float64) {
		t := get[*table3d](c, p)
		*at(t, goString(name), closest(t.x, x), closest(t.y, y)) = v
	})
	c.def(pre+"get_val", func(p uintptr, x, y float64, name *byte) float64 {
		t := get[*table3d](c, p)
		return *at(t, goString(name), closest(t.x, x), closest(t.y, y))
	})
	c.def(pre+"get_nx", func(p uintptr) uint64 { return uint64(len(get[*table3d](c, p).x)) })
	c.def(pre+"get_ny", func(p uintptr) uint64 { return uint64(len(get[*table3d](c, p).y)) })
	c.def(pre+"get_nslices", func(p uintptr) uint64 { return uint64(len(get[*table3d](c, p).names)) })
	c.def(pre+"get_grid_x", func(p uintptr, i uint64) float64 { return get[*table3d](c, p).x[i] })
	c.def(pre+"get_grid_y", func(p uintptr, i uint64) float64 { return get[*table3d](c, p).y[i] })
	c.def(pre+"get_x_name", func(p uintptr) uintptr { return c.newString(get[*table3d](c, p).xname) })
	c.def(pre+"get_y_name", func(p uintptr) uintptr { return c.newString(get[*table3d](c, p).yname) })
	c.def(pre+"get_slice_name", func(p uintptr, i uint64) uintptr {
		return c.newString(get[*table3d](c, p).names[i])
	})
	c.def(pre+"get_slice", func(p uintptr, name *byte) uintptr {
		if s, ok := get[*table3d](c, p).slices[goString(name)]; ok {
			return s.h
		}
		return 0
	})
	c.def(pre+"function_slice", func(p uintptr, expr, name *byte) int32 {
		if err := c.functionSlice(get[*table3d](c, p), goString(expr), goString(name)); err != nil {
			fmt.Fprintln(c.out(), err)
			return 1
		}
		return 0
	})
	c.def(pre+"summary", func(p uintptr) {
		t := get[*table3d](c, p)
		fmt.Fprintf(c.out(), "table3d %s[%d] x %s[%d] slices: %s\n",
			t.xname, len(t.x), t.yname, len(t.y), strings.Join(t.names, " "))
	})
}
