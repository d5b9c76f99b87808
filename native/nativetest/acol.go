package nativetest

import (
	"fmt"
	"math"
	"sort"
	"strconv"
	"strings"
	"unsafe"

	"github.com/o2graph-lang/o2graph/calc"
)

type contourLine struct {
	level float64
	x, y  []float64
}

// acol is a small command processor with the same entry points as the
// native one. It understands enough commands to drive the graph tool
// in tests.
type acol struct {
	typ    string
	typBuf []byte
	obj    any
	h      uintptr

	aliases map[string][]string
	pending []string
	params  map[string]string
	verbose int32

	// keep holds buffers handed out through out-parameters until the
	// next call.
	keep [][]float64
}

func newAcol() *acol {
	return &acol{
		aliases: map[string][]string{},
		params:  map[string]string{"verbose": "1", "precision": "6", "interp_type": "1"},
	}
}

func (c *Core) setCurrent(a *acol, typ string, obj any) {
	if a.h != 0 {
		c.release(a.h)
	}
	a.typ, a.obj, a.h = typ, obj, 0
	switch obj.(type) {
	case *table, *table3d, *tensor, *hist, *hist2d:
		a.h = c.put(obj)
	}
}

// release drops an object owned by the processor and its children.
func (c *Core) release(h uintptr) {
	switch o := get[any](c, h).(type) {
	case *table:
		c.clearTable(o)
	case *table3d:
		c.clearTable3D(o)
	case *tensor:
		c.drop(o.dataH)
	}
	c.drop(h)
}

func (a *acol) hold(v []float64) unsafe.Pointer {
	if len(v) == 0 {
		return nil
	}
	a.keep = append(a.keep, v)
	return unsafe.Pointer(&v[0])
}

func (c *Core) registerAcol() {
	const class = "acol_manager"
	m := func(p uintptr) *acol {
		a := get[*acol](c, p)
		if a != nil {
			a.keep = nil
		}
		return a
	}
	c.def("o2scl_create_acol_manager", func() uintptr { return c.create(class, newAcol()) })
	c.def("o2scl_free_acol_manager", func(p uintptr) {
		a := m(p)
		c.setCurrent(a, "", nil)
		c.free(class, p)
	})
	c.def("o2scl_acol_set_verbose", func(p uintptr, v int32) { m(p).verbose = v })
	c.def("o2scl_acol_parse", func(p uintptr, n int32, sizes unsafe.Pointer, str *byte) int32 {
		args := unpack(n, sizes, str)
		if err := c.run(m(p), args); err != nil {
			fmt.Fprintf(c.out(), "acol: %v\n", err)
			return 1
		}
		return 0
	})
	c.def("o2scl_acol_get_type", func(p uintptr, n *int32, out *unsafe.Pointer) {
		a := m(p)
		a.typBuf = []byte(a.typ + "\x00")
		*n = int32(len(a.typ))
		*out = unsafe.Pointer(&a.typBuf[0])
	})
	c.def("o2scl_acol_alias_counts", func(p uintptr, n int32, sizes unsafe.Pointer, str *byte, nNew, sNew *int32) {
		a := m(p)
		a.pending = a.expand(unpack(n, sizes, str))
		*nNew = int32(len(a.pending))
		total := 0
		for _, s := range a.pending {
			total += len(s)
		}
		*sNew = int32(total)
	})
	c.def("o2scl_acol_alias_data", func(p uintptr, sizes unsafe.Pointer, str *byte) {
		a := m(p)
		sz := unsafe.Slice((*int32)(sizes), len(a.pending))
		off := 0
		for i, s := range a.pending {
			sz[i] = int32(len(s))
			copy(unsafe.Slice((*byte)(unsafe.Add(unsafe.Pointer(str), off)), len(s)), s)
			off += len(s)
		}
	})
	c.def("o2scl_acol_get_column", func(p uintptr, col *byte, n *int32, data *unsafe.Pointer) int32 {
		a := m(p)
		t, ok := a.obj.(*table)
		if !ok {
			return 1
		}
		cl, ok := t.cols[goString(col)]
		if !ok {
			return 2
		}
		*n, *data = int32(len(cl.v.v)), a.hold(cl.v.v)
		return 0
	})
	c.def("o2scl_acol_get_slice", func(p uintptr, name *byte, nx *int32, x *unsafe.Pointer, ny *int32, y *unsafe.Pointer, data *unsafe.Pointer) int32 {
		a := m(p)
		t, ok := a.obj.(*table3d)
		if !ok {
			return 1
		}
		s, ok := t.slices[goString(name)]
		if !ok {
			return 2
		}
		*nx, *x = int32(len(t.x)), a.hold(t.x)
		*ny, *y = int32(len(t.y)), a.hold(t.y)
		*data = a.hold(s.m.v)
		return 0
	})
	c.def("o2scl_acol_get_hist_reps", func(p uintptr, n *int32, data *unsafe.Pointer) int32 {
		a := m(p)
		h, ok := a.obj.(*hist)
		if !ok {
			return 1
		}
		r := reps(h.edges)
		*n, *data = int32(len(r)), a.hold(r)
		return 0
	})
	c.def("o2scl_acol_get_hist_wgts", func(p uintptr, n *int32, data *unsafe.Pointer) int32 {
		a := m(p)
		h, ok := a.obj.(*hist)
		if !ok {
			return 1
		}
		*n, *data = int32(len(h.wgts)), a.hold(h.wgts)
		return 0
	})
	c.def("o2scl_acol_get_hist_2d", func(p uintptr, nx *int32, x *unsafe.Pointer, ny *int32, y *unsafe.Pointer, data *unsafe.Pointer) int32 {
		a := m(p)
		h, ok := a.obj.(*hist2d)
		if !ok {
			return 1
		}
		rx, ry := reps(h.x), reps(h.y)
		*nx, *x = int32(len(rx)), a.hold(rx)
		*ny, *y = int32(len(ry)), a.hold(ry)
		*data = a.hold(h.wgts)
		return 0
	})
	c.def("o2scl_acol_get_double_arr", func(p uintptr, n *int32, data *unsafe.Pointer) int32 {
		a := m(p)
		v, ok := a.obj.([]float64)
		if !ok {
			return 1
		}
		*n, *data = int32(len(v)), a.hold(v)
		return 0
	})
	c.def("o2scl_acol_contours_n", func(p uintptr) int32 {
		lines, _ := m(p).obj.([]contourLine)
		return int32(len(lines))
	})
	c.def("o2scl_acol_contours_line", func(p uintptr, i int32, n *int32, x, y *unsafe.Pointer) float64 {
		a := m(p)
		lines, _ := a.obj.([]contourLine)
		if int(i) >= len(lines) {
			*n = 0
			return math.NaN()
		}
		l := lines[i]
		*n, *x, *y = int32(len(l.x)), a.hold(l.x), a.hold(l.y)
		return l.level
	})
	c.def("o2scl_acol_get_object", func(p uintptr) uintptr { return m(p).h })
}

func unpack(n int32, sizes unsafe.Pointer, str *byte) []string {
	if n <= 0 {
		return nil
	}
	sz := unsafe.Slice((*int32)(sizes), n)
	out := make([]string, n)
	off := 0
	for i, k := range sz {
		out[i] = string(unsafe.Slice((*byte)(unsafe.Add(unsafe.Pointer(str), off)), k))
		off += int(k)
	}
	return out
}

func (a *acol) expand(args []string) []string {
	var out []string
	for _, arg := range args {
		name := strings.TrimLeft(arg, "-")
		if exp, ok := a.aliases[name]; ok && strings.HasPrefix(arg, "-") {
			out = append(out, exp...)
			continue
		}
		out = append(out, arg)
	}
	return out
}

// run executes one or more dash-separated commands.
func (c *Core) run(a *acol, args []string) error {
	for len(args) > 0 {
		if !strings.HasPrefix(args[0], "-") {
			return fmt.Errorf("expected a command, got %q", args[0])
		}
		end := 1
		for end < len(args) && !isCommand(args[end]) {
			end++
		}
		if err := c.command(a, strings.TrimLeft(args[0], "-"), args[1:end]); err != nil {
			return err
		}
		args = args[end:]
	}
	return nil
}

// isCommand reports whether s starts a new command. Negative numbers
// and quoted multi-word arguments do not.
func isCommand(s string) bool {
	if !strings.HasPrefix(s, "-") || strings.ContainsRune(s, ' ') {
		return false
	}
	_, err := strconv.ParseFloat(s, 64)
	return err != nil
}

func need(cmd string, args []string, n int) error {
	if len(args) < n {
		return fmt.Errorf("not enough parameters for %s", cmd)
	}
	return nil
}

func (c *Core) command(a *acol, cmd string, args []string) error {
	switch cmd {
	case "create":
		return c.createCmd(a, args)
	case "function":
		return c.functionCmd(a, args)
	case "set-grid":
		return c.setGridCmd(a, args)
	case "entry":
		return c.entryCmd(a, args)
	case "read":
		return c.readCmd(a, args)
	case "internal":
		return c.internalCmd(a, args)
	case "type":
		if a.typ == "" {
			fmt.Fprintln(c.out(), "No current object.")
		} else {
			fmt.Fprintf(c.out(), "Type is %s.\n", a.typ)
		}
	case "alias":
		if err := need(cmd, args, 2); err != nil {
			return err
		}
		a.aliases[args[0]] = strings.Fields(strings.Join(args[1:], " "))
	case "set":
		if err := need(cmd, args, 2); err != nil {
			return err
		}
		if _, ok := a.params[args[0]]; !ok {
			return fmt.Errorf("unknown parameter %q", args[0])
		}
		a.params[args[0]] = args[1]
	case "get":
		if err := need(cmd, args, 1); err != nil {
			return err
		}
		v, ok := a.params[args[0]]
		if !ok {
			return fmt.Errorf("unknown parameter %q", args[0])
		}
		fmt.Fprintf(c.out(), "%s = %s\n", args[0], v)
	case "to-hist":
		return c.toHistCmd(a, args)
	case "to-hist-2d":
		return c.toHist2DCmd(a, args)
	case "contours":
		return c.contoursCmd(a, args)
	case "clear":
		c.setCurrent(a, "", nil)
	case "summary", "list":
		fmt.Fprintln(c.out(), a.summary())
	case "help":
		fmt.Fprintln(c.out(), "Commands: alias clear contours create entry function get help internal read set set-grid summary to-hist to-hist-2d type")
	case "version":
		fmt.Fprintf(c.out(), "o2scl version %s\n", c.version)
	case "commands":
		fmt.Fprintf(c.out(), "acol commands for type %s: clear create function get help read set summary type\n", a.typ)
	case "convert":
		// tensor<int> and tensor<size_t> are stored as doubles here.
		if err := need(cmd, args, 1); err != nil {
			return err
		}
		if !strings.HasPrefix(a.typ, "tensor<") || args[0] != "double" {
			return fmt.Errorf("cannot convert %s to %s", a.typ, args[0])
		}
		a.typ = "tensor"
	default:
		return fmt.Errorf("command %q not found for type %q", cmd, a.typ)
	}
	return nil
}

func (a *acol) summary() string {
	switch o := a.obj.(type) {
	case *table:
		return o.summary()
	case *tensor:
		return fmt.Sprintf("%s rank %d sizes %v", a.typ, len(o.sizes), o.sizes)
	case nil:
		return "No current object."
	default:
		return fmt.Sprintf("%s %v", a.typ, o)
	}
}

// vecSpec parses "grid:lo,hi,step", "func:n:expr(i)", "[a,b,...]" and
// "a,b,...".
func vecSpec(s string) ([]float64, error) {
	switch {
	case strings.HasPrefix(s, "grid:"):
		p := strings.Split(strings.TrimPrefix(s, "grid:"), ",")
		if len(p) != 3 {
			return nil, fmt.Errorf("bad grid spec %q", s)
		}
		var lo, hi, step float64
		var err error
		for i, dst := range []*float64{&lo, &hi, &step} {
			if *dst, err = calc.Float(p[i]); err != nil {
				return nil, err
			}
		}
		if step == 0 || (hi-lo)/step < 0 {
			return nil, fmt.Errorf("bad grid spec %q", s)
		}
		n := int(math.Floor((hi-lo)/step+1e-9)) + 1
		out := make([]float64, n)
		for i := range out {
			out[i] = lo + float64(i)*step
		}
		return out, nil
	case strings.HasPrefix(s, "func:"):
		p := strings.SplitN(strings.TrimPrefix(s, "func:"), ":", 2)
		if len(p) != 2 {
			return nil, fmt.Errorf("bad func spec %q", s)
		}
		n, err := strconv.Atoi(p[0])
		if err != nil {
			return nil, err
		}
		prog, err := calc.Compile(p[1], "i")
		if err != nil {
			return nil, err
		}
		out := make([]float64, n)
		for i := range out {
			if out[i], err = prog.Eval(map[string]float64{"i": float64(i)}); err != nil {
				return nil, err
			}
		}
		return out, nil
	default:
		s = strings.TrimSuffix(strings.TrimPrefix(s, "["), "]")
		var out []float64
		for _, f := range strings.Split(s, ",") {
			v, err := calc.Float(strings.TrimSpace(f))
			if err != nil {
				return nil, err
			}
			out = append(out, v)
		}
		return out, nil
	}
}

func sizes(args []string) ([]uint64, error) {
	if len(args) == 0 {
		return nil, fmt.Errorf("missing rank")
	}
	rank, err := strconv.Atoi(args[0])
	if err != nil || rank < 1 || len(args) < rank+1 {
		return nil, fmt.Errorf("bad rank or sizes %v", args)
	}
	out := make([]uint64, rank)
	for i := range out {
		n, err := strconv.Atoi(args[i+1])
		if err != nil || n < 1 {
			return nil, fmt.Errorf("bad size %q", args[i+1])
		}
		out[i] = uint64(n)
	}
	return out, nil
}

func (c *Core) createCmd(a *acol, args []string) error {
	if err := need("create", args, 1); err != nil {
		return err
	}
	typ, rest := args[0], args[1:]
	switch typ {
	case "table":
		if err := need("create table", rest, 2); err != nil {
			return err
		}
		v, err := vecSpec(rest[1])
		if err != nil {
			return err
		}
		t := newTable()
		t.nlines = len(v)
		c.addColumn(t, rest[0]).v.v = v
		c.setCurrent(a, typ, t)
	case "table3d":
		if err := need("create table3d", rest, 4); err != nil {
			return err
		}
		x, err := vecSpec(rest[1])
		if err != nil {
			return err
		}
		y, err := vecSpec(rest[3])
		if err != nil {
			return err
		}
		t := newTable3D()
		t.xname, t.x, t.yname, t.y = rest[0], x, rest[2], y
		if len(rest) >= 6 {
			if err := c.functionSlice(t, rest[5], rest[4]); err != nil {
				c.clearTable3D(t)
				return err
			}
		}
		c.setCurrent(a, typ, t)
	case "tensor", "tensor_grid", "tensor<int>", "tensor<size_t>":
		s, err := sizes(rest)
		if err != nil {
			return err
		}
		t := c.newTensor()
		t.resize(s)
		if typ == "tensor_grid" {
			for _, n := range s {
				for i := 0; i < int(n); i++ {
					t.grid = append(t.grid, float64(i))
				}
			}
		}
		c.setCurrent(a, typ, t)
	case "double", "int", "size_t":
		if err := need("create "+typ, rest, 1); err != nil {
			return err
		}
		v, err := calc.Float(rest[0])
		if err != nil {
			return err
		}
		c.setCurrent(a, typ, v)
	case "string":
		if err := need("create string", rest, 1); err != nil {
			return err
		}
		c.setCurrent(a, typ, rest[0])
	case "double[]", "int[]", "size_t[]":
		if err := need("create "+typ, rest, 1); err != nil {
			return err
		}
		v, err := vecSpec(rest[0])
		if err != nil {
			return err
		}
		c.setCurrent(a, typ, v)
	default:
		return fmt.Errorf("cannot create objects of type %q", typ)
	}
	return nil
}

func (c *Core) functionCmd(a *acol, args []string) error {
	if err := need("function", args, 1); err != nil {
		return err
	}
	switch o := a.obj.(type) {
	case *table:
		if err := need("function", args, 2); err != nil {
			return err
		}
		return c.functionColumn(o, args[0], args[1])
	case *table3d:
		if err := need("function", args, 2); err != nil {
			return err
		}
		return c.functionSlice(o, args[0], args[1])
	case *tensor:
		rank := len(o.sizes)
		names := make([]string, 0, 2*rank+1)
		for i := 0; i < rank; i++ {
			names = append(names, fmt.Sprintf("i%d", i), fmt.Sprintf("x%d", i))
		}
		names = append(names, "v")
		prog, err := calc.Compile(args[0], names...)
		if err != nil {
			return err
		}
		ix := make([]int, rank)
		vars := make(map[string]float64, len(names))
		for n := range o.data.v {
			o.unlinear(n, ix)
			for i, k := range ix {
				vars[fmt.Sprintf("i%d", i)] = float64(k)
				x := float64(k)
				if g := o.gridOf(i); g != nil {
					x = g[k]
				}
				vars[fmt.Sprintf("x%d", i)] = x
			}
			vars["v"] = o.data.v[n]
			if o.data.v[n], err = prog.Eval(vars); err != nil {
				return err
			}
		}
		return nil
	case []float64:
		prog, err := calc.Compile(args[0], "i", "x")
		if err != nil {
			return err
		}
		for i, x := range o {
			if o[i], err = prog.Eval(map[string]float64{"i": float64(i), "x": x}); err != nil {
				return err
			}
		}
		return nil
	}
	return fmt.Errorf("command \"function\" not found for type %q", a.typ)
}

func (c *Core) setGridCmd(a *acol, args []string) error {
	t, ok := a.obj.(*tensor)
	if !ok || a.typ != "tensor_grid" {
		return fmt.Errorf("command \"set-grid\" not found for type %q", a.typ)
	}
	if err := need("set-grid", args, 2); err != nil {
		return err
	}
	k, err := strconv.Atoi(args[0])
	if err != nil || k < 0 || k >= len(t.sizes) {
		return fmt.Errorf("bad axis %q", args[0])
	}
	v, err := vecSpec(args[1])
	if err != nil {
		return err
	}
	if len(v) != int(t.sizes[k]) {
		return fmt.Errorf("grid for axis %d has %d points, want %d", k, len(v), t.sizes[k])
	}
	copy(t.gridOf(k), v)
	return nil
}

func (c *Core) entryCmd(a *acol, args []string) error {
	t, ok := a.obj.(*tensor)
	if !ok {
		return fmt.Errorf("command \"entry\" not found for type %q", a.typ)
	}
	rank := len(t.sizes)
	if err := need("entry", args, rank); err != nil {
		return err
	}
	ix := make([]uint64, rank)
	for i := range ix {
		k, err := strconv.Atoi(args[i])
		if err != nil || k < 0 || k >= int(t.sizes[i]) {
			return fmt.Errorf("bad index %q", args[i])
		}
		ix[i] = uint64(k)
	}
	n := t.linear(ix)
	if len(args) > rank {
		v, err := calc.Float(args[rank])
		if err != nil {
			return err
		}
		t.data.v[n] = v
	}
	fmt.Fprintf(c.out(), "entry %v = %g\n", ix, t.data.v[n])
	return nil
}

func (c *Core) readCmd(a *acol, args []string) error {
	if err := need("read", args, 1); err != nil {
		return err
	}
	objs, err := readContainer(args[0])
	if err != nil {
		return err
	}
	name, ok := "", false
	if len(args) > 1 {
		name = args[1]
		_, ok = objs[name]
	} else {
		name, ok = firstName(objs)
	}
	if !ok {
		return fmt.Errorf("no object %q in %s", name, args[0])
	}
	r := objs[name]
	var obj any
	switch r.Kind {
	case "table":
		obj = newTable()
	case "table3d":
		obj = newTable3D()
	case "tensor", "tensor_grid":
		obj = c.newTensor()
	case "hist":
		obj = &hist{}
	default:
		return fmt.Errorf("cannot read objects of type %q", r.Kind)
	}
	c.setCurrent(a, r.Kind, obj)
	c.decode(r, a.h)
	return nil
}

func (c *Core) internalCmd(a *acol, args []string) error {
	if err := need("internal", args, 1); err != nil {
		return err
	}
	if a.h == 0 {
		return fmt.Errorf("no object to write")
	}
	name := a.typ
	if len(args) > 1 {
		name = args[1]
	}
	return writeContainer(args[0], map[string]record{name: c.encode(a.typ, a.h)})
}

func (c *Core) toHistCmd(a *acol, args []string) error {
	t, ok := a.obj.(*table)
	if !ok {
		return fmt.Errorf("command \"to-hist\" not found for type %q", a.typ)
	}
	if err := need("to-hist", args, 2); err != nil {
		return err
	}
	col, ok := t.cols[args[0]]
	if !ok {
		return fmt.Errorf("no column %q", args[0])
	}
	n, err := strconv.Atoi(args[1])
	if err != nil || n < 1 {
		return fmt.Errorf("bad bin count %q", args[1])
	}
	h := &hist{edges: edgesFor(col.v.v, n), wgts: make([]float64, n)}
	for _, x := range col.v.v {
		if i := bin(h.edges, x); i >= 0 {
			h.wgts[i]++
		}
	}
	c.setCurrent(a, "hist", h)
	return nil
}

func (c *Core) toHist2DCmd(a *acol, args []string) error {
	t, ok := a.obj.(*table)
	if !ok {
		return fmt.Errorf("command \"to-hist-2d\" not found for type %q", a.typ)
	}
	if err := need("to-hist-2d", args, 4); err != nil {
		return err
	}
	cx, okx := t.cols[args[0]]
	cy, oky := t.cols[args[1]]
	if !okx || !oky {
		return fmt.Errorf("no column %q or %q", args[0], args[1])
	}
	nx, err1 := strconv.Atoi(args[2])
	ny, err2 := strconv.Atoi(args[3])
	if err1 != nil || err2 != nil || nx < 1 || ny < 1 {
		return fmt.Errorf("bad bin counts %q %q", args[2], args[3])
	}
	h := &hist2d{x: edgesFor(cx.v.v, nx), y: edgesFor(cy.v.v, ny), wgts: make([]float64, nx*ny)}
	for r := range cx.v.v {
		i, j := bin(h.x, cx.v.v[r]), bin(h.y, cy.v.v[r])
		if i >= 0 && j >= 0 {
			h.wgts[i*ny+j]++
		}
	}
	c.setCurrent(a, "hist_2d", h)
	return nil
}

func edgesFor(v []float64, n int) []float64 {
	lo, hi := math.Inf(1), math.Inf(-1)
	for _, x := range v {
		lo, hi = math.Min(lo, x), math.Max(hi, x)
	}
	if len(v) == 0 {
		lo, hi = 0, 1
	}
	if hi == lo {
		hi = lo + 1
	}
	out := make([]float64, n+1)
	for i := range out {
		out[i] = lo + (hi-lo)*float64(i)/float64(n)
	}
	return out
}

// contoursCmd replaces a table3d with the contour segments of one slice
// at the given levels. Each cell crossing yields one two-point line.
func (c *Core) contoursCmd(a *acol, args []string) error {
	t, ok := a.obj.(*table3d)
	if !ok {
		return fmt.Errorf("command \"contours\" not found for type %q", a.typ)
	}
	if err := need("contours", args, 2); err != nil {
		return err
	}
	levels, err := vecSpec(args[0])
	if err != nil {
		return err
	}
	s, ok := t.slices[args[1]]
	if !ok {
		return fmt.Errorf("no slice %q", args[1])
	}
	sort.Float64s(levels)
	nx, ny := len(t.x), len(t.y)
	f := func(i, j int) float64 { return s.m.v[i*ny+j] }
	var lines []contourLine
	for _, lev := range levels {
		for i := 0; i+1 < nx; i++ {
			for j := 0; j+1 < ny; j++ {
				var px, py []float64
				cross := func(i1, j1, i2, j2 int) {
					v1, v2 := f(i1, j1), f(i2, j2)
					if (v1 < lev) == (v2 < lev) || v1 == v2 {
						return
					}
					w := (lev - v1) / (v2 - v1)
					px = append(px, t.x[i1]+w*(t.x[i2]-t.x[i1]))
					py = append(py, t.y[j1]+w*(t.y[j2]-t.y[j1]))
				}
				cross(i, j, i+1, j)
				cross(i+1, j, i+1, j+1)
				cross(i+1, j+1, i, j+1)
				cross(i, j+1, i, j)
				for k := 0; k+1 < len(px); k += 2 {
					lines = append(lines, contourLine{level: lev, x: px[k : k+2], y: py[k : k+2]})
				}
			}
		}
	}
	c.setCurrent(a, "vector<contour_line>", lines)
	return nil
}
