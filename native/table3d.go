package native

import (
	"fmt"
	"unsafe"
)

type table3dABI struct {
	Create        func() uintptr                                                              `sym:"o2scl_create_%s"`
	Free          func(uintptr)                                                               `sym:"o2scl_free_%s"`
	Copy          func(uintptr, uintptr)                                                      `sym:"o2scl_copy_%s"`
	SetXY         func(uintptr, *byte, uint64, unsafe.Pointer, *byte, uint64, unsafe.Pointer) `sym:"o2scl_%s_set_xy"`
	NewSlice      func(uintptr, *byte)                                                        `sym:"o2scl_%s_new_slice"`
	Set           func(uintptr, uint64, uint64, *byte, float64)                               `sym:"o2scl_%s_set"`
	Get           func(uintptr, uint64, uint64, *byte) float64                                `sym:"o2scl_%s_get"`
	SetVal        func(uintptr, float64, float64, *byte, float64)                             `sym:"o2scl_%s_set_val"`
	GetVal        func(uintptr, float64, float64, *byte) float64                              `sym:"o2scl_%s_get_val"`
	NX            func(uintptr) uint64                                                        `sym:"o2scl_%s_get_nx"`
	NY            func(uintptr) uint64                                                        `sym:"o2scl_%s_get_ny"`
	NSlices       func(uintptr) uint64                                                        `sym:"o2scl_%s_get_nslices"`
	GridX         func(uintptr, uint64) float64                                               `sym:"o2scl_%s_get_grid_x"`
	GridY         func(uintptr, uint64) float64                                               `sym:"o2scl_%s_get_grid_y"`
	XName         func(uintptr) uintptr                                                       `sym:"o2scl_%s_get_x_name"`
	YName         func(uintptr) uintptr                                                       `sym:"o2scl_%s_get_y_name"`
	SliceName     func(uintptr, uint64) uintptr                                               `sym:"o2scl_%s_get_slice_name"`
	GetSlice      func(uintptr, *byte) uintptr                                                `sym:"o2scl_%s_get_slice"`
	FunctionSlice func(uintptr, *byte, *byte) int32                                           `sym:"o2scl_%s_function_slice"`
	Summary       func(uintptr)                                                               `sym:"o2scl_%s_summary,optional"`
}

const classTable3D = "table3d"

// Table3D is a handle on a native table3d: named slices over a common
// rectangular (x, y) grid.
type Table3D struct {
	Handle
	abi *table3dABI
}

// NewTable3D creates an empty table3d.
func NewTable3D(lib *Lib) (*Table3D, error) {
	a, err := abi[table3dABI](lib, classTable3D)
	if err != nil {
		return nil, err
	}
	return &Table3D{Handle: owned(lib, classTable3D, a.Create(), a.Free), abi: a}, nil
}

// WrapTable3D wraps a table3d pointer owned by the library.
func WrapTable3D(lib *Lib, ptr uintptr) (*Table3D, error) {
	a, err := abi[table3dABI](lib, classTable3D)
	if err != nil {
		return nil, err
	}
	return &Table3D{Handle: borrowed(lib, classTable3D, ptr, Handle{}), abi: a}, nil
}

// SetXY sets the grid.
func (t *Table3D) SetXY(xname string, x []float64, yname string, y []float64) {
	t.abi.SetXY(t.Ptr(), cstr(xname), uint64(len(x)), floatsPtr(x), cstr(yname), uint64(len(y)), floatsPtr(y))
}

// NewSlice adds a slice initialised to zero.
func (t *Table3D) NewSlice(name string) { t.abi.NewSlice(t.Ptr(), cstr(name)) }

// Set stores v at grid indices (ix, iy) of a slice.
func (t *Table3D) Set(ix, iy int, slice string, v float64) {
	t.abi.Set(t.Ptr(), uint64(ix), uint64(iy), cstr(slice), v)
}

// Get returns the value at grid indices (ix, iy) of a slice.
func (t *Table3D) Get(ix, iy int, slice string) float64 {
	return t.abi.Get(t.Ptr(), uint64(ix), uint64(iy), cstr(slice))
}

// SetVal stores v at the grid point closest to (x, y).
func (t *Table3D) SetVal(x, y float64, slice string, v float64) {
	t.abi.SetVal(t.Ptr(), x, y, cstr(slice), v)
}

// GetVal returns the value at the grid point closest to (x, y).
func (t *Table3D) GetVal(x, y float64, slice string) float64 {
	return t.abi.GetVal(t.Ptr(), x, y, cstr(slice))
}

// Dims returns the grid sizes.
func (t *Table3D) Dims() (nx, ny int) {
	p := t.Ptr()
	return int(t.abi.NX(p)), int(t.abi.NY(p))
}

// NSlices returns the number of slices.
func (t *Table3D) NSlices() int { return int(t.abi.NSlices(t.Ptr())) }

// GridX returns the x grid.
func (t *Table3D) GridX() []float64 {
	nx, _ := t.Dims()
	out := make([]float64, nx)
	for i := range out {
		out[i] = t.abi.GridX(t.Ptr(), uint64(i))
	}
	return out
}

// GridY returns the y grid.
func (t *Table3D) GridY() []float64 {
	_, ny := t.Dims()
	out := make([]float64, ny)
	for i := range out {
		out[i] = t.abi.GridY(t.Ptr(), uint64(i))
	}
	return out
}

// XName returns the name of the x grid.
func (t *Table3D) XName() (string, error) { return takeString(t.lib, t.abi.XName(t.Ptr())) }

// YName returns the name of the y grid.
func (t *Table3D) YName() (string, error) { return takeString(t.lib, t.abi.YName(t.Ptr())) }

// SliceName returns the name of slice i.
func (t *Table3D) SliceName(i int) (string, error) {
	if n := t.NSlices(); i < 0 || i >= n {
		return "", fmt.Errorf("native: slice index %d out of range [0,%d)", i, n)
	}
	return takeString(t.lib, t.abi.SliceName(t.Ptr(), uint64(i)))
}

// SliceNames returns all slice names.
func (t *Table3D) SliceNames() ([]string, error) {
	out := make([]string, t.NSlices())
	for i := range out {
		s, err := t.SliceName(i)
		if err != nil {
			return nil, err
		}
		out[i] = s
	}
	return out, nil
}

// Slice returns a borrowed (nx, ny) matrix on the storage of a slice.
func (t *Table3D) Slice(name string) (*Matrix, error) {
	p := t.abi.GetSlice(t.Ptr(), cstr(name))
	if p == 0 {
		return nil, fmt.Errorf("native: no slice %q", name)
	}
	return wrapMatrix(t.lib, p, t.Handle)
}

// FunctionSlice fills a slice from an expression in x, y and the other
// slices.
func (t *Table3D) FunctionSlice(expr, slice string) error {
	return status("o2scl_table3d_function_slice", t.abi.FunctionSlice(t.Ptr(), cstr(expr), cstr(slice)))
}

// Summary returns the native summary.
func (t *Table3D) Summary() (string, error) {
	return summarize(t.lib, t.abi.Summary, t.Ptr(), "o2scl_table3d_summary")
}

func (t *Table3D) String() string {
	if s, err := t.Summary(); err == nil {
		return s
	}
	nx, ny := t.Dims()
	names, _ := t.SliceNames()
	return fmt.Sprintf("table3d %dx%d slices %v", nx, ny, names)
}

// Borrow returns a shallow, non-owning copy.
func (t *Table3D) Borrow() *Table3D {
	return &Table3D{Handle: t.Handle.shallow(), abi: t.abi}
}

// Clone returns an owning deep copy.
func (t *Table3D) Clone() (*Table3D, error) {
	out, err := NewTable3D(t.lib)
	if err != nil {
		return nil, err
	}
	t.abi.Copy(t.Ptr(), out.Ptr())
	return out, nil
}
