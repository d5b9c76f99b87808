package native

import (
	"fmt"
	"strings"
	"unsafe"
)

type acolABI struct {
	Create      func() uintptr                                                                                `sym:"o2scl_create_acol_manager"`
	Free        func(uintptr)                                                                                 `sym:"o2scl_free_acol_manager"`
	Parse       func(uintptr, int32, unsafe.Pointer, *byte) int32                                             `sym:"o2scl_acol_parse"`
	GetType     func(uintptr, *int32, *unsafe.Pointer)                                                        `sym:"o2scl_acol_get_type"`
	AliasCounts func(uintptr, int32, unsafe.Pointer, *byte, *int32, *int32)                                   `sym:"o2scl_acol_alias_counts"`
	AliasData   func(uintptr, unsafe.Pointer, *byte)                                                          `sym:"o2scl_acol_alias_data"`
	GetColumn   func(uintptr, *byte, *int32, *unsafe.Pointer) int32                                           `sym:"o2scl_acol_get_column"`
	GetSlice    func(uintptr, *byte, *int32, *unsafe.Pointer, *int32, *unsafe.Pointer, *unsafe.Pointer) int32 `sym:"o2scl_acol_get_slice"`
	HistReps    func(uintptr, *int32, *unsafe.Pointer) int32                                                  `sym:"o2scl_acol_get_hist_reps"`
	HistWgts    func(uintptr, *int32, *unsafe.Pointer) int32                                                  `sym:"o2scl_acol_get_hist_wgts"`
	Hist2D      func(uintptr, *int32, *unsafe.Pointer, *int32, *unsafe.Pointer, *unsafe.Pointer) int32        `sym:"o2scl_acol_get_hist_2d"`
	DoubleArr   func(uintptr, *int32, *unsafe.Pointer) int32                                                  `sym:"o2scl_acol_get_double_arr"`
	ContoursN   func(uintptr) int32                                                                           `sym:"o2scl_acol_contours_n"`
	ContourLine func(uintptr, int32, *int32, *unsafe.Pointer, *unsafe.Pointer) float64                        `sym:"o2scl_acol_contours_line"`
	Object      func(uintptr) uintptr                                                                         `sym:"o2scl_acol_get_object"`
	SetVerbose  func(uintptr, int32)                                                                          `sym:"o2scl_acol_set_verbose,optional"`
}

// Acol is the native command processor. It holds the current object and
// its own, type-dependent, command table.
type Acol struct {
	Handle
	abi *acolABI
}

// NewAcol creates a command processor with no current object.
func NewAcol(lib *Lib) (*Acol, error) {
	a, err := abi[acolABI](lib, "acol_manager")
	if err != nil {
		return nil, err
	}
	return &Acol{Handle: owned(lib, "acol_manager", a.Create(), a.Free), abi: a}, nil
}

// Parse runs a command line such as ["-create", "table", "x", "grid:0,1,0.1"]
// through the native command table.
func (a *Acol) Parse(args []string) error {
	if len(args) == 0 {
		return nil
	}
	n, sizes, str := packStrings(args)
	code := a.abi.Parse(a.Ptr(), n, unsafe.Pointer(&sizes[0]), str)
	if code != 0 {
		return &NativeError{Func: strings.Join(args, " "), Code: int(code)}
	}
	return nil
}

// Type returns the tag of the current object.
func (a *Acol) Type() Type {
	var n int32
	var p unsafe.Pointer
	a.abi.GetType(a.Ptr(), &n, &p)
	if n <= 0 || p == nil {
		return TypeNone
	}
	t, _ := ParseType(string(unsafe.Slice((*byte)(p), n)))
	return t
}

// ApplyAliases expands user-defined aliases in args.
func (a *Acol) ApplyAliases(args []string) []string {
	if len(args) == 0 {
		return args
	}
	n, sizes, str := packStrings(args)
	var nNew, sNew int32
	a.abi.AliasCounts(a.Ptr(), n, unsafe.Pointer(&sizes[0]), str, &nNew, &sNew)
	if nNew <= 0 {
		return nil
	}
	outSizes := make([]int32, nNew)
	buf := make([]byte, sNew+1)
	a.abi.AliasData(a.Ptr(), unsafe.Pointer(&outSizes[0]), &buf[0])
	return unpackStrings(outSizes, buf[:sNew])
}

// SetVerbose sets the verbosity of the native processor.
func (a *Acol) SetVerbose(v int) {
	if a.abi.SetVerbose != nil {
		a.abi.SetVerbose(a.Ptr(), int32(v))
	}
}

// Object returns the raw pointer of the current object, or 0.
func (a *Acol) Object() uintptr { return a.abi.Object(a.Ptr()) }

// Column returns a copy of a column of the current table.
func (a *Acol) Column(name string) ([]float64, error) {
	var n int32
	var p unsafe.Pointer
	if err := status("o2scl_acol_get_column", a.abi.GetColumn(a.Ptr(), cstr(name), &n, &p)); err != nil {
		return nil, fmt.Errorf("column %q: %w", name, err)
	}
	return copyFloats(p, n), nil
}

// Slice returns the grid and a copy of a slice of the current table3d.
// data is indexed as data[i*len(y)+j] for grid point (x[i], y[j]).
func (a *Acol) Slice(name string) (x, y, data []float64, err error) {
	var nx, ny int32
	var px, py, pd unsafe.Pointer
	if err := status("o2scl_acol_get_slice", a.abi.GetSlice(a.Ptr(), cstr(name), &nx, &px, &ny, &py, &pd)); err != nil {
		return nil, nil, nil, fmt.Errorf("slice %q: %w", name, err)
	}
	return copyFloats(px, nx), copyFloats(py, ny), copyFloats(pd, nx*ny), nil
}

// HistReps returns the bin representatives of the current hist.
func (a *Acol) HistReps() ([]float64, error) {
	var n int32
	var p unsafe.Pointer
	if err := status("o2scl_acol_get_hist_reps", a.abi.HistReps(a.Ptr(), &n, &p)); err != nil {
		return nil, err
	}
	return copyFloats(p, n), nil
}

// HistWeights returns the bin weights of the current hist.
func (a *Acol) HistWeights() ([]float64, error) {
	var n int32
	var p unsafe.Pointer
	if err := status("o2scl_acol_get_hist_wgts", a.abi.HistWgts(a.Ptr(), &n, &p)); err != nil {
		return nil, err
	}
	return copyFloats(p, n), nil
}

// Hist2D returns the bin centres and weights of the current hist_2d,
// laid out like Slice.
func (a *Acol) Hist2D() (x, y, data []float64, err error) {
	var nx, ny int32
	var px, py, pd unsafe.Pointer
	if err := status("o2scl_acol_get_hist_2d", a.abi.Hist2D(a.Ptr(), &nx, &px, &ny, &py, &pd)); err != nil {
		return nil, nil, nil, err
	}
	return copyFloats(px, nx), copyFloats(py, ny), copyFloats(pd, nx*ny), nil
}

// DoubleArray returns the current double[], int[] or size_t[] object as
// doubles.
func (a *Acol) DoubleArray() ([]float64, error) {
	var n int32
	var p unsafe.Pointer
	if err := status("o2scl_acol_get_double_arr", a.abi.DoubleArr(a.Ptr(), &n, &p)); err != nil {
		return nil, err
	}
	return copyFloats(p, n), nil
}

// ContourLine is one line of a vector<contour_line>.
type ContourLine struct {
	Level float64
	X, Y  []float64
}

// Contours returns the current vector<contour_line>.
func (a *Acol) Contours() []ContourLine {
	n := int(a.abi.ContoursN(a.Ptr()))
	out := make([]ContourLine, 0, n)
	for i := 0; i < n; i++ {
		var m int32
		var px, py unsafe.Pointer
		lev := a.abi.ContourLine(a.Ptr(), int32(i), &m, &px, &py)
		out = append(out, ContourLine{Level: lev, X: copyFloats(px, m), Y: copyFloats(py, m)})
	}
	return out
}

// Table returns a borrowed handle on the current table.
func (a *Acol) Table() (*Table, error) {
	if err := a.expect(TypeTable); err != nil {
		return nil, err
	}
	return WrapTable(a.lib, a.Object())
}

// Table3D returns a borrowed handle on the current table3d.
func (a *Acol) Table3D() (*Table3D, error) {
	if err := a.expect(TypeTable3D); err != nil {
		return nil, err
	}
	return WrapTable3D(a.lib, a.Object())
}

// Tensor returns a borrowed handle on the current tensor.
func (a *Acol) Tensor() (*Tensor, error) {
	if err := a.expect(TypeTensor); err != nil {
		return nil, err
	}
	return WrapTensor(a.lib, a.Object())
}

// TensorGrid returns a borrowed handle on the current tensor_grid.
func (a *Acol) TensorGrid() (*TensorGrid, error) {
	if err := a.expect(TypeTensorGrid); err != nil {
		return nil, err
	}
	return WrapTensorGrid(a.lib, a.Object())
}

// Hist returns a borrowed handle on the current hist.
func (a *Acol) Hist() (*Hist, error) {
	if err := a.expect(TypeHist); err != nil {
		return nil, err
	}
	return WrapHist(a.lib, a.Object())
}

func (a *Acol) expect(t Type) error {
	if got := a.Type(); got != t {
		return fmt.Errorf("current object is %s, not %s", got, t)
	}
	if a.Object() == 0 {
		return fmt.Errorf("no current %s", t)
	}
	return nil
}

func copyFloats(p unsafe.Pointer, n int32) []float64 {
	return append([]float64(nil), floats(p, int(n))...)
}
