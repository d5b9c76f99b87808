package native

import (
	"fmt"
	"strings"
	"unsafe"
)

// tensorABI is shared by tensor and tensor_grid; the class prefix picks
// the entry points.
type tensorABI struct {
	Create    func() uintptr                            `sym:"o2scl_create_%s"`
	Free      func(uintptr)                             `sym:"o2scl_free_%s"`
	Copy      func(uintptr, uintptr)                    `sym:"o2scl_copy_%s"`
	Resize    func(uintptr, uint64, unsafe.Pointer)     `sym:"o2scl_%s_resize"`
	Rank      func(uintptr) uint64                      `sym:"o2scl_%s_get_rank"`
	Size      func(uintptr, uint64) uint64              `sym:"o2scl_%s_get_size"`
	Total     func(uintptr) uint64                      `sym:"o2scl_%s_total_size"`
	Get       func(uintptr, unsafe.Pointer) float64     `sym:"o2scl_%s_get"`
	Set       func(uintptr, unsafe.Pointer, float64)    `sym:"o2scl_%s_set"`
	SetAll    func(uintptr, float64)                    `sym:"o2scl_%s_set_all"`
	Data      func(uintptr) uintptr                     `sym:"o2scl_%s_get_data"`
	Rearrange func(uintptr, *byte, int32, bool) uintptr `sym:"o2scl_%s_rearrange_and_copy"`
	Summary   func(uintptr)                             `sym:"o2scl_%s_summary,optional"`
}

type gridABI struct {
	SetGridPacked func(uintptr, uintptr)                `sym:"o2scl_%s_set_grid_packed"`
	Grid          func(uintptr, uint64, uint64) float64 `sym:"o2scl_%s_get_grid"`
	InterpLinear  func(uintptr, uintptr) float64        `sym:"o2scl_%s_interp_linear"`
}

const (
	classTensor     = "tensor__"
	classTensorGrid = "tensor_grid__"
)

// Tensor is a handle on a native rank-N tensor of doubles.
type Tensor struct {
	Handle
	abi *tensorABI
}

// NewTensor creates a tensor with the given per-axis sizes.
func NewTensor(lib *Lib, sizes ...int) (*Tensor, error) {
	a, err := abi[tensorABI](lib, classTensor)
	if err != nil {
		return nil, err
	}
	t := &Tensor{Handle: owned(lib, classTensor, a.Create(), a.Free), abi: a}
	if len(sizes) > 0 {
		t.Resize(sizes...)
	}
	return t, nil
}

// WrapTensor wraps a tensor pointer owned by the library, e.g. the
// current object of the command processor.
func WrapTensor(lib *Lib, ptr uintptr) (*Tensor, error) {
	a, err := abi[tensorABI](lib, classTensor)
	if err != nil {
		return nil, err
	}
	return &Tensor{Handle: borrowed(lib, classTensor, ptr, Handle{}), abi: a}, nil
}

func packIndex(ix []int) []uint64 {
	out := make([]uint64, len(ix))
	for i, v := range ix {
		out[i] = uint64(v)
	}
	return out
}

// Resize sets the rank and per-axis sizes.
func (t *Tensor) Resize(sizes ...int) {
	s := packIndex(sizes)
	t.abi.Resize(t.Ptr(), uint64(len(s)), sizesPtr(s))
}

// Rank returns the number of axes.
func (t *Tensor) Rank() int { return int(t.abi.Rank(t.Ptr())) }

// Size returns the size of axis i.
func (t *Tensor) Size(i int) int { return int(t.abi.Size(t.Ptr(), uint64(i))) }

// Sizes returns all axis sizes.
func (t *Tensor) Sizes() []int {
	out := make([]int, t.Rank())
	for i := range out {
		out[i] = t.Size(i)
	}
	return out
}

// TotalSize returns the number of elements.
func (t *Tensor) TotalSize() int { return int(t.abi.Total(t.Ptr())) }

func (t *Tensor) checkIndex(ix []int) {
	if len(ix) != t.Rank() {
		panic(fmt.Sprintf("native: %s index of rank %d for tensor of rank %d", t.class, len(ix), t.Rank()))
	}
	for i, v := range ix {
		if v < 0 || v >= t.Size(i) {
			panic(fmt.Sprintf("native: %s index %v out of range on axis %d", t.class, ix, i))
		}
	}
}

// Get returns the element at the packed index ix.
func (t *Tensor) Get(ix ...int) float64 {
	t.checkIndex(ix)
	p := packIndex(ix)
	return t.abi.Get(t.Ptr(), sizesPtr(p))
}

// Set stores v at the packed index ix.
func (t *Tensor) Set(v float64, ix ...int) {
	t.checkIndex(ix)
	p := packIndex(ix)
	t.abi.Set(t.Ptr(), sizesPtr(p), v)
}

// SetAll stores v in every element.
func (t *Tensor) SetAll(v float64) { t.abi.SetAll(t.Ptr(), v) }

// Data returns a borrowed handle on the packed storage vector.
func (t *Tensor) Data() (*Vector[float64], error) {
	return wrapVector[float64](t.lib, t.abi.Data(t.Ptr()), t.Handle)
}

// View returns the packed storage, shared with the tensor. The last
// index varies fastest.
func (t *Tensor) View() ([]float64, error) {
	d, err := t.Data()
	if err != nil {
		return nil, err
	}
	return d.View(), nil
}

// RearrangeAndCopy builds a new tensor from this one according to spec,
// a space-separated list of index(k), fixed(k,v), sum(k), range(k,lo,hi),
// reverse(k) and trace(k1,k2) directives.
func (t *Tensor) RearrangeAndCopy(spec string) (*Tensor, error) {
	p := t.abi.Rearrange(t.Ptr(), cstr(spec), 0, false)
	if p == 0 {
		return nil, &NativeError{Func: "o2scl_" + t.class + "_rearrange_and_copy", Code: 1}
	}
	return &Tensor{Handle: owned(t.lib, classTensor, p, t.abi.Free), abi: t.abi}, nil
}

// Borrow returns a shallow, non-owning copy.
func (t *Tensor) Borrow() *Tensor {
	return &Tensor{Handle: t.Handle.shallow(), abi: t.abi}
}

// Clone returns an owning deep copy.
func (t *Tensor) Clone() (*Tensor, error) {
	out, err := NewTensor(t.lib)
	if err != nil {
		return nil, err
	}
	t.abi.Copy(t.Ptr(), out.Ptr())
	return out, nil
}

// Summary returns the native summary of the tensor.
func (t *Tensor) Summary() (string, error) {
	return summarize(t.lib, t.abi.Summary, t.Ptr(), "o2scl_"+t.class+"_summary")
}

func (t *Tensor) String() string {
	if s, err := t.Summary(); err == nil {
		return s
	}
	return fmt.Sprintf("tensor rank %d sizes %v", t.Rank(), t.Sizes())
}

// ---------------------------------------------------------------------
// tensor_grid
// ---------------------------------------------------------------------

// TensorGrid is a tensor with a grid of coordinates along every axis.
type TensorGrid struct {
	Tensor
	grid *gridABI
}

// NewTensorGrid creates a tensor_grid with the given sizes.
func NewTensorGrid(lib *Lib, sizes ...int) (*TensorGrid, error) {
	a, g, err := tensorGridABIs(lib)
	if err != nil {
		return nil, err
	}
	tg := &TensorGrid{
		Tensor: Tensor{Handle: owned(lib, classTensorGrid, a.Create(), a.Free), abi: a},
		grid:   g,
	}
	if len(sizes) > 0 {
		tg.Resize(sizes...)
	}
	return tg, nil
}

// WrapTensorGrid wraps a tensor_grid pointer owned by the library.
func WrapTensorGrid(lib *Lib, ptr uintptr) (*TensorGrid, error) {
	a, g, err := tensorGridABIs(lib)
	if err != nil {
		return nil, err
	}
	return &TensorGrid{
		Tensor: Tensor{Handle: borrowed(lib, classTensorGrid, ptr, Handle{}), abi: a},
		grid:   g,
	}, nil
}

func tensorGridABIs(lib *Lib) (*tensorABI, *gridABI, error) {
	a, err := abi[tensorABI](lib, classTensorGrid)
	if err != nil {
		return nil, nil, err
	}
	g, err := abi[gridABI](lib, classTensorGrid)
	if err != nil {
		return nil, nil, err
	}
	return a, g, nil
}

// SetGrid sets the grid of every axis. grids[i] must have Size(i)
// points.
func (tg *TensorGrid) SetGrid(grids ...[]float64) error {
	if len(grids) != tg.Rank() {
		return fmt.Errorf("native: %d grids for tensor_grid of rank %d", len(grids), tg.Rank())
	}
	var packed []float64
	for i, g := range grids {
		if len(g) != tg.Size(i) {
			return fmt.Errorf("native: grid %d has %d points, axis has %d", i, len(g), tg.Size(i))
		}
		packed = append(packed, g...)
	}
	return tg.SetGridPacked(packed)
}

// SetGridPacked sets all grids from one concatenated slice.
func (tg *TensorGrid) SetGridPacked(packed []float64) error {
	v, err := NewVectorFrom(tg.lib, packed)
	if err != nil {
		return err
	}
	defer v.Close()
	tg.grid.SetGridPacked(tg.Ptr(), v.Ptr())
	return nil
}

// Grid returns grid point j of axis i.
func (tg *TensorGrid) Grid(i, j int) float64 {
	return tg.grid.Grid(tg.Ptr(), uint64(i), uint64(j))
}

// GridOf returns the whole grid of axis i.
func (tg *TensorGrid) GridOf(i int) []float64 {
	out := make([]float64, tg.Size(i))
	for j := range out {
		out[j] = tg.Grid(i, j)
	}
	return out
}

// InterpLinear interpolates the tensor linearly at the point x, one
// coordinate per axis.
func (tg *TensorGrid) InterpLinear(x ...float64) (float64, error) {
	if len(x) != tg.Rank() {
		return 0, fmt.Errorf("native: point of dimension %d for tensor_grid of rank %d", len(x), tg.Rank())
	}
	v, err := NewVectorFrom(tg.lib, x)
	if err != nil {
		return 0, err
	}
	defer v.Close()
	return tg.grid.InterpLinear(tg.Ptr(), v.Ptr()), nil
}

// RearrangeAndCopy is the tensor_grid version of Tensor.RearrangeAndCopy;
// the grids of the kept axes follow their data.
func (tg *TensorGrid) RearrangeAndCopy(spec string) (*TensorGrid, error) {
	p := tg.abi.Rearrange(tg.Ptr(), cstr(spec), 0, false)
	if p == 0 {
		return nil, &NativeError{Func: "o2scl_" + tg.class + "_rearrange_and_copy", Code: 1}
	}
	return &TensorGrid{
		Tensor: Tensor{Handle: owned(tg.lib, classTensorGrid, p, tg.abi.Free), abi: tg.abi},
		grid:   tg.grid,
	}, nil
}

// Borrow returns a shallow, non-owning copy.
func (tg *TensorGrid) Borrow() *TensorGrid {
	return &TensorGrid{Tensor: Tensor{Handle: tg.Handle.shallow(), abi: tg.abi}, grid: tg.grid}
}

// Clone returns an owning deep copy.
func (tg *TensorGrid) Clone() (*TensorGrid, error) {
	out, err := NewTensorGrid(tg.lib)
	if err != nil {
		return nil, err
	}
	tg.abi.Copy(tg.Ptr(), out.Ptr())
	return out, nil
}

func (tg *TensorGrid) String() string {
	if s, err := tg.Summary(); err == nil {
		return s
	}
	var b strings.Builder
	fmt.Fprintf(&b, "tensor_grid rank %d sizes %v", tg.Rank(), tg.Sizes())
	return b.String()
}
