package native

import (
	"fmt"
	"unsafe"

	"gonum.org/v1/gonum/mat"
)

type matrixABI struct {
	Create  func() uintptr                         `sym:"o2scl_create_%s"`
	Free    func(uintptr)                          `sym:"o2scl_free_%s"`
	Copy    func(uintptr, uintptr)                 `sym:"o2scl_copy_%s"`
	Size1   func(uintptr) uint64                   `sym:"o2scl_%s_size1"`
	Size2   func(uintptr) uint64                   `sym:"o2scl_%s_size2"`
	Resize  func(uintptr, uint64, uint64)          `sym:"o2scl_%s_resize"`
	GetItem func(uintptr, uint64, uint64) float64  `sym:"o2scl_%s_getitem"`
	SetItem func(uintptr, uint64, uint64, float64) `sym:"o2scl_%s_setitem"`
	Data    func(uintptr) unsafe.Pointer           `sym:"o2scl_%s_data"`
}

const classMatrix = "boost_numeric_ublas_matrix_double_"

// Matrix is a handle on a native row-major matrix of doubles.
type Matrix struct {
	Handle
	abi *matrixABI
}

// NewMatrix creates a native matrix with r rows and c columns.
func NewMatrix(lib *Lib, r, c int) (*Matrix, error) {
	a, err := abi[matrixABI](lib, classMatrix)
	if err != nil {
		return nil, err
	}
	m := &Matrix{Handle: owned(lib, classMatrix, a.Create(), a.Free), abi: a}
	if r > 0 && c > 0 {
		m.Resize(r, c)
	}
	return m, nil
}

func wrapMatrix(lib *Lib, ptr uintptr, parent Handle) (*Matrix, error) {
	a, err := abi[matrixABI](lib, classMatrix)
	if err != nil {
		return nil, err
	}
	return &Matrix{Handle: borrowed(lib, classMatrix, ptr, parent), abi: a}, nil
}

// Dims returns the number of rows and columns.
func (m *Matrix) Dims() (r, c int) {
	p := m.Ptr()
	return int(m.abi.Size1(p)), int(m.abi.Size2(p))
}

// Resize changes the shape. Contents are unspecified afterwards.
func (m *Matrix) Resize(r, c int) { m.abi.Resize(m.Ptr(), uint64(r), uint64(c)) }

// At returns element (i, j).
func (m *Matrix) At(i, j int) float64 {
	m.check(i, j)
	return m.abi.GetItem(m.Ptr(), uint64(i), uint64(j))
}

// Set stores v at (i, j).
func (m *Matrix) Set(i, j int, v float64) {
	m.check(i, j)
	m.abi.SetItem(m.Ptr(), uint64(i), uint64(j), v)
}

func (m *Matrix) check(i, j int) {
	r, c := m.Dims()
	if i < 0 || i >= r || j < 0 || j >= c {
		panic(fmt.Sprintf("native: matrix index (%d,%d) out of range (%d,%d)", i, j, r, c))
	}
}

// View returns the packed row-major storage, shared with the native
// matrix.
func (m *Matrix) View() []float64 {
	r, c := m.Dims()
	return floats(m.abi.Data(m.Ptr()), r*c)
}

// Dense returns a gonum matrix sharing storage with the native matrix.
// Writes through either are visible in the other.
func (m *Matrix) Dense() *mat.Dense {
	r, c := m.Dims()
	if r == 0 || c == 0 {
		return &mat.Dense{}
	}
	return mat.NewDense(r, c, m.View())
}

// Borrow returns a shallow, non-owning copy.
func (m *Matrix) Borrow() *Matrix {
	return &Matrix{Handle: m.Handle.shallow(), abi: m.abi}
}

// Clone returns an owning deep copy.
func (m *Matrix) Clone() (*Matrix, error) {
	out, err := NewMatrix(m.lib, 0, 0)
	if err != nil {
		return nil, err
	}
	m.abi.Copy(m.Ptr(), out.Ptr())
	return out, nil
}
