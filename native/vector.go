package native

import (
	"fmt"
	"unsafe"
)

// Elem is an element type of a native std::vector.
type Elem interface {
	float64 | int32 | uint64
}

type vectorABI[T Elem] struct {
	Create  func() uintptr               `sym:"o2scl_create_%s"`
	Free    func(uintptr)                `sym:"o2scl_free_%s"`
	Copy    func(uintptr, uintptr)       `sym:"o2scl_copy_%s"`
	Size    func(uintptr) uint64         `sym:"o2scl_%s_size"`
	Resize  func(uintptr, uint64)        `sym:"o2scl_%s_resize"`
	GetItem func(uintptr, uint64) T      `sym:"o2scl_%s_getitem"`
	SetItem func(uintptr, uint64, T)     `sym:"o2scl_%s_setitem"`
	Data    func(uintptr) unsafe.Pointer `sym:"o2scl_%s_data"`
}

func vectorClass[T Elem]() string {
	var zero T
	switch any(zero).(type) {
	case float64:
		return "std_vector_double_"
	case int32:
		return "std_vector_int_"
	default:
		return "std_vector_size_t_"
	}
}

// Vector is a handle on a native std::vector of doubles, ints or size_t.
type Vector[T Elem] struct {
	Handle
	abi *vectorABI[T]
}

// NewVector creates an empty native vector.
func NewVector[T Elem](lib *Lib) (*Vector[T], error) {
	class := vectorClass[T]()
	a, err := abi[vectorABI[T]](lib, class)
	if err != nil {
		return nil, err
	}
	return &Vector[T]{Handle: owned(lib, class, a.Create(), a.Free), abi: a}, nil
}

// NewVectorFrom creates a native vector holding a copy of v.
func NewVectorFrom[T Elem](lib *Lib, v []T) (*Vector[T], error) {
	vec, err := NewVector[T](lib)
	if err != nil {
		return nil, err
	}
	vec.SetValues(v)
	return vec, nil
}

// wrapVector wraps a vector pointer owned by parent.
func wrapVector[T Elem](lib *Lib, ptr uintptr, parent Handle) (*Vector[T], error) {
	class := vectorClass[T]()
	a, err := abi[vectorABI[T]](lib, class)
	if err != nil {
		return nil, err
	}
	return &Vector[T]{Handle: borrowed(lib, class, ptr, parent), abi: a}, nil
}

// Len returns the number of elements.
func (v *Vector[T]) Len() int { return int(v.abi.Size(v.Ptr())) }

// Resize changes the number of elements.
func (v *Vector[T]) Resize(n int) { v.abi.Resize(v.Ptr(), uint64(n)) }

// At returns element i.
func (v *Vector[T]) At(i int) T {
	v.check(i)
	return v.abi.GetItem(v.Ptr(), uint64(i))
}

// Set stores x at element i.
func (v *Vector[T]) Set(i int, x T) {
	v.check(i)
	v.abi.SetItem(v.Ptr(), uint64(i), x)
}

func (v *Vector[T]) check(i int) {
	if n := v.Len(); i < 0 || i >= n {
		panic(fmt.Sprintf("native: %s index %d out of range [0,%d)", v.class, i, n))
	}
}

// View returns the elements as a slice sharing storage with the native
// vector. The view is invalidated by Resize and by freeing the vector.
func (v *Vector[T]) View() []T {
	n := v.Len()
	p := v.abi.Data(v.Ptr())
	if p == nil || n == 0 {
		return nil
	}
	return unsafe.Slice((*T)(p), n)
}

// Values returns a copy of the elements.
func (v *Vector[T]) Values() []T {
	return append([]T(nil), v.View()...)
}

// SetValues resizes the vector and copies x into it.
func (v *Vector[T]) SetValues(x []T) {
	v.Resize(len(x))
	copy(v.View(), x)
}

// Borrow returns a shallow, non-owning copy.
func (v *Vector[T]) Borrow() *Vector[T] {
	return &Vector[T]{Handle: v.Handle.shallow(), abi: v.abi}
}

// Clone returns an owning copy made by the native copy constructor.
func (v *Vector[T]) Clone() (*Vector[T], error) {
	out, err := NewVector[T](v.lib)
	if err != nil {
		return nil, err
	}
	v.abi.Copy(v.Ptr(), out.Ptr())
	return out, nil
}

func (v *Vector[T]) String() string {
	return fmt.Sprint(v.View())
}

// ---------------------------------------------------------------------
// std::vector<std::vector<double>>
// ---------------------------------------------------------------------

type vecVecABI struct {
	Create  func() uintptr                 `sym:"o2scl_create_%s"`
	Free    func(uintptr)                  `sym:"o2scl_free_%s"`
	Copy    func(uintptr, uintptr)         `sym:"o2scl_copy_%s"`
	Size    func(uintptr) uint64           `sym:"o2scl_%s_size"`
	Resize  func(uintptr, uint64)          `sym:"o2scl_%s_resize"`
	GetItem func(uintptr, uint64) uintptr  `sym:"o2scl_%s_getitem"`
	SetItem func(uintptr, uint64, uintptr) `sym:"o2scl_%s_setitem"`
}

const (
	classVecVecDouble = "std_vector_std_vector_double_"
	classVecString    = "std_vector_std_string_"
)

// VecVecDouble is a handle on a native vector of vectors of doubles.
type VecVecDouble struct {
	Handle
	abi *vecVecABI
}

// NewVecVecDouble creates an empty native vector of vectors.
func NewVecVecDouble(lib *Lib) (*VecVecDouble, error) {
	a, err := abi[vecVecABI](lib, classVecVecDouble)
	if err != nil {
		return nil, err
	}
	return &VecVecDouble{Handle: owned(lib, classVecVecDouble, a.Create(), a.Free), abi: a}, nil
}

// Len returns the number of inner vectors.
func (v *VecVecDouble) Len() int { return int(v.abi.Size(v.Ptr())) }

// Resize changes the number of inner vectors.
func (v *VecVecDouble) Resize(n int) { v.abi.Resize(v.Ptr(), uint64(n)) }

// At returns a borrowed handle on inner vector i.
func (v *VecVecDouble) At(i int) (*Vector[float64], error) {
	if n := v.Len(); i < 0 || i >= n {
		return nil, fmt.Errorf("native: %s index %d out of range [0,%d)", v.class, i, n)
	}
	return wrapVector[float64](v.lib, v.abi.GetItem(v.Ptr(), uint64(i)), v.Handle)
}

// Set copies x into inner vector i.
func (v *VecVecDouble) Set(i int, x *Vector[float64]) {
	v.abi.SetItem(v.Ptr(), uint64(i), x.Ptr())
}

// Borrow returns a shallow, non-owning copy.
func (v *VecVecDouble) Borrow() *VecVecDouble {
	return &VecVecDouble{Handle: v.Handle.shallow(), abi: v.abi}
}

// Clone returns an owning deep copy.
func (v *VecVecDouble) Clone() (*VecVecDouble, error) {
	out, err := NewVecVecDouble(v.lib)
	if err != nil {
		return nil, err
	}
	v.abi.Copy(v.Ptr(), out.Ptr())
	return out, nil
}

// VecString is a handle on a native vector of strings.
type VecString struct {
	Handle
	abi *vecVecABI
}

// NewVecString creates an empty native vector of strings.
func NewVecString(lib *Lib) (*VecString, error) {
	a, err := abi[vecVecABI](lib, classVecString)
	if err != nil {
		return nil, err
	}
	return &VecString{Handle: owned(lib, classVecString, a.Create(), a.Free), abi: a}, nil
}

// NewVecStringFrom creates a native vector of strings holding ss.
func NewVecStringFrom(lib *Lib, ss []string) (*VecString, error) {
	v, err := NewVecString(lib)
	if err != nil {
		return nil, err
	}
	v.Resize(len(ss))
	for i, s := range ss {
		if err := v.Set(i, s); err != nil {
			v.Close()
			return nil, err
		}
	}
	return v, nil
}

// Len returns the number of strings.
func (v *VecString) Len() int { return int(v.abi.Size(v.Ptr())) }

// Resize changes the number of strings.
func (v *VecString) Resize(n int) { v.abi.Resize(v.Ptr(), uint64(n)) }

// At returns string i.
func (v *VecString) At(i int) (string, error) {
	if n := v.Len(); i < 0 || i >= n {
		return "", fmt.Errorf("native: %s index %d out of range [0,%d)", v.class, i, n)
	}
	s, err := wrapString(v.lib, v.abi.GetItem(v.Ptr(), uint64(i)), false, v.Handle)
	if err != nil {
		return "", err
	}
	return s.String(), nil
}

// Set stores s at index i.
func (v *VecString) Set(i int, s string) error {
	str, err := NewStringFrom(v.lib, s)
	if err != nil {
		return err
	}
	defer str.Close()
	v.abi.SetItem(v.Ptr(), uint64(i), str.Ptr())
	return nil
}

// Strings copies all elements.
func (v *VecString) Strings() ([]string, error) {
	out := make([]string, v.Len())
	for i := range out {
		s, err := v.At(i)
		if err != nil {
			return nil, err
		}
		out[i] = s
	}
	return out, nil
}

// Borrow returns a shallow, non-owning copy.
func (v *VecString) Borrow() *VecString {
	return &VecString{Handle: v.Handle.shallow(), abi: v.abi}
}

// Clone returns an owning deep copy.
func (v *VecString) Clone() (*VecString, error) {
	out, err := NewVecString(v.lib)
	if err != nil {
		return nil, err
	}
	v.abi.Copy(v.Ptr(), out.Ptr())
	return out, nil
}
