package native

import (
	"unsafe"
)

// Text is anything that can cross the boundary as UTF-8 bytes.
type Text interface {
	~string | ~[]byte
}

// ToBytes normalises either string form to bytes.
func ToBytes[T Text](s T) []byte {
	return []byte(s)
}

// ToString yields a Go string from native bytes for display.
func ToString(b []byte) string {
	return string(b)
}

// cstr returns a NUL-terminated copy of s suitable for a const char*
// argument. The buffer lives until the caller drops the pointer.
func cstr[T Text](s T) *byte {
	b := make([]byte, len(s)+1)
	copy(b, s)
	return &b[0]
}

// floats views n doubles of native memory at p. The slice shares storage
// with the native object.
func floats(p unsafe.Pointer, n int) []float64 {
	if p == nil || n <= 0 {
		return nil
	}
	return unsafe.Slice((*float64)(p), n)
}

// floatsPtr returns a pointer to the first element of v, or nil.
func floatsPtr(v []float64) unsafe.Pointer {
	if len(v) == 0 {
		return nil
	}
	return unsafe.Pointer(&v[0])
}

func sizesPtr(v []uint64) unsafe.Pointer {
	if len(v) == 0 {
		return nil
	}
	return unsafe.Pointer(&v[0])
}

// packStrings encodes args as the (count, sizes, concatenated bytes)
// triple the native command processor expects.
func packStrings(args []string) (int32, []int32, *byte) {
	sizes := make([]int32, len(args))
	total := 0
	for i, a := range args {
		sizes[i] = int32(len(a))
		total += len(a)
	}
	buf := make([]byte, total+1)
	off := 0
	for _, a := range args {
		off += copy(buf[off:], a)
	}
	return int32(len(args)), sizes, &buf[0]
}

// unpackStrings is the inverse of packStrings.
func unpackStrings(sizes []int32, buf []byte) []string {
	out := make([]string, len(sizes))
	off := 0
	for i, n := range sizes {
		out[i] = string(buf[off : off+int(n)])
		off += int(n)
	}
	return out
}

// ---------------------------------------------------------------------
// std::string
// ---------------------------------------------------------------------

type stringABI struct {
	Create  func() uintptr              `sym:"o2scl_create_%s"`
	Free    func(uintptr)               `sym:"o2scl_free_%s"`
	Length  func(uintptr) uint64        `sym:"o2scl_%s_length"`
	GetItem func(uintptr, uint64) byte  `sym:"o2scl_%s_getitem"`
	SetItem func(uintptr, uint64, byte) `sym:"o2scl_%s_setitem"`
	Resize  func(uintptr, uint64)       `sym:"o2scl_%s_resize"`
}

const classString = "std_string"

// String is a handle on a native std::string.
type String struct {
	Handle
	abi *stringABI
}

// NewString creates an empty native string.
func NewString(lib *Lib) (*String, error) {
	a, err := abi[stringABI](lib, classString)
	if err != nil {
		return nil, err
	}
	return &String{Handle: owned(lib, classString, a.Create(), a.Free), abi: a}, nil
}

// NewStringFrom creates a native string holding s.
func NewStringFrom[T Text](lib *Lib, s T) (*String, error) {
	str, err := NewString(lib)
	if err != nil {
		return nil, err
	}
	str.InitBytes(ToBytes(s))
	return str, nil
}

// wrapString wraps a std::string pointer returned by the library.
func wrapString(lib *Lib, ptr uintptr, own bool, parent Handle) (*String, error) {
	a, err := abi[stringABI](lib, classString)
	if err != nil {
		return nil, err
	}
	if own {
		return &String{Handle: owned(lib, classString, ptr, a.Free), abi: a}, nil
	}
	return &String{Handle: borrowed(lib, classString, ptr, parent), abi: a}, nil
}

// takeString converts an owned std::string result to Go and frees it.
func takeString(lib *Lib, ptr uintptr) (string, error) {
	if ptr == 0 {
		return "", nil
	}
	s, err := wrapString(lib, ptr, true, Handle{})
	if err != nil {
		return "", err
	}
	defer s.Close()
	return s.String(), nil
}

// InitBytes replaces the contents of the string with b.
func (s *String) InitBytes(b []byte) {
	p := s.Ptr()
	s.abi.Resize(p, uint64(len(b)))
	for i, c := range b {
		s.abi.SetItem(p, uint64(i), c)
	}
}

// Bytes copies the contents of the string.
func (s *String) Bytes() []byte {
	p := s.Ptr()
	n := s.abi.Length(p)
	out := make([]byte, n)
	for i := range out {
		out[i] = s.abi.GetItem(p, uint64(i))
	}
	return out
}

// Len returns the length in bytes.
func (s *String) Len() int { return int(s.abi.Length(s.Ptr())) }

// String returns the contents as a Go string.
func (s *String) String() string { return ToString(s.Bytes()) }

// Borrow returns a shallow, non-owning copy.
func (s *String) Borrow() *String {
	return &String{Handle: s.Handle.shallow(), abi: s.abi}
}

// Clone returns an owning copy with its own native storage.
func (s *String) Clone() (*String, error) {
	return NewStringFrom(s.lib, s.Bytes())
}
