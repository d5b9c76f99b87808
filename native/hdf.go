package native

import (
	"fmt"
)

type hdfABI struct {
	Create        func() uintptr                         `sym:"o2scl_hdf_create_hdf_file"`
	Free          func(uintptr)                          `sym:"o2scl_hdf_free_hdf_file"`
	Open          func(uintptr, *byte, bool, bool) int32 `sym:"o2scl_hdf_hdf_file_open"`
	OpenOrCreate  func(uintptr, *byte) int32             `sym:"o2scl_hdf_hdf_file_open_or_create"`
	Close         func(uintptr)                          `sym:"o2scl_hdf_hdf_file_close"`
	OutTable      func(uintptr, uintptr, *byte) int32    `sym:"o2scl_hdf_hdf_output_table"`
	InTable       func(uintptr, uintptr, *byte) int32    `sym:"o2scl_hdf_hdf_input_table"`
	OutTable3D    func(uintptr, uintptr, *byte) int32    `sym:"o2scl_hdf_hdf_output_table3d"`
	InTable3D     func(uintptr, uintptr, *byte) int32    `sym:"o2scl_hdf_hdf_input_table3d"`
	OutTensor     func(uintptr, uintptr, *byte) int32    `sym:"o2scl_hdf_hdf_output_tensor"`
	InTensor      func(uintptr, uintptr, *byte) int32    `sym:"o2scl_hdf_hdf_input_tensor"`
	OutTensorGrid func(uintptr, uintptr, *byte) int32    `sym:"o2scl_hdf_hdf_output_tensor_grid"`
	InTensorGrid  func(uintptr, uintptr, *byte) int32    `sym:"o2scl_hdf_hdf_input_tensor_grid"`
}

// HDFFile is a handle on the HDF5 helper of the native library. All
// format details are delegated to it.
type HDFFile struct {
	Handle
	abi  *hdfABI
	name string
	open bool
}

// NewHDFFile creates an unopened file handle.
func NewHDFFile(lib *Lib) (*HDFFile, error) {
	a, err := abi[hdfABI](lib, "hdf_file")
	if err != nil {
		return nil, err
	}
	return &HDFFile{Handle: owned(lib, "hdf_file", a.Create(), a.Free), abi: a}, nil
}

// Open opens an existing file.
func (f *HDFFile) Open(name string, write bool) error {
	if err := status("o2scl_hdf_hdf_file_open", f.abi.Open(f.Ptr(), cstr(name), write, false)); err != nil {
		return fmt.Errorf("open %s: %w", name, err)
	}
	f.name, f.open = name, true
	return nil
}

// OpenOrCreate opens name for writing, creating it if needed.
func (f *HDFFile) OpenOrCreate(name string) error {
	if err := status("o2scl_hdf_hdf_file_open_or_create", f.abi.OpenOrCreate(f.Ptr(), cstr(name))); err != nil {
		return fmt.Errorf("create %s: %w", name, err)
	}
	f.name, f.open = name, true
	return nil
}

// CloseFile closes the underlying file but keeps the handle.
func (f *HDFFile) CloseFile() {
	if f.open {
		f.abi.Close(f.Ptr())
		f.open = false
	}
}

// Close closes the file and frees the handle.
func (f *HDFFile) Close() error {
	if !f.Closed() {
		f.CloseFile()
	}
	return f.Handle.Close()
}

func (f *HDFFile) io(fn func(uintptr, uintptr, *byte) int32, sym string, obj Handle, name string) error {
	if !f.open {
		return fmt.Errorf("%s: file not open", sym)
	}
	if err := status(sym, fn(f.Ptr(), obj.Ptr(), cstr(name))); err != nil {
		return fmt.Errorf("%s %q: %w", f.name, name, err)
	}
	return nil
}

// WriteTable stores t under name.
func (f *HDFFile) WriteTable(t *Table, name string) error {
	return f.io(f.abi.OutTable, "o2scl_hdf_hdf_output_table", t.Handle, name)
}

// ReadTable reads the object called name into t.
func (f *HDFFile) ReadTable(t *Table, name string) error {
	return f.io(f.abi.InTable, "o2scl_hdf_hdf_input_table", t.Handle, name)
}

// WriteTable3D stores t under name.
func (f *HDFFile) WriteTable3D(t *Table3D, name string) error {
	return f.io(f.abi.OutTable3D, "o2scl_hdf_hdf_output_table3d", t.Handle, name)
}

// ReadTable3D reads the object called name into t.
func (f *HDFFile) ReadTable3D(t *Table3D, name string) error {
	return f.io(f.abi.InTable3D, "o2scl_hdf_hdf_input_table3d", t.Handle, name)
}

// WriteTensor stores t under name.
func (f *HDFFile) WriteTensor(t *Tensor, name string) error {
	return f.io(f.abi.OutTensor, "o2scl_hdf_hdf_output_tensor", t.Handle, name)
}

// ReadTensor reads the object called name into t.
func (f *HDFFile) ReadTensor(t *Tensor, name string) error {
	return f.io(f.abi.InTensor, "o2scl_hdf_hdf_input_tensor", t.Handle, name)
}

// WriteTensorGrid stores t under name.
func (f *HDFFile) WriteTensorGrid(t *TensorGrid, name string) error {
	return f.io(f.abi.OutTensorGrid, "o2scl_hdf_hdf_output_tensor_grid", t.Handle, name)
}

// ReadTensorGrid reads the object called name into t.
func (f *HDFFile) ReadTensorGrid(t *TensorGrid, name string) error {
	return f.io(f.abi.InTensorGrid, "o2scl_hdf_hdf_input_tensor_grid", t.Handle, name)
}
