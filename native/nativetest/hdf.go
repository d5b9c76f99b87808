package nativetest

import (
	"encoding/gob"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"sort"
)

// record is one named object in a container file of the double. The
// files are gob streams of map[string]record; they are not HDF5.
type record struct {
	Kind string

	Names  []string
	Cols   [][]float64
	NLines int

	XName, YName string
	X, Y         []float64
	Slices       [][]float64

	Sizes []uint64
	Data  []float64
	Grid  []float64

	Edges, Weights []float64
}

func readContainer(name string) (map[string]record, error) {
	f, err := os.Open(name)
	if err != nil {
		return nil, err
	}
	defer f.Close()
	objs := map[string]record{}
	if err := gob.NewDecoder(f).Decode(&objs); err != nil {
		return nil, fmt.Errorf("%s: %w", name, err)
	}
	return objs, nil
}

func writeContainer(name string, objs map[string]record) error {
	f, err := os.Create(name)
	if err != nil {
		return err
	}
	if err := gob.NewEncoder(f).Encode(objs); err != nil {
		f.Close()
		return err
	}
	return f.Close()
}

// firstName returns the alphabetically first object name, used when a
// read names no object.
func firstName(objs map[string]record) (string, bool) {
	names := make([]string, 0, len(objs))
	for k := range objs {
		names = append(names, k)
	}
	sort.Strings(names)
	if len(names) == 0 {
		return "", false
	}
	return names[0], true
}

func (c *Core) encode(kind string, h uintptr) record {
	switch kind {
	case "table":
		t := get[*table](c, h)
		r := record{Kind: kind, Names: append([]string(nil), t.names...), NLines: t.nlines}
		for _, n := range t.names {
			r.Cols = append(r.Cols, clone(t.cols[n].v.v))
		}
		return r
	case "table3d":
		t := get[*table3d](c, h)
		r := record{Kind: kind, XName: t.xname, YName: t.yname, X: clone(t.x), Y: clone(t.y),
			Names: append([]string(nil), t.names...)}
		for _, n := range t.names {
			r.Slices = append(r.Slices, clone(t.slices[n].m.v))
		}
		return r
	case "tensor", "tensor_grid":
		t := get[*tensor](c, h)
		return record{Kind: kind, Sizes: append([]uint64(nil), t.sizes...), Data: clone(t.data.v), Grid: clone(t.grid)}
	case "hist":
		t := get[*hist](c, h)
		return record{Kind: kind, Edges: clone(t.edges), Weights: clone(t.wgts)}
	}
	return record{Kind: kind}
}

func (c *Core) decode(r record, h uintptr) {
	switch r.Kind {
	case "table":
		t := get[*table](c, h)
		c.clearTable(t)
		t.nlines = r.NLines
		for i, n := range r.Names {
			c.addColumn(t, n).v.v = append([]float64(nil), r.Cols[i]...)
		}
	case "table3d":
		t := get[*table3d](c, h)
		c.clearTable3D(t)
		t.xname, t.yname = r.XName, r.YName
		t.x, t.y = append([]float64(nil), r.X...), append([]float64(nil), r.Y...)
		for i, n := range r.Names {
			c.addSlice(t, n).m.v = append([]float64(nil), r.Slices[i]...)
		}
	case "tensor", "tensor_grid":
		t := get[*tensor](c, h)
		t.sizes = append([]uint64(nil), r.Sizes...)
		t.data.v = append([]float64(nil), r.Data...)
		t.grid = append([]float64(nil), r.Grid...)
	case "hist":
		t := get[*hist](c, h)
		t.edges = append([]float64(nil), r.Edges...)
		t.wgts = append([]float64(nil), r.Weights...)
	}
}

type hdfFile struct {
	name  string
	open  bool
	write bool
	objs  map[string]record
}

func (c *Core) registerHDF() {
	const class = "hdf_file"
	f := func(p uintptr) *hdfFile { return get[*hdfFile](c, p) }
	closeFile := func(p uintptr) error {
		hf := f(p)
		if !hf.open {
			return nil
		}
		hf.open = false
		if hf.write {
			return writeContainer(hf.name, hf.objs)
		}
		return nil
	}
	c.def("o2scl_hdf_create_hdf_file", func() uintptr { return c.create(class, &hdfFile{}) })
	c.def("o2scl_hdf_free_hdf_file", func(p uintptr) {
		closeFile(p)
		c.free(class, p)
	})
	c.def("o2scl_hdf_hdf_file_open", func(p uintptr, name *byte, write, errOnFail bool) int32 {
		objs, err := readContainer(goString(name))
		if err != nil {
			if errOnFail {
				fmt.Fprintln(c.out(), err)
			}
			return 1
		}
		*f(p) = hdfFile{name: goString(name), open: true, write: write, objs: objs}
		return 0
	})
	c.def("o2scl_hdf_hdf_file_open_or_create", func(p uintptr, name *byte) int32 {
		objs, err := readContainer(goString(name))
		if errors.Is(err, fs.ErrNotExist) {
			objs, err = map[string]record{}, nil
		}
		if err != nil {
			return 1
		}
		*f(p) = hdfFile{name: goString(name), open: true, write: true, objs: objs}
		return 0
	})
	c.def("o2scl_hdf_hdf_file_close", func(p uintptr) {
		if err := closeFile(p); err != nil {
			c.fault("hdf close: %v", err)
		}
	})
	for _, kind := range []string{"table", "table3d", "tensor", "tensor_grid"} {
		kind := kind
		c.def("o2scl_hdf_hdf_output_"+kind, func(p, obj uintptr, name *byte) int32 {
			hf := f(p)
			if !hf.open || !hf.write {
				return 2
			}
			hf.objs[goString(name)] = c.encode(kind, obj)
			return 0
		})
		c.def("o2scl_hdf_hdf_input_"+kind, func(p, obj uintptr, name *byte) int32 {
			hf := f(p)
			r, ok := hf.objs[goString(name)]
			if !hf.open || !ok || r.Kind != kind {
				return 1
			}
			c.decode(r, obj)
			return 0
		})
	}
}

func clone(v []float64) []float64 { return append([]float64(nil), v...) }
