package nativetest

import (
	"unsafe"
)

type str struct{ b []byte }

func (c *Core) registerStrings() {
	const class = "std_string"
	c.def("o2scl_create_std_string", func() uintptr { return c.create(class, &str{}) })
	c.def("o2scl_free_std_string", func(p uintptr) { c.free(class, p) })
	c.def("o2scl_std_string_length", func(p uintptr) uint64 { return uint64(len(get[*str](c, p).b)) })
	c.def("o2scl_std_string_getitem", func(p uintptr, i uint64) byte { return get[*str](c, p).b[i] })
	c.def("o2scl_std_string_setitem", func(p uintptr, i uint64, v byte) { get[*str](c, p).b[i] = v })
	c.def("o2scl_std_string_resize", func(p uintptr, n uint64) {
		s := get[*str](c, p)
		s.b = resize(s.b, int(n))
	})
}

// newString returns an owning std::string, as native getters that
// return strings by value do.
func (c *Core) newString(s string) uintptr {
	return c.create("std_string", &str{b: []byte(s)})
}

func resize[T any](v []T, n int) []T {
	if n <= cap(v) {
		old := len(v)
		v = v[:n]
		clear(v[min(old, n):])
		return v
	}
	out := make([]T, n)
	copy(out, v)
	return out
}

type vec[T any] struct{ v []T }

func (v *vec[T]) data() unsafe.Pointer {
	if len(v.v) == 0 {
		return nil
	}
	return unsafe.Pointer(&v.v[0])
}

func registerVector[T float64 | int32 | uint64](c *Core, class string) {
	c.def("o2scl_create_"+class, func() uintptr { return c.create(class, &vec[T]{}) })
	c.def("o2scl_free_"+class, func(p uintptr) { c.free(class, p) })
	c.def("o2scl_copy_"+class, func(src, dst uintptr) {
		get[*vec[T]](c, dst).v = append([]T(nil), get[*vec[T]](c, src).v...)
	})
	c.def("o2scl_"+class+"_size", func(p uintptr) uint64 { return uint64(len(get[*vec[T]](c, p).v)) })
	c.def("o2scl_"+class+"_resize", func(p uintptr, n uint64) {
		v := get[*vec[T]](c, p)
		v.v = resize(v.v, int(n))
	})
	c.def("o2scl_"+class+"_getitem", func(p uintptr, i uint64) T { return get[*vec[T]](c, p).v[i] })
	c.def("o2scl_"+class+"_setitem", func(p uintptr, i uint64, x T) { get[*vec[T]](c, p).v[i] = x })
	c.def("o2scl_"+class+"_data", func(p uintptr) unsafe.Pointer { return get[*vec[T]](c, p).data() })
}

// list holds child handles; the children are owned by the list.
type list struct{ items []uintptr }

func (c *Core) registerVecVec() {
	c.registerList("std_vector_std_vector_double_",
		func() any { return &vec[float64]{} },
		func(dst, src uintptr) {
			get[*vec[float64]](c, dst).v = append([]float64(nil), get[*vec[float64]](c, src).v...)
		})
	c.registerList("std_vector_std_string_",
		func() any { return &str{} },
		func(dst, src uintptr) {
			get[*str](c, dst).b = append([]byte(nil), get[*str](c, src).b...)
		})
}

func (c *Core) registerList(class string, elem func() any, assign func(dst, src uintptr)) {
	resizeList := func(l *list, n int) {
		for len(l.items) > n {
			c.drop(l.items[len(l.items)-1])
			l.items = l.items[:len(l.items)-1]
		}
		for len(l.items) < n {
			l.items = append(l.items, c.put(elem()))
		}
	}
	c.def("o2scl_create_"+class, func() uintptr { return c.create(class, &list{}) })
	c.def("o2scl_free_"+class, func(p uintptr) {
		for _, h := range get[*list](c, p).items {
			c.drop(h)
		}
		c.free(class, p)
	})
	c.def("o2scl_copy_"+class, func(src, dst uintptr) {
		s, d := get[*list](c, src), get[*list](c, dst)
		resizeList(d, len(s.items))
		for i, h := range s.items {
			assign(d.items[i], h)
		}
	})
	c.def("o2scl_"+class+"_size", func(p uintptr) uint64 { return uint64(len(get[*list](c, p).items)) })
	c.def("o2scl_"+class+"_resize", func(p uintptr, n uint64) { resizeList(get[*list](c, p), int(n)) })
	c.def("o2scl_"+class+"_getitem", func(p uintptr, i uint64) uintptr { return get[*list](c, p).items[i] })
	c.def("o2scl_"+class+"_setitem", func(p uintptr, i uint64, src uintptr) {
		assign(get[*list](c, p).items[i], src)
	})
}

type matrix struct {
	r, c int
	v    []float64
}

func (m *matrix) data() unsafe.Pointer {
	if len(m.v) == 0 {
		return nil
	}
	return unsafe.Pointer(&m.v[0])
}

func (c *Core) registerMatrix() {
	const class = "boost_numeric_ublas_matrix_double_"
	c.def("o2scl_create_"+class, func() uintptr { return c.create(class, &matrix{}) })
	c.def("o2scl_free_"+class, func(p uintptr) { c.free(class, p) })
	c.def("o2scl_copy_"+class, func(src, dst uintptr) {
		s, d := get[*matrix](c, src), get[*matrix](c, dst)
		d.r, d.c, d.v = s.r, s.c, append([]float64(nil), s.v...)
	})
	c.def("o2scl_"+class+"_size1", func(p uintptr) uint64 { return uint64(get[*matrix](c, p).r) })
	c.def("o2scl_"+class+"_size2", func(p uintptr) uint64 { return uint64(get[*matrix](c, p).c) })
	c.def("o2scl_"+class+"_resize", func(p uintptr, r, cols uint64) {
		m := get[*matrix](c, p)
		m.r, m.c, m.v = int(r), int(cols), make([]float64, r*cols)
	})
	c.def("o2scl_"+class+"_getitem", func(p uintptr, i, j uint64) float64 {
		m := get[*matrix](c, p)
		return m.v[int(i)*m.c+int(j)]
	})
	c.def("o2scl_"+class+"_setitem", func(p uintptr, i, j uint64, x float64) {
		m := get[*matrix](c, p)
		m.v[int(i)*m.c+int(j)] = x
	})
	c.def("o2scl_"+class+"_data", func(p uintptr) unsafe.Pointer { return get[*matrix](c, p).data() })
}
