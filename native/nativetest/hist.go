package nativetest

import (
	"sort"
	"unsafe"
)

type hist struct {
	edges []float64
	wgts  []float64
}

// bin returns the bin containing x, or -1.
func bin(edges []float64, x float64) int {
	if len(edges) < 2 || x < edges[0] || x > edges[len(edges)-1] {
		return -1
	}
	i := sort.SearchFloat64s(edges, x)
	if i < len(edges) && edges[i] == x {
		return min(i, len(edges)-2)
	}
	return i - 1
}

func reps(edges []float64) []float64 {
	if len(edges) < 2 {
		return nil
	}
	out := make([]float64, len(edges)-1)
	for i := range out {
		out[i] = (edges[i] + edges[i+1]) / 2
	}
	return out
}

func (c *Core) registerHist() {
	const class = "hist"
	pre := "o2scl_" + class + "_"
	h := func(p uintptr) *hist { return get[*hist](c, p) }
	c.def("o2scl_create_"+class, func() uintptr { return c.create(class, &hist{}) })
	c.def("o2scl_free_"+class, func(p uintptr) { c.free(class, p) })
	c.def("o2scl_copy_"+class, func(src, dst uintptr) {
		s, d := h(src), h(dst)
		d.edges, d.wgts = append([]float64(nil), s.edges...), append([]float64(nil), s.wgts...)
	})
	c.def(pre+"set_bin_edges", func(p uintptr, n uint64, e unsafe.Pointer) {
		x := h(p)
		x.edges = sliceOf[float64](e, n)
		x.wgts = make([]float64, max(0, len(x.edges)-1))
	})
	c.def(pre+"update", func(p uintptr, x, w float64) {
		if i := bin(h(p).edges, x); i >= 0 {
			h(p).wgts[i] += w
		}
	})
	c.def(pre+"size", func(p uintptr) uint64 { return uint64(len(h(p).wgts)) })
	c.def(pre+"get_wgt_i", func(p uintptr, i uint64) float64 { return h(p).wgts[i] })
	c.def(pre+"set_wgt_i", func(p uintptr, i uint64, w float64) { h(p).wgts[i] = w })
	c.def(pre+"get_bin_low_i", func(p uintptr, i uint64) float64 { return h(p).edges[i] })
	c.def(pre+"get_bin_high_i", func(p uintptr, i uint64) float64 { return h(p).edges[i+1] })
	c.def(pre+"get_rep_i", func(p uintptr, i uint64) float64 { return reps(h(p).edges)[i] })
	c.def(pre+"clear_wgts", func(p uintptr) { clear(h(p).wgts) })
}

type hist2d struct {
	x, y []float64
	// wgts is indexed [i*ny+j].
	wgts []float64
}

func (h *hist2d) ny() int { return max(0, len(h.y)-1) }

func (c *Core) registerHist2D() {
	const class = "hist_2d"
	pre := "o2scl_" + class + "_"
	h := func(p uintptr) *hist2d { return get[*hist2d](c, p) }
	c.def("o2scl_create_"+class, func() uintptr { return c.create(class, &hist2d{}) })
	c.def("o2scl_free_"+class, func(p uintptr) { c.free(class, p) })
	c.def("o2scl_copy_"+class, func(src, dst uintptr) {
		s, d := h(src), h(dst)
		d.x, d.y = append([]float64(nil), s.x...), append([]float64(nil), s.y...)
		d.wgts = append([]float64(nil), s.wgts...)
	})
	c.def(pre+"set_bin_edges", func(p uintptr, nx uint64, x unsafe.Pointer, ny uint64, y unsafe.Pointer) {
		d := h(p)
		d.x, d.y = sliceOf[float64](x, nx), sliceOf[float64](y, ny)
		d.wgts = make([]float64, max(0, len(d.x)-1)*d.ny())
	})
	c.def(pre+"update", func(p uintptr, x, y, w float64) {
		d := h(p)
		i, j := bin(d.x, x), bin(d.y, y)
		if i >= 0 && j >= 0 {
			d.wgts[i*d.ny()+j] += w
		}
	})
	c.def(pre+"size_x", func(p uintptr) uint64 { return uint64(max(0, len(h(p).x)-1)) })
	c.def(pre+"size_y", func(p uintptr) uint64 { return uint64(h(p).ny()) })
	c.def(pre+"get_wgt_i", func(p uintptr, i, j uint64) float64 { return h(p).wgts[int(i)*h(p).ny()+int(j)] })
	c.def(pre+"set_wgt_i", func(p uintptr, i, j uint64, w float64) { h(p).wgts[int(i)*h(p).ny()+int(j)] = w })
	c.def(pre+"get_x_low_i", func(p uintptr, i uint64) float64 { return h(p).x[i] })
	c.def(pre+"get_x_high_i", func(p uintptr, i uint64) float64 { return h(p).x[i+1] })
	c.def(pre+"get_y_low_i", func(p uintptr, i uint64) float64 { return h(p).y[i] })
	c.def(pre+"get_y_high_i", func(p uintptr, i uint64) float64 { return h(p).y[i+1] })
}
