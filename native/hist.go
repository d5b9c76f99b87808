package native

import (
	"fmt"
	"unsafe"
)

type histABI struct {
	Create      func() uintptr                        `sym:"o2scl_create_%s"`
	Free        func(uintptr)                         `sym:"o2scl_free_%s"`
	Copy        func(uintptr, uintptr)                `sym:"o2scl_copy_%s"`
	SetBinEdges func(uintptr, uint64, unsafe.Pointer) `sym:"o2scl_%s_set_bin_edges"`
	Update      func(uintptr, float64, float64)       `sym:"o2scl_%s_update"`
	Size        func(uintptr) uint64                  `sym:"o2scl_%s_size"`
	GetWgt      func(uintptr, uint64) float64         `sym:"o2scl_%s_get_wgt_i"`
	SetWgt      func(uintptr, uint64, float64)        `sym:"o2scl_%s_set_wgt_i"`
	BinLow      func(uintptr, uint64) float64         `sym:"o2scl_%s_get_bin_low_i"`
	BinHigh     func(uintptr, uint64) float64         `sym:"o2scl_%s_get_bin_high_i"`
	Rep         func(uintptr, uint64) float64         `sym:"o2scl_%s_get_rep_i"`
	ClearWgts   func(uintptr)                         `sym:"o2scl_%s_clear_wgts"`
}

const classHist = "hist"

// Hist is a handle on a native one-dimensional histogram.
type Hist struct {
	Handle
	abi *histABI
}

// NewHist creates a histogram with the given bin edges (n+1 edges for n
// bins).
func NewHist(lib *Lib, edges []float64) (*Hist, error) {
	a, err := abi[histABI](lib, classHist)
	if err != nil {
		return nil, err
	}
	h := &Hist{Handle: owned(lib, classHist, a.Create(), a.Free), abi: a}
	if len(edges) > 0 {
		if err := h.SetBinEdges(edges); err != nil {
			h.Close()
			return nil, err
		}
	}
	return h, nil
}

// WrapHist wraps a hist pointer owned by the library.
func WrapHist(lib *Lib, ptr uintptr) (*Hist, error) {
	a, err := abi[histABI](lib, classHist)
	if err != nil {
		return nil, err
	}
	return &Hist{Handle: borrowed(lib, classHist, ptr, Handle{}), abi: a}, nil
}

// SetBinEdges resets the binning. Edges must increase.
func (h *Hist) SetBinEdges(edges []float64) error {
	if len(edges) < 2 {
		return fmt.Errorf("native: need at least two bin edges, got %d", len(edges))
	}
	for i := 1; i < len(edges); i++ {
		if edges[i] <= edges[i-1] {
			return fmt.Errorf("native: bin edges not increasing at %d", i)
		}
	}
	h.abi.SetBinEdges(h.Ptr(), uint64(len(edges)), floatsPtr(edges))
	return nil
}

// Update adds weight w to the bin containing x.
func (h *Hist) Update(x, w float64) { h.abi.Update(h.Ptr(), x, w) }

// Len returns the number of bins.
func (h *Hist) Len() int { return int(h.abi.Size(h.Ptr())) }

// Weight returns the weight of bin i.
func (h *Hist) Weight(i int) float64 { return h.abi.GetWgt(h.Ptr(), uint64(i)) }

// SetWeight sets the weight of bin i.
func (h *Hist) SetWeight(i int, w float64) { h.abi.SetWgt(h.Ptr(), uint64(i), w) }

// Bin returns the edges of bin i.
func (h *Hist) Bin(i int) (lo, hi float64) {
	p := h.Ptr()
	return h.abi.BinLow(p, uint64(i)), h.abi.BinHigh(p, uint64(i))
}

// Rep returns the representative x of bin i.
func (h *Hist) Rep(i int) float64 { return h.abi.Rep(h.Ptr(), uint64(i)) }

// ClearWeights zeroes every bin.
func (h *Hist) ClearWeights() { h.abi.ClearWgts(h.Ptr()) }

// Borrow returns a shallow, non-owning copy.
func (h *Hist) Borrow() *Hist { return &Hist{Handle: h.Handle.shallow(), abi: h.abi} }

// Clone returns an owning deep copy.
func (h *Hist) Clone() (*Hist, error) {
	out, err := NewHist(h.lib, nil)
	if err != nil {
		return nil, err
	}
	h.abi.Copy(h.Ptr(), out.Ptr())
	return out, nil
}

type hist2dABI struct {
	Create      func() uintptr                                                `sym:"o2scl_create_%s"`
	Free        func(uintptr)                                                 `sym:"o2scl_free_%s"`
	Copy        func(uintptr, uintptr)                                        `sym:"o2scl_copy_%s"`
	SetBinEdges func(uintptr, uint64, unsafe.Pointer, uint64, unsafe.Pointer) `sym:"o2scl_%s_set_bin_edges"`
	Update      func(uintptr, float64, float64, float64)                      `sym:"o2scl_%s_update"`
	SizeX       func(uintptr) uint64                                          `sym:"o2scl_%s_size_x"`
	SizeY       func(uintptr) uint64                                          `sym:"o2scl_%s_size_y"`
	GetWgt      func(uintptr, uint64, uint64) float64                         `sym:"o2scl_%s_get_wgt_i"`
	SetWgt      func(uintptr, uint64, uint64, float64)                        `sym:"o2scl_%s_set_wgt_i"`
	XLow        func(uintptr, uint64) float64                                 `sym:"o2scl_%s_get_x_low_i"`
	XHigh       func(uintptr, uint64) float64                                 `sym:"o2scl_%s_get_x_high_i"`
	YLow        func(uintptr, uint64) float64                                 `sym:"o2scl_%s_get_y_low_i"`
	YHigh       func(uintptr, uint64) float64                                 `sym:"o2scl_%s_get_y_high_i"`
}

const classHist2D = "hist_2d"

// Hist2D is a handle on a native two-dimensional histogram.
type Hist2D struct {
	Handle
	abi *hist2dABI
}

// NewHist2D creates a histogram with the given x and y bin edges.
func NewHist2D(lib *Lib, xedges, yedges []float64) (*Hist2D, error) {
	a, err := abi[hist2dABI](lib, classHist2D)
	if err != nil {
		return nil, err
	}
	h := &Hist2D{Handle: owned(lib, classHist2D, a.Create(), a.Free), abi: a}
	if len(xedges) > 0 || len(yedges) > 0 {
		if len(xedges) < 2 || len(yedges) < 2 {
			h.Close()
			return nil, fmt.Errorf("native: need at least two bin edges per axis")
		}
		a.SetBinEdges(h.Ptr(), uint64(len(xedges)), floatsPtr(xedges), uint64(len(yedges)), floatsPtr(yedges))
	}
	return h, nil
}

// WrapHist2D wraps a hist_2d pointer owned by the library.
func WrapHist2D(lib *Lib, ptr uintptr) (*Hist2D, error) {
	a, err := abi[hist2dABI](lib, classHist2D)
	if err != nil {
		return nil, err
	}
	return &Hist2D{Handle: borrowed(lib, classHist2D, ptr, Handle{}), abi: a}, nil
}

// Update adds weight w to the bin containing (x, y).
func (h *Hist2D) Update(x, y, w float64) { h.abi.Update(h.Ptr(), x, y, w) }

// Dims returns the number of bins along x and y.
func (h *Hist2D) Dims() (nx, ny int) {
	p := h.Ptr()
	return int(h.abi.SizeX(p)), int(h.abi.SizeY(p))
}

// Weight returns the weight of bin (i, j).
func (h *Hist2D) Weight(i, j int) float64 { return h.abi.GetWgt(h.Ptr(), uint64(i), uint64(j)) }

// SetWeight sets the weight of bin (i, j).
func (h *Hist2D) SetWeight(i, j int, w float64) { h.abi.SetWgt(h.Ptr(), uint64(i), uint64(j), w) }

// XBin returns the x edges of column i.
func (h *Hist2D) XBin(i int) (lo, hi float64) {
	p := h.Ptr()
	return h.abi.XLow(p, uint64(i)), h.abi.XHigh(p, uint64(i))
}

// YBin returns the y edges of row j.
func (h *Hist2D) YBin(j int) (lo, hi float64) {
	p := h.Ptr()
	return h.abi.YLow(p, uint64(j)), h.abi.YHigh(p, uint64(j))
}

// Borrow returns a shallow, non-owning copy.
func (h *Hist2D) Borrow() *Hist2D { return &Hist2D{Handle: h.Handle.shallow(), abi: h.abi} }

// Clone returns an owning deep copy.
func (h *Hist2D) Clone() (*Hist2D, error) {
	out, err := NewHist2D(h.lib, nil, nil)
	if err != nil {
		return nil, err
	}
	h.abi.Copy(h.Ptr(), out.Ptr())
	return out, nil
}
