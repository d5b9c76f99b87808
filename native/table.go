package native

import (
	"fmt"
	"strings"
	"unsafe"
)

type tableABI struct {
	Create         func() uintptr                        `sym:"o2scl_create_%s"`
	Free           func(uintptr)                         `sym:"o2scl_free_%s"`
	Copy           func(uintptr, uintptr)                `sym:"o2scl_copy_%s"`
	LineOfNames    func(uintptr, *byte)                  `sym:"o2scl_%s_line_of_names"`
	LineOfData     func(uintptr, uint64, unsafe.Pointer) `sym:"o2scl_%s_line_of_data"`
	NLines         func(uintptr) uint64                  `sym:"o2scl_%s_get_nlines"`
	SetNLines      func(uintptr, uint64)                 `sym:"o2scl_%s_set_nlines"`
	NColumns       func(uintptr) uint64                  `sym:"o2scl_%s_get_ncolumns"`
	ColumnName     func(uintptr, uint64) uintptr         `sym:"o2scl_%s_get_column_name"`
	IsColumn       func(uintptr, *byte) bool             `sym:"o2scl_%s_is_column"`
	NewColumn      func(uintptr, *byte)                  `sym:"o2scl_%s_new_column"`
	DeleteColumn   func(uintptr, *byte)                  `sym:"o2scl_%s_delete_column"`
	Get            func(uintptr, *byte, uint64) float64  `sym:"o2scl_%s_get"`
	Set            func(uintptr, *byte, uint64, float64) `sym:"o2scl_%s_set"`
	GetColumn      func(uintptr, *byte) uintptr          `sym:"o2scl_%s_get_column"`
	FunctionColumn func(uintptr, *byte, *byte) int32     `sym:"o2scl_%s_function_column"`
	Clear          func(uintptr)                         `sym:"o2scl_%s_clear"`
	Summary        func(uintptr)                         `sym:"o2scl_%s_summary,optional"`
}

const classTable = "table__"

// Table is a handle on a native table: named columns of equal length.
type Table struct {
	Handle
	abi *tableABI
}

// NewTable creates an empty table.
func NewTable(lib *Lib) (*Table, error) {
	a, err := abi[tableABI](lib, classTable)
	if err != nil {
		return nil, err
	}
	return &Table{Handle: owned(lib, classTable, a.Create(), a.Free), abi: a}, nil
}

// WrapTable wraps a table pointer owned by the library.
func WrapTable(lib *Lib, ptr uintptr) (*Table, error) {
	a, err := abi[tableABI](lib, classTable)
	if err != nil {
		return nil, err
	}
	return &Table{Handle: borrowed(lib, classTable, ptr, Handle{}), abi: a}, nil
}

// LineOfNames adds one column per whitespace-separated name.
func (t *Table) LineOfNames(names string) {
	t.abi.LineOfNames(t.Ptr(), cstr(names))
}

// LineOfData appends one row.
func (t *Table) LineOfData(row []float64) error {
	if n := t.NColumns(); len(row) != n {
		return fmt.Errorf("native: row of %d values for table with %d columns", len(row), n)
	}
	t.abi.LineOfData(t.Ptr(), uint64(len(row)), floatsPtr(row))
	return nil
}

// NLines returns the number of rows.
func (t *Table) NLines() int { return int(t.abi.NLines(t.Ptr())) }

// Len is NLines.
func (t *Table) Len() int { return t.NLines() }

// SetNLines changes the number of rows.
func (t *Table) SetNLines(n int) { t.abi.SetNLines(t.Ptr(), uint64(n)) }

// NColumns returns the number of columns.
func (t *Table) NColumns() int { return int(t.abi.NColumns(t.Ptr())) }

// ColumnName returns the name of column i.
func (t *Table) ColumnName(i int) (string, error) {
	if n := t.NColumns(); i < 0 || i >= n {
		return "", fmt.Errorf("native: column index %d out of range [0,%d)", i, n)
	}
	return takeString(t.lib, t.abi.ColumnName(t.Ptr(), uint64(i)))
}

// ColumnNames returns all column names in order.
func (t *Table) ColumnNames() ([]string, error) {
	out := make([]string, t.NColumns())
	for i := range out {
		s, err := t.ColumnName(i)
		if err != nil {
			return nil, err
		}
		out[i] = s
	}
	return out, nil
}

// IsColumn reports whether the table has a column named col.
func (t *Table) IsColumn(col string) bool { return t.abi.IsColumn(t.Ptr(), cstr(col)) }

// NewColumn adds an empty column.
func (t *Table) NewColumn(col string) { t.abi.NewColumn(t.Ptr(), cstr(col)) }

// DeleteColumn removes a column.
func (t *Table) DeleteColumn(col string) error {
	if !t.IsColumn(col) {
		return fmt.Errorf("native: no column %q", col)
	}
	t.abi.DeleteColumn(t.Ptr(), cstr(col))
	return nil
}

// Get returns the value of col in row.
func (t *Table) Get(col string, row int) float64 {
	return t.abi.Get(t.Ptr(), cstr(col), uint64(row))
}

// Set stores v in col at row.
func (t *Table) Set(col string, row int, v float64) {
	t.abi.Set(t.Ptr(), cstr(col), uint64(row), v)
}

// Column returns a borrowed vector on the column storage.
func (t *Table) Column(col string) (*Vector[float64], error) {
	p := t.abi.GetColumn(t.Ptr(), cstr(col))
	if p == 0 {
		return nil, fmt.Errorf("native: no column %q", col)
	}
	return wrapVector[float64](t.lib, p, t.Handle)
}

// FunctionColumn fills col (creating it if needed) from an expression in
// the other columns.
func (t *Table) FunctionColumn(expr, col string) error {
	return status("o2scl_table___function_column", t.abi.FunctionColumn(t.Ptr(), cstr(expr), cstr(col)))
}

// Clear removes all rows and columns.
func (t *Table) Clear() { t.abi.Clear(t.Ptr()) }

// Summary returns the native summary of the table.
func (t *Table) Summary() (string, error) {
	return summarize(t.lib, t.abi.Summary, t.Ptr(), "o2scl_table___summary")
}

func (t *Table) String() string {
	if s, err := t.Summary(); err == nil {
		return s
	}
	names, _ := t.ColumnNames()
	return fmt.Sprintf("table %d rows [%s]", t.NLines(), strings.Join(names, " "))
}

// Borrow returns a shallow, non-owning copy.
func (t *Table) Borrow() *Table {
	return &Table{Handle: t.Handle.shallow(), abi: t.abi}
}

// Clone returns an owning deep copy.
func (t *Table) Clone() (*Table, error) {
	out, err := NewTable(t.lib)
	if err != nil {
		return nil, err
	}
	t.abi.Copy(t.Ptr(), out.Ptr())
	return out, nil
}
