// Package table holds the immutable in-memory record set that flows through
// the cleaning pipeline. Every transformation returns a new *Table; nothing
// mutates a table after New returns it, so a snapshot handed to one stage can
// be read concurrently by others.
package table

import (
	"errors"
	"fmt"
)

// ErrColumnNotFound is matched by *ColumnError.
var ErrColumnNotFound = errors.New("column not found")

// ErrDuplicateColumn is returned when two columns share a name.
var ErrDuplicateColumn = errors.New("duplicate column")

// ColumnError identifies the column an operation could not resolve.
type ColumnError struct {
	Op     string
	Column string
}

func (e *ColumnError) Error() string {
	if e.Op == "" {
		return fmt.Sprintf("column %q not found", e.Column)
	}
	return fmt.Sprintf("%s: column %q not found", e.Op, e.Column)
}

func (e *ColumnError) Is(target error) bool { return target == ErrColumnNotFound }

// Table is an ordered set of uniquely named columns and rows of Values.
type Table struct {
	cols  []string
	index map[string]int
	rows  [][]Value
}

// New builds a table from a header and rows. Inputs are copied; short rows
// are padded with Missing and long rows are truncated to the header width.
func New(columns []string, rows [][]Value) (*Table, error) {
	idx := make(map[string]int, len(columns))
	for i, c := range columns {
		if j, ok := idx[c]; ok {
			return nil, fmt.Errorf("%w: %q at positions %d and %d", ErrDuplicateColumn, c, j, i)
		}
		idx[c] = i
	}
	cols := make([]string, len(columns))
	copy(cols, columns)
	out := make([][]Value, len(rows))
	for i, r := range rows {
		row := make([]Value, len(cols))
		copy(row, r)
		out[i] = row
	}
	return &Table{cols: cols, index: idx, rows: out}, nil
}

// Empty returns a table with the given header and no rows.
func Empty(columns ...string) (*Table, error) { return New(columns, nil) }

// Len returns the number of rows.
func (t *Table) Len() int { return len(t.rows) }

// Width returns the number of columns.
func (t *Table) Width() int { return len(t.cols) }

// Columns returns a copy of the column names in order.
func (t *Table) Columns() []string {
	out := make([]string, len(t.cols))
	copy(out, t.cols)
	return out
}

// Index returns the position of a column.
func (t *Table) Index(name string) (int, bool) {
	i, ok := t.index[name]
	return i, ok
}

// Has reports whether the table has a column with this name.
func (t *Table) Has(name string) bool {
	_, ok := t.index[name]
	return ok
}

// At returns the value at row i, column j.
func (t *Table) At(i, j int) Value { return t.rows[i][j] }

// Get returns the value at row i of the named column.
func (t *Table) Get(i int, name string) (Value, error) {
	j, ok := t.index[name]
	if !ok {
		return Value{}, &ColumnError{Column: name}
	}
	return t.rows[i][j], nil
}

// Row returns a copy of row i.
func (t *Table) Row(i int) []Value {
	out := make([]Value, len(t.cols))
	copy(out, t.rows[i])
	return out
}

// Column returns a copy of all values of the named column.
func (t *Table) Column(name string) ([]Value, error) {
	j, ok := t.index[name]
	if !ok {
		return nil, &ColumnError{Op: "column", Column: name}
	}
	out := make([]Value, len(t.rows))
	for i, r := range t.rows {
		out[i] = r[j]
	}
	return out, nil
}

// Rename returns a table with each column renamed by fn. Row data is shared
// read-only with the receiver. Fails if fn maps two columns to one name.
func (t *Table) Rename(fn func(string) string) (*Table, error) {
	cols := make([]string, len(t.cols))
	idx := make(map[string]int, len(t.cols))
	for i, c := range t.cols {
		n := fn(c)
		if j, ok := idx[n]; ok {
			return nil, fmt.Errorf("%w: %q and %q both become %q", ErrDuplicateColumn, t.cols[j], c, n)
		}
		idx[n] = i
		cols[i] = n
	}
	return &Table{cols: cols, index: idx, rows: t.rows}, nil
}

// WithColumn returns a table where the named column holds vals. An existing
// column is replaced in place; otherwise it is appended. len(vals) must match Len.
func (t *Table) WithColumn(name string, vals []Value) (*Table, error) {
	if len(vals) != len(t.rows) {
		return nil, fmt.Errorf("with column %q: got %d values for %d rows", name, len(vals), len(t.rows))
	}
	j, replace := t.index[name]
	cols := t.Columns()
	idx := make(map[string]int, len(t.index)+1)
	for k, v := range t.index {
		idx[k] = v
	}
	if !replace {
		j = len(cols)
		cols = append(cols, name)
		idx[name] = j
	}
	rows := make([][]Value, len(t.rows))
	for i, r := range t.rows {
		row := make([]Value, len(cols))
		copy(row, r)
		row[j] = vals[i]
		rows[i] = row
	}
	return &Table{cols: cols, index: idx, rows: rows}, nil
}

// Filter returns the rows for which keep returns true, in their original order.
func (t *Table) Filter(keep func(i int) bool) *Table {
	var rows [][]Value
	for i, r := range t.rows {
		if keep(i) {
			rows = append(rows, r)
		}
	}
	return &Table{cols: t.cols, index: t.index, rows: rows}
}
