package table

import (
	"strconv"
	"strings"
)

// Kind is the inferred or declared type of a column.
type Kind int

const (
	KindText Kind = iota
	KindNumeric
	KindFlag
	KindTimestamp
)

func (k Kind) String() string {
	switch k {
	case KindNumeric:
		return "numeric"
	case KindFlag:
		return "flag"
	case KindTimestamp:
		return "timestamp"
	default:
		return "text"
	}
}

// Cell holds the raw text of a value and, for numeric kinds, its parsed form.
// Missing cells keep their raw marker so untouched rows export unchanged.
type Cell struct {
	Raw     string
	Num     float64
	Missing bool
}

// Column is a named, typed column of cells in row order.
type Column struct {
	Name  string
	Kind  Kind
	Cells []Cell
}

// Numeric reports whether the column carries parsed float values.
func (c *Column) Numeric() bool { return c.Kind == KindNumeric || c.Kind == KindFlag }

// Present returns the non-missing values of a numeric column in row order.
// Missing cells are skipped entirely; they never contribute a zero.
func (c *Column) Present() []float64 {
	if !c.Numeric() {
		return nil
	}
	out := make([]float64, 0, len(c.Cells))
	for _, cell := range c.Cells {
		if cell.Missing {
			continue
		}
		out = append(out, cell.Num)
	}
	return out
}

// MissingCount counts missing cells.
func (c *Column) MissingCount() int {
	n := 0
	for _, cell := range c.Cells {
		if cell.Missing {
			n++
		}
	}
	return n
}

// Set stores v at row i, clearing the missing marker and re-rendering the raw text.
func (c *Column) Set(i int, v float64) {
	c.Cells[i] = Cell{Raw: FormatFloat(v), Num: v}
}

// FormatFloat renders v with the shortest representation that round-trips.
func FormatFloat(v float64) string {
	return strconv.FormatFloat(v, 'f', -1, 64)
}

// Table is an in-memory, column-oriented dataset with a fixed row count.
type Table struct {
	Name    string
	Columns []*Column
	rows    int
}

// Len returns the number of data rows.
func (t *Table) Len() int { return t.rows }

// Names returns the column names in table order.
func (t *Table) Names() []string {
	out := make([]string, len(t.Columns))
	for i, c := range t.Columns {
		out[i] = c.Name
	}
	return out
}

// Column looks up a column by exact name, falling back to a case-insensitive match.
func (t *Table) Column(name string) (*Column, bool) {
	name = strings.TrimSpace(name)
	for _, c := range t.Columns {
		if c.Name == name {
			return c, true
		}
	}
	for _, c := range t.Columns {
		if strings.EqualFold(c.Name, name) {
			return c, true
		}
	}
	return nil, false
}

// Has reports whether a column exists.
func (t *Table) Has(name string) bool {
	_, ok := t.Column(name)
	return ok
}

// Drop removes a column and reports whether it existed.
func (t *Table) Drop(name string) bool {
	c, ok := t.Column(name)
	if !ok {
		return false
	}
	for i := range t.Columns {
		if t.Columns[i] == c {
			t.Columns = append(t.Columns[:i], t.Columns[i+1:]...)
			return true
		}
	}
	return false
}

// Row returns the raw values of row i in column order.
func (t *Table) Row(i int) []string {
	out := make([]string, len(t.Columns))
	for j, c := range t.Columns {
		out[j] = c.Cells[i].Raw
	}
	return out
}

// Clone returns a deep copy.
func (t *Table) Clone() *Table {
	cp := &Table{Name: t.Name, rows: t.rows, Columns: make([]*Column, len(t.Columns))}
	for i, c := range t.Columns {
		cells := make([]Cell, len(c.Cells))
		copy(cells, c.Cells)
		cp.Columns[i] = &Column{Name: c.Name, Kind: c.Kind, Cells: cells}
	}
	return cp
}
