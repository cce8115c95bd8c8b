// Package records holds the columnar in-memory table that flows between the
// raw table reader, the field remapper and the binary writer.
//
// A Column stores its values flattened in row-major order: Rows*Field.Count()
// elements in exactly one of Ints, Uints, Floats or Strings, selected by the
// field's storage kind.
package records

import (
	"fmt"

	"pdsreader/internal/schema"
)

// Column is one field of a Table.
type Column struct {
	Field   schema.Field
	Ints    []int64
	Uints   []uint64
	Floats  []float64
	Strings []string
}

// NewColumn allocates a column of f for rows records.
func NewColumn(f schema.Field, rows int) *Column {
	c := &Column{Field: f}
	n := rows * f.Count()
	switch f.Type.Kind {
	case schema.KindInt:
		c.Ints = make([]int64, n)
	case schema.KindUint:
		c.Uints = make([]uint64, n)
	case schema.KindFloat:
		c.Floats = make([]float64, n)
	case schema.KindBytes:
		c.Strings = make([]string, n)
	}
	return c
}

// Len returns the number of stored elements.
func (c *Column) Len() int {
	switch c.Field.Type.Kind {
	case schema.KindInt:
		return len(c.Ints)
	case schema.KindUint:
		return len(c.Uints)
	case schema.KindFloat:
		return len(c.Floats)
	case schema.KindBytes:
		return len(c.Strings)
	}
	return 0
}

// Renamed returns a shallow copy of c under a new name. Value slices are
// shared; columns are never mutated after they are built.
func (c *Column) Renamed(name string) *Column {
	cp := *c
	cp.Field.Name = name
	return &cp
}

// Table is an ordered set of equally long columns.
type Table struct {
	Rows    int
	Columns []*Column
}

// New returns an empty table of rows records.
func New(rows int) *Table { return &Table{Rows: rows} }

// Append adds c as the last column. It fails when c does not hold exactly
// Rows records or its name is already present.
func (t *Table) Append(c *Column) error {
	if want := t.Rows * c.Field.Count(); c.Len() != want {
		return fmt.Errorf("column %q: %d values, want %d", c.Field.Name, c.Len(), want)
	}
	if t.Column(c.Field.Name) != nil {
		return fmt.Errorf("column %q: duplicate", c.Field.Name)
	}
	t.Columns = append(t.Columns, c)
	return nil
}

// Column returns the column with the given name, or nil.
func (t *Table) Column(name string) *Column {
	for _, c := range t.Columns {
		if c.Field.Name == name {
			return c
		}
	}
	return nil
}

// Layout returns the storage layout of the table's columns in order,
// without fixed-width placement.
func (t *Table) Layout() schema.Layout {
	l := schema.Layout{Fields: make([]schema.Field, len(t.Columns))}
	for i, c := range t.Columns {
		l.Fields[i] = schema.Field{Name: c.Field.Name, Type: c.Field.Type, Shape: c.Field.Shape}
	}
	return l
}
