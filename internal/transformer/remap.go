package transformer

import (
	"errors"
	"fmt"

	"pdsreader/internal/records"
	"pdsreader/internal/schema"
)

var (
	// ErrUnknownField is returned when a field map names a field the table
	// does not have.
	ErrUnknownField = errors.New("field not in table")

	// ErrSchemaMismatch is returned when a file's output layout differs from
	// the layout frozen for the batch.
	ErrSchemaMismatch = errors.New("schema mismatch")
)

// step produces the output columns of one entry from its source column.
type step func(src *records.Column, rows int) ([]*records.Column, error)

// plan is a compiled field map: one step per entry, bound to its source.
type plan struct {
	sources []string
	steps   []step
}

func compile(fm FieldMap) plan {
	p := plan{
		sources: make([]string, len(fm.entries)),
		steps:   make([]step, len(fm.entries)),
	}
	for i, e := range fm.entries {
		p.sources[i] = e.Source
		switch e.Directive.Op {
		case OpRename:
			name := e.Directive.Name
			p.steps[i] = func(src *records.Column, _ int) ([]*records.Column, error) {
				return []*records.Column{src.Renamed(name)}, nil
			}
		case OpDateTime:
			p.steps[i] = decodeDateTime
		case OpDate:
			p.steps[i] = decodeDate
		case OpTime:
			p.steps[i] = decodeTime
		default:
			op := e.Directive.Op
			p.steps[i] = func(*records.Column, int) ([]*records.Column, error) {
				return nil, fmt.Errorf("unsupported directive %s", op)
			}
		}
	}
	return p
}

// Remap builds the output table for t: exactly the columns fm declares, in
// its order. Renamed columns share their values with t.
func Remap(t *records.Table, fm FieldMap) (*records.Table, error) {
	p := compile(fm)
	out := records.New(t.Rows)
	for i, name := range p.sources {
		src := t.Column(name)
		if src == nil {
			return nil, fmt.Errorf("%w: %q", ErrUnknownField, name)
		}
		cols, err := p.steps[i](src, t.Rows)
		if err != nil {
			return nil, err
		}
		for _, c := range cols {
			if err := out.Append(c); err != nil {
				return nil, err
			}
		}
	}
	return out, nil
}

// DeriveLayout computes the output layout for t under fm without decoding
// any values. Renamed fields keep their source type and shape; Date is >i4
// and ut is >f4.
func DeriveLayout(t *records.Table, fm FieldMap) (schema.Layout, error) {
	var l schema.Layout
	for _, e := range fm.entries {
		src := t.Column(e.Source)
		if src == nil {
			return schema.Layout{}, fmt.Errorf("%w: %q", ErrUnknownField, e.Source)
		}
		switch e.Directive.Op {
		case OpRename:
			l.Fields = append(l.Fields, schema.Field{Name: e.Directive.Name, Type: src.Field.Type, Shape: src.Field.Shape})
		case OpDateTime:
			l.Fields = append(l.Fields, dateField(), utField())
		case OpDate:
			l.Fields = append(l.Fields, dateField())
		case OpTime:
			l.Fields = append(l.Fields, utField())
		}
	}
	if err := l.Validate(); err != nil {
		return schema.Layout{}, err
	}
	return l, nil
}

// CheckLayout reports ErrSchemaMismatch when t does not have the frozen
// layout.
func CheckLayout(frozen schema.Layout, t *records.Table) error {
	got := t.Layout()
	if frozen.Equal(got) {
		return nil
	}
	return fmt.Errorf("%w: have %s, want %s", ErrSchemaMismatch, got, frozen)
}

func dateField() schema.Field { return schema.Field{Name: DateField, Type: schema.DateType} }
func utField() schema.Field   { return schema.Field{Name: UTField, Type: schema.UTType} }

// textValues returns the string values of a scalar text column.
func textValues(src *records.Column) ([]string, error) {
	if src.Field.Type.Kind != schema.KindBytes || src.Field.Count() != 1 {
		return nil, fmt.Errorf("field %q: %w: want scalar text, have %s%v",
			src.Field.Name, ErrMalformedDateTime, src.Field.Type, src.Field.Shape)
	}
	return src.Strings, nil
}

func decodeDateTime(src *records.Column, rows int) ([]*records.Column, error) {
	vals, err := textValues(src)
	if err != nil {
		return nil, err
	}
	date := records.NewColumn(dateField(), rows)
	ut := records.NewColumn(utField(), rows)
	for r, v := range vals {
		d, h, err := ParseDateTime(v)
		if err != nil {
			return nil, &FieldError{Field: src.Field.Name, Row: r, Value: v, Err: err}
		}
		date.Ints[r] = int64(d)
		ut.Floats[r] = float64(h)
	}
	return []*records.Column{date, ut}, nil
}

func decodeDate(src *records.Column, rows int) ([]*records.Column, error) {
	vals, err := textValues(src)
	if err != nil {
		return nil, err
	}
	date := records.NewColumn(dateField(), rows)
	for r, v := range vals {
		d, err := ParseDate(v)
		if err != nil {
			return nil, &FieldError{Field: src.Field.Name, Row: r, Value: v, Err: err}
		}
		date.Ints[r] = int64(d)
	}
	return []*records.Column{date}, nil
}

func decodeTime(src *records.Column, rows int) ([]*records.Column, error) {
	vals, err := textValues(src)
	if err != nil {
		return nil, err
	}
	ut := records.NewColumn(utField(), rows)
	for r, v := range vals {
		h, err := ParseTime(v)
		if err != nil {
			return nil, &FieldError{Field: src.Field.Name, Row: r, Value: v, Err: err}
		}
		ut.Floats[r] = float64(h)
	}
	return []*records.Column{ut}, nil
}
