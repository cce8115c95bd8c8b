// Package schema describes fixed record layouts: the input schema translated
// from a PDS format descriptor, and the frozen output layout of a conversion
// batch that is persisted next to the binary files.
//
// Storage types use numpy dtype notation ("<i4", ">f4", "|S12") so that the
// sidecar layout can be consumed by tools outside this module.
package schema

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/zeebo/xxh3"
	"golang.org/x/sys/cpu"
)

// Kind is the storage class of a field element.
type Kind uint8

const (
	KindInvalid Kind = iota
	KindInt
	KindUint
	KindFloat
	KindBytes
)

func (k Kind) code() byte {
	switch k {
	case KindInt:
		return 'i'
	case KindUint:
		return 'u'
	case KindFloat:
		return 'f'
	case KindBytes:
		return 'S'
	}
	return '?'
}

// ByteOrder is the encoding order of multi-byte elements.
type ByteOrder uint8

const (
	// OrderNone applies to single-byte elements and fixed-width strings.
	OrderNone ByteOrder = iota
	OrderLittle
	OrderBig
)

func (o ByteOrder) code() byte {
	switch o {
	case OrderLittle:
		return '<'
	case OrderBig:
		return '>'
	}
	return '|'
}

// NativeOrder returns the byte order of the host. Numbers parsed from ASCII
// tables have no declared encoding and are stored in host order.
func NativeOrder() ByteOrder {
	if cpu.IsBigEndian {
		return OrderBig
	}
	return OrderLittle
}

// Type is the storage type of one field element.
type Type struct {
	Kind  Kind
	Size  int // bytes per element
	Order ByteOrder
}

// Types produced by date/time decoding. They are always big-endian.
var (
	DateType = Type{Kind: KindInt, Size: 4, Order: OrderBig}
	UTType   = Type{Kind: KindFloat, Size: 4, Order: OrderBig}
)

// Int returns a signed integer type of size bytes in host order.
func Int(size int) Type { return numeric(KindInt, size) }

// Float returns a floating point type of size bytes in host order.
func Float(size int) Type { return numeric(KindFloat, size) }

// Bytes returns a fixed-width string type.
func Bytes(width int) Type { return Type{Kind: KindBytes, Size: width, Order: OrderNone} }

func numeric(k Kind, size int) Type {
	o := NativeOrder()
	if size == 1 {
		o = OrderNone
	}
	return Type{Kind: k, Size: size, Order: o}
}

// String renders t in numpy dtype notation, e.g. "<i4", ">f4", "|S12".
func (t Type) String() string {
	return string(t.Order.code()) + string(t.Kind.code()) + strconv.Itoa(t.Size)
}

// Validate reports whether t is a type the binary codec can encode.
func (t Type) Validate() error {
	switch t.Kind {
	case KindInt, KindUint:
		switch t.Size {
		case 1, 2, 4, 8:
		default:
			return fmt.Errorf("invalid integer size %d", t.Size)
		}
	case KindFloat:
		if t.Size != 4 && t.Size != 8 {
			return fmt.Errorf("invalid float size %d", t.Size)
		}
	case KindBytes:
		if t.Size < 1 {
			return fmt.Errorf("invalid string width %d", t.Size)
		}
		return nil
	default:
		return fmt.Errorf("invalid kind")
	}
	if t.Size > 1 && t.Order == OrderNone {
		return fmt.Errorf("multi-byte type %s needs a byte order", t)
	}
	return nil
}

// ParseType parses numpy dtype notation. A missing order prefix or "="
// means host order.
func ParseType(s string) (Type, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return Type{}, fmt.Errorf("empty type")
	}
	var t Type
	switch s[0] {
	case '<':
		t.Order, s = OrderLittle, s[1:]
	case '>':
		t.Order, s = OrderBig, s[1:]
	case '|':
		t.Order, s = OrderNone, s[1:]
	case '=':
		t.Order, s = NativeOrder(), s[1:]
	default:
		t.Order = NativeOrder()
	}
	if len(s) < 2 {
		return Type{}, fmt.Errorf("invalid type %q", s)
	}
	switch s[0] {
	case 'i':
		t.Kind = KindInt
	case 'u':
		t.Kind = KindUint
	case 'f':
		t.Kind = KindFloat
	case 'S':
		t.Kind = KindBytes
	default:
		return Type{}, fmt.Errorf("unsupported type code %q", s[0])
	}
	n, err := strconv.Atoi(s[1:])
	if err != nil {
		return Type{}, fmt.Errorf("invalid type size %q", s[1:])
	}
	t.Size = n
	if t.Kind == KindBytes || t.Size == 1 {
		t.Order = OrderNone
	}
	if err := t.Validate(); err != nil {
		return Type{}, err
	}
	return t, nil
}

// Field is one named, typed, optionally array-shaped field.
//
// The placement fields describe where the value sits in a fixed-width ASCII
// record and are only set on input schemas translated from a descriptor.
type Field struct {
	Name  string
	Type  Type
	Shape []int // per-record dimensions; nil for scalars

	StartByte  int // 1-based column of the first item
	Bytes      int // total width of the field in the record
	ItemBytes  int // width of a single item of an array field
	ItemOffset int // distance between the starts of consecutive items
}

// Count returns the number of elements the field holds per record.
func (f Field) Count() int {
	n := 1
	for _, d := range f.Shape {
		n *= d
	}
	return n
}

// Width returns the packed size of the field in bytes.
func (f Field) Width() int { return f.Count() * f.Type.Size }

// SameStorage reports whether f and o have the same name, type and shape.
func (f Field) SameStorage(o Field) bool {
	if f.Name != o.Name || f.Type != o.Type || len(f.Shape) != len(o.Shape) {
		return false
	}
	for i := range f.Shape {
		if f.Shape[i] != o.Shape[i] {
			return false
		}
	}
	return true
}

// Schema is the ordered field list of an input record.
type Schema struct {
	Fields []Field
}

// Names returns the field names in order.
func (s Schema) Names() []string {
	out := make([]string, len(s.Fields))
	for i, f := range s.Fields {
		out[i] = f.Name
	}
	return out
}

// Lookup returns the field with the given name.
func (s Schema) Lookup(name string) (Field, bool) {
	for _, f := range s.Fields {
		if f.Name == name {
			return f, true
		}
	}
	return Field{}, false
}

// Validate checks that names are unique and non-empty and that every type
// and shape is encodable.
func (s Schema) Validate() error {
	return validateFields(s.Fields)
}

func validateFields(fields []Field) error {
	seen := make(map[string]struct{}, len(fields))
	for i, f := range fields {
		if f.Name == "" {
			return fmt.Errorf("field %d: empty name", i)
		}
		if strings.ContainsAny(f.Name, "'\"\n") {
			return fmt.Errorf("field %q: name contains a quote or newline", f.Name)
		}
		if _, dup := seen[f.Name]; dup {
			return fmt.Errorf("field %q: duplicate name", f.Name)
		}
		seen[f.Name] = struct{}{}
		if err := f.Type.Validate(); err != nil {
			return fmt.Errorf("field %q: %w", f.Name, err)
		}
		for _, d := range f.Shape {
			if d < 1 {
				return fmt.Errorf("field %q: invalid dimension %d", f.Name, d)
			}
		}
	}
	return nil
}

// Layout is the frozen output record layout of a conversion batch.
type Layout struct {
	Fields []Field
}

// Validate checks the layout the same way as Schema.Validate.
func (l Layout) Validate() error {
	return validateFields(l.Fields)
}

// RecordSize returns the packed size of one record in bytes.
func (l Layout) RecordSize() int {
	n := 0
	for _, f := range l.Fields {
		n += f.Width()
	}
	return n
}

// Equal reports whether both layouts describe the same records.
func (l Layout) Equal(o Layout) bool {
	if len(l.Fields) != len(o.Fields) {
		return false
	}
	for i := range l.Fields {
		if !l.Fields[i].SameStorage(o.Fields[i]) {
			return false
		}
	}
	return true
}

// String renders the layout as a numpy-compatible dtype assignment:
//
//	dtype = [('MET', '<f8'), ('Date', '>i4'), ('COUNTS', '<i4', (64,))]
func (l Layout) String() string {
	var b strings.Builder
	b.WriteString("dtype = [")
	for i, f := range l.Fields {
		if i > 0 {
			b.WriteString(", ")
		}
		b.WriteString("('")
		b.WriteString(f.Name)
		b.WriteString("', '")
		b.WriteString(f.Type.String())
		b.WriteByte('\'')
		if len(f.Shape) > 0 {
			b.WriteString(", (")
			for j, d := range f.Shape {
				if j > 0 {
					b.WriteString(", ")
				}
				b.WriteString(strconv.Itoa(d))
			}
			if len(f.Shape) == 1 {
				b.WriteByte(',')
			}
			b.WriteByte(')')
		}
		b.WriteByte(')')
	}
	b.WriteByte(']')
	return b.String()
}

// Fingerprint returns a stable hash of the layout text.
func (l Layout) Fingerprint() uint64 {
	return xxh3.HashString(l.String())
}
