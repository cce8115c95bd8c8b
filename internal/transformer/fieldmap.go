// Package transformer remaps raw descriptor columns into output columns.
//
// A FieldMap lists, in order, which source fields reach the output and how:
// copied under a (possibly new) name, or decoded from a date/time string
// into the packed Date (YYYYMMDD, >i4) and ut (hours, >f4) columns. Each
// directive is resolved once when the map is built and compiled into a
// per-column plan, so no per-row dispatch on the user's input happens.
package transformer

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"

	"pdsreader/internal/schema"
)

// Output column names produced by date/time directives.
const (
	DateField = "Date"
	UTField   = "ut"
)

// Op selects what a Directive does with its source column.
type Op uint8

const (
	OpRename Op = iota
	OpDateTime
	OpDate
	OpTime
)

func (o Op) String() string {
	switch o {
	case OpRename:
		return "rename"
	case OpDateTime:
		return "datetime"
	case OpDate:
		return "date"
	case OpTime:
		return "time"
	}
	return fmt.Sprintf("op(%d)", uint8(o))
}

// Directive is the action applied to one source field.
type Directive struct {
	Op   Op
	Name string // output name, OpRename only
}

// Rename copies the source column unchanged under name.
func Rename(name string) Directive { return Directive{Op: OpRename, Name: name} }

// DecodeDateTime splits a YYYY-DDDThh:mm:ss[.fff] string into Date and ut.
func DecodeDateTime() Directive { return Directive{Op: OpDateTime} }

// DecodeDate packs a YYYY-MM-DD string into Date.
func DecodeDate() Directive { return Directive{Op: OpDate} }

// DecodeTime converts an hh:mm:ss[.fff] string into ut.
func DecodeTime() Directive { return Directive{Op: OpTime} }

// Outputs returns the output column names the directive produces.
func (d Directive) Outputs() []string {
	switch d.Op {
	case OpRename:
		return []string{d.Name}
	case OpDateTime:
		return []string{DateField, UTField}
	case OpDate:
		return []string{DateField}
	case OpTime:
		return []string{UTField}
	}
	return nil
}

// Entry binds a source field to its directive.
type Entry struct {
	Source    string
	Directive Directive
}

// FieldMap is an ordered list of entries. Output order follows entry order.
// The zero value is an empty map; use Identity to copy a whole schema.
type FieldMap struct {
	entries []Entry
}

// NewFieldMap builds a FieldMap from entries, rejecting repeated sources and
// repeated output names.
func NewFieldMap(entries ...Entry) (FieldMap, error) {
	var fm FieldMap
	for _, e := range entries {
		if err := fm.Add(e.Source, e.Directive); err != nil {
			return FieldMap{}, err
		}
	}
	return fm, nil
}

// Identity returns a map that copies every schema field under its own name.
func Identity(s schema.Schema) FieldMap {
	fm := FieldMap{entries: make([]Entry, len(s.Fields))}
	for i, f := range s.Fields {
		fm.entries[i] = Entry{Source: f.Name, Directive: Rename(f.Name)}
	}
	return fm
}

// Add appends an entry.
func (fm *FieldMap) Add(source string, d Directive) error {
	if source == "" {
		return errors.New("field map: empty source field name")
	}
	if d.Op == OpRename && d.Name == "" {
		return fmt.Errorf("field map: %q: empty output name", source)
	}
	for _, e := range fm.entries {
		if e.Source == source {
			return fmt.Errorf("field map: source %q listed twice", source)
		}
	}
	have := fm.Outputs()
	for _, out := range d.Outputs() {
		for _, h := range have {
			if h == out {
				return fmt.Errorf("field map: %q: output %q already produced", source, out)
			}
		}
	}
	fm.entries = append(fm.entries, Entry{Source: source, Directive: d})
	return nil
}

// Entries returns the entries in order. The slice must not be modified.
func (fm FieldMap) Entries() []Entry { return fm.entries }

// Len returns the number of entries.
func (fm FieldMap) Len() int { return len(fm.entries) }

// Sources returns the source field names in order.
func (fm FieldMap) Sources() []string {
	out := make([]string, len(fm.entries))
	for i, e := range fm.entries {
		out[i] = e.Source
	}
	return out
}

// Outputs returns every output column name in order.
func (fm FieldMap) Outputs() []string {
	var out []string
	for _, e := range fm.entries {
		out = append(out, e.Directive.Outputs()...)
	}
	return out
}

// UnmarshalJSON decodes an object whose values are either an output name or
// a tag list: ["Date","ut"], ["Date"], ["ut"] or ["Time"]. Key order is kept.
func (fm *FieldMap) UnmarshalJSON(b []byte) error {
	dec := json.NewDecoder(bytes.NewReader(b))
	tok, err := dec.Token()
	if err != nil {
		return fmt.Errorf("field map: %w", err)
	}
	if tok == nil {
		*fm = FieldMap{}
		return nil
	}
	if d, ok := tok.(json.Delim); !ok || d != '{' {
		return fmt.Errorf("field map: want object, got %v", tok)
	}

	var out FieldMap
	for dec.More() {
		tok, err := dec.Token()
		if err != nil {
			return fmt.Errorf("field map: %w", err)
		}
		key := tok.(string)
		var raw json.RawMessage
		if err := dec.Decode(&raw); err != nil {
			return fmt.Errorf("field map: %q: %w", key, err)
		}
		d, err := parseDirective(raw)
		if err != nil {
			return fmt.Errorf("field map: %q: %w", key, err)
		}
		if err := out.Add(key, d); err != nil {
			return err
		}
	}
	if _, err := dec.Token(); err != nil {
		return fmt.Errorf("field map: %w", err)
	}
	*fm = out
	return nil
}

// MarshalJSON writes the map back in the form UnmarshalJSON reads.
func (fm FieldMap) MarshalJSON() ([]byte, error) {
	var b bytes.Buffer
	b.WriteByte('{')
	for i, e := range fm.entries {
		if i > 0 {
			b.WriteByte(',')
		}
		k, _ := json.Marshal(e.Source)
		b.Write(k)
		b.WriteByte(':')
		var v any
		switch e.Directive.Op {
		case OpRename:
			v = e.Directive.Name
		case OpDateTime:
			v = []string{DateField, UTField}
		case OpDate:
			v = []string{DateField}
		case OpTime:
			v = []string{UTField}
		}
		vb, err := json.Marshal(v)
		if err != nil {
			return nil, err
		}
		b.Write(vb)
	}
	b.WriteByte('}')
	return b.Bytes(), nil
}

func parseDirective(raw json.RawMessage) (Directive, error) {
	var name string
	if err := json.Unmarshal(raw, &name); err == nil {
		if name == "" {
			return Directive{}, errors.New("empty output name")
		}
		return Rename(name), nil
	}
	var tags []string
	if err := json.Unmarshal(raw, &tags); err != nil {
		return Directive{}, fmt.Errorf("want a name or a tag list, got %s", raw)
	}
	switch {
	case len(tags) == 2 && tags[0] == DateField && tags[1] == UTField:
		return DecodeDateTime(), nil
	case len(tags) == 1 && tags[0] == DateField:
		return DecodeDate(), nil
	case len(tags) == 1 && (tags[0] == UTField || tags[0] == "Time"):
		return DecodeTime(), nil
	}
	return Directive{}, fmt.Errorf("unknown tag list %q", tags)
}
