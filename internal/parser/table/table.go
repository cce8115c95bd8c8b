// Package table reads fixed-width PDS ASCII tables into columnar records.
//
// Each non-blank line is one record. Field values are sliced out at the
// 1-based START_BYTE positions of the schema, trimmed, and parsed according to
// the field's storage kind. Character fields lose surrounding whitespace and
// double quotes.
package table

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"strconv"
	"strings"

	"pdsreader/internal/datasource"
	"pdsreader/internal/datasource/file"
	"pdsreader/internal/datasource/httpds"
	"pdsreader/internal/records"
	"pdsreader/internal/schema"
)

const maxRecordBytes = 4 * 1024 * 1024

// Fortran double exponents ("1.0D+03") are common in PDS tables.
var fortranExponent = strings.NewReplacer("D", "E", "d", "e")

// Reader reads ASCII tables from local files or http(s) URLs.
type Reader struct {
	// Open returns the source for path. Nil means Source.
	Open func(path string) datasource.Source
}

// Source opens URLs with the shared HTTP client and anything else as a
// local file.
func Source(path string) datasource.Source {
	if httpds.IsURL(path) {
		return httpds.NewSource(nil, path)
	}
	return file.NewLocal(path)
}

// Read opens path and parses every record in it.
func (r Reader) Read(ctx context.Context, path string, s schema.Schema) (*records.Table, error) {
	open := r.Open
	if open == nil {
		open = Source
	}
	rc, err := open(path).Open(ctx)
	if err != nil {
		return nil, err
	}
	defer rc.Close()

	t, err := Parse(rc, s)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return t, nil
}

// Parse reads records laid out by s from in.
func Parse(in io.Reader, s schema.Schema) (*records.Table, error) {
	cols := make([]*records.Column, len(s.Fields))
	for i, f := range s.Fields {
		if f.StartByte < 1 {
			return nil, fmt.Errorf("field %q has no start byte", f.Name)
		}
		cols[i] = records.NewColumn(f, 0)
	}

	sc := bufio.NewScanner(in)
	sc.Buffer(make([]byte, 0, 64*1024), maxRecordBytes)
	rows, lineNo := 0, 0
	for sc.Scan() {
		lineNo++
		line := strings.TrimRight(sc.Text(), "\r")
		if strings.TrimSpace(line) == "" {
			continue
		}
		for _, c := range cols {
			if err := appendField(c, line); err != nil {
				return nil, fmt.Errorf("line %d: %w", lineNo, err)
			}
		}
		rows++
	}
	if err := sc.Err(); err != nil {
		return nil, fmt.Errorf("read records: %w", err)
	}

	t := records.New(rows)
	for _, c := range cols {
		if err := t.Append(c); err != nil {
			return nil, err
		}
	}
	return t, nil
}

// appendField parses every item of c's field from line and appends it.
func appendField(c *records.Column, line string) error {
	f := c.Field
	width, step := f.ItemBytes, f.ItemOffset
	if width == 0 {
		width = f.Bytes
	}
	if step == 0 {
		step = width
	}
	n := f.Count()
	for i := 0; i < n; i++ {
		start := f.StartByte - 1 + i*step
		end := start + width
		if end > len(line) {
			return fmt.Errorf("field %q: record is %d bytes, need %d", f.Name, len(line), end)
		}
		raw := strings.TrimSpace(line[start:end])
		if err := appendValue(c, raw); err != nil {
			return fmt.Errorf("field %q item %d: %w", f.Name, i, err)
		}
	}
	return nil
}

func appendValue(c *records.Column, raw string) error {
	t := c.Field.Type
	switch t.Kind {
	case schema.KindInt:
		v, err := strconv.ParseInt(strings.TrimPrefix(raw, "+"), 10, t.Size*8)
		if err != nil {
			return fmt.Errorf("invalid integer %q", raw)
		}
		c.Ints = append(c.Ints, v)
	case schema.KindUint:
		v, err := strconv.ParseUint(strings.TrimPrefix(raw, "+"), 10, t.Size*8)
		if err != nil {
			return fmt.Errorf("invalid unsigned integer %q", raw)
		}
		c.Uints = append(c.Uints, v)
	case schema.KindFloat:
		v, err := strconv.ParseFloat(fortranExponent.Replace(raw), t.Size*8)
		if err != nil {
			return fmt.Errorf("invalid real %q", raw)
		}
		c.Floats = append(c.Floats, v)
	case schema.KindBytes:
		v := strings.TrimSpace(strings.Trim(raw, `"`))
		if len(v) > t.Size {
			v = v[:t.Size]
		}
		c.Strings = append(c.Strings, v)
	default:
		return fmt.Errorf("unsupported type %s", t)
	}
	return nil
}
