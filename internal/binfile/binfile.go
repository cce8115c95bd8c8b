// Package binfile reads and writes packed record files and their sidecar
// layout description.
//
// A record file starts with the record count as a host-order int32 and is
// followed by the records, each packed field after field in layout order.
// Every element is encoded with its field's declared type and byte order;
// array fields are stored row-major. Strings are zero-padded to their width.
package binfile

import (
	"bufio"
	"encoding/binary"
	"errors"
	"fmt"
	"io"
	"math"
	"os"
	"path/filepath"
	"strings"

	"pdsreader/internal/records"
	"pdsreader/internal/schema"
)

// LayoutFile is the name of the sidecar written next to the record files.
const LayoutFile = "dtype"

const headerSize = 4

// ErrTruncated is returned when a record file is shorter than its header says.
var ErrTruncated = errors.New("record file truncated")

// LayoutPath returns the sidecar path inside dir.
func LayoutPath(dir string) string { return filepath.Join(dir, LayoutFile) }

// WriteLayout writes l to the sidecar in dir.
func WriteLayout(dir string, l schema.Layout) error {
	return writeAtomic(LayoutPath(dir), func(w io.Writer) error {
		_, err := io.WriteString(w, l.String())
		return err
	})
}

// ReadLayout parses a sidecar file.
func ReadLayout(path string) (schema.Layout, error) {
	b, err := os.ReadFile(path)
	if err != nil {
		return schema.Layout{}, fmt.Errorf("read layout: %w", err)
	}
	l, err := schema.ParseLayout(string(b))
	if err != nil {
		return schema.Layout{}, fmt.Errorf("%s: %w", path, err)
	}
	return l, nil
}

// Write packs t with layout l into path. The file is written under a
// temporary name in the same directory and renamed into place, so a failed
// write never leaves a truncated file behind.
func Write(path string, l schema.Layout, t *records.Table) error {
	return writeAtomic(path, func(w io.Writer) error {
		return Encode(w, l, t)
	})
}

// Encode writes the header and records of t to w.
func Encode(w io.Writer, l schema.Layout, t *records.Table) error {
	if err := matches(l, t); err != nil {
		return err
	}
	var hdr [headerSize]byte
	order(schema.NativeOrder()).PutUint32(hdr[:], uint32(int32(t.Rows)))
	if _, err := w.Write(hdr[:]); err != nil {
		return err
	}

	buf := make([]byte, l.RecordSize())
	for r := 0; r < t.Rows; r++ {
		clear(buf)
		off := 0
		for i, f := range l.Fields {
			c := t.Columns[i]
			n := f.Count()
			for k := 0; k < n; k++ {
				putElem(buf[off:off+f.Type.Size], f.Type, c, r*n+k)
				off += f.Type.Size
			}
		}
		if _, err := w.Write(buf); err != nil {
			return err
		}
	}
	return nil
}

// Read decodes the record file at path with layout l.
func Read(path string, l schema.Layout) (*records.Table, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open %s: %w", path, err)
	}
	defer f.Close()
	t, err := Decode(bufio.NewReader(f), l)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return t, nil
}

// Decode reads a header and its records from r.
func Decode(r io.Reader, l schema.Layout) (*records.Table, error) {
	if err := l.Validate(); err != nil {
		return nil, err
	}
	var hdr [headerSize]byte
	if _, err := io.ReadFull(r, hdr[:]); err != nil {
		return nil, fmt.Errorf("%w: header: %v", ErrTruncated, err)
	}
	rows := int(int32(order(schema.NativeOrder()).Uint32(hdr[:])))
	if rows < 0 {
		return nil, fmt.Errorf("binfile: negative record count %d", rows)
	}

	cols := make([]*records.Column, len(l.Fields))
	for i, f := range l.Fields {
		cols[i] = records.NewColumn(f, rows)
	}
	buf := make([]byte, l.RecordSize())
	for row := 0; row < rows; row++ {
		if _, err := io.ReadFull(r, buf); err != nil {
			return nil, fmt.Errorf("%w: record %d of %d: %v", ErrTruncated, row, rows, err)
		}
		off := 0
		for i, f := range l.Fields {
			n := f.Count()
			for k := 0; k < n; k++ {
				getElem(buf[off:off+f.Type.Size], f.Type, cols[i], row*n+k)
				off += f.Type.Size
			}
		}
	}

	t := records.New(rows)
	for _, c := range cols {
		if err := t.Append(c); err != nil {
			return nil, err
		}
	}
	return t, nil
}

// matches checks that t's columns are exactly the layout's fields.
func matches(l schema.Layout, t *records.Table) error {
	if err := l.Validate(); err != nil {
		return err
	}
	if t.Rows > math.MaxInt32 {
		return fmt.Errorf("binfile: %d records do not fit the header", t.Rows)
	}
	if len(t.Columns) != len(l.Fields) {
		return fmt.Errorf("binfile: table has %d columns, layout %d", len(t.Columns), len(l.Fields))
	}
	for i, f := range l.Fields {
		c := t.Columns[i]
		if !c.Field.SameStorage(schema.Field{Name: f.Name, Type: f.Type, Shape: f.Shape}) {
			return fmt.Errorf("binfile: column %d %q %s%v does not match layout field %q %s%v",
				i, c.Field.Name, c.Field.Type, c.Field.Shape, f.Name, f.Type, f.Shape)
		}
		if c.Len() != t.Rows*f.Count() {
			return fmt.Errorf("binfile: column %q holds %d values, want %d", f.Name, c.Len(), t.Rows*f.Count())
		}
	}
	return nil
}

func writeAtomic(path string, write func(io.Writer) error) (err error) {
	tmp, err := os.CreateTemp(filepath.Dir(path), "."+filepath.Base(path)+".*.tmp")
	if err != nil {
		return fmt.Errorf("create %s: %w", path, err)
	}
	defer func() {
		if err != nil {
			_ = tmp.Close()
			_ = os.Remove(tmp.Name())
		}
	}()

	bw := bufio.NewWriterSize(tmp, 1<<16)
	if err = write(bw); err != nil {
		return fmt.Errorf("write %s: %w", path, err)
	}
	if err = bw.Flush(); err != nil {
		return fmt.Errorf("write %s: %w", path, err)
	}
	if err = tmp.Chmod(0o644); err != nil {
		return fmt.Errorf("chmod %s: %w", path, err)
	}
	if err = tmp.Close(); err != nil {
		return fmt.Errorf("close %s: %w", path, err)
	}
	if err = os.Rename(tmp.Name(), path); err != nil {
		return fmt.Errorf("rename %s: %w", path, err)
	}
	return nil
}

func order(o schema.ByteOrder) binary.ByteOrder {
	if o == schema.OrderBig {
		return binary.BigEndian
	}
	return binary.LittleEndian
}

func putElem(dst []byte, t schema.Type, c *records.Column, i int) {
	bo := order(t.Order)
	switch t.Kind {
	case schema.KindInt:
		putUint(dst, bo, uint64(c.Ints[i]))
	case schema.KindUint:
		putUint(dst, bo, c.Uints[i])
	case schema.KindFloat:
		if t.Size == 4 {
			bo.PutUint32(dst, math.Float32bits(float32(c.Floats[i])))
		} else {
			bo.PutUint64(dst, math.Float64bits(c.Floats[i]))
		}
	case schema.KindBytes:
		copy(dst, c.Strings[i])
	}
}

func putUint(dst []byte, bo binary.ByteOrder, v uint64) {
	switch len(dst) {
	case 1:
		dst[0] = byte(v)
	case 2:
		bo.PutUint16(dst, uint16(v))
	case 4:
		bo.PutUint32(dst, uint32(v))
	case 8:
		bo.PutUint64(dst, v)
	}
}

func getElem(src []byte, t schema.Type, c *records.Column, i int) {
	bo := order(t.Order)
	switch t.Kind {
	case schema.KindInt:
		switch len(src) {
		case 1:
			c.Ints[i] = int64(int8(src[0]))
		case 2:
			c.Ints[i] = int64(int16(bo.Uint16(src)))
		case 4:
			c.Ints[i] = int64(int32(bo.Uint32(src)))
		case 8:
			c.Ints[i] = int64(bo.Uint64(src))
		}
	case schema.KindUint:
		switch len(src) {
		case 1:
			c.Uints[i] = uint64(src[0])
		case 2:
			c.Uints[i] = uint64(bo.Uint16(src))
		case 4:
			c.Uints[i] = uint64(bo.Uint32(src))
		case 8:
			c.Uints[i] = bo.Uint64(src)
		}
	case schema.KindFloat:
		if t.Size == 4 {
			c.Floats[i] = float64(math.Float32frombits(bo.Uint32(src)))
		} else {
			c.Floats[i] = math.Float64frombits(bo.Uint64(src))
		}
	case schema.KindBytes:
		c.Strings[i] = strings.TrimRight(string(src), "\x00")
	}
}
