// Package label translates PDS3 format descriptors (.FMT files, or the
// TABLE section of a .LBL) into an input schema for fixed-width ASCII tables.
//
// Only COLUMN objects are interpreted. Each column's DATA_TYPE selects the
// storage type, START_BYTE/BYTES place it in the record and ITEMS,
// ITEM_BYTES and ITEM_OFFSET describe array columns. A top-level
// ^STRUCTURE pointer includes another descriptor relative to the current one.
package label

import (
	"bufio"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"unicode"

	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"

	"pdsreader/internal/schema"
)

const maxIncludeDepth = 8

// Translator reads PDS descriptors from disk.
type Translator struct{}

// Translate parses the descriptor at path into a validated schema.
func (Translator) Translate(path string) (schema.Schema, error) {
	cols, err := readColumns(path, 0)
	if err != nil {
		return schema.Schema{}, err
	}
	return build(path, cols)
}

// Parse parses a descriptor from r. Structure pointers are resolved relative
// to dir.
func Parse(r io.Reader, dir string) (schema.Schema, error) {
	cols, err := parseColumns(r, dir, 0)
	if err != nil {
		return schema.Schema{}, err
	}
	return build("descriptor", cols)
}

func build(name string, cols []attrs) (schema.Schema, error) {
	if len(cols) == 0 {
		return schema.Schema{}, fmt.Errorf("%s: no COLUMN objects", name)
	}
	var s schema.Schema
	for i, c := range cols {
		f, err := c.field()
		if err != nil {
			return schema.Schema{}, fmt.Errorf("%s: column %d: %w", name, i+1, err)
		}
		s.Fields = append(s.Fields, f)
	}
	if err := s.Validate(); err != nil {
		return schema.Schema{}, fmt.Errorf("%s: %w", name, err)
	}
	return s, nil
}

func readColumns(path string, depth int) ([]attrs, error) {
	if depth > maxIncludeDepth {
		return nil, fmt.Errorf("%s: structure includes nested too deeply", path)
	}
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open descriptor %s: %w", path, err)
	}
	defer f.Close()

	cols, err := parseColumns(f, filepath.Dir(path), depth)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return cols, nil
}

// attrs holds the keyword values of one COLUMN object.
type attrs map[string]string

// parseColumns scans keyword = value statements and collects COLUMN objects.
func parseColumns(r io.Reader, dir string, depth int) ([]attrs, error) {
	// Fold accented letters so names and free text stay ASCII.
	fold := transform.Chain(norm.NFD, runes.Remove(runes.In(unicode.Mn)), norm.NFC)
	sc := bufio.NewScanner(transform.NewReader(r, fold))
	sc.Buffer(make([]byte, 0, 64*1024), 1024*1024)

	var (
		cols    []attrs
		cur     attrs
		nesting int // objects open inside the current COLUMN
		lineNo  int
	)
	for {
		key, val, ok, err := nextStatement(sc, &lineNo)
		if err != nil {
			return nil, err
		}
		if !ok || key == "END" {
			break
		}
		switch key {
		case "OBJECT":
			obj := strings.ToUpper(val)
			switch {
			case cur != nil:
				nesting++
				if obj == "BIT_COLUMN" {
					return nil, fmt.Errorf("line %d: BIT_COLUMN objects are not supported", lineNo)
				}
			case obj == "COLUMN":
				cur = attrs{}
			case obj == "CONTAINER":
				return nil, fmt.Errorf("line %d: CONTAINER objects are not supported", lineNo)
			}
		case "END_OBJECT":
			if cur == nil {
				continue
			}
			if nesting > 0 {
				nesting--
				continue
			}
			cols = append(cols, cur)
			cur = nil
		case "^STRUCTURE":
			if cur != nil {
				return nil, fmt.Errorf("line %d: ^STRUCTURE inside COLUMN", lineNo)
			}
			inc, err := readColumns(filepath.Join(dir, val), depth+1)
			if err != nil {
				return nil, err
			}
			cols = append(cols, inc...)
		default:
			if cur != nil && nesting == 0 {
				cur[key] = val
			}
		}
	}
	if err := sc.Err(); err != nil {
		return nil, fmt.Errorf("read descriptor: %w", err)
	}
	if cur != nil {
		return nil, fmt.Errorf("unterminated COLUMN object")
	}
	return cols, nil
}

// nextStatement returns the next KEY = VALUE pair. Quoted values may span
// lines; their inner whitespace is collapsed.
func nextStatement(sc *bufio.Scanner, lineNo *int) (key, val string, ok bool, err error) {
	for sc.Scan() {
		*lineNo++
		line := stripComment(sc.Text())
		switch bare := strings.ToUpper(strings.TrimSpace(line)); bare {
		case "END", "END_OBJECT":
			return bare, "", true, nil
		}
		k, v, found := strings.Cut(line, "=")
		if !found {
			continue
		}
		key = strings.ToUpper(strings.TrimSpace(k))
		v = strings.TrimSpace(v)
		if strings.HasPrefix(v, `"`) && strings.Count(v, `"`) == 1 {
			start := *lineNo
			var b strings.Builder
			b.WriteString(v)
			for strings.Count(b.String(), `"`) < 2 {
				if !sc.Scan() {
					return "", "", false, fmt.Errorf("line %d: unterminated quoted value", start)
				}
				*lineNo++
				b.WriteByte(' ')
				b.WriteString(strings.TrimSpace(sc.Text()))
			}
			v = b.String()
		}
		return key, cleanValue(v), true, nil
	}
	return "", "", false, nil
}

func stripComment(line string) string {
	if i := strings.Index(line, "/*"); i >= 0 {
		return line[:i]
	}
	return line
}

// cleanValue removes quotes and units ("10 <BYTES>") and collapses spaces.
func cleanValue(v string) string {
	v = strings.TrimSpace(v)
	if strings.HasPrefix(v, `"`) {
		v = strings.Trim(v, `"`)
	} else if i := strings.IndexByte(v, '<'); i > 0 {
		v = v[:i]
	}
	v = strings.Trim(v, "'")
	return strings.Join(strings.Fields(v), " ")
}

func (a attrs) int(key string, def int) (int, error) {
	v, ok := a[key]
	if !ok || v == "" {
		return def, nil
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return 0, fmt.Errorf("%s: invalid integer %q", key, v)
	}
	return n, nil
}

// field converts a COLUMN object into a schema field.
func (a attrs) field() (schema.Field, error) {
	name := a["NAME"]
	if name == "" {
		return schema.Field{}, fmt.Errorf("missing NAME")
	}
	start, err := a.int("START_BYTE", 0)
	if err != nil {
		return schema.Field{}, err
	}
	width, err := a.int("BYTES", 0)
	if err != nil {
		return schema.Field{}, err
	}
	if start < 1 || width < 1 {
		return schema.Field{}, fmt.Errorf("%s: START_BYTE and BYTES must be positive", name)
	}
	items, err := a.int("ITEMS", 1)
	if err != nil {
		return schema.Field{}, err
	}
	if items < 1 {
		return schema.Field{}, fmt.Errorf("%s: ITEMS must be positive", name)
	}

	f := schema.Field{Name: name, StartByte: start, Bytes: width, ItemBytes: width, ItemOffset: width}
	if items > 1 {
		f.Shape = []int{items}
		if f.ItemBytes, err = a.int("ITEM_BYTES", width/items); err != nil {
			return schema.Field{}, err
		}
		if f.ItemOffset, err = a.int("ITEM_OFFSET", f.ItemBytes); err != nil {
			return schema.Field{}, err
		}
		if f.ItemBytes < 1 || f.ItemOffset < f.ItemBytes {
			return schema.Field{}, fmt.Errorf("%s: invalid ITEM_BYTES/ITEM_OFFSET", name)
		}
		if (items-1)*f.ItemOffset+f.ItemBytes > width {
			return schema.Field{}, fmt.Errorf("%s: %d items do not fit in %d bytes", name, items, width)
		}
	}

	t, err := storageType(a["DATA_TYPE"], f.ItemBytes)
	if err != nil {
		return schema.Field{}, fmt.Errorf("%s: %w", name, err)
	}
	f.Type = t
	return f, nil
}

// storageType maps an ASCII table DATA_TYPE to a storage type. Integers
// wider than 9 characters may exceed int32 and are stored as int64.
func storageType(dataType string, itemWidth int) (schema.Type, error) {
	switch strings.ToUpper(strings.TrimSpace(dataType)) {
	case "ASCII_INTEGER", "INTEGER":
		if itemWidth > 9 {
			return schema.Int(8), nil
		}
		return schema.Int(4), nil
	case "ASCII_REAL", "REAL", "FLOAT":
		return schema.Float(8), nil
	case "CHARACTER", "CHAR", "ASCII_CHARACTER", "TIME", "DATE", "ASCII_TIME", "ASCII_DATE",
		"ASCII_DATE_TIME", "ASCII_DATE_TIME_YMD", "ASCII_DATE_TIME_DOY", "ASCII_DATE_YMD",
		"ASCII_DATE_DOY", "ASCII_DATE_TIME_UTC", "ASCII_DATE_TIME_YMD_UTC", "ASCII_DATE_TIME_DOY_UTC":
		return schema.Bytes(itemWidth), nil
	case "":
		return schema.Type{}, fmt.Errorf("missing DATA_TYPE")
	}
	return schema.Type{}, fmt.Errorf("unsupported DATA_TYPE %q for an ASCII table", dataType)
}
