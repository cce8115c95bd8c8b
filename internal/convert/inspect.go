package convert

import (
	"fmt"
	"io"
	"path/filepath"
	"strconv"
	"strings"
	"text/tabwriter"

	"pdsreader/internal/binfile"
	"pdsreader/internal/records"
	"pdsreader/internal/schema"
)

// Inspect decodes a record file with the dtype sidecar of its directory and
// prints the layout followed by up to limit records as a table. limit <= 0
// prints every record.
func Inspect(w io.Writer, path string, limit int) error {
	l, err := binfile.ReadLayout(binfile.LayoutPath(filepath.Dir(path)))
	if err != nil {
		return err
	}
	t, err := binfile.Read(path, l)
	if err != nil {
		return err
	}

	fmt.Fprintf(w, "%s\nrecords=%d record_size=%d\n", l, t.Rows, l.RecordSize())

	tw := tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)
	names := make([]string, len(t.Columns))
	for i, c := range t.Columns {
		names[i] = c.Field.Name
	}
	fmt.Fprintln(tw, strings.Join(names, "\t"))

	n := t.Rows
	if limit > 0 && limit < n {
		n = limit
	}
	cells := make([]string, len(t.Columns))
	for r := 0; r < n; r++ {
		for i, c := range t.Columns {
			cells[i] = formatCell(c, r)
		}
		fmt.Fprintln(tw, strings.Join(cells, "\t"))
	}
	return tw.Flush()
}

// formatCell renders row r of c; array fields print as [a b c].
func formatCell(c *records.Column, r int) string {
	count := c.Field.Count()
	vals := make([]string, count)
	for k := 0; k < count; k++ {
		i := r*count + k
		switch c.Field.Type.Kind {
		case schema.KindInt:
			vals[k] = strconv.FormatInt(c.Ints[i], 10)
		case schema.KindUint:
			vals[k] = strconv.FormatUint(c.Uints[i], 10)
		case schema.KindFloat:
			vals[k] = strconv.FormatFloat(c.Floats[i], 'g', -1, c.Field.Type.Size*8)
		case schema.KindBytes:
			vals[k] = strconv.Quote(c.Strings[i])
		}
	}
	if count == 1 {
		return vals[0]
	}
	return "[" + strings.Join(vals, " ") + "]"
}
