package convert

import (
	"bytes"
	"context"
	"errors"
	"os"
	"path/filepath"
	"reflect"
	"strings"
	"testing"

	"pdsreader/internal/binfile"
	"pdsreader/internal/datasource/file"
	"pdsreader/internal/datename"
	"pdsreader/internal/parser/table"
	"pdsreader/internal/records"
	"pdsreader/internal/schema"
	"pdsreader/internal/storage"
	"pdsreader/internal/transformer"
)

const fipsFMT = `OBJECT = COLUMN
  NAME = MET
  DATA_TYPE = ASCII_INTEGER
  START_BYTE = 1
  BYTES = 10
END_OBJECT = COLUMN
OBJECT = COLUMN
  NAME = UTC_TIME
  DATA_TYPE = TIME
  START_BYTE = 12
  BYTES = 21
END_OBJECT = COLUMN
OBJECT = COLUMN
  NAME = PROTON_RATE
  DATA_TYPE = ASCII_REAL
  START_BYTE = 34
  BYTES = 10
END_OBJECT = COLUMN
OBJECT = COLUMN
  NAME = COUNTS
  DATA_TYPE = ASCII_INTEGER
  START_BYTE = 45
  BYTES = 11
  ITEMS = 3
  ITEM_BYTES = 3
  ITEM_OFFSET = 4
END_OBJECT = COLUMN
END
`

// Columns: MET 1-10, UTC_TIME 12-32, PROTON_RATE 34-43, COUNTS 45/49/53.
const (
	line1   = " 123456789 2020-045T12:30:00.500    1.5D+01   1   2   3\r\n"
	line2   = "-000000001 2020-045T12:30:01.000   -2.25E-1  10  20 300\r\n"
	badLine = "         7 2020/045T12:30:01.000        1.0   1   1   1\r\n"
)

var dataFiles = []string{
	"FIPS_R_EDR_20230145_v1.DAT",
	"sub/DATA_2023045.DAT",
	"PROTON_FLUX.DAT",
}

// archive lays out a PDS-style tree and returns its root.
func archive(t *testing.T, contents ...string) string {
	t.Helper()
	root := t.TempDir()
	write := func(rel, body string) {
		p := filepath.Join(root, rel)
		if err := os.MkdirAll(filepath.Dir(p), 0o755); err != nil {
			t.Fatalf("mkdir: %v", err)
		}
		if err := os.WriteFile(p, []byte(body), 0o644); err != nil {
			t.Fatalf("write %s: %v", rel, err)
		}
	}
	write("LABEL/FIPS_EDR.FMT", fipsFMT)
	for i, name := range dataFiles {
		body := line1 + line2
		if i < len(contents) {
			body = contents[i]
		}
		write(name, body)
	}
	return root
}

func fipsFields(t *testing.T) *transformer.FieldMap {
	t.Helper()
	fm, err := transformer.NewFieldMap(
		transformer.Entry{Source: "MET", Directive: transformer.Rename("MET")},
		transformer.Entry{Source: "UTC_TIME", Directive: transformer.DecodeDateTime()},
		transformer.Entry{Source: "COUNTS", Directive: transformer.Rename("Counts")},
	)
	if err != nil {
		t.Fatalf("NewFieldMap: %v", err)
	}
	return &fm
}

func options(t *testing.T, root string, fields *transformer.FieldMap) Options {
	t.Helper()
	out := filepath.Join(root, "out")
	desc, files, err := Locate(root, "FIPS_EDR.FMT", "*.DAT", "", out)
	if err != nil {
		t.Fatalf("Locate: %v", err)
	}
	return Options{
		Job:        "fips",
		Descriptor: desc,
		Files:      files,
		OutputDir:  out,
		Fields:     fields,
	}
}

type fakeCatalog struct {
	entries []storage.CatalogEntry
}

func (f *fakeCatalog) Record(ctx context.Context, e storage.CatalogEntry) error {
	f.entries = append(f.entries, e)
	return nil
}

func TestRun_EndToEnd(t *testing.T) {
	t.Parallel()

	root := archive(t)
	opts := options(t, root, fipsFields(t))
	cat := &fakeCatalog{}
	opts.Catalog = cat

	res, err := Run(context.Background(), opts)
	if err != nil {
		t.Fatalf("Run() error = %v", err)
	}

	out := opts.OutputDir
	// Locate sorts lexically: FIPS_R..., PROTON_FLUX, sub/DATA_...
	wantOutputs := []string{
		filepath.Join(out, "20230145.bin"),
		filepath.Join(out, "PROTON_FLUX.DAT"),
		filepath.Join(out, "20230214.bin"),
	}
	if !reflect.DeepEqual(res.Outputs, wantOutputs) {
		t.Fatalf("Outputs = %v, want %v", res.Outputs, wantOutputs)
	}
	if res.Records != 6 {
		t.Fatalf("Records = %d, want 6", res.Records)
	}

	wantDtype := "dtype = [('MET', '" + schema.Int(4).String() + "'), ('Date', '>i4'), ('ut', '>f4'), ('Counts', '" +
		schema.Int(4).String() + "', (3,))]"
	sidecar, err := os.ReadFile(binfile.LayoutPath(out))
	if err != nil {
		t.Fatalf("read sidecar: %v", err)
	}
	if string(sidecar) != wantDtype {
		t.Fatalf("sidecar = %q, want %q", sidecar, wantDtype)
	}
	if res.Layout.String() != wantDtype {
		t.Fatalf("Result.Layout = %s", res.Layout)
	}

	got, err := binfile.Read(wantOutputs[0], res.Layout)
	if err != nil {
		t.Fatalf("binfile.Read: %v", err)
	}
	if met := got.Column("MET").Ints; !reflect.DeepEqual(met, []int64{123456789, -1}) {
		t.Fatalf("MET = %v, want passthrough values", met)
	}
	if d := got.Column(transformer.DateField).Ints; !reflect.DeepEqual(d, []int64{20200214, 20200214}) {
		t.Fatalf("Date = %v, want 20200214 twice", d)
	}
	if ut := got.Column(transformer.UTField).Floats[0]; ut != 12.5 {
		t.Fatalf("ut[0] = %v, want 12.5", ut)
	}
	if c := got.Column("Counts").Ints; !reflect.DeepEqual(c, []int64{1, 2, 3, 10, 20, 300}) {
		t.Fatalf("Counts = %v", c)
	}
	if got.Column("PROTON_RATE") != nil {
		t.Fatalf("unmapped PROTON_RATE was written")
	}

	if len(cat.entries) != 3 {
		t.Fatalf("catalog entries = %d, want 3", len(cat.entries))
	}
	if e := cat.entries[0]; e.Job != "fips" || e.Date != 20230145 || e.Records != 2 || !e.Layout.Equal(res.Layout) {
		t.Fatalf("catalog[0] = %+v", e)
	}
	if e := cat.entries[1]; e.Date != 0 || e.Output != wantOutputs[1] {
		t.Fatalf("undated catalog entry = %+v", e)
	}
}

// TestRun_Idempotent reruns a batch and expects byte-identical outputs.
func TestRun_Idempotent(t *testing.T) {
	t.Parallel()

	root := archive(t)
	opts := options(t, root, fipsFields(t))

	snapshot := func() map[string][]byte {
		entries, err := os.ReadDir(opts.OutputDir)
		if err != nil {
			t.Fatalf("ReadDir: %v", err)
		}
		m := make(map[string][]byte, len(entries))
		for _, e := range entries {
			b, err := os.ReadFile(filepath.Join(opts.OutputDir, e.Name()))
			if err != nil {
				t.Fatalf("ReadFile: %v", err)
			}
			m[e.Name()] = b
		}
		return m
	}

	if _, err := Run(context.Background(), opts); err != nil {
		t.Fatalf("first Run() error = %v", err)
	}
	first := snapshot()
	if _, err := Run(context.Background(), opts); err != nil {
		t.Fatalf("second Run() error = %v", err)
	}
	second := snapshot()

	if len(first) != 4 {
		t.Fatalf("output dir has %d entries, want 3 record files + dtype", len(first))
	}
	if !reflect.DeepEqual(first, second) {
		t.Fatalf("outputs differ between runs")
	}
}

// TestRun_RerunLocatesAgain repeats the whole locate-and-convert cycle. The
// undated output out/PROTON_FLUX.DAT matches the input pattern and must not
// be picked up as an input by the second run.
func TestRun_RerunLocatesAgain(t *testing.T) {
	t.Parallel()

	root := archive(t)
	first, err := Run(context.Background(), options(t, root, fipsFields(t)))
	if err != nil {
		t.Fatalf("first Run() error = %v", err)
	}

	opts := options(t, root, fipsFields(t))
	if len(opts.Files) != 3 {
		t.Fatalf("second Locate found %d files, want 3: %v", len(opts.Files), opts.Files)
	}
	second, err := Run(context.Background(), opts)
	if err != nil {
		t.Fatalf("second Run() error = %v", err)
	}
	if !reflect.DeepEqual(first.Outputs, second.Outputs) {
		t.Fatalf("Outputs = %v, want %v", second.Outputs, first.Outputs)
	}
}

// TestRun_OutputIsInput writes into the data directory itself: the undated
// file would replace its own source and is refused.
func TestRun_OutputIsInput(t *testing.T) {
	t.Parallel()

	root := archive(t)
	opts := options(t, root, fipsFields(t))
	opts.OutputDir = root
	src := filepath.Join(root, "PROTON_FLUX.DAT")
	before, err := os.ReadFile(src)
	if err != nil {
		t.Fatalf("read source: %v", err)
	}

	_, err = Run(context.Background(), opts)
	if !errors.Is(err, ErrOutputIsInput) {
		t.Fatalf("Run() error = %v, want ErrOutputIsInput", err)
	}
	after, err := os.ReadFile(src)
	if err != nil {
		t.Fatalf("read source: %v", err)
	}
	if !bytes.Equal(before, after) {
		t.Fatalf("source file was overwritten")
	}
}

func TestRun_IdentityPassthrough(t *testing.T) {
	t.Parallel()

	root := archive(t)
	res, err := Run(context.Background(), options(t, root, nil))
	if err != nil {
		t.Fatalf("Run() error = %v", err)
	}
	var names []string
	for _, f := range res.Layout.Fields {
		names = append(names, f.Name)
	}
	if want := []string{"MET", "UTC_TIME", "PROTON_RATE", "COUNTS"}; !reflect.DeepEqual(names, want) {
		t.Fatalf("layout names = %v, want %v", names, want)
	}

	got, err := binfile.Read(res.Outputs[0], res.Layout)
	if err != nil {
		t.Fatalf("binfile.Read: %v", err)
	}
	if s := got.Column("UTC_TIME").Strings; s[0] != "2020-045T12:30:00.500" {
		t.Fatalf("UTC_TIME[0] = %q", s[0])
	}
	if f := got.Column("PROTON_RATE").Floats; !reflect.DeepEqual(f, []float64{15, -0.225}) {
		t.Fatalf("PROTON_RATE = %v", f)
	}
}

// TestRun_AbortsOnFirstError stops at a malformed date in the second file.
func TestRun_AbortsOnFirstError(t *testing.T) {
	t.Parallel()

	// Sorted order is FIPS_R..., PROTON_FLUX, sub/DATA...; PROTON_FLUX is bad.
	root := archive(t, line1+line2, line1+line2, line1+badLine)
	opts := options(t, root, fipsFields(t))

	res, err := Run(context.Background(), opts)
	if !errors.Is(err, transformer.ErrMalformedDateTime) {
		t.Fatalf("Run() error = %v, want ErrMalformedDateTime", err)
	}
	var fe *transformer.FieldError
	if !errors.As(err, &fe) || fe.Field != "UTC_TIME" || fe.Row != 1 {
		t.Fatalf("Run() error = %v, want *FieldError for UTC_TIME row 1", err)
	}
	if !strings.Contains(err.Error(), "file 2/3") {
		t.Fatalf("error %q does not name the failing file position", err)
	}
	if len(res.Outputs) != 1 {
		t.Fatalf("Outputs = %v, want only the first file", res.Outputs)
	}
	if _, err := os.Stat(filepath.Join(opts.OutputDir, "20230214.bin")); !errors.Is(err, os.ErrNotExist) {
		t.Fatalf("third file was written after the abort: %v", err)
	}
}

// shiftingReader returns the real table for the first file and a table with
// MET retyped as a float afterwards.
type shiftingReader struct {
	calls int
}

func (r *shiftingReader) Read(ctx context.Context, path string, s schema.Schema) (*records.Table, error) {
	r.calls++
	t, err := table.Reader{}.Read(ctx, path, s)
	if err != nil || r.calls == 1 {
		return t, err
	}
	met := t.Column("MET")
	wide := records.NewColumn(schema.Field{Name: "MET", Type: schema.Float(8)}, t.Rows)
	for i, v := range met.Ints {
		wide.Floats[i] = float64(v)
	}
	t.Columns[0] = wide
	return t, nil
}

func TestRun_SchemaMismatch(t *testing.T) {
	t.Parallel()

	root := archive(t)
	opts := options(t, root, fipsFields(t))
	opts.Reader = &shiftingReader{}

	res, err := Run(context.Background(), opts)
	if !errors.Is(err, transformer.ErrSchemaMismatch) {
		t.Fatalf("Run() error = %v, want ErrSchemaMismatch", err)
	}
	if len(res.Outputs) != 1 {
		t.Fatalf("Outputs = %v, want the first file only", res.Outputs)
	}
}

func TestRun_NoFiles(t *testing.T) {
	t.Parallel()

	_, err := Run(context.Background(), Options{OutputDir: t.TempDir()})
	if !errors.Is(err, file.ErrNoMatchingFiles) {
		t.Fatalf("Run() error = %v, want ErrNoMatchingFiles", err)
	}
}

func TestRun_Canceled(t *testing.T) {
	t.Parallel()

	root := archive(t)
	opts := options(t, root, fipsFields(t))
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	res, err := Run(ctx, opts)
	if !errors.Is(err, context.Canceled) {
		t.Fatalf("Run() error = %v, want context.Canceled", err)
	}
	if len(res.Outputs) != 0 {
		t.Fatalf("Outputs = %v, want none", res.Outputs)
	}
}

func TestRun_CustomDateRegex(t *testing.T) {
	t.Parallel()

	root := archive(t)
	opts := options(t, root, fipsFields(t))
	r, err := datename.New(`_v\d`)
	if err != nil {
		t.Fatalf("datename.New: %v", err)
	}
	opts.Resolver = r
	cat := &fakeCatalog{}
	opts.Catalog = cat

	res, err := Run(context.Background(), opts)
	if err != nil {
		t.Fatalf("Run() error = %v", err)
	}
	// A pattern match without a usable date leaves the file undated even
	// though its name holds an eight-digit run.
	if got := filepath.Base(res.Outputs[0]); got != "FIPS_R_EDR_20230145_v1.DAT" {
		t.Fatalf("Outputs[0] = %s, want the source base name", got)
	}
	if got := filepath.Base(res.Outputs[2]); got != "20230214.bin" {
		t.Fatalf("Outputs[2] = %s, want 20230214.bin", got)
	}
	if cat.entries[0].Date != 0 {
		t.Fatalf("catalog date = %d, want 0", cat.entries[0].Date)
	}
}

func TestLocate(t *testing.T) {
	t.Parallel()

	root := archive(t)

	desc, files, err := Locate(root, "FIPS_EDR.FMT", "*.DAT", "", "")
	if err != nil {
		t.Fatalf("Locate() error = %v", err)
	}
	if want := filepath.Join(root, "LABEL", "FIPS_EDR.FMT"); desc != want {
		t.Fatalf("descriptor = %s, want %s", desc, want)
	}
	if len(files) != 3 {
		t.Fatalf("files = %v, want 3", files)
	}

	list := filepath.Join(root, "files.txt")
	if err := os.WriteFile(list, []byte("# only one\nPROTON_FLUX.DAT\n"), 0o644); err != nil {
		t.Fatalf("write list: %v", err)
	}
	_, files, err = Locate(root, "FIPS_EDR.FMT", "*.DAT", list, "")
	if err != nil {
		t.Fatalf("Locate(list) error = %v", err)
	}
	if want := []string{filepath.Join(root, "PROTON_FLUX.DAT")}; !reflect.DeepEqual(files, want) {
		t.Fatalf("files = %v, want %v", files, want)
	}

	if _, _, err := Locate(root, "MISSING.FMT", "*.DAT", "", ""); !errors.Is(err, file.ErrDescriptorNotFound) {
		t.Fatalf("Locate(missing descriptor) error = %v", err)
	}
	if _, _, err := Locate(root, "FIPS_EDR.FMT", "*.XYZ", "", ""); !errors.Is(err, file.ErrNoMatchingFiles) {
		t.Fatalf("Locate(no match) error = %v", err)
	}
}

func TestInspect(t *testing.T) {
	t.Parallel()

	root := archive(t)
	res, err := Run(context.Background(), options(t, root, fipsFields(t)))
	if err != nil {
		t.Fatalf("Run() error = %v", err)
	}

	var buf bytes.Buffer
	if err := Inspect(&buf, res.Outputs[0], 1); err != nil {
		t.Fatalf("Inspect() error = %v", err)
	}
	out := buf.String()
	for _, want := range []string{res.Layout.String(), "records=2", "MET", "Counts", "123456789", "20200214", "12.5", "[1 2 3]"} {
		if !strings.Contains(out, want) {
			t.Fatalf("Inspect output missing %q:\n%s", want, out)
		}
	}
	if strings.Contains(out, "[10 20 300]") {
		t.Fatalf("Inspect printed more than the limit:\n%s", out)
	}
}
