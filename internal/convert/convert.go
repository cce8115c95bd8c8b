// Package convert drives a conversion batch: it translates the descriptor
// once, then reads, remaps and writes every data file in order, freezing the
// output layout on the first file.
package convert

import (
	"context"
	"errors"
	"fmt"
	"log"
	"os"
	"path/filepath"
	"time"

	"pdsreader/internal/binfile"
	"pdsreader/internal/datasource/file"
	"pdsreader/internal/datename"
	"pdsreader/internal/metrics"
	"pdsreader/internal/parser"
	"pdsreader/internal/parser/label"
	"pdsreader/internal/parser/table"
	"pdsreader/internal/records"
	"pdsreader/internal/schema"
	"pdsreader/internal/storage"
	"pdsreader/internal/transformer"
)

// ErrOutputIsInput is returned when an undated file would be written over
// itself because the output directory holds the data files.
var ErrOutputIsInput = errors.New("output path equals input path")

// Catalog receives one entry per converted file.
type Catalog interface {
	Record(ctx context.Context, e storage.CatalogEntry) error
}

// Options configures one batch.
type Options struct {
	Job        string
	Descriptor string   // descriptor path
	Files      []string // data files, converted in this order
	OutputDir  string

	// Fields maps source fields to output directives. Nil keeps every
	// schema field under its own name.
	Fields *transformer.FieldMap

	Resolver datename.Resolver

	Translator parser.Translator // nil means label.Translator{}
	Reader     parser.Reader     // nil means table.Reader{}
	Catalog    Catalog           // nil disables catalog entries

	Verbose bool
}

// Result summarizes a batch.
type Result struct {
	Layout  schema.Layout
	Outputs []string // binary files in conversion order
	Records int
}

// Run converts opts.Files. The first error aborts the batch; files written
// before it stay in place. Rerunning a batch rewrites the same outputs.
func Run(ctx context.Context, opts Options) (Result, error) {
	if len(opts.Files) == 0 {
		return Result{}, fmt.Errorf("convert: %w", file.ErrNoMatchingFiles)
	}
	if err := os.MkdirAll(opts.OutputDir, 0o755); err != nil {
		return Result{}, fmt.Errorf("convert: %w", err)
	}
	if opts.Translator == nil {
		opts.Translator = label.Translator{}
	}
	if opts.Reader == nil {
		opts.Reader = table.Reader{}
	}

	start := time.Now()
	s, err := opts.Translator.Translate(opts.Descriptor)
	metrics.RecordStep(opts.Job, metrics.StepTranslate, err, time.Since(start))
	if err != nil {
		return Result{}, fmt.Errorf("convert: descriptor: %w", err)
	}
	if opts.Verbose {
		log.Printf("convert: descriptor=%s fields=%d", opts.Descriptor, len(s.Fields))
	}

	fm := transformer.Identity(s)
	if opts.Fields != nil {
		fm = *opts.Fields
	}

	b := &batch{opts: opts, schema: s, fields: fm, seen: make(map[string]string, len(opts.Files))}
	for i, src := range opts.Files {
		if err := ctx.Err(); err != nil {
			return b.res, fmt.Errorf("convert: stopped before %s: %w", src, err)
		}
		if err := b.convert(ctx, i, src); err != nil {
			metrics.RecordFiles(opts.Job, "failed", 1)
			return b.res, fmt.Errorf("convert: file %d/%d %s: %w", i+1, len(opts.Files), src, err)
		}
	}
	return b.res, nil
}

// batch carries the state threaded through the file loop.
type batch struct {
	opts   Options
	schema schema.Schema
	fields transformer.FieldMap
	frozen bool
	seen   map[string]string // output path -> source that produced it
	res    Result
}

func (b *batch) convert(ctx context.Context, i int, src string) error {
	job := b.opts.Job

	start := time.Now()
	raw, err := b.opts.Reader.Read(ctx, src, b.schema)
	metrics.RecordStep(job, metrics.StepRead, err, time.Since(start))
	if err != nil {
		return err
	}
	metrics.RecordRows(job, "read", int64(raw.Rows))

	start = time.Now()
	out, err := transformer.Remap(raw, b.fields)
	metrics.RecordStep(job, metrics.StepRemap, err, time.Since(start))
	if err != nil {
		return err
	}

	if !b.frozen {
		if err := b.freeze(raw); err != nil {
			return err
		}
	}
	if err := transformer.CheckLayout(b.res.Layout, out); err != nil {
		return err
	}

	dst, date, dated := b.opts.Resolver.OutputName(b.opts.OutputDir, src)
	if samePath(dst, src) {
		return fmt.Errorf("%w: %s", ErrOutputIsInput, src)
	}
	if prev, dup := b.seen[dst]; dup {
		log.Printf("convert: warning: %s and %s both map to %s; the later file wins", prev, src, dst)
	}
	b.seen[dst] = src

	start = time.Now()
	err = binfile.Write(dst, b.res.Layout, out)
	metrics.RecordStep(job, metrics.StepWrite, err, time.Since(start))
	if err != nil {
		return err
	}
	metrics.RecordRows(job, "written", int64(out.Rows))

	if err := b.record(ctx, src, dst, date, out); err != nil {
		return err
	}

	metrics.RecordFiles(job, "converted", 1)
	if !dated {
		metrics.RecordFiles(job, "undated", 1)
	}
	b.res.Outputs = append(b.res.Outputs, dst)
	b.res.Records += out.Rows
	log.Printf("convert: file %d/%d src=%s dst=%s records=%d", i+1, len(b.opts.Files), src, dst, out.Rows)
	return nil
}

// freeze derives the output layout from the first file and writes the
// sidecar before any record file.
func (b *batch) freeze(raw *records.Table) error {
	l, err := transformer.DeriveLayout(raw, b.fields)
	if err != nil {
		return err
	}
	start := time.Now()
	err = binfile.WriteLayout(b.opts.OutputDir, l)
	metrics.RecordStep(b.opts.Job, metrics.StepLayout, err, time.Since(start))
	if err != nil {
		return err
	}
	if b.opts.Verbose {
		log.Printf("convert: layout frozen record_size=%d %s", l.RecordSize(), l)
	}
	b.res.Layout = l
	b.frozen = true
	return nil
}

func (b *batch) record(ctx context.Context, src, dst string, date int32, out *records.Table) error {
	if b.opts.Catalog == nil {
		return nil
	}
	start := time.Now()
	err := b.opts.Catalog.Record(ctx, storage.CatalogEntry{
		Job:     b.opts.Job,
		Source:  src,
		Output:  dst,
		Date:    date,
		Records: out.Rows,
		Layout:  b.res.Layout,
	})
	metrics.RecordStep(b.opts.Job, metrics.StepCatalog, err, time.Since(start))
	return err
}

// Locate resolves the descriptor under dir and the data files to convert:
// the entries of list when it is set, otherwise the files under dir whose
// base names match pattern. outputDir is left out of the pattern search so
// earlier outputs are not read back as inputs.
func Locate(dir, descriptor, pattern, list, outputDir string) (string, []string, error) {
	desc, err := file.FindDescriptor(dir, descriptor)
	if err != nil {
		return "", nil, err
	}
	var files []string
	if list != "" {
		files, err = file.ListedFiles(dir, list)
	} else {
		files, err = file.Glob(dir, pattern, outputDir)
	}
	if err != nil {
		return "", nil, err
	}
	return desc, files, nil
}

func samePath(a, b string) bool {
	if a == b {
		return true
	}
	aa, err1 := filepath.Abs(a)
	bb, err2 := filepath.Abs(b)
	return err1 == nil && err2 == nil && aa == bb
}
