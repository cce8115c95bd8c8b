// Command pdsreader converts fixed-width PDS ASCII tables into packed binary
// record files. A JSON job file supplies the defaults; flags override it.
//
//	pdsreader -config jobs/fips.json
//	pdsreader -job fips -in /data/FIPS -fmt FIPS_EDR.FMT -pattern 'FIPS_R*.DAT' -out /data/bin
//	pdsreader -inspect /data/bin/20110401.bin
package main

import (
	"context"
	"flag"
	"fmt"
	"io"
	"log"
	"os"
	"os/signal"
	"strings"
	"time"

	"pdsreader/internal/config"
	"pdsreader/internal/convert"
	"pdsreader/internal/datename"
	"pdsreader/internal/metrics"
	"pdsreader/internal/metrics/datadog"
	"pdsreader/internal/metrics/prompush"
	"pdsreader/internal/storage"

	// register all backends with the storage factory.
	// the job file picks the catalog kind, so every backend is built in.
	_ "pdsreader/internal/storage/all"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	code := run(ctx, os.Args[1:], os.Stdout, os.Stderr)
	stop()
	os.Exit(code)
}

// flags holds command line values. Empty strings leave the job file alone.
type flags struct {
	cfgPath        string
	job            string
	in             string
	out            string
	pattern        string
	descriptor     string
	list           string
	dateRegex      string
	metricsBackend string
	pushgatewayURL string
	catalogKind    string
	catalogDSN     string
	inspect        string
	limit          int
	validate       bool
	verbose        bool
}

func parseFlags(args []string, stderr io.Writer) (flags, error) {
	var f flags
	fs := flag.NewFlagSet("pdsreader", flag.ContinueOnError)
	fs.SetOutput(stderr)
	fs.StringVar(&f.cfgPath, "config", "", "job config JSON path")
	fs.StringVar(&f.job, "job", "", "job name (overrides config job)")
	fs.StringVar(&f.in, "in", "", "archive root searched for descriptor and data files")
	fs.StringVar(&f.out, "out", "", "output directory for .bin files and the dtype sidecar")
	fs.StringVar(&f.pattern, "pattern", "", "data file name pattern, '*' is the only wildcard")
	fs.StringVar(&f.descriptor, "fmt", "", "descriptor path or file name searched under -in")
	fs.StringVar(&f.list, "list", "", "text file listing data files; overrides -pattern")
	fs.StringVar(&f.dateRegex, "date-regex", "", "regular expression locating the date in file names")
	fs.StringVar(&f.metricsBackend, "metrics-backend", "", "metrics backend: none, prometheus, datadog (overrides env METRICS_BACKEND)")
	fs.StringVar(&f.pushgatewayURL, "pushgateway-url", "", "Pushgateway base URL (overrides env PUSHGATEWAY_URL)")
	fs.StringVar(&f.catalogKind, "catalog-kind", "", "catalog storage kind: "+strings.Join(storage.ListKinds(), ", ")+" or none")
	fs.StringVar(&f.catalogDSN, "catalog-dsn", "", "catalog DSN")
	fs.StringVar(&f.inspect, "inspect", "", "print the records of a converted .bin file and exit")
	fs.IntVar(&f.limit, "limit", 20, "records printed by -inspect (0 prints all)")
	fs.BoolVar(&f.validate, "validate", false, "validate the configuration and exit")
	fs.BoolVar(&f.verbose, "v", false, "enable verbose logs")
	if err := fs.Parse(args); err != nil {
		return flags{}, err
	}
	return f, nil
}

// loadJob merges the job file, environment and flags: flag, then env, then
// file value.
func loadJob(f flags) (config.Job, error) {
	var j config.Job
	if f.cfgPath != "" {
		var err error
		if j, err = config.Load(f.cfgPath); err != nil {
			return config.Job{}, err
		}
	}
	set := func(dst *string, vals ...string) {
		for _, v := range vals {
			if v != "" {
				*dst = v
				return
			}
		}
	}
	set(&j.Job, f.job)
	set(&j.Input.Dir, f.in)
	set(&j.Input.Descriptor, f.descriptor)
	set(&j.Input.Pattern, f.pattern)
	set(&j.Input.List, f.list)
	set(&j.Output.Dir, f.out)
	set(&j.DateRegex, f.dateRegex)
	set(&j.Catalog.Kind, f.catalogKind)
	set(&j.Catalog.DSN, f.catalogDSN)
	set(&j.Metrics.Backend, f.metricsBackend, os.Getenv("METRICS_BACKEND"))
	set(&j.Metrics.PushgatewayURL, f.pushgatewayURL, os.Getenv("PUSHGATEWAY_URL"))
	set(&j.Metrics.DatadogAddr, os.Getenv("DD_AGENT_ADDR"))
	return j, nil
}

func run(ctx context.Context, args []string, stdout, stderr io.Writer) int {
	f, err := parseFlags(args, stderr)
	if err != nil {
		return 2
	}

	if f.inspect != "" {
		if err := convert.Inspect(stdout, f.inspect, f.limit); err != nil {
			fmt.Fprintf(stderr, "inspect: %v\n", err)
			return 1
		}
		return 0
	}

	j, err := loadJob(f)
	if err != nil {
		fmt.Fprintln(stderr, err)
		return 1
	}

	issues := config.ValidateJob(j)
	for _, iss := range issues {
		fmt.Fprintln(stderr, iss.Error())
	}
	if config.HasErrors(issues) {
		log.Printf("configuration is invalid: %v", f.cfgPath)
		return 1
	}
	if f.validate {
		log.Printf("configuration is valid: %v", f.cfgPath)
		return 0
	}

	if flush := installMetrics(j, f.verbose); flush != nil {
		defer flush()
	}

	if err := convertJob(ctx, j, f.verbose); err != nil {
		fmt.Fprintln(stderr, err)
		return 1
	}
	return 0
}

// installMetrics sets the global metrics backend and returns its flush
// function, or nil when metrics stay disabled.
func installMetrics(j config.Job, verbose bool) func() {
	var (
		b   metrics.Backend
		err error
	)
	switch name := j.Metrics.BackendName(); name {
	case "prometheus":
		b, err = prompush.NewBackend(j.Job, j.Metrics.PushgatewayURL)
		if err == nil {
			log.Printf("metrics: backend=%s url=%s job_name=%s", name, j.Metrics.PushgatewayURL, j.Job)
		}
	case "datadog":
		b, err = datadog.NewBackend(datadog.Config{
			Addr:       j.Metrics.DatadogAddr,
			GlobalTags: append([]string{"job:" + j.Job}, j.Metrics.Tags...),
		})
		if err == nil {
			log.Printf("metrics: backend=%s addr=%s", name, j.Metrics.DatadogAddr)
		}
	default:
		if verbose {
			log.Printf("metrics: disabled (backend=%q)", name)
		}
		return nil
	}
	if err != nil {
		log.Printf("metrics: init %s backend: %v; using nop", j.Metrics.Backend, err)
		return nil
	}
	metrics.SetBackend(b)
	return func() {
		if err := metrics.Flush(); err != nil {
			log.Printf("metrics: flush error: %v", err)
		}
	}
}

func convertJob(ctx context.Context, j config.Job, verbose bool) error {
	resolver, err := datename.New(j.DateRegex)
	if err != nil {
		return err
	}
	desc, files, err := convert.Locate(j.Input.Dir, j.Input.Descriptor, j.Input.Pattern, j.Input.List, j.Output.Dir)
	if err != nil {
		return err
	}

	opts := convert.Options{
		Job:        j.Job,
		Descriptor: desc,
		Files:      files,
		OutputDir:  j.Output.Dir,
		Fields:     j.Fields,
		Resolver:   resolver,
		Verbose:    verbose,
	}
	if j.Catalog.Enabled() {
		cat, err := storage.OpenCatalog(ctx, j.Catalog.Kind, j.Catalog.DSN, j.Catalog.Table)
		if err != nil {
			return err
		}
		defer cat.Close()
		opts.Catalog = cat
	}

	if verbose {
		log.Printf("job: name=%s files=%d out=%s catalog=%q", j.Job, len(files), j.Output.Dir, j.Catalog.Kind)
	}
	start := time.Now()
	res, err := convert.Run(ctx, opts)
	if err != nil {
		return err
	}
	log.Printf("job: name=%s files=%d records=%d completed in %s",
		j.Job, len(res.Outputs), res.Records, time.Since(start).Truncate(time.Millisecond))
	return nil
}
