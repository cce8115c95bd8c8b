// Package config defines the JSON job file of a conversion run and a linter
// for it. Decoding uses encoding/json only; the file is small and flat.
//
// Example:
//
//	{
//	  "job": "messenger_fips_edr",
//	  "input":  { "dir": "/data/MESS-E_V_H_SW-FIPS-2", "descriptor": "FIPS_EDR.FMT",
//	              "pattern": "FIPS_R*EDR*.DAT" },
//	  "output": { "dir": "/data/bin/fips" },
//	  "fields": { "MET": "MET", "UTC_TIME": ["Date", "ut"] },
//	  "catalog": { "kind": "sqlite", "dsn": "/data/bin/catalog.db" },
//	  "metrics": { "backend": "prometheus", "pushgateway_url": "http://pushgateway:9091" }
//	}
package config

import (
	"encoding/json"
	"fmt"
	"os"
	"strings"

	"pdsreader/internal/transformer"
)

// Job describes one conversion batch.
type Job struct {
	// Job names the batch in logs, metrics and the catalog.
	Job string `json:"job"`

	Input  Input  `json:"input"`
	Output Output `json:"output"`

	// Fields maps source fields to output directives in file order. Nil
	// (absent or null) converts every field under its own name.
	Fields *transformer.FieldMap `json:"fields,omitempty"`

	// DateRegex optionally locates the date in data file names before the
	// built-in 8- and 7-digit rules are tried.
	DateRegex string `json:"date_regex,omitempty"`

	Catalog Catalog `json:"catalog"`
	Metrics Metrics `json:"metrics"`
}

// Input locates the descriptor and data files.
type Input struct {
	// Dir is the archive root searched recursively.
	Dir string `json:"dir"`

	// Descriptor is a path to the .FMT file or a file name searched under Dir.
	Descriptor string `json:"descriptor"`

	// Pattern selects data files by base name; '*' is the only wildcard.
	Pattern string `json:"pattern,omitempty"`

	// List optionally names a text file listing data files, one per line.
	// It takes precedence over Pattern.
	List string `json:"list,omitempty"`
}

// Output selects where binary files and the dtype sidecar are written.
type Output struct {
	Dir string `json:"dir"`
}

// Catalog configures the optional conversion catalog.
type Catalog struct {
	// Kind is a registered storage backend ("sqlite", "postgres", "mssql",
	// "mysql"). Empty or "none" disables the catalog.
	Kind  string `json:"kind,omitempty"`
	DSN   string `json:"dsn,omitempty"`
	Table string `json:"table,omitempty"`
}

// Enabled reports whether a catalog backend is configured.
func (c Catalog) Enabled() bool {
	return c.Kind != "" && c.Kind != "none"
}

// Metrics selects the metrics backend.
type Metrics struct {
	// Backend is "none", "prometheus" (alias "pushgateway") or "datadog".
	Backend        string   `json:"backend,omitempty"`
	PushgatewayURL string   `json:"pushgateway_url,omitempty"`
	DatadogAddr    string   `json:"datadog_addr,omitempty"`
	Tags           []string `json:"tags,omitempty"`
}

// BackendName returns Backend lowercased and trimmed, with "pushgateway"
// folded into "prometheus" and an empty value reported as "none".
func (m Metrics) BackendName() string {
	switch name := strings.ToLower(strings.TrimSpace(m.Backend)); name {
	case "":
		return "none"
	case "pushgateway":
		return "prometheus"
	default:
		return name
	}
}

// Load reads and decodes a job file. Unknown keys are rejected so that typos
// do not silently fall back to defaults.
func Load(path string) (Job, error) {
	f, err := os.Open(path)
	if err != nil {
		return Job{}, fmt.Errorf("config: %w", err)
	}
	defer f.Close()

	var j Job
	dec := json.NewDecoder(f)
	dec.DisallowUnknownFields()
	if err := dec.Decode(&j); err != nil {
		return Job{}, fmt.Errorf("config: decode %s: %w", path, err)
	}
	return j, nil
}
