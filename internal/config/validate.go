package config

import (
	"fmt"
	"strings"

	"pdsreader/internal/datename"
)

// IssueSeverity represents the severity of a configuration issue.
type IssueSeverity string

const (
	// SeverityError blocks execution.
	SeverityError IssueSeverity = "error"
	// SeverityWarning is surfaced to users but does not block execution.
	SeverityWarning IssueSeverity = "warning"
)

// Issue describes a single validation finding.
//
// Path is a dotted path into the job file (e.g. "input.pattern",
// "catalog.dsn"). Message is human-readable.
type Issue struct {
	Severity IssueSeverity
	Path     string
	Message  string
}

// Error implements the error interface so an Issue can be returned as one.
func (i Issue) Error() string {
	return fmt.Sprintf("%s at %s: %s", i.Severity, i.Path, i.Message)
}

// HasErrors reports whether any issue has SeverityError.
func HasErrors(issues []Issue) bool {
	for _, iss := range issues {
		if iss.Severity == SeverityError {
			return true
		}
	}
	return false
}

// ValidateJob performs static validation of a Job. It does not touch the
// filesystem or connect to any backend.
func ValidateJob(j Job) []Issue {
	var issues []Issue

	if strings.TrimSpace(j.Job) == "" {
		issues = append(issues, Issue{
			Severity: SeverityError,
			Path:     "job",
			Message:  "job must not be empty; it labels metrics and catalog entries",
		})
	}
	issues = append(issues, validateInput(j.Input)...)
	if strings.TrimSpace(j.Output.Dir) == "" {
		issues = append(issues, Issue{
			Severity: SeverityError,
			Path:     "output.dir",
			Message:  "output.dir must not be empty",
		})
	}
	if j.Fields != nil && j.Fields.Len() == 0 {
		issues = append(issues, Issue{
			Severity: SeverityError,
			Path:     "fields",
			Message:  "fields is empty and would drop every field; omit it to keep all fields",
		})
	}
	if j.DateRegex != "" {
		if _, err := datename.New(j.DateRegex); err != nil {
			issues = append(issues, Issue{
				Severity: SeverityError,
				Path:     "date_regex",
				Message:  err.Error(),
			})
		}
	}
	issues = append(issues, validateCatalog(j.Catalog)...)
	issues = append(issues, validateMetrics(j.Metrics)...)

	return issues
}

func validateInput(in Input) []Issue {
	var issues []Issue

	if strings.TrimSpace(in.Dir) == "" {
		issues = append(issues, Issue{
			Severity: SeverityError,
			Path:     "input.dir",
			Message:  "input.dir must not be empty",
		})
	}
	if strings.TrimSpace(in.Descriptor) == "" {
		issues = append(issues, Issue{
			Severity: SeverityError,
			Path:     "input.descriptor",
			Message:  "input.descriptor must not be empty",
		})
	}

	switch {
	case in.Pattern == "" && in.List == "":
		issues = append(issues, Issue{
			Severity: SeverityError,
			Path:     "input.pattern",
			Message:  "one of input.pattern or input.list is required",
		})
	case in.Pattern != "" && in.List != "":
		issues = append(issues, Issue{
			Severity: SeverityWarning,
			Path:     "input.pattern",
			Message:  "input.list is set and takes precedence; pattern is ignored",
		})
	}
	if strings.ContainsAny(in.Pattern, "?[]") {
		issues = append(issues, Issue{
			Severity: SeverityWarning,
			Path:     "input.pattern",
			Message:  fmt.Sprintf("pattern %q: only '*' is a wildcard; ? [ ] match literally", in.Pattern),
		})
	}
	if strings.ContainsRune(in.Pattern, '/') {
		issues = append(issues, Issue{
			Severity: SeverityWarning,
			Path:     "input.pattern",
			Message:  "pattern is matched against base names; directory parts never match",
		})
	}
	return issues
}

var knownCatalogKinds = map[string]struct{}{
	"sqlite":   {},
	"postgres": {},
	"mssql":    {},
	"mysql":    {},
}

func validateCatalog(c Catalog) []Issue {
	if !c.Enabled() {
		return nil
	}
	var issues []Issue
	if _, ok := knownCatalogKinds[c.Kind]; !ok {
		issues = append(issues, Issue{
			Severity: SeverityError,
			Path:     "catalog.kind",
			Message:  fmt.Sprintf("unknown catalog kind %q; want sqlite, postgres, mssql, mysql or none", c.Kind),
		})
	}
	if strings.TrimSpace(c.DSN) == "" {
		issues = append(issues, Issue{
			Severity: SeverityError,
			Path:     "catalog.dsn",
			Message:  "catalog.dsn must not be empty when a catalog kind is set",
		})
	}
	return issues
}

func validateMetrics(m Metrics) []Issue {
	switch m.BackendName() {
	case "none":
		return nil
	case "prometheus":
		if m.PushgatewayURL == "" {
			return []Issue{{
				Severity: SeverityError,
				Path:     "metrics.pushgateway_url",
				Message:  "pushgateway_url is required for the prometheus backend (or set PUSHGATEWAY_URL)",
			}}
		}
	case "datadog":
		if m.DatadogAddr == "" {
			return []Issue{{
				Severity: SeverityError,
				Path:     "metrics.datadog_addr",
				Message:  "datadog_addr is required for the datadog backend (or set DD_AGENT_ADDR)",
			}}
		}
	default:
		return []Issue{{
			Severity: SeverityError,
			Path:     "metrics.backend",
			Message:  fmt.Sprintf("unknown metrics backend %q; want none, prometheus or datadog", m.Backend),
		}}
	}
	return nil
}
