// Package metrics records operational metrics of conversion runs behind a
// small, backend-agnostic interface.
//
// A global backend defaults to a no-op implementation, so the converter can
// call into this package unconditionally. Concrete systems live in
// subpackages (prompush for a Prometheus Pushgateway, datadog for DogStatsD)
// and are installed with SetBackend by the CLI.
package metrics

import "time"

// Labels are string key/value pairs attached to a metric.
type Labels map[string]string

// Backend is the minimal interface for metrics backends.
type Backend interface {
	// IncCounter increments a counter by delta.
	IncCounter(name string, delta float64, labels Labels)
	// ObserveHistogram records a value in a duration style metric.
	ObserveHistogram(name string, value float64, labels Labels)
	// Flush pushes or flushes metrics, if the backend needs it.
	Flush() error
}

type nopBackend struct{}

func (nopBackend) IncCounter(name string, delta float64, labels Labels)       {}
func (nopBackend) ObserveHistogram(name string, value float64, labels Labels) {}
func (nopBackend) Flush() error                                               { return nil }

var backend Backend = nopBackend{}

// SetBackend installs a concrete backend. Passing nil keeps the existing backend.
func SetBackend(b Backend) {
	if b == nil {
		return
	}
	backend = b
}

// Flush delegates to the current backend.
func Flush() error {
	return backend.Flush()
}

// Conversion steps reported through RecordStep.
const (
	StepTranslate = "translate"
	StepRead      = "read"
	StepRemap     = "remap"
	StepLayout    = "layout"
	StepWrite     = "write"
	StepCatalog   = "catalog"
)

// RecordStep counts one execution of a conversion step and its duration.
func RecordStep(job, step string, err error, d time.Duration) {
	status := "success"
	if err != nil {
		status = "failure"
	}

	lbls := Labels{
		"job":    job,
		"step":   step,
		"status": status,
	}

	backend.IncCounter("pds_step_total", 1, lbls)
	backend.ObserveHistogram("pds_step_duration_seconds", d.Seconds(), lbls)
}

// RecordRows adds delta records of the given kind ("read" or "written").
func RecordRows(job, kind string, delta int64) {
	if delta <= 0 {
		return
	}
	backend.IncCounter("pds_records_total", float64(delta), Labels{
		"job":  job,
		"kind": kind,
	})
}

// RecordFiles counts files by outcome ("converted", "failed", "undated").
func RecordFiles(job, status string, delta int64) {
	if delta <= 0 {
		return
	}
	backend.IncCounter("pds_files_total", float64(delta), Labels{
		"job":    job,
		"status": status,
	})
}
