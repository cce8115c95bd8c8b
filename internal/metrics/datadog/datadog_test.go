package datadog

import (
	"net"
	"reflect"
	"strings"
	"testing"
	"time"

	"pdsreader/internal/metrics"
)

func TestNewBackend_RequiresAddr(t *testing.T) {
	t.Parallel()

	if b, err := NewBackend(Config{}); err == nil || b != nil {
		t.Fatalf("NewBackend(empty) = %v, %v; want nil, error", b, err)
	}
}

func TestLabelsToTags(t *testing.T) {
	t.Parallel()

	if got := labelsToTags(nil); got != nil {
		t.Fatalf("labelsToTags(nil) = %v, want nil", got)
	}
	got := labelsToTags(metrics.Labels{"step": "read", "job": "fips", "status": "success"})
	want := []string{"job:fips", "status:success", "step:read"}
	if !reflect.DeepEqual(got, want) {
		t.Fatalf("labelsToTags = %v, want %v", got, want)
	}
}

func TestNilClientIsNoop(t *testing.T) {
	t.Parallel()

	b := &Backend{}
	b.IncCounter("pds_files_total", 1, nil)
	b.ObserveHistogram("pds_step_duration_seconds", 1, nil)
	if err := b.Flush(); err != nil {
		t.Fatalf("Flush() = %v", err)
	}
}

// TestBackend_SendsToAgent points the backend at a local UDP socket standing
// in for the agent and checks the emitted DogStatsD lines.
func TestBackend_SendsToAgent(t *testing.T) {
	t.Parallel()

	conn, err := net.ListenPacket("udp", "127.0.0.1:0")
	if err != nil {
		t.Skipf("udp listen unavailable: %v", err)
	}
	defer conn.Close()

	b, err := NewBackend(Config{Addr: conn.LocalAddr().String(), GlobalTags: []string{"env:test"}})
	if err != nil {
		t.Fatalf("NewBackend() error = %v", err)
	}
	b.IncCounter("pds_files_total", 2, metrics.Labels{"job": "fips", "status": "converted"})
	if err := b.Flush(); err != nil {
		t.Fatalf("Flush() error = %v", err)
	}

	_ = conn.SetReadDeadline(time.Now().Add(2 * time.Second))
	buf := make([]byte, 4096)
	var got strings.Builder
	for !strings.Contains(got.String(), "pds_files_total") {
		n, _, err := conn.ReadFrom(buf)
		if err != nil {
			t.Fatalf("no metric received: %v (so far %q)", err, got.String())
		}
		got.Write(buf[:n])
	}
	line := got.String()
	for _, want := range []string{"pdsreader.pds_files_total:2|c", "job:fips", "status:converted", "env:test"} {
		if !strings.Contains(line, want) {
			t.Fatalf("payload %q missing %q", line, want)
		}
	}
}
