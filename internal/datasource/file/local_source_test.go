package file

import (
	"context"
	"errors"
	"io"
	"os"
	"path/filepath"
	"testing"
)

func TestLocalOpen(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	rec := filepath.Join(dir, "FIPS_R_EDR_20230101_v1.DAT")
	const payload = "1234567890 2023-001T00:00:01.000\r\n"
	if err := os.WriteFile(rec, []byte(payload), 0o644); err != nil {
		t.Fatalf("write test file: %v", err)
	}
	canceled, cancel := context.WithCancel(context.Background())
	cancel()

	cases := []struct {
		name      string
		path      string
		ctx       context.Context
		wantErrIs error
	}{
		{name: "reads_records", path: rec, ctx: context.Background()},
		{name: "missing_file_wraps_not_exist", path: filepath.Join(dir, "missing.DAT"), ctx: context.Background(), wantErrIs: os.ErrNotExist},
		{name: "canceled_context_short_circuits", path: rec, ctx: canceled, wantErrIs: context.Canceled},
	}
	for _, c := range cases {
		c := c
		t.Run(c.name, func(t *testing.T) {
			t.Parallel()

			rc, err := NewLocal(c.path).Open(c.ctx)
			if c.wantErrIs != nil {
				if !errors.Is(err, c.wantErrIs) {
					t.Fatalf("Open() error = %v, want %v", err, c.wantErrIs)
				}
				if rc != nil {
					_ = rc.Close()
					t.Fatalf("got non-nil ReadCloser on error")
				}
				return
			}
			if err != nil {
				t.Fatalf("Open() unexpected error: %v", err)
			}
			defer rc.Close()
			got, err := io.ReadAll(rc)
			if err != nil {
				t.Fatalf("reading: %v", err)
			}
			if string(got) != payload {
				t.Fatalf("content = %q, want %q", got, payload)
			}
		})
	}
}

func BenchmarkLocalOpen(b *testing.B) {
	p := filepath.Join(b.TempDir(), "data.DAT")
	if err := os.WriteFile(p, []byte("payload"), 0o644); err != nil {
		b.Fatalf("write test file: %v", err)
	}
	src := NewLocal(p)
	ctx := context.Background()

	b.ReportAllocs()
	for i := 0; i < b.N; i++ {
		rc, err := src.Open(ctx)
		if err != nil {
			b.Fatal(err)
		}
		_ = rc.Close()
	}
}
