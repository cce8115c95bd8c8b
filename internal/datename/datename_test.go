package datename

import (
	"path/filepath"
	"regexp"
	"testing"
)

func TestDayOfYearToDate(t *testing.T) {
	t.Parallel()

	cases := []struct {
		year, doy int
		want      int32
		wantErr   bool
	}{
		{2023, 1, 20230101, false},
		{2023, 45, 20230214, false},
		{2020, 45, 20200214, false},
		{2020, 60, 20200229, false},
		{2023, 60, 20230301, false},
		{2020, 366, 20201231, false},
		{2023, 365, 20231231, false},
		{2023, 366, 0, true},
		{2023, 0, 0, true},
		{2023, 400, 0, true},
		{0, 10, 0, true},
	}
	for _, c := range cases {
		got, err := DayOfYearToDate(c.year, c.doy)
		if (err != nil) != c.wantErr {
			t.Fatalf("DayOfYearToDate(%d, %d) error = %v, wantErr %v", c.year, c.doy, err, c.wantErr)
		}
		if got != c.want {
			t.Fatalf("DayOfYearToDate(%d, %d) = %d, want %d", c.year, c.doy, got, c.want)
		}
	}
}

func TestResolve_Defaults(t *testing.T) {
	t.Parallel()

	cases := []struct {
		base   string
		want   int32
		wantOK bool
	}{
		{"FIPS_R_EDR_20230145_v1.DAT", 20230145, true},
		{"DATA_2023045.DAT", 20230214, true},
		{"PROTON_FLUX.DAT", 0, false},
		{"DATA_2023400.DAT", 0, false},
		{"A123_2011001.TAB", 20110101, true},
		{"ORB_2011001_20110102.TAB", 20110102, true},
		{"RUN_123456789.DAT", 12345678, true},
		{"ID_12345.DAT", 0, false},
	}
	var r Resolver
	for _, c := range cases {
		got, ok := r.Resolve(c.base)
		if ok != c.wantOK || got != c.want {
			t.Fatalf("Resolve(%q) = %d, %v; want %d, %v", c.base, got, ok, c.want, c.wantOK)
		}
	}
}

func TestResolve_Pattern(t *testing.T) {
	t.Parallel()

	cases := []struct {
		expr   string
		base   string
		want   int32
		wantOK bool
	}{
		{`\d{4}-\d{3}`, "MAG_2012-061_V2_20990101.TAB", 20120301, true},
		{`\d{4}_\d{2}_\d{2}`, "EPS_2014_07_04_20990101.DAT", 20140704, true},
		{`\d{4}_\d{2}`, "EPS_2014_07_20990101.DAT", 0, false},
		// An empty match still counts as a match: no date, no fallback.
		{`X*`, "DATA_2023045.DAT", 0, false},
		// No match falls through to the default search.
		{`X\d{7}`, "FIPS_R_EDR_20230145_v1.DAT", 20230145, true},
	}
	for _, c := range cases {
		r := Resolver{Pattern: regexp.MustCompile(c.expr)}
		got, ok := r.Resolve(c.base)
		if ok != c.wantOK || got != c.want {
			t.Fatalf("Resolve(%q) with %q = %d, %v; want %d, %v", c.base, c.expr, got, ok, c.want, c.wantOK)
		}
	}
}

func TestNew(t *testing.T) {
	t.Parallel()

	r, err := New("")
	if err != nil || r.Pattern != nil {
		t.Fatalf("New(\"\") = %+v, %v", r, err)
	}
	if _, err := New("(["); err == nil {
		t.Fatalf("New with invalid regex: expected error")
	}
}

func TestOutputName(t *testing.T) {
	t.Parallel()

	var r Resolver
	got, date, ok := r.OutputName("/out", "/data/2023/FIPS_R_EDR_20230145_v1.DAT")
	if !ok || date != 20230145 || got != filepath.Join("/out", "20230145.bin") {
		t.Fatalf("OutputName = %q, %d, %v", got, date, ok)
	}
	got, _, ok = r.OutputName("/out", "/data/PROTON_FLUX.DAT")
	if ok || got != filepath.Join("/out", "PROTON_FLUX.DAT") {
		t.Fatalf("OutputName(no date) = %q, %v", got, ok)
	}
	if s := Format(990101); s != "00990101" {
		t.Fatalf("Format = %q", s)
	}
}

func BenchmarkResolve(b *testing.B) {
	var r Resolver
	b.ReportAllocs()
	for i := 0; i < b.N; i++ {
		_, _ = r.Resolve("FIPS_R_EDR_2023045_v1.DAT")
	}
}
