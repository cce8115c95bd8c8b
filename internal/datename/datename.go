// Package datename derives the output name of a converted file from the date
// embedded in its source file name.
package datename

import (
	"fmt"
	"path/filepath"
	"regexp"
	"strconv"
	"time"

	"pdsreader/internal/parser/ints"
)

// Ext is appended to date-named output files.
const Ext = ".bin"

// DayOfYearToDate converts a year and 1-based day of year to a YYYYMMDD date.
func DayOfYearToDate(year, doy int) (int32, error) {
	if year < 1 || year > 9999 {
		return 0, fmt.Errorf("year %d out of range", year)
	}
	days := 365
	if isLeap(year) {
		days = 366
	}
	if doy < 1 || doy > days {
		return 0, fmt.Errorf("day of year %d out of range for %d", doy, year)
	}
	t := time.Date(year, time.January, doy, 0, 0, 0, 0, time.UTC)
	return int32(t.Year()*10000 + int(t.Month())*100 + t.Day()), nil
}

func isLeap(y int) bool { return y%4 == 0 && (y%100 != 0 || y%400 == 0) }

// Resolver finds the date in a file name.
type Resolver struct {
	// Pattern, when set, locates the date in the base name before the
	// default digit-run search.
	Pattern *regexp.Regexp
}

// New compiles expr into a Resolver. An empty expr uses the defaults only.
func New(expr string) (Resolver, error) {
	if expr == "" {
		return Resolver{}, nil
	}
	re, err := regexp.Compile(expr)
	if err != nil {
		return Resolver{}, fmt.Errorf("date regex %q: %w", expr, err)
	}
	return Resolver{Pattern: re}, nil
}

// Resolve returns the YYYYMMDD date found in base. Lookup order:
//
//  1. a Pattern match (even an empty one), stripped to its digits: seven digits are YYYYDDD,
//     eight or more are YYYYMMDD (first eight used), anything else is no date;
//  2. the first run of eight digits, taken as YYYYMMDD;
//  3. the first run of seven digits, taken as YYYYDDD.
//
// A day of year outside the calendar yields no date.
func (r Resolver) Resolve(base string) (int32, bool) {
	if r.Pattern != nil {
		if loc := r.Pattern.FindStringIndex(base); loc != nil {
			d := ints.StripNonDigits(base[loc[0]:loc[1]])
			switch {
			case len(d) == 7:
				return ordinal(d)
			case len(d) >= 8:
				return calendar(d[:8])
			}
			return 0, false
		}
	}
	if d, ok := ints.FirstRun(base, 8); ok {
		return calendar(d)
	}
	if d, ok := ints.FirstRun(base, 7); ok {
		return ordinal(d)
	}
	return 0, false
}

// OutputName returns the output path for src under dir: YYYYMMDD.bin when a
// date resolves, otherwise the source base name unchanged.
func (r Resolver) OutputName(dir, src string) (string, int32, bool) {
	base := filepath.Base(src)
	date, ok := r.Resolve(base)
	if !ok {
		return filepath.Join(dir, base), 0, false
	}
	return filepath.Join(dir, Format(date)+Ext), date, true
}

// Format renders a YYYYMMDD date zero-padded to eight digits.
func Format(date int32) string {
	return fmt.Sprintf("%08d", date)
}

func calendar(d string) (int32, bool) {
	v, err := strconv.ParseInt(d, 10, 32)
	if err != nil {
		return 0, false
	}
	return int32(v), true
}

func ordinal(d string) (int32, bool) {
	year, _ := ints.Fixed(d[:4])
	doy, _ := ints.Fixed(d[4:7])
	date, err := DayOfYearToDate(year, doy)
	if err != nil {
		return 0, false
	}
	return date, true
}
