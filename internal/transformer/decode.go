package transformer

import (
	"errors"
	"fmt"

	"pdsreader/internal/datename"
)

// ErrMalformedDateTime is returned when a date/time value does not follow
// the fixed layout its directive expects.
var ErrMalformedDateTime = errors.New("malformed date/time")

// FieldError locates a decode failure.
type FieldError struct {
	Field string
	Row   int
	Value string
	Err   error
}

func (e *FieldError) Error() string {
	return fmt.Sprintf("field %q row %d value %q: %v", e.Field, e.Row, e.Value, e.Err)
}

func (e *FieldError) Unwrap() error { return e.Err }

// Ordinal timestamp layout: YYYY-DDDThh:mm:ss[.fff]
const (
	dtYear    = 0
	dtDOY     = 5
	dtHour    = 9
	dtMinute  = 12
	dtSecond  = 15
	dtFrac    = 17
	dtMinLen  = dtFrac
	dtDateSep = 4
	dtTimeSep = 8
)

// Calendar date layout: YYYY-MM-DD
const (
	dYear   = 0
	dMonth  = 5
	dDay    = 8
	dMinLen = 10
)

// Time of day layout: hh:mm:ss[.fff]
const (
	tHour   = 0
	tMinute = 3
	tSecond = 6
	tFrac   = 8
	tMinLen = tFrac
)

// ParseDateTime decodes an ordinal timestamp such as 2020-045T12:30:00.500
// into its YYYYMMDD date and fractional hour. Fractional seconds are
// validated but do not contribute to ut.
func ParseDateTime(s string) (int32, float32, error) {
	if len(s) < dtMinLen || s[dtDateSep] != '-' || (s[dtTimeSep] != 'T' && s[dtTimeSep] != 't') {
		return 0, 0, ErrMalformedDateTime
	}
	year, ok1 := digits(s, dtYear, 4)
	doy, ok2 := digits(s, dtDOY, 3)
	if !ok1 || !ok2 {
		return 0, 0, ErrMalformedDateTime
	}
	ut, err := parseClock(s[dtHour:])
	if err != nil {
		return 0, 0, err
	}
	date, err := datename.DayOfYearToDate(year, doy)
	if err != nil {
		return 0, 0, fmt.Errorf("%w: %v", ErrMalformedDateTime, err)
	}
	return date, ut, nil
}

// ParseDate packs a calendar date such as 2020-02-14 into 20200214. The
// digits are reassembled without checking the calendar. A trailing time
// part after 'T' is ignored.
func ParseDate(s string) (int32, error) {
	if len(s) < dMinLen || s[dMonth-1] != '-' || s[dDay-1] != '-' {
		return 0, ErrMalformedDateTime
	}
	if len(s) > dMinLen && s[dMinLen] != 'T' && s[dMinLen] != 't' {
		return 0, ErrMalformedDateTime
	}
	y, ok1 := digits(s, dYear, 4)
	m, ok2 := digits(s, dMonth, 2)
	d, ok3 := digits(s, dDay, 2)
	if !ok1 || !ok2 || !ok3 {
		return 0, ErrMalformedDateTime
	}
	return int32(y*10000 + m*100 + d), nil
}

// ParseTime converts hh:mm:ss[.fff] into hours since midnight. Fractional
// seconds are validated but ignored.
func ParseTime(s string) (float32, error) {
	return parseClock(s)
}

func parseClock(s string) (float32, error) {
	if len(s) < tMinLen || s[tMinute-1] != ':' || s[tSecond-1] != ':' {
		return 0, ErrMalformedDateTime
	}
	h, ok1 := digits(s, tHour, 2)
	m, ok2 := digits(s, tMinute, 2)
	sec, ok3 := digits(s, tSecond, 2)
	if !ok1 || !ok2 || !ok3 {
		return 0, ErrMalformedDateTime
	}
	if len(s) > tFrac {
		if s[tFrac] != '.' {
			return 0, ErrMalformedDateTime
		}
		if _, ok := digits(s, tFrac+1, len(s)-tFrac-1); !ok && len(s) > tFrac+1 {
			return 0, ErrMalformedDateTime
		}
	}
	return float32(h) + float32(m)/60 + float32(sec)/3600, nil
}

// digits parses s[off:off+n] as an unsigned decimal without allocating.
func digits(s string, off, n int) (int, bool) {
	if n <= 0 || off+n > len(s) {
		return 0, false
	}
	v := 0
	for i := off; i < off+n; i++ {
		c := s[i] - '0'
		if c > 9 {
			return 0, false
		}
		v = v*10 + int(c)
	}
	return v, true
}
