/*
Package calendar provides the civil-date arithmetic behind weeks and pay cycles.

PURPOSE:
  Every timesheet key is a calendar day. Hours are logged against a
  (work_date, line_code) pair, grouped into Sunday-Saturday weeks keyed
  by their closing Saturday, and weeks are classified against a recurring
  pay cycle. All of that is plain day counting, so this package never
  touches a time zone.

KEY CONCEPTS IN THIS FILE (date.go):
  - Date: a day on the proleptic Gregorian calendar, stored as a day count
    since 1970-01-01. No clock, no location, no DST.
  - ParseDate: strict YYYY-MM-DD parsing with InvalidDateError on failure.
  - WeekEnding / WeekStart: the Saturday closing a date's week and the
    Sunday opening it.

DAY COUNT:
  Differences are integer subtraction of day numbers. Nothing here
  subtracts time.Time instants, so DST transitions cannot shift a result.

SEE ALSO:
  - period.go: Inclusive date ranges
  - paycycle.go: Pay-week classification
  - holidays.go: US federal holiday lookup
*/
package calendar

import (
	"database/sql/driver"
	"fmt"
	"time"
)

const layout = "2006-01-02"

const secondsPerDay = 24 * 60 * 60

// =============================================================================
// DATE - Timezone-naive calendar day
// =============================================================================

// Date is a calendar day. The zero value is 1970-01-01.
type Date struct {
	day int64 // days since 1970-01-01
}

// New returns the date for the given year, month and day. Out-of-range
// values are normalized the way time.Date normalizes them.
func New(year int, month time.Month, day int) Date {
	t := time.Date(year, month, day, 0, 0, 0, 0, time.UTC)
	return Date{day: t.Unix() / secondsPerDay}
}

// FromTime returns the calendar day of t as seen in t's own location.
func FromTime(t time.Time) Date {
	return New(t.Year(), t.Month(), t.Day())
}

// Today returns the current date in the given location. A nil location
// means the process-local zone, which is what a crew member's device shows.
func Today(loc *time.Location) Date {
	now := time.Now()
	if loc != nil {
		now = now.In(loc)
	}
	return FromTime(now)
}

// ParseDate parses a YYYY-MM-DD string. An ISO timestamp is accepted and
// truncated to its date part, so exported records round-trip.
func ParseDate(s string) (Date, error) {
	in := s
	if len(s) > len(layout) && s[len(layout)] == 'T' {
		if err := checkTimestamp(s); err != nil {
			return Date{}, &InvalidDateError{Input: in, Err: err}
		}
		s = s[:len(layout)]
	}
	t, err := time.Parse(layout, s)
	if err != nil {
		return Date{}, &InvalidDateError{Input: in, Err: err}
	}
	return New(t.Year(), t.Month(), t.Day()), nil
}

// Timestamp forms ParseDate accepts: RFC 3339 with a zone, or a local
// time of day without one.
var timestampLayouts = []string{time.RFC3339Nano, "2006-01-02T15:04:05.999999999", "2006-01-02T15:04"}

func checkTimestamp(s string) error {
	var err error
	for _, l := range timestampLayouts {
		if _, err = time.Parse(l, s); err == nil {
			return nil
		}
	}
	return err
}

// MustParse is ParseDate for literals; it panics on bad input.
func MustParse(s string) Date {
	d, err := ParseDate(s)
	if err != nil {
		panic(err)
	}
	return d
}

// Time returns the date as a UTC-midnight instant.
func (d Date) Time() time.Time { return time.Unix(d.day*secondsPerDay, 0).UTC() }

// Properties
func (d Date) Year() int          { return d.Time().Year() }
func (d Date) Month() time.Month  { return d.Time().Month() }
func (d Date) Day() int           { return d.Time().Day() }
func (d Date) String() string     { return d.Time().Format(layout) }
func (d Date) IsWeekend() bool    { wd := d.Weekday(); return wd == time.Saturday || wd == time.Sunday }

// Weekday is computed from the day count. 1970-01-01 was a Thursday.
func (d Date) Weekday() time.Weekday {
	return time.Weekday(mod(d.day+int64(time.Thursday), 7))
}

// Arithmetic
func (d Date) AddDays(n int) Date      { return Date{day: d.day + int64(n)} }
func (d Date) Sub(other Date) int      { return int(d.day - other.day) }
func (d Date) AddMonths(n int) Date    { t := d.Time().AddDate(0, n, 0); return FromTime(t) }

// Comparison
func (d Date) Before(other Date) bool        { return d.day < other.day }
func (d Date) After(other Date) bool         { return d.day > other.day }
func (d Date) Equal(other Date) bool         { return d.day == other.day }
func (d Date) BeforeOrEqual(other Date) bool { return d.day <= other.day }
func (d Date) AfterOrEqual(other Date) bool  { return d.day >= other.day }

// Compare returns -1, 0 or +1, for use with slices.SortFunc.
func (d Date) Compare(other Date) int {
	switch {
	case d.day < other.day:
		return -1
	case d.day > other.day:
		return 1
	}
	return 0
}

// DaysBetween returns to - from in whole days.
func DaysBetween(from, to Date) int { return to.Sub(from) }

// mod is the mathematical modulo: the result has the sign of n.
func mod(a, n int64) int64 {
	return ((a % n) + n) % n
}

// =============================================================================
// WEEK BOUNDARIES - Sunday-Saturday work weeks keyed by their Saturday
// =============================================================================

// WeekEnding returns the Saturday that closes d's Sunday-start week.
// A Saturday maps to itself; any other day shifts forward by
// (6 - weekday + 7) mod 7 days, so the result lies in [d, d+6].
func WeekEnding(d Date) Date {
	shift := mod(int64(time.Saturday)-int64(d.Weekday())+7, 7)
	return d.AddDays(int(shift))
}

// WeekStart returns the Sunday six days before weekEnding.
func WeekStart(weekEnding Date) Date {
	return weekEnding.AddDays(-6)
}

// WeekOf returns the inclusive Sunday-Saturday range containing d.
func WeekOf(d Date) Period {
	end := WeekEnding(d)
	return Period{Start: WeekStart(end), End: end}
}

// =============================================================================
// ENCODING
// =============================================================================

// MarshalText implements encoding.TextMarshaler (and so JSON map keys).
func (d Date) MarshalText() ([]byte, error) {
	return []byte(d.String()), nil
}

// UnmarshalText implements encoding.TextUnmarshaler.
func (d *Date) UnmarshalText(b []byte) error {
	parsed, err := ParseDate(string(b))
	if err != nil {
		return err
	}
	*d = parsed
	return nil
}

// Value implements driver.Valuer; dates are stored as YYYY-MM-DD text.
func (d Date) Value() (driver.Value, error) {
	return d.String(), nil
}

// Scan implements sql.Scanner.
func (d *Date) Scan(src any) error {
	switch v := src.(type) {
	case string:
		return d.UnmarshalText([]byte(v))
	case []byte:
		return d.UnmarshalText(v)
	case time.Time:
		*d = New(v.Year(), v.Month(), v.Day())
		return nil
	default:
		return fmt.Errorf("calendar: cannot scan %T into Date", src)
	}
}
