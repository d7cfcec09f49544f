package calendar

import "time"

// =============================================================================
// PERIOD - Inclusive date range
// =============================================================================

// Period is the inclusive range [Start, End]. Weeks, report ranges and
// on-call shifts are all periods.
type Period struct {
	Start Date `json:"start"`
	End   Date `json:"end"`
}

// NewPeriod returns [start, end] or ErrInvalidPeriod when end precedes start.
func NewPeriod(start, end Date) (Period, error) {
	if end.Before(start) {
		return Period{}, ErrInvalidPeriod
	}
	return Period{Start: start, End: end}, nil
}

// Contains returns true if d is within [Start, End].
func (p Period) Contains(d Date) bool {
	return d.AfterOrEqual(p.Start) && d.BeforeOrEqual(p.End)
}

// Overlaps returns true if the two ranges share at least one day.
func (p Period) Overlaps(other Period) bool {
	return p.Start.BeforeOrEqual(other.End) && p.End.AfterOrEqual(other.Start)
}

// Equal reports an exact start and end match.
func (p Period) Equal(other Period) bool {
	return p.Start.Equal(other.Start) && p.End.Equal(other.End)
}

// Len returns the number of days in the period.
func (p Period) Len() int {
	if p.End.Before(p.Start) {
		return 0
	}
	return p.End.Sub(p.Start) + 1
}

// Days returns every day in the period.
func (p Period) Days() []Date {
	days := make([]Date, 0, p.Len())
	for current := p.Start; current.BeforeOrEqual(p.End); current = current.AddDays(1) {
		days = append(days, current)
	}
	return days
}

// String returns a string representation of the period.
func (p Period) String() string {
	return "[" + p.Start.String() + ", " + p.End.String() + "]"
}

// Month returns the first through last day of a calendar month.
func Month(year int, month time.Month) Period {
	start := New(year, month, 1)
	return Period{Start: start, End: start.AddMonths(1).AddDays(-1)}
}

// WeekendsInMonth returns the Saturday-Sunday pairs of a month. A weekend is
// included only when both days fall inside the month, which is how the
// on-call rotation is published.
func WeekendsInMonth(year int, month time.Month) []Period {
	m := Month(year, month)
	var weekends []Period
	for _, d := range m.Days() {
		if d.Weekday() != time.Saturday {
			continue
		}
		sunday := d.AddDays(1)
		if !m.Contains(sunday) {
			continue
		}
		weekends = append(weekends, Period{Start: d, End: sunday})
	}
	return weekends
}
