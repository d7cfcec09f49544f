/*
aggregate.go - Weekly aggregation and pay-cycle roll-up

PURPOSE:
  Turns raw TimeEntry rows into the WeeklySummary the week screen shows
  and, on pay weeks, combines two consecutive summaries into the
  PayCycleTotals the pay-week banner shows.

INVARIANTS (WeeklySummary):
  - TotalST == sum(LineTotals[*].ST) == sum(DailyTotals[*].ST), same for OT
  - TotalHours == TotalST + TotalOT, always recomputed
  - LinesUsed == keys(LineTotals)
  - Rows with zero ST and zero OT enter no bucket and no line set

WEEK MEMBERSHIP:
  AggregateWeek recomputes WeekEnding(WorkDate) for every entry and rejects
  strays with AggregationInputError instead of trusting the caller's
  filtering or the cached WeekEndingDate column.

SEE ALSO:
  - types.go: Summary types
  - service.go: Loads entries and stamps IsPayWeek
*/
package timesheet

import (
	"sort"
	"time"

	"github.com/vrs/time-wizard/calendar"
)

// AggregateWeek summarizes the entries of the week ending on weekEnding.
// IsPayWeek is left false; the caller stamps it from the current pay cycle.
func AggregateWeek(weekEnding calendar.Date, entries []TimeEntry) (WeeklySummary, error) {
	if weekEnding.Weekday() != time.Saturday {
		return WeeklySummary{}, &AggregationInputError{
			WorkDate:   weekEnding,
			WeekEnding: weekEnding,
			Reason:     "week-ending date must be a Saturday",
		}
	}

	for _, e := range entries {
		actual := calendar.WeekEnding(e.WorkDate)
		if !actual.Equal(weekEnding) {
			return WeeklySummary{}, &AggregationInputError{
				WorkDate:   e.WorkDate,
				LineCode:   e.LineCode,
				WeekEnding: weekEnding,
				Actual:     actual,
			}
		}
	}

	summary, err := Aggregate(entries)
	if err != nil {
		return WeeklySummary{}, err
	}
	summary.WeekEndingDate = weekEnding
	return summary, nil
}

// Aggregate accumulates entries without a week check. Reports use it over
// arbitrary ranges.
func Aggregate(entries []TimeEntry) (WeeklySummary, error) {
	s := WeeklySummary{
		LineTotals:  make(map[string]Totals),
		DailyTotals: make(map[calendar.Date]Totals),
	}

	for _, e := range entries {
		if e.STHours.IsNegative() || e.OTHours.IsNegative() {
			return WeeklySummary{}, &AggregationInputError{
				WorkDate: e.WorkDate,
				LineCode: e.LineCode,
				Reason:   "negative hours",
			}
		}
		if e.IsEmpty() {
			continue
		}

		s.TotalST = s.TotalST.Add(e.STHours)
		s.TotalOT = s.TotalOT.Add(e.OTHours)
		s.LineTotals[e.LineCode] = s.LineTotals[e.LineCode].add(e.STHours, e.OTHours)
		s.DailyTotals[e.WorkDate] = s.DailyTotals[e.WorkDate].add(e.STHours, e.OTHours)
	}

	s.TotalHours = s.TotalST.Add(s.TotalOT)
	s.LinesUsed = sortedKeys(s.LineTotals)
	return s, nil
}

// Merge adds two summaries element-wise. The result keeps a's week ending
// and pay-week flag.
func Merge(a, b WeeklySummary) WeeklySummary {
	out := WeeklySummary{
		WeekEndingDate: a.WeekEndingDate,
		IsPayWeek:      a.IsPayWeek,
		TotalST:        a.TotalST.Add(b.TotalST),
		TotalOT:        a.TotalOT.Add(b.TotalOT),
		LineTotals:     mergeTotals(a.LineTotals, b.LineTotals),
		DailyTotals:    make(map[calendar.Date]Totals, len(a.DailyTotals)+len(b.DailyTotals)),
	}
	for d, t := range a.DailyTotals {
		out.DailyTotals[d] = out.DailyTotals[d].Plus(t)
	}
	for d, t := range b.DailyTotals {
		out.DailyTotals[d] = out.DailyTotals[d].Plus(t)
	}
	out.TotalHours = out.TotalST.Add(out.TotalOT)
	out.LinesUsed = sortedKeys(out.LineTotals)
	return out
}

// CombinePayCycle rolls the previous week into a pay week. previous may be
// nil when the prior week has no data; it then counts as zero hours and no
// lines. A non-nil previous must end exactly seven days before current.
func CombinePayCycle(current WeeklySummary, previous *WeeklySummary) (PayCycleTotals, error) {
	if !current.IsPayWeek {
		return PayCycleTotals{}, ErrNotPayWeek
	}

	prevEnding := current.WeekEndingDate.AddDays(-7)
	prev := WeeklySummary{WeekEndingDate: prevEnding}
	if previous != nil {
		if !previous.WeekEndingDate.Equal(prevEnding) {
			return PayCycleTotals{}, &AggregationInputError{
				WorkDate:   previous.WeekEndingDate,
				WeekEnding: prevEnding,
				Actual:     previous.WeekEndingDate,
				Reason:     "previous summary must end " + prevEnding.String(),
			}
		}
		prev = *previous
	}

	lineTotals := mergeTotals(current.LineTotals, prev.LineTotals)
	totals := PayCycleTotals{
		WeekEndingDate:     current.WeekEndingDate,
		PreviousWeekEnding: prevEnding,
		TotalST:            current.TotalST.Add(prev.TotalST),
		TotalOT:            current.TotalOT.Add(prev.TotalOT),
		LinesUsed:          unionLines(current.LinesUsed, prev.LinesUsed),
		LineTotals:         lineTotals,
	}
	totals.TotalHours = totals.TotalST.Add(totals.TotalOT)
	return totals, nil
}

func mergeTotals(a, b map[string]Totals) map[string]Totals {
	out := make(map[string]Totals, len(a)+len(b))
	for k, t := range a {
		out[k] = out[k].Plus(t)
	}
	for k, t := range b {
		out[k] = out[k].Plus(t)
	}
	return out
}

func unionLines(a, b []string) []string {
	seen := make(map[string]struct{}, len(a)+len(b))
	for _, l := range a {
		seen[l] = struct{}{}
	}
	for _, l := range b {
		seen[l] = struct{}{}
	}
	return sortedKeys(seen)
}

func sortedKeys[V any](m map[string]V) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
