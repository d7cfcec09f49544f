/*
Package report builds date-range hour reports and writes them as CSV or XLSX.

PURPOSE:
  The reports screen lets a worker pick a range (or a quick preset), then
  shows totals, per-line and per-month breakdowns and the raw rows with
  their notes. The same Report feeds the CSV and spreadsheet exports.

DAYS WORKED:
  A day counts as worked when it has any entry row in the range, including
  rows stepped back to zero. The average is total hours over days worked,
  rounded to two places, and zero when no day was worked.

SEE ALSO:
  - timesheet/aggregate.go: Totals come from timesheet.Aggregate
  - export.go: CSV and XLSX writers
*/
package report

import (
	"errors"
	"fmt"
	"slices"
	"strings"

	"github.com/vrs/time-wizard/calendar"
	"github.com/vrs/time-wizard/timesheet"
)

// ErrUnknownRange is returned for a quick-range name QuickRange does not know.
var ErrUnknownRange = errors.New("unknown report range")

// AllTimeStart is the first day of the "alltime" preset.
var AllTimeStart = calendar.New(2020, 1, 1)

// Row is one entry line of the report.
type Row struct {
	WorkDate calendar.Date   `json:"work_date"`
	LineCode string          `json:"line_code"`
	ST       timesheet.Hours `json:"st_hours"`
	OT       timesheet.Hours `json:"ot_hours"`
	Total    timesheet.Hours `json:"total_hours"`
	Note     string          `json:"note,omitempty"`
}

// Report is the summary of one date range.
type Report struct {
	Period         calendar.Period             `json:"period"`
	TotalST        timesheet.Hours             `json:"total_st"`
	TotalOT        timesheet.Hours             `json:"total_ot"`
	TotalHours     timesheet.Hours             `json:"total_hours"`
	DaysWorked     int                         `json:"days_worked"`
	AvgHoursPerDay timesheet.Hours             `json:"avg_hours_per_day"`
	Lines          []string                    `json:"lines"`
	LineTotals     map[string]timesheet.Totals `json:"line_totals"`
	Months         []string                    `json:"months"` // "2006-01", ascending
	MonthTotals    map[string]timesheet.Totals `json:"month_totals"`
	Rows           []Row                       `json:"rows"`
	Notes          []timesheet.WorkNote        `json:"notes"`
}

// Build summarizes entries and notes dated inside period. Rows outside it
// are ignored.
func Build(entries []timesheet.TimeEntry, notes []timesheet.WorkNote, period calendar.Period) (Report, error) {
	var inRange []timesheet.TimeEntry
	days := make(map[calendar.Date]struct{})
	for _, e := range entries {
		if !period.Contains(e.WorkDate) {
			continue
		}
		inRange = append(inRange, e)
		days[e.WorkDate] = struct{}{}
	}

	agg, err := timesheet.Aggregate(inRange)
	if err != nil {
		return Report{}, err
	}

	noteText := make(map[timesheet.EntryKey]string, len(notes))
	r := Report{
		Period:      period,
		TotalST:     agg.TotalST,
		TotalOT:     agg.TotalOT,
		TotalHours:  agg.TotalHours,
		DaysWorked:  len(days),
		Lines:       agg.LinesUsed,
		LineTotals:  agg.LineTotals,
		MonthTotals: make(map[string]timesheet.Totals),
		Notes:       []timesheet.WorkNote{},
		Rows:        make([]Row, 0, len(inRange)),
	}
	for _, n := range notes {
		if period.Contains(n.WorkDate) {
			noteText[n.Key()] = n.NoteText
			r.Notes = append(r.Notes, n)
		}
	}
	if r.DaysWorked > 0 {
		r.AvgHoursPerDay = r.TotalHours.DivRound(r.DaysWorked, 2)
	}

	for day, t := range agg.DailyTotals {
		month := day.String()[:7]
		r.MonthTotals[month] = r.MonthTotals[month].Plus(t)
	}
	for m := range r.MonthTotals {
		r.Months = append(r.Months, m)
	}
	slices.Sort(r.Months)

	for _, e := range inRange {
		r.Rows = append(r.Rows, Row{
			WorkDate: e.WorkDate,
			LineCode: e.LineCode,
			ST:       e.STHours,
			OT:       e.OTHours,
			Total:    e.TotalHours(),
			Note:     noteText[e.Key()],
		})
	}
	slices.SortStableFunc(r.Rows, func(a, b Row) int {
		if c := a.WorkDate.Compare(b.WorkDate); c != 0 {
			return c
		}
		return strings.Compare(a.LineCode, b.LineCode)
	})
	slices.SortStableFunc(r.Notes, func(a, b timesheet.WorkNote) int {
		if c := a.WorkDate.Compare(b.WorkDate); c != 0 {
			return c
		}
		return strings.Compare(a.LineCode, b.LineCode)
	})
	return r, nil
}

// QuickRange resolves a preset name to a period ending today.
func QuickRange(kind string, today calendar.Date) (calendar.Period, error) {
	var start calendar.Date
	switch strings.ToLower(strings.TrimSpace(kind)) {
	case "last30":
		start = today.AddDays(-30)
	case "last3months":
		start = today.AddMonths(-3)
	case "last6months":
		start = today.AddMonths(-6)
	case "lastyear":
		start = today.AddMonths(-12)
	case "ytd":
		start = calendar.New(today.Year(), 1, 1)
	case "alltime":
		start = AllTimeStart
	default:
		return calendar.Period{}, fmt.Errorf("%w: %q", ErrUnknownRange, kind)
	}
	return calendar.Period{Start: start, End: today}, nil
}

// FileName is the download name for a report, e.g.
// work_hours_report_2025-11-01_to_2025-11-30.csv.
func FileName(r Report, ext string) string {
	return fmt.Sprintf("work_hours_report_%s_to_%s.%s", r.Period.Start, r.Period.End, strings.TrimPrefix(ext, "."))
}
