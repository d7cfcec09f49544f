package timesheet_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/vrs/time-wizard/calendar"
	"github.com/vrs/time-wizard/timesheet"
)

func d(s string) calendar.Date { return calendar.MustParse(s) }

func h(n float64) timesheet.Hours { return timesheet.NewHoursFromFloat(n) }

func entry(date, line string, st, ot float64) timesheet.TimeEntry {
	return timesheet.TimeEntry{WorkDate: d(date), LineCode: line, STHours: h(st), OTHours: h(ot)}
}

func assertHours(t *testing.T, want float64, got timesheet.Hours, msgAndArgs ...any) {
	t.Helper()
	assert.True(t, h(want).Equal(got), append([]any{"want %v, got %s", want, got}, msgAndArgs...)...)
}

// =============================================================================
// WEEKLY AGGREGATION
// =============================================================================

func TestAggregateWeek_ConcreteScenario(t *testing.T) {
	// GIVEN: two VTR days and a PTO half day in the week ending 2025-11-15
	entries := []timesheet.TimeEntry{
		entry("2025-11-10", "VTR", 8, 0),
		entry("2025-11-11", "VTR", 8, 2),
		entry("2025-11-11", "PTO", 4, 0),
	}

	// WHEN: aggregating
	s, err := timesheet.AggregateWeek(d("2025-11-15"), entries)
	require.NoError(t, err)

	// THEN: totals, lines and per-line totals match
	assertHours(t, 20, s.TotalST)
	assertHours(t, 2, s.TotalOT)
	assertHours(t, 22, s.TotalHours)
	assert.Equal(t, []string{"PTO", "VTR"}, s.LinesUsed)

	assertHours(t, 16, s.LineTotals["VTR"].ST)
	assertHours(t, 2, s.LineTotals["VTR"].OT)
	assertHours(t, 18, s.LineTotals["VTR"].Total)
	assertHours(t, 4, s.LineTotals["PTO"].ST)
	assertHours(t, 0, s.LineTotals["PTO"].OT)
	assertHours(t, 4, s.LineTotals["PTO"].Total)

	assertHours(t, 14, s.DailyTotals[d("2025-11-11")].Total)
	assert.Equal(t, d("2025-11-15"), s.WeekEndingDate)
}

func TestAggregateWeek_Invariants(t *testing.T) {
	entries := []timesheet.TimeEntry{
		entry("2025-11-09", "GMRC", 6, 1.5),
		entry("2025-11-12", "GMRC", 8, 0),
		entry("2025-11-12", "NHC", 2, 3),
		entry("2025-11-15", "HOLIDAY", 8, 0),
		entry("2025-11-14", "CLP", 0, 0),
	}

	s, err := timesheet.AggregateWeek(d("2025-11-15"), entries)
	require.NoError(t, err)

	var lineST, lineOT, dayST, dayOT timesheet.Hours
	for _, tot := range s.LineTotals {
		lineST, lineOT = lineST.Add(tot.ST), lineOT.Add(tot.OT)
	}
	for _, tot := range s.DailyTotals {
		dayST, dayOT = dayST.Add(tot.ST), dayOT.Add(tot.OT)
	}
	assert.True(t, s.TotalST.Equal(lineST))
	assert.True(t, s.TotalST.Equal(dayST))
	assert.True(t, s.TotalOT.Equal(lineOT))
	assert.True(t, s.TotalOT.Equal(dayOT))
	assert.True(t, s.TotalHours.Equal(s.TotalST.Add(s.TotalOT)))

	// Zero-hour rows contribute nothing, not even a line.
	assert.NotContains(t, s.LinesUsed, "CLP")
	assert.Len(t, s.LinesUsed, len(s.LineTotals))
}

func TestAggregateWeek_RejectsStrayEntry(t *testing.T) {
	// GIVEN: an entry from the following week
	entries := []timesheet.TimeEntry{
		entry("2025-11-10", "VTR", 8, 0),
		entry("2025-11-16", "VTR", 8, 0),
	}

	_, err := timesheet.AggregateWeek(d("2025-11-15"), entries)

	var aggErr *timesheet.AggregationInputError
	require.ErrorAs(t, err, &aggErr)
	assert.Equal(t, d("2025-11-16"), aggErr.WorkDate)
	assert.Equal(t, d("2025-11-22"), aggErr.Actual)
	assert.True(t, timesheet.IsClientError(err))
}

func TestAggregateWeek_RejectsNonSaturday(t *testing.T) {
	_, err := timesheet.AggregateWeek(d("2025-11-14"), nil)
	assert.ErrorIs(t, err, timesheet.ErrAggregationInput)
}

func TestAggregateWeek_Empty(t *testing.T) {
	s, err := timesheet.AggregateWeek(d("2025-11-15"), nil)
	require.NoError(t, err)
	assert.True(t, s.TotalHours.IsZero())
	assert.Empty(t, s.LinesUsed)
	assert.NotNil(t, s.LineTotals)
}

func TestAggregate_RejectsNegativeHours(t *testing.T) {
	_, err := timesheet.Aggregate([]timesheet.TimeEntry{entry("2025-11-10", "VTR", -1, 0)})
	assert.ErrorIs(t, err, timesheet.ErrAggregationInput)
}

func TestAggregate_Additivity(t *testing.T) {
	all := []timesheet.TimeEntry{
		entry("2025-11-09", "VTR", 8, 0),
		entry("2025-11-10", "VTR", 8, 2),
		entry("2025-11-10", "PTO", 4, 0),
		entry("2025-11-11", "GMRC", 7.5, 1),
		entry("2025-11-12", "NYOG", 3, 0),
		entry("2025-11-13", "VTR", 0, 4),
	}

	// Every split of the entries into two groups gives the same aggregate.
	for mask := 0; mask < 1<<len(all); mask++ {
		var a, b []timesheet.TimeEntry
		for i, e := range all {
			if mask&(1<<i) != 0 {
				a = append(a, e)
			} else {
				b = append(b, e)
			}
		}
		whole, err := timesheet.Aggregate(all)
		require.NoError(t, err)
		sa, err := timesheet.Aggregate(a)
		require.NoError(t, err)
		sb, err := timesheet.Aggregate(b)
		require.NoError(t, err)
		merged := timesheet.Merge(sa, sb)

		require.True(t, whole.TotalST.Equal(merged.TotalST), "mask %b", mask)
		require.True(t, whole.TotalOT.Equal(merged.TotalOT), "mask %b", mask)
		require.Equal(t, whole.LinesUsed, merged.LinesUsed, "mask %b", mask)
		for line, want := range whole.LineTotals {
			got := merged.LineTotals[line]
			require.True(t, want.ST.Equal(got.ST) && want.OT.Equal(got.OT), "mask %b line %s", mask, line)
		}
		for day, want := range whole.DailyTotals {
			got := merged.DailyTotals[day]
			require.True(t, want.ST.Equal(got.ST) && want.OT.Equal(got.OT), "mask %b day %s", mask, day)
		}
	}
}

// =============================================================================
// PAY-CYCLE ROLL-UP
// =============================================================================

func weekSummary(t *testing.T, weekEnding string, payWeek bool, entries ...timesheet.TimeEntry) timesheet.WeeklySummary {
	t.Helper()
	s, err := timesheet.AggregateWeek(d(weekEnding), entries)
	require.NoError(t, err)
	s.IsPayWeek = payWeek
	return s
}

func TestCombinePayCycle_Conservation(t *testing.T) {
	current := weekSummary(t, "2025-11-29", true,
		entry("2025-11-24", "VTR", 8, 1),
		entry("2025-11-25", "PTO", 8, 0),
	)
	previous := weekSummary(t, "2025-11-22", false,
		entry("2025-11-17", "VTR", 8, 0),
		entry("2025-11-18", "GMRC", 6, 2.5),
	)

	totals, err := timesheet.CombinePayCycle(current, &previous)
	require.NoError(t, err)

	assert.True(t, totals.TotalHours.Equal(current.TotalHours.Add(previous.TotalHours)))
	assertHours(t, 30, totals.TotalST)
	assertHours(t, 3.5, totals.TotalOT)
	assert.Equal(t, []string{"GMRC", "PTO", "VTR"}, totals.LinesUsed)
	assertHours(t, 17, totals.LineTotals["VTR"].Total)
	assert.Equal(t, d("2025-11-22"), totals.PreviousWeekEnding)
}

func TestCombinePayCycle_NilPrevious(t *testing.T) {
	current := weekSummary(t, "2025-11-29", true, entry("2025-11-24", "VTR", 8, 0))

	totals, err := timesheet.CombinePayCycle(current, nil)
	require.NoError(t, err)
	assertHours(t, 8, totals.TotalHours)
	assert.Equal(t, []string{"VTR"}, totals.LinesUsed)
}

func TestCombinePayCycle_Errors(t *testing.T) {
	notPay := weekSummary(t, "2025-11-22", false)
	_, err := timesheet.CombinePayCycle(notPay, nil)
	assert.ErrorIs(t, err, timesheet.ErrNotPayWeek)

	current := weekSummary(t, "2025-11-29", true)
	wrong := weekSummary(t, "2025-11-15", false)
	_, err = timesheet.CombinePayCycle(current, &wrong)
	assert.ErrorIs(t, err, timesheet.ErrAggregationInput)
}

// =============================================================================
// ENTRY POLICY
// =============================================================================

func TestCheckIncrementST_Limits(t *testing.T) {
	vtr := timesheet.LineCode{Code: "VTR", OTAllowed: true}
	day := d("2025-11-24")

	assert.NoError(t, timesheet.CheckIncrementST(vtr, day, h(7), h(20), timesheet.Step))

	err := timesheet.CheckIncrementST(vtr, day, h(8), h(20), timesheet.Step)
	var pv *timesheet.PolicyViolation
	require.ErrorAs(t, err, &pv)
	assert.Equal(t, timesheet.RuleDailyST, pv.Rule)

	err = timesheet.CheckIncrementST(vtr, day, h(2), h(40), timesheet.Step)
	require.ErrorAs(t, err, &pv)
	assert.Equal(t, timesheet.RuleWeeklyST, pv.Rule)
	assert.ErrorIs(t, err, timesheet.ErrPolicyViolation)
}

func TestCheckIncrementOT_NoOvertimeLines(t *testing.T) {
	for _, l := range timesheet.DefaultLines() {
		err := timesheet.CheckIncrementOT(l, d("2025-11-24"))
		if l.Code == "PTO" || l.Code == "HOLIDAY" {
			assert.Error(t, err, l.Code)
		} else {
			assert.NoError(t, err, l.Code)
		}
	}
}

func TestCheckEntry(t *testing.T) {
	vtr := timesheet.LineCode{Code: "VTR", OTAllowed: true}
	pto := timesheet.LineCode{Code: "PTO", OTAllowed: false}

	assert.NoError(t, timesheet.CheckEntry(vtr, entry("2025-11-24", "VTR", 8, 4), h(32)))
	assert.Error(t, timesheet.CheckEntry(vtr, entry("2025-11-24", "VTR", 9, 0), h(0)))
	assert.Error(t, timesheet.CheckEntry(vtr, entry("2025-11-24", "VTR", 8, 0), h(33)))
	assert.Error(t, timesheet.CheckEntry(vtr, entry("2025-11-24", "VTR", -1, 0), h(0)))
	assert.Error(t, timesheet.CheckEntry(pto, entry("2025-11-24", "PTO", 8, 1), h(0)))
	assert.NoError(t, timesheet.CheckEntry(pto, entry("2025-11-24", "PTO", 8, 0), h(0)))
}

func TestDecrement_FloorsAtZero(t *testing.T) {
	assertHours(t, 2, timesheet.Decrement(h(3), timesheet.Step))
	assertHours(t, 0, timesheet.Decrement(h(0.5), timesheet.Step))
	assertHours(t, 0, timesheet.Decrement(h(0), timesheet.Step))
}

func TestHours_JSON(t *testing.T) {
	b, err := h(7.5).MarshalJSON()
	require.NoError(t, err)
	assert.Equal(t, "7.5", string(b))

	var parsed timesheet.Hours
	require.NoError(t, parsed.UnmarshalJSON([]byte(`"8"`)))
	assertHours(t, 8, parsed)
}
