package timesheet_test

import (
	"context"
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/vrs/time-wizard/calendar"
	"github.com/vrs/time-wizard/store/memory"
	"github.com/vrs/time-wizard/timesheet"
)

func newTestService(t *testing.T) *timesheet.Service {
	t.Helper()
	return timesheet.NewService(memory.New(), calendar.NewUSFederal(), nil)
}

func key(date, line string) timesheet.EntryKey {
	return timesheet.EntryKey{WorkDate: d(date), LineCode: line}
}

func increment(t *testing.T, svc *timesheet.Service, k timesheet.EntryKey, kind timesheet.HourKind, times int) timesheet.TimeEntry {
	t.Helper()
	var e timesheet.TimeEntry
	var err error
	for i := 0; i < times; i++ {
		e, err = svc.Increment(context.Background(), k, kind)
		require.NoError(t, err)
	}
	return e
}

// =============================================================================
// STEPPER
// =============================================================================

func TestIncrement_DailyLimit(t *testing.T) {
	ctx := context.Background()
	svc := newTestService(t)
	k := key("2025-11-24", "VTR")

	// GIVEN: eight ST hours on one line and day
	e := increment(t, svc, k, timesheet.KindST, 8)
	assertHours(t, 8, e.STHours)
	assert.Equal(t, d("2025-11-29"), e.WeekEndingDate)
	assert.True(t, e.IsPayWeek)

	// WHEN: pressing + once more
	_, err := svc.Increment(ctx, k, timesheet.KindST)

	// THEN: the press is refused and the stored row is unchanged
	var pv *timesheet.PolicyViolation
	require.ErrorAs(t, err, &pv)
	assert.Equal(t, timesheet.RuleDailyST, pv.Rule)

	rows, err := svc.Entries(ctx, d("2025-11-24"))
	require.NoError(t, err)
	require.Len(t, rows, 1)
	assertHours(t, 8, rows[0].STHours)
}

func TestIncrement_WeeklyLimit(t *testing.T) {
	ctx := context.Background()
	svc := newTestService(t)

	// GIVEN: 40 ST hours spread over Monday-Friday
	for _, date := range []string{"2025-11-17", "2025-11-18", "2025-11-19", "2025-11-20", "2025-11-21"} {
		increment(t, svc, key(date, "GMRC"), timesheet.KindST, 8)
	}

	// WHEN: adding ST on Saturday
	_, err := svc.Increment(ctx, key("2025-11-22", "GMRC"), timesheet.KindST)

	// THEN: refused with the weekly rule; OT is still accepted
	var pv *timesheet.PolicyViolation
	require.ErrorAs(t, err, &pv)
	assert.Equal(t, timesheet.RuleWeeklyST, pv.Rule)

	e, err := svc.Increment(ctx, key("2025-11-22", "GMRC"), timesheet.KindOT)
	require.NoError(t, err)
	assertHours(t, 1, e.OTHours)
}

func TestIncrement_NoOvertimeOnPTO(t *testing.T) {
	svc := newTestService(t)

	_, err := svc.Increment(context.Background(), key("2025-11-24", "PTO"), timesheet.KindOT)
	assert.ErrorIs(t, err, timesheet.ErrPolicyViolation)
}

func TestIncrement_UnknownLine(t *testing.T) {
	svc := newTestService(t)

	_, err := svc.Increment(context.Background(), key("2025-11-24", "NOPE"), timesheet.KindST)
	assert.True(t, timesheet.IsNotFound(err))
}

func TestDecrement_KeepsZeroRow(t *testing.T) {
	ctx := context.Background()
	svc := newTestService(t)
	k := key("2025-11-24", "CLP")

	increment(t, svc, k, timesheet.KindST, 1)
	e, err := svc.Decrement(ctx, k, timesheet.KindST)
	require.NoError(t, err)
	assert.True(t, e.IsEmpty())

	e, err = svc.Decrement(ctx, k, timesheet.KindST)
	require.NoError(t, err)
	assertHours(t, 0, e.STHours)

	rows, err := svc.Entries(ctx, d("2025-11-24"))
	require.NoError(t, err)
	assert.Len(t, rows, 1)
}

func TestDecrement_NoRowIsNoOp(t *testing.T) {
	ctx := context.Background()
	svc := newTestService(t)

	// WHEN: decrementing a (date, line) that was never touched
	e, err := svc.Decrement(ctx, key("2025-11-24", "GMRC"), timesheet.KindOT)

	// THEN: the empty entry comes back and nothing is stored
	require.NoError(t, err)
	assert.True(t, e.IsEmpty())
	assert.Equal(t, d("2025-11-29"), e.WeekEndingDate)

	rows, err := svc.Entries(ctx, d("2025-11-24"))
	require.NoError(t, err)
	assert.Empty(t, rows)

	_, err = svc.Decrement(ctx, key("2025-11-24", "GMRC"), timesheet.HourKind("xx"))
	assert.ErrorIs(t, err, timesheet.ErrInvalidEntry)
}

func TestSetHours(t *testing.T) {
	ctx := context.Background()
	svc := newTestService(t)

	e, err := svc.SetHours(ctx, entry("2025-11-25", "NEGS", 7.5, 2))
	require.NoError(t, err)
	assertHours(t, 9.5, e.TotalHours())

	_, err = svc.SetHours(ctx, entry("2025-11-25", "NEGS", 9, 0))
	assert.ErrorIs(t, err, timesheet.ErrPolicyViolation)

	// Rewriting the same entry does not count its old hours twice.
	_, err = svc.SetHours(ctx, entry("2025-11-25", "NEGS", 8, 0))
	assert.NoError(t, err)
}

// =============================================================================
// SUMMARIES
// =============================================================================

func TestDashboard_PayWeekRollUp(t *testing.T) {
	ctx := context.Background()
	svc := newTestService(t)

	// GIVEN: hours in a non-pay week and the pay week after it
	increment(t, svc, key("2025-11-18", "VTR"), timesheet.KindST, 8)
	increment(t, svc, key("2025-11-25", "VTR"), timesheet.KindST, 6)
	increment(t, svc, key("2025-11-25", "VTR"), timesheet.KindOT, 2)

	// WHEN: viewing the pay week
	dash, err := svc.Dashboard(ctx, d("2025-11-26"))
	require.NoError(t, err)

	// THEN: the roll-up covers both weeks and Thanksgiving is annotated
	assert.True(t, dash.Week.IsPayWeek)
	assertHours(t, 8, dash.Summary.TotalHours)
	require.NotNil(t, dash.PayCycle)
	assertHours(t, 16, dash.PayCycle.TotalHours)
	assert.Equal(t, d("2025-11-22"), dash.PayCycle.PreviousWeekEnding)
	require.NotEmpty(t, dash.Week.Holidays)
	assert.Equal(t, d("2025-11-27"), dash.Week.Holidays[0].Date)

	// AND: the week before has no roll-up
	prev, err := svc.PayCycleSummary(ctx, d("2025-11-18"))
	require.NoError(t, err)
	assert.Nil(t, prev)
}

func TestWeeklySummary_FollowsPayCycleSettings(t *testing.T) {
	ctx := context.Background()
	svc := newTestService(t)
	increment(t, svc, key("2025-11-18", "VTR"), timesheet.KindST, 4)

	s, err := svc.WeeklySummary(ctx, d("2025-11-18"))
	require.NoError(t, err)
	assert.False(t, s.IsPayWeek)

	// Moving the base flips the flag without rewriting rows.
	require.NoError(t, svc.UpdateSetting(ctx, calendar.SettingBasePayWeekEnding, "2025-11-22"))
	s, err = svc.WeeklySummary(ctx, d("2025-11-18"))
	require.NoError(t, err)
	assert.True(t, s.IsPayWeek)
}

func TestUpdateSetting_RejectsBadPayCycle(t *testing.T) {
	ctx := context.Background()
	svc := newTestService(t)

	err := svc.UpdateSetting(ctx, calendar.SettingBasePayWeekEnding, "2025-11-28")
	assert.True(t, timesheet.IsClientError(err))

	err = svc.UpdateSetting(ctx, calendar.SettingPayFrequencyDays, "0")
	assert.ErrorIs(t, err, calendar.ErrConfiguration)

	err = svc.UpdateSetting(ctx, calendar.SettingBasePayWeekEnding, "not-a-date")
	assert.Error(t, err)

	pc, err := svc.PayCycle(ctx)
	require.NoError(t, err)
	assert.Equal(t, d(calendar.DefaultBasePayWeekEnding), pc.Base)
}

// =============================================================================
// LINES / NOTES
// =============================================================================

func TestProjectLines(t *testing.T) {
	ctx := context.Background()
	svc := newTestService(t)

	line, err := svc.AddProjectLine(ctx, 4521)
	require.NoError(t, err)
	assert.Equal(t, "PROJECT 4521", line.Code)
	assert.Equal(t, 11, line.SortOrder)
	assert.True(t, line.IsProject)

	_, err = svc.AddProjectLine(ctx, 4521)
	assert.True(t, timesheet.IsConflict(err))

	next, err := svc.AddProjectLine(ctx, 7)
	require.NoError(t, err)
	assert.Equal(t, 12, next.SortOrder)

	err = svc.DeleteProjectLine(ctx, "VTR")
	assert.ErrorIs(t, err, timesheet.ErrNotProjectLine)

	increment(t, svc, key("2025-11-24", line.Code), timesheet.KindST, 2)
	require.NoError(t, svc.DeleteProjectLine(ctx, line.Code))

	// Hours logged against a deleted project still count.
	s, err := svc.WeeklySummary(ctx, d("2025-11-24"))
	require.NoError(t, err)
	assert.Contains(t, s.LinesUsed, "PROJECT 4521")
}

func TestAddProjectLine_EmptyLineTable(t *testing.T) {
	ctx := context.Background()
	svc := newTestService(t)

	// GIVEN: an import that leaves no line codes
	_, err := svc.Import(ctx, timesheet.ExportDocument{Settings: timesheet.DefaultSettings()})
	require.NoError(t, err)

	// WHEN
	first, err := svc.AddProjectLine(ctx, 1)

	// THEN: the first project line takes the default slot
	require.NoError(t, err)
	assert.Equal(t, timesheet.FirstProjectSortOrder, first.SortOrder)
}

func TestSetLineVisibility_StillAggregates(t *testing.T) {
	ctx := context.Background()
	svc := newTestService(t)
	increment(t, svc, key("2025-11-24", "NYOG"), timesheet.KindST, 3)

	l, err := svc.SetLineVisibility(ctx, "NYOG", false)
	require.NoError(t, err)
	assert.False(t, l.IsVisible)

	s, err := svc.WeeklySummary(ctx, d("2025-11-24"))
	require.NoError(t, err)
	assertHours(t, 3, s.TotalST)
}

func TestNotes(t *testing.T) {
	ctx := context.Background()
	svc := newTestService(t)
	k := key("2025-11-24", "VTR")

	n, err := svc.SaveNote(ctx, k, "switch 14 tamped")
	require.NoError(t, err)
	require.NotNil(t, n)

	notes, err := svc.NotesForWeek(ctx, d("2025-11-29"))
	require.NoError(t, err)
	require.Len(t, notes, 1)
	assert.Equal(t, "switch 14 tamped", notes[0].NoteText)

	// Blank text clears the note.
	n, err = svc.SaveNote(ctx, k, "   ")
	require.NoError(t, err)
	assert.Nil(t, n)
	notes, err = svc.NotesForWeek(ctx, d("2025-11-29"))
	require.NoError(t, err)
	assert.Empty(t, notes)
}

// =============================================================================
// EXPORT / IMPORT
// =============================================================================

func TestImport_ReplacesEverything(t *testing.T) {
	ctx := context.Background()
	svc := newTestService(t)

	// GIVEN: a store with entries
	increment(t, svc, key("2025-11-24", "VTR"), timesheet.KindST, 8)
	increment(t, svc, key("2025-11-25", "VTR"), timesheet.KindST, 8)

	doc, err := svc.Export(ctx)
	require.NoError(t, err)
	require.Len(t, doc.TimeEntries, 2)

	// WHEN: importing a document with no time entries
	doc.TimeEntries = nil
	res, err := svc.Import(ctx, doc)
	require.NoError(t, err)

	// THEN: the store has no entries at all
	assert.Zero(t, res.Entries)
	after, err := svc.Export(ctx)
	require.NoError(t, err)
	assert.Empty(t, after.TimeEntries)
	assert.Len(t, after.LineCodes, 10)
}

func TestExportImport_RoundTrip(t *testing.T) {
	ctx := context.Background()
	src := newTestService(t)
	increment(t, src, key("2025-11-24", "VTR"), timesheet.KindST, 6)
	increment(t, src, key("2025-11-24", "VTR"), timesheet.KindOT, 1)
	_, err := src.AddProjectLine(ctx, 99)
	require.NoError(t, err)

	doc, err := src.Export(ctx)
	require.NoError(t, err)
	data, err := json.Marshal(doc)
	require.NoError(t, err)

	decoded, err := timesheet.DecodeExport(data)
	require.NoError(t, err)

	dst := newTestService(t)
	_, err = dst.Import(ctx, decoded)
	require.NoError(t, err)

	s, err := dst.WeeklySummary(ctx, d("2025-11-24"))
	require.NoError(t, err)
	assertHours(t, 7, s.TotalHours)

	lines, err := dst.Lines(ctx)
	require.NoError(t, err)
	assert.Equal(t, "PROJECT 99", lines[len(lines)-1].Code)
}

func TestDecodeExport_LegacyDocument(t *testing.T) {
	// GIVEN: an older app export with 0/1 booleans and no ot_allowed
	data := []byte(`{
		"time_entries": [
			{"work_date": "2025-11-10", "line_code": "VTR", "st_hours": 8, "ot_hours": 0,
			 "week_ending_date": "2025-11-15", "is_pay_week": 1}
		],
		"line_codes": [
			{"line_code": "VTR", "label": "VTR", "is_visible": 1, "is_project": 0, "sort_order": 1},
			{"line_code": "PTO", "label": "PTO", "is_visible": 0, "is_project": 0, "sort_order": 9}
		],
		"settings": [
			{"key": "base_pay_week_ending", "value": "2025-11-29"},
			{"key": "pay_frequency_days", "value": "14"}
		],
		"export_date": "2025-11-20T12:00:00Z"
	}`)

	doc, err := timesheet.DecodeExport(data)
	require.NoError(t, err)

	require.Len(t, doc.TimeEntries, 1)
	assert.True(t, doc.TimeEntries[0].IsPayWeek)
	require.Len(t, doc.LineCodes, 2)
	assert.True(t, doc.LineCodes[0].OTAllowed)
	assert.True(t, doc.LineCodes[0].IsVisible)
	assert.False(t, doc.LineCodes[1].OTAllowed)
	assert.False(t, doc.LineCodes[1].IsVisible)
}

func TestImport_RejectsBadDocument(t *testing.T) {
	ctx := context.Background()
	svc := newTestService(t)

	doc := timesheet.ExportDocument{
		LineCodes: []timesheet.LineCode{{Code: "VTR"}, {Code: "VTR"}},
	}
	_, err := svc.Import(ctx, doc)
	assert.ErrorIs(t, err, timesheet.ErrInvalidImport)

	_, err = timesheet.DecodeExport([]byte(`{"time_entries": [`))
	assert.ErrorIs(t, err, timesheet.ErrInvalidImport)

	// An entry without work_date must not be stored on the zero date.
	_, err = timesheet.DecodeExport([]byte(`{"time_entries": [{"line_code": "VTR", "st_hours": 8, "ot_hours": 0}]}`))
	assert.ErrorIs(t, err, timesheet.ErrInvalidImport)

	_, err = timesheet.DecodeExport([]byte(`{"time_entries": [{"work_date": "2025-11-15Tnoon", "line_code": "VTR"}]}`))
	assert.ErrorIs(t, err, timesheet.ErrInvalidImport)
}
