/*
handlers_test.go - HTTP API tests

Tests for:
- Status mapping (400 validation, 404 unknown line, 409 duplicate, 422 policy)
- Stepper, summaries, pay-cycle roll-up
- Notes, export/import, reports
- On-call endpoints and demo scenarios
*/
package api_test

import (
	"bytes"
	"context"
	"encoding/csv"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/vrs/time-wizard/api"
	"github.com/vrs/time-wizard/calendar"
	"github.com/vrs/time-wizard/oncall"
	"github.com/vrs/time-wizard/report"
	"github.com/vrs/time-wizard/store/memory"
	"github.com/vrs/time-wizard/timesheet"
)

type testEnv struct {
	store   *memory.Store
	handler *api.Handler
	router  http.Handler
}

func newEnv(t *testing.T) *testEnv {
	t.Helper()
	store := memory.New()
	ts := timesheet.NewService(store, calendar.NewUSFederal(), nil)
	oc := oncall.NewService(store, nil)
	h := api.NewHandler(ts, oc, nil, time.UTC, nil)
	return &testEnv{store: store, handler: h, router: api.NewRouter(h, api.RouterOptions{})}
}

func (e *testEnv) do(t *testing.T, method, path string, body any) *httptest.ResponseRecorder {
	t.Helper()
	var buf bytes.Buffer
	switch b := body.(type) {
	case nil:
	case string:
		buf.WriteString(b)
	default:
		require.NoError(t, json.NewEncoder(&buf).Encode(b))
	}
	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	rec := httptest.NewRecorder()
	e.router.ServeHTTP(rec, req)
	return rec
}

func decode[T any](t *testing.T, rec *httptest.ResponseRecorder) T {
	t.Helper()
	var v T
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &v), rec.Body.String())
	return v
}

func step(date, line, kind string) map[string]string {
	return map[string]string{"work_date": date, "line_code": line, "kind": kind}
}

// =============================================================================
// TIMESHEET
// =============================================================================

func TestHealth(t *testing.T) {
	env := newEnv(t)
	rec := env.do(t, http.MethodGet, "/api/health", nil)
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "ok", decode[api.HealthResponse](t, rec).Status)
}

func TestWeekInfo(t *testing.T) {
	env := newEnv(t)

	rec := env.do(t, http.MethodGet, "/api/week-info?date=2025-11-26", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	info := decode[map[string]any](t, rec)
	assert.Equal(t, "2025-11-29", info["week_ending_date"])
	assert.Equal(t, "2025-11-23", info["week_start"])
	assert.Equal(t, true, info["is_pay_week"])

	rec = env.do(t, http.MethodGet, "/api/week-info?date=11/26/2025", nil)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestIncrement_ThenWeeklySummary(t *testing.T) {
	env := newEnv(t)

	// GIVEN: three ST hours on VTR
	for i := 0; i < 3; i++ {
		rec := env.do(t, http.MethodPost, "/api/entries/increment", step("2025-11-18", "VTR", "st"))
		require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	}

	// WHEN
	rec := env.do(t, http.MethodGet, "/api/weekly-summary?week_ending=2025-11-22", nil)
	require.Equal(t, http.StatusOK, rec.Code)

	// THEN
	summary := decode[map[string]any](t, rec)
	assert.Equal(t, 3.0, summary["total_st"])
	assert.Equal(t, 3.0, summary["total_hours"])
	assert.Equal(t, []any{"VTR"}, summary["lines_used"])
	assert.Equal(t, false, summary["is_pay_week"])
}

func TestIncrement_DailyLimitIs422(t *testing.T) {
	env := newEnv(t)
	for i := 0; i < 8; i++ {
		require.Equal(t, http.StatusOK, env.do(t, http.MethodPost, "/api/entries/increment", step("2025-11-18", "VTR", "st")).Code)
	}

	rec := env.do(t, http.MethodPost, "/api/entries/increment", step("2025-11-18", "VTR", "st"))

	assert.Equal(t, http.StatusUnprocessableEntity, rec.Code)
	assert.NotEmpty(t, decode[api.ErrorResponse](t, rec).Details)
}

func TestIncrement_OTOnPTOIs422(t *testing.T) {
	env := newEnv(t)
	rec := env.do(t, http.MethodPost, "/api/entries/increment", step("2025-11-18", "PTO", "ot"))
	assert.Equal(t, http.StatusUnprocessableEntity, rec.Code)
}

func TestIncrement_UnknownLineIs404(t *testing.T) {
	env := newEnv(t)
	rec := env.do(t, http.MethodPost, "/api/entries/increment", step("2025-11-18", "NOPE", "st"))
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestStep_ValidationErrors(t *testing.T) {
	env := newEnv(t)

	tests := []struct {
		name string
		body any
	}{
		{"bad kind", step("2025-11-18", "VTR", "double")},
		{"bad date", step("18/11/2025", "VTR", "st")},
		{"missing line", step("2025-11-18", "", "st")},
		{"not json", "{"},
		{"unknown field", `{"work_date":"2025-11-18","line_code":"VTR","kind":"st","extra":1}`},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := env.do(t, http.MethodPost, "/api/entries/increment", tt.body)
			assert.Equal(t, http.StatusBadRequest, rec.Code)
		})
	}
}

func TestDecrement_FloorsAtZero(t *testing.T) {
	env := newEnv(t)
	rec := env.do(t, http.MethodPost, "/api/entries/decrement", step("2025-11-18", "VTR", "st"))
	require.Equal(t, http.StatusOK, rec.Code)
	entry := decode[map[string]any](t, rec)
	assert.Equal(t, 0.0, entry["st_hours"])

	rec = env.do(t, http.MethodGet, "/api/entries?week_ending=2025-11-22", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Empty(t, decode[map[string]any](t, rec)["entries"])
}

func TestSetEntry(t *testing.T) {
	env := newEnv(t)

	rec := env.do(t, http.MethodPost, "/api/entries", map[string]any{
		"work_date": "2025-11-18", "line_code": "GMRC", "st_hours": 6.5, "ot_hours": 1,
	})
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	rec = env.do(t, http.MethodGet, "/api/entries?week_ending=2025-11-22", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	var resp struct {
		Entries []timesheet.TimeEntry `json:"entries"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	require.Len(t, resp.Entries, 1)
	assert.Equal(t, "6.50", resp.Entries[0].STHours.String())
	assert.Equal(t, calendar.MustParse("2025-11-22"), resp.Entries[0].WeekEndingDate)

	// Missing hours fail validation rather than default to zero
	rec = env.do(t, http.MethodPost, "/api/entries", map[string]any{"work_date": "2025-11-18", "line_code": "GMRC"})
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestPayCycle_NullOffPayWeek(t *testing.T) {
	env := newEnv(t)
	rec := env.do(t, http.MethodGet, "/api/pay-cycle?week_ending=2025-11-22", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "null", strings.TrimSpace(rec.Body.String()))
}

func TestLines_AddDuplicateDelete(t *testing.T) {
	env := newEnv(t)

	rec := env.do(t, http.MethodPost, "/api/lines", map[string]int{"project_number": 42})
	require.Equal(t, http.StatusCreated, rec.Code)
	line := decode[timesheet.LineCode](t, rec)
	assert.Equal(t, "PROJECT 42", line.Code)

	rec = env.do(t, http.MethodPost, "/api/lines", map[string]int{"project_number": 42})
	assert.Equal(t, http.StatusConflict, rec.Code)

	rec = env.do(t, http.MethodPost, "/api/lines", map[string]int{"project_number": 0})
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = env.do(t, http.MethodPut, "/api/lines/PROJECT%2042", map[string]bool{"is_visible": false})
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	assert.False(t, decode[timesheet.LineCode](t, rec).IsVisible)

	rec = env.do(t, http.MethodDelete, "/api/lines/VTR", nil)
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = env.do(t, http.MethodDelete, "/api/lines/PROJECT%2042", nil)
	assert.Equal(t, http.StatusNoContent, rec.Code)
}

func TestUpdateSetting(t *testing.T) {
	env := newEnv(t)

	rec := env.do(t, http.MethodPut, "/api/settings/base_pay_week_ending", map[string]string{"value": "2025-11-27"})
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = env.do(t, http.MethodPut, "/api/settings/pay_frequency_days", map[string]string{"value": "0"})
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = env.do(t, http.MethodPut, "/api/settings/base_pay_week_ending", map[string]string{"value": "2025-11-22"})
	require.Equal(t, http.StatusOK, rec.Code)

	rec = env.do(t, http.MethodGet, "/api/week-info?date=2025-11-20", nil)
	assert.Equal(t, true, decode[map[string]any](t, rec)["is_pay_week"])
}

func TestNotes(t *testing.T) {
	env := newEnv(t)

	rec := env.do(t, http.MethodPut, "/api/notes", map[string]string{
		"work_date": "2025-11-18", "line_code": "VTR", "note_text": "tie renewal MP 12",
	})
	require.Equal(t, http.StatusOK, rec.Code)

	rec = env.do(t, http.MethodGet, "/api/notes?week_ending=2025-11-22", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	notes := decode[[]timesheet.WorkNote](t, rec)
	require.Len(t, notes, 1)
	assert.Equal(t, "tie renewal MP 12", notes[0].NoteText)

	rec = env.do(t, http.MethodPut, "/api/notes", map[string]string{
		"work_date": "2025-11-18", "line_code": "VTR", "note_text": "  ",
	})
	assert.Equal(t, http.StatusNoContent, rec.Code)

	rec = env.do(t, http.MethodGet, "/api/notes?week_ending=2025-11-22", nil)
	assert.Empty(t, decode[[]timesheet.WorkNote](t, rec))

	rec = env.do(t, http.MethodDelete, "/api/notes?work_date=2025-11-18", nil)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestExportImport(t *testing.T) {
	env := newEnv(t)
	require.Equal(t, http.StatusOK, env.do(t, http.MethodPost, "/api/entries/increment", step("2025-11-18", "VTR", "st")).Code)

	// GIVEN: an export with one entry
	rec := env.do(t, http.MethodGet, "/api/export", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Header().Get("Content-Disposition"), "timesheet_backup_")
	exported := rec.Body.String()

	// WHEN: importing a document with no entries
	rec = env.do(t, http.MethodPost, "/api/import", timesheet.ExportDocument{
		TimeEntries: []timesheet.TimeEntry{},
		LineCodes:   timesheet.DefaultLines(),
		Settings:    timesheet.DefaultSettings(),
	})
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	// THEN: nothing is merged
	rec = env.do(t, http.MethodGet, "/api/entries?week_ending=2025-11-22", nil)
	assert.Contains(t, rec.Body.String(), `"entries":[]`)

	// AND: re-importing the export restores the entry
	rec = env.do(t, http.MethodPost, "/api/import", exported)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	rec = env.do(t, http.MethodGet, "/api/weekly-summary?week_ending=2025-11-22", nil)
	assert.Equal(t, 1.0, decode[map[string]any](t, rec)["total_st"])

	rec = env.do(t, http.MethodPost, "/api/import", "not json")
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestReport(t *testing.T) {
	env := newEnv(t)
	rec := env.do(t, http.MethodPost, "/api/entries", map[string]any{
		"work_date": "2025-11-18", "line_code": "VTR", "st_hours": 8, "ot_hours": 2,
	})
	require.Equal(t, http.StatusOK, rec.Code)

	t.Run("json", func(t *testing.T) {
		rec := env.do(t, http.MethodGet, "/api/reports?start_date=2025-11-01&end_date=2025-11-30", nil)
		require.Equal(t, http.StatusOK, rec.Code)
		rep := decode[map[string]any](t, rec)
		assert.Equal(t, 10.0, rep["total_hours"])
		assert.Equal(t, 1.0, rep["days_worked"])
	})

	t.Run("csv", func(t *testing.T) {
		rec := env.do(t, http.MethodGet, "/api/reports?start_date=2025-11-01&end_date=2025-11-30&format=csv", nil)
		require.Equal(t, http.StatusOK, rec.Code)
		assert.Contains(t, rec.Header().Get("Content-Type"), "text/csv")
		assert.Contains(t, rec.Header().Get("Content-Disposition"), "work_hours_report_2025-11-01_to_2025-11-30.csv")

		records, err := csv.NewReader(rec.Body).ReadAll()
		require.NoError(t, err)
		require.Len(t, records, 2)
		assert.Equal(t, report.CSVHeader, records[0])
	})

	t.Run("xlsx", func(t *testing.T) {
		rec := env.do(t, http.MethodGet, "/api/reports?range=alltime&format=xlsx", nil)
		require.Equal(t, http.StatusOK, rec.Code)
		assert.True(t, bytes.HasPrefix(rec.Body.Bytes(), []byte("PK")))
	})

	t.Run("errors", func(t *testing.T) {
		assert.Equal(t, http.StatusBadRequest, env.do(t, http.MethodGet, "/api/reports?range=fortnight", nil).Code)
		assert.Equal(t, http.StatusBadRequest, env.do(t, http.MethodGet, "/api/reports?start_date=2025-11-30&end_date=2025-11-01", nil).Code)
		assert.Equal(t, http.StatusBadRequest, env.do(t, http.MethodGet, "/api/reports?range=ytd&format=pdf", nil).Code)
	})
}

// =============================================================================
// ON-CALL
// =============================================================================

const rotation = "start_date,end_date,user,notes\n2025-11-15,2025-11-16,Alice,\n2025-11-14,2025-11-17,Bob,long weekend\n"

func TestOnCall_ImportQueryAndUsers(t *testing.T) {
	env := newEnv(t)

	rec := env.do(t, http.MethodPost, "/api/oncall/import", rotation)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	assert.Equal(t, 2.0, decode[map[string]any](t, rec)["entries"])

	rec = env.do(t, http.MethodPost, "/api/oncall/users", map[string]any{"user_name": "Alice", "is_current": true})
	require.Equal(t, http.StatusCreated, rec.Code)

	// Containment: both cover the 16th
	rec = env.do(t, http.MethodGet, "/api/oncall/date/2025-11-16", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	var byDate struct {
		Assignments []oncall.Assignment `json:"assignments"`
		IsMine      bool                `json:"is_mine"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &byDate))
	assert.Len(t, byDate.Assignments, 2)
	assert.True(t, byDate.IsMine)

	// Exact range: Alice owns the weekend, not the 14th-15th
	rec = env.do(t, http.MethodGet, "/api/oncall?start_date=2025-11-15&end_date=2025-11-16", nil)
	assert.Equal(t, true, decode[map[string]any](t, rec)["is_mine"])
	rec = env.do(t, http.MethodGet, "/api/oncall?start_date=2025-11-14&end_date=2025-11-15", nil)
	assert.Equal(t, false, decode[map[string]any](t, rec)["is_mine"])

	rec = env.do(t, http.MethodGet, "/api/oncall/users", nil)
	assert.Len(t, decode[[]oncall.User](t, rec), 2)

	rec = env.do(t, http.MethodGet, "/api/oncall/weekends?year=2025&month=11", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Len(t, decode[[]oncall.Weekend](t, rec), 5)

	rec = env.do(t, http.MethodGet, "/api/oncall/weekends?month=13", nil)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestOnCall_AssignmentsAndSwap(t *testing.T) {
	env := newEnv(t)
	body := map[string]string{"start_date": "2025-11-22", "end_date": "2025-11-23", "user_name": "Carol"}

	rec := env.do(t, http.MethodPost, "/api/oncall/assignments", body)
	require.Equal(t, http.StatusCreated, rec.Code)
	created := decode[oncall.Assignment](t, rec)

	rec = env.do(t, http.MethodPost, "/api/oncall/assignments", body)
	assert.Equal(t, http.StatusConflict, rec.Code)

	rec = env.do(t, http.MethodPost, "/api/oncall/assignments/"+created.ID+"/swap", map[string]string{"new_user_name": "Dave"})
	require.Equal(t, http.StatusOK, rec.Code)
	swapped := decode[oncall.Assignment](t, rec)
	assert.Equal(t, "Dave", swapped.UserName)
	assert.Equal(t, "Carol", swapped.OriginalUserName)

	rec = env.do(t, http.MethodPost, "/api/oncall/assignments/missing/swap", map[string]string{"new_user_name": "Dave"})
	assert.Equal(t, http.StatusNotFound, rec.Code)

	rec = env.do(t, http.MethodPost, "/api/oncall/assignments", map[string]string{
		"start_date": "2025-11-23", "end_date": "2025-11-22", "user_name": "Carol",
	})
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestOnCall_SyncAndUpcomingNeedSetup(t *testing.T) {
	env := newEnv(t)
	assert.Equal(t, http.StatusBadRequest, env.do(t, http.MethodPost, "/api/oncall/sync", nil).Code)
	assert.Equal(t, http.StatusBadRequest, env.do(t, http.MethodGet, "/api/oncall/upcoming", nil).Code)
	assert.Equal(t, http.StatusBadRequest, env.do(t, http.MethodPost, "/api/oncall/import", "name,date\n").Code)
}

// =============================================================================
// SCENARIOS
// =============================================================================

func TestScenario_PayWeekRollUp(t *testing.T) {
	env := newEnv(t)

	rec := env.do(t, http.MethodPost, "/api/scenarios/load", map[string]string{"scenario_id": "pay-week"})
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	rec = env.do(t, http.MethodGet, "/api/pay-cycle?week_ending=2025-11-29", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	totals := decode[map[string]any](t, rec)
	assert.Equal(t, 80.0, totals["total_st"])
	assert.Equal(t, 5.0, totals["total_ot"])
	assert.Equal(t, 85.0, totals["total_hours"])
	assert.Equal(t, "2025-11-22", totals["previous_week_ending"])

	rec = env.do(t, http.MethodPost, "/api/scenarios/load", map[string]string{"scenario_id": "nope"})
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestScenario_OnCallRotation(t *testing.T) {
	env := newEnv(t)
	rec := env.do(t, http.MethodPost, "/api/scenarios/load", map[string]string{"scenario_id": "oncall-rotation"})
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	current, err := oncall.NewService(env.store, nil).CurrentUser(context.Background())
	require.NoError(t, err)
	require.NotNil(t, current)
	assert.Equal(t, "Alice", current.UserName)

	rec = env.do(t, http.MethodGet, "/api/oncall?start_date=2025-11-15&end_date=2025-11-16", nil)
	assert.Equal(t, true, decode[map[string]any](t, rec)["is_mine"])
}
