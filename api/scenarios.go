/*
scenarios.go - Demo data loaders

PURPOSE:
  Populates the database with a realistic month of hours and an on-call
  rotation so the app can be demoed or manually tested without typing a
  week in by hand.

AVAILABLE SCENARIOS:
  empty:            Seed lines and settings only
  pay-week:         Two weeks ending on the 2025-11-29 pay week, with a
                    Thanksgiving PTO day and a project line
  overtime-week:    A 40h ST week with OT on top
  oncall-rotation:  November 2025 weekend rotation with a swap, current
                    user "Alice"

HOW SCENARIOS WORK:
  1. Build an export document for the timesheet part
  2. Import it (destructive, same path as POST /api/import)
  3. Replace the on-call schedule and set the current user

USAGE VIA API:
  GET  /api/scenarios
  POST /api/scenarios/load {"scenario_id": "pay-week"}

NOTE:
  Loading a scenario wipes existing data. Use on demo devices only.

SEE ALSO:
  - timesheet/export.go: Import
  - oncall/service.go: Replace
*/
package api

import (
	"context"
	"fmt"
	"net/http"

	"github.com/vrs/time-wizard/calendar"
	"github.com/vrs/time-wizard/oncall"
	"github.com/vrs/time-wizard/timesheet"
)

// ScenarioDTO describes one loadable scenario.
type ScenarioDTO struct {
	ID          string `json:"id"`
	Name        string `json:"name"`
	Description string `json:"description"`
}

// LoadScenarioRequest selects a scenario.
type LoadScenarioRequest struct {
	ScenarioID string `json:"scenario_id" validate:"required"`
}

type scenario struct {
	ScenarioDTO
	entries  func() []timesheet.TimeEntry
	lines    func() []timesheet.LineCode
	schedule func() []oncall.Assignment
	user     string
}

var scenarios = []scenario{
	{
		ScenarioDTO: ScenarioDTO{ID: "empty", Name: "Empty", Description: "Seed line codes and settings, no hours"},
	},
	{
		ScenarioDTO: ScenarioDTO{ID: "pay-week", Name: "Pay Week", Description: "Two weeks of hours rolling up on the 2025-11-29 pay week"},
		entries:     payWeekEntries,
		lines:       withProjectLine(7),
	},
	{
		ScenarioDTO: ScenarioDTO{ID: "overtime-week", Name: "Overtime Week", Description: "Full 40h ST week with overtime"},
		entries:     overtimeWeekEntries,
	},
	{
		ScenarioDTO: ScenarioDTO{ID: "oncall-rotation", Name: "On-Call Rotation", Description: "November 2025 weekend rotation"},
		schedule:    novemberRotation,
		user:        "Alice",
	},
}

func findScenario(id string) (scenario, bool) {
	for _, s := range scenarios {
		if s.ID == id {
			return s, true
		}
	}
	return scenario{}, false
}

// ListScenarios returns the available scenarios.
// GET /api/scenarios
func (h *Handler) ListScenarios(w http.ResponseWriter, r *http.Request) {
	out := make([]ScenarioDTO, len(scenarios))
	for i, s := range scenarios {
		out[i] = s.ScenarioDTO
	}
	writeJSON(w, http.StatusOK, out)
}

// LoadScenario wipes the database and loads one scenario.
// POST /api/scenarios/load
func (h *Handler) LoadScenario(w http.ResponseWriter, r *http.Request) {
	var req LoadScenarioRequest
	if !h.decodeAndValidate(w, r, &req) {
		return
	}
	sc, ok := findScenario(req.ScenarioID)
	if !ok {
		writeError(w, http.StatusNotFound, "Scenario not found", fmt.Errorf("unknown scenario %q", req.ScenarioID))
		return
	}
	if err := h.loadScenario(r.Context(), sc); err != nil {
		h.writeDomainError(w, r, "Failed to load scenario", err)
		return
	}
	h.log.WithField("scenario", sc.ID).Info("scenario loaded")
	writeJSON(w, http.StatusOK, sc.ScenarioDTO)
}

func (h *Handler) loadScenario(ctx context.Context, sc scenario) error {
	doc := timesheet.ExportDocument{
		TimeEntries: []timesheet.TimeEntry{},
		LineCodes:   timesheet.DefaultLines(),
		Settings:    timesheet.DefaultSettings(),
	}
	if sc.entries != nil {
		doc.TimeEntries = sc.entries()
	}
	if sc.lines != nil {
		doc.LineCodes = sc.lines()
	}
	if _, err := h.Timesheet.Import(ctx, doc); err != nil {
		return fmt.Errorf("import timesheet: %w", err)
	}

	var schedule []oncall.Assignment
	if sc.schedule != nil {
		schedule = sc.schedule()
	}
	if _, err := h.OnCall.Replace(ctx, schedule, h.today()); err != nil {
		return fmt.Errorf("replace schedule: %w", err)
	}
	if sc.user != "" {
		if err := h.OnCall.SetCurrentUser(ctx, sc.user); err != nil {
			return fmt.Errorf("set current user: %w", err)
		}
	}
	return nil
}

// =============================================================================
// SCENARIO DATA
// =============================================================================

func hours(st, ot float64) (timesheet.Hours, timesheet.Hours) {
	return timesheet.NewHoursFromFloat(st), timesheet.NewHoursFromFloat(ot)
}

func row(date, line string, st, ot float64) timesheet.TimeEntry {
	s, o := hours(st, ot)
	return timesheet.TimeEntry{WorkDate: calendar.MustParse(date), LineCode: line, STHours: s, OTHours: o}
}

func payWeekEntries() []timesheet.TimeEntry {
	return []timesheet.TimeEntry{
		// week ending 2025-11-22
		row("2025-11-17", "VTR", 8, 0),
		row("2025-11-18", "VTR", 8, 1),
		row("2025-11-19", "GMRC", 8, 0),
		row("2025-11-20", "GMRC", 6, 0),
		row("2025-11-20", "PROJECT 7", 2, 0),
		row("2025-11-21", "CLP", 8, 2),
		// week ending 2025-11-29, a pay week
		row("2025-11-24", "VTR", 8, 0),
		row("2025-11-25", "VTR", 8, 2),
		row("2025-11-26", "NEGS", 8, 0),
		row("2025-11-27", "HOLIDAY", 8, 0),
		row("2025-11-28", "PTO", 8, 0),
	}
}

func overtimeWeekEntries() []timesheet.TimeEntry {
	out := make([]timesheet.TimeEntry, 0, 6)
	for _, d := range []string{"2025-12-01", "2025-12-02", "2025-12-03", "2025-12-04", "2025-12-05"} {
		out = append(out, row(d, "WACR", 8, 2))
	}
	out = append(out, row("2025-12-06", "WACR-CRD", 0, 6))
	return out
}

func withProjectLine(n int) func() []timesheet.LineCode {
	return func() []timesheet.LineCode {
		lines := timesheet.DefaultLines()
		next := timesheet.FirstProjectSortOrder
		for _, l := range lines {
			if l.SortOrder >= next {
				next = l.SortOrder + 1
			}
		}
		return append(lines, timesheet.LineCode{
			Code:      timesheet.ProjectLineCode(n),
			Label:     timesheet.ProjectLineCode(n),
			IsVisible: true,
			IsProject: true,
			OTAllowed: true,
			SortOrder: next,
		})
	}
}

func novemberRotation() []oncall.Assignment {
	shift := func(start, end, user string) oncall.Assignment {
		a, _ := oncall.NewAssignment(calendar.MustParse(start), calendar.MustParse(end), user, "", "")
		return a
	}
	schedule := []oncall.Assignment{
		shift("2025-11-01", "2025-11-02", "Alice"),
		shift("2025-11-08", "2025-11-09", "Bob"),
		shift("2025-11-15", "2025-11-16", "Carol"),
		shift("2025-11-22", "2025-11-23", "Alice"),
		shift("2025-11-29", "2025-11-30", "Bob"),
	}
	swapped, err := oncall.Swap(schedule[2], "Alice")
	if err == nil {
		schedule[2] = swapped
	}
	return schedule
}
