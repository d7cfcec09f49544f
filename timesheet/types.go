/*
Package timesheet aggregates logged hours into weekly and pay-cycle totals.

PURPOSE:
  Crew members log straight-time (ST) and overtime (OT) hours per line per
  day. This package owns the data model for those entries, the rules that
  gate each increment, and the aggregation that turns raw rows into the
  weekly summary and the two-week pay-cycle roll-up.

KEY CONCEPTS IN THIS FILE (types.go):
  - TimeEntry: one (work_date, line_code) pair of ST/OT hours. Upsert
    semantics; at most one row per key.
  - LineCode: a work category (rail line, PTO, HOLIDAY, PROJECT n) with an
    explicit OTAllowed flag.
  - Totals / WeeklySummary / PayCycleTotals: derived, never persisted.
  - WorkNote: free text attached to a (work_date, line_code) pair.

DERIVED FIELDS:
  TimeEntry.WeekEndingDate and TimeEntry.IsPayWeek are written with every
  upsert. Readers never trust them: aggregation recomputes week membership
  from WorkDate, and the service recomputes the pay-week flag from current
  settings.

SEE ALSO:
  - aggregate.go: AggregateWeek, CombinePayCycle
  - policy.go: Increment/decrement rules
  - service.go: Store-backed operations
*/
package timesheet

import (
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/vrs/time-wizard/calendar"
)

// =============================================================================
// TIME ENTRY
// =============================================================================

// EntryKey identifies a TimeEntry.
type EntryKey struct {
	WorkDate calendar.Date
	LineCode string
}

func (k EntryKey) String() string { return k.WorkDate.String() + "/" + k.LineCode }

// TimeEntry is one recorded (work_date, line_code) hour pair. A row whose
// ST and OT are both zero is kept; it contributes nothing to totals.
type TimeEntry struct {
	WorkDate       calendar.Date `json:"work_date"`
	LineCode       string        `json:"line_code"`
	STHours        Hours         `json:"st_hours"`
	OTHours        Hours         `json:"ot_hours"`
	WeekEndingDate calendar.Date `json:"week_ending_date"`
	IsPayWeek      bool          `json:"is_pay_week"`
}

func (e TimeEntry) Key() EntryKey      { return EntryKey{WorkDate: e.WorkDate, LineCode: e.LineCode} }
func (e TimeEntry) TotalHours() Hours  { return e.STHours.Add(e.OTHours) }
func (e TimeEntry) IsEmpty() bool      { return e.STHours.IsZero() && e.OTHours.IsZero() }

// WithDerived returns a copy with WeekEndingDate and IsPayWeek recomputed.
func (e TimeEntry) WithDerived(pc calendar.PayCycle) (TimeEntry, error) {
	e.WeekEndingDate = calendar.WeekEnding(e.WorkDate)
	pay, err := pc.IsPayWeek(e.WeekEndingDate)
	if err != nil {
		return TimeEntry{}, err
	}
	e.IsPayWeek = pay
	return e, nil
}

// =============================================================================
// LINE CODES
// =============================================================================

// LineCode is a trackable work category.
type LineCode struct {
	Code      string `json:"line_code"`
	Label     string `json:"label"`
	IsVisible bool   `json:"is_visible"` // display filter only
	IsProject bool   `json:"is_project"`
	OTAllowed bool   `json:"ot_allowed"`
	SortOrder int    `json:"sort_order"`
}

// ProjectPrefix starts the code of every user-added project line.
const ProjectPrefix = "PROJECT "

// FirstProjectSortOrder is used when no line exists yet to sort after.
const FirstProjectSortOrder = 11

// ProjectLineCode returns "PROJECT <n>".
func ProjectLineCode(n int) string { return ProjectPrefix + strconv.Itoa(n) }

// noOvertimeCodes is consulted only when seeding or loading line codes that
// predate the OTAllowed flag.
var noOvertimeCodes = map[string]bool{"PTO": true, "HOLIDAY": true}

// DefaultOTAllowed returns the OT rule for a code that carries no explicit flag.
func DefaultOTAllowed(code string) bool {
	return !noOvertimeCodes[strings.ToUpper(strings.TrimSpace(code))]
}

// DefaultLines returns the ten lines seeded on first run.
func DefaultLines() []LineCode {
	codes := []string{"VTR", "GMRC", "CLP", "WACR", "WACR-CRD", "NEGS", "NHC", "NYOG", "PTO", "HOLIDAY"}
	lines := make([]LineCode, len(codes))
	for i, code := range codes {
		lines[i] = LineCode{
			Code:      code,
			Label:     code,
			IsVisible: true,
			OTAllowed: DefaultOTAllowed(code),
			SortOrder: i + 1,
		}
	}
	return lines
}

// =============================================================================
// SETTINGS
// =============================================================================

// Setting is one key/value pair of process-wide configuration.
type Setting struct {
	Key   string `json:"key"`
	Value string `json:"value"`
}

// DefaultSettings returns the settings seeded on first run.
func DefaultSettings() []Setting {
	return []Setting{
		{Key: calendar.SettingBasePayWeekEnding, Value: calendar.DefaultBasePayWeekEnding},
		{Key: calendar.SettingPayFrequencyDays, Value: strconv.Itoa(calendar.DefaultPayFrequencyDays)},
	}
}

// =============================================================================
// SUMMARIES - Derived, non-persisted
// =============================================================================

// Totals is an ST/OT pair with its sum.
type Totals struct {
	ST    Hours `json:"st"`
	OT    Hours `json:"ot"`
	Total Hours `json:"total"`
}

func (t Totals) add(st, ot Hours) Totals {
	t.ST = t.ST.Add(st)
	t.OT = t.OT.Add(ot)
	t.Total = t.ST.Add(t.OT)
	return t
}

// Plus returns the element-wise sum of two totals.
func (t Totals) Plus(o Totals) Totals { return t.add(o.ST, o.OT) }

// WeeklySummary aggregates one Sunday-Saturday week.
type WeeklySummary struct {
	WeekEndingDate calendar.Date            `json:"week_ending_date"`
	IsPayWeek      bool                     `json:"is_pay_week"`
	TotalST        Hours                    `json:"total_st"`
	TotalOT        Hours                    `json:"total_ot"`
	TotalHours     Hours                    `json:"total_hours"`
	LinesUsed      []string                 `json:"lines_used"` // sorted; semantically a set
	LineTotals     map[string]Totals        `json:"line_totals"`
	DailyTotals    map[calendar.Date]Totals `json:"daily_totals"`
}

// PayCycleTotals is the two-week roll-up shown on a pay week.
type PayCycleTotals struct {
	WeekEndingDate     calendar.Date     `json:"week_ending_date"`
	PreviousWeekEnding calendar.Date     `json:"previous_week_ending"`
	TotalST            Hours             `json:"total_st"`
	TotalOT            Hours             `json:"total_ot"`
	TotalHours         Hours             `json:"total_hours"`
	LinesUsed          []string          `json:"lines_used"`
	LineTotals         map[string]Totals `json:"line_totals"`
}

// =============================================================================
// NOTES
// =============================================================================

// WorkNote is free text attached to a (work_date, line_code) pair.
type WorkNote struct {
	WorkDate  calendar.Date `json:"work_date"`
	LineCode  string        `json:"line_code"`
	NoteText  string        `json:"note_text"`
	UpdatedAt time.Time     `json:"updated_at"`
}

func (n WorkNote) Key() EntryKey { return EntryKey{WorkDate: n.WorkDate, LineCode: n.LineCode} }

// =============================================================================
// HOUR KIND
// =============================================================================

// HourKind selects the ST or OT column of an entry.
type HourKind string

const (
	KindST HourKind = "st"
	KindOT HourKind = "ot"
)

// ParseHourKind accepts "st" or "ot" in any case.
func ParseHourKind(s string) (HourKind, error) {
	switch HourKind(strings.ToLower(strings.TrimSpace(s))) {
	case KindST:
		return KindST, nil
	case KindOT:
		return KindOT, nil
	}
	return "", fmt.Errorf("%w: hour kind %q (want st or ot)", ErrInvalidEntry, s)
}
