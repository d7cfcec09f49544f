/*
service.go - Store-backed timesheet operations

PURPOSE:
  Ties the pure pieces together: week boundaries and pay cycle from
  package calendar, aggregation and entry rules from this package, and
  rows from a Store. Every UI and API call goes through here; none of
  them redo date arithmetic.

CONTROL FLOW (week screen):
  reference date -> WeekEnding -> PayCycle.IsPayWeek (current settings)
  -> EntriesForWeek -> AggregateWeek -> on pay weeks, previous week
  summary -> CombinePayCycle

WRITE SERIALIZATION:
  Increment and SetHours read the entry and its week before writing.
  writeMu serializes those read-check-write sequences so two rapid
  stepper presses cannot both pass the 8/40 hour checks.

SEE ALSO:
  - aggregate.go: Aggregation
  - policy.go: Entry rules
  - export.go: Export / destructive import
*/
package timesheet

import (
	"context"
	"fmt"
	"slices"
	"strings"
	"sync"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/vrs/time-wizard/calendar"
	"github.com/vrs/time-wizard/logging"
)

// Service implements timesheet operations over a Store.
type Service struct {
	store    Store
	holidays calendar.HolidayCalendar
	log      logrus.FieldLogger
	now      func() time.Time

	writeMu sync.Mutex
}

// NewService creates a service. holidays and log may be nil.
func NewService(store Store, holidays calendar.HolidayCalendar, log logrus.FieldLogger) *Service {
	if holidays == nil {
		holidays = calendar.NoHolidays{}
	}
	if log == nil {
		log = logging.Discard()
	}
	return &Service{
		store:    store,
		holidays: holidays,
		log:      log.WithField("component", "timesheet"),
		now:      time.Now,
	}
}

// Holidays returns the calendar the service annotates weeks with.
func (s *Service) Holidays() calendar.HolidayCalendar { return s.holidays }

// =============================================================================
// PAY CYCLE / WEEK INFO
// =============================================================================

// PayCycle reads the current pay cycle from settings. Missing or invalid
// values are a calendar.ConfigurationError.
func (s *Service) PayCycle(ctx context.Context) (calendar.PayCycle, error) {
	base, _, err := s.store.Setting(ctx, calendar.SettingBasePayWeekEnding)
	if err != nil {
		return calendar.PayCycle{}, fmt.Errorf("read %s: %w", calendar.SettingBasePayWeekEnding, err)
	}
	freq, _, err := s.store.Setting(ctx, calendar.SettingPayFrequencyDays)
	if err != nil {
		return calendar.PayCycle{}, fmt.Errorf("read %s: %w", calendar.SettingPayFrequencyDays, err)
	}
	return calendar.ParsePayCycle(base, freq)
}

// WeekInfo returns the week containing d.
func (s *Service) WeekInfo(ctx context.Context, d calendar.Date) (calendar.WeekInfo, error) {
	pc, err := s.PayCycle(ctx)
	if err != nil {
		return calendar.WeekInfo{}, err
	}
	return pc.Info(d, s.holidays)
}

// =============================================================================
// SUMMARIES
// =============================================================================

// Entries returns the rows of the week containing d with derived fields
// recomputed from the current settings.
func (s *Service) Entries(ctx context.Context, d calendar.Date) ([]TimeEntry, error) {
	pc, err := s.PayCycle(ctx)
	if err != nil {
		return nil, err
	}
	entries, err := s.store.EntriesForWeek(ctx, calendar.WeekEnding(d))
	if err != nil {
		return nil, fmt.Errorf("load week entries: %w", err)
	}
	return rederive(entries, pc)
}

// EntriesInRange returns rows in p with derived fields recomputed.
func (s *Service) EntriesInRange(ctx context.Context, p calendar.Period) ([]TimeEntry, error) {
	pc, err := s.PayCycle(ctx)
	if err != nil {
		return nil, err
	}
	entries, err := s.store.EntriesInRange(ctx, p)
	if err != nil {
		return nil, fmt.Errorf("load entries %s: %w", p, err)
	}
	return rederive(entries, pc)
}

func rederive(entries []TimeEntry, pc calendar.PayCycle) ([]TimeEntry, error) {
	out := make([]TimeEntry, len(entries))
	for i, e := range entries {
		d, err := e.WithDerived(pc)
		if err != nil {
			return nil, err
		}
		out[i] = d
	}
	return out, nil
}

// WeeklySummary aggregates the week containing d. The pay-week flag comes
// from the current settings, never from stored rows.
func (s *Service) WeeklySummary(ctx context.Context, d calendar.Date) (WeeklySummary, error) {
	pc, err := s.PayCycle(ctx)
	if err != nil {
		return WeeklySummary{}, err
	}
	return s.weeklySummary(ctx, pc, calendar.WeekEnding(d))
}

func (s *Service) weeklySummary(ctx context.Context, pc calendar.PayCycle, weekEnding calendar.Date) (WeeklySummary, error) {
	entries, err := s.store.EntriesForWeek(ctx, weekEnding)
	if err != nil {
		return WeeklySummary{}, fmt.Errorf("load week %s: %w", weekEnding, err)
	}
	summary, err := AggregateWeek(weekEnding, entries)
	if err != nil {
		return WeeklySummary{}, err
	}
	summary.IsPayWeek, err = pc.IsPayWeek(weekEnding)
	if err != nil {
		return WeeklySummary{}, err
	}
	return summary, nil
}

// PayCycleSummary returns the two-week roll-up for the week containing d,
// or nil when that week is not a pay week.
func (s *Service) PayCycleSummary(ctx context.Context, d calendar.Date) (*PayCycleTotals, error) {
	pc, err := s.PayCycle(ctx)
	if err != nil {
		return nil, err
	}
	current, err := s.weeklySummary(ctx, pc, calendar.WeekEnding(d))
	if err != nil {
		return nil, err
	}
	return s.rollUp(ctx, pc, current)
}

func (s *Service) rollUp(ctx context.Context, pc calendar.PayCycle, current WeeklySummary) (*PayCycleTotals, error) {
	if !current.IsPayWeek {
		return nil, nil
	}
	previous, err := s.weeklySummary(ctx, pc, current.WeekEndingDate.AddDays(-7))
	if err != nil {
		return nil, fmt.Errorf("previous week: %w", err)
	}
	totals, err := CombinePayCycle(current, &previous)
	if err != nil {
		return nil, err
	}
	return &totals, nil
}

// Dashboard is everything the week screen renders.
type Dashboard struct {
	Week     calendar.WeekInfo `json:"week"`
	Summary  WeeklySummary     `json:"summary"`
	PayCycle *PayCycleTotals   `json:"pay_cycle,omitempty"`
}

// Dashboard builds the week view for the week containing d.
func (s *Service) Dashboard(ctx context.Context, d calendar.Date) (Dashboard, error) {
	pc, err := s.PayCycle(ctx)
	if err != nil {
		return Dashboard{}, err
	}
	info, err := pc.Info(d, s.holidays)
	if err != nil {
		return Dashboard{}, err
	}
	summary, err := s.weeklySummary(ctx, pc, info.WeekEnding)
	if err != nil {
		return Dashboard{}, err
	}
	roll, err := s.rollUp(ctx, pc, summary)
	if err != nil {
		return Dashboard{}, err
	}
	return Dashboard{Week: info, Summary: summary, PayCycle: roll}, nil
}

// =============================================================================
// ENTRY WRITES
// =============================================================================

// Increment adds one hour of the given kind to an entry, creating it if needed.
func (s *Service) Increment(ctx context.Context, key EntryKey, kind HourKind) (TimeEntry, error) {
	s.writeMu.Lock()
	defer s.writeMu.Unlock()

	line, entry, _, err := s.loadForWrite(ctx, key)
	if err != nil {
		return TimeEntry{}, err
	}

	switch kind {
	case KindST:
		week, err := s.store.EntriesForWeek(ctx, calendar.WeekEnding(key.WorkDate))
		if err != nil {
			return TimeEntry{}, fmt.Errorf("load week entries: %w", err)
		}
		if err := CheckIncrementST(line, key.WorkDate, entry.STHours, WeekST(week, nil), Step); err != nil {
			return TimeEntry{}, err
		}
		entry.STHours = entry.STHours.Add(Step)
	case KindOT:
		if err := CheckIncrementOT(line, key.WorkDate); err != nil {
			return TimeEntry{}, err
		}
		entry.OTHours = entry.OTHours.Add(Step)
	default:
		return TimeEntry{}, fmt.Errorf("%w: hour kind %q", ErrInvalidEntry, kind)
	}

	return s.upsert(ctx, entry)
}

// Decrement removes one hour of the given kind, flooring at zero. The row
// is kept even when both columns reach zero. Decrementing a (date, line)
// with no row writes nothing and returns the empty entry.
func (s *Service) Decrement(ctx context.Context, key EntryKey, kind HourKind) (TimeEntry, error) {
	s.writeMu.Lock()
	defer s.writeMu.Unlock()

	_, entry, found, err := s.loadForWrite(ctx, key)
	if err != nil {
		return TimeEntry{}, err
	}
	if kind != KindST && kind != KindOT {
		return TimeEntry{}, fmt.Errorf("%w: hour kind %q", ErrInvalidEntry, kind)
	}
	if !found {
		pc, err := s.PayCycle(ctx)
		if err != nil {
			return TimeEntry{}, err
		}
		return entry.WithDerived(pc)
	}

	switch kind {
	case KindST:
		entry.STHours = Decrement(entry.STHours, Step)
	case KindOT:
		entry.OTHours = Decrement(entry.OTHours, Step)
	}

	return s.upsert(ctx, entry)
}

// SetHours writes both columns of an entry at once, enforcing the same
// daily, weekly and OT rules as the stepper.
func (s *Service) SetHours(ctx context.Context, e TimeEntry) (TimeEntry, error) {
	s.writeMu.Lock()
	defer s.writeMu.Unlock()

	line, _, _, err := s.loadForWrite(ctx, e.Key())
	if err != nil {
		return TimeEntry{}, err
	}
	week, err := s.store.EntriesForWeek(ctx, calendar.WeekEnding(e.WorkDate))
	if err != nil {
		return TimeEntry{}, fmt.Errorf("load week entries: %w", err)
	}
	key := e.Key()
	if err := CheckEntry(line, e, WeekST(week, &key)); err != nil {
		return TimeEntry{}, err
	}
	return s.upsert(ctx, e)
}

// loadForWrite returns the line, the stored entry (or a blank one) and
// whether a row exists.
func (s *Service) loadForWrite(ctx context.Context, key EntryKey) (LineCode, TimeEntry, bool, error) {
	if strings.TrimSpace(key.LineCode) == "" {
		return LineCode{}, TimeEntry{}, false, fmt.Errorf("%w: empty line code", ErrInvalidEntry)
	}
	line, err := s.store.Line(ctx, key.LineCode)
	if err != nil {
		return LineCode{}, TimeEntry{}, false, fmt.Errorf("load line %s: %w", key.LineCode, err)
	}
	if line == nil {
		return LineCode{}, TimeEntry{}, false, fmt.Errorf("%w: %s", ErrLineNotFound, key.LineCode)
	}
	existing, err := s.store.Entry(ctx, key)
	if err != nil {
		return LineCode{}, TimeEntry{}, false, fmt.Errorf("load entry %s: %w", key, err)
	}
	if existing == nil {
		return *line, TimeEntry{WorkDate: key.WorkDate, LineCode: key.LineCode}, false, nil
	}
	return *line, *existing, true, nil
}

func (s *Service) upsert(ctx context.Context, e TimeEntry) (TimeEntry, error) {
	pc, err := s.PayCycle(ctx)
	if err != nil {
		return TimeEntry{}, err
	}
	e, err = e.WithDerived(pc)
	if err != nil {
		return TimeEntry{}, err
	}
	if err := s.store.UpsertEntry(ctx, e); err != nil {
		return TimeEntry{}, fmt.Errorf("save entry %s: %w", e.Key(), err)
	}
	s.log.WithFields(logrus.Fields{
		"work_date": e.WorkDate.String(),
		"line_code": e.LineCode,
		"st":        e.STHours.String(),
		"ot":        e.OTHours.String(),
	}).Debug("entry saved")
	return e, nil
}

// =============================================================================
// LINE CODES
// =============================================================================

// Lines returns all line codes in display order.
func (s *Service) Lines(ctx context.Context) ([]LineCode, error) {
	lines, err := s.store.Lines(ctx)
	if err != nil {
		return nil, err
	}
	sortLines(lines)
	return lines, nil
}

func sortLines(lines []LineCode) {
	slices.SortStableFunc(lines, func(a, b LineCode) int {
		if a.SortOrder != b.SortOrder {
			return a.SortOrder - b.SortOrder
		}
		return strings.Compare(a.Code, b.Code)
	})
}

// AddProjectLine creates "PROJECT <n>" after every existing line.
func (s *Service) AddProjectLine(ctx context.Context, n int) (LineCode, error) {
	if n <= 0 {
		return LineCode{}, fmt.Errorf("%w: project number must be positive, got %d", ErrInvalidEntry, n)
	}

	s.writeMu.Lock()
	defer s.writeMu.Unlock()

	code := ProjectLineCode(n)
	existing, err := s.store.Line(ctx, code)
	if err != nil {
		return LineCode{}, err
	}
	if existing != nil {
		return LineCode{}, fmt.Errorf("%w: %s", ErrDuplicateLine, code)
	}

	highest, ok, err := s.store.MaxSortOrder(ctx)
	if err != nil {
		return LineCode{}, err
	}
	order := FirstProjectSortOrder
	if ok {
		order = highest + 1
	}

	line := LineCode{
		Code:      code,
		Label:     code,
		IsVisible: true,
		IsProject: true,
		OTAllowed: true,
		SortOrder: order,
	}
	if err := s.store.SaveLine(ctx, line); err != nil {
		return LineCode{}, err
	}
	s.log.WithField("line_code", code).Info("project line added")
	return line, nil
}

// SetLineVisibility shows or hides a line. Hidden lines still aggregate.
func (s *Service) SetLineVisibility(ctx context.Context, code string, visible bool) (LineCode, error) {
	s.writeMu.Lock()
	defer s.writeMu.Unlock()

	line, err := s.store.Line(ctx, code)
	if err != nil {
		return LineCode{}, err
	}
	if line == nil {
		return LineCode{}, fmt.Errorf("%w: %s", ErrLineNotFound, code)
	}
	line.IsVisible = visible
	if err := s.store.SaveLine(ctx, *line); err != nil {
		return LineCode{}, err
	}
	return *line, nil
}

// DeleteProjectLine removes a user-added project line. Entries logged
// against it are kept.
func (s *Service) DeleteProjectLine(ctx context.Context, code string) error {
	s.writeMu.Lock()
	defer s.writeMu.Unlock()

	line, err := s.store.Line(ctx, code)
	if err != nil {
		return err
	}
	if line == nil {
		return fmt.Errorf("%w: %s", ErrLineNotFound, code)
	}
	if !line.IsProject {
		return fmt.Errorf("%w: %s", ErrNotProjectLine, code)
	}
	if err := s.store.DeleteLine(ctx, code); err != nil {
		return err
	}
	s.log.WithField("line_code", code).Info("project line deleted")
	return nil
}

// =============================================================================
// SETTINGS
// =============================================================================

// Settings returns all settings.
func (s *Service) Settings(ctx context.Context) ([]Setting, error) {
	return s.store.Settings(ctx)
}

// UpdateSetting writes one setting. The two pay-cycle keys are validated
// together with the other current value before anything is written.
func (s *Service) UpdateSetting(ctx context.Context, key, value string) error {
	key = strings.TrimSpace(key)
	if key == "" {
		return &calendar.ConfigurationError{Key: key, Reason: "empty setting key"}
	}

	s.writeMu.Lock()
	defer s.writeMu.Unlock()

	switch key {
	case calendar.SettingBasePayWeekEnding, calendar.SettingPayFrequencyDays:
		base, _, err := s.store.Setting(ctx, calendar.SettingBasePayWeekEnding)
		if err != nil {
			return err
		}
		freq, _, err := s.store.Setting(ctx, calendar.SettingPayFrequencyDays)
		if err != nil {
			return err
		}
		if key == calendar.SettingBasePayWeekEnding {
			base = value
		} else {
			freq = value
		}
		pc, err := calendar.ParsePayCycle(base, freq)
		if err != nil {
			return err
		}
		if err := pc.Validate(); err != nil {
			return err
		}
		if key == calendar.SettingBasePayWeekEnding {
			value = pc.Base.String()
		}
	}

	if err := s.store.SetSetting(ctx, key, value); err != nil {
		return err
	}
	s.log.WithFields(logrus.Fields{"key": key, "value": value}).Info("setting updated")
	return nil
}

// =============================================================================
// NOTES
// =============================================================================

// SaveNote attaches text to an entry key. Blank text deletes the note.
func (s *Service) SaveNote(ctx context.Context, key EntryKey, text string) (*WorkNote, error) {
	if strings.TrimSpace(key.LineCode) == "" {
		return nil, fmt.Errorf("%w: empty line code", ErrInvalidEntry)
	}
	if strings.TrimSpace(text) == "" {
		return nil, s.store.DeleteNote(ctx, key)
	}
	note := WorkNote{
		WorkDate:  key.WorkDate,
		LineCode:  key.LineCode,
		NoteText:  text,
		UpdatedAt: s.now().UTC(),
	}
	if err := s.store.SaveNote(ctx, note); err != nil {
		return nil, err
	}
	return &note, nil
}

// DeleteNote removes a note; a missing note is not an error.
func (s *Service) DeleteNote(ctx context.Context, key EntryKey) error {
	return s.store.DeleteNote(ctx, key)
}

// NotesForWeek returns the notes of the week containing d.
func (s *Service) NotesForWeek(ctx context.Context, d calendar.Date) ([]WorkNote, error) {
	return s.store.NotesInRange(ctx, calendar.WeekOf(d))
}

// NotesInRange returns the notes with work date in p.
func (s *Service) NotesInRange(ctx context.Context, p calendar.Period) ([]WorkNote, error) {
	return s.store.NotesInRange(ctx, p)
}
