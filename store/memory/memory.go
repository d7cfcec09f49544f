// Package memory provides an in-memory Store for tests and dry runs.
package memory

import (
	"context"
	"fmt"
	"slices"
	"strings"
	"sync"
	"time"

	"github.com/vrs/time-wizard/calendar"
	"github.com/vrs/time-wizard/oncall"
	"github.com/vrs/time-wizard/timesheet"
)

// =============================================================================
// MEMORY STORE - implements timesheet.Store and oncall.Store
// =============================================================================

type Store struct {
	mu       sync.RWMutex
	entries  map[timesheet.EntryKey]timesheet.TimeEntry
	lines    map[string]timesheet.LineCode
	settings map[string]string
	notes    map[timesheet.EntryKey]timesheet.WorkNote

	schedule map[string]oncall.Assignment
	users    map[string]bool // name -> is current user
	lastSync time.Time
	synced   bool
}

var (
	_ timesheet.Store = (*Store)(nil)
	_ oncall.Store    = (*Store)(nil)
)

// New returns a store seeded with the default line codes and settings,
// matching a freshly migrated database.
func New() *Store {
	s := &Store{
		entries:  make(map[timesheet.EntryKey]timesheet.TimeEntry),
		lines:    make(map[string]timesheet.LineCode),
		settings: make(map[string]string),
		notes:    make(map[timesheet.EntryKey]timesheet.WorkNote),
		schedule: make(map[string]oncall.Assignment),
		users:    make(map[string]bool),
	}
	for _, l := range timesheet.DefaultLines() {
		s.lines[l.Code] = l
	}
	for _, st := range timesheet.DefaultSettings() {
		s.settings[st.Key] = st.Value
	}
	return s
}

// =============================================================================
// ENTRIES
// =============================================================================

func (s *Store) EntriesForWeek(ctx context.Context, weekEnding calendar.Date) ([]timesheet.TimeEntry, error) {
	return s.EntriesInRange(ctx, calendar.Period{Start: calendar.WeekStart(weekEnding), End: weekEnding})
}

func (s *Store) EntriesInRange(_ context.Context, p calendar.Period) ([]timesheet.TimeEntry, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var out []timesheet.TimeEntry
	for _, e := range s.entries {
		if p.Contains(e.WorkDate) {
			out = append(out, e)
		}
	}
	sortEntries(out)
	return out, nil
}

func (s *Store) Entry(_ context.Context, key timesheet.EntryKey) (*timesheet.TimeEntry, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	e, ok := s.entries[key]
	if !ok {
		return nil, nil
	}
	return &e, nil
}

func (s *Store) UpsertEntry(_ context.Context, e timesheet.TimeEntry) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.entries[e.Key()] = e
	return nil
}

func sortEntries(entries []timesheet.TimeEntry) {
	slices.SortFunc(entries, func(a, b timesheet.TimeEntry) int {
		if c := a.WorkDate.Compare(b.WorkDate); c != 0 {
			return c
		}
		return strings.Compare(a.LineCode, b.LineCode)
	})
}

// =============================================================================
// LINE CODES / SETTINGS
// =============================================================================

func (s *Store) Lines(_ context.Context) ([]timesheet.LineCode, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make([]timesheet.LineCode, 0, len(s.lines))
	for _, l := range s.lines {
		out = append(out, l)
	}
	slices.SortFunc(out, func(a, b timesheet.LineCode) int {
		if a.SortOrder != b.SortOrder {
			return a.SortOrder - b.SortOrder
		}
		return strings.Compare(a.Code, b.Code)
	})
	return out, nil
}

func (s *Store) Line(_ context.Context, code string) (*timesheet.LineCode, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	l, ok := s.lines[code]
	if !ok {
		return nil, nil
	}
	return &l, nil
}

func (s *Store) SaveLine(_ context.Context, l timesheet.LineCode) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.lines[l.Code] = l
	return nil
}

func (s *Store) MaxSortOrder(_ context.Context) (int, bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	highest, found := 0, false
	for _, l := range s.lines {
		if !found || l.SortOrder > highest {
			highest, found = l.SortOrder, true
		}
	}
	return highest, found, nil
}

func (s *Store) DeleteLine(_ context.Context, code string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.lines, code)
	return nil
}

func (s *Store) Setting(_ context.Context, key string) (string, bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	v, ok := s.settings[key]
	return v, ok, nil
}

func (s *Store) SetSetting(_ context.Context, key, value string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.settings[key] = value
	return nil
}

func (s *Store) Settings(_ context.Context) ([]timesheet.Setting, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.settingsLocked(), nil
}

func (s *Store) settingsLocked() []timesheet.Setting {
	out := make([]timesheet.Setting, 0, len(s.settings))
	for k, v := range s.settings {
		out = append(out, timesheet.Setting{Key: k, Value: v})
	}
	slices.SortFunc(out, func(a, b timesheet.Setting) int { return strings.Compare(a.Key, b.Key) })
	return out
}

// =============================================================================
// NOTES
// =============================================================================

func (s *Store) SaveNote(_ context.Context, n timesheet.WorkNote) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.notes[n.Key()] = n
	return nil
}

func (s *Store) DeleteNote(_ context.Context, key timesheet.EntryKey) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.notes, key)
	return nil
}

func (s *Store) NotesInRange(_ context.Context, p calendar.Period) ([]timesheet.WorkNote, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var out []timesheet.WorkNote
	for _, n := range s.notes {
		if p.Contains(n.WorkDate) {
			out = append(out, n)
		}
	}
	slices.SortFunc(out, func(a, b timesheet.WorkNote) int {
		if c := a.WorkDate.Compare(b.WorkDate); c != 0 {
			return c
		}
		return strings.Compare(a.LineCode, b.LineCode)
	})
	return out, nil
}

// =============================================================================
// SNAPSHOT / REPLACE
// =============================================================================

func (s *Store) Snapshot(_ context.Context) (timesheet.Snapshot, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	snap := timesheet.Snapshot{Settings: s.settingsLocked()}
	for _, e := range s.entries {
		snap.Entries = append(snap.Entries, e)
	}
	sortEntries(snap.Entries)
	for _, l := range s.lines {
		snap.Lines = append(snap.Lines, l)
	}
	slices.SortFunc(snap.Lines, func(a, b timesheet.LineCode) int { return a.SortOrder - b.SortOrder })
	return snap, nil
}

// ReplaceAll swaps in the snapshot under one lock, so readers see either
// the old or the new data.
func (s *Store) ReplaceAll(_ context.Context, snap timesheet.Snapshot) error {
	entries := make(map[timesheet.EntryKey]timesheet.TimeEntry, len(snap.Entries))
	for _, e := range snap.Entries {
		entries[e.Key()] = e
	}
	lines := make(map[string]timesheet.LineCode, len(snap.Lines))
	for _, l := range snap.Lines {
		if _, dup := lines[l.Code]; dup {
			return fmt.Errorf("duplicate line code %s", l.Code)
		}
		lines[l.Code] = l
	}
	settings := make(map[string]string, len(snap.Settings))
	for _, st := range snap.Settings {
		settings[st.Key] = st.Value
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	s.entries = entries
	s.lines = lines
	s.settings = settings
	return nil
}

// =============================================================================
// ON-CALL
// =============================================================================

func (s *Store) Schedule(_ context.Context) ([]oncall.Assignment, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.scheduleLocked(func(oncall.Assignment) bool { return true }), nil
}

func (s *Store) ScheduleInRange(_ context.Context, p calendar.Period) ([]oncall.Assignment, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.scheduleLocked(func(a oncall.Assignment) bool { return a.Period().Overlaps(p) }), nil
}

func (s *Store) scheduleLocked(keep func(oncall.Assignment) bool) []oncall.Assignment {
	var out []oncall.Assignment
	for _, a := range s.schedule {
		if keep(a) {
			out = append(out, a)
		}
	}
	slices.SortFunc(out, func(a, b oncall.Assignment) int {
		if c := a.StartDate.Compare(b.StartDate); c != 0 {
			return c
		}
		if c := a.EndDate.Compare(b.EndDate); c != 0 {
			return c
		}
		return strings.Compare(a.UserName, b.UserName)
	})
	return out
}

func (s *Store) Assignment(_ context.Context, id string) (*oncall.Assignment, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	a, ok := s.schedule[id]
	if !ok {
		return nil, nil
	}
	return &a, nil
}

func (s *Store) AddAssignment(_ context.Context, a oncall.Assignment) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, existing := range s.schedule {
		if sameShift(existing, a) {
			return fmt.Errorf("%w: %s..%s %s", oncall.ErrDuplicateAssignment, a.StartDate, a.EndDate, a.UserName)
		}
	}
	s.schedule[a.ID] = a
	return nil
}

func (s *Store) UpdateAssignment(_ context.Context, a oncall.Assignment) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.schedule[a.ID]; !ok {
		return fmt.Errorf("%w: %s", oncall.ErrAssignmentNotFound, a.ID)
	}
	for id, existing := range s.schedule {
		if id != a.ID && sameShift(existing, a) {
			return fmt.Errorf("%w: %s..%s %s", oncall.ErrDuplicateAssignment, a.StartDate, a.EndDate, a.UserName)
		}
	}
	s.schedule[a.ID] = a
	return nil
}

func sameShift(a, b oncall.Assignment) bool {
	return a.StartDate.Equal(b.StartDate) && a.EndDate.Equal(b.EndDate) &&
		a.UserName == b.UserName && a.Location == b.Location
}

func (s *Store) ReplaceSchedule(_ context.Context, schedule []oncall.Assignment) error {
	next := make(map[string]oncall.Assignment, len(schedule))
	for _, a := range schedule {
		for _, existing := range next {
			if sameShift(existing, a) {
				return fmt.Errorf("%w: %s..%s %s", oncall.ErrDuplicateAssignment, a.StartDate, a.EndDate, a.UserName)
			}
		}
		next[a.ID] = a
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.schedule = next
	return nil
}

func (s *Store) Users(_ context.Context) ([]oncall.User, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]oncall.User, 0, len(s.users))
	for name, current := range s.users {
		out = append(out, oncall.User{UserName: name, IsCurrentUser: current})
	}
	slices.SortFunc(out, func(a, b oncall.User) int { return strings.Compare(a.UserName, b.UserName) })
	return out, nil
}

func (s *Store) AddUser(_ context.Context, name string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.users[name]; !ok {
		s.users[name] = false
	}
	return nil
}

func (s *Store) SetCurrentUser(_ context.Context, name string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for u := range s.users {
		s.users[u] = false
	}
	s.users[name] = true
	return nil
}

func (s *Store) LastSync(_ context.Context) (time.Time, bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.lastSync, s.synced, nil
}

func (s *Store) SetLastSync(_ context.Context, t time.Time) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.lastSync = t
	s.synced = true
	return nil
}
