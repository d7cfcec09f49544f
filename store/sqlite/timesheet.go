package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/vrs/time-wizard/calendar"
	"github.com/vrs/time-wizard/timesheet"
)

// =============================================================================
// TIME ENTRIES (timesheet.Store)
// =============================================================================

const entryColumns = `work_date, line_code, st_hours, ot_hours, week_ending_date, is_pay_week`

// EntriesForWeek returns entries dated in the week ending on weekEnding.
func (s *Store) EntriesForWeek(ctx context.Context, weekEnding calendar.Date) ([]timesheet.TimeEntry, error) {
	return s.EntriesInRange(ctx, calendar.Period{Start: calendar.WeekStart(weekEnding), End: weekEnding})
}

// EntriesInRange returns entries with work_date inside p.
func (s *Store) EntriesInRange(ctx context.Context, p calendar.Period) ([]timesheet.TimeEntry, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	rows, err := s.db.QueryContext(ctx, `
		SELECT `+entryColumns+`
		FROM time_entries
		WHERE work_date >= ? AND work_date <= ?
		ORDER BY work_date ASC, line_code ASC
	`, p.Start, p.End)
	if err != nil {
		return nil, fmt.Errorf("failed to query entries: %w", err)
	}
	defer rows.Close()
	return scanEntries(rows)
}

// Entry returns one entry, or nil if none exists.
func (s *Store) Entry(ctx context.Context, key timesheet.EntryKey) (*timesheet.TimeEntry, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	row := s.db.QueryRowContext(ctx,
		"SELECT "+entryColumns+" FROM time_entries WHERE work_date = ? AND line_code = ?",
		key.WorkDate, key.LineCode)
	e, err := scanEntry(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &e, nil
}

// UpsertEntry inserts or replaces the row for (work_date, line_code),
// including its derived columns.
func (s *Store) UpsertEntry(ctx context.Context, e timesheet.TimeEntry) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return upsertEntry(ctx, s.db, e)
}

func upsertEntry(ctx context.Context, db execer, e timesheet.TimeEntry) error {
	_, err := db.ExecContext(ctx, `
		INSERT INTO time_entries (`+entryColumns+`, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(work_date, line_code) DO UPDATE SET
			st_hours = excluded.st_hours,
			ot_hours = excluded.ot_hours,
			week_ending_date = excluded.week_ending_date,
			is_pay_week = excluded.is_pay_week,
			updated_at = excluded.updated_at
	`,
		e.WorkDate,
		e.LineCode,
		e.STHours,
		e.OTHours,
		e.WeekEndingDate,
		e.IsPayWeek,
		formatTime(time.Now()),
	)
	if err != nil {
		return fmt.Errorf("failed to save entry %s: %w", e.Key(), err)
	}
	return nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanEntry(row rowScanner) (timesheet.TimeEntry, error) {
	var e timesheet.TimeEntry
	err := row.Scan(&e.WorkDate, &e.LineCode, &e.STHours, &e.OTHours, &e.WeekEndingDate, &e.IsPayWeek)
	return e, err
}

func scanEntries(rows *sql.Rows) ([]timesheet.TimeEntry, error) {
	var out []timesheet.TimeEntry
	for rows.Next() {
		e, err := scanEntry(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan entry: %w", err)
		}
		out = append(out, e)
	}
	return out, rows.Err()
}

// =============================================================================
// LINE CODES
// =============================================================================

const lineColumns = `line_code, label, is_visible, is_project, ot_allowed, sort_order`

// Lines returns every line code ordered for display.
func (s *Store) Lines(ctx context.Context) ([]timesheet.LineCode, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return queryLines(ctx, s.db)
}

type querier interface {
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
}

func queryLines(ctx context.Context, db querier) ([]timesheet.LineCode, error) {
	rows, err := db.QueryContext(ctx,
		"SELECT "+lineColumns+" FROM line_codes ORDER BY sort_order ASC, line_code ASC")
	if err != nil {
		return nil, fmt.Errorf("failed to query line codes: %w", err)
	}
	defer rows.Close()

	var out []timesheet.LineCode
	for rows.Next() {
		l, err := scanLine(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, l)
	}
	return out, rows.Err()
}

func scanLine(row rowScanner) (timesheet.LineCode, error) {
	var l timesheet.LineCode
	err := row.Scan(&l.Code, &l.Label, &l.IsVisible, &l.IsProject, &l.OTAllowed, &l.SortOrder)
	return l, err
}

// Line returns one line code, or nil if none exists.
func (s *Store) Line(ctx context.Context, code string) (*timesheet.LineCode, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	l, err := scanLine(s.db.QueryRowContext(ctx,
		"SELECT "+lineColumns+" FROM line_codes WHERE line_code = ?", code))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &l, nil
}

// SaveLine inserts or updates a line code.
// MaxSortOrder returns MAX(sort_order); ok is false for an empty table.
func (s *Store) MaxSortOrder(ctx context.Context) (int, bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var highest sql.NullInt64
	if err := s.db.QueryRowContext(ctx, "SELECT MAX(sort_order) FROM line_codes").Scan(&highest); err != nil {
		return 0, false, fmt.Errorf("failed to query max sort order: %w", err)
	}
	return int(highest.Int64), highest.Valid, nil
}

func (s *Store) SaveLine(ctx context.Context, l timesheet.LineCode) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return saveLine(ctx, s.db, l)
}

func saveLine(ctx context.Context, db execer, l timesheet.LineCode) error {
	_, err := db.ExecContext(ctx, `
		INSERT INTO line_codes (`+lineColumns+`)
		VALUES (?, ?, ?, ?, ?, ?)
		ON CONFLICT(line_code) DO UPDATE SET
			label = excluded.label,
			is_visible = excluded.is_visible,
			is_project = excluded.is_project,
			ot_allowed = excluded.ot_allowed,
			sort_order = excluded.sort_order
	`, l.Code, l.Label, l.IsVisible, l.IsProject, l.OTAllowed, l.SortOrder)
	if err != nil {
		return fmt.Errorf("failed to save line code %s: %w", l.Code, err)
	}
	return nil
}

// DeleteLine removes a line code. Entries referencing it are kept.
func (s *Store) DeleteLine(ctx context.Context, code string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, err := s.db.ExecContext(ctx, "DELETE FROM line_codes WHERE line_code = ?", code); err != nil {
		return fmt.Errorf("failed to delete line code %s: %w", code, err)
	}
	return nil
}

// =============================================================================
// SETTINGS
// =============================================================================

// Setting returns a value and whether the key exists.
func (s *Store) Setting(ctx context.Context, key string) (string, bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var v string
	err := s.db.QueryRowContext(ctx, "SELECT value FROM settings WHERE key = ?", key).Scan(&v)
	if errors.Is(err, sql.ErrNoRows) {
		return "", false, nil
	}
	if err != nil {
		return "", false, fmt.Errorf("failed to read setting %s: %w", key, err)
	}
	return v, true, nil
}

// SetSetting upserts one setting.
func (s *Store) SetSetting(ctx context.Context, key, value string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return setSetting(ctx, s.db, key, value)
}

func setSetting(ctx context.Context, db execer, key, value string) error {
	_, err := db.ExecContext(ctx, `
		INSERT INTO settings (key, value) VALUES (?, ?)
		ON CONFLICT(key) DO UPDATE SET value = excluded.value
	`, key, value)
	if err != nil {
		return fmt.Errorf("failed to save setting %s: %w", key, err)
	}
	return nil
}

// Settings returns all settings ordered by key.
func (s *Store) Settings(ctx context.Context) ([]timesheet.Setting, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return querySettings(ctx, s.db)
}

func querySettings(ctx context.Context, db querier) ([]timesheet.Setting, error) {
	rows, err := db.QueryContext(ctx, "SELECT key, value FROM settings ORDER BY key")
	if err != nil {
		return nil, fmt.Errorf("failed to query settings: %w", err)
	}
	defer rows.Close()

	var out []timesheet.Setting
	for rows.Next() {
		var st timesheet.Setting
		if err := rows.Scan(&st.Key, &st.Value); err != nil {
			return nil, err
		}
		out = append(out, st)
	}
	return out, rows.Err()
}

// =============================================================================
// NOTES
// =============================================================================

// SaveNote upserts the note for (work_date, line_code).
func (s *Store) SaveNote(ctx context.Context, n timesheet.WorkNote) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	_, err := s.db.ExecContext(ctx, `
		INSERT INTO work_notes (work_date, line_code, note_text, updated_at)
		VALUES (?, ?, ?, ?)
		ON CONFLICT(work_date, line_code) DO UPDATE SET
			note_text = excluded.note_text,
			updated_at = excluded.updated_at
	`, n.WorkDate, n.LineCode, n.NoteText, formatTime(n.UpdatedAt))
	if err != nil {
		return fmt.Errorf("failed to save note %s: %w", n.Key(), err)
	}
	return nil
}

// DeleteNote removes a note; deleting a missing note is not an error.
func (s *Store) DeleteNote(ctx context.Context, key timesheet.EntryKey) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	_, err := s.db.ExecContext(ctx,
		"DELETE FROM work_notes WHERE work_date = ? AND line_code = ?", key.WorkDate, key.LineCode)
	if err != nil {
		return fmt.Errorf("failed to delete note %s: %w", key, err)
	}
	return nil
}

// NotesInRange returns notes dated inside p.
func (s *Store) NotesInRange(ctx context.Context, p calendar.Period) ([]timesheet.WorkNote, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	rows, err := s.db.QueryContext(ctx, `
		SELECT work_date, line_code, note_text, updated_at
		FROM work_notes
		WHERE work_date >= ? AND work_date <= ?
		ORDER BY work_date ASC, line_code ASC
	`, p.Start, p.End)
	if err != nil {
		return nil, fmt.Errorf("failed to query notes: %w", err)
	}
	defer rows.Close()

	var out []timesheet.WorkNote
	for rows.Next() {
		var n timesheet.WorkNote
		var updated string
		if err := rows.Scan(&n.WorkDate, &n.LineCode, &n.NoteText, &updated); err != nil {
			return nil, err
		}
		n.UpdatedAt = parseTime(updated)
		out = append(out, n)
	}
	return out, rows.Err()
}

// =============================================================================
// SNAPSHOT / REPLACE
// =============================================================================

// Snapshot reads every entry, line code and setting in one transaction.
func (s *Store) Snapshot(ctx context.Context) (timesheet.Snapshot, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return timesheet.Snapshot{}, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	rows, err := tx.QueryContext(ctx,
		"SELECT "+entryColumns+" FROM time_entries ORDER BY work_date ASC, line_code ASC")
	if err != nil {
		return timesheet.Snapshot{}, fmt.Errorf("failed to query entries: %w", err)
	}
	entries, err := scanEntries(rows)
	rows.Close()
	if err != nil {
		return timesheet.Snapshot{}, err
	}

	lines, err := queryLines(ctx, tx)
	if err != nil {
		return timesheet.Snapshot{}, err
	}
	settings, err := querySettings(ctx, tx)
	if err != nil {
		return timesheet.Snapshot{}, err
	}
	return timesheet.Snapshot{Entries: entries, Lines: lines, Settings: settings}, tx.Commit()
}

// ReplaceAll deletes all entries, line codes and settings and inserts the
// snapshot. Either everything is replaced or nothing is.
func (s *Store) ReplaceAll(ctx context.Context, snap timesheet.Snapshot) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	for _, table := range []string{"time_entries", "line_codes", "settings"} {
		if _, err := tx.ExecContext(ctx, "DELETE FROM "+table); err != nil {
			return fmt.Errorf("failed to clear %s: %w", table, err)
		}
	}
	for _, l := range snap.Lines {
		if err := saveLine(ctx, tx, l); err != nil {
			return err
		}
	}
	for _, st := range snap.Settings {
		if err := setSetting(ctx, tx, st.Key, st.Value); err != nil {
			return err
		}
	}
	for _, e := range snap.Entries {
		if err := upsertEntry(ctx, tx, e); err != nil {
			return err
		}
	}
	return tx.Commit()
}
