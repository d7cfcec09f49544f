package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/vrs/time-wizard/calendar"
	"github.com/vrs/time-wizard/oncall"
)

// =============================================================================
// ON-CALL SCHEDULE (oncall.Store)
// =============================================================================

const assignmentColumns = `id, start_date, end_date, user_name, location, notes, is_swapped, original_user_name`

const lastSyncKey = "oncall_last_sync"

// Schedule returns every assignment ordered by start date.
func (s *Store) Schedule(ctx context.Context) ([]oncall.Assignment, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	return s.queryAssignments(ctx, `
		SELECT `+assignmentColumns+`
		FROM on_call_schedule
		ORDER BY start_date ASC, end_date ASC, user_name ASC
	`)
}

// ScheduleInRange returns assignments overlapping p.
func (s *Store) ScheduleInRange(ctx context.Context, p calendar.Period) ([]oncall.Assignment, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	return s.queryAssignments(ctx, `
		SELECT `+assignmentColumns+`
		FROM on_call_schedule
		WHERE start_date <= ? AND end_date >= ?
		ORDER BY start_date ASC, end_date ASC, user_name ASC
	`, p.End, p.Start)
}

func (s *Store) queryAssignments(ctx context.Context, query string, args ...any) ([]oncall.Assignment, error) {
	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query schedule: %w", err)
	}
	defer rows.Close()

	var out []oncall.Assignment
	for rows.Next() {
		a, err := scanAssignment(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, a)
	}
	return out, rows.Err()
}

func scanAssignment(row rowScanner) (oncall.Assignment, error) {
	var a oncall.Assignment
	err := row.Scan(&a.ID, &a.StartDate, &a.EndDate, &a.UserName, &a.Location, &a.Notes,
		&a.IsSwapped, &a.OriginalUserName)
	return a, err
}

// Assignment returns one assignment, or nil if none exists.
func (s *Store) Assignment(ctx context.Context, id string) (*oncall.Assignment, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	a, err := scanAssignment(s.db.QueryRowContext(ctx,
		"SELECT "+assignmentColumns+" FROM on_call_schedule WHERE id = ?", id))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &a, nil
}

// AddAssignment inserts one assignment.
func (s *Store) AddAssignment(ctx context.Context, a oncall.Assignment) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return insertAssignment(ctx, s.db, a)
}

func insertAssignment(ctx context.Context, db execer, a oncall.Assignment) error {
	_, err := db.ExecContext(ctx, `
		INSERT INTO on_call_schedule (`+assignmentColumns+`)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)
	`, a.ID, a.StartDate, a.EndDate, a.UserName, a.Location, a.Notes, a.IsSwapped, a.OriginalUserName)
	if isUniqueConstraintError(err) {
		return fmt.Errorf("%w: %s..%s %s", oncall.ErrDuplicateAssignment, a.StartDate, a.EndDate, a.UserName)
	}
	if err != nil {
		return fmt.Errorf("failed to insert assignment: %w", err)
	}
	return nil
}

// UpdateAssignment rewrites an existing assignment.
func (s *Store) UpdateAssignment(ctx context.Context, a oncall.Assignment) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	res, err := s.db.ExecContext(ctx, `
		UPDATE on_call_schedule
		SET start_date = ?, end_date = ?, user_name = ?, location = ?, notes = ?,
		    is_swapped = ?, original_user_name = ?
		WHERE id = ?
	`, a.StartDate, a.EndDate, a.UserName, a.Location, a.Notes, a.IsSwapped, a.OriginalUserName, a.ID)
	if isUniqueConstraintError(err) {
		return fmt.Errorf("%w: %s..%s %s", oncall.ErrDuplicateAssignment, a.StartDate, a.EndDate, a.UserName)
	}
	if err != nil {
		return fmt.Errorf("failed to update assignment: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return fmt.Errorf("%w: %s", oncall.ErrAssignmentNotFound, a.ID)
	}
	return nil
}

// ReplaceSchedule clears the schedule and inserts schedule in one transaction.
func (s *Store) ReplaceSchedule(ctx context.Context, schedule []oncall.Assignment) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	if _, err := tx.ExecContext(ctx, "DELETE FROM on_call_schedule"); err != nil {
		return fmt.Errorf("failed to clear schedule: %w", err)
	}
	for _, a := range schedule {
		if err := insertAssignment(ctx, tx, a); err != nil {
			return err
		}
	}
	return tx.Commit()
}

// =============================================================================
// USERS
// =============================================================================

// Users returns every rotation member by name.
func (s *Store) Users(ctx context.Context) ([]oncall.User, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	rows, err := s.db.QueryContext(ctx,
		"SELECT user_name, is_current_user FROM on_call_users ORDER BY user_name")
	if err != nil {
		return nil, fmt.Errorf("failed to query users: %w", err)
	}
	defer rows.Close()

	var out []oncall.User
	for rows.Next() {
		var u oncall.User
		if err := rows.Scan(&u.UserName, &u.IsCurrentUser); err != nil {
			return nil, err
		}
		out = append(out, u)
	}
	return out, rows.Err()
}

// AddUser inserts a user, leaving an existing one untouched.
func (s *Store) AddUser(ctx context.Context, name string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, err := s.db.ExecContext(ctx,
		"INSERT OR IGNORE INTO on_call_users (user_name, is_current_user) VALUES (?, 0)", name); err != nil {
		return fmt.Errorf("failed to add user %s: %w", name, err)
	}
	return nil
}

// SetCurrentUser flags name as the device user and clears everyone else.
func (s *Store) SetCurrentUser(ctx context.Context, name string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	if _, err := tx.ExecContext(ctx, "UPDATE on_call_users SET is_current_user = 0"); err != nil {
		return err
	}
	if _, err := tx.ExecContext(ctx, `
		INSERT INTO on_call_users (user_name, is_current_user) VALUES (?, 1)
		ON CONFLICT(user_name) DO UPDATE SET is_current_user = 1
	`, name); err != nil {
		return fmt.Errorf("failed to set current user %s: %w", name, err)
	}
	return tx.Commit()
}

// =============================================================================
// SYNC STATE
// =============================================================================

// LastSync returns the last successful schedule sync time.
func (s *Store) LastSync(ctx context.Context) (time.Time, bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var v string
	err := s.db.QueryRowContext(ctx, "SELECT value FROM sync_state WHERE key = ?", lastSyncKey).Scan(&v)
	if errors.Is(err, sql.ErrNoRows) {
		return time.Time{}, false, nil
	}
	if err != nil {
		return time.Time{}, false, fmt.Errorf("failed to read sync state: %w", err)
	}
	t := parseTime(v)
	return t, !t.IsZero(), nil
}

// SetLastSync records a successful sync.
func (s *Store) SetLastSync(ctx context.Context, t time.Time) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	_, err := s.db.ExecContext(ctx, `
		INSERT INTO sync_state (key, value) VALUES (?, ?)
		ON CONFLICT(key) DO UPDATE SET value = excluded.value
	`, lastSyncKey, formatTime(t))
	if err != nil {
		return fmt.Errorf("failed to save sync state: %w", err)
	}
	return nil
}
