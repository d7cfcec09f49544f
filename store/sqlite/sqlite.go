/*
Package sqlite provides a SQLite-backed implementation of the storage interfaces.

PURPOSE:
  Implements timesheet.Store and oncall.Store on a single SQLite file, the
  same file layout the mobile app keeps on device so exports and imports
  round-trip.

INTERFACES IMPLEMENTED:
  timesheet.Store: entries, line codes, settings, notes, snapshot/replace
  oncall.Store:    rotation schedule, users, last sync time

KEY TABLES:
  time_entries:     one row per (work_date, line_code), hours as decimal TEXT
  line_codes:       charge codes with visibility, project flag, ot_allowed
  settings:         key/value, includes the pay-cycle base and frequency
  work_notes:       free text per (work_date, line_code)
  on_call_schedule: rotation ranges, UNIQUE(start, end, user, location)
  on_call_users:    rotation members, at most one is_current_user
  sync_state:       key/value, last schedule sync time
  schema_version:   applied migration versions

INITIALIZATION:
  New runs Init. Init is safe to call from many goroutines: after the first
  success it returns immediately, and concurrent first callers share one
  in-flight run (singleflight). A failed run is not cached; the next call
  retries.

MIGRATIONS:
  Versioned, applied in order, each in its own transaction and recorded in
  schema_version. Databases created before versioning are upgraded in
  place because every step is written with IF NOT EXISTS / column checks.

CONCURRENCY:
  Uses sync.RWMutex: writes take the write lock, reads the read lock. WAL
  journal mode lets readers proceed while the single writer commits.

USAGE:
  store, err := sqlite.New("./data/timewizard.db")
  if err != nil {
      log.Fatal(err)
  }
  defer store.Close()

SEE ALSO:
  - timesheet/store.go, oncall/service.go: Interface definitions
  - store/memory: In-memory implementation for testing
*/
package sqlite

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	_ "github.com/mattn/go-sqlite3"
	"github.com/sirupsen/logrus"
	"golang.org/x/sync/singleflight"

	"github.com/vrs/time-wizard/logging"
	"github.com/vrs/time-wizard/oncall"
	"github.com/vrs/time-wizard/timesheet"
)

var (
	_ timesheet.Store = (*Store)(nil)
	_ oncall.Store    = (*Store)(nil)
)

// Store implements all storage interfaces using SQLite.
type Store struct {
	db  *sql.DB
	mu  sync.RWMutex
	log logrus.FieldLogger

	ready     atomic.Bool
	initGroup singleflight.Group
}

// Option configures a Store.
type Option func(*Store)

// WithLogger sets the logger migrations report to.
func WithLogger(log logrus.FieldLogger) Option {
	return func(s *Store) { s.log = log.WithField("component", "sqlite") }
}

// New opens the database at dbPath and initializes the schema.
// Use ":memory:" for an in-memory database.
func New(dbPath string, opts ...Option) (*Store, error) {
	db, err := sql.Open("sqlite3", dbPath+"?_foreign_keys=on&_journal_mode=WAL&_busy_timeout=5000")
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}
	if dbPath == ":memory:" || strings.HasPrefix(dbPath, "file::memory:") {
		// Every pooled connection would get its own empty in-memory database.
		db.SetMaxOpenConns(1)
	}

	store := &Store{db: db, log: logging.Discard()}
	for _, opt := range opts {
		opt(store)
	}

	if err := store.Init(context.Background()); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to initialize database: %w", err)
	}
	return store, nil
}

// Close closes the database connection.
func (s *Store) Close() error {
	return s.db.Close()
}

// Init applies pending migrations once.
func (s *Store) Init(ctx context.Context) error {
	if s.ready.Load() {
		return nil
	}
	_, err, _ := s.initGroup.Do("init", func() (any, error) {
		if s.ready.Load() {
			return nil, nil
		}
		s.mu.Lock()
		defer s.mu.Unlock()
		if err := s.migrate(ctx); err != nil {
			return nil, err
		}
		s.ready.Store(true)
		return nil, nil
	})
	return err
}

// SchemaVersion returns the highest applied migration.
func (s *Store) SchemaVersion(ctx context.Context) (int, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var v sql.NullInt64
	if err := s.db.QueryRowContext(ctx, "SELECT MAX(version) FROM schema_version").Scan(&v); err != nil {
		return 0, err
	}
	return int(v.Int64), nil
}

// =============================================================================
// MIGRATIONS
// =============================================================================

type migration struct {
	version int
	name    string
	up      func(ctx context.Context, tx *sql.Tx) error
}

var migrations = []migration{
	{1, "core tables and seed data", migrateCore},
	{2, "on-call schedule", migrateOnCall},
	{3, "work notes", migrateNotes},
	{4, "line_codes.ot_allowed", migrateOTAllowed},
}

func (s *Store) migrate(ctx context.Context) error {
	if _, err := s.db.ExecContext(ctx, `
		CREATE TABLE IF NOT EXISTS schema_version (
			version INTEGER PRIMARY KEY,
			name TEXT NOT NULL,
			applied_at TEXT NOT NULL
		)`); err != nil {
		return fmt.Errorf("create schema_version: %w", err)
	}

	applied := make(map[int]bool)
	rows, err := s.db.QueryContext(ctx, "SELECT version FROM schema_version")
	if err != nil {
		return err
	}
	for rows.Next() {
		var v int
		if err := rows.Scan(&v); err != nil {
			rows.Close()
			return err
		}
		applied[v] = true
	}
	rows.Close()
	if err := rows.Err(); err != nil {
		return err
	}

	for _, m := range migrations {
		if applied[m.version] {
			continue
		}
		if err := s.apply(ctx, m); err != nil {
			return fmt.Errorf("migration %d (%s): %w", m.version, m.name, err)
		}
		s.log.WithField("version", m.version).Infof("applied migration: %s", m.name)
	}
	return nil
}

func (s *Store) apply(ctx context.Context, m migration) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	if err := m.up(ctx, tx); err != nil {
		return err
	}
	if _, err := tx.ExecContext(ctx,
		"INSERT INTO schema_version (version, name, applied_at) VALUES (?, ?, ?)",
		m.version, m.name, time.Now().UTC().Format(time.RFC3339),
	); err != nil {
		return err
	}
	return tx.Commit()
}

func migrateCore(ctx context.Context, tx *sql.Tx) error {
	schema := `
	CREATE TABLE IF NOT EXISTS time_entries (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		work_date TEXT NOT NULL,
		line_code TEXT NOT NULL,
		st_hours TEXT NOT NULL DEFAULT '0',
		ot_hours TEXT NOT NULL DEFAULT '0',
		week_ending_date TEXT NOT NULL,
		is_pay_week INTEGER NOT NULL DEFAULT 0,
		updated_at TEXT NOT NULL DEFAULT '',
		UNIQUE(work_date, line_code)
	);

	-- Week screen and pay-cycle lookups (hot path)
	CREATE INDEX IF NOT EXISTS idx_time_entries_week
		ON time_entries(week_ending_date);
	CREATE INDEX IF NOT EXISTS idx_time_entries_date
		ON time_entries(work_date);

	CREATE TABLE IF NOT EXISTS line_codes (
		line_code TEXT PRIMARY KEY,
		label TEXT NOT NULL,
		is_visible INTEGER NOT NULL DEFAULT 1,
		is_project INTEGER NOT NULL DEFAULT 0,
		sort_order INTEGER NOT NULL DEFAULT 0
	);

	CREATE TABLE IF NOT EXISTS settings (
		key TEXT PRIMARY KEY,
		value TEXT NOT NULL
	);
	`
	if _, err := tx.ExecContext(ctx, schema); err != nil {
		return err
	}

	for _, l := range timesheet.DefaultLines() {
		if _, err := tx.ExecContext(ctx, `
			INSERT OR IGNORE INTO line_codes (line_code, label, is_visible, is_project, sort_order)
			VALUES (?, ?, ?, ?, ?)`,
			l.Code, l.Label, l.IsVisible, l.IsProject, l.SortOrder,
		); err != nil {
			return fmt.Errorf("seed line %s: %w", l.Code, err)
		}
	}
	for _, st := range timesheet.DefaultSettings() {
		if _, err := tx.ExecContext(ctx,
			"INSERT OR IGNORE INTO settings (key, value) VALUES (?, ?)", st.Key, st.Value,
		); err != nil {
			return fmt.Errorf("seed setting %s: %w", st.Key, err)
		}
	}
	return nil
}

func migrateOnCall(ctx context.Context, tx *sql.Tx) error {
	_, err := tx.ExecContext(ctx, `
	CREATE TABLE IF NOT EXISTS on_call_users (
		user_name TEXT PRIMARY KEY,
		is_current_user INTEGER NOT NULL DEFAULT 0
	);

	CREATE TABLE IF NOT EXISTS on_call_schedule (
		id TEXT PRIMARY KEY,
		start_date TEXT NOT NULL,
		end_date TEXT NOT NULL,
		user_name TEXT NOT NULL,
		location TEXT NOT NULL DEFAULT '',
		notes TEXT NOT NULL DEFAULT '',
		is_swapped INTEGER NOT NULL DEFAULT 0,
		original_user_name TEXT NOT NULL DEFAULT '',
		UNIQUE(start_date, end_date, user_name, location)
	);

	CREATE INDEX IF NOT EXISTS idx_on_call_schedule_range
		ON on_call_schedule(start_date, end_date);

	CREATE TABLE IF NOT EXISTS sync_state (
		key TEXT PRIMARY KEY,
		value TEXT NOT NULL
	);
	`)
	return err
}

func migrateNotes(ctx context.Context, tx *sql.Tx) error {
	_, err := tx.ExecContext(ctx, `
	CREATE TABLE IF NOT EXISTS work_notes (
		work_date TEXT NOT NULL,
		line_code TEXT NOT NULL,
		note_text TEXT NOT NULL,
		updated_at TEXT NOT NULL,
		PRIMARY KEY (work_date, line_code)
	);
	`)
	return err
}

func migrateOTAllowed(ctx context.Context, tx *sql.Tx) error {
	exists, err := hasColumn(ctx, tx, "line_codes", "ot_allowed")
	if err != nil {
		return err
	}
	if !exists {
		if _, err := tx.ExecContext(ctx,
			"ALTER TABLE line_codes ADD COLUMN ot_allowed INTEGER NOT NULL DEFAULT 1"); err != nil {
			return err
		}
	}
	for _, l := range timesheet.DefaultLines() {
		if timesheet.DefaultOTAllowed(l.Code) {
			continue
		}
		if _, err := tx.ExecContext(ctx,
			"UPDATE line_codes SET ot_allowed = 0 WHERE line_code = ?", l.Code); err != nil {
			return err
		}
	}
	return nil
}

func hasColumn(ctx context.Context, tx *sql.Tx, table, column string) (bool, error) {
	rows, err := tx.QueryContext(ctx, "SELECT name FROM pragma_table_info(?)", table)
	if err != nil {
		return false, err
	}
	defer rows.Close()
	for rows.Next() {
		var name string
		if err := rows.Scan(&name); err != nil {
			return false, err
		}
		if name == column {
			return true, nil
		}
	}
	return false, rows.Err()
}

// =============================================================================
// HELPERS
// =============================================================================

// execer is satisfied by *sql.DB and *sql.Tx.
type execer interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
}

func isUniqueConstraintError(err error) bool {
	return err != nil && strings.Contains(err.Error(), "UNIQUE constraint failed")
}

func formatTime(t time.Time) string {
	return t.UTC().Format(time.RFC3339Nano)
}

func parseTime(s string) time.Time {
	t, err := time.Parse(time.RFC3339Nano, s)
	if err != nil {
		return time.Time{}
	}
	return t
}
