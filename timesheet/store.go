/*
store.go - Persistence boundary for timesheet data

PURPOSE:
  Defines what the service needs from storage. The service computes all
  derived values; the store only has to keep rows and apply writes
  atomically.

CONTRACT:
  - UpsertEntry replaces the row keyed by (WorkDate, LineCode), derived
    fields included, in one atomic write.
  - Single-row lookups return (nil, nil) when the row does not exist.
  - ReplaceAll deletes every entry, line code and setting and inserts the
    snapshot in one transaction. There is no merge.
  - Errors are returned, never logged and dropped.

IMPLEMENTATIONS:
  - store/sqlite: Production SQLite
  - store/memory: In-memory for testing

SEE ALSO:
  - service.go: Sole consumer
*/
package timesheet

import (
	"context"

	"github.com/vrs/time-wizard/calendar"
)

// Store handles persistence of entries, line codes, settings and notes.
type Store interface {
	// EntriesForWeek returns entries whose work date falls in the
	// Sunday-Saturday week ending on weekEnding.
	EntriesForWeek(ctx context.Context, weekEnding calendar.Date) ([]TimeEntry, error)

	// EntriesInRange returns entries with work date in p, ordered by date then line.
	EntriesInRange(ctx context.Context, p calendar.Period) ([]TimeEntry, error)

	// Entry returns one entry or nil.
	Entry(ctx context.Context, key EntryKey) (*TimeEntry, error)

	// UpsertEntry inserts or replaces one entry.
	UpsertEntry(ctx context.Context, e TimeEntry) error

	Lines(ctx context.Context) ([]LineCode, error)
	Line(ctx context.Context, code string) (*LineCode, error)
	SaveLine(ctx context.Context, l LineCode) error
	DeleteLine(ctx context.Context, code string) error

	// MaxSortOrder returns the highest sort_order, and false when there
	// are no line codes.
	MaxSortOrder(ctx context.Context) (int, bool, error)

	// Setting returns the value and whether the key exists.
	Setting(ctx context.Context, key string) (string, bool, error)
	SetSetting(ctx context.Context, key, value string) error
	Settings(ctx context.Context) ([]Setting, error)

	SaveNote(ctx context.Context, n WorkNote) error
	DeleteNote(ctx context.Context, key EntryKey) error
	NotesInRange(ctx context.Context, p calendar.Period) ([]WorkNote, error)

	// Snapshot returns every entry, line code and setting.
	Snapshot(ctx context.Context) (Snapshot, error)

	// ReplaceAll is a destructive replace of entries, line codes and settings.
	ReplaceAll(ctx context.Context, snap Snapshot) error
}

// Snapshot is the full exportable state.
type Snapshot struct {
	Entries  []TimeEntry
	Lines    []LineCode
	Settings []Setting
}
