package oncall

import (
	"context"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/vrs/time-wizard/calendar"
	"github.com/vrs/time-wizard/logging"
)

// =============================================================================
// STORE
// =============================================================================

// Store persists the rotation. Single-row lookups return (nil, nil) when
// the row does not exist.
type Store interface {
	// Schedule returns every assignment ordered by start date.
	Schedule(ctx context.Context) ([]Assignment, error)

	// ScheduleInRange returns assignments overlapping p.
	ScheduleInRange(ctx context.Context, p calendar.Period) ([]Assignment, error)

	Assignment(ctx context.Context, id string) (*Assignment, error)

	// AddAssignment returns ErrDuplicateAssignment for a repeated
	// (start, end, user, location).
	AddAssignment(ctx context.Context, a Assignment) error
	UpdateAssignment(ctx context.Context, a Assignment) error

	// ReplaceSchedule clears the schedule and inserts all of s atomically.
	ReplaceSchedule(ctx context.Context, s []Assignment) error

	Users(ctx context.Context) ([]User, error)

	// AddUser inserts a user if missing; an existing user is left unchanged.
	AddUser(ctx context.Context, name string) error

	// SetCurrentUser marks name as the device user and clears the flag
	// on everyone else. The user is created if missing.
	SetCurrentUser(ctx context.Context, name string) error

	LastSync(ctx context.Context) (time.Time, bool, error)
	SetLastSync(ctx context.Context, t time.Time) error
}

// =============================================================================
// SERVICE
// =============================================================================

// Service answers rotation queries over a Store.
type Service struct {
	store Store
	log   logrus.FieldLogger
}

// NewService creates a service. log may be nil.
func NewService(store Store, log logrus.FieldLogger) *Service {
	if log == nil {
		log = logging.Discard()
	}
	return &Service{store: store, log: log.WithField("component", "oncall")}
}

// ForDate returns everyone on call on d.
func (s *Service) ForDate(ctx context.Context, d calendar.Date) ([]Assignment, error) {
	schedule, err := s.store.ScheduleInRange(ctx, calendar.Period{Start: d, End: d})
	if err != nil {
		return nil, err
	}
	return FindOnCallForDate(schedule, d), nil
}

// InRange returns assignments overlapping p.
func (s *Service) InRange(ctx context.Context, p calendar.Period) ([]Assignment, error) {
	return s.store.ScheduleInRange(ctx, p)
}

// IsUserOnCallForRange is the exact-range check against stored data.
func (s *Service) IsUserOnCallForRange(ctx context.Context, user string, p calendar.Period) (bool, error) {
	schedule, err := s.store.ScheduleInRange(ctx, p)
	if err != nil {
		return false, err
	}
	return IsUserOnCallForRange(schedule, user, p.Start, p.End), nil
}

// Weekends returns the month's weekend cards, flagged for the current user.
func (s *Service) Weekends(ctx context.Context, year int, month time.Month) ([]Weekend, error) {
	schedule, err := s.store.ScheduleInRange(ctx, calendar.Month(year, month))
	if err != nil {
		return nil, err
	}
	current, err := s.CurrentUser(ctx)
	if err != nil {
		return nil, err
	}
	name := ""
	if current != nil {
		name = current.UserName
	}
	return WeekendsForMonth(schedule, year, month, name), nil
}

// MyUpcomingShifts lists the current user's shifts starting on or after from.
func (s *Service) MyUpcomingShifts(ctx context.Context, from calendar.Date) ([]Assignment, error) {
	current, err := s.CurrentUser(ctx)
	if err != nil {
		return nil, err
	}
	if current == nil {
		return nil, ErrNoCurrentUser
	}
	schedule, err := s.store.Schedule(ctx)
	if err != nil {
		return nil, err
	}
	return UpcomingShifts(schedule, current.UserName, from), nil
}

// AddAssignment validates and stores one assignment, registering its user.
func (s *Service) AddAssignment(ctx context.Context, a Assignment) (Assignment, error) {
	a, err := NewAssignment(a.StartDate, a.EndDate, a.UserName, a.Location, a.Notes)
	if err != nil {
		return Assignment{}, err
	}
	if err := s.store.AddAssignment(ctx, a); err != nil {
		return Assignment{}, err
	}
	if err := s.store.AddUser(ctx, a.UserName); err != nil {
		return Assignment{}, err
	}
	return a, nil
}

// Swap reassigns a stored assignment to newUser.
func (s *Service) Swap(ctx context.Context, id, newUser string) (Assignment, error) {
	a, err := s.store.Assignment(ctx, id)
	if err != nil {
		return Assignment{}, err
	}
	if a == nil {
		return Assignment{}, fmt.Errorf("%w: %s", ErrAssignmentNotFound, id)
	}
	swapped, err := Swap(*a, newUser)
	if err != nil {
		return Assignment{}, err
	}
	if err := s.store.UpdateAssignment(ctx, swapped); err != nil {
		return Assignment{}, err
	}
	if err := s.store.AddUser(ctx, swapped.UserName); err != nil {
		return Assignment{}, err
	}
	s.log.WithFields(logrus.Fields{
		"id":   id,
		"from": swapped.OriginalUserName,
		"to":   swapped.UserName,
	}).Info("shift swapped")
	return swapped, nil
}

// ImportResult summarizes a clear-then-import.
type ImportResult struct {
	Entries           int      `json:"entries"`
	Users             []string `json:"users"`
	UserShiftsChanged bool     `json:"user_shifts_changed"`
}

// ImportCSV parses a schedule sheet and replaces the stored rotation.
func (s *Service) ImportCSV(ctx context.Context, r io.Reader, today calendar.Date) (ImportResult, error) {
	records, err := ParseScheduleCSV(r)
	if err != nil {
		return ImportResult{}, err
	}
	schedule, err := RecordsToAssignments(records)
	if err != nil {
		return ImportResult{}, err
	}
	return s.Replace(ctx, schedule, today)
}

// Replace clears the rotation and imports schedule, registering every user.
// UserShiftsChanged compares the current user's upcoming shifts before and
// after the import.
func (s *Service) Replace(ctx context.Context, schedule []Assignment, today calendar.Date) (ImportResult, error) {
	for _, a := range schedule {
		if err := a.Validate(); err != nil {
			return ImportResult{}, err
		}
	}
	schedule = Dedupe(schedule)

	current, err := s.CurrentUser(ctx)
	if err != nil {
		return ImportResult{}, err
	}
	var before []Assignment
	if current != nil {
		old, err := s.store.Schedule(ctx)
		if err != nil {
			return ImportResult{}, err
		}
		before = UpcomingShifts(old, current.UserName, today)
	}

	if err := s.store.ReplaceSchedule(ctx, schedule); err != nil {
		return ImportResult{}, fmt.Errorf("replace schedule: %w", err)
	}

	users := UniqueUsers(schedule)
	for _, u := range users {
		if err := s.store.AddUser(ctx, u); err != nil {
			return ImportResult{}, err
		}
	}

	res := ImportResult{Entries: len(schedule), Users: users}
	if current != nil {
		res.UserShiftsChanged = ShiftsChanged(before, UpcomingShifts(schedule, current.UserName, today))
	}
	s.log.WithFields(logrus.Fields{
		"entries":       res.Entries,
		"users":         len(users),
		"shifts_change": res.UserShiftsChanged,
	}).Info("schedule imported")
	return res, nil
}

// Users lists the rotation members.
func (s *Service) Users(ctx context.Context) ([]User, error) {
	return s.store.Users(ctx)
}

// AddUser registers a rotation member.
func (s *Service) AddUser(ctx context.Context, name string) error {
	name = strings.TrimSpace(name)
	if name == "" {
		return fmt.Errorf("%w: user name is required", ErrInvalidAssignment)
	}
	return s.store.AddUser(ctx, name)
}

// SetCurrentUser selects the device's own user.
func (s *Service) SetCurrentUser(ctx context.Context, name string) error {
	name = strings.TrimSpace(name)
	if name == "" {
		return fmt.Errorf("%w: user name is required", ErrInvalidAssignment)
	}
	return s.store.SetCurrentUser(ctx, name)
}

// CurrentUser returns the device user or nil.
func (s *Service) CurrentUser(ctx context.Context) (*User, error) {
	users, err := s.store.Users(ctx)
	if err != nil {
		return nil, err
	}
	for _, u := range users {
		if u.IsCurrentUser {
			u := u
			return &u, nil
		}
	}
	return nil, nil
}
