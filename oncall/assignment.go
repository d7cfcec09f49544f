/*
Package oncall tracks the weekend on-call rotation.

PURPOSE:
  The rotation is a list of (start_date, end_date, user) ranges, usually
  Saturday-Sunday, published as a CSV sheet and synced into the local
  store. This package answers "who is on call" questions against that
  list and owns the sync.

TWO KINDS OF MATCH:
  - Containment (FindOnCallForDate, IsUserOnCallForDate): start <= d <= end.
    Used for single-day calendar cells.
  - Exact range (FindForRange, IsUserOnCallForRange): start == range start
    AND end == range end. Used for weekend cards and badges; a shift that
    only overlaps the range does not match.

CO-COVERAGE:
  Overlapping ranges for different users are valid. Lookups return every
  match.

SEE ALSO:
  - csv.go: Schedule CSV parsing
  - sync.go: Periodic fetch and clear-then-import
*/
package oncall

import (
	"slices"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/vrs/time-wizard/calendar"
)

// =============================================================================
// TYPES
// =============================================================================

// Assignment is one on-call range.
type Assignment struct {
	ID               string        `json:"id"`
	StartDate        calendar.Date `json:"start_date"`
	EndDate          calendar.Date `json:"end_date"`
	UserName         string        `json:"user_name"`
	Location         string        `json:"location,omitempty"`
	Notes            string        `json:"notes,omitempty"`
	IsSwapped        bool          `json:"is_swapped"`
	OriginalUserName string        `json:"original_user_name,omitempty"`
}

// NewAssignment returns a validated assignment with a fresh ID.
func NewAssignment(start, end calendar.Date, user, location, notes string) (Assignment, error) {
	a := Assignment{
		ID:        uuid.NewString(),
		StartDate: start,
		EndDate:   end,
		UserName:  strings.TrimSpace(user),
		Location:  strings.TrimSpace(location),
		Notes:     strings.TrimSpace(notes),
	}
	return a, a.Validate()
}

// Validate checks end >= start and a non-empty user.
func (a Assignment) Validate() error {
	if a.EndDate.Before(a.StartDate) {
		return &InvalidAssignmentError{Assignment: a, Reason: "end date before start date"}
	}
	if a.UserName == "" {
		return &InvalidAssignmentError{Assignment: a, Reason: "user is required"}
	}
	return nil
}

// Period returns the inclusive range covered.
func (a Assignment) Period() calendar.Period {
	return calendar.Period{Start: a.StartDate, End: a.EndDate}
}

// identity is the uniqueness key of the schedule table.
func (a Assignment) identity() string {
	return a.StartDate.String() + "|" + a.EndDate.String() + "|" + a.UserName + "|" + a.Location
}

// shiftKey identifies a shift regardless of user, for change detection.
func (a Assignment) shiftKey() string {
	return a.StartDate.String() + "_" + a.EndDate.String()
}

// User is a person on the rotation. At most one is the device's own user.
type User struct {
	UserName      string `json:"user_name"`
	IsCurrentUser bool   `json:"is_current_user"`
}

// =============================================================================
// ELIGIBILITY
// =============================================================================

// FindOnCallForDate returns every assignment with start <= d <= end.
func FindOnCallForDate(schedule []Assignment, d calendar.Date) []Assignment {
	var out []Assignment
	for _, a := range schedule {
		if a.Period().Contains(d) {
			out = append(out, a)
		}
	}
	return out
}

// IsUserOnCallForDate is the containment check for one user.
func IsUserOnCallForDate(schedule []Assignment, user string, d calendar.Date) bool {
	for _, a := range schedule {
		if a.UserName == user && a.Period().Contains(d) {
			return true
		}
	}
	return false
}

// FindForRange returns assignments covering exactly [start, end].
func FindForRange(schedule []Assignment, start, end calendar.Date) []Assignment {
	want := calendar.Period{Start: start, End: end}
	var out []Assignment
	for _, a := range schedule {
		if a.Period().Equal(want) {
			out = append(out, a)
		}
	}
	return out
}

// IsUserOnCallForRange reports an exact [start, end] match for user. A
// shift that only overlaps the range does not count.
func IsUserOnCallForRange(schedule []Assignment, user string, start, end calendar.Date) bool {
	for _, a := range FindForRange(schedule, start, end) {
		if a.UserName == user {
			return true
		}
	}
	return false
}

// UpcomingShifts returns user's shifts starting on or after from, by start date.
func UpcomingShifts(schedule []Assignment, user string, from calendar.Date) []Assignment {
	var out []Assignment
	for _, a := range schedule {
		if a.UserName == user && a.StartDate.AfterOrEqual(from) {
			out = append(out, a)
		}
	}
	sortAssignments(out)
	return out
}

// Weekend is one Saturday-Sunday card of the month view.
type Weekend struct {
	Period      calendar.Period `json:"period"`
	Assignments []Assignment    `json:"assignments"`
	IsMine      bool            `json:"is_mine"`
}

// WeekendsForMonth lays out the month's weekends with their exact-range
// assignments. currentUser may be empty.
func WeekendsForMonth(schedule []Assignment, year int, month time.Month, currentUser string) []Weekend {
	periods := calendar.WeekendsInMonth(year, month)
	out := make([]Weekend, 0, len(periods))
	for _, p := range periods {
		w := Weekend{Period: p, Assignments: FindForRange(schedule, p.Start, p.End)}
		if w.Assignments == nil {
			w.Assignments = []Assignment{}
		}
		if currentUser != "" {
			w.IsMine = IsUserOnCallForRange(schedule, currentUser, p.Start, p.End)
		}
		out = append(out, w)
	}
	return out
}

// Swap hands an assignment to newUser. The first swap records the
// original user; later swaps keep it.
func Swap(a Assignment, newUser string) (Assignment, error) {
	newUser = strings.TrimSpace(newUser)
	if newUser == "" {
		return Assignment{}, &InvalidAssignmentError{Assignment: a, Reason: "swap target user is required"}
	}
	if !a.IsSwapped {
		a.OriginalUserName = a.UserName
	}
	a.IsSwapped = true
	a.UserName = newUser
	return a, nil
}

// ShiftsChanged compares two shift lists as sets of start/end pairs.
func ShiftsChanged(before, after []Assignment) bool {
	b := make(map[string]bool, len(before))
	for _, s := range before {
		b[s.shiftKey()] = true
	}
	a := make(map[string]bool, len(after))
	for _, s := range after {
		a[s.shiftKey()] = true
	}
	if len(a) != len(b) {
		return true
	}
	for k := range b {
		if !a[k] {
			return true
		}
	}
	return false
}

// Dedupe drops assignments repeating an earlier (start, end, user, location).
func Dedupe(schedule []Assignment) []Assignment {
	seen := make(map[string]bool, len(schedule))
	out := make([]Assignment, 0, len(schedule))
	for _, a := range schedule {
		if seen[a.identity()] {
			continue
		}
		seen[a.identity()] = true
		out = append(out, a)
	}
	return out
}

func sortAssignments(s []Assignment) {
	slices.SortStableFunc(s, func(a, b Assignment) int {
		if c := a.StartDate.Compare(b.StartDate); c != 0 {
			return c
		}
		if c := a.EndDate.Compare(b.EndDate); c != 0 {
			return c
		}
		return strings.Compare(a.UserName, b.UserName)
	})
}
