package oncall

import (
	"errors"
	"fmt"
)

var (
	// ErrInvalidAssignment is returned for ranges that end before they start
	// or have no user.
	ErrInvalidAssignment = errors.New("invalid on-call assignment")

	// ErrAssignmentNotFound is returned when an assignment ID does not exist.
	ErrAssignmentNotFound = errors.New("on-call assignment not found")

	// ErrDuplicateAssignment is returned when the same (start, end, user,
	// location) is added twice.
	ErrDuplicateAssignment = errors.New("on-call assignment already exists")

	// ErrNoCurrentUser is returned by sync when no device user is configured.
	ErrNoCurrentUser = errors.New("no current on-call user configured")

	// ErrInvalidCSV is returned when a schedule CSV lacks its required headers.
	ErrInvalidCSV = errors.New("invalid schedule CSV")

	// ErrSyncNotConfigured is returned when sync runs without a schedule URL.
	ErrSyncNotConfigured = errors.New("schedule sync URL not configured")
)

// InvalidAssignmentError explains why an assignment was rejected.
type InvalidAssignmentError struct {
	Assignment Assignment
	Reason     string
}

func (e *InvalidAssignmentError) Error() string {
	return fmt.Sprintf("on-call %s..%s (%s): %s",
		e.Assignment.StartDate, e.Assignment.EndDate, e.Assignment.UserName, e.Reason)
}

func (e *InvalidAssignmentError) Unwrap() error {
	return ErrInvalidAssignment
}

// FetchError reports a failed schedule download.
type FetchError struct {
	URL        string
	StatusCode int // 0 for transport failures
	Attempts   int
	Err        error
}

func (e *FetchError) Error() string {
	if e.StatusCode != 0 {
		return fmt.Sprintf("fetch schedule: HTTP %d after %d attempt(s)", e.StatusCode, e.Attempts)
	}
	return fmt.Sprintf("fetch schedule after %d attempt(s): %v", e.Attempts, e.Err)
}

func (e *FetchError) Unwrap() error {
	return e.Err
}

// IsClientError returns true if the error is due to invalid caller input.
func IsClientError(err error) bool {
	return errors.Is(err, ErrInvalidAssignment) ||
		errors.Is(err, ErrInvalidCSV) ||
		errors.Is(err, ErrNoCurrentUser) ||
		errors.Is(err, ErrSyncNotConfigured)
}

// IsNotFound returns true if the error indicates a missing resource.
func IsNotFound(err error) bool {
	return errors.Is(err, ErrAssignmentNotFound)
}

// IsConflict returns true if the write collides with existing data.
func IsConflict(err error) bool {
	return errors.Is(err, ErrDuplicateAssignment)
}
