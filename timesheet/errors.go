/*
errors.go - Error types for timesheet operations

ERROR CATEGORIES:
  1. Aggregation input errors - an entry handed to a weekly aggregate does
     not belong to that week (AggregationInputError)
  2. Policy violations - a rejected increment (PolicyViolation). These are
     recoverable and shown to the user as a refused action.
  3. Lookup errors - missing or undeletable line codes
  4. Date and configuration errors live in package calendar and pass
     through unchanged

SEE ALSO:
  - calendar/errors.go: InvalidDateError, ConfigurationError
  - api/handlers.go: Maps these onto HTTP status codes
*/
package timesheet

import (
	"errors"
	"fmt"

	"github.com/vrs/time-wizard/calendar"
)

// =============================================================================
// SENTINEL ERRORS - Use with errors.Is()
// =============================================================================

var (
	// ErrAggregationInput is returned when an entry is attributed to the wrong week.
	ErrAggregationInput = errors.New("aggregation input inconsistent with week")

	// ErrPolicyViolation is returned when an hours change breaks an entry rule.
	ErrPolicyViolation = errors.New("policy violation")

	// ErrNotPayWeek is returned when a pay-cycle roll-up is requested for a
	// week that is not a pay week.
	ErrNotPayWeek = errors.New("not a pay week")

	// ErrLineNotFound is returned when a line code does not exist.
	ErrLineNotFound = errors.New("line code not found")

	// ErrNotProjectLine is returned when deleting one of the fixed seed lines.
	ErrNotProjectLine = errors.New("only project lines can be deleted")

	// ErrDuplicateLine is returned when adding a line code that already exists.
	ErrDuplicateLine = errors.New("line code already exists")

	// ErrInvalidEntry is returned for malformed entry input (negative hours,
	// empty line code, unknown hour kind).
	ErrInvalidEntry = errors.New("invalid time entry")

	// ErrInvalidImport is returned when an import document cannot be applied.
	ErrInvalidImport = errors.New("invalid import document")
)

// =============================================================================
// STRUCTURED ERRORS - Carry additional context
// =============================================================================

// AggregationInputError names the entry that does not belong to the week.
type AggregationInputError struct {
	WorkDate   calendar.Date
	LineCode   string
	WeekEnding calendar.Date // week being aggregated
	Actual     calendar.Date // week the entry belongs to
	Reason     string
}

func (e *AggregationInputError) Error() string {
	if e.Reason != "" {
		return fmt.Sprintf("aggregation input %s/%s: %s", e.WorkDate, e.LineCode, e.Reason)
	}
	return fmt.Sprintf("aggregation input %s/%s belongs to week ending %s, not %s",
		e.WorkDate, e.LineCode, e.Actual, e.WeekEnding)
}

func (e *AggregationInputError) Unwrap() error {
	return ErrAggregationInput
}

// Rule identifies which entry policy was violated.
type Rule string

const (
	RuleDailyST    Rule = "daily_st_limit"
	RuleWeeklyST   Rule = "weekly_st_limit"
	RuleNoOvertime Rule = "ot_not_allowed"
	RuleNegative   Rule = "negative_hours"
)

// PolicyViolation describes a rejected hours change.
type PolicyViolation struct {
	Rule     Rule
	LineCode string
	WorkDate calendar.Date
	Limit    Hours
	Current  Hours
}

func (e *PolicyViolation) Error() string {
	switch e.Rule {
	case RuleDailyST:
		return fmt.Sprintf("%s on %s already has %s ST hours (limit %s per day)",
			e.LineCode, e.WorkDate, e.Current, e.Limit)
	case RuleWeeklyST:
		return fmt.Sprintf("week already has %s ST hours (limit %s); log the excess as OT",
			e.Current, e.Limit)
	case RuleNoOvertime:
		return fmt.Sprintf("%s does not allow OT hours", e.LineCode)
	case RuleNegative:
		return fmt.Sprintf("%s on %s: hours cannot be negative", e.LineCode, e.WorkDate)
	}
	return string(e.Rule)
}

func (e *PolicyViolation) Unwrap() error {
	return ErrPolicyViolation
}

// =============================================================================
// ERROR HELPERS
// =============================================================================

// IsClientError returns true if the error is due to invalid client input.
func IsClientError(err error) bool {
	return errors.Is(err, ErrAggregationInput) ||
		errors.Is(err, ErrPolicyViolation) ||
		errors.Is(err, ErrNotPayWeek) ||
		errors.Is(err, ErrNotProjectLine) ||
		errors.Is(err, ErrInvalidEntry) ||
		errors.Is(err, ErrInvalidImport) ||
		calendar.IsClientError(err)
}

// IsNotFound returns true if the error indicates a missing resource.
func IsNotFound(err error) bool {
	return errors.Is(err, ErrLineNotFound)
}

// IsConflict returns true if the write collides with existing data.
func IsConflict(err error) bool {
	return errors.Is(err, ErrDuplicateLine)
}
