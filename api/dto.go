/*
dto.go - Request and response bodies of the HTTP API

NAMING CONVENTION:
  - *Request: request body types from clients
  - *Response: response wrappers that are not plain domain types

Domain types (timesheet.TimeEntry, oncall.Assignment, report.Report, ...)
are returned as-is; their JSON tags are the wire contract.

VALIDATION:
  Request bodies carry go-playground/validator tags and are checked by
  decodeAndValidate before a handler touches them. Dates travel as
  YYYY-MM-DD strings.

SEE ALSO:
  - handlers.go: Uses these types
*/
package api

import (
	"time"

	"github.com/vrs/time-wizard/calendar"
	"github.com/vrs/time-wizard/timesheet"
)

// =============================================================================
// TIMESHEET
// =============================================================================

// SetEntryRequest writes both hour columns of one entry.
type SetEntryRequest struct {
	WorkDate string   `json:"work_date" validate:"required,datetime=2006-01-02"`
	LineCode string   `json:"line_code" validate:"required,max=64"`
	STHours  *float64 `json:"st_hours" validate:"required,gte=0,lte=24"`
	OTHours  *float64 `json:"ot_hours" validate:"required,gte=0,lte=24"`
}

// StepRequest adds or removes one hour.
type StepRequest struct {
	WorkDate string `json:"work_date" validate:"required,datetime=2006-01-02"`
	LineCode string `json:"line_code" validate:"required,max=64"`
	Kind     string `json:"kind" validate:"required,oneof=st ot ST OT"`
}

// AddLineRequest creates "PROJECT <n>".
type AddLineRequest struct {
	ProjectNumber int `json:"project_number" validate:"required,gt=0"`
}

// UpdateLineRequest toggles display of a line.
type UpdateLineRequest struct {
	IsVisible *bool `json:"is_visible" validate:"required"`
}

// UpdateSettingRequest replaces one setting value.
type UpdateSettingRequest struct {
	Value string `json:"value" validate:"required"`
}

// SaveNoteRequest stores the note for an entry. Blank text deletes it.
type SaveNoteRequest struct {
	WorkDate string `json:"work_date" validate:"required,datetime=2006-01-02"`
	LineCode string `json:"line_code" validate:"required,max=64"`
	NoteText string `json:"note_text" validate:"max=4000"`
}

// EntriesResponse lists entries together with the range they cover.
type EntriesResponse struct {
	Period  calendar.Period       `json:"period"`
	Entries []timesheet.TimeEntry `json:"entries"`
}

// =============================================================================
// ON-CALL
// =============================================================================

// CreateAssignmentRequest adds one on-call range.
type CreateAssignmentRequest struct {
	StartDate string `json:"start_date" validate:"required,datetime=2006-01-02"`
	EndDate   string `json:"end_date" validate:"required,datetime=2006-01-02"`
	UserName  string `json:"user_name" validate:"required,max=200"`
	Location  string `json:"location" validate:"max=200"`
	Notes     string `json:"notes" validate:"max=2000"`
}

// SwapRequest hands an assignment to someone else.
type SwapRequest struct {
	NewUserName string `json:"new_user_name" validate:"required,max=200"`
}

// AddUserRequest registers a user; IsCurrent also makes them the device user.
type AddUserRequest struct {
	UserName  string `json:"user_name" validate:"required,max=200"`
	IsCurrent bool   `json:"is_current"`
}

// OnCallStatusResponse answers "who is on call" for a date or range.
type OnCallStatusResponse struct {
	Period      calendar.Period `json:"period"`
	Assignments any             `json:"assignments"`
	IsMine      bool            `json:"is_mine"`
}

// =============================================================================
// COMMON
// =============================================================================

// HealthResponse is returned by GET /api/health.
type HealthResponse struct {
	Status string    `json:"status"`
	Time   time.Time `json:"time"`
}

// ErrorResponse is the body of every non-2xx response.
type ErrorResponse struct {
	Error   string `json:"error"`
	Details string `json:"details,omitempty"`
}
