package api

import (
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/vrs/time-wizard/calendar"
	"github.com/vrs/time-wizard/oncall"
)

// =============================================================================
// ON-CALL QUERIES
// =============================================================================

// ListOnCall returns assignments overlapping the range and whether the
// current user covers exactly that range.
// GET /api/oncall?start_date=...&end_date=...
func (h *Handler) ListOnCall(w http.ResponseWriter, r *http.Request) {
	p, err := h.periodParams(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, "Invalid date range", err)
		return
	}
	ctx := r.Context()
	schedule, err := h.OnCall.InRange(ctx, p)
	if err != nil {
		h.writeDomainError(w, r, "Failed to load schedule", err)
		return
	}
	mine, err := h.isMine(r, p)
	if err != nil {
		h.writeDomainError(w, r, "Failed to load current user", err)
		return
	}
	writeJSON(w, http.StatusOK, OnCallStatusResponse{Period: p, Assignments: nonNil(schedule), IsMine: mine})
}

// OnCallForDate returns everyone whose range contains the date.
// GET /api/oncall/date/{date}
func (h *Handler) OnCallForDate(w http.ResponseWriter, r *http.Request) {
	d, err := calendar.ParseDate(chi.URLParam(r, "date"))
	if err != nil {
		writeError(w, http.StatusBadRequest, "Invalid date", err)
		return
	}
	found, err := h.OnCall.ForDate(r.Context(), d)
	if err != nil {
		h.writeDomainError(w, r, "Failed to load schedule", err)
		return
	}
	p := calendar.Period{Start: d, End: d}
	writeJSON(w, http.StatusOK, OnCallStatusResponse{Period: p, Assignments: nonNil(found), IsMine: h.containsCurrent(r, found)})
}

// Weekends returns the weekend cards of a month (default this month).
// GET /api/oncall/weekends?year=2025&month=11
func (h *Handler) Weekends(w http.ResponseWriter, r *http.Request) {
	today := h.today()
	year, month := today.Year(), today.Month()
	q := r.URL.Query()
	if v := q.Get("year"); v != "" {
		y, err := strconv.Atoi(v)
		if err != nil || y < 1 {
			writeError(w, http.StatusBadRequest, "Invalid year", err)
			return
		}
		year = y
	}
	if v := q.Get("month"); v != "" {
		m, err := strconv.Atoi(v)
		if err != nil || m < 1 || m > 12 {
			writeError(w, http.StatusBadRequest, "Invalid month", err)
			return
		}
		month = time.Month(m)
	}
	weekends, err := h.OnCall.Weekends(r.Context(), year, month)
	if err != nil {
		h.writeDomainError(w, r, "Failed to load weekends", err)
		return
	}
	writeJSON(w, http.StatusOK, weekends)
}

// UpcomingShifts lists the current user's shifts from today on.
// GET /api/oncall/upcoming
func (h *Handler) UpcomingShifts(w http.ResponseWriter, r *http.Request) {
	shifts, err := h.OnCall.MyUpcomingShifts(r.Context(), h.today())
	if err != nil {
		h.writeDomainError(w, r, "Failed to load upcoming shifts", err)
		return
	}
	writeJSON(w, http.StatusOK, nonNil(shifts))
}

// =============================================================================
// ON-CALL WRITES
// =============================================================================

// CreateAssignment adds one assignment.
// POST /api/oncall/assignments
func (h *Handler) CreateAssignment(w http.ResponseWriter, r *http.Request) {
	var req CreateAssignmentRequest
	if !h.decodeAndValidate(w, r, &req) {
		return
	}
	start, err := calendar.ParseDate(req.StartDate)
	if err != nil {
		writeError(w, http.StatusBadRequest, "Invalid start_date", err)
		return
	}
	end, err := calendar.ParseDate(req.EndDate)
	if err != nil {
		writeError(w, http.StatusBadRequest, "Invalid end_date", err)
		return
	}
	a, err := h.OnCall.AddAssignment(r.Context(), oncall.Assignment{
		StartDate: start,
		EndDate:   end,
		UserName:  req.UserName,
		Location:  req.Location,
		Notes:     req.Notes,
	})
	if err != nil {
		h.writeDomainError(w, r, "Failed to add assignment", err)
		return
	}
	writeJSON(w, http.StatusCreated, a)
}

// SwapAssignment hands an assignment to another user.
// POST /api/oncall/assignments/{id}/swap
func (h *Handler) SwapAssignment(w http.ResponseWriter, r *http.Request) {
	var req SwapRequest
	if !h.decodeAndValidate(w, r, &req) {
		return
	}
	a, err := h.OnCall.Swap(r.Context(), chi.URLParam(r, "id"), req.NewUserName)
	if err != nil {
		h.writeDomainError(w, r, "Failed to swap assignment", err)
		return
	}
	writeJSON(w, http.StatusOK, a)
}

// ImportSchedule replaces the schedule with an uploaded CSV body.
// POST /api/oncall/import
func (h *Handler) ImportSchedule(w http.ResponseWriter, r *http.Request) {
	body := http.MaxBytesReader(w, r.Body, maxImportBytes)
	res, err := h.OnCall.ImportCSV(r.Context(), body, h.today())
	if err != nil {
		h.writeDomainError(w, r, "Failed to import schedule", err)
		return
	}
	writeJSON(w, http.StatusOK, res)
}

// SyncSchedule fetches the published schedule now.
// POST /api/oncall/sync
func (h *Handler) SyncSchedule(w http.ResponseWriter, r *http.Request) {
	if h.Syncer == nil {
		h.writeDomainError(w, r, "Schedule sync is not configured", oncall.ErrSyncNotConfigured)
		return
	}
	res, err := h.Syncer.Sync(r.Context())
	if err != nil {
		h.writeDomainError(w, r, "Failed to sync schedule", err)
		return
	}
	writeJSON(w, http.StatusOK, res)
}

// =============================================================================
// USERS
// =============================================================================

// ListUsers returns everyone on the rotation.
// GET /api/oncall/users
func (h *Handler) ListUsers(w http.ResponseWriter, r *http.Request) {
	users, err := h.OnCall.Users(r.Context())
	if err != nil {
		h.writeDomainError(w, r, "Failed to list users", err)
		return
	}
	writeJSON(w, http.StatusOK, nonNil(users))
}

// AddUser registers a user, optionally as the device's current user.
// POST /api/oncall/users
func (h *Handler) AddUser(w http.ResponseWriter, r *http.Request) {
	var req AddUserRequest
	if !h.decodeAndValidate(w, r, &req) {
		return
	}
	ctx := r.Context()
	name := strings.TrimSpace(req.UserName)
	var err error
	if req.IsCurrent {
		err = h.OnCall.SetCurrentUser(ctx, name)
	} else {
		err = h.OnCall.AddUser(ctx, name)
	}
	if err != nil {
		h.writeDomainError(w, r, "Failed to save user", err)
		return
	}
	writeJSON(w, http.StatusCreated, oncall.User{UserName: name, IsCurrentUser: req.IsCurrent})
}

// =============================================================================
// HELPERS
// =============================================================================

func (h *Handler) isMine(r *http.Request, p calendar.Period) (bool, error) {
	current, err := h.OnCall.CurrentUser(r.Context())
	if err != nil || current == nil {
		return false, err
	}
	return h.OnCall.IsUserOnCallForRange(r.Context(), current.UserName, p)
}

func (h *Handler) containsCurrent(r *http.Request, found []oncall.Assignment) bool {
	current, err := h.OnCall.CurrentUser(r.Context())
	if err != nil || current == nil {
		return false
	}
	for _, a := range found {
		if a.UserName == current.UserName {
			return true
		}
	}
	return false
}

func nonNil[T any](s []T) []T {
	if s == nil {
		return []T{}
	}
	return s
}
