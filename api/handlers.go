/*
handlers.go - HTTP API handlers

PURPOSE:
  Exposes the timesheet, report and on-call services as a JSON API for the
  mobile and web clients. Handlers parse and validate input, call one
  service method and serialize the result.

ENDPOINTS:
  Timesheet:
    GET    /api/week-info                 Week ending, pay-week flag, holidays
    GET    /api/dashboard                 Week info + summary + pay-cycle roll-up
    GET    /api/entries                   Entries of a week or a date range
    POST   /api/entries                   Set both hour columns of one entry
    POST   /api/entries/increment         Add one hour (stepper)
    POST   /api/entries/decrement         Remove one hour (stepper)
    GET    /api/weekly-summary            Totals of one week
    GET    /api/pay-cycle                 Two-week roll-up, null off pay weeks

  Lines, settings, notes:
    GET/POST /api/lines, PUT/DELETE /api/lines/{code}
    GET /api/settings, PUT /api/settings/{key}
    GET/PUT/DELETE /api/notes

  Data:
    GET    /api/export                    Backup document
    POST   /api/import                    Destructive restore
    GET    /api/reports                   Range report as json, csv or xlsx

  On-call: see oncall_handlers.go

ERROR HANDLING:
  Errors are returned as JSON ErrorResponse with:
  - 400: Invalid input, bad dates, bad pay-cycle configuration
  - 404: Unknown line code or assignment
  - 409: Duplicate line or assignment
  - 422: Policy violations (8h/day, 40h/week, no OT on the line)
  - 502: Upstream schedule fetch failed
  - 500: Everything else

SEE ALSO:
  - dto.go: Request/response data structures
  - server.go: Router setup and middleware
*/
package api

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-playground/validator/v10"
	"github.com/sirupsen/logrus"

	"github.com/vrs/time-wizard/calendar"
	"github.com/vrs/time-wizard/logging"
	"github.com/vrs/time-wizard/oncall"
	"github.com/vrs/time-wizard/report"
	"github.com/vrs/time-wizard/timesheet"
)

// maxImportBytes bounds JSON and CSV uploads.
const maxImportBytes = 10 << 20

// =============================================================================
// HANDLER CONTEXT
// =============================================================================

// Handler holds all dependencies for HTTP handlers.
type Handler struct {
	Timesheet *timesheet.Service
	OnCall    *oncall.Service
	Syncer    *oncall.Syncer // nil disables POST /api/oncall/sync
	Location  *time.Location

	log      logrus.FieldLogger
	validate *validator.Validate
}

// NewHandler creates a handler. syncer, loc and log may be nil.
func NewHandler(ts *timesheet.Service, oc *oncall.Service, syncer *oncall.Syncer, loc *time.Location, log logrus.FieldLogger) *Handler {
	if loc == nil {
		loc = time.Local
	}
	if log == nil {
		log = logging.Discard()
	}
	return &Handler{
		Timesheet: ts,
		OnCall:    oc,
		Syncer:    syncer,
		Location:  loc,
		log:       log.WithField("component", "api"),
		validate:  validator.New(),
	}
}

func (h *Handler) today() calendar.Date { return calendar.Today(h.Location) }

// Health reports liveness.
// GET /api/health
func (h *Handler) Health(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, HealthResponse{Status: "ok", Time: time.Now().UTC()})
}

// =============================================================================
// WEEK VIEW
// =============================================================================

// WeekInfo describes the week containing ?date (default today).
// GET /api/week-info?date=YYYY-MM-DD
func (h *Handler) WeekInfo(w http.ResponseWriter, r *http.Request) {
	d, err := h.dateParam(r, "date")
	if err != nil {
		writeError(w, http.StatusBadRequest, "Invalid date", err)
		return
	}
	info, err := h.Timesheet.WeekInfo(r.Context(), d)
	if err != nil {
		h.writeDomainError(w, r, "Failed to compute week info", err)
		return
	}
	writeJSON(w, http.StatusOK, info)
}

// Dashboard returns everything the week screen renders.
// GET /api/dashboard?date=YYYY-MM-DD
func (h *Handler) Dashboard(w http.ResponseWriter, r *http.Request) {
	d, err := h.dateParam(r, "date")
	if err != nil {
		writeError(w, http.StatusBadRequest, "Invalid date", err)
		return
	}
	dash, err := h.Timesheet.Dashboard(r.Context(), d)
	if err != nil {
		h.writeDomainError(w, r, "Failed to build dashboard", err)
		return
	}
	writeJSON(w, http.StatusOK, dash)
}

// ListEntries returns the entries of one week, or of a date range when
// start_date and end_date are given.
// GET /api/entries?week_ending=... | ?start_date=...&end_date=...
func (h *Handler) ListEntries(w http.ResponseWriter, r *http.Request) {
	p, err := h.periodOrWeek(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, "Invalid date range", err)
		return
	}
	entries, err := h.Timesheet.EntriesInRange(r.Context(), p)
	if err != nil {
		h.writeDomainError(w, r, "Failed to list entries", err)
		return
	}
	if entries == nil {
		entries = []timesheet.TimeEntry{}
	}
	writeJSON(w, http.StatusOK, EntriesResponse{Period: p, Entries: entries})
}

// SetEntry writes both hour columns of one entry.
// POST /api/entries
func (h *Handler) SetEntry(w http.ResponseWriter, r *http.Request) {
	var req SetEntryRequest
	if !h.decodeAndValidate(w, r, &req) {
		return
	}
	d, err := calendar.ParseDate(req.WorkDate)
	if err != nil {
		writeError(w, http.StatusBadRequest, "Invalid work_date", err)
		return
	}
	entry, err := h.Timesheet.SetHours(r.Context(), timesheet.TimeEntry{
		WorkDate: d,
		LineCode: req.LineCode,
		STHours:  timesheet.NewHoursFromFloat(*req.STHours),
		OTHours:  timesheet.NewHoursFromFloat(*req.OTHours),
	})
	if err != nil {
		h.writeDomainError(w, r, "Failed to save entry", err)
		return
	}
	writeJSON(w, http.StatusOK, entry)
}

// IncrementEntry adds one hour.
// POST /api/entries/increment
func (h *Handler) IncrementEntry(w http.ResponseWriter, r *http.Request) {
	h.step(w, r, h.Timesheet.Increment)
}

// DecrementEntry removes one hour, never going below zero.
// POST /api/entries/decrement
func (h *Handler) DecrementEntry(w http.ResponseWriter, r *http.Request) {
	h.step(w, r, h.Timesheet.Decrement)
}

type stepFunc = func(ctx context.Context, key timesheet.EntryKey, kind timesheet.HourKind) (timesheet.TimeEntry, error)

func (h *Handler) step(w http.ResponseWriter, r *http.Request, fn stepFunc) {
	var req StepRequest
	if !h.decodeAndValidate(w, r, &req) {
		return
	}
	d, err := calendar.ParseDate(req.WorkDate)
	if err != nil {
		writeError(w, http.StatusBadRequest, "Invalid work_date", err)
		return
	}
	kind, err := timesheet.ParseHourKind(req.Kind)
	if err != nil {
		writeError(w, http.StatusBadRequest, "Invalid kind", err)
		return
	}
	entry, err := fn(r.Context(), timesheet.EntryKey{WorkDate: d, LineCode: req.LineCode}, kind)
	if err != nil {
		h.writeDomainError(w, r, "Failed to update entry", err)
		return
	}
	writeJSON(w, http.StatusOK, entry)
}

// WeeklySummary aggregates the week ending ?week_ending (any date in the
// week is accepted; default this week).
// GET /api/weekly-summary?week_ending=YYYY-MM-DD
func (h *Handler) WeeklySummary(w http.ResponseWriter, r *http.Request) {
	d, err := h.dateParam(r, "week_ending")
	if err != nil {
		writeError(w, http.StatusBadRequest, "Invalid week_ending", err)
		return
	}
	summary, err := h.Timesheet.WeeklySummary(r.Context(), d)
	if err != nil {
		h.writeDomainError(w, r, "Failed to build weekly summary", err)
		return
	}
	writeJSON(w, http.StatusOK, summary)
}

// PayCycle returns the two-week roll-up, or null when the week is not a
// pay week.
// GET /api/pay-cycle?week_ending=YYYY-MM-DD
func (h *Handler) PayCycle(w http.ResponseWriter, r *http.Request) {
	d, err := h.dateParam(r, "week_ending")
	if err != nil {
		writeError(w, http.StatusBadRequest, "Invalid week_ending", err)
		return
	}
	totals, err := h.Timesheet.PayCycleSummary(r.Context(), d)
	if err != nil {
		h.writeDomainError(w, r, "Failed to build pay-cycle totals", err)
		return
	}
	writeJSON(w, http.StatusOK, totals)
}

// =============================================================================
// LINE CODES
// =============================================================================

// ListLines returns all line codes in display order, hidden ones included.
// GET /api/lines
func (h *Handler) ListLines(w http.ResponseWriter, r *http.Request) {
	lines, err := h.Timesheet.Lines(r.Context())
	if err != nil {
		h.writeDomainError(w, r, "Failed to list lines", err)
		return
	}
	writeJSON(w, http.StatusOK, lines)
}

// AddLine creates a project line.
// POST /api/lines
func (h *Handler) AddLine(w http.ResponseWriter, r *http.Request) {
	var req AddLineRequest
	if !h.decodeAndValidate(w, r, &req) {
		return
	}
	line, err := h.Timesheet.AddProjectLine(r.Context(), req.ProjectNumber)
	if err != nil {
		h.writeDomainError(w, r, "Failed to add line", err)
		return
	}
	writeJSON(w, http.StatusCreated, line)
}

// UpdateLine shows or hides a line.
// PUT /api/lines/{code}
func (h *Handler) UpdateLine(w http.ResponseWriter, r *http.Request) {
	var req UpdateLineRequest
	if !h.decodeAndValidate(w, r, &req) {
		return
	}
	line, err := h.Timesheet.SetLineVisibility(r.Context(), chi.URLParam(r, "code"), *req.IsVisible)
	if err != nil {
		h.writeDomainError(w, r, "Failed to update line", err)
		return
	}
	writeJSON(w, http.StatusOK, line)
}

// DeleteLine removes a project line. Its entries are kept.
// DELETE /api/lines/{code}
func (h *Handler) DeleteLine(w http.ResponseWriter, r *http.Request) {
	if err := h.Timesheet.DeleteProjectLine(r.Context(), chi.URLParam(r, "code")); err != nil {
		h.writeDomainError(w, r, "Failed to delete line", err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// =============================================================================
// SETTINGS
// =============================================================================

// ListSettings returns all settings.
// GET /api/settings
func (h *Handler) ListSettings(w http.ResponseWriter, r *http.Request) {
	settings, err := h.Timesheet.Settings(r.Context())
	if err != nil {
		h.writeDomainError(w, r, "Failed to list settings", err)
		return
	}
	writeJSON(w, http.StatusOK, settings)
}

// UpdateSetting replaces one setting. Pay-cycle settings are validated.
// PUT /api/settings/{key}
func (h *Handler) UpdateSetting(w http.ResponseWriter, r *http.Request) {
	var req UpdateSettingRequest
	if !h.decodeAndValidate(w, r, &req) {
		return
	}
	key := chi.URLParam(r, "key")
	if err := h.Timesheet.UpdateSetting(r.Context(), key, req.Value); err != nil {
		h.writeDomainError(w, r, "Failed to update setting", err)
		return
	}
	writeJSON(w, http.StatusOK, timesheet.Setting{Key: key, Value: req.Value})
}

// =============================================================================
// NOTES
// =============================================================================

// ListNotes returns notes of a week or range.
// GET /api/notes?week_ending=... | ?start_date=...&end_date=...
func (h *Handler) ListNotes(w http.ResponseWriter, r *http.Request) {
	p, err := h.periodOrWeek(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, "Invalid date range", err)
		return
	}
	notes, err := h.Timesheet.NotesInRange(r.Context(), p)
	if err != nil {
		h.writeDomainError(w, r, "Failed to list notes", err)
		return
	}
	if notes == nil {
		notes = []timesheet.WorkNote{}
	}
	writeJSON(w, http.StatusOK, notes)
}

// SaveNote stores a note; blank text deletes it and returns 204.
// PUT /api/notes
func (h *Handler) SaveNote(w http.ResponseWriter, r *http.Request) {
	var req SaveNoteRequest
	if !h.decodeAndValidate(w, r, &req) {
		return
	}
	d, err := calendar.ParseDate(req.WorkDate)
	if err != nil {
		writeError(w, http.StatusBadRequest, "Invalid work_date", err)
		return
	}
	note, err := h.Timesheet.SaveNote(r.Context(), timesheet.EntryKey{WorkDate: d, LineCode: req.LineCode}, req.NoteText)
	if err != nil {
		h.writeDomainError(w, r, "Failed to save note", err)
		return
	}
	if note == nil {
		w.WriteHeader(http.StatusNoContent)
		return
	}
	writeJSON(w, http.StatusOK, note)
}

// DeleteNote removes the note of one entry.
// DELETE /api/notes?work_date=...&line_code=...
func (h *Handler) DeleteNote(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	d, err := calendar.ParseDate(q.Get("work_date"))
	if err != nil {
		writeError(w, http.StatusBadRequest, "Invalid work_date", err)
		return
	}
	line := strings.TrimSpace(q.Get("line_code"))
	if line == "" {
		writeError(w, http.StatusBadRequest, "line_code is required", nil)
		return
	}
	if err := h.Timesheet.DeleteNote(r.Context(), timesheet.EntryKey{WorkDate: d, LineCode: line}); err != nil {
		h.writeDomainError(w, r, "Failed to delete note", err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// =============================================================================
// EXPORT / IMPORT
// =============================================================================

// Export downloads the backup document.
// GET /api/export
func (h *Handler) Export(w http.ResponseWriter, r *http.Request) {
	doc, err := h.Timesheet.Export(r.Context())
	if err != nil {
		h.writeDomainError(w, r, "Failed to export data", err)
		return
	}
	name := fmt.Sprintf("timesheet_backup_%s.json", h.today())
	w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=%q", name))
	writeJSON(w, http.StatusOK, doc)
}

// Import replaces all entries, lines and settings with the uploaded document.
// POST /api/import
func (h *Handler) Import(w http.ResponseWriter, r *http.Request) {
	body, err := io.ReadAll(http.MaxBytesReader(w, r.Body, maxImportBytes))
	if err != nil {
		writeError(w, http.StatusBadRequest, "Failed to read request body", err)
		return
	}
	doc, err := timesheet.DecodeExport(body)
	if err != nil {
		writeError(w, http.StatusBadRequest, "Invalid import document", err)
		return
	}
	res, err := h.Timesheet.Import(r.Context(), doc)
	if err != nil {
		h.writeDomainError(w, r, "Failed to import data", err)
		return
	}
	writeJSON(w, http.StatusOK, res)
}

// =============================================================================
// REPORTS
// =============================================================================

// Report builds a range report. ?range picks a preset (last30, ytd, ...);
// otherwise start_date and end_date are required. ?format is json (default),
// csv or xlsx.
// GET /api/reports
func (h *Handler) Report(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	var (
		p   calendar.Period
		err error
	)
	if kind := q.Get("range"); kind != "" {
		p, err = report.QuickRange(kind, h.today())
	} else {
		p, err = h.periodParams(r)
	}
	if err != nil {
		writeError(w, http.StatusBadRequest, "Invalid report range", err)
		return
	}

	ctx := r.Context()
	entries, err := h.Timesheet.EntriesInRange(ctx, p)
	if err != nil {
		h.writeDomainError(w, r, "Failed to load entries", err)
		return
	}
	notes, err := h.Timesheet.NotesInRange(ctx, p)
	if err != nil {
		h.writeDomainError(w, r, "Failed to load notes", err)
		return
	}
	rep, err := report.Build(entries, notes, p)
	if err != nil {
		h.writeDomainError(w, r, "Failed to build report", err)
		return
	}

	switch format := strings.ToLower(q.Get("format")); format {
	case "", "json":
		writeJSON(w, http.StatusOK, rep)
	case "csv":
		w.Header().Set("Content-Type", "text/csv; charset=utf-8")
		w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=%q", report.FileName(rep, "csv")))
		if err := report.WriteCSV(w, rep); err != nil {
			h.log.WithError(err).Error("write csv report")
		}
	case "xlsx":
		w.Header().Set("Content-Type", "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet")
		w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=%q", report.FileName(rep, "xlsx")))
		if err := report.WriteXLSX(w, rep); err != nil {
			h.log.WithError(err).Error("write xlsx report")
		}
	default:
		writeError(w, http.StatusBadRequest, fmt.Sprintf("Unknown format %q (use json, csv or xlsx)", format), nil)
	}
}

// =============================================================================
// HELPERS
// =============================================================================

// dateParam parses a YYYY-MM-DD query parameter, defaulting to today.
func (h *Handler) dateParam(r *http.Request, name string) (calendar.Date, error) {
	v := strings.TrimSpace(r.URL.Query().Get(name))
	if v == "" {
		return h.today(), nil
	}
	return calendar.ParseDate(v)
}

// periodParams reads start_date and end_date, both required.
func (h *Handler) periodParams(r *http.Request) (calendar.Period, error) {
	q := r.URL.Query()
	start, err := calendar.ParseDate(q.Get("start_date"))
	if err != nil {
		return calendar.Period{}, fmt.Errorf("start_date: %w", err)
	}
	end, err := calendar.ParseDate(q.Get("end_date"))
	if err != nil {
		return calendar.Period{}, fmt.Errorf("end_date: %w", err)
	}
	return calendar.NewPeriod(start, end)
}

// periodOrWeek uses start_date/end_date when present, else the week
// containing ?week_ending (default this week).
func (h *Handler) periodOrWeek(r *http.Request) (calendar.Period, error) {
	q := r.URL.Query()
	if q.Get("start_date") != "" || q.Get("end_date") != "" {
		return h.periodParams(r)
	}
	d, err := h.dateParam(r, "week_ending")
	if err != nil {
		return calendar.Period{}, err
	}
	return calendar.WeekOf(d), nil
}

// decodeAndValidate decodes a JSON body into dst and runs validator tags.
// It writes the 400 response itself and reports whether to continue.
func (h *Handler) decodeAndValidate(w http.ResponseWriter, r *http.Request, dst any) bool {
	dec := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxImportBytes))
	dec.DisallowUnknownFields()
	if err := dec.Decode(dst); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body", err)
		return false
	}
	if err := h.validate.Struct(dst); err != nil {
		writeError(w, http.StatusBadRequest, "Validation failed", err)
		return false
	}
	return true
}

// statusFor maps a domain error to an HTTP status.
func statusFor(err error) int {
	var fetchErr *oncall.FetchError
	switch {
	case timesheet.IsNotFound(err), oncall.IsNotFound(err):
		return http.StatusNotFound
	case timesheet.IsConflict(err), oncall.IsConflict(err):
		return http.StatusConflict
	case errors.Is(err, timesheet.ErrPolicyViolation), errors.Is(err, timesheet.ErrAggregationInput):
		return http.StatusUnprocessableEntity
	case timesheet.IsClientError(err), oncall.IsClientError(err), errors.Is(err, report.ErrUnknownRange):
		return http.StatusBadRequest
	case errors.As(err, &fetchErr):
		return http.StatusBadGateway
	default:
		return http.StatusInternalServerError
	}
}

// writeDomainError writes err with the status statusFor picks. Server-side
// failures are logged with the request id.
func (h *Handler) writeDomainError(w http.ResponseWriter, r *http.Request, message string, err error) {
	status := statusFor(err)
	if status >= http.StatusInternalServerError || status == http.StatusBadGateway {
		h.log.WithError(err).
			WithField("request_id", middleware.GetReqID(r.Context())).
			WithField("path", r.URL.Path).
			Error(message)
	}
	writeError(w, status, message, err)
}

func writeJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(data)
}

func writeError(w http.ResponseWriter, status int, message string, err error) {
	resp := ErrorResponse{Error: message}
	if err != nil {
		resp.Details = err.Error()
	}
	writeJSON(w, status, resp)
}
