/*
server.go - HTTP router and middleware configuration

PURPOSE:
  Configures the chi router, the middleware stack and the route table.
  This is the wiring layer that connects URLs to handlers.

MIDDLEWARE STACK:
  1. RequestID:   Unique ID per request, echoed in error logs
  2. RealIP:      Client address behind a proxy
  3. AccessLog:   One logrus line per request
  4. Recoverer:   Panic recovery (500 instead of crash)
  5. CORS:        Cross-origin requests from the app

ROUTE GROUPS:
  /api/entries/*     Timesheet rows and the hour stepper
  /api/lines/*       Line codes
  /api/settings/*    Pay-cycle settings
  /api/notes         Work notes
  /api/oncall/*      On-call schedule, users, sync
  /api/reports       Range reports
  /api/scenarios/*   Demo data (destructive)

SECURITY NOTE:
  No authentication middleware. The API is meant for a single device or a
  trusted LAN.

SEE ALSO:
  - handlers.go, oncall_handlers.go: Handler implementations
  - cmd/timewizard/serve.go: Server startup
*/
package api

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/sirupsen/logrus"
)

// RouterOptions tunes NewRouter. The zero value allows every origin.
type RouterOptions struct {
	AllowedOrigins []string
}

// NewRouter creates a new router with all routes configured.
func NewRouter(h *Handler, opts RouterOptions) *chi.Mux {
	origins := opts.AllowedOrigins
	if len(origins) == 0 {
		origins = []string{"*"}
	}

	r := chi.NewRouter()

	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(accessLog(h.log))
	r.Use(middleware.Recoverer)
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins: origins,
		AllowedMethods: []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
		AllowedHeaders: []string{"Accept", "Content-Type"},
		ExposedHeaders: []string{"Content-Disposition"},
		MaxAge:         300,
	}))

	r.Route("/api", func(r chi.Router) {
		r.Get("/health", h.Health)
		r.Get("/week-info", h.WeekInfo)
		r.Get("/dashboard", h.Dashboard)
		r.Get("/weekly-summary", h.WeeklySummary)
		r.Get("/pay-cycle", h.PayCycle)

		r.Route("/entries", func(r chi.Router) {
			r.Get("/", h.ListEntries)
			r.Post("/", h.SetEntry)
			r.Post("/increment", h.IncrementEntry)
			r.Post("/decrement", h.DecrementEntry)
		})

		r.Route("/lines", func(r chi.Router) {
			r.Get("/", h.ListLines)
			r.Post("/", h.AddLine)
			r.Put("/{code}", h.UpdateLine)
			r.Delete("/{code}", h.DeleteLine)
		})

		r.Route("/settings", func(r chi.Router) {
			r.Get("/", h.ListSettings)
			r.Put("/{key}", h.UpdateSetting)
		})

		r.Get("/notes", h.ListNotes)
		r.Put("/notes", h.SaveNote)
		r.Delete("/notes", h.DeleteNote)

		r.Get("/export", h.Export)
		r.Post("/import", h.Import)
		r.Get("/reports", h.Report)

		r.Route("/oncall", func(r chi.Router) {
			r.Get("/", h.ListOnCall)
			r.Get("/date/{date}", h.OnCallForDate)
			r.Get("/weekends", h.Weekends)
			r.Get("/upcoming", h.UpcomingShifts)
			r.Post("/assignments", h.CreateAssignment)
			r.Post("/assignments/{id}/swap", h.SwapAssignment)
			r.Post("/import", h.ImportSchedule)
			r.Post("/sync", h.SyncSchedule)
			r.Get("/users", h.ListUsers)
			r.Post("/users", h.AddUser)
		})

		r.Route("/scenarios", func(r chi.Router) {
			r.Get("/", h.ListScenarios)
			r.Post("/load", h.LoadScenario)
		})
	})

	return r
}

// accessLog writes one line per request through logrus, tagged with the
// chi request id.
func accessLog(log logrus.FieldLogger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
			start := time.Now()
			next.ServeHTTP(ww, r)

			status := ww.Status()
			if status == 0 {
				status = http.StatusOK
			}
			entry := log.WithFields(logrus.Fields{
				"request_id": middleware.GetReqID(r.Context()),
				"method":     r.Method,
				"path":       r.URL.Path,
				"status":     status,
				"bytes":      ww.BytesWritten(),
				"duration":   time.Since(start).String(),
			})
			if status >= http.StatusInternalServerError {
				entry.Warn("request failed")
				return
			}
			entry.Debug("request")
		})
	}
}
