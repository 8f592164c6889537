package api

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"github.com/sandeepkv93/ritualcal/internal/calendar"
	"github.com/sandeepkv93/ritualcal/internal/docstore"
	"github.com/sandeepkv93/ritualcal/internal/reminder"
	"github.com/sandeepkv93/ritualcal/internal/scheduler"
	"github.com/sandeepkv93/ritualcal/internal/tokens"
)

const maxBodyBytes = 1 << 20

// TokenService is the part of the token registry the API uses.
type TokenService interface {
	Replace(ctx context.Context, calendarID, token, previous string) error
	Prune(ctx context.Context, calendarID string, invalid []string) error
}

// Sweeper runs one reminder pass.
type Sweeper interface {
	Run(ctx context.Context, at time.Time) (reminder.Report, error)
}

type API struct {
	Store          docstore.Store
	Tokens         TokenService
	Sweeper        Sweeper
	Runner         *scheduler.Runner
	Location       *time.Location
	ProjectionDays int
	// Ready reports backend readiness; nil means always ready.
	Ready  func(ctx context.Context) error
	Logger *slog.Logger
	Now    func() time.Time
}

func (a *API) Router() http.Handler {
	if a.Logger == nil {
		a.Logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}
	if a.Now == nil {
		a.Now = time.Now
	}
	if a.Location == nil {
		a.Location = time.UTC
	}
	if a.Runner == nil {
		a.Runner = scheduler.NewRunner(nil, a.Logger)
	}

	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(Recover(a.Logger))
	r.Use(Logger(a.Logger))

	r.Get("/healthz", func(w http.ResponseWriter, _ *http.Request) {
		a.writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
	})
	r.Get("/readyz", a.handleReady)

	r.Route("/api", func(r chi.Router) {
		r.Post("/sweep", a.handleSweep)
		r.Route("/calendars/{id}", func(r chi.Router) {
			r.Get("/", a.handleGetCalendar)
			r.Put("/lists", a.handlePutLists)
			r.Get("/events", a.handleEvents)
			r.Post("/tokens", a.handleRegisterToken)
			r.Delete("/tokens", a.handlePruneTokens)
		})
	})
	return r
}

func (a *API) handleReady(w http.ResponseWriter, r *http.Request) {
	if a.Ready != nil {
		if err := a.Ready(r.Context()); err != nil {
			a.Logger.Warn("readiness check failed", "error", err)
			a.writeJSON(w, http.StatusServiceUnavailable, map[string]string{"status": "not ready"})
			return
		}
	}
	a.writeJSON(w, http.StatusOK, map[string]string{"status": "ready"})
}

type errorBody struct {
	Error   string   `json:"error"`
	Details []string `json:"details,omitempty"`
}

func (a *API) writeJSON(w http.ResponseWriter, status int, v any) {
	respondJSON(a.Logger, w, status, v)
}

// respondJSON writes v with the given status. The header is already out when
// encoding fails, so the failure is only logged.
func respondJSON(logger *slog.Logger, w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		logger.Debug("encode response failed", "status", status, "error", err)
	}
}

func (a *API) decodeJSON(w http.ResponseWriter, r *http.Request, v any) bool {
	dec := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxBodyBytes))
	if err := dec.Decode(v); err != nil {
		a.writeJSON(w, http.StatusBadRequest, errorBody{Error: "invalid JSON"})
		return false
	}
	return true
}

// writeError maps store and domain errors onto HTTP statuses.
func (a *API) writeError(w http.ResponseWriter, op string, err error) {
	status := http.StatusInternalServerError
	switch {
	case errors.Is(err, docstore.ErrNotFound):
		status = http.StatusNotFound
	case errors.Is(err, docstore.ErrInvalidArgument), errors.Is(err, tokens.ErrEmptyToken),
		errors.Is(err, calendar.ErrWindow):
		status = http.StatusBadRequest
	case errors.Is(err, docstore.ErrPermissionDenied):
		status = http.StatusForbidden
	case errors.Is(err, docstore.ErrPrecondition), errors.Is(err, scheduler.ErrBusy):
		status = http.StatusConflict
	case docstore.IsConnectivity(err):
		status = http.StatusServiceUnavailable
	}
	if status >= http.StatusInternalServerError {
		a.Logger.Error(op, "error", err)
	} else {
		a.Logger.Debug(op, "error", err)
	}
	a.writeJSON(w, status, errorBody{Error: err.Error()})
}
