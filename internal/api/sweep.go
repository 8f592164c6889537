package api

import (
	"context"
	"net/http"
	"time"

	"github.com/sandeepkv93/ritualcal/internal/reminder"
)

// handleSweep is the entry point for external schedulers. An optional "at"
// query parameter (RFC 3339) overrides the current time.
func (a *API) handleSweep(w http.ResponseWriter, r *http.Request) {
	if a.Sweeper == nil {
		a.writeJSON(w, http.StatusNotImplemented, errorBody{Error: "sweeps are not enabled"})
		return
	}
	at := a.Now()
	if raw := r.URL.Query().Get("at"); raw != "" {
		t, err := time.Parse(time.RFC3339, raw)
		if err != nil {
			a.writeJSON(w, http.StatusBadRequest, errorBody{Error: "at must be an RFC 3339 timestamp"})
			return
		}
		at = t
	}

	var report reminder.Report
	err := a.Runner.Exclusive(r.Context(), func(ctx context.Context) error {
		var err error
		report, err = a.Sweeper.Run(ctx, at)
		return err
	})
	if err != nil {
		a.writeError(w, "sweep", err)
		return
	}
	a.writeJSON(w, http.StatusOK, report)
}
