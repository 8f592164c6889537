package api

import (
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/sandeepkv93/ritualcal/internal/calendar"
	"github.com/sandeepkv93/ritualcal/internal/docstore"
	"github.com/sandeepkv93/ritualcal/internal/model"
)

type calendarResponse struct {
	ID                string         `json:"id"`
	Daily             []model.Record `json:"daily"`
	Weekly            []model.Record `json:"weekly"`
	Master            []model.Record `json:"master"`
	Rules             []model.Entry  `json:"rules"`
	Bans              []model.Entry  `json:"bans"`
	TokenCount        int            `json:"tokenCount"`
	LastUpdated       *time.Time     `json:"lastUpdated,omitempty"`
	LastBroadcastDate model.Date     `json:"lastReminderNotificationDate,omitempty"`
}

func (a *API) handleGetCalendar(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	doc, err := a.Store.Get(r.Context(), id)
	if err != nil {
		a.writeError(w, "get calendar", err)
		return
	}
	resp := calendarResponse{
		ID:                id,
		Daily:             nonNil(doc.Daily),
		Weekly:            nonNil(doc.Weekly),
		Master:            nonNil(doc.Master),
		Rules:             nonNil(doc.Rules),
		Bans:              nonNil(doc.Bans),
		TokenCount:        len(doc.Tokens),
		LastBroadcastDate: doc.LastBroadcastDate,
	}
	if !doc.LastUpdated.IsZero() {
		resp.LastUpdated = &doc.LastUpdated
	}
	a.writeJSON(w, http.StatusOK, resp)
}

type listsRequest struct {
	Daily  []model.Record `json:"daily"`
	Weekly []model.Record `json:"weekly"`
	Master []model.Record `json:"master"`
	Rules  []model.Entry  `json:"rules"`
	Bans   []model.Entry  `json:"bans"`
}

// handlePutLists replaces the five lists, leaving tokens and the broadcast
// marker untouched. Records are normalised through the task model first.
func (a *API) handlePutLists(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	var req listsRequest
	if !a.decodeJSON(w, r, &req) {
		return
	}
	in := model.Document{Daily: req.Daily, Weekly: req.Weekly, Master: req.Master, Rules: req.Rules, Bans: req.Bans}
	lists, problems := in.Lists(a.Location)
	if len(problems) > 0 {
		details := make([]string, 0, len(problems))
		for _, p := range problems {
			details = append(details, p.Error())
		}
		a.writeJSON(w, http.StatusBadRequest, errorBody{Error: "invalid task records", Details: details})
		return
	}
	now := a.Now()
	today := model.DateOf(now.In(a.Location))
	if err := a.Store.Set(r.Context(), id, docstore.ListsPatch(model.EncodeLists(lists, today), now)); err != nil {
		a.writeError(w, "put lists", err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (a *API) handleEvents(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	q := r.URL.Query()

	from := model.DateOf(a.Now().In(a.Location))
	if raw := q.Get("from"); raw != "" {
		d, err := model.ParseDate(raw)
		if err != nil {
			a.writeJSON(w, http.StatusBadRequest, errorBody{Error: err.Error()})
			return
		}
		from = d
	}
	days := a.ProjectionDays
	if raw := q.Get("days"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n < 1 || n > calendar.MaxWindowDays {
			a.writeJSON(w, http.StatusBadRequest, errorBody{Error: "days must be between 1 and " + strconv.Itoa(calendar.MaxWindowDays)})
			return
		}
		days = n
	}

	doc, err := a.Store.Get(r.Context(), id)
	if err != nil {
		a.writeError(w, "get calendar", err)
		return
	}
	lists, _ := doc.Lists(a.Location)
	start, end := calendar.Window(from, days)
	events, err := calendar.Project(lists, start, end)
	if err != nil {
		a.writeError(w, "project events", err)
		return
	}
	a.writeJSON(w, http.StatusOK, map[string]any{"from": start, "to": end, "events": nonNil(events)})
}

type registerTokenRequest struct {
	Token    string `json:"token"`
	Previous string `json:"previous,omitempty"`
}

func (a *API) handleRegisterToken(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	var req registerTokenRequest
	if !a.decodeJSON(w, r, &req) {
		return
	}
	if err := a.Tokens.Replace(r.Context(), id, req.Token, req.Previous); err != nil {
		a.writeError(w, "register token", err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

type pruneTokensRequest struct {
	Tokens []string `json:"tokens"`
}

func (a *API) handlePruneTokens(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	var req pruneTokensRequest
	if !a.decodeJSON(w, r, &req) {
		return
	}
	if err := a.Tokens.Prune(r.Context(), id, req.Tokens); err != nil {
		a.writeError(w, "prune tokens", err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func nonNil[T any](s []T) []T {
	if s == nil {
		return []T{}
	}
	return s
}
