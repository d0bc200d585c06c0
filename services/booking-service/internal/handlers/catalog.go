package handlers

import (
	"net/http"
	"strconv"
	"strings"

	"github.com/md-rashed-zaman/dojobook/libs/httpx"
	"github.com/md-rashed-zaman/dojobook/services/booking-service/internal/booking"
	"github.com/md-rashed-zaman/dojobook/services/booking-service/internal/model"
	"github.com/md-rashed-zaman/dojobook/services/booking-service/internal/storage"
)

func (a *API) listCoaches(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	f := storage.CoachFilter{
		Styles:    parseList(q.Get("styles")),
		Languages: parseList(q.Get("languages")),
	}
	if raw := strings.TrimSpace(q.Get("experience_min")); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n < 0 {
			httpx.WriteError(w, http.StatusBadRequest, "experience_min must be a non-negative integer")
			return
		}
		f.ExperienceMin = &n
	}
	if raw := strings.TrimSpace(q.Get("available_date")); raw != "" {
		d, err := model.ParseDate(raw)
		if err != nil {
			httpx.WriteError(w, http.StatusBadRequest, err.Error())
			return
		}
		f.AvailableOn = &d
	}

	coaches, err := a.Coaches.List(r.Context(), f)
	if err != nil {
		a.fail(w, r, err)
		return
	}
	httpx.WriteJSON(w, http.StatusOK, map[string]any{"coaches": coaches})
}

func (a *API) getCoach(w http.ResponseWriter, r *http.Request) {
	id, err := booking.ParseID(r.PathValue("id"))
	if err != nil {
		a.fail(w, r, err)
		return
	}
	coach, err := a.Coaches.GetActive(r.Context(), id)
	if err != nil {
		if storage.IsNotFound(err) {
			httpx.WriteError(w, http.StatusNotFound, "Coach not found")
			return
		}
		a.fail(w, r, err)
		return
	}
	weekly, err := a.Schedules.Weekly(r.Context(), id)
	if err != nil {
		a.fail(w, r, err)
		return
	}
	httpx.WriteJSON(w, http.StatusOK, map[string]any{"coach": coach, "availability": weekly})
}

func (a *API) coachSlots(w http.ResponseWriter, r *http.Request) {
	id, err := booking.ParseID(r.PathValue("id"))
	if err != nil {
		a.fail(w, r, err)
		return
	}
	date, err := model.ParseDate(r.PathValue("date"))
	if err != nil {
		httpx.WriteError(w, http.StatusBadRequest, err.Error())
		return
	}
	var sessionTypeID *int64
	if raw := r.URL.Query().Get("session_type_id"); raw != "" {
		st, err := booking.ParseID(raw)
		if err != nil {
			a.fail(w, r, err)
			return
		}
		sessionTypeID = &st
	}

	slots, err := a.Slots.ComputeSlots(r.Context(), id, date, sessionTypeID)
	if err != nil {
		a.fail(w, r, err)
		return
	}
	httpx.WriteJSON(w, http.StatusOK, map[string]any{"date": date, "slots": slots})
}

func (a *API) listSessionTypes(w http.ResponseWriter, r *http.Request) {
	types, err := a.Catalog.ListSessionTypes(r.Context())
	if err != nil {
		a.fail(w, r, err)
		return
	}
	httpx.WriteJSON(w, http.StatusOK, map[string]any{"session_types": types})
}

func (a *API) listLocations(w http.ResponseWriter, r *http.Request) {
	locations, err := a.Catalog.ListLocations(r.Context())
	if err != nil {
		a.fail(w, r, err)
		return
	}
	httpx.WriteJSON(w, http.StatusOK, map[string]any{"locations": locations})
}

// parseList splits a comma-separated query value, dropping blanks.
func parseList(raw string) []string {
	var out []string
	for _, part := range strings.Split(raw, ",") {
		if p := strings.TrimSpace(part); p != "" {
			out = append(out, p)
		}
	}
	return out
}
