package handlers

import (
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/md-rashed-zaman/dojobook/libs/auth"
	"github.com/md-rashed-zaman/dojobook/libs/httpx"
	"github.com/md-rashed-zaman/dojobook/services/booking-service/internal/booking"
	"github.com/md-rashed-zaman/dojobook/services/booking-service/internal/model"
	"github.com/md-rashed-zaman/dojobook/services/booking-service/internal/storage"
)

type loginRequest struct {
	Username string `json:"username" validate:"required"`
	Password string `json:"password" validate:"required"`
}

type loginResponse struct {
	AccessToken string `json:"access_token"`
	TokenType   string `json:"token_type"`
	ExpiresAt   string `json:"expires_at"`
}

// dummyHash keeps the response time of unknown usernames close to that of wrong passwords.
var dummyHash = sync.OnceValue(func() string {
	h, _ := auth.HashPassword("dojobook-unknown-user")
	return h
})

func (a *API) adminLogin(w http.ResponseWriter, r *http.Request) {
	var req loginRequest
	if err := httpx.DecodeJSON(r, &req); err != nil {
		httpx.WriteError(w, http.StatusBadRequest, "invalid json body")
		return
	}
	req.Username = strings.TrimSpace(req.Username)
	if err := a.validate.Struct(req); err != nil {
		httpx.WriteError(w, http.StatusBadRequest, "username and password are required")
		return
	}

	user, err := a.Admins.GetActiveByUsername(r.Context(), req.Username)
	if err != nil {
		if !storage.IsNotFound(err) {
			a.fail(w, r, err)
			return
		}
		_ = auth.CheckPassword(dummyHash(), req.Password)
		httpx.WriteError(w, http.StatusUnauthorized, auth.ErrBadCredentials.Error())
		return
	}
	if err := auth.CheckPassword(user.PasswordHash, req.Password); err != nil {
		httpx.WriteError(w, http.StatusUnauthorized, auth.ErrBadCredentials.Error())
		return
	}

	token, exp, err := a.Signer.Issue(user.Username, auth.RoleAdmin)
	if err != nil {
		a.fail(w, r, err)
		return
	}
	if err := a.Admins.TouchLogin(r.Context(), user.ID); err != nil {
		a.Logger.WarnContext(r.Context(), "record admin login failed", "err", err, "admin_id", user.ID)
	}
	a.Logger.InfoContext(r.Context(), "admin login", "admin", user.Username)
	httpx.WriteJSON(w, http.StatusOK, loginResponse{
		AccessToken: token,
		TokenType:   "Bearer",
		ExpiresAt:   exp.UTC().Format(time.RFC3339),
	})
}

func (a *API) adminBookings(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	var f storage.BookingFilter

	for _, p := range []struct {
		key string
		dst **model.Date
	}{{"date_from", &f.DateFrom}, {"date_to", &f.DateTo}} {
		raw := strings.TrimSpace(q.Get(p.key))
		if raw == "" {
			continue
		}
		d, err := model.ParseDate(raw)
		if err != nil {
			httpx.WriteError(w, http.StatusBadRequest, p.key+": "+err.Error())
			return
		}
		*p.dst = &d
	}
	if raw := strings.TrimSpace(q.Get("coach_id")); raw != "" {
		id, err := booking.ParseID(raw)
		if err != nil {
			a.fail(w, r, err)
			return
		}
		f.CoachID = &id
	}
	if raw := strings.TrimSpace(q.Get("status")); raw != "" {
		st := model.BookingStatus(raw)
		if !st.Valid() {
			httpx.WriteError(w, http.StatusBadRequest, "unknown status "+raw)
			return
		}
		f.Status = &st
	}

	bookings, err := a.Bookings.List(r.Context(), f)
	if err != nil {
		a.fail(w, r, err)
		return
	}
	httpx.WriteJSON(w, http.StatusOK, map[string]any{"bookings": bookings})
}
