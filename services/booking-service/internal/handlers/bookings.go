package handlers

import (
	"net/http"
	"strings"

	"github.com/md-rashed-zaman/dojobook/libs/httpx"
	"github.com/md-rashed-zaman/dojobook/services/booking-service/internal/booking"
	"github.com/md-rashed-zaman/dojobook/services/booking-service/internal/storage"
)

func (a *API) createBooking(w http.ResponseWriter, r *http.Request) {
	var req booking.CreateBookingRequest
	if err := httpx.DecodeJSON(r, &req); err != nil {
		httpx.WriteError(w, http.StatusBadRequest, "invalid json body")
		return
	}

	res, err := a.Booker.CreateBooking(r.Context(), req)
	if err != nil {
		a.fail(w, r, err)
		return
	}
	httpx.WriteJSON(w, http.StatusCreated, res)
}

func (a *API) studentBookings(w http.ResponseWriter, r *http.Request) {
	email := strings.TrimSpace(r.PathValue("email"))
	if err := a.validate.Var(email, "required,email"); err != nil {
		httpx.WriteError(w, http.StatusBadRequest, "a valid email is required")
		return
	}
	bookings, err := a.Bookings.List(r.Context(), storage.BookingFilter{StudentEmail: email})
	if err != nil {
		a.fail(w, r, err)
		return
	}
	httpx.WriteJSON(w, http.StatusOK, map[string]any{"bookings": bookings})
}

type cancelRequest struct {
	CancellationReason string `json:"cancellation_reason"`
}

type cancelResponse struct {
	Success bool   `json:"success"`
	Message string `json:"message"`
}

func (a *API) cancelBooking(w http.ResponseWriter, r *http.Request) {
	var req cancelRequest
	if err := httpx.DecodeJSON(r, &req); err != nil && !httpx.IsEmptyBody(err) {
		httpx.WriteError(w, http.StatusBadRequest, "invalid json body")
		return
	}

	if err := a.Booker.Cancel(r.Context(), r.PathValue("reference"), req.CancellationReason); err != nil {
		a.fail(w, r, err)
		return
	}
	httpx.WriteJSON(w, http.StatusOK, cancelResponse{Success: true, Message: "Booking cancelled successfully"})
}
