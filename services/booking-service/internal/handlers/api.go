package handlers

import (
	"context"
	"log/slog"
	"net/http"

	"github.com/go-playground/validator/v10"
	"github.com/md-rashed-zaman/dojobook/libs/auth"
	"github.com/md-rashed-zaman/dojobook/libs/httpx"
	"github.com/md-rashed-zaman/dojobook/libs/requestid"
	"github.com/md-rashed-zaman/dojobook/services/booking-service/internal/booking"
	"github.com/md-rashed-zaman/dojobook/services/booking-service/internal/model"
	"github.com/md-rashed-zaman/dojobook/services/booking-service/internal/storage"
)

type Coaches interface {
	List(ctx context.Context, f storage.CoachFilter) ([]storage.CoachListing, error)
	GetActive(ctx context.Context, id int64) (model.Coach, error)
}

type Schedules interface {
	Weekly(ctx context.Context, coachID int64) ([]model.CoachAvailability, error)
}

type Catalog interface {
	ListSessionTypes(ctx context.Context) ([]model.SessionType, error)
	ListLocations(ctx context.Context) ([]model.Location, error)
}

type Bookings interface {
	List(ctx context.Context, f storage.BookingFilter) ([]model.BookingDetails, error)
}

type Slots interface {
	ComputeSlots(ctx context.Context, coachID int64, date model.Date, sessionTypeID *int64) ([]booking.Slot, error)
}

type Booker interface {
	CreateBooking(ctx context.Context, req booking.CreateBookingRequest) (booking.Confirmation, error)
	Cancel(ctx context.Context, reference, reason string) error
}

type Admins interface {
	GetActiveByUsername(ctx context.Context, username string) (model.AdminUser, error)
	TouchLogin(ctx context.Context, id int64) error
}

// API serves the JSON endpoints under /api.
type API struct {
	Coaches   Coaches
	Schedules Schedules
	Catalog   Catalog
	Bookings  Bookings
	Slots     Slots
	Booker    Booker
	Admins    Admins
	Signer    *auth.Signer
	Logger    *slog.Logger

	validate *validator.Validate
}

func (a *API) Register(mux *http.ServeMux) {
	a.validate = validator.New()

	mux.HandleFunc("GET /api/coaches", a.listCoaches)
	mux.HandleFunc("GET /api/coaches/{id}", a.getCoach)
	mux.HandleFunc("GET /api/coaches/{id}/availability/{date}", a.coachSlots)
	mux.HandleFunc("GET /api/session-types", a.listSessionTypes)
	mux.HandleFunc("GET /api/locations", a.listLocations)
	mux.HandleFunc("POST /api/bookings", a.createBooking)
	mux.HandleFunc("GET /api/bookings/student/{email}", a.studentBookings)
	mux.HandleFunc("PATCH /api/bookings/{reference}/cancel", a.cancelBooking)
	mux.HandleFunc("POST /api/admin/login", a.adminLogin)
	mux.Handle("GET /api/admin/bookings", auth.RequireRole(a.Signer, auth.RoleAdmin)(http.HandlerFunc(a.adminBookings)))
}

// fail writes the mapped status for err and logs server-side failures.
func (a *API) fail(w http.ResponseWriter, r *http.Request, err error) {
	status, msg := booking.HTTPStatus(err)
	if status >= http.StatusInternalServerError {
		a.Logger.ErrorContext(r.Context(), "request failed",
			"err", err,
			"request_id", requestid.FromContext(r.Context()),
			"path", r.URL.Path,
		)
	}
	httpx.WriteError(w, status, msg)
}
