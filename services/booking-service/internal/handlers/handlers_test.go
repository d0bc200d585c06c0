package handlers

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/md-rashed-zaman/dojobook/libs/auth"
	"github.com/md-rashed-zaman/dojobook/services/booking-service/internal/booking"
	"github.com/md-rashed-zaman/dojobook/services/booking-service/internal/model"
	"github.com/md-rashed-zaman/dojobook/services/booking-service/internal/storage"
)

type fakeCoaches struct {
	lastFilter storage.CoachFilter
	coaches    []storage.CoachListing
}

func (f *fakeCoaches) List(_ context.Context, filter storage.CoachFilter) ([]storage.CoachListing, error) {
	f.lastFilter = filter
	return f.coaches, nil
}

func (f *fakeCoaches) GetActive(_ context.Context, id int64) (model.Coach, error) {
	for _, c := range f.coaches {
		if c.ID == id {
			return c.Coach, nil
		}
	}
	return model.Coach{}, sql.ErrNoRows
}

type fakeSchedules struct{}

func (fakeSchedules) Weekly(_ context.Context, coachID int64) ([]model.CoachAvailability, error) {
	return []model.CoachAvailability{{ID: 1, CoachID: coachID, DayOfWeek: 1, StartTime: model.NewClock(9, 0), EndTime: model.NewClock(12, 0), LocationName: "Main Mat"}}, nil
}

type fakeCatalog struct{ err error }

func (f fakeCatalog) ListSessionTypes(context.Context) ([]model.SessionType, error) {
	return []model.SessionType{{ID: 1, Name: "Private Lesson", DurationMinutes: 60}}, f.err
}

func (f fakeCatalog) ListLocations(context.Context) ([]model.Location, error) {
	return []model.Location{{ID: 1, Name: "Main Mat", Equipment: model.StringList{"mats"}}}, f.err
}

type fakeBookings struct {
	lastFilter storage.BookingFilter
}

func (f *fakeBookings) List(_ context.Context, filter storage.BookingFilter) ([]model.BookingDetails, error) {
	f.lastFilter = filter
	return []model.BookingDetails{}, nil
}

type fakeSlots struct{}

func (fakeSlots) ComputeSlots(_ context.Context, coachID int64, _ model.Date, sessionTypeID *int64) ([]booking.Slot, error) {
	if coachID == 404 {
		return nil, &booking.NotFoundError{Msg: "Coach not found"}
	}
	if sessionTypeID != nil && *sessionTypeID == 9 {
		return nil, booking.ErrInvalidSessionType
	}
	return []booking.Slot{{StartTime: model.NewClock(9, 0), EndTime: model.NewClock(10, 0), DurationMinutes: 60}}, nil
}

type fakeBooker struct {
	createErr   error
	lastRequest booking.CreateBookingRequest
	lastRef     string
	lastReason  string
	cancelled   map[string]bool
}

func (f *fakeBooker) CreateBooking(_ context.Context, req booking.CreateBookingRequest) (booking.Confirmation, error) {
	f.lastRequest = req
	if f.createErr != nil {
		return booking.Confirmation{}, f.createErr
	}
	return booking.Confirmation{BookingID: 7, Reference: "BKAB12CD", Status: model.StatusConfirmed}, nil
}

func (f *fakeBooker) Cancel(_ context.Context, ref, reason string) error {
	f.lastRef, f.lastReason = ref, reason
	if f.cancelled[ref] {
		return &booking.NotFoundError{Msg: "Booking not found or already cancelled"}
	}
	if f.cancelled == nil {
		f.cancelled = map[string]bool{}
	}
	f.cancelled[ref] = true
	return nil
}

type fakeAdmins struct {
	user    model.AdminUser
	touched bool
}

func (f *fakeAdmins) GetActiveByUsername(_ context.Context, username string) (model.AdminUser, error) {
	if username != f.user.Username {
		return model.AdminUser{}, sql.ErrNoRows
	}
	return f.user, nil
}

func (f *fakeAdmins) TouchLogin(context.Context, int64) error {
	f.touched = true
	return nil
}

type fixture struct {
	mux      *http.ServeMux
	coaches  *fakeCoaches
	bookings *fakeBookings
	booker   *fakeBooker
	admins   *fakeAdmins
	signer   *auth.Signer
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	signer, err := auth.NewSigner("handlers-test-secret-123", "dojobook", time.Hour)
	if err != nil {
		t.Fatalf("NewSigner: %v", err)
	}
	hash, err := auth.HashPassword("kiai")
	if err != nil {
		t.Fatalf("HashPassword: %v", err)
	}
	f := &fixture{
		mux: http.NewServeMux(),
		coaches: &fakeCoaches{coaches: []storage.CoachListing{{
			Coach:         model.Coach{ID: 1, Name: "Kenji", Styles: model.StringList{"Judo", "BJJ"}, IsActive: true},
			LocationNames: "Main Mat",
		}}},
		bookings: &fakeBookings{},
		booker:   &fakeBooker{},
		admins:   &fakeAdmins{user: model.AdminUser{ID: 1, Username: "sensei", PasswordHash: hash, IsActive: true}},
		signer:   signer,
	}
	api := &API{
		Coaches:   f.coaches,
		Schedules: fakeSchedules{},
		Catalog:   fakeCatalog{},
		Bookings:  f.bookings,
		Slots:     fakeSlots{},
		Booker:    f.booker,
		Admins:    f.admins,
		Signer:    signer,
		Logger:    slog.New(slog.NewTextHandler(io.Discard, nil)),
	}
	api.Register(f.mux)
	return f
}

func (f *fixture) do(method, target, body string, header ...string) *httptest.ResponseRecorder {
	var r io.Reader
	if body != "" {
		r = strings.NewReader(body)
	}
	req := httptest.NewRequest(method, target, r)
	for i := 0; i+1 < len(header); i += 2 {
		req.Header.Set(header[i], header[i+1])
	}
	rec := httptest.NewRecorder()
	f.mux.ServeHTTP(rec, req)
	return rec
}

func decode(t *testing.T, rec *httptest.ResponseRecorder) map[string]any {
	t.Helper()
	var out map[string]any
	if err := json.Unmarshal(rec.Body.Bytes(), &out); err != nil {
		t.Fatalf("decode %q: %v", rec.Body.String(), err)
	}
	return out
}

func TestListCoaches_Filters(t *testing.T) {
	f := newFixture(t)
	rec := f.do(http.MethodGet, "/api/coaches?styles=Judo,%20BJJ&languages=English&experience_min=5&available_date=2025-03-17", "")
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d body=%s", rec.Code, rec.Body.String())
	}
	got := f.coaches.lastFilter
	if len(got.Styles) != 2 || got.Styles[1] != "BJJ" || got.Languages[0] != "English" {
		t.Fatalf("unexpected filter %+v", got)
	}
	if got.ExperienceMin == nil || *got.ExperienceMin != 5 {
		t.Fatalf("experience_min not parsed: %+v", got.ExperienceMin)
	}
	if got.AvailableOn == nil || got.AvailableOn.String() != "2025-03-17" {
		t.Fatalf("available_date not parsed: %+v", got.AvailableOn)
	}

	body := decode(t, rec)
	coaches := body["coaches"].([]any)
	first := coaches[0].(map[string]any)
	styles := first["martial_arts_styles"].([]any)
	if styles[0] != "Judo" || styles[1] != "BJJ" {
		t.Fatalf("styles out of order: %v", styles)
	}
}

func TestListCoaches_BadParams(t *testing.T) {
	f := newFixture(t)
	for _, target := range []string{"/api/coaches?experience_min=abc", "/api/coaches?experience_min=-1", "/api/coaches?available_date=tomorrow"} {
		rec := f.do(http.MethodGet, target, "")
		if rec.Code != http.StatusBadRequest {
			t.Fatalf("%s: status = %d", target, rec.Code)
		}
		if _, ok := decode(t, rec)["error"]; !ok {
			t.Fatalf("%s: missing error body", target)
		}
	}
}

func TestGetCoach(t *testing.T) {
	f := newFixture(t)
	rec := f.do(http.MethodGet, "/api/coaches/1", "")
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d", rec.Code)
	}
	body := decode(t, rec)
	if body["coach"].(map[string]any)["name"] != "Kenji" {
		t.Fatalf("unexpected coach: %v", body["coach"])
	}
	avail := body["availability"].([]any)[0].(map[string]any)
	if avail["start_time"] != "09:00" || avail["location_name"] != "Main Mat" {
		t.Fatalf("unexpected availability: %v", avail)
	}

	if rec := f.do(http.MethodGet, "/api/coaches/2", ""); rec.Code != http.StatusNotFound {
		t.Fatalf("unknown coach status = %d", rec.Code)
	}
	if rec := f.do(http.MethodGet, "/api/coaches/abc", ""); rec.Code != http.StatusBadRequest {
		t.Fatalf("bad id status = %d", rec.Code)
	}
}

func TestCoachSlots(t *testing.T) {
	f := newFixture(t)
	rec := f.do(http.MethodGet, "/api/coaches/1/availability/2025-03-17", "")
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d", rec.Code)
	}
	body := decode(t, rec)
	if body["date"] != "2025-03-17" {
		t.Fatalf("date = %v", body["date"])
	}
	slot := body["slots"].([]any)[0].(map[string]any)
	if slot["start_time"] != "09:00" || slot["end_time"] != "10:00" || slot["duration_minutes"] != 60.0 {
		t.Fatalf("unexpected slot %v", slot)
	}

	cases := map[string]int{
		"/api/coaches/1/availability/17-03-2025":                   http.StatusBadRequest,
		"/api/coaches/404/availability/2025-03-17":                 http.StatusNotFound,
		"/api/coaches/1/availability/2025-03-17?session_type_id=9": http.StatusBadRequest,
	}
	for target, want := range cases {
		if rec := f.do(http.MethodGet, target, ""); rec.Code != want {
			t.Fatalf("%s: status = %d, want %d", target, rec.Code, want)
		}
	}
}

func TestCatalogEndpoints(t *testing.T) {
	f := newFixture(t)
	if body := decode(t, f.do(http.MethodGet, "/api/session-types", "")); len(body["session_types"].([]any)) != 1 {
		t.Fatalf("unexpected session types: %v", body)
	}
	body := decode(t, f.do(http.MethodGet, "/api/locations", ""))
	loc := body["locations"].([]any)[0].(map[string]any)
	if loc["equipment"].([]any)[0] != "mats" {
		t.Fatalf("unexpected location: %v", loc)
	}
}

func TestCreateBooking(t *testing.T) {
	f := newFixture(t)
	rec := f.do(http.MethodPost, "/api/bookings", `{"coach_id":1,"session_type_id":1,"student_name":"Kim","student_email":"kim@example.com","booking_date":"2025-03-17","start_time":"10:00"}`)
	if rec.Code != http.StatusCreated {
		t.Fatalf("status = %d body=%s", rec.Code, rec.Body.String())
	}
	body := decode(t, rec)
	if body["booking_reference"] != "BKAB12CD" || body["status"] != "confirmed" || body["booking_id"] != 7.0 {
		t.Fatalf("unexpected body %v", body)
	}
	if f.booker.lastRequest.StudentEmail != "kim@example.com" {
		t.Fatalf("request not forwarded: %+v", f.booker.lastRequest)
	}
}

func TestCreateBooking_Errors(t *testing.T) {
	cases := []struct {
		name string
		err  error
		want int
		msg  string
	}{
		{"conflict", booking.ErrSlotUnavailable, http.StatusConflict, "Time slot not available"},
		{"session type", booking.ErrInvalidSessionType, http.StatusBadRequest, "Invalid session type"},
		{"validation", &booking.ValidationError{Msg: "Missing required fields: student_name"}, http.StatusBadRequest, "Missing required fields: student_name"},
		{"coach", &booking.NotFoundError{Msg: "Coach not found"}, http.StatusNotFound, "Coach not found"},
		{"internal", errors.New("connection reset"), http.StatusInternalServerError, "Internal server error"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			f := newFixture(t)
			f.booker.createErr = tc.err
			rec := f.do(http.MethodPost, "/api/bookings", `{"coach_id":1}`)
			if rec.Code != tc.want {
				t.Fatalf("status = %d, want %d", rec.Code, tc.want)
			}
			if got := decode(t, rec)["error"]; got != tc.msg {
				t.Fatalf("error = %v, want %q", got, tc.msg)
			}
		})
	}

	f := newFixture(t)
	if rec := f.do(http.MethodPost, "/api/bookings", `{not json`); rec.Code != http.StatusBadRequest {
		t.Fatalf("bad json status = %d", rec.Code)
	}
}

func TestStudentBookings(t *testing.T) {
	f := newFixture(t)
	rec := f.do(http.MethodGet, "/api/bookings/student/kim@example.com", "")
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d", rec.Code)
	}
	if f.bookings.lastFilter.StudentEmail != "kim@example.com" {
		t.Fatalf("filter = %+v", f.bookings.lastFilter)
	}
	if _, ok := decode(t, rec)["bookings"].([]any); !ok {
		t.Fatal("bookings should be an array")
	}
	if rec := f.do(http.MethodGet, "/api/bookings/student/nobody", ""); rec.Code != http.StatusBadRequest {
		t.Fatalf("invalid email status = %d", rec.Code)
	}
}

func TestCancelBooking(t *testing.T) {
	f := newFixture(t)

	rec := f.do(http.MethodPatch, "/api/bookings/BKAB12CD/cancel", "")
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d body=%s", rec.Code, rec.Body.String())
	}
	body := decode(t, rec)
	if body["success"] != true || body["message"] != "Booking cancelled successfully" {
		t.Fatalf("unexpected body %v", body)
	}
	if f.booker.lastReason != "" {
		t.Fatalf("reason = %q, want empty for default", f.booker.lastReason)
	}

	rec = f.do(http.MethodPatch, "/api/bookings/BKAB12CD/cancel", `{"cancellation_reason":"injury"}`)
	if rec.Code != http.StatusNotFound {
		t.Fatalf("second cancel status = %d", rec.Code)
	}
	if f.booker.lastReason != "injury" {
		t.Fatalf("reason not forwarded: %q", f.booker.lastReason)
	}
	if got := decode(t, rec)["error"]; got != "Booking not found or already cancelled" {
		t.Fatalf("error = %v", got)
	}
}

func TestAdminLoginAndBookings(t *testing.T) {
	f := newFixture(t)

	if rec := f.do(http.MethodGet, "/api/admin/bookings", ""); rec.Code != http.StatusUnauthorized {
		t.Fatalf("unauthenticated status = %d", rec.Code)
	}
	if rec := f.do(http.MethodPost, "/api/admin/login", `{"username":"sensei","password":"wrong"}`); rec.Code != http.StatusUnauthorized {
		t.Fatalf("wrong password status = %d", rec.Code)
	}
	if rec := f.do(http.MethodPost, "/api/admin/login", `{"username":"ghost","password":"kiai"}`); rec.Code != http.StatusUnauthorized {
		t.Fatalf("unknown user status = %d", rec.Code)
	}
	if rec := f.do(http.MethodPost, "/api/admin/login", `{"username":""}`); rec.Code != http.StatusBadRequest {
		t.Fatalf("missing fields status = %d", rec.Code)
	}

	rec := f.do(http.MethodPost, "/api/admin/login", `{"username":"sensei","password":"kiai"}`)
	if rec.Code != http.StatusOK {
		t.Fatalf("login status = %d body=%s", rec.Code, rec.Body.String())
	}
	if !f.admins.touched {
		t.Fatal("last login not recorded")
	}
	token := decode(t, rec)["access_token"].(string)

	rec = f.do(http.MethodGet, "/api/admin/bookings?date_from=2025-03-01&date_to=2025-03-31&coach_id=2&status=cancelled", "",
		"Authorization", "Bearer "+token)
	if rec.Code != http.StatusOK {
		t.Fatalf("admin bookings status = %d body=%s", rec.Code, rec.Body.String())
	}
	got := f.bookings.lastFilter
	if got.DateFrom.String() != "2025-03-01" || got.DateTo.String() != "2025-03-31" || *got.CoachID != 2 || *got.Status != model.StatusCancelled {
		t.Fatalf("unexpected filter %+v", got)
	}

	for _, q := range []string{"?status=pending", "?date_from=yesterday", "?coach_id=x"} {
		rec := f.do(http.MethodGet, "/api/admin/bookings"+q, "", "Authorization", "Bearer "+token)
		if rec.Code != http.StatusBadRequest {
			t.Fatalf("%s: status = %d", q, rec.Code)
		}
	}
}

func TestInternalErrorsAreNotLeaked(t *testing.T) {
	f := newFixture(t)
	api := &API{Catalog: fakeCatalog{err: errors.New("pq: password authentication failed")}, Logger: slog.New(slog.NewTextHandler(io.Discard, nil))}
	mux := http.NewServeMux()
	api.Signer = f.signer
	api.Register(mux)

	rec := httptest.NewRecorder()
	mux.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/session-types", nil))
	if rec.Code != http.StatusInternalServerError {
		t.Fatalf("status = %d", rec.Code)
	}
	if strings.Contains(rec.Body.String(), "password") {
		t.Fatalf("internal error leaked: %s", rec.Body.String())
	}
}
