package main

import (
	"bytes"
	"context"
	"encoding/json"
	"flag"
	"net"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync/atomic"
	"testing"

	"github.com/md-rashed-zaman/dojobook/libs/grpcx"
	"github.com/md-rashed-zaman/dojobook/libs/httpx"
	"github.com/md-rashed-zaman/dojobook/services/booking-service/internal/booking"
	"github.com/md-rashed-zaman/dojobook/services/booking-service/internal/grpcserver"
	"github.com/md-rashed-zaman/dojobook/services/booking-service/internal/model"
	"github.com/stretchr/testify/require"
)

func fakeAPI(t *testing.T) (*httptest.Server, *atomic.Int32) {
	t.Helper()
	attempts := &atomic.Int32{}
	mux := http.NewServeMux()
	mux.HandleFunc("GET /api/session-types", func(w http.ResponseWriter, r *http.Request) {
		httpx.WriteJSON(w, http.StatusOK, map[string]any{"session_types": []map[string]any{
			{"id": 1, "name": "Private Lesson", "duration_minutes": 60},
			{"id": 3, "name": "Intensive", "duration_minutes": 90},
		}})
	})
	mux.HandleFunc("GET /api/coaches", func(w http.ResponseWriter, r *http.Request) {
		httpx.WriteJSON(w, http.StatusOK, map[string]any{"coaches": []map[string]any{
			{"id": 1, "name": "Kenji", "martial_arts_styles": []string{"Judo"}, "languages": []string{"English"}, "experience_years": 12},
			{"id": 2, "name": "Ana", "martial_arts_styles": []string{"Muay Thai"}},
		}})
	})
	mux.HandleFunc("GET /api/coaches/{id}/availability/{date}", func(w http.ResponseWriter, r *http.Request) {
		if r.PathValue("id") != "2" || r.URL.Query().Get("session_type_id") != "1" {
			httpx.WriteJSON(w, http.StatusOK, map[string]any{"date": r.PathValue("date"), "slots": []any{}})
			return
		}
		httpx.WriteJSON(w, http.StatusOK, map[string]any{"date": r.PathValue("date"), "slots": []map[string]any{
			{"start_time": "10:00", "end_time": "11:00", "duration_minutes": 60},
			{"start_time": "11:00", "end_time": "12:00", "duration_minutes": 60},
		}})
	})
	mux.HandleFunc("POST /api/bookings", func(w http.ResponseWriter, r *http.Request) {
		var req booking.CreateBookingRequest
		_ = json.NewDecoder(r.Body).Decode(&req)
		if attempts.Add(1) == 1 {
			httpx.WriteError(w, http.StatusConflict, "Time slot not available")
			return
		}
		if req.CoachID != 2 || req.StartTime != "11:00" || req.BookingDate != "2025-03-18" {
			httpx.WriteError(w, http.StatusBadRequest, "unexpected request")
			return
		}
		httpx.WriteJSON(w, http.StatusCreated, map[string]any{"booking_id": 5, "booking_reference": "BKZZ9900", "status": "confirmed"})
	})
	mux.HandleFunc("PATCH /api/bookings/{reference}/cancel", func(w http.ResponseWriter, r *http.Request) {
		httpx.WriteJSON(w, http.StatusOK, map[string]any{"success": true})
	})
	srv := httptest.NewServer(mux)
	t.Cleanup(srv.Close)
	return srv, attempts
}

func TestBookInteractive(t *testing.T) {
	srv, attempts := fakeAPI(t)

	input := strings.Join([]string{
		"1",          // Kenji
		"b",          // back to coaches
		"2",          // Ana
		"1",          // Private Lesson
		"2025-03-18", // date
		"1",          // 10:00
		"Kim", "kim@example.com", "", "",
		// 409, back at slot selection
		"1", "2025-03-18", "2", // 11:00
		"Kim", "kim@example.com", "", "left-handed",
	}, "\n") + "\n"

	var out bytes.Buffer
	err := run(context.Background(), []string{"-base-url", srv.URL, "book"}, strings.NewReader(input), &out)
	require.NoError(t, err, out.String())
	require.Equal(t, int32(2), attempts.Load())
	require.Contains(t, out.String(), "that slot was just taken")
	require.Contains(t, out.String(), "booked Private Lesson with Ana on 2025-03-18 at 11:00. reference BKZZ9900")
}

func TestBookStopsOnEOF(t *testing.T) {
	srv, _ := fakeAPI(t)
	var out bytes.Buffer
	err := run(context.Background(), []string{"-base-url", srv.URL, "book"}, strings.NewReader("1\n"), &out)
	require.Error(t, err)
}

func TestCoachesTable(t *testing.T) {
	srv, _ := fakeAPI(t)
	var out bytes.Buffer
	require.NoError(t, run(context.Background(), []string{"-base-url", srv.URL, "coaches"}, nil, &out))
	require.Contains(t, out.String(), "Kenji")
	require.Contains(t, out.String(), "Muay Thai")
}

func TestCancelCommand(t *testing.T) {
	srv, _ := fakeAPI(t)
	var out bytes.Buffer
	require.NoError(t, run(context.Background(), []string{"-base-url", srv.URL, "cancel", "-ref", "bkzz9900"}, nil, &out))
	require.Equal(t, "booking BKZZ9900 cancelled\n", out.String())

	require.ErrorContains(t, run(context.Background(), []string{"-base-url", srv.URL, "cancel"}, nil, &out), "-ref")
}

func TestUsage(t *testing.T) {
	var out bytes.Buffer
	require.ErrorIs(t, run(context.Background(), nil, nil, &out), flag.ErrHelp)
	require.Contains(t, out.String(), "usage: studioctl")
	require.ErrorContains(t, run(context.Background(), []string{"dance"}, nil, &out), "unknown command")
}

type grpcSlotsStub struct{}

func (grpcSlotsStub) ComputeSlots(_ context.Context, coachID int64, date model.Date, sessionTypeID *int64) ([]booking.Slot, error) {
	if coachID != 2 || date.String() != "2026-11-02" || sessionTypeID == nil || *sessionTypeID != 3 {
		return nil, nil
	}
	return []booking.Slot{{StartTime: model.NewClock(18, 0), EndTime: model.NewClock(19, 30), DurationMinutes: 90}}, nil
}

func TestSlotsOverGRPC(t *testing.T) {
	lis, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)
	srv, _ := grpcx.NewServer(nil)
	grpcserver.Register(srv, grpcSlotsStub{})
	go func() { _ = srv.Serve(lis) }()
	t.Cleanup(srv.Stop)

	var out bytes.Buffer
	err = run(context.Background(), []string{"-base-url", "http://127.0.0.1:1", "slots",
		"-grpc", lis.Addr().String(), "-coach", "2", "-date", "2026-11-02", "-session-type", "3"}, strings.NewReader(""), &out)
	require.NoError(t, err)
	require.Equal(t, "18:00-19:30 (90 min)\n", out.String())

	err = run(context.Background(), []string{"slots", "-grpc", lis.Addr().String(), "-coach", "2", "-date", "soon"}, strings.NewReader(""), &out)
	require.EqualError(t, err, "-date must be YYYY-MM-DD")
}
