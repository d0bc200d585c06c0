package storage

import (
	"strings"
	"testing"

	"github.com/md-rashed-zaman/dojobook/services/booking-service/internal/model"
	"github.com/stretchr/testify/require"
)

func TestCoachFilter_Empty(t *testing.T) {
	w := CoachFilter{}.where()
	require.Equal(t, " WHERE c.is_active = $1", w.sql())
	require.Equal(t, []any{true}, w.args)
}

func TestCoachFilter_AllConditions(t *testing.T) {
	minExp := 5
	date := model.NewDate(2025, 3, 17)
	w := CoachFilter{
		Styles:        []string{"Judo", " ", "BJJ"},
		Languages:     []string{"Japanese"},
		ExperienceMin: &minExp,
		AvailableOn:   &date,
	}.where()

	sql := w.sql()
	require.Contains(t, sql, `(c.martial_arts_styles LIKE $2 ESCAPE '\' OR c.martial_arts_styles LIKE $3 ESCAPE '\')`)
	require.Contains(t, sql, `(c.languages LIKE $4 ESCAPE '\')`)
	require.Contains(t, sql, "c.experience_years >= $5")
	require.Contains(t, sql, "a.day_of_week = $6")
	require.Contains(t, sql, "e.exception_date = $7")
	require.Equal(t, []any{true, `%"Judo"%`, `%"BJJ"%`, `%"Japanese"%`, 5, 1, date}, w.args)
}

func TestCoachFilter_EscapesLikeMetacharacters(t *testing.T) {
	w := CoachFilter{Styles: []string{`100%_fight\club`}}.where()
	require.Equal(t, `%"100\%\_fight\\\\club"%`, w.args[1])
	for _, a := range w.args {
		if s, ok := a.(string); ok {
			require.False(t, strings.Contains(w.sql(), s), "argument leaked into sql")
		}
	}
}

func TestBookingFilter(t *testing.T) {
	from := model.NewDate(2025, 1, 1)
	to := model.NewDate(2025, 1, 31)
	coach := int64(3)
	status := model.StatusConfirmed

	w := BookingFilter{DateFrom: &from, DateTo: &to, CoachID: &coach, Status: &status}.where()
	require.Equal(t, " WHERE b.booking_date >= $1 AND b.booking_date <= $2 AND b.coach_id = $3 AND b.status = $4", w.sql())
	require.Equal(t, []any{from, to, int64(3), "confirmed"}, w.args)

	require.Empty(t, BookingFilter{}.where().sql())

	w = BookingFilter{StudentEmail: "Kim@Example.com"}.where()
	require.Equal(t, " WHERE lower(b.student_email) = lower($1)", w.sql())
}
