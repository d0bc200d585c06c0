package storage

import (
	"context"

	"github.com/jmoiron/sqlx"
	"github.com/md-rashed-zaman/dojobook/services/booking-service/internal/availability"
	"github.com/md-rashed-zaman/dojobook/services/booking-service/internal/model"
)

type AvailabilityRepository struct {
	db *sqlx.DB
}

func NewAvailabilityRepository(db *sqlx.DB) *AvailabilityRepository {
	return &AvailabilityRepository{db: db}
}

const ruleColumns = `ca.id, ca.coach_id, ca.day_of_week, to_char(ca.start_time, 'HH24:MI') AS start_time,
	to_char(ca.end_time, 'HH24:MI') AS end_time, ca.location_id, ca.is_active`

// Weekly lists a coach's active recurring rules with location names.
func (r *AvailabilityRepository) Weekly(ctx context.Context, coachID int64) ([]model.CoachAvailability, error) {
	out := []model.CoachAvailability{}
	err := r.db.SelectContext(ctx, &out, `
		SELECT `+ruleColumns+`, COALESCE(l.name, '') AS location_name
		FROM coach_availability ca
		LEFT JOIN locations l ON l.id = ca.location_id
		WHERE ca.coach_id = $1 AND ca.is_active
		ORDER BY ca.day_of_week, ca.start_time`, coachID)
	return out, err
}

// RuleFor returns the first active rule for the weekday, or nil when the coach
// does not work that day. With several rows the lowest id wins.
func (r *AvailabilityRepository) RuleFor(ctx context.Context, coachID int64, weekday int) (*model.CoachAvailability, error) {
	var rule model.CoachAvailability
	err := r.db.GetContext(ctx, &rule, `
		SELECT `+ruleColumns+`
		FROM coach_availability ca
		WHERE ca.coach_id = $1 AND ca.day_of_week = $2 AND ca.is_active
		ORDER BY ca.id
		LIMIT 1`, coachID, weekday)
	if IsNotFound(err) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &rule, nil
}

// ExceptionOn returns the coach's exception for date, or nil. An unavailable row wins
// over custom hours on the same date, matching the coach listing's available_date filter.
func (r *AvailabilityRepository) ExceptionOn(ctx context.Context, coachID int64, date model.Date) (*model.AvailabilityException, error) {
	var ex model.AvailabilityException
	err := r.db.GetContext(ctx, &ex, `
		SELECT id, coach_id, exception_date, exception_type,
			to_char(start_time, 'HH24:MI') AS start_time, to_char(end_time, 'HH24:MI') AS end_time,
			COALESCE(reason, '') AS reason
		FROM availability_exceptions
		WHERE coach_id = $1 AND exception_date = $2
		ORDER BY exception_type = 'unavailable' DESC, id
		LIMIT 1`, coachID, date)
	if IsNotFound(err) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &ex, nil
}

// Busy returns the intervals held by confirmed or rescheduled bookings.
func (r *AvailabilityRepository) Busy(ctx context.Context, coachID int64, date model.Date) ([]availability.Interval, error) {
	var rows []struct {
		Start model.Clock `db:"start_time"`
		End   model.Clock `db:"end_time"`
	}
	err := r.db.SelectContext(ctx, &rows, `
		SELECT to_char(start_time, 'HH24:MI') AS start_time, to_char(end_time, 'HH24:MI') AS end_time
		FROM bookings
		WHERE coach_id = $1 AND booking_date = $2 AND status IN ('confirmed', 'rescheduled')
		ORDER BY start_time`, coachID, date)
	if err != nil {
		return nil, err
	}
	out := make([]availability.Interval, 0, len(rows))
	for _, row := range rows {
		out = append(out, availability.Interval{Start: row.Start, End: row.End})
	}
	return out, nil
}
