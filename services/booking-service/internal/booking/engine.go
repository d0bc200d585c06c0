package booking

import (
	"context"
	"fmt"

	"github.com/md-rashed-zaman/dojobook/services/booking-service/internal/availability"
	"github.com/md-rashed-zaman/dojobook/services/booking-service/internal/model"
	"github.com/md-rashed-zaman/dojobook/services/booking-service/internal/storage"
)

type Coaches interface {
	GetActive(ctx context.Context, id int64) (model.Coach, error)
}

type SessionTypes interface {
	GetSessionType(ctx context.Context, id int64) (model.SessionType, error)
}

type Schedules interface {
	RuleFor(ctx context.Context, coachID int64, weekday int) (*model.CoachAvailability, error)
	ExceptionOn(ctx context.Context, coachID int64, date model.Date) (*model.AvailabilityException, error)
	Busy(ctx context.Context, coachID int64, date model.Date) ([]availability.Interval, error)
}

// Slot is one bookable interval as returned to clients.
type Slot struct {
	StartTime       model.Clock `json:"start_time"`
	EndTime         model.Clock `json:"end_time"`
	DurationMinutes int         `json:"duration_minutes"`
	LocationID      *int64      `json:"location_id"`
}

// Engine answers availability questions for one coach-day.
type Engine struct {
	coaches   Coaches
	sessions  SessionTypes
	schedules Schedules
}

func NewEngine(coaches Coaches, sessions SessionTypes, schedules Schedules) *Engine {
	return &Engine{coaches: coaches, sessions: sessions, schedules: schedules}
}

// ComputeSlots returns the free slots for coachID on date in ascending order.
// sessionTypeID, when set, picks the slot length; otherwise slots are 60 minutes.
func (e *Engine) ComputeSlots(ctx context.Context, coachID int64, date model.Date, sessionTypeID *int64) ([]Slot, error) {
	if coachID <= 0 {
		return nil, invalid("coach id must be positive")
	}
	if date.IsZero() {
		return nil, invalid("date is required")
	}
	if _, err := e.coaches.GetActive(ctx, coachID); err != nil {
		if storage.IsNotFound(err) {
			return nil, notFound("Coach not found")
		}
		return nil, fmt.Errorf("load coach: %w", err)
	}

	duration := availability.DefaultDuration
	if sessionTypeID != nil {
		st, err := e.sessions.GetSessionType(ctx, *sessionTypeID)
		if err != nil {
			if storage.IsNotFound(err) {
				return nil, ErrInvalidSessionType
			}
			return nil, fmt.Errorf("load session type: %w", err)
		}
		duration = st.DurationMinutes
	}

	rule, err := e.schedules.RuleFor(ctx, coachID, int(date.Weekday()))
	if err != nil {
		return nil, fmt.Errorf("load availability rule: %w", err)
	}
	if rule == nil {
		return []Slot{}, nil
	}

	day := availability.Day{Rule: &availability.Interval{Start: rule.StartTime, End: rule.EndTime}}

	ex, err := e.schedules.ExceptionOn(ctx, coachID, date)
	if err != nil {
		return nil, fmt.Errorf("load availability exception: %w", err)
	}
	if ex != nil {
		day.Exception = &availability.Exception{Type: ex.Type}
		if ex.StartTime != nil && ex.EndTime != nil {
			day.Exception.Hours = &availability.Interval{Start: *ex.StartTime, End: *ex.EndTime}
		}
		if ex.Type == model.ExceptionUnavailable {
			return []Slot{}, nil
		}
	}

	day.Busy, err = e.schedules.Busy(ctx, coachID, date)
	if err != nil {
		return nil, fmt.Errorf("load bookings: %w", err)
	}

	intervals := availability.ComputeSlots(day, duration)
	slots := make([]Slot, 0, len(intervals))
	for _, iv := range intervals {
		slots = append(slots, Slot{
			StartTime:       iv.Start,
			EndTime:         iv.End,
			DurationMinutes: iv.Minutes(),
			LocationID:      rule.LocationID,
		})
	}
	return slots, nil
}
