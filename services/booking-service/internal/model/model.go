package model

import "time"

type BookingStatus string

const (
	StatusConfirmed   BookingStatus = "confirmed"
	StatusCancelled   BookingStatus = "cancelled"
	StatusRescheduled BookingStatus = "rescheduled"
	StatusCompleted   BookingStatus = "completed"
	StatusNoShow      BookingStatus = "no_show"
)

// BlockingStatuses occupy the coach's time.
var BlockingStatuses = []BookingStatus{StatusConfirmed, StatusRescheduled}

func (s BookingStatus) Valid() bool {
	switch s {
	case StatusConfirmed, StatusCancelled, StatusRescheduled, StatusCompleted, StatusNoShow:
		return true
	}
	return false
}

type ExceptionType string

const (
	ExceptionUnavailable ExceptionType = "unavailable"
	ExceptionCustomHours ExceptionType = "custom_hours"
)

type Coach struct {
	ID              int64      `db:"id" json:"id"`
	Name            string     `db:"name" json:"name"`
	Email           string     `db:"email" json:"email"`
	Phone           string     `db:"phone" json:"phone"`
	Bio             string     `db:"bio" json:"bio"`
	ProfileImageURL string     `db:"profile_image_url" json:"profile_image_url"`
	Styles          StringList `db:"martial_arts_styles" json:"martial_arts_styles"`
	Languages       StringList `db:"languages" json:"languages"`
	Certifications  StringList `db:"certifications" json:"certifications"`
	ExperienceYears int        `db:"experience_years" json:"experience_years"`
	HourlyRate      *float64   `db:"hourly_rate" json:"hourly_rate"`
	IsActive        bool       `db:"is_active" json:"is_active"`
	CreatedAt       time.Time  `db:"created_at" json:"created_at"`
	UpdatedAt       time.Time  `db:"updated_at" json:"updated_at"`
}

type SessionType struct {
	ID              int64     `db:"id" json:"id"`
	Name            string    `db:"name" json:"name"`
	Description     string    `db:"description" json:"description"`
	DurationMinutes int       `db:"duration_minutes" json:"duration_minutes"`
	BufferMinutes   int       `db:"buffer_minutes" json:"buffer_minutes"`
	MaxParticipants int       `db:"max_participants" json:"max_participants"`
	IsActive        bool      `db:"is_active" json:"is_active"`
	CreatedAt       time.Time `db:"created_at" json:"created_at"`
}

type Location struct {
	ID          int64      `db:"id" json:"id"`
	Name        string     `db:"name" json:"name"`
	Description string     `db:"description" json:"description"`
	Capacity    int        `db:"capacity" json:"capacity"`
	Equipment   StringList `db:"equipment" json:"equipment"`
	IsActive    bool       `db:"is_active" json:"is_active"`
}

// CoachAvailability is one recurring weekly rule.
type CoachAvailability struct {
	ID           int64  `db:"id" json:"id"`
	CoachID      int64  `db:"coach_id" json:"coach_id"`
	DayOfWeek    int    `db:"day_of_week" json:"day_of_week"`
	StartTime    Clock  `db:"start_time" json:"start_time"`
	EndTime      Clock  `db:"end_time" json:"end_time"`
	LocationID   *int64 `db:"location_id" json:"location_id"`
	LocationName string `db:"location_name" json:"location_name,omitempty"`
	IsActive     bool   `db:"is_active" json:"is_active"`
}

type AvailabilityException struct {
	ID            int64         `db:"id" json:"id"`
	CoachID       int64         `db:"coach_id" json:"coach_id"`
	ExceptionDate Date          `db:"exception_date" json:"exception_date"`
	Type          ExceptionType `db:"exception_type" json:"exception_type"`
	StartTime     *Clock        `db:"start_time" json:"start_time"`
	EndTime       *Clock        `db:"end_time" json:"end_time"`
	Reason        string        `db:"reason" json:"reason"`
}

type Booking struct {
	ID                 int64         `db:"id" json:"id"`
	CoachID            int64         `db:"coach_id" json:"coach_id"`
	SessionTypeID      int64         `db:"session_type_id" json:"session_type_id"`
	LocationID         *int64        `db:"location_id" json:"location_id"`
	StudentName        string        `db:"student_name" json:"student_name"`
	StudentEmail       string        `db:"student_email" json:"student_email"`
	StudentPhone       string        `db:"student_phone" json:"student_phone"`
	BookingDate        Date          `db:"booking_date" json:"booking_date"`
	StartTime          Clock         `db:"start_time" json:"start_time"`
	EndTime            Clock         `db:"end_time" json:"end_time"`
	DurationMinutes    int           `db:"duration_minutes" json:"duration_minutes"`
	Status             BookingStatus `db:"status" json:"status"`
	Reference          string        `db:"booking_reference" json:"booking_reference"`
	SpecialRequests    string        `db:"special_requests" json:"special_requests"`
	CancellationReason string        `db:"cancellation_reason" json:"cancellation_reason"`
	CreatedAt          time.Time     `db:"created_at" json:"created_at"`
	UpdatedAt          time.Time     `db:"updated_at" json:"updated_at"`
	CancelledAt        *time.Time    `db:"cancelled_at" json:"cancelled_at"`
}

// BookingDetails is a booking joined with display names for listings.
type BookingDetails struct {
	Booking
	CoachName       string `db:"coach_name" json:"coach_name"`
	SessionTypeName string `db:"session_type_name" json:"session_type_name"`
	LocationName    string `db:"location_name" json:"location_name"`
}

type AdminUser struct {
	ID           int64      `db:"id" json:"id"`
	Username     string     `db:"username" json:"username"`
	Email        string     `db:"email" json:"email"`
	PasswordHash string     `db:"password_hash" json:"-"`
	IsActive     bool       `db:"is_active" json:"is_active"`
	LastLogin    *time.Time `db:"last_login" json:"last_login"`
}
