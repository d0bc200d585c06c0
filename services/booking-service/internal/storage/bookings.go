package storage

import (
	"context"
	"fmt"

	"github.com/jmoiron/sqlx"
	"github.com/md-rashed-zaman/dojobook/services/booking-service/internal/model"
	"github.com/md-rashed-zaman/dojobook/services/booking-service/internal/outbox"
)

const bookingColumns = `b.id, b.coach_id, b.session_type_id, b.location_id, b.student_name, b.student_email,
	COALESCE(b.student_phone, '') AS student_phone, b.booking_date,
	to_char(b.start_time, 'HH24:MI') AS start_time, to_char(b.end_time, 'HH24:MI') AS end_time,
	b.duration_minutes, b.status, b.booking_reference, COALESCE(b.special_requests, '') AS special_requests,
	COALESCE(b.cancellation_reason, '') AS cancellation_reason, b.created_at, b.updated_at, b.cancelled_at`

type BookingRepository struct {
	db     *sqlx.DB
	outbox *outbox.Repository
}

func NewBookingRepository(db *sqlx.DB, ob *outbox.Repository) *BookingRepository {
	return &BookingRepository{db: db, outbox: ob}
}

// List returns bookings joined with coach, session type and location names,
// newest first.
func (r *BookingRepository) List(ctx context.Context, f BookingFilter) ([]model.BookingDetails, error) {
	w := f.where()
	query := `
		SELECT ` + bookingColumns + `,
			c.name AS coach_name, st.name AS session_type_name, COALESCE(l.name, '') AS location_name
		FROM bookings b
		JOIN coaches c ON c.id = b.coach_id
		JOIN session_types st ON st.id = b.session_type_id
		LEFT JOIN locations l ON l.id = b.location_id` + w.sql() + `
		ORDER BY b.booking_date DESC, b.start_time DESC`

	out := []model.BookingDetails{}
	if err := r.db.SelectContext(ctx, &out, query, w.args...); err != nil {
		return nil, err
	}
	return out, nil
}

// BookingTx is the write side of one booking transaction.
type BookingTx interface {
	// LockCoach takes a row lock on an active coach; sql.ErrNoRows otherwise.
	LockCoach(ctx context.Context, coachID int64) error
	HasOverlap(ctx context.Context, coachID int64, date model.Date, start, end model.Clock) (bool, error)
	// Insert returns false without error when the reference is already taken.
	Insert(ctx context.Context, b *model.Booking) (bool, error)
	// CancelByReference moves a confirmed booking to cancelled; sql.ErrNoRows otherwise.
	CancelByReference(ctx context.Context, ref, reason string) (model.Booking, error)
	Publish(ctx context.Context, evt outbox.Event) error
}

// WithinTx runs fn in a transaction, committing when fn returns nil.
func (r *BookingRepository) WithinTx(ctx context.Context, fn func(BookingTx) error) error {
	tx, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	if err := fn(&bookingTx{tx: tx, outbox: r.outbox}); err != nil {
		return err
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit: %w", err)
	}
	return nil
}

type bookingTx struct {
	tx     *sqlx.Tx
	outbox *outbox.Repository
}

func (t *bookingTx) LockCoach(ctx context.Context, coachID int64) error {
	var id int64
	return t.tx.GetContext(ctx, &id, `SELECT id FROM coaches WHERE id = $1 AND is_active FOR UPDATE`, coachID)
}

func (t *bookingTx) HasOverlap(ctx context.Context, coachID int64, date model.Date, start, end model.Clock) (bool, error) {
	var exists bool
	err := t.tx.GetContext(ctx, &exists, `
		SELECT EXISTS (
			SELECT 1 FROM bookings
			WHERE coach_id = $1 AND booking_date = $2
				AND status IN ('confirmed', 'rescheduled')
				AND start_time < $4 AND end_time > $3
		)`, coachID, date, start, end)
	return exists, err
}

func (t *bookingTx) Insert(ctx context.Context, b *model.Booking) (bool, error) {
	row := t.tx.QueryRowxContext(ctx, `
		INSERT INTO bookings
			(coach_id, session_type_id, location_id, student_name, student_email, student_phone,
			 booking_date, start_time, end_time, duration_minutes, status, booking_reference, special_requests)
		VALUES ($1, $2, $3, $4, $5, NULLIF($6, ''), $7, $8, $9, $10, $11, $12, NULLIF($13, ''))
		ON CONFLICT (booking_reference) DO NOTHING
		RETURNING id, created_at, updated_at`,
		b.CoachID, b.SessionTypeID, b.LocationID, b.StudentName, b.StudentEmail, b.StudentPhone,
		b.BookingDate, b.StartTime, b.EndTime, b.DurationMinutes, string(b.Status), b.Reference, b.SpecialRequests)
	err := row.Scan(&b.ID, &b.CreatedAt, &b.UpdatedAt)
	if IsNotFound(err) {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	return true, nil
}

func (t *bookingTx) CancelByReference(ctx context.Context, ref, reason string) (model.Booking, error) {
	var b model.Booking
	err := t.tx.GetContext(ctx, &b, `
		UPDATE bookings b
		SET status = 'cancelled',
			cancellation_reason = $2,
			cancelled_at = now(),
			updated_at = now()
		WHERE b.booking_reference = $1 AND b.status = 'confirmed'
		RETURNING `+bookingColumns, ref, reason)
	return b, err
}

func (t *bookingTx) Publish(ctx context.Context, evt outbox.Event) error {
	return t.outbox.Insert(ctx, t.tx, evt)
}
