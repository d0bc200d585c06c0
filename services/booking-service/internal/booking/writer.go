package booking

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strconv"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/md-rashed-zaman/dojobook/libs/events"
	"github.com/md-rashed-zaman/dojobook/services/booking-service/internal/model"
	"github.com/md-rashed-zaman/dojobook/services/booking-service/internal/outbox"
	"github.com/md-rashed-zaman/dojobook/services/booking-service/internal/reference"
	"github.com/md-rashed-zaman/dojobook/services/booking-service/internal/storage"
)

const (
	maxReferenceAttempts = 5
	DefaultCancelReason  = "Cancelled by student"
	aggregateBooking     = "booking"
)

var errReferencesExhausted = errors.New("could not allocate a unique booking reference")

// TxRunner runs fn in one database transaction.
type TxRunner interface {
	WithinTx(ctx context.Context, fn func(storage.BookingTx) error) error
}

// Writer creates and cancels bookings.
type Writer struct {
	sessions SessionTypes
	store    TxRunner
	newRef   reference.Generator
	now      func() time.Time
	validate *validator.Validate
	logger   *slog.Logger
	metrics  *Metrics
}

type WriterOption func(*Writer)

func WithReferenceGenerator(g reference.Generator) WriterOption {
	return func(w *Writer) { w.newRef = g }
}

func WithClock(now func() time.Time) WriterOption {
	return func(w *Writer) { w.now = now }
}

func WithMetrics(m *Metrics) WriterOption {
	return func(w *Writer) { w.metrics = m }
}

func NewWriter(sessions SessionTypes, store TxRunner, logger *slog.Logger, opts ...WriterOption) *Writer {
	w := &Writer{
		sessions: sessions,
		store:    store,
		newRef:   reference.New,
		now:      time.Now,
		validate: newValidator(),
		logger:   logger,
	}
	for _, opt := range opts {
		opt(w)
	}
	return w
}

// CreateBooking validates req and stores a confirmed booking. The conflict check and
// the insert run under a row lock on the coach, so concurrent requests for the same
// coach are serialized.
func (w *Writer) CreateBooking(ctx context.Context, req CreateBookingRequest) (Confirmation, error) {
	req.normalize()
	if err := w.validate.StructCtx(ctx, req); err != nil {
		w.metrics.incRejected("validation")
		return Confirmation{}, validationError(err)
	}
	date, err := model.ParseDate(req.BookingDate)
	if err != nil {
		w.metrics.incRejected("validation")
		return Confirmation{}, invalid("booking_date must be YYYY-MM-DD")
	}
	start, err := model.ParseClock(req.StartTime)
	if err != nil || start >= model.MinutesPerDay {
		w.metrics.incRejected("validation")
		return Confirmation{}, invalid("start_time must be HH:MM")
	}

	st, err := w.sessions.GetSessionType(ctx, req.SessionTypeID)
	if err != nil {
		if storage.IsNotFound(err) {
			w.metrics.incRejected("session_type")
			return Confirmation{}, ErrInvalidSessionType
		}
		return Confirmation{}, fmt.Errorf("load session type: %w", err)
	}

	end := start.Add(st.DurationMinutes)
	if end > model.MinutesPerDay {
		w.metrics.incRejected("validation")
		return Confirmation{}, invalid("booking would end after midnight")
	}

	b := model.Booking{
		CoachID:         req.CoachID,
		SessionTypeID:   req.SessionTypeID,
		LocationID:      req.LocationID,
		StudentName:     req.StudentName,
		StudentEmail:    req.StudentEmail,
		StudentPhone:    req.StudentPhone,
		BookingDate:     date,
		StartTime:       start,
		EndTime:         end,
		DurationMinutes: st.DurationMinutes,
		Status:          model.StatusConfirmed,
		SpecialRequests: req.SpecialRequests,
	}

	err = w.store.WithinTx(ctx, func(tx storage.BookingTx) error {
		if err := tx.LockCoach(ctx, b.CoachID); err != nil {
			if storage.IsNotFound(err) {
				return notFound("Coach not found")
			}
			return fmt.Errorf("lock coach: %w", err)
		}
		busy, err := tx.HasOverlap(ctx, b.CoachID, b.BookingDate, b.StartTime, b.EndTime)
		if err != nil {
			return fmt.Errorf("check overlap: %w", err)
		}
		if busy {
			return ErrSlotUnavailable
		}
		if err := w.insertWithReference(ctx, tx, &b); err != nil {
			return err
		}
		payload := w.payload(b)
		payload.SessionTypeName = st.Name
		evt, err := outbox.NewEvent(aggregateBooking, b.Reference, events.BookingConfirmed, payload)
		if err != nil {
			return err
		}
		return tx.Publish(ctx, evt)
	})
	if err != nil {
		switch {
		case storage.IsConflict(err) || errors.Is(err, ErrSlotUnavailable):
			w.metrics.incRejected("conflict")
			return Confirmation{}, ErrSlotUnavailable
		case errors.Is(err, ErrNotFound):
			w.metrics.incRejected("coach")
			return Confirmation{}, err
		}
		return Confirmation{}, err
	}

	w.metrics.incCreated()
	w.logger.InfoContext(ctx, "booking confirmed",
		"booking_id", b.ID,
		"booking_reference", b.Reference,
		"coach_id", b.CoachID,
		"booking_date", b.BookingDate.String(),
		"start_time", b.StartTime.String(),
	)
	return Confirmation{BookingID: b.ID, Reference: b.Reference, Status: b.Status}, nil
}

// insertWithReference retries with a fresh reference while the generated one is taken.
func (w *Writer) insertWithReference(ctx context.Context, tx storage.BookingTx, b *model.Booking) error {
	for attempt := 1; attempt <= maxReferenceAttempts; attempt++ {
		ref, err := w.newRef()
		if err != nil {
			return err
		}
		b.Reference = ref
		inserted, err := tx.Insert(ctx, b)
		if err != nil {
			return fmt.Errorf("insert booking: %w", err)
		}
		if inserted {
			return nil
		}
		w.logger.WarnContext(ctx, "booking reference collision", "attempt", attempt)
	}
	return errReferencesExhausted
}

// Cancel moves a confirmed booking to cancelled. Unknown references and bookings
// in any other status both report ErrNotFound.
func (w *Writer) Cancel(ctx context.Context, ref, reason string) error {
	ref = strings.ToUpper(strings.TrimSpace(ref))
	if ref == "" {
		return notFound("Booking not found or already cancelled")
	}
	reason = strings.TrimSpace(reason)
	if reason == "" {
		reason = DefaultCancelReason
	}

	var cancelled model.Booking
	err := w.store.WithinTx(ctx, func(tx storage.BookingTx) error {
		var err error
		cancelled, err = tx.CancelByReference(ctx, ref, reason)
		if err != nil {
			if storage.IsNotFound(err) {
				return notFound("Booking not found or already cancelled")
			}
			return fmt.Errorf("cancel booking: %w", err)
		}
		evt, err := outbox.NewEvent(aggregateBooking, cancelled.Reference, events.BookingCancelled, w.payload(cancelled))
		if err != nil {
			return err
		}
		return tx.Publish(ctx, evt)
	})
	if err != nil {
		return err
	}

	w.metrics.incCancelled()
	w.logger.InfoContext(ctx, "booking cancelled", "booking_reference", ref, "booking_id", cancelled.ID)
	return nil
}

func (w *Writer) payload(b model.Booking) events.Booking {
	return events.Booking{
		BookingID:          b.ID,
		Reference:          b.Reference,
		Status:             string(b.Status),
		CoachID:            b.CoachID,
		SessionTypeID:      b.SessionTypeID,
		StudentName:        b.StudentName,
		StudentEmail:       b.StudentEmail,
		BookingDate:        b.BookingDate.String(),
		StartTime:          b.StartTime.String(),
		EndTime:            b.EndTime.String(),
		CancellationReason: b.CancellationReason,
		OccurredAt:         w.now().UTC().Format(time.RFC3339),
	}
}

// ParseID parses a positive numeric identifier from a path or query value.
func ParseID(raw string) (int64, error) {
	id, err := strconv.ParseInt(strings.TrimSpace(raw), 10, 64)
	if err != nil || id <= 0 {
		return 0, invalid("invalid id %q", raw)
	}
	return id, nil
}
