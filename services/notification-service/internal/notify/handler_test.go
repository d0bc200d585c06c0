package notify

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"testing"

	"github.com/md-rashed-zaman/dojobook/libs/events"
	"github.com/md-rashed-zaman/dojobook/services/notification-service/internal/email"
	"github.com/md-rashed-zaman/dojobook/services/notification-service/internal/storage"
	"github.com/segmentio/kafka-go"
	"github.com/stretchr/testify/require"
)

type fakeSender struct {
	sent []email.Message
	err  error
}

func (f *fakeSender) Send(_ context.Context, msg email.Message) error {
	if f.err != nil {
		return f.err
	}
	f.sent = append(f.sent, msg)
	return nil
}

type fakeLog struct {
	records []storage.Notification
	err     error
}

func (f *fakeLog) Insert(_ context.Context, n storage.Notification) error {
	f.records = append(f.records, n)
	return f.err
}

func message(t *testing.T, eventType string, b events.Booking) kafka.Message {
	t.Helper()
	raw, err := json.Marshal(b)
	require.NoError(t, err)
	return kafka.Message{
		Topic: eventType,
		Key:   []byte(b.Reference),
		Value: raw,
		Headers: []kafka.Header{
			{Key: "event_id", Value: []byte("evt-1")},
			{Key: "event_type", Value: []byte(eventType)},
		},
	}
}

var kim = events.Booking{
	BookingID:       7,
	Reference:       "BKAB12CD",
	Status:          "confirmed",
	StudentName:     "Kim",
	StudentEmail:    "kim@example.com",
	SessionTypeName: "Private Lesson",
	BookingDate:     "2025-03-17",
	StartTime:       "10:00",
	EndTime:         "11:00",
}

func newHandler(sender email.Sender, log Log) *Handler {
	return NewHandler(sender, log, slog.New(slog.NewTextHandler(io.Discard, nil)), "Fight Club")
}

func TestConfirmedEmail(t *testing.T) {
	sender, log := &fakeSender{}, &fakeLog{}
	require.NoError(t, newHandler(sender, log).Handle(context.Background(), message(t, events.BookingConfirmed, kim)))

	require.Len(t, sender.sent, 1)
	msg := sender.sent[0]
	require.Equal(t, "kim@example.com", msg.To)
	require.Equal(t, "Fight Club: booking BKAB12CD confirmed", msg.Subject)
	require.Contains(t, msg.Body, "Hi Kim,")
	require.Contains(t, msg.Body, "Your Private Lesson on 2025-03-17 from 10:00 to 11:00 is confirmed.")

	require.Equal(t, []storage.Notification{{
		EventID:          "evt-1",
		EventType:        events.BookingConfirmed,
		BookingReference: "BKAB12CD",
		Recipient:        "kim@example.com",
		Subject:          msg.Subject,
		Status:           storage.StatusSent,
	}}, log.records)
}

func TestCancelledEmailIncludesReason(t *testing.T) {
	b := kim
	b.Status = "cancelled"
	b.SessionTypeName = ""
	b.CancellationReason = "Injury"

	sender := &fakeSender{}
	require.NoError(t, newHandler(sender, &fakeLog{}).Handle(context.Background(), message(t, events.BookingCancelled, b)))
	require.Len(t, sender.sent, 1)
	require.Equal(t, "Fight Club: booking BKAB12CD cancelled", sender.sent[0].Subject)
	require.Contains(t, sender.sent[0].Body, "Your session on 2025-03-17 at 10:00 has been cancelled.")
	require.Contains(t, sender.sent[0].Body, "Reason: Injury")
}

func TestSendFailureIsRecordedAndReturned(t *testing.T) {
	sender, log := &fakeSender{err: errors.New("connection refused")}, &fakeLog{}
	err := newHandler(sender, log).Handle(context.Background(), message(t, events.BookingConfirmed, kim))
	require.ErrorContains(t, err, "connection refused")
	require.Len(t, log.records, 1)
	require.Equal(t, storage.StatusFailed, log.records[0].Status)
	require.Equal(t, "connection refused", log.records[0].Error)
}

func TestLogFailureIsReturned(t *testing.T) {
	err := newHandler(&fakeSender{}, &fakeLog{err: errors.New("db down")}).
		Handle(context.Background(), message(t, events.BookingConfirmed, kim))
	require.ErrorContains(t, err, "record notification")
}

func TestPoisonAndUnknownEventsAreDropped(t *testing.T) {
	sender, log := &fakeSender{}, &fakeLog{}
	h := newHandler(sender, log)

	require.NoError(t, h.Handle(context.Background(), kafka.Message{Topic: events.BookingConfirmed, Value: []byte("{not json")}))
	require.NoError(t, h.Handle(context.Background(), message(t, events.BookingConfirmed, events.Booking{Reference: "BKAB12CD"})))
	require.NoError(t, h.Handle(context.Background(), message(t, "booking.rescheduled.v1", kim)))

	require.Empty(t, sender.sent)
	require.Empty(t, log.records)
}
