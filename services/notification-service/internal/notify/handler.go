// Package notify turns booking events into student emails.
package notify

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"strings"

	"github.com/md-rashed-zaman/dojobook/libs/events"
	"github.com/md-rashed-zaman/dojobook/libs/kafkax"
	"github.com/md-rashed-zaman/dojobook/services/notification-service/internal/email"
	"github.com/md-rashed-zaman/dojobook/services/notification-service/internal/storage"
	"github.com/segmentio/kafka-go"
)

type Log interface {
	Insert(ctx context.Context, n storage.Notification) error
}

type Handler struct {
	sender     email.Sender
	log        Log
	logger     *slog.Logger
	studioName string
}

func NewHandler(sender email.Sender, log Log, logger *slog.Logger, studioName string) *Handler {
	if studioName == "" {
		studioName = "Fight Club"
	}
	return &Handler{sender: sender, log: log, logger: logger, studioName: studioName}
}

// Handle sends the email for one booking event. Malformed or unknown events are
// logged and dropped. A failed send is returned so the consumer can retry.
func (h *Handler) Handle(ctx context.Context, msg kafka.Message) error {
	meta := kafkax.ExtractEventMeta(msg)

	var b events.Booking
	if err := json.Unmarshal(msg.Value, &b); err != nil {
		h.logger.ErrorContext(ctx, "invalid booking event payload", "err", err, "event_id", meta.EventID, "topic", msg.Topic)
		return nil
	}
	if b.Reference == "" || b.StudentEmail == "" {
		h.logger.ErrorContext(ctx, "booking event missing required fields", "event_id", meta.EventID)
		return nil
	}

	out, ok := h.compose(meta.EventType, b)
	if !ok {
		h.logger.WarnContext(ctx, "unhandled event type", "event_type", meta.EventType, "event_id", meta.EventID)
		return nil
	}

	record := storage.Notification{
		EventID:          meta.EventID,
		EventType:        meta.EventType,
		BookingReference: b.Reference,
		Recipient:        out.To,
		Subject:          out.Subject,
		Status:           storage.StatusSent,
	}
	sendErr := h.sender.Send(ctx, out)
	if sendErr != nil {
		record.Status = storage.StatusFailed
		record.Error = sendErr.Error()
		h.logger.ErrorContext(ctx, "email send failed", "err", sendErr, "booking_reference", b.Reference)
	}
	if err := h.log.Insert(ctx, record); err != nil {
		return fmt.Errorf("record notification: %w", err)
	}
	if sendErr != nil {
		return fmt.Errorf("send email: %w", sendErr)
	}

	h.logger.InfoContext(ctx, "notification sent", "event_type", meta.EventType, "booking_reference", b.Reference)
	return nil
}

func (h *Handler) compose(eventType string, b events.Booking) (email.Message, bool) {
	session := b.SessionTypeName
	if session == "" {
		session = "session"
	}
	name := strings.TrimSpace(b.StudentName)
	if name == "" {
		name = "there"
	}

	var subject string
	var body strings.Builder
	fmt.Fprintf(&body, "Hi %s,\n\n", name)
	switch eventType {
	case events.BookingConfirmed:
		subject = fmt.Sprintf("%s: booking %s confirmed", h.studioName, b.Reference)
		fmt.Fprintf(&body, "Your %s on %s from %s to %s is confirmed.\n", session, b.BookingDate, b.StartTime, b.EndTime)
		fmt.Fprintf(&body, "Booking reference: %s\n\n", b.Reference)
		body.WriteString("Need to cancel? Use your booking reference on the studio page.\n")
	case events.BookingCancelled:
		subject = fmt.Sprintf("%s: booking %s cancelled", h.studioName, b.Reference)
		fmt.Fprintf(&body, "Your %s on %s at %s has been cancelled.\n", session, b.BookingDate, b.StartTime)
		if b.CancellationReason != "" {
			fmt.Fprintf(&body, "Reason: %s\n", b.CancellationReason)
		}
		fmt.Fprintf(&body, "Booking reference: %s\n", b.Reference)
	default:
		return email.Message{}, false
	}
	fmt.Fprintf(&body, "\nSee you on the mat,\n%s\n", h.studioName)

	return email.Message{To: b.StudentEmail, Subject: subject, Body: body.String()}, true
}
