package storage

import (
	"context"

	"github.com/jmoiron/sqlx"
)

type Status string

const (
	StatusSent    Status = "sent"
	StatusFailed  Status = "failed"
	StatusSkipped Status = "skipped"
)

// Notification is one delivery attempt for a booking event.
type Notification struct {
	EventID          string `db:"event_id"`
	EventType        string `db:"event_type"`
	BookingReference string `db:"booking_reference"`
	Channel          string `db:"channel"`
	Recipient        string `db:"recipient"`
	Subject          string `db:"subject"`
	Status           Status `db:"status"`
	Error            string `db:"error"`
}

type Repository struct {
	db *sqlx.DB
}

func NewRepository(db *sqlx.DB) *Repository {
	return &Repository{db: db}
}

func (r *Repository) Insert(ctx context.Context, n Notification) error {
	if n.Channel == "" {
		n.Channel = "email"
	}
	_, err := r.db.NamedExecContext(ctx, `
		INSERT INTO notifications (event_id, event_type, booking_reference, channel, recipient, subject, status, error)
		VALUES (:event_id, :event_type, :booking_reference, :channel, :recipient, :subject, :status, :error)
	`, n)
	return err
}
