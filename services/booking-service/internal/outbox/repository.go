package outbox

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
	otelx "github.com/md-rashed-zaman/dojobook/libs/otel"
)

type Repository struct{}

func NewRepository() *Repository {
	return &Repository{}
}

// Insert writes evt inside tx so it commits or rolls back with the state change
// that produced it.
func (r *Repository) Insert(ctx context.Context, tx sqlx.ExtContext, evt Event) error {
	tc := otelx.CaptureTraceContext(ctx)
	_, err := tx.ExecContext(ctx, `
		INSERT INTO outbox_events (event_id, aggregate_type, aggregate_id, event_type, payload, traceparent, tracestate)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
	`, uuid.NewString(), evt.AggregateType, evt.AggregateID, evt.EventType, string(evt.Payload), tc.Traceparent, tc.Tracestate)
	return err
}

type Record struct {
	ID            int64     `db:"id"`
	EventID       string    `db:"event_id"`
	AggregateType string    `db:"aggregate_type"`
	AggregateID   string    `db:"aggregate_id"`
	EventType     string    `db:"event_type"`
	Payload       []byte    `db:"payload"`
	Traceparent   string    `db:"traceparent"`
	Tracestate    string    `db:"tracestate"`
	CreatedAt     time.Time `db:"created_at"`
}

func (r *Repository) FetchUnpublished(ctx context.Context, tx sqlx.QueryerContext, limit int) ([]Record, error) {
	var records []Record
	err := sqlx.SelectContext(ctx, tx, &records, `
		SELECT id, event_id, aggregate_type, aggregate_id, event_type, payload::text AS payload,
			traceparent, tracestate, created_at
		FROM outbox_events
		WHERE published_at IS NULL
		ORDER BY id
		LIMIT $1
		FOR UPDATE SKIP LOCKED
	`, limit)
	return records, err
}

func (r *Repository) MarkPublished(ctx context.Context, tx sqlx.ExtContext, ids []int64) error {
	if len(ids) == 0 {
		return nil
	}
	query, args, err := sqlx.In(`UPDATE outbox_events SET published_at = now() WHERE id IN (?)`, ids)
	if err != nil {
		return err
	}
	_, err = tx.ExecContext(ctx, tx.Rebind(query), args...)
	return err
}
