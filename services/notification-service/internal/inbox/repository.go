// Package inbox de-duplicates consumed events per consumer name.
package inbox

import (
	"context"
	"errors"

	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jmoiron/sqlx"
)

type Repository struct {
	db       *sqlx.DB
	consumer string
}

func NewRepository(db *sqlx.DB, consumer string) *Repository {
	return &Repository{db: db, consumer: consumer}
}

// Record claims eventID for this consumer. It reports false when the event was
// already claimed.
func (r *Repository) Record(ctx context.Context, eventID string, eventType string) (bool, error) {
	_, err := r.db.ExecContext(ctx, `
		INSERT INTO inbox_events (event_id, consumer, event_type)
		VALUES ($1, $2, $3)
	`, eventID, r.consumer, eventType)
	if err == nil {
		return true, nil
	}

	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) && pgErr.Code == "23505" {
		return false, nil
	}
	return false, err
}

// Release drops a claim so a redelivered event is handled again.
func (r *Repository) Release(ctx context.Context, eventID string) error {
	_, err := r.db.ExecContext(ctx, `
		DELETE FROM inbox_events WHERE event_id = $1 AND consumer = $2
	`, eventID, r.consumer)
	return err
}
