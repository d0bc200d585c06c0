package storage

import (
	"context"

	"github.com/jmoiron/sqlx"
	"github.com/md-rashed-zaman/dojobook/services/booking-service/internal/model"
)

const sessionTypeColumns = `id, name, COALESCE(description, '') AS description, duration_minutes,
	buffer_minutes, max_participants, is_active, created_at`

type CatalogRepository struct {
	db *sqlx.DB
}

func NewCatalogRepository(db *sqlx.DB) *CatalogRepository {
	return &CatalogRepository{db: db}
}

func (r *CatalogRepository) ListSessionTypes(ctx context.Context) ([]model.SessionType, error) {
	out := []model.SessionType{}
	err := r.db.SelectContext(ctx, &out, `SELECT `+sessionTypeColumns+` FROM session_types WHERE is_active ORDER BY name`)
	return out, err
}

// GetSessionType returns sql.ErrNoRows for unknown and inactive session types.
func (r *CatalogRepository) GetSessionType(ctx context.Context, id int64) (model.SessionType, error) {
	var st model.SessionType
	err := r.db.GetContext(ctx, &st, `SELECT `+sessionTypeColumns+` FROM session_types WHERE id = $1 AND is_active`, id)
	return st, err
}

func (r *CatalogRepository) ListLocations(ctx context.Context) ([]model.Location, error) {
	out := []model.Location{}
	err := r.db.SelectContext(ctx, &out, `
		SELECT id, name, COALESCE(description, '') AS description, capacity, equipment, is_active
		FROM locations
		WHERE is_active
		ORDER BY name`)
	return out, err
}
