package storage

import (
	"context"

	"github.com/jmoiron/sqlx"
	"github.com/md-rashed-zaman/dojobook/services/booking-service/internal/model"
)

const coachColumns = `c.id, c.name, COALESCE(c.email, '') AS email, COALESCE(c.phone, '') AS phone,
	COALESCE(c.bio, '') AS bio, COALESCE(c.profile_image_url, '') AS profile_image_url,
	c.martial_arts_styles, c.languages, c.certifications, c.experience_years, c.hourly_rate,
	c.is_active, c.created_at, c.updated_at`

// CoachListing is a coach with the names of the locations it teaches at.
type CoachListing struct {
	model.Coach
	LocationNames string `db:"location_names" json:"location_names"`
}

type CoachRepository struct {
	db *sqlx.DB
}

func NewCoachRepository(db *sqlx.DB) *CoachRepository {
	return &CoachRepository{db: db}
}

func (r *CoachRepository) List(ctx context.Context, f CoachFilter) ([]CoachListing, error) {
	w := f.where()
	query := `
		SELECT ` + coachColumns + `,
			COALESCE((SELECT string_agg(DISTINCT l.name, ',')
				FROM coach_availability ca
				JOIN locations l ON l.id = ca.location_id
				WHERE ca.coach_id = c.id AND ca.is_active), '') AS location_names
		FROM coaches c` + w.sql() + `
		ORDER BY c.experience_years DESC, c.id`

	coaches := []CoachListing{}
	if err := r.db.SelectContext(ctx, &coaches, query, w.args...); err != nil {
		return nil, err
	}
	return coaches, nil
}

// GetActive returns sql.ErrNoRows for unknown and inactive coaches alike.
func (r *CoachRepository) GetActive(ctx context.Context, id int64) (model.Coach, error) {
	var c model.Coach
	err := r.db.GetContext(ctx, &c, `SELECT `+coachColumns+` FROM coaches c WHERE c.id = $1 AND c.is_active`, id)
	return c, err
}
