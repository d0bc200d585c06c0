package storage

import (
	"context"

	"github.com/jmoiron/sqlx"
	"github.com/md-rashed-zaman/dojobook/services/booking-service/internal/model"
)

type AdminRepository struct {
	db *sqlx.DB
}

func NewAdminRepository(db *sqlx.DB) *AdminRepository {
	return &AdminRepository{db: db}
}

// GetActiveByUsername returns sql.ErrNoRows for unknown or disabled users.
func (r *AdminRepository) GetActiveByUsername(ctx context.Context, username string) (model.AdminUser, error) {
	var u model.AdminUser
	err := r.db.GetContext(ctx, &u, `
		SELECT id, username, COALESCE(email, '') AS email, password_hash, is_active, last_login
		FROM admin_users
		WHERE username = $1 AND is_active`, username)
	return u, err
}

// Ensure creates the user if the username is free. An existing user keeps its password.
func (r *AdminRepository) Ensure(ctx context.Context, username, email, passwordHash string) (bool, error) {
	res, err := r.db.ExecContext(ctx, `
		INSERT INTO admin_users (username, email, password_hash)
		VALUES ($1, NULLIF($2, ''), $3)
		ON CONFLICT (username) DO NOTHING`, username, email, passwordHash)
	if err != nil {
		return false, err
	}
	n, err := res.RowsAffected()
	return n == 1, err
}

func (r *AdminRepository) TouchLogin(ctx context.Context, id int64) error {
	_, err := r.db.ExecContext(ctx, `UPDATE admin_users SET last_login = now() WHERE id = $1`, id)
	return err
}
