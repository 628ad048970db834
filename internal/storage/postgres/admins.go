package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/jerseyhouse/storefront/internal/domain/admins"
)

// AdminRepository persists back-office accounts.
type AdminRepository struct {
	db *sql.DB
}

// NewAdminRepository returns a repository backed by a pooled DB connection.
func NewAdminRepository(db *sql.DB) *AdminRepository {
	return &AdminRepository{db: db}
}

const adminColumns = `id, email, name, password_hash, created_at, updated_at`

func (r *AdminRepository) FindByID(ctx context.Context, id string) (admins.Admin, error) {
	return r.findOne(ctx, `SELECT `+adminColumns+` FROM admins WHERE id = $1`, id)
}

func (r *AdminRepository) FindByEmail(ctx context.Context, email string) (admins.Admin, error) {
	return r.findOne(ctx, `SELECT `+adminColumns+` FROM admins WHERE email = $1`, email)
}

func (r *AdminRepository) findOne(ctx context.Context, query string, arg any) (admins.Admin, error) {
	var a admins.Admin
	err := r.db.QueryRowContext(ctx, query, arg).Scan(
		&a.ID,
		&a.Email,
		&a.Name,
		&a.PasswordHash,
		&a.CreatedAt,
		&a.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) || isInvalidText(err) {
			return admins.Admin{}, admins.ErrNotFound
		}
		return admins.Admin{}, fmt.Errorf("find admin: %w", err)
	}
	return a, nil
}

func (r *AdminRepository) Save(ctx context.Context, a admins.Admin) (admins.Admin, error) {
	now := time.Now().UTC()
	if a.ID == "" {
		const insert = `
            INSERT INTO admins (email, name, password_hash, created_at, updated_at)
            VALUES ($1,$2,$3,$4,$4)
            RETURNING id
        `
		if err := r.db.QueryRowContext(ctx, insert, a.Email, a.Name, a.PasswordHash, now).Scan(&a.ID); err != nil {
			if isUniqueViolation(err, "admins_email_key") {
				return admins.Admin{}, admins.ErrEmailExists
			}
			return admins.Admin{}, fmt.Errorf("insert admin: %w", err)
		}
		a.CreatedAt = now
		a.UpdatedAt = now
		return a, nil
	}

	const update = `
        UPDATE admins
           SET email = $2,
               name = $3,
               password_hash = $4,
               updated_at = $5
         WHERE id = $1
        RETURNING created_at
    `
	if err := r.db.QueryRowContext(ctx, update, a.ID, a.Email, a.Name, a.PasswordHash, now).Scan(&a.CreatedAt); err != nil {
		if errors.Is(err, sql.ErrNoRows) || isInvalidText(err) {
			return admins.Admin{}, admins.ErrNotFound
		}
		if isUniqueViolation(err, "admins_email_key") {
			return admins.Admin{}, admins.ErrEmailExists
		}
		return admins.Admin{}, fmt.Errorf("update admin: %w", err)
	}
	a.UpdatedAt = now
	return a, nil
}
