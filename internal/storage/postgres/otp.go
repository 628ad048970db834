package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/jerseyhouse/storefront/internal/domain/otp"
)

// OTPRepository keeps one challenge row per phone.
type OTPRepository struct {
	db *sql.DB
}

// NewOTPRepository returns a repository backed by a pooled DB connection.
func NewOTPRepository(db *sql.DB) *OTPRepository {
	return &OTPRepository{db: db}
}

func (r *OTPRepository) Find(ctx context.Context, phone string) (otp.Challenge, error) {
	const query = `
        SELECT phone, code_hash, expires_at, attempts, verified_at, created_at
          FROM otp_challenges
         WHERE phone = $1
    `
	var (
		c        otp.Challenge
		verified sql.NullTime
	)
	err := r.db.QueryRowContext(ctx, query, phone).Scan(
		&c.Phone,
		&c.CodeHash,
		&c.ExpiresAt,
		&c.Attempts,
		&verified,
		&c.CreatedAt,
	)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return otp.Challenge{}, otp.ErrNotFound
		}
		return otp.Challenge{}, fmt.Errorf("find otp challenge: %w", err)
	}
	if verified.Valid {
		c.VerifiedAt = &verified.Time
	}
	return c, nil
}

func (r *OTPRepository) Save(ctx context.Context, c otp.Challenge) error {
	const upsert = `
        INSERT INTO otp_challenges (phone, code_hash, expires_at, attempts, verified_at, created_at)
        VALUES ($1,$2,$3,$4,$5,$6)
        ON CONFLICT (phone) DO UPDATE
           SET code_hash = EXCLUDED.code_hash,
               expires_at = EXCLUDED.expires_at,
               attempts = EXCLUDED.attempts,
               verified_at = EXCLUDED.verified_at,
               created_at = EXCLUDED.created_at
    `
	if _, err := r.db.ExecContext(ctx, upsert, c.Phone, c.CodeHash, c.ExpiresAt, c.Attempts, c.VerifiedAt, c.CreatedAt); err != nil {
		return fmt.Errorf("save otp challenge: %w", err)
	}
	return nil
}

// RecordAttempt bumps attempts in one statement so concurrent guesses cannot
// read the same count.
func (r *OTPRepository) RecordAttempt(ctx context.Context, phone string, max int) (otp.Challenge, error) {
	const update = `
        UPDATE otp_challenges
           SET attempts = attempts + 1
         WHERE phone = $1 AND attempts < $2
     RETURNING phone, code_hash, expires_at, attempts, verified_at, created_at
    `
	var (
		c        otp.Challenge
		verified sql.NullTime
	)
	err := r.db.QueryRowContext(ctx, update, phone, max).Scan(
		&c.Phone,
		&c.CodeHash,
		&c.ExpiresAt,
		&c.Attempts,
		&verified,
		&c.CreatedAt,
	)
	if errors.Is(err, sql.ErrNoRows) {
		if _, ferr := r.Find(ctx, phone); ferr != nil {
			return otp.Challenge{}, ferr
		}
		return otp.Challenge{}, otp.ErrTooManyAttempts
	}
	if err != nil {
		return otp.Challenge{}, fmt.Errorf("record otp attempt: %w", err)
	}
	if verified.Valid {
		c.VerifiedAt = &verified.Time
	}
	return c, nil
}

func (r *OTPRepository) MarkVerified(ctx context.Context, phone, codeHash string, at time.Time) error {
	res, err := r.db.ExecContext(ctx,
		`UPDATE otp_challenges SET verified_at = $3 WHERE phone = $1 AND code_hash = $2`,
		phone, codeHash, at)
	if err != nil {
		return fmt.Errorf("mark otp verified: %w", err)
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return otp.ErrNotFound
	}
	return nil
}
