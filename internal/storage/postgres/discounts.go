package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/jerseyhouse/storefront/internal/domain/discounts"
)

// DiscountRepository persists discount codes.
type DiscountRepository struct {
	db *sql.DB
}

// NewDiscountRepository returns a repository backed by a pooled DB connection.
func NewDiscountRepository(db *sql.DB) *DiscountRepository {
	return &DiscountRepository{db: db}
}

const discountColumns = `code, kind, value, min_order_cents, max_uses, used_count,
               starts_at, expires_at, active, created_at`

func scanDiscount(row interface{ Scan(...any) error }) (discounts.Code, error) {
	var (
		c       discounts.Code
		starts  sql.NullTime
		expires sql.NullTime
	)
	err := row.Scan(
		&c.Code,
		&c.Kind,
		&c.Value,
		&c.MinOrderCents,
		&c.MaxUses,
		&c.UsedCount,
		&starts,
		&expires,
		&c.Active,
		&c.CreatedAt,
	)
	if starts.Valid {
		c.StartsAt = &starts.Time
	}
	if expires.Valid {
		c.ExpiresAt = &expires.Time
	}
	return c, err
}

func (r *DiscountRepository) Find(ctx context.Context, code string) (discounts.Code, error) {
	c, err := scanDiscount(r.db.QueryRowContext(ctx, `SELECT `+discountColumns+` FROM discount_codes WHERE code = $1`, code))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return discounts.Code{}, discounts.ErrNotFound
		}
		return discounts.Code{}, fmt.Errorf("find discount code: %w", err)
	}
	return c, nil
}

// Save upserts a code. used_count is owned by IncrementUse and never
// overwritten here.
func (r *DiscountRepository) Save(ctx context.Context, c discounts.Code) (discounts.Code, error) {
	if c.CreatedAt.IsZero() {
		c.CreatedAt = time.Now().UTC()
	}
	const upsert = `
        INSERT INTO discount_codes (code, kind, value, min_order_cents, max_uses, used_count,
                                    starts_at, expires_at, active, created_at)
        VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10)
        ON CONFLICT (code) DO UPDATE
           SET kind = EXCLUDED.kind,
               value = EXCLUDED.value,
               min_order_cents = EXCLUDED.min_order_cents,
               max_uses = EXCLUDED.max_uses,
               starts_at = EXCLUDED.starts_at,
               expires_at = EXCLUDED.expires_at,
               active = EXCLUDED.active
        RETURNING ` + discountColumns

	saved, err := scanDiscount(r.db.QueryRowContext(ctx, upsert,
		c.Code,
		c.Kind,
		c.Value,
		c.MinOrderCents,
		c.MaxUses,
		c.UsedCount,
		c.StartsAt,
		c.ExpiresAt,
		c.Active,
		c.CreatedAt,
	))
	if err != nil {
		return discounts.Code{}, fmt.Errorf("save discount code: %w", err)
	}
	return saved, nil
}

// IncrementUse bumps used_count in a single guarded UPDATE.
func (r *DiscountRepository) IncrementUse(ctx context.Context, code string) (discounts.Code, error) {
	const update = `
        UPDATE discount_codes
           SET used_count = used_count + 1
         WHERE code = $1
           AND (max_uses = 0 OR used_count < max_uses)
        RETURNING ` + discountColumns

	c, err := scanDiscount(r.db.QueryRowContext(ctx, update, code))
	if err == nil {
		return c, nil
	}
	if !errors.Is(err, sql.ErrNoRows) {
		return discounts.Code{}, fmt.Errorf("increment discount use: %w", err)
	}
	if _, findErr := r.Find(ctx, code); findErr != nil {
		return discounts.Code{}, findErr
	}
	return discounts.Code{}, discounts.ErrExhausted
}

func (r *DiscountRepository) List(ctx context.Context, offset, limit int) ([]discounts.Code, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT `+discountColumns+` FROM discount_codes ORDER BY code OFFSET $1 LIMIT $2`,
		offset, limitArg(limit))
	if err != nil {
		return nil, fmt.Errorf("list discount codes: %w", err)
	}
	defer rows.Close()

	var result []discounts.Code
	for rows.Next() {
		c, err := scanDiscount(rows)
		if err != nil {
			return nil, fmt.Errorf("scan discount code: %w", err)
		}
		result = append(result, c)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("rows error: %w", err)
	}
	return result, nil
}
