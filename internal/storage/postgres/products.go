package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/jerseyhouse/storefront/internal/domain/products"
)

// ProductRepository persists the catalog.
type ProductRepository struct {
	db *sql.DB
}

// NewProductRepository returns a repository backed by a pooled DB connection.
func NewProductRepository(db *sql.DB) *ProductRepository {
	return &ProductRepository{db: db}
}

const productColumns = `id, slug, name, team, season, kind, description, price_cents,
               customization_fee_cents, sizes, kids_sizes, image_urls, active,
               created_at, updated_at`

func scanProduct(row interface{ Scan(...any) error }) (products.Product, error) {
	var p products.Product
	err := row.Scan(
		&p.ID,
		&p.Slug,
		&p.Name,
		&p.Team,
		&p.Season,
		&p.Kind,
		&p.Description,
		&p.PriceCents,
		&p.CustomizationFeeCents,
		textArray(&p.Sizes),
		textArray(&p.KidsSizes),
		textArray(&p.ImageURLs),
		&p.Active,
		&p.CreatedAt,
		&p.UpdatedAt,
	)
	return p, err
}

func (r *ProductRepository) FindByID(ctx context.Context, id string) (products.Product, error) {
	return r.findOne(ctx, `SELECT `+productColumns+` FROM products WHERE id = $1`, id)
}

func (r *ProductRepository) FindBySlug(ctx context.Context, slug string) (products.Product, error) {
	return r.findOne(ctx, `SELECT `+productColumns+` FROM products WHERE slug = $1`, slug)
}

func (r *ProductRepository) findOne(ctx context.Context, query string, arg any) (products.Product, error) {
	p, err := scanProduct(r.db.QueryRowContext(ctx, query, arg))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) || isInvalidText(err) {
			return products.Product{}, products.ErrNotFound
		}
		return products.Product{}, fmt.Errorf("find product: %w", err)
	}
	return p, nil
}

// Save inserts or updates a product.
func (r *ProductRepository) Save(ctx context.Context, p products.Product) (products.Product, error) {
	now := time.Now().UTC()
	args := []any{
		p.Slug,
		p.Name,
		p.Team,
		p.Season,
		p.Kind,
		p.Description,
		p.PriceCents,
		p.CustomizationFeeCents,
		nonNil(p.Sizes),
		nonNil(p.KidsSizes),
		nonNil(p.ImageURLs),
		p.Active,
		now,
	}

	if p.ID == "" {
		const insert = `
            INSERT INTO products (slug, name, team, season, kind, description, price_cents,
                                  customization_fee_cents, sizes, kids_sizes, image_urls, active,
                                  updated_at, created_at)
            VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11,$12,$13,$13)
            RETURNING id
        `
		if err := r.db.QueryRowContext(ctx, insert, args...).Scan(&p.ID); err != nil {
			if isUniqueViolation(err, "products_slug_key") {
				return products.Product{}, products.ErrSlugTaken
			}
			return products.Product{}, fmt.Errorf("insert product: %w", err)
		}
		p.CreatedAt = now
		p.UpdatedAt = now
		return p, nil
	}

	const update = `
        UPDATE products
           SET slug = $1,
               name = $2,
               team = $3,
               season = $4,
               kind = $5,
               description = $6,
               price_cents = $7,
               customization_fee_cents = $8,
               sizes = $9,
               kids_sizes = $10,
               image_urls = $11,
               active = $12,
               updated_at = $13
         WHERE id = $14
        RETURNING created_at
    `
	var created time.Time
	if err := r.db.QueryRowContext(ctx, update, append(args, p.ID)...).Scan(&created); err != nil {
		if errors.Is(err, sql.ErrNoRows) || isInvalidText(err) {
			return products.Product{}, products.ErrNotFound
		}
		if isUniqueViolation(err, "products_slug_key") {
			return products.Product{}, products.ErrSlugTaken
		}
		return products.Product{}, fmt.Errorf("update product: %w", err)
	}
	p.CreatedAt = created
	p.UpdatedAt = now
	return p, nil
}

// List returns matching products, newest first.
func (r *ProductRepository) List(ctx context.Context, filter products.Filter, offset, limit int) ([]products.Product, error) {
	var (
		where []string
		args  []any
	)
	add := func(cond string, v any) {
		args = append(args, v)
		where = append(where, fmt.Sprintf(cond, len(args)))
	}
	if filter.ActiveOnly {
		where = append(where, "active")
	}
	if filter.Team != "" {
		add("lower(team) = lower($%d)", filter.Team)
	}
	if filter.Kind != "" {
		add("kind = $%d", string(filter.Kind))
	}
	if q := strings.TrimSpace(filter.Query); q != "" {
		add("(name ILIKE $%[1]d OR team ILIKE $%[1]d)", "%"+q+"%")
	}

	query := `SELECT ` + productColumns + ` FROM products`
	if len(where) > 0 {
		query += ` WHERE ` + strings.Join(where, " AND ")
	}
	args = append(args, offset, limitArg(limit))
	query += fmt.Sprintf(` ORDER BY created_at DESC OFFSET $%d LIMIT $%d`, len(args)-1, len(args))

	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("list products: %w", err)
	}
	defer rows.Close()

	var result []products.Product
	for rows.Next() {
		p, err := scanProduct(rows)
		if err != nil {
			return nil, fmt.Errorf("scan product: %w", err)
		}
		result = append(result, p)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("rows error: %w", err)
	}
	return result, nil
}

func nonNil(s []string) []string {
	if s == nil {
		return []string{}
	}
	return s
}
