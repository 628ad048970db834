package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/jerseyhouse/storefront/internal/domain/customers"
)

// CustomerRepository persists customers using a *sql.DB handle.
type CustomerRepository struct {
	db *sql.DB
}

// NewCustomerRepository returns a repository backed by a pooled DB connection.
func NewCustomerRepository(db *sql.DB) *CustomerRepository {
	return &CustomerRepository{db: db}
}

const customerColumns = `id, first_name, last_name, email, phone, phone_verified, created_at, updated_at`

func scanCustomer(row interface{ Scan(...any) error }) (customers.Customer, error) {
	var c customers.Customer
	err := row.Scan(
		&c.ID,
		&c.FirstName,
		&c.LastName,
		&c.Email,
		&c.Phone,
		&c.PhoneVerified,
		&c.CreatedAt,
		&c.UpdatedAt,
	)
	return c, err
}

// FindByID fetches a customer by primary key.
func (r *CustomerRepository) FindByID(ctx context.Context, id string) (customers.Customer, error) {
	return r.findOne(ctx, `SELECT `+customerColumns+` FROM customers WHERE id = $1`, id)
}

// FindByPhone fetches a customer by normalized phone.
func (r *CustomerRepository) FindByPhone(ctx context.Context, phone string) (customers.Customer, error) {
	return r.findOne(ctx, `SELECT `+customerColumns+` FROM customers WHERE phone = $1`, phone)
}

func (r *CustomerRepository) findOne(ctx context.Context, query string, arg any) (customers.Customer, error) {
	c, err := scanCustomer(r.db.QueryRowContext(ctx, query, arg))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) || isInvalidText(err) {
			return customers.Customer{}, customers.ErrNotFound
		}
		return customers.Customer{}, fmt.Errorf("find customer: %w", err)
	}
	return c, nil
}

// Save inserts or updates a customer record.
func (r *CustomerRepository) Save(ctx context.Context, customer customers.Customer) (customers.Customer, error) {
	now := time.Now().UTC()

	if customer.ID == "" {
		const insert = `
            INSERT INTO customers (first_name, last_name, email, phone, phone_verified, created_at, updated_at)
            VALUES ($1,$2,$3,$4,$5,$6,$7)
            RETURNING id
        `
		if err := r.db.QueryRowContext(ctx, insert,
			customer.FirstName,
			customer.LastName,
			customer.Email,
			customer.Phone,
			customer.PhoneVerified,
			now,
			now,
		).Scan(&customer.ID); err != nil {
			if isUniqueViolation(err, "customers_phone_key") {
				return customers.Customer{}, customers.ErrPhoneTaken
			}
			return customers.Customer{}, fmt.Errorf("insert customer: %w", err)
		}
		customer.CreatedAt = now
		customer.UpdatedAt = now
		return customer, nil
	}

	const update = `
        UPDATE customers
           SET first_name = $2,
               last_name = $3,
               email = $4,
               phone = $5,
               phone_verified = $6,
               updated_at = $7
         WHERE id = $1
        RETURNING created_at
    `

	var created time.Time
	err := r.db.QueryRowContext(ctx, update,
		customer.ID,
		customer.FirstName,
		customer.LastName,
		customer.Email,
		customer.Phone,
		customer.PhoneVerified,
		now,
	).Scan(&created)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) || isInvalidText(err) {
			return customers.Customer{}, customers.ErrNotFound
		}
		if isUniqueViolation(err, "customers_phone_key") {
			return customers.Customer{}, customers.ErrPhoneTaken
		}
		return customers.Customer{}, fmt.Errorf("update customer: %w", err)
	}

	customer.CreatedAt = created
	customer.UpdatedAt = now
	return customer, nil
}

// List returns customers ordered by creation date.
func (r *CustomerRepository) List(ctx context.Context, offset, limit int) ([]customers.Customer, error) {
	query := `SELECT ` + customerColumns + `
          FROM customers
         ORDER BY created_at
         OFFSET $1
         LIMIT $2`

	rows, err := r.db.QueryContext(ctx, query, offset, limitArg(limit))
	if err != nil {
		return nil, fmt.Errorf("list customers: %w", err)
	}
	defer rows.Close()

	var result []customers.Customer
	for rows.Next() {
		c, err := scanCustomer(rows)
		if err != nil {
			return nil, fmt.Errorf("scan customer: %w", err)
		}
		result = append(result, c)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("rows error: %w", err)
	}

	return result, nil
}
