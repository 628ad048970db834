package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/jerseyhouse/storefront/internal/domain/orders"
)

// OrderRepository persists orders and their items.
type OrderRepository struct {
	db *sql.DB
}

// NewOrderRepository returns a repository backed by a pooled DB connection.
func NewOrderRepository(db *sql.DB) *OrderRepository {
	return &OrderRepository{db: db}
}

const orderColumns = `id, code, customer_id, subtotal_cents, discount_code, discount_cents,
               shipping_cents, total_cents, payment_method, payment_status, payment_ref, status,
               ship_full_name, ship_phone, ship_line1, ship_line2, ship_city, ship_district,
               ship_postal_code, notes, cancel_reason, created_at, updated_at`

func scanOrder(row interface{ Scan(...any) error }) (orders.Order, error) {
	var o orders.Order
	a := &o.ShippingAddress
	err := row.Scan(
		&o.ID,
		&o.Code,
		&o.CustomerID,
		&o.SubtotalCents,
		&o.DiscountCode,
		&o.DiscountCents,
		&o.ShippingCents,
		&o.TotalCents,
		&o.PaymentMethod,
		&o.PaymentStatus,
		&o.PaymentRef,
		&o.Status,
		&a.FullName,
		&a.Phone,
		&a.Line1,
		&a.Line2,
		&a.City,
		&a.District,
		&a.PostalCode,
		&o.Notes,
		&o.CancelReason,
		&o.CreatedAt,
		&o.UpdatedAt,
	)
	return o, err
}

func (r *OrderRepository) FindByID(ctx context.Context, id string) (orders.Order, error) {
	return r.findOne(ctx, `SELECT `+orderColumns+` FROM orders WHERE id = $1`, id)
}

func (r *OrderRepository) FindByCode(ctx context.Context, code string) (orders.Order, error) {
	return r.findOne(ctx, `SELECT `+orderColumns+` FROM orders WHERE code = $1`, code)
}

func (r *OrderRepository) findOne(ctx context.Context, query string, arg any) (orders.Order, error) {
	o, err := scanOrder(r.db.QueryRowContext(ctx, query, arg))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) || isInvalidText(err) {
			return orders.Order{}, orders.ErrNotFound
		}
		return orders.Order{}, fmt.Errorf("find order: %w", err)
	}
	items, err := r.fetchItems(ctx, o.ID)
	if err != nil {
		return orders.Order{}, err
	}
	o.Items = items
	return o, nil
}

func (r *OrderRepository) fetchItems(ctx context.Context, orderID string) ([]orders.Item, error) {
	const query = `
        SELECT product_id, product_name, size, quantity, unit_price_cents, custom_name, custom_number
          FROM order_items
         WHERE order_id = $1
         ORDER BY sort_order
    `
	rows, err := r.db.QueryContext(ctx, query, orderID)
	if err != nil {
		return nil, fmt.Errorf("list order items: %w", err)
	}
	defer rows.Close()

	var items []orders.Item
	for rows.Next() {
		var it orders.Item
		if err := rows.Scan(
			&it.ProductID,
			&it.ProductName,
			&it.Size,
			&it.Quantity,
			&it.UnitPriceCents,
			&it.CustomName,
			&it.CustomNumber,
		); err != nil {
			return nil, fmt.Errorf("scan order item: %w", err)
		}
		items = append(items, it)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("order items rows err: %w", err)
	}
	return items, nil
}

// Save inserts an order with its items, or updates the order row. Items are
// immutable once placed.
func (r *OrderRepository) Save(ctx context.Context, o orders.Order) (orders.Order, error) {
	now := time.Now().UTC()
	a := o.ShippingAddress

	if o.ID != "" {
		const update = `
            UPDATE orders
               SET payment_status = $2,
                   payment_ref = $3,
                   status = $4,
                   notes = $5,
                   cancel_reason = $6,
                   updated_at = $7
             WHERE id = $1
            RETURNING created_at
        `
		if err := r.db.QueryRowContext(ctx, update,
			o.ID,
			o.PaymentStatus,
			o.PaymentRef,
			o.Status,
			o.Notes,
			o.CancelReason,
			now,
		).Scan(&o.CreatedAt); err != nil {
			if errors.Is(err, sql.ErrNoRows) || isInvalidText(err) {
				return orders.Order{}, orders.ErrNotFound
			}
			return orders.Order{}, fmt.Errorf("update order: %w", err)
		}
		o.UpdatedAt = now
		return o, nil
	}

	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return orders.Order{}, fmt.Errorf("begin tx: %w", err)
	}
	defer tx.Rollback()

	const insert = `
        INSERT INTO orders (code, customer_id, subtotal_cents, discount_code, discount_cents,
                            shipping_cents, total_cents, payment_method, payment_status, payment_ref,
                            status, ship_full_name, ship_phone, ship_line1, ship_line2, ship_city,
                            ship_district, ship_postal_code, notes, cancel_reason, created_at, updated_at)
        VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11,$12,$13,$14,$15,$16,$17,$18,$19,$20,$21,$21)
        RETURNING id
    `
	if err := tx.QueryRowContext(ctx, insert,
		o.Code,
		o.CustomerID,
		o.SubtotalCents,
		o.DiscountCode,
		o.DiscountCents,
		o.ShippingCents,
		o.TotalCents,
		o.PaymentMethod,
		o.PaymentStatus,
		o.PaymentRef,
		o.Status,
		a.FullName,
		a.Phone,
		a.Line1,
		a.Line2,
		a.City,
		a.District,
		a.PostalCode,
		o.Notes,
		o.CancelReason,
		now,
	).Scan(&o.ID); err != nil {
		return orders.Order{}, fmt.Errorf("insert order: %w", err)
	}

	const insertItem = `
        INSERT INTO order_items (order_id, sort_order, product_id, product_name, size, quantity,
                                 unit_price_cents, custom_name, custom_number)
        VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9)
    `
	for idx, it := range o.Items {
		if _, err := tx.ExecContext(ctx, insertItem,
			o.ID,
			idx,
			it.ProductID,
			it.ProductName,
			it.Size,
			it.Quantity,
			it.UnitPriceCents,
			it.CustomName,
			it.CustomNumber,
		); err != nil {
			return orders.Order{}, fmt.Errorf("insert order item: %w", err)
		}
	}

	if err := tx.Commit(); err != nil {
		return orders.Order{}, fmt.Errorf("commit order save: %w", err)
	}
	o.CreatedAt = now
	o.UpdatedAt = now
	return o, nil
}

// List returns matching orders, newest first.
func (r *OrderRepository) List(ctx context.Context, f orders.Filter, offset, limit int) ([]orders.Order, error) {
	query := `SELECT ` + orderColumns + `
          FROM orders
         WHERE ($1 = '' OR status = $1)
           AND ($2 = '' OR payment_status = $2)
           AND ($3 = '' OR customer_id::text = $3)
         ORDER BY created_at DESC
         OFFSET $4
         LIMIT $5`

	rows, err := r.db.QueryContext(ctx, query,
		string(f.Status),
		string(f.PaymentStatus),
		f.CustomerID,
		offset,
		limitArg(limit),
	)
	if err != nil {
		return nil, fmt.Errorf("list orders: %w", err)
	}

	var result []orders.Order
	for rows.Next() {
		o, err := scanOrder(rows)
		if err != nil {
			rows.Close()
			return nil, fmt.Errorf("scan order: %w", err)
		}
		result = append(result, o)
	}
	err = rows.Err()
	rows.Close()
	if err != nil {
		return nil, fmt.Errorf("rows error: %w", err)
	}

	for i := range result {
		items, err := r.fetchItems(ctx, result[i].ID)
		if err != nil {
			return nil, err
		}
		result[i].Items = items
	}
	return result, nil
}
