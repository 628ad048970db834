package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/jerseyhouse/storefront/internal/domain/delivery"
)

// DeliveryRepository persists delivery statuses and their history.
type DeliveryRepository struct {
	db *sql.DB
}

// NewDeliveryRepository returns a repository backed by a pooled DB connection.
func NewDeliveryRepository(db *sql.DB) *DeliveryRepository {
	return &DeliveryRepository{db: db}
}

func (r *DeliveryRepository) Find(ctx context.Context, orderID string) (delivery.Status, error) {
	const query = `
        SELECT order_id, stage, courier, tracking_number, updated_at
          FROM delivery_statuses
         WHERE order_id = $1
    `
	var s delivery.Status
	err := r.db.QueryRowContext(ctx, query, orderID).Scan(
		&s.OrderID,
		&s.Stage,
		&s.Courier,
		&s.TrackingNumber,
		&s.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) || isInvalidText(err) {
			return delivery.Status{}, delivery.ErrNotFound
		}
		return delivery.Status{}, fmt.Errorf("find delivery status: %w", err)
	}

	history, err := r.fetchHistory(ctx, s.OrderID)
	if err != nil {
		return delivery.Status{}, err
	}
	s.History = history
	return s, nil
}

func (r *DeliveryRepository) fetchHistory(ctx context.Context, orderID string) ([]delivery.Event, error) {
	const query = `
        SELECT stage, note, actor, at
          FROM delivery_events
         WHERE order_id = $1
         ORDER BY seq
    `
	rows, err := r.db.QueryContext(ctx, query, orderID)
	if err != nil {
		return nil, fmt.Errorf("list delivery events: %w", err)
	}
	defer rows.Close()

	var events []delivery.Event
	for rows.Next() {
		var e delivery.Event
		if err := rows.Scan(&e.Stage, &e.Note, &e.Actor, &e.At); err != nil {
			return nil, fmt.Errorf("scan delivery event: %w", err)
		}
		events = append(events, e)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("delivery events rows err: %w", err)
	}
	return events, nil
}

// Save writes the status row conditionally on the stage the caller read and
// appends history events beyond those already stored, in one transaction.
// The row lock taken by the UPDATE serializes concurrent saves, so the event
// count read afterwards is stable.
func (r *DeliveryRepository) Save(ctx context.Context, s delivery.Status, expected delivery.Stage) (delivery.Status, error) {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return delivery.Status{}, fmt.Errorf("begin tx: %w", err)
	}
	defer tx.Rollback()

	var res sql.Result
	if expected == "" {
		const insert = `
            INSERT INTO delivery_statuses (order_id, stage, courier, tracking_number, updated_at)
            VALUES ($1,$2,$3,$4,$5)
            ON CONFLICT (order_id) DO NOTHING
        `
		res, err = tx.ExecContext(ctx, insert, s.OrderID, s.Stage, s.Courier, s.TrackingNumber, s.UpdatedAt)
	} else {
		const update = `
            UPDATE delivery_statuses
               SET stage = $2,
                   courier = $3,
                   tracking_number = $4,
                   updated_at = $5
             WHERE order_id = $1 AND stage = $6
        `
		res, err = tx.ExecContext(ctx, update, s.OrderID, s.Stage, s.Courier, s.TrackingNumber, s.UpdatedAt, expected)
	}
	if err != nil {
		if isInvalidText(err) {
			return delivery.Status{}, delivery.ErrNotFound
		}
		return delivery.Status{}, fmt.Errorf("save delivery status: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return delivery.Status{}, fmt.Errorf("save delivery status: %w", err)
	}
	if n == 0 {
		return delivery.Status{}, delivery.ErrStageChanged
	}

	var stored int
	if err := tx.QueryRowContext(ctx, `SELECT count(*) FROM delivery_events WHERE order_id = $1`, s.OrderID).Scan(&stored); err != nil {
		return delivery.Status{}, fmt.Errorf("count delivery events: %w", err)
	}

	const insertEvent = `
        INSERT INTO delivery_events (order_id, seq, stage, note, actor, at)
        VALUES ($1,$2,$3,$4,$5,$6)
    `
	for i := stored; i < len(s.History); i++ {
		e := s.History[i]
		if _, err := tx.ExecContext(ctx, insertEvent, s.OrderID, i, e.Stage, e.Note, e.Actor, e.At); err != nil {
			return delivery.Status{}, fmt.Errorf("insert delivery event: %w", err)
		}
	}

	if err := tx.Commit(); err != nil {
		return delivery.Status{}, fmt.Errorf("commit delivery save: %w", err)
	}
	return s, nil
}

// ListByStage returns statuses at stage, most recently updated first. An
// empty stage lists everything.
func (r *DeliveryRepository) ListByStage(ctx context.Context, stage delivery.Stage, offset, limit int) ([]delivery.Status, error) {
	const query = `
        SELECT order_id, stage, courier, tracking_number, updated_at
          FROM delivery_statuses
         WHERE ($1 = '' OR stage = $1)
         ORDER BY updated_at DESC
         OFFSET $2
         LIMIT $3
    `
	rows, err := r.db.QueryContext(ctx, query, string(stage), offset, limitArg(limit))
	if err != nil {
		return nil, fmt.Errorf("list delivery statuses: %w", err)
	}

	var result []delivery.Status
	for rows.Next() {
		var s delivery.Status
		if err := rows.Scan(&s.OrderID, &s.Stage, &s.Courier, &s.TrackingNumber, &s.UpdatedAt); err != nil {
			rows.Close()
			return nil, fmt.Errorf("scan delivery status: %w", err)
		}
		result = append(result, s)
	}
	err = rows.Err()
	rows.Close()
	if err != nil {
		return nil, fmt.Errorf("rows error: %w", err)
	}

	for i := range result {
		history, err := r.fetchHistory(ctx, result[i].OrderID)
		if err != nil {
			return nil, err
		}
		result[i].History = history
	}
	return result, nil
}
