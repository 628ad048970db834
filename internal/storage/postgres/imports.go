package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/jerseyhouse/storefront/internal/domain/imports"
)

// ImportBatchRepository persists supplier import batches.
type ImportBatchRepository struct {
	db *sql.DB
}

// NewImportBatchRepository returns a repository backed by a pooled DB connection.
func NewImportBatchRepository(db *sql.DB) *ImportBatchRepository {
	return &ImportBatchRepository{db: db}
}

const batchColumns = `id, reference, supplier, status, notes, ordered_at, arrived_at, created_at, updated_at`

func scanBatch(row interface{ Scan(...any) error }) (imports.Batch, error) {
	var (
		b       imports.Batch
		ordered sql.NullTime
		arrived sql.NullTime
	)
	err := row.Scan(
		&b.ID,
		&b.Reference,
		&b.Supplier,
		&b.Status,
		&b.Notes,
		&ordered,
		&arrived,
		&b.CreatedAt,
		&b.UpdatedAt,
	)
	if ordered.Valid {
		b.OrderedAt = &ordered.Time
	}
	if arrived.Valid {
		b.ArrivedAt = &arrived.Time
	}
	return b, err
}

func (r *ImportBatchRepository) FindByID(ctx context.Context, id string) (imports.Batch, error) {
	b, err := scanBatch(r.db.QueryRowContext(ctx, `SELECT `+batchColumns+` FROM import_batches WHERE id = $1`, id))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) || isInvalidText(err) {
			return imports.Batch{}, imports.ErrNotFound
		}
		return imports.Batch{}, fmt.Errorf("find import batch: %w", err)
	}
	if b.OrderIDs, err = r.fetchOrderIDs(ctx, b.ID); err != nil {
		return imports.Batch{}, err
	}
	return b, nil
}

func (r *ImportBatchRepository) fetchOrderIDs(ctx context.Context, batchID string) ([]string, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT order_id FROM import_batch_orders WHERE batch_id = $1 ORDER BY sort_order`, batchID)
	if err != nil {
		return nil, fmt.Errorf("list batch orders: %w", err)
	}
	defer rows.Close()

	ids := []string{}
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, fmt.Errorf("scan batch order: %w", err)
		}
		ids = append(ids, id)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("batch orders rows err: %w", err)
	}
	return ids, nil
}

// Save writes the batch row and replaces its order membership.
func (r *ImportBatchRepository) Save(ctx context.Context, b imports.Batch) (imports.Batch, error) {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return imports.Batch{}, fmt.Errorf("begin tx: %w", err)
	}
	defer tx.Rollback()

	now := time.Now().UTC()
	if b.ID == "" {
		const insert = `
            INSERT INTO import_batches (reference, supplier, status, notes, ordered_at, arrived_at, created_at, updated_at)
            VALUES ($1,$2,$3,$4,$5,$6,$7,$7)
            RETURNING id
        `
		if err := tx.QueryRowContext(ctx, insert, b.Reference, b.Supplier, b.Status, b.Notes, b.OrderedAt, b.ArrivedAt, now).Scan(&b.ID); err != nil {
			return imports.Batch{}, fmt.Errorf("insert import batch: %w", err)
		}
		b.CreatedAt = now
	} else {
		const update = `
            UPDATE import_batches
               SET reference = $2,
                   supplier = $3,
                   status = $4,
                   notes = $5,
                   ordered_at = $6,
                   arrived_at = $7,
                   updated_at = $8
             WHERE id = $1
            RETURNING created_at
        `
		if err := tx.QueryRowContext(ctx, update, b.ID, b.Reference, b.Supplier, b.Status, b.Notes, b.OrderedAt, b.ArrivedAt, now).Scan(&b.CreatedAt); err != nil {
			if errors.Is(err, sql.ErrNoRows) || isInvalidText(err) {
				return imports.Batch{}, imports.ErrNotFound
			}
			return imports.Batch{}, fmt.Errorf("update import batch: %w", err)
		}
		if _, err := tx.ExecContext(ctx, `DELETE FROM import_batch_orders WHERE batch_id = $1`, b.ID); err != nil {
			return imports.Batch{}, fmt.Errorf("delete batch orders: %w", err)
		}
	}

	for idx, orderID := range b.OrderIDs {
		if _, err := tx.ExecContext(ctx,
			`INSERT INTO import_batch_orders (batch_id, order_id, sort_order) VALUES ($1,$2,$3)`,
			b.ID, orderID, idx); err != nil {
			return imports.Batch{}, fmt.Errorf("insert batch order: %w", err)
		}
	}

	if err := tx.Commit(); err != nil {
		return imports.Batch{}, fmt.Errorf("commit import batch save: %w", err)
	}
	b.UpdatedAt = now
	return b, nil
}

// List returns batches with status, newest first. An empty status lists all.
func (r *ImportBatchRepository) List(ctx context.Context, status imports.Status, offset, limit int) ([]imports.Batch, error) {
	query := `SELECT ` + batchColumns + `
          FROM import_batches
         WHERE ($1 = '' OR status = $1)
         ORDER BY created_at DESC
         OFFSET $2
         LIMIT $3`

	rows, err := r.db.QueryContext(ctx, query, string(status), offset, limitArg(limit))
	if err != nil {
		return nil, fmt.Errorf("list import batches: %w", err)
	}

	var result []imports.Batch
	for rows.Next() {
		b, err := scanBatch(rows)
		if err != nil {
			rows.Close()
			return nil, fmt.Errorf("scan import batch: %w", err)
		}
		result = append(result, b)
	}
	err = rows.Err()
	rows.Close()
	if err != nil {
		return nil, fmt.Errorf("rows error: %w", err)
	}

	for i := range result {
		if result[i].OrderIDs, err = r.fetchOrderIDs(ctx, result[i].ID); err != nil {
			return nil, err
		}
	}
	return result, nil
}
