package postgres

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/jerseyhouse/storefront/internal/domain/messaging"
)

// SMSLogRepository persists outbound SMS records.
type SMSLogRepository struct {
	db *sql.DB
}

// NewSMSLogRepository returns a repository backed by a pooled DB connection.
func NewSMSLogRepository(db *sql.DB) *SMSLogRepository {
	return &SMSLogRepository{db: db}
}

func (r *SMSLogRepository) Append(ctx context.Context, e messaging.SMSLog) (messaging.SMSLog, error) {
	const insert = `
        INSERT INTO sms_logs (recipient, body, purpose, status, provider_ref, error, created_at)
        VALUES ($1,$2,$3,$4,$5,$6,$7)
        RETURNING id
    `
	if err := r.db.QueryRowContext(ctx, insert,
		e.Recipient,
		e.Body,
		e.Purpose,
		e.Status,
		e.ProviderRef,
		e.Error,
		e.CreatedAt,
	).Scan(&e.ID); err != nil {
		return messaging.SMSLog{}, fmt.Errorf("insert sms log: %w", err)
	}
	return e, nil
}

// List returns matching entries, newest first.
func (r *SMSLogRepository) List(ctx context.Context, f messaging.LogFilter, offset, limit int) ([]messaging.SMSLog, error) {
	const query = `
        SELECT id, recipient, body, purpose, status, provider_ref, error, created_at
          FROM sms_logs
         WHERE ($1 = '' OR purpose = $1)
           AND ($2 = '' OR status = $2)
         ORDER BY created_at DESC
         OFFSET $3
         LIMIT $4
    `
	rows, err := r.db.QueryContext(ctx, query, string(f.Purpose), string(f.Status), offset, limitArg(limit))
	if err != nil {
		return nil, fmt.Errorf("list sms logs: %w", err)
	}
	defer rows.Close()

	var result []messaging.SMSLog
	for rows.Next() {
		var e messaging.SMSLog
		if err := rows.Scan(
			&e.ID,
			&e.Recipient,
			&e.Body,
			&e.Purpose,
			&e.Status,
			&e.ProviderRef,
			&e.Error,
			&e.CreatedAt,
		); err != nil {
			return nil, fmt.Errorf("scan sms log: %w", err)
		}
		result = append(result, e)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("rows error: %w", err)
	}
	return result, nil
}
