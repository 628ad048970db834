package memory

import (
	"context"
	"sync"

	"github.com/jerseyhouse/storefront/internal/domain/messaging"
)

// SMSLogRepository is an append-only in-memory SMS log.
type SMSLogRepository struct {
	mu      sync.RWMutex
	entries []messaging.SMSLog
}

// NewSMSLogRepository returns an empty log.
func NewSMSLogRepository() *SMSLogRepository {
	return &SMSLogRepository{}
}

func (r *SMSLogRepository) Append(_ context.Context, entry messaging.SMSLog) (messaging.SMSLog, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if entry.ID == "" {
		entry.ID = newID()
	}
	r.entries = append(r.entries, entry)
	return entry, nil
}

// List returns matching entries, newest first.
func (r *SMSLogRepository) List(_ context.Context, filter messaging.LogFilter, offset, limit int) ([]messaging.SMSLog, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	list := make([]messaging.SMSLog, 0, len(r.entries))
	for i := len(r.entries) - 1; i >= 0; i-- {
		if filter.Matches(r.entries[i]) {
			list = append(list, r.entries[i])
		}
	}
	return page(list, offset, limit), nil
}
