package memory

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/jerseyhouse/storefront/internal/domain/imports"
)

// ImportBatchRepository is an in-memory implementation of imports.Repository.
type ImportBatchRepository struct {
	mu      sync.RWMutex
	batches map[string]imports.Batch
}

// NewImportBatchRepository returns an initialized in-memory repository.
func NewImportBatchRepository() *ImportBatchRepository {
	return &ImportBatchRepository{batches: make(map[string]imports.Batch)}
}

func (r *ImportBatchRepository) FindByID(_ context.Context, id string) (imports.Batch, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	b, ok := r.batches[id]
	if !ok {
		return imports.Batch{}, imports.ErrNotFound
	}
	b.OrderIDs = append([]string{}, b.OrderIDs...)
	return b, nil
}

func (r *ImportBatchRepository) Save(_ context.Context, batch imports.Batch) (imports.Batch, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	now := time.Now().UTC()
	if batch.ID == "" {
		batch.ID = newID()
		batch.CreatedAt = now
	} else if existing, ok := r.batches[batch.ID]; ok {
		batch.CreatedAt = existing.CreatedAt
	} else {
		return imports.Batch{}, imports.ErrNotFound
	}
	batch.UpdatedAt = now
	stored := batch
	stored.OrderIDs = append([]string{}, batch.OrderIDs...)
	r.batches[batch.ID] = stored
	return batch, nil
}

// List returns batches with status, newest first. An empty status lists all.
func (r *ImportBatchRepository) List(_ context.Context, status imports.Status, offset, limit int) ([]imports.Batch, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	list := make([]imports.Batch, 0, len(r.batches))
	for _, b := range r.batches {
		if status == "" || b.Status == status {
			b.OrderIDs = append([]string{}, b.OrderIDs...)
			list = append(list, b)
		}
	}
	sort.Slice(list, func(i, j int) bool {
		return list[i].CreatedAt.After(list[j].CreatedAt)
	})
	return page(list, offset, limit), nil
}
