package memory

import (
	"context"
	"sort"
	"sync"

	"github.com/jerseyhouse/storefront/internal/domain/delivery"
)

// DeliveryRepository is an in-memory implementation of delivery.Repository.
type DeliveryRepository struct {
	mu       sync.RWMutex
	statuses map[string]delivery.Status
}

// NewDeliveryRepository returns an initialized in-memory repository.
func NewDeliveryRepository() *DeliveryRepository {
	return &DeliveryRepository{statuses: make(map[string]delivery.Status)}
}

func (r *DeliveryRepository) Find(_ context.Context, orderID string) (delivery.Status, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	s, ok := r.statuses[orderID]
	if !ok {
		return delivery.Status{}, delivery.ErrNotFound
	}
	s.History = append([]delivery.Event(nil), s.History...)
	return s, nil
}

// Save compares the stored stage with expected under the write lock.
func (r *DeliveryRepository) Save(_ context.Context, status delivery.Status, expected delivery.Stage) (delivery.Status, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	current, ok := r.statuses[status.OrderID]
	if (expected == "" && ok) || (expected != "" && (!ok || current.Stage != expected)) {
		return delivery.Status{}, delivery.ErrStageChanged
	}

	stored := status
	stored.History = append([]delivery.Event(nil), status.History...)
	r.statuses[status.OrderID] = stored
	return status, nil
}

// ListByStage returns statuses at stage, most recently updated first. An
// empty stage lists everything.
func (r *DeliveryRepository) ListByStage(_ context.Context, stage delivery.Stage, offset, limit int) ([]delivery.Status, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	list := make([]delivery.Status, 0)
	for _, s := range r.statuses {
		if stage == "" || s.Stage == stage {
			s.History = append([]delivery.Event(nil), s.History...)
			list = append(list, s)
		}
	}
	sort.Slice(list, func(i, j int) bool {
		return list[i].UpdatedAt.After(list[j].UpdatedAt)
	})
	return page(list, offset, limit), nil
}
