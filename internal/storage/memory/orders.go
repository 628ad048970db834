package memory

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/jerseyhouse/storefront/internal/domain/orders"
)

// OrderRepository is an in-memory implementation of orders.Repository.
type OrderRepository struct {
	mu     sync.RWMutex
	orders map[string]orders.Order
}

// NewOrderRepository returns an initialized in-memory repository.
func NewOrderRepository() *OrderRepository {
	return &OrderRepository{orders: make(map[string]orders.Order)}
}

func (r *OrderRepository) FindByID(_ context.Context, id string) (orders.Order, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	o, ok := r.orders[id]
	if !ok {
		return orders.Order{}, orders.ErrNotFound
	}
	return cloneOrder(o), nil
}

func (r *OrderRepository) FindByCode(_ context.Context, code string) (orders.Order, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	for _, o := range r.orders {
		if o.Code == code {
			return cloneOrder(o), nil
		}
	}
	return orders.Order{}, orders.ErrNotFound
}

func (r *OrderRepository) Save(_ context.Context, order orders.Order) (orders.Order, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	now := time.Now().UTC()
	if order.ID == "" {
		order.ID = newID()
		order.CreatedAt = now
	} else if existing, ok := r.orders[order.ID]; ok {
		order.CreatedAt = existing.CreatedAt
	} else {
		return orders.Order{}, orders.ErrNotFound
	}
	order.UpdatedAt = now
	r.orders[order.ID] = cloneOrder(order)
	return order, nil
}

// List returns matching orders, newest first.
func (r *OrderRepository) List(_ context.Context, filter orders.Filter, offset, limit int) ([]orders.Order, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	list := make([]orders.Order, 0, len(r.orders))
	for _, o := range r.orders {
		if filter.Matches(o) {
			list = append(list, cloneOrder(o))
		}
	}
	sort.Slice(list, func(i, j int) bool {
		return list[i].CreatedAt.After(list[j].CreatedAt)
	})
	return page(list, offset, limit), nil
}

func cloneOrder(o orders.Order) orders.Order {
	o.Items = append([]orders.Item(nil), o.Items...)
	return o
}
