package memory

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/jerseyhouse/storefront/internal/domain/customers"
)

// CustomerRepository is an in-memory implementation of customers.Repository.
type CustomerRepository struct {
	mu        sync.RWMutex
	customers map[string]customers.Customer
}

// NewCustomerRepository returns an initialized in-memory repository.
func NewCustomerRepository() *CustomerRepository {
	return &CustomerRepository{
		customers: make(map[string]customers.Customer),
	}
}

// FindByID returns a customer by identifier.
func (r *CustomerRepository) FindByID(_ context.Context, id string) (customers.Customer, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	c, ok := r.customers[id]
	if !ok {
		return customers.Customer{}, customers.ErrNotFound
	}
	return c, nil
}

// FindByPhone returns the customer owning a normalized phone number.
func (r *CustomerRepository) FindByPhone(_ context.Context, phone string) (customers.Customer, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	for _, c := range r.customers {
		if c.Phone == phone {
			return c, nil
		}
	}
	return customers.Customer{}, customers.ErrNotFound
}

// Save inserts or updates a customer record.
func (r *CustomerRepository) Save(_ context.Context, customer customers.Customer) (customers.Customer, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	for id, c := range r.customers {
		if id != customer.ID && c.Phone == customer.Phone {
			return customers.Customer{}, customers.ErrPhoneTaken
		}
	}

	now := time.Now().UTC()
	if customer.ID == "" {
		customer.ID = newID()
		customer.CreatedAt = now
	} else {
		existing, ok := r.customers[customer.ID]
		if ok {
			if customer.CreatedAt.IsZero() {
				customer.CreatedAt = existing.CreatedAt
			}
		} else {
			customer.CreatedAt = now
		}
	}
	customer.UpdatedAt = now
	r.customers[customer.ID] = customer
	return customer, nil
}

// List returns customers with simple offset/limit pagination.
func (r *CustomerRepository) List(_ context.Context, offset, limit int) ([]customers.Customer, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	list := make([]customers.Customer, 0, len(r.customers))
	for _, c := range r.customers {
		list = append(list, c)
	}

	sort.Slice(list, func(i, j int) bool {
		return list[i].CreatedAt.Before(list[j].CreatedAt)
	})
	return page(list, offset, limit), nil
}
