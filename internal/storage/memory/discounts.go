package memory

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/jerseyhouse/storefront/internal/domain/discounts"
)

// DiscountRepository is an in-memory implementation of discounts.Repository.
type DiscountRepository struct {
	mu    sync.RWMutex
	codes map[string]discounts.Code
}

// NewDiscountRepository returns an initialized in-memory repository.
func NewDiscountRepository() *DiscountRepository {
	return &DiscountRepository{codes: make(map[string]discounts.Code)}
}

func (r *DiscountRepository) Find(_ context.Context, code string) (discounts.Code, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	c, ok := r.codes[code]
	if !ok {
		return discounts.Code{}, discounts.ErrNotFound
	}
	return c, nil
}

// Save keeps the stored UsedCount on updates; only IncrementUse changes it.
func (r *DiscountRepository) Save(_ context.Context, code discounts.Code) (discounts.Code, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if existing, ok := r.codes[code.Code]; ok {
		code.CreatedAt = existing.CreatedAt
		code.UsedCount = existing.UsedCount
	} else if code.CreatedAt.IsZero() {
		code.CreatedAt = time.Now().UTC()
	}
	r.codes[code.Code] = code
	return code, nil
}

// IncrementUse checks the usage cap under the write lock.
func (r *DiscountRepository) IncrementUse(_ context.Context, code string) (discounts.Code, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	c, ok := r.codes[code]
	if !ok {
		return discounts.Code{}, discounts.ErrNotFound
	}
	if c.MaxUses > 0 && c.UsedCount >= c.MaxUses {
		return discounts.Code{}, discounts.ErrExhausted
	}
	c.UsedCount++
	r.codes[code] = c
	return c, nil
}

func (r *DiscountRepository) List(_ context.Context, offset, limit int) ([]discounts.Code, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	list := make([]discounts.Code, 0, len(r.codes))
	for _, c := range r.codes {
		list = append(list, c)
	}
	sort.Slice(list, func(i, j int) bool {
		return list[i].Code < list[j].Code
	})
	return page(list, offset, limit), nil
}
