package memory

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/jerseyhouse/storefront/internal/domain/products"
)

// ProductRepository is an in-memory implementation of products.Repository.
type ProductRepository struct {
	mu       sync.RWMutex
	products map[string]products.Product
}

// NewProductRepository returns an initialized in-memory repository.
func NewProductRepository() *ProductRepository {
	return &ProductRepository{products: make(map[string]products.Product)}
}

func (r *ProductRepository) FindByID(_ context.Context, id string) (products.Product, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	p, ok := r.products[id]
	if !ok {
		return products.Product{}, products.ErrNotFound
	}
	return clone(p), nil
}

func (r *ProductRepository) FindBySlug(_ context.Context, slug string) (products.Product, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	for _, p := range r.products {
		if p.Slug == slug {
			return clone(p), nil
		}
	}
	return products.Product{}, products.ErrNotFound
}

// Save inserts or updates a product. Slugs are unique.
func (r *ProductRepository) Save(_ context.Context, product products.Product) (products.Product, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	for id, p := range r.products {
		if id != product.ID && p.Slug == product.Slug {
			return products.Product{}, products.ErrSlugTaken
		}
	}

	now := time.Now().UTC()
	if product.ID == "" {
		product.ID = newID()
		product.CreatedAt = now
	} else if existing, ok := r.products[product.ID]; ok && product.CreatedAt.IsZero() {
		product.CreatedAt = existing.CreatedAt
	} else if !ok {
		product.CreatedAt = now
	}
	product.UpdatedAt = now
	r.products[product.ID] = clone(product)
	return product, nil
}

// List returns matching products, newest first.
func (r *ProductRepository) List(_ context.Context, filter products.Filter, offset, limit int) ([]products.Product, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	list := make([]products.Product, 0, len(r.products))
	for _, p := range r.products {
		if filter.Matches(p) {
			list = append(list, clone(p))
		}
	}
	sort.Slice(list, func(i, j int) bool {
		return list[i].CreatedAt.After(list[j].CreatedAt)
	})
	return page(list, offset, limit), nil
}

func clone(p products.Product) products.Product {
	p.Sizes = append([]string(nil), p.Sizes...)
	p.KidsSizes = append([]string(nil), p.KidsSizes...)
	p.ImageURLs = append([]string(nil), p.ImageURLs...)
	return p
}
