package memory

import (
	"context"
	"sync"
	"time"

	"github.com/jerseyhouse/storefront/internal/domain/admins"
)

// AdminRepository is an in-memory implementation of admins.Repository.
type AdminRepository struct {
	mu     sync.RWMutex
	admins map[string]admins.Admin
}

// NewAdminRepository returns an initialized in-memory repository.
func NewAdminRepository() *AdminRepository {
	return &AdminRepository{admins: make(map[string]admins.Admin)}
}

func (r *AdminRepository) FindByID(_ context.Context, id string) (admins.Admin, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	a, ok := r.admins[id]
	if !ok {
		return admins.Admin{}, admins.ErrNotFound
	}
	return a, nil
}

func (r *AdminRepository) FindByEmail(_ context.Context, email string) (admins.Admin, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	for _, a := range r.admins {
		if a.Email == email {
			return a, nil
		}
	}
	return admins.Admin{}, admins.ErrNotFound
}

func (r *AdminRepository) Save(_ context.Context, admin admins.Admin) (admins.Admin, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	for id, a := range r.admins {
		if id != admin.ID && a.Email == admin.Email {
			return admins.Admin{}, admins.ErrEmailExists
		}
	}

	now := time.Now().UTC()
	if admin.ID == "" {
		admin.ID = newID()
		admin.CreatedAt = now
	} else if existing, ok := r.admins[admin.ID]; ok {
		admin.CreatedAt = existing.CreatedAt
	}
	admin.UpdatedAt = now
	r.admins[admin.ID] = admin
	return admin, nil
}
