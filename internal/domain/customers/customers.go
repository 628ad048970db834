package customers

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/jerseyhouse/storefront/internal/phone"
	"github.com/jerseyhouse/storefront/internal/validation"
)

// Domain-level errors for customers.
var (
	ErrNotImplemented = errors.New("customers repository: not implemented")
	ErrNotFound       = errors.New("customer not found")
	ErrPhoneTaken     = errors.New("phone number already registered")
)

// Customer is a storefront buyer, identified by a normalized phone number.
type Customer struct {
	ID            string    `json:"id"`
	FirstName     string    `json:"first_name"`
	LastName      string    `json:"last_name"`
	Email         string    `json:"email,omitempty"`
	Phone         string    `json:"phone"`
	PhoneVerified bool      `json:"phone_verified"`
	CreatedAt     time.Time `json:"created_at"`
	UpdatedAt     time.Time `json:"updated_at"`
}

// Repository abstracts persistence for customers.
type Repository interface {
	FindByID(ctx context.Context, id string) (Customer, error)
	FindByPhone(ctx context.Context, phone string) (Customer, error)
	Save(ctx context.Context, customer Customer) (Customer, error)
	List(ctx context.Context, offset, limit int) ([]Customer, error)
}

// NullRepository stub implementation returning ErrNotImplemented.
type NullRepository struct{}

func (NullRepository) FindByID(context.Context, string) (Customer, error) {
	return Customer{}, ErrNotImplemented
}

func (NullRepository) FindByPhone(context.Context, string) (Customer, error) {
	return Customer{}, ErrNotImplemented
}

func (NullRepository) Save(context.Context, Customer) (Customer, error) {
	return Customer{}, ErrNotImplemented
}

func (NullRepository) List(context.Context, int, int) ([]Customer, error) {
	return nil, ErrNotImplemented
}

// Service exposes business operations over customers.
type Service interface {
	Get(ctx context.Context, id string) (Customer, error)
	Create(ctx context.Context, input CreateInput) (Customer, error)
	Update(ctx context.Context, id string, input UpdateInput) (Customer, error)
	List(ctx context.Context, offset, limit int) ([]Customer, error)
	FindByPhone(ctx context.Context, phone string) (Customer, error)
	FindOrCreateByPhone(ctx context.Context, input CreateInput) (Customer, error)
}

// CreateInput defines data required to create a customer.
type CreateInput struct {
	FirstName     string `json:"first_name"`
	LastName      string `json:"last_name"`
	Email         string `json:"email"`
	Phone         string `json:"phone"`
	PhoneVerified bool   `json:"-"`
}

// UpdateInput defines data for updating a customer.
type UpdateInput struct {
	FirstName *string `json:"first_name"`
	LastName  *string `json:"last_name"`
	Email     *string `json:"email"`
}

// NewService builds a customer service with the given repository.
func NewService(repo Repository) Service {
	return &service{repo: repo}
}

type service struct {
	repo Repository
}

func (s *service) Get(ctx context.Context, id string) (Customer, error) {
	return s.repo.FindByID(ctx, id)
}

func (s *service) Create(ctx context.Context, input CreateInput) (Customer, error) {
	customer, err := fromInput(input)
	if err != nil {
		return Customer{}, err
	}

	if _, err := s.repo.FindByPhone(ctx, customer.Phone); err == nil {
		return Customer{}, ErrPhoneTaken
	} else if !errors.Is(err, ErrNotFound) {
		return Customer{}, err
	}

	return s.repo.Save(ctx, customer)
}

func (s *service) Update(ctx context.Context, id string, input UpdateInput) (Customer, error) {
	customer, err := s.repo.FindByID(ctx, id)
	if err != nil {
		return Customer{}, err
	}

	if input.FirstName != nil {
		customer.FirstName = strings.TrimSpace(*input.FirstName)
	}
	if input.LastName != nil {
		customer.LastName = strings.TrimSpace(*input.LastName)
	}
	if input.Email != nil {
		customer.Email = strings.ToLower(strings.TrimSpace(*input.Email))
	}

	return s.repo.Save(ctx, customer)
}

func (s *service) List(ctx context.Context, offset, limit int) ([]Customer, error) {
	return s.repo.List(ctx, offset, limit)
}

func (s *service) FindByPhone(ctx context.Context, raw string) (Customer, error) {
	normalized, err := phone.Normalize(raw)
	if err != nil {
		return Customer{}, err
	}
	return s.repo.FindByPhone(ctx, normalized)
}

// FindOrCreateByPhone returns the customer owning the phone, filling in any
// blank details from input, or creates one.
func (s *service) FindOrCreateByPhone(ctx context.Context, input CreateInput) (Customer, error) {
	incoming, err := fromInput(input)
	if err != nil {
		return Customer{}, err
	}

	existing, err := s.repo.FindByPhone(ctx, incoming.Phone)
	if errors.Is(err, ErrNotFound) {
		return s.repo.Save(ctx, incoming)
	}
	if err != nil {
		return Customer{}, err
	}

	changed := false
	if existing.FirstName == "" && incoming.FirstName != "" {
		existing.FirstName = incoming.FirstName
		changed = true
	}
	if existing.LastName == "" && incoming.LastName != "" {
		existing.LastName = incoming.LastName
		changed = true
	}
	if existing.Email == "" && incoming.Email != "" {
		existing.Email = incoming.Email
		changed = true
	}
	if incoming.PhoneVerified && !existing.PhoneVerified {
		existing.PhoneVerified = true
		changed = true
	}
	if !changed {
		return existing, nil
	}
	return s.repo.Save(ctx, existing)
}

func fromInput(input CreateInput) (Customer, error) {
	normalized, err := phone.Normalize(input.Phone)
	if err != nil {
		return Customer{}, err
	}
	first := strings.TrimSpace(input.FirstName)
	last := strings.TrimSpace(input.LastName)
	if first == "" && last == "" {
		return Customer{}, validation.Invalid("name", "first_name or last_name required")
	}
	return Customer{
		FirstName:     first,
		LastName:      last,
		Email:         strings.ToLower(strings.TrimSpace(input.Email)),
		Phone:         normalized,
		PhoneVerified: input.PhoneVerified,
	}, nil
}
