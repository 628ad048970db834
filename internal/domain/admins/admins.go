package admins

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"golang.org/x/crypto/bcrypt"

	"github.com/jerseyhouse/storefront/internal/validation"
)

var (
	ErrNotImplemented     = errors.New("admins repository: not implemented")
	ErrNotFound           = errors.New("admin not found")
	ErrInvalidCredentials = errors.New("invalid email or password")
	ErrEmailExists        = errors.New("email already in use")
)

const minPasswordLength = 8

// Admin is a back-office account.
type Admin struct {
	ID           string    `json:"id"`
	Email        string    `json:"email"`
	Name         string    `json:"name"`
	PasswordHash string    `json:"-"`
	CreatedAt    time.Time `json:"created_at"`
	UpdatedAt    time.Time `json:"updated_at"`
}

// Repository defines persistence behaviour for admins.
type Repository interface {
	FindByID(ctx context.Context, id string) (Admin, error)
	FindByEmail(ctx context.Context, email string) (Admin, error)
	Save(ctx context.Context, admin Admin) (Admin, error)
}

// NullRepository can be used when no storage is configured.
type NullRepository struct{}

func (NullRepository) FindByID(context.Context, string) (Admin, error) {
	return Admin{}, ErrNotImplemented
}

func (NullRepository) FindByEmail(context.Context, string) (Admin, error) {
	return Admin{}, ErrNotImplemented
}

func (NullRepository) Save(context.Context, Admin) (Admin, error) {
	return Admin{}, ErrNotImplemented
}

// Service exposes admin registration and authentication logic.
type Service interface {
	Register(ctx context.Context, input RegisterInput) (Admin, error)
	Authenticate(ctx context.Context, email, password string) (Admin, error)
	Get(ctx context.Context, id string) (Admin, error)
}

type service struct {
	repo Repository
	cost int
}

// RegisterInput captures data required to create an account.
type RegisterInput struct {
	Email    string `json:"email"`
	Name     string `json:"name"`
	Password string `json:"password"`
}

// NewService constructs an admin service. A zero cost uses bcrypt's default.
func NewService(repo Repository, cost int) Service {
	if repo == nil {
		repo = NullRepository{}
	}
	if cost == 0 {
		cost = bcrypt.DefaultCost
	}
	return &service{repo: repo, cost: cost}
}

func (s *service) Register(ctx context.Context, input RegisterInput) (Admin, error) {
	email := normalizeEmail(input.Email)
	if email == "" {
		return Admin{}, validation.Required("email")
	}
	if !strings.Contains(email, "@") {
		return Admin{}, validation.Invalid("email", "must be an email address")
	}
	if len(input.Password) < minPasswordLength {
		return Admin{}, validation.Invalid("password", fmt.Sprintf("must be at least %d characters", minPasswordLength))
	}

	if _, err := s.repo.FindByEmail(ctx, email); err == nil {
		return Admin{}, ErrEmailExists
	} else if !errors.Is(err, ErrNotFound) && !errors.Is(err, ErrNotImplemented) {
		return Admin{}, err
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(input.Password), s.cost)
	if err != nil {
		return Admin{}, fmt.Errorf("hash password: %w", err)
	}

	return s.repo.Save(ctx, Admin{
		Email:        email,
		Name:         strings.TrimSpace(input.Name),
		PasswordHash: string(hash),
	})
}

// Authenticate hides unknown emails behind ErrInvalidCredentials.
func (s *service) Authenticate(ctx context.Context, email, password string) (Admin, error) {
	email = normalizeEmail(email)
	if email == "" {
		return Admin{}, validation.Required("email")
	}

	admin, err := s.repo.FindByEmail(ctx, email)
	if errors.Is(err, ErrNotFound) {
		return Admin{}, ErrInvalidCredentials
	}
	if err != nil {
		return Admin{}, err
	}

	if err := bcrypt.CompareHashAndPassword([]byte(admin.PasswordHash), []byte(password)); err != nil {
		return Admin{}, ErrInvalidCredentials
	}
	return admin, nil
}

func (s *service) Get(ctx context.Context, id string) (Admin, error) {
	return s.repo.FindByID(ctx, id)
}

func normalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}
