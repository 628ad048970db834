package discounts

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/jerseyhouse/storefront/internal/validation"
)

var (
	ErrNotImplemented = errors.New("discounts repository: not implemented")
	ErrNotFound       = errors.New("discount code not found")
	ErrCodeExists     = errors.New("discount code already exists")
	ErrInactive       = errors.New("discount code is inactive")
	ErrNotStarted     = errors.New("discount code is not active yet")
	ErrExpired        = errors.New("discount code has expired")
	ErrExhausted      = errors.New("discount code usage limit reached")
	ErrBelowMinimum   = errors.New("order subtotal below discount minimum")
)

// Kind selects how Value is interpreted.
type Kind string

const (
	KindPercentage Kind = "percentage"
	KindFixed      Kind = "fixed"
)

// Code is a redeemable discount. Value is a percentage for KindPercentage
// and an amount in cents for KindFixed. MaxUses of zero means unlimited.
type Code struct {
	Code          string     `json:"code"`
	Kind          Kind       `json:"kind"`
	Value         int64      `json:"value"`
	MinOrderCents int64      `json:"min_order_cents"`
	MaxUses       int        `json:"max_uses"`
	UsedCount     int        `json:"used_count"`
	StartsAt      *time.Time `json:"starts_at,omitempty"`
	ExpiresAt     *time.Time `json:"expires_at,omitempty"`
	Active        bool       `json:"active"`
	CreatedAt     time.Time  `json:"created_at"`
}

// Check reports why the code cannot be applied to subtotal at now, if at all.
func (c Code) Check(subtotal int64, now time.Time) error {
	switch {
	case !c.Active:
		return ErrInactive
	case c.StartsAt != nil && now.Before(*c.StartsAt):
		return ErrNotStarted
	case c.ExpiresAt != nil && !now.Before(*c.ExpiresAt):
		return ErrExpired
	case c.MaxUses > 0 && c.UsedCount >= c.MaxUses:
		return ErrExhausted
	case subtotal < c.MinOrderCents:
		return fmt.Errorf("%w (minimum %d)", ErrBelowMinimum, c.MinOrderCents)
	}
	return nil
}

// Amount is the discount on subtotal, never more than the subtotal itself.
func (c Code) Amount(subtotal int64) int64 {
	var amount int64
	switch c.Kind {
	case KindPercentage:
		amount = subtotal * c.Value / 100
	case KindFixed:
		amount = c.Value
	}
	if amount > subtotal {
		amount = subtotal
	}
	if amount < 0 {
		amount = 0
	}
	return amount
}

// Repository abstracts discount code persistence.
type Repository interface {
	Find(ctx context.Context, code string) (Code, error)
	Save(ctx context.Context, code Code) (Code, error)
	// IncrementUse atomically bumps UsedCount unless MaxUses is reached.
	IncrementUse(ctx context.Context, code string) (Code, error)
	List(ctx context.Context, offset, limit int) ([]Code, error)
}

// NullRepository returns ErrNotImplemented for all operations.
type NullRepository struct{}

func (NullRepository) Find(context.Context, string) (Code, error) { return Code{}, ErrNotImplemented }
func (NullRepository) Save(context.Context, Code) (Code, error)   { return Code{}, ErrNotImplemented }
func (NullRepository) IncrementUse(context.Context, string) (Code, error) {
	return Code{}, ErrNotImplemented
}
func (NullRepository) List(context.Context, int, int) ([]Code, error) { return nil, ErrNotImplemented }

// Quote is the result of applying a code to a subtotal.
type Quote struct {
	Code          string `json:"code"`
	SubtotalCents int64  `json:"subtotal_cents"`
	DiscountCents int64  `json:"discount_cents"`
}

// Service exposes discount code operations.
type Service interface {
	Create(ctx context.Context, input CreateInput) (Code, error)
	Get(ctx context.Context, code string) (Code, error)
	List(ctx context.Context, offset, limit int) ([]Code, error)
	Deactivate(ctx context.Context, code string) (Code, error)
	Quote(ctx context.Context, code string, subtotal int64, now time.Time) (Quote, error)
	Redeem(ctx context.Context, code string) (Code, error)
}

// CreateInput defines a new discount code.
type CreateInput struct {
	Code          string     `json:"code"`
	Kind          string     `json:"kind"`
	Value         int64      `json:"value"`
	MinOrderCents int64      `json:"min_order_cents"`
	MaxUses       int        `json:"max_uses"`
	StartsAt      *time.Time `json:"starts_at"`
	ExpiresAt     *time.Time `json:"expires_at"`
}

// NewService builds a discount service.
func NewService(repo Repository) Service {
	return &service{repo: repo}
}

type service struct {
	repo Repository
}

// Normalize upper-cases and trims a code as entered by a shopper.
func Normalize(code string) string {
	return strings.ToUpper(strings.TrimSpace(code))
}

func (s *service) Create(ctx context.Context, input CreateInput) (Code, error) {
	c := Code{
		Code:          Normalize(input.Code),
		Kind:          Kind(strings.ToLower(strings.TrimSpace(input.Kind))),
		Value:         input.Value,
		MinOrderCents: input.MinOrderCents,
		MaxUses:       input.MaxUses,
		StartsAt:      input.StartsAt,
		ExpiresAt:     input.ExpiresAt,
		Active:        true,
	}

	if c.Code == "" {
		return Code{}, validation.Required("code")
	}
	if strings.ContainsAny(c.Code, " \t") {
		return Code{}, validation.Invalid("code", "must not contain spaces")
	}
	switch c.Kind {
	case KindPercentage:
		if c.Value < 1 || c.Value > 100 {
			return Code{}, validation.Invalid("value", "percentage must be between 1 and 100")
		}
	case KindFixed:
		if c.Value <= 0 {
			return Code{}, validation.Invalid("value", "fixed amount must be positive")
		}
	default:
		return Code{}, validation.Invalid("kind", "must be percentage or fixed")
	}
	if c.MinOrderCents < 0 {
		return Code{}, validation.Invalid("min_order_cents", "must not be negative")
	}
	if c.MaxUses < 0 {
		return Code{}, validation.Invalid("max_uses", "must not be negative")
	}
	if c.StartsAt != nil && c.ExpiresAt != nil && !c.ExpiresAt.After(*c.StartsAt) {
		return Code{}, validation.Invalid("expires_at", "must be after starts_at")
	}

	if _, err := s.repo.Find(ctx, c.Code); err == nil {
		return Code{}, ErrCodeExists
	} else if !errors.Is(err, ErrNotFound) {
		return Code{}, err
	}
	return s.repo.Save(ctx, c)
}

func (s *service) Get(ctx context.Context, code string) (Code, error) {
	return s.repo.Find(ctx, Normalize(code))
}

func (s *service) List(ctx context.Context, offset, limit int) ([]Code, error) {
	return s.repo.List(ctx, offset, limit)
}

func (s *service) Deactivate(ctx context.Context, code string) (Code, error) {
	c, err := s.repo.Find(ctx, Normalize(code))
	if err != nil {
		return Code{}, err
	}
	c.Active = false
	return s.repo.Save(ctx, c)
}

func (s *service) Quote(ctx context.Context, code string, subtotal int64, now time.Time) (Quote, error) {
	if subtotal < 0 {
		return Quote{}, validation.Invalid("subtotal_cents", "must not be negative")
	}
	c, err := s.repo.Find(ctx, Normalize(code))
	if err != nil {
		return Quote{}, err
	}
	if err := c.Check(subtotal, now); err != nil {
		return Quote{}, err
	}
	return Quote{Code: c.Code, SubtotalCents: subtotal, DiscountCents: c.Amount(subtotal)}, nil
}

func (s *service) Redeem(ctx context.Context, code string) (Code, error) {
	return s.repo.IncrementUse(ctx, Normalize(code))
}
