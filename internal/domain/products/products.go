package products

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/jerseyhouse/storefront/internal/domain/sizing"
	"github.com/jerseyhouse/storefront/internal/validation"
)

var (
	ErrNotImplemented = errors.New("products repository: not implemented")
	ErrNotFound       = errors.New("product not found")
	ErrSlugTaken      = errors.New("product slug already in use")
)

// Kind is the jersey variant.
type Kind string

const (
	KindHome     Kind = "home"
	KindAway     Kind = "away"
	KindThird    Kind = "third"
	KindRetro    Kind = "retro"
	KindTraining Kind = "training"
)

func parseKind(s string) (Kind, error) {
	k := Kind(strings.ToLower(strings.TrimSpace(s)))
	switch k {
	case "":
		return KindHome, nil
	case KindHome, KindAway, KindThird, KindRetro, KindTraining:
		return k, nil
	default:
		return "", validation.Invalid("kind", "must be home, away, third, retro or training")
	}
}

// Product is a jersey listed in the storefront.
type Product struct {
	ID                    string    `json:"id"`
	Slug                  string    `json:"slug"`
	Name                  string    `json:"name"`
	Team                  string    `json:"team"`
	Season                string    `json:"season,omitempty"`
	Kind                  Kind      `json:"kind"`
	Description           string    `json:"description,omitempty"`
	PriceCents            int64     `json:"price_cents"`
	CustomizationFeeCents int64     `json:"customization_fee_cents"`
	Sizes                 []string  `json:"sizes"`
	KidsSizes             []string  `json:"kids_sizes,omitempty"`
	ImageURLs             []string  `json:"image_urls,omitempty"`
	Active                bool      `json:"active"`
	CreatedAt             time.Time `json:"created_at"`
	UpdatedAt             time.Time `json:"updated_at"`
}

// OffersSize reports whether size is sold for this product.
func (p Product) OffersSize(size string) bool {
	for _, s := range p.Sizes {
		if strings.EqualFold(s, size) {
			return true
		}
	}
	for _, s := range p.KidsSizes {
		if strings.EqualFold(s, size) {
			return true
		}
	}
	return false
}

// Filter narrows product listings. Zero values match everything.
type Filter struct {
	Team       string
	Kind       Kind
	Query      string
	ActiveOnly bool
}

// Matches applies the filter in memory.
func (f Filter) Matches(p Product) bool {
	if f.ActiveOnly && !p.Active {
		return false
	}
	if f.Team != "" && !strings.EqualFold(f.Team, p.Team) {
		return false
	}
	if f.Kind != "" && f.Kind != p.Kind {
		return false
	}
	if q := strings.ToLower(strings.TrimSpace(f.Query)); q != "" {
		if !strings.Contains(strings.ToLower(p.Name), q) && !strings.Contains(strings.ToLower(p.Team), q) {
			return false
		}
	}
	return true
}

// Repository abstracts product persistence.
type Repository interface {
	FindByID(ctx context.Context, id string) (Product, error)
	FindBySlug(ctx context.Context, slug string) (Product, error)
	Save(ctx context.Context, product Product) (Product, error)
	List(ctx context.Context, filter Filter, offset, limit int) ([]Product, error)
}

// NullRepository returns ErrNotImplemented for all operations.
type NullRepository struct{}

func (NullRepository) FindByID(context.Context, string) (Product, error) {
	return Product{}, ErrNotImplemented
}

func (NullRepository) FindBySlug(context.Context, string) (Product, error) {
	return Product{}, ErrNotImplemented
}

func (NullRepository) Save(context.Context, Product) (Product, error) {
	return Product{}, ErrNotImplemented
}

func (NullRepository) List(context.Context, Filter, int, int) ([]Product, error) {
	return nil, ErrNotImplemented
}

// Service provides catalog operations.
type Service interface {
	Get(ctx context.Context, id string) (Product, error)
	GetBySlug(ctx context.Context, slug string) (Product, error)
	Create(ctx context.Context, input CreateInput) (Product, error)
	Update(ctx context.Context, id string, input UpdateInput) (Product, error)
	SetActive(ctx context.Context, id string, active bool) (Product, error)
	List(ctx context.Context, filter Filter, offset, limit int) ([]Product, error)
}

// CreateInput is used to add a product.
type CreateInput struct {
	Name                  string   `json:"name"`
	Team                  string   `json:"team"`
	Season                string   `json:"season"`
	Kind                  string   `json:"kind"`
	Description           string   `json:"description"`
	PriceCents            int64    `json:"price_cents"`
	CustomizationFeeCents int64    `json:"customization_fee_cents"`
	Sizes                 []string `json:"sizes"`
	KidsSizes             []string `json:"kids_sizes"`
	ImageURLs             []string `json:"image_urls"`
	Active                bool     `json:"active"`
}

// UpdateInput carries optional field changes.
type UpdateInput struct {
	Name                  *string   `json:"name"`
	Team                  *string   `json:"team"`
	Season                *string   `json:"season"`
	Kind                  *string   `json:"kind"`
	Description           *string   `json:"description"`
	PriceCents            *int64    `json:"price_cents"`
	CustomizationFeeCents *int64    `json:"customization_fee_cents"`
	Sizes                 *[]string `json:"sizes"`
	KidsSizes             *[]string `json:"kids_sizes"`
	ImageURLs             *[]string `json:"image_urls"`
}

// NewService builds a product service.
func NewService(repo Repository) Service {
	return &service{repo: repo}
}

type service struct {
	repo Repository
}

func (s *service) Get(ctx context.Context, id string) (Product, error) {
	return s.repo.FindByID(ctx, id)
}

func (s *service) GetBySlug(ctx context.Context, slug string) (Product, error) {
	return s.repo.FindBySlug(ctx, strings.ToLower(strings.TrimSpace(slug)))
}

func (s *service) Create(ctx context.Context, input CreateInput) (Product, error) {
	kind, err := parseKind(input.Kind)
	if err != nil {
		return Product{}, err
	}
	p := Product{
		Name:                  strings.TrimSpace(input.Name),
		Team:                  TeamName(input.Team),
		Season:                strings.TrimSpace(input.Season),
		Kind:                  kind,
		Description:           strings.TrimSpace(input.Description),
		PriceCents:            input.PriceCents,
		CustomizationFeeCents: input.CustomizationFeeCents,
		Sizes:                 normalizeSizes(input.Sizes),
		KidsSizes:             normalizeSizes(input.KidsSizes),
		ImageURLs:             trimAll(input.ImageURLs),
		Active:                input.Active,
	}
	if err := validate(p); err != nil {
		return Product{}, err
	}

	p.Slug = Slugify(p.Name)
	if p.Slug == "" {
		return Product{}, validation.Invalid("name", "must contain letters or digits")
	}
	if err := s.ensureSlugFree(ctx, p.Slug, ""); err != nil {
		return Product{}, err
	}
	return s.repo.Save(ctx, p)
}

func (s *service) Update(ctx context.Context, id string, input UpdateInput) (Product, error) {
	p, err := s.repo.FindByID(ctx, id)
	if err != nil {
		return Product{}, err
	}

	if input.Name != nil {
		p.Name = strings.TrimSpace(*input.Name)
		newSlug := Slugify(p.Name)
		if newSlug != p.Slug {
			if err := s.ensureSlugFree(ctx, newSlug, p.ID); err != nil {
				return Product{}, err
			}
			p.Slug = newSlug
		}
	}
	if input.Team != nil {
		p.Team = TeamName(*input.Team)
	}
	if input.Season != nil {
		p.Season = strings.TrimSpace(*input.Season)
	}
	if input.Kind != nil {
		if p.Kind, err = parseKind(*input.Kind); err != nil {
			return Product{}, err
		}
	}
	if input.Description != nil {
		p.Description = strings.TrimSpace(*input.Description)
	}
	if input.PriceCents != nil {
		p.PriceCents = *input.PriceCents
	}
	if input.CustomizationFeeCents != nil {
		p.CustomizationFeeCents = *input.CustomizationFeeCents
	}
	if input.Sizes != nil {
		p.Sizes = normalizeSizes(*input.Sizes)
	}
	if input.KidsSizes != nil {
		p.KidsSizes = normalizeSizes(*input.KidsSizes)
	}
	if input.ImageURLs != nil {
		p.ImageURLs = trimAll(*input.ImageURLs)
	}

	if err := validate(p); err != nil {
		return Product{}, err
	}
	return s.repo.Save(ctx, p)
}

func (s *service) SetActive(ctx context.Context, id string, active bool) (Product, error) {
	p, err := s.repo.FindByID(ctx, id)
	if err != nil {
		return Product{}, err
	}
	p.Active = active
	return s.repo.Save(ctx, p)
}

func (s *service) List(ctx context.Context, filter Filter, offset, limit int) ([]Product, error) {
	return s.repo.List(ctx, filter, offset, limit)
}

func (s *service) ensureSlugFree(ctx context.Context, slug, ownID string) error {
	existing, err := s.repo.FindBySlug(ctx, slug)
	switch {
	case err == nil && existing.ID != ownID:
		return ErrSlugTaken
	case err == nil, errors.Is(err, ErrNotFound):
		return nil
	default:
		return err
	}
}

func validate(p Product) error {
	if p.Name == "" {
		return validation.Required("name")
	}
	if p.Team == "" {
		return validation.Required("team")
	}
	if p.PriceCents <= 0 {
		return validation.Invalid("price_cents", "must be positive")
	}
	if p.CustomizationFeeCents < 0 {
		return validation.Invalid("customization_fee_cents", "must not be negative")
	}
	if len(p.Sizes)+len(p.KidsSizes) == 0 {
		return validation.Invalid("sizes", "at least one size is required")
	}
	adult := sizing.AdultSizes()
	for _, size := range p.Sizes {
		if !contains(adult, size) {
			return validation.Invalid("sizes", "unknown adult size "+size)
		}
	}
	kids := sizing.KidsSizes()
	for _, size := range p.KidsSizes {
		if !contains(kids, size) {
			return validation.Invalid("kids_sizes", "unknown kids size "+size)
		}
	}
	return nil
}

func normalizeSizes(in []string) []string {
	out := make([]string, 0, len(in))
	seen := make(map[string]bool, len(in))
	for _, s := range in {
		s = strings.ToUpper(strings.TrimSpace(s))
		if s == "" || seen[s] {
			continue
		}
		seen[s] = true
		out = append(out, s)
	}
	return out
}

func trimAll(in []string) []string {
	var out []string
	for _, s := range in {
		if s = strings.TrimSpace(s); s != "" {
			out = append(out, s)
		}
	}
	return out
}

func contains(list []string, v string) bool {
	for _, s := range list {
		if s == v {
			return true
		}
	}
	return false
}
