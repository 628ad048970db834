// Package imports groups confirmed orders into supplier import batches and
// pushes batch milestones down to each order's delivery tracker.
package imports

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/jerseyhouse/storefront/internal/domain/delivery"
	"github.com/jerseyhouse/storefront/internal/domain/orders"
	"github.com/jerseyhouse/storefront/internal/validation"
)

var (
	ErrNotImplemented    = errors.New("imports repository: not implemented")
	ErrNotFound          = errors.New("import batch not found")
	ErrInvalidTransition = errors.New("import batch cannot advance")
	ErrBatchClosed       = errors.New("import batch is no longer collecting orders")
)

// Status is a batch's position in the supplier pipeline.
type Status string

const (
	StatusCollecting Status = "collecting"
	StatusOrdered    Status = "ordered"
	StatusInTransit  Status = "in_transit"
	StatusArrived    Status = "arrived"
)

var statusOrder = []Status{StatusCollecting, StatusOrdered, StatusInTransit, StatusArrived}

// Next returns the following status, or false at the end of the pipeline.
func (s Status) Next() (Status, bool) {
	for i, st := range statusOrder {
		if st == s && i+1 < len(statusOrder) {
			return statusOrder[i+1], true
		}
	}
	return "", false
}

// ParseStatus accepts status names case-insensitively.
func ParseStatus(s string) (Status, error) {
	st := Status(strings.ToLower(strings.TrimSpace(s)))
	for _, known := range statusOrder {
		if st == known {
			return st, nil
		}
	}
	return "", validation.Invalid("status", fmt.Sprintf("unknown batch status %q", s))
}

// deliveryStage is the stage each member order must reach when the batch
// enters a status. Statuses without an entry do not touch deliveries.
var deliveryStage = map[Status]delivery.Stage{
	StatusOrdered: delivery.StageSourcing,
	StatusArrived: delivery.StageArrived,
}

// Batch is one consolidated supplier order.
type Batch struct {
	ID        string     `json:"id"`
	Reference string     `json:"reference"`
	Supplier  string     `json:"supplier"`
	Status    Status     `json:"status"`
	OrderIDs  []string   `json:"order_ids"`
	Notes     string     `json:"notes,omitempty"`
	CreatedAt time.Time  `json:"created_at"`
	UpdatedAt time.Time  `json:"updated_at"`
	OrderedAt *time.Time `json:"ordered_at,omitempty"`
	ArrivedAt *time.Time `json:"arrived_at,omitempty"`
}

// Repository abstracts batch persistence.
type Repository interface {
	FindByID(ctx context.Context, id string) (Batch, error)
	Save(ctx context.Context, batch Batch) (Batch, error)
	List(ctx context.Context, status Status, offset, limit int) ([]Batch, error)
}

// NullRepository returns ErrNotImplemented for all operations.
type NullRepository struct{}

func (NullRepository) FindByID(context.Context, string) (Batch, error) {
	return Batch{}, ErrNotImplemented
}

func (NullRepository) Save(context.Context, Batch) (Batch, error) {
	return Batch{}, ErrNotImplemented
}

func (NullRepository) List(context.Context, Status, int, int) ([]Batch, error) {
	return nil, ErrNotImplemented
}

// CreateInput opens a new batch.
type CreateInput struct {
	Reference string `json:"reference"`
	Supplier  string `json:"supplier"`
	Notes     string `json:"notes"`
}

// AdvanceResult reports the batch after the move and any member orders
// whose delivery could not be updated.
type AdvanceResult struct {
	Batch    Batch                 `json:"batch"`
	Failures []delivery.BulkResult `json:"failures,omitempty"`
}

// Service manages import batches.
type Service interface {
	Create(ctx context.Context, input CreateInput) (Batch, error)
	Get(ctx context.Context, id string) (Batch, error)
	List(ctx context.Context, status Status, offset, limit int) ([]Batch, error)
	AddOrders(ctx context.Context, id string, orderIDs []string) (Batch, error)
	Advance(ctx context.Context, id, actor string) (AdvanceResult, error)
}

// OrderLookup resolves the orders being added to a batch.
type OrderLookup interface {
	Get(ctx context.Context, id string) (orders.Order, error)
}

// Options wires the imports service.
type Options struct {
	Repo     Repository
	Orders   OrderLookup
	Delivery delivery.Service
	Logger   *slog.Logger
	Now      func() time.Time
}

// NewService builds the imports service.
func NewService(opts Options) Service {
	if opts.Repo == nil {
		opts.Repo = NullRepository{}
	}
	if opts.Logger == nil {
		opts.Logger = slog.Default()
	}
	if opts.Now == nil {
		opts.Now = func() time.Time { return time.Now().UTC() }
	}
	return &service{opts: opts}
}

type service struct {
	opts Options
}

func (s *service) Create(ctx context.Context, input CreateInput) (Batch, error) {
	ref := strings.TrimSpace(input.Reference)
	if ref == "" {
		return Batch{}, validation.Required("reference")
	}
	supplier := strings.TrimSpace(input.Supplier)
	if supplier == "" {
		return Batch{}, validation.Required("supplier")
	}
	return s.opts.Repo.Save(ctx, Batch{
		Reference: ref,
		Supplier:  supplier,
		Status:    StatusCollecting,
		OrderIDs:  []string{},
		Notes:     strings.TrimSpace(input.Notes),
	})
}

func (s *service) Get(ctx context.Context, id string) (Batch, error) {
	return s.opts.Repo.FindByID(ctx, id)
}

func (s *service) List(ctx context.Context, status Status, offset, limit int) ([]Batch, error) {
	return s.opts.Repo.List(ctx, status, offset, limit)
}

func (s *service) AddOrders(ctx context.Context, id string, orderIDs []string) (Batch, error) {
	batch, err := s.opts.Repo.FindByID(ctx, id)
	if err != nil {
		return Batch{}, err
	}
	if batch.Status != StatusCollecting {
		return Batch{}, ErrBatchClosed
	}

	seen := make(map[string]struct{}, len(batch.OrderIDs))
	for _, existing := range batch.OrderIDs {
		seen[existing] = struct{}{}
	}
	var added []string
	for _, orderID := range orderIDs {
		orderID = strings.TrimSpace(orderID)
		if orderID == "" {
			continue
		}
		if _, ok := seen[orderID]; ok {
			continue
		}
		if err := s.checkOrder(ctx, orderID); err != nil {
			return Batch{}, err
		}
		seen[orderID] = struct{}{}
		added = append(added, orderID)
	}
	batch.OrderIDs = append(batch.OrderIDs, added...)
	return s.opts.Repo.Save(ctx, batch)
}

// checkOrder admits only confirmed orders: unpaid or cancelled orders must
// never get a delivery tracker through a batch.
func (s *service) checkOrder(ctx context.Context, orderID string) error {
	if s.opts.Orders == nil {
		return nil
	}
	o, err := s.opts.Orders.Get(ctx, orderID)
	if errors.Is(err, orders.ErrNotFound) {
		return validation.Invalid("order_ids", fmt.Sprintf("unknown order %q", orderID))
	}
	if err != nil {
		return err
	}
	if o.Status != orders.StatusConfirmed {
		return validation.Invalid("order_ids", fmt.Sprintf("order %s is %s; only confirmed orders can be imported", o.Code, o.Status))
	}
	return nil
}

// Advance saves the batch before propagating, so delivery failures never
// roll the batch back.
func (s *service) Advance(ctx context.Context, id, actor string) (AdvanceResult, error) {
	batch, err := s.opts.Repo.FindByID(ctx, id)
	if err != nil {
		return AdvanceResult{}, err
	}
	next, ok := batch.Status.Next()
	if !ok {
		return AdvanceResult{}, fmt.Errorf("%w: already %s", ErrInvalidTransition, batch.Status)
	}

	now := s.opts.Now()
	batch.Status = next
	switch next {
	case StatusOrdered:
		batch.OrderedAt = &now
	case StatusArrived:
		batch.ArrivedAt = &now
	}
	saved, err := s.opts.Repo.Save(ctx, batch)
	if err != nil {
		return AdvanceResult{}, err
	}
	s.opts.Logger.Info("import_batch_advanced", "batch_id", saved.ID, "status", saved.Status, "orders", len(saved.OrderIDs))

	result := AdvanceResult{Batch: saved}
	stage, ok := deliveryStage[next]
	if !ok || s.opts.Delivery == nil || len(saved.OrderIDs) == 0 {
		return result, nil
	}

	note := fmt.Sprintf("import batch %s %s", saved.Reference, next)
	for _, r := range s.opts.Delivery.BulkAdvanceAtLeast(ctx, saved.OrderIDs, stage, note, actor) {
		if r.Err != nil {
			s.opts.Logger.Warn("import batch delivery update failed", "batch_id", saved.ID, "order_id", r.OrderID, "err", r.Err)
			result.Failures = append(result.Failures, r)
		}
	}
	return result, nil
}
