package delivery

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/jerseyhouse/storefront/internal/validation"
)

var (
	ErrNotImplemented    = errors.New("delivery repository: not implemented")
	ErrNotFound          = errors.New("delivery status not found")
	ErrInvalidTransition = errors.New("invalid delivery stage transition")
	ErrUnknownStage      = errors.New("unknown delivery stage")
	// ErrStageChanged is returned by Repository.Save when the stored stage no
	// longer matches the one the caller read.
	ErrStageChanged = errors.New("delivery stage changed concurrently")
)

// maxSaveRetries bounds re-reads after ErrStageChanged.
const maxSaveRetries = 5

// Stage is a step in the delivery pipeline. Stages only move forward.
type Stage string

const (
	StageOrderConfirmed Stage = "ORDER_CONFIRMED"
	StageSourcing       Stage = "SOURCING"
	StageArrived        Stage = "ARRIVED"
	StageDispatched     Stage = "DISPATCHED"
	StageDelivered      Stage = "DELIVERED"
)

var stageOrder = []Stage{
	StageOrderConfirmed,
	StageSourcing,
	StageArrived,
	StageDispatched,
	StageDelivered,
}

// Stages returns the pipeline in order.
func Stages() []Stage {
	return append([]Stage(nil), stageOrder...)
}

// ParseStage accepts stage names case-insensitively.
func ParseStage(s string) (Stage, error) {
	st := Stage(strings.ToUpper(strings.TrimSpace(s)))
	if st.rank() < 0 {
		return "", fmt.Errorf("%w: %q", ErrUnknownStage, s)
	}
	return st, nil
}

func (s Stage) rank() int {
	for i, st := range stageOrder {
		if st == s {
			return i
		}
	}
	return -1
}

// Before reports whether s comes earlier in the pipeline than other.
func (s Stage) Before(other Stage) bool {
	return s.rank() < other.rank()
}

// Label is the customer-facing wording for a stage.
func (s Stage) Label() string {
	switch s {
	case StageOrderConfirmed:
		return "Order confirmed"
	case StageSourcing:
		return "Sourcing from supplier"
	case StageArrived:
		return "Arrived in Sri Lanka"
	case StageDispatched:
		return "Dispatched"
	case StageDelivered:
		return "Delivered"
	default:
		return string(s)
	}
}

// Event is one entry of the status history.
type Event struct {
	Stage Stage     `json:"stage"`
	Note  string    `json:"note,omitempty"`
	Actor string    `json:"actor,omitempty"`
	At    time.Time `json:"at"`
}

// Status is the delivery state of a single order.
type Status struct {
	OrderID        string    `json:"order_id"`
	Stage          Stage     `json:"stage"`
	Courier        string    `json:"courier,omitempty"`
	TrackingNumber string    `json:"tracking_number,omitempty"`
	UpdatedAt      time.Time `json:"updated_at"`
	History        []Event   `json:"history"`
}

// Repository abstracts persistence for delivery statuses.
type Repository interface {
	Find(ctx context.Context, orderID string) (Status, error)
	// Save stores status only if the stored stage still equals expected; an
	// empty expected means no status may exist yet. Otherwise it returns
	// ErrStageChanged. History events beyond those stored are appended.
	Save(ctx context.Context, status Status, expected Stage) (Status, error)
	ListByStage(ctx context.Context, stage Stage, offset, limit int) ([]Status, error)
}

// NullRepository stub implementation returning ErrNotImplemented.
type NullRepository struct{}

func (NullRepository) Find(context.Context, string) (Status, error) {
	return Status{}, ErrNotImplemented
}

func (NullRepository) Save(context.Context, Status, Stage) (Status, error) {
	return Status{}, ErrNotImplemented
}

func (NullRepository) ListByStage(context.Context, Stage, int, int) ([]Status, error) {
	return nil, ErrNotImplemented
}

// Notifier is told about every stage change.
type Notifier interface {
	DeliveryStageChanged(ctx context.Context, status Status) error
}

// AdvanceInput moves an order to a later stage.
type AdvanceInput struct {
	OrderID        string `json:"order_id"`
	Stage          Stage  `json:"stage"`
	Note           string `json:"note"`
	Actor          string `json:"actor"`
	Courier        string `json:"courier"`
	TrackingNumber string `json:"tracking_number"`
}

// BulkResult is the outcome for one order of a bulk update.
type BulkResult struct {
	OrderID string `json:"order_id"`
	Status  Status `json:"status"`
	Error   string `json:"error,omitempty"`
	Err     error  `json:"-"`
}

// Service exposes delivery tracking operations.
type Service interface {
	Start(ctx context.Context, orderID, actor string) (Status, error)
	Advance(ctx context.Context, input AdvanceInput) (Status, error)
	AdvanceAtLeast(ctx context.Context, orderID string, stage Stage, note, actor string) (Status, error)
	Get(ctx context.Context, orderID string) (Status, error)
	ListByStage(ctx context.Context, stage Stage, offset, limit int) ([]Status, error)
	BulkAdvance(ctx context.Context, orderIDs []string, stage Stage, note, actor string) []BulkResult
	BulkAdvanceAtLeast(ctx context.Context, orderIDs []string, stage Stage, note, actor string) []BulkResult
}

// Options configures the delivery service.
type Options struct {
	Repo            Repository
	Notifier        Notifier
	Logger          *slog.Logger
	BulkConcurrency int
	Now             func() time.Time
}

// NewService builds a delivery service.
func NewService(opts Options) Service {
	s := &service{
		repo:     opts.Repo,
		notifier: opts.Notifier,
		logger:   opts.Logger,
		limit:    opts.BulkConcurrency,
		now:      opts.Now,
	}
	if s.repo == nil {
		s.repo = NullRepository{}
	}
	if s.logger == nil {
		s.logger = slog.Default()
	}
	if s.limit <= 0 {
		s.limit = 8
	}
	if s.now == nil {
		s.now = func() time.Time { return time.Now().UTC() }
	}
	return s
}

type service struct {
	repo     Repository
	notifier Notifier
	logger   *slog.Logger
	limit    int
	now      func() time.Time
}

func (s *service) Start(ctx context.Context, orderID, actor string) (Status, error) {
	orderID = strings.TrimSpace(orderID)
	if orderID == "" {
		return Status{}, validation.Required("order_id")
	}

	existing, err := s.repo.Find(ctx, orderID)
	if err == nil {
		return existing, nil
	}
	if !errors.Is(err, ErrNotFound) {
		return Status{}, err
	}

	now := s.now()
	status := Status{
		OrderID:   orderID,
		Stage:     StageOrderConfirmed,
		UpdatedAt: now,
		History: []Event{{
			Stage: StageOrderConfirmed,
			Note:  "order confirmed",
			Actor: actor,
			At:    now,
		}},
	}
	saved, err := s.repo.Save(ctx, status, "")
	if errors.Is(err, ErrStageChanged) {
		return s.repo.Find(ctx, orderID)
	}
	if err != nil {
		return Status{}, err
	}
	s.logger.Info("delivery_started", "order_id", orderID)
	return saved, nil
}

func (s *service) Advance(ctx context.Context, input AdvanceInput) (Status, error) {
	if strings.TrimSpace(input.OrderID) == "" {
		return Status{}, validation.Required("order_id")
	}
	if input.Stage.rank() < 0 {
		return Status{}, fmt.Errorf("%w: %q", ErrUnknownStage, input.Stage)
	}

	for attempt := 0; ; attempt++ {
		saved, err := s.advanceOnce(ctx, input)
		if errors.Is(err, ErrStageChanged) && attempt < maxSaveRetries {
			continue
		}
		if errors.Is(err, ErrStageChanged) {
			return Status{}, fmt.Errorf("%w: %v", ErrInvalidTransition, err)
		}
		if err != nil {
			return Status{}, err
		}
		s.logger.Info("delivery_advanced", "order_id", saved.OrderID, "stage", saved.Stage, "actor", input.Actor)
		s.notify(ctx, saved)
		return saved, nil
	}
}

// advanceOnce applies input against the stage it reads, leaving the
// conditional Save to reject interleaved writers.
func (s *service) advanceOnce(ctx context.Context, input AdvanceInput) (Status, error) {
	status, err := s.repo.Find(ctx, input.OrderID)
	if err != nil {
		return Status{}, err
	}
	if !status.Stage.Before(input.Stage) {
		return Status{}, fmt.Errorf("%w: %s to %s", ErrInvalidTransition, status.Stage, input.Stage)
	}

	read := status.Stage
	now := s.now()
	status.Stage = input.Stage
	status.UpdatedAt = now
	if c := strings.TrimSpace(input.Courier); c != "" {
		status.Courier = c
	}
	if tn := strings.TrimSpace(input.TrackingNumber); tn != "" {
		status.TrackingNumber = tn
	}
	status.History = append(status.History, Event{
		Stage: input.Stage,
		Note:  strings.TrimSpace(input.Note),
		Actor: input.Actor,
		At:    now,
	})

	return s.repo.Save(ctx, status, read)
}

func (s *service) AdvanceAtLeast(ctx context.Context, orderID string, stage Stage, note, actor string) (Status, error) {
	status, err := s.repo.Find(ctx, orderID)
	if errors.Is(err, ErrNotFound) {
		status, err = s.Start(ctx, orderID, actor)
	}
	if err != nil {
		return Status{}, err
	}
	if !status.Stage.Before(stage) {
		return status, nil
	}
	advanced, err := s.Advance(ctx, AdvanceInput{OrderID: orderID, Stage: stage, Note: note, Actor: actor})
	if errors.Is(err, ErrInvalidTransition) {
		// Another writer may have moved the order past stage meanwhile.
		if current, ferr := s.repo.Find(ctx, orderID); ferr == nil && !current.Stage.Before(stage) {
			return current, nil
		}
	}
	return advanced, err
}

func (s *service) Get(ctx context.Context, orderID string) (Status, error) {
	return s.repo.Find(ctx, orderID)
}

func (s *service) ListByStage(ctx context.Context, stage Stage, offset, limit int) ([]Status, error) {
	return s.repo.ListByStage(ctx, stage, offset, limit)
}

// BulkAdvance never stops at the first failure; every order gets a result.
func (s *service) BulkAdvance(ctx context.Context, orderIDs []string, stage Stage, note, actor string) []BulkResult {
	return s.bulk(ctx, orderIDs, stage, func(ctx context.Context, id string) (Status, error) {
		return s.Advance(ctx, AdvanceInput{OrderID: id, Stage: stage, Note: note, Actor: actor})
	})
}

// BulkAdvanceAtLeast is BulkAdvance with AdvanceAtLeast semantics per order.
func (s *service) BulkAdvanceAtLeast(ctx context.Context, orderIDs []string, stage Stage, note, actor string) []BulkResult {
	return s.bulk(ctx, orderIDs, stage, func(ctx context.Context, id string) (Status, error) {
		return s.AdvanceAtLeast(ctx, id, stage, note, actor)
	})
}

func (s *service) bulk(ctx context.Context, orderIDs []string, stage Stage, fn func(context.Context, string) (Status, error)) []BulkResult {
	results := make([]BulkResult, len(orderIDs))
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(s.limit)
	for i, id := range orderIDs {
		g.Go(func() error {
			status, err := fn(gctx, id)
			results[i] = BulkResult{OrderID: id, Status: status, Err: err}
			if err != nil {
				results[i].Error = err.Error()
			}
			return nil
		})
	}
	_ = g.Wait()

	failed := 0
	for _, r := range results {
		if r.Err != nil {
			failed++
		}
	}
	s.logger.Info("delivery_bulk_advanced", "stage", stage, "total", len(orderIDs), "failed", failed)
	return results
}

func (s *service) notify(ctx context.Context, status Status) {
	if s.notifier == nil {
		return
	}
	if err := s.notifier.DeliveryStageChanged(ctx, status); err != nil {
		s.logger.Warn("delivery notification failed", "order_id", status.OrderID, "stage", status.Stage, "err", err)
	}
}
