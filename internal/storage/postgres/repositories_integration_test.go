//go:build integration

package postgres_test

import (
	"context"
	"database/sql"
	"errors"
	"testing"
	"time"

	"github.com/jerseyhouse/storefront/internal/domain/customers"
	"github.com/jerseyhouse/storefront/internal/domain/delivery"
	"github.com/jerseyhouse/storefront/internal/domain/discounts"
	"github.com/jerseyhouse/storefront/internal/domain/imports"
	"github.com/jerseyhouse/storefront/internal/domain/orders"
	"github.com/jerseyhouse/storefront/internal/domain/otp"
	pgstorage "github.com/jerseyhouse/storefront/internal/storage/postgres"
)

func seedOrder(t *testing.T, db *sql.DB, code, phone string) orders.Order {
	t.Helper()
	ctx := context.Background()

	customer, err := pgstorage.NewCustomerRepository(db).Save(ctx, customers.Customer{FirstName: "Nimal", Phone: phone})
	if err != nil {
		t.Fatalf("save customer: %v", err)
	}
	order, err := pgstorage.NewOrderRepository(db).Save(ctx, orders.Order{
		Code:          code,
		CustomerID:    customer.ID,
		SubtotalCents: 450000,
		TotalCents:    450000,
		PaymentMethod: orders.PaymentCOD,
		PaymentStatus: orders.PaymentPending,
		Status:        orders.StatusConfirmed,
		ShippingAddress: orders.Address{
			FullName: "Nimal Silva",
			Phone:    phone,
			Line1:    "4 Temple Road",
			City:     "Kandy",
		},
	})
	if err != nil {
		t.Fatalf("save order: %v", err)
	}
	return order
}

func TestDeliverySaveIsConditionalOnStage(t *testing.T) {
	db := setupTestDB(t)
	defer db.Close()

	ctx := context.Background()
	order := seedOrder(t, db, "JS-DELIVERY", "94770000001")
	repo := pgstorage.NewDeliveryRepository(db)

	now := time.Now().UTC().Truncate(time.Microsecond)
	status := delivery.Status{
		OrderID:   order.ID,
		Stage:     delivery.StageOrderConfirmed,
		UpdatedAt: now,
		History:   []delivery.Event{{Stage: delivery.StageOrderConfirmed, At: now}},
	}
	if _, err := repo.Save(ctx, status, ""); err != nil {
		t.Fatalf("create tracker: %v", err)
	}
	if _, err := repo.Save(ctx, status, ""); !errors.Is(err, delivery.ErrStageChanged) {
		t.Fatalf("expected ErrStageChanged creating twice, got %v", err)
	}

	advanced := status
	advanced.Stage = delivery.StageSourcing
	advanced.History = append(append([]delivery.Event{}, status.History...), delivery.Event{Stage: delivery.StageSourcing, At: now})
	if _, err := repo.Save(ctx, advanced, delivery.StageOrderConfirmed); err != nil {
		t.Fatalf("advance: %v", err)
	}

	// A writer still holding the ORDER_CONFIRMED read must lose.
	stale := status
	stale.Stage = delivery.StageArrived
	stale.History = append(append([]delivery.Event{}, status.History...), delivery.Event{Stage: delivery.StageArrived, At: now})
	if _, err := repo.Save(ctx, stale, delivery.StageOrderConfirmed); !errors.Is(err, delivery.ErrStageChanged) {
		t.Fatalf("expected ErrStageChanged for stale write, got %v", err)
	}

	got, err := repo.Find(ctx, order.ID)
	if err != nil {
		t.Fatalf("find: %v", err)
	}
	if got.Stage != delivery.StageSourcing || len(got.History) != 2 {
		t.Fatalf("unexpected tracker %+v", got)
	}

	if _, err := repo.Find(ctx, "not-a-uuid"); !errors.Is(err, delivery.ErrNotFound) {
		t.Fatalf("expected ErrNotFound for malformed id, got %v", err)
	}
}

func TestDiscountSaveKeepsUsedCountIntegration(t *testing.T) {
	db := setupTestDB(t)
	defer db.Close()

	ctx := context.Background()
	repo := pgstorage.NewDiscountRepository(db)

	code := discounts.Code{Code: "AVURUDU", Kind: discounts.KindPercentage, Value: 10, MaxUses: 5, Active: true}
	if _, err := repo.Save(ctx, code); err != nil {
		t.Fatalf("save code: %v", err)
	}
	if _, err := repo.IncrementUse(ctx, "AVURUDU"); err != nil {
		t.Fatalf("use code: %v", err)
	}

	code.Active = false
	saved, err := repo.Save(ctx, code)
	if err != nil {
		t.Fatalf("deactivate: %v", err)
	}
	if saved.UsedCount != 1 || saved.Active {
		t.Fatalf("expected used_count 1 and inactive, got %+v", saved)
	}
}

func TestOTPRepositoryAttemptsIntegration(t *testing.T) {
	db := setupTestDB(t)
	defer db.Close()

	ctx := context.Background()
	repo := pgstorage.NewOTPRepository(db)
	now := time.Now().UTC().Truncate(time.Microsecond)

	if _, err := repo.RecordAttempt(ctx, "94770000002", 3); !errors.Is(err, otp.ErrNotFound) {
		t.Fatalf("expected ErrNotFound without a challenge, got %v", err)
	}

	challenge := otp.Challenge{Phone: "94770000002", CodeHash: "hash-1", ExpiresAt: now.Add(5 * time.Minute), CreatedAt: now}
	if err := repo.Save(ctx, challenge); err != nil {
		t.Fatalf("save challenge: %v", err)
	}
	for i := 1; i <= 3; i++ {
		c, err := repo.RecordAttempt(ctx, "94770000002", 3)
		if err != nil {
			t.Fatalf("attempt %d: %v", i, err)
		}
		if c.Attempts != i {
			t.Fatalf("attempt %d recorded as %d", i, c.Attempts)
		}
	}
	if _, err := repo.RecordAttempt(ctx, "94770000002", 3); !errors.Is(err, otp.ErrTooManyAttempts) {
		t.Fatalf("expected ErrTooManyAttempts, got %v", err)
	}

	if err := repo.MarkVerified(ctx, "94770000002", "hash-old", now); !errors.Is(err, otp.ErrNotFound) {
		t.Fatalf("expected ErrNotFound for replaced code, got %v", err)
	}
	if err := repo.MarkVerified(ctx, "94770000002", "hash-1", now); err != nil {
		t.Fatalf("mark verified: %v", err)
	}

	// Resending replaces the challenge and resets the attempt count.
	challenge.CodeHash = "hash-2"
	if err := repo.Save(ctx, challenge); err != nil {
		t.Fatalf("resave challenge: %v", err)
	}
	got, err := repo.Find(ctx, "94770000002")
	if err != nil {
		t.Fatalf("find challenge: %v", err)
	}
	if got.CodeHash != "hash-2" || got.Attempts != 0 || got.VerifiedAt != nil {
		t.Fatalf("unexpected challenge %+v", got)
	}
}

func TestImportBatchRepositoryIntegration(t *testing.T) {
	db := setupTestDB(t)
	defer db.Close()

	ctx := context.Background()
	first := seedOrder(t, db, "JS-IMPORT1", "94770000003")
	second := seedOrder(t, db, "JS-IMPORT2", "94770000004")
	repo := pgstorage.NewImportBatchRepository(db)

	batch, err := repo.Save(ctx, imports.Batch{
		Reference: "TH-2026-10",
		Supplier:  "Bangkok Sportswear",
		Status:    imports.StatusCollecting,
		OrderIDs:  []string{second.ID, first.ID},
	})
	if err != nil {
		t.Fatalf("save batch: %v", err)
	}

	got, err := repo.FindByID(ctx, batch.ID)
	if err != nil {
		t.Fatalf("find batch: %v", err)
	}
	if len(got.OrderIDs) != 2 || got.OrderIDs[0] != second.ID || got.OrderIDs[1] != first.ID {
		t.Fatalf("expected membership in insertion order, got %v", got.OrderIDs)
	}

	got.OrderIDs = got.OrderIDs[1:]
	got.Status = imports.StatusOrdered
	if _, err := repo.Save(ctx, got); err != nil {
		t.Fatalf("update batch: %v", err)
	}
	got, err = repo.FindByID(ctx, batch.ID)
	if err != nil {
		t.Fatalf("refetch batch: %v", err)
	}
	if got.Status != imports.StatusOrdered || len(got.OrderIDs) != 1 || got.OrderIDs[0] != first.ID {
		t.Fatalf("unexpected batch after update %+v", got)
	}

	if _, err := repo.FindByID(ctx, "batch-42"); !errors.Is(err, imports.ErrNotFound) {
		t.Fatalf("expected ErrNotFound for malformed id, got %v", err)
	}
}
