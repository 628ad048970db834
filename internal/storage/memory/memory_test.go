package memory

import (
	"context"
	"errors"
	"testing"

	"github.com/jerseyhouse/storefront/internal/domain/customers"
	"github.com/jerseyhouse/storefront/internal/domain/discounts"
	"github.com/jerseyhouse/storefront/internal/domain/orders"
)

func TestPage(t *testing.T) {
	list := []int{1, 2, 3, 4, 5}

	if got := page(list, 1, 2); len(got) != 2 || got[0] != 2 {
		t.Fatalf("unexpected page %v", got)
	}
	if got := page(list, 3, 0); len(got) != 2 || got[1] != 5 {
		t.Fatalf("non-positive limit should return the rest, got %v", got)
	}
	if got := page(list, 10, 5); len(got) != 0 {
		t.Fatalf("offset past end should be empty, got %v", got)
	}
	if got := page(list, -1, 1); len(got) != 1 || got[0] != 1 {
		t.Fatalf("negative offset should clamp to zero, got %v", got)
	}
}

func TestOrderRepositoryIsolatesItems(t *testing.T) {
	ctx := context.Background()
	repo := NewOrderRepository()

	saved, err := repo.Save(ctx, orders.Order{
		Code:  "JH-0001",
		Items: []orders.Item{{ProductID: "p1", Size: "M", Quantity: 1}},
	})
	if err != nil {
		t.Fatalf("save: %v", err)
	}
	saved.Items[0].Quantity = 99

	fetched, err := repo.FindByCode(ctx, "JH-0001")
	if err != nil {
		t.Fatalf("find by code: %v", err)
	}
	if fetched.Items[0].Quantity != 1 {
		t.Fatalf("stored items mutated through returned order")
	}

	if _, err := repo.Save(ctx, orders.Order{ID: "unknown"}); !errors.Is(err, orders.ErrNotFound) {
		t.Fatalf("expected ErrNotFound for unknown id, got %v", err)
	}
}

func TestCustomerRepositoryRejectsDuplicatePhone(t *testing.T) {
	ctx := context.Background()
	repo := NewCustomerRepository()

	first, err := repo.Save(ctx, customers.Customer{FirstName: "Kasun", Phone: "94771234567"})
	if err != nil {
		t.Fatalf("save: %v", err)
	}
	if _, err := repo.Save(ctx, customers.Customer{FirstName: "Other", Phone: "94771234567"}); !errors.Is(err, customers.ErrPhoneTaken) {
		t.Fatalf("expected ErrPhoneTaken, got %v", err)
	}

	first.LastName = "Perera"
	updated, err := repo.Save(ctx, first)
	if err != nil {
		t.Fatalf("update own record: %v", err)
	}
	if !updated.CreatedAt.Equal(first.CreatedAt) {
		t.Fatalf("created_at changed on update")
	}
}

func TestDiscountIncrementUseCap(t *testing.T) {
	ctx := context.Background()
	repo := NewDiscountRepository()
	if _, err := repo.Save(ctx, discounts.Code{Code: "ONCE", MaxUses: 1}); err != nil {
		t.Fatalf("save: %v", err)
	}

	c, err := repo.IncrementUse(ctx, "ONCE")
	if err != nil || c.UsedCount != 1 {
		t.Fatalf("first use: %+v %v", c, err)
	}
	if _, err := repo.IncrementUse(ctx, "ONCE"); !errors.Is(err, discounts.ErrExhausted) {
		t.Fatalf("expected ErrExhausted, got %v", err)
	}
	if _, err := repo.IncrementUse(ctx, "MISSING"); !errors.Is(err, discounts.ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
}

func TestDiscountSaveKeepsUsedCount(t *testing.T) {
	ctx := context.Background()
	repo := NewDiscountRepository()
	if _, err := repo.Save(ctx, discounts.Code{Code: "WELCOME10", Active: true}); err != nil {
		t.Fatalf("save: %v", err)
	}

	stale, err := repo.Find(ctx, "WELCOME10")
	if err != nil {
		t.Fatalf("find: %v", err)
	}
	if _, err := repo.IncrementUse(ctx, "WELCOME10"); err != nil {
		t.Fatalf("increment: %v", err)
	}

	stale.Active = false
	saved, err := repo.Save(ctx, stale)
	if err != nil {
		t.Fatalf("save stale copy: %v", err)
	}
	if saved.UsedCount != 1 || saved.Active {
		t.Fatalf("expected deactivated code with one use, got %+v", saved)
	}
}
