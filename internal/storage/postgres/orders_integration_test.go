//go:build integration

package postgres_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/jerseyhouse/storefront/internal/domain/customers"
	"github.com/jerseyhouse/storefront/internal/domain/delivery"
	"github.com/jerseyhouse/storefront/internal/domain/discounts"
	"github.com/jerseyhouse/storefront/internal/domain/orders"
	"github.com/jerseyhouse/storefront/internal/domain/products"
	pgstorage "github.com/jerseyhouse/storefront/internal/storage/postgres"
)

func TestOrderAndDeliveryRepositoriesIntegration(t *testing.T) {
	db := setupTestDB(t)
	defer db.Close()

	ctx := context.Background()

	product, err := pgstorage.NewProductRepository(db).Save(ctx, products.Product{
		Slug:       "sri-lanka-home-2024",
		Name:       "Sri Lanka Home 2024",
		Team:       "Sri Lanka",
		Kind:       products.KindHome,
		PriceCents: 450000,
		Sizes:      []string{"S", "M", "L"},
		Active:     true,
	})
	if err != nil {
		t.Fatalf("save product: %v", err)
	}
	if len(product.Sizes) != 3 {
		t.Fatalf("expected sizes to round trip, got %v", product.Sizes)
	}

	customer, err := pgstorage.NewCustomerRepository(db).Save(ctx, customers.Customer{FirstName: "Kasun", Phone: "94771234567"})
	if err != nil {
		t.Fatalf("save customer: %v", err)
	}

	repo := pgstorage.NewOrderRepository(db)
	order, err := repo.Save(ctx, orders.Order{
		Code:       "JS-ABCDEFGH",
		CustomerID: customer.ID,
		Items: []orders.Item{{
			ProductID:      product.ID,
			ProductName:    product.Name,
			Size:           "M",
			Quantity:       2,
			UnitPriceCents: 450000,
		}},
		SubtotalCents: 900000,
		TotalCents:    900000,
		PaymentMethod: orders.PaymentCOD,
		PaymentStatus: orders.PaymentPending,
		Status:        orders.StatusConfirmed,
		ShippingAddress: orders.Address{
			FullName: "Kasun Perera",
			Phone:    "94771234567",
			Line1:    "12 Galle Road",
			City:     "Colombo",
		},
	})
	if err != nil {
		t.Fatalf("save order: %v", err)
	}

	byCode, err := repo.FindByCode(ctx, "JS-ABCDEFGH")
	if err != nil {
		t.Fatalf("find order: %v", err)
	}
	if byCode.ID != order.ID || len(byCode.Items) != 1 || byCode.Items[0].Quantity != 2 {
		t.Fatalf("unexpected order %+v", byCode)
	}

	deliveries := pgstorage.NewDeliveryRepository(db)
	now := time.Now().UTC().Truncate(time.Microsecond)
	status := delivery.Status{
		OrderID:   order.ID,
		Stage:     delivery.StageOrderConfirmed,
		UpdatedAt: now,
		History:   []delivery.Event{{Stage: delivery.StageOrderConfirmed, At: now}},
	}
	if _, err := deliveries.Save(ctx, status, ""); err != nil {
		t.Fatalf("save delivery: %v", err)
	}
	status.Stage = delivery.StageSourcing
	status.History = append(status.History, delivery.Event{Stage: delivery.StageSourcing, At: now})
	if _, err := deliveries.Save(ctx, status, delivery.StageOrderConfirmed); err != nil {
		t.Fatalf("save delivery again: %v", err)
	}

	got, err := deliveries.Find(ctx, order.ID)
	if err != nil {
		t.Fatalf("find delivery: %v", err)
	}
	if got.Stage != delivery.StageSourcing || len(got.History) != 2 {
		t.Fatalf("unexpected delivery %+v", got)
	}
}

func TestDiscountIncrementUseIntegration(t *testing.T) {
	db := setupTestDB(t)
	defer db.Close()

	ctx := context.Background()
	repo := pgstorage.NewDiscountRepository(db)

	if _, err := repo.Save(ctx, discounts.Code{Code: "ONCE", Kind: discounts.KindFixed, Value: 1000, MaxUses: 1, Active: true}); err != nil {
		t.Fatalf("save code: %v", err)
	}
	if _, err := repo.IncrementUse(ctx, "ONCE"); err != nil {
		t.Fatalf("first use: %v", err)
	}
	if _, err := repo.IncrementUse(ctx, "ONCE"); !errors.Is(err, discounts.ErrExhausted) {
		t.Fatalf("expected ErrExhausted, got %v", err)
	}
	if _, err := repo.IncrementUse(ctx, "MISSING"); !errors.Is(err, discounts.ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
}
