package orders_test

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/jerseyhouse/storefront/internal/domain/customers"
	"github.com/jerseyhouse/storefront/internal/domain/delivery"
	"github.com/jerseyhouse/storefront/internal/domain/discounts"
	"github.com/jerseyhouse/storefront/internal/domain/messaging"
	"github.com/jerseyhouse/storefront/internal/domain/orders"
	"github.com/jerseyhouse/storefront/internal/domain/products"
	"github.com/jerseyhouse/storefront/internal/logger"
	"github.com/jerseyhouse/storefront/internal/payhere"
	"github.com/jerseyhouse/storefront/internal/storage/memory"
	"github.com/jerseyhouse/storefront/internal/validation"
)

const customerPhone = "94771234567"

type verifier map[string]bool

func (v verifier) IsVerified(_ context.Context, phone string) (bool, error) {
	return v[phone], nil
}

type fixture struct {
	svc       orders.Service
	products  products.Service
	customers customers.Service
	discounts discounts.Service
	delivery  delivery.Service
	messages  messaging.Service
	signer    *payhere.Signer
	verified  verifier
	jersey    products.Product
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	ctx := context.Background()
	log := logger.Discard()

	f := &fixture{
		products:  products.NewService(memory.NewProductRepository()),
		customers: customers.NewService(memory.NewCustomerRepository()),
		discounts: discounts.NewService(memory.NewDiscountRepository()),
		messages: messaging.NewService(messaging.Options{
			Logs:   memory.NewSMSLogRepository(),
			Logger: log,
		}),
		signer: payhere.NewSigner(payhere.Config{
			MerchantID:     "1211149",
			MerchantSecret: "s3cret",
			Sandbox:        true,
		}),
		verified: verifier{},
	}
	f.delivery = delivery.NewService(delivery.Options{Repo: memory.NewDeliveryRepository(), Logger: log})
	f.svc = orders.NewService(orders.Options{
		Repo:                  memory.NewOrderRepository(),
		Products:              f.products,
		Customers:             f.customers,
		Discounts:             f.discounts,
		Verifier:              f.verified,
		Delivery:              f.delivery,
		Messages:              f.messages,
		Payments:              f.signer,
		Logger:                log,
		ShippingFeeCents:      40000,
		FreeShippingThreshold: 1500000,
	})

	var err error
	f.jersey, err = f.products.Create(ctx, products.CreateInput{
		Name:                  "Sri Lanka Home 2025",
		Team:                  "Sri Lanka",
		PriceCents:            650000,
		CustomizationFeeCents: 100000,
		Sizes:                 []string{"M", "L"},
		KidsSizes:             []string{"24"},
		Active:                true,
	})
	if err != nil {
		t.Fatalf("create product: %v", err)
	}
	if _, err := f.discounts.Create(ctx, discounts.CreateInput{Code: "WELCOME10", Kind: "percentage", Value: 10}); err != nil {
		t.Fatalf("create discount: %v", err)
	}
	return f
}

func (f *fixture) checkout(method orders.PaymentMethod, items ...orders.CartItem) orders.CheckoutInput {
	return orders.CheckoutInput{
		Items:     items,
		FirstName: "Kasun",
		LastName:  "Perera",
		Email:     "kasun@example.com",
		Shipping: orders.Address{
			FullName: "Kasun Perera",
			Phone:    "077 123 4567",
			Line1:    "12 Galle Road",
			City:     "Colombo",
		},
		PaymentMethod: method,
	}
}

func (f *fixture) signed(n payhere.Notification) payhere.Notification {
	n.MerchantID = "1211149"
	n.Currency = "LKR"
	n.Signature = f.signer.NotificationSignature(n)
	return n
}

func TestPlaceCODRequiresVerifiedPhone(t *testing.T) {
	f := newFixture(t)
	input := f.checkout(orders.PaymentCOD, orders.CartItem{ProductID: f.jersey.ID, Size: "M", Quantity: 1})

	if _, err := f.svc.Place(context.Background(), input); !errors.Is(err, orders.ErrPhoneNotVerified) {
		t.Fatalf("expected ErrPhoneNotVerified, got %v", err)
	}
}

func TestPlaceCODPricesAndConfirms(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	f.verified[customerPhone] = true

	input := f.checkout(orders.PaymentCOD, orders.CartItem{
		ProductID:    f.jersey.ID,
		Size:         "m",
		Quantity:     2,
		CustomName:   "perera",
		CustomNumber: "7",
	})
	input.DiscountCode = "welcome10"

	placed, err := f.svc.Place(ctx, input)
	if err != nil {
		t.Fatalf("place failed: %v", err)
	}
	o := placed.Order
	if placed.Payment != nil {
		t.Fatalf("cash on delivery must not return a payment form")
	}
	if !strings.HasPrefix(o.Code, "JS-") || len(o.Code) != 11 {
		t.Fatalf("unexpected order code: %s", o.Code)
	}
	if o.Items[0].UnitPriceCents != 750000 || o.Items[0].CustomName != "PERERA" || o.Items[0].Size != "M" {
		t.Fatalf("unexpected item: %+v", o.Items[0])
	}
	if o.SubtotalCents != 1500000 || o.DiscountCents != 150000 {
		t.Fatalf("unexpected subtotal/discount: %d/%d", o.SubtotalCents, o.DiscountCents)
	}
	if o.ShippingCents != 40000 || o.TotalCents != 1390000 {
		t.Fatalf("unexpected shipping/total: %d/%d", o.ShippingCents, o.TotalCents)
	}
	if o.Status != orders.StatusConfirmed || o.PaymentStatus != orders.PaymentPending {
		t.Fatalf("unexpected status: %s/%s", o.Status, o.PaymentStatus)
	}

	code, err := f.discounts.Get(ctx, "WELCOME10")
	if err != nil {
		t.Fatalf("get discount: %v", err)
	}
	if code.UsedCount != 1 {
		t.Fatalf("expected discount to be redeemed once, got %d", code.UsedCount)
	}

	st, err := f.delivery.Get(ctx, o.ID)
	if err != nil {
		t.Fatalf("expected delivery tracking to start: %v", err)
	}
	if st.Stage != delivery.StageOrderConfirmed {
		t.Fatalf("unexpected delivery stage: %s", st.Stage)
	}

	sms, err := f.messages.Logs(ctx, messaging.LogFilter{Purpose: messaging.PurposeOrderConfirmation}, 0, 0)
	if err != nil {
		t.Fatalf("logs: %v", err)
	}
	if len(sms) != 1 || !strings.Contains(sms[0].Body, o.Code) {
		t.Fatalf("expected confirmation sms with order code, got %+v", sms)
	}

	c, err := f.customers.FindByPhone(ctx, customerPhone)
	if err != nil {
		t.Fatalf("customer not created: %v", err)
	}
	if c.ID != o.CustomerID || !c.PhoneVerified {
		t.Fatalf("unexpected customer: %+v", c)
	}
}

func TestPlaceFreeShippingThreshold(t *testing.T) {
	f := newFixture(t)
	f.verified[customerPhone] = true

	placed, err := f.svc.Place(context.Background(), f.checkout(orders.PaymentCOD,
		orders.CartItem{ProductID: f.jersey.ID, Size: "L", Quantity: 3}))
	if err != nil {
		t.Fatalf("place failed: %v", err)
	}
	if placed.Order.ShippingCents != 0 || placed.Order.TotalCents != 1950000 {
		t.Fatalf("expected free shipping, got %d/%d", placed.Order.ShippingCents, placed.Order.TotalCents)
	}
}

func TestPlaceRejectsBadCarts(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	f.verified[customerPhone] = true

	hidden, err := f.products.Create(ctx, products.CreateInput{
		Name: "Hidden Jersey", Team: "Team", PriceCents: 100, Sizes: []string{"M"},
	})
	if err != nil {
		t.Fatalf("create product: %v", err)
	}

	cases := []struct {
		name string
		item *orders.CartItem
		want error
	}{
		{name: "empty cart", want: orders.ErrEmptyCart},
		{name: "unknown product", item: &orders.CartItem{ProductID: "nope", Size: "M", Quantity: 1}, want: orders.ErrProductUnavailable},
		{name: "inactive product", item: &orders.CartItem{ProductID: hidden.ID, Size: "M", Quantity: 1}, want: orders.ErrProductUnavailable},
		{name: "size not offered", item: &orders.CartItem{ProductID: f.jersey.ID, Size: "3XL", Quantity: 1}, want: orders.ErrSizeUnavailable},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			var items []orders.CartItem
			if tc.item != nil {
				items = append(items, *tc.item)
			}
			if _, err := f.svc.Place(ctx, f.checkout(orders.PaymentCOD, items...)); !errors.Is(err, tc.want) {
				t.Fatalf("expected %v, got %v", tc.want, err)
			}
		})
	}

	invalid := []orders.CartItem{
		{ProductID: f.jersey.ID, Size: "M", Quantity: 0},
		{ProductID: f.jersey.ID, Size: "M", Quantity: 21},
		{ProductID: f.jersey.ID, Size: "M", Quantity: 1, CustomName: "WAYTOOLONGNAME"},
		{ProductID: f.jersey.ID, Size: "M", Quantity: 1, CustomName: "R2D2"},
		{ProductID: f.jersey.ID, Size: "M", Quantity: 1, CustomNumber: "100"},
	}
	for _, item := range invalid {
		if _, err := f.svc.Place(ctx, f.checkout(orders.PaymentCOD, item)); !validation.Is(err) {
			t.Fatalf("expected validation error for %+v, got %v", item, err)
		}
	}

	bad := f.checkout(orders.PaymentCOD, orders.CartItem{ProductID: f.jersey.ID, Size: "M", Quantity: 1})
	bad.Shipping.City = ""
	if _, err := f.svc.Place(ctx, bad); !validation.Is(err) {
		t.Fatalf("expected validation error for missing city, got %v", err)
	}
	bad = f.checkout("bank", orders.CartItem{ProductID: f.jersey.ID, Size: "M", Quantity: 1})
	if _, err := f.svc.Place(ctx, bad); !validation.Is(err) {
		t.Fatalf("expected validation error for payment method, got %v", err)
	}
}

func TestPayHereCheckoutAndNotification(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)

	placed, err := f.svc.Place(ctx, f.checkout(orders.PaymentPayHere,
		orders.CartItem{ProductID: f.jersey.ID, Size: "24", Quantity: 1}))
	if err != nil {
		t.Fatalf("place failed: %v", err)
	}
	o := placed.Order
	if o.Status != orders.StatusPending {
		t.Fatalf("online orders wait for payment, got %s", o.Status)
	}
	if placed.Payment == nil {
		t.Fatalf("expected payment form")
	}
	if placed.Payment.Fields["order_id"] != o.Code || placed.Payment.Fields["amount"] != "6900.00" {
		t.Fatalf("unexpected form fields: %v", placed.Payment.Fields)
	}
	if _, err := f.delivery.Get(ctx, o.ID); !errors.Is(err, delivery.ErrNotFound) {
		t.Fatalf("delivery must not start before payment, got %v", err)
	}

	mismatch := f.signed(payhere.Notification{OrderID: o.Code, PaymentID: "p-1", Amount: "1.00", StatusCode: payhere.StatusSuccess})
	if _, err := f.svc.ApplyPayment(ctx, mismatch); !errors.Is(err, orders.ErrAmountMismatch) {
		t.Fatalf("expected ErrAmountMismatch, got %v", err)
	}

	forged := payhere.Notification{MerchantID: "1211149", OrderID: o.Code, Amount: "6900.00", Currency: "LKR", StatusCode: payhere.StatusSuccess, Signature: "BAD"}
	if _, err := f.svc.ApplyPayment(ctx, forged); !errors.Is(err, payhere.ErrBadSignature) {
		t.Fatalf("expected ErrBadSignature, got %v", err)
	}

	ok := f.signed(payhere.Notification{OrderID: o.Code, PaymentID: "p-2", Amount: "6900.00", StatusCode: payhere.StatusSuccess})
	paid, err := f.svc.ApplyPayment(ctx, ok)
	if err != nil {
		t.Fatalf("apply payment failed: %v", err)
	}
	if paid.PaymentStatus != orders.PaymentPaid || paid.Status != orders.StatusConfirmed || paid.PaymentRef != "p-2" {
		t.Fatalf("unexpected paid order: %+v", paid)
	}
	if _, err := f.delivery.Get(ctx, o.ID); err != nil {
		t.Fatalf("expected delivery tracking after payment: %v", err)
	}

	again, err := f.svc.ApplyPayment(ctx, ok)
	if err != nil {
		t.Fatalf("repeat notification failed: %v", err)
	}
	if again.PaymentRef != "p-2" {
		t.Fatalf("repeat notification changed the order: %+v", again)
	}
	sms, _ := f.messages.Logs(ctx, messaging.LogFilter{Purpose: messaging.PurposeOrderConfirmation}, 0, 0)
	if len(sms) != 1 {
		t.Fatalf("expected exactly one confirmation sms, got %d", len(sms))
	}
}

func TestPayHereCancelledPaymentCancelsOrder(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)

	placed, err := f.svc.Place(ctx, f.checkout(orders.PaymentPayHere,
		orders.CartItem{ProductID: f.jersey.ID, Size: "M", Quantity: 1}))
	if err != nil {
		t.Fatalf("place failed: %v", err)
	}

	n := f.signed(payhere.Notification{OrderID: placed.Order.Code, Amount: "6900.00", StatusCode: payhere.StatusCancelled})
	o, err := f.svc.ApplyPayment(ctx, n)
	if err != nil {
		t.Fatalf("apply payment failed: %v", err)
	}
	if o.Status != orders.StatusCancelled || o.PaymentStatus != orders.PaymentCancelled {
		t.Fatalf("unexpected order after cancelled payment: %s/%s", o.Status, o.PaymentStatus)
	}
}

func TestPayHereSuccessAfterCancelDoesNotConfirm(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)

	placed, err := f.svc.Place(ctx, f.checkout(orders.PaymentPayHere,
		orders.CartItem{ProductID: f.jersey.ID, Size: "M", Quantity: 1}))
	if err != nil {
		t.Fatalf("place failed: %v", err)
	}
	if _, err := f.svc.Cancel(ctx, placed.Order.ID, "out of stock", "admin"); err != nil {
		t.Fatalf("cancel failed: %v", err)
	}

	n := f.signed(payhere.Notification{OrderID: placed.Order.Code, PaymentID: "p-9", Amount: "6900.00", StatusCode: payhere.StatusSuccess})
	o, err := f.svc.ApplyPayment(ctx, n)
	if err != nil {
		t.Fatalf("apply payment failed: %v", err)
	}
	if o.Status != orders.StatusCancelled || o.PaymentStatus != orders.PaymentPaid || o.PaymentRef != "p-9" {
		t.Fatalf("payment should be recorded on the cancelled order, got %s/%s/%q", o.Status, o.PaymentStatus, o.PaymentRef)
	}
	if _, err := f.delivery.Get(ctx, o.ID); !errors.Is(err, delivery.ErrNotFound) {
		t.Fatalf("cancelled order must not be tracked, got %v", err)
	}
	sms, _ := f.messages.Logs(ctx, messaging.LogFilter{Purpose: messaging.PurposeOrderConfirmation}, 0, 0)
	if len(sms) != 0 {
		t.Fatalf("cancelled order must not be confirmed by sms, got %d", len(sms))
	}
}

func TestPayHereUnavailableWithoutCredentials(t *testing.T) {
	f := newFixture(t)
	svc := orders.NewService(orders.Options{
		Repo:     memory.NewOrderRepository(),
		Products: f.products,
		Payments: payhere.NewSigner(payhere.Config{}),
		Logger:   logger.Discard(),
	})
	_, err := svc.Place(context.Background(), f.checkout(orders.PaymentPayHere,
		orders.CartItem{ProductID: f.jersey.ID, Size: "M", Quantity: 1}))
	if !errors.Is(err, orders.ErrPaymentUnavailable) {
		t.Fatalf("expected ErrPaymentUnavailable, got %v", err)
	}
}

func TestCancelStopsAtDispatch(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	f.verified[customerPhone] = true

	first, err := f.svc.Place(ctx, f.checkout(orders.PaymentCOD, orders.CartItem{ProductID: f.jersey.ID, Size: "M", Quantity: 1}))
	if err != nil {
		t.Fatalf("place failed: %v", err)
	}
	cancelled, err := f.svc.Cancel(ctx, first.Order.ID, "changed mind", "admin")
	if err != nil {
		t.Fatalf("cancel failed: %v", err)
	}
	if cancelled.Status != orders.StatusCancelled || cancelled.CancelReason != "changed mind" {
		t.Fatalf("unexpected cancelled order: %+v", cancelled)
	}
	if _, err := f.svc.Cancel(ctx, first.Order.ID, "again", "admin"); err != nil {
		t.Fatalf("cancel must be idempotent: %v", err)
	}

	second, err := f.svc.Place(ctx, f.checkout(orders.PaymentCOD, orders.CartItem{ProductID: f.jersey.ID, Size: "M", Quantity: 1}))
	if err != nil {
		t.Fatalf("place failed: %v", err)
	}
	if _, err := f.delivery.Advance(ctx, delivery.AdvanceInput{OrderID: second.Order.ID, Stage: delivery.StageDispatched}); err != nil {
		t.Fatalf("advance failed: %v", err)
	}
	if _, err := f.svc.Cancel(ctx, second.Order.ID, "too late", "admin"); !errors.Is(err, orders.ErrCannotCancel) {
		t.Fatalf("expected ErrCannotCancel, got %v", err)
	}
}

func TestTrackRequiresMatchingPhone(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	f.verified[customerPhone] = true

	placed, err := f.svc.Place(ctx, f.checkout(orders.PaymentCOD, orders.CartItem{ProductID: f.jersey.ID, Size: "M", Quantity: 1}))
	if err != nil {
		t.Fatalf("place failed: %v", err)
	}

	tr, err := f.svc.Track(ctx, strings.ToLower(placed.Order.Code), "+94771234567")
	if err != nil {
		t.Fatalf("track failed: %v", err)
	}
	if tr.Delivery == nil || tr.Delivery.Stage != delivery.StageOrderConfirmed {
		t.Fatalf("expected delivery status in tracking, got %+v", tr.Delivery)
	}

	if _, err := f.svc.Track(ctx, placed.Order.Code, "0719999999"); !errors.Is(err, orders.ErrNotFound) {
		t.Fatalf("expected ErrNotFound for other phone, got %v", err)
	}

	listed, err := f.svc.ListForCustomer(ctx, placed.Order.CustomerID, 0, 10)
	if err != nil {
		t.Fatalf("list for customer failed: %v", err)
	}
	if len(listed) != 1 {
		t.Fatalf("expected 1 order, got %d", len(listed))
	}
}

func TestAddressString(t *testing.T) {
	a := orders.Address{Line1: "12 Galle Road", City: "Colombo", PostalCode: "00300"}
	if got := a.String(); got != "12 Galle Road, Colombo, 00300" {
		t.Fatalf("unexpected address: %s", got)
	}
}
