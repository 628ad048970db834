package orders

import (
	"context"
	"errors"
	"strings"
	"time"
)

var (
	ErrNotImplemented     = errors.New("orders repository: not implemented")
	ErrNotFound           = errors.New("order not found")
	ErrEmptyCart          = errors.New("cart is empty")
	ErrProductUnavailable = errors.New("product is not available")
	ErrSizeUnavailable    = errors.New("size is not offered for this product")
	ErrPhoneNotVerified   = errors.New("phone number must be verified before cash on delivery checkout")
	ErrPaymentUnavailable = errors.New("online payment is not configured")
	ErrCannotCancel       = errors.New("order can no longer be cancelled")
	ErrAmountMismatch     = errors.New("payment amount does not match order total")
)

// Status is the order's commercial state.
type Status string

const (
	StatusPending   Status = "pending"
	StatusConfirmed Status = "confirmed"
	StatusCancelled Status = "cancelled"
)

// PaymentMethod is how the customer pays.
type PaymentMethod string

const (
	PaymentCOD     PaymentMethod = "cod"
	PaymentPayHere PaymentMethod = "payhere"
)

// PaymentStatus tracks money, independent of Status.
type PaymentStatus string

const (
	PaymentPending     PaymentStatus = "pending"
	PaymentPaid        PaymentStatus = "paid"
	PaymentFailed      PaymentStatus = "failed"
	PaymentCancelled   PaymentStatus = "cancelled"
	PaymentChargedBack PaymentStatus = "charged_back"
)

// Address is the shipping destination.
type Address struct {
	FullName   string `json:"full_name"`
	Phone      string `json:"phone"`
	Line1      string `json:"line1"`
	Line2      string `json:"line2,omitempty"`
	City       string `json:"city"`
	District   string `json:"district,omitempty"`
	PostalCode string `json:"postal_code,omitempty"`
}

// String renders the address on one line.
func (a Address) String() string {
	parts := []string{a.Line1, a.Line2, a.City, a.District, a.PostalCode}
	var out []string
	for _, p := range parts {
		if p != "" {
			out = append(out, p)
		}
	}
	return strings.Join(out, ", ")
}

// Item is one order line. UnitPriceCents already includes any
// customization fee.
type Item struct {
	ProductID      string `json:"product_id"`
	ProductName    string `json:"product_name"`
	Size           string `json:"size"`
	Quantity       int    `json:"quantity"`
	UnitPriceCents int64  `json:"unit_price_cents"`
	CustomName     string `json:"custom_name,omitempty"`
	CustomNumber   string `json:"custom_number,omitempty"`
}

// LineTotal is quantity times unit price.
func (i Item) LineTotal() int64 {
	return int64(i.Quantity) * i.UnitPriceCents
}

// Order is a placed storefront order.
type Order struct {
	ID              string        `json:"id"`
	Code            string        `json:"code"`
	CustomerID      string        `json:"customer_id"`
	Items           []Item        `json:"items"`
	SubtotalCents   int64         `json:"subtotal_cents"`
	DiscountCode    string        `json:"discount_code,omitempty"`
	DiscountCents   int64         `json:"discount_cents"`
	ShippingCents   int64         `json:"shipping_cents"`
	TotalCents      int64         `json:"total_cents"`
	PaymentMethod   PaymentMethod `json:"payment_method"`
	PaymentStatus   PaymentStatus `json:"payment_status"`
	PaymentRef      string        `json:"payment_ref,omitempty"`
	Status          Status        `json:"status"`
	ShippingAddress Address       `json:"shipping_address"`
	Notes           string        `json:"notes,omitempty"`
	CancelReason    string        `json:"cancel_reason,omitempty"`
	CreatedAt       time.Time     `json:"created_at"`
	UpdatedAt       time.Time     `json:"updated_at"`
}

// Filter narrows order listings. Zero values match everything.
type Filter struct {
	Status        Status
	PaymentStatus PaymentStatus
	CustomerID    string
}

// Matches applies the filter in memory.
func (f Filter) Matches(o Order) bool {
	return (f.Status == "" || f.Status == o.Status) &&
		(f.PaymentStatus == "" || f.PaymentStatus == o.PaymentStatus) &&
		(f.CustomerID == "" || f.CustomerID == o.CustomerID)
}

// Repository abstracts order persistence.
type Repository interface {
	FindByID(ctx context.Context, id string) (Order, error)
	FindByCode(ctx context.Context, code string) (Order, error)
	Save(ctx context.Context, order Order) (Order, error)
	List(ctx context.Context, filter Filter, offset, limit int) ([]Order, error)
}

// NullRepository returns ErrNotImplemented for all operations.
type NullRepository struct{}

func (NullRepository) FindByID(context.Context, string) (Order, error) {
	return Order{}, ErrNotImplemented
}

func (NullRepository) FindByCode(context.Context, string) (Order, error) {
	return Order{}, ErrNotImplemented
}

func (NullRepository) Save(context.Context, Order) (Order, error) {
	return Order{}, ErrNotImplemented
}

func (NullRepository) List(context.Context, Filter, int, int) ([]Order, error) {
	return nil, ErrNotImplemented
}
