package orders

import (
	"context"
	"crypto/rand"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"
	"unicode"

	"github.com/jerseyhouse/storefront/internal/domain/customers"
	"github.com/jerseyhouse/storefront/internal/domain/delivery"
	"github.com/jerseyhouse/storefront/internal/domain/discounts"
	"github.com/jerseyhouse/storefront/internal/domain/messaging"
	"github.com/jerseyhouse/storefront/internal/domain/products"
	"github.com/jerseyhouse/storefront/internal/payhere"
	"github.com/jerseyhouse/storefront/internal/phone"
	"github.com/jerseyhouse/storefront/internal/validation"
)

const (
	maxQuantity     = 20
	maxCustomName   = 12
	codePrefix      = "JS-"
	codeLength      = 8
	codeAlphabet    = "ABCDEFGHJKLMNPQRSTUVWXYZ23456789"
	codeGenAttempts = 5
)

// VerificationChecker reports whether a phone passed OTP verification.
type VerificationChecker interface {
	IsVerified(ctx context.Context, phone string) (bool, error)
}

// CartItem is one line submitted at checkout.
type CartItem struct {
	ProductID    string `json:"product_id"`
	Size         string `json:"size"`
	Quantity     int    `json:"quantity"`
	CustomName   string `json:"custom_name"`
	CustomNumber string `json:"custom_number"`
}

// CheckoutInput is everything the checkout wizard collects.
type CheckoutInput struct {
	Items         []CartItem    `json:"items"`
	FirstName     string        `json:"first_name"`
	LastName      string        `json:"last_name"`
	Email         string        `json:"email"`
	Shipping      Address       `json:"shipping"`
	PaymentMethod PaymentMethod `json:"payment_method"`
	DiscountCode  string        `json:"discount_code"`
	Notes         string        `json:"notes"`
}

// Placement is the result of a successful checkout. Payment is set for
// online payments and holds the signed gateway form.
type Placement struct {
	Order   Order         `json:"order"`
	Payment *payhere.Form `json:"payment,omitempty"`
}

// Tracking is the public view of an order's progress.
type Tracking struct {
	Order    Order            `json:"order"`
	Delivery *delivery.Status `json:"delivery,omitempty"`
}

// Service provides checkout and order lifecycle operations.
type Service interface {
	Place(ctx context.Context, input CheckoutInput) (Placement, error)
	ApplyPayment(ctx context.Context, n payhere.Notification) (Order, error)
	Get(ctx context.Context, id string) (Order, error)
	GetByCode(ctx context.Context, code string) (Order, error)
	List(ctx context.Context, filter Filter, offset, limit int) ([]Order, error)
	ListForCustomer(ctx context.Context, customerID string, offset, limit int) ([]Order, error)
	Cancel(ctx context.Context, id, reason, actor string) (Order, error)
	Track(ctx context.Context, code, phone string) (Tracking, error)
	ContactFor(ctx context.Context, orderID string) (phone, code string, err error)
}

// Options wires the order service to its collaborators.
type Options struct {
	Repo                  Repository
	Products              products.Service
	Customers             customers.Service
	Discounts             discounts.Service
	Verifier              VerificationChecker
	Delivery              delivery.Service
	Messages              messaging.Service
	Payments              *payhere.Signer
	Logger                *slog.Logger
	StoreName             string
	ShippingFeeCents      int64
	FreeShippingThreshold int64
	Now                   func() time.Time
}

// NewService builds the order service.
func NewService(opts Options) Service {
	if opts.Repo == nil {
		opts.Repo = NullRepository{}
	}
	if opts.Logger == nil {
		opts.Logger = slog.Default()
	}
	if opts.StoreName == "" {
		opts.StoreName = "Jersey House"
	}
	if opts.Now == nil {
		opts.Now = func() time.Time { return time.Now().UTC() }
	}
	return &service{opts: opts, repo: opts.Repo, logger: opts.Logger}
}

type service struct {
	opts   Options
	repo   Repository
	logger *slog.Logger
}

func (s *service) Place(ctx context.Context, input CheckoutInput) (Placement, error) {
	// cart
	items, subtotal, err := s.priceCart(ctx, input.Items)
	if err != nil {
		return Placement{}, err
	}

	// shipping
	addr, err := normalizeAddress(input.Shipping)
	if err != nil {
		return Placement{}, err
	}

	// verification and payment method
	method := PaymentMethod(strings.ToLower(strings.TrimSpace(string(input.PaymentMethod))))
	switch method {
	case PaymentCOD:
		verified, err := s.isVerified(ctx, addr.Phone)
		if err != nil {
			return Placement{}, err
		}
		if !verified {
			return Placement{}, ErrPhoneNotVerified
		}
	case PaymentPayHere:
		if s.opts.Payments == nil || !s.opts.Payments.Config().Configured() {
			return Placement{}, ErrPaymentUnavailable
		}
	default:
		return Placement{}, validation.Invalid("payment_method", "must be cod or payhere")
	}

	now := s.opts.Now()
	order := Order{
		Items:           items,
		SubtotalCents:   subtotal,
		PaymentMethod:   method,
		PaymentStatus:   PaymentPending,
		Status:          StatusPending,
		ShippingAddress: addr,
		Notes:           strings.TrimSpace(input.Notes),
	}

	if code := discounts.Normalize(input.DiscountCode); code != "" {
		if s.opts.Discounts == nil {
			return Placement{}, discounts.ErrNotFound
		}
		quote, err := s.opts.Discounts.Quote(ctx, code, subtotal, now)
		if err != nil {
			return Placement{}, err
		}
		order.DiscountCode = quote.Code
		order.DiscountCents = quote.DiscountCents
	}

	order.ShippingCents = s.shippingFor(subtotal - order.DiscountCents)
	order.TotalCents = subtotal - order.DiscountCents + order.ShippingCents

	customer, err := s.customerFor(ctx, input, addr, method == PaymentCOD)
	if err != nil {
		return Placement{}, err
	}
	order.CustomerID = customer.ID

	if order.Code, err = s.newCode(ctx); err != nil {
		return Placement{}, err
	}

	if order.DiscountCode != "" {
		if _, err := s.opts.Discounts.Redeem(ctx, order.DiscountCode); err != nil {
			return Placement{}, err
		}
	}

	if method == PaymentCOD {
		order.Status = StatusConfirmed
	}
	saved, err := s.repo.Save(ctx, order)
	if err != nil {
		return Placement{}, err
	}
	s.logger.Info("order_placed",
		"order_id", saved.ID,
		"code", saved.Code,
		"method", saved.PaymentMethod,
		"total_cents", saved.TotalCents,
	)

	placement := Placement{Order: saved}
	switch method {
	case PaymentCOD:
		s.confirm(ctx, saved, "cash on delivery")
	case PaymentPayHere:
		form, err := s.opts.Payments.Checkout(payhere.CheckoutRequest{
			OrderID:     saved.Code,
			Items:       describeItems(saved.Items),
			AmountCents: saved.TotalCents,
			Customer: payhere.Customer{
				FirstName: customer.FirstName,
				LastName:  customer.LastName,
				Email:     customer.Email,
				Phone:     addr.Phone,
				Address:   strings.TrimSpace(addr.Line1 + " " + addr.Line2),
				City:      addr.City,
			},
		})
		if err != nil {
			return Placement{}, err
		}
		placement.Payment = &form
	}
	return placement, nil
}

// ApplyPayment is idempotent for repeated success notifications.
func (s *service) ApplyPayment(ctx context.Context, n payhere.Notification) (Order, error) {
	if s.opts.Payments == nil {
		return Order{}, ErrPaymentUnavailable
	}
	if err := s.opts.Payments.Verify(n); err != nil {
		return Order{}, err
	}

	order, err := s.repo.FindByCode(ctx, n.OrderID)
	if err != nil {
		return Order{}, err
	}

	switch n.StatusCode {
	case payhere.StatusSuccess:
		if order.PaymentStatus == PaymentPaid {
			return order, nil
		}
		paid, err := n.AmountCents()
		if err != nil {
			return Order{}, err
		}
		if paid != order.TotalCents {
			s.logger.Error("payment amount mismatch", "order_id", order.ID, "paid_cents", paid, "total_cents", order.TotalCents)
			return Order{}, ErrAmountMismatch
		}
		order.PaymentStatus = PaymentPaid
		order.PaymentRef = n.PaymentID
		if order.Status == StatusPending {
			order.Status = StatusConfirmed
		}
	case payhere.StatusPending:
		return order, nil
	case payhere.StatusCancelled, payhere.StatusFailed:
		if order.PaymentStatus == PaymentPaid {
			return order, nil
		}
		order.PaymentStatus = PaymentFailed
		if n.StatusCode == payhere.StatusCancelled {
			order.PaymentStatus = PaymentCancelled
		}
		if order.Status == StatusPending {
			order.Status = StatusCancelled
			order.CancelReason = "payment " + n.StatusCode.String()
		}
	case payhere.StatusChargedBack:
		order.PaymentStatus = PaymentChargedBack
	default:
		return Order{}, fmt.Errorf("unsupported payment status %s", n.StatusCode)
	}

	saved, err := s.repo.Save(ctx, order)
	if err != nil {
		return Order{}, err
	}
	s.logger.Info("order_payment_applied", "order_id", saved.ID, "payment_status", saved.PaymentStatus)

	if n.StatusCode == payhere.StatusSuccess {
		if saved.Status == StatusCancelled {
			// Money arrived for an order that no longer ships.
			s.logger.Warn("payment received for cancelled order; refund required",
				"order_id", saved.ID,
				"code", saved.Code,
				"payment_ref", saved.PaymentRef,
				"total_cents", saved.TotalCents,
			)
			return saved, nil
		}
		s.confirm(ctx, saved, "payment received")
	}
	return saved, nil
}

func (s *service) Get(ctx context.Context, id string) (Order, error) {
	return s.repo.FindByID(ctx, id)
}

func (s *service) GetByCode(ctx context.Context, code string) (Order, error) {
	return s.repo.FindByCode(ctx, strings.ToUpper(strings.TrimSpace(code)))
}

func (s *service) List(ctx context.Context, filter Filter, offset, limit int) ([]Order, error) {
	return s.repo.List(ctx, filter, offset, limit)
}

func (s *service) ListForCustomer(ctx context.Context, customerID string, offset, limit int) ([]Order, error) {
	return s.repo.List(ctx, Filter{CustomerID: customerID}, offset, limit)
}

func (s *service) Cancel(ctx context.Context, id, reason, actor string) (Order, error) {
	order, err := s.repo.FindByID(ctx, id)
	if err != nil {
		return Order{}, err
	}
	if order.Status == StatusCancelled {
		return order, nil
	}

	if s.opts.Delivery != nil {
		status, err := s.opts.Delivery.Get(ctx, order.ID)
		switch {
		case err == nil:
			if !status.Stage.Before(delivery.StageDispatched) {
				return Order{}, ErrCannotCancel
			}
		case errors.Is(err, delivery.ErrNotFound), errors.Is(err, delivery.ErrNotImplemented):
		default:
			return Order{}, err
		}
	}

	order.Status = StatusCancelled
	order.CancelReason = strings.TrimSpace(reason)
	saved, err := s.repo.Save(ctx, order)
	if err != nil {
		return Order{}, err
	}
	s.logger.Info("order_cancelled", "order_id", saved.ID, "actor", actor, "reason", saved.CancelReason)
	return saved, nil
}

// Track hides orders whose phone does not match behind ErrNotFound.
func (s *service) Track(ctx context.Context, code, rawPhone string) (Tracking, error) {
	p, err := phone.Normalize(rawPhone)
	if err != nil {
		return Tracking{}, err
	}
	order, err := s.GetByCode(ctx, code)
	if err != nil {
		return Tracking{}, err
	}
	if order.ShippingAddress.Phone != p {
		return Tracking{}, ErrNotFound
	}

	t := Tracking{Order: order}
	if s.opts.Delivery != nil {
		status, err := s.opts.Delivery.Get(ctx, order.ID)
		switch {
		case err == nil:
			t.Delivery = &status
		case errors.Is(err, delivery.ErrNotFound):
		default:
			return Tracking{}, err
		}
	}
	return t, nil
}

func (s *service) ContactFor(ctx context.Context, orderID string) (string, string, error) {
	order, err := s.repo.FindByID(ctx, orderID)
	if err != nil {
		return "", "", err
	}
	return order.ShippingAddress.Phone, order.Code, nil
}

func (s *service) priceCart(ctx context.Context, cart []CartItem) ([]Item, int64, error) {
	if len(cart) == 0 {
		return nil, 0, ErrEmptyCart
	}
	if s.opts.Products == nil {
		return nil, 0, products.ErrNotImplemented
	}

	items := make([]Item, 0, len(cart))
	var subtotal int64
	for idx, line := range cart {
		field := fmt.Sprintf("items[%d]", idx)
		if line.Quantity < 1 || line.Quantity > maxQuantity {
			return nil, 0, validation.Invalid(field+".quantity", fmt.Sprintf("must be between 1 and %d", maxQuantity))
		}

		p, err := s.opts.Products.Get(ctx, strings.TrimSpace(line.ProductID))
		if errors.Is(err, products.ErrNotFound) {
			return nil, 0, fmt.Errorf("%w: %s", ErrProductUnavailable, line.ProductID)
		}
		if err != nil {
			return nil, 0, err
		}
		if !p.Active {
			return nil, 0, fmt.Errorf("%w: %s", ErrProductUnavailable, p.Name)
		}
		size := strings.ToUpper(strings.TrimSpace(line.Size))
		if !p.OffersSize(size) {
			return nil, 0, fmt.Errorf("%w: %s in %q", ErrSizeUnavailable, p.Name, line.Size)
		}

		name := strings.ToUpper(strings.TrimSpace(line.CustomName))
		if len([]rune(name)) > maxCustomName || strings.IndexFunc(name, notNameRune) >= 0 {
			return nil, 0, validation.Invalid(field+".custom_name", fmt.Sprintf("must be up to %d letters", maxCustomName))
		}
		number := strings.TrimSpace(line.CustomNumber)
		if len(number) > 2 || strings.IndexFunc(number, notDigit) >= 0 {
			return nil, 0, validation.Invalid(field+".custom_number", "must be 0 to 99")
		}

		unit := p.PriceCents
		if name != "" || number != "" {
			unit += p.CustomizationFeeCents
		}
		item := Item{
			ProductID:      p.ID,
			ProductName:    p.Name,
			Size:           size,
			Quantity:       line.Quantity,
			UnitPriceCents: unit,
			CustomName:     name,
			CustomNumber:   number,
		}
		items = append(items, item)
		subtotal += item.LineTotal()
	}
	return items, subtotal, nil
}

func (s *service) shippingFor(net int64) int64 {
	if s.opts.FreeShippingThreshold > 0 && net >= s.opts.FreeShippingThreshold {
		return 0
	}
	return s.opts.ShippingFeeCents
}

func (s *service) isVerified(ctx context.Context, p string) (bool, error) {
	if s.opts.Verifier == nil {
		return false, nil
	}
	return s.opts.Verifier.IsVerified(ctx, p)
}

func (s *service) customerFor(ctx context.Context, input CheckoutInput, addr Address, verified bool) (customers.Customer, error) {
	first := strings.TrimSpace(input.FirstName)
	last := strings.TrimSpace(input.LastName)
	if first == "" && last == "" {
		first, last, _ = strings.Cut(addr.FullName, " ")
	}
	if s.opts.Customers == nil {
		return customers.Customer{FirstName: first, LastName: last, Email: input.Email, Phone: addr.Phone}, nil
	}
	return s.opts.Customers.FindOrCreateByPhone(ctx, customers.CreateInput{
		FirstName:     first,
		LastName:      strings.TrimSpace(last),
		Email:         input.Email,
		Phone:         addr.Phone,
		PhoneVerified: verified,
	})
}

// confirm starts delivery tracking and texts the customer. Failures are
// logged; the order is already committed.
func (s *service) confirm(ctx context.Context, order Order, reason string) {
	if s.opts.Delivery != nil {
		if _, err := s.opts.Delivery.Start(ctx, order.ID, "system"); err != nil {
			s.logger.Error("start delivery tracking failed", "order_id", order.ID, "err", err)
		}
	}
	if s.opts.Messages != nil {
		body := fmt.Sprintf("%s: order %s confirmed (%s). Total LKR %s. Thank you!",
			s.opts.StoreName, order.Code, reason, payhere.FormatAmount(order.TotalCents))
		if _, err := s.opts.Messages.Send(ctx, messaging.Message{
			To:      order.ShippingAddress.Phone,
			Body:    body,
			Purpose: messaging.PurposeOrderConfirmation,
		}); err != nil {
			s.logger.Warn("order confirmation sms failed", "order_id", order.ID, "err", err)
		}
	}
}

func (s *service) newCode(ctx context.Context) (string, error) {
	for i := 0; i < codeGenAttempts; i++ {
		code, err := randomCode()
		if err != nil {
			return "", err
		}
		_, err = s.repo.FindByCode(ctx, code)
		if errors.Is(err, ErrNotFound) {
			return code, nil
		}
		if err != nil {
			return "", err
		}
	}
	return "", errors.New("could not allocate a unique order code")
}

func randomCode() (string, error) {
	buf := make([]byte, codeLength)
	if _, err := rand.Read(buf); err != nil {
		return "", fmt.Errorf("order code: %w", err)
	}
	for i, b := range buf {
		buf[i] = codeAlphabet[int(b)%len(codeAlphabet)]
	}
	return codePrefix + string(buf), nil
}

func normalizeAddress(a Address) (Address, error) {
	out := Address{
		FullName:   strings.Join(strings.Fields(a.FullName), " "),
		Line1:      strings.TrimSpace(a.Line1),
		Line2:      strings.TrimSpace(a.Line2),
		City:       strings.TrimSpace(a.City),
		District:   strings.TrimSpace(a.District),
		PostalCode: strings.TrimSpace(a.PostalCode),
	}
	switch {
	case out.FullName == "":
		return Address{}, validation.Required("shipping.full_name")
	case out.Line1 == "":
		return Address{}, validation.Required("shipping.line1")
	case out.City == "":
		return Address{}, validation.Required("shipping.city")
	}
	p, err := phone.Normalize(a.Phone)
	if err != nil {
		return Address{}, err
	}
	out.Phone = p
	return out, nil
}

func describeItems(items []Item) string {
	names := make([]string, 0, len(items))
	for _, it := range items {
		names = append(names, fmt.Sprintf("%s (%s) x%d", it.ProductName, it.Size, it.Quantity))
	}
	return strings.Join(names, ", ")
}

func notNameRune(r rune) bool { return !unicode.IsLetter(r) && r != ' ' && r != '.' }

func notDigit(r rune) bool { return r < '0' || r > '9' }
