// Package payhere signs PayHere checkout requests and verifies the
// server-to-server payment notifications PayHere posts back.
//
// Both signatures are upper-case hex MD5 digests that embed the upper-case
// MD5 of the merchant secret:
//
//	checkout: md5(merchant_id + order_id + amount + currency + md5(secret))
//	notify:   md5(merchant_id + order_id + amount + currency + status_code + md5(secret))
package payhere

import (
	"crypto/md5"
	"crypto/subtle"
	"encoding/hex"
	"errors"
	"fmt"
	"net/url"
	"strconv"
	"strings"
)

const (
	sandboxCheckoutURL = "https://sandbox.payhere.lk/pay/checkout"
	liveCheckoutURL    = "https://www.payhere.lk/pay/checkout"
)

var (
	ErrBadSignature     = errors.New("payhere: notification signature mismatch")
	ErrMerchantMismatch = errors.New("payhere: notification for another merchant")
	ErrNotConfigured    = errors.New("payhere: merchant credentials not configured")
)

// Status is the payment outcome reported in a notification.
type Status int

const (
	StatusChargedBack Status = -3
	StatusFailed      Status = -2
	StatusCancelled   Status = -1
	StatusPending     Status = 0
	StatusSuccess     Status = 2
)

func (s Status) String() string {
	switch s {
	case StatusSuccess:
		return "success"
	case StatusPending:
		return "pending"
	case StatusCancelled:
		return "cancelled"
	case StatusFailed:
		return "failed"
	case StatusChargedBack:
		return "charged_back"
	default:
		return "unknown(" + strconv.Itoa(int(s)) + ")"
	}
}

// Config holds merchant credentials and redirect URLs.
type Config struct {
	MerchantID     string
	MerchantSecret string
	Currency       string
	Sandbox        bool
	ReturnURL      string
	CancelURL      string
	NotifyURL      string
}

// Configured reports whether credentials are present.
func (c Config) Configured() bool {
	return c.MerchantID != "" && c.MerchantSecret != ""
}

// CheckoutURL is where the storefront posts the checkout form.
func (c Config) CheckoutURL() string {
	if c.Sandbox {
		return sandboxCheckoutURL
	}
	return liveCheckoutURL
}

// Customer carries the buyer details PayHere requires.
type Customer struct {
	FirstName string
	LastName  string
	Email     string
	Phone     string
	Address   string
	City      string
}

// CheckoutRequest describes a single payment.
type CheckoutRequest struct {
	OrderID     string
	Items       string
	AmountCents int64
	Customer    Customer
}

// Form is the signed field set the browser submits to PayHere.
type Form struct {
	Action string            `json:"action"`
	Fields map[string]string `json:"fields"`
}

// Signer builds and checks PayHere signatures.
type Signer struct {
	cfg        Config
	secretHash string
}

// NewSigner precomputes the secret digest.
func NewSigner(cfg Config) *Signer {
	if cfg.Currency == "" {
		cfg.Currency = "LKR"
	}
	return &Signer{cfg: cfg, secretHash: md5Upper(cfg.MerchantSecret)}
}

// Config returns the signer's configuration.
func (s *Signer) Config() Config { return s.cfg }

// FormatAmount renders cents with exactly two decimals, as PayHere hashes it.
func FormatAmount(cents int64) string {
	sign := ""
	if cents < 0 {
		sign = "-"
		cents = -cents
	}
	return fmt.Sprintf("%s%d.%02d", sign, cents/100, cents%100)
}

// CheckoutHash signs a checkout request.
func (s *Signer) CheckoutHash(orderID string, amountCents int64) string {
	return md5Upper(s.cfg.MerchantID + orderID + FormatAmount(amountCents) + s.cfg.Currency + s.secretHash)
}

// Checkout builds the signed form for req.
func (s *Signer) Checkout(req CheckoutRequest) (Form, error) {
	if !s.cfg.Configured() {
		return Form{}, ErrNotConfigured
	}
	fields := map[string]string{
		"merchant_id": s.cfg.MerchantID,
		"return_url":  s.cfg.ReturnURL,
		"cancel_url":  s.cfg.CancelURL,
		"notify_url":  s.cfg.NotifyURL,
		"order_id":    req.OrderID,
		"items":       req.Items,
		"currency":    s.cfg.Currency,
		"amount":      FormatAmount(req.AmountCents),
		"first_name":  req.Customer.FirstName,
		"last_name":   req.Customer.LastName,
		"email":       req.Customer.Email,
		"phone":       req.Customer.Phone,
		"address":     req.Customer.Address,
		"city":        req.Customer.City,
		"country":     "Sri Lanka",
		"hash":        s.CheckoutHash(req.OrderID, req.AmountCents),
	}
	return Form{Action: s.cfg.CheckoutURL(), Fields: fields}, nil
}

// Notification is the payload PayHere posts to notify_url.
type Notification struct {
	MerchantID    string
	OrderID       string
	PaymentID     string
	Amount        string
	Currency      string
	StatusCode    Status
	Signature     string
	Method        string
	StatusMessage string
}

// ParseNotification reads the form-encoded notify payload.
func ParseNotification(form url.Values) (Notification, error) {
	code, err := strconv.Atoi(strings.TrimSpace(form.Get("status_code")))
	if err != nil {
		return Notification{}, fmt.Errorf("payhere: invalid status_code: %w", err)
	}
	n := Notification{
		MerchantID:    strings.TrimSpace(form.Get("merchant_id")),
		OrderID:       strings.TrimSpace(form.Get("order_id")),
		PaymentID:     strings.TrimSpace(form.Get("payment_id")),
		Amount:        strings.TrimSpace(form.Get("payhere_amount")),
		Currency:      strings.TrimSpace(form.Get("payhere_currency")),
		StatusCode:    Status(code),
		Signature:     strings.TrimSpace(form.Get("md5sig")),
		Method:        strings.TrimSpace(form.Get("method")),
		StatusMessage: strings.TrimSpace(form.Get("status_message")),
	}
	if n.OrderID == "" {
		return Notification{}, errors.New("payhere: order_id missing")
	}
	return n, nil
}

// NotificationSignature computes the expected md5sig for n.
func (s *Signer) NotificationSignature(n Notification) string {
	return md5Upper(n.MerchantID + n.OrderID + n.Amount + n.Currency + strconv.Itoa(int(n.StatusCode)) + s.secretHash)
}

// Verify checks merchant id and signature of a notification.
func (s *Signer) Verify(n Notification) error {
	if !s.cfg.Configured() {
		return ErrNotConfigured
	}
	if n.MerchantID != s.cfg.MerchantID {
		return ErrMerchantMismatch
	}
	expected := s.NotificationSignature(n)
	if subtle.ConstantTimeCompare([]byte(expected), []byte(strings.ToUpper(n.Signature))) != 1 {
		return ErrBadSignature
	}
	return nil
}

// AmountCents parses the notification amount back into cents.
func (n Notification) AmountCents() (int64, error) {
	whole, frac, _ := strings.Cut(n.Amount, ".")
	w, err := strconv.ParseInt(whole, 10, 64)
	if err != nil {
		return 0, fmt.Errorf("payhere: invalid amount %q", n.Amount)
	}
	frac = (frac + "00")[:2]
	f, err := strconv.ParseInt(frac, 10, 64)
	if err != nil {
		return 0, fmt.Errorf("payhere: invalid amount %q", n.Amount)
	}
	return w*100 + f, nil
}

func md5Upper(s string) string {
	sum := md5.Sum([]byte(s))
	return strings.ToUpper(hex.EncodeToString(sum[:]))
}
