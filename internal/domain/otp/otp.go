// Package otp issues and verifies the SMS one-time passwords that gate
// cash-on-delivery checkout.
package otp

import (
	"context"
	"crypto/rand"
	"crypto/sha256"
	"crypto/subtle"
	"encoding/hex"
	"errors"
	"fmt"
	"log/slog"
	"math/big"
	"strings"
	"time"

	"github.com/jerseyhouse/storefront/internal/domain/messaging"
	"github.com/jerseyhouse/storefront/internal/phone"
	"github.com/jerseyhouse/storefront/internal/validation"
)

var (
	ErrNotImplemented  = errors.New("otp repository: not implemented")
	ErrNotFound        = errors.New("no verification code issued for this phone")
	ErrCooldown        = errors.New("verification code requested too recently")
	ErrExpired         = errors.New("verification code expired")
	ErrTooManyAttempts = errors.New("too many verification attempts")
	ErrMismatch        = errors.New("verification code does not match")
)

const codeDigits = 6

// Challenge is the latest code issued to a phone number. Only the hash of
// the code is kept.
type Challenge struct {
	Phone      string
	CodeHash   string
	ExpiresAt  time.Time
	Attempts   int
	VerifiedAt *time.Time
	CreatedAt  time.Time
}

// Repository stores one challenge per phone number.
type Repository interface {
	Find(ctx context.Context, phone string) (Challenge, error)
	Save(ctx context.Context, challenge Challenge) error
	// RecordAttempt atomically increments Attempts unless it already reached
	// max, in which case it returns ErrTooManyAttempts.
	RecordAttempt(ctx context.Context, phone string, max int) (Challenge, error)
	// MarkVerified sets VerifiedAt only while codeHash is still the current
	// challenge, returning ErrNotFound otherwise.
	MarkVerified(ctx context.Context, phone, codeHash string, at time.Time) error
}

// NullRepository returns ErrNotImplemented for all operations.
type NullRepository struct{}

func (NullRepository) Find(context.Context, string) (Challenge, error) {
	return Challenge{}, ErrNotImplemented
}

func (NullRepository) Save(context.Context, Challenge) error { return ErrNotImplemented }

func (NullRepository) RecordAttempt(context.Context, string, int) (Challenge, error) {
	return Challenge{}, ErrNotImplemented
}

func (NullRepository) MarkVerified(context.Context, string, string, time.Time) error {
	return ErrNotImplemented
}

// Options configures the OTP service.
type Options struct {
	Repo           Repository
	Messages       messaging.Service
	Logger         *slog.Logger
	StoreName      string
	TTL            time.Duration
	ResendCooldown time.Duration
	MaxAttempts    int
	VerifiedWindow time.Duration
	Now            func() time.Time
	// Generate overrides code generation in tests.
	Generate func() (string, error)
}

// Service issues and checks verification codes.
type Service interface {
	Send(ctx context.Context, phone string) (SendResult, error)
	Verify(ctx context.Context, phone, code string) error
	IsVerified(ctx context.Context, phone string) (bool, error)
}

// SendResult tells the client where the code went and until when it is valid.
type SendResult struct {
	Phone     string    `json:"phone"`
	ExpiresAt time.Time `json:"expires_at"`
}

// NewService builds an OTP service with defaults for unset options.
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
	if opts.TTL <= 0 {
		opts.TTL = 5 * time.Minute
	}
	if opts.ResendCooldown <= 0 {
		opts.ResendCooldown = time.Minute
	}
	if opts.MaxAttempts <= 0 {
		opts.MaxAttempts = 5
	}
	if opts.VerifiedWindow <= 0 {
		opts.VerifiedWindow = 30 * time.Minute
	}
	if opts.Now == nil {
		opts.Now = func() time.Time { return time.Now().UTC() }
	}
	if opts.Generate == nil {
		opts.Generate = generateCode
	}
	return &service{opts: opts}
}

type service struct {
	opts Options
}

func (s *service) Send(ctx context.Context, raw string) (SendResult, error) {
	p, err := phone.Normalize(raw)
	if err != nil {
		return SendResult{}, err
	}
	now := s.opts.Now()

	existing, err := s.opts.Repo.Find(ctx, p)
	switch {
	case err == nil:
		if now.Sub(existing.CreatedAt) < s.opts.ResendCooldown {
			return SendResult{}, ErrCooldown
		}
	case errors.Is(err, ErrNotFound):
	default:
		return SendResult{}, err
	}

	code, err := s.opts.Generate()
	if err != nil {
		return SendResult{}, fmt.Errorf("generate code: %w", err)
	}
	challenge := Challenge{
		Phone:     p,
		CodeHash:  hashCode(p, code),
		ExpiresAt: now.Add(s.opts.TTL),
		CreatedAt: now,
	}

	// The challenge is stored only once the SMS is out, so a gateway failure
	// never starts a cooldown for a code nobody received.
	if s.opts.Messages != nil {
		body := fmt.Sprintf("%s verification code: %s. Valid for %d minutes.", s.opts.StoreName, code, int(s.opts.TTL.Minutes()))
		if _, err := s.opts.Messages.Send(ctx, messaging.Message{To: p, Body: body, Purpose: messaging.PurposeOTP}); err != nil {
			return SendResult{}, fmt.Errorf("send verification sms: %w", err)
		}
	}
	if err := s.opts.Repo.Save(ctx, challenge); err != nil {
		return SendResult{}, err
	}

	s.opts.Logger.Info("otp_sent", "phone", phone.Mask(p))
	return SendResult{Phone: p, ExpiresAt: challenge.ExpiresAt}, nil
}

func (s *service) Verify(ctx context.Context, raw, code string) error {
	p, err := phone.Normalize(raw)
	if err != nil {
		return err
	}
	code = strings.TrimSpace(code)
	if code == "" {
		return validation.Required("code")
	}

	c, err := s.opts.Repo.Find(ctx, p)
	if err != nil {
		return err
	}
	now := s.opts.Now()
	if c.VerifiedAt != nil {
		return nil
	}
	if !now.Before(c.ExpiresAt) {
		return ErrExpired
	}

	// Every guess consumes an attempt before the hash is compared.
	c, err = s.opts.Repo.RecordAttempt(ctx, p, s.opts.MaxAttempts)
	if err != nil {
		return err
	}

	if subtle.ConstantTimeCompare([]byte(hashCode(p, code)), []byte(c.CodeHash)) != 1 {
		s.opts.Logger.Info("otp_mismatch", "phone", phone.Mask(p), "attempts", c.Attempts)
		return ErrMismatch
	}

	if err := s.opts.Repo.MarkVerified(ctx, p, c.CodeHash, now); err != nil {
		return err
	}
	s.opts.Logger.Info("otp_verified", "phone", phone.Mask(p))
	return nil
}

func (s *service) IsVerified(ctx context.Context, raw string) (bool, error) {
	p, err := phone.Normalize(raw)
	if err != nil {
		return false, err
	}
	c, err := s.opts.Repo.Find(ctx, p)
	if errors.Is(err, ErrNotFound) {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	if c.VerifiedAt == nil {
		return false, nil
	}
	return s.opts.Now().Sub(*c.VerifiedAt) <= s.opts.VerifiedWindow, nil
}

func generateCode() (string, error) {
	max := big.NewInt(1)
	for i := 0; i < codeDigits; i++ {
		max.Mul(max, big.NewInt(10))
	}
	n, err := rand.Int(rand.Reader, max)
	if err != nil {
		return "", err
	}
	return fmt.Sprintf("%0*d", codeDigits, n.Int64()), nil
}

// hashCode binds the code to the phone so equal codes hash differently.
func hashCode(phone, code string) string {
	sum := sha256.Sum256([]byte(phone + ":" + code))
	return hex.EncodeToString(sum[:])
}
