package memory

import (
	"context"
	"sync"
	"time"

	"github.com/jerseyhouse/storefront/internal/domain/otp"
)

// OTPRepository keeps the latest challenge per phone.
type OTPRepository struct {
	mu         sync.Mutex
	challenges map[string]otp.Challenge
}

// NewOTPRepository returns an initialized in-memory repository.
func NewOTPRepository() *OTPRepository {
	return &OTPRepository{challenges: make(map[string]otp.Challenge)}
}

func (r *OTPRepository) Find(_ context.Context, phone string) (otp.Challenge, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	c, ok := r.challenges[phone]
	if !ok {
		return otp.Challenge{}, otp.ErrNotFound
	}
	return c, nil
}

func (r *OTPRepository) Save(_ context.Context, challenge otp.Challenge) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.challenges[challenge.Phone] = challenge
	return nil
}

func (r *OTPRepository) RecordAttempt(_ context.Context, phone string, max int) (otp.Challenge, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	c, ok := r.challenges[phone]
	if !ok {
		return otp.Challenge{}, otp.ErrNotFound
	}
	if c.Attempts >= max {
		return otp.Challenge{}, otp.ErrTooManyAttempts
	}
	c.Attempts++
	r.challenges[phone] = c
	return c, nil
}

func (r *OTPRepository) MarkVerified(_ context.Context, phone, codeHash string, at time.Time) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	c, ok := r.challenges[phone]
	if !ok || c.CodeHash != codeHash {
		return otp.ErrNotFound
	}
	c.VerifiedAt = &at
	r.challenges[phone] = c
	return nil
}
