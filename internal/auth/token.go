package auth

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/base64"
	"errors"
	"strconv"
	"strings"
	"time"
)

var (
	ErrInvalidToken = errors.New("invalid token")
	ErrExpiredToken = errors.New("token expired")
	ErrNoSecret     = errors.New("token secret is empty")
)

// Token is the login response handed to admin clients.
type Token struct {
	AccessToken string    `json:"access_token"`
	TokenType   string    `json:"token_type"`
	ExpiresAt   time.Time `json:"expires_at"`
}

// Issuer signs and verifies admin bearer tokens of the form
// base64url(subject.expiryUnix).base64url(hmac).
type Issuer struct {
	secret []byte
	ttl    time.Duration
	now    func() time.Time
}

// NewIssuer builds an issuer. ttl defaults to 12 hours.
func NewIssuer(secret string, ttl time.Duration) (*Issuer, error) {
	if secret == "" {
		return nil, ErrNoSecret
	}
	if ttl <= 0 {
		ttl = 12 * time.Hour
	}
	return &Issuer{secret: []byte(secret), ttl: ttl, now: time.Now}, nil
}

// WithClock replaces the time source.
func (i *Issuer) WithClock(now func() time.Time) *Issuer {
	i.now = now
	return i
}

// Issue signs a token for subject.
func (i *Issuer) Issue(subject string) Token {
	expires := i.now().Add(i.ttl).UTC().Truncate(time.Second)
	payload := subject + "." + strconv.FormatInt(expires.Unix(), 10)
	enc := base64.RawURLEncoding
	return Token{
		AccessToken: enc.EncodeToString([]byte(payload)) + "." + enc.EncodeToString(i.sign(payload)),
		TokenType:   "bearer",
		ExpiresAt:   expires,
	}
}

// Verify checks the signature and expiry and returns the subject.
func (i *Issuer) Verify(token string) (string, error) {
	encPayload, encSig, ok := strings.Cut(strings.TrimSpace(token), ".")
	if !ok {
		return "", ErrInvalidToken
	}
	enc := base64.RawURLEncoding
	payload, err := enc.DecodeString(encPayload)
	if err != nil {
		return "", ErrInvalidToken
	}
	sig, err := enc.DecodeString(encSig)
	if err != nil {
		return "", ErrInvalidToken
	}
	if !hmac.Equal(sig, i.sign(string(payload))) {
		return "", ErrInvalidToken
	}

	idx := strings.LastIndexByte(string(payload), '.')
	if idx <= 0 {
		return "", ErrInvalidToken
	}
	subject := string(payload[:idx])
	expiry, err := strconv.ParseInt(string(payload[idx+1:]), 10, 64)
	if err != nil {
		return "", ErrInvalidToken
	}
	if !i.now().Before(time.Unix(expiry, 0)) {
		return "", ErrExpiredToken
	}
	return subject, nil
}

func (i *Issuer) sign(payload string) []byte {
	mac := hmac.New(sha256.New, i.secret)
	mac.Write([]byte(payload))
	return mac.Sum(nil)
}
