package httpapi

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"

	"log/slog"

	"github.com/jerseyhouse/storefront/internal/auth"
	"github.com/jerseyhouse/storefront/internal/domain/admins"
	"github.com/jerseyhouse/storefront/internal/domain/customers"
	"github.com/jerseyhouse/storefront/internal/domain/delivery"
	"github.com/jerseyhouse/storefront/internal/domain/discounts"
	"github.com/jerseyhouse/storefront/internal/domain/imports"
	"github.com/jerseyhouse/storefront/internal/domain/messaging"
	"github.com/jerseyhouse/storefront/internal/domain/orders"
	"github.com/jerseyhouse/storefront/internal/domain/otp"
	"github.com/jerseyhouse/storefront/internal/domain/products"
	"github.com/jerseyhouse/storefront/internal/domain/sizing"
	"github.com/jerseyhouse/storefront/internal/payhere"
	"github.com/jerseyhouse/storefront/internal/validation"
)

const (
	defaultLimit = 50
	maxLimit     = 200
	maxBodyBytes = 1 << 20
)

func respondJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(payload); err != nil {
		// If encoding fails there's not much we can do; log to stderr.
		slog.Default().Error("failed to encode response", "err", err)
	}
}

func respondError(w http.ResponseWriter, status int, message string) {
	respondJSON(w, status, map[string]string{"error": message})
}

func respondList[T any](w http.ResponseWriter, items []T) {
	if items == nil {
		items = []T{}
	}
	respondJSON(w, http.StatusOK, map[string]any{
		"data":  items,
		"count": len(items),
	})
}

func decodeJSON(w http.ResponseWriter, r *http.Request, dst any) bool {
	r.Body = http.MaxBytesReader(w, r.Body, maxBodyBytes)
	if err := json.NewDecoder(r.Body).Decode(dst); err != nil {
		respondError(w, http.StatusBadRequest, "invalid JSON payload")
		return false
	}
	return true
}

// pagination reads offset and limit query parameters. A zero limit means the
// default page size; repositories treat zero as unbounded, so it never
// reaches them from a request.
func pagination(w http.ResponseWriter, r *http.Request) (offset, limit int, ok bool) {
	query := r.URL.Query()
	offset, limit = 0, defaultLimit
	if v := query.Get("offset"); v != "" {
		parsed, err := strconv.Atoi(v)
		if err != nil || parsed < 0 {
			respondError(w, http.StatusBadRequest, "invalid offset parameter")
			return 0, 0, false
		}
		offset = parsed
	}
	if v := query.Get("limit"); v != "" {
		parsed, err := strconv.Atoi(v)
		if err != nil || parsed < 0 {
			respondError(w, http.StatusBadRequest, "invalid limit parameter")
			return 0, 0, false
		}
		if parsed > 0 {
			limit = min(parsed, maxLimit)
		}
	}
	return offset, limit, true
}

var (
	notFoundErrors = []error{
		customers.ErrNotFound,
		products.ErrNotFound,
		discounts.ErrNotFound,
		orders.ErrNotFound,
		delivery.ErrNotFound,
		imports.ErrNotFound,
		admins.ErrNotFound,
		otp.ErrNotFound,
		sizing.ErrUnknownSize,
	}
	conflictErrors = []error{
		customers.ErrPhoneTaken,
		products.ErrSlugTaken,
		discounts.ErrCodeExists,
		admins.ErrEmailExists,
		delivery.ErrInvalidTransition,
		imports.ErrInvalidTransition,
		imports.ErrBatchClosed,
		orders.ErrCannotCancel,
	}
	badRequestErrors = []error{
		delivery.ErrUnknownStage,
		discounts.ErrInactive,
		discounts.ErrNotStarted,
		discounts.ErrExpired,
		discounts.ErrExhausted,
		discounts.ErrBelowMinimum,
		orders.ErrEmptyCart,
		orders.ErrProductUnavailable,
		orders.ErrSizeUnavailable,
		orders.ErrAmountMismatch,
		otp.ErrExpired,
		otp.ErrMismatch,
		payhere.ErrBadSignature,
		payhere.ErrMerchantMismatch,
	}
	rateLimitErrors = []error{
		otp.ErrCooldown,
		otp.ErrTooManyAttempts,
	}
	notImplementedErrors = []error{
		customers.ErrNotImplemented,
		products.ErrNotImplemented,
		discounts.ErrNotImplemented,
		orders.ErrNotImplemented,
		delivery.ErrNotImplemented,
		imports.ErrNotImplemented,
		admins.ErrNotImplemented,
		otp.ErrNotImplemented,
		messaging.ErrNotImplemented,
	}
)

func isAny(err error, targets []error) bool {
	for _, target := range targets {
		if errors.Is(err, target) {
			return true
		}
	}
	return false
}

// statusFor maps domain errors onto HTTP status codes.
func statusFor(err error) int {
	switch {
	case validation.Is(err):
		return http.StatusBadRequest
	case isAny(err, notFoundErrors):
		return http.StatusNotFound
	case isAny(err, conflictErrors):
		return http.StatusConflict
	case isAny(err, badRequestErrors):
		return http.StatusBadRequest
	case isAny(err, rateLimitErrors):
		return http.StatusTooManyRequests
	case errors.Is(err, orders.ErrPhoneNotVerified):
		return http.StatusForbidden
	case errors.Is(err, admins.ErrInvalidCredentials),
		errors.Is(err, auth.ErrInvalidToken),
		errors.Is(err, auth.ErrExpiredToken):
		return http.StatusUnauthorized
	case errors.Is(err, orders.ErrPaymentUnavailable), errors.Is(err, payhere.ErrNotConfigured):
		return http.StatusServiceUnavailable
	case isAny(err, notImplementedErrors):
		return http.StatusNotImplemented
	default:
		return http.StatusInternalServerError
	}
}

// respondServiceError writes err with its mapped status. Unexpected errors
// are logged and hidden behind a generic message.
func respondServiceError(w http.ResponseWriter, logger *slog.Logger, op string, err error) {
	status := statusFor(err)
	switch status {
	case http.StatusInternalServerError:
		logger.Error(op+" failed", "err", err)
		respondError(w, status, "internal error")
	case http.StatusNotImplemented:
		respondError(w, status, op+" not yet implemented")
	default:
		respondError(w, status, err.Error())
	}
}
