package httpapi

import (
	"net/http"
	"time"

	"log/slog"

	"github.com/jerseyhouse/storefront/internal/domain"
	"github.com/jerseyhouse/storefront/internal/domain/orders"
	"github.com/jerseyhouse/storefront/internal/payhere"
	"github.com/jerseyhouse/storefront/internal/validation"
)

func registerCheckoutRoutes(mux *http.ServeMux, logger *slog.Logger, services domain.Container) {
	mux.HandleFunc("POST /v1/otp/send", func(w http.ResponseWriter, r *http.Request) {
		var payload struct {
			Phone string `json:"phone"`
		}
		if !decodeJSON(w, r, &payload) {
			return
		}
		result, err := services.OTP.Send(r.Context(), payload.Phone)
		if err != nil {
			respondServiceError(w, logger, "send otp", err)
			return
		}
		respondJSON(w, http.StatusAccepted, result)
	})

	mux.HandleFunc("POST /v1/otp/verify", func(w http.ResponseWriter, r *http.Request) {
		var payload struct {
			Phone string `json:"phone"`
			Code  string `json:"code"`
		}
		if !decodeJSON(w, r, &payload) {
			return
		}
		if err := services.OTP.Verify(r.Context(), payload.Phone, payload.Code); err != nil {
			respondServiceError(w, logger, "verify otp", err)
			return
		}
		respondJSON(w, http.StatusOK, map[string]any{"verified": true})
	})

	mux.HandleFunc("POST /v1/discounts/validate", func(w http.ResponseWriter, r *http.Request) {
		var payload struct {
			Code          string `json:"code"`
			SubtotalCents int64  `json:"subtotal_cents"`
		}
		if !decodeJSON(w, r, &payload) {
			return
		}
		if payload.SubtotalCents < 0 {
			respondServiceError(w, logger, "validate discount", validation.Invalid("subtotal_cents", "must not be negative"))
			return
		}
		quote, err := services.Discounts.Quote(r.Context(), payload.Code, payload.SubtotalCents, time.Now().UTC())
		if err != nil {
			respondServiceError(w, logger, "validate discount", err)
			return
		}
		respondJSON(w, http.StatusOK, quote)
	})

	mux.HandleFunc("POST /v1/checkout", func(w http.ResponseWriter, r *http.Request) {
		var input orders.CheckoutInput
		if !decodeJSON(w, r, &input) {
			return
		}
		placement, err := services.Orders.Place(r.Context(), input)
		if err != nil {
			respondServiceError(w, logger, "checkout", err)
			return
		}
		respondJSON(w, http.StatusCreated, placement)
	})

	// PayHere posts form-encoded notifications and only checks for a 200.
	mux.HandleFunc("POST /v1/payments/payhere/notify", func(w http.ResponseWriter, r *http.Request) {
		r.Body = http.MaxBytesReader(w, r.Body, maxBodyBytes)
		if err := r.ParseForm(); err != nil {
			respondError(w, http.StatusBadRequest, "invalid form payload")
			return
		}
		n, err := payhere.ParseNotification(r.PostForm)
		if err != nil {
			respondError(w, http.StatusBadRequest, err.Error())
			return
		}
		order, err := services.Orders.ApplyPayment(r.Context(), n)
		if err != nil {
			logger.Warn("payhere notification rejected", "order_code", n.OrderID, "status_code", n.StatusCode, "err", err)
			respondServiceError(w, logger, "apply payment", err)
			return
		}
		respondJSON(w, http.StatusOK, map[string]any{
			"code":           order.Code,
			"payment_status": order.PaymentStatus,
		})
	})

	mux.HandleFunc("GET /v1/orders/track", func(w http.ResponseWriter, r *http.Request) {
		q := r.URL.Query()
		code, phone := q.Get("code"), q.Get("phone")
		if code == "" || phone == "" {
			respondError(w, http.StatusBadRequest, "code and phone are required")
			return
		}
		tracking, err := services.Orders.Track(r.Context(), code, phone)
		if err != nil {
			respondServiceError(w, logger, "track order", err)
			return
		}
		respondJSON(w, http.StatusOK, tracking)
	})
}
