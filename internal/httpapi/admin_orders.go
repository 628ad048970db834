package httpapi

import (
	"errors"
	"net/http"
	"strings"

	"log/slog"

	"github.com/jerseyhouse/storefront/internal/domain"
	"github.com/jerseyhouse/storefront/internal/domain/delivery"
	"github.com/jerseyhouse/storefront/internal/domain/orders"
	"github.com/jerseyhouse/storefront/internal/validation"
)

const maxBulkOrders = 500

func registerAdminOrderRoutes(admin adminRouter, logger *slog.Logger, services domain.Container) {
	admin.handle("GET /v1/admin/orders", func(w http.ResponseWriter, r *http.Request) {
		offset, limit, ok := pagination(w, r)
		if !ok {
			return
		}
		q := r.URL.Query()
		filter := orders.Filter{
			Status:        orders.Status(strings.ToLower(q.Get("status"))),
			PaymentStatus: orders.PaymentStatus(strings.ToLower(q.Get("payment_status"))),
			CustomerID:    q.Get("customer_id"),
		}
		list, err := services.Orders.List(r.Context(), filter, offset, limit)
		if err != nil {
			respondServiceError(w, logger, "list orders", err)
			return
		}
		respondList(w, list)
	})

	admin.handle("GET /v1/admin/orders/{id}", func(w http.ResponseWriter, r *http.Request) {
		order, err := services.Orders.Get(r.Context(), r.PathValue("id"))
		if err != nil {
			respondServiceError(w, logger, "get order", err)
			return
		}
		resp := map[string]any{"order": order}
		status, err := services.Delivery.Get(r.Context(), order.ID)
		switch {
		case err == nil:
			resp["delivery"] = status
		case errors.Is(err, delivery.ErrNotFound):
		default:
			respondServiceError(w, logger, "get delivery status", err)
			return
		}
		respondJSON(w, http.StatusOK, resp)
	})

	admin.handle("POST /v1/admin/orders/{id}/cancel", func(w http.ResponseWriter, r *http.Request) {
		var payload struct {
			Reason string `json:"reason"`
		}
		if !decodeJSON(w, r, &payload) {
			return
		}
		order, err := services.Orders.Cancel(r.Context(), r.PathValue("id"), payload.Reason, adminFrom(r.Context()).Email)
		if err != nil {
			respondServiceError(w, logger, "cancel order", err)
			return
		}
		respondJSON(w, http.StatusOK, order)
	})

	admin.handle("PATCH /v1/admin/orders/{id}/delivery", func(w http.ResponseWriter, r *http.Request) {
		var payload struct {
			Stage          string `json:"stage"`
			Note           string `json:"note"`
			Courier        string `json:"courier"`
			TrackingNumber string `json:"tracking_number"`
		}
		if !decodeJSON(w, r, &payload) {
			return
		}
		stage, err := delivery.ParseStage(payload.Stage)
		if err != nil {
			respondServiceError(w, logger, "update delivery", err)
			return
		}
		status, err := services.Delivery.Advance(r.Context(), delivery.AdvanceInput{
			OrderID:        r.PathValue("id"),
			Stage:          stage,
			Note:           payload.Note,
			Actor:          adminFrom(r.Context()).Email,
			Courier:        payload.Courier,
			TrackingNumber: payload.TrackingNumber,
		})
		if err != nil {
			respondServiceError(w, logger, "update delivery", err)
			return
		}
		respondJSON(w, http.StatusOK, status)
	})

	admin.handle("GET /v1/admin/delivery", func(w http.ResponseWriter, r *http.Request) {
		offset, limit, ok := pagination(w, r)
		if !ok {
			return
		}
		var stage delivery.Stage
		if v := r.URL.Query().Get("stage"); v != "" {
			parsed, err := delivery.ParseStage(v)
			if err != nil {
				respondServiceError(w, logger, "list deliveries", err)
				return
			}
			stage = parsed
		}
		list, err := services.Delivery.ListByStage(r.Context(), stage, offset, limit)
		if err != nil {
			respondServiceError(w, logger, "list deliveries", err)
			return
		}
		respondList(w, list)
	})

	admin.handle("POST /v1/admin/delivery/bulk", func(w http.ResponseWriter, r *http.Request) {
		var payload struct {
			OrderIDs []string `json:"order_ids"`
			Stage    string   `json:"stage"`
			Note     string   `json:"note"`
		}
		if !decodeJSON(w, r, &payload) {
			return
		}
		if len(payload.OrderIDs) == 0 {
			respondServiceError(w, logger, "bulk delivery", validation.Required("order_ids"))
			return
		}
		if len(payload.OrderIDs) > maxBulkOrders {
			respondServiceError(w, logger, "bulk delivery", validation.Invalid("order_ids", "too many orders in one request"))
			return
		}
		stage, err := delivery.ParseStage(payload.Stage)
		if err != nil {
			respondServiceError(w, logger, "bulk delivery", err)
			return
		}

		results := services.Delivery.BulkAdvance(r.Context(), payload.OrderIDs, stage, payload.Note, adminFrom(r.Context()).Email)
		failed := 0
		for _, res := range results {
			if res.Err != nil {
				failed++
			}
		}
		respondJSON(w, http.StatusOK, map[string]any{
			"data":      results,
			"count":     len(results),
			"failed":    failed,
			"succeeded": len(results) - failed,
		})
	})
}
