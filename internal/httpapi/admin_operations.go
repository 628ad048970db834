package httpapi

import (
	"net/http"
	"strings"

	"log/slog"

	"github.com/jerseyhouse/storefront/internal/domain"
	"github.com/jerseyhouse/storefront/internal/domain/imports"
	"github.com/jerseyhouse/storefront/internal/domain/messaging"
)

func registerAdminOperationsRoutes(admin adminRouter, logger *slog.Logger, services domain.Container) {
	admin.handle("GET /v1/admin/import-batches", func(w http.ResponseWriter, r *http.Request) {
		offset, limit, ok := pagination(w, r)
		if !ok {
			return
		}
		var status imports.Status
		if v := r.URL.Query().Get("status"); v != "" {
			parsed, err := imports.ParseStatus(v)
			if err != nil {
				respondServiceError(w, logger, "list import batches", err)
				return
			}
			status = parsed
		}
		list, err := services.Imports.List(r.Context(), status, offset, limit)
		if err != nil {
			respondServiceError(w, logger, "list import batches", err)
			return
		}
		respondList(w, list)
	})

	admin.handle("POST /v1/admin/import-batches", func(w http.ResponseWriter, r *http.Request) {
		var input imports.CreateInput
		if !decodeJSON(w, r, &input) {
			return
		}
		batch, err := services.Imports.Create(r.Context(), input)
		if err != nil {
			respondServiceError(w, logger, "create import batch", err)
			return
		}
		respondJSON(w, http.StatusCreated, batch)
	})

	admin.handle("GET /v1/admin/import-batches/{id}", func(w http.ResponseWriter, r *http.Request) {
		batch, err := services.Imports.Get(r.Context(), r.PathValue("id"))
		if err != nil {
			respondServiceError(w, logger, "get import batch", err)
			return
		}
		respondJSON(w, http.StatusOK, batch)
	})

	admin.handle("POST /v1/admin/import-batches/{id}/orders", func(w http.ResponseWriter, r *http.Request) {
		var payload struct {
			OrderIDs []string `json:"order_ids"`
		}
		if !decodeJSON(w, r, &payload) {
			return
		}
		batch, err := services.Imports.AddOrders(r.Context(), r.PathValue("id"), payload.OrderIDs)
		if err != nil {
			respondServiceError(w, logger, "add batch orders", err)
			return
		}
		respondJSON(w, http.StatusOK, batch)
	})

	admin.handle("POST /v1/admin/import-batches/{id}/advance", func(w http.ResponseWriter, r *http.Request) {
		result, err := services.Imports.Advance(r.Context(), r.PathValue("id"), adminFrom(r.Context()).Email)
		if err != nil {
			respondServiceError(w, logger, "advance import batch", err)
			return
		}
		respondJSON(w, http.StatusOK, result)
	})

	admin.handle("GET /v1/admin/sms-logs", func(w http.ResponseWriter, r *http.Request) {
		offset, limit, ok := pagination(w, r)
		if !ok {
			return
		}
		q := r.URL.Query()
		filter := messaging.LogFilter{
			Purpose: messaging.Purpose(strings.ToLower(q.Get("purpose"))),
			Status:  messaging.LogStatus(strings.ToLower(q.Get("status"))),
		}
		list, err := services.Messaging.Logs(r.Context(), filter, offset, limit)
		if err != nil {
			respondServiceError(w, logger, "list sms logs", err)
			return
		}
		respondList(w, list)
	})

	admin.handle("GET /v1/admin/customers", func(w http.ResponseWriter, r *http.Request) {
		offset, limit, ok := pagination(w, r)
		if !ok {
			return
		}
		list, err := services.Customers.List(r.Context(), offset, limit)
		if err != nil {
			respondServiceError(w, logger, "list customers", err)
			return
		}
		respondList(w, list)
	})

	admin.handle("GET /v1/admin/customers/{id}", func(w http.ResponseWriter, r *http.Request) {
		customer, err := services.Customers.Get(r.Context(), r.PathValue("id"))
		if err != nil {
			respondServiceError(w, logger, "get customer", err)
			return
		}
		respondJSON(w, http.StatusOK, customer)
	})

	admin.handle("GET /v1/admin/customers/{id}/orders", func(w http.ResponseWriter, r *http.Request) {
		offset, limit, ok := pagination(w, r)
		if !ok {
			return
		}
		list, err := services.Orders.ListForCustomer(r.Context(), r.PathValue("id"), offset, limit)
		if err != nil {
			respondServiceError(w, logger, "list customer orders", err)
			return
		}
		respondList(w, list)
	})
}
