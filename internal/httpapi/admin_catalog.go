package httpapi

import (
	"net/http"

	"log/slog"

	"github.com/jerseyhouse/storefront/internal/domain"
	"github.com/jerseyhouse/storefront/internal/domain/discounts"
	"github.com/jerseyhouse/storefront/internal/domain/products"
)

func registerAdminCatalogRoutes(admin adminRouter, logger *slog.Logger, services domain.Container) {
	admin.handle("GET /v1/admin/me", func(w http.ResponseWriter, r *http.Request) {
		respondJSON(w, http.StatusOK, adminFrom(r.Context()))
	})

	admin.handle("GET /v1/admin/products", func(w http.ResponseWriter, r *http.Request) {
		offset, limit, ok := pagination(w, r)
		if !ok {
			return
		}
		filter := productFilter(r)
		filter.ActiveOnly = r.URL.Query().Get("active") == "true"
		list, err := services.Products.List(r.Context(), filter, offset, limit)
		if err != nil {
			respondServiceError(w, logger, "list products", err)
			return
		}
		respondList(w, list)
	})

	admin.handle("POST /v1/admin/products", func(w http.ResponseWriter, r *http.Request) {
		var input products.CreateInput
		if !decodeJSON(w, r, &input) {
			return
		}
		product, err := services.Products.Create(r.Context(), input)
		if err != nil {
			respondServiceError(w, logger, "create product", err)
			return
		}
		respondJSON(w, http.StatusCreated, product)
	})

	admin.handle("GET /v1/admin/products/{id}", func(w http.ResponseWriter, r *http.Request) {
		product, err := services.Products.Get(r.Context(), r.PathValue("id"))
		if err != nil {
			respondServiceError(w, logger, "get product", err)
			return
		}
		respondJSON(w, http.StatusOK, product)
	})

	admin.handle("PATCH /v1/admin/products/{id}", func(w http.ResponseWriter, r *http.Request) {
		var input products.UpdateInput
		if !decodeJSON(w, r, &input) {
			return
		}
		product, err := services.Products.Update(r.Context(), r.PathValue("id"), input)
		if err != nil {
			respondServiceError(w, logger, "update product", err)
			return
		}
		respondJSON(w, http.StatusOK, product)
	})

	admin.handle("PUT /v1/admin/products/{id}/active", func(w http.ResponseWriter, r *http.Request) {
		var payload struct {
			Active bool `json:"active"`
		}
		if !decodeJSON(w, r, &payload) {
			return
		}
		product, err := services.Products.SetActive(r.Context(), r.PathValue("id"), payload.Active)
		if err != nil {
			respondServiceError(w, logger, "set product active", err)
			return
		}
		respondJSON(w, http.StatusOK, product)
	})

	admin.handle("GET /v1/admin/discounts", func(w http.ResponseWriter, r *http.Request) {
		offset, limit, ok := pagination(w, r)
		if !ok {
			return
		}
		list, err := services.Discounts.List(r.Context(), offset, limit)
		if err != nil {
			respondServiceError(w, logger, "list discounts", err)
			return
		}
		respondList(w, list)
	})

	admin.handle("POST /v1/admin/discounts", func(w http.ResponseWriter, r *http.Request) {
		var input discounts.CreateInput
		if !decodeJSON(w, r, &input) {
			return
		}
		code, err := services.Discounts.Create(r.Context(), input)
		if err != nil {
			respondServiceError(w, logger, "create discount", err)
			return
		}
		respondJSON(w, http.StatusCreated, code)
	})

	admin.handle("POST /v1/admin/discounts/{code}/deactivate", func(w http.ResponseWriter, r *http.Request) {
		code, err := services.Discounts.Deactivate(r.Context(), r.PathValue("code"))
		if err != nil {
			respondServiceError(w, logger, "deactivate discount", err)
			return
		}
		respondJSON(w, http.StatusOK, code)
	})
}
