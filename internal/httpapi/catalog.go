package httpapi

import (
	"net/http"
	"strings"

	"log/slog"

	"github.com/jerseyhouse/storefront/internal/domain"
	"github.com/jerseyhouse/storefront/internal/domain/products"
	"github.com/jerseyhouse/storefront/internal/domain/sizing"
)

func registerCatalogRoutes(mux *http.ServeMux, logger *slog.Logger, services domain.Container) {
	mux.HandleFunc("GET /v1/products", func(w http.ResponseWriter, r *http.Request) {
		offset, limit, ok := pagination(w, r)
		if !ok {
			return
		}
		filter := productFilter(r)
		filter.ActiveOnly = true

		list, err := services.Products.List(r.Context(), filter, offset, limit)
		if err != nil {
			respondServiceError(w, logger, "list products", err)
			return
		}
		respondList(w, list)
	})

	mux.HandleFunc("GET /v1/products/{slug}", func(w http.ResponseWriter, r *http.Request) {
		product, err := services.Products.GetBySlug(r.Context(), r.PathValue("slug"))
		if err == nil && !product.Active {
			err = products.ErrNotFound
		}
		if err != nil {
			respondServiceError(w, logger, "get product", err)
			return
		}
		respondJSON(w, http.StatusOK, product)
	})

	mux.HandleFunc("GET /v1/size-charts", func(w http.ResponseWriter, r *http.Request) {
		respondJSON(w, http.StatusOK, sizing.Charts())
	})

	mux.HandleFunc("POST /v1/size-recommendations", func(w http.ResponseWriter, r *http.Request) {
		var input sizing.Input
		if !decodeJSON(w, r, &input) {
			return
		}
		rec, err := sizing.Recommend(input)
		if err != nil {
			respondServiceError(w, logger, "recommend size", err)
			return
		}
		respondJSON(w, http.StatusOK, rec)
	})
}

func productFilter(r *http.Request) products.Filter {
	q := r.URL.Query()
	return products.Filter{
		Team:  strings.TrimSpace(q.Get("team")),
		Kind:  products.Kind(strings.ToLower(strings.TrimSpace(q.Get("kind")))),
		Query: strings.TrimSpace(q.Get("q")),
	}
}
