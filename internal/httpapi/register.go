package httpapi

import (
	"encoding/json"
	"net/http"
	"time"

	"log/slog"

	"github.com/jerseyhouse/storefront/internal/auth"
	"github.com/jerseyhouse/storefront/internal/domain"
)

// Register attaches API routes to the provided mux.
func Register(mux *http.ServeMux, logger *slog.Logger, services domain.Container, issuer *auth.Issuer) {
	mux.HandleFunc("GET /v1/ping", func(w http.ResponseWriter, r *http.Request) {
		resp := map[string]any{
			"status":  "ok",
			"time":    time.Now().UTC().Format(time.RFC3339),
			"server":  "jerseyhouse-storefront",
			"version": "v1",
		}

		w.Header().Set("Content-Type", "application/json")
		if err := json.NewEncoder(w).Encode(resp); err != nil {
			logger.Error("failed to write ping response", "err", err)
		}
	})

	registerCatalogRoutes(mux, logger, services)
	registerCheckoutRoutes(mux, logger, services)

	admin := newAdminRouter(mux, logger, issuer, services.Admins)
	registerAdminAuthRoutes(mux, logger, issuer, services.Admins)
	registerAdminCatalogRoutes(admin, logger, services)
	registerAdminOrderRoutes(admin, logger, services)
	registerAdminOperationsRoutes(admin, logger, services)
}
