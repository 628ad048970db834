package httpapi

import (
	"context"
	"net/http"
	"strings"

	"log/slog"

	"github.com/jerseyhouse/storefront/internal/auth"
	"github.com/jerseyhouse/storefront/internal/domain/admins"
)

type adminKey struct{}

// adminFrom returns the authenticated admin stored by the admin router.
func adminFrom(ctx context.Context) admins.Admin {
	a, _ := ctx.Value(adminKey{}).(admins.Admin)
	return a
}

// adminRouter registers handlers behind bearer token authentication.
type adminRouter struct {
	mux     *http.ServeMux
	logger  *slog.Logger
	issuer  *auth.Issuer
	service admins.Service
}

func newAdminRouter(mux *http.ServeMux, logger *slog.Logger, issuer *auth.Issuer, service admins.Service) adminRouter {
	return adminRouter{mux: mux, logger: logger, issuer: issuer, service: service}
}

func (a adminRouter) handle(pattern string, h http.HandlerFunc) {
	a.mux.Handle(pattern, a.require(h))
}

func (a adminRouter) require(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		header := r.Header.Get("Authorization")
		scheme, token, ok := strings.Cut(header, " ")
		if !ok || !strings.EqualFold(scheme, "bearer") || strings.TrimSpace(token) == "" {
			w.Header().Set("WWW-Authenticate", `Bearer realm="admin"`)
			respondError(w, http.StatusUnauthorized, "missing bearer token")
			return
		}

		adminID, err := a.issuer.Verify(token)
		if err != nil {
			respondError(w, http.StatusUnauthorized, err.Error())
			return
		}
		admin, err := a.service.Get(r.Context(), adminID)
		if err != nil {
			if statusFor(err) == http.StatusInternalServerError {
				a.logger.Error("load admin failed", "admin_id", adminID, "err", err)
			}
			respondError(w, http.StatusUnauthorized, "invalid token")
			return
		}

		next.ServeHTTP(w, r.WithContext(context.WithValue(r.Context(), adminKey{}, admin)))
	})
}

func registerAdminAuthRoutes(mux *http.ServeMux, logger *slog.Logger, issuer *auth.Issuer, service admins.Service) {
	mux.HandleFunc("POST /v1/admin/login", func(w http.ResponseWriter, r *http.Request) {
		var payload struct {
			Email    string `json:"email"`
			Password string `json:"password"`
		}
		if !decodeJSON(w, r, &payload) {
			return
		}

		admin, err := service.Authenticate(r.Context(), payload.Email, payload.Password)
		if err != nil {
			respondServiceError(w, logger, "admin login", err)
			return
		}
		logger.Info("admin_login", "admin_id", admin.ID)

		respondJSON(w, http.StatusOK, map[string]any{
			"admin": admin,
			"token": issuer.Issue(admin.ID),
		})
	})
}
