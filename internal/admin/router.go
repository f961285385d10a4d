package admin

import (
	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"

	"github.com/shoplift-io/accessgate/internal/middleware"
)

// NewRouter creates the operator router.
func (h *Handler) NewRouter() chi.Router {
	r := chi.NewRouter()

	// Middleware
	r.Use(middleware.RequestID)
	r.Use(chimw.Recoverer)
	r.Use(middleware.MaxBodySize(64 * 1024))

	// Public endpoints (no auth)
	r.Get("/health", h.HandleHealth)
	r.Get("/ready", h.HandleReady)

	r.Route("/admin", func(r chi.Router) {
		r.Post("/login", h.HandleLogin)

		// Everything below requires an operator session; state-changing
		// calls additionally require the session's CSRF token.
		r.Group(func(r chi.Router) {
			r.Use(h.SessionMiddleware)

			r.Post("/logout", h.HandleLogout)

			r.Get("/tokens", h.HandleListTokens)
			r.Post("/tokens", h.HandleCreateToken)
			r.Post("/tokens/cleanup", h.HandleCleanupTokens)
			r.Get("/tokens/{id}/credentials", h.HandleViewCredentials)
			r.Post("/tokens/{id}/revoke", h.HandleRevokeToken)
			r.Post("/tokens/{id}/reactivate", h.HandleReactivateToken)
			r.Post("/tokens/{id}/clear-sessions", h.HandleClearSessions)

			r.Get("/audit", h.HandleQueryAudit)

			r.Get("/maintenance", h.HandleGetMaintenance)
			r.Post("/maintenance", h.HandleSetMaintenance)
		})
	})

	return r
}
