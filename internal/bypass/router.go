package bypass

import (
	"time"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/httprate"

	"github.com/shoplift-io/accessgate/internal/middleware"
)

// NewRouter creates the public bypass router, mounted at /bypass. The
// verify endpoint is rate-limited per client IP: it is unauthenticated and
// each attempt costs a bcrypt comparison.
func (h *Handler) NewRouter() chi.Router {
	r := chi.NewRouter()

	r.Use(middleware.RequestID)
	r.Use(chimw.Recoverer)
	r.Use(middleware.MaxBodySize(4 * 1024))

	r.Get("/status", h.HandleStatus)

	r.Group(func(r chi.Router) {
		r.Use(httprate.LimitByIP(10, time.Minute))
		r.Post("/verify", h.HandleVerify)
	})

	return r
}
