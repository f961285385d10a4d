// Package gate decides, per request, whether a caller may pass the
// site-wide maintenance gate.
package gate

import (
	"context"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/shoplift-io/accessgate/internal/metrics"
	"github.com/shoplift-io/accessgate/internal/storage"
)

// BypassCookie is the cookie carrying a bypass visitor's session identity.
const BypassCookie = "bypass_session"

// Settings supplies the maintenance window state.
type Settings interface {
	GetMaintenanceWindow(ctx context.Context) (*storage.MaintenanceWindow, error)
}

// Sessions answers whether a session identity is currently bound and active.
type Sessions interface {
	IsSessionActive(ctx context.Context, sessionID string) (bool, error)
}

// Request is the per-request input to the bypass decision.
type Request struct {
	Path string

	// BypassSessionID is the visitor's bypass cookie value, if any.
	BypassSessionID string

	// OperatorSession is true when the caller holds a valid admin-area
	// operator session.
	OperatorSession bool
}

// Checker is the single source of truth the edge rule's administrative
// tooling regenerates from. It is a read-only advisory check: the actual
// traffic redirection is done by the static edge rule, and the two must
// agree.
type Checker struct {
	settings Settings
	sessions Sessions
	logger   *slog.Logger
	now      func() time.Time
}

// NewChecker creates a Checker.
func NewChecker(settings Settings, sessions Sessions, logger *slog.Logger) *Checker {
	if logger == nil {
		logger = slog.Default()
	}
	return &Checker{
		settings: settings,
		sessions: sessions,
		logger:   logger,
		now:      time.Now,
	}
}

// ShouldBypass reports whether the request may pass the maintenance gate.
// The maintenance flag and the session/token active flags are re-read from
// the store on every call, so a revoke takes effect on the next check.
// A storage failure denies (fail-closed).
func (c *Checker) ShouldBypass(ctx context.Context, req Request) (bool, error) {
	w, err := c.settings.GetMaintenanceWindow(ctx)
	if err != nil {
		metrics.RecordGateCheck("error")
		return false, err
	}

	// No maintenance in effect: everything passes. A session's practical
	// validity is bounded by the window's end time - once the window is
	// over, the bypass mechanism is moot regardless of session state.
	if !c.windowActive(w) {
		metrics.RecordGateCheck("window_inactive")
		return true, nil
	}

	// The authenticated admin area stays reachable during maintenance
	if isAdminArea(req.Path) && req.OperatorSession {
		metrics.RecordGateCheck("operator")
		return true, nil
	}

	if req.BypassSessionID != "" {
		active, err := c.sessions.IsSessionActive(ctx, req.BypassSessionID)
		if err != nil {
			metrics.RecordGateCheck("error")
			return false, err
		}
		if active {
			metrics.RecordGateCheck("bypass")
			return true, nil
		}
	}

	metrics.RecordGateCheck("blocked")
	return false, nil
}

// windowActive reports whether the maintenance window applies right now.
func (c *Checker) windowActive(w *storage.MaintenanceWindow) bool {
	if !w.Enabled {
		return false
	}
	now := c.now()
	if w.StartsAt != nil && now.Before(*w.StartsAt) {
		return false
	}
	if w.EndsAt != nil && now.After(*w.EndsAt) {
		return false
	}
	return true
}

func isAdminArea(path string) bool {
	return path == "/admin" || strings.HasPrefix(path, "/admin/")
}

// Middleware serves the maintenance holding response to callers the Checker
// does not let through. operatorSession reports whether the request carries
// a valid operator session; it is injected so the gate stays independent of
// the admin package.
func (c *Checker) Middleware(operatorSession func(r *http.Request) bool) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			req := Request{
				Path:            r.URL.Path,
				OperatorSession: operatorSession != nil && operatorSession(r),
			}
			if cookie, err := r.Cookie(BypassCookie); err == nil {
				req.BypassSessionID = cookie.Value
			}

			ok, err := c.ShouldBypass(r.Context(), req)
			if err != nil {
				c.logger.Error("gate check failed", "error", err, "path", r.URL.Path)
				ok = false
			}
			if !ok {
				w.Header().Set("Content-Type", "application/json")
				w.Header().Set("Retry-After", "600")
				w.WriteHeader(http.StatusServiceUnavailable)
				//nolint:errcheck // Response write errors are unrecoverable
				w.Write([]byte(`{"status":"maintenance","message":"The site is down for maintenance."}`))
				return
			}

			next.ServeHTTP(w, r)
		})
	}
}
