// Package bypass provides the public surface where a visitor presents a
// credential pair to obtain a maintenance-bypass session.
package bypass

import (
	"context"
	"encoding/json"
	"log/slog"
	"net"
	"net/http"

	"github.com/google/uuid"

	"github.com/shoplift-io/accessgate/internal/apperr"
	"github.com/shoplift-io/accessgate/internal/gate"
	"github.com/shoplift-io/accessgate/internal/metrics"
	"github.com/shoplift-io/accessgate/internal/storage"
)

// Verifier is the session-binding surface the bypass handlers need.
type Verifier interface {
	Verify(ctx context.Context, publicToken, passkey, sessionID string, meta storage.RequestMeta) error
	IsSessionActive(ctx context.Context, sessionID string) (bool, error)
}

// Handler serves the unauthenticated bypass endpoints.
type Handler struct {
	verifier Verifier
	logger   *slog.Logger
}

// NewHandler creates a bypass handler.
func NewHandler(v Verifier, logger *slog.Logger) *Handler {
	if logger == nil {
		logger = slog.Default()
	}
	return &Handler{verifier: v, logger: logger}
}

// HandleVerify checks a submitted credential pair and establishes the
// bypass session on success
// POST /bypass/verify
// Form fields: token, passkey
//
// Every failure mode - unknown token, revoked token, wrong passkey, session
// conflict - produces the same response body, so the endpoint cannot be
// used as an existence oracle.
func (h *Handler) HandleVerify(w http.ResponseWriter, r *http.Request) {
	if err := r.ParseForm(); err != nil {
		h.writeDenied(w)
		return
	}

	publicToken := r.PostFormValue("token")
	passkey := r.PostFormValue("passkey")
	if publicToken == "" || passkey == "" {
		metrics.RecordVerify("denied")
		h.writeDenied(w)
		return
	}

	// Reuse the visitor's session identity if present so a re-verify by
	// the current holder stays idempotent
	sessionID := ""
	if cookie, err := r.Cookie(gate.BypassCookie); err == nil {
		sessionID = cookie.Value
	}
	if sessionID == "" {
		sessionID = uuid.New().String()
	}

	err := h.verifier.Verify(r.Context(), publicToken, passkey, sessionID, requestMeta(r))
	if err != nil {
		switch apperr.CodeOf(err) {
		case apperr.CodeConflict:
			metrics.RecordVerify("conflict")
		case apperr.CodeStorage:
			metrics.RecordVerify("error")
			h.logger.Error("bypass verification failed", "error", err)
			w.Header().Set("Content-Type", "application/json")
			w.WriteHeader(http.StatusInternalServerError)
			//nolint:errcheck // Response write errors are unrecoverable
			w.Write([]byte(`{"error":"temporarily unavailable"}`))
			return
		default:
			metrics.RecordVerify("denied")
		}
		h.logger.Warn("bypass access denied", "remote_addr", r.RemoteAddr)
		h.writeDenied(w)
		return
	}

	metrics.RecordVerify("granted")
	h.logger.Info("bypass access granted", "session_id", sessionID)

	http.SetCookie(w, &http.Cookie{
		Name:     gate.BypassCookie,
		Value:    sessionID,
		Path:     "/",
		HttpOnly: true,
		Secure:   r.TLS != nil,
		SameSite: http.SameSiteLaxMode,
	})

	w.Header().Set("Content-Type", "application/json")
	//nolint:errcheck // Response write errors are unrecoverable
	w.Write([]byte(`{"status":"access granted"}`))
}

// HandleStatus reports whether the caller's bypass session is live
// GET /bypass/status
func (h *Handler) HandleStatus(w http.ResponseWriter, r *http.Request) {
	active := false
	if cookie, err := r.Cookie(gate.BypassCookie); err == nil {
		var checkErr error
		active, checkErr = h.verifier.IsSessionActive(r.Context(), cookie.Value)
		if checkErr != nil {
			h.logger.Error("bypass status check failed", "error", checkErr)
			active = false
		}
	}

	w.Header().Set("Content-Type", "application/json")
	//nolint:errcheck // Response write errors are unrecoverable
	json.NewEncoder(w).Encode(map[string]bool{"active": active})
}

// writeDenied sends the one generic denial response used for all failure
// modes on this surface.
func (h *Handler) writeDenied(w http.ResponseWriter) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusForbidden)
	//nolint:errcheck // Response write errors are unrecoverable
	w.Write([]byte(`{"error":"invalid access"}`))
}

func requestMeta(r *http.Request) storage.RequestMeta {
	ip := r.RemoteAddr
	if host, _, err := net.SplitHostPort(ip); err == nil {
		ip = host
	}
	return storage.RequestMeta{
		PageURL:   r.URL.Path,
		IPAddress: ip,
		UserAgent: r.UserAgent(),
	}
}
