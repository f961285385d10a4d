package admin

import (
	"context"
	"crypto/rand"
	"crypto/subtle"
	"encoding/hex"
	"encoding/json"
	"net/http"
	"sync"
	"time"

	"github.com/shoplift-io/accessgate/internal/metrics"
)

// Session represents an operator session. Every session carries its own
// CSRF token; state-changing requests must echo it in X-CSRF-Token.
type Session struct {
	ID        string
	CSRFToken string
	CreatedAt time.Time
	ExpiresAt time.Time
}

// SessionStore manages operator sessions in memory. Operator sessions are
// an availability convenience, not durable state: a restart just forces a
// re-login.
type SessionStore struct {
	sessions map[string]*Session
	mu       sync.RWMutex
	timeout  time.Duration
}

// NewSessionStore creates a session store.
func NewSessionStore(timeout time.Duration) *SessionStore {
	if timeout == 0 {
		timeout = 24 * time.Hour // Default 24 hours
	}
	return &SessionStore{
		sessions: make(map[string]*Session),
		timeout:  timeout,
	}
}

// CreateSession generates a new session with a fresh CSRF token.
func (s *SessionStore) CreateSession(ctx context.Context) (*Session, error) {
	id, err := randomHex(32)
	if err != nil {
		return nil, err
	}
	csrf, err := randomHex(32)
	if err != nil {
		return nil, err
	}

	now := time.Now()
	session := &Session{
		ID:        id,
		CSRFToken: csrf,
		CreatedAt: now,
		ExpiresAt: now.Add(s.timeout),
	}

	s.mu.Lock()
	s.sessions[id] = session
	s.mu.Unlock()

	return session, nil
}

// GetSession retrieves a session by ID, expiring it if stale.
func (s *SessionStore) GetSession(ctx context.Context, id string) (*Session, bool) {
	s.mu.RLock()
	session, ok := s.sessions[id]
	s.mu.RUnlock()

	if !ok {
		return nil, false
	}

	if time.Now().After(session.ExpiresAt) {
		s.DeleteSession(ctx, id)
		return nil, false
	}

	return session, true
}

// DeleteSession removes a session.
func (s *SessionStore) DeleteSession(ctx context.Context, id string) {
	s.mu.Lock()
	delete(s.sessions, id)
	s.mu.Unlock()
}

func randomHex(n int) (string, error) {
	b := make([]byte, n)
	if _, err := rand.Read(b); err != nil {
		return "", err
	}
	return hex.EncodeToString(b), nil
}

const operatorCookie = "operator_session"

// HandleLogin processes operator login
// POST /admin/login
// Body: {"password": "..."}
func (h *Handler) HandleLogin(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Password string `json:"password"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		WriteError(w, http.StatusBadRequest, ErrCodeInvalidRequest, "Invalid JSON")
		return
	}

	if h.password == "" {
		h.logger.Error("admin password not configured")
		WriteError(w, http.StatusInternalServerError, ErrCodeInternalError, "Server configuration error")
		return
	}

	// Constant-time comparison
	if subtle.ConstantTimeCompare([]byte(req.Password), []byte(h.password)) != 1 {
		h.logger.Warn("failed operator login attempt", "remote_addr", r.RemoteAddr)
		metrics.RecordAuthFailure("bad_password")
		WriteError(w, http.StatusUnauthorized, ErrCodeInvalidCredentials, "Invalid password")
		return
	}

	session, err := h.sessions.CreateSession(r.Context())
	if err != nil {
		h.logger.Error("failed to create operator session", "error", err)
		WriteError(w, http.StatusInternalServerError, ErrCodeInternalError, "Internal error")
		return
	}

	http.SetCookie(w, &http.Cookie{
		Name:     operatorCookie,
		Value:    session.ID,
		Path:     "/admin",
		MaxAge:   int(h.sessions.timeout.Seconds()),
		HttpOnly: true,
		Secure:   r.TLS != nil,
		SameSite: http.SameSiteLaxMode,
	})

	h.logger.Info("operator login successful")

	w.Header().Set("Content-Type", "application/json")
	//nolint:errcheck // Response write errors are unrecoverable
	json.NewEncoder(w).Encode(map[string]string{
		"csrf_token": session.CSRFToken,
	})
}

// HandleLogout invalidates the session
// POST /admin/logout
func (h *Handler) HandleLogout(w http.ResponseWriter, r *http.Request) {
	if cookie, err := r.Cookie(operatorCookie); err == nil {
		h.sessions.DeleteSession(r.Context(), cookie.Value)
	}

	http.SetCookie(w, &http.Cookie{
		Name:     operatorCookie,
		Value:    "",
		Path:     "/admin",
		MaxAge:   -1,
		HttpOnly: true,
	})

	w.Header().Set("Content-Type", "application/json")
	//nolint:errcheck // Response write errors are unrecoverable
	json.NewEncoder(w).Encode(map[string]string{"message": "logged out"})
}

// SessionMiddleware validates the operator session cookie and, for
// state-changing methods, the CSRF token header.
func (h *Handler) SessionMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		cookie, err := r.Cookie(operatorCookie)
		if err != nil {
			metrics.RecordAuthFailure("missing_session")
			WriteError(w, http.StatusUnauthorized, ErrCodeInvalidCredentials, "Operator session required")
			return
		}

		session, ok := h.sessions.GetSession(r.Context(), cookie.Value)
		if !ok {
			metrics.RecordAuthFailure("missing_session")
			WriteError(w, http.StatusUnauthorized, ErrCodeInvalidCredentials, "Invalid or expired session")
			return
		}

		// Every state-changing call needs a valid CSRF token
		if r.Method != http.MethodGet && r.Method != http.MethodHead {
			supplied := r.Header.Get("X-CSRF-Token")
			if supplied == "" ||
				subtle.ConstantTimeCompare([]byte(supplied), []byte(session.CSRFToken)) != 1 {
				h.logger.Warn("CSRF token mismatch", "remote_addr", r.RemoteAddr, "path", r.URL.Path)
				metrics.RecordAuthFailure("bad_csrf")
				WriteError(w, http.StatusForbidden, ErrCodeCSRF, "Missing or invalid CSRF token")
				return
			}
		}

		next.ServeHTTP(w, r)
	})
}

// HasOperatorSession reports whether the request carries a valid operator
// session. Used by the maintenance gate to keep the admin area reachable.
func (h *Handler) HasOperatorSession(r *http.Request) bool {
	cookie, err := r.Cookie(operatorCookie)
	if err != nil {
		return false
	}
	_, ok := h.sessions.GetSession(r.Context(), cookie.Value)
	return ok
}
