package admin

import (
	"encoding/json"
	"fmt"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/shoplift-io/accessgate/internal/storage"
)

// TokenResponse represents a bypass token in API responses. Credential
// material is never included; use the view-credentials endpoint.
type TokenResponse struct {
	ID             int64  `json:"id"`
	Name           string `json:"name"`
	Email          string `json:"email"`
	Description    string `json:"description,omitempty"`
	CreatedBy      string `json:"created_by,omitempty"`
	AssignedUserID string `json:"assigned_user_id"`
	IsActive       bool   `json:"is_active"`
	UsageCount     int64  `json:"usage_count"`
	ActiveSessions int    `json:"active_sessions"`
	LastUsedAt     string `json:"last_used_at,omitempty"`
	CreatedAt      string `json:"created_at"`
}

func toTokenResponse(t *storage.TokenWithStats) TokenResponse {
	resp := TokenResponse{
		ID:             t.ID,
		Name:           t.Name,
		Email:          t.Email,
		Description:    t.Description,
		CreatedBy:      t.CreatedBy,
		AssignedUserID: t.AssignedUserID,
		IsActive:       t.IsActive,
		UsageCount:     t.UsageCount,
		ActiveSessions: t.ActiveSessions,
		CreatedAt:      t.CreatedAt.UTC().Format(time.RFC3339),
	}
	if t.LastUsedAt != nil {
		resp.LastUsedAt = t.LastUsedAt.UTC().Format(time.RFC3339)
	}
	return resp
}

// HandleListTokens returns all bypass tokens with derived display fields
// GET /admin/tokens
func (h *Handler) HandleListTokens(w http.ResponseWriter, r *http.Request) {
	tokens, err := h.storage.ListTokens(r.Context())
	if err != nil {
		h.logger.Error("failed to list tokens", "error", err)
		WriteError(w, http.StatusInternalServerError, ErrCodeInternalError, "Internal error")
		return
	}

	response := make([]TokenResponse, len(tokens))
	for i, t := range tokens {
		response[i] = toTokenResponse(t)
	}

	w.Header().Set("Content-Type", "application/json")
	//nolint:errcheck // Response write errors are unrecoverable
	json.NewEncoder(w).Encode(response)
}

// CreateTokenRequest is the request body for POST /admin/tokens
type CreateTokenRequest struct {
	Name           string `json:"name"`
	Email          string `json:"email"`
	Description    string `json:"description"`
	AssignedUserID string `json:"assigned_user_id"`
}

// CreateTokenResponse carries the credential pair, shown once at creation.
type CreateTokenResponse struct {
	ID          int64  `json:"id"`
	Name        string `json:"name"`
	PublicToken string `json:"public_token"`
	Passkey     string `json:"passkey"`
	Message     string `json:"message"`
}

// HandleCreateToken mints a new credential pair
// POST /admin/tokens
func (h *Handler) HandleCreateToken(w http.ResponseWriter, r *http.Request) {
	var req CreateTokenRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		WriteError(w, http.StatusBadRequest, ErrCodeInvalidRequest, "Invalid JSON")
		return
	}

	params := storage.CreateTokenParams{
		Name:           req.Name,
		Email:          req.Email,
		Description:    req.Description,
		CreatedBy:      "operator",
		AssignedUserID: req.AssignedUserID,
	}

	token, publicToken, passkey, err := h.storage.CreateToken(r.Context(), params, requestMeta(r))
	if err != nil {
		h.writeAppError(w, err)
		return
	}

	h.logger.Info("bypass token created", "token_id", token.ID, "name", token.Name)

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusCreated)
	//nolint:errcheck // Response write errors are unrecoverable
	json.NewEncoder(w).Encode(CreateTokenResponse{
		ID:          token.ID,
		Name:        token.Name,
		PublicToken: publicToken,
		Passkey:     passkey,
		Message:     "Access token created. The passkey can be re-viewed from the credentials page.",
	})
}

// HandleViewCredentials re-displays the stored credential pair
// GET /admin/tokens/{id}/credentials
func (h *Handler) HandleViewCredentials(w http.ResponseWriter, r *http.Request) {
	id, ok := h.tokenID(w, r)
	if !ok {
		return
	}

	publicToken, passkey, err := h.storage.ViewCredentials(r.Context(), id)
	if err != nil {
		h.writeAppError(w, err)
		return
	}

	h.logger.Info("credentials re-displayed", "token_id", id)

	w.Header().Set("Content-Type", "application/json")
	//nolint:errcheck // Response write errors are unrecoverable
	json.NewEncoder(w).Encode(map[string]string{
		"public_token": publicToken,
		"passkey":      passkey,
	})
}

// HandleRevokeToken disables a token and cascades to its sessions
// POST /admin/tokens/{id}/revoke
func (h *Handler) HandleRevokeToken(w http.ResponseWriter, r *http.Request) {
	id, ok := h.tokenID(w, r)
	if !ok {
		return
	}

	if err := h.storage.RevokeToken(r.Context(), id, requestMeta(r)); err != nil {
		h.writeAppError(w, err)
		return
	}

	h.logger.Info("bypass token revoked", "token_id", id)
	h.writeMessage(w, "Access token revoked. Any active session has been disconnected.")
}

// HandleReactivateToken re-enables a revoked token
// POST /admin/tokens/{id}/reactivate
func (h *Handler) HandleReactivateToken(w http.ResponseWriter, r *http.Request) {
	id, ok := h.tokenID(w, r)
	if !ok {
		return
	}

	if err := h.storage.ReactivateToken(r.Context(), id, requestMeta(r)); err != nil {
		h.writeAppError(w, err)
		return
	}

	h.logger.Info("bypass token reactivated", "token_id", id)
	h.writeMessage(w, "Access token reactivated. A fresh verification is required for access.")
}

// HandleClearSessions forces a re-verification without disabling the token
// POST /admin/tokens/{id}/clear-sessions
func (h *Handler) HandleClearSessions(w http.ResponseWriter, r *http.Request) {
	id, ok := h.tokenID(w, r)
	if !ok {
		return
	}

	count, err := h.storage.ClearSessions(r.Context(), id, requestMeta(r))
	if err != nil {
		h.writeAppError(w, err)
		return
	}

	h.logger.Info("bypass sessions cleared", "token_id", id, "count", count)
	h.writeMessage(w, fmt.Sprintf("%d session(s) cleared.", count))
}

// HandleCleanupTokens deletes tokens orphaned by user deletion
// POST /admin/tokens/cleanup
func (h *Handler) HandleCleanupTokens(w http.ResponseWriter, r *http.Request) {
	count, err := h.storage.CleanupUnknownTokens(r.Context(), requestMeta(r))
	if err != nil {
		h.writeAppError(w, err)
		return
	}

	h.logger.Info("unknown tokens cleaned up", "count", count)

	w.Header().Set("Content-Type", "application/json")
	//nolint:errcheck // Response write errors are unrecoverable
	json.NewEncoder(w).Encode(map[string]any{
		"deleted": count,
		"message": fmt.Sprintf("%d unknown token(s) deleted.", count),
	})
}

func (h *Handler) tokenID(w http.ResponseWriter, r *http.Request) (int64, bool) {
	idStr := chi.URLParam(r, "id")
	id, err := strconv.ParseInt(idStr, 10, 64)
	if err != nil {
		WriteError(w, http.StatusBadRequest, ErrCodeInvalidRequest, "Invalid token ID")
		return 0, false
	}
	return id, true
}

func (h *Handler) writeMessage(w http.ResponseWriter, msg string) {
	w.Header().Set("Content-Type", "application/json")
	//nolint:errcheck // Response write errors are unrecoverable
	json.NewEncoder(w).Encode(map[string]string{"message": msg})
}
