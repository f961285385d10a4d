package admin

import (
	"encoding/json"
	"net/http"
	"strconv"
	"time"

	"github.com/shoplift-io/accessgate/internal/storage"
)

// AuditEntryResponse represents one audit ledger row in API responses.
type AuditEntryResponse struct {
	ID        int64  `json:"id"`
	TokenID   *int64 `json:"token_id,omitempty"`
	SessionID string `json:"session_id,omitempty"`
	Action    string `json:"action"`
	Detail    string `json:"detail,omitempty"`
	PageURL   string `json:"page_url,omitempty"`
	IPAddress string `json:"ip_address,omitempty"`
	UserAgent string `json:"user_agent,omitempty"`
	CreatedAt string `json:"created_at"`
}

// HandleQueryAudit returns audit entries, newest first
// GET /admin/audit?token_id=&action=&limit=
func (h *Handler) HandleQueryAudit(w http.ResponseWriter, r *http.Request) {
	var filter storage.AuditFilter

	if s := r.URL.Query().Get("token_id"); s != "" {
		id, err := strconv.ParseInt(s, 10, 64)
		if err != nil {
			WriteError(w, http.StatusBadRequest, ErrCodeInvalidRequest, "Invalid token_id")
			return
		}
		filter.TokenID = &id
	}
	if s := r.URL.Query().Get("action"); s != "" {
		filter.Action = storage.AuditAction(s)
	}
	if s := r.URL.Query().Get("limit"); s != "" {
		limit, err := strconv.Atoi(s)
		if err != nil || limit < 1 {
			WriteError(w, http.StatusBadRequest, ErrCodeInvalidRequest, "Invalid limit")
			return
		}
		filter.Limit = limit
	}

	entries, err := h.storage.QueryAudit(r.Context(), filter)
	if err != nil {
		h.logger.Error("failed to query audit log", "error", err)
		WriteError(w, http.StatusInternalServerError, ErrCodeInternalError, "Internal error")
		return
	}

	response := make([]AuditEntryResponse, len(entries))
	for i, e := range entries {
		resp := AuditEntryResponse{
			ID:        e.ID,
			TokenID:   e.TokenID,
			Action:    string(e.Action),
			Detail:    e.Detail,
			PageURL:   e.PageURL,
			IPAddress: e.IPAddress,
			UserAgent: e.UserAgent,
			CreatedAt: e.CreatedAt.UTC().Format(time.RFC3339),
		}
		if e.SessionID != nil {
			resp.SessionID = *e.SessionID
		}
		response[i] = resp
	}

	w.Header().Set("Content-Type", "application/json")
	//nolint:errcheck // Response write errors are unrecoverable
	json.NewEncoder(w).Encode(response)
}
