package admin

import (
	"encoding/json"
	"net/http"
	"time"

	"github.com/shoplift-io/accessgate/internal/storage"
)

// bypassRuleBody is the managed edge rule block: during maintenance
// everything except the admin area, the bypass endpoints, and the holding
// page itself is rewritten to the holding page. The gate's per-request check
// stays the source of truth; this block is regenerated from it.
const bypassRuleBody = `RewriteCond %{REQUEST_URI} !^/admin
RewriteCond %{REQUEST_URI} !^/bypass
RewriteCond %{REQUEST_URI} !^/maintenance.html$
RewriteRule ^.*$ /maintenance.html [R=302,L]`

// MaintenanceResponse is the window state in API responses.
type MaintenanceResponse struct {
	Enabled       bool   `json:"enabled"`
	StartsAt      string `json:"starts_at,omitempty"`
	EndsAt        string `json:"ends_at,omitempty"`
	RuleInstalled *bool  `json:"rule_installed,omitempty"`
}

// HandleGetMaintenance returns the maintenance window state
// GET /admin/maintenance
func (h *Handler) HandleGetMaintenance(w http.ResponseWriter, r *http.Request) {
	window, err := h.storage.GetMaintenanceWindow(r.Context())
	if err != nil {
		h.logger.Error("failed to get maintenance window", "error", err)
		WriteError(w, http.StatusInternalServerError, ErrCodeInternalError, "Internal error")
		return
	}

	resp := MaintenanceResponse{Enabled: window.Enabled}
	if window.StartsAt != nil {
		resp.StartsAt = window.StartsAt.UTC().Format(time.RFC3339)
	}
	if window.EndsAt != nil {
		resp.EndsAt = window.EndsAt.UTC().Format(time.RFC3339)
	}
	if h.rules != nil {
		if installed, err := h.rules.Installed(); err == nil {
			resp.RuleInstalled = &installed
		}
	}

	w.Header().Set("Content-Type", "application/json")
	//nolint:errcheck // Response write errors are unrecoverable
	json.NewEncoder(w).Encode(resp)
}

// SetMaintenanceRequest is the request body for POST /admin/maintenance
type SetMaintenanceRequest struct {
	Enabled  bool   `json:"enabled"`
	StartsAt string `json:"starts_at,omitempty"` // RFC3339
	EndsAt   string `json:"ends_at,omitempty"`   // RFC3339
}

// HandleSetMaintenance updates the window and keeps the edge rule in step
// POST /admin/maintenance
func (h *Handler) HandleSetMaintenance(w http.ResponseWriter, r *http.Request) {
	var req SetMaintenanceRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		WriteError(w, http.StatusBadRequest, ErrCodeInvalidRequest, "Invalid JSON")
		return
	}

	window := &storage.MaintenanceWindow{Enabled: req.Enabled}
	if req.StartsAt != "" {
		t, err := time.Parse(time.RFC3339, req.StartsAt)
		if err != nil {
			WriteError(w, http.StatusBadRequest, ErrCodeInvalidRequest, "starts_at must be RFC3339")
			return
		}
		window.StartsAt = &t
	}
	if req.EndsAt != "" {
		t, err := time.Parse(time.RFC3339, req.EndsAt)
		if err != nil {
			WriteError(w, http.StatusBadRequest, ErrCodeInvalidRequest, "ends_at must be RFC3339")
			return
		}
		window.EndsAt = &t
	}
	if window.StartsAt != nil && window.EndsAt != nil && window.EndsAt.Before(*window.StartsAt) {
		WriteError(w, http.StatusBadRequest, ErrCodeInvalidRequest, "ends_at must be after starts_at")
		return
	}

	if err := h.storage.SetMaintenanceWindow(r.Context(), window); err != nil {
		h.logger.Error("failed to set maintenance window", "error", err)
		WriteError(w, http.StatusInternalServerError, ErrCodeInternalError, "Internal error")
		return
	}

	// Keep the static edge rule in step with the stored state. A rule
	// failure is reported but does not undo the window change: the
	// per-request gate check remains authoritative either way.
	if h.rules != nil {
		var ruleErr error
		if req.Enabled {
			ruleErr = h.rules.Install(bypassRuleBody)
		} else {
			ruleErr = h.rules.Remove()
		}
		if ruleErr != nil {
			h.logger.Error("failed to update edge rule", "error", ruleErr, "enabled", req.Enabled)
			WriteError(w, http.StatusInternalServerError, ErrCodeInternalError,
				"Maintenance state saved but the edge rule update failed")
			return
		}
	}

	h.logger.Info("maintenance window updated", "enabled", req.Enabled)

	msg := "Maintenance mode disabled."
	if req.Enabled {
		msg = "Maintenance mode enabled. Bypass tokens may now be used."
	}
	h.writeMessage(w, msg)
}
