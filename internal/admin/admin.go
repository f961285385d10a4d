// Package admin provides the operator management surface for bypass tokens.
package admin

import (
	"context"
	"log/slog"
	"net"
	"net/http"

	"github.com/shoplift-io/accessgate/internal/gate"
	"github.com/shoplift-io/accessgate/internal/storage"
)

// Handler provides the operator endpoints.
type Handler struct {
	storage  Storage
	logger   *slog.Logger
	logLevel *slog.LevelVar
	sessions *SessionStore
	password string

	// rules is nil when edge rule management is disabled.
	rules *gate.RuleInstaller
}

// Storage is the persistence surface the admin handlers need.
type Storage interface {
	// Health check
	Ping(ctx context.Context) error

	// Token lifecycle
	CreateToken(ctx context.Context, params storage.CreateTokenParams, meta storage.RequestMeta) (*storage.Token, string, string, error)
	RevokeToken(ctx context.Context, id int64, meta storage.RequestMeta) error
	ReactivateToken(ctx context.Context, id int64, meta storage.RequestMeta) error
	CleanupUnknownTokens(ctx context.Context, meta storage.RequestMeta) (int64, error)
	ListTokens(ctx context.Context) ([]*storage.TokenWithStats, error)
	ViewCredentials(ctx context.Context, id int64) (string, string, error)

	// Session management
	ClearSessions(ctx context.Context, tokenID int64, meta storage.RequestMeta) (int64, error)

	// Audit
	QueryAudit(ctx context.Context, filter storage.AuditFilter) ([]*storage.AuditEntry, error)

	// Maintenance window
	GetMaintenanceWindow(ctx context.Context) (*storage.MaintenanceWindow, error)
	SetMaintenanceWindow(ctx context.Context, w *storage.MaintenanceWindow) error
}

// NewHandler creates an admin handler. rules may be nil.
func NewHandler(st Storage, password string, rules *gate.RuleInstaller, logLevel *slog.LevelVar, logger *slog.Logger) *Handler {
	if logger == nil {
		logger = slog.Default()
	}
	if logLevel == nil {
		logLevel = new(slog.LevelVar)
	}

	return &Handler{
		storage:  st,
		logger:   logger,
		logLevel: logLevel,
		sessions: NewSessionStore(0),
		password: password,
		rules:    rules,
	}
}

// requestMeta extracts the audit attributes from a request.
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
