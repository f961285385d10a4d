package storage

import "time"

// Token represents a maintenance-bypass credential pair record.
// The plaintext passkey is never stored directly: PasskeyHash is the bcrypt
// verify form, PasskeyEncrypted the AES-GCM form used only for operator
// re-display.
type Token struct {
	ID               int64
	PublicToken      string
	PasskeyHash      string
	PasskeyEncrypted string
	Name             string
	Email            string
	Description      string
	CreatedBy        string
	AssignedUserID   string
	IsActive         bool
	UsageCount       int64
	LastUsedAt       *time.Time
	CreatedAt        time.Time
}

// TokenWithStats is a Token plus fields derived for administrative display.
type TokenWithStats struct {
	Token
	ActiveSessions int
}

// Session binds a token to one live client context.
type Session struct {
	ID        int64
	SessionID string
	TokenID   int64
	IsActive  bool
	CreatedAt time.Time
}

// AuditEntry is one row of the append-only audit ledger.
type AuditEntry struct {
	ID        int64
	TokenID   *int64
	SessionID *string
	Action    AuditAction
	Detail    string
	PageURL   string
	IPAddress string
	UserAgent string
	CreatedAt time.Time
}

// AuditAction enumerates every auditable event.
type AuditAction string

const (
	AuditCreated         AuditAction = "created"
	AuditAccessGranted   AuditAction = "access_granted"
	AuditAccessDenied    AuditAction = "access_denied"
	AuditSessionsCleared AuditAction = "sessions_cleared"
	AuditRevoked         AuditAction = "revoked"
	AuditReactivated     AuditAction = "reactivated"
	AuditCleanedUp       AuditAction = "cleaned_up"
)

// RequestMeta carries the request attributes recorded on audit entries.
type RequestMeta struct {
	PageURL   string
	IPAddress string
	UserAgent string
}

// MaintenanceWindow is the singleton site-wide maintenance state.
type MaintenanceWindow struct {
	Enabled   bool
	StartsAt  *time.Time
	EndsAt    *time.Time
	UpdatedAt time.Time
}
