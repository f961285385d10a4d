package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/shoplift-io/accessgate/internal/apperr"
)

// Public denial message. The bypass surface must not distinguish unknown
// tokens, revoked tokens, or wrong passkeys, so every denial carries the
// same message; the audit detail records the real reason for operators.
const deniedMessage = "invalid access"

// Verify checks a credential pair and atomically binds a session to the
// token. The check-then-create runs in one transaction over the single
// database connection: of two concurrent calls with the same valid pair and
// different session IDs, exactly one creates the binding and the other
// observes it and gets a CONFLICT error. A re-verify carrying the session ID
// that already holds the binding is granted again (idempotent).
//
// Every outcome, grant or denial, is written to the audit log before the
// call returns; a failed audit write fails the operation.
func (s *SQLiteStorage) Verify(ctx context.Context, publicToken, passkey, sessionID string, meta RequestMeta) error {
	if sessionID == "" {
		return apperr.Unauthorized(deniedMessage)
	}

	// The passkey comparison is deliberately outside the transaction:
	// bcrypt takes ~100ms and the token's hash is immutable, so holding
	// the database lock for it would serialize unrelated traffic for no
	// correctness gain. is_active is re-read inside the transaction.
	token, err := s.GetTokenByPublic(ctx, publicToken)
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			return s.denyVerify(ctx, nil, sessionID, "unknown token", meta)
		}
		return apperr.Storage("failed to look up token", err)
	}

	if !token.IsActive {
		return s.denyVerify(ctx, &token.ID, sessionID, "token revoked", meta)
	}

	if err := VerifyPasskey(passkey, token.PasskeyHash); err != nil {
		return s.denyVerify(ctx, &token.ID, sessionID, "passkey mismatch", meta)
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return apperr.Storage("failed to begin transaction", err)
	}
	defer tx.Rollback() //nolint:errcheck

	// Re-read under the transaction: a revoke between the lookup above
	// and this point must win.
	var isActive bool
	err = tx.QueryRowContext(ctx, "SELECT is_active FROM tokens WHERE id = ?", token.ID).Scan(&isActive)
	if err != nil {
		return apperr.Storage("failed to re-check token", err)
	}
	if !isActive {
		if err := s.auditDenialTx(ctx, tx, &token.ID, sessionID, "token revoked", meta); err != nil {
			return err
		}
		return apperr.Unauthorized(deniedMessage)
	}

	var existing string
	err = tx.QueryRowContext(ctx,
		"SELECT session_id FROM sessions WHERE token_id = ? AND is_active = 1", token.ID).Scan(&existing)
	switch {
	case err == nil && existing != sessionID:
		if err := s.auditDenialTx(ctx, tx, &token.ID, sessionID, "session conflict", meta); err != nil {
			return err
		}
		return apperr.Conflict("token already in use by another session")
	case err == nil:
		// Idempotent re-verify by the holder of the binding
	case errors.Is(err, sql.ErrNoRows):
		if _, err := tx.ExecContext(ctx,
			"INSERT INTO sessions (session_id, token_id, is_active) VALUES (?, ?, 1)",
			sessionID, token.ID); err != nil {
			return apperr.Storage("failed to create session", err)
		}
	default:
		return apperr.Storage("failed to check sessions", err)
	}

	if _, err := tx.ExecContext(ctx,
		"UPDATE tokens SET usage_count = usage_count + 1, last_used_at = ? WHERE id = ?",
		time.Now().UTC(), token.ID); err != nil {
		return apperr.Storage("failed to update token usage", err)
	}

	entry := &AuditEntry{
		TokenID:   &token.ID,
		SessionID: &sessionID,
		Action:    AuditAccessGranted,
		PageURL:   meta.PageURL,
		IPAddress: meta.IPAddress,
		UserAgent: meta.UserAgent,
	}
	if err := appendAudit(ctx, tx, entry); err != nil {
		return apperr.Storage("failed to audit access grant", err)
	}

	// Granted only once the session binding and audit entry are durable
	if err := tx.Commit(); err != nil {
		return apperr.Storage("failed to commit verification", err)
	}

	return nil
}

// denyVerify records a denial and returns the generic authorization error.
// Denials never mutate sessions or usage counters.
func (s *SQLiteStorage) denyVerify(ctx context.Context, tokenID *int64, sessionID, reason string, meta RequestMeta) error {
	entry := &AuditEntry{
		TokenID:   tokenID,
		SessionID: &sessionID,
		Action:    AuditAccessDenied,
		Detail:    reason,
		PageURL:   meta.PageURL,
		IPAddress: meta.IPAddress,
		UserAgent: meta.UserAgent,
	}
	if err := appendAudit(ctx, s.db, entry); err != nil {
		return apperr.Storage("failed to audit access denial", err)
	}
	return apperr.Unauthorized(deniedMessage)
}

// auditDenialTx writes a denial inside an open transaction and commits it,
// so the audit row survives even though the verification failed.
func (s *SQLiteStorage) auditDenialTx(ctx context.Context, tx *sql.Tx, tokenID *int64, sessionID, reason string, meta RequestMeta) error {
	entry := &AuditEntry{
		TokenID:   tokenID,
		SessionID: &sessionID,
		Action:    AuditAccessDenied,
		Detail:    reason,
		PageURL:   meta.PageURL,
		IPAddress: meta.IPAddress,
		UserAgent: meta.UserAgent,
	}
	if err := appendAudit(ctx, tx, entry); err != nil {
		return apperr.Storage("failed to audit access denial", err)
	}
	if err := tx.Commit(); err != nil {
		return apperr.Storage("failed to commit denial audit", err)
	}
	return nil
}

// ClearSessions deactivates every active session for a token without
// changing the token's own active flag. Used to force a re-verification
// without disabling the credential.
func (s *SQLiteStorage) ClearSessions(ctx context.Context, tokenID int64, meta RequestMeta) (int64, error) {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return 0, apperr.Storage("failed to begin transaction", err)
	}
	defer tx.Rollback() //nolint:errcheck

	var exists int
	err = tx.QueryRowContext(ctx, "SELECT 1 FROM tokens WHERE id = ?", tokenID).Scan(&exists)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return 0, apperr.NotFound("token not found")
		}
		return 0, apperr.Storage("failed to look up token", err)
	}

	result, err := tx.ExecContext(ctx,
		"UPDATE sessions SET is_active = 0 WHERE token_id = ? AND is_active = 1", tokenID)
	if err != nil {
		return 0, apperr.Storage("failed to clear sessions", err)
	}

	count, err := result.RowsAffected()
	if err != nil {
		return 0, apperr.Storage("failed to get rows affected", err)
	}

	entry := &AuditEntry{
		TokenID:   &tokenID,
		Action:    AuditSessionsCleared,
		Detail:    fmt.Sprintf("%d session(s) cleared", count),
		PageURL:   meta.PageURL,
		IPAddress: meta.IPAddress,
		UserAgent: meta.UserAgent,
	}
	if err := appendAudit(ctx, tx, entry); err != nil {
		return 0, apperr.Storage("failed to audit session clear", err)
	}

	if err := tx.Commit(); err != nil {
		return 0, apperr.Storage("failed to commit session clear", err)
	}

	return count, nil
}

// ActiveSessionCount returns the number of active sessions for a token.
// The single-session invariant means this is always 0 or 1.
func (s *SQLiteStorage) ActiveSessionCount(ctx context.Context, tokenID int64) (int, error) {
	var count int
	err := s.db.QueryRowContext(ctx,
		"SELECT COUNT(*) FROM sessions WHERE token_id = ? AND is_active = 1", tokenID).Scan(&count)
	if err != nil {
		return 0, fmt.Errorf("failed to count sessions: %w", err)
	}
	return count, nil
}

// IsSessionActive reports whether a session ID names a live binding on an
// active token. Both flags are read from the store on every call so a revoke
// takes effect on the very next check.
func (s *SQLiteStorage) IsSessionActive(ctx context.Context, sessionID string) (bool, error) {
	if sessionID == "" {
		return false, nil
	}

	var one int
	err := s.db.QueryRowContext(ctx,
		`SELECT 1 FROM sessions s
		 JOIN tokens t ON t.id = s.token_id
		 WHERE s.session_id = ? AND s.is_active = 1 AND t.is_active = 1`,
		sessionID).Scan(&one)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return false, nil
		}
		return false, fmt.Errorf("failed to check session: %w", err)
	}

	return true, nil
}
