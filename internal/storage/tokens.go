package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/go-playground/validator/v10"
	"modernc.org/sqlite"
	sqlite3 "modernc.org/sqlite/lib"

	"github.com/shoplift-io/accessgate/internal/apperr"
)

var validate = validator.New()

// CreateTokenParams holds the operator-supplied attributes of a new token.
type CreateTokenParams struct {
	Name           string `validate:"required"`
	Email          string `validate:"required,email"`
	Description    string
	CreatedBy      string
	AssignedUserID string `validate:"required"`
}

// CreateToken mints a new credential pair: a random public token and a
// random passkey. The passkey is persisted twice - bcrypt hash for
// verification, AES-GCM ciphertext for operator re-display - and the
// plaintext pair is returned to the caller exactly once.
// Returns a VALIDATION error when name, email, or assigned user is missing.
func (s *SQLiteStorage) CreateToken(ctx context.Context, params CreateTokenParams, meta RequestMeta) (*Token, string, string, error) {
	if err := validate.Struct(params); err != nil {
		return nil, "", "", apperr.Wrap(apperr.CodeValidation, "name, email and assigned user are required", err)
	}

	publicToken, err := GeneratePublicToken()
	if err != nil {
		return nil, "", "", fmt.Errorf("failed to generate public token: %w", err)
	}
	passkey, err := GeneratePasskey()
	if err != nil {
		return nil, "", "", fmt.Errorf("failed to generate passkey: %w", err)
	}

	passkeyHash, err := HashPasskey(passkey)
	if err != nil {
		return nil, "", "", fmt.Errorf("failed to hash passkey: %w", err)
	}
	passkeyEncrypted, err := EncryptPasskey(passkey, s.encryptionKey)
	if err != nil {
		return nil, "", "", fmt.Errorf("failed to encrypt passkey: %w", err)
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, "", "", apperr.Storage("failed to begin transaction", err)
	}
	defer tx.Rollback() //nolint:errcheck

	result, err := tx.ExecContext(ctx,
		`INSERT INTO tokens (public_token, passkey_hash, passkey_encrypted, name, email, description, created_by, assigned_user_id, is_active, usage_count)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, 1, 0)`,
		publicToken, passkeyHash, passkeyEncrypted,
		params.Name, params.Email, params.Description, params.CreatedBy, params.AssignedUserID)
	if err != nil {
		// UNIQUE violation on public_token: extended code 2067,
		// base constraint code 19
		var sqliteErr *sqlite.Error
		if errors.As(err, &sqliteErr) {
			if sqliteErr.Code() == 2067 || (sqliteErr.Code()&0xFF) == sqlite3.SQLITE_CONSTRAINT {
				return nil, "", "", ErrDuplicate
			}
		}
		return nil, "", "", apperr.Storage("failed to create token", err)
	}

	id, err := result.LastInsertId()
	if err != nil {
		return nil, "", "", apperr.Storage("failed to get insert ID", err)
	}

	entry := &AuditEntry{
		TokenID:   &id,
		Action:    AuditCreated,
		Detail:    "token created for " + params.Name,
		PageURL:   meta.PageURL,
		IPAddress: meta.IPAddress,
		UserAgent: meta.UserAgent,
	}
	if err := appendAudit(ctx, tx, entry); err != nil {
		return nil, "", "", apperr.Storage("failed to audit token creation", err)
	}

	if err := tx.Commit(); err != nil {
		return nil, "", "", apperr.Storage("failed to commit token creation", err)
	}

	token := &Token{
		ID:               id,
		PublicToken:      publicToken,
		PasskeyHash:      passkeyHash,
		PasskeyEncrypted: passkeyEncrypted,
		Name:             params.Name,
		Email:            params.Email,
		Description:      params.Description,
		CreatedBy:        params.CreatedBy,
		AssignedUserID:   params.AssignedUserID,
		IsActive:         true,
		UsageCount:       0,
		CreatedAt:        time.Now().UTC(),
	}

	return token, publicToken, passkey, nil
}

// GetTokenByPublic retrieves a token by its public token value.
// Returns ErrNotFound if no such token exists.
func (s *SQLiteStorage) GetTokenByPublic(ctx context.Context, publicToken string) (*Token, error) {
	return s.scanToken(s.db.QueryRowContext(ctx,
		selectTokenColumns+" FROM tokens WHERE public_token = ?", publicToken))
}

// GetTokenByID retrieves a token by ID.
// Returns ErrNotFound if the token doesn't exist.
func (s *SQLiteStorage) GetTokenByID(ctx context.Context, id int64) (*Token, error) {
	return s.scanToken(s.db.QueryRowContext(ctx,
		selectTokenColumns+" FROM tokens WHERE id = ?", id))
}

const selectTokenColumns = `SELECT id, public_token, passkey_hash, passkey_encrypted, name, email, description, created_by, assigned_user_id, is_active, usage_count, last_used_at, created_at`

func (s *SQLiteStorage) scanToken(row *sql.Row) (*Token, error) {
	var t Token
	var lastUsed sql.NullTime

	err := row.Scan(&t.ID, &t.PublicToken, &t.PasskeyHash, &t.PasskeyEncrypted,
		&t.Name, &t.Email, &t.Description, &t.CreatedBy, &t.AssignedUserID,
		&t.IsActive, &t.UsageCount, &lastUsed, &t.CreatedAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("failed to get token: %w", err)
	}

	if lastUsed.Valid {
		t.LastUsedAt = &lastUsed.Time
	}
	return &t, nil
}

// RevokeToken disables a token and deactivates every session bound to it in
// the same transaction, so no interleaving can leave a stray active session.
// Idempotent: revoking an already-revoked token succeeds without writing a
// second audit entry.
func (s *SQLiteStorage) RevokeToken(ctx context.Context, id int64, meta RequestMeta) error {
	return s.setTokenActive(ctx, id, false, meta)
}

// ReactivateToken re-enables a revoked token. No prior session is restored;
// a fresh verification is required to regain bypass access.
func (s *SQLiteStorage) ReactivateToken(ctx context.Context, id int64, meta RequestMeta) error {
	return s.setTokenActive(ctx, id, true, meta)
}

func (s *SQLiteStorage) setTokenActive(ctx context.Context, id int64, active bool, meta RequestMeta) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return apperr.Storage("failed to begin transaction", err)
	}
	defer tx.Rollback() //nolint:errcheck

	var current bool
	err = tx.QueryRowContext(ctx, "SELECT is_active FROM tokens WHERE id = ?", id).Scan(&current)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return apperr.NotFound("token not found")
		}
		return apperr.Storage("failed to look up token", err)
	}

	// No state transition, nothing to record
	if current == active {
		return nil
	}

	if _, err := tx.ExecContext(ctx, "UPDATE tokens SET is_active = ? WHERE id = ?", active, id); err != nil {
		return apperr.Storage("failed to update token", err)
	}

	action := AuditReactivated
	detail := "token reactivated"
	if !active {
		action = AuditRevoked
		detail = "token revoked"

		// Cascade: every session for this token dies with the revoke
		res, err := tx.ExecContext(ctx,
			"UPDATE sessions SET is_active = 0 WHERE token_id = ? AND is_active = 1", id)
		if err != nil {
			return apperr.Storage("failed to deactivate sessions", err)
		}
		if n, err := res.RowsAffected(); err == nil && n > 0 {
			detail = fmt.Sprintf("token revoked, %d session(s) deactivated", n)
		}
	}

	entry := &AuditEntry{
		TokenID:   &id,
		Action:    action,
		Detail:    detail,
		PageURL:   meta.PageURL,
		IPAddress: meta.IPAddress,
		UserAgent: meta.UserAgent,
	}
	if err := appendAudit(ctx, tx, entry); err != nil {
		return apperr.Storage("failed to audit token state change", err)
	}

	if err := tx.Commit(); err != nil {
		return apperr.Storage("failed to commit token state change", err)
	}

	return nil
}

// CleanupUnknownTokens deletes tokens whose name is empty, left behind when
// their owning user was deleted. Named tokens are never touched, even when
// the owning user no longer exists. Returns the number of rows deleted and
// writes one summarizing audit entry.
func (s *SQLiteStorage) CleanupUnknownTokens(ctx context.Context, meta RequestMeta) (int64, error) {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return 0, apperr.Storage("failed to begin transaction", err)
	}
	defer tx.Rollback() //nolint:errcheck

	result, err := tx.ExecContext(ctx, "DELETE FROM tokens WHERE name = '' OR name IS NULL")
	if err != nil {
		return 0, apperr.Storage("failed to delete unknown tokens", err)
	}

	count, err := result.RowsAffected()
	if err != nil {
		return 0, apperr.Storage("failed to get rows affected", err)
	}

	entry := &AuditEntry{
		Action:    AuditCleanedUp,
		Detail:    fmt.Sprintf("deleted %d unnamed token(s)", count),
		PageURL:   meta.PageURL,
		IPAddress: meta.IPAddress,
		UserAgent: meta.UserAgent,
	}
	if err := appendAudit(ctx, tx, entry); err != nil {
		return 0, apperr.Storage("failed to audit cleanup", err)
	}

	if err := tx.Commit(); err != nil {
		return 0, apperr.Storage("failed to commit cleanup", err)
	}

	return count, nil
}

// ListTokens returns all tokens with their active session counts for
// administrative display, newest first. Read-only, no side effects.
func (s *SQLiteStorage) ListTokens(ctx context.Context) ([]*TokenWithStats, error) {
	rows, err := s.db.QueryContext(ctx,
		selectTokenColumns+`,
			(SELECT COUNT(*) FROM sessions ss WHERE ss.token_id = tokens.id AND ss.is_active = 1)
		 FROM tokens ORDER BY created_at DESC, id DESC`)
	if err != nil {
		return nil, fmt.Errorf("failed to query tokens: %w", err)
	}
	defer rows.Close() //nolint:errcheck

	var tokens []*TokenWithStats

	for rows.Next() {
		var t TokenWithStats
		var lastUsed sql.NullTime
		err := rows.Scan(&t.ID, &t.PublicToken, &t.PasskeyHash, &t.PasskeyEncrypted,
			&t.Name, &t.Email, &t.Description, &t.CreatedBy, &t.AssignedUserID,
			&t.IsActive, &t.UsageCount, &lastUsed, &t.CreatedAt, &t.ActiveSessions)
		if err != nil {
			return nil, fmt.Errorf("failed to scan token row: %w", err)
		}
		if lastUsed.Valid {
			t.LastUsedAt = &lastUsed.Time
		}
		tokens = append(tokens, &t)
	}

	if err = rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating tokens: %w", err)
	}

	// Return empty slice instead of nil
	if tokens == nil {
		tokens = make([]*TokenWithStats, 0)
	}

	return tokens, nil
}

// ViewCredentials decrypts and returns the credential pair for operator
// re-display. Access control is the caller's responsibility.
func (s *SQLiteStorage) ViewCredentials(ctx context.Context, id int64) (publicToken, passkey string, err error) {
	token, err := s.GetTokenByID(ctx, id)
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			return "", "", apperr.NotFound("token not found")
		}
		return "", "", err
	}

	passkey, err = DecryptPasskey(token.PasskeyEncrypted, s.encryptionKey)
	if err != nil {
		return "", "", apperr.Storage("failed to decrypt passkey", err)
	}

	return token.PublicToken, passkey, nil
}
