// Package storage handles all database operations for the access gate.
package storage

import (
	"database/sql"
	"fmt"
)

// InitSchema creates all required tables and indexes.
// This is idempotent - safe to call multiple times.
func InitSchema(db *sql.DB) error {
	// Enable foreign key constraints
	if _, err := db.Exec("PRAGMA foreign_keys = ON"); err != nil {
		return fmt.Errorf("failed to enable foreign keys: %w", err)
	}

	ddlStatements := []string{
		// tokens table: bypass credential pairs and their lifecycle flags
		`CREATE TABLE IF NOT EXISTS tokens (
			id INTEGER PRIMARY KEY AUTOINCREMENT,
			public_token TEXT NOT NULL UNIQUE,
			passkey_hash TEXT NOT NULL,
			passkey_encrypted TEXT NOT NULL,
			name TEXT NOT NULL DEFAULT '',
			email TEXT NOT NULL DEFAULT '',
			description TEXT NOT NULL DEFAULT '',
			created_by TEXT NOT NULL DEFAULT '',
			assigned_user_id TEXT NOT NULL DEFAULT '',
			is_active INTEGER NOT NULL DEFAULT 1,
			usage_count INTEGER NOT NULL DEFAULT 0,
			last_used_at TIMESTAMP,
			created_at TIMESTAMP DEFAULT CURRENT_TIMESTAMP
		)`,

		// Index on public_token for the verification lookup
		`CREATE INDEX IF NOT EXISTS idx_tokens_public ON tokens(public_token)`,

		// sessions table: at most one active row per token, enforced by
		// the partial unique index below as a backstop to the Verify
		// transaction
		`CREATE TABLE IF NOT EXISTS sessions (
			id INTEGER PRIMARY KEY AUTOINCREMENT,
			session_id TEXT NOT NULL,
			token_id INTEGER NOT NULL,
			is_active INTEGER NOT NULL DEFAULT 1,
			created_at TIMESTAMP DEFAULT CURRENT_TIMESTAMP,
			FOREIGN KEY (token_id) REFERENCES tokens(id) ON DELETE CASCADE
		)`,

		`CREATE INDEX IF NOT EXISTS idx_sessions_token ON sessions(token_id)`,
		`CREATE INDEX IF NOT EXISTS idx_sessions_session_id ON sessions(session_id)`,
		`CREATE UNIQUE INDEX IF NOT EXISTS uniq_sessions_active
			ON sessions(token_id) WHERE is_active = 1`,

		// audit_log table: append-only; no UPDATE or DELETE is ever issued
		`CREATE TABLE IF NOT EXISTS audit_log (
			id INTEGER PRIMARY KEY AUTOINCREMENT,
			token_id INTEGER,
			session_id TEXT,
			action TEXT NOT NULL,
			detail TEXT NOT NULL DEFAULT '',
			page_url TEXT NOT NULL DEFAULT '',
			ip_address TEXT NOT NULL DEFAULT '',
			user_agent TEXT NOT NULL DEFAULT '',
			created_at TIMESTAMP DEFAULT CURRENT_TIMESTAMP
		)`,

		`CREATE INDEX IF NOT EXISTS idx_audit_token ON audit_log(token_id)`,
		`CREATE INDEX IF NOT EXISTS idx_audit_action ON audit_log(action)`,

		// settings table: singleton maintenance window state
		`CREATE TABLE IF NOT EXISTS settings (
			id INTEGER PRIMARY KEY CHECK (id = 1),
			maintenance_enabled INTEGER NOT NULL DEFAULT 0,
			starts_at TIMESTAMP,
			ends_at TIMESTAMP,
			updated_at TIMESTAMP DEFAULT CURRENT_TIMESTAMP
		)`,
	}

	for _, stmt := range ddlStatements {
		if _, err := db.Exec(stmt); err != nil {
			return fmt.Errorf("failed to execute DDL: %w", err)
		}
	}

	return nil
}

// MigrateSchema checks current schema version and applies migrations.
// Only v1 exists today; future versions add incremental migration logic here.
func MigrateSchema(db *sql.DB) error {
	return InitSchema(db)
}
