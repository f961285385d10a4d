package storage

import (
	"context"
	"database/sql"
	"fmt"
)

// execer is satisfied by both *sql.DB and *sql.Tx so audit writes can join
// the transaction of the operation they record.
type execer interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
}

// appendAudit writes one audit row using the given executor. When ex is the
// transaction of a state change, a failed audit write fails the whole
// transaction: the ledger is the only detective control on this subsystem,
// so no state change may outlive a lost audit entry.
func appendAudit(ctx context.Context, ex execer, e *AuditEntry) error {
	var tokenID any
	if e.TokenID != nil {
		tokenID = *e.TokenID
	}
	var sessionID any
	if e.SessionID != nil {
		sessionID = *e.SessionID
	}

	_, err := ex.ExecContext(ctx,
		`INSERT INTO audit_log (token_id, session_id, action, detail, page_url, ip_address, user_agent)
		 VALUES (?, ?, ?, ?, ?, ?, ?)`,
		tokenID, sessionID, string(e.Action), e.Detail, e.PageURL, e.IPAddress, e.UserAgent)
	if err != nil {
		return fmt.Errorf("failed to append audit entry: %w", err)
	}

	return nil
}

// AppendAudit writes one audit row outside any broader transaction.
func (s *SQLiteStorage) AppendAudit(ctx context.Context, e *AuditEntry) error {
	return appendAudit(ctx, s.db, e)
}

// AuditFilter narrows QueryAudit results. Zero values mean "any".
type AuditFilter struct {
	TokenID *int64
	Action  AuditAction
	Limit   int
}

// QueryAudit returns audit entries matching the filter, newest first.
// Read-only; not on the authorization hot path.
func (s *SQLiteStorage) QueryAudit(ctx context.Context, filter AuditFilter) ([]*AuditEntry, error) {
	query := `SELECT id, token_id, session_id, action, detail, page_url, ip_address, user_agent, created_at
		FROM audit_log WHERE 1=1`
	var args []any

	if filter.TokenID != nil {
		query += " AND token_id = ?"
		args = append(args, *filter.TokenID)
	}
	if filter.Action != "" {
		query += " AND action = ?"
		args = append(args, string(filter.Action))
	}

	query += " ORDER BY id DESC"

	limit := filter.Limit
	if limit <= 0 {
		limit = 100
	}
	query += " LIMIT ?"
	args = append(args, limit)

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query audit log: %w", err)
	}
	defer rows.Close() //nolint:errcheck

	var entries []*AuditEntry

	for rows.Next() {
		var e AuditEntry
		var tokenID sql.NullInt64
		var sessionID sql.NullString
		var action string

		err := rows.Scan(&e.ID, &tokenID, &sessionID, &action, &e.Detail,
			&e.PageURL, &e.IPAddress, &e.UserAgent, &e.CreatedAt)
		if err != nil {
			return nil, fmt.Errorf("failed to scan audit row: %w", err)
		}

		if tokenID.Valid {
			e.TokenID = &tokenID.Int64
		}
		if sessionID.Valid {
			e.SessionID = &sessionID.String
		}
		e.Action = AuditAction(action)
		entries = append(entries, &e)
	}

	if err = rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating audit rows: %w", err)
	}

	// Return empty slice instead of nil
	if entries == nil {
		entries = make([]*AuditEntry, 0)
	}

	return entries, nil
}
