package storage

import (
	"context"
	"testing"
)

// TestAppendAndQueryAudit verifies filtering and ordering of the ledger.
func TestAppendAndQueryAudit(t *testing.T) {
	t.Parallel()

	s := newTestStorage(t)
	ctx := context.Background()

	tokenA := int64(1)
	tokenB := int64(2)
	sessionID := "session-x"

	entries := []*AuditEntry{
		{TokenID: &tokenA, Action: AuditCreated, Detail: "first"},
		{TokenID: &tokenA, SessionID: &sessionID, Action: AuditAccessGranted},
		{TokenID: &tokenB, Action: AuditCreated, Detail: "second"},
		{Action: AuditCleanedUp, Detail: "deleted 0 unnamed token(s)"},
	}
	for _, e := range entries {
		if err := s.AppendAudit(ctx, e); err != nil {
			t.Fatalf("AppendAudit failed: %v", err)
		}
	}

	// No filter: everything, newest first
	all, err := s.QueryAudit(ctx, AuditFilter{})
	if err != nil {
		t.Fatalf("QueryAudit failed: %v", err)
	}
	if len(all) != 4 {
		t.Fatalf("expected 4 entries, got %d", len(all))
	}
	if all[0].Action != AuditCleanedUp {
		t.Errorf("expected newest entry first, got %s", all[0].Action)
	}
	if all[3].Detail != "first" {
		t.Errorf("expected oldest entry last, got %q", all[3].Detail)
	}

	// Filter by token
	byToken, err := s.QueryAudit(ctx, AuditFilter{TokenID: &tokenA})
	if err != nil {
		t.Fatalf("QueryAudit failed: %v", err)
	}
	if len(byToken) != 2 {
		t.Errorf("expected 2 entries for token A, got %d", len(byToken))
	}

	// Filter by action
	byAction, err := s.QueryAudit(ctx, AuditFilter{Action: AuditCreated})
	if err != nil {
		t.Fatalf("QueryAudit failed: %v", err)
	}
	if len(byAction) != 2 {
		t.Errorf("expected 2 creation entries, got %d", len(byAction))
	}

	// Combined filter
	both, err := s.QueryAudit(ctx, AuditFilter{TokenID: &tokenB, Action: AuditCreated})
	if err != nil {
		t.Fatalf("QueryAudit failed: %v", err)
	}
	if len(both) != 1 || both[0].Detail != "second" {
		t.Errorf("unexpected combined filter result: %+v", both)
	}

	// Limit
	limited, err := s.QueryAudit(ctx, AuditFilter{Limit: 2})
	if err != nil {
		t.Fatalf("QueryAudit failed: %v", err)
	}
	if len(limited) != 2 {
		t.Errorf("expected 2 entries with limit, got %d", len(limited))
	}
}

// TestQueryAuditEmpty verifies an empty ledger yields an empty slice.
func TestQueryAuditEmpty(t *testing.T) {
	t.Parallel()

	s := newTestStorage(t)

	entries, err := s.QueryAudit(context.Background(), AuditFilter{})
	if err != nil {
		t.Fatalf("QueryAudit failed: %v", err)
	}
	if entries == nil {
		t.Fatal("expected empty slice, got nil")
	}
	if len(entries) != 0 {
		t.Errorf("expected 0 entries, got %d", len(entries))
	}
}
