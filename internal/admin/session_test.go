package admin

import (
	"context"
	"testing"
	"time"
)

// TestSessionStoreCreateSession tests session creation
func TestSessionStoreCreateSession(t *testing.T) {
	t.Run("generates unique session and CSRF tokens", func(t *testing.T) {
		store := NewSessionStore(1 * time.Hour)

		session1, err := store.CreateSession(context.Background())
		if err != nil {
			t.Fatalf("failed to create session: %v", err)
		}
		session2, err := store.CreateSession(context.Background())
		if err != nil {
			t.Fatalf("failed to create session: %v", err)
		}

		if session1.ID == session2.ID {
			t.Error("expected unique session IDs")
		}
		if session1.CSRFToken == session2.CSRFToken {
			t.Error("expected unique CSRF tokens")
		}

		// 32 bytes = 64 hex chars
		if len(session1.ID) != 64 {
			t.Errorf("expected session ID length 64, got %d", len(session1.ID))
		}
		if len(session1.CSRFToken) != 64 {
			t.Errorf("expected CSRF token length 64, got %d", len(session1.CSRFToken))
		}
	})

	t.Run("default timeout 24 hours", func(t *testing.T) {
		store := NewSessionStore(0)
		if store.timeout != 24*time.Hour {
			t.Errorf("expected timeout 24h, got %v", store.timeout)
		}
	})
}

// TestSessionStoreGetSession tests session retrieval and expiry
func TestSessionStoreGetSession(t *testing.T) {
	t.Run("returns valid session", func(t *testing.T) {
		store := NewSessionStore(1 * time.Hour)

		session, err := store.CreateSession(context.Background())
		if err != nil {
			t.Fatalf("failed to create session: %v", err)
		}

		retrieved, ok := store.GetSession(context.Background(), session.ID)
		if !ok {
			t.Fatal("expected session to be found")
		}
		if retrieved.CSRFToken != session.CSRFToken {
			t.Error("expected CSRF token to round-trip")
		}
	})

	t.Run("unknown ID not found", func(t *testing.T) {
		store := NewSessionStore(1 * time.Hour)
		if _, ok := store.GetSession(context.Background(), "nope"); ok {
			t.Error("expected unknown session to be absent")
		}
	})

	t.Run("expired session is dropped", func(t *testing.T) {
		store := NewSessionStore(1 * time.Hour)

		session, err := store.CreateSession(context.Background())
		if err != nil {
			t.Fatalf("failed to create session: %v", err)
		}
		session.ExpiresAt = time.Now().Add(-1 * time.Minute)

		if _, ok := store.GetSession(context.Background(), session.ID); ok {
			t.Error("expected expired session to be rejected")
		}
		// The expired entry is removed, not just hidden
		store.mu.RLock()
		_, stillThere := store.sessions[session.ID]
		store.mu.RUnlock()
		if stillThere {
			t.Error("expected expired session to be deleted")
		}
	})
}

// TestSessionStoreDeleteSession tests explicit logout
func TestSessionStoreDeleteSession(t *testing.T) {
	store := NewSessionStore(1 * time.Hour)

	session, err := store.CreateSession(context.Background())
	if err != nil {
		t.Fatalf("failed to create session: %v", err)
	}

	store.DeleteSession(context.Background(), session.ID)

	if _, ok := store.GetSession(context.Background(), session.ID); ok {
		t.Error("expected deleted session to be absent")
	}
}
