package storage

import (
	"bytes"
	"context"
	"testing"
)

// testKey is a fixed 32-byte AES key for tests.
var testKey = bytes.Repeat([]byte{0x42}, 32)

var testMeta = RequestMeta{
	PageURL:   "/bypass/verify",
	IPAddress: "127.0.0.1",
	UserAgent: "test-agent",
}

// newTestStorage creates an in-memory storage instance.
func newTestStorage(t *testing.T) *SQLiteStorage {
	t.Helper()

	s, err := New(":memory:", testKey)
	if err != nil {
		t.Fatalf("failed to create storage: %v", err)
	}
	t.Cleanup(func() { _ = s.Close() })
	return s
}

// createTestToken mints a token and returns it with its plaintext credentials.
func createTestToken(t *testing.T, s *SQLiteStorage, name string) (*Token, string, string) {
	t.Helper()

	token, publicToken, passkey, err := s.CreateToken(context.Background(), CreateTokenParams{
		Name:           name,
		Email:          name + "@example.com",
		CreatedBy:      "operator",
		AssignedUserID: "user-" + name,
	}, testMeta)
	if err != nil {
		t.Fatalf("failed to create token: %v", err)
	}
	return token, publicToken, passkey
}

// TestNewRejectsBadKey verifies the AES key length check.
func TestNewRejectsBadKey(t *testing.T) {
	t.Parallel()

	_, err := New(":memory:", []byte("short"))
	if err != ErrInvalidKey {
		t.Errorf("expected ErrInvalidKey, got %v", err)
	}
}

// TestPing verifies database connectivity check.
func TestPing(t *testing.T) {
	t.Parallel()

	s := newTestStorage(t)
	if err := s.Ping(context.Background()); err != nil {
		t.Errorf("Ping failed: %v", err)
	}
}

// TestInitSchemaIdempotent verifies the schema can be applied repeatedly.
func TestInitSchemaIdempotent(t *testing.T) {
	t.Parallel()

	s := newTestStorage(t)
	if err := InitSchema(s.db); err != nil {
		t.Errorf("re-applying schema failed: %v", err)
	}
}
