package storage

import (
	"context"
	"testing"
	"time"
)

// TestMaintenanceWindowDefault verifies a never-configured window reads as
// disabled rather than an error.
func TestMaintenanceWindowDefault(t *testing.T) {
	t.Parallel()

	s := newTestStorage(t)

	w, err := s.GetMaintenanceWindow(context.Background())
	if err != nil {
		t.Fatalf("GetMaintenanceWindow failed: %v", err)
	}
	if w.Enabled {
		t.Error("expected maintenance to default to disabled")
	}
	if w.StartsAt != nil || w.EndsAt != nil {
		t.Error("expected no window bounds by default")
	}
}

// TestSetMaintenanceWindow verifies the singleton row round trip.
func TestSetMaintenanceWindow(t *testing.T) {
	t.Parallel()

	s := newTestStorage(t)
	ctx := context.Background()

	starts := time.Date(2026, 9, 1, 2, 0, 0, 0, time.UTC)
	ends := starts.Add(4 * time.Hour)

	err := s.SetMaintenanceWindow(ctx, &MaintenanceWindow{
		Enabled:  true,
		StartsAt: &starts,
		EndsAt:   &ends,
	})
	if err != nil {
		t.Fatalf("SetMaintenanceWindow failed: %v", err)
	}

	w, err := s.GetMaintenanceWindow(ctx)
	if err != nil {
		t.Fatalf("GetMaintenanceWindow failed: %v", err)
	}
	if !w.Enabled {
		t.Error("expected maintenance to be enabled")
	}
	if w.StartsAt == nil || !w.StartsAt.Equal(starts) {
		t.Errorf("expected starts_at %v, got %v", starts, w.StartsAt)
	}
	if w.EndsAt == nil || !w.EndsAt.Equal(ends) {
		t.Errorf("expected ends_at %v, got %v", ends, w.EndsAt)
	}

	// The row is a singleton: a second write replaces, never adds
	if err := s.SetMaintenanceWindow(ctx, &MaintenanceWindow{Enabled: false}); err != nil {
		t.Fatalf("second SetMaintenanceWindow failed: %v", err)
	}
	w, err = s.GetMaintenanceWindow(ctx)
	if err != nil {
		t.Fatalf("GetMaintenanceWindow failed: %v", err)
	}
	if w.Enabled {
		t.Error("expected maintenance to be disabled after replacement")
	}
	if w.StartsAt != nil {
		t.Error("expected bounds to be cleared by replacement")
	}

	var rows int
	if err := s.db.QueryRow("SELECT COUNT(*) FROM settings").Scan(&rows); err != nil {
		t.Fatalf("failed to count settings rows: %v", err)
	}
	if rows != 1 {
		t.Errorf("expected exactly 1 settings row, got %d", rows)
	}
}
