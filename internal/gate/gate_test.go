package gate

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/shoplift-io/accessgate/internal/storage"
)

// fakeSettings implements Settings.
type fakeSettings struct {
	window *storage.MaintenanceWindow
	err    error
}

func (f *fakeSettings) GetMaintenanceWindow(ctx context.Context) (*storage.MaintenanceWindow, error) {
	if f.err != nil {
		return nil, f.err
	}
	return f.window, nil
}

// fakeSessions implements Sessions.
type fakeSessions struct {
	active map[string]bool
	err    error
}

func (f *fakeSessions) IsSessionActive(ctx context.Context, sessionID string) (bool, error) {
	if f.err != nil {
		return false, f.err
	}
	return f.active[sessionID], nil
}

var testNow = time.Date(2026, 9, 1, 12, 0, 0, 0, time.UTC)

func newTestChecker(settings Settings, sessions Sessions) *Checker {
	c := NewChecker(settings, sessions, nil)
	c.now = func() time.Time { return testNow }
	return c
}

func timePtr(t time.Time) *time.Time { return &t }

// TestShouldBypassWindowInactive verifies everything passes when maintenance
// is off, not yet started, or already over.
func TestShouldBypassWindowInactive(t *testing.T) {
	cases := []struct {
		name   string
		window *storage.MaintenanceWindow
	}{
		{"disabled", &storage.MaintenanceWindow{Enabled: false}},
		{"not yet started", &storage.MaintenanceWindow{
			Enabled:  true,
			StartsAt: timePtr(testNow.Add(1 * time.Hour)),
		}},
		{"already over", &storage.MaintenanceWindow{
			Enabled: true,
			EndsAt:  timePtr(testNow.Add(-1 * time.Hour)),
		}},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			c := newTestChecker(&fakeSettings{window: tc.window}, &fakeSessions{})

			ok, err := c.ShouldBypass(context.Background(), Request{Path: "/shop"})
			if err != nil {
				t.Fatalf("ShouldBypass failed: %v", err)
			}
			if !ok {
				t.Error("expected pass when window is inactive")
			}
		})
	}
}

// TestShouldBypassDuringMaintenance verifies the decision matrix while the
// window is in effect.
func TestShouldBypassDuringMaintenance(t *testing.T) {
	window := &storage.MaintenanceWindow{
		Enabled:  true,
		StartsAt: timePtr(testNow.Add(-1 * time.Hour)),
		EndsAt:   timePtr(testNow.Add(1 * time.Hour)),
	}

	cases := []struct {
		name string
		req  Request
		want bool
	}{
		{"anonymous visitor blocked", Request{Path: "/shop"}, false},
		{"active bypass session passes", Request{Path: "/shop", BypassSessionID: "live"}, true},
		{"inactive bypass session blocked", Request{Path: "/shop", BypassSessionID: "dead"}, false},
		{"operator in admin area passes", Request{Path: "/admin/tokens", OperatorSession: true}, true},
		{"operator outside admin area blocked", Request{Path: "/shop", OperatorSession: true}, false},
		{"non-operator in admin area blocked", Request{Path: "/admin/tokens"}, false},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			c := newTestChecker(
				&fakeSettings{window: window},
				&fakeSessions{active: map[string]bool{"live": true}},
			)

			ok, err := c.ShouldBypass(context.Background(), tc.req)
			if err != nil {
				t.Fatalf("ShouldBypass failed: %v", err)
			}
			if ok != tc.want {
				t.Errorf("expected %v, got %v", tc.want, ok)
			}
		})
	}
}

// TestShouldBypassUnboundedWindow verifies an enabled window with no bounds
// is active indefinitely.
func TestShouldBypassUnboundedWindow(t *testing.T) {
	c := newTestChecker(
		&fakeSettings{window: &storage.MaintenanceWindow{Enabled: true}},
		&fakeSessions{},
	)

	ok, err := c.ShouldBypass(context.Background(), Request{Path: "/shop"})
	if err != nil {
		t.Fatalf("ShouldBypass failed: %v", err)
	}
	if ok {
		t.Error("expected block under an unbounded enabled window")
	}
}

// TestShouldBypassFailsClosed verifies storage failures deny access.
func TestShouldBypassFailsClosed(t *testing.T) {
	boom := errors.New("db down")

	c := newTestChecker(&fakeSettings{err: boom}, &fakeSessions{})
	ok, err := c.ShouldBypass(context.Background(), Request{Path: "/shop"})
	if !errors.Is(err, boom) {
		t.Errorf("expected settings error, got %v", err)
	}
	if ok {
		t.Error("expected denial on settings failure")
	}

	c = newTestChecker(
		&fakeSettings{window: &storage.MaintenanceWindow{Enabled: true}},
		&fakeSessions{err: boom},
	)
	ok, err = c.ShouldBypass(context.Background(), Request{Path: "/shop", BypassSessionID: "x"})
	if !errors.Is(err, boom) {
		t.Errorf("expected sessions error, got %v", err)
	}
	if ok {
		t.Error("expected denial on sessions failure")
	}
}

// TestIsAdminArea verifies the admin path prefix check.
func TestIsAdminArea(t *testing.T) {
	cases := []struct {
		path string
		want bool
	}{
		{"/admin", true},
		{"/admin/tokens", true},
		{"/administrator", false},
		{"/shop", false},
		{"/", false},
	}
	for _, tc := range cases {
		if got := isAdminArea(tc.path); got != tc.want {
			t.Errorf("isAdminArea(%q) = %v, want %v", tc.path, got, tc.want)
		}
	}
}
